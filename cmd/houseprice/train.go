package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"houseprice/pkg/artifact"
	"houseprice/pkg/logger"
	"houseprice/pkg/train"
)

var headingStyle = lipgloss.NewStyle().Bold(true)

func trainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train <csv>",
		Short: "Train a model from a housing CSV and save it",
		Args:  cobra.ExactArgs(1),
		RunE:  runTrain,
	}
	cmd.Flags().Int("top", 5, "number of feature importances to print")
	return cmd
}

func runTrain(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	top, err := cmd.Flags().GetInt("top")
	if err != nil {
		return fmt.Errorf("failed to get top flag: %w", err)
	}
	store := artifact.NewStore(cfg.Model.StorePath)
	t := train.New(store, trainerOptions(cfg.Train)...)

	ctx := logger.ContextWithLogger(cmd.Context(), log)
	res, err := t.FitFile(ctx, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, headingStyle.Render("Model saved"))
	fmt.Fprintf(out, "  path:     %s\n", store.Path())
	fmt.Fprintf(out, "  run:      %s\n", res.RunID)
	fmt.Fprintf(out, "  rows:     %d (train %d, test %d)\n", res.Rows, res.TrainRows, res.TestRows)
	fmt.Fprintf(out, "  columns:  %d\n", len(res.Columns))
	fmt.Fprintf(out, "  R²:       %.4f\n", res.R2)
	fmt.Fprintf(out, "  MAE:      %.2f\n", res.MAE)
	fmt.Fprintf(out, "  RMSE:     %.2f\n", res.RMSE)
	fmt.Fprintf(out, "  price:    mean %.0f, median %.0f, IQR %.0f-%.0f, range %.0f-%.0f\n",
		res.Target.Mean, res.Target.Median, res.Target.P25, res.Target.P75, res.Target.Min, res.Target.Max)

	if top > 0 && len(res.Importances) > 0 {
		fmt.Fprintln(out, headingStyle.Render("Top features"))
		for _, fi := range res.Importances[:min(top, len(res.Importances))] {
			fmt.Fprintf(out, "  %-24s %.4f\n", fi.Column, fi.Importance)
		}
	}
	return nil
}
