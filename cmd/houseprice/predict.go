package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/spf13/cobra"

	"houseprice/pkg/artifact"
	"houseprice/pkg/logger"
	"houseprice/pkg/predict"
	"houseprice/pkg/schema"
)

func predictCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "predict [request.json]",
		Short: "Predict a price for one JSON request read from a file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runPredict,
	}
	cmd.Flags().Bool("band", false, "include the heuristic price band")
	return cmd
}

func runPredict(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	withBand, err := cmd.Flags().GetBool("band")
	if err != nil {
		return err
	}

	var in io.Reader = cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}
	req, err := schema.ParseRequest(in)
	if err != nil {
		return err
	}

	p, err := predict.New(artifact.NewStore(cfg.Model.StorePath),
		predict.WithFallbackPrice(cfg.Model.FallbackPrice),
	)
	if err != nil {
		return err
	}
	pred, err := p.Predict(logger.ContextWithLogger(cmd.Context(), log), req)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(pred.Response(withBand))
}
