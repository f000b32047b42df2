// Package artifact persists a trained model together with the column
// manifest it was trained on, so that inference always encodes requests
// against the exact layout the model expects.
package artifact

import (
	"errors"
	"fmt"
	"time"

	"houseprice/pkg/dataprep"
	"houseprice/pkg/model"
)

// FormatVersion is bumped whenever the persisted layout changes.
const FormatVersion = 1

var (
	// ErrNotFound is returned by Load when no artifact has been saved yet.
	ErrNotFound = errors.New("artifact: not found")
	// ErrInvalid marks an artifact that decoded but cannot be served.
	ErrInvalid = errors.New("artifact: invalid")
)

// Artifact is a trained model plus the manifest it was fitted against.
// R2 is nil when the model was never evaluated, e.g. the fallback.
type Artifact struct {
	Version   int
	Model     model.Regressor
	Columns   dataprep.Manifest
	R2        *float64
	RunID     string
	TrainedAt time.Time
	Rows      int
	Fallback  bool
}

// Fallback builds the artifact served before any training has happened:
// a constant model over the given columns with no R² attached.
func Fallback(price float64, columns dataprep.Manifest) *Artifact {
	return &Artifact{
		Version:  FormatVersion,
		Model:    model.NewConstantRegressor(price),
		Columns:  append(dataprep.Manifest(nil), columns...),
		Fallback: true,
	}
}

// Validate reports whether a can serve predictions.
func (a *Artifact) Validate() error {
	if a == nil {
		return fmt.Errorf("%w: nil artifact", ErrInvalid)
	}
	if a.Version != FormatVersion {
		return fmt.Errorf("%w: format version %d, want %d", ErrInvalid, a.Version, FormatVersion)
	}
	if a.Model == nil {
		return fmt.Errorf("%w: missing model", ErrInvalid)
	}
	if err := a.Columns.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}
