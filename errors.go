package forecaster

import (
	"errors"
	"fmt"

	"github.com/aouyang1/go-demandcast/production"
)

var (
	ErrInsufficientData = errors.New("insufficient data")
	ErrInvalidConfig    = errors.New("invalid config")
	ErrInvalidHorizon   = errors.New("invalid horizon")
	ErrNotFitted        = errors.New("forecaster has not been fit")

	// ErrDuplicateSmoothness is a caller error so it also matches ErrInvalidConfig
	ErrDuplicateSmoothness = fmt.Errorf("duplicate smoothness value, %w", ErrInvalidConfig)

	ErrMissingInputFile = production.ErrMissingInputFile
)
