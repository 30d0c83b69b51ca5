package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/carbonsync/internal/model"
)

// Validation errors.
var (
	ErrNilContext     = errors.New("context cannot be nil")
	ErrEmptyString    = errors.New("string parameter cannot be empty")
	ErrNilParameter   = errors.New("parameter cannot be nil")
	ErrEmptySlice     = errors.New("slice cannot be empty")
	ErrInvalidDataset = errors.New("invalid dataset")
	ErrInvalidRun     = errors.New("invalid forecast run")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateDataset(ds *model.Dataset, series model.Series) error {
	if ds == nil {
		return fmt.Errorf("%w: dataset", ErrNilParameter)
	}
	if strings.TrimSpace(ds.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidDataset)
	}
	if len(series) == 0 {
		return fmt.Errorf("%w: series", ErrEmptySlice)
	}
	if dups := series.DuplicateDates(); len(dups) > 0 {
		return fmt.Errorf("%w: date %s appears more than once", ErrInvalidDataset, dups[0].Format(model.DateLayout))
	}
	return nil
}

func validateRun(run *model.ForecastRun) error {
	if run == nil {
		return fmt.Errorf("%w: run", ErrNilParameter)
	}
	if run.Fingerprint == "" {
		return fmt.Errorf("%w: fingerprint is required", ErrInvalidRun)
	}
	if run.Horizon < 1 {
		return fmt.Errorf("%w: horizon must be positive", ErrInvalidRun)
	}
	switch run.Kind {
	case model.RunForecast, model.RunOptimize:
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidRun, run.Kind)
	}
	if len(run.Payload) == 0 {
		return fmt.Errorf("%w: payload is required", ErrInvalidRun)
	}
	return nil
}
