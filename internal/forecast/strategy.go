// Package forecast projects emissions forward with a seasonal primary model
// and a deterministic linear fallback.
package forecast

import (
	"context"
	"fmt"

	"github.com/Veraticus/carbonsync/internal/common"
	"github.com/Veraticus/carbonsync/internal/model"
)

// MinRows is the smallest series any strategy accepts.
const MinRows = 3

// Strategy is one forecasting model.
type Strategy interface {
	// Name identifies the model in results and stored runs.
	Name() string
	// Available reports why the strategy cannot serve the series, or nil.
	Available(s model.Series) error
	// Fit returns exactly horizon future points in ascending date order.
	// The series is sorted with unique dates.
	Fit(ctx context.Context, s model.Series, horizon int) ([]model.ForecastPoint, error)
}

// ValidateSeries checks the preconditions shared by forecasting and
// optimization.
func ValidateSeries(s model.Series) error {
	if len(s) < MinRows {
		return fmt.Errorf("%w: need at least %d rows, got %d", common.ErrInsufficientData, MinRows, len(s))
	}
	if dups := s.DuplicateDates(); len(dups) > 0 {
		return fmt.Errorf("%w: %s appears more than once", common.ErrDuplicateDate, dups[0].Format(model.DateLayout))
	}
	if row, field, bad := s.NonFinite(); bad {
		return fmt.Errorf("%w: row %d has a non-finite %s", common.ErrInvalidInput, row, field)
	}
	return nil
}

// ValidateHorizon rejects horizons below one month.
func ValidateHorizon(horizon int) error {
	if horizon < 1 {
		return fmt.Errorf("%w: horizon must be at least 1 month, got %d", common.ErrInvalidInput, horizon)
	}
	return nil
}
