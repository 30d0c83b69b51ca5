package optimize

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/Veraticus/carbonsync/internal/common"
	"github.com/Veraticus/carbonsync/internal/forecast"
	"github.com/Veraticus/carbonsync/internal/model"
	"github.com/Veraticus/carbonsync/internal/regression"
)

// ModelName identifies optimization runs.
const ModelName = "driver_regression"

// ValidateReductions rejects unknown drivers, percentages outside [0, 100]
// and drivers named twice.
func ValidateReductions(reductions []model.Reduction) error {
	seen := make(map[model.Field]bool, len(reductions))
	for _, r := range reductions {
		if !r.Regressor.IsDriver() {
			return fmt.Errorf("%w: %q is not a driver that can be reduced", common.ErrInvalidInput, r.Regressor)
		}
		if math.IsNaN(r.ReductionPct) || r.ReductionPct < 0 || r.ReductionPct > 100 {
			return fmt.Errorf("%w: reduction for %s must be between 0 and 100, got %g", common.ErrInvalidInput, r.Regressor, r.ReductionPct)
		}
		if seen[r.Regressor] {
			return fmt.Errorf("%w: %s is reduced more than once", common.ErrInvalidInput, r.Regressor)
		}
		seen[r.Regressor] = true
	}
	return nil
}

// Optimize fits emissions on the drivers plus a time index and compares a
// baseline forecast, with every driver held at its mean, against one with
// the reductions applied. Reductions of drivers whose coefficient is not
// positive are skipped.
func Optimize(ctx context.Context, s model.Series, reductions []model.Reduction, horizon int) (*model.OptimizationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := forecast.ValidateHorizon(horizon); err != nil {
		return nil, err
	}
	if err := forecast.ValidateSeries(s); err != nil {
		return nil, err
	}
	if err := ValidateReductions(reductions); err != nil {
		return nil, err
	}

	sorted := s.Clone()
	sorted.Sort()
	n := len(sorted)
	p := len(model.DriverFields)

	x := driverMatrix(sorted)
	for i := range x {
		x[i] = append(x[i], float64(i))
	}
	y := sorted.Column(model.TargetField)

	fit, err := regression.OLS(x, y, true)
	if err != nil {
		return nil, fmt.Errorf("optimization fit failed: %w", err)
	}
	std := regression.PopulationStdDev(fit.Residuals(x, y))

	baseline := make([]float64, p)
	for j, f := range model.DriverFields {
		baseline[j] = regression.Mean(sorted.Column(f))
	}
	optimized := append([]float64(nil), baseline...)

	var skipped []model.Field
	for _, r := range reductions {
		j := driverIndex(r.Regressor)
		if fit.Coef[j] <= 0 {
			skipped = append(skipped, r.Regressor)
			slog.Debug("Skipping reduction of driver with non-positive coefficient",
				"driver", r.Regressor,
				"coefficient", fit.Coef[j])
			continue
		}
		optimized[j] = baseline[j] * (1 - r.ReductionPct/100)
	}

	last := sorted.LastDate()
	result := &model.OptimizationResult{
		OptimizedForecast: make([]model.ForecastPoint, horizon),
		BaselineForecast:  make([]model.ForecastPoint, horizon),
		Skipped:           skipped,
	}
	var baseSum, optSum float64
	for h := 0; h < horizon; h++ {
		date := forecast.AddMonths(last, h+1)
		t := float64(n + h)

		base := fit.Predict(append(append([]float64(nil), baseline...), t))
		opt := fit.Predict(append(append([]float64(nil), optimized...), t))
		baseSum += base
		optSum += opt

		result.BaselineForecast[h] = point(date, base, std)
		result.OptimizedForecast[h] = point(date, opt, std)
	}

	result.Savings.Total = baseSum - optSum
	if baseSum != 0 {
		result.Savings.Percentage = result.Savings.Total / baseSum * 100
	}
	return result, nil
}

func point(date time.Time, pred, std float64) model.ForecastPoint {
	lower, upper := regression.Band(pred, std)
	return model.ForecastPoint{
		Date:               date,
		PredictedEmissions: pred,
		LowerBound:         lower,
		UpperBound:         upper,
	}
}

func driverIndex(f model.Field) int {
	for j, d := range model.DriverFields {
		if d == f {
			return j
		}
	}
	return -1
}
