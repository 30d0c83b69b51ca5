package forecast

import (
	"context"

	"github.com/Veraticus/carbonsync/internal/model"
	"github.com/Veraticus/carbonsync/internal/regression"
)

// Linear regresses emissions on the row index and extends the line.
type Linear struct{}

// NewLinear creates the fallback strategy.
func NewLinear() *Linear {
	return &Linear{}
}

// Name implements Strategy.
func (l *Linear) Name() string {
	return "linear"
}

// Available implements Strategy. The linear model serves any valid series.
func (l *Linear) Available(model.Series) error {
	return nil
}

// Fit implements Strategy.
func (l *Linear) Fit(ctx context.Context, s model.Series, horizon int) ([]model.ForecastPoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n := len(s)
	x := make([][]float64, n)
	for i := range x {
		x[i] = []float64{float64(i)}
	}
	y := s.Column(model.TargetField)

	fit, err := regression.OLS(x, y, true)
	if err != nil {
		return nil, err
	}
	std := regression.PopulationStdDev(fit.Residuals(x, y))

	last := s.LastDate()
	points := make([]model.ForecastPoint, horizon)
	for i := range points {
		pred := fit.Predict([]float64{float64(n + i)})
		lower, upper := regression.Band(pred, std)
		points[i] = model.ForecastPoint{
			Date:               AddMonths(last, i+1),
			PredictedEmissions: pred,
			LowerBound:         lower,
			UpperBound:         upper,
		}
	}
	return points, nil
}
