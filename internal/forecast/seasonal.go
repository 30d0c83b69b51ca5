package forecast

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/Veraticus/carbonsync/internal/common"
	"github.com/Veraticus/carbonsync/internal/model"
	"github.com/Veraticus/carbonsync/internal/regression"
)

// SeasonalConfig tunes the seasonal strategy.
type SeasonalConfig struct {
	Enabled      bool
	FourierOrder int
	RidgeLambda  float64
	MinRows      int
}

// DefaultSeasonalConfig returns the defaults used when nothing is configured.
func DefaultSeasonalConfig() SeasonalConfig {
	return SeasonalConfig{
		Enabled:      true,
		FourierOrder: 3,
		RidgeLambda:  0.1,
		MinRows:      6,
	}
}

// Seasonal fits y(t) = g(t)·(1 + s(t) + Σβ·z(t)) where g is a linear trend
// in years, s a yearly Fourier series and z the standardized drivers.
type Seasonal struct {
	cfg SeasonalConfig
}

// NewSeasonal creates the primary strategy.
func NewSeasonal(cfg SeasonalConfig) *Seasonal {
	if cfg.MinRows < MinRows {
		cfg.MinRows = MinRows
	}
	if cfg.FourierOrder < 0 {
		cfg.FourierOrder = 0
	}
	return &Seasonal{cfg: cfg}
}

// Name implements Strategy.
func (s *Seasonal) Name() string {
	return "seasonal"
}

// Available implements Strategy.
func (s *Seasonal) Available(series model.Series) error {
	if !s.cfg.Enabled {
		return fmt.Errorf("%w: seasonal model disabled", common.ErrModelFit)
	}
	if len(series) < s.cfg.MinRows {
		return fmt.Errorf("%w: seasonal model needs %d rows, got %d", common.ErrModelFit, s.cfg.MinRows, len(series))
	}
	return nil
}

// trendFloor is the smallest trend value, relative to the mean target, the
// multiplicative terms can be divided by.
const trendFloor = 1e-6

type driverScale struct {
	field model.Field
	mean  float64
	std   float64
}

// Fit implements Strategy.
func (s *Seasonal) Fit(ctx context.Context, series model.Series, horizon int) ([]model.ForecastPoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n := len(series)
	origin := series[0].Date
	y := series.Column(model.TargetField)

	times := make([]float64, n)
	for i, r := range series {
		times[i] = yearsSince(origin, r.Date)
	}
	future := MonthStarts(series.LastDate(), horizon)
	futureTimes := make([]float64, horizon)
	for i, d := range future {
		futureTimes[i] = yearsSince(origin, d)
	}

	trendX := make([][]float64, n)
	for i, t := range times {
		trendX[i] = []float64{t}
	}
	trend, err := regression.OLS(trendX, y, true)
	if err != nil {
		return nil, err
	}

	floor := trendFloor * math.Max(math.Abs(regression.Mean(y)), 1)
	g := func(t float64) float64 { return trend.Predict([]float64{t}) }
	for _, t := range append(append([]float64(nil), times...), futureTimes...) {
		if g(t) <= floor {
			return nil, fmt.Errorf("%w: trend reaches %.4g, multiplicative terms undefined", common.ErrModelFit, g(t))
		}
	}

	drivers := scaleDrivers(series)
	order := s.cfg.FourierOrder
	for order > 0 && 2+2*order+len(drivers) >= n {
		order--
	}

	observed := make(map[time.Time]model.Record, n)
	for _, r := range series {
		observed[r.Date] = r
	}
	features := func(t float64, date time.Time) []float64 {
		row := make([]float64, 0, 1+2*order+len(drivers))
		row = append(row, 1)
		for k := 1; k <= order; k++ {
			angle := 2 * math.Pi * float64(k) * t
			row = append(row, math.Sin(angle), math.Cos(angle))
		}
		rec, seen := observed[date]
		for _, d := range drivers {
			v := d.mean
			if seen {
				v = rec.Value(d.field)
			}
			row = append(row, (v-d.mean)/d.std)
		}
		return row
	}

	x := make([][]float64, n)
	ratio := make([]float64, n)
	for i, r := range series {
		x[i] = features(times[i], r.Date)
		ratio[i] = y[i]/g(times[i]) - 1
	}
	mult, err := regression.Ridge(x, ratio, s.cfg.RidgeLambda)
	if err != nil {
		return nil, err
	}

	residuals := make([]float64, n)
	for i := range y {
		residuals[i] = y[i] - g(times[i])*(1+mult.Predict(x[i]))
	}
	std := regression.PopulationStdDev(residuals)

	points := make([]model.ForecastPoint, horizon)
	for i, d := range future {
		pred := g(futureTimes[i]) * (1 + mult.Predict(features(futureTimes[i], d)))
		if math.IsNaN(pred) || math.IsInf(pred, 0) {
			return nil, fmt.Errorf("%w: non-finite prediction for %s", common.ErrModelFit, d.Format(model.DateLayout))
		}
		lower, upper := regression.Band(pred, std)
		points[i] = model.ForecastPoint{
			Date:               d,
			PredictedEmissions: pred,
			LowerBound:         lower,
			UpperBound:         upper,
		}
	}
	return points, nil
}

// scaleDrivers returns the drivers that vary over the series with their
// mean and population standard deviation.
func scaleDrivers(series model.Series) []driverScale {
	var out []driverScale
	for _, f := range model.DriverFields {
		col := series.Column(f)
		std := regression.PopulationStdDev(col)
		if std == 0 {
			continue
		}
		out = append(out, driverScale{field: f, mean: regression.Mean(col), std: std})
	}
	return out
}
