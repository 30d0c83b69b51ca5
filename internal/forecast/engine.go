package forecast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/Veraticus/carbonsync/internal/model"
)

// Result is a forecast together with the model that produced it.
type Result struct {
	Points       []model.ForecastPoint
	Model        string
	UsedFallback bool
	// FallbackReason explains why the primary strategy was not used.
	FallbackReason string
}

// Engine tries its primary strategies in order and falls back to the linear
// model.
type Engine struct {
	primary  []Strategy
	fallback Strategy
}

// NewEngine creates an engine. With no primary strategies every forecast
// uses the fallback.
func NewEngine(primary ...Strategy) *Engine {
	var kept []Strategy
	for _, p := range primary {
		if p != nil {
			kept = append(kept, p)
		}
	}
	return &Engine{primary: kept, fallback: NewLinear()}
}

// Forecast projects the emissions of s horizon months ahead. s is not
// modified.
func (e *Engine) Forecast(ctx context.Context, s model.Series, horizon int) (*Result, error) {
	if err := ValidateHorizon(horizon); err != nil {
		return nil, err
	}
	if err := ValidateSeries(s); err != nil {
		return nil, err
	}

	sorted := s.Clone()
	sorted.Sort()

	reason := "no primary model configured"
	for _, st := range e.primary {
		if err := st.Available(sorted); err != nil {
			reason = err.Error()
			slog.Debug("Forecast model unavailable", "model", st.Name(), "reason", reason)
			continue
		}

		points, err := st.Fit(ctx, sorted, horizon)
		if err == nil {
			err = checkPoints(points, horizon)
		}
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			reason = err.Error()
			slog.Warn("Forecast model failed, falling back",
				"model", st.Name(),
				"fallback", e.fallback.Name(),
				"error", err)
			continue
		}

		return &Result{Points: points, Model: st.Name()}, nil
	}

	points, err := e.fallback.Fit(ctx, sorted, horizon)
	if err != nil {
		return nil, fmt.Errorf("fallback forecast failed: %w", err)
	}
	return &Result{
		Points:         points,
		Model:          e.fallback.Name(),
		UsedFallback:   true,
		FallbackReason: reason,
	}, nil
}

func checkPoints(points []model.ForecastPoint, horizon int) error {
	if len(points) != horizon {
		return fmt.Errorf("model returned %d points for a horizon of %d", len(points), horizon)
	}
	for i, p := range points {
		if i > 0 && !p.Date.After(points[i-1].Date) {
			return fmt.Errorf("model returned dates out of order at point %d", i)
		}
		for _, v := range []float64{p.PredictedEmissions, p.LowerBound, p.UpperBound} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("model returned a non-finite value at point %d", i)
			}
		}
	}
	return nil
}
