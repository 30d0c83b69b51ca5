package service

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/Veraticus/carbonsync/internal/common"
	"github.com/Veraticus/carbonsync/internal/config"
	"github.com/Veraticus/carbonsync/internal/forecast"
	"github.com/Veraticus/carbonsync/internal/model"
	"github.com/Veraticus/carbonsync/internal/normalize"
	"github.com/Veraticus/carbonsync/internal/optimize"
	"github.com/Veraticus/carbonsync/internal/table"
)

// Messages returned alongside successful responses.
const (
	MsgNormalized = "Data processed successfully"
	MsgSample     = "Sample data generated successfully"
)

// Service runs normalization, forecasting and optimization requests.
type Service struct {
	normalizer *normalize.Normalizer
	engine     *forecast.Engine
	runs       RunStore
}

// Option configures a Service.
type Option func(*Service)

// WithRunStore enables result caching. Runs are keyed by the content hash
// of the series, so a cached result is only reused for identical rows.
func WithRunStore(runs RunStore) Option {
	return func(s *Service) {
		s.runs = runs
	}
}

// New creates a service from its pipeline components.
func New(normalizer *normalize.Normalizer, engine *forecast.Engine, opts ...Option) *Service {
	s := &Service{
		normalizer: normalizer,
		engine:     engine,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FromPipeline creates a service from a loaded configuration.
func FromPipeline(p *config.Pipeline, opts ...Option) *Service {
	return New(normalize.New(p.Aliases, p.Formats), p.Engine(), opts...)
}

// Normalize maps a raw table onto the canonical series.
func (s *Service) Normalize(ctx context.Context, t *table.Table) (*NormalizeResponse, error) {
	res, err := s.normalizer.Normalize(ctx, t)
	if err != nil {
		return nil, common.NewUserError("Failed to normalize data", err)
	}

	return &NormalizeResponse{
		Data:           res.Records,
		Summary:        res.Summary,
		Mapping:        ColumnMappings(res.Mapping.Entries),
		Conflicts:      ColumnMappings(res.Mapping.Conflicts),
		MissingFields:  res.MissingFields,
		Imputed:        res.Imputed,
		MergedRows:     res.MergedRows,
		SyntheticDates: res.SyntheticDates,
		Message:        MsgNormalized,
	}, nil
}

// Forecast projects emissions and attributes them to the drivers.
func (s *Service) Forecast(ctx context.Context, req ForecastRequest) (*ForecastResponse, error) {
	fingerprint := req.Series.Fingerprint()

	var cached ForecastResponse
	if s.lookup(ctx, fingerprint, req.HorizonMonths, model.RunForecast, &cached) {
		cached.Cached = true
		return &cached, nil
	}

	res, err := s.engine.Forecast(ctx, req.Series, req.HorizonMonths)
	if err != nil {
		return nil, common.NewUserError("Failed to generate forecast", err)
	}

	impacts := optimize.Attribute(req.Series)
	resp := &ForecastResponse{
		Forecast:     res.Points,
		Impacts:      impacts,
		Suggestions:  optimize.Suggestions(impacts),
		UsedFallback: res.UsedFallback,
		Model:        res.Model,
	}

	s.store(ctx, &model.ForecastRun{
		DatasetID:    req.DatasetID,
		Fingerprint:  fingerprint,
		Horizon:      req.HorizonMonths,
		Kind:         model.RunForecast,
		Model:        res.Model,
		UsedFallback: res.UsedFallback,
	}, resp)

	return resp, nil
}

// Optimize simulates the requested driver reductions.
func (s *Service) Optimize(ctx context.Context, req OptimizeRequest) (*OptimizeResponse, error) {
	key := optimizeKey(req.Series, req.Suggestions)

	var cached OptimizeResponse
	if s.lookup(ctx, key, req.HorizonMonths, model.RunOptimize, &cached) {
		cached.Cached = true
		return &cached, nil
	}

	res, err := optimize.Optimize(ctx, req.Series, req.Suggestions, req.HorizonMonths)
	if err != nil {
		return nil, common.NewUserError("Failed to optimize", err)
	}

	resp := &OptimizeResponse{OptimizationResult: *res}
	s.store(ctx, &model.ForecastRun{
		DatasetID:   req.DatasetID,
		Fingerprint: key,
		Horizon:     req.HorizonMonths,
		Kind:        model.RunOptimize,
		Model:       optimize.ModelName,
	}, resp)

	return resp, nil
}

// lookup decodes a cached run into dst. Cache failures are logged and
// treated as misses.
func (s *Service) lookup(ctx context.Context, fingerprint string, horizon int, kind model.RunKind, dst any) bool {
	if s.runs == nil || horizon < 1 {
		return false
	}

	run, err := s.runs.FindRun(ctx, fingerprint, horizon, kind)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			slog.Warn("Run cache lookup failed", "kind", kind, "error", err)
		}
		return false
	}

	if err := json.Unmarshal(run.Payload, dst); err != nil {
		slog.Warn("Discarding unreadable cached run", "id", run.ID, "error", err)
		return false
	}

	slog.Debug("Using cached run", "id", run.ID, "kind", kind, "horizon", horizon)
	return true
}

func (s *Service) store(ctx context.Context, run *model.ForecastRun, payload any) {
	if s.runs == nil {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		slog.Warn("Failed to encode run", "kind", run.Kind, "error", err)
		return
	}
	run.Payload = data

	if err := s.runs.SaveRun(ctx, run); err != nil {
		slog.Warn("Failed to cache run", "kind", run.Kind, "error", err)
	}
}

// optimizeKey extends the series fingerprint with the requested reductions.
func optimizeKey(series model.Series, reductions []model.Reduction) string {
	h := sha256.New()
	_, _ = h.Write([]byte(series.Fingerprint()))
	for _, r := range reductions {
		_, _ = h.Write([]byte{'|'})
		_, _ = h.Write([]byte(r.Regressor))
		_, _ = h.Write([]byte{'='})
		_, _ = h.Write([]byte(strconv.FormatFloat(r.ReductionPct, 'g', -1, 64)))
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
