package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/Veraticus/carbonsync/internal/common"
	"github.com/Veraticus/carbonsync/internal/config"
	"github.com/Veraticus/carbonsync/internal/model"
	"github.com/Veraticus/carbonsync/internal/service"
	"github.com/Veraticus/carbonsync/internal/storage"
	"github.com/Veraticus/carbonsync/internal/table"
)

var _ service.Storage = (*storage.SQLiteStorage)(nil)

// Output formats accepted by --output.
const (
	outputTable = "table"
	outputJSON  = "json"
)

// session bundles what a pipeline command needs: the loaded configuration,
// the service and, when requested, the database.
type session struct {
	pipeline *config.Pipeline
	store    service.Storage
	svc      *service.Service
}

// openSession loads the configuration and builds the service. The database
// is opened when withStore is set or result caching is enabled.
func openSession(ctx context.Context, withStore bool) (*session, error) {
	p, err := config.Load()
	if err != nil {
		return nil, err
	}

	s := &session{pipeline: p}

	var opts []service.Option
	if withStore || p.Cache {
		store, err := initStorage(ctx, p.DatabasePath)
		if err != nil {
			return nil, err
		}
		s.store = store
		if p.Cache {
			opts = append(opts, service.WithRunStore(store))
		}
	}

	s.svc = service.FromPipeline(p, opts...)
	return s, nil
}

func (s *session) Close() {
	if s.store == nil {
		return
	}
	if err := s.store.Close(); err != nil {
		slog.Warn("Failed to close database", "error", err)
	}
}

// initStorage opens the database at dbPath and brings its schema up to date.
func initStorage(ctx context.Context, dbPath string) (service.Storage, error) {
	if dbPath == "" {
		dbPath = config.ExpandPath(config.DefaultDatabase)
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// expandInputs resolves glob patterns in args. A pattern without matches is
// kept as-is so that opening it reports the missing file.
func expandInputs(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		matches, err := filepath.Glob(arg)
		if err != nil {
			return nil, fmt.Errorf("%w: bad pattern %q: %w", common.ErrInvalidInput, arg, err)
		}
		if len(matches) == 0 {
			matches = []string{arg}
		}
		paths = append(paths, matches...)
	}
	return lo.Uniq(paths), nil
}

// loadSeries returns the canonical series named by exactly one of input and
// datasetID. Input files that are not in canonical form are normalized.
func loadSeries(ctx context.Context, s *session, input, datasetID string) (model.Series, error) {
	switch {
	case input != "" && datasetID != "":
		return nil, fmt.Errorf("%w: use either --input or --dataset, not both", common.ErrInvalidInput)
	case datasetID != "":
		return s.store.GetSeries(ctx, datasetID)
	case input == "":
		return nil, fmt.Errorf("%w: --input or --dataset is required", common.ErrInvalidInput)
	}

	if series, ok := readCanonical(input); ok {
		slog.Debug("Read canonical series", "path", input, "rows", len(series))
		return series, nil
	}

	t, err := table.ReadFile(input, table.ReadOptions{})
	if err != nil {
		return nil, err
	}
	resp, err := s.svc.Normalize(ctx, t)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// readCanonical reads a JSON file previously written by normalize --out.
func readCanonical(path string) (model.Series, bool) {
	if !strings.EqualFold(filepath.Ext(path), ".json") {
		return nil, false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	var doc struct {
		Data model.Series `json:"data"`
	}
	if err := json.Unmarshal(data, &doc); err != nil || len(doc.Data) == 0 {
		return nil, false
	}
	return doc.Data, true
}

// parseReductions parses repeated driver=pct flags.
func parseReductions(args []string) ([]model.Reduction, error) {
	reductions := make([]model.Reduction, 0, len(args))
	for _, arg := range args {
		name, pct, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("%w: reduction %q must look like driver=percent", common.ErrInvalidInput, arg)
		}

		field, err := model.ParseField(strings.TrimSpace(name))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrInvalidInput, err)
		}

		value, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(pct), "%"), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: reduction %q has a bad percentage", common.ErrInvalidInput, arg)
		}

		reductions = append(reductions, model.Reduction{Regressor: field, ReductionPct: value})
	}
	return reductions, nil
}

func validateOutput(format string) error {
	switch format {
	case outputTable, outputJSON:
		return nil
	default:
		return fmt.Errorf("%w: --output must be %q or %q", common.ErrInvalidInput, outputTable, outputJSON)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeJSONFile writes v to path, creating parent directories.
func writeJSONFile(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	f, err := os.Create(path) //nolint:gosec // path comes from the user's own flag
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := writeJSON(f, v); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
