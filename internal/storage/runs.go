package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/carbonsync/internal/common"
	"github.com/Veraticus/carbonsync/internal/model"
)

// SaveRun stores a forecast or optimization result.
func (s *SQLiteStorage) SaveRun(ctx context.Context, run *model.ForecastRun) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRun(run); err != nil {
		return err
	}

	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	var datasetID sql.NullString
	if run.DatasetID != "" {
		datasetID = sql.NullString{String: run.DatasetID, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO forecast_runs (
			id, dataset_id, fingerprint, horizon, kind, model, used_fallback, payload, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		datasetID,
		run.Fingerprint,
		run.Horizon,
		string(run.Kind),
		run.Model,
		run.UsedFallback,
		run.Payload,
		run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save forecast run: %w", err)
	}
	return nil
}

// FindRun returns the most recent run for a series fingerprint, horizon and
// kind. It returns common.ErrNotFound when no such run exists.
func (s *SQLiteStorage) FindRun(ctx context.Context, fingerprint string, horizon int, kind model.RunKind) (*model.ForecastRun, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(fingerprint, "fingerprint"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, dataset_id, fingerprint, horizon, kind, model, used_fallback, payload, created_at
		FROM forecast_runs
		WHERE fingerprint = ? AND horizon = ? AND kind = ?
		ORDER BY created_at DESC
		LIMIT 1
	`, fingerprint, horizon, string(kind))

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s run for %s: %w", kind, fingerprint, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns the runs recorded against a dataset, newest first. An
// empty datasetID lists every run.
func (s *SQLiteStorage) ListRuns(ctx context.Context, datasetID string) ([]model.ForecastRun, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT id, dataset_id, fingerprint, horizon, kind, model, used_fallback, payload, created_at
		FROM forecast_runs
	`
	var args []any
	if datasetID != "" {
		query += ` WHERE dataset_id = ?`
		args = append(args, datasetID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query forecast runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []model.ForecastRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*model.ForecastRun, error) {
	var run model.ForecastRun
	var datasetID sql.NullString
	var kind string

	err := sc.Scan(
		&run.ID,
		&datasetID,
		&run.Fingerprint,
		&run.Horizon,
		&kind,
		&run.Model,
		&run.UsedFallback,
		&run.Payload,
		&run.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan forecast run: %w", err)
	}

	run.DatasetID = datasetID.String
	run.Kind = model.RunKind(kind)
	return &run, nil
}
