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

// SaveDataset stores a normalized series together with the column mappings
// that produced it. A missing ID is generated; CreatedAt, Fingerprint and
// RowCount are filled in on ds.
func (s *SQLiteStorage) SaveDataset(ctx context.Context, ds *model.Dataset, series model.Series, mappings []model.ColumnMapping) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateDataset(ds, series); err != nil {
		return err
	}

	if ds.ID == "" {
		ds.ID = uuid.NewString()
	}
	ds.Fingerprint = series.Fingerprint()
	ds.RowCount = len(series)
	if ds.CreatedAt.IsZero() {
		ds.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO datasets (id, name, source, fingerprint, row_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, ds.ID, ds.Name, ds.Source, ds.Fingerprint, ds.RowCount, ds.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert dataset: %w", err)
	}

	if err := s.saveRecordsTx(ctx, tx, ds.ID, series); err != nil {
		return err
	}
	if err := s.saveMappingsTx(ctx, tx, ds.ID, mappings); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *SQLiteStorage) saveRecordsTx(ctx context.Context, tx *sql.Tx, datasetID string, series model.Series) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (
			dataset_id, date, energy_kwh, transport_km, waste_kg, water_m3,
			fuel_l, emissions_co2e, production_units, grid_intensity
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range series {
		_, err = stmt.ExecContext(ctx,
			datasetID,
			r.Date.Format(model.DateLayout),
			r.EnergyKWh,
			r.TransportKM,
			r.WasteKG,
			r.WaterM3,
			r.FuelL,
			r.EmissionsCO2e,
			r.ProductionUnits,
			r.GridIntensity,
		)
		if err != nil {
			return fmt.Errorf("failed to insert record %s: %w", r.Date.Format(model.DateLayout), err)
		}
	}
	return nil
}

func (s *SQLiteStorage) saveMappingsTx(ctx context.Context, tx *sql.Tx, datasetID string, mappings []model.ColumnMapping) error {
	for _, m := range mappings {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO column_mappings (dataset_id, position, source_label, field, unit, stage)
			VALUES (?, ?, ?, ?, ?, ?)
		`, datasetID, m.Position, m.SourceLabel, string(m.Field), m.Unit, m.Stage)
		if err != nil {
			return fmt.Errorf("failed to insert mapping for column %d: %w", m.Position, err)
		}
	}
	return nil
}

// GetDataset retrieves a dataset's metadata by ID.
func (s *SQLiteStorage) GetDataset(ctx context.Context, id string) (*model.Dataset, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	return s.getDatasetTx(ctx, s.db, id)
}

func (s *SQLiteStorage) getDatasetTx(ctx context.Context, q queryable, id string) (*model.Dataset, error) {
	var ds model.Dataset
	var source sql.NullString

	err := q.QueryRowContext(ctx, `
		SELECT id, name, source, fingerprint, row_count, created_at
		FROM datasets
		WHERE id = ?
	`, id).Scan(&ds.ID, &ds.Name, &source, &ds.Fingerprint, &ds.RowCount, &ds.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("dataset %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dataset: %w", err)
	}
	ds.Source = source.String

	return &ds, nil
}

// ListDatasets returns all datasets, newest first.
func (s *SQLiteStorage) ListDatasets(ctx context.Context) ([]model.Dataset, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, source, fingerprint, row_count, created_at
		FROM datasets
		ORDER BY created_at DESC, name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query datasets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var datasets []model.Dataset
	for rows.Next() {
		var ds model.Dataset
		var source sql.NullString
		if err := rows.Scan(&ds.ID, &ds.Name, &source, &ds.Fingerprint, &ds.RowCount, &ds.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan dataset: %w", err)
		}
		ds.Source = source.String
		datasets = append(datasets, ds)
	}

	return datasets, rows.Err()
}

// GetSeries returns the records of a dataset in ascending date order.
func (s *SQLiteStorage) GetSeries(ctx context.Context, datasetID string) (model.Series, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(datasetID, "datasetID"); err != nil {
		return nil, err
	}

	if _, err := s.getDatasetTx(ctx, s.db, datasetID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT date, energy_kwh, transport_km, waste_kg, water_m3,
		       fuel_l, emissions_co2e, production_units, grid_intensity
		FROM records
		WHERE dataset_id = ?
		ORDER BY date
	`, datasetID)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var series model.Series
	for rows.Next() {
		var r model.Record
		var date string
		err := rows.Scan(
			&date,
			&r.EnergyKWh,
			&r.TransportKM,
			&r.WasteKG,
			&r.WaterM3,
			&r.FuelL,
			&r.EmissionsCO2e,
			&r.ProductionUnits,
			&r.GridIntensity,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		r.Date, err = time.Parse(model.DateLayout, date)
		if err != nil {
			return nil, fmt.Errorf("%w: record date %q", common.ErrDatabaseCorrupted, date)
		}
		series = append(series, r)
	}

	return series, rows.Err()
}

// GetMappings returns the column mappings stored with a dataset, ordered by
// source column position.
func (s *SQLiteStorage) GetMappings(ctx context.Context, datasetID string) ([]model.ColumnMapping, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(datasetID, "datasetID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT position, source_label, field, unit, stage
		FROM column_mappings
		WHERE dataset_id = ?
		ORDER BY position
	`, datasetID)
	if err != nil {
		return nil, fmt.Errorf("failed to query mappings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var mappings []model.ColumnMapping
	for rows.Next() {
		var m model.ColumnMapping
		var label sql.NullString
		var field string
		if err := rows.Scan(&m.Position, &label, &field, &m.Unit, &m.Stage); err != nil {
			return nil, fmt.Errorf("failed to scan mapping: %w", err)
		}
		m.SourceLabel = label.String
		m.Field = model.Field(field)
		mappings = append(mappings, m)
	}

	return mappings, rows.Err()
}

// DeleteDataset removes a dataset with its records, mappings and runs.
func (s *SQLiteStorage) DeleteDataset(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `DELETE FROM datasets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete dataset: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("dataset %s: %w", id, common.ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM forecast_runs WHERE dataset_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete forecast runs: %w", err)
	}

	return tx.Commit()
}
