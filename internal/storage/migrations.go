package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS datasets (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL,
					source TEXT,
					fingerprint TEXT NOT NULL,
					row_count INTEGER NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_datasets_name ON datasets(name)`,

				`CREATE TABLE IF NOT EXISTS records (
					dataset_id TEXT NOT NULL,
					date TEXT NOT NULL,
					energy_kwh REAL NOT NULL,
					transport_km REAL NOT NULL,
					waste_kg REAL NOT NULL,
					water_m3 REAL NOT NULL,
					fuel_l REAL NOT NULL,
					emissions_co2e REAL NOT NULL,
					production_units REAL NOT NULL,
					grid_intensity REAL NOT NULL,
					PRIMARY KEY (dataset_id, date),
					FOREIGN KEY (dataset_id) REFERENCES datasets(id) ON DELETE CASCADE
				)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Record column mappings per dataset",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS column_mappings (
					dataset_id TEXT NOT NULL,
					position INTEGER NOT NULL,
					source_label TEXT,
					field TEXT NOT NULL,
					unit TEXT NOT NULL,
					stage TEXT NOT NULL,
					PRIMARY KEY (dataset_id, position),
					FOREIGN KEY (dataset_id) REFERENCES datasets(id) ON DELETE CASCADE
				)
			`)
			if err != nil {
				return fmt.Errorf("failed to create column_mappings table: %w", err)
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Add forecast runs",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS forecast_runs (
					id TEXT PRIMARY KEY,
					dataset_id TEXT,
					fingerprint TEXT NOT NULL,
					horizon INTEGER NOT NULL,
					kind TEXT NOT NULL,
					model TEXT NOT NULL,
					used_fallback BOOLEAN NOT NULL DEFAULT 0,
					payload BLOB NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_forecast_runs_lookup ON forecast_runs(fingerprint, horizon, kind)`,
				`CREATE INDEX idx_forecast_runs_dataset ON forecast_runs(dataset_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}

// SchemaVersion returns the database's current schema version.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}
