// Package testutil provides shared fixtures for carbonsync tests: series
// builders and an isolated in-memory store.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/carbonsync/internal/model"
	"github.com/Veraticus/carbonsync/internal/storage"
)

// TestDB represents a test database with associated test utilities.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
}

// SetupTestDB creates a new migrated in-memory database that is closed when
// the test ends.
//
// Example:
//
//	db := testutil.SetupTestDB(t)
//	ds := db.SeedDataset("plant-a", testutil.SeasonalSeries(24))
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		_ = store.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{
		Storage: store,
		t:       t,
	}
}

// SeedDataset saves series under name and returns the stored dataset.
func (db *TestDB) SeedDataset(name string, series model.Series) *model.Dataset {
	db.t.Helper()

	ds := &model.Dataset{Name: name, Source: name + ".csv"}
	if err := db.Storage.SaveDataset(context.Background(), ds, series, nil); err != nil {
		db.t.Fatalf("failed to seed dataset %q: %v", name, err)
	}
	return ds
}
