// Package service defines the request/response facade over the pipeline
// and the persistence contracts it depends on.
package service

import (
	"context"

	"github.com/Veraticus/carbonsync/internal/model"
)

// RunStore caches forecast and optimization results by series fingerprint.
type RunStore interface {
	SaveRun(ctx context.Context, run *model.ForecastRun) error
	FindRun(ctx context.Context, fingerprint string, horizon int, kind model.RunKind) (*model.ForecastRun, error)
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Dataset operations
	SaveDataset(ctx context.Context, ds *model.Dataset, series model.Series, mappings []model.ColumnMapping) error
	GetDataset(ctx context.Context, id string) (*model.Dataset, error)
	ListDatasets(ctx context.Context) ([]model.Dataset, error)
	GetSeries(ctx context.Context, datasetID string) (model.Series, error)
	GetMappings(ctx context.Context, datasetID string) ([]model.ColumnMapping, error)
	DeleteDataset(ctx context.Context, id string) error

	// Run operations
	RunStore
	ListRuns(ctx context.Context, datasetID string) ([]model.ForecastRun, error)

	// Database management
	Migrate(ctx context.Context) error
	SchemaVersion(ctx context.Context) (int, error)
	Close() error
}
