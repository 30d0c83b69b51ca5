package model

import "time"

// Dataset is a normalized series saved under a name.
type Dataset struct {
	CreatedAt   time.Time `json:"created_at"`
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Source      string    `json:"source"`
	Fingerprint string    `json:"fingerprint"`
	RowCount    int       `json:"row_count"`
}

// ColumnMapping records how one source column of a dataset was mapped.
type ColumnMapping struct {
	SourceLabel string `json:"source_label"`
	Field       Field  `json:"field"`
	Unit        string `json:"unit"`
	Stage       string `json:"stage"`
	Position    int    `json:"position"`
}

// RunKind distinguishes stored forecast runs from optimization runs.
type RunKind string

// Run kinds.
const (
	RunForecast RunKind = "forecast"
	RunOptimize RunKind = "optimize"
)

// ForecastRun is a stored forecasting or optimization result. Payload is the
// JSON-encoded response.
type ForecastRun struct {
	CreatedAt    time.Time `json:"created_at"`
	ID           string    `json:"id"`
	DatasetID    string    `json:"dataset_id,omitempty"`
	Fingerprint  string    `json:"fingerprint"`
	Kind         RunKind   `json:"kind"`
	Model        string    `json:"model"`
	Payload      []byte    `json:"-"`
	Horizon      int       `json:"horizon"`
	UsedFallback bool      `json:"used_fallback"`
}
