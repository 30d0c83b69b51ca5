package service

import (
	"sort"

	"github.com/Veraticus/carbonsync/internal/model"
	"github.com/Veraticus/carbonsync/internal/schema"
)

// NormalizeResponse is the canonical form of an uploaded table.
type NormalizeResponse struct {
	Summary        model.Summary         `json:"summary"`
	Message        string                `json:"message"`
	Data           model.Series          `json:"data"`
	Mapping        []model.ColumnMapping `json:"mapping"`
	MissingFields  []model.Field         `json:"missing_fields,omitempty"`
	Conflicts      []model.ColumnMapping `json:"conflicts,omitempty"`
	Imputed        map[model.Field]int   `json:"imputed,omitempty"`
	MergedRows     int                   `json:"merged_rows,omitempty"`
	SyntheticDates int                   `json:"synthetic_dates,omitempty"`
}

// ForecastRequest asks for a projection of a canonical series.
type ForecastRequest struct {
	// DatasetID links the stored run to a saved dataset. Optional.
	DatasetID     string       `json:"dataset_id,omitempty"`
	Series        model.Series `json:"series"`
	HorizonMonths int          `json:"horizon_months"`
}

// ForecastResponse is a projection together with the driver attribution.
type ForecastResponse struct {
	Model        string                `json:"model"`
	Forecast     []model.ForecastPoint `json:"forecast"`
	Impacts      model.Impacts         `json:"impacts"`
	Suggestions  []string              `json:"suggestions"`
	UsedFallback bool                  `json:"used_fallback"`
	Cached       bool                  `json:"cached,omitempty"`
}

// OptimizeRequest asks for a what-if simulation of driver reductions.
type OptimizeRequest struct {
	DatasetID     string            `json:"dataset_id,omitempty"`
	Series        model.Series      `json:"series"`
	Suggestions   []model.Reduction `json:"suggestions"`
	HorizonMonths int               `json:"horizon_months"`
}

// OptimizeResponse is the optimized projection and its savings.
type OptimizeResponse struct {
	model.OptimizationResult
	Cached bool `json:"cached,omitempty"`
}

// ColumnMappings converts resolver entries into their stored form, ordered
// by source column.
func ColumnMappings(entries []schema.Entry) []model.ColumnMapping {
	out := make([]model.ColumnMapping, len(entries))
	for i, e := range entries {
		out[i] = model.ColumnMapping{
			Position:    e.Column,
			SourceLabel: e.Label,
			Field:       e.Field,
			Unit:        string(e.Unit),
			Stage:       string(e.Stage),
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}
