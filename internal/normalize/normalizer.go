// Package normalize turns a raw table into the canonical emissions series.
package normalize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/carbonsync/internal/common"
	"github.com/Veraticus/carbonsync/internal/dates"
	"github.com/Veraticus/carbonsync/internal/model"
	"github.com/Veraticus/carbonsync/internal/schema"
	"github.com/Veraticus/carbonsync/internal/table"
)

// AllMissingColumnError is returned when a mapped column holds no numeric
// value at all, so it cannot be imputed.
type AllMissingColumnError struct {
	Column string
	Field  model.Field
}

func (e *AllMissingColumnError) Error() string {
	return fmt.Sprintf("column %q mapped to %s has no numeric values", e.Column, e.Field)
}

func (e *AllMissingColumnError) Unwrap() error {
	return common.ErrAllMissingColumn
}

// Result is a normalized table.
type Result struct {
	Records model.Series
	Summary model.Summary
	Mapping *schema.Mapping
	// MissingFields lists numeric fields no column supplied; they are
	// zero-filled.
	MissingFields []model.Field
	// Imputed counts the cells filled with their column mean, per field.
	Imputed        map[model.Field]int
	MergedRows     int
	SyntheticDates int
}

// Normalizer resolves, repairs and converts raw tables.
type Normalizer struct {
	resolver *schema.Resolver
	dates    *dates.Normalizer
}

// New creates a normalizer from an alias table and a date layout list.
// Either may be nil to use the defaults.
func New(aliases *schema.AliasTable, formats *dates.Formats) *Normalizer {
	dn := dates.NewNormalizer(formats)
	return &Normalizer{
		resolver: schema.NewResolver(aliases, dn.Probe),
		dates:    dn,
	}
}

var fieldKeywords = []struct {
	field    model.Field
	keywords []string
}{
	{model.FieldEnergy, []string{"energy"}},
	{model.FieldTransport, []string{"transport"}},
	{model.FieldWaste, []string{"waste"}},
	{model.FieldWater, []string{"water"}},
	{model.FieldFuel, []string{"fuel"}},
	{model.FieldEmissions, []string{"emission", "co2"}},
	{model.FieldProduction, []string{"production"}},
	{model.FieldGridIntensity, []string{"grid", "intensity"}},
}

// Normalize maps t onto canonical records. The table is not modified.
func (n *Normalizer) Normalize(ctx context.Context, t *table.Table) (*Result, error) {
	if ctx == nil {
		return nil, fmt.Errorf("%w: context cannot be nil", common.ErrInvalidInput)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if t == nil || len(t.Columns) == 0 {
		return nil, fmt.Errorf("%w: table has no columns", common.ErrSchema)
	}
	rows := t.Rows()
	if rows == 0 {
		return nil, common.ErrEmptyTable
	}

	mapping := n.resolver.Resolve(t)
	if mapping.Empty() {
		return nil, fmt.Errorf("%w: none of the columns %q could be mapped", common.ErrSchema, t.Labels())
	}
	dateEntry, ok := mapping.ForField(model.FieldDate)
	if !ok {
		return nil, fmt.Errorf("%w: no column could be used as the date", common.ErrSchema)
	}
	addKeywordMatches(t, mapping)

	dateValues := make([]any, rows)
	for i := range dateValues {
		dateValues[i] = t.Value(dateEntry.Column, i)
	}
	dateRes := n.dates.Normalize(dateValues)

	records := make(model.Series, rows)
	for i := range records {
		records[i].Date = dateRes.Dates[i]
	}

	res := &Result{
		Mapping:        mapping,
		Imputed:        make(map[model.Field]int),
		SyntheticDates: dateRes.Synthetic,
	}

	for _, f := range model.NumericFields {
		entry, ok := mapping.ForField(f)
		if !ok {
			res.MissingFields = append(res.MissingFields, f)
			continue
		}
		values, imputed, err := numericColumn(t, entry, rows)
		if err != nil {
			return nil, err
		}
		for i, v := range values {
			records[i].Set(f, v)
		}
		if imputed > 0 {
			res.Imputed[f] = imputed
		}
	}

	records.Sort()
	merged := mergeDuplicateDates(records)
	res.Records = merged
	res.MergedRows = len(records) - len(merged)
	res.Summary = Summarize(merged)

	slog.Info("Normalized table",
		"source", t.Source,
		"rows", len(merged),
		"mapped_columns", len(mapping.Entries),
		"missing_fields", len(res.MissingFields),
		"merged_rows", res.MergedRows,
		"synthetic_dates", res.SyntheticDates)

	return res, nil
}

// addKeywordMatches maps still-missing numeric fields to unmapped columns
// whose label contains one of the field's keywords.
func addKeywordMatches(t *table.Table, m *schema.Mapping) {
	for _, fk := range fieldKeywords {
		if m.Has(fk.field) {
			continue
		}
	columns:
		for i, col := range t.Columns {
			if !col.HasLabel {
				continue
			}
			if _, mapped := m.ForColumn(i); mapped {
				continue
			}
			label := strings.ToLower(col.Label)
			for _, kw := range fk.keywords {
				if strings.Contains(label, kw) {
					m.Assign(schema.Entry{
						Column: i,
						Label:  col.Label,
						Field:  fk.field,
						Unit:   schema.UnitFromLabel(col.Label, fk.field, ""),
						Stage:  schema.StageKeyword,
					})
					break columns
				}
			}
		}
	}
}

// numericColumn coerces, converts and mean-imputes one mapped column.
func numericColumn(t *table.Table, e schema.Entry, rows int) ([]float64, int, error) {
	values := make([]float64, rows)
	present := make([]bool, rows)
	var sum float64
	count := 0

	for i := 0; i < rows; i++ {
		v, ok := table.ToFloat(t.Value(e.Column, i))
		if !ok {
			continue
		}
		values[i] = ToCanonical(v, e.Unit)
		present[i] = true
		sum += values[i]
		count++
	}

	if count == 0 {
		return nil, 0, &AllMissingColumnError{Column: e.Label, Field: e.Field}
	}

	mean := sum / float64(count)
	imputed := 0
	for i := range values {
		if !present[i] {
			values[i] = mean
			imputed++
		}
	}
	return values, imputed, nil
}

// mergeDuplicateDates collapses runs of equal dates in a sorted series into
// one record holding the average of every numeric field.
func mergeDuplicateDates(s model.Series) model.Series {
	out := make(model.Series, 0, len(s))
	for start := 0; start < len(s); {
		end := start + 1
		for end < len(s) && s[end].Date.Equal(s[start].Date) {
			end++
		}
		rec := model.Record{Date: s[start].Date}
		n := float64(end - start)
		for _, f := range model.NumericFields {
			var sum float64
			for _, r := range s[start:end] {
				sum += r.Value(f)
			}
			rec.Set(f, sum/n)
		}
		out = append(out, rec)
		start = end
	}
	return out
}
