package schema

import (
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/carbonsync/internal/model"
	"github.com/Veraticus/carbonsync/internal/table"
)

// Stage names the resolution step that produced a mapping entry.
type Stage string

// Resolution stages in the order they are attempted.
const (
	StageExact       Stage = "exact"
	StageAlias       Stage = "alias"
	StageFuzzy       Stage = "fuzzy"
	StageContentDate Stage = "content_date"
	StagePositional  Stage = "positional"
	StageForcedDate  Stage = "forced_date"
	// StageKeyword is used by the record normalizer for columns it picks up
	// by keyword after resolution.
	StageKeyword Stage = "keyword"
)

// Outcome is the result of running one stage.
type Outcome int

// Stage outcomes.
const (
	Unresolved Outcome = iota
	Resolved
)

// Entry maps one source column to a canonical field.
type Entry struct {
	Column int
	Label  string
	Field  model.Field
	Unit   Unit
	Stage  Stage
}

// Mapping is the column mapping built for one table.
type Mapping struct {
	Entries []Entry
	// Conflicts holds columns that matched a field already claimed by an
	// earlier column.
	Conflicts []Entry
}

// Empty reports whether no column was mapped.
func (m *Mapping) Empty() bool {
	return len(m.Entries) == 0
}

// Has reports whether field is mapped.
func (m *Mapping) Has(f model.Field) bool {
	_, ok := m.ForField(f)
	return ok
}

// ForField returns the entry mapped to field.
func (m *Mapping) ForField(f model.Field) (Entry, bool) {
	for _, e := range m.Entries {
		if e.Field == f {
			return e, true
		}
	}
	return Entry{}, false
}

// ForColumn returns the entry for a source column.
func (m *Mapping) ForColumn(col int) (Entry, bool) {
	for _, e := range m.Entries {
		if e.Column == col {
			return e, true
		}
	}
	return Entry{}, false
}

// Assign records a mapping. Columns already mapped are left alone and
// fields already claimed are recorded as conflicts.
func (m *Mapping) Assign(e Entry) Outcome {
	if _, taken := m.ForColumn(e.Column); taken {
		return Unresolved
	}
	if _, taken := m.ForField(e.Field); taken {
		m.Conflicts = append(m.Conflicts, e)
		return Unresolved
	}
	m.Entries = append(m.Entries, e)
	slog.Debug("Mapped column",
		"column", e.Column,
		"label", e.Label,
		"field", e.Field,
		"unit", e.Unit,
		"stage", e.Stage)
	return Resolved
}

func (m *Mapping) remove(col int) {
	kept := m.Entries[:0]
	for _, e := range m.Entries {
		if e.Column != col {
			kept = append(kept, e)
		}
	}
	m.Entries = kept
}

// DateProbe reports whether a single cell looks like a date.
type DateProbe func(v any) bool

// Resolver maps raw column labels to canonical fields.
type Resolver struct {
	aliases *AliasTable
	probe   DateProbe
}

// NewResolver creates a resolver. A nil probe disables content-based date
// detection.
func NewResolver(aliases *AliasTable, probe DateProbe) *Resolver {
	if aliases == nil {
		aliases = DefaultAliases()
	}
	return &Resolver{aliases: aliases, probe: probe}
}

type labelStage struct {
	run   func(label string) (Alias, bool)
	stage Stage
}

// Resolve builds the best mapping it can for t. It never fails; the result
// may be empty.
//
// The label stages (exact, alias, fuzzy) short-circuit: each runs only when
// every earlier one mapped nothing. Content-based date detection and the
// forced first-column date run whenever date is still unmapped; positional
// assignment runs only when no label stage mapped anything.
func (r *Resolver) Resolve(t *table.Table) *Mapping {
	m := &Mapping{}

	stages := []labelStage{
		{stage: StageExact, run: displayMatch},
		{stage: StageAlias, run: r.aliases.Exact},
		{stage: StageFuzzy, run: r.aliases.Fuzzy},
	}

	labelled := false
	for _, s := range stages {
		if r.runLabelStage(t, m, s) == Resolved {
			labelled = true
			break
		}
	}

	if !m.Has(model.FieldDate) {
		r.detectDateByContent(t, m)
	}
	if !labelled {
		// Column 0 is held back for the forced date when nothing else
		// claimed the date.
		r.assignByPosition(t, m, !m.Has(model.FieldDate))
	}
	if !m.Has(model.FieldDate) && len(t.Columns) > 0 {
		forceFirstColumnDate(t, m)
	}

	return m
}

func (r *Resolver) runLabelStage(t *table.Table, m *Mapping, s labelStage) Outcome {
	outcome := Unresolved
	for i, col := range t.Columns {
		if !col.HasLabel {
			continue
		}
		alias, ok := s.run(col.Label)
		if !ok {
			continue
		}
		entry := Entry{
			Column: i,
			Label:  col.Label,
			Field:  alias.Field,
			Unit:   UnitFromLabel(col.Label, alias.Field, alias.Unit),
			Stage:  s.stage,
		}
		if m.Assign(entry) == Resolved {
			outcome = Resolved
		}
	}
	return outcome
}

func (r *Resolver) detectDateByContent(t *table.Table, m *Mapping) Outcome {
	if r.probe == nil {
		return Unresolved
	}
	for i := range t.Columns {
		if _, mapped := m.ForColumn(i); mapped {
			continue
		}
		col := &t.Columns[i]
		first, ok := col.FirstValue()
		if !ok || !isDateCandidate(first) {
			continue
		}
		if r.probe(first) {
			return m.Assign(Entry{
				Column: i,
				Label:  col.Label,
				Field:  model.FieldDate,
				Unit:   UnitNative,
				Stage:  StageContentDate,
			})
		}
	}
	return Unresolved
}

// isDateCandidate limits content detection to text and native time values;
// plain numbers are treated as measurements.
func isDateCandidate(v any) bool {
	switch v.(type) {
	case string, time.Time:
		return true
	default:
		return false
	}
}

func (r *Resolver) assignByPosition(t *table.Table, m *Mapping, reserveFirst bool) Outcome {
	var fields []model.Field
	for _, f := range model.NumericFields {
		if !m.Has(f) {
			fields = append(fields, f)
		}
	}

	outcome := Unresolved
	next := 0
	for i, col := range t.Columns {
		if next >= len(fields) {
			break
		}
		if col.Kind != table.KindNumeric || (reserveFirst && i == 0) {
			continue
		}
		if _, mapped := m.ForColumn(i); mapped {
			continue
		}
		entry := Entry{
			Column: i,
			Label:  col.Label,
			Field:  fields[next],
			Unit:   UnitFromLabel(col.Label, fields[next], defaultUnit(fields[next])),
			Stage:  StagePositional,
		}
		if m.Assign(entry) == Resolved {
			outcome = Resolved
		}
		next++
	}
	return outcome
}

func forceFirstColumnDate(t *table.Table, m *Mapping) Outcome {
	m.remove(0)
	return m.Assign(Entry{
		Column: 0,
		Label:  t.Columns[0].Label,
		Field:  model.FieldDate,
		Unit:   UnitNative,
		Stage:  StageForcedDate,
	})
}

// displayMatch accepts a field's display name or its canonical identifier.
func displayMatch(label string) (Alias, bool) {
	key := normalizeLabel(label)
	for _, f := range model.AllFields {
		if normalizeLabel(f.DisplayName()) == key || string(f) == key {
			return Alias{Field: f, Unit: defaultUnit(f)}, true
		}
	}
	return Alias{}, false
}

// UnitFromLabel returns the unit an explicit token in label implies for
// field, or fallback when the label names none.
func UnitFromLabel(label string, field model.Field, fallback Unit) Unit {
	l := normalizeLabel(label)
	switch field {
	case model.FieldWaste:
		switch {
		case strings.Contains(l, "kg") || strings.Contains(l, "kilogram"):
			return UnitKilograms
		case strings.Contains(l, "ton") || strings.HasSuffix(l, "(t)"):
			return UnitTons
		}
	case model.FieldWater:
		switch {
		case strings.Contains(l, "m3") || strings.Contains(l, "m³") || strings.Contains(l, "cubic"):
			return UnitCubicMeters
		case strings.Contains(l, "liter") || strings.Contains(l, "litre") || strings.HasSuffix(l, "(l)"):
			return UnitLiters
		}
	default:
		return UnitNative
	}
	if fallback == "" {
		return defaultUnit(field)
	}
	return fallback
}

// normalizeLabel lower-cases a label, trims it and collapses runs of
// whitespace to a single space.
func normalizeLabel(label string) string {
	return strings.Join(strings.Fields(strings.ToLower(label)), " ")
}
