package schema

import (
	"strings"
	"testing"

	"github.com/Veraticus/carbonsync/internal/model"
	"github.com/Veraticus/carbonsync/internal/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTable(t *testing.T, rows [][]string) *table.Table {
	t.Helper()
	tbl, err := table.FromStringRows(rows)
	require.NoError(t, err)
	return tbl
}

// looksLikeISODate is a stand-in probe so the resolver can be tested
// without the date normalizer.
func looksLikeISODate(v any) bool {
	s, ok := v.(string)
	return ok && len(s) == 10 && strings.Count(s, "-") == 2
}

func TestResolver_DisplayNames(t *testing.T) {
	tbl := mustTable(t, [][]string{
		{"Date", "Energy_Use (kWh)", "waste (tons)", "water (liters)", "emissions (tons CO2e)"},
		{"2023-01-01", "5000", "2", "5000", "12"},
	})

	m := NewResolver(nil, looksLikeISODate).Resolve(tbl)

	require.Len(t, m.Entries, 5)
	for _, e := range m.Entries {
		assert.Equal(t, StageExact, e.Stage, "column %q", e.Label)
	}

	waste, ok := m.ForField(model.FieldWaste)
	require.True(t, ok)
	assert.Equal(t, 2, waste.Column)
	assert.Equal(t, UnitTons, waste.Unit)

	water, ok := m.ForField(model.FieldWater)
	require.True(t, ok)
	assert.Equal(t, UnitLiters, water.Unit)
}

func TestResolver_CanonicalNamesKeepCanonicalUnits(t *testing.T) {
	tbl := mustTable(t, [][]string{
		{"date", "waste_kg", "water_m3", "emissions_co2e"},
		{"2023-01-01", "2000", "5", "12"},
	})

	m := NewResolver(nil, nil).Resolve(tbl)

	require.Len(t, m.Entries, 4)
	waste, ok := m.ForField(model.FieldWaste)
	require.True(t, ok)
	assert.Equal(t, StageExact, waste.Stage)
	assert.Equal(t, UnitKilograms, waste.Unit)

	water, ok := m.ForField(model.FieldWater)
	require.True(t, ok)
	assert.Equal(t, UnitCubicMeters, water.Unit)
}

func TestResolver_LabelStagesShortCircuit(t *testing.T) {
	// "emissions (tons CO2e)" resolves in the exact stage, so the alias
	// "fuel" column is never looked at.
	tbl := mustTable(t, [][]string{
		{"emissions (tons CO2e)", "fuel", "when"},
		{"12", "100", "2023-01-01"},
	})

	m := NewResolver(nil, looksLikeISODate).Resolve(tbl)

	assert.True(t, m.Has(model.FieldEmissions))
	assert.False(t, m.Has(model.FieldFuel))

	date, ok := m.ForField(model.FieldDate)
	require.True(t, ok)
	assert.Equal(t, StageContentDate, date.Stage)
	assert.Equal(t, 2, date.Column)
}

func TestResolver_Fuzzy(t *testing.T) {
	tbl := mustTable(t, [][]string{
		{"Reporting Period", "Electricity Used (kWh)", "Total CO2 Output"},
		{"2023-01-01", "5000", "12"},
	})

	m := NewResolver(nil, nil).Resolve(tbl)

	tests := []struct {
		field  model.Field
		column int
	}{
		{model.FieldDate, 0},
		{model.FieldEnergy, 1},
		{model.FieldEmissions, 2},
	}
	for _, tt := range tests {
		t.Run(string(tt.field), func(t *testing.T) {
			e, ok := m.ForField(tt.field)
			require.True(t, ok)
			assert.Equal(t, tt.column, e.Column)
			assert.Equal(t, StageFuzzy, e.Stage)
		})
	}
}

func TestResolver_ShortLabelsDoNotFuzzyMatch(t *testing.T) {
	alias, ok := DefaultAliases().Fuzzy("products shipped")
	require.True(t, ok)
	assert.Equal(t, model.FieldProduction, alias.Field)

	_, ok = DefaultAliases().Fuzzy("zz")
	assert.False(t, ok)
}

func TestResolver_PositionalFallback(t *testing.T) {
	tbl := mustTable(t, [][]string{
		{"col_a", "col_b", "col_c", "col_d"},
		{"2023-01-01", "5000", "20000", "1.5"},
		{"2023-02-01", "5100", "21000", "1.6"},
	})

	m := NewResolver(nil, looksLikeISODate).Resolve(tbl)

	date, ok := m.ForField(model.FieldDate)
	require.True(t, ok)
	assert.Equal(t, 0, date.Column)
	assert.Equal(t, StageContentDate, date.Stage)

	want := map[model.Field]int{
		model.FieldEnergy:    1,
		model.FieldTransport: 2,
		model.FieldWaste:     3,
	}
	for field, col := range want {
		e, ok := m.ForField(field)
		require.True(t, ok, "field %s", field)
		assert.Equal(t, col, e.Column)
		assert.Equal(t, StagePositional, e.Stage)
	}
}

func TestResolver_ForcedFirstColumn(t *testing.T) {
	tbl := mustTable(t, [][]string{
		{"a", "b"},
		{"20230101", "5"},
	})

	m := NewResolver(nil, looksLikeISODate).Resolve(tbl)

	date, ok := m.ForField(model.FieldDate)
	require.True(t, ok)
	assert.Equal(t, 0, date.Column)
	assert.Equal(t, StageForcedDate, date.Stage)

	energy, ok := m.ForField(model.FieldEnergy)
	require.True(t, ok)
	assert.Equal(t, 1, energy.Column)
}

func TestResolver_ConflictsFirstWins(t *testing.T) {
	tbl := mustTable(t, [][]string{
		{"ds", "energy", "electricity"},
		{"2023-01-01", "1", "2"},
	})

	m := NewResolver(nil, nil).Resolve(tbl)

	energy, ok := m.ForField(model.FieldEnergy)
	require.True(t, ok)
	assert.Equal(t, 1, energy.Column)
	require.Len(t, m.Conflicts, 1)
	assert.Equal(t, 2, m.Conflicts[0].Column)
}

func TestResolver_CustomAliases(t *testing.T) {
	aliases := DefaultAliases().Extend([]Alias{
		{Pattern: "Scope 2 kWh", Field: model.FieldEnergy},
	})
	tbl := mustTable(t, [][]string{
		{"period", "scope 2 kwh"},
		{"2023-01-01", "1"},
	})

	m := NewResolver(aliases, nil).Resolve(tbl)

	e, ok := m.ForField(model.FieldEnergy)
	require.True(t, ok)
	assert.Equal(t, StageAlias, e.Stage)
}

func TestUnitFromLabel(t *testing.T) {
	tests := []struct {
		name     string
		label    string
		field    model.Field
		fallback Unit
		want     Unit
	}{
		{"waste kg token", "Waste KG", model.FieldWaste, UnitTons, UnitKilograms},
		{"waste tonnes", "waste tonnes", model.FieldWaste, UnitKilograms, UnitTons},
		{"water cubic meters", "water m³", model.FieldWater, UnitLiters, UnitCubicMeters},
		{"water litres", "water litres", model.FieldWater, UnitCubicMeters, UnitLiters},
		{"water no token", "h2o", model.FieldWater, UnitLiters, UnitLiters},
		{"energy always native", "energy kg", model.FieldEnergy, UnitNative, UnitNative},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UnitFromLabel(tt.label, tt.field, tt.fallback))
		})
	}
}

func TestParseUnit(t *testing.T) {
	u, err := ParseUnit("Tons")
	require.NoError(t, err)
	assert.Equal(t, UnitTons, u)

	_, err = ParseUnit("furlongs")
	assert.Error(t, err)
}
