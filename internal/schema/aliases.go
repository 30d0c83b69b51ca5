// Package schema maps the columns of a raw table onto the canonical fields.
package schema

import (
	"fmt"
	"strings"

	"github.com/Veraticus/carbonsync/internal/model"
)

// Unit is the measurement unit a source column implies.
type Unit string

// Units that require conversion downstream. Every other field passes
// through unchanged and is tagged UnitNative.
const (
	UnitNative      Unit = "native"
	UnitTons        Unit = "tons"
	UnitKilograms   Unit = "kg"
	UnitLiters      Unit = "liters"
	UnitCubicMeters Unit = "m3"
)

// ParseUnit accepts the unit names used in alias files.
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "native":
		return UnitNative, nil
	case "tons", "ton", "t":
		return UnitTons, nil
	case "kg", "kilograms":
		return UnitKilograms, nil
	case "liters", "litres", "l":
		return UnitLiters, nil
	case "m3", "m³", "cubic_meters":
		return UnitCubicMeters, nil
	default:
		return "", fmt.Errorf("unknown unit %q", s)
	}
}

// Alias maps one lower-case column label pattern to a canonical field.
type Alias struct {
	Pattern string
	Field   model.Field
	Unit    Unit
}

// AliasTable is an ordered, read-only list of alias rules. Earlier entries
// win ties.
type AliasTable struct {
	rules []Alias
}

// NewAliasTable copies rules into a table, normalizing patterns.
func NewAliasTable(rules []Alias) *AliasTable {
	out := make([]Alias, len(rules))
	for i, r := range rules {
		r.Pattern = normalizeLabel(r.Pattern)
		if r.Unit == "" {
			r.Unit = defaultUnit(r.Field)
		}
		out[i] = r
	}
	return &AliasTable{rules: out}
}

// Extend returns a new table with extra rules appended after the receiver's.
func (t *AliasTable) Extend(extra []Alias) *AliasTable {
	rules := make([]Alias, 0, len(t.rules)+len(extra))
	rules = append(rules, t.rules...)
	rules = append(rules, extra...)
	return NewAliasTable(rules)
}

// Rules returns a copy of the rules in table order.
func (t *AliasTable) Rules() []Alias {
	out := make([]Alias, len(t.rules))
	copy(out, t.rules)
	return out
}

// Len returns the number of rules.
func (t *AliasTable) Len() int {
	return len(t.rules)
}

// Exact returns the first rule whose pattern equals label.
func (t *AliasTable) Exact(label string) (Alias, bool) {
	key := normalizeLabel(label)
	for _, r := range t.rules {
		if r.Pattern == key {
			return r, true
		}
	}
	return Alias{}, false
}

// minFuzzyLen keeps short aliases such as "ds" or "km" from matching inside
// unrelated labels ("products", "kms driven").
const minFuzzyLen = 3

// Fuzzy returns the first rule whose pattern contains label or is contained
// in it. Patterns and labels shorter than minFuzzyLen only match exactly.
func (t *AliasTable) Fuzzy(label string) (Alias, bool) {
	key := normalizeLabel(label)
	if key == "" {
		return Alias{}, false
	}
	for _, r := range t.rules {
		if len(r.Pattern) < minFuzzyLen || len(key) < minFuzzyLen {
			continue
		}
		if strings.Contains(key, r.Pattern) || strings.Contains(r.Pattern, key) {
			return r, true
		}
	}
	return Alias{}, false
}

func defaultUnit(f model.Field) Unit {
	switch f {
	case model.FieldWaste:
		return UnitTons
	case model.FieldWater:
		return UnitLiters
	default:
		return UnitNative
	}
}

// DefaultAliases returns the built-in alias table.
func DefaultAliases() *AliasTable {
	return NewAliasTable(defaultRules)
}

var defaultRules = []Alias{
	{Pattern: "ds", Field: model.FieldDate},
	{Pattern: "date", Field: model.FieldDate},
	{Pattern: "datetime", Field: model.FieldDate},
	{Pattern: "time", Field: model.FieldDate},
	{Pattern: "period", Field: model.FieldDate},
	{Pattern: "month", Field: model.FieldDate},
	{Pattern: "year", Field: model.FieldDate},

	{Pattern: "energy_kwh", Field: model.FieldEnergy},
	{Pattern: "energy_use", Field: model.FieldEnergy},
	{Pattern: "energy", Field: model.FieldEnergy},
	{Pattern: "electricity", Field: model.FieldEnergy},
	{Pattern: "power", Field: model.FieldEnergy},
	{Pattern: "kwh", Field: model.FieldEnergy},
	{Pattern: "energy (kwh)", Field: model.FieldEnergy},
	{Pattern: "energy_use_kwh", Field: model.FieldEnergy},
	{Pattern: "energy_use(kwh)", Field: model.FieldEnergy},

	{Pattern: "transport_km", Field: model.FieldTransport},
	{Pattern: "transport", Field: model.FieldTransport},
	{Pattern: "travel", Field: model.FieldTransport},
	{Pattern: "distance", Field: model.FieldTransport},
	{Pattern: "km", Field: model.FieldTransport},
	{Pattern: "miles", Field: model.FieldTransport},
	{Pattern: "transportation", Field: model.FieldTransport},
	{Pattern: "transport (km)", Field: model.FieldTransport},
	{Pattern: "transport(km)", Field: model.FieldTransport},

	{Pattern: "waste_kg", Field: model.FieldWaste, Unit: UnitKilograms},
	{Pattern: "waste", Field: model.FieldWaste, Unit: UnitTons},
	{Pattern: "garbage", Field: model.FieldWaste, Unit: UnitTons},
	{Pattern: "trash", Field: model.FieldWaste, Unit: UnitTons},
	{Pattern: "waste (kg)", Field: model.FieldWaste, Unit: UnitKilograms},
	{Pattern: "waste (tons)", Field: model.FieldWaste, Unit: UnitTons},
	{Pattern: "waste(tons)", Field: model.FieldWaste, Unit: UnitTons},

	{Pattern: "water_m3", Field: model.FieldWater, Unit: UnitCubicMeters},
	{Pattern: "water", Field: model.FieldWater, Unit: UnitLiters},
	{Pattern: "h2o", Field: model.FieldWater, Unit: UnitLiters},
	{Pattern: "water_usage", Field: model.FieldWater, Unit: UnitLiters},
	{Pattern: "water_consumption", Field: model.FieldWater, Unit: UnitLiters},
	{Pattern: "water (liters)", Field: model.FieldWater, Unit: UnitLiters},
	{Pattern: "water (m3)", Field: model.FieldWater, Unit: UnitCubicMeters},
	{Pattern: "water(liters)", Field: model.FieldWater, Unit: UnitLiters},

	{Pattern: "fuel_l", Field: model.FieldFuel},
	{Pattern: "fuel", Field: model.FieldFuel},
	{Pattern: "gas", Field: model.FieldFuel},
	{Pattern: "gasoline", Field: model.FieldFuel},
	{Pattern: "diesel", Field: model.FieldFuel},
	{Pattern: "petrol", Field: model.FieldFuel},
	{Pattern: "fuel (liters)", Field: model.FieldFuel},
	{Pattern: "fuel (l)", Field: model.FieldFuel},
	{Pattern: "fuel(liters)", Field: model.FieldFuel},

	{Pattern: "y", Field: model.FieldEmissions},
	{Pattern: "emissions_co2e", Field: model.FieldEmissions},
	{Pattern: "emissions", Field: model.FieldEmissions},
	{Pattern: "co2", Field: model.FieldEmissions},
	{Pattern: "co2e", Field: model.FieldEmissions},
	{Pattern: "carbon", Field: model.FieldEmissions},
	{Pattern: "ghg", Field: model.FieldEmissions},
	{Pattern: "greenhouse_gas", Field: model.FieldEmissions},
	{Pattern: "emissions (tons)", Field: model.FieldEmissions},
	{Pattern: "emissions (tons co2e)", Field: model.FieldEmissions},
	{Pattern: "emissions(tons co2e)", Field: model.FieldEmissions},
	{Pattern: "carbon_emissions", Field: model.FieldEmissions},

	{Pattern: "production_units", Field: model.FieldProduction},
	{Pattern: "production", Field: model.FieldProduction},
	{Pattern: "units", Field: model.FieldProduction},
	{Pattern: "output", Field: model.FieldProduction},
	{Pattern: "products", Field: model.FieldProduction},
	{Pattern: "production (units)", Field: model.FieldProduction},
	{Pattern: "production(units)", Field: model.FieldProduction},

	{Pattern: "grid_intensity", Field: model.FieldGridIntensity},
	{Pattern: "grid", Field: model.FieldGridIntensity},
	{Pattern: "intensity", Field: model.FieldGridIntensity},
	{Pattern: "carbon_intensity", Field: model.FieldGridIntensity},
	{Pattern: "grid_carbon", Field: model.FieldGridIntensity},
	{Pattern: "grid_intensity (kg co2e/kwh)", Field: model.FieldGridIntensity},
	{Pattern: "grid_intensity(kg co2e/kwh)", Field: model.FieldGridIntensity},
}
