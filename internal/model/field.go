// Package model defines the canonical records and result types that flow
// through the normalization, forecasting and optimization pipeline.
package model

import (
	"fmt"
	"strings"
)

// Field identifies one of the nine canonical series columns.
type Field string

// Canonical fields.
const (
	FieldDate            Field = "date"
	FieldEnergy          Field = "energy_kwh"
	FieldTransport       Field = "transport_km"
	FieldWaste           Field = "waste_kg"
	FieldWater           Field = "water_m3"
	FieldFuel            Field = "fuel_l"
	FieldEmissions       Field = "emissions_co2e"
	FieldProduction      Field = "production_units"
	FieldGridIntensity   Field = "grid_intensity"
	TargetField                = FieldEmissions
	emissionsShortAlias        = "y"
)

// NumericFields lists the eight numeric canonical fields in canonical order.
// Positional column assignment relies on this order.
var NumericFields = []Field{
	FieldEnergy,
	FieldTransport,
	FieldWaste,
	FieldWater,
	FieldFuel,
	FieldEmissions,
	FieldProduction,
	FieldGridIntensity,
}

// DriverFields lists the numeric fields treated as independent variables of
// emissions, in the order used for attribution.
var DriverFields = []Field{
	FieldEnergy,
	FieldTransport,
	FieldWaste,
	FieldWater,
	FieldFuel,
	FieldProduction,
	FieldGridIntensity,
}

// AllFields lists every canonical field, date first.
var AllFields = append([]Field{FieldDate}, NumericFields...)

var displayNames = map[Field]string{
	FieldDate:          "date",
	FieldEnergy:        "energy_use (kWh)",
	FieldTransport:     "transport (km)",
	FieldWaste:         "waste (tons)",
	FieldWater:         "water (liters)",
	FieldFuel:          "fuel (liters)",
	FieldEmissions:     "emissions (tons CO2e)",
	FieldProduction:    "production (units)",
	FieldGridIntensity: "grid_intensity (kg CO2e/kWh)",
}

// DisplayName returns the human-facing column header for the field, the form
// in which sample data and reports are written.
func (f Field) DisplayName() string {
	if name, ok := displayNames[f]; ok {
		return name
	}
	return string(f)
}

// IsNumeric reports whether the field holds a numeric driver or the target.
func (f Field) IsNumeric() bool {
	for _, n := range NumericFields {
		if n == f {
			return true
		}
	}
	return false
}

// IsDriver reports whether the field is one of the emission drivers.
func (f Field) IsDriver() bool {
	for _, d := range DriverFields {
		if d == f {
			return true
		}
	}
	return false
}

func (f Field) String() string {
	return string(f)
}

// ParseField resolves an internal field name. The short target alias "y" is
// accepted for emissions.
func ParseField(name string) (Field, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == emissionsShortAlias {
		return FieldEmissions, nil
	}
	for _, f := range AllFields {
		if string(f) == key {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown field %q", name)
}
