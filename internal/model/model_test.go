package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseField(t *testing.T) {
	tests := []struct {
		in      string
		want    Field
		wantErr bool
	}{
		{in: "energy_kwh", want: FieldEnergy},
		{in: " Emissions_CO2e ", want: FieldEmissions},
		{in: "y", want: FieldEmissions},
		{in: "date", want: FieldDate},
		{in: "coal", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseField(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFieldSets(t *testing.T) {
	assert.Len(t, NumericFields, 8)
	assert.Len(t, DriverFields, 7)
	assert.Len(t, AllFields, 9)
	assert.NotContains(t, DriverFields, FieldEmissions)
	assert.True(t, FieldFuel.IsDriver())
	assert.False(t, FieldEmissions.IsDriver())
	assert.False(t, FieldDate.IsNumeric())
}

func TestRecordJSON(t *testing.T) {
	r := Record{Date: day(2023, time.March, 1), EnergyKWh: 120.5, WasteKG: 2000}

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Len(t, fields, 9)
	assert.Equal(t, "2023-03-01", fields["date"])

	var back Record
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, r, back)

	assert.Error(t, json.Unmarshal([]byte(`{"date":"03/01/2023"}`), &back))
}

func TestSeriesHelpers(t *testing.T) {
	s := Series{
		{Date: day(2023, time.March, 1), EmissionsCO2e: 3},
		{Date: day(2023, time.January, 1), EmissionsCO2e: 1},
		{Date: day(2023, time.March, 1), EmissionsCO2e: 4},
	}

	assert.Equal(t, []time.Time{day(2023, time.March, 1)}, s.DuplicateDates())
	assert.Equal(t, day(2023, time.March, 1), s.LastDate())

	sorted := s.Clone()
	sorted.Sort()
	assert.Equal(t, []float64{1, 3, 4}, sorted.Column(FieldEmissions))
	assert.Equal(t, []float64{3, 1, 4}, s.Column(FieldEmissions))

	assert.NotEqual(t, s.Fingerprint(), sorted.Fingerprint())
	assert.Equal(t, sorted.Fingerprint(), sorted.Clone().Fingerprint())
}

func TestImpactsRankAndJSON(t *testing.T) {
	impacts := Impacts{
		NewImpact(FieldEnergy, 0.1, 100),
		NewImpact(FieldTransport, -0.5, 100),
		NewImpact(FieldFuel, 0.5, 100),
	}
	impacts.Rank()

	assert.Equal(t, FieldTransport, impacts[0].Driver)
	assert.Equal(t, FieldFuel, impacts[1].Driver)
	assert.Equal(t, FieldEnergy, impacts[2].Driver)

	data, err := json.Marshal(impacts)
	require.NoError(t, err)
	assert.Regexp(t, `^\{"transport_km":.*"fuel_l":.*"energy_kwh":`, string(data))

	var back Impacts
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, impacts, back)

	fuel, ok := back.Get(FieldFuel)
	require.True(t, ok)
	assert.InDelta(t, 50, fuel.ImpactScore, 1e-9)
}
