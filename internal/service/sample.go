package service

import (
	"math"
	"math/rand/v2"

	"github.com/Veraticus/carbonsync/internal/dates"
	"github.com/Veraticus/carbonsync/internal/forecast"
	"github.com/Veraticus/carbonsync/internal/model"
	"github.com/Veraticus/carbonsync/internal/normalize"
)

// DefaultSampleMonths is the length of a generated sample series.
const DefaultSampleMonths = 24

// wave is base + amp·sin(i/period + phase) with Gaussian noise of sd.
type wave struct {
	field  model.Field
	base   float64
	amp    float64
	period float64
	phase  float64
	sd     float64
}

var sampleWaves = []wave{
	{model.FieldEnergy, 5000, 500, 4, 0, 200},
	{model.FieldTransport, 20000, 2000, 3, 1, 500},
	{model.FieldWaste, 1500, 300, 5, 2, 100},
	{model.FieldWater, 200, 50, 4, 1.5, 20},
	{model.FieldFuel, 1000, 200, 3, 0.5, 50},
	{model.FieldProduction, 10000, 1000, 4, 1, 300},
	{model.FieldGridIntensity, 0.5, 0.1, 6, 0, 0.05},
}

// emissionFactors weight the drivers in the synthetic emissions model.
var emissionFactors = []struct {
	field  model.Field
	factor float64
}{
	{model.FieldEnergy, 0.0005},
	{model.FieldTransport, 0.0002},
	{model.FieldWaste, 0.001},
	{model.FieldWater, 0.0001},
	{model.FieldFuel, 0.002},
}

// Sample generates a monthly demonstration series starting at the date
// epoch. The same seed always yields the same series.
func Sample(seed uint64, months int) model.Series {
	if months < 1 {
		months = DefaultSampleMonths
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) //nolint:gosec // demo data

	series := make(model.Series, months)
	for i := range series {
		r := model.Record{Date: forecast.AddMonths(dates.Epoch, i)}
		x := float64(i)
		for _, w := range sampleWaves {
			v := w.base + w.amp*math.Sin(x/w.period+w.phase) + rng.NormFloat64()*w.sd
			r.Set(w.field, round2(math.Max(0, v)))
		}

		var emissions float64
		for _, ef := range emissionFactors {
			emissions += ef.factor * r.Value(ef.field)
		}
		emissions *= r.GridIntensity
		emissions *= 1 + 0.2*math.Sin(x/6)
		r.EmissionsCO2e = round2(emissions)

		series[i] = r
	}
	return series
}

// SampleResponse wraps a generated series with its summary.
func SampleResponse(series model.Series) *NormalizeResponse {
	return &NormalizeResponse{
		Data:    series,
		Summary: normalize.Summarize(series),
		Message: MsgSample,
	}
}

// DisplayHeader lists the display column labels in canonical order.
func DisplayHeader() []string {
	header := make([]string, len(model.AllFields))
	for i, f := range model.AllFields {
		header[i] = f.DisplayName()
	}
	return header
}

// DisplayRows renders a series in display-column form: dates as text, waste
// in tons and water in liters. Values line up with DisplayHeader.
func DisplayRows(series model.Series) [][]any {
	rows := make([][]any, len(series))
	for i, r := range series {
		row := make([]any, 0, len(model.AllFields))
		row = append(row, r.Date.Format(model.DateLayout))
		for _, f := range model.NumericFields {
			row = append(row, normalize.ToDisplay(f, r.Value(f)))
		}
		rows[i] = row
	}
	return rows
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
