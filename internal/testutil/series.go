package testutil

import (
	"math"
	"time"

	"github.com/Veraticus/carbonsync/internal/model"
)

// Month returns the first day of a month in UTC.
func Month(year int, month time.Month) time.Time {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
}

// SeriesBuilder assembles canonical series for tests.
//
// Example:
//
//	s := testutil.NewSeries(testutil.Month(2023, time.January)).
//		Emissions(10, 11, 12).
//		Driver(model.FieldEnergy, 100, 110, 120).
//		Build()
type SeriesBuilder struct {
	start     time.Time
	emissions []float64
	drivers   map[model.Field][]float64
}

// NewSeries starts a monthly series at start.
func NewSeries(start time.Time) *SeriesBuilder {
	return &SeriesBuilder{start: start, drivers: make(map[model.Field][]float64)}
}

// Emissions sets the target values; the series has one row per value.
func (b *SeriesBuilder) Emissions(values ...float64) *SeriesBuilder {
	b.emissions = values
	return b
}

// Driver sets the values of one driver field. Missing trailing values are
// zero.
func (b *SeriesBuilder) Driver(f model.Field, values ...float64) *SeriesBuilder {
	b.drivers[f] = values
	return b
}

// Build returns the series.
func (b *SeriesBuilder) Build() model.Series {
	s := make(model.Series, len(b.emissions))
	for i := range s {
		s[i].Date = b.start.AddDate(0, i, 0)
		s[i].EmissionsCO2e = b.emissions[i]
		for f, values := range b.drivers {
			if i < len(values) {
				s[i].Set(f, values[i])
			}
		}
	}
	return s
}

// SeasonalSeries returns n monthly rows with an upward trend, a yearly
// cycle and emissions driven mostly by energy. It is deterministic.
func SeasonalSeries(n int) model.Series {
	s := make(model.Series, n)
	start := Month(2022, time.January)
	for i := range s {
		phase := 2 * math.Pi * float64(i) / 12
		energy := 5000 + 500*math.Sin(phase)
		transport := 20000 + 2000*math.Cos(phase)
		s[i] = model.Record{
			Date:            start.AddDate(0, i, 0),
			EnergyKWh:       energy,
			TransportKM:     transport,
			WasteKG:         1500 + 10*float64(i%3),
			WaterM3:         200,
			FuelL:           1000 + 5*float64(i%4),
			ProductionUnits: 10000 + 100*float64(i),
			GridIntensity:   0.5,
			EmissionsCO2e:   2 + 0.0005*energy + 0.0001*transport + 0.05*float64(i),
		}
	}
	return s
}
