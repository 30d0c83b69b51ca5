package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"
)

// ForecastPoint is a single predicted period with its uncertainty band.
type ForecastPoint struct {
	Date               time.Time
	PredictedEmissions float64
	LowerBound         float64
	UpperBound         float64
}

type forecastPointJSON struct {
	Date               string  `json:"date"`
	PredictedEmissions float64 `json:"predicted_emissions"`
	LowerBound         float64 `json:"lower_bound"`
	UpperBound         float64 `json:"upper_bound"`
}

// MarshalJSON encodes the date as YYYY-MM-DD.
func (p ForecastPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(forecastPointJSON{
		Date:               p.Date.Format(DateLayout),
		PredictedEmissions: p.PredictedEmissions,
		LowerBound:         p.LowerBound,
		UpperBound:         p.UpperBound,
	})
}

// UnmarshalJSON decodes a point written by MarshalJSON.
func (p *ForecastPoint) UnmarshalJSON(data []byte) error {
	var raw forecastPointJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	d, err := time.Parse(DateLayout, raw.Date)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", raw.Date, err)
	}
	*p = ForecastPoint{
		Date:               d,
		PredictedEmissions: raw.PredictedEmissions,
		LowerBound:         raw.LowerBound,
		UpperBound:         raw.UpperBound,
	}
	return nil
}

// Impact describes how strongly one driver moves emissions.
type Impact struct {
	Driver      Field   `json:"-"`
	Coefficient float64 `json:"coefficient"`
	MeanValue   float64 `json:"mean_value"`
	ImpactScore float64 `json:"impact_score"`
}

// NewImpact builds an impact entry; the score is coefficient × mean.
func NewImpact(driver Field, coefficient, mean float64) Impact {
	return Impact{
		Driver:      driver,
		Coefficient: coefficient,
		MeanValue:   mean,
		ImpactScore: coefficient * mean,
	}
}

// Impacts is a collection of impact entries ranked by descending absolute
// impact score.
type Impacts []Impact

// Rank orders impacts by descending |ImpactScore|. Ties keep driver order.
func (im Impacts) Rank() {
	sort.SliceStable(im, func(i, j int) bool {
		return math.Abs(im[i].ImpactScore) > math.Abs(im[j].ImpactScore)
	})
}

// Get returns the entry for driver.
func (im Impacts) Get(driver Field) (Impact, bool) {
	for _, i := range im {
		if i.Driver == driver {
			return i, true
		}
	}
	return Impact{}, false
}

// MarshalJSON encodes the impacts as an object keyed by driver, keeping the
// ranked order of keys.
func (im Impacts) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, entry := range im {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(string(entry.Driver))
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(entry)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes the keyed form and re-ranks the entries.
func (im *Impacts) UnmarshalJSON(data []byte) error {
	var raw map[string]Impact
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Impacts, 0, len(raw))
	for _, f := range DriverFields {
		if entry, ok := raw[string(f)]; ok {
			entry.Driver = f
			out = append(out, entry)
		}
	}
	out.Rank()
	*im = out
	return nil
}

// Reduction is a hypothetical percentage cut applied to one driver.
type Reduction struct {
	Regressor    Field   `json:"regressor"`
	ReductionPct float64 `json:"reduction_pct"`
}

// Savings summarizes the difference between baseline and optimized forecasts.
type Savings struct {
	Total      float64 `json:"total"`
	Percentage float64 `json:"percentage"`
}

// OptimizationResult is the outcome of a what-if simulation.
type OptimizationResult struct {
	OptimizedForecast []ForecastPoint `json:"optimized_forecast"`
	BaselineForecast  []ForecastPoint `json:"baseline_forecast,omitempty"`
	Savings           Savings         `json:"savings"`
	Skipped           []Field         `json:"skipped,omitempty"`
}

// Summary holds per-field descriptive statistics of a normalized table.
type Summary struct {
	Mean      map[Field]float64 `json:"mean"`
	Min       map[Field]float64 `json:"min"`
	Max       map[Field]float64 `json:"max"`
	Std       map[Field]float64 `json:"std"`
	TotalRows int               `json:"total_rows"`
}
