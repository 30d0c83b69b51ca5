package model

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"
)

// DateLayout is the ISO-8601 calendar date layout used on the wire.
const DateLayout = "2006-01-02"

// Record is one canonical observation.
type Record struct {
	Date            time.Time
	EnergyKWh       float64
	TransportKM     float64
	WasteKG         float64
	WaterM3         float64
	FuelL           float64
	EmissionsCO2e   float64
	ProductionUnits float64
	GridIntensity   float64
}

// Value returns the numeric value stored for field. It panics on FieldDate or
// an unknown field, both of which are programming errors.
func (r Record) Value(f Field) float64 {
	switch f {
	case FieldEnergy:
		return r.EnergyKWh
	case FieldTransport:
		return r.TransportKM
	case FieldWaste:
		return r.WasteKG
	case FieldWater:
		return r.WaterM3
	case FieldFuel:
		return r.FuelL
	case FieldEmissions:
		return r.EmissionsCO2e
	case FieldProduction:
		return r.ProductionUnits
	case FieldGridIntensity:
		return r.GridIntensity
	default:
		panic(fmt.Sprintf("model: %q is not a numeric field", f))
	}
}

// Set stores v under field.
func (r *Record) Set(f Field, v float64) {
	switch f {
	case FieldEnergy:
		r.EnergyKWh = v
	case FieldTransport:
		r.TransportKM = v
	case FieldWaste:
		r.WasteKG = v
	case FieldWater:
		r.WaterM3 = v
	case FieldFuel:
		r.FuelL = v
	case FieldEmissions:
		r.EmissionsCO2e = v
	case FieldProduction:
		r.ProductionUnits = v
	case FieldGridIntensity:
		r.GridIntensity = v
	default:
		panic(fmt.Sprintf("model: %q is not a numeric field", f))
	}
}

type recordJSON struct {
	Date            string  `json:"date"`
	EnergyKWh       float64 `json:"energy_kwh"`
	TransportKM     float64 `json:"transport_km"`
	WasteKG         float64 `json:"waste_kg"`
	WaterM3         float64 `json:"water_m3"`
	FuelL           float64 `json:"fuel_l"`
	EmissionsCO2e   float64 `json:"emissions_co2e"`
	ProductionUnits float64 `json:"production_units"`
	GridIntensity   float64 `json:"grid_intensity"`
}

// MarshalJSON writes exactly the nine canonical fields.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(recordJSON{
		Date:            r.Date.Format(DateLayout),
		EnergyKWh:       r.EnergyKWh,
		TransportKM:     r.TransportKM,
		WasteKG:         r.WasteKG,
		WaterM3:         r.WaterM3,
		FuelL:           r.FuelL,
		EmissionsCO2e:   r.EmissionsCO2e,
		ProductionUnits: r.ProductionUnits,
		GridIntensity:   r.GridIntensity,
	})
}

// UnmarshalJSON reads a canonical row. Dates must be YYYY-MM-DD.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw recordJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	d, err := time.Parse(DateLayout, raw.Date)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", raw.Date, err)
	}
	*r = Record{
		Date:            d,
		EnergyKWh:       raw.EnergyKWh,
		TransportKM:     raw.TransportKM,
		WasteKG:         raw.WasteKG,
		WaterM3:         raw.WaterM3,
		FuelL:           raw.FuelL,
		EmissionsCO2e:   raw.EmissionsCO2e,
		ProductionUnits: raw.ProductionUnits,
		GridIntensity:   raw.GridIntensity,
	}
	return nil
}

// Series is an ordered collection of canonical records.
type Series []Record

// Clone returns a copy that can be reordered without touching s.
func (s Series) Clone() Series {
	out := make(Series, len(s))
	copy(out, s)
	return out
}

// Sort orders the series by ascending date, keeping the relative order of
// equal dates.
func (s Series) Sort() {
	sort.SliceStable(s, func(i, j int) bool {
		return s[i].Date.Before(s[j].Date)
	})
}

// Column extracts one numeric field as a slice.
func (s Series) Column(f Field) []float64 {
	out := make([]float64, len(s))
	for i, r := range s {
		out[i] = r.Value(f)
	}
	return out
}

// DuplicateDates returns every date that occurs more than once, in order of
// second occurrence.
func (s Series) DuplicateDates() []time.Time {
	seen := make(map[time.Time]int, len(s))
	var dups []time.Time
	for _, r := range s {
		seen[r.Date]++
		if seen[r.Date] == 2 {
			dups = append(dups, r.Date)
		}
	}
	return dups
}

// NonFinite reports the first field holding NaN or ±Inf, if any.
func (s Series) NonFinite() (row int, field Field, ok bool) {
	for i, r := range s {
		for _, f := range NumericFields {
			v := r.Value(f)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return i, f, true
			}
		}
	}
	return 0, "", false
}

// LastDate returns the latest date in the series.
func (s Series) LastDate() time.Time {
	var last time.Time
	for _, r := range s {
		if r.Date.After(last) {
			last = r.Date
		}
	}
	return last
}

// Fingerprint hashes the content of the series. Two series share a
// fingerprint only when they hold the same rows in the same order.
func (s Series) Fingerprint() string {
	h := sha256.New()
	for _, r := range s {
		_, _ = h.Write([]byte(r.Date.Format(DateLayout)))
		for _, f := range NumericFields {
			_, _ = h.Write([]byte{':'})
			_, _ = h.Write([]byte(strconv.FormatFloat(r.Value(f), 'g', -1, 64)))
		}
		_, _ = h.Write([]byte{'\n'})
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
