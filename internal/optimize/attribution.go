// Package optimize ranks the drivers of emissions and simulates the effect
// of reducing them.
package optimize

import (
	"log/slog"

	"github.com/samber/lo"

	"github.com/Veraticus/carbonsync/internal/model"
	"github.com/Veraticus/carbonsync/internal/regression"
)

// MinAttributionRows is the smallest series Attribute fits.
const MinAttributionRows = 5

// Attribute regresses emissions on every driver and ranks the drivers by
// |coefficient × mean|. Series shorter than MinAttributionRows, or fits
// that fail, yield no impacts.
func Attribute(s model.Series) model.Impacts {
	if len(s) < MinAttributionRows {
		return model.Impacts{}
	}

	x := driverMatrix(s)
	y := s.Column(model.TargetField)
	fit, err := regression.OLS(x, y, true)
	if err != nil {
		slog.Warn("Attribution fit failed", "error", err, "rows", len(s))
		return model.Impacts{}
	}

	impacts := make(model.Impacts, len(model.DriverFields))
	for j, f := range model.DriverFields {
		impacts[j] = model.NewImpact(f, fit.Coef[j], regression.Mean(s.Column(f)))
	}
	impacts.Rank()
	return impacts
}

// MaxSuggestions caps the number of suggestions returned.
const MaxSuggestions = 3

var suggestionText = map[model.Field]string{
	model.FieldGridIntensity: "Consider switching to renewable energy sources to reduce grid carbon intensity",
	model.FieldEnergy:        "Implement energy efficiency measures to reduce electricity consumption",
	model.FieldTransport:     "Optimize transportation routes or switch to electric vehicles",
	model.FieldWaste:         "Implement waste reduction and recycling programs",
	model.FieldWater:         "Install water-saving fixtures and implement water conservation measures",
	model.FieldFuel:          "Optimize fuel consumption or switch to more efficient vehicles",
}

// Suggestions returns advice for the highest-ranked drivers with a
// positive coefficient, in ranked order. Drivers without advice (production)
// use up their slot.
func Suggestions(impacts model.Impacts) []string {
	positive := lo.Filter(impacts, func(im model.Impact, _ int) bool {
		return im.Coefficient > 0
	})
	if len(positive) > MaxSuggestions {
		positive = positive[:MaxSuggestions]
	}
	return lo.FilterMap(positive, func(im model.Impact, _ int) (string, bool) {
		text, ok := suggestionText[im.Driver]
		return text, ok
	})
}

func driverMatrix(s model.Series) [][]float64 {
	x := make([][]float64, len(s))
	for i, r := range s {
		row := make([]float64, len(model.DriverFields))
		for j, f := range model.DriverFields {
			row[j] = r.Value(f)
		}
		x[i] = row
	}
	return x
}
