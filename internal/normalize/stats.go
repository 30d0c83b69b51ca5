package normalize

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/Veraticus/carbonsync/internal/model"
)

// Summarize computes per-field statistics over s. The standard deviation is
// the sample deviation and is zero for a single row.
func Summarize(s model.Series) model.Summary {
	sum := model.Summary{
		Mean:      make(map[model.Field]float64, len(model.NumericFields)),
		Min:       make(map[model.Field]float64, len(model.NumericFields)),
		Max:       make(map[model.Field]float64, len(model.NumericFields)),
		Std:       make(map[model.Field]float64, len(model.NumericFields)),
		TotalRows: len(s),
	}
	if len(s) == 0 {
		return sum
	}

	for _, f := range model.NumericFields {
		col := s.Column(f)
		sum.Mean[f] = stat.Mean(col, nil)
		sum.Min[f] = floats.Min(col)
		sum.Max[f] = floats.Max(col)
		if len(col) > 1 {
			sum.Std[f] = stat.StdDev(col, nil)
		} else {
			sum.Std[f] = 0
		}
	}
	return sum
}
