package regression

import "gonum.org/v1/gonum/stat"

// Z95 is the two-sided 95% normal quantile used for forecast bands.
const Z95 = 1.96

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return stat.Mean(x, nil)
}

// PopulationStdDev divides by n.
func PopulationStdDev(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	_, std := stat.PopMeanStdDev(x, nil)
	return std
}

// SampleStdDev divides by n−1 and is 0 for fewer than two values.
func SampleStdDev(x []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	return stat.StdDev(x, nil)
}

// Band returns the symmetric 95% interval around y.
func Band(y, residualStd float64) (lower, upper float64) {
	return y - Z95*residualStd, y + Z95*residualStd
}
