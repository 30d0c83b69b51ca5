package regression

import (
	"errors"
	"math"
	"testing"

	"github.com/Veraticus/carbonsync/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOLS(t *testing.T) {
	tests := []struct {
		name      string
		x         [][]float64
		y         []float64
		intercept float64
		coef      []float64
		rank      int
	}{
		{
			name:      "exact line",
			x:         [][]float64{{0}, {1}, {2}},
			y:         []float64{10, 11, 12},
			intercept: 10,
			coef:      []float64{1},
			rank:      1,
		},
		{
			name:      "collinear columns share weight",
			x:         [][]float64{{1, 2}, {2, 4}, {3, 6}},
			y:         []float64{1, 2, 3},
			intercept: 0,
			coef:      []float64{0.2, 0.4},
			rank:      1,
		},
		{
			name:      "constant column gets no weight",
			x:         [][]float64{{5}, {5}, {5}},
			y:         []float64{1, 2, 3},
			intercept: 2,
			coef:      []float64{0},
			rank:      0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := OLS(tt.x, tt.y, true)
			require.NoError(t, err)
			assert.InDelta(t, tt.intercept, m.Intercept, 1e-9)
			require.Len(t, m.Coef, len(tt.coef))
			for j := range tt.coef {
				assert.InDelta(t, tt.coef[j], m.Coef[j], 1e-9)
			}
			assert.Equal(t, tt.rank, m.Rank)
		})
	}
}

func TestOLS_Residuals(t *testing.T) {
	x := [][]float64{{0}, {1}, {2}, {3}}
	y := []float64{1, 3, 2, 4}

	m, err := OLS(x, y, true)
	require.NoError(t, err)

	res := m.Residuals(x, y)
	var sum float64
	for _, r := range res {
		sum += r
	}
	assert.InDelta(t, 0, sum, 1e-9)
	assert.Equal(t, m.PredictAll(x)[2], m.Predict(x[2]))
}

func TestOLS_ShapeErrors(t *testing.T) {
	_, err := OLS(nil, nil, true)
	assert.True(t, errors.Is(err, common.ErrInsufficientData))

	_, err = OLS([][]float64{{1}}, []float64{1, 2}, true)
	assert.True(t, errors.Is(err, common.ErrInvalidInput))

	_, err = OLS([][]float64{{1}, {1, 2}}, []float64{1, 2}, true)
	assert.True(t, errors.Is(err, common.ErrInvalidInput))
}

func TestRidge(t *testing.T) {
	x := [][]float64{{1}, {2}}
	y := []float64{2, 4}

	m, err := Ridge(x, y, 1)
	require.NoError(t, err)
	assert.InDelta(t, 10.0/6.0, m.Coef[0], 1e-9)
	assert.Zero(t, m.Intercept)

	m, err = Ridge(x, y, 0)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, m.Coef[0], 1e-9)

	_, err = Ridge(x, y, -1)
	assert.True(t, errors.Is(err, common.ErrInvalidInput))
}

func TestStats(t *testing.T) {
	x := []float64{1, 2, 3, 4}

	assert.InDelta(t, 2.5, Mean(x), 1e-12)
	assert.InDelta(t, math.Sqrt(1.25), PopulationStdDev(x), 1e-12)
	assert.InDelta(t, math.Sqrt(5.0/3.0), SampleStdDev(x), 1e-12)
	assert.Zero(t, SampleStdDev(x[:1]))
	assert.Zero(t, Mean(nil))

	lo, hi := Band(10, 1)
	assert.InDelta(t, 8.04, lo, 1e-12)
	assert.InDelta(t, 11.96, hi, 1e-12)
}
