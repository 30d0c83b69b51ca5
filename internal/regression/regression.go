// Package regression holds the least-squares fits shared by forecasting and
// attribution.
package regression

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/Veraticus/carbonsync/internal/common"
)

// rcond is the relative singular-value cutoff below which directions of the
// design are treated as absent.
const rcond = 1e-10

// Model is a fitted linear model.
type Model struct {
	Intercept float64
	Coef      []float64
	// Rank is the effective rank of the (centered) design.
	Rank int
}

// Predict evaluates the model on one feature row.
func (m *Model) Predict(x []float64) float64 {
	y := m.Intercept
	for j, c := range m.Coef {
		y += c * x[j]
	}
	return y
}

// PredictAll evaluates the model on every row of x.
func (m *Model) PredictAll(x [][]float64) []float64 {
	out := make([]float64, len(x))
	for i, row := range x {
		out[i] = m.Predict(row)
	}
	return out
}

// Residuals returns y minus the model's predictions for x.
func (m *Model) Residuals(x [][]float64, y []float64) []float64 {
	out := make([]float64, len(y))
	for i := range y {
		out[i] = y[i] - m.Predict(x[i])
	}
	return out
}

// OLS fits y on the columns of x by minimum-norm least squares. With
// intercept the design is centered first and the intercept recovered from
// the means, so constant or collinear columns get zero or shared weight
// instead of failing.
func OLS(x [][]float64, y []float64, intercept bool) (*Model, error) {
	n, p, err := dims(x, y)
	if err != nil {
		return nil, err
	}

	xMeans := make([]float64, p)
	yMean := 0.0
	if intercept {
		for j := 0; j < p; j++ {
			xMeans[j] = stat.Mean(column(x, j), nil)
		}
		yMean = stat.Mean(y, nil)
	}

	m := &Model{Intercept: yMean, Coef: make([]float64, p)}
	if p == 0 {
		return m, nil
	}

	a := mat.NewDense(n, p, nil)
	b := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < p; j++ {
			a.Set(i, j, x[i][j]-xMeans[j])
		}
		b.Set(i, 0, y[i]-yMean)
	}

	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return nil, fmt.Errorf("%w: singular value decomposition did not converge", common.ErrModelFit)
	}
	m.Rank = svd.Rank(rcond)
	if m.Rank == 0 {
		return m, nil
	}

	var beta mat.Dense
	svd.SolveTo(&beta, b, m.Rank)
	for j := 0; j < p; j++ {
		m.Coef[j] = beta.At(j, 0)
	}
	if intercept {
		for j := 0; j < p; j++ {
			m.Intercept -= m.Coef[j] * xMeans[j]
		}
	}
	return m, nil
}

// Ridge solves (XᵀX + λI)β = Xᵀy. There is no intercept; callers add a
// constant column when they need one.
func Ridge(x [][]float64, y []float64, lambda float64) (*Model, error) {
	if lambda < 0 {
		return nil, fmt.Errorf("%w: ridge lambda must be non-negative, got %g", common.ErrInvalidInput, lambda)
	}
	if lambda == 0 {
		return OLS(x, y, false)
	}
	n, p, err := dims(x, y)
	if err != nil {
		return nil, err
	}
	m := &Model{Coef: make([]float64, p), Rank: p}
	if p == 0 {
		return m, nil
	}

	a := mat.NewDense(n, p, nil)
	for i := 0; i < n; i++ {
		a.SetRow(i, x[i])
	}
	yv := mat.NewVecDense(n, append([]float64(nil), y...))

	var gram mat.Dense
	gram.Mul(a.T(), a)
	for j := 0; j < p; j++ {
		gram.Set(j, j, gram.At(j, j)+lambda)
	}
	var rhs mat.VecDense
	rhs.MulVec(a.T(), yv)

	var beta mat.VecDense
	if err := beta.SolveVec(&gram, &rhs); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrModelFit, err)
	}
	for j := 0; j < p; j++ {
		m.Coef[j] = beta.AtVec(j)
	}
	return m, nil
}

func dims(x [][]float64, y []float64) (n, p int, err error) {
	n = len(y)
	if n == 0 {
		return 0, 0, fmt.Errorf("%w: no observations to fit", common.ErrInsufficientData)
	}
	if len(x) != n {
		return 0, 0, fmt.Errorf("%w: %d feature rows for %d observations", common.ErrInvalidInput, len(x), n)
	}
	p = len(x[0])
	for i, row := range x {
		if len(row) != p {
			return 0, 0, fmt.Errorf("%w: feature row %d has %d columns, want %d", common.ErrInvalidInput, i, len(row), p)
		}
	}
	return n, p, nil
}

func column(x [][]float64, j int) []float64 {
	out := make([]float64, len(x))
	for i := range x {
		out[i] = x[i][j]
	}
	return out
}
