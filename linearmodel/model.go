// Package linearmodel holds the linear regression fitters used by the forecast model: a
// penalized lasso solved with coordinate descent and an ordinary least squares fit used to
// estimate the noise level ahead of the penalized fit.
package linearmodel

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

type Model interface {
	Fit(x, y mat.Matrix) error
	Predict(x mat.Matrix) ([]float64, error)
	Score(x, y mat.Matrix) (float64, error)
	Intercept() float64
	Coef() []float64
}

// NewDenseFromArray builds a row major matrix from a slice of observations
func NewDenseFromArray(x [][]float64) (*mat.Dense, error) {
	m := len(x)

	n := -1
	for i, row := range x {
		if n >= 0 && len(row) != n {
			return nil, fmt.Errorf("at row %d, %w", i, ErrColMismatch)
		}
		if n < 0 {
			n = len(row)
		}
	}
	if m == 0 || n <= 0 {
		return nil, ErrNoTrainingMatrix
	}

	// flatten to row order
	data := make([]float64, 0, m*n)
	for _, row := range x {
		data = append(data, row...)
	}
	return mat.NewDense(m, n, data), nil
}

// withIntercept prepends a constant 1.0 column to the design matrix
func withIntercept(x mat.Matrix) mat.Matrix {
	m, n := x.Dims()
	res := mat.NewDense(m, n+1, nil)
	for i := 0; i < m; i++ {
		res.Set(i, 0, 1.0)
		for j := 0; j < n; j++ {
			res.Set(i, j+1, x.At(i, j))
		}
	}
	return res
}

// predict computes x * coef
func predict(x mat.Matrix, coef []float64) ([]float64, error) {
	m, n := x.Dims()
	if n != len(coef) {
		return nil, fmt.Errorf("got %d features in design matrix, but expected %d, %w", n, len(coef), ErrFeatureLenMismatch)
	}
	if n == 0 {
		return make([]float64, m), nil
	}
	res := mat.NewVecDense(m, nil)
	res.MulVec(x, mat.NewVecDense(n, coef))
	return res.RawVector().Data, nil
}

func validateXY(x, y mat.Matrix) error {
	if x == nil {
		return ErrNoTrainingMatrix
	}
	if y == nil {
		return ErrNoTargetMatrix
	}
	m, _ := x.Dims()
	ym, _ := y.Dims()
	if ym != m {
		return fmt.Errorf("training data has %d rows and target has %d row, %w", m, ym, ErrTargetLenMismatch)
	}
	return nil
}
