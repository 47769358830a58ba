package linearmodel

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const (
	DefaultLambda     = 1.0
	DefaultIterations = 1000
	DefaultTolerance  = 1e-4
)

var (
	ErrNegativeLambda        = errors.New("negative lambda")
	ErrNegativeIterations    = errors.New("negative iterations")
	ErrNegativeTolerance     = errors.New("negative tolerance")
	ErrNegativePenaltyFactor = errors.New("negative penalty factor")
	ErrWarmStartBetaSize     = errors.New("warm start beta does not have the same number of coefficients as training features")
	ErrPenaltyFactorSize     = errors.New("penalty factors do not have the same number of entries as training features")
)

// LassoOptions represents input options to run the Lasso Regression
type LassoOptions struct {
	// WarmStartBeta is used to prime the coordinate descent to reduce the training time if a previous
	// fit has been performed.
	WarmStartBeta []float64

	// Lambda represents the L1 multiplier, controlling the regularization. Must be a non-negative. 0.0 results in converging
	// to Ordinary Least Squares (OLS).
	Lambda float64

	// PenaltyFactors scales lambda per feature column. A factor of 0 leaves the feature unpenalized.
	// Defaults to 1 for every feature when nil. The intercept column is never penalized.
	PenaltyFactors []float64

	// Iterations is the maximum number of times the fit loops through training all coefficients.
	Iterations int

	// Tolerance is the smallest coefficient change relative to the largest coefficient on each
	// iteration to determine when to stop iterating.
	Tolerance float64

	// FitIntercept adds a constant 1.0 feature as the first column if set to true
	FitIntercept bool
}

// Validate runs basic validation on Lasso options
func (l *LassoOptions) Validate() (*LassoOptions, error) {
	if l == nil {
		l = NewDefaultLassoOptions()
	}

	if l.Lambda < 0 {
		return nil, ErrNegativeLambda
	}
	if l.Iterations < 0 {
		return nil, ErrNegativeIterations
	}
	if l.Tolerance < 0 {
		return nil, ErrNegativeTolerance
	}
	for i, pf := range l.PenaltyFactors {
		if pf < 0 {
			return nil, fmt.Errorf("penalty factor at %d is %.3f, %w", i, pf, ErrNegativePenaltyFactor)
		}
	}
	return l, nil
}

// NewDefaultLassoOptions returns a default set of Lasso Regression options
func NewDefaultLassoOptions() *LassoOptions {
	return &LassoOptions{
		Lambda:        DefaultLambda,
		Iterations:    DefaultIterations,
		Tolerance:     DefaultTolerance,
		WarmStartBeta: nil,
		FitIntercept:  true,
	}
}

// LassoRegression computes the lasso regression using coordinate descent minimizing
// 1/2 * ||y - X*beta||^2 + lambda * sum(pf_j * |beta_j|). lambda = 0 converges to OLS
type LassoRegression struct {
	opt *LassoOptions

	// serve as precomputed data structures to reduce memory allocations
	xcols [][]float64
	xdot  []float64
	gamma []float64
	yArr  []float64

	fitted     bool
	iterations int
	coef       []float64
	intercept  float64
}

// NewLassoRegression initializes a Lasso model ready for fitting
func NewLassoRegression(opt *LassoOptions) (*LassoRegression, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &LassoRegression{
		opt: opt,
	}, nil
}

// Fit the model according to the given training data
func (l *LassoRegression) Fit(x, y mat.Matrix) error {
	x, err := l.fitValidate(x, y)
	if err != nil {
		return err
	}
	m, n := x.Dims()

	// tracks current betas
	beta := make([]float64, n)
	if l.opt.WarmStartBeta != nil {
		copy(beta, l.opt.WarmStartBeta)
	}

	l.precompute(n, m, x, y)

	// residual is kept in sync with beta so each coordinate update only touches one column
	residual := make([]float64, m)
	copy(residual, l.yArr)
	for j := 0; j < n; j++ {
		if beta[j] != 0 {
			floats.AddScaled(residual, -beta[j], l.xcols[j])
		}
	}

	l.iterations = 0
	for i := 0; i < l.opt.Iterations; i++ {
		l.iterations++
		maxCoef := 0.0
		maxUpdate := 0.0

		// loop through all features and minimize loss function
		for j := 0; j < n; j++ {
			if l.xdot[j] == 0 {
				beta[j] = 0
				continue
			}
			betaCurr := beta[j]
			obsCol := l.xcols[j]

			num := floats.Dot(obsCol, residual)
			betaNext := SoftThreshold(num/l.xdot[j]+betaCurr, l.gamma[j])

			if delta := betaNext - betaCurr; delta != 0 {
				floats.AddScaled(residual, -delta, obsCol)
				maxUpdate = math.Max(maxUpdate, math.Abs(delta))
			}
			maxCoef = math.Max(maxCoef, math.Abs(betaNext))
			beta[j] = betaNext
		}

		// break early if we've achieved the desired tolerance
		if maxUpdate <= l.opt.Tolerance*maxCoef {
			break
		}
	}

	l.fitted = true
	if l.opt.FitIntercept {
		l.intercept = beta[0]
		l.coef = beta[1:]
		return nil
	}
	l.intercept = 0
	l.coef = beta
	return nil
}

func (l *LassoRegression) fitValidate(x, y mat.Matrix) (mat.Matrix, error) {
	if l.opt == nil {
		return nil, ErrNoOptions
	}
	if err := validateXY(x, y); err != nil {
		return nil, err
	}

	_, n := x.Dims()
	if l.opt.PenaltyFactors != nil && len(l.opt.PenaltyFactors) != n {
		return nil, fmt.Errorf("penalty factors has %d entries instead of %d, %w", len(l.opt.PenaltyFactors), n, ErrPenaltyFactorSize)
	}

	if l.opt.FitIntercept {
		x = withIntercept(x)
		_, n = x.Dims()
	}

	if l.opt.WarmStartBeta != nil && len(l.opt.WarmStartBeta) != n {
		return nil, fmt.Errorf("warm start beta has %d features instead of %d, %w", len(l.opt.WarmStartBeta), n, ErrWarmStartBetaSize)
	}
	return x, nil
}

func (l *LassoRegression) precompute(n, m int, x, y mat.Matrix) {
	// the intercept column carries no penalty
	pf := make([]float64, 0, n)
	if l.opt.FitIntercept {
		pf = append(pf, 0)
	}
	if l.opt.PenaltyFactors == nil {
		for len(pf) < n {
			pf = append(pf, 1.0)
		}
	} else {
		pf = append(pf, l.opt.PenaltyFactors...)
	}

	// precompute the per feature dot product
	l.xcols = make([][]float64, n)
	l.xdot = make([]float64, n)
	l.gamma = make([]float64, n)
	for i := 0; i < n; i++ {
		xi := mat.Col(nil, i, x)
		l.xcols[i] = xi
		l.xdot[i] = floats.Dot(xi, xi)
		if l.xdot[i] > 0 {
			l.gamma[i] = l.opt.Lambda * pf[i] / l.xdot[i]
		}
	}

	l.yArr = mat.Col(nil, 0, y)
}

// Iterations returns the number of coordinate descent passes of the last fit
func (l *LassoRegression) Iterations() int {
	return l.iterations
}

// Predict using the Lasso model
func (l *LassoRegression) Predict(x mat.Matrix) ([]float64, error) {
	if l.opt == nil {
		return nil, ErrNoOptions
	}
	if x == nil {
		return nil, ErrNoDesignMatrix
	}
	if !l.fitted {
		return nil, ErrNotFitted
	}

	coef := l.coef
	if l.opt.FitIntercept {
		coef = append([]float64{l.intercept}, l.coef...)
		x = withIntercept(x)
	}
	return predict(x, coef)
}

// Score computes the coefficient of determination of the prediction
func (l *LassoRegression) Score(x, y mat.Matrix) (float64, error) {
	if l.opt == nil {
		return 0.0, ErrNoOptions
	}
	if x == nil {
		return 0.0, ErrNoDesignMatrix
	}
	if err := validateXY(x, y); err != nil {
		return 0.0, err
	}

	res, err := l.Predict(x)
	if err != nil {
		return 0.0, err
	}

	ySlice := mat.Col(nil, 0, y)

	score := stat.RSquaredFrom(res, ySlice, nil)
	if math.IsNaN(score) {
		score = 1.0
	}

	return score, nil
}

// Intercept returns the computed intercept if FitIntercept is set to true. Defaults to 0.0 if not set.
func (l *LassoRegression) Intercept() float64 {
	return l.intercept
}

// Coef returns a slice of the trained coefficients in the same order of the training feature Matrix by column.
func (l *LassoRegression) Coef() []float64 {
	c := make([]float64, len(l.coef))
	copy(c, l.coef)
	return c
}

// SoftThreshold returns 0.0 if the value is less than or equal to the gamma input
func SoftThreshold(x, gamma float64) float64 {
	res := math.Max(0, math.Abs(x)-gamma)
	if math.Signbit(x) {
		return -res
	}
	return res
}
