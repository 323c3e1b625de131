// Package linear provides the least-squares baseline point predictor.
package linear

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/conformal/core/model"
	"github.com/YuminosukeSato/conformal/pkg/errors"
)

// Regression is an ordinary least-squares linear model with an intercept.
// It satisfies core/model.Regressor, so it can be wrapped by the conformal
// layer directly.
type Regression struct {
	model.BaseEstimator

	Weights   *mat.VecDense
	Intercept float64
	NFeatures int
}

// NewRegression creates an unfitted linear regression model.
func NewRegression() *Regression {
	return &Regression{}
}

// Fit solves the least-squares problem for X (n×d) against y (n×1) with an
// intercept column, using a QR-based solve rather than forming the normal
// equations explicitly.
func (lr *Regression) Fit(X, y mat.Matrix) error {
	r, c := X.Dims()
	ry, cy := y.Dims()

	if r == 0 || c == 0 {
		return errors.NewModelError("Regression.Fit", "empty data", errors.ErrEmptyData)
	}
	if ry != r {
		return errors.NewDimensionError("Regression.Fit", r, ry, 0)
	}
	if cy != 1 {
		return errors.NewValueError("Regression.Fit", "y must be a column vector")
	}
	if r < c+1 {
		return errors.NewValueError("Regression.Fit", "need at least d+1 rows to fit d features with an intercept")
	}

	// Augment with a leading ones column for the intercept.
	augmented := mat.NewDense(r, c+1, nil)
	for i := 0; i < r; i++ {
		augmented.Set(i, 0, 1.0)
		for j := 0; j < c; j++ {
			augmented.Set(i, j+1, X.At(i, j))
		}
	}

	var solution mat.Dense
	if err := solution.Solve(augmented, y); err != nil {
		return errors.NewModelError("Regression.Fit", "singular design matrix", errors.ErrSingularMatrix)
	}

	lr.NFeatures = c
	lr.Intercept = solution.At(0, 0)
	lr.Weights = mat.NewVecDense(c, nil)
	for j := 0; j < c; j++ {
		lr.Weights.SetVec(j, solution.At(j+1, 0))
	}

	lr.SetFitted()
	return nil
}

// Predict returns the n×1 matrix of point predictions for X.
func (lr *Regression) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !lr.IsFitted() {
		return nil, errors.NewNotFittedError("Regression", "Predict")
	}

	r, c := X.Dims()
	if c != lr.NFeatures {
		return nil, errors.NewDimensionError("Regression.Predict", lr.NFeatures, c, 1)
	}

	predictions := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		pred := lr.Intercept
		for j := 0; j < c; j++ {
			pred += X.At(i, j) * lr.Weights.AtVec(j)
		}
		predictions.Set(i, 0, pred)
	}
	return predictions, nil
}

// Score returns the coefficient of determination R² on (X, y).
func (lr *Regression) Score(X, y mat.Matrix) (float64, error) {
	if !lr.IsFitted() {
		return 0, errors.NewNotFittedError("Regression", "Score")
	}

	yPred, err := lr.Predict(X)
	if err != nil {
		return 0, err
	}

	r, _ := y.Dims()
	var yMean float64
	for i := 0; i < r; i++ {
		yMean += y.At(i, 0)
	}
	yMean /= float64(r)

	var tss, rss float64
	for i := 0; i < r; i++ {
		yTrue := y.At(i, 0)
		diffMean := yTrue - yMean
		diffPred := yTrue - yPred.At(i, 0)
		tss += diffMean * diffMean
		rss += diffPred * diffPred
	}

	if tss == 0 {
		return 0, errors.Newf("Regression.Score: total sum of squares is zero")
	}
	return 1 - rss/tss, nil
}

// Coefficients returns a copy of the fitted weights.
func (lr *Regression) Coefficients() []float64 {
	if lr.Weights == nil {
		return nil
	}
	out := make([]float64, lr.Weights.Len())
	for i := range out {
		out[i] = lr.Weights.AtVec(i)
	}
	return out
}
