// Package conformal implements split conformal prediction for regression:
// a distribution-free wrapper that turns any point predictor's outputs into
// intervals with finite-sample marginal coverage 1-alpha.
//
// The method calibrates on a held-out split, disjoint from the rows the
// predictor was fitted on: absolute residuals are sorted and the
// ceil((1-alpha)(n+1))-th smallest one becomes the half-width q of every
// test interval [y_pred - q, y_pred + q]. The n+1 in the rank is the
// finite-sample correction that yields the coverage guarantee.
package conformal

import (
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/conformal/core/model"
	"github.com/YuminosukeSato/conformal/core/parallel"
	"github.com/YuminosukeSato/conformal/pkg/errors"
	logattr "github.com/YuminosukeSato/conformal/pkg/log"
)

// parallelThreshold gates row-parallel interval construction; below this
// many rows the sequential loop wins.
const parallelThreshold = 1000

// smallCalibrationFactor triggers SmallCalibrationWarning when
// n*alpha < smallCalibrationFactor, i.e. too few expected exceedances for a
// stable empirical quantile.
const smallCalibrationFactor = 10.0

// Rank returns the order-statistic rank ceil((1-alpha)(n+1)) used by the
// split conformal quantile. Ranks below 1 clip to 1. A rank above n means no
// finite residual achieves the requested coverage; that is reported as a
// CoverageUnachievableError, never silently truncated.
func Rank(n int, alpha float64) (int, error) {
	if alpha <= 0 || alpha >= 1 {
		return 0, errors.NewValidationError("alpha", "must be in (0, 1)", alpha)
	}
	if n < 1 {
		return 0, errors.NewValueError("conformal.Rank", "calibration set is empty")
	}

	rank := int(math.Ceil((1 - alpha) * float64(n+1)))
	if rank < 1 {
		rank = 1
	}
	if rank > n {
		return 0, errors.NewCoverageUnachievableError(alpha, n, rank)
	}
	return rank, nil
}

// AbsoluteResiduals returns |yTrue_i - yPred_i| for each calibration row.
func AbsoluteResiduals(yTrue, yPred []float64) ([]float64, error) {
	if len(yTrue) == 0 {
		return nil, errors.NewValueError("conformal.AbsoluteResiduals", "empty input")
	}
	if len(yPred) != len(yTrue) {
		return nil, errors.NewDimensionError("conformal.AbsoluteResiduals", len(yTrue), len(yPred), 0)
	}

	residuals := make([]float64, len(yTrue))
	for i := range yTrue {
		residuals[i] = math.Abs(yTrue[i] - yPred[i])
	}
	return residuals, nil
}

// Quantile computes the split conformal quantile q: the rank-th smallest
// absolute residual at rank ceil((1-alpha)(n+1)), the empirical
// (1-alpha)(1+1/n) quantile of the residuals.
//
// One ascending sort suffices; because the scores are absolute values the
// same order statistic serves both interval bounds. Deterministic: the same
// residuals and alpha always yield the same q.
func Quantile(residuals []float64, alpha float64) (float64, error) {
	rank, err := Rank(len(residuals), alpha)
	if err != nil {
		return 0, err
	}

	sorted := make([]float64, len(residuals))
	copy(sorted, residuals)
	sort.Float64s(sorted)

	return sorted[rank-1], nil
}

// SplitConformalRegressor wraps any point predictor (core/model.Regressor)
// and widens its predictions into coverage-calibrated intervals.
//
// Lifecycle: Fit on the train split, Calibrate on the calibration split,
// PredictInterval on the test split. The three splits must be disjoint;
// calibrating on training rows voids the coverage guarantee.
type SplitConformalRegressor struct {
	model.BaseEstimator

	Predictor model.Regressor
	Alpha     float64

	quantile        float64
	calibrationSize int
	calibrated      bool
}

// NewSplitConformalRegressor wraps predictor with target miscoverage rate
// alpha (e.g. 0.1 for 90% coverage). Alpha is validated at Calibrate time.
func NewSplitConformalRegressor(predictor model.Regressor, alpha float64) *SplitConformalRegressor {
	return &SplitConformalRegressor{
		Predictor: predictor,
		Alpha:     alpha,
	}
}

// Fit trains the wrapped point predictor on the train split.
func (sc *SplitConformalRegressor) Fit(X, y mat.Matrix) error {
	if sc.Predictor == nil {
		return errors.NewValueError("SplitConformalRegressor.Fit", "no point predictor configured")
	}
	if err := sc.Predictor.Fit(X, y); err != nil {
		return err
	}
	sc.SetFitted()
	return nil
}

// Calibrate scores the calibration split with the fitted predictor and
// computes the conformal quantile. Idempotent for a fixed calibration set
// and alpha: there is no randomness in this stage.
func (sc *SplitConformalRegressor) Calibrate(XCal, yCal mat.Matrix) error {
	if !sc.IsFitted() {
		return errors.NewNotFittedError("SplitConformalRegressor", "Calibrate")
	}

	pred, err := sc.Predictor.Predict(XCal)
	if err != nil {
		return errors.Wrap(err, "scoring calibration split")
	}

	n, _ := yCal.Dims()
	yTrue := make([]float64, n)
	yPred := make([]float64, n)
	for i := 0; i < n; i++ {
		yTrue[i] = yCal.At(i, 0)
		yPred[i] = pred.At(i, 0)
	}

	residuals, err := AbsoluteResiduals(yTrue, yPred)
	if err != nil {
		return err
	}

	rank, err := Rank(n, sc.Alpha)
	if err != nil {
		return err
	}
	q, err := Quantile(residuals, sc.Alpha)
	if err != nil {
		return err
	}

	if float64(n)*sc.Alpha < smallCalibrationFactor {
		errors.Warn(errors.NewSmallCalibrationWarning(n, sc.Alpha))
	}

	sc.quantile = q
	sc.calibrationSize = n
	sc.calibrated = true

	slog.Info("conformal calibration complete",
		slog.String(logattr.StageKey, "calibrate"),
		slog.Int(logattr.CalibrationSizeKey, n),
		slog.Float64(logattr.AlphaKey, sc.Alpha),
		slog.Int(logattr.QuantileRankKey, rank),
		slog.Float64(logattr.QuantileKey, q),
	)
	return nil
}

// Quantile returns the calibrated conformal quantile q.
func (sc *SplitConformalRegressor) Quantile() (float64, error) {
	if !sc.calibrated {
		return 0, errors.NewNotCalibratedError("SplitConformalRegressor", "Quantile")
	}
	return sc.quantile, nil
}

// CalibrationSize returns the number of calibration residuals behind q.
func (sc *SplitConformalRegressor) CalibrationSize() int {
	return sc.calibrationSize
}

// Predict returns the wrapped predictor's point predictions.
func (sc *SplitConformalRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !sc.IsFitted() {
		return nil, errors.NewNotFittedError("SplitConformalRegressor", "Predict")
	}
	return sc.Predictor.Predict(X)
}

// Score returns the wrapped predictor's R² on (X, y).
func (sc *SplitConformalRegressor) Score(X, y mat.Matrix) (float64, error) {
	if !sc.IsFitted() {
		return 0, errors.NewNotFittedError("SplitConformalRegressor", "Score")
	}
	return sc.Predictor.Score(X, y)
}

// PredictInterval returns point predictions with symmetric bounds
// lower = pred - q and upper = pred + q, each as an n×1 matrix. The bounds
// never consult the true label. Row construction parallelizes above a
// threshold; rows are independent so there are no ordering hazards.
func (sc *SplitConformalRegressor) PredictInterval(X mat.Matrix) (pred, lower, upper mat.Matrix, err error) {
	if !sc.IsFitted() {
		return nil, nil, nil, errors.NewNotFittedError("SplitConformalRegressor", "PredictInterval")
	}
	if !sc.calibrated {
		return nil, nil, nil, errors.NewNotCalibratedError("SplitConformalRegressor", "PredictInterval")
	}

	p, err := sc.Predictor.Predict(X)
	if err != nil {
		return nil, nil, nil, err
	}

	n, _ := p.Dims()
	lo := mat.NewDense(n, 1, nil)
	hi := mat.NewDense(n, 1, nil)
	parallel.ParallelizeWithThreshold(n, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			yHat := p.At(i, 0)
			lo.Set(i, 0, yHat-sc.quantile)
			hi.Set(i, 0, yHat+sc.quantile)
		}
	})

	return p, lo, hi, nil
}
