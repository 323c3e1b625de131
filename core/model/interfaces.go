// Package model defines the estimator state machine and the interfaces a
// point predictor must satisfy to be wrapped by the conformal layer.
package model

import (
	"gonum.org/v1/gonum/mat"
)

// Fitter is the interface for trainable models.
type Fitter interface {
	// Fit trains the model on X (n×d) against y (n×1).
	Fit(X, y mat.Matrix) error
}

// Predictor is the interface for models that produce point predictions.
type Predictor interface {
	// Predict returns an n×1 matrix of predictions for X.
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Scorer is the interface for models that can compute a score.
type Scorer interface {
	// Score returns the coefficient of determination R^2 of the prediction.
	Score(X mat.Matrix, y mat.Matrix) (float64, error)
}

// Regressor combines the interfaces a point predictor must satisfy. The
// conformal layer is agnostic to what is behind it (linear model, boosted
// trees, anything with Fit and Predict).
type Regressor interface {
	Fitter
	Predictor
	Scorer
}

// IntervalPredictor is the interface for models that emit prediction
// intervals alongside point predictions.
type IntervalPredictor interface {
	// PredictInterval returns point predictions with lower and upper bounds,
	// each as an n×1 matrix.
	PredictInterval(X mat.Matrix) (pred, lower, upper mat.Matrix, err error)
}

// Transformer is the interface for stateless-after-fit feature transforms
// such as standard scaling.
type Transformer interface {
	Fit(X mat.Matrix) error
	Transform(X mat.Matrix) (mat.Matrix, error)
}
