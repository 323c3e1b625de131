// Package conformal is the root of a split conformal prediction library for
// regression in Go.
//
// Split conformal prediction is a model-agnostic method producing
// distribution-free prediction intervals: a point predictor is fitted on a
// train split, its absolute residuals are scored on a disjoint calibration
// split, and the empirically-adjusted quantile of those residuals widens
// every test prediction into an interval with marginal coverage 1-alpha.
//
// # Quick Start
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//
//	    "github.com/YuminosukeSato/conformal/conformal"
//	    "github.com/YuminosukeSato/conformal/linear"
//	    "github.com/YuminosukeSato/conformal/split"
//	)
//
//	func main() {
//	    // X, y: labeled data as gonum matrices; y is n×1.
//	    part, err := split.NewSplitter(0.6, 0.2, 0.2).WithSeed(42).Split(n, labels)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    reg := conformal.NewSplitConformalRegressor(linear.NewRegression(), 0.1)
//	    if err := reg.Fit(split.TakeRows(X, part.Train), yTrain); err != nil {
//	        log.Fatal(err)
//	    }
//	    if err := reg.Calibrate(split.TakeRows(X, part.Calibration), yCal); err != nil {
//	        log.Fatal(err)
//	    }
//
//	    pred, lower, upper, err := reg.PredictInterval(split.TakeRows(X, part.Test))
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(pred, lower, upper)
//	}
//
// # Packages
//
//   - conformal: calibrator and interval construction
//   - split: reproducible train/calibration/test partitioning
//   - linear, boosting: built-in point predictors; any
//     core/model.Regressor plugs in
//   - dataset: CSV ingestion and design-matrix encoding
//   - metrics: point metrics plus coverage and interval width
//   - visualization: interval band plots
//
// The cmd/conformal command runs the whole pipeline over a CSV file.
package conformal
