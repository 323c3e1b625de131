package metrics

import (
	"github.com/YuminosukeSato/conformal/pkg/errors"
)

// Coverage returns the fraction of true labels falling inside
// [lower_i, upper_i]. For a calibrated split conformal predictor this should
// approximate 1-alpha, with finite-sample variance on small test sets.
func Coverage(yTrue, lower, upper []float64) (float64, error) {
	n := len(yTrue)
	if n == 0 {
		return 0, errors.NewValueError("Coverage", "empty input")
	}
	if len(lower) != n {
		return 0, errors.NewDimensionError("Coverage", n, len(lower), 0)
	}
	if len(upper) != n {
		return 0, errors.NewDimensionError("Coverage", n, len(upper), 0)
	}

	covered := 0
	for i := 0; i < n; i++ {
		if yTrue[i] >= lower[i] && yTrue[i] <= upper[i] {
			covered++
		}
	}
	return float64(covered) / float64(n), nil
}

// MeanIntervalWidth returns the average of upper_i - lower_i. Narrower
// intervals at the same coverage mean a sharper predictor.
func MeanIntervalWidth(lower, upper []float64) (float64, error) {
	n := len(lower)
	if n == 0 {
		return 0, errors.NewValueError("MeanIntervalWidth", "empty input")
	}
	if len(upper) != n {
		return 0, errors.NewDimensionError("MeanIntervalWidth", n, len(upper), 0)
	}

	var sum float64
	for i := 0; i < n; i++ {
		if upper[i] < lower[i] {
			return 0, errors.NewValueError("MeanIntervalWidth", "upper bound below lower bound")
		}
		sum += upper[i] - lower[i]
	}
	return sum / float64(n), nil
}
