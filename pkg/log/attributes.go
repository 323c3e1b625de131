// Package log defines standard attribute keys for the conformal pipeline.
//
// Using these keys keeps log lines from the partitioner, predictors,
// calibrator and coverage checker filterable by the same field names.

package log

// Pipeline context keys.
const (
	// ModelNameKey identifies the point predictor type.
	// Examples: "LinearRegression", "StumpRegressor"
	ModelNameKey = "model.name"

	// StageKey names the pipeline stage emitting the record.
	// Standard values: "load", "split", "fit", "calibrate", "predict", "evaluate"
	StageKey = "pipeline.stage"
)

// Data shape keys.
const (
	// SamplesKey is the number of rows being processed.
	SamplesKey = "data.samples"

	// FeaturesKey is the number of design-matrix columns.
	FeaturesKey = "data.features"

	// DroppedRowsKey counts rows removed during ingestion.
	DroppedRowsKey = "data.dropped_rows"

	// TrainSizeKey, CalibrationSizeKey and TestSizeKey record the split sizes.
	TrainSizeKey       = "split.train_size"
	CalibrationSizeKey = "split.calibration_size"
	TestSizeKey        = "split.test_size"

	// SeedKey records the partitioner seed for reproducibility.
	SeedKey = "split.seed"
)

// Conformal calibration keys.
const (
	// AlphaKey is the target miscoverage rate.
	AlphaKey = "conformal.alpha"

	// QuantileKey is the calibrated conformal quantile q.
	QuantileKey = "conformal.quantile"

	// QuantileRankKey is the order-statistic rank ceil((1-alpha)(n+1)).
	QuantileRankKey = "conformal.rank"

	// CoverageKey is the empirical coverage on the test split.
	CoverageKey = "conformal.coverage"

	// MeanWidthKey is the mean interval width on the test split.
	MeanWidthKey = "conformal.mean_width"
)

// Performance keys.
const (
	// DurationMsKey records the execution time of a stage in milliseconds.
	DurationMsKey = "perf.duration_ms"
)
