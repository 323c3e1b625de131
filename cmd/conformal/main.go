// Command conformal runs the split conformal prediction pipeline over a CSV
// dataset: partition, fit a point predictor, calibrate on the held-out
// split, and emit per-test-row intervals plus the empirical coverage.
package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/conformal/boosting"
	"github.com/YuminosukeSato/conformal/conformal"
	"github.com/YuminosukeSato/conformal/core/model"
	"github.com/YuminosukeSato/conformal/dataset"
	"github.com/YuminosukeSato/conformal/linear"
	"github.com/YuminosukeSato/conformal/metrics"
	"github.com/YuminosukeSato/conformal/pkg/errors"
	logattr "github.com/YuminosukeSato/conformal/pkg/log"
	"github.com/YuminosukeSato/conformal/preprocessing"
	"github.com/YuminosukeSato/conformal/split"
	"github.com/YuminosukeSato/conformal/visualization"
)

// config holds the pipeline settings. Environment variables (CONFORMAL_*)
// provide defaults; flags override them.
type config struct {
	Input       string  `envconfig:"INPUT"`
	Target      string  `envconfig:"TARGET"`
	Output      string  `envconfig:"OUTPUT"`
	Plot        string  `envconfig:"PLOT"`
	Model       string  `envconfig:"MODEL" default:"linear"`
	Alpha       float64 `envconfig:"ALPHA" default:"0.1"`
	TrainFrac   float64 `envconfig:"TRAIN" default:"0.6"`
	CalFrac     float64 `envconfig:"CAL" default:"0.2"`
	TestFrac    float64 `envconfig:"TEST" default:"0.2"`
	Seed        uint64  `envconfig:"SEED" default:"42"`
	Stratify    bool    `envconfig:"STRATIFY"`
	Bins        int     `envconfig:"STRATIFY_BINS" default:"10"`
	LogLevel    string  `envconfig:"LOG_LEVEL" default:"info"`
	Standardize bool    `envconfig:"STANDARDIZE" default:"true"`
}

func main() {
	cmd, err := newConformalCommand()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newConformalCommand() (*cobra.Command, error) {
	var cfg config
	if err := envconfig.Process("conformal", &cfg); err != nil {
		return nil, errors.Wrap(err, "reading CONFORMAL_* environment")
	}

	cmd := &cobra.Command{
		Use:   "conformal --input data.csv --target y [flags]",
		Short: "conformal computes split conformal prediction intervals for a regression dataset.",
		Long: `conformal partitions a labeled CSV dataset into train/calibration/test
splits, fits a point predictor on the train split, calibrates a conformal
quantile on the calibration split, and writes per-test-row intervals
(row, y_true, y_pred, lower, upper, covered) with the empirical coverage.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logattr.SetupLogger(cfg.LogLevel)
			if err := run(&cfg); err != nil {
				slog.Error("pipeline failed", logattr.ErrAttr(err))
				return err
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.Input, "input", cfg.Input, "path to the input CSV file (required)")
	flags.StringVar(&cfg.Target, "target", cfg.Target, "name of the target column (required)")
	flags.StringVar(&cfg.Output, "output", cfg.Output, "path for the interval table CSV (default: stdout)")
	flags.StringVar(&cfg.Plot, "plot", cfg.Plot, "optional path for an interval band plot PNG")
	flags.StringVar(&cfg.Model, "model", cfg.Model, "point predictor: linear or boosting")
	flags.Float64Var(&cfg.Alpha, "alpha", cfg.Alpha, "target miscoverage rate in (0,1)")
	flags.Float64Var(&cfg.TrainFrac, "train", cfg.TrainFrac, "train split proportion")
	flags.Float64Var(&cfg.CalFrac, "cal", cfg.CalFrac, "calibration split proportion")
	flags.Float64Var(&cfg.TestFrac, "test", cfg.TestFrac, "test split proportion")
	flags.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "random seed for the partitioner")
	flags.BoolVar(&cfg.Stratify, "stratify", cfg.Stratify, "stratify splits on the bucketed label")
	flags.IntVar(&cfg.Bins, "stratify-bins", cfg.Bins, "number of label buckets for stratification")
	flags.BoolVar(&cfg.Standardize, "standardize", cfg.Standardize, "standardize features before fitting (linear model)")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")

	// Values supplied through CONFORMAL_INPUT/CONFORMAL_TARGET already
	// satisfy the requirement; cobra only checks whether the flag was
	// passed, so mark it required only when the environment left it empty.
	for name, value := range map[string]string{"input": cfg.Input, "target": cfg.Target} {
		if value != "" {
			continue
		}
		if err := cmd.MarkFlagRequired(name); err != nil {
			return nil, err
		}
	}
	return cmd, nil
}

func newPredictor(name string, seed uint64) (model.Regressor, error) {
	switch name {
	case "linear":
		return linear.NewRegression(), nil
	case "boosting":
		return boosting.NewStumpRegressor().WithSeed(seed), nil
	default:
		return nil, errors.NewValidationError("model", "must be 'linear' or 'boosting'", name)
	}
}

func run(cfg *config) error {
	start := time.Now()

	table, err := dataset.LoadCSV(cfg.Input, cfg.Target)
	if err != nil {
		return err
	}

	X, yMat, err := table.DesignMatrix()
	if err != nil {
		return err
	}
	y := table.Target()
	nRows, nFeatures := X.Dims()

	splitter := split.NewSplitter(cfg.TrainFrac, cfg.CalFrac, cfg.TestFrac).WithSeed(cfg.Seed)
	if cfg.Stratify {
		splitter = splitter.WithStratification(cfg.Bins)
	}
	partition, err := splitter.Split(nRows, y)
	if err != nil {
		// Partition failure is fatal before any modeling begins.
		return err
	}

	slog.Info("dataset partitioned",
		slog.String(logattr.StageKey, "split"),
		slog.Int(logattr.SamplesKey, nRows),
		slog.Int(logattr.FeaturesKey, nFeatures),
		slog.Int(logattr.TrainSizeKey, len(partition.Train)),
		slog.Int(logattr.CalibrationSizeKey, len(partition.Calibration)),
		slog.Int(logattr.TestSizeKey, len(partition.Test)),
		slog.Uint64(logattr.SeedKey, cfg.Seed),
	)

	var features mat.Matrix = X
	if cfg.Standardize && cfg.Model == "linear" {
		var scaler model.Transformer = preprocessing.NewStandardScaler()
		if err := scaler.Fit(split.TakeRows(X, partition.Train)); err != nil {
			return err
		}
		features, err = scaler.Transform(X)
		if err != nil {
			return err
		}
	}

	predictor, err := newPredictor(cfg.Model, cfg.Seed)
	if err != nil {
		return err
	}
	regressor := conformal.NewSplitConformalRegressor(predictor, cfg.Alpha)

	XTrain := split.TakeRows(features, partition.Train)
	yTrain := takeColumn(yMat, partition.Train)
	if err := regressor.Fit(XTrain, yTrain); err != nil {
		return err
	}

	XCal := split.TakeRows(features, partition.Calibration)
	yCal := takeColumn(yMat, partition.Calibration)
	if err := regressor.Calibrate(XCal, yCal); err != nil {
		return err
	}

	XTest := split.TakeRows(features, partition.Test)
	pred, lower, upper, err := regressor.PredictInterval(XTest)
	if err != nil {
		return err
	}

	yTest := split.TakeValues(y, partition.Test)
	nTest := len(partition.Test)
	predVals := make([]float64, nTest)
	lowerVals := make([]float64, nTest)
	upperVals := make([]float64, nTest)
	for i := 0; i < nTest; i++ {
		predVals[i] = pred.At(i, 0)
		lowerVals[i] = lower.At(i, 0)
		upperVals[i] = upper.At(i, 0)
	}

	coverage, err := metrics.Coverage(yTest, lowerVals, upperVals)
	if err != nil {
		return err
	}
	meanWidth, err := metrics.MeanIntervalWidth(lowerVals, upperVals)
	if err != nil {
		return err
	}
	q, err := regressor.Quantile()
	if err != nil {
		return err
	}

	slog.Info("evaluation complete",
		slog.String(logattr.StageKey, "evaluate"),
		slog.String(logattr.ModelNameKey, cfg.Model),
		slog.Float64(logattr.AlphaKey, cfg.Alpha),
		slog.Float64(logattr.QuantileKey, q),
		slog.Float64(logattr.CoverageKey, coverage),
		slog.Float64(logattr.MeanWidthKey, meanWidth),
		slog.Int(logattr.TestSizeKey, nTest),
		slog.Int(logattr.DroppedRowsKey, table.DroppedRows),
		slog.Int64(logattr.DurationMsKey, time.Since(start).Milliseconds()),
	)

	out := io.Writer(os.Stdout)
	if cfg.Output != "" {
		f, err := os.Create(cfg.Output)
		if err != nil {
			return errors.Wrapf(err, "creating %s", cfg.Output)
		}
		defer f.Close()
		out = f
	}
	if err := writeIntervalTable(out, partition.Test, yTest, predVals, lowerVals, upperVals); err != nil {
		return err
	}

	if cfg.Plot != "" {
		if err := visualization.IntervalPlot(yTest, predVals, lowerVals, upperVals, cfg.Plot); err != nil {
			return err
		}
		slog.Info("interval plot written", slog.String("path", cfg.Plot))
	}

	return nil
}

// takeColumn copies the selected rows of an n×1 matrix.
func takeColumn(y mat.Matrix, indices []int) *mat.Dense {
	out := mat.NewDense(len(indices), 1, nil)
	for i, idx := range indices {
		out.Set(i, 0, y.At(idx, 0))
	}
	return out
}

func writeIntervalTable(out io.Writer, rows []int, yTrue, yPred, lower, upper []float64) error {
	w := csv.NewWriter(out)
	if err := w.Write([]string{"row", "y_true", "y_pred", "lower", "upper", "covered"}); err != nil {
		return errors.Wrap(err, "writing interval table header")
	}
	for i := range rows {
		covered := yTrue[i] >= lower[i] && yTrue[i] <= upper[i]
		record := []string{
			strconv.Itoa(rows[i]),
			formatFloat(yTrue[i]),
			formatFloat(yPred[i]),
			formatFloat(lower[i]),
			formatFloat(upper[i]),
			strconv.FormatBool(covered),
		}
		if err := w.Write(record); err != nil {
			return errors.Wrap(err, "writing interval table row")
		}
	}
	w.Flush()
	return errors.WithStack(w.Error())
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
