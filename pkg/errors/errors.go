// Package errors provides structured error handling and a warning system for
// the conformal prediction pipeline. It is inspired by scikit-learn's
// warning/exception hierarchy and carries stack traces via cockroachdb/errors.
package errors

import (
	"fmt"
	"log"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	Global warning handling
//
// ===========================================================================
var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		// Default handler logs to standard error.
		log.Printf("Conformal-Warning: %v\n", w)
	}
	// zerolog sink, initialized lazily to avoid an import cycle.
	zerologWarnFunc func(warning error)
)

// SetWarningHandler installs the library-wide warning handler, controlling
// how warnings such as SmallCalibrationWarning are processed.
//
// Example:
//
//	errors.SetWarningHandler(func(w error) {
//	    // ignore warnings
//	})
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc installs a zerolog-backed warning sink.
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn emits a warning. When a zerolog sink is installed it is preferred;
// otherwise the plain handler receives the warning.
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	if zerologWarnFunc != nil {
		zerologWarnFunc(w)
		return
	}

	if warningHandler != nil {
		warningHandler(w)
	}
}

// ===========================================================================
//
//	Warning types
//
// ===========================================================================

// DroppedRowsWarning is raised when rows with missing or unparsable values
// are removed during dataset ingestion. Dropping is allowed, silence is not.
type DroppedRowsWarning struct {
	Source  string
	Dropped int
	Total   int
}

func (w *DroppedRowsWarning) Error() string {
	return fmt.Sprintf("dropped %d of %d rows from %s due to missing or invalid values", w.Dropped, w.Total, w.Source)
}

// MarshalZerologObject adds structured warning fields to a zerolog event.
func (w *DroppedRowsWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("source", w.Source).
		Int("dropped", w.Dropped).
		Int("total", w.Total).
		Str("type", "DroppedRowsWarning")
}

// NewDroppedRowsWarning creates a new DroppedRowsWarning.
func NewDroppedRowsWarning(source string, dropped, total int) *DroppedRowsWarning {
	return &DroppedRowsWarning{Source: source, Dropped: dropped, Total: total}
}

// SmallCalibrationWarning is raised when the calibration split admits a
// finite quantile but is too small for the empirical coverage to be a
// reliable estimate of the nominal rate.
type SmallCalibrationWarning struct {
	N     int
	Alpha float64
}

func (w *SmallCalibrationWarning) Error() string {
	return fmt.Sprintf("calibration set of size %d is small for alpha=%g; empirical coverage will be noisy", w.N, w.Alpha)
}

// MarshalZerologObject adds structured warning fields to a zerolog event.
func (w *SmallCalibrationWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Int("calibration_size", w.N).
		Float64("alpha", w.Alpha).
		Str("type", "SmallCalibrationWarning")
}

// NewSmallCalibrationWarning creates a new SmallCalibrationWarning.
func NewSmallCalibrationWarning(n int, alpha float64) *SmallCalibrationWarning {
	return &SmallCalibrationWarning{N: n, Alpha: alpha}
}

// ===========================================================================
//
//	Structured error types
//
// ===========================================================================

// NotFittedError is returned when Predict, Calibrate or Score is called on a
// model that has not been fitted yet.
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("conformal: %s: this model is not fitted yet. Call Fit() before using %s()", e.ModelName, e.Method)
}

// MarshalZerologObject adds structured error fields to a zerolog event.
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError creates a NotFittedError with a stack trace attached.
func NewNotFittedError(modelName, method string) error {
	err := &NotFittedError{ModelName: modelName, Method: method}
	return errors.WithStack(err)
}

// NotCalibratedError is returned when PredictInterval is called before
// Calibrate has produced a conformal quantile.
type NotCalibratedError struct {
	ModelName string
	Method    string
}

func (e *NotCalibratedError) Error() string {
	return fmt.Sprintf("conformal: %s: no conformal quantile available. Call Calibrate() before using %s()", e.ModelName, e.Method)
}

// MarshalZerologObject adds structured error fields to a zerolog event.
func (e *NotCalibratedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("method", e.Method).
		Str("type", "NotCalibratedError")
}

// NewNotCalibratedError creates a NotCalibratedError with a stack trace attached.
func NewNotCalibratedError(modelName, method string) error {
	err := &NotCalibratedError{ModelName: modelName, Method: method}
	return errors.WithStack(err)
}

// CoverageUnachievableError is returned when the requested coverage cannot
// be met by any finite quantile: ceil((1-alpha)(n+1)) exceeds the number of
// calibration residuals, so the interval would have to be unbounded.
type CoverageUnachievableError struct {
	Alpha    float64
	N        int
	Required int
}

func (e *CoverageUnachievableError) Error() string {
	return fmt.Sprintf("conformal: coverage 1-alpha=%g is unachievable with %d calibration samples (requires rank %d > n); the interval would be unbounded. Increase the calibration set or alpha", 1-e.Alpha, e.N, e.Required)
}

// MarshalZerologObject adds structured error fields to a zerolog event.
func (e *CoverageUnachievableError) MarshalZerologObject(event *zerolog.Event) {
	event.Float64("alpha", e.Alpha).
		Int("calibration_size", e.N).
		Int("required_rank", e.Required).
		Str("type", "CoverageUnachievableError")
}

// NewCoverageUnachievableError creates a CoverageUnachievableError with a
// stack trace attached.
func NewCoverageUnachievableError(alpha float64, n, required int) error {
	err := &CoverageUnachievableError{Alpha: alpha, N: n, Required: required}
	return errors.WithStack(err)
}

// EmptySplitError is returned by the partitioner when the requested
// proportions leave one of the train/calibration/test splits without rows.
type EmptySplitError struct {
	Split      string
	NRows      int
	Proportion float64
}

func (e *EmptySplitError) Error() string {
	return fmt.Sprintf("conformal: %s split is empty (%d rows at proportion %g); every split must contain at least one row", e.Split, e.NRows, e.Proportion)
}

// MarshalZerologObject adds structured error fields to a zerolog event.
func (e *EmptySplitError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("split", e.Split).
		Int("rows", e.NRows).
		Float64("proportion", e.Proportion).
		Str("type", "EmptySplitError")
}

// NewEmptySplitError creates an EmptySplitError with a stack trace attached.
func NewEmptySplitError(split string, nRows int, proportion float64) error {
	err := &EmptySplitError{Split: split, NRows: nRows, Proportion: proportion}
	return errors.WithStack(err)
}

// DimensionError is returned when input dimensions do not match expectations.
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns/features
}

func (e *DimensionError) Error() string {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	return fmt.Sprintf("conformal: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, axisName, e.Expected, e.Got)
}

// MarshalZerologObject adds structured error fields to a zerolog event.
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("axis_name", axisName).
		Str("type", "DimensionError")
}

// NewDimensionError creates a DimensionError with a stack trace attached.
func NewDimensionError(op string, expected, got, axis int) error {
	err := &DimensionError{Op: op, Expected: expected, Got: got, Axis: axis}
	return errors.WithStack(err)
}

// ValidationError is returned when a parameter fails validation.
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("conformal: validation failed for parameter '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

// MarshalZerologObject adds structured error fields to a zerolog event.
func (e *ValidationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ValidationError")
}

// NewValidationError creates a ValidationError with a stack trace attached.
func NewValidationError(param, reason string, value interface{}) error {
	err := &ValidationError{ParamName: param, Reason: reason, Value: value}
	return errors.WithStack(err)
}

// ValueError is returned when an argument value is unusable for an operation.
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("conformal: %s: %s", e.Op, e.Message)
}

// NewValueError creates a ValueError with a stack trace attached.
func NewValueError(op, message string) error {
	err := &ValueError{Op: op, Message: message}
	return errors.WithStack(err)
}

// ModelError is a general error raised by a model operation.
type ModelError struct {
	Op   string
	Kind string
	Err  error
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("conformal: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("conformal: %s: %s", e.Op, e.Kind)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// NewModelError creates a ModelError with a stack trace attached.
func NewModelError(op, kind string, err error) error {
	modelErr := &ModelError{Op: op, Kind: kind, Err: err}
	return errors.WithStack(modelErr)
}

// ===========================================================================
//
//	cockroachdb/errors wrappers
//
// ===========================================================================

// Is reports whether err matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As reports whether err can be assigned to target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with a message.
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf wraps an error with a format string.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New creates a new error.
func New(message string) error {
	return errors.New(message)
}

// Newf creates a new formatted error.
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack attaches a stack trace to an error.
func WithStack(err error) error {
	return errors.WithStack(err)
}

// ===========================================================================
//
//	Common error variables
//
// ===========================================================================

var (
	// ErrEmptyData is returned when empty data is passed.
	ErrEmptyData = New("empty data")

	// ErrSingularMatrix is returned when a design matrix is rank-deficient.
	ErrSingularMatrix = New("singular matrix")
)
