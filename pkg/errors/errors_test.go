package errors

import (
	"strings"
	"testing"
)

func TestNotFittedError(t *testing.T) {
	err := NewNotFittedError("SplitConformalRegressor", "PredictInterval")

	var nfe *NotFittedError
	if !As(err, &nfe) {
		t.Fatalf("expected NotFittedError, got %T", err)
	}
	if nfe.ModelName != "SplitConformalRegressor" {
		t.Errorf("ModelName = %q", nfe.ModelName)
	}
	if !strings.Contains(err.Error(), "Call Fit()") {
		t.Errorf("message missing remediation hint: %q", err.Error())
	}
}

func TestCoverageUnachievableError(t *testing.T) {
	err := NewCoverageUnachievableError(0.01, 10, 11)

	var cue *CoverageUnachievableError
	if !As(err, &cue) {
		t.Fatalf("expected CoverageUnachievableError, got %T", err)
	}
	if cue.Required != 11 || cue.N != 10 {
		t.Errorf("Required = %d, N = %d", cue.Required, cue.N)
	}
	if !strings.Contains(err.Error(), "unbounded") {
		t.Errorf("message should mention unbounded interval: %q", err.Error())
	}
}

func TestEmptySplitError(t *testing.T) {
	err := NewEmptySplitError("calibration", 0, 0.2)

	var ese *EmptySplitError
	if !As(err, &ese) {
		t.Fatalf("expected EmptySplitError, got %T", err)
	}
	if ese.Split != "calibration" {
		t.Errorf("Split = %q", ese.Split)
	}
}

func TestWarnUsesInstalledHandler(t *testing.T) {
	var captured error
	SetWarningHandler(func(w error) { captured = w })
	defer SetWarningHandler(func(w error) {})

	w := NewDroppedRowsWarning("data.csv", 3, 100)
	Warn(w)

	if captured == nil {
		t.Fatal("handler not invoked")
	}
	if !strings.Contains(captured.Error(), "dropped 3 of 100") {
		t.Errorf("unexpected warning text: %q", captured.Error())
	}
}

func TestWarnPrefersZerologSink(t *testing.T) {
	var viaHandler, viaSink error
	SetWarningHandler(func(w error) { viaHandler = w })
	SetZerologWarnFunc(func(w error) { viaSink = w })
	defer func() {
		SetZerologWarnFunc(nil)
		SetWarningHandler(func(w error) {})
	}()

	Warn(NewSmallCalibrationWarning(5, 0.1))

	if viaSink == nil {
		t.Fatal("zerolog sink not invoked")
	}
	if viaHandler != nil {
		t.Error("plain handler should not run when a sink is installed")
	}
}

func TestWrapPreservesType(t *testing.T) {
	base := NewDimensionError("Coverage", 10, 8, 0)
	wrapped := Wrap(base, "checking empirical coverage")

	var de *DimensionError
	if !As(wrapped, &de) {
		t.Fatal("wrapping lost the DimensionError type")
	}
	if de.Expected != 10 || de.Got != 8 {
		t.Errorf("Expected = %d, Got = %d", de.Expected, de.Got)
	}
}
