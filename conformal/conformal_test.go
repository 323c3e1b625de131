package conformal

import (
	"math"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/YuminosukeSato/conformal/pkg/errors"
)

func TestRank(t *testing.T) {
	tests := []struct {
		name    string
		n       int
		alpha   float64
		want    int
		wantErr bool
	}{
		{
			name:  "reference example n=100 alpha=0.1",
			n:     100,
			alpha: 0.1,
			want:  91, // ceil(0.9 * 101)
		},
		{
			name:  "exact integer product",
			n:     9,
			alpha: 0.1,
			want:  9, // ceil(0.9 * 10) = 9, right at n
		},
		{
			name:  "alpha near one clips to rank 1",
			n:     5,
			alpha: 0.999,
			want:  1,
		},
		{
			name:    "alpha too small for n is unachievable",
			n:       10,
			alpha:   0.01,
			wantErr: true, // ceil(0.99 * 11) = 11 > 10
		},
		{
			name:    "empty calibration set",
			n:       0,
			alpha:   0.1,
			wantErr: true,
		},
		{
			name:    "alpha zero rejected",
			n:       100,
			alpha:   0,
			wantErr: true,
		},
		{
			name:    "alpha one rejected",
			n:       100,
			alpha:   1,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Rank(tt.n, tt.alpha)

			if (err != nil) != tt.wantErr {
				t.Fatalf("Rank() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("Rank() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRankUnachievableErrorType(t *testing.T) {
	_, err := Rank(10, 0.01)
	var cue *errors.CoverageUnachievableError
	if !errors.As(err, &cue) {
		t.Fatalf("expected CoverageUnachievableError, got %v", err)
	}
	if cue.Required != 11 || cue.N != 10 {
		t.Errorf("Required = %d, N = %d; want 11, 10", cue.Required, cue.N)
	}
}

func TestQuantile(t *testing.T) {
	// Residuals 1..100 shuffled: the 91st smallest is 91.
	residuals := make([]float64, 100)
	for i := range residuals {
		residuals[i] = float64(i + 1)
	}
	rng := rand.New(rand.NewPCG(3, 3))
	rng.Shuffle(len(residuals), func(i, j int) {
		residuals[i], residuals[j] = residuals[j], residuals[i]
	})

	q, err := Quantile(residuals, 0.1)
	if err != nil {
		t.Fatalf("Quantile() error = %v", err)
	}
	if q != 91 {
		t.Errorf("Quantile() = %v, want 91", q)
	}
}

func TestQuantileDoesNotMutateInput(t *testing.T) {
	residuals := []float64{3, 1, 2}
	if _, err := Quantile(residuals, 0.5); err != nil {
		t.Fatalf("Quantile() error = %v", err)
	}
	if residuals[0] != 3 || residuals[1] != 1 || residuals[2] != 2 {
		t.Errorf("input slice mutated: %v", residuals)
	}
}

func TestQuantileIdempotent(t *testing.T) {
	rng := rand.New(rand.NewPCG(11, 11))
	residuals := make([]float64, 257)
	for i := range residuals {
		residuals[i] = math.Abs(rng.NormFloat64())
	}

	first, err := Quantile(residuals, 0.1)
	if err != nil {
		t.Fatalf("Quantile() error = %v", err)
	}
	for k := 0; k < 5; k++ {
		again, err := Quantile(residuals, 0.1)
		if err != nil {
			t.Fatalf("Quantile() error = %v", err)
		}
		if again != first {
			t.Fatalf("calibration is not idempotent: %v != %v", again, first)
		}
	}
}

func TestAbsoluteResiduals(t *testing.T) {
	got, err := AbsoluteResiduals([]float64{1, 2, 3}, []float64{2, 2, 1})
	if err != nil {
		t.Fatalf("AbsoluteResiduals() error = %v", err)
	}
	want := []float64{1, 0, 2}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("residual[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	if _, err := AbsoluteResiduals([]float64{1}, []float64{1, 2}); err == nil {
		t.Error("expected dimension error for mismatched inputs")
	}
	if _, err := AbsoluteResiduals(nil, nil); err == nil {
		t.Error("expected error for empty inputs")
	}
}

// offsetPredictor is a stub point predictor returning the first feature plus
// a fixed offset. Fit is a no-op beyond validation.
type offsetPredictor struct {
	offset float64
	fitted bool
}

func (p *offsetPredictor) Fit(X, y mat.Matrix) error {
	p.fitted = true
	return nil
}

func (p *offsetPredictor) Predict(X mat.Matrix) (mat.Matrix, error) {
	r, _ := X.Dims()
	out := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		out.Set(i, 0, X.At(i, 0)+p.offset)
	}
	return out, nil
}

func (p *offsetPredictor) Score(X, y mat.Matrix) (float64, error) {
	return 0, nil
}

func TestSplitConformalRegressorLifecycle(t *testing.T) {
	reg := NewSplitConformalRegressor(&offsetPredictor{}, 0.2)
	X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	y := mat.NewDense(4, 1, []float64{1, 2, 3, 4})

	if err := reg.Calibrate(X, y); err == nil {
		t.Error("Calibrate before Fit should fail")
	} else {
		var nfe *errors.NotFittedError
		if !errors.As(err, &nfe) {
			t.Errorf("expected NotFittedError, got %v", err)
		}
	}

	if err := reg.Fit(X, y); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	if _, _, _, err := reg.PredictInterval(X); err == nil {
		t.Error("PredictInterval before Calibrate should fail")
	} else {
		var nce *errors.NotCalibratedError
		if !errors.As(err, &nce) {
			t.Errorf("expected NotCalibratedError, got %v", err)
		}
	}

	if err := reg.Calibrate(X, y); err != nil {
		t.Fatalf("Calibrate() error = %v", err)
	}
	if _, _, _, err := reg.PredictInterval(X); err != nil {
		t.Errorf("PredictInterval() error = %v", err)
	}
}

func TestPredictIntervalSymmetry(t *testing.T) {
	// Predictor is off by a constant 2, so every calibration residual is 2
	// and q = 2 at any feasible alpha.
	reg := NewSplitConformalRegressor(&offsetPredictor{offset: 2}, 0.2)

	n := 20
	X := mat.NewDense(n, 1, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i))
		y.Set(i, 0, float64(i))
	}

	if err := reg.Fit(X, y); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	if err := reg.Calibrate(X, y); err != nil {
		t.Fatalf("Calibrate() error = %v", err)
	}

	q, err := reg.Quantile()
	if err != nil {
		t.Fatalf("Quantile() error = %v", err)
	}
	if q != 2 {
		t.Fatalf("q = %v, want 2", q)
	}

	pred, lower, upper, err := reg.PredictInterval(X)
	if err != nil {
		t.Fatalf("PredictInterval() error = %v", err)
	}
	for i := 0; i < n; i++ {
		up := upper.At(i, 0) - pred.At(i, 0)
		down := pred.At(i, 0) - lower.At(i, 0)
		if math.Abs(up-q) > 1e-12 || math.Abs(down-q) > 1e-12 {
			t.Fatalf("row %d: bounds not symmetric: up=%v down=%v q=%v", i, up, down, q)
		}
	}
}

func TestCalibrateUnachievableAlpha(t *testing.T) {
	reg := NewSplitConformalRegressor(&offsetPredictor{offset: 1}, 0.01)
	X := mat.NewDense(10, 1, nil)
	y := mat.NewDense(10, 1, nil)

	if err := reg.Fit(X, y); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	err := reg.Calibrate(X, y)
	var cue *errors.CoverageUnachievableError
	if !errors.As(err, &cue) {
		t.Fatalf("expected CoverageUnachievableError, got %v", err)
	}
}

// TestEmpiricalCoverage draws i.i.d. Gaussian residual noise and checks that
// coverage over many repeated calibration/test draws converges to 1-alpha
// within sampling error.
func TestEmpiricalCoverage(t *testing.T) {
	const (
		alpha = 0.1
		nCal  = 199 // (1-alpha)(n+1) = 180 exactly
		nTest = 500
		reps  = 40
	)

	noise := distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewPCG(99, 99)}

	var coverageSum float64
	for rep := 0; rep < reps; rep++ {
		residuals := make([]float64, nCal)
		for i := range residuals {
			residuals[i] = math.Abs(noise.Rand())
		}
		q, err := Quantile(residuals, alpha)
		if err != nil {
			t.Fatalf("Quantile() error = %v", err)
		}

		covered := 0
		for i := 0; i < nTest; i++ {
			if math.Abs(noise.Rand()) <= q {
				covered++
			}
		}
		coverageSum += float64(covered) / float64(nTest)
	}

	meanCoverage := coverageSum / reps
	if math.Abs(meanCoverage-(1-alpha)) > 0.02 {
		t.Errorf("mean coverage = %.4f, want within 0.02 of %.2f", meanCoverage, 1-alpha)
	}
}
