package split

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/conformal/pkg/errors"
)

func TestSplitDisjointAndExhaustive(t *testing.T) {
	const n = 1000
	part, err := NewSplitter(0.6, 0.2, 0.2).WithSeed(1).Split(n, nil)
	require.NoError(t, err)

	seen := make(map[int]int)
	for _, idx := range part.Train {
		seen[idx]++
	}
	for _, idx := range part.Calibration {
		seen[idx]++
	}
	for _, idx := range part.Test {
		seen[idx]++
	}

	require.Len(t, seen, n, "splits must cover every row")
	for idx, count := range seen {
		require.Equal(t, 1, count, "row %d assigned %d times", idx, count)
	}

	assert.Equal(t, 600, len(part.Train))
	assert.Equal(t, 200, len(part.Calibration))
	assert.Equal(t, 200, len(part.Test))
}

func TestSplitReproducible(t *testing.T) {
	a, err := NewSplitter(0.5, 0.25, 0.25).WithSeed(42).Split(100, nil)
	require.NoError(t, err)
	b, err := NewSplitter(0.5, 0.25, 0.25).WithSeed(42).Split(100, nil)
	require.NoError(t, err)

	assert.Equal(t, a.Train, b.Train)
	assert.Equal(t, a.Calibration, b.Calibration)
	assert.Equal(t, a.Test, b.Test)

	c, err := NewSplitter(0.5, 0.25, 0.25).WithSeed(43).Split(100, nil)
	require.NoError(t, err)
	assert.NotEqual(t, a.Train, c.Train, "different seeds should draw different splits")
}

func TestSplitInvalidProportions(t *testing.T) {
	tests := []struct {
		name                string
		pTrain, pCal, pTest float64
	}{
		{"zero train", 0, 0.5, 0.5},
		{"negative calibration", 0.7, -0.1, 0.4},
		{"sum below one", 0.3, 0.3, 0.3},
		{"sum above one", 0.5, 0.4, 0.3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSplitter(tt.pTrain, tt.pCal, tt.pTest).Split(100, nil)
			require.Error(t, err)
			var ve *errors.ValidationError
			assert.True(t, errors.As(err, &ve), "want ValidationError, got %v", err)
		})
	}
}

func TestSplitEmptySplitFails(t *testing.T) {
	// 4 rows at 90/5/5: calibration and test round down to zero rows.
	_, err := NewSplitter(0.9, 0.05, 0.05).Split(4, nil)
	require.Error(t, err)
	var ese *errors.EmptySplitError
	require.True(t, errors.As(err, &ese), "want EmptySplitError, got %v", err)
}

func TestSplitTooFewRows(t *testing.T) {
	_, err := NewSplitter(0.6, 0.2, 0.2).Split(2, nil)
	require.Error(t, err)
}

func TestStratifiedSplitPreservesLabelShares(t *testing.T) {
	// Bimodal labels: half around 0, half around 100. With stratification
	// each split should keep roughly half from each mode.
	const n = 1000
	rng := rand.New(rand.NewPCG(7, 7))
	y := make([]float64, n)
	for i := range y {
		if i%2 == 0 {
			y[i] = rng.Float64()
		} else {
			y[i] = 100 + rng.Float64()
		}
	}

	part, err := NewSplitter(0.6, 0.2, 0.2).WithSeed(5).WithStratification(2).Split(n, y)
	require.NoError(t, err)

	highShare := func(indices []int) float64 {
		high := 0
		for _, idx := range indices {
			if y[idx] > 50 {
				high++
			}
		}
		return float64(high) / float64(len(indices))
	}

	for name, indices := range map[string][]int{
		"train":       part.Train,
		"calibration": part.Calibration,
		"test":        part.Test,
	} {
		share := highShare(indices)
		assert.InDeltaf(t, 0.5, share, 0.02, "%s split high-label share = %v", name, share)
	}
}

func TestStratifiedSplitDimensionMismatch(t *testing.T) {
	_, err := NewSplitter(0.6, 0.2, 0.2).WithStratification(4).Split(100, make([]float64, 50))
	require.Error(t, err)
	var de *errors.DimensionError
	assert.True(t, errors.As(err, &de))
}

func TestStratifiedSplitConstantLabels(t *testing.T) {
	// Constant labels collapse to one bucket; the split must still work.
	y := make([]float64, 100)
	part, err := NewSplitter(0.6, 0.2, 0.2).WithSeed(3).WithStratification(10).Split(100, y)
	require.NoError(t, err)
	assert.Equal(t, 100, len(part.Train)+len(part.Calibration)+len(part.Test))
}

func TestTakeRows(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, 2,
		3, 4,
		5, 6,
		7, 8,
	})

	sub := TakeRows(X, []int{2, 0})
	require.Equal(t, 2, rowCount(sub))
	assert.Equal(t, 5.0, sub.At(0, 0))
	assert.Equal(t, 6.0, sub.At(0, 1))
	assert.Equal(t, 1.0, sub.At(1, 0))
}

func TestTakeValues(t *testing.T) {
	got := TakeValues([]float64{10, 20, 30, 40}, []int{3, 1})
	assert.Equal(t, []float64{40, 20}, got)
}

func TestBucketByLabelEqualFrequency(t *testing.T) {
	y := make([]float64, 100)
	for i := range y {
		y[i] = float64(i)
	}
	groups := bucketByLabel(100, y, 4)
	require.Len(t, groups, 4)
	for _, g := range groups {
		assert.Equal(t, 25, len(g))
	}

	// Bins within a group must be contiguous in label order.
	for _, g := range groups {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, idx := range g {
			lo = math.Min(lo, y[idx])
			hi = math.Max(hi, y[idx])
		}
		assert.Equal(t, 24.0, hi-lo)
	}
}

func rowCount(m mat.Matrix) int {
	r, _ := m.Dims()
	return r
}
