// Package boosting provides a gradient-boosted regression model over
// depth-1 trees (stumps). It exists as a second, nonlinear point predictor
// behind the conformal layer; it is not a general-purpose GBM.
package boosting

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/conformal/core/model"
	"github.com/YuminosukeSato/conformal/pkg/errors"
)

// stump is a single depth-1 regression tree.
type stump struct {
	feature   int
	threshold float64
	left      float64 // prediction for x[feature] <= threshold
	right     float64
}

func (s *stump) predict(X mat.Matrix, row int) float64 {
	if X.At(row, s.feature) <= s.threshold {
		return s.left
	}
	return s.right
}

// StumpRegressor fits an additive ensemble of regression stumps to the
// squared-error gradient, scikit-learn GradientBoostingRegressor style.
type StumpRegressor struct {
	model.BaseEstimator

	// Hyperparameters.
	Rounds          int     // number of boosting rounds
	LearningRate    float64 // shrinkage applied to each stump
	MinChildSamples int     // minimum rows on each side of a split
	Subsample       float64 // row subsample ratio per round, in (0, 1]
	Seed            uint64  // subsampling seed

	// Fitted state.
	baseValue float64
	stumps    []stump
	nFeatures int
}

// NewStumpRegressor creates a regressor with default parameters.
func NewStumpRegressor() *StumpRegressor {
	return &StumpRegressor{
		Rounds:          100,
		LearningRate:    0.1,
		MinChildSamples: 5,
		Subsample:       1.0,
		Seed:            42,
	}
}

// WithRounds sets the number of boosting rounds.
func (gb *StumpRegressor) WithRounds(n int) *StumpRegressor {
	gb.Rounds = n
	return gb
}

// WithLearningRate sets the shrinkage rate.
func (gb *StumpRegressor) WithLearningRate(lr float64) *StumpRegressor {
	gb.LearningRate = lr
	return gb
}

// WithMinChildSamples sets the minimum rows per split side.
func (gb *StumpRegressor) WithMinChildSamples(n int) *StumpRegressor {
	gb.MinChildSamples = n
	return gb
}

// WithSubsample sets the per-round row subsample ratio.
func (gb *StumpRegressor) WithSubsample(ratio float64) *StumpRegressor {
	gb.Subsample = ratio
	return gb
}

// WithSeed sets the subsampling seed.
func (gb *StumpRegressor) WithSeed(seed uint64) *StumpRegressor {
	gb.Seed = seed
	return gb
}

func (gb *StumpRegressor) validate() error {
	if gb.Rounds < 1 {
		return errors.NewValidationError("rounds", "must be at least 1", gb.Rounds)
	}
	if gb.LearningRate <= 0 || gb.LearningRate > 1 {
		return errors.NewValidationError("learning_rate", "must be in (0, 1]", gb.LearningRate)
	}
	if gb.Subsample <= 0 || gb.Subsample > 1 {
		return errors.NewValidationError("subsample", "must be in (0, 1]", gb.Subsample)
	}
	if gb.MinChildSamples < 1 {
		return errors.NewValidationError("min_child_samples", "must be at least 1", gb.MinChildSamples)
	}
	return nil
}

// Fit trains the ensemble on X (n×d) against y (n×1).
func (gb *StumpRegressor) Fit(X, y mat.Matrix) error {
	if err := gb.validate(); err != nil {
		return err
	}

	n, d := X.Dims()
	ry, cy := y.Dims()
	if n == 0 || d == 0 {
		return errors.NewModelError("StumpRegressor.Fit", "empty data", errors.ErrEmptyData)
	}
	if ry != n {
		return errors.NewDimensionError("StumpRegressor.Fit", n, ry, 0)
	}
	if cy != 1 {
		return errors.NewValueError("StumpRegressor.Fit", "y must be a column vector")
	}

	target := make([]float64, n)
	for i := 0; i < n; i++ {
		target[i] = y.At(i, 0)
	}

	gb.baseValue = mean(target)
	gb.nFeatures = d
	gb.stumps = gb.stumps[:0]

	// Per-feature row order, sorted once.
	orders := make([][]int, d)
	for j := 0; j < d; j++ {
		order := make([]int, n)
		for i := range order {
			order[i] = i
		}
		sort.Slice(order, func(a, b int) bool { return X.At(order[a], j) < X.At(order[b], j) })
		orders[j] = order
	}

	current := make([]float64, n)
	for i := range current {
		current[i] = gb.baseValue
	}
	residual := make([]float64, n)
	rng := rand.New(rand.NewPCG(gb.Seed, gb.Seed))

	for round := 0; round < gb.Rounds; round++ {
		for i := 0; i < n; i++ {
			residual[i] = target[i] - current[i]
		}

		inBag := gb.sampleRows(n, rng)
		best, ok := gb.bestStump(X, residual, orders, inBag)
		if !ok {
			// No admissible split left; the ensemble has converged.
			break
		}

		gb.stumps = append(gb.stumps, best)
		for i := 0; i < n; i++ {
			current[i] += gb.LearningRate * best.predict(X, i)
		}
	}

	gb.SetFitted()
	return nil
}

// sampleRows returns the in-bag mask for one round, or nil when subsampling
// is disabled.
func (gb *StumpRegressor) sampleRows(n int, rng *rand.Rand) []bool {
	if gb.Subsample >= 1 {
		return nil
	}
	k := int(gb.Subsample * float64(n))
	if k < 2*gb.MinChildSamples {
		k = min(n, 2*gb.MinChildSamples)
	}
	perm := rng.Perm(n)
	mask := make([]bool, n)
	for _, idx := range perm[:k] {
		mask[idx] = true
	}
	return mask
}

// bestStump scans every feature for the split minimizing the squared error
// of the residuals, using prefix sums over the pre-sorted row order.
func (gb *StumpRegressor) bestStump(X mat.Matrix, residual []float64, orders [][]int, inBag []bool) (stump, bool) {
	bestGain := math.Inf(1)
	var best stump
	found := false

	for j, order := range orders {
		rows := order
		if inBag != nil {
			rows = rows[:0:0]
			for _, i := range order {
				if inBag[i] {
					rows = append(rows, i)
				}
			}
		}
		m := len(rows)
		if m < 2*gb.MinChildSamples {
			continue
		}

		var total float64
		for _, i := range rows {
			total += residual[i]
		}

		var leftSum float64
		for k := 0; k < m-1; k++ {
			leftSum += residual[rows[k]]

			leftCount := k + 1
			rightCount := m - leftCount
			if leftCount < gb.MinChildSamples || rightCount < gb.MinChildSamples {
				continue
			}

			x0 := X.At(rows[k], j)
			x1 := X.At(rows[k+1], j)
			if x0 == x1 {
				// Cannot split between equal values.
				continue
			}

			rightSum := total - leftSum
			// Minimizing SSE is maximizing sum^2/count on both sides;
			// negate so smaller is better.
			gain := -(leftSum*leftSum/float64(leftCount) + rightSum*rightSum/float64(rightCount))
			if gain < bestGain {
				bestGain = gain
				best = stump{
					feature:   j,
					threshold: (x0 + x1) / 2,
					left:      leftSum / float64(leftCount),
					right:     rightSum / float64(rightCount),
				}
				found = true
			}
		}
	}

	return best, found
}

// Predict returns the n×1 matrix of ensemble predictions for X.
func (gb *StumpRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !gb.IsFitted() {
		return nil, errors.NewNotFittedError("StumpRegressor", "Predict")
	}

	r, c := X.Dims()
	if c != gb.nFeatures {
		return nil, errors.NewDimensionError("StumpRegressor.Predict", gb.nFeatures, c, 1)
	}

	predictions := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		pred := gb.baseValue
		for s := range gb.stumps {
			pred += gb.LearningRate * gb.stumps[s].predict(X, i)
		}
		predictions.Set(i, 0, pred)
	}
	return predictions, nil
}

// Score returns the coefficient of determination R² on (X, y).
func (gb *StumpRegressor) Score(X, y mat.Matrix) (float64, error) {
	if !gb.IsFitted() {
		return 0, errors.NewNotFittedError("StumpRegressor", "Score")
	}

	yPred, err := gb.Predict(X)
	if err != nil {
		return 0, err
	}

	r, _ := y.Dims()
	var yMean float64
	for i := 0; i < r; i++ {
		yMean += y.At(i, 0)
	}
	yMean /= float64(r)

	var tss, rss float64
	for i := 0; i < r; i++ {
		yTrue := y.At(i, 0)
		dm := yTrue - yMean
		dp := yTrue - yPred.At(i, 0)
		tss += dm * dm
		rss += dp * dp
	}
	if tss == 0 {
		return 0, errors.Newf("StumpRegressor.Score: total sum of squares is zero")
	}
	return 1 - rss/tss, nil
}

// NumStumps returns the number of fitted stumps.
func (gb *StumpRegressor) NumStumps() int {
	return len(gb.stumps)
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
