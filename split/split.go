// Package split partitions a labeled dataset into disjoint train,
// calibration and test index sets. Sampling is randomized but reproducible
// given a seed, and can be stratified on the (bucketed) label so that each
// split keeps roughly the same label distribution.
package split

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/conformal/pkg/errors"
)

const proportionTolerance = 1e-9

// DefaultStratifyBins is the default number of equal-frequency label buckets
// used for stratification.
const DefaultStratifyBins = 10

// Partition holds the three disjoint row-index sets. Together they cover
// every row exactly once; assignment is immutable once drawn.
type Partition struct {
	Train       []int
	Calibration []int
	Test        []int
}

// Splitter draws a train/calibration/test partition.
type Splitter struct {
	PTrain float64
	PCal   float64
	PTest  float64

	Seed     uint64
	Stratify bool
	Bins     int
}

// NewSplitter creates a splitter with the given proportions. Proportions are
// validated when Split is called.
func NewSplitter(pTrain, pCal, pTest float64) *Splitter {
	return &Splitter{
		PTrain: pTrain,
		PCal:   pCal,
		PTest:  pTest,
		Bins:   DefaultStratifyBins,
	}
}

// WithSeed sets the random seed.
func (s *Splitter) WithSeed(seed uint64) *Splitter {
	s.Seed = seed
	return s
}

// WithStratification enables label-bucket stratification with the given
// number of equal-frequency bins (capped by the number of distinct labels).
func (s *Splitter) WithStratification(bins int) *Splitter {
	s.Stratify = true
	if bins > 0 {
		s.Bins = bins
	}
	return s
}

func (s *Splitter) validate(nRows int, y []float64) error {
	for name, p := range map[string]float64{"p_train": s.PTrain, "p_cal": s.PCal, "p_test": s.PTest} {
		if p <= 0 || p >= 1 {
			return errors.NewValidationError(name, "must be in (0, 1)", p)
		}
	}
	sum := s.PTrain + s.PCal + s.PTest
	if sum < 1-proportionTolerance || sum > 1+proportionTolerance {
		return errors.NewValidationError("proportions", "must sum to 1", sum)
	}
	if nRows < 3 {
		return errors.NewValueError("Splitter.Split", "need at least 3 rows to form three non-empty splits")
	}
	if s.Stratify && len(y) != nRows {
		return errors.NewDimensionError("Splitter.Split", nRows, len(y), 0)
	}
	return nil
}

// Split draws the partition over nRows rows. y is the label vector and is
// only consulted when stratification is enabled (it may be nil otherwise).
// Returns a fatal error when any split would be empty.
func (s *Splitter) Split(nRows int, y []float64) (*Partition, error) {
	if err := s.validate(nRows, y); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewPCG(s.Seed, s.Seed))

	var groups [][]int
	if s.Stratify {
		groups = bucketByLabel(nRows, y, s.Bins)
	} else {
		all := make([]int, nRows)
		for i := range all {
			all[i] = i
		}
		groups = [][]int{all}
	}

	p := &Partition{}
	for _, group := range groups {
		rng.Shuffle(len(group), func(i, j int) {
			group[i], group[j] = group[j], group[i]
		})

		// Round rather than truncate so 0.6*1000 is 600 rows, not 599.
		nTrain := int(math.Round(s.PTrain * float64(len(group))))
		nCal := int(math.Round(s.PCal * float64(len(group))))
		p.Train = append(p.Train, group[:nTrain]...)
		p.Calibration = append(p.Calibration, group[nTrain:nTrain+nCal]...)
		p.Test = append(p.Test, group[nTrain+nCal:]...)
	}

	// Deterministic row order inside each split.
	sort.Ints(p.Train)
	sort.Ints(p.Calibration)
	sort.Ints(p.Test)

	if len(p.Train) == 0 {
		return nil, errors.NewEmptySplitError("train", nRows, s.PTrain)
	}
	if len(p.Calibration) == 0 {
		return nil, errors.NewEmptySplitError("calibration", nRows, s.PCal)
	}
	if len(p.Test) == 0 {
		return nil, errors.NewEmptySplitError("test", nRows, s.PTest)
	}

	return p, nil
}

// bucketByLabel groups row indices into equal-frequency label bins. The bin
// count is capped by the number of distinct labels so constant labels
// degrade to a single group.
func bucketByLabel(nRows int, y []float64, bins int) [][]int {
	order := make([]int, nRows)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return y[order[a]] < y[order[b]] })

	distinct := 1
	for i := 1; i < nRows; i++ {
		if y[order[i]] != y[order[i-1]] {
			distinct++
		}
	}
	if bins > distinct {
		bins = distinct
	}
	if bins < 1 {
		bins = 1
	}

	groups := make([][]int, 0, bins)
	binSize := nRows / bins
	remainder := nRows % bins
	start := 0
	for b := 0; b < bins; b++ {
		size := binSize
		if b < remainder {
			size++
		}
		group := make([]int, size)
		copy(group, order[start:start+size])
		groups = append(groups, group)
		start += size
	}
	return groups
}

// TakeRows copies the given rows of X into a new dense matrix, preserving
// index order.
func TakeRows(X mat.Matrix, indices []int) *mat.Dense {
	_, c := X.Dims()
	out := mat.NewDense(len(indices), c, nil)
	for i, idx := range indices {
		for j := 0; j < c; j++ {
			out.Set(i, j, X.At(idx, j))
		}
	}
	return out
}

// TakeValues copies the given entries of y, preserving index order.
func TakeValues(y []float64, indices []int) []float64 {
	out := make([]float64, len(indices))
	for i, idx := range indices {
		out[i] = y[idx]
	}
	return out
}
