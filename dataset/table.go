// Package dataset loads tabular regression data from CSV into a typed table
// and encodes it as a gonum design matrix. Numeric columns pass through;
// categorical columns are dummy encoded against a reference level with a
// deterministic level order.
package dataset

import (
	"sort"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/conformal/pkg/errors"
)

// ColumnKind classifies a feature column.
type ColumnKind int

const (
	// Numeric columns parse as float64 in every retained row.
	Numeric ColumnKind = iota
	// Categorical columns are treated as unordered string levels.
	Categorical
)

func (k ColumnKind) String() string {
	if k == Numeric {
		return "numeric"
	}
	return "categorical"
}

// Column describes one feature column of a table.
type Column struct {
	Name string
	Kind ColumnKind
	// Levels holds the sorted distinct values of a categorical column.
	// Empty for numeric columns.
	Levels []string
}

// Table is an in-memory labeled dataset: feature cells plus a numeric target.
// Rows that failed parsing were dropped at load time; DroppedRows reports how
// many.
type Table struct {
	Source      string
	TargetName  string
	Columns     []Column
	DroppedRows int

	cells  [][]string // retained feature cells, row-major
	target []float64
}

// NumRows returns the number of retained rows.
func (t *Table) NumRows() int {
	return len(t.target)
}

// Target returns a copy of the label vector.
func (t *Table) Target() []float64 {
	out := make([]float64, len(t.target))
	copy(out, t.target)
	return out
}

// FeatureNames returns the encoded design-matrix column names: numeric
// columns keep their name, categorical columns expand to "name=level" for
// every level except the reference (the first in sorted order).
func (t *Table) FeatureNames() []string {
	var names []string
	for _, col := range t.Columns {
		if col.Kind == Numeric {
			names = append(names, col.Name)
			continue
		}
		for _, level := range encodedLevels(col) {
			names = append(names, col.Name+"="+level)
		}
	}
	return names
}

// encodedLevels returns the levels that get an indicator column. The first
// sorted level is the reference and is encoded as all zeros; keeping it
// would make the indicators sum to the constant vector and collide with an
// intercept.
func encodedLevels(col Column) []string {
	if len(col.Levels) < 2 {
		return nil
	}
	return col.Levels[1:]
}

// DesignMatrix encodes the table as an n×d feature matrix and an n×1 target
// matrix. Categorical columns become one indicator column per non-reference
// level, in sorted level order, so the encoding is deterministic across runs
// and remains full rank next to an intercept.
func (t *Table) DesignMatrix() (*mat.Dense, *mat.Dense, error) {
	n := t.NumRows()
	if n == 0 {
		return nil, nil, errors.NewModelError("dataset.DesignMatrix", "empty table", errors.ErrEmptyData)
	}

	width := 0
	for _, col := range t.Columns {
		if col.Kind == Numeric {
			width++
		} else {
			width += len(encodedLevels(col))
		}
	}
	if width == 0 {
		return nil, nil, errors.NewValueError("dataset.DesignMatrix", "table has no feature columns")
	}

	X := mat.NewDense(n, width, nil)
	y := mat.NewDense(n, 1, nil)

	for i := 0; i < n; i++ {
		j := 0
		for c, col := range t.Columns {
			cell := t.cells[i][c]
			if col.Kind == Numeric {
				// Retained rows parsed during load; a failure here means the
				// table was built inconsistently.
				v, err := strconv.ParseFloat(cell, 64)
				if err != nil {
					return nil, nil, errors.Wrapf(err, "dataset.DesignMatrix: row %d column %q", i, col.Name)
				}
				X.Set(i, j, v)
				j++
				continue
			}
			idx := sort.SearchStrings(col.Levels, cell)
			// idx == 0 is the reference level: all indicators stay zero.
			if idx > 0 && idx < len(col.Levels) && col.Levels[idx] == cell {
				X.Set(i, j+idx-1, 1.0)
			}
			j += len(encodedLevels(col))
		}
		y.Set(i, 0, t.target[i])
	}

	return X, y, nil
}
