package dataset

import (
	"encoding/csv"
	"io"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/conformal/pkg/errors"
	logattr "github.com/YuminosukeSato/conformal/pkg/log"
)

// missingTokens are cell values treated as missing during ingestion.
var missingTokens = map[string]bool{
	"":     true,
	"na":   true,
	"n/a":  true,
	"nan":  true,
	"null": true,
	"?":    true,
}

func isMissing(cell string) bool {
	return missingTokens[strings.ToLower(strings.TrimSpace(cell))]
}

// LoadCSV reads a headered CSV file into a Table with the named target
// column. See ReadCSV for the parsing contract.
func LoadCSV(path, target string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "dataset.LoadCSV: opening %s", path)
	}
	defer f.Close()

	return ReadCSV(f, path, target)
}

// ReadCSV parses headered CSV data into a Table.
//
// Column kinds are inferred: a feature column is numeric when every
// non-missing cell parses as a float, categorical otherwise. The target
// column must be numeric. Rows with a missing or unparsable target, or with
// a missing cell in any feature column, are dropped; the dropped count is
// logged and raised as a DroppedRowsWarning, never silently discarded.
func ReadCSV(r io.Reader, source, target string) (*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	// Ragged rows are dropped (and counted) rather than failing the load.
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, errors.Wrapf(err, "dataset.ReadCSV: reading header from %s", source)
	}

	targetIdx := -1
	for i, name := range header {
		if name == target {
			targetIdx = i
			break
		}
	}
	if targetIdx < 0 {
		return nil, errors.NewValidationError("target", "column not found in header", target)
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "dataset.ReadCSV: reading rows from %s", source)
	}
	if len(records) == 0 {
		return nil, errors.NewModelError("dataset.ReadCSV", "no data rows", errors.ErrEmptyData)
	}

	nFeatures := len(header) - 1

	// First pass: infer column kinds from non-missing cells.
	numericOK := make([]bool, nFeatures)
	for j := range numericOK {
		numericOK[j] = true
	}
	for _, rec := range records {
		if len(rec) != len(header) {
			continue
		}
		j := 0
		for c, cell := range rec {
			if c == targetIdx {
				continue
			}
			if !isMissing(cell) && numericOK[j] {
				if _, err := strconv.ParseFloat(strings.TrimSpace(cell), 64); err != nil {
					numericOK[j] = false
				}
			}
			j++
		}
	}

	columns := make([]Column, nFeatures)
	levelSets := make([]map[string]bool, nFeatures)
	j := 0
	for c, name := range header {
		if c == targetIdx {
			continue
		}
		kind := Categorical
		if numericOK[j] {
			kind = Numeric
		} else {
			levelSets[j] = make(map[string]bool)
		}
		columns[j] = Column{Name: name, Kind: kind}
		j++
	}

	// Second pass: retain parseable rows, collect categorical levels.
	var cells [][]string
	var targets []float64
	dropped := 0

	for _, rec := range records {
		if len(rec) != len(header) {
			dropped++
			continue
		}

		targetCell := strings.TrimSpace(rec[targetIdx])
		if isMissing(targetCell) {
			dropped++
			continue
		}
		yVal, err := strconv.ParseFloat(targetCell, 64)
		if err != nil {
			dropped++
			continue
		}

		row := make([]string, nFeatures)
		ok := true
		j := 0
		for c, cell := range rec {
			if c == targetIdx {
				continue
			}
			cell = strings.TrimSpace(cell)
			if isMissing(cell) {
				ok = false
				break
			}
			row[j] = cell
			j++
		}
		if !ok {
			dropped++
			continue
		}

		for j, col := range columns {
			if col.Kind == Categorical {
				levelSets[j][row[j]] = true
			}
		}
		cells = append(cells, row)
		targets = append(targets, yVal)
	}

	if len(targets) == 0 {
		return nil, errors.NewModelError("dataset.ReadCSV", "all rows dropped", errors.ErrEmptyData)
	}

	for j := range columns {
		if columns[j].Kind != Categorical {
			continue
		}
		levels := make([]string, 0, len(levelSets[j]))
		for level := range levelSets[j] {
			levels = append(levels, level)
		}
		sort.Strings(levels)
		columns[j].Levels = levels
	}

	if dropped > 0 {
		errors.Warn(errors.NewDroppedRowsWarning(source, dropped, len(records)))
	}
	slog.Info("dataset loaded",
		slog.String(logattr.StageKey, "load"),
		slog.Int(logattr.SamplesKey, len(targets)),
		slog.Int(logattr.DroppedRowsKey, dropped),
	)

	return &Table{
		Source:      source,
		TargetName:  target,
		Columns:     columns,
		DroppedRows: dropped,
		cells:       cells,
		target:      targets,
	}, nil
}
