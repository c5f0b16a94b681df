package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/common/logger"
	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/common/models"
	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/pipeline"
)

// naTokens are the cell spellings read as missing, matching the default
// NA markers of common dataframe tooling. Matching is case-sensitive.
var naTokens = map[string]struct{}{
	"#N/A": {}, "#N/A N/A": {}, "#NA": {},
	"-1.#IND": {}, "-1.#QNAN": {}, "1.#IND": {}, "1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "NaN": {}, "nan": {},
	"<NA>": {}, "N/A": {}, "NA": {}, "n/a": {},
	"NULL": {}, "null": {}, "None": {},
}

// IsNAToken reports whether a trimmed CSV cell denotes a missing value.
func IsNAToken(cell string) bool {
	if cell == "" {
		return true
	}
	_, ok := naTokens[cell]
	return ok
}

// LoadCSV reads a headered CSV file into a frame. Cells stay strings; empty
// cells and NA markers are stored as nil so they count as missing.
func LoadCSV(path string) (*pipeline.Frame, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	frame, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}
	logger.Log.WithFields(map[string]interface{}{
		"path":    path,
		"rows":    frame.Len(),
		"columns": len(frame.Columns),
	}).Info("Loaded training dataset")
	return frame, nil
}

func ReadCSV(r io.Reader) (*pipeline.Frame, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("dataset is empty")
	}
	if err != nil {
		return nil, err
	}
	columns := make([]string, len(header))
	for i, name := range header {
		columns[i] = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
	}

	var rows []models.PatientRecord
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		row := make(models.PatientRecord, len(columns))
		for i, col := range columns {
			cell := strings.TrimSpace(record[i])
			if IsNAToken(cell) {
				row[col] = nil
				continue
			}
			row[col] = cell
		}
		rows = append(rows, row)
	}
	return pipeline.NewFrame(columns, rows), nil
}
