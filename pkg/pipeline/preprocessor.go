package pipeline

import (
	"errors"
	"fmt"
	"sort"
)

// ErrNotNumeric is returned when a numeric column receives a value that
// cannot be read as a number.
var ErrNotNumeric = errors.New("value is not numeric")

const (
	unknownSuffix   = "__unknown"
	missingCategory = "missing"
)

// Preprocessor imputes and encodes aligned rows. Numeric columns take the
// training median when missing; categorical columns take the training mode
// and are one-hot encoded with an extra bucket for unseen categories.
type Preprocessor struct {
	Numeric      []string            `json:"num_cols"`
	Categorical  []string            `json:"cat_cols"`
	Medians      map[string]float64  `json:"medians"`
	Modes        map[string]string   `json:"modes"`
	Categories   map[string][]string `json:"categories"`
	FeatureNames []string            `json:"feature_names"`
}

// BuildPreprocessor infers column kinds and fits imputers and the encoder.
// A column is numeric when every non-missing value converts to a number.
func BuildPreprocessor(frame *Frame) *Preprocessor {
	p := &Preprocessor{
		Medians:    make(map[string]float64),
		Modes:      make(map[string]string),
		Categories: make(map[string][]string),
	}
	for _, col := range frame.Columns {
		values := frame.Column(col)
		if numbers, ok := numericColumn(values); ok {
			p.Numeric = append(p.Numeric, col)
			p.Medians[col] = median(numbers)
			continue
		}
		p.Categorical = append(p.Categorical, col)
		mode, categories := categoricalStats(values)
		p.Modes[col] = mode
		p.Categories[col] = categories
	}
	p.FeatureNames = p.featureNames()
	return p
}

func (p *Preprocessor) featureNames() []string {
	names := append([]string(nil), p.Numeric...)
	for _, col := range p.Categorical {
		for _, cat := range p.Categories[col] {
			names = append(names, col+"_"+cat)
		}
		names = append(names, col+unknownSuffix)
	}
	return names
}

// Transform imputes and encodes an aligned row into the model input vector.
// Unseen categories set the column's unknown indicator instead of failing.
func (p *Preprocessor) Transform(row Row) ([]float64, error) {
	lookup := make(map[string]interface{}, len(row.Columns))
	for i, col := range row.Columns {
		lookup[col] = row.Values[i]
	}

	out := make([]float64, 0, len(p.FeatureNames))
	for _, col := range p.Numeric {
		value := lookup[col]
		if IsMissing(value) {
			out = append(out, p.Medians[col])
			continue
		}
		f, ok := NumericValue(value)
		if !ok {
			return nil, fmt.Errorf("column %s: %w: %v", col, ErrNotNumeric, value)
		}
		out = append(out, f)
	}

	for _, col := range p.Categorical {
		value := lookup[col]
		label := p.Modes[col]
		if !IsMissing(value) {
			label = CategoryValue(value)
		}
		categories := p.Categories[col]
		idx := sort.SearchStrings(categories, label)
		known := idx < len(categories) && categories[idx] == label
		for i := range categories {
			out = append(out, indicator(known && i == idx))
		}
		out = append(out, indicator(!known))
	}
	return out, nil
}

// Default returns the imputation value for a column: the median for numeric
// columns, the mode for categorical ones.
func (p *Preprocessor) Default(col string) (interface{}, bool) {
	if m, ok := p.Medians[col]; ok {
		return m, true
	}
	if m, ok := p.Modes[col]; ok {
		return m, true
	}
	return nil, false
}

func numericColumn(values []interface{}) ([]float64, bool) {
	numbers := make([]float64, 0, len(values))
	for _, v := range values {
		if IsMissing(v) {
			continue
		}
		f, ok := NumericValue(v)
		if !ok {
			return nil, false
		}
		numbers = append(numbers, f)
	}
	return numbers, true
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// categoricalStats returns the most frequent label (smallest label on ties)
// and the sorted vocabulary.
func categoricalStats(values []interface{}) (string, []string) {
	counts := make(map[string]int)
	for _, v := range values {
		if IsMissing(v) {
			continue
		}
		counts[CategoryValue(v)]++
	}
	if len(counts) == 0 {
		return missingCategory, nil
	}
	categories := make([]string, 0, len(counts))
	for label := range counts {
		categories = append(categories, label)
	}
	sort.Strings(categories)

	mode := categories[0]
	for _, label := range categories[1:] {
		if counts[label] > counts[mode] {
			mode = label
		}
	}
	return mode, categories
}
