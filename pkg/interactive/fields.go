package interactive

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/pipeline"
)

// ErrNotNumber is returned when a numeric field receives text.
var ErrNotNumber = errors.New("not a number")

const fallbackFieldCount = 4

var (
	preferredNumeric = []string{
		"Age", "age",
		"Height_cm", "Height", "height",
		"Weight_kg", "Weight", "weight",
	}
	preferredCategorical = []string{
		"Gender", "Sex",
		"ActivityLevel", "PhysicalActivity",
		"Goal",
		"DietPreference", "Diet_Preference",
		"ChronicDisease", "Chronic_Disease",
		"HasDiabetes", "Diabetes",
		"HasHypertension", "Hypertension",
	}
)

// Field is one prompt of the interactive form.
type Field struct {
	Name    string
	Numeric bool
	Default interface{}
}

// SelectFields picks the columns a person is asked for: the preferred ones
// present in the schema, else the first few of each kind. Every other column
// falls back to the training imputation.
func SelectFields(pre *pipeline.Preprocessor) []Field {
	numeric := pick(preferredNumeric, pre.Numeric)
	categorical := pick(preferredCategorical, pre.Categorical)

	fields := make([]Field, 0, len(numeric)+len(categorical))
	for _, name := range numeric {
		def, ok := pre.Default(name)
		if !ok {
			def = 0.0
		}
		fields = append(fields, Field{Name: name, Numeric: true, Default: def})
	}
	for _, name := range categorical {
		def, ok := pre.Default(name)
		if !ok {
			def = ""
		}
		fields = append(fields, Field{Name: name, Default: def})
	}
	return fields
}

func pick(preferred, available []string) []string {
	present := make(map[string]struct{}, len(available))
	for _, name := range available {
		present[name] = struct{}{}
	}
	var out []string
	for _, name := range preferred {
		if _, ok := present[name]; ok {
			out = append(out, name)
		}
	}
	if len(out) > 0 {
		return out
	}
	// Derived columns are recomputed from the answers, so they are never asked for.
	derived := make(map[string]struct{})
	for _, name := range pipeline.DerivedColumns() {
		derived[name] = struct{}{}
	}
	for _, name := range available {
		if len(out) == fallbackFieldCount {
			break
		}
		if _, ok := derived[name]; !ok {
			out = append(out, name)
		}
	}
	return out
}

func (f Field) DefaultText() string {
	switch v := f.Default.(type) {
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Parse converts raw input into the value stored in the record. Empty input
// selects the default.
func (f Field) Parse(raw string) (interface{}, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return f.Default, nil
	}
	if f.Numeric {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, ErrNotNumber
		}
		return v, nil
	}
	if isFlag(f.Name) {
		switch strings.ToLower(raw) {
		case "yes", "y", "true", "1":
			return 1, nil
		case "no", "n", "false", "0":
			return 0, nil
		}
	}
	return raw, nil
}

// isFlag reports whether a column holds a yes/no condition.
func isFlag(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasPrefix(lower, "has") || lower == "diabetes" || lower == "hypertension"
}

// ContinueField is the prompt shown after each prediction.
func ContinueField() Field {
	return Field{Name: "Run another prediction? (y/n)", Default: "n"}
}

func IsYes(v interface{}) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes":
		return true
	}
	return false
}
