package pipeline

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// IsMissing reports whether a record value counts as absent: nil, an
// empty or blank string, or a NaN.
func IsMissing(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case float64:
		return math.IsNaN(v)
	case float32:
		return math.IsNaN(float64(v))
	default:
		return false
	}
}

// NumericValue converts a record value to a finite float64. Numeric strings
// are accepted after trimming surrounding whitespace; bools map to 1 and 0.
func NumericValue(value interface{}) (float64, bool) {
	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// CategoryValue renders a record value as the category label used by the
// one-hot encoder.
func CategoryValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		if v {
			return "True"
		}
		return "False"
	case json.Number:
		return v.String()
	}
	if f, ok := NumericValue(value); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return ""
}
