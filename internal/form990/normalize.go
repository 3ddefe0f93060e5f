package form990

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// RawValue is a field value exactly as delivered by the extraction service:
// nil (absent), string, json.Number, or any other decoded JSON scalar.
type RawValue = any

// Normalize turns a raw value into its display/export form: currency
// symbols and thousands separators removed, fractional part truncated.
// Absent and falsy values become "0". It is the only cleaning routine used
// by the renderer and the tabular encoders.
func Normalize(raw RawValue) string {
	if isFalsy(raw) {
		return "0"
	}

	s := strings.NewReplacer("$", "", ",", "").Replace(stringify(raw))
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	if s == "" || s == "-" {
		return "0"
	}
	return s
}

func isFalsy(raw RawValue) bool {
	switch v := raw.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case bool:
		return !v
	case json.Number:
		f, err := v.Float64()
		return v == "" || (err == nil && f == 0)
	case float64:
		return v == 0
	case float32:
		return v == 0
	case int:
		return v == 0
	case int64:
		return v == 0
	}
	return false
}

func stringify(raw RawValue) string {
	switch v := raw.(type) {
	case string:
		return v
	case json.Number:
		if strings.ContainsAny(v.String(), "eE") {
			if f, err := v.Float64(); err == nil {
				return formatNumber(f)
			}
		}
		return v.String()
	case float64:
		return formatNumber(v)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	default:
		return fmt.Sprint(v)
	}
}

// formatNumber prints f in plain decimal notation between 1e-6 and 1e21,
// and as "1e+21" / "1e-7" outside that range.
func formatNumber(f float64) string {
	abs := math.Abs(f)
	if abs == 0 || (abs >= 1e-6 && abs < 1e21) {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	mant, exp, _ := strings.Cut(strconv.FormatFloat(f, 'e', -1, 64), "e")
	return mant + "e" + exp[:1] + strings.TrimLeft(exp[1:], "0")
}
