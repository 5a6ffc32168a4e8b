package queue

import (
	"strconv"
	"strings"
)

// Params carries operation parameters as opaque scalar values. Keys and their
// meaning belong to the handlers; the queue only copies them through.
type Params map[string]any

// Clone returns a shallow copy; values are scalars by convention.
func (p Params) Clone() Params {
	if p == nil {
		return nil
	}
	cp := make(Params, len(p))
	for key, value := range p {
		cp[key] = value
	}
	return cp
}

// String returns the parameter as a trimmed string, or fallback when absent
// or empty.
func (p Params) String(key, fallback string) string {
	value, ok := p[key]
	if !ok {
		return fallback
	}
	text := strings.TrimSpace(toString(value))
	if text == "" {
		return fallback
	}
	return text
}

// Float returns the parameter as a float64, or fallback when absent or not
// numeric.
func (p Params) Float(key string, fallback float64) float64 {
	value, ok := p[key]
	if !ok {
		return fallback
	}
	switch v := value.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

// Int returns the parameter as an int, or fallback when absent or not numeric.
// JSON decoding yields float64 for numbers, which is the common case here.
func (p Params) Int(key string, fallback int) int {
	value, ok := p[key]
	if !ok {
		return fallback
	}
	switch v := value.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return parsed
		}
	}
	return fallback
}

// Strings returns the parameter as a string slice. Scalar values become a
// single-element slice; absent values return nil.
func (p Params) Strings(key string) []string {
	value, ok := p[key]
	if !ok {
		return nil
	}
	switch v := value.(type) {
	case []string:
		cp := make([]string, len(v))
		copy(cp, v)
		return cp
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if text := strings.TrimSpace(toString(item)); text != "" {
				out = append(out, text)
			}
		}
		return out
	default:
		if text := strings.TrimSpace(toString(v)); text != "" {
			return []string{text}
		}
		return nil
	}
}

func toString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}
