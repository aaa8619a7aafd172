package compute

import (
	"encoding/json"
	"strings"
)

// Snapshot wraps one raw profile document: an arbitrarily deep nested
// key-value structure, opaque to the engine except via extraction rules.
type Snapshot map[string]any

// ParseSnapshot decodes a raw JSON document into a Snapshot.
func ParseSnapshot(data []byte) (Snapshot, error) {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return Snapshot(doc), nil
}

// Number walks a dotted field path and coerces the leaf to a float64.
// Any missing intermediate node yields absent; it never panics.
func (s Snapshot) Number(path string) (float64, bool) {
	var cur any = map[string]any(s)
	for _, attr := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return 0, false
		}
		cur, ok = m[attr]
		if !ok {
			return 0, false
		}
	}
	return toNumber(cur)
}

// NumberOr returns the value at path, or fallback when absent. This is the
// coalesce convention used by additive formula terms.
func (s Snapshot) NumberOr(path string, fallback float64) float64 {
	if v, ok := s.Number(path); ok {
		return v
	}
	return fallback
}

// Section returns the nested object at path.
func (s Snapshot) Section(path string) (map[string]any, bool) {
	var cur any = map[string]any(s)
	for _, attr := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[attr]
		if !ok {
			return nil, false
		}
	}
	m, ok := cur.(map[string]any)
	return m, ok
}

// Has reports whether any value, numeric or not, exists at path.
func (s Snapshot) Has(path string) bool {
	var cur any = map[string]any(s)
	for _, attr := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return false
		}
		cur, ok = m[attr]
		if !ok {
			return false
		}
	}
	return cur != nil
}

func toNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
