package vector

import (
	"fmt"
	"reflect"
)

// Filter is a set of metadata key/value pairs. A vector matches when every
// pair is present in its metadata with an equal value. An absent key never
// matches.
type Filter map[string]any

// NamespaceFilter returns a filter selecting a single namespace.
func NamespaceFilter(namespaceID string) Filter {
	return Filter{KeyNamespaceID: namespaceID}
}

// Namespace returns the namespace the filter is restricted to, if any.
func (f Filter) Namespace() (string, bool) {
	v, ok := f[KeyNamespaceID]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Matches reports whether md satisfies every pair of the filter.
func (f Filter) Matches(md Metadata) bool {
	for key, want := range f {
		got, ok := md.Get(key)
		if !ok {
			return false
		}
		if !valuesEqual(got, want) {
			return false
		}
	}
	return true
}

// valuesEqual compares metadata values. Numbers compare by value regardless
// of their Go type since metadata decoded from JSON always holds float64.
func valuesEqual(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
		return false
	}

	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case DocType:
		return valuesEqual(string(av), b)
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	}

	if bv, ok := b.(DocType); ok {
		return valuesEqual(a, string(bv))
	}

	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// String renders the filter for log lines.
func (f Filter) String() string {
	return fmt.Sprintf("%v", map[string]any(f))
}
