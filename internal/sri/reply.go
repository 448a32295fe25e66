package sri

import (
	"fmt"
	"sort"
	"strings"
)

// Reply is a decoded web service response. Values are string, Reply (or
// map[string]any when decoded from JSON) or []any for repeated elements.
type Reply map[string]any

// fieldPath is a sequence of member names from the reply root.
type fieldPath []string

// asMap returns v as a map when it is an object node.
func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case Reply:
		return m, true
	case map[string]any:
		return m, true
	default:
		return nil, false
	}
}

// asList normalises a node that may be absent, a single value or a list.
func asList(v any) []any {
	switch l := v.(type) {
	case nil:
		return nil
	case []any:
		return l
	default:
		return []any{l}
	}
}

// Lookup follows path from the root. Lists met along the way are
// narrowed to their first element.
func (r Reply) Lookup(path ...string) (any, bool) {
	var cur any = r
	for _, name := range path {
		if l, ok := cur.([]any); ok {
			if len(l) == 0 {
				return nil, false
			}
			cur = l[0]
		}
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[name]
		if !ok || cur == nil {
			return nil, false
		}
	}
	return cur, true
}

// Text returns the scalar at path as a string, or "" when absent or not a scalar.
// A repeated element yields its first value.
func (r Reply) Text(path ...string) string {
	v, ok := r.Lookup(path...)
	if !ok {
		return ""
	}
	if l, isList := v.([]any); isList && len(l) > 0 {
		v = l[0]
	}
	return scalar(v)
}

// firstString returns the first non-empty scalar found at any of the candidate paths.
func (r Reply) firstString(paths []fieldPath) string {
	for _, p := range paths {
		if s := strings.TrimSpace(r.Text(p...)); s != "" {
			return s
		}
	}
	return ""
}

func scalar(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64, int, int64, bool:
		return fmt.Sprint(s)
	default:
		return ""
	}
}

// sub returns the object at path as a Reply.
func (r Reply) sub(path ...string) (Reply, bool) {
	v, ok := r.Lookup(path...)
	if !ok {
		return nil, false
	}
	if l, isList := v.([]any); isList && len(l) > 0 {
		v = l[0]
	}
	m, ok := asMap(v)
	return Reply(m), ok
}

// sortedKeys gives a stable traversal order over an object node.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
