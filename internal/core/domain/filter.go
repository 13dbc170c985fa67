package domain

import "fmt"

// MatchFilters reports whether a record satisfies every filter. Values are
// compared by their string form. A nested filter map matches a nested
// record map key by key; if the record holds a scalar where the filter
// expects a map, the record does not match. An empty filter matches all.
func MatchFilters(record map[string]any, filters map[string]any) bool {
	for key, want := range filters {
		got, ok := record[key]
		if !ok {
			return false
		}

		if nestedWant, isMap := asMap(want); isMap {
			nestedGot, gotMap := asMap(got)
			if !gotMap || !MatchFilters(nestedGot, nestedWant) {
				return false
			}
			continue
		}

		if fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Metadata:
		return m, true
	default:
		return nil, false
	}
}
