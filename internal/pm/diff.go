package pm

import (
	"encoding/json"
	"sort"
)

// Diff returns the set of top-level keys that differ between two
// ProjectMemory snapshots, expanding "constraints" and "preferences"
// to dotted sub-keys (e.g. "constraints.never_touch") when only
// nested fields changed, per spec.md §4.6.
func Diff(before, after interface{}) []string {
	beforeMap := toMap(before)
	afterMap := toMap(after)

	keys := make(map[string]bool)
	for k := range beforeMap {
		keys[k] = true
	}
	for k := range afterMap {
		keys[k] = true
	}

	var changed []string
	for k := range keys {
		bv, bok := beforeMap[k]
		av, aok := afterMap[k]
		if bok != aok {
			changed = append(changed, k)
			continue
		}
		if equalJSON(bv, av) {
			continue
		}
		if (k == "constraints" || k == "preferences") && isObject(bv) && isObject(av) {
			changed = append(changed, expandNestedKeys(k, bv, av)...)
			continue
		}
		changed = append(changed, k)
	}

	sort.Strings(changed)
	return changed
}

func expandNestedKeys(prefix string, before, after interface{}) []string {
	bm, _ := before.(map[string]interface{})
	am, _ := after.(map[string]interface{})

	keys := make(map[string]bool)
	for k := range bm {
		keys[k] = true
	}
	for k := range am {
		keys[k] = true
	}

	var out []string
	for k := range keys {
		if !equalJSON(bm[k], am[k]) {
			out = append(out, prefix+"."+k)
		}
	}
	return out
}

func isObject(v interface{}) bool {
	_, ok := v.(map[string]interface{})
	return ok
}

func equalJSON(a, b interface{}) bool {
	ab, _ := json.Marshal(a)
	bb, _ := json.Marshal(b)
	return string(ab) == string(bb)
}

// toMap round-trips v through JSON to obtain a map[string]interface{}
// view suitable for generic key-by-key comparison.
func toMap(v interface{}) map[string]interface{} {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}
