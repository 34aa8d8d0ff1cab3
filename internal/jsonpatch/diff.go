// Package jsonpatch computes RFC 6902 patches between two versions of a
// document. The flow uses it to tell the UI which form fields an action
// changed.
package jsonpatch

import (
	"sort"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

// Op is a single patch operation.
type Op struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value"`
}

// MarshalJSON leaves value out of remove operations only; a zero value is a
// legitimate add or replace target.
func (o Op) MarshalJSON() ([]byte, error) {
	if o.Op == "remove" {
		return json.Marshal(struct {
			Op   string `json:"op"`
			Path string `json:"path"`
		}{o.Op, o.Path})
	}
	type plain Op
	return json.Marshal(plain(o))
}

// Changes marshals both values to JSON and diffs the results.
func Changes(before, after any) ([]Op, error) {
	a, err := toGeneric(before)
	if err != nil {
		return nil, err
	}
	b, err := toGeneric(after)
	if err != nil {
		return nil, err
	}
	return Diff(a, b, ""), nil
}

func toGeneric(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Diff computes the patch that transforms a into b. Both must be the result of
// unmarshalling JSON into an empty interface. Object keys are visited in
// sorted order so the same inputs always give the same patch.
func Diff(a, b any, path string) []Op {
	if a == nil && b == nil {
		return nil
	}
	if a == nil || b == nil {
		return []Op{{Op: "replace", Path: path, Value: b}}
	}

	aMap, aIsMap := a.(map[string]any)
	bMap, bIsMap := b.(map[string]any)
	if aIsMap && bIsMap {
		return diffObjects(aMap, bMap, path)
	}

	aArr, aIsArr := a.([]any)
	bArr, bIsArr := b.([]any)
	if aIsArr && bIsArr {
		return diffArrays(aArr, bArr, path)
	}

	if aIsMap || bIsMap || aIsArr || bIsArr || a != b {
		return []Op{{Op: "replace", Path: path, Value: b}}
	}
	return nil
}

func diffObjects(a, b map[string]any, path string) []Op {
	var ops []Op
	for _, k := range sortedKeys(a) {
		if _, ok := b[k]; !ok {
			ops = append(ops, Op{Op: "remove", Path: path + "/" + escapeKey(k)})
		}
	}
	for _, k := range sortedKeys(b) {
		childPath := path + "/" + escapeKey(k)
		av, inA := a[k]
		if !inA {
			ops = append(ops, Op{Op: "add", Path: childPath, Value: b[k]})
			continue
		}
		ops = append(ops, Diff(av, b[k], childPath)...)
	}
	return ops
}

func diffArrays(a, b []any, path string) []Op {
	var ops []Op
	common := min(len(a), len(b))
	for i := 0; i < common; i++ {
		ops = append(ops, Diff(a[i], b[i], path+"/"+strconv.Itoa(i))...)
	}
	// Removals run from the end so earlier indices stay valid.
	for i := len(a) - 1; i >= common; i-- {
		ops = append(ops, Op{Op: "remove", Path: path + "/" + strconv.Itoa(i)})
	}
	for i := common; i < len(b); i++ {
		ops = append(ops, Op{Op: "add", Path: path + "/" + strconv.Itoa(i), Value: b[i]})
	}
	return ops
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// escapeKey escapes a JSON Pointer token per RFC 6901.
func escapeKey(s string) string {
	s = strings.ReplaceAll(s, "~", "~0")
	s = strings.ReplaceAll(s, "/", "~1")
	return s
}

// Touches reports whether any operation changes the subtree at prefix.
func Touches(ops []Op, prefix string) bool {
	for _, op := range ops {
		if op.Path == prefix || strings.HasPrefix(op.Path, prefix+"/") {
			return true
		}
	}
	return false
}
