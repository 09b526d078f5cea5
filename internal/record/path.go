package record

import (
	"strconv"
	"strings"
)

// PathSeparator joins the segments of a nested field path.
const PathSeparator = "."

// Resolve walks path inside rec and returns the deduplicated leaf values
// found there, in first-encountered order. Lists fan out: a list of records
// resolves the remaining path against every element, a list of scalars
// yields the scalars themselves. Missing keys yield an empty result, never
// an error.
//
// Resolution is literal-key-first: if the full remaining path matches a key
// at the current level, that key wins before the path is split on ".". A
// field literally named "a.b" therefore shadows a nested a -> b path of the
// same spelling. This matches the behavior existing merge configurations
// rely on and is deliberately not "fixed" here.
func Resolve(rec Record, path string) []string {
	var leaves []string
	seen := make(map[string]struct{})
	resolveValue(rec, path, &leaves, seen)
	return leaves
}

// ResolveString returns the first leaf value of path in rec, or "" when the
// path resolves to nothing.
func ResolveString(rec Record, path string) string {
	leaves := Resolve(rec, path)
	if len(leaves) == 0 {
		return ""
	}
	return leaves[0]
}

// ResolveFrom resolves path against an arbitrary value rather than a
// top-level record, fanning out across lists the same way Resolve does.
// Useful when the caller already holds a sub-document, such as the list of
// records embedded under a merge prefix.
func ResolveFrom(value any, path string) []string {
	var leaves []string
	seen := make(map[string]struct{})
	resolveValue(value, path, &leaves, seen)
	return leaves
}

// ResolveFromString is ResolveFrom narrowed to the first leaf value, or ""
// when the path resolves to nothing.
func ResolveFromString(value any, path string) string {
	leaves := ResolveFrom(value, path)
	if len(leaves) == 0 {
		return ""
	}
	return leaves[0]
}

func resolveValue(value any, path string, leaves *[]string, seen map[string]struct{}) {
	switch v := value.(type) {
	case Record:
		if path == "" {
			return
		}
		if direct, ok := v[path]; ok {
			resolveValue(direct, "", leaves, seen)
			return
		}
		head, rest, found := strings.Cut(path, PathSeparator)
		if !found {
			return
		}
		if next, ok := v[head]; ok {
			resolveValue(next, rest, leaves, seen)
		}
	case []any:
		for _, item := range v {
			resolveValue(item, path, leaves, seen)
		}
	case []Record:
		for _, item := range v {
			resolveValue(item, path, leaves, seen)
		}
	case []string:
		for _, item := range v {
			resolveValue(item, path, leaves, seen)
		}
	default:
		if path != "" {
			return
		}
		if s, ok := scalarString(value); ok {
			addLeaf(s, leaves, seen)
		}
	}
}

func addLeaf(s string, leaves *[]string, seen map[string]struct{}) {
	if _, dup := seen[s]; dup {
		return
	}
	seen[s] = struct{}{}
	*leaves = append(*leaves, s)
}

// scalarString renders a scalar leaf as its canonical string form. Numeric
// and boolean leaves are opaque: they only need to compare equal to
// themselves, so a stable rendering suffices.
func scalarString(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case bool:
		return strconv.FormatBool(v), true
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case nil:
		return "", false
	default:
		return "", false
	}
}

// Assign sets path in rec to value, creating intermediate nested records as
// needed. Mirroring the read side, a key literally spelled like the full
// path is overwritten in place instead of being interpreted as nested
// segments.
func Assign(rec Record, path string, value any) {
	current := rec
	remaining := path
	for {
		if _, ok := current[remaining]; ok {
			current[remaining] = value
			return
		}
		head, rest, found := strings.Cut(remaining, PathSeparator)
		if !found {
			current[remaining] = value
			return
		}
		next, ok := current[head].(Record)
		if !ok {
			next = Record{}
			current[head] = next
		}
		current = next
		remaining = rest
	}
}

// Remove deletes the value at path in rec if present, with the same
// literal-key-first resolution as Resolve. Absent paths are a no-op.
func Remove(rec Record, path string) {
	current := rec
	remaining := path
	for {
		if _, ok := current[remaining]; ok {
			delete(current, remaining)
			return
		}
		head, rest, found := strings.Cut(remaining, PathSeparator)
		if !found {
			return
		}
		next, ok := current[head].(Record)
		if !ok {
			return
		}
		current = next
		remaining = rest
	}
}
