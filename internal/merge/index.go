package merge

import (
	"github.com/annotstore/annotstore/internal/record"
)

// posSet is a set of record positions within one collection.
type posSet map[int]struct{}

// edgeMap is a directed adjacency: position -> the set of positions in the
// other collection it is compatible with.
type edgeMap map[int]posSet

func (s posSet) add(pos int) { s[pos] = struct{}{} }

func (s posSet) contains(pos int) bool {
	_, ok := s[pos]
	return ok
}

// addEdges links every key in keys to every position in values.
func (m edgeMap) addEdges(keys posSet, values posSet) {
	if len(values) == 0 {
		return
	}
	for key := range keys {
		set, ok := m[key]
		if !ok {
			set = make(posSet, len(values))
			m[key] = set
		}
		for v := range values {
			set.add(v)
		}
	}
}

func (m edgeMap) positions() posSet {
	set := make(posSet, len(m))
	for pos := range m {
		set.add(pos)
	}
	return set
}

// buildValueIndex maps every leaf value of path across the collection to
// the set of positions carrying it. A nil restrict indexes every position;
// otherwise only the listed positions are visited — a pure optimization,
// since later steps intersect by position anyway. Positions whose leaf
// value set is empty contribute nothing.
func buildValueIndex(collection []record.Record, path string, restrict posSet) map[string]posSet {
	index := make(map[string]posSet)
	if path == "" {
		return index
	}
	for pos, rec := range collection {
		if restrict != nil && !restrict.contains(pos) {
			continue
		}
		for _, value := range record.Resolve(rec, path) {
			set, ok := index[value]
			if !ok {
				set = make(posSet)
				index[value] = set
			}
			set.add(pos)
		}
	}
	return index
}
