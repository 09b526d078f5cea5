package merge

// joinIndexes cross-links the two collections for one field pair: every
// value present in both indexes links all of its base positions to all of
// its incoming positions, in both directions. Two positions need only share
// one common leaf value to be linked — multi-valued fields act as OR across
// their constituent values.
func joinIndexes(baseIndex, incomingIndex map[string]posSet) (edgeMap, edgeMap) {
	baseToIncoming := make(edgeMap)
	incomingToBase := make(edgeMap)
	for value, basePositions := range baseIndex {
		incomingPositions, ok := incomingIndex[value]
		if !ok || len(incomingPositions) == 0 {
			continue
		}
		baseToIncoming.addEdges(basePositions, incomingPositions)
		incomingToBase.addEdges(incomingPositions, basePositions)
	}
	return baseToIncoming, incomingToBase
}

// intersectEdges folds a list of per-field edge maps into one, keeping only
// keys present in every map and, for each kept key, the intersection of its
// edge sets. Keys whose intersection empties out are dropped. The fold is
// pairwise and in place on the first map, mirroring the AND semantics of
// compound join keys.
func intersectEdges(maps []edgeMap) []edgeMap {
	for len(maps) > 1 {
		first, second := maps[0], maps[1]
		for key, firstSet := range first {
			secondSet, ok := second[key]
			if !ok {
				delete(first, key)
				continue
			}
			for pos := range firstSet {
				if !secondSet.contains(pos) {
					delete(firstSet, pos)
				}
			}
			if len(firstSet) == 0 {
				delete(first, key)
			}
		}
		maps = append(maps[:1], maps[2:]...)
	}
	return maps
}

// pruneUnique enforces the per-direction cardinality constraints. Any key
// whose edge set exceeds one entry on a unique side is moved, with its full
// edge set, into the returned pruned maps; the pruned edges are then
// symmetrically removed from both directions so the surviving maps stay
// mirror-consistent. The pruned maps are what a secondary round retries.
func pruneUnique(baseEdges, incomingEdges edgeMap, baseUnique, incomingUnique bool) (prunedBase, prunedIncoming edgeMap) {
	prunedBase = make(edgeMap)
	prunedIncoming = make(edgeMap)
	if baseUnique {
		for basePos, incomingPositions := range baseEdges {
			if len(incomingPositions) > 1 {
				prunedBase.addEdges(posSet{basePos: {}}, incomingPositions)
				prunedIncoming.addEdges(incomingPositions, posSet{basePos: {}})
			}
		}
	}
	if incomingUnique {
		for incomingPos, basePositions := range incomingEdges {
			if len(basePositions) > 1 {
				prunedIncoming.addEdges(posSet{incomingPos: {}}, basePositions)
				prunedBase.addEdges(basePositions, posSet{incomingPos: {}})
			}
		}
	}
	subtractEdges(baseEdges, prunedBase)
	subtractEdges(incomingEdges, prunedIncoming)
	return prunedBase, prunedIncoming
}

// subtractEdges removes the pruned edges from all, deleting keys whose edge
// sets empty out entirely.
func subtractEdges(all, pruned edgeMap) {
	for key, prunedSet := range pruned {
		set, ok := all[key]
		if !ok {
			continue
		}
		for pos := range prunedSet {
			delete(set, pos)
		}
		if len(set) == 0 {
			delete(all, key)
		}
	}
}
