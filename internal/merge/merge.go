package merge

import (
	"encoding/json"
	"log/slog"
	"maps"
	"slices"

	"github.com/annotstore/annotstore/internal/models"
	"github.com/annotstore/annotstore/internal/record"
)

// Merger performs one merge call: it matches the incoming collection
// against the base collection per a Spec, embeds matched incoming records
// into base records under the prefix key, and consumes the incoming
// collection. The base collection is mutated in place and its positions
// never change meaning during the call.
//
// The algorithm is hash-index based rather than sort-merge: multi-valued
// fields and nested fan-out would force a single record to appear under
// many sort keys at once, so each field pair gets its own value index and
// candidate edges are intersected across pairs.
type Merger struct {
	base     []record.Record
	incoming []record.Record
	prefix   string
	spec     Spec
	logger   *slog.Logger
	debug    bool

	// Running per-field edge maps; intersected down to a single map
	// before each apply step.
	baseEdges     []edgeMap
	incomingEdges []edgeMap
}

// New prepares a merge of incoming into base under prefix. The engine holds
// no state across calls; each Merger is used for exactly one Run.
func New(base, incoming []record.Record, prefix string, spec Spec, logger *slog.Logger, debug bool) *Merger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Merger{
		base:     base,
		incoming: incoming,
		prefix:   prefix,
		spec:     spec,
		logger:   logger,
		debug:    debug,
	}
}

// Run executes the merge: all primary field pairs are joined and
// intersected to establish candidate matches, cardinality pruning and the
// apply step embed everything that resolved, and secondary field pairs are
// consumed one at a time to retry whatever was pruned, until either nothing
// is left unresolved or the secondary fields run out. Whatever remains
// unresolved is reported and left unmerged; the incoming collection is
// cleared regardless.
func (m *Merger) Run() models.MergeResult {
	var result models.MergeResult
	m.logger.Info("merging annotations into store", "prefix", m.prefix)

	for _, pair := range m.spec.PrimaryFields {
		m.joinPair(pair)
	}
	m.baseEdges = intersectEdges(m.baseEdges)
	m.incomingEdges = intersectEdges(m.incomingEdges)
	m.applyMerged(&result)

	secondary := m.spec.SecondaryFields
	for len(m.baseEdges) > 0 && len(secondary) > 0 {
		pair := secondary[0]
		secondary = secondary[1:]
		m.joinPair(pair)
		m.baseEdges = intersectEdges(m.baseEdges)
		m.incomingEdges = intersectEdges(m.incomingEdges)
		m.applyMerged(&result)
	}

	// Unresolved counts every base record the call left without a merge,
	// whether it had ambiguous candidates or none at all.
	result.Unresolved = len(m.base) - result.Merged
	if len(m.baseEdges) > 0 {
		ambiguous := m.baseEdges[0]
		m.logger.Info("annotations could not be matched under given merge conditions",
			"count", len(ambiguous), "prefix", m.prefix)
		if m.debug {
			m.dumpUnresolved(ambiguous)
		}
	}

	// The incoming collection is consumed: matched or not, its records
	// are never retried by a later call.
	clear(m.incoming)
	m.logger.Info("finished merging annotations", "prefix", m.prefix)
	return result
}

// joinPair builds value indexes for one field pair and records the
// resulting directed edges. When a previous pair already produced edges,
// indexing is restricted to positions still in play; the result is
// identical to a full index because edges are intersected afterwards.
func (m *Merger) joinPair(pair FieldPair) {
	var baseRestrict, incomingRestrict posSet
	if len(m.baseEdges) > 0 {
		if positions := m.baseEdges[0].positions(); len(positions) > 0 {
			baseRestrict = positions
		}
		if positions := m.incomingEdges[0].positions(); len(positions) > 0 {
			incomingRestrict = positions
		}
	}
	baseIndex := buildValueIndex(m.base, pair.Base, baseRestrict)
	incomingIndex := buildValueIndex(m.incoming, pair.Incoming, incomingRestrict)
	baseToIncoming, incomingToBase := joinIndexes(baseIndex, incomingIndex)
	m.baseEdges = append(m.baseEdges, baseToIncoming)
	m.incomingEdges = append(m.incomingEdges, incomingToBase)
}

// applyMerged prunes cardinality violations, embeds every surviving match,
// and stages the pruned edges as the candidate set for the next round.
func (m *Merger) applyMerged(result *models.MergeResult) {
	var baseEdges, incomingEdges edgeMap
	if len(m.baseEdges) > 0 {
		baseEdges = m.baseEdges[0]
	}
	if len(m.incomingEdges) > 0 {
		incomingEdges = m.incomingEdges[0]
	}
	prunedBase, prunedIncoming := pruneUnique(baseEdges, incomingEdges,
		m.spec.BaseUnique, m.spec.IncomingUnique)

	merged := 0
	for basePos, incomingPositions := range baseEdges {
		m.embed(basePos, incomingPositions)
		merged++
	}
	result.Merged += merged
	m.logger.Info("merged annotations", "count", merged, "prefix", m.prefix)

	m.baseEdges = nil
	if len(prunedBase) > 0 {
		m.baseEdges = []edgeMap{prunedBase}
	}
	m.incomingEdges = nil
	if len(prunedIncoming) > 0 {
		m.incomingEdges = []edgeMap{prunedIncoming}
	}
}

// embed appends the matched incoming records to the base record's list
// under the prefix key, extending any list already present from an earlier
// call with the same prefix. Incoming records are appended in ascending
// position order so repeated runs produce identical stores.
func (m *Merger) embed(basePos int, incomingPositions posSet) {
	rec := m.base[basePos]
	list, _ := rec[m.prefix].([]any)
	for _, incomingPos := range slices.Sorted(maps.Keys(incomingPositions)) {
		list = append(list, m.incoming[incomingPos])
		if m.debug {
			m.logger.Debug("merged a pair of annotations",
				"base", jsonDump(rec), "incoming", jsonDump(m.incoming[incomingPos]))
		}
	}
	rec[m.prefix] = list
}

// dumpUnresolved logs every unresolved base record alongside all of its
// candidate incoming records.
func (m *Merger) dumpUnresolved(edges edgeMap) {
	for basePos, incomingPositions := range edges {
		candidates := make([]record.Record, 0, len(incomingPositions))
		for _, incomingPos := range slices.Sorted(maps.Keys(incomingPositions)) {
			candidates = append(candidates, m.incoming[incomingPos])
		}
		m.logger.Debug("could not match annotation with candidates",
			"base", jsonDump(m.base[basePos]), "candidates", jsonDump(candidates))
	}
}

func jsonDump(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "<unserializable>"
	}
	return string(data)
}
