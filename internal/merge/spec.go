// Package merge implements the record-linkage engine: it matches two
// unordered record collections on one or more (possibly multi-valued,
// possibly nested) fields, enforces per-direction cardinality constraints,
// and iteratively refines ambiguous matches with secondary fields.
package merge

import (
	"fmt"
	"strings"

	"github.com/annotstore/annotstore/internal/models"
)

// FieldPair is one join key: a field path into the base collection and the
// field path it must share a value with on the incoming side.
type FieldPair struct {
	Base     string
	Incoming string
}

// Spec is a validated merge configuration for one merge call.
//
// IncomingUnique constrains the incoming->base direction: each incoming
// record may attach to at most one base record. BaseUnique constrains
// base->incoming: each base record may take at most one incoming record.
// A classic one-to-many merge (one base record collecting many incoming
// records) is therefore IncomingUnique=true, BaseUnique=false.
type Spec struct {
	PrimaryFields   []FieldPair
	SecondaryFields []FieldPair
	IncomingUnique  bool
	BaseUnique      bool
}

// ParseSpec validates a raw merge specification and converts it into a
// Spec. Validation happens before any join executes; an error here aborts
// the merge call with the base collection untouched.
func ParseSpec(raw *models.MergeSpec) (Spec, error) {
	var spec Spec
	if raw == nil || len(raw.PrimaryFields) == 0 {
		return spec, fmt.Errorf("merge specification has no primary fields")
	}
	var err error
	spec.PrimaryFields, err = parseFieldPairs(raw.PrimaryFields, "primary")
	if err != nil {
		return spec, err
	}
	spec.SecondaryFields, err = parseFieldPairs(raw.SecondaryFields, "secondary")
	if err != nil {
		return spec, err
	}
	cardinality := raw.Type
	if len(cardinality) == 0 {
		cardinality = []string{models.CardinalityMany, models.CardinalityMany}
	}
	if len(cardinality) != 2 {
		return spec, fmt.Errorf("merge type must hold exactly two entries, got %d", len(cardinality))
	}
	unique := [2]bool{}
	for i, token := range cardinality {
		switch token {
		case models.CardinalityOne:
			unique[i] = true
		case models.CardinalityMany:
		default:
			return spec, fmt.Errorf("unrecognized merge cardinality %q (want %q or %q)",
				token, models.CardinalityOne, models.CardinalityMany)
		}
	}
	spec.IncomingUnique = unique[0]
	spec.BaseUnique = unique[1]
	return spec, nil
}

func parseFieldPairs(pairs [][]string, kind string) ([]FieldPair, error) {
	result := make([]FieldPair, 0, len(pairs))
	for i, pair := range pairs {
		if len(pair) != 2 {
			return nil, fmt.Errorf("%s field pair %d must hold exactly two paths, got %d", kind, i, len(pair))
		}
		fp := FieldPair{
			Base:     strings.TrimSpace(pair[0]),
			Incoming: strings.TrimSpace(pair[1]),
		}
		if fp.Base == "" || fp.Incoming == "" {
			return nil, fmt.Errorf("%s field pair %d has an empty path", kind, i)
		}
		result = append(result, fp)
	}
	return result, nil
}
