// Package record defines the semi-structured record type exchanged between
// parsers and the merge engine, along with dotted-path access into it.
package record

// Record is a single annotation record: string keys mapping to scalar
// values, nested records, or lists of either. It is an alias for
// map[string]any so records decoded from a JSON store document and records
// built by parsers are interchangeable.
type Record = map[string]any
