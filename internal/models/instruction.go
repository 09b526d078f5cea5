// Package models holds the data types shared across annotstore: instruction
// documents, per-source processing results, and run catalog entries.
package models

// Instruction field values recognized in merge specifications.
const (
	CardinalityOne  = "one"
	CardinalityMany = "many"
)

// SourceSpec describes one annotation source in an instruction document:
// which files to read, how to parse them, how to filter the parsed records,
// and how to merge them into the store.
type SourceSpec struct {
	Files      []string            `json:"files"`
	Prefix     string              `json:"prefix"`
	Source     bool                `json:"source,omitempty"`
	Parser     ParserSpec          `json:"parser"`
	Filter     map[string][]string `json:"filter,omitempty"`
	KeepFields []string            `json:"keep,omitempty"`
	DropFields []string            `json:"drop,omitempty"`
	Merge      *MergeSpec          `json:"merge,omitempty"`
	Metadata   map[string]any      `json:"metadata,omitempty"`
	Cytoband   *CytobandSpec       `json:"cytoband,omitempty"`
}

// ParserSpec selects a parser type and its options.
type ParserSpec struct {
	Type       string        `json:"type"`
	Parameters ParserOptions `json:"parameters,omitempty"`
}

// ParserOptions are the per-format knobs a source may set. Parsers ignore
// options that do not apply to them.
type ParserOptions struct {
	Header            []string     `json:"header,omitempty"`
	HeaderLine        *int         `json:"header_line,omitempty"`
	CommentCharacters string       `json:"comment_characters,omitempty"`
	EmptyFields       []string     `json:"empty_fields,omitempty"`
	ListIdentifier    string       `json:"list_identifier,omitempty"`
	StripCharacters   string       `json:"strip_characters,omitempty"`
	SplitFields       []SplitField `json:"split_fields,omitempty"`
	RecordPath        string       `json:"record_path,omitempty"`
}

// SplitField derives a new record field by splitting an existing field's
// string value, e.g. extracting a bare Ensembl ID from "ID.version".
type SplitField struct {
	Name      string `json:"name"`
	Field     string `json:"field"`
	Character string `json:"character"`
	Index     int    `json:"index"`
}

// MergeSpec is the raw merge configuration from an instruction document.
// Each field pair is [base path, incoming path]; Type is the cardinality
// pair, first token constraining how many base records an incoming record
// may attach to, second how many incoming records a base record may take.
type MergeSpec struct {
	PrimaryFields   [][]string `json:"primary_fields"`
	SecondaryFields [][]string `json:"secondary_fields,omitempty"`
	Type            []string   `json:"type"`
}

// CytobandSpec configures cytoband calculation for a merged source.
type CytobandSpec struct {
	Chromosome    string `json:"chromosome"`
	Start         string `json:"start"`
	End           string `json:"end"`
	PositionIndex int    `json:"position_index"`
	ReferenceFile string `json:"reference_file"`
}

// UpdateInstruction is the document shape for annotstore update.
type UpdateInstruction struct {
	Add     []SourceSpec `json:"add,omitempty"`
	Replace []SourceSpec `json:"replace,omitempty"`
	Remove  []string     `json:"remove,omitempty"`
}
