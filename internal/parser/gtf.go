package parser

import (
	"context"
	"iter"
	"log/slog"
	"strings"

	"github.com/annotstore/annotstore/internal/fileio"
	"github.com/annotstore/annotstore/internal/models"
	"github.com/annotstore/annotstore/internal/record"
)

const gtfAttributeField = "attribute"

// gtfHeader is the fixed GTF/GFF2 column layout.
var gtfHeader = []string{
	"seqname", "source", "feature", "start", "end",
	"score", "strand", "frame", gtfAttributeField,
}

// gtfParser handles GTF (Gene Transfer Format) files: tab-separated with a
// fixed column set, "." marking empty fields, and a trailing attribute
// column holding key "value" pairs separated by semicolons.
type gtfParser struct {
	header            []string
	commentCharacters string
	emptyFields       []string
	splitFields       []models.SplitField
	path              string
	logger            *slog.Logger
}

func newGTF(path string, opts models.ParserOptions, logger *slog.Logger) *gtfParser {
	parser := &gtfParser{
		path:              path,
		header:            opts.Header,
		commentCharacters: opts.CommentCharacters,
		emptyFields:       opts.EmptyFields,
		splitFields:       opts.SplitFields,
		logger:            logger,
	}
	if parser.header == nil {
		parser.header = gtfHeader
	}
	if parser.commentCharacters == "" {
		parser.commentCharacters = defaultCommentCharacters
	}
	if parser.emptyFields == nil {
		parser.emptyFields = []string{"."}
	}
	return parser
}

func (p *gtfParser) Records(ctx context.Context) iter.Seq[record.Record] {
	return func(yield func(record.Record) bool) {
		for line := range fileio.Lines(ctx, p.path, p.logger) {
			if line == "" || strings.HasPrefix(line, p.commentCharacters) {
				continue
			}
			rec := p.parseEntry(line)
			removeEmptyFields(rec, p.emptyFields)
			applySplitFields(rec, p.splitFields)
			if len(rec) > 0 && !yield(rec) {
				return
			}
		}
	}
}

func (p *gtfParser) parseEntry(line string) record.Record {
	rec := make(record.Record, len(p.header))
	values := strings.Split(line, "\t")
	for i, name := range p.header {
		if i >= len(values) {
			break
		}
		rec[name] = values[i]
	}
	if attributes, ok := rec[gtfAttributeField].(string); ok && attributes != "" {
		rec[gtfAttributeField] = p.parseAttributes(attributes)
	}
	return rec
}

// parseAttributes expands the attribute column into a nested record. A tag
// repeated within one line accumulates its values into a list.
func (p *gtfParser) parseAttributes(attributes string) record.Record {
	parsed := make(record.Record)
	for _, attribute := range strings.Split(attributes, ";") {
		attribute = strings.TrimSpace(attribute)
		if attribute == "" || p.isEmpty(attribute) {
			continue
		}
		name, value, ok := strings.Cut(attribute, `"`)
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(value), `"`))
		if name == "" || value == "" {
			continue
		}
		switch previous := parsed[name].(type) {
		case nil:
			parsed[name] = value
		case string:
			parsed[name] = []string{previous, value}
		case []string:
			parsed[name] = append(previous, value)
		}
	}
	return parsed
}

func (p *gtfParser) isEmpty(value string) bool {
	for _, empty := range p.emptyFields {
		if value == empty {
			return true
		}
	}
	return false
}
