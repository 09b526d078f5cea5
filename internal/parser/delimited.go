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

const (
	defaultCommentCharacters = "#"
	defaultStripCharacters   = ` '"`
)

// delimitedParser handles flat TSV and CSV files: an optional header line,
// comment lines, per-value stripping, list expansion, and empty field
// removal.
type delimitedParser struct {
	path      string
	separator string
	header    []string
	// headerLine is the 0-based line the header sits on; nil means the
	// first non-comment line when no explicit header is given.
	headerLine        *int
	commentCharacters string
	emptyFields       []string
	listIdentifier    string
	stripCharacters   string
	splitFields       []models.SplitField
	logger            *slog.Logger
}

func newDelimited(path, separator string, opts models.ParserOptions, logger *slog.Logger) *delimitedParser {
	parser := &delimitedParser{
		path:              path,
		separator:         separator,
		header:            opts.Header,
		headerLine:        opts.HeaderLine,
		commentCharacters: opts.CommentCharacters,
		emptyFields:       opts.EmptyFields,
		listIdentifier:    opts.ListIdentifier,
		stripCharacters:   opts.StripCharacters,
		splitFields:       opts.SplitFields,
		logger:            logger,
	}
	if parser.commentCharacters == "" {
		parser.commentCharacters = defaultCommentCharacters
	}
	if parser.emptyFields == nil {
		parser.emptyFields = []string{""}
	}
	if parser.stripCharacters == "" {
		parser.stripCharacters = defaultStripCharacters
	}
	return parser
}

// Records yields one record per data line, pairing header field names with
// the line's values. Lines before the header and comment lines yield
// nothing.
func (p *delimitedParser) Records(ctx context.Context) iter.Seq[record.Record] {
	return func(yield func(record.Record) bool) {
		header := p.header
		index := -1
		for line := range fileio.Lines(ctx, p.path, p.logger) {
			index++
			switch {
			case p.headerLine != nil && header == nil:
				if index == *p.headerLine {
					header = p.parseHeader(line)
				}
			case strings.HasPrefix(line, p.commentCharacters):
				continue
			case header == nil:
				header = p.parseHeader(line)
			default:
				rec := p.parseEntry(header, line)
				removeEmptyFields(rec, p.emptyFields)
				applySplitFields(rec, p.splitFields)
				if len(rec) > 0 && !yield(rec) {
					return
				}
			}
		}
	}
}

func (p *delimitedParser) parseHeader(line string) []string {
	line = strings.Trim(line, p.commentCharacters)
	var header []string
	for _, field := range strings.Split(line, p.separator) {
		if field == "" {
			continue
		}
		header = append(header, strings.Trim(field, p.stripCharacters))
	}
	return header
}

// parseEntry pairs header names with the line's values. Extra values
// beyond the header are dropped; a short line simply fills fewer fields.
func (p *delimitedParser) parseEntry(header []string, line string) record.Record {
	rec := make(record.Record, len(header))
	if line == "" {
		return rec
	}
	values := strings.Split(line, p.separator)
	for i, name := range header {
		if i >= len(values) {
			break
		}
		value := strings.Trim(values[i], p.stripCharacters)
		rec[name] = splitList(value, p.listIdentifier)
	}
	return rec
}
