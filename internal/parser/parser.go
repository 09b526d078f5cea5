// Package parser turns annotation source files into record streams. Each
// format gets its own Source implementation; all of them yield flat or
// nested string-keyed records one at a time so arbitrarily large files
// never need to fit in memory at once.
package parser

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"github.com/annotstore/annotstore/internal/models"
	"github.com/annotstore/annotstore/internal/record"
)

// Parser type names accepted in instruction documents.
const (
	TypeTSV        = "TSV"
	TypeCSV        = "CSV"
	TypeGTF        = "GTF"
	TypeGenBank    = "GenBank"
	TypeUniProtDAT = "UniProtDAT"
	TypeXML        = "XML"
)

// Source streams the records of one annotation file.
type Source interface {
	Records(ctx context.Context) iter.Seq[record.Record]
}

// New builds the Source for the given parser type. Options that do not
// apply to the chosen format are ignored.
func New(parserType, path string, opts models.ParserOptions, logger *slog.Logger) (Source, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch parserType {
	case TypeTSV:
		return newDelimited(path, "\t", opts, logger), nil
	case TypeCSV:
		return newDelimited(path, ",", opts, logger), nil
	case TypeGTF:
		return newGTF(path, opts, logger), nil
	case TypeGenBank:
		return &genBankParser{path: path, logger: logger}, nil
	case TypeUniProtDAT:
		return &uniProtDATParser{path: path, logger: logger}, nil
	case TypeXML:
		return newXML(path, opts, logger)
	default:
		return nil, fmt.Errorf("unknown parser type %q", parserType)
	}
}

// applySplitFields derives new fields by splitting existing string values,
// e.g. pulling a bare Ensembl ID out of "ID.version". Missing or
// non-string source fields and out-of-range indices leave the record
// unchanged.
func applySplitFields(rec record.Record, splitFields []models.SplitField) {
	for _, split := range splitFields {
		value, ok := rec[split.Field].(string)
		if !ok {
			continue
		}
		parts := strings.Split(value, split.Character)
		if split.Index >= 0 && split.Index < len(parts) {
			rec[split.Name] = parts[split.Index]
		}
	}
}

// removeEmptyFields drops fields whose string value marks a missing entry.
func removeEmptyFields(rec record.Record, emptyFields []string) {
	for name, value := range rec {
		text, ok := value.(string)
		if !ok {
			continue
		}
		for _, empty := range emptyFields {
			if text == empty {
				delete(rec, name)
				break
			}
		}
	}
}

// splitList turns a delimited value into a list, dropping whitespace-only
// entries. Values without the identifier pass through as strings.
func splitList(value, identifier string) any {
	if identifier == "" || !strings.Contains(value, identifier) {
		return value
	}
	var list []string
	for _, part := range strings.Split(value, identifier) {
		if strings.TrimSpace(part) != "" {
			list = append(list, part)
		}
	}
	return list
}
