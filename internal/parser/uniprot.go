package parser

import (
	"context"
	"iter"
	"log/slog"
	"slices"
	"strings"

	"github.com/annotstore/annotstore/internal/fileio"
	"github.com/annotstore/annotstore/internal/record"
)

const (
	uniProtEmptyField   = "-"
	uniProtAccessionKey = "UniProtKB-AC"
)

// uniProtDATParser handles UniProt ID-mapping DAT files. The lines of one
// accession are not necessarily consecutive, so the whole file is
// accumulated before any record is yielded; one pass over the file trades
// memory for not re-reading it per record. Records come out in the order
// their accession was first seen.
type uniProtDATParser struct {
	path   string
	logger *slog.Logger
}

// datEntry accumulates the database IDs of one accession, deduplicated,
// keyed and ordered by database name as encountered.
type datEntry struct {
	databases []string
	ids       map[string][]string
}

func (p *uniProtDATParser) Records(ctx context.Context) iter.Seq[record.Record] {
	return func(yield func(record.Record) bool) {
		entries := make(map[string]*datEntry)
		var order []string
		for line := range fileio.Lines(ctx, p.path, p.logger) {
			accession, database, databaseID := parseDATLine(line)
			if accession == "" || database == "" || databaseID == "" || databaseID == uniProtEmptyField {
				continue
			}
			entry, ok := entries[accession]
			if !ok {
				entry = &datEntry{ids: make(map[string][]string)}
				entries[accession] = entry
				order = append(order, accession)
			}
			if _, ok := entry.ids[database]; !ok {
				entry.databases = append(entry.databases, database)
			}
			if !slices.Contains(entry.ids[database], databaseID) {
				entry.ids[database] = append(entry.ids[database], databaseID)
			}
		}
		for _, accession := range order {
			entry := entries[accession]
			rec := record.Record{uniProtAccessionKey: []string{accession}}
			for _, database := range entry.databases {
				rec[database] = entry.ids[database]
			}
			if !yield(rec) {
				return
			}
		}
	}
}

// parseDATLine splits an "accession<TAB>database<TAB>id" line. Isoform
// suffixes are dropped from the accession so all isoforms accumulate under
// the canonical entry.
func parseDATLine(line string) (accession, database, databaseID string) {
	parts := strings.Split(line, "\t")
	if len(parts) != 3 {
		return "", "", ""
	}
	accession, _, _ = strings.Cut(strings.TrimSpace(parts[0]), "-")
	return accession, strings.TrimSpace(parts[1]), strings.TrimSpace(parts[2])
}
