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

// GenBank flat file section keywords.
const (
	genBankEntryEnd      = "//"
	genBankSummaryMarker = "Summary:"
)

var genBankSectionsOfInterest = []string{"DEFINITION", "ACCESSION", "VERSION", "COMMENT"}

var genBankSectionsIgnored = []string{"LOCUS", "KEYWORDS", "SOURCE", "PRIMARY", "FEATURES", "ORIGIN"}

// genBankParser handles GenBank flat files. Only the handful of sections
// carrying gene-level annotation are kept; sequence data and feature
// tables are skipped without accumulating their lines, which keeps memory
// flat on multi-gigabyte releases. Field names follow BioPython's SeqIO
// where they overlap.
type genBankParser struct {
	path   string
	logger *slog.Logger
}

func (p *genBankParser) Records(ctx context.Context) iter.Seq[record.Record] {
	return func(yield func(record.Record) bool) {
		sections := make(map[string][]string)
		currentSection := ""
		for line := range fileio.Lines(ctx, p.path, p.logger) {
			words := strings.Fields(line)
			if len(words) == 0 {
				continue
			}
			first := words[0]
			switch {
			case first == genBankEntryEnd:
				if !yield(p.recordFromSections(sections)) {
					return
				}
				currentSection = ""
				clear(sections)
			case slices.Contains(genBankSectionsOfInterest, first):
				currentSection = first
				sections[first] = words[1:]
			case slices.Contains(genBankSectionsIgnored, first):
				currentSection = ""
			case currentSection != "":
				sections[currentSection] = append(sections[currentSection], words...)
			}
		}
	}
}

func (p *genBankParser) recordFromSections(sections map[string][]string) record.Record {
	rec := make(record.Record)
	if words := sections["DEFINITION"]; len(words) > 0 {
		rec["description"] = strings.Join(words, " ")
	}
	if words := sections["ACCESSION"]; len(words) > 0 {
		rec["name"] = strings.Join(words, " ")
	}
	if words := sections["VERSION"]; len(words) > 0 {
		rec["id"] = strings.Join(words, " ")
	}
	p.parseComment(rec, sections["COMMENT"])
	return rec
}

// parseComment splits the COMMENT section at its Summary marker. The
// summary is the key annotation field from these files; most records carry
// one, the rest keep the whole section as the comment.
func (p *genBankParser) parseComment(rec record.Record, words []string) {
	if len(words) == 0 {
		return
	}
	summaryIndex := slices.Index(words, genBankSummaryMarker)
	if summaryIndex < 0 {
		rec["comment"] = strings.Join(words, " ")
		return
	}
	if comment := strings.Join(words[:summaryIndex], " "); comment != "" {
		rec["comment"] = comment
	}
	if summary := strings.Join(words[summaryIndex+1:], " "); summary != "" {
		rec["summary"] = summary
	}
}
