// Package cytoband computes cytogenetic band locations for annotations
// carrying genomic coordinates, using a UCSC cytoband reference table.
package cytoband

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/annotstore/annotstore/internal/models"
	"github.com/annotstore/annotstore/internal/parser"
	"github.com/annotstore/annotstore/internal/record"
)

// CytobandField is the record key the computed bands are stored under,
// keyed per source prefix.
const CytobandField = "cytoband"

const chromosomePrefix = "chr"

// ucscHeader is the column layout of a UCSC cytoBand.txt file, which
// ships without a header line.
var ucscHeader = []string{"chromosome", "start", "end", CytobandField, "gieStain"}

// Location is one band interval on a chromosome, half-open on the end
// coordinate. Name carries the chromosome number joined to the band, e.g.
// "17q21.31".
type Location struct {
	Start int
	End   int
	Name  string
}

// LoadLocations reads a UCSC cytoband reference file into per-chromosome
// interval lists, in file order. Rows missing any required column are
// skipped.
func LoadLocations(ctx context.Context, referenceFile string, logger *slog.Logger) (map[string][]Location, error) {
	source, err := parser.New(parser.TypeTSV, referenceFile, models.ParserOptions{Header: ucscHeader}, logger)
	if err != nil {
		return nil, err
	}
	locations := make(map[string][]Location)
	for rec := range source.Records(ctx) {
		chromosome, _ := rec["chromosome"].(string)
		name, _ := rec[CytobandField].(string)
		start, startErr := strconv.Atoi(record.ResolveString(rec, "start"))
		end, endErr := strconv.Atoi(record.ResolveString(rec, "end"))
		if chromosome == "" || name == "" || startErr != nil || endErr != nil {
			continue
		}
		locations[chromosome] = append(locations[chromosome], Location{
			Start: start,
			End:   end,
			Name:  strings.TrimPrefix(chromosome, chromosomePrefix) + name,
		})
	}
	return locations, nil
}

// Annotator adds cytoband fields to annotations for one source prefix,
// reading coordinates out of the records merged under that prefix.
type Annotator struct {
	prefix    string
	spec      models.CytobandSpec
	locations map[string][]Location
	logger    *slog.Logger
}

func NewAnnotator(prefix string, spec models.CytobandSpec, locations map[string][]Location, logger *slog.Logger) *Annotator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Annotator{prefix: prefix, spec: spec, locations: locations, logger: logger}
}

// Annotate computes the bands overlapping the record's coordinate span
// and stores them under record["cytoband"][prefix]. Records without
// usable coordinates are left unchanged.
func (a *Annotator) Annotate(rec record.Record) {
	source, ok := rec[a.prefix]
	if !ok {
		return
	}
	chromosome := record.ResolveFromString(source, a.spec.Chromosome)
	if chromosome != "" && !strings.HasPrefix(chromosome, chromosomePrefix) {
		chromosome = chromosomePrefix + chromosome
	}
	start, startErr := strconv.Atoi(record.ResolveFromString(source, a.spec.Start))
	end, endErr := strconv.Atoi(record.ResolveFromString(source, a.spec.End))
	if chromosome == "" || startErr != nil || endErr != nil {
		a.logger.Debug("missing coordinates for cytoband calculation", "prefix", a.prefix)
		return
	}
	// The position index offsets 1-based coordinates back to the UCSC
	// 0-based convention.
	start -= a.spec.PositionIndex
	end -= a.spec.PositionIndex

	intervals := a.locations[chromosome]
	if len(intervals) == 0 {
		a.logger.Debug("chromosome not present in cytoband reference",
			"chromosome", chromosome, "prefix", a.prefix)
		return
	}
	bands := overlappingBands(intervals, start, end)
	if len(bands) == 0 {
		return
	}
	if existing, ok := rec[CytobandField].(record.Record); ok {
		existing[a.prefix] = bands
		return
	}
	rec[CytobandField] = record.Record{a.prefix: bands}
}

// overlappingBands walks the interval list once: the band containing
// start opens the span, every band beginning before end extends it.
// Intervals are expected in ascending file order per UCSC convention.
func overlappingBands(intervals []Location, start, end int) []string {
	var bands []string
	started := false
	for _, interval := range intervals {
		switch {
		case !started && interval.Start <= start && start < interval.End:
			bands = append(bands, interval.Name)
			started = true
		case started && end <= interval.Start:
			return bands
		case started && interval.Start < end:
			bands = append(bands, interval.Name)
		}
	}
	return bands
}
