package core

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/annotstore/annotstore/internal/cytoband"
	"github.com/annotstore/annotstore/internal/merge"
	"github.com/annotstore/annotstore/internal/models"
	"github.com/annotstore/annotstore/internal/parser"
	"github.com/annotstore/annotstore/internal/record"
	"github.com/annotstore/annotstore/internal/store"
)

// Annotation builds and revises one annotation store document.
type Annotation struct {
	storePath string
	doc       *store.Document
	logger    *slog.Logger
	debug     bool
}

// NewAnnotation starts from an empty store document at storePath; an
// existing file at that path is replaced on Write.
func NewAnnotation(storePath string, logger *slog.Logger, debug bool) *Annotation {
	if logger == nil {
		logger = slog.Default()
	}
	return &Annotation{
		storePath: storePath,
		doc:       store.NewDocument(),
		logger:    logger,
		debug:     debug,
	}
}

// LoadAnnotation reads the existing store document at storePath for an
// update run. A missing file loads as empty.
func LoadAnnotation(storePath string, logger *slog.Logger, debug bool) (*Annotation, error) {
	annotation := NewAnnotation(storePath, logger, debug)
	doc, err := store.Read(storePath)
	if err != nil {
		return nil, err
	}
	if len(doc.Annotation) == 0 {
		logger.Warn("no annotations found in existing store", "path", storePath)
	}
	annotation.doc = doc
	return annotation, nil
}

// Document exposes the in-memory store document, primarily for tests.
func (a *Annotation) Document() *store.Document {
	return a.doc
}

// Write persists the store document.
func (a *Annotation) Write() error {
	return a.doc.Write(a.storePath)
}

// Create processes each source in order against the in-memory document.
// Processing stops at the first source whose configuration is unusable;
// the store file is untouched until Write.
func (a *Annotation) Create(ctx context.Context, sources []models.SourceSpec) (models.BuildResult, error) {
	var result models.BuildResult
	for _, source := range sources {
		sourceResult, err := a.AddSource(ctx, source)
		if err != nil {
			return result, err
		}
		result.Sources = append(result.Sources, sourceResult)
	}
	return result, nil
}

// Update applies an update instruction: removals first, then
// replacements, then additions, so a replace within one instruction never
// merges against records it is superseding.
func (a *Annotation) Update(ctx context.Context, instruction *models.UpdateInstruction) (models.BuildResult, error) {
	var result models.BuildResult
	for _, prefix := range instruction.Remove {
		a.RemovePrefix(prefix)
	}
	for _, source := range instruction.Replace {
		a.RemovePrefix(source.Prefix)
		sourceResult, err := a.AddSource(ctx, source)
		if err != nil {
			return result, err
		}
		result.Sources = append(result.Sources, sourceResult)
	}
	for _, source := range instruction.Add {
		sourceResult, err := a.AddSource(ctx, source)
		if err != nil {
			return result, err
		}
		result.Sources = append(result.Sources, sourceResult)
	}
	return result, nil
}

// AddSource parses the source's files and either seeds the store with
// their records or merges them into the existing annotations, then
// applies source metadata and cytoband calculation.
func (a *Annotation) AddSource(ctx context.Context, source models.SourceSpec) (models.SourceResult, error) {
	result := models.SourceResult{
		Prefix:  source.Prefix,
		Files:   len(source.Files),
		Initial: source.Source,
	}
	var mergeSpec merge.Spec
	if !source.Source {
		parsed, err := merge.ParseSpec(source.Merge)
		if err != nil {
			return result, fmt.Errorf("source %s: %w", source.Prefix, err)
		}
		mergeSpec = parsed
	}
	for _, file := range source.Files {
		records, err := a.parseFile(ctx, file, source)
		if err != nil {
			return result, fmt.Errorf("source %s: %w", source.Prefix, err)
		}
		result.Parsed += len(records)
		if len(records) == 0 {
			a.logger.Warn("no annotations created from source file", "file", file, "prefix", source.Prefix)
			continue
		}
		if source.Source {
			a.logger.Info("adding initial annotations", "file", file, "prefix", source.Prefix)
			for _, rec := range records {
				a.doc.Annotation = append(a.doc.Annotation, record.Record{
					source.Prefix: []any{rec},
				})
			}
			continue
		}
		a.logger.Info("merging annotations", "file", file, "prefix", source.Prefix)
		mergeResult := merge.New(a.doc.Annotation, records, source.Prefix, mergeSpec, a.logger, a.debug).Run()
		result.Merged += mergeResult.Merged
		result.Unresolved += mergeResult.Unresolved
	}
	if source.Prefix != "" && source.Metadata != nil {
		a.doc.Metadata[source.Prefix] = source.Metadata
	}
	if source.Cytoband != nil {
		if err := a.addCytobands(ctx, source.Prefix, *source.Cytoband); err != nil {
			return result, fmt.Errorf("source %s: %w", source.Prefix, err)
		}
	}
	return result, nil
}

// parseFile streams one file through the source's parser and returns the
// records that survive filtering and field pruning.
func (a *Annotation) parseFile(ctx context.Context, file string, source models.SourceSpec) ([]record.Record, error) {
	fileParser, err := parser.New(source.Parser.Type, file, source.Parser.Parameters, a.logger)
	if err != nil {
		return nil, err
	}
	var records []record.Record
	for rec := range fileParser.Records(ctx) {
		if len(source.Filter) > 0 && !filterRecord(rec, source.Filter) {
			a.logger.Debug("filtered out record", "file", file)
			continue
		}
		if len(source.KeepFields) > 0 {
			rec = retainFields(rec, source.KeepFields)
		} else if len(source.DropFields) > 0 {
			dropFields(rec, source.DropFields)
		}
		if len(rec) == 0 {
			a.logger.Debug("filtered out record", "file", file)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// addCytobands computes band locations for every record carrying the
// source's prefix.
func (a *Annotation) addCytobands(ctx context.Context, prefix string, spec models.CytobandSpec) error {
	locations, err := cytoband.LoadLocations(ctx, spec.ReferenceFile, a.logger)
	if err != nil {
		return err
	}
	if len(locations) == 0 {
		a.logger.Info("no cytoband reference data loaded, skipping calculation",
			"file", spec.ReferenceFile, "prefix", prefix)
		return nil
	}
	annotator := cytoband.NewAnnotator(prefix, spec, locations, a.logger)
	for _, rec := range a.doc.Annotation {
		annotator.Annotate(rec)
	}
	return nil
}

// RemovePrefix strips one source from the store: its embedded records,
// its cytoband entries, and its metadata.
func (a *Annotation) RemovePrefix(prefix string) {
	a.logger.Info("removing annotations", "prefix", prefix)
	for _, rec := range a.doc.Annotation {
		delete(rec, prefix)
		if bands, ok := rec[cytoband.CytobandField].(record.Record); ok {
			delete(bands, prefix)
			if len(bands) == 0 {
				delete(rec, cytoband.CytobandField)
			}
		}
	}
	delete(a.doc.Metadata, prefix)
}
