// Package store persists annotstore state: the annotation store document
// itself as JSON, and a SQLite catalog of the runs that produced it.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/annotstore/annotstore/internal/record"
)

// Document is the annotation store on disk: per-source metadata plus the
// unified annotation collection.
type Document struct {
	Metadata   map[string]any  `json:"metadata"`
	Annotation []record.Record `json:"annotation"`
}

// NewDocument returns an empty store document.
func NewDocument() *Document {
	return &Document{Metadata: make(map[string]any)}
}

// Read loads a store document from path. A missing file yields an empty
// document so that create and update can share one load path.
func Read(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return NewDocument(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading store %s: %w", path, err)
	}
	doc := NewDocument()
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("decoding store %s: %w", path, err)
	}
	if doc.Metadata == nil {
		doc.Metadata = make(map[string]any)
	}
	return doc, nil
}

// Write persists the document to path atomically: the JSON is written to a
// temporary file in the same directory and renamed over the target, so a
// failed run never truncates an existing store.
func (d *Document) Write(path string) error {
	data, err := json.MarshalIndent(d, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding store: %w", err)
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".annotstore-*.json")
	if err != nil {
		return fmt.Errorf("creating temporary store file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing store: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing store %s: %w", path, err)
	}
	return nil
}
