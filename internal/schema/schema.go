// Package schema validates and loads instruction documents. The JSON
// Schemas for the create and update shapes are embedded; instruction
// files themselves may be JSON or YAML.
package schema

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"

	"github.com/annotstore/annotstore/internal/models"
)

//go:embed schemas/create.json schemas/update.json
var schemaFiles embed.FS

// InputError reports an instruction document that failed schema
// validation, carrying every violation with its location.
type InputError struct {
	Count int
	cause *jsonschema.ValidationError
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%d validation error(s) found in the given input: %v", e.Count, e.cause)
}

func (e *InputError) Unwrap() error { return e.cause }

func countLeaves(err *jsonschema.ValidationError) int {
	if len(err.Causes) == 0 {
		return 1
	}
	count := 0
	for _, cause := range err.Causes {
		count += countLeaves(cause)
	}
	return count
}

type compiledSchemas struct {
	create *jsonschema.Schema
	update *jsonschema.Schema
}

var loadSchemas = sync.OnceValues(func() (compiledSchemas, error) {
	compiler := jsonschema.NewCompiler()
	// Each schema's embedded draft-04 "id" ("schemas/<name>.json") resolves
	// against the URL it is registered under, so update.json must be
	// registered at the root for its "create.json" refs to land on the URL
	// create.json is registered under.
	for name, file := range map[string]string{
		"schemas/create.json": "schemas/create.json",
		"update.json":         "schemas/update.json",
	} {
		data, err := schemaFiles.ReadFile(file)
		if err != nil {
			return compiledSchemas{}, fmt.Errorf("reading embedded schema %s: %w", file, err)
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
		if err != nil {
			return compiledSchemas{}, fmt.Errorf("decoding embedded schema %s: %w", file, err)
		}
		if err := compiler.AddResource(name, doc); err != nil {
			return compiledSchemas{}, fmt.Errorf("registering schema %s: %w", file, err)
		}
	}
	create, err := compiler.Compile("schemas/create.json")
	if err != nil {
		return compiledSchemas{}, fmt.Errorf("compiling create schema: %w", err)
	}
	update, err := compiler.Compile("update.json")
	if err != nil {
		return compiledSchemas{}, fmt.Errorf("compiling update schema: %w", err)
	}
	return compiledSchemas{create: create, update: update}, nil
})

func validate(compiled *jsonschema.Schema, document []byte) error {
	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(document))
	if err != nil {
		return fmt.Errorf("decoding instruction document: %w", err)
	}
	if err := compiled.Validate(instance); err != nil {
		var validationErr *jsonschema.ValidationError
		if errors.As(err, &validationErr) {
			return &InputError{Count: countLeaves(validationErr), cause: validationErr}
		}
		return err
	}
	return nil
}

// ValidateCreate checks a create instruction document against its schema.
func ValidateCreate(document []byte) error {
	schemas, err := loadSchemas()
	if err != nil {
		return err
	}
	return validate(schemas.create, document)
}

// ValidateUpdate checks an update instruction document against its schema.
func ValidateUpdate(document []byte) error {
	schemas, err := loadSchemas()
	if err != nil {
		return err
	}
	return validate(schemas.update, document)
}

// normalize reads an instruction file, which may be JSON or YAML, and
// returns its contents re-encoded as JSON. JSON documents pass through the
// YAML decoder unchanged since YAML is a superset.
func normalize(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading instruction file: %w", err)
	}
	var document any
	if err := yaml.Unmarshal(data, &document); err != nil {
		return nil, fmt.Errorf("decoding instruction file %s: %w", path, err)
	}
	normalized, err := json.Marshal(document)
	if err != nil {
		return nil, fmt.Errorf("normalizing instruction file %s: %w", path, err)
	}
	return normalized, nil
}

// LoadCreate reads, validates, and decodes a create instruction file.
func LoadCreate(path string) ([]models.SourceSpec, error) {
	document, err := normalize(path)
	if err != nil {
		return nil, err
	}
	if err := ValidateCreate(document); err != nil {
		return nil, err
	}
	var sources []models.SourceSpec
	if err := json.Unmarshal(document, &sources); err != nil {
		return nil, fmt.Errorf("decoding create instructions: %w", err)
	}
	return sources, nil
}

// LoadUpdate reads, validates, and decodes an update instruction file.
func LoadUpdate(path string) (*models.UpdateInstruction, error) {
	document, err := normalize(path)
	if err != nil {
		return nil, err
	}
	if err := ValidateUpdate(document); err != nil {
		return nil, err
	}
	var instruction models.UpdateInstruction
	if err := json.Unmarshal(document, &instruction); err != nil {
		return nil, fmt.Errorf("decoding update instructions: %w", err)
	}
	return &instruction, nil
}
