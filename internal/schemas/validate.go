// Package schemas provides JSON Schema validation for rule bases and engine output.
package schemas

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	embedded "github.com/jonathan/jobpulse/schemas"
	"github.com/xeipuuv/gojsonschema"
)

// ValidationError represents a schema validation error with field paths
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation error at a specific field
type FieldError struct {
	Field   string
	Message string
}

// SchemaLoadError represents errors loading or parsing the schema itself
type SchemaLoadError struct {
	Path    string
	Message string
	Cause   error
}

func (e *SchemaLoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load schema %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load schema %s: %s", e.Path, e.Message)
}

func (e *SchemaLoadError) Unwrap() error {
	return e.Cause
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("validation failed:\n")
	for i, err := range ve.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	return sb.String()
}

// ValidateJSON validates a JSON file on disk against one of the embedded schemas.
func ValidateJSON(schemaName, jsonPath string) error {
	jsonAbsPath, err := filepath.Abs(jsonPath)
	if err != nil {
		return fmt.Errorf("failed to resolve JSON path: %w", err)
	}
	data, err := os.ReadFile(jsonAbsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("JSON file not found: %s", jsonAbsPath)
		}
		return fmt.Errorf("failed to read %s: %w", jsonAbsPath, err)
	}
	return ValidateEmbedded(schemaName, string(data))
}

// ValidateEmbedded validates JSON content against an embedded schema by name.
func ValidateEmbedded(schemaName, jsonContent string) error {
	schemaContent, err := embedded.Read(schemaName)
	if err != nil {
		return &SchemaLoadError{Path: schemaName, Message: "schema not embedded", Cause: err}
	}
	return validate(schemaName, gojsonschema.NewStringLoader(schemaContent), gojsonschema.NewStringLoader(jsonContent))
}

// ValidateValue marshals v to JSON and validates it against an embedded schema.
func ValidateValue(schemaName string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal value for validation: %w", err)
	}
	return ValidateEmbedded(schemaName, string(data))
}

func validate(schemaPath string, schemaLoader, documentLoader gojsonschema.JSONLoader) error {
	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return &SchemaLoadError{
			Path:    schemaPath,
			Message: "schema validation failed during load",
			Cause:   err,
		}
	}

	if result.Valid() {
		return nil
	}

	validationErr := &ValidationError{
		Errors: make([]FieldError, 0, len(result.Errors())),
	}

	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		validationErr.Errors = append(validationErr.Errors, FieldError{
			Field:   field,
			Message: desc.Description(),
		})
	}

	return validationErr
}
