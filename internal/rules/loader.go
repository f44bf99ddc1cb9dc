package rules

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jonathan/jobpulse/internal/schemas"
	embedded "github.com/jonathan/jobpulse/schemas"
	"gopkg.in/yaml.v3"
)

//go:embed default.json
var defaultRules []byte

// DefaultSource names the embedded rule base in errors and logs.
const DefaultSource = "(embedded default.json)"

// cache stores the compiled default rule set to avoid repeated parsing
var (
	cache   *RuleSet
	cacheMu sync.RWMutex
)

// Format is the encoding of a rule file.
type Format string

// Supported rule file encodings.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath infers the rule file encoding from its extension.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Default returns the compiled embedded rule base.
func Default() (*RuleSet, error) {
	cacheMu.RLock()
	if cache != nil {
		rs := cache
		cacheMu.RUnlock()
		return rs, nil
	}
	cacheMu.RUnlock()

	r, err := Parse(defaultRules, FormatJSON, DefaultSource)
	if err != nil {
		return nil, err
	}
	rs, err := Compile(r)
	if err != nil {
		return nil, err
	}

	cacheMu.Lock()
	cache = rs
	cacheMu.Unlock()

	return rs, nil
}

// MustDefault returns the embedded rule base, panicking if it is invalid.
// The embedded file is covered by tests, so a panic here means a broken build.
func MustDefault() *RuleSet {
	rs, err := Default()
	if err != nil {
		panic(fmt.Sprintf("failed to load default rules: %v", err))
	}
	return rs
}

// ClearCache clears the compiled default rule set. Useful for testing.
func ClearCache() {
	cacheMu.Lock()
	cache = nil
	cacheMu.Unlock()
}

// DefaultRaw returns a copy of the embedded rule file.
func DefaultRaw() []byte {
	return bytes.Clone(defaultRules)
}

// LoadFile reads, validates and compiles a rule file. The encoding is taken
// from the file extension.
func LoadFile(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Source: path, Message: "failed to read rule file", Cause: err}
	}
	r, err := Parse(data, FormatFromPath(path), path)
	if err != nil {
		return nil, err
	}
	return Compile(r)
}

// Parse decodes a rule document and validates it against the rule schema.
func Parse(data []byte, format Format, source string) (*Rules, error) {
	var r Rules
	var doc []byte

	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &r); err != nil {
			return nil, &LoadError{Source: source, Message: "failed to parse YAML", Cause: err}
		}
		// The schema is written against JSON, so validate the re-encoded form.
		encoded, err := json.Marshal(&r)
		if err != nil {
			return nil, &LoadError{Source: source, Message: "failed to re-encode rules", Cause: err}
		}
		doc = encoded
	default:
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, &LoadError{Source: source, Message: "failed to parse JSON", Cause: err}
		}
		doc = data
	}

	if err := schemas.ValidateEmbedded(embedded.Rules, string(doc)); err != nil {
		return nil, &LoadError{Source: source, Message: "rule file does not match schema", Cause: err}
	}
	return &r, nil
}

// Encode serialises rules in the requested format.
func Encode(r *Rules, format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return nil, fmt.Errorf("failed to encode rules as YAML: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("failed to encode rules as YAML: %w", err)
		}
		return buf.Bytes(), nil
	default:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			return nil, fmt.Errorf("failed to encode rules as JSON: %w", err)
		}
		return buf.Bytes(), nil
	}
}
