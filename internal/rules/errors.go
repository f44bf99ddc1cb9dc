package rules

import "fmt"

// LoadError represents a failure to read, decode or validate a rule file.
type LoadError struct {
	Source  string
	Message string
	Cause   error
}

func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("rules %s: %s: %v", e.Source, e.Message, e.Cause)
	}
	return fmt.Sprintf("rules %s: %s", e.Source, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

// CompileError represents a rule pattern that failed to compile.
type CompileError struct {
	Field   string
	Index   int
	Pattern string
	Cause   error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("rules: %s[%d] %q: %v", e.Field, e.Index, e.Pattern, e.Cause)
}

func (e *CompileError) Unwrap() error {
	return e.Cause
}
