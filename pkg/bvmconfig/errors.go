package bvmconfig

import (
	"errors"
	"fmt"
)

var (
	// ErrConfigNotFound indicates the biology parameter file was not found.
	ErrConfigNotFound = errors.New("biology config file not found")

	// ErrInvalidYAML indicates YAML parsing failed, including unknown
	// top-level or nested fields under strict decoding.
	ErrInvalidYAML = errors.New("invalid biology config YAML")

	// ErrValidationFailed indicates the merged configuration failed
	// fail-fast validation.
	ErrValidationFailed = errors.New("biology config validation failed")
)

// ValidationError wraps a single validation failure with its section and
// field, mirroring the teacher's ValidationError.
type ValidationError struct {
	Section string
	Name    string
	Field   string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s %q: field %q: %v", e.Section, e.Name, e.Field, e.Err)
	}
	return fmt.Sprintf("%s: field %q: %v", e.Section, e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func newValidationError(section, name, field string, err error) *ValidationError {
	return &ValidationError{Section: section, Name: name, Field: field, Err: err}
}

// LoadError wraps a load failure with the file that caused it.
type LoadError struct {
	File string
	Err  error
}

func (e *LoadError) Error() string { return fmt.Sprintf("loading %s: %v", e.File, e.Err) }
func (e *LoadError) Unwrap() error { return e.Err }
