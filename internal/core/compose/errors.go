// Package compose contains pure functions for parsing stack manifests.
// This is part of the Functional Core - all functions are pure with no I/O.
package compose

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// Input validation errors
	ErrEmptyInput = errors.New("manifest is empty")

	// YAML parsing errors
	ErrInvalidYAML = errors.New("invalid YAML syntax")

	// Manifest structure errors
	ErrNoServices = errors.New("manifest must define at least one service")

	// Service validation errors
	ErrServiceNoImage = errors.New("swarm service must have an image")

	// Unsupported feature errors
	ErrUnsupportedFeature = errors.New("unsupported compose feature")
)

// ParseError wraps errors with context about where parsing failed.
type ParseError struct {
	Manifest string // manifest name, e.g. "postgres/postgres.yaml"
	Field    string // e.g., "services.web.build"
	Message  string
	Err      error
}

func (e *ParseError) Error() string {
	prefix := e.Manifest
	if e.Field != "" {
		if prefix != "" {
			prefix += ": "
		}
		prefix += e.Field
	}
	if prefix != "" {
		return fmt.Sprintf("%s: %s", prefix, e.Message)
	}
	return e.Message
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError.
func NewParseError(manifest, field, message string, err error) *ParseError {
	return &ParseError{
		Manifest: manifest,
		Field:    field,
		Message:  message,
		Err:      err,
	}
}
