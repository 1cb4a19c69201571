package sop

import (
	"fmt"
	"strings"
)

// FieldError describes a single invalid field in a procedure definition.
type FieldError struct {
	// Field is the dotted path to the offending field (e.g. "steps[2].action").
	Field string

	// Message is a human-readable description of the problem.
	Message string
}

// Error returns the formatted field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ConfigError is returned when a procedure definition is malformed or
// incomplete. It is fatal: no run is started against an invalid procedure.
// All field errors found during validation are collected and reported
// together.
type ConfigError struct {
	// Path is the definition file path, if loaded from a file.
	Path string

	// Errors contains every validation error found.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e *ConfigError) Error() string {
	where := "procedure definition"
	if e.Path != "" {
		where = fmt.Sprintf("procedure definition %q", e.Path)
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("invalid %s: %s", where, e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("invalid %s (%d errors):\n", where, len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}
