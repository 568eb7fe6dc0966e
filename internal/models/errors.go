package models

import (
	"fmt"
	"strings"
)

// Violation describes one field that failed validation.
type Violation struct {
	Field string `json:"field"`
	Value any    `json:"value"`
	Rule  string `json:"rule"`
}

// ValidationError reports malformed feedback fields. It is not fatal; the
// caller is expected to re-prompt.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, fmt.Sprintf("%s=%v violates %s", v.Field, v.Value, v.Rule))
	}
	return "invalid feedback: " + strings.Join(parts, "; ")
}

// Fields lists the offending field names in report order.
func (e *ValidationError) Fields() []string {
	fields := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		fields = append(fields, v.Field)
	}
	return fields
}

// StorageError wraps a failed read or write of the backing store.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError constructs a StorageError.
func NewStorageError(op, path string, err error) error {
	return &StorageError{Op: op, Path: path, Err: err}
}
