// Package formerrors converts a validation failure into the flat field-error map
// consumed by form renderers.
package formerrors

import (
	"sort"
	"strings"

	"github.com/thoas/go-funk"
)

// FieldError is a single validation message attached to a field path.
// Path is a dotted/bracketed key such as "email" or "address.city".
type FieldError struct {
	Path    string
	Message string
}

// Failure is the ordered list of field errors produced by a validation attempt
// that collected every error instead of stopping at the first one.
type Failure []FieldError

// Error implements the error interface so a Failure can be returned from validators.
func (f Failure) Error() string {
	if len(f) == 0 {
		return "validation failed"
	}

	parts := make([]string, 0, len(f))
	for _, fieldErr := range f {
		parts = append(parts, fieldErr.Path+": "+fieldErr.Message)
	}

	return "validation failed: " + strings.Join(parts, "; ")
}

// FieldErrorMap maps a field path to its message. Paths are opaque keys: a nested
// path like "address.city" is never expanded into a nested structure.
type FieldErrorMap map[string]string

// Map builds a FieldErrorMap from failure, walking it in order so the last
// message reported for a path wins.
func Map(failure Failure) FieldErrorMap {
	result := make(FieldErrorMap, len(failure))
	for _, fieldErr := range failure {
		result[fieldErr.Path] = fieldErr.Message
	}

	return result
}

// Paths returns the field paths in lexical order.
func (m FieldErrorMap) Paths() []string {
	if len(m) == 0 {
		return []string{}
	}
	paths := funk.Keys(m).([]string)
	sort.Strings(paths)

	return paths
}

// Get returns the message for path and whether there is one.
func (m FieldErrorMap) Get(path string) (string, bool) {
	message, ok := m[path]
	return message, ok
}
