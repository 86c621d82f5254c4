// Package schema validates and normalizes raw field mappings into immutable
// library-domain records.
//
// Each entity is described by an ordered list of FieldSpecs. Validation walks
// every spec, normalizes the value for its type and collects every failure, so
// a rejected row reports all of its problems at once. Schemas never touch the
// store; referential and duplicate checks belong to the ingestion layer.
package schema

import (
	"fmt"
	"strings"
)

// Row is a raw record: lower-cased field name to raw text.
type Row map[string]string

// FieldType represents the expected kind of value for a field.
type FieldType int

const (
	FieldText FieldType = iota
	FieldName
	FieldEmail
	FieldPhone
	FieldISBN
	FieldDate
	FieldInt
	FieldEnum
)

// String returns a human-readable name for a field type.
func (ft FieldType) String() string {
	switch ft {
	case FieldText:
		return "text"
	case FieldName:
		return "name"
	case FieldEmail:
		return "email"
	case FieldPhone:
		return "phone"
	case FieldISBN:
		return "isbn"
	case FieldDate:
		return "date"
	case FieldInt:
		return "integer"
	case FieldEnum:
		return "enum"
	default:
		return "value"
	}
}

// FieldSpec defines validation rules for a single field.
type FieldSpec struct {
	Name       string    // Field name (lower case, matches the file header)
	Type       FieldType // Expected kind of value
	Required   bool      // Value must be present and non-empty
	MaxLen     int       // Maximum length in runes after normalization; 0 means unbounded
	EnumValues []string  // Canonical values for FieldEnum, matched case-insensitively
}

// ValidationError represents a single validation error for a field.
type ValidationError struct {
	Field   string // Field name
	Value   string // The invalid value
	Message string // Human-readable error message
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// Failure is returned when a row does not satisfy its entity schema.
type Failure struct {
	Entity string
	Errors []ValidationError
}

func (f *Failure) Error() string {
	msgs := make([]string, len(f.Errors))
	for i, e := range f.Errors {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("invalid %s: %s", f.Entity, strings.Join(msgs, "; "))
}

// Fields returns the names of the offending fields in schema order.
func (f *Failure) Fields() []string {
	out := make([]string, 0, len(f.Errors))
	for _, e := range f.Errors {
		if e.Field != "" {
			out = append(out, e.Field)
		}
	}
	return out
}
