// Package schema validates and repairs execution records.
//
// Records are handled as untyped JSON documents (map[string]interface{} as
// produced by encoding/json) because the external actor writes them directly
// and may leave any field malformed. The pipeline is:
//
//  1. Sanitize: drop Undefined values at every depth, keep explicit nulls.
//  2. Check: structural validation against the RecordSchema definitions.
//  3. Classify: any message matching the security policy's critical list
//     aborts with a *CriticalError.
//  4. Repair: fill defaults, coerce types, normalize enums and strip unknown
//     properties, field by field.
package schema

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Kind is the JSON type a field must hold.
type Kind int

const (
	KindString      Kind = iota // JSON string
	KindInteger                 // JSON number with no fractional part
	KindBoolean                 // JSON boolean
	KindStringArray             // JSON array of strings
	KindArray                   // JSON array of records (Field.Record)
	KindObject                  // Nested record (Field.Record)
	KindMap                     // Free-form JSON object
)

// String returns the name used in validation messages.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInteger:
		return "integer"
	case KindBoolean:
		return "boolean"
	case KindStringArray:
		return "array of strings"
	case KindArray:
		return "array"
	case KindObject, KindMap:
		return "object"
	default:
		return "unknown"
	}
}

// DefaultContext is passed to Field.Default when a value must be synthesized.
type DefaultContext struct {
	Index int       // Position of the enclosing item in its array (0-based)
	Now   time.Time // Clock reading for timestamp defaults
}

// Field describes one property of a record.
type Field struct {
	Name     string
	Kind     Kind
	Required bool
	Nullable bool

	// Enum restricts string values. Invalid values are normalized to
	// EnumFallback, or to null when the field is Nullable and EnumFallback is empty.
	Enum         []string
	EnumFallback string

	// Pattern restricts string values; a mismatch is replaced by Default.
	Pattern *regexp.Regexp

	// Minimum applies to integers when HasMinimum is set.
	Minimum    int
	HasMinimum bool

	// Default synthesizes a value when the field is missing or unrepairable.
	Default func(DefaultContext) interface{}

	// Fallbacks are sibling properties consulted, in order, when this field is missing.
	Fallbacks []string

	// Record describes array items (KindArray) or the nested object (KindObject).
	Record *RecordSchema
}

// RecordSchema describes a JSON object. Properties not listed are not allowed.
type RecordSchema struct {
	Name   string
	Fields []Field

	index map[string]int
}

// NewRecordSchema builds a RecordSchema and indexes its fields.
func NewRecordSchema(name string, fields ...Field) *RecordSchema {
	rs := &RecordSchema{Name: name, Fields: fields, index: make(map[string]int, len(fields))}
	for i, f := range fields {
		rs.index[f.Name] = i
	}
	return rs
}

// Field returns the named field definition.
func (rs *RecordSchema) Field(name string) (*Field, bool) {
	i, ok := rs.index[name]
	if !ok {
		return nil, false
	}
	return &rs.Fields[i], true
}

// ValidationError is a single structural defect.
type ValidationError struct {
	Path    string // Dotted path with array indexes, e.g. "phases[1].status"
	Message string // Defect description, without the path
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return e.Path + ": " + e.Message
}

// FormatErrors renders validation errors one per line.
func FormatErrors(errs []ValidationError) string {
	lines := make([]string, 0, len(errs))
	for _, e := range errs {
		lines = append(lines, "  - "+e.Error())
	}
	return strings.Join(lines, "\n")
}

// Options selects which passes Validate runs besides the structural check.
type Options struct {
	Sanitize bool
	Repair   bool
}

// DefaultOptions runs every pass.
var DefaultOptions = Options{Sanitize: true, Repair: true}

// Result is the outcome of Validate.
type Result struct {
	Valid         bool                   // Input passed the structural check
	Errors        []ValidationError      // Defects found in the input
	SanitizedData map[string]interface{} // Set when sanitizing was requested
	RepairedData  map[string]interface{} // Set when repair ran
}

// Data returns the best document available: repaired, then sanitized, then raw.
func (r *Result) Data(raw map[string]interface{}) map[string]interface{} {
	if r == nil {
		return raw
	}
	if r.RepairedData != nil {
		return r.RepairedData
	}
	if r.SanitizedData != nil {
		return r.SanitizedData
	}
	return raw
}

// ErrCritical matches every *CriticalError via errors.Is.
var ErrCritical = errors.New("critical execution record error")

// CriticalError is raised for defects that must never be auto-healed:
// missing or unreadable files, unparseable content, permission denial.
type CriticalError struct {
	Source   string   // File path or other origin, may be empty
	Messages []string // Defects that were classified critical
	Err      error    // Underlying error, may be nil
}

// Error implements the error interface.
func (e *CriticalError) Error() string {
	var sb strings.Builder
	sb.WriteString("critical error")
	if e.Source != "" {
		fmt.Fprintf(&sb, " in %s", e.Source)
	}
	if len(e.Messages) > 0 {
		sb.WriteString(": ")
		sb.WriteString(strings.Join(e.Messages, "; "))
	} else if e.Err != nil {
		fmt.Fprintf(&sb, ": %v", e.Err)
	}
	return sb.String()
}

// Unwrap returns the underlying error.
func (e *CriticalError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrCritical) true for every CriticalError.
func (e *CriticalError) Is(target error) bool {
	return target == ErrCritical
}

// IsCritical reports whether err is or wraps a CriticalError.
func IsCritical(err error) bool {
	return errors.Is(err, ErrCritical)
}
