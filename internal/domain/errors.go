package domain

import (
	"errors"
	"sort"
	"strings"
)

// Sentinel errors shared by repositories and services.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidInput = errors.New("invalid input")
)

// ErrorKind classifies an error for transport mapping.
type ErrorKind string

const (
	KindValidation   ErrorKind = "validation"
	KindNotFound     ErrorKind = "not_found"
	KindConflict     ErrorKind = "conflict"
	KindForbidden    ErrorKind = "forbidden"
	KindUnauthorized ErrorKind = "unauthorized"
	KindInternal     ErrorKind = "internal"
)

// KindOf returns the kind of err. Unrecognised errors are internal.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	default:
		return KindInternal
	}
}

// Validation rule codes. Messages for "<field>.<rule>" pairs live in the validation catalog.
const (
	RuleRequired = "required"
	RuleMax      = "max"
	RuleMin      = "min"
	RuleIn       = "in"
	RuleExists   = "exists"
	RuleAfter    = "after"
	RuleBefore   = "before"
	RuleDate     = "date"
	RuleInteger  = "integer"
	RuleArray    = "array"
	RuleBoolean  = "boolean"
	RuleString   = "string"
)

// FieldViolation is a single failed rule for a field. Field uses the JSON name;
// list elements are reported as "<field>.*".
type FieldViolation struct {
	Field string
	Rule  string
}

// ValidationError carries every violated rule of a request.
type ValidationError struct {
	Violations []FieldViolation
}

// NewValidationError returns a ValidationError holding the given violations.
func NewValidationError(violations ...FieldViolation) *ValidationError {
	return &ValidationError{Violations: violations}
}

// Add appends a violation unless the same field/rule pair is already recorded.
func (e *ValidationError) Add(field, rule string) {
	for _, v := range e.Violations {
		if v.Field == field && v.Rule == rule {
			return
		}
	}
	e.Violations = append(e.Violations, FieldViolation{Field: field, Rule: rule})
}

// HasViolations reports whether any rule failed.
func (e *ValidationError) HasViolations() bool {
	return e != nil && len(e.Violations) > 0
}

// OrNil returns e when it holds violations and nil otherwise.
func (e *ValidationError) OrNil() error {
	if e.HasViolations() {
		return e
	}
	return nil
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.Field+"."+v.Rule)
	}
	sort.Strings(parts)
	return "validation failed: " + strings.Join(parts, ", ")
}

// Is makes errors.Is(err, ErrInvalidInput) true for validation errors.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}
