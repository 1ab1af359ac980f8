package typesys

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes validation failures.
type ErrorKind string

const (
	// KindMissingField indicates a required field is absent.
	KindMissingField ErrorKind = "MISSING_FIELD"

	// KindUnexpectedField indicates a field not declared on the type.
	KindUnexpectedField ErrorKind = "UNEXPECTED_FIELD"

	// KindWrongKind indicates a value of the wrong primitive or container kind.
	KindWrongKind ErrorKind = "WRONG_KIND"

	// KindEnumViolation indicates a value outside an enumeration's allowed set.
	KindEnumViolation ErrorKind = "ENUM_VIOLATION"

	// KindUnionNoMatch indicates a value matching none of a union's members.
	KindUnionNoMatch ErrorKind = "UNION_NO_MATCH"

	// KindLiteralMismatch indicates a value differing from a literal type.
	KindLiteralMismatch ErrorKind = "LITERAL_MISMATCH"

	// KindConstraintViolation indicates a constrained primitive out of bounds.
	KindConstraintViolation ErrorKind = "CONSTRAINT_VIOLATION"

	// KindUnknownType indicates a reference to an undeclared type name.
	KindUnknownType ErrorKind = "UNKNOWN_TYPE"
)

// ValidationError is a typed validation failure.
type ValidationError struct {
	// Kind identifies the failure category.
	Kind ErrorKind

	// Type is the declared type name being validated against.
	Type string

	// Field names the offending field, when the failure is field-level.
	Field string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (type=%s, field=%s)", e.Kind, e.Message, e.Type, e.Field)
	}
	if e.Type != "" {
		return fmt.Sprintf("%s: %s (type=%s)", e.Kind, e.Message, e.Type)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// IsKind reports whether err is a ValidationError of the given kind.
// Uses errors.As to handle wrapped errors.
func IsKind(err error, kind ErrorKind) bool {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Kind == kind
	}
	return false
}
