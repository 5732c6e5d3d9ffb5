package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures across the orchestration tree. Only
// KindValidation is fatal to a whole run; everything else degrades to a
// fallback payload or partial output at the component that observes it.
type ErrorKind string

const (
	KindValidation      ErrorKind = "validation"
	KindCapability      ErrorKind = "capability"
	KindExtraction      ErrorKind = "extraction"
	KindSchemaViolation ErrorKind = "schema_violation"
	KindMerge           ErrorKind = "merge"
	KindAggregation     ErrorKind = "aggregation"
)

// KindError is a classified error. It wraps an underlying cause so that
// transient-error checks can still unwrap to the original failure.
type KindError struct {
	Kind  ErrorKind
	Msg   string
	Cause error
}

func (e *KindError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *KindError) Unwrap() error { return e.Cause }

// NewKindError creates a classified error with an optional cause.
func NewKindError(kind ErrorKind, msg string, cause error) *KindError {
	return &KindError{Kind: kind, Msg: msg, Cause: cause}
}

// ValidationError creates a fatal input-validation error.
func ValidationError(msg string) *KindError {
	return &KindError{Kind: KindValidation, Msg: msg}
}

// CapabilityError wraps a failed external-capability call.
func CapabilityError(msg string, cause error) *KindError {
	return &KindError{Kind: KindCapability, Msg: msg, Cause: cause}
}

// KindOf returns the classification of err, or "" for unclassified errors.
func KindOf(err error) ErrorKind {
	var ke *KindError
	if errors.As(err, &ke) {
		return ke.Kind
	}
	return ""
}
