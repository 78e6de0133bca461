package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an error for transport mapping and retry policy.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindPrecondition Kind = "precondition_failed"
	KindContention   Kind = "contention" // retryable
	KindNotFound     Kind = "not_found"
	KindUnauthorized Kind = "unauthorized"
	KindConflict     Kind = "conflict"
)

// Stable error codes referenced by callers and tests.
const (
	CodeNegativeQuantity   = "NEGATIVE_QUANTITY"
	CodeInsufficientStock  = "INSUFFICIENT_STOCK"
	CodeBatchClosed        = "BATCH_CLOSED"
	CodeGateNotSatisfied   = "GATE_NOT_SATISFIED"
	CodeExceedsAvailable   = "EXCEEDS_AVAILABLE"
	CodeOverReturn         = "OVER_RETURN"
	CodeExceedsApproved    = "EXCEEDS_APPROVED"
	CodeDispatchNotAllowed = "DISPATCH_NOT_ALLOWED"
	CodeExceedsOrdered     = "EXCEEDS_ORDERED"
	CodeInvalidTransition  = "INVALID_TRANSITION"
	CodeDuplicateReference = "DUPLICATE_REFERENCE"
	CodeVersionConflict    = "VERSION_CONFLICT"
)

// Error is the engine-wide error type. Quantity and gate violations are never
// clamped; they surface here with every unmet condition listed in Blockers.
type Error struct {
	Kind     Kind
	Code     string
	Message  string
	Blockers []string
}

func (e *Error) Error() string {
	if len(e.Blockers) > 0 {
		return fmt.Sprintf("%s: %s [%s]", e.Code, e.Message, strings.Join(e.Blockers, "; "))
	}
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

// Retryable reports whether the caller may retry the operation with backoff.
func (e *Error) Retryable() bool { return e.Kind == KindContention }

func New(kind Kind, code, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

func Validation(code, format string, args ...interface{}) *Error {
	return New(KindValidation, code, format, args...)
}

// Precondition builds a PreconditionFailed error enumerating every unmet
// condition, not just the first one.
func Precondition(code string, blockers []string) *Error {
	return &Error{
		Kind:     KindPrecondition,
		Code:     code,
		Message:  fmt.Sprintf("%d precondition(s) not satisfied", len(blockers)),
		Blockers: blockers,
	}
}

func NotFound(entity string, id interface{}) *Error {
	return New(KindNotFound, "", "%s not found: %v", entity, id)
}

func Contention(format string, args ...interface{}) *Error {
	return New(KindContention, CodeVersionConflict, format, args...)
}

func Conflict(code, format string, args ...interface{}) *Error {
	return New(KindConflict, code, format, args...)
}

func Unauthorized(format string, args ...interface{}) *Error {
	return New(KindUnauthorized, "", format, args...)
}

// KindOf extracts the Kind from err, or "" if err is not an apperr.Error.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

// CodeOf extracts the stable code from err, or "" if none.
func CodeOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

// BlockersOf returns the blocker list carried by err, if any.
func BlockersOf(err error) []string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Blockers
	}
	return nil
}
