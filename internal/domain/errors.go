package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies every caller-visible failure the engine can produce.
// The wire representation is the kind name itself.
type ErrorKind string

const (
	KindValidation          ErrorKind = "ValidationError"
	KindNotFound            ErrorKind = "NotFound"
	KindUnauthorized        ErrorKind = "Unauthorized"
	KindInvalidState        ErrorKind = "InvalidState"
	KindInvalidTransition   ErrorKind = "InvalidTransition"
	KindAlreadyAssigned     ErrorKind = "AlreadyAssigned"
	KindAlreadyRegistered   ErrorKind = "AlreadyRegistered"
	KindDuplicateReview     ErrorKind = "DuplicateReview"
	KindNoEligibleReviewers ErrorKind = "NoEligibleReviewers"
	KindStoreUnavailable    ErrorKind = "StoreUnavailable"
)

// Error is a typed result, never a fault: operations return it and leave all
// state untouched.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Errorf builds a kinded error with a formatted message.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the ErrorKind from an error chain.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// IsKind reports whether the error chain carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
