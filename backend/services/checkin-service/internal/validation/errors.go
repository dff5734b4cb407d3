package validation

import (
	"errors"
	"fmt"
)

// Kind is a machine-readable validation failure class.
type Kind string

const (
	KindMissingFields    Kind = "MissingFields"
	KindInvalidNumber    Kind = "InvalidNumber"
	KindNotAString       Kind = "NotAString"
	KindTooLong          Kind = "TooLong"
	KindNotAllowed       Kind = "NotAllowed"
	KindNotAList         Kind = "NotAList"
	KindInvalidEntry     Kind = "InvalidEntry"
	KindUnknownStation   Kind = "UnknownStation"
	KindInvalidDate      Kind = "InvalidDate"
	KindFutureTime       Kind = "FutureTime"
	KindTooOld           Kind = "TooOld"
	KindLimitExceeded    Kind = "LimitExceeded"
	KindAmbiguousStation Kind = "AmbiguousOrUnknownStation"
	KindFieldCount       Kind = "InvalidFieldCount"
)

// Error is a rejected input field.
type Error struct {
	Kind    Kind
	Field   string
	Message string
}

func (e *Error) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, e.Message)
}

// Errorf builds an *Error.
func Errorf(kind Kind, field, format string, args ...any) *Error {
	return &Error{Kind: kind, Field: field, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the validation kind of err, or "" when err is not a validation failure.
func KindOf(err error) Kind {
	var verr *Error
	if errors.As(err, &verr) {
		return verr.Kind
	}
	return ""
}

// IsValidation reports whether err carries a validation failure.
func IsValidation(err error) bool {
	return KindOf(err) != ""
}
