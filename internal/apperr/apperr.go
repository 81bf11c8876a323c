package apperr

import "errors"

// Kind identifies a failure class so controllers and clients can tell
// redemption failures apart without parsing messages.
type Kind string

const (
	KindNotFound            Kind = "NOT_FOUND"
	KindForbidden           Kind = "FORBIDDEN"
	KindInvalidState        Kind = "INVALID_STATE"
	KindInvalidToken        Kind = "INVALID_TOKEN"
	KindTokenMismatch       Kind = "TOKEN_MISMATCH"
	KindTokenExpired        Kind = "TOKEN_EXPIRED"
	KindTokenAlreadyUsed    Kind = "TOKEN_ALREADY_USED"
	KindInsufficientBalance Kind = "INSUFFICIENT_BALANCE"
	KindNoEligibleQuestions Kind = "NO_ELIGIBLE_QUESTIONS"
	KindInvalidPrice        Kind = "INVALID_PRICE"
	KindInvalidOption       Kind = "INVALID_OPTION"
	KindInvalidInput        Kind = "INVALID_INPUT"
)

type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// KindOf extracts the kind from err, or "" if err is not an *Error.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
