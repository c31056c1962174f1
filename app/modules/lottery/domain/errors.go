package lotterydomain

import "errors"

// Code is a stable, machine readable rejection reason.
type Code string

const (
	CodeAccessDenied        Code = "ACCESS_DENIED"
	CodeInvalidState        Code = "INVALID_STATE"
	CodeInvalidArgument     Code = "INVALID_ARGUMENT"
	CodeInsufficientPayment Code = "INSUFFICIENT_PAYMENT"
	CodeDuplicateEntry      Code = "DUPLICATE_ENTRY"
	CodeInsufficientPool    Code = "INSUFFICIENT_POOL"
	CodeTooEarly            Code = "TOO_EARLY"
)

// Error is a domain rejection. Two errors match under errors.Is when their
// codes match, so ErrNumberTooSmall is also an ErrInvalidArgument.
type Error struct {
	Code   Code
	Reason string
}

func (e *Error) Error() string { return e.Reason }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Reason == "" || isCategory(t) {
		return t.Code == e.Code
	}
	return t.Code == e.Code && t.Reason == e.Reason
}

func isCategory(e *Error) bool {
	for _, c := range categories {
		if c == e {
			return true
		}
	}
	return false
}

var (
	ErrAccessDenied        = &Error{Code: CodeAccessDenied, Reason: "caller is not the owner"}
	ErrInvalidState        = &Error{Code: CodeInvalidState, Reason: "invalid state for the action"}
	ErrInvalidArgument     = &Error{Code: CodeInvalidArgument, Reason: "invalid argument"}
	ErrInsufficientPayment = &Error{Code: CodeInsufficientPayment, Reason: "minimum entry fee required"}
	ErrDuplicateEntry      = &Error{Code: CodeDuplicateEntry, Reason: "number already submitted by this bettor"}
	ErrInsufficientPool    = &Error{Code: CodeInsufficientPool, Reason: "pool balance too low"}
	ErrTooEarly            = &Error{Code: CodeTooEarly, Reason: "too early to draw"}

	categories = []*Error{
		ErrAccessDenied,
		ErrInvalidState,
		ErrInvalidArgument,
		ErrInsufficientPayment,
		ErrDuplicateEntry,
		ErrInsufficientPool,
		ErrTooEarly,
	}
)

// Specific InvalidArgument reasons.
var (
	ErrNumberTooSmall    = &Error{Code: CodeInvalidArgument, Reason: "number too small"}
	ErrNumberTooLarge    = &Error{Code: CodeInvalidArgument, Reason: "number too large"}
	ErrInvalidEntryFee   = &Error{Code: CodeInvalidArgument, Reason: "entry fee must be a positive integer"}
	ErrInvalidAmount     = &Error{Code: CodeInvalidArgument, Reason: "amount must be a non-negative integer"}
	ErrAmountOverflow    = &Error{Code: CodeInvalidArgument, Reason: "amount overflows 256 bits"}
	ErrInvalidAddress    = &Error{Code: CodeInvalidArgument, Reason: "invalid address"}
	ErrInvalidDrawTime   = &Error{Code: CodeInvalidArgument, Reason: "draw time is required"}
	ErrInvalidMultiplier = &Error{Code: CodeInvalidArgument, Reason: "prize multiplier must be positive"}
)

// ErrRandomOutOfRange means a RandomSource broke its contract. It is an
// infrastructure fault, not a rejection.
var ErrRandomOutOfRange = errors.New("random source returned a number outside [1,49]")

// CodeOf returns the code of a domain rejection wrapped anywhere in err.
func CodeOf(err error) (Code, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Code, true
	}
	return "", false
}

// IsRejection reports whether err is a domain rejection rather than an
// infrastructure failure.
func IsRejection(err error) bool {
	_, ok := CodeOf(err)
	return ok
}
