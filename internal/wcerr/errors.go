// Package wcerr is the error taxonomy shared by every HTTP-facing service.
// It generalizes gonuts' cashu.CashuErrCode/cashu.Error pattern: a small
// enum of error kinds, each bound to exactly one HTTP status code, so a
// handler never has to decide a status by hand.
package wcerr

import (
	"fmt"
	"net/http"
)

type Kind int

const (
	Internal Kind = iota
	InvalidRequest
	ResourceNotFound
	Conflict
	Gone
	Forbidden
)

func (k Kind) StatusCode() int {
	switch k {
	case InvalidRequest:
		return http.StatusBadRequest
	case ResourceNotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	case Gone:
		return http.StatusGone
	case Forbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Error is the single error type every service package returns across its
// public API boundary. Internal packages may return plain errors; the
// HTTP layer wraps anything that isn't already a *Error as Internal.
type Error struct {
	Kind   Kind
	Detail string
}

func (e *Error) Error() string { return e.Detail }

func New(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// As extracts a *Error from err, wrapping it as Internal if err is not
// already one of ours.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok {
		return e
	}
	return &Error{Kind: Internal, Detail: err.Error()}
}

var (
	InvalidAmount         = New(InvalidRequest, "invalid amount")
	EmptyInputsOrOutputs  = New(InvalidRequest, "inputs or outputs cannot be empty")
	ZeroAmount            = New(InvalidRequest, "amount cannot be zero")
	UnmatchingAmount      = New(InvalidRequest, "input and output amounts do not match")
	ProofsAlreadySpent    = New(Forbidden, "proofs already spent")
	UnknownKeyset         = New(ResourceNotFound, "unknown keyset")
	InactiveKeyset        = New(Gone, "keyset is not active")
	QuoteAlreadyResolved  = New(Conflict, "quote already resolved")
	UnknownQuote          = New(ResourceNotFound, "unknown quote")
	RequestIDNotFound     = New(ResourceNotFound, "unknown request id")
	NotEnoughSignatures   = New(InvalidRequest, "not enough valid signatures provided")
	InvalidSpendCondition = New(InvalidRequest, "invalid spending condition")
)
