package gasstation

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind classifies the failures of gas price estimation.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	// transport or RPC failure
	KindUpstream
	// malformed upstream payload
	KindDecode
	// cached snapshot exceeded its validity
	KindStale
	// no snapshot cached yet
	KindNotReady
	KindInvalidInput
	KindNoEstimators

	// WebSocket feed failures, only ever passed to an ErrorReporter.
	KindConnectionTimeOut
	KindConnectionFailure
	KindStreamTimeOut
	KindStreamFailure
	KindJSONDecodeFailed
)

var kindNames = map[ErrorKind]string{
	KindUnknown:           "unknown",
	KindUpstream:          "upstream",
	KindDecode:            "decode",
	KindStale:             "stale",
	KindNotReady:          "not ready",
	KindInvalidInput:      "invalid input",
	KindNoEstimators:      "no estimators",
	KindConnectionTimeOut: "connection timed out",
	KindConnectionFailure: "connection failure",
	KindStreamTimeOut:     "stream timed out",
	KindStreamFailure:     "stream failure",
	KindJSONDecodeFailed:  "json decode failed",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is the single error type returned by estimators.
//
// Errors of the same kind match each other with `errors.Is`, so callers could test
// against the sentinel values below, eg., `errors.Is(err, gasstation.ErrStale)`.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

var (
	ErrUpstream          = &Error{Kind: KindUpstream}
	ErrDecode            = &Error{Kind: KindDecode}
	ErrStale             = &Error{Kind: KindStale}
	ErrNotReady          = &Error{Kind: KindNotReady}
	ErrInvalidInput      = &Error{Kind: KindInvalidInput}
	ErrNoEstimators      = &Error{Kind: KindNoEstimators}
	ErrConnectionTimeOut = &Error{Kind: KindConnectionTimeOut}
	ErrConnectionFailure = &Error{Kind: KindConnectionFailure}
	ErrStreamTimeOut     = &Error{Kind: KindStreamTimeOut}
	ErrStreamFailure     = &Error{Kind: KindStreamFailure}
	ErrJSONDecodeFailed  = &Error{Kind: KindJSONDecodeFailed}
)

func newError(kind ErrorKind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: cause}
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if len(e.Msg) > 0 {
		msg += ": " + e.Msg
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in the chain of err.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return KindUnknown
}

// asError wraps err as kind unless it is already an *Error.
func asError(kind ErrorKind, err error, msg string) error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return errors.WithMessage(err, msg)
	}

	return newError(kind, err, "%v", msg)
}
