// Package errs defines the error taxonomy shared by every component of the
// projection engine (filter parsing, the store adapter, the tree
// transformer, the projector, unapply, and the query surface).
package errs

import (
	"errors"
	"fmt"
)

// Kind tags the observable error categories a caller can branch on.
type Kind int8

const (
	KindUnknown Kind = iota
	KindParse
	KindNotFound
	KindWrongKind
	KindEncoding
	KindRejectNoFF
	KindRejectMerge
	KindStore
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindParse:
		return "parse"
	case KindNotFound:
		return "not-found"
	case KindWrongKind:
		return "wrong-kind"
	case KindEncoding:
		return "encoding"
	case KindRejectNoFF:
		return "reject-no-ff"
	case KindRejectMerge:
		return "reject-merge"
	case KindStore:
		return "store"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error is the concrete type every component returns. Kind lets callers
// (notably the query surface, §4.7/§7) branch without string matching.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is lets errors.Is(err, errs.NotFound("")) match any not-found error
// regardless of message, mirroring the teacher's IsErrNotExist predicate
// style (modules/git/error.go) but expressed through the stdlib errors
// protocol instead of a type switch per error kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func ParseError(position int, message string) *Error {
	return &Error{Kind: KindParse, Message: fmt.Sprintf("position %d: %s", position, message)}
}

func NotFound(format string, args ...any) *Error { return newf(KindNotFound, format, args...) }

func WrongKind(format string, args ...any) *Error { return newf(KindWrongKind, format, args...) }

func Encoding(format string, args ...any) *Error { return newf(KindEncoding, format, args...) }

func RejectNoFF(format string, args ...any) *Error { return newf(KindRejectNoFF, format, args...) }

func RejectMerge(format string, args ...any) *Error { return newf(KindRejectMerge, format, args...) }

func Store(cause error, format string, args ...any) *Error {
	e := newf(KindStore, format, args...)
	e.Cause = cause
	return e
}

func Internal(format string, args ...any) *Error { return newf(KindInternal, format, args...) }

// Of reports the Kind of err, or KindUnknown if err is not one of ours.
func Of(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
