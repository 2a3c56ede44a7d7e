// Package vmerr defines the stable error kinds shared by the value model,
// the compilers, and the virtual machine.
package vmerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind is a stable, externally visible error classification.
type Kind int

const (
	Success Kind = iota
	NoMem
	Range
	Undef
	Syntax
	BadVal
	BadType
	StackOverflow
	StackUnderflow
	UnexpectChar
)

var kindNames = [...]string{
	Success:        "SUCCESS",
	NoMem:          "NOMEM",
	Range:          "RANGE",
	Undef:          "UNDEF",
	Syntax:         "SYNTAX",
	BadVal:         "BADVAL",
	BadType:        "BADTYPE",
	StackOverflow:  "STACK_OVERFLOW",
	StackUnderflow: "STACK_UNDERFLOW",
	UnexpectChar:   "UNEXPECT_CHAR",
}

func (k Kind) String() string {
	if int(k) >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "UNKNOWN"
}

// maxMsgLen bounds diagnostic messages, mirroring DTG_MAX_MSG_SIZE in the
// original source; Go strings don't need NUL termination but we still cap
// length so large generated messages can't balloon error values.
const maxMsgLen = 127

// Error is the value every failing operation in this module returns.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Cause implements github.com/pkg/errors' causer interface so this composes
// with errors.Cause/errors.Unwrap across the parser/compiler/VM boundary.
func (e *Error) Cause() error { return e.cause }

func (e *Error) Unwrap() error { return e.cause }

// New builds an Error of the given kind, truncating msg to maxMsgLen and
// attaching a stack trace via pkg/errors so callers can recover "where did
// this actually happen" without hand-rolled call-stack bookkeeping.
func New(kind Kind, msg string) *Error {
	if len(msg) > maxMsgLen {
		msg = msg[:maxMsgLen]
	}
	return &Error{Kind: kind, Message: msg, cause: errors.New(msg)}
}

// Newf is New with fmt.Sprintf-style formatting.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return New(kind, fmt.Sprintf(format, args...))
}

// Wrap attaches kind/msg to an existing error, preserving it as the cause so
// errors.Cause(err) still reaches the original failure.
func Wrap(err error, kind Kind, msg string) *Error {
	if len(msg) > maxMsgLen {
		msg = msg[:maxMsgLen]
	}
	return &Error{Kind: kind, Message: msg, cause: errors.Wrap(err, msg)}
}

// StackTrace exposes the pkg/errors stack trace, when present, for
// diagnostics tooling.
func (e *Error) StackTrace() errors.StackTrace {
	type stackTracer interface {
		StackTrace() errors.StackTrace
	}
	if st, ok := e.cause.(stackTracer); ok {
		return st.StackTrace()
	}
	return nil
}

// Is reports whether target is an *Error with the same Kind, so callers can
// write errors.Is(err, vmerr.New(vmerr.BadVal, "")) style checks if desired;
// the more idiomatic check is comparing err.(*Error).Kind directly.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}
