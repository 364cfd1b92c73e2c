// Package diag provides the latched first-error diagnostics used by the
// parser, compiler, and VM.
//
// Errors latch: once a Diagnostics value records its first error, every
// later call against the same pattern context becomes inert. The only
// recovery path is to discard the context and start over. This mirrors
// github.com/coregx/coregex's *nfa.CompileError / *meta.ConfigError wrapper
// style, generalized with a source offset per the engine's needs.
package diag

import "fmt"

// Code identifies the category of a diagnostic.
type Code int

// Error codes, one-to-one with the dialect's public error surface.
const (
	NoError Code = iota
	StackOverflow
	CallOverflow
	SyntaxError
	OutOfMemory
	TooManyGroups
	InvalidOptions
)

// String implements fmt.Stringer.
func (c Code) String() string {
	switch c {
	case NoError:
		return "no error"
	case StackOverflow:
		return "stack overflow"
	case CallOverflow:
		return "call overflow"
	case SyntaxError:
		return "syntax error"
	case OutOfMemory:
		return "out of memory"
	case TooManyGroups:
		return "too many groups"
	case InvalidOptions:
		return "invalid options"
	default:
		return fmt.Sprintf("Code(%d)", int(c))
	}
}

// Error is a single diagnostic: a code, the byte offset into the source
// pattern (or subject, for runtime errors) where it occurred, and a
// human-readable message.
type Error struct {
	Code    Code
	Offset  int
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("ktregex: %s at offset %d: %s", e.Code, e.Offset, e.Message)
}

// Diagnostics records the first error encountered while processing a
// pattern context. Subsequent calls to Record are no-ops once an error has
// latched, matching spec section 7's "errors latch" rule.
type Diagnostics struct {
	err *Error
}

// Record latches the first error reported to it. Later calls are ignored.
// Returns true if this call actually latched the error (i.e. none was set
// before), false if a prior error already took precedence.
func (d *Diagnostics) Record(code Code, offset int, message string) bool {
	if d.err != nil {
		return false
	}
	d.err = &Error{Code: code, Offset: offset, Message: message}
	return true
}

// Err returns the latched error, or nil if none has been recorded.
func (d *Diagnostics) Err() *Error {
	return d.err
}

// Failed reports whether an error has latched.
func (d *Diagnostics) Failed() bool {
	return d.err != nil
}

// Reset clears the latch so that later calls no longer see the stale
// error.
func (d *Diagnostics) Reset() {
	d.err = nil
}
