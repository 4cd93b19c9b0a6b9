// Package diag carries the error kinds produced by every stage of the
// interpreter and renders them in the single diagnostic format shared by
// the whole toolchain.
package diag

import (
	"fmt"

	"github.com/nashlang/nash/core/token"
)

// Kind classifies an interpreter error.
type Kind int

const (
	LexError Kind = iota
	ParseError
	NameError
	TypeError
	MutabilityError
	PipelineShapeError
	IOError
	CommandSpawnError
	NonZeroExit
	RuntimeError
)

var kindNames = map[Kind]string{
	LexError:           "lex error",
	ParseError:         "parse error",
	NameError:          "name error",
	TypeError:          "type error",
	MutabilityError:    "mutability error",
	PipelineShapeError: "pipeline shape error",
	IOError:            "io error",
	CommandSpawnError:  "spawn error",
	NonZeroExit:        "non-zero exit",
	RuntimeError:       "runtime error",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("error kind(%d)", int(k))
}

// Error is a diagnostic with an optional source position.
type Error struct {
	Kind Kind
	Msg  string
	Pos  token.Pos
}

func (e *Error) Error() string {
	return e.Msg
}

// New builds a positioned diagnostic.
func New(kind Kind, pos token.Pos, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Pos: pos}
}

// WithPos returns a copy of the error carrying pos, unless the error already
// has a position. Non-diag errors are wrapped as RuntimeError.
func WithPos(err error, pos token.Pos) *Error {
	if de, ok := err.(*Error); ok {
		if de.Pos.IsValid() {
			return de
		}
		return &Error{Kind: de.Kind, Msg: de.Msg, Pos: pos}
	}
	return &Error{Kind: RuntimeError, Msg: err.Error(), Pos: pos}
}

// Format renders the diagnostic line reported to the user:
//
//	error: <message> at <file>:<line>:<column>
func (e *Error) Format(file string) string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("error: %s at %s:%d:%d", e.Msg, file, e.Pos.Line, e.Pos.Column)
	}
	return fmt.Sprintf("error: %s at %s:0:0", e.Msg, file)
}
