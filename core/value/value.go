// Package value implements the Nash runtime value model: tagged values with
// independent binding- and value-mutability, and the structural type
// representation shared by the post-processor and the evaluator.
package value

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind tags a runtime value.
type Kind int

const (
	// KindInvalid is the zero Value: an unset slot, never a legal runtime
	// value.
	KindInvalid Kind = iota
	KindUnit
	KindString
	KindInt
	KindBool
	KindArray
	KindRecord
	KindCommand
	KindFile
)

var kindNames = map[Kind]string{
	KindInvalid: "invalid",
	KindUnit:    "unit",
	KindString:  "string",
	KindInt:     "integer",
	KindBool:    "boolean",
	KindArray:   "array",
	KindRecord:  "record",
	KindCommand: "command",
	KindFile:    "file_endpoint",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// FileMode distinguishes the three file endpoint constructors.
type FileMode int

const (
	FileOpen FileMode = iota
	FileWrite
	FileAppend
)

func (m FileMode) String() string {
	switch m {
	case FileOpen:
		return "open"
	case FileWrite:
		return "write"
	case FileAppend:
		return "append"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// Array is the shared backing storage of an array value. Mut is the value
// mutability computed at construction.
type Array struct {
	Elems []Value
	Mut   bool
}

// Record is the backing storage of a record value. Field order is the
// literal's order. A field's own mut / !mut marker is carried by the
// field's container value, not by the record.
type Record struct {
	Names []string
	Vals  []Value
	Mut   bool
}

// Lookup returns the index of a field, or -1.
func (r *Record) Lookup(name string) int {
	for i, n := range r.Names {
		if n == name {
			return i
		}
	}
	return -1
}

// Command is an evaluated command literal: argv resolved, interpolation
// already applied exactly once.
type Command struct {
	Program string
	Args    []string
}

// File is a file endpoint produced by open / write / append.
type File struct {
	Path string
	Mode FileMode
}

// Value is a tagged runtime value. Scalars are stored inline; containers
// point at shared backing storage.
type Value struct {
	Kind Kind

	Str  string
	Int  int64
	Bool bool

	Arr  *Array
	Rec  *Record
	Cmd  *Command
	File *File
}

// Unit is the unit value.
var Unit = Value{Kind: KindUnit}

// Str builds a string value.
func Str(s string) Value { return Value{Kind: KindString, Str: s} }

// Int builds an integer value.
func Int(n int64) Value { return Value{Kind: KindInt, Int: n} }

// Bool builds a boolean value.
func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// NewArray builds an array value with the given mutability.
func NewArray(elems []Value, mut bool) Value {
	return Value{Kind: KindArray, Arr: &Array{Elems: elems, Mut: mut}}
}

// ShallowCopy returns a value that does not share top-level container
// storage with the receiver. Used when passing containers to parameters
// declared without mut.
func (v Value) ShallowCopy() Value {
	switch v.Kind {
	case KindArray:
		elems := make([]Value, len(v.Arr.Elems))
		copy(elems, v.Arr.Elems)
		return Value{Kind: KindArray, Arr: &Array{Elems: elems, Mut: v.Arr.Mut}}
	case KindRecord:
		names := make([]string, len(v.Rec.Names))
		copy(names, v.Rec.Names)
		vals := make([]Value, len(v.Rec.Vals))
		copy(vals, v.Rec.Vals)
		return Value{Kind: KindRecord, Rec: &Record{Names: names, Vals: vals, Mut: v.Rec.Mut}}
	default:
		return v
	}
}

// Equal reports deep structural equality. Mutability does not participate.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindUnit:
		return true
	case KindString:
		return v.Str == o.Str
	case KindInt:
		return v.Int == o.Int
	case KindBool:
		return v.Bool == o.Bool
	case KindArray:
		if len(v.Arr.Elems) != len(o.Arr.Elems) {
			return false
		}
		for i := range v.Arr.Elems {
			if !v.Arr.Elems[i].Equal(o.Arr.Elems[i]) {
				return false
			}
		}
		return true
	case KindRecord:
		if len(v.Rec.Names) != len(o.Rec.Names) {
			return false
		}
		for i := range v.Rec.Names {
			if v.Rec.Names[i] != o.Rec.Names[i] || !v.Rec.Vals[i].Equal(o.Rec.Vals[i]) {
				return false
			}
		}
		return true
	case KindCommand:
		if v.Cmd.Program != o.Cmd.Program || len(v.Cmd.Args) != len(o.Cmd.Args) {
			return false
		}
		for i := range v.Cmd.Args {
			if v.Cmd.Args[i] != o.Cmd.Args[i] {
				return false
			}
		}
		return true
	case KindFile:
		return v.File.Path == o.File.Path && v.File.Mode == o.File.Mode
	}
	return false
}

// Fmt renders the canonical string form: strings verbatim, integers in
// decimal, booleans true/false, containers recursively.
func (v Value) Fmt() string {
	switch v.Kind {
	case KindUnit:
		return "unit"
	case KindString:
		return v.Str
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindArray:
		var sb strings.Builder
		sb.WriteByte('[')
		for i, e := range v.Arr.Elems {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(e.Fmt())
		}
		sb.WriteByte(']')
		return sb.String()
	case KindRecord:
		var sb strings.Builder
		sb.WriteByte('{')
		for i, name := range v.Rec.Names {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(name)
			sb.WriteString(": ")
			sb.WriteString(v.Rec.Vals[i].Fmt())
		}
		sb.WriteByte('}')
		return sb.String()
	case KindCommand:
		var sb strings.Builder
		sb.WriteByte('`')
		sb.WriteString(v.Cmd.Program)
		for _, arg := range v.Cmd.Args {
			sb.WriteByte(' ')
			sb.WriteString(arg)
		}
		sb.WriteByte('`')
		return sb.String()
	case KindFile:
		return fmt.Sprintf("<file_endpoint:%s(%q)>", v.File.Mode, v.File.Path)
	}
	return ""
}
