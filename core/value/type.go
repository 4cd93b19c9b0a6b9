package value

import "strings"

// TypeKind discriminates static types.
type TypeKind int

const (
	TypeInvalid TypeKind = iota
	TypeUnit
	TypeString
	TypeInt
	TypeBool
	TypeArray
	TypeRecord
	TypeCommand
	TypeFile
)

// Field is one field of a record type.
type Field struct {
	Name string
	Type Type
}

// Type is the structural type of an expression. Container types carry a
// value-mutability attribute; scalars ignore it.
type Type struct {
	Kind   TypeKind
	Mut    bool
	Elem   *Type   // arrays
	Fields []Field // records
}

var (
	UnitType    = Type{Kind: TypeUnit}
	StringType  = Type{Kind: TypeString}
	IntType     = Type{Kind: TypeInt}
	BoolType    = Type{Kind: TypeBool}
	CommandType = Type{Kind: TypeCommand}
	FileType    = Type{Kind: TypeFile}
)

// ArrayType builds an array type.
func ArrayType(elem Type, mut bool) Type {
	e := elem
	return Type{Kind: TypeArray, Mut: mut, Elem: &e}
}

// RecordType builds a record type.
func RecordType(fields []Field, mut bool) Type {
	return Type{Kind: TypeRecord, Mut: mut, Fields: fields}
}

// IsContainer reports whether the type carries value mutability.
func (t Type) IsContainer() bool {
	return t.Kind == TypeArray || t.Kind == TypeRecord
}

// SameShape reports structural equality ignoring mutability.
func (t Type) SameShape(o Type) bool {
	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case TypeArray:
		return t.Elem.SameShape(*o.Elem)
	case TypeRecord:
		if len(t.Fields) != len(o.Fields) {
			return false
		}
		for i := range t.Fields {
			if t.Fields[i].Name != o.Fields[i].Name || !t.Fields[i].Type.SameShape(o.Fields[i].Type) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// AssignableTo reports whether a value of type t may be bound where target
// is expected. Shapes must match; a target demanding interior mutability
// additionally requires the value to be mutable.
func (t Type) AssignableTo(target Type) bool {
	if !t.SameShape(target) {
		return false
	}
	if target.IsContainer() && target.Mut && !t.Mut {
		return false
	}
	return true
}

// Lookup returns the type of a record field, or an invalid type.
func (t Type) Lookup(name string) (Type, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f.Type, true
		}
	}
	return Type{}, false
}

func (t Type) String() string {
	switch t.Kind {
	case TypeInvalid:
		return "invalid"
	case TypeUnit:
		return "unit"
	case TypeString:
		return "string"
	case TypeInt:
		return "integer"
	case TypeBool:
		return "boolean"
	case TypeCommand:
		return "command"
	case TypeFile:
		return "file_endpoint"
	case TypeArray:
		prefix := ""
		if t.Mut {
			prefix = "mut "
		}
		return prefix + "[" + t.Elem.String() + "]"
	case TypeRecord:
		var sb strings.Builder
		if t.Mut {
			sb.WriteString("mut ")
		}
		sb.WriteByte('{')
		for i, f := range t.Fields {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(f.Name)
			sb.WriteString(": ")
			sb.WriteString(f.Type.String())
		}
		sb.WriteByte('}')
		return sb.String()
	}
	return "unknown"
}
