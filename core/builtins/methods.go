package builtins

import (
	"fmt"

	"github.com/nashlang/nash/core/diag"
	"github.com/nashlang/nash/core/value"
)

// MethodSig type-checks a method call against the receiver's static type
// and returns the result type. It is the single source of truth the
// post-processor consults; CallMethod trusts it.
func MethodSig(recv value.Type, name string, args []value.Type) (value.Type, error) {
	switch name {
	case "fmt":
		if len(args) != 0 {
			return value.Type{}, fmt.Errorf("fmt takes no arguments")
		}
		return value.StringType, nil

	case "push":
		if recv.Kind != value.TypeArray {
			return value.Type{}, fmt.Errorf("push is only available on arrays, not %s", recv)
		}
		if len(args) != 1 {
			return value.Type{}, fmt.Errorf("push takes exactly one argument")
		}
		if !args[0].AssignableTo(*recv.Elem) {
			return value.Type{}, fmt.Errorf("cannot push a value of type %s to an array of %s", args[0], recv.Elem)
		}
		return value.UnitType, nil

	case "pop":
		if recv.Kind != value.TypeArray {
			return value.Type{}, fmt.Errorf("pop is only available on arrays, not %s", recv)
		}
		if len(args) != 0 {
			return value.Type{}, fmt.Errorf("pop takes no arguments")
		}
		return *recv.Elem, nil

	case "len":
		if len(args) != 0 {
			return value.Type{}, fmt.Errorf("len takes no arguments")
		}
		if recv.Kind != value.TypeArray && recv.Kind != value.TypeString {
			return value.Type{}, fmt.Errorf("len is only available on arrays and strings, not %s", recv)
		}
		return value.IntType, nil

	case "ends_with":
		if recv.Kind != value.TypeString {
			return value.Type{}, fmt.Errorf("ends_with is only available on strings, not %s", recv)
		}
		if len(args) != 1 || args[0].Kind != value.TypeString {
			return value.Type{}, fmt.Errorf("ends_with takes exactly one string argument")
		}
		return value.BoolType, nil
	}
	return value.Type{}, fmt.Errorf("no method named %q on %s", name, recv)
}

// MethodMutates reports whether a method mutates its receiver's interior,
// which the post-processor only allows on values with mut.
func MethodMutates(name string) bool {
	return name == "push" || name == "pop"
}

// CallMethod dispatches a method call at runtime. Types and mutability
// were verified by the post-processor.
func CallMethod(ctx *Context, recv value.Value, name string, args []value.Value) (value.Value, error) {
	switch name {
	case "fmt":
		return value.Str(recv.Fmt()), nil

	case "push":
		recv.Arr.Elems = append(recv.Arr.Elems, args[0])
		return value.Unit, nil

	case "pop":
		n := len(recv.Arr.Elems)
		if n == 0 {
			return value.Unit, &diag.Error{Kind: diag.RuntimeError, Msg: "cannot pop an empty array"}
		}
		last := recv.Arr.Elems[n-1]
		recv.Arr.Elems = recv.Arr.Elems[:n-1]
		return last, nil

	case "len":
		if recv.Kind == value.KindArray {
			return value.Int(int64(len(recv.Arr.Elems))), nil
		}
		return value.Int(int64(len(recv.Str))), nil

	case "ends_with":
		suffix := args[0].Str
		return value.Bool(len(recv.Str) >= len(suffix) && recv.Str[len(recv.Str)-len(suffix):] == suffix), nil
	}
	return value.Unit, fmt.Errorf("no method named %q", name)
}
