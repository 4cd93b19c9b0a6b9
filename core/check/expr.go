package check

import (
	"github.com/nashlang/nash/core/ast"
	"github.com/nashlang/nash/core/builtins"
	"github.com/nashlang/nash/core/diag"
	"github.com/nashlang/nash/core/token"
	"github.com/nashlang/nash/core/value"
)

// inherit carries the cascade state while typing nested container
// literals.
type inherit struct {
	active bool
	mut    bool
}

// expr types an expression with no cascade context.
func (c *checker) expr(e ast.Expr) (value.Type, error) {
	return c.exprIn(e, inherit{})
}

// exprAsValue types an initializer against an expected type. An empty
// array literal, which has no type of its own, adopts the annotation.
func (c *checker) exprAsValue(e ast.Expr, expected value.Type) (value.Type, error) {
	if lit, ok := e.(*ast.ArrayLit); ok && len(lit.Elems) == 0 {
		if expected.Kind != value.TypeArray {
			return value.Type{}, c.errorf(diag.TypeError, e.Span().Start,
				"an empty array literal needs an array type annotation")
		}
		lit.ElemType = *expected.Elem
		switch lit.Mark {
		case ast.MarkMut:
			lit.EffectiveMut = true
		case ast.MarkImmut:
			lit.EffectiveMut = false
		default:
			lit.EffectiveMut = expected.Mut
		}
		return value.ArrayType(*expected.Elem, lit.EffectiveMut), nil
	}
	return c.expr(e)
}

func (c *checker) exprIn(e ast.Expr, in inherit) (value.Type, error) {
	switch x := e.(type) {
	case *ast.IntLit:
		return value.IntType, nil

	case *ast.BoolLit:
		return value.BoolType, nil

	case *ast.StrLit:
		for _, part := range x.Parts {
			if part.Expr == nil {
				continue
			}
			t, err := c.expr(part.Expr)
			if err != nil {
				return value.Type{}, err
			}
			if t.Kind != value.TypeString {
				return value.Type{}, c.errorf(diag.TypeError, part.Expr.Span().Start,
					"interpolated expressions inside strings must be strings, found %s", t)
			}
		}
		return value.StringType, nil

	case *ast.ArrayLit:
		return c.arrayLit(x, in)

	case *ast.RecordLit:
		return c.recordLit(x, in)

	case *ast.Ident:
		return c.ident(x)

	case *ast.Member:
		rec, err := c.expr(x.X)
		if err != nil {
			return value.Type{}, err
		}
		if rec.Kind != value.TypeRecord {
			return value.Type{}, c.errorf(diag.TypeError, x.Span().Start,
				"only records have fields, found %s", rec)
		}
		ft, ok := rec.Lookup(x.Name)
		if !ok {
			return value.Type{}, c.errorf(diag.TypeError, x.Span().Start, "record has no field %q", x.Name)
		}
		return ft, nil

	case *ast.Index:
		arr, err := c.expr(x.X)
		if err != nil {
			return value.Type{}, err
		}
		if arr.Kind != value.TypeArray {
			return value.Type{}, c.errorf(diag.TypeError, x.Span().Start,
				"only arrays can be indexed, found %s", arr)
		}
		idx, err := c.expr(x.I)
		if err != nil {
			return value.Type{}, err
		}
		if idx.Kind != value.TypeInt {
			return value.Type{}, c.errorf(diag.TypeError, x.I.Span().Start,
				"array index must be an integer, found %s", idx)
		}
		return *arr.Elem, nil

	case *ast.Call:
		return c.call(x)

	case *ast.MethodCall:
		return c.methodCall(x)

	case *ast.Unary:
		return c.unary(x)

	case *ast.Binary:
		return c.binary(x)

	case *ast.CommandLit:
		return c.commandLit(x)

	case *ast.Exec:
		return c.exec(x)
	}
	return value.Type{}, c.errorf(diag.TypeError, e.Span().Start, "unhandled expression")
}

func effectiveMut(mark ast.Mark, in inherit) bool {
	switch mark {
	case ast.MarkMut:
		return true
	case ast.MarkImmut:
		return false
	}
	return in.active && in.mut
}

func isContainerLit(e ast.Expr) bool {
	switch e.(type) {
	case *ast.ArrayLit, *ast.RecordLit:
		return true
	}
	return false
}

func (c *checker) arrayLit(x *ast.ArrayLit, in inherit) (value.Type, error) {
	x.EffectiveMut = effectiveMut(x.Mark, in)
	if len(x.Elems) == 0 {
		return value.Type{}, c.errorf(diag.TypeError, x.Span().Start,
			"an empty array literal needs an array type annotation")
	}

	childIn := inherit{active: true, mut: x.EffectiveMut}
	var elemType value.Type
	for i, elem := range x.Elems {
		var t value.Type
		var err error
		if isContainerLit(elem) {
			t, err = c.exprIn(elem, childIn)
		} else {
			t, err = c.expr(elem)
		}
		if err != nil {
			return value.Type{}, err
		}
		if t.Kind == value.TypeUnit {
			return value.Type{}, c.errorf(diag.TypeError, elem.Span().Start, "arrays cannot hold unit values")
		}
		if i == 0 {
			elemType = t
			continue
		}
		if !t.SameShape(elemType) {
			return value.Type{}, c.errorf(diag.TypeError, elem.Span().Start,
				"array element of type %s does not match the array's type %s", t, elemType)
		}
		if elemType.IsContainer() && !t.Mut {
			elemType.Mut = false
		}
	}
	x.ElemType = elemType
	return value.ArrayType(elemType, x.EffectiveMut), nil
}

func (c *checker) recordLit(x *ast.RecordLit, in inherit) (value.Type, error) {
	x.EffectiveMut = effectiveMut(x.Mark, in)

	fields := make([]value.Field, 0, len(x.Fields))
	seen := make(map[string]bool)
	for _, f := range x.Fields {
		if seen[f.Name] {
			return value.Type{}, c.errorf(diag.TypeError, x.Span().Start, "duplicate field %q in record literal", f.Name)
		}
		seen[f.Name] = true

		fieldIn := inherit{active: true, mut: x.EffectiveMut}
		switch f.Mark {
		case ast.MarkMut:
			fieldIn.mut = true
		case ast.MarkImmut:
			fieldIn.mut = false
		}
		if f.Mark != ast.MarkNone && !isContainerLit(f.Value) {
			return value.Type{}, c.errorf(diag.MutabilityError, f.Value.Span().Start,
				"a field mutability override applies only to container literals")
		}

		var t value.Type
		var err error
		if isContainerLit(f.Value) {
			t, err = c.exprIn(f.Value, fieldIn)
		} else {
			t, err = c.expr(f.Value)
		}
		if err != nil {
			return value.Type{}, err
		}
		if t.Kind == value.TypeUnit {
			return value.Type{}, c.errorf(diag.TypeError, f.Value.Span().Start, "records cannot hold unit values")
		}
		fields = append(fields, value.Field{Name: f.Name, Type: t})
	}
	return value.RecordType(fields, x.EffectiveMut), nil
}

func (c *checker) ident(x *ast.Ident) (value.Type, error) {
	sym := c.resolve(x.Name)
	if sym == nil {
		if _, ok := c.funcs[x.Name]; ok {
			return value.Type{}, c.errorf(diag.TypeError, x.Span().Start, "function %q is not a value", x.Name)
		}
		return value.Type{}, c.errorf(diag.NameError, x.Span().Start, "unknown identifier %q", x.Name)
	}
	if !sym.initialized {
		return value.Type{}, c.errorf(diag.NameError, x.Span().Start, "variable %q is used before it is assigned", x.Name)
	}
	x.Ref = ast.Ref{Kind: ast.RefLocal, Slot: sym.slot}
	return sym.typ, nil
}

func (c *checker) call(x *ast.Call) (value.Type, error) {
	if fn, ok := c.funcs[x.Name]; ok {
		x.Func = ast.Ref{Kind: ast.RefFunc, Slot: fn.Index}
		if len(x.Args) != len(fn.Params) {
			return value.Type{}, c.errorf(diag.TypeError, x.Span().Start,
				"function %q takes %d arguments, found %d", x.Name, len(fn.Params), len(x.Args))
		}
		for i, arg := range x.Args {
			t, err := c.expr(arg)
			if err != nil {
				return value.Type{}, err
			}
			want := fn.Params[i].Type.Resolved
			if !t.AssignableTo(want) {
				return value.Type{}, c.errorf(diag.TypeError, arg.Span().Start,
					"argument %d of %q must be a %s, found %s", i+1, x.Name, want, t)
			}
		}
		if fn.Ret == nil {
			return value.UnitType, nil
		}
		return fn.Ret.Resolved, nil
	}

	if f, ok := builtins.Lookup(x.Name); ok {
		x.Builtin = x.Name
		if len(x.Args) != len(f.Params) {
			return value.Type{}, c.errorf(diag.TypeError, x.Span().Start,
				"%s takes %d arguments, found %d", x.Name, len(f.Params), len(x.Args))
		}
		for i, arg := range x.Args {
			t, err := c.expr(arg)
			if err != nil {
				return value.Type{}, err
			}
			if !t.AssignableTo(f.Params[i]) {
				return value.Type{}, c.errorf(diag.TypeError, arg.Span().Start,
					"argument %d of %s must be a %s, found %s", i+1, x.Name, f.Params[i], t)
			}
		}
		return f.Result, nil
	}
	return value.Type{}, c.errorf(diag.NameError, x.Span().Start, "unknown function %q", x.Name)
}

func (c *checker) methodCall(x *ast.MethodCall) (value.Type, error) {
	recv, err := c.expr(x.Recv)
	if err != nil {
		return value.Type{}, err
	}
	args := make([]value.Type, len(x.Args))
	for i, arg := range x.Args {
		t, err := c.expr(arg)
		if err != nil {
			return value.Type{}, err
		}
		args[i] = t
	}
	if builtins.MethodMutates(x.Name) {
		if recv.IsContainer() && !recv.Mut {
			return value.Type{}, c.errorf(diag.MutabilityError, x.Span().Start,
				"cannot call %s on a value that is not mut", x.Name)
		}
	}
	result, err := builtins.MethodSig(recv, x.Name, args)
	if err != nil {
		return value.Type{}, c.errorf(diag.TypeError, x.Span().Start, "%s", err)
	}
	return result, nil
}

func (c *checker) unary(x *ast.Unary) (value.Type, error) {
	t, err := c.expr(x.X)
	if err != nil {
		return value.Type{}, err
	}
	switch x.Op {
	case token.Minus:
		if t.Kind != value.TypeInt {
			return value.Type{}, c.errorf(diag.TypeError, x.Span().Start, "unary - needs an integer, found %s", t)
		}
		return value.IntType, nil
	case token.Bang:
		if t.Kind != value.TypeBool {
			return value.Type{}, c.errorf(diag.TypeError, x.Span().Start, "! needs a boolean, found %s", t)
		}
		return value.BoolType, nil
	}
	return value.Type{}, c.errorf(diag.TypeError, x.Span().Start, "unhandled unary operator")
}

func (c *checker) binary(x *ast.Binary) (value.Type, error) {
	l, err := c.expr(x.L)
	if err != nil {
		return value.Type{}, err
	}
	r, err := c.expr(x.R)
	if err != nil {
		return value.Type{}, err
	}

	switch x.Op {
	case token.Plus:
		if l.Kind == value.TypeString && r.Kind == value.TypeString {
			return value.StringType, nil
		}
		if l.Kind == value.TypeInt && r.Kind == value.TypeInt {
			return value.IntType, nil
		}
		return value.Type{}, c.errorf(diag.TypeError, x.Span().Start,
			"+ needs two integers or two strings, found %s and %s", l, r)

	case token.Minus, token.Star, token.Slash, token.Percent:
		if l.Kind != value.TypeInt || r.Kind != value.TypeInt {
			return value.Type{}, c.errorf(diag.TypeError, x.Span().Start,
				"%s needs two integers, found %s and %s", x.Op, l, r)
		}
		return value.IntType, nil

	case token.Lt, token.Gt, token.Le, token.Ge:
		stringsOK := l.Kind == value.TypeString && r.Kind == value.TypeString
		intsOK := l.Kind == value.TypeInt && r.Kind == value.TypeInt
		if !stringsOK && !intsOK {
			return value.Type{}, c.errorf(diag.TypeError, x.Span().Start,
				"%s needs two integers or two strings, found %s and %s", x.Op, l, r)
		}
		return value.BoolType, nil

	case token.Eq, token.Ne:
		if !l.SameShape(r) {
			return value.Type{}, c.errorf(diag.TypeError, x.Span().Start,
				"cannot compare %s with %s", l, r)
		}
		return value.BoolType, nil

	case token.AndAnd, token.OrOr:
		if l.Kind != value.TypeBool || r.Kind != value.TypeBool {
			return value.Type{}, c.errorf(diag.TypeError, x.Span().Start,
				"%s needs two booleans, found %s and %s", x.Op, l, r)
		}
		return value.BoolType, nil
	}
	return value.Type{}, c.errorf(diag.TypeError, x.Span().Start, "unhandled binary operator")
}

func (c *checker) commandLit(x *ast.CommandLit) (value.Type, error) {
	for _, word := range x.Words {
		for _, part := range word {
			if part.Expr == nil {
				continue
			}
			t, err := c.expr(part.Expr)
			if err != nil {
				return value.Type{}, err
			}
			if t.Kind == value.TypeUnit {
				return value.Type{}, c.errorf(diag.TypeError, part.Expr.Span().Start,
					"cannot interpolate a unit value into a command")
			}
		}
	}
	return value.CommandType, nil
}
