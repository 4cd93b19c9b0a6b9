package eval

import (
	"context"
	"strings"

	"github.com/nashlang/nash/core/ast"
	"github.com/nashlang/nash/core/builtins"
	"github.com/nashlang/nash/core/diag"
	"github.com/nashlang/nash/core/token"
	"github.com/nashlang/nash/core/value"
)

func (m *Machine) expr(ctx context.Context, frame []value.Value, e ast.Expr) (value.Value, error) {
	switch x := e.(type) {
	case *ast.IntLit:
		return value.Int(x.Value), nil

	case *ast.BoolLit:
		return value.Bool(x.Value), nil

	case *ast.StrLit:
		s, err := m.interpolate(ctx, frame, x.Parts)
		if err != nil {
			return value.Unit, err
		}
		return value.Str(s), nil

	case *ast.ArrayLit:
		elems := make([]value.Value, len(x.Elems))
		for i, elem := range x.Elems {
			v, err := m.expr(ctx, frame, elem)
			if err != nil {
				return value.Unit, err
			}
			elems[i] = v
		}
		return value.NewArray(elems, x.EffectiveMut), nil

	case *ast.RecordLit:
		names := make([]string, len(x.Fields))
		vals := make([]value.Value, len(x.Fields))
		for i, field := range x.Fields {
			v, err := m.expr(ctx, frame, field.Value)
			if err != nil {
				return value.Unit, err
			}
			names[i] = field.Name
			vals[i] = v
		}
		return value.Value{
			Kind: value.KindRecord,
			Rec:  &value.Record{Names: names, Vals: vals, Mut: x.EffectiveMut},
		}, nil

	case *ast.Ident:
		v := frame[x.Ref.Slot]
		if v.Kind == value.KindInvalid {
			return value.Unit, runtimeErr(x.Span().Start, "variable %q is used before it is assigned", x.Name)
		}
		return v, nil

	case *ast.Member:
		rec, err := m.expr(ctx, frame, x.X)
		if err != nil {
			return value.Unit, err
		}
		return rec.Rec.Vals[rec.Rec.Lookup(x.Name)], nil

	case *ast.Index:
		arr, err := m.expr(ctx, frame, x.X)
		if err != nil {
			return value.Unit, err
		}
		idx, err := m.expr(ctx, frame, x.I)
		if err != nil {
			return value.Unit, err
		}
		if idx.Int < 0 || idx.Int >= int64(len(arr.Arr.Elems)) {
			return value.Unit, runtimeErr(x.I.Span().Start,
				"index %d is out of bounds for an array of length %d", idx.Int, len(arr.Arr.Elems))
		}
		return arr.Arr.Elems[idx.Int], nil

	case *ast.Call:
		args := make([]value.Value, len(x.Args))
		for i, arg := range x.Args {
			v, err := m.expr(ctx, frame, arg)
			if err != nil {
				return value.Unit, err
			}
			args[i] = v
		}
		if x.Builtin != "" {
			v, err := builtins.Call(m.ctx, x.Builtin, args)
			if err != nil {
				return value.Unit, diag.WithPos(err, x.Span().Start)
			}
			return v, nil
		}
		return m.callFunc(ctx, m.prog.Funcs[x.Func.Slot], args)

	case *ast.MethodCall:
		recv, err := m.expr(ctx, frame, x.Recv)
		if err != nil {
			return value.Unit, err
		}
		args := make([]value.Value, len(x.Args))
		for i, arg := range x.Args {
			v, err := m.expr(ctx, frame, arg)
			if err != nil {
				return value.Unit, err
			}
			args[i] = v
		}
		v, err := builtins.CallMethod(m.ctx, recv, x.Name, args)
		if err != nil {
			return value.Unit, diag.WithPos(err, x.Span().Start)
		}
		return v, nil

	case *ast.Unary:
		v, err := m.expr(ctx, frame, x.X)
		if err != nil {
			return value.Unit, err
		}
		if x.Op == token.Minus {
			return value.Int(-v.Int), nil
		}
		return value.Bool(!v.Bool), nil

	case *ast.Binary:
		return m.binary(ctx, frame, x)

	case *ast.CommandLit:
		return m.commandLit(ctx, frame, x)

	case *ast.Exec:
		return m.exec(ctx, frame, x)
	}
	return value.Unit, runtimeErr(e.Span().Start, "unhandled expression")
}

// interpolate resolves the chunks of a string literal.
func (m *Machine) interpolate(ctx context.Context, frame []value.Value, parts []ast.StrPart) (string, error) {
	var sb strings.Builder
	for _, part := range parts {
		if part.Expr == nil {
			sb.WriteString(part.Lit)
			continue
		}
		v, err := m.expr(ctx, frame, part.Expr)
		if err != nil {
			return "", err
		}
		sb.WriteString(v.Str)
	}
	return sb.String(), nil
}

// commandLit resolves a backtick literal into argv. Interpolation happens
// here, exactly once; an interpolated value becomes one argument in its
// fmt() form and is never re-split.
func (m *Machine) commandLit(ctx context.Context, frame []value.Value, x *ast.CommandLit) (value.Value, error) {
	argv := make([]string, 0, len(x.Words))
	for _, word := range x.Words {
		var sb strings.Builder
		for _, part := range word {
			if part.Expr == nil {
				sb.WriteString(part.Lit)
				continue
			}
			v, err := m.expr(ctx, frame, part.Expr)
			if err != nil {
				return value.Unit, err
			}
			sb.WriteString(v.Fmt())
		}
		argv = append(argv, sb.String())
	}
	return value.Value{
		Kind: value.KindCommand,
		Cmd:  &value.Command{Program: argv[0], Args: argv[1:]},
	}, nil
}

func (m *Machine) binary(ctx context.Context, frame []value.Value, x *ast.Binary) (value.Value, error) {
	// Boolean operators short-circuit.
	if x.Op == token.AndAnd || x.Op == token.OrOr {
		l, err := m.expr(ctx, frame, x.L)
		if err != nil {
			return value.Unit, err
		}
		if x.Op == token.AndAnd && !l.Bool {
			return value.Bool(false), nil
		}
		if x.Op == token.OrOr && l.Bool {
			return value.Bool(true), nil
		}
		return m.expr(ctx, frame, x.R)
	}

	l, err := m.expr(ctx, frame, x.L)
	if err != nil {
		return value.Unit, err
	}
	r, err := m.expr(ctx, frame, x.R)
	if err != nil {
		return value.Unit, err
	}

	switch x.Op {
	case token.Plus:
		if l.Kind == value.KindString {
			return value.Str(l.Str + r.Str), nil
		}
		return value.Int(l.Int + r.Int), nil
	case token.Minus:
		return value.Int(l.Int - r.Int), nil
	case token.Star:
		return value.Int(l.Int * r.Int), nil
	case token.Slash:
		if r.Int == 0 {
			return value.Unit, runtimeErr(x.Span().Start, "division by zero")
		}
		return value.Int(l.Int / r.Int), nil
	case token.Percent:
		if r.Int == 0 {
			return value.Unit, runtimeErr(x.Span().Start, "division by zero")
		}
		return value.Int(l.Int % r.Int), nil
	case token.Lt:
		return value.Bool(less(l, r)), nil
	case token.Gt:
		return value.Bool(less(r, l)), nil
	case token.Le:
		return value.Bool(!less(r, l)), nil
	case token.Ge:
		return value.Bool(!less(l, r)), nil
	case token.Eq:
		return value.Bool(l.Equal(r)), nil
	case token.Ne:
		return value.Bool(!l.Equal(r)), nil
	}
	return value.Unit, runtimeErr(x.Span().Start, "unhandled binary operator")
}

func less(l, r value.Value) bool {
	if l.Kind == value.KindString {
		return l.Str < r.Str
	}
	return l.Int < r.Int
}
