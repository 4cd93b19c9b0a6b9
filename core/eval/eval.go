// Package eval walks a validated syntax tree and produces its observable
// effects. The post-processor has resolved every name to a frame slot and
// checked every type and mutability rule; the evaluator trusts it.
package eval

import (
	"bufio"
	"context"
	"io"

	"github.com/spf13/afero"

	"github.com/nashlang/nash/core/ast"
	"github.com/nashlang/nash/core/builtins"
	"github.com/nashlang/nash/core/diag"
	"github.com/nashlang/nash/core/pipeline"
	"github.com/nashlang/nash/core/token"
	"github.com/nashlang/nash/core/value"
)

// Tracer observes pipeline runs. The zero value of Machine uses no tracer.
type Tracer interface {
	PipelineStarted(plan *pipeline.Plan)
	PipelineFinished(plan *pipeline.Plan, out *pipeline.Output, err error)
}

// Options configures a Machine.
type Options struct {
	Fs     afero.Fs
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Env is the environment for child processes.
	Env []string
	// Dir is the working directory for child processes. File endpoint and
	// glob paths are passed to Fs unchanged and do not use it.
	Dir string
	// MaxCapture bounds captured stdout/stderr buffers.
	MaxCapture int64

	Tracer Tracer
}

// Machine executes one validated program.
type Machine struct {
	prog   *ast.Program
	ctx    *builtins.Context
	engine *pipeline.Engine
	tracer Tracer
}

// New builds a Machine for a checked program.
func New(prog *ast.Program, opts Options) *Machine {
	return &Machine{
		prog: prog,
		ctx: &builtins.Context{
			Fs:     opts.Fs,
			Stdin:  bufio.NewReader(opts.Stdin),
			Stdout: opts.Stdout,
			Stderr: opts.Stderr,
		},
		engine: &pipeline.Engine{
			Fs:         opts.Fs,
			Stderr:     opts.Stderr,
			Env:        opts.Env,
			Dir:        opts.Dir,
			MaxCapture: opts.MaxCapture,
		},
		tracer: opts.Tracer,
	}
}

// Run executes the program and returns the script's exit code. A non-nil
// error is an uncaught interpreter error; the caller reports it and exits
// with code 1.
func (m *Machine) Run(ctx context.Context) (int, error) {
	frame := make([]value.Value, m.prog.FrameSize)
	for _, stmt := range m.prog.Stmts {
		f, err := m.stmt(ctx, frame, stmt)
		if err != nil {
			if eu, ok := err.(*exitUnwind); ok {
				return eu.code, nil
			}
			return 1, err
		}
		if f.kind == ctrlExit {
			return f.code, nil
		}
	}
	return 0, nil
}

// ctrl carries non-local control flow out of statements.
type ctrl int

const (
	ctrlNone ctrl = iota
	ctrlBreak
	ctrlContinue
	ctrlReturn
	ctrlExit
)

type flow struct {
	kind ctrl
	val  value.Value // return value
	code int         // exit code
}

var flowNone = flow{}

func runtimeErr(pos token.Pos, format string, args ...interface{}) error {
	return diag.New(diag.RuntimeError, pos, format, args...)
}

func (m *Machine) stmt(ctx context.Context, frame []value.Value, stmt ast.Stmt) (flow, error) {
	switch s := stmt.(type) {
	case *ast.FuncDecl:
		return flowNone, nil

	case *ast.VarDecl:
		if s.Init == nil {
			return flowNone, nil
		}
		v, err := m.expr(ctx, frame, s.Init)
		if err != nil {
			return flowNone, err
		}
		frame[s.Slot] = v
		return flowNone, nil

	case *ast.Assign:
		return flowNone, m.assign(ctx, frame, s)

	case *ast.If:
		cond, err := m.expr(ctx, frame, s.Cond)
		if err != nil {
			return flowNone, err
		}
		if cond.Bool {
			return m.block(ctx, frame, s.Then)
		}
		switch e := s.Else.(type) {
		case nil:
			return flowNone, nil
		case *ast.Block:
			return m.block(ctx, frame, e)
		case *ast.If:
			return m.stmt(ctx, frame, e)
		}
		return flowNone, nil

	case *ast.While:
		for {
			cond, err := m.expr(ctx, frame, s.Cond)
			if err != nil {
				return flowNone, err
			}
			if !cond.Bool {
				return flowNone, nil
			}
			f, err := m.block(ctx, frame, s.Body)
			if err != nil {
				return flowNone, err
			}
			switch f.kind {
			case ctrlBreak:
				return flowNone, nil
			case ctrlContinue, ctrlNone:
				continue
			default:
				return f, nil
			}
		}

	case *ast.For:
		iter, err := m.expr(ctx, frame, s.Iterable)
		if err != nil {
			return flowNone, err
		}
		arr := iter.Arr
		for i := 0; i < len(arr.Elems); i++ {
			frame[s.Slot] = arr.Elems[i]
			f, err := m.block(ctx, frame, s.Body)
			if err != nil {
				return flowNone, err
			}
			switch f.kind {
			case ctrlBreak:
				return flowNone, nil
			case ctrlContinue, ctrlNone:
			default:
				return f, nil
			}
		}
		return flowNone, nil

	case *ast.Return:
		ret := flow{kind: ctrlReturn, val: value.Unit}
		if s.Value != nil {
			v, err := m.expr(ctx, frame, s.Value)
			if err != nil {
				return flowNone, err
			}
			ret.val = v
		}
		return ret, nil

	case *ast.Break:
		return flow{kind: ctrlBreak}, nil

	case *ast.Continue:
		return flow{kind: ctrlContinue}, nil

	case *ast.Exit:
		code, err := m.expr(ctx, frame, s.Code)
		if err != nil {
			return flowNone, err
		}
		if code.Int < 0 || code.Int > 255 {
			return flowNone, runtimeErr(s.Span().Start, "exit code must be between 0 and 255, found %d", code.Int)
		}
		return flow{kind: ctrlExit, code: int(code.Int)}, nil

	case *ast.ExprStmt:
		_, err := m.expr(ctx, frame, s.X)
		return flowNone, err

	case *ast.Block:
		return m.block(ctx, frame, s)
	}
	return flowNone, runtimeErr(stmt.Span().Start, "unhandled statement")
}

func (m *Machine) block(ctx context.Context, frame []value.Value, b *ast.Block) (flow, error) {
	for _, stmt := range b.Stmts {
		f, err := m.stmt(ctx, frame, stmt)
		if err != nil {
			return flowNone, err
		}
		if f.kind != ctrlNone {
			return f, nil
		}
	}
	return flowNone, nil
}

func (m *Machine) assign(ctx context.Context, frame []value.Value, s *ast.Assign) error {
	v, err := m.expr(ctx, frame, s.Value)
	if err != nil {
		return err
	}
	switch target := s.Target.(type) {
	case *ast.Ident:
		frame[target.Ref.Slot] = v
		return nil

	case *ast.Index:
		arr, err := m.expr(ctx, frame, target.X)
		if err != nil {
			return err
		}
		idx, err := m.expr(ctx, frame, target.I)
		if err != nil {
			return err
		}
		if idx.Int < 0 || idx.Int >= int64(len(arr.Arr.Elems)) {
			return runtimeErr(target.I.Span().Start,
				"index %d is out of bounds for an array of length %d", idx.Int, len(arr.Arr.Elems))
		}
		arr.Arr.Elems[idx.Int] = v
		return nil

	case *ast.Member:
		rec, err := m.expr(ctx, frame, target.X)
		if err != nil {
			return err
		}
		i := rec.Rec.Lookup(target.Name)
		rec.Rec.Vals[i] = v
		return nil
	}
	return runtimeErr(s.Span().Start, "cannot assign to this expression")
}

// callFunc invokes a user function in a fresh frame. Containers passed to
// parameters declared without mut are shallow-copied so the callee cannot
// mutate the caller's value.
func (m *Machine) callFunc(ctx context.Context, fn *ast.FuncDecl, args []value.Value) (value.Value, error) {
	frame := make([]value.Value, fn.FrameSize)
	for i, arg := range args {
		param := fn.Params[i]
		if arg.Kind == value.KindArray || arg.Kind == value.KindRecord {
			if !param.Type.Resolved.Mut {
				arg = arg.ShallowCopy()
			}
		}
		frame[param.Slot] = arg
	}
	for _, stmt := range fn.Body.Stmts {
		f, err := m.stmt(ctx, frame, stmt)
		if err != nil {
			return value.Unit, err
		}
		switch f.kind {
		case ctrlReturn:
			return f.val, nil
		case ctrlExit:
			// Exit unwinds through calls; re-raise it as a flow error the
			// root loop recognises.
			return value.Unit, &exitUnwind{code: f.code}
		}
	}
	return value.Unit, nil
}

// exitUnwind carries an exit statement out of nested function calls.
type exitUnwind struct {
	code int
}

func (e *exitUnwind) Error() string {
	return "exit"
}
