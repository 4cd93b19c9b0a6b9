// Package check is the post-processor: a single pass over the parsed tree
// that resolves every identifier to a frame slot, infers and checks types,
// enforces the two mutability rules, validates pipeline shapes, and
// rewrites captures into declared bindings. After a successful check the
// evaluator never looks up a name or re-checks a type.
package check

import (
	"github.com/nashlang/nash/core/ast"
	"github.com/nashlang/nash/core/builtins"
	"github.com/nashlang/nash/core/diag"
	"github.com/nashlang/nash/core/token"
	"github.com/nashlang/nash/core/value"
)

// Check validates and annotates a program in place.
func Check(prog *ast.Program) error {
	c := &checker{prog: prog, funcs: make(map[string]*ast.FuncDecl)}

	// Hoist top-level functions so call order does not matter.
	for _, stmt := range prog.Stmts {
		fn, ok := stmt.(*ast.FuncDecl)
		if !ok {
			continue
		}
		if _, exists := c.funcs[fn.Name]; exists {
			return c.errorf(diag.NameError, fn.Span().Start, "function %q declared twice", fn.Name)
		}
		if _, isBuiltin := builtins.Lookup(fn.Name); isBuiltin {
			return c.errorf(diag.NameError, fn.Span().Start, "function %q shadows a built-in", fn.Name)
		}
		fn.Index = len(prog.Funcs)
		prog.Funcs = append(prog.Funcs, fn)
		c.funcs[fn.Name] = fn
	}
	for _, fn := range prog.Funcs {
		if err := c.resolveSignature(fn); err != nil {
			return err
		}
	}

	// Root frame.
	c.frame = &frame{}
	c.scope = &scope{kind: scopeRoot, syms: make(map[string]*symbol)}
	for _, stmt := range prog.Stmts {
		if err := c.stmt(stmt); err != nil {
			return err
		}
	}
	prog.FrameSize = c.frame.size

	// Function bodies, each in its own frame.
	for _, fn := range prog.Funcs {
		if err := c.funcBody(fn); err != nil {
			return err
		}
	}
	return nil
}

type scopeKind int

const (
	scopeRoot scopeKind = iota
	scopeBlock
	scopeLoop
	scopeFunc
)

type symbol struct {
	name        string
	typ         value.Type
	bindingMut  bool
	slot        int
	initialized bool
}

type scope struct {
	parent *scope
	kind   scopeKind
	syms   map[string]*symbol
}

// frame tracks slot allocation for one call frame.
type frame struct {
	size int
}

func (f *frame) alloc() int {
	slot := f.size
	f.size++
	return slot
}

type checker struct {
	prog  *ast.Program
	funcs map[string]*ast.FuncDecl

	scope *scope
	frame *frame
	// fn is the function whose body is being checked, nil at the root.
	fn *ast.FuncDecl
}

func (c *checker) errorf(kind diag.Kind, pos token.Pos, format string, args ...interface{}) error {
	return diag.New(kind, pos, format, args...)
}

func (c *checker) push(kind scopeKind) {
	c.scope = &scope{parent: c.scope, kind: kind, syms: make(map[string]*symbol)}
}

func (c *checker) pop() {
	c.scope = c.scope.parent
}

// declare introduces a binding in the current scope.
func (c *checker) declare(name string, typ value.Type, bindingMut, initialized bool, pos token.Pos) (*symbol, error) {
	if _, exists := c.scope.syms[name]; exists {
		return nil, c.errorf(diag.NameError, pos, "%q is already declared in this scope", name)
	}
	sym := &symbol{
		name:        name,
		typ:         typ,
		bindingMut:  bindingMut,
		slot:        c.frame.alloc(),
		initialized: initialized,
	}
	c.scope.syms[name] = sym
	return sym, nil
}

// resolve walks lexical scopes for a name. Function bodies form a barrier:
// lookups never reach bindings of the enclosing frame.
func (c *checker) resolve(name string) *symbol {
	for s := c.scope; s != nil; s = s.parent {
		if sym, ok := s.syms[name]; ok {
			return sym
		}
		if s.kind == scopeFunc {
			return nil
		}
	}
	return nil
}

// inLoop reports whether the current scope chain crosses a loop before the
// current frame ends.
func (c *checker) inLoop() bool {
	for s := c.scope; s != nil; s = s.parent {
		if s.kind == scopeLoop {
			return true
		}
		if s.kind == scopeFunc {
			return false
		}
	}
	return false
}

func (c *checker) resolveSignature(fn *ast.FuncDecl) error {
	for i := range fn.Params {
		typ, err := c.resolveType(fn.Params[i].Type)
		if err != nil {
			return err
		}
		if typ.Kind == value.TypeUnit {
			return c.errorf(diag.TypeError, fn.Params[i].Type.Span().Start,
				"parameter %q cannot have type unit", fn.Params[i].Name)
		}
		fn.Params[i].Type.Resolved = typ
	}
	if fn.Ret != nil {
		typ, err := c.resolveType(fn.Ret)
		if err != nil {
			return err
		}
		fn.Ret.Resolved = typ
	}
	return nil
}

func (c *checker) funcBody(fn *ast.FuncDecl) error {
	prevFrame, prevScope, prevFn := c.frame, c.scope, c.fn
	c.frame = &frame{}
	c.scope = &scope{kind: scopeFunc, syms: make(map[string]*symbol)}
	c.fn = fn

	for i := range fn.Params {
		sym, err := c.declare(fn.Params[i].Name, fn.Params[i].Type.Resolved, false, true, fn.Span().Start)
		if err != nil {
			return err
		}
		fn.Params[i].Slot = sym.slot
	}
	for _, stmt := range fn.Body.Stmts {
		if err := c.stmt(stmt); err != nil {
			return err
		}
	}
	fn.FrameSize = c.frame.size

	c.frame, c.scope, c.fn = prevFrame, prevScope, prevFn
	return nil
}

func (c *checker) retType() value.Type {
	if c.fn == nil || c.fn.Ret == nil {
		return value.UnitType
	}
	return c.fn.Ret.Resolved
}

// --- Statements ---

func (c *checker) stmt(stmt ast.Stmt) error {
	switch s := stmt.(type) {
	case *ast.FuncDecl:
		if c.fn != nil || c.scope.kind != scopeRoot {
			return c.errorf(diag.ParseError, s.Span().Start, "functions may only be declared at the top level")
		}
		return nil

	case *ast.VarDecl:
		return c.varDecl(s)

	case *ast.Assign:
		return c.assign(s)

	case *ast.If:
		return c.ifStmt(s)

	case *ast.While:
		cond, err := c.expr(s.Cond)
		if err != nil {
			return err
		}
		if cond.Kind != value.TypeBool {
			return c.errorf(diag.TypeError, s.Cond.Span().Start, "while condition must be a boolean, found %s", cond)
		}
		return c.blockIn(s.Body, scopeLoop)

	case *ast.For:
		iter, err := c.expr(s.Iterable)
		if err != nil {
			return err
		}
		if iter.Kind != value.TypeArray {
			return c.errorf(diag.TypeError, s.Iterable.Span().Start, "for needs an array to iterate, found %s", iter)
		}
		c.push(scopeLoop)
		sym, err := c.declare(s.Name, *iter.Elem, false, true, s.Span().Start)
		if err != nil {
			return err
		}
		s.Slot = sym.slot
		for _, inner := range s.Body.Stmts {
			if err := c.stmt(inner); err != nil {
				return err
			}
		}
		c.pop()
		return nil

	case *ast.Return:
		if c.fn == nil {
			return c.errorf(diag.TypeError, s.Span().Start, "return is only allowed inside a function")
		}
		want := c.retType()
		if s.Value == nil {
			if want.Kind != value.TypeUnit {
				return c.errorf(diag.TypeError, s.Span().Start, "function %q must return a %s", c.fn.Name, want)
			}
			return nil
		}
		got, err := c.expr(s.Value)
		if err != nil {
			return err
		}
		if !got.AssignableTo(want) {
			return c.errorf(diag.TypeError, s.Value.Span().Start,
				"function %q returns %s, found %s", c.fn.Name, want, got)
		}
		return nil

	case *ast.Break:
		if !c.inLoop() {
			return c.errorf(diag.TypeError, s.Span().Start, "break is only allowed inside a loop")
		}
		return nil

	case *ast.Continue:
		if !c.inLoop() {
			return c.errorf(diag.TypeError, s.Span().Start, "continue is only allowed inside a loop")
		}
		return nil

	case *ast.Exit:
		code, err := c.expr(s.Code)
		if err != nil {
			return err
		}
		if code.Kind != value.TypeInt {
			return c.errorf(diag.TypeError, s.Code.Span().Start, "exit needs an integer, found %s", code)
		}
		return nil

	case *ast.ExprStmt:
		_, err := c.expr(s.X)
		return err

	case *ast.Block:
		return c.blockIn(s, scopeBlock)
	}
	return c.errorf(diag.TypeError, stmt.Span().Start, "unhandled statement")
}

func (c *checker) blockIn(block *ast.Block, kind scopeKind) error {
	c.push(kind)
	defer c.pop()
	for _, stmt := range block.Stmts {
		if err := c.stmt(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (c *checker) varDecl(s *ast.VarDecl) error {
	var declared value.Type
	if s.Type != nil {
		typ, err := c.resolveType(s.Type)
		if err != nil {
			return err
		}
		if typ.Kind == value.TypeUnit {
			return c.errorf(diag.TypeError, s.Type.Span().Start, "variable %q cannot have type unit", s.Name)
		}
		s.Type.Resolved = typ
		declared = typ
	}

	if s.Init == nil {
		if !s.BindingMut {
			return c.errorf(diag.MutabilityError, s.Span().Start,
				"variable %q has no initializer and so must be declared mut", s.Name)
		}
		sym, err := c.declare(s.Name, declared, true, false, s.Span().Start)
		if err != nil {
			return err
		}
		s.Slot = sym.slot
		return nil
	}

	init, err := c.exprAsValue(s.Init, declared)
	if err != nil {
		return err
	}
	if init.Kind == value.TypeUnit {
		return c.errorf(diag.TypeError, s.Init.Span().Start, "cannot assign a unit value to %q", s.Name)
	}
	typ := init
	if s.Type != nil {
		if !init.AssignableTo(declared) {
			return c.errorf(diag.TypeError, s.Init.Span().Start,
				"cannot initialize %q of type %s with a value of type %s", s.Name, declared, init)
		}
		typ = declared
	}
	sym, err := c.declare(s.Name, typ, s.BindingMut, true, s.Span().Start)
	if err != nil {
		return err
	}
	s.Slot = sym.slot
	return nil
}

func (c *checker) assign(s *ast.Assign) error {
	val, err := c.expr(s.Value)
	if err != nil {
		return err
	}
	if val.Kind == value.TypeUnit {
		return c.errorf(diag.TypeError, s.Value.Span().Start, "cannot assign a unit value")
	}

	switch target := s.Target.(type) {
	case *ast.Ident:
		sym := c.resolve(target.Name)
		if sym == nil {
			return c.errorf(diag.NameError, target.Span().Start, "cannot assign to undeclared variable %q", target.Name)
		}
		if !sym.bindingMut {
			return c.errorf(diag.MutabilityError, target.Span().Start,
				"cannot assign to %q, which was not declared mut", target.Name)
		}
		if sym.typ.Kind != value.TypeInvalid && !val.AssignableTo(sym.typ) {
			return c.errorf(diag.TypeError, s.Value.Span().Start,
				"cannot assign a value of type %s to %q of type %s", val, target.Name, sym.typ)
		}
		if sym.typ.Kind == value.TypeInvalid {
			// Uninitialized declaration without a usable annotation.
			sym.typ = val
		}
		sym.initialized = true
		target.Ref = ast.Ref{Kind: ast.RefLocal, Slot: sym.slot}
		return nil

	case *ast.Index:
		arr, err := c.expr(target.X)
		if err != nil {
			return err
		}
		if arr.Kind != value.TypeArray {
			return c.errorf(diag.TypeError, target.Span().Start, "only arrays can be indexed, found %s", arr)
		}
		if !arr.Mut {
			return c.errorf(diag.MutabilityError, target.Span().Start, "cannot assign into an array that is not mut")
		}
		idx, err := c.expr(target.I)
		if err != nil {
			return err
		}
		if idx.Kind != value.TypeInt {
			return c.errorf(diag.TypeError, target.I.Span().Start, "array index must be an integer, found %s", idx)
		}
		if !val.AssignableTo(*arr.Elem) {
			return c.errorf(diag.TypeError, s.Value.Span().Start,
				"cannot assign a value of type %s to an array of %s", val, arr.Elem)
		}
		return nil

	case *ast.Member:
		rec, err := c.expr(target.X)
		if err != nil {
			return err
		}
		if rec.Kind != value.TypeRecord {
			return c.errorf(diag.TypeError, target.Span().Start, "only records have fields, found %s", rec)
		}
		if !rec.Mut {
			return c.errorf(diag.MutabilityError, target.Span().Start, "cannot assign into a record that is not mut")
		}
		fieldType, ok := rec.Lookup(target.Name)
		if !ok {
			return c.errorf(diag.TypeError, target.Span().Start, "record has no field %q", target.Name)
		}
		if !val.AssignableTo(fieldType) {
			return c.errorf(diag.TypeError, s.Value.Span().Start,
				"cannot assign a value of type %s to field %q of type %s", val, target.Name, fieldType)
		}
		return nil
	}
	return c.errorf(diag.TypeError, s.Target.Span().Start, "cannot assign to this expression")
}

func (c *checker) ifStmt(s *ast.If) error {
	cond, err := c.expr(s.Cond)
	if err != nil {
		return err
	}
	if cond.Kind != value.TypeBool {
		return c.errorf(diag.TypeError, s.Cond.Span().Start, "if condition must be a boolean, found %s", cond)
	}
	if err := c.blockIn(s.Then, scopeBlock); err != nil {
		return err
	}
	switch e := s.Else.(type) {
	case nil:
		return nil
	case *ast.Block:
		return c.blockIn(e, scopeBlock)
	case *ast.If:
		return c.ifStmt(e)
	}
	return nil
}

// --- Type annotations ---

func (c *checker) resolveType(t *ast.TypeExpr) (value.Type, error) {
	switch t.Kind {
	case ast.TypeName:
		switch t.Name {
		case "string":
			return value.StringType, nil
		case "integer":
			return value.IntType, nil
		case "boolean":
			return value.BoolType, nil
		case "unit":
			return value.UnitType, nil
		case "command":
			return value.CommandType, nil
		case "file_endpoint":
			return value.FileType, nil
		}
		return value.Type{}, c.errorf(diag.TypeError, t.Span().Start, "%q is not a type", t.Name)

	case ast.TypeArray:
		elem, err := c.resolveType(t.Elem)
		if err != nil {
			return value.Type{}, err
		}
		if elem.Kind == value.TypeUnit {
			return value.Type{}, c.errorf(diag.TypeError, t.Elem.Span().Start, "arrays cannot hold unit values")
		}
		return value.ArrayType(elem, t.Mut), nil

	case ast.TypeRecord:
		fields := make([]value.Field, 0, len(t.Fields))
		for _, f := range t.Fields {
			ft, err := c.resolveType(f.Type)
			if err != nil {
				return value.Type{}, err
			}
			fields = append(fields, value.Field{Name: f.Name, Type: ft})
		}
		return value.RecordType(fields, t.Mut), nil
	}
	return value.Type{}, c.errorf(diag.TypeError, t.Span().Start, "cannot resolve type")
}
