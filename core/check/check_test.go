package check

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nashlang/nash/core/ast"
	"github.com/nashlang/nash/core/diag"
	"github.com/nashlang/nash/core/parser"
	"github.com/nashlang/nash/core/value"
)

func checkSrc(t *testing.T, src string) (*ast.Program, error) {
	t.Helper()
	prog, err := parser.Parse(src)
	require.NoError(t, err)
	return prog, Check(prog)
}

func wantKind(t *testing.T, src string, kind diag.Kind) {
	t.Helper()
	_, err := checkSrc(t, src)
	require.Error(t, err)
	de, ok := err.(*diag.Error)
	require.True(t, ok, "expected a diagnostic, got %v", err)
	assert.Equal(t, kind, de.Kind, "wrong kind for %q: %s", src, de.Msg)
}

func TestCheckAccepts(t *testing.T) {
	cases := []struct {
		name string
		src  string
	}{
		{"declaration and use", `var x = 1; out(x.fmt());`},
		{"reassign mut binding", `var mut x = 1; x = 2;`},
		{"push on mut array", `var a = mut [1]; a.push(2);`},
		{"annotated empty array", `var a: mut [string] = mut []; a.push("x");`},
		{"assign uninitialized then read", `var mut x: string; x = "v"; out(x);`},
		{"while with break", `var mut i = 0; while true { i = i + 1; if i == 3 { break; }; };`},
		{"for over array", `for v in [1, 2, 3] { out(v.fmt()); };`},
		{"function call", `func twice(n: integer): integer { return n * 2; } out(twice(4).fmt());`},
		{"mut array param", `func fill(a: mut [integer]) { a.push(1); } var a = mut [0]; fill(a);`},
		{"record member", `var r = { a: 1, b: "x" }; out(r.b);`},
		{"capture introduces bindings", "exec `cat nothing`|cap exit_code, cap stderr as msg|; out(exit_code.fmt()); out(msg);"},
		{"pipeline shapes", "exec \"data\" => `grep d` => write(\"out.txt\");"},
		{"string comparison", `if "a" < "b" { out("yes"); };`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := checkSrc(t, tc.src)
			assert.NoError(t, err)
		})
	}
}

func TestMutabilityLaw(t *testing.T) {
	// Reassignment needs binding mutability.
	wantKind(t, `var x = 1; x = 2;`, diag.MutabilityError)
	// Interior mutation needs value mutability.
	wantKind(t, `var a = [1]; a.push(2);`, diag.MutabilityError)
	wantKind(t, `var a = [1]; a[0] = 2;`, diag.MutabilityError)
	wantKind(t, `var r = { a: 1 }; r.a = 2;`, diag.MutabilityError)
	// The two flags are independent: a mut binding to an immutable value
	// may be reassigned but not mutated.
	_, err := checkSrc(t, `var mut a = [1]; a = [2];`)
	assert.NoError(t, err)
	wantKind(t, `var mut a = [1]; a.pop();`, diag.MutabilityError)
	// Loop variables and parameters are immutable bindings.
	wantKind(t, `for v in [1] { v = 2; };`, diag.MutabilityError)
	wantKind(t, `func f(s: string) { s = "x"; } f("a");`, diag.MutabilityError)
	// Captured bindings are immutable.
	wantKind(t, "exec `c`|cap exit_code|; exit_code = 0;", diag.MutabilityError)
	// Passing a non-mut array where mut is demanded.
	wantKind(t, `func fill(a: mut [integer]) { a.push(1); } fill([0]);`, diag.TypeError)
}

func literalType(t *testing.T, src string) value.Type {
	t.Helper()
	prog, err := checkSrc(t, src)
	require.NoError(t, err)
	decl := prog.Stmts[0].(*ast.VarDecl)
	c := &checker{prog: prog, funcs: map[string]*ast.FuncDecl{}}
	c.frame = &frame{}
	c.scope = &scope{kind: scopeRoot, syms: make(map[string]*symbol)}
	typ, err := c.expr(decl.Init)
	require.NoError(t, err)
	return typ
}

func TestCascadeLaw(t *testing.T) {
	// mut cascades into nested literals.
	typ := literalType(t, `var r = mut { a: { b: 1 } };`)
	assert.True(t, typ.Mut)
	inner, ok := typ.Lookup("a")
	require.True(t, ok)
	assert.True(t, inner.Mut)

	// An explicit !mut stops the cascade for that literal only.
	typ = literalType(t, `var r = mut { a: !mut { b: 1 }, c: { d: 1 } };`)
	assert.True(t, typ.Mut)
	inner, _ = typ.Lookup("a")
	assert.False(t, inner.Mut)
	other, _ := typ.Lookup("c")
	assert.True(t, other.Mut)

	// A field-level override wins over the parent for that field only.
	typ = literalType(t, `var r = { mut a: [1], b: [2] };`)
	assert.False(t, typ.Mut)
	inner, _ = typ.Lookup("a")
	assert.True(t, inner.Mut)
	other, _ = typ.Lookup("b")
	assert.False(t, other.Mut)

	// Arrays cascade the same way.
	typ = literalType(t, `var a = mut [[1], [2]];`)
	assert.True(t, typ.Mut)
	assert.True(t, typ.Elem.Mut)
}

func TestTypeErrors(t *testing.T) {
	wantKind(t, `var v = ["test", 123];`, diag.TypeError)
	wantKind(t, `var v = [];`, diag.TypeError)
	wantKind(t, `var mut v = "test"; v = 42;`, diag.TypeError)
	wantKind(t, `func f() {} var v = f();`, diag.TypeError)
	wantKind(t, `var mut v: unit;`, diag.TypeError)
	wantKind(t, `func f(a: unit) {} f(1);`, diag.TypeError)
	wantKind(t, `func f(s: string) {} f(123);`, diag.TypeError)
	wantKind(t, `if 1 { out("x"); };`, diag.TypeError)
	wantKind(t, `exit "test";`, diag.TypeError)
	wantKind(t, `out(1 + "a");`, diag.TypeError)
	wantKind(t, `return 123;`, diag.TypeError)
	wantKind(t, `break;`, diag.TypeError)
	wantKind(t, `func f(): string { if true { return 1; }; } f();`, diag.TypeError)
}

func TestNameErrors(t *testing.T) {
	wantKind(t, `out(missing);`, diag.NameError)
	wantKind(t, `missing();`, diag.NameError)
	wantKind(t, `var mut x: string; out(x);`, diag.NameError)
	wantKind(t, `var x = 1; var x = 2;`, diag.NameError)
	// Functions cannot see enclosing bindings.
	wantKind(t, `var hidden = "hi"; func f() { out(hidden); } f();`, diag.NameError)
}

func TestPipelineShape(t *testing.T) {
	wantKind(t, "exec write(\"f\") => `cmd`;", diag.PipelineShapeError)
	wantKind(t, "exec `cmd` => \"literal\";", diag.PipelineShapeError)
	wantKind(t, "exec `a` => open(\"f\") => `b`;", diag.PipelineShapeError)
	wantKind(t, "exec \"s\"|cap exit_code|;", diag.PipelineShapeError)
	wantKind(t, "exec `a`|cap exit_code| => `b`|cap exit_code|;", diag.PipelineShapeError)
	wantKind(t, `exec 42;`, diag.PipelineShapeError)
}

func TestCaptureRegistersBindings(t *testing.T) {
	prog, err := checkSrc(t, "exec `c`|cap exit_code as code, cap stderr|; out(code.fmt()); out(error_message);")
	require.NoError(t, err)

	exec := prog.Stmts[0].(*ast.ExprStmt).X.(*ast.Exec)
	captures := exec.Stages[0].Captures
	require.Len(t, captures, 2)
	assert.Equal(t, "code", captures[0].Name)
	assert.Equal(t, "error_message", captures[1].Name)
	assert.NotEqual(t, captures[0].Slot, captures[1].Slot)
	assert.GreaterOrEqual(t, prog.FrameSize, 2)
}

func TestSlotResolution(t *testing.T) {
	prog, err := checkSrc(t, `var a = 1; var b = 2; out(b.fmt());`)
	require.NoError(t, err)

	declA := prog.Stmts[0].(*ast.VarDecl)
	declB := prog.Stmts[1].(*ast.VarDecl)
	assert.Equal(t, 0, declA.Slot)
	assert.Equal(t, 1, declB.Slot)

	call := prog.Stmts[2].(*ast.ExprStmt).X.(*ast.Call)
	recv := call.Args[0].(*ast.MethodCall).Recv.(*ast.Ident)
	assert.Equal(t, ast.RefLocal, recv.Ref.Kind)
	assert.Equal(t, 1, recv.Ref.Slot)
}
