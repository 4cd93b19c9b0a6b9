package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nashlang/nash/core/ast"
	"github.com/nashlang/nash/core/diag"
	"github.com/nashlang/nash/core/token"
)

func parseOne(t *testing.T, src string) ast.Stmt {
	t.Helper()
	prog, err := Parse(src)
	require.NoError(t, err)
	require.Len(t, prog.Stmts, 1)
	return prog.Stmts[0]
}

func TestParseVarDecl(t *testing.T) {
	stmt := parseOne(t, `var mut name: string = "nash";`)
	decl, ok := stmt.(*ast.VarDecl)
	require.True(t, ok)

	assert.True(t, decl.BindingMut)
	assert.Equal(t, "name", decl.Name)
	require.NotNil(t, decl.Type)
	assert.Equal(t, ast.TypeName, decl.Type.Kind)
	assert.Equal(t, "string", decl.Type.Name)
	require.IsType(t, &ast.StrLit{}, decl.Init)
}

func TestParsePrecedence(t *testing.T) {
	stmt := parseOne(t, `var x = 1 + 2 * 3 == 7 && true;`)
	decl := stmt.(*ast.VarDecl)

	and, ok := decl.Init.(*ast.Binary)
	require.True(t, ok)
	assert.Equal(t, token.AndAnd, and.Op)

	eq, ok := and.L.(*ast.Binary)
	require.True(t, ok)
	assert.Equal(t, token.Eq, eq.Op)

	plus, ok := eq.L.(*ast.Binary)
	require.True(t, ok)
	assert.Equal(t, token.Plus, plus.Op)

	times, ok := plus.R.(*ast.Binary)
	require.True(t, ok)
	assert.Equal(t, token.Star, times.Op)
}

func TestParseMarkedLiterals(t *testing.T) {
	stmt := parseOne(t, `var x = mut [1, 2, 3,];`)
	arr := stmt.(*ast.VarDecl).Init.(*ast.ArrayLit)
	assert.Equal(t, ast.MarkMut, arr.Mark)
	assert.Len(t, arr.Elems, 3)

	stmt = parseOne(t, `var y = mut { a: !mut { b: 1 }, !mut c: [2] };`)
	rec := stmt.(*ast.VarDecl).Init.(*ast.RecordLit)
	assert.Equal(t, ast.MarkMut, rec.Mark)
	require.Len(t, rec.Fields, 2)

	inner := rec.Fields[0].Value.(*ast.RecordLit)
	assert.Equal(t, ast.MarkImmut, inner.Mark)
	assert.Equal(t, ast.MarkNone, rec.Fields[0].Mark)
	assert.Equal(t, ast.MarkImmut, rec.Fields[1].Mark)
}

func TestRecordLiteralVsBlock(t *testing.T) {
	prog, err := Parse(`{ out("block"); };`)
	require.NoError(t, err)
	require.IsType(t, &ast.Block{}, prog.Stmts[0])

	prog, err = Parse(`var r = { a: 1 };`)
	require.NoError(t, err)
	require.IsType(t, &ast.RecordLit{}, prog.Stmts[0].(*ast.VarDecl).Init)
}

func TestParseFuncDecl(t *testing.T) {
	prog, err := Parse(`
func join(items: [string], sep: string): string {
    return sep;
}
`)
	require.NoError(t, err)
	fn, ok := prog.Stmts[0].(*ast.FuncDecl)
	require.True(t, ok)

	assert.Equal(t, "join", fn.Name)
	require.Len(t, fn.Params, 2)
	assert.Equal(t, ast.TypeArray, fn.Params[0].Type.Kind)
	assert.False(t, fn.Params[0].Type.Mut)
	require.NotNil(t, fn.Ret)
	assert.Equal(t, "string", fn.Ret.Name)
}

func TestParseMutParamType(t *testing.T) {
	prog, err := Parse(`
func fill(items: mut [integer]) {
    items.push(1);
}
`)
	require.NoError(t, err)
	fn := prog.Stmts[0].(*ast.FuncDecl)
	require.Len(t, fn.Params, 1)
	assert.Equal(t, ast.TypeArray, fn.Params[0].Type.Kind)
	assert.True(t, fn.Params[0].Type.Mut)
}

func TestParsePipeline(t *testing.T) {
	stmt := parseOne(t, "var out = exec open(\"in.txt\") => `grep t`|cap exit_code as code, cap stderr| => write(\"out.txt\");")
	exec := stmt.(*ast.VarDecl).Init.(*ast.Exec)
	require.Len(t, exec.Stages, 3)

	require.IsType(t, &ast.Call{}, exec.Stages[0].X)
	require.IsType(t, &ast.CommandLit{}, exec.Stages[1].X)
	require.IsType(t, &ast.Call{}, exec.Stages[2].X)

	captures := exec.Stages[1].Captures
	require.Len(t, captures, 2)
	assert.Equal(t, ast.CaptureExitCode, captures[0].Kind)
	assert.Equal(t, "code", captures[0].Name)
	assert.Equal(t, ast.CaptureStderr, captures[1].Kind)
	assert.Equal(t, "", captures[1].Name)
}

func TestParseCommandWords(t *testing.T) {
	stmt := parseOne(t, "exec `grep -v \"a b\" x${pat}y`;")
	exec := stmt.(*ast.ExprStmt).X.(*ast.Exec)
	cmd := exec.Stages[0].X.(*ast.CommandLit)

	require.Len(t, cmd.Words, 4)
	assert.Equal(t, "grep", cmd.Words[0][0].Lit)
	assert.Equal(t, "-v", cmd.Words[1][0].Lit)
	// The quoted argument stays one word.
	assert.Equal(t, "a b", cmd.Words[2][0].Lit)
	// x${pat}y glues into a single word of three chunks.
	require.Len(t, cmd.Words[3], 3)
	assert.Equal(t, "x", cmd.Words[3][0].Lit)
	assert.NotNil(t, cmd.Words[3][1].Expr)
	assert.Equal(t, "y", cmd.Words[3][2].Lit)
}

func TestParseStringInterpolation(t *testing.T) {
	stmt := parseOne(t, `out("value: ${x.fmt()}!");`)
	call := stmt.(*ast.ExprStmt).X.(*ast.Call)
	lit := call.Args[0].(*ast.StrLit)

	require.Len(t, lit.Parts, 3)
	assert.Equal(t, "value: ", lit.Parts[0].Lit)
	require.IsType(t, &ast.MethodCall{}, lit.Parts[1].Expr)
	assert.Equal(t, "!", lit.Parts[2].Lit)
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
	}{
		{"missing semicolon", `var x = 1`},
		{"declaration without type or value", `var x;`},
		{"assign to call", `f() = 2;`},
		{"unterminated block", `if true { out("x");`},
		{"bad capture", "exec `x`|cap stdout_typo|;"},
		{"mut before scalar literal", `var x = mut 3;`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.src)
			require.Error(t, err)
			de, ok := err.(*diag.Error)
			require.True(t, ok)
			assert.Equal(t, diag.ParseError, de.Kind)
		})
	}
}

func TestParseErrorReportsEarliestFailure(t *testing.T) {
	// Both the assignment and expression alternatives fail; the reported
	// position must be the leftmost failure, not the rightmost probe.
	_, err := Parse(`] = 2;`)
	require.Error(t, err)
	de, ok := err.(*diag.Error)
	require.True(t, ok)
	assert.Equal(t, 1, de.Pos.Line)
	assert.Equal(t, 1, de.Pos.Column)
}
