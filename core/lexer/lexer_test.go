package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nashlang/nash/core/token"
)

func kinds(tokens []token.Token) []token.Kind {
	out := make([]token.Kind, len(tokens))
	for i, t := range tokens {
		out[i] = t.Kind
	}
	return out
}

func TestLexKinds(t *testing.T) {
	cases := []struct {
		name     string
		src      string
		expected []token.Kind
	}{
		{
			name:     "declaration",
			src:      `var mut x = 42;`,
			expected: []token.Kind{token.Var, token.Mut, token.Ident, token.Assign, token.Int, token.Semicolon, token.EOF},
		},
		{
			name:     "operators longest match",
			src:      `== = => >= > || | !=`,
			expected: []token.Kind{token.Eq, token.Assign, token.Arrow, token.Ge, token.Gt, token.OrOr, token.Pipe, token.Ne, token.EOF},
		},
		{
			name:     "keywords take precedence on exact spelling",
			src:      `for forth in inner`,
			expected: []token.Kind{token.For, token.Ident, token.In, token.Ident, token.EOF},
		},
		{
			name:     "comments run to end of line",
			src:      "1 # comment ; var\n2",
			expected: []token.Kind{token.Int, token.Int, token.EOF},
		},
		{
			name:     "shebang is ignored",
			src:      "#!/usr/bin/env nash\nexit 0;",
			expected: []token.Kind{token.Exit, token.Int, token.Semicolon, token.EOF},
		},
		{
			name:     "pipeline with capture",
			src:      "exec `cat`|cap exit_code| => `grep t`",
			expected: []token.Kind{token.Exec, token.Command, token.Pipe, token.Cap, token.Ident, token.Pipe, token.Arrow, token.Command, token.EOF},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tokens, err := Lex(tc.src)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, kinds(tokens))
		})
	}
}

func TestLexPositions(t *testing.T) {
	tokens, err := Lex("var x;\n  out(x);")
	require.NoError(t, err)

	assert.Equal(t, token.Pos{Line: 1, Column: 1}, tokens[0].Pos())
	assert.Equal(t, token.Pos{Line: 1, Column: 5}, tokens[1].Pos())
	// `out` on the second line after two spaces.
	assert.Equal(t, token.Pos{Line: 2, Column: 3}, tokens[3].Pos())
}

func TestLexStringLiteral(t *testing.T) {
	cases := []struct {
		name  string
		src   string
		parts []token.Part
	}{
		{
			name:  "plain",
			src:   `"hello"`,
			parts: []token.Part{{Lit: "hello"}},
		},
		{
			name:  "escapes keep the next character",
			src:   `"Blue \"cheese\" and \\ rice"`,
			parts: []token.Part{{Lit: `Blue "cheese" and \ rice`}},
		},
		{
			name: "interpolation",
			src:  `"a ${x.fmt()} b"`,
			parts: []token.Part{
				{Lit: "a "},
				{Expr: true, ExprSrc: "x.fmt()", ExprPos: token.Pos{Line: 1, Column: 6}},
				{Lit: " b"},
			},
		},
		{
			name:  "empty",
			src:   `""`,
			parts: []token.Part{{Lit: ""}},
		},
		{
			name: "nested braces in interpolation",
			src:  `"${ {a: 1}.fmt() }"`,
			parts: []token.Part{
				{Expr: true, ExprSrc: " {a: 1}.fmt() ", ExprPos: token.Pos{Line: 1, Column: 4}},
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tokens, err := Lex(tc.src)
			require.NoError(t, err)
			require.Equal(t, token.String, tokens[0].Kind)
			assert.Equal(t, tc.parts, tokens[0].Parts)
		})
	}
}

func TestLexCommandLiteral(t *testing.T) {
	tokens, err := Lex("`grep -v \"a b\" ${pattern}`")
	require.NoError(t, err)
	require.Equal(t, token.Command, tokens[0].Kind)

	parts := tokens[0].Parts
	require.Len(t, parts, 4)
	assert.Equal(t, "grep -v ", parts[0].Lit)
	assert.False(t, parts[0].Quoted)
	assert.Equal(t, "a b", parts[1].Lit)
	assert.True(t, parts[1].Quoted)
	assert.Equal(t, " ", parts[2].Lit)
	assert.True(t, parts[3].Expr)
	assert.Equal(t, "pattern", parts[3].ExprSrc)
}

func TestLexErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
	}{
		{"unterminated string", `"never closed`},
		{"unterminated command", "`never closed"},
		{"unterminated interpolation", `"${x"`},
		{"empty interpolation", `"${}"`},
		{"invalid character", `var x = @;`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Lex(tc.src)
			assert.Error(t, err)
		})
	}
}
