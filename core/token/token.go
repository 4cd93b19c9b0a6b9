// Package token defines the lexical tokens of the Nash language and the
// source positions attached to them.
package token

import "fmt"

// Pos is a position within a script, 1-based for both line and column.
type Pos struct {
	Line   int
	Column int
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// IsValid reports whether the position was set.
func (p Pos) IsValid() bool {
	return p.Line > 0
}

// Span covers a half-open range of source text.
type Span struct {
	Start Pos
	End   Pos
}

// Kind identifies the class of a token.
type Kind int

const (
	Illegal Kind = iota
	EOF

	Ident
	Int    // decimal integer literal
	String // structured string literal, see Token.Parts
	Command

	// Keywords
	Var
	Mut
	Func
	If
	Else
	While
	For
	In
	Return
	Break
	Continue
	Exec
	Exit
	Cap
	As
	True
	False

	// Punctuation
	Assign    // =
	Arrow     // =>
	Pipe      // |
	Comma     // ,
	Colon     // :
	Semicolon // ;
	Dot       // .
	LParen    // (
	RParen    // )
	LBrace    // {
	RBrace    // }
	LBracket  // [
	RBracket  // ]

	// Operators
	Plus    // +
	Minus   // -
	Star    // *
	Slash   // /
	Percent // %
	Lt      // <
	Gt      // >
	Le      // <=
	Ge      // >=
	Eq      // ==
	Ne      // !=
	AndAnd  // &&
	OrOr    // ||
	Bang    // !
)

var kindNames = map[Kind]string{
	Illegal:   "illegal token",
	EOF:       "end of input",
	Ident:     "identifier",
	Int:       "integer literal",
	String:    "string literal",
	Command:   "command literal",
	Var:       "var",
	Mut:       "mut",
	Func:      "func",
	If:        "if",
	Else:      "else",
	While:     "while",
	For:       "for",
	In:        "in",
	Return:    "return",
	Break:     "break",
	Continue:  "continue",
	Exec:      "exec",
	Exit:      "exit",
	Cap:       "cap",
	As:        "as",
	True:      "true",
	False:     "false",
	Assign:    "=",
	Arrow:     "=>",
	Pipe:      "|",
	Comma:     ",",
	Colon:     ":",
	Semicolon: ";",
	Dot:       ".",
	LParen:    "(",
	RParen:    ")",
	LBrace:    "{",
	RBrace:    "}",
	LBracket:  "[",
	RBracket:  "]",
	Plus:      "+",
	Minus:     "-",
	Star:      "*",
	Slash:     "/",
	Percent:   "%",
	Lt:        "<",
	Gt:        ">",
	Le:        "<=",
	Ge:        ">=",
	Eq:        "==",
	Ne:        "!=",
	AndAnd:    "&&",
	OrOr:      "||",
	Bang:      "!",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

var keywords = map[string]Kind{
	"var":      Var,
	"mut":      Mut,
	"func":     Func,
	"if":       If,
	"else":     Else,
	"while":    While,
	"for":      For,
	"in":       In,
	"return":   Return,
	"break":    Break,
	"continue": Continue,
	"exec":     Exec,
	"exit":     Exit,
	"cap":      Cap,
	"as":       As,
	"true":     True,
	"false":    False,
}

// LookupIdent maps an identifier spelling to its keyword kind, or Ident when
// the spelling is not a keyword.
func LookupIdent(name string) Kind {
	if kind, ok := keywords[name]; ok {
		return kind
	}
	return Ident
}

// Part is one chunk of a string or command literal. Exactly one of Lit or
// Expr is meaningful: a literal run of text, or the raw source of a ${...}
// interpolation which the parser re-lexes.
type Part struct {
	Lit    string
	Quoted bool // literal came from a quoted substring (command literals)

	Expr    bool
	ExprSrc string
	ExprPos Pos
}

// Token is a single lexeme with its source span. String and Command tokens
// carry their structured payload in Parts; all other kinds use Text.
type Token struct {
	Kind  Kind
	Text  string
	Parts []Part
	Span  Span
}

// Pos returns the token's starting position.
func (t Token) Pos() Pos {
	return t.Span.Start
}
