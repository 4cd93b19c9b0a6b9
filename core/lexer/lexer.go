// Package lexer turns Nash source text into a token stream.
//
// String and backtick literals are emitted as structured tokens: an ordered
// sequence of literal chunks and ${...} expression chunks. The expression
// chunks keep their raw source and position; the parser re-lexes them.
package lexer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/nashlang/nash/core/diag"
	"github.com/nashlang/nash/core/token"
)

// Lex scans a whole script. The returned stream always ends with an EOF
// token when err is nil.
func Lex(src string) ([]token.Token, error) {
	return LexAt(src, token.Pos{Line: 1, Column: 1})
}

// LexAt scans src as if it started at pos. Used for the expression chunks
// of interpolated literals so their spans point into the original script.
func LexAt(src string, pos token.Pos) ([]token.Token, error) {
	l := &lexer{src: src, line: pos.Line, col: pos.Column}
	return l.run()
}

type lexer struct {
	src  string
	off  int
	line int
	col  int

	tokens []token.Token
}

func (l *lexer) pos() token.Pos {
	return token.Pos{Line: l.line, Column: l.col}
}

// peek returns the rune at the current offset without consuming it.
func (l *lexer) peek() rune {
	if l.off >= len(l.src) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.src[l.off:])
	return r
}

func (l *lexer) peekAt(n int) byte {
	if l.off+n >= len(l.src) {
		return 0
	}
	return l.src[l.off+n]
}

func (l *lexer) next() rune {
	if l.off >= len(l.src) {
		return 0
	}
	r, size := utf8.DecodeRuneInString(l.src[l.off:])
	l.off += size
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

func (l *lexer) emit(kind token.Kind, text string, start token.Pos) {
	l.tokens = append(l.tokens, token.Token{
		Kind: kind,
		Text: text,
		Span: token.Span{Start: start, End: l.pos()},
	})
}

func (l *lexer) errorf(pos token.Pos, format string, args ...interface{}) error {
	return diag.New(diag.LexError, pos, format, args...)
}

func (l *lexer) run() ([]token.Token, error) {
	// A shebang on the first line is ignored.
	if strings.HasPrefix(l.src, "#!") {
		for l.off < len(l.src) && l.peek() != '\n' {
			l.next()
		}
	}

	for l.off < len(l.src) {
		start := l.pos()
		r := l.peek()

		switch {
		case r == ' ' || r == '\t' || r == '\r' || r == '\n':
			l.next()

		case r == '#':
			for l.off < len(l.src) && l.peek() != '\n' {
				l.next()
			}

		case r == '"':
			l.next()
			parts, err := l.scanString('"')
			if err != nil {
				return nil, err
			}
			l.tokens = append(l.tokens, token.Token{
				Kind:  token.String,
				Parts: parts,
				Span:  token.Span{Start: start, End: l.pos()},
			})

		case r == '`':
			l.next()
			parts, err := l.scanCommand()
			if err != nil {
				return nil, err
			}
			l.tokens = append(l.tokens, token.Token{
				Kind:  token.Command,
				Parts: parts,
				Span:  token.Span{Start: start, End: l.pos()},
			})

		case r >= '0' && r <= '9':
			var sb strings.Builder
			for l.off < len(l.src) && l.peek() >= '0' && l.peek() <= '9' {
				sb.WriteRune(l.next())
			}
			l.emit(token.Int, sb.String(), start)

		case isIdentStart(r):
			var sb strings.Builder
			for l.off < len(l.src) && isIdentPart(l.peek()) {
				sb.WriteRune(l.next())
			}
			name := sb.String()
			l.emit(token.LookupIdent(name), name, start)

		default:
			kind, text, ok := l.scanOperator()
			if !ok {
				return nil, l.errorf(start, "invalid character %q", r)
			}
			l.emit(kind, text, start)
		}
	}

	l.tokens = append(l.tokens, token.Token{
		Kind: token.EOF,
		Span: token.Span{Start: l.pos(), End: l.pos()},
	})
	return l.tokens, nil
}

// scanOperator consumes the longest operator or punctuation token at the
// current offset.
func (l *lexer) scanOperator() (token.Kind, string, bool) {
	two := map[string]token.Kind{
		"=>": token.Arrow,
		"==": token.Eq,
		"!=": token.Ne,
		"<=": token.Le,
		">=": token.Ge,
		"&&": token.AndAnd,
		"||": token.OrOr,
	}
	if l.off+1 < len(l.src) {
		pair := l.src[l.off : l.off+2]
		if kind, ok := two[pair]; ok {
			l.next()
			l.next()
			return kind, pair, true
		}
	}

	one := map[rune]token.Kind{
		'=': token.Assign,
		'|': token.Pipe,
		',': token.Comma,
		':': token.Colon,
		';': token.Semicolon,
		'.': token.Dot,
		'(': token.LParen,
		')': token.RParen,
		'{': token.LBrace,
		'}': token.RBrace,
		'[': token.LBracket,
		']': token.RBracket,
		'+': token.Plus,
		'-': token.Minus,
		'*': token.Star,
		'/': token.Slash,
		'%': token.Percent,
		'<': token.Lt,
		'>': token.Gt,
		'!': token.Bang,
	}
	r := l.peek()
	if kind, ok := one[r]; ok {
		l.next()
		return kind, string(r), true
	}
	return token.Illegal, "", false
}

// scanString scans the remainder of a string literal after its opening
// quote, processing escapes and splitting out ${...} interpolations.
func (l *lexer) scanString(quote rune) ([]token.Part, error) {
	start := l.pos()
	var parts []token.Part
	var lit strings.Builder

	flush := func() {
		if lit.Len() > 0 {
			parts = append(parts, token.Part{Lit: lit.String()})
			lit.Reset()
		}
	}

	for {
		if l.off >= len(l.src) {
			return nil, l.errorf(start, "unterminated string literal")
		}
		r := l.peek()
		switch {
		case r == quote:
			l.next()
			flush()
			if len(parts) == 0 {
				parts = append(parts, token.Part{Lit: ""})
			}
			return parts, nil

		case r == '\\':
			l.next()
			if l.off >= len(l.src) {
				return nil, l.errorf(start, "unterminated escape sequence in string literal")
			}
			lit.WriteRune(l.next())

		case r == '$' && l.peekAt(1) == '{':
			flush()
			part, err := l.scanInterpolation()
			if err != nil {
				return nil, err
			}
			parts = append(parts, part)

		default:
			lit.WriteRune(l.next())
		}
	}
}

// scanInterpolation consumes a ${...} chunk, keeping its raw source for the
// parser. Braces nest; quotes within the expression are skipped over.
func (l *lexer) scanInterpolation() (token.Part, error) {
	open := l.pos()
	l.next() // $
	l.next() // {
	exprPos := l.pos()
	exprStart := l.off

	depth := 1
	for l.off < len(l.src) {
		r := l.peek()
		switch r {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				src := l.src[exprStart:l.off]
				l.next()
				if strings.TrimSpace(src) == "" {
					return token.Part{}, l.errorf(open, "empty interpolation")
				}
				return token.Part{Expr: true, ExprSrc: src, ExprPos: exprPos}, nil
			}
		case '"':
			l.next()
			if err := l.skipNestedString(); err != nil {
				return token.Part{}, err
			}
			continue
		}
		l.next()
	}
	return token.Part{}, l.errorf(open, "unterminated interpolation")
}

func (l *lexer) skipNestedString() error {
	start := l.pos()
	for l.off < len(l.src) {
		switch l.peek() {
		case '\\':
			l.next()
			l.next()
		case '"':
			l.next()
			return nil
		default:
			l.next()
		}
	}
	return l.errorf(start, "unterminated string literal")
}

// scanCommand scans the body of a backtick literal. Unquoted runs keep
// their whitespace so the parser can split words; double-quoted substrings
// are marked Quoted and never split.
func (l *lexer) scanCommand() ([]token.Part, error) {
	start := l.pos()
	var parts []token.Part
	var lit strings.Builder

	flush := func() {
		if lit.Len() > 0 {
			parts = append(parts, token.Part{Lit: lit.String()})
			lit.Reset()
		}
	}

	for {
		if l.off >= len(l.src) {
			return nil, l.errorf(start, "unterminated command literal")
		}
		r := l.peek()
		switch {
		case r == '`':
			l.next()
			flush()
			return parts, nil

		case r == '\\':
			l.next()
			if l.off >= len(l.src) {
				return nil, l.errorf(start, "unterminated escape sequence in command literal")
			}
			lit.WriteRune(l.next())

		case r == '"':
			flush()
			l.next()
			quoted, err := l.scanString('"')
			if err != nil {
				return nil, err
			}
			for _, part := range quoted {
				part.Quoted = true
				parts = append(parts, part)
			}

		case r == '$' && l.peekAt(1) == '{':
			flush()
			part, err := l.scanInterpolation()
			if err != nil {
				return nil, err
			}
			parts = append(parts, part)

		default:
			lit.WriteRune(l.next())
		}
	}
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || (r >= '0' && r <= '9')
}
