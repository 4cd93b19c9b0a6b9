// Package parser builds the Nash syntax tree from a token stream.
//
// The parser is recursive descent with standard precedence climbing. A
// small Backtrackable peek buffer is used only to distinguish ambiguous
// prefixes (a `{` opening a record literal vs a block, an assignment
// target vs an expression statement). When every alternative fails, the
// reported error is the one whose position is leftmost.
package parser

import (
	"strconv"

	"github.com/nashlang/nash/core/ast"
	"github.com/nashlang/nash/core/diag"
	"github.com/nashlang/nash/core/lexer"
	"github.com/nashlang/nash/core/token"
)

// Parse lexes and parses a whole script.
func Parse(src string) (*ast.Program, error) {
	tokens, err := lexer.Lex(src)
	if err != nil {
		return nil, err
	}
	return ParseTokens(tokens)
}

// ParseTokens parses an already-lexed script.
func ParseTokens(tokens []token.Token) (*ast.Program, error) {
	p := &parser{ts: NewBacktrackable(tokens)}
	prog, err := p.parseProgram()
	if err != nil {
		return nil, err
	}
	return prog, nil
}

type parser struct {
	ts *Backtrackable
}

func (p *parser) errorf(pos token.Pos, format string, args ...interface{}) error {
	return diag.New(diag.ParseError, pos, format, args...)
}

// earliest picks the error whose position is leftmost, so a branch that
// failed early is never shadowed by one that got further before failing.
func earliest(errs ...error) error {
	var best *diag.Error
	for _, err := range errs {
		if err == nil {
			continue
		}
		de, ok := err.(*diag.Error)
		if !ok {
			return err
		}
		if best == nil || posBefore(de.Pos, best.Pos) {
			best = de
		}
	}
	return best
}

func posBefore(a, b token.Pos) bool {
	if a.Line != b.Line {
		return a.Line < b.Line
	}
	return a.Column < b.Column
}

func (p *parser) expect(kind token.Kind) (token.Token, error) {
	t := p.ts.Peek()
	if t.Kind != kind {
		return token.Token{}, p.errorf(t.Pos(), "expected %s, found %s", kind, describe(t))
	}
	return p.ts.Next(), nil
}

func describe(t token.Token) string {
	switch t.Kind {
	case token.Ident, token.Int:
		return strconv.Quote(t.Text)
	default:
		return t.Kind.String()
	}
}

func (p *parser) parseProgram() (*ast.Program, error) {
	start := p.ts.Peek().Span
	var stmts []ast.Stmt
	for !p.ts.At(token.EOF) {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	return &ast.Program{
		Base:  ast.Base{Loc: token.Span{Start: start.Start, End: p.ts.Peek().Span.End}},
		Stmts: stmts,
	}, nil
}

// parseStatement parses one statement including its trailing semicolon.
// Function declarations are the only statements without one.
func (p *parser) parseStatement() (ast.Stmt, error) {
	if p.ts.At(token.Func) {
		return p.parseFuncDecl()
	}
	stmt, err := p.parseStatementBody()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Semicolon); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *parser) parseStatementBody() (ast.Stmt, error) {
	t := p.ts.Peek()
	switch t.Kind {
	case token.Var:
		return p.parseVarDecl()
	case token.If:
		return p.parseIf()
	case token.While:
		return p.parseWhile()
	case token.For:
		return p.parseFor()
	case token.Return:
		p.ts.Next()
		ret := &ast.Return{Base: ast.Base{Loc: t.Span}}
		if !p.ts.At(token.Semicolon) {
			value, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			ret.Value = value
		}
		return ret, nil
	case token.Break:
		p.ts.Next()
		return &ast.Break{Base: ast.Base{Loc: t.Span}}, nil
	case token.Continue:
		p.ts.Next()
		return &ast.Continue{Base: ast.Base{Loc: t.Span}}, nil
	case token.Exit:
		p.ts.Next()
		code, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &ast.Exit{Base: ast.Base{Loc: t.Span}, Code: code}, nil
	case token.LBrace:
		if !p.startsRecordLiteral() {
			block, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			return block, nil
		}
	}
	return p.parseAssignOrExpr()
}

// startsRecordLiteral decides `{` between a record literal and a block by
// peeking at most three tokens past the brace.
func (p *parser) startsRecordLiteral() bool {
	if p.ts.PeekN(1).Kind == token.Ident && p.ts.PeekN(2).Kind == token.Colon {
		return true
	}
	// mut / !mut field overrides also mark a record.
	if p.ts.PeekN(1).Kind == token.Mut && p.ts.PeekN(2).Kind == token.Ident && p.ts.PeekN(3).Kind == token.Colon {
		return true
	}
	if p.ts.PeekN(1).Kind == token.Bang && p.ts.PeekN(2).Kind == token.Mut {
		return true
	}
	return false
}

func (p *parser) parseVarDecl() (ast.Stmt, error) {
	start, _ := p.ts.Accept(token.Var)
	decl := &ast.VarDecl{Base: ast.Base{Loc: start.Span}}
	if _, ok := p.ts.Accept(token.Mut); ok {
		decl.BindingMut = true
	}
	name, err := p.expect(token.Ident)
	if err != nil {
		return nil, err
	}
	decl.Name = name.Text

	if _, ok := p.ts.Accept(token.Colon); ok {
		typ, err := p.parseTypeExpr()
		if err != nil {
			return nil, err
		}
		decl.Type = typ
	}
	if _, ok := p.ts.Accept(token.Assign); ok {
		init, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		decl.Init = init
	}
	if decl.Type == nil && decl.Init == nil {
		return nil, p.errorf(start.Pos(), "variable %q needs a type or an initializer", decl.Name)
	}
	return decl, nil
}

// parseAssignOrExpr distinguishes `target = expr;` from a bare expression
// statement with a checkpoint probe of the assignment alternative.
func (p *parser) parseAssignOrExpr() (ast.Stmt, error) {
	cp := p.ts.Checkpoint()
	start := p.ts.Peek().Span

	target, targetErr := p.parsePostfix()
	if targetErr == nil && p.ts.At(token.Assign) {
		switch target.(type) {
		case *ast.Ident, *ast.Index, *ast.Member:
			p.ts.Next()
			value, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			return &ast.Assign{Base: ast.Base{Loc: start}, Target: target, Value: value}, nil
		default:
			return nil, p.errorf(start.Start, "cannot assign to this expression")
		}
	}
	p.ts.Rewind(cp)

	x, err := p.parseExpr()
	if err != nil {
		return nil, earliest(targetErr, err)
	}
	return &ast.ExprStmt{Base: ast.Base{Loc: start}, X: x}, nil
}

func (p *parser) parseIf() (ast.Stmt, error) {
	start, _ := p.ts.Accept(token.If)
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	then, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	node := &ast.If{Base: ast.Base{Loc: start.Span}, Cond: cond, Then: then}
	if _, ok := p.ts.Accept(token.Else); ok {
		if p.ts.At(token.If) {
			elseIf, err := p.parseIf()
			if err != nil {
				return nil, err
			}
			node.Else = elseIf
		} else {
			elseBlock, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			node.Else = elseBlock
		}
	}
	return node, nil
}

func (p *parser) parseWhile() (ast.Stmt, error) {
	start, _ := p.ts.Accept(token.While)
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.While{Base: ast.Base{Loc: start.Span}, Cond: cond, Body: body}, nil
}

func (p *parser) parseFor() (ast.Stmt, error) {
	start, _ := p.ts.Accept(token.For)
	name, err := p.expect(token.Ident)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.In); err != nil {
		return nil, err
	}
	iterable, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.For{
		Base:     ast.Base{Loc: start.Span},
		Name:     name.Text,
		Iterable: iterable,
		Body:     body,
	}, nil
}

func (p *parser) parseFuncDecl() (ast.Stmt, error) {
	start, _ := p.ts.Accept(token.Func)
	name, err := p.expect(token.Ident)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}

	var params []ast.Param
	for !p.ts.At(token.RParen) {
		if len(params) > 0 {
			if _, err := p.expect(token.Comma); err != nil {
				return nil, err
			}
		}
		pname, err := p.expect(token.Ident)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.Colon); err != nil {
			return nil, err
		}
		ptype, err := p.parseTypeExpr()
		if err != nil {
			return nil, err
		}
		params = append(params, ast.Param{Name: pname.Text, Type: ptype})
	}
	p.ts.Next() // )

	decl := &ast.FuncDecl{Base: ast.Base{Loc: start.Span}, Name: name.Text, Params: params}
	if _, ok := p.ts.Accept(token.Colon); ok {
		ret, err := p.parseTypeExpr()
		if err != nil {
			return nil, err
		}
		decl.Ret = ret
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	decl.Body = body
	return decl, nil
}

func (p *parser) parseBlock() (*ast.Block, error) {
	start, err := p.expect(token.LBrace)
	if err != nil {
		return nil, err
	}
	var stmts []ast.Stmt
	for !p.ts.At(token.RBrace) {
		if p.ts.At(token.EOF) {
			return nil, p.errorf(start.Pos(), "unterminated block")
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	end := p.ts.Next() // }
	return &ast.Block{
		Base:  ast.Base{Loc: token.Span{Start: start.Span.Start, End: end.Span.End}},
		Stmts: stmts,
	}, nil
}

// --- Expressions ---

func (p *parser) parseExpr() (ast.Expr, error) {
	if p.ts.At(token.Exec) {
		return p.parseExec()
	}
	return p.parseOr()
}

func (p *parser) parseOr() (ast.Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.ts.At(token.OrOr) {
		op := p.ts.Next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Base: ast.Base{Loc: op.Span}, Op: op.Kind, L: left, R: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (ast.Expr, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.ts.At(token.AndAnd) {
		op := p.ts.Next()
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Base: ast.Base{Loc: op.Span}, Op: op.Kind, L: left, R: right}
	}
	return left, nil
}

func (p *parser) parseComparison() (ast.Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for {
		switch p.ts.Peek().Kind {
		case token.Lt, token.Gt, token.Le, token.Ge, token.Eq, token.Ne:
			op := p.ts.Next()
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			left = &ast.Binary{Base: ast.Base{Loc: op.Span}, Op: op.Kind, L: left, R: right}
		default:
			return left, nil
		}
	}
}

func (p *parser) parseAdditive() (ast.Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.ts.At(token.Plus) || p.ts.At(token.Minus) {
		op := p.ts.Next()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Base: ast.Base{Loc: op.Span}, Op: op.Kind, L: left, R: right}
	}
	return left, nil
}

func (p *parser) parseMultiplicative() (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.ts.At(token.Star) || p.ts.At(token.Slash) || p.ts.At(token.Percent) {
		op := p.ts.Next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Base: ast.Base{Loc: op.Span}, Op: op.Kind, L: left, R: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (ast.Expr, error) {
	t := p.ts.Peek()
	switch t.Kind {
	case token.Minus:
		p.ts.Next()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Base: ast.Base{Loc: t.Span}, Op: token.Minus, X: x}, nil
	case token.Bang:
		// `!mut [...]` is a mutability marker, not negation.
		if p.ts.PeekN(1).Kind == token.Mut {
			return p.parseMarkedLiteral()
		}
		p.ts.Next()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Base: ast.Base{Loc: t.Span}, Op: token.Bang, X: x}, nil
	case token.Mut:
		return p.parseMarkedLiteral()
	}
	return p.parsePostfix()
}

// parseMarkedLiteral handles `mut` / `!mut` prefixes, which may only
// precede array and record literals.
func (p *parser) parseMarkedLiteral() (ast.Expr, error) {
	t := p.ts.Peek()
	mark := ast.MarkMut
	if t.Kind == token.Bang {
		p.ts.Next()
		mark = ast.MarkImmut
	}
	if _, err := p.expect(token.Mut); err != nil {
		return nil, err
	}

	switch p.ts.Peek().Kind {
	case token.LBracket:
		lit, err := p.parseArrayLit()
		if err != nil {
			return nil, err
		}
		lit.(*ast.ArrayLit).Mark = mark
		return lit, nil
	case token.LBrace:
		lit, err := p.parseRecordLit()
		if err != nil {
			return nil, err
		}
		lit.(*ast.RecordLit).Mark = mark
		return lit, nil
	}
	return nil, p.errorf(p.ts.Peek().Pos(), "mut marker must precede an array or record literal")
}

func (p *parser) parsePostfix() (ast.Expr, error) {
	x, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.ts.Peek()
		switch t.Kind {
		case token.Dot:
			p.ts.Next()
			name, err := p.expect(token.Ident)
			if err != nil {
				return nil, err
			}
			if p.ts.At(token.LParen) {
				args, err := p.parseArgs()
				if err != nil {
					return nil, err
				}
				x = &ast.MethodCall{Base: ast.Base{Loc: t.Span}, Recv: x, Name: name.Text, Args: args}
			} else {
				x = &ast.Member{Base: ast.Base{Loc: t.Span}, X: x, Name: name.Text}
			}
		case token.LBracket:
			p.ts.Next()
			i, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(token.RBracket); err != nil {
				return nil, err
			}
			x = &ast.Index{Base: ast.Base{Loc: t.Span}, X: x, I: i}
		default:
			return x, nil
		}
	}
}

func (p *parser) parseArgs() ([]ast.Expr, error) {
	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}
	var args []ast.Expr
	for !p.ts.At(token.RParen) {
		if len(args) > 0 {
			if _, err := p.expect(token.Comma); err != nil {
				return nil, err
			}
		}
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	p.ts.Next() // )
	return args, nil
}

func (p *parser) parsePrimary() (ast.Expr, error) {
	t := p.ts.Peek()
	switch t.Kind {
	case token.Int:
		p.ts.Next()
		n, err := strconv.ParseInt(t.Text, 10, 64)
		if err != nil {
			return nil, p.errorf(t.Pos(), "integer literal %s out of range", t.Text)
		}
		return &ast.IntLit{Base: ast.Base{Loc: t.Span}, Value: n}, nil

	case token.True, token.False:
		p.ts.Next()
		return &ast.BoolLit{Base: ast.Base{Loc: t.Span}, Value: t.Kind == token.True}, nil

	case token.String:
		p.ts.Next()
		parts, err := p.resolveParts(t.Parts)
		if err != nil {
			return nil, err
		}
		return &ast.StrLit{Base: ast.Base{Loc: t.Span}, Parts: parts}, nil

	case token.Command:
		p.ts.Next()
		return p.buildCommandLit(t)

	case token.Ident:
		p.ts.Next()
		if p.ts.At(token.LParen) {
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			return &ast.Call{Base: ast.Base{Loc: t.Span}, Name: t.Text, Args: args}, nil
		}
		return &ast.Ident{Base: ast.Base{Loc: t.Span}, Name: t.Text}, nil

	case token.LParen:
		p.ts.Next()
		x, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RParen); err != nil {
			return nil, err
		}
		return x, nil

	case token.LBracket:
		return p.parseArrayLit()

	case token.LBrace:
		return p.parseRecordLit()

	case token.Exec:
		return p.parseExec()
	}
	return nil, p.errorf(t.Pos(), "expected expression, found %s", describe(t))
}

func (p *parser) parseArrayLit() (ast.Expr, error) {
	start, err := p.expect(token.LBracket)
	if err != nil {
		return nil, err
	}
	var elems []ast.Expr
	for !p.ts.At(token.RBracket) {
		if len(elems) > 0 {
			if _, err := p.expect(token.Comma); err != nil {
				return nil, err
			}
			// Trailing comma.
			if p.ts.At(token.RBracket) {
				break
			}
		}
		elem, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		elems = append(elems, elem)
	}
	end := p.ts.Next() // ]
	return &ast.ArrayLit{
		Base:  ast.Base{Loc: token.Span{Start: start.Span.Start, End: end.Span.End}},
		Elems: elems,
	}, nil
}

func (p *parser) parseRecordLit() (ast.Expr, error) {
	start, err := p.expect(token.LBrace)
	if err != nil {
		return nil, err
	}
	var fields []ast.RecField
	for !p.ts.At(token.RBrace) {
		if len(fields) > 0 {
			if _, err := p.expect(token.Comma); err != nil {
				return nil, err
			}
			if p.ts.At(token.RBrace) {
				break
			}
		}
		field := ast.RecField{}
		if p.ts.At(token.Bang) && p.ts.PeekN(1).Kind == token.Mut {
			p.ts.Next()
			p.ts.Next()
			field.Mark = ast.MarkImmut
		} else if _, ok := p.ts.Accept(token.Mut); ok {
			field.Mark = ast.MarkMut
		}
		name, err := p.expect(token.Ident)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.Colon); err != nil {
			return nil, err
		}
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		field.Name = name.Text
		field.Value = val
		fields = append(fields, field)
	}
	end := p.ts.Next() // }
	return &ast.RecordLit{
		Base:   ast.Base{Loc: token.Span{Start: start.Span.Start, End: end.Span.End}},
		Fields: fields,
	}, nil
}

// resolveParts re-lexes and parses the expression chunks of a structured
// string token.
func (p *parser) resolveParts(parts []token.Part) ([]ast.StrPart, error) {
	var out []ast.StrPart
	for _, part := range parts {
		if !part.Expr {
			out = append(out, ast.StrPart{Lit: part.Lit})
			continue
		}
		x, err := parseSubExpr(part.ExprSrc, part.ExprPos)
		if err != nil {
			return nil, err
		}
		out = append(out, ast.StrPart{Expr: x})
	}
	return out, nil
}

// parseSubExpr parses an interpolation chunk as a standalone expression.
func parseSubExpr(src string, pos token.Pos) (ast.Expr, error) {
	tokens, err := lexer.LexAt(src, pos)
	if err != nil {
		return nil, err
	}
	sub := &parser{ts: NewBacktrackable(tokens)}
	x, err := sub.parseExpr()
	if err != nil {
		return nil, err
	}
	if !sub.ts.At(token.EOF) {
		t := sub.ts.Peek()
		return nil, sub.errorf(t.Pos(), "unexpected %s in interpolation", describe(t))
	}
	return x, nil
}

// buildCommandLit splits a structured backtick token into words:
// whitespace in unquoted literal chunks separates words, quoted chunks and
// interpolations glue onto the current word.
func (p *parser) buildCommandLit(t token.Token) (ast.Expr, error) {
	var words [][]ast.StrPart
	var current []ast.StrPart

	endWord := func() {
		if len(current) > 0 {
			words = append(words, current)
			current = nil
		}
	}

	for _, part := range t.Parts {
		switch {
		case part.Expr:
			x, err := parseSubExpr(part.ExprSrc, part.ExprPos)
			if err != nil {
				return nil, err
			}
			current = append(current, ast.StrPart{Expr: x})

		case part.Quoted:
			current = append(current, ast.StrPart{Lit: part.Lit})

		default:
			rest := part.Lit
			for len(rest) > 0 {
				i := indexWhitespace(rest)
				if i < 0 {
					current = append(current, ast.StrPart{Lit: rest})
					break
				}
				if i > 0 {
					current = append(current, ast.StrPart{Lit: rest[:i]})
				}
				endWord()
				rest = trimLeadingWhitespace(rest[i:])
			}
		}
	}
	endWord()

	if len(words) == 0 {
		return nil, p.errorf(t.Pos(), "command literal must contain a command")
	}
	return &ast.CommandLit{Base: ast.Base{Loc: t.Span}, Words: words}, nil
}

func indexWhitespace(s string) int {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\r', '\n':
			return i
		}
	}
	return -1
}

func trimLeadingWhitespace(s string) string {
	for len(s) > 0 {
		switch s[0] {
		case ' ', '\t', '\r', '\n':
			s = s[1:]
		default:
			return s
		}
	}
	return s
}

// --- Pipelines ---

func (p *parser) parseExec() (ast.Expr, error) {
	start, _ := p.ts.Accept(token.Exec)
	var stages []ast.Stage

	for {
		stage, err := p.parseStage()
		if err != nil {
			return nil, err
		}
		stages = append(stages, stage)
		if _, ok := p.ts.Accept(token.Arrow); !ok {
			break
		}
	}
	return &ast.Exec{Base: ast.Base{Loc: start.Span}, Stages: stages}, nil
}

func (p *parser) parseStage() (ast.Stage, error) {
	x, err := p.parseOr()
	if err != nil {
		return ast.Stage{}, err
	}
	stage := ast.Stage{X: x}
	if p.ts.At(token.Pipe) {
		captures, err := p.parseCaptureList()
		if err != nil {
			return ast.Stage{}, err
		}
		stage.Captures = captures
	}
	return stage, nil
}

// parseCaptureList parses `|cap what [as name], ...|`.
func (p *parser) parseCaptureList() ([]ast.Capture, error) {
	p.ts.Next() // |
	var captures []ast.Capture
	for {
		capTok, err := p.expect(token.Cap)
		if err != nil {
			return nil, err
		}
		what, err := p.expect(token.Ident)
		if err != nil {
			return nil, err
		}
		capture := ast.Capture{Span: capTok.Span}
		switch what.Text {
		case "stderr":
			capture.Kind = ast.CaptureStderr
		case "exit_code":
			capture.Kind = ast.CaptureExitCode
		default:
			return nil, p.errorf(what.Pos(), "cannot capture %q, only stderr and exit_code", what.Text)
		}
		if _, ok := p.ts.Accept(token.As); ok {
			name, err := p.expect(token.Ident)
			if err != nil {
				return nil, err
			}
			capture.Name = name.Text
		}
		captures = append(captures, capture)

		if _, ok := p.ts.Accept(token.Comma); ok {
			if p.ts.At(token.Pipe) {
				break
			}
			continue
		}
		break
	}
	if _, err := p.expect(token.Pipe); err != nil {
		return nil, err
	}
	return captures, nil
}

// --- Type annotations ---

func (p *parser) parseTypeExpr() (*ast.TypeExpr, error) {
	t := p.ts.Peek()
	switch t.Kind {
	case token.Mut:
		p.ts.Next()
		inner, err := p.parseTypeExpr()
		if err != nil {
			return nil, err
		}
		if inner.Kind == ast.TypeName {
			return nil, p.errorf(t.Pos(), "mut applies only to array and record types")
		}
		inner.Mut = true
		return inner, nil

	case token.LBracket:
		p.ts.Next()
		elem, err := p.parseTypeExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RBracket); err != nil {
			return nil, err
		}
		return &ast.TypeExpr{Base: ast.Base{Loc: t.Span}, Kind: ast.TypeArray, Elem: elem}, nil

	case token.LBrace:
		p.ts.Next()
		var fields []ast.TypeField
		for !p.ts.At(token.RBrace) {
			if len(fields) > 0 {
				if _, err := p.expect(token.Comma); err != nil {
					return nil, err
				}
			}
			name, err := p.expect(token.Ident)
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(token.Colon); err != nil {
				return nil, err
			}
			ft, err := p.parseTypeExpr()
			if err != nil {
				return nil, err
			}
			fields = append(fields, ast.TypeField{Name: name.Text, Type: ft})
		}
		p.ts.Next() // }
		return &ast.TypeExpr{Base: ast.Base{Loc: t.Span}, Kind: ast.TypeRecord, Fields: fields}, nil

	case token.Ident:
		p.ts.Next()
		return &ast.TypeExpr{Base: ast.Base{Loc: t.Span}, Kind: ast.TypeName, Name: t.Text}, nil
	}
	return nil, p.errorf(t.Pos(), "expected type, found %s", describe(t))
}
