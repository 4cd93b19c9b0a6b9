package parser

import "github.com/nashlang/nash/core/token"

// Backtrackable is a token cursor with checkpoint/rewind. PeekN looks a
// fixed number of tokens ahead without moving the cursor. A checkpoint
// probe is not bounded: the caller may consume any number of tokens before
// it commits or rewinds.
type Backtrackable struct {
	tokens []token.Token
	pos    int
}

// Checkpoint marks a cursor position for later rewind.
type Checkpoint struct {
	pos int
}

// NewBacktrackable wraps a token stream. The stream must end with EOF.
func NewBacktrackable(tokens []token.Token) *Backtrackable {
	return &Backtrackable{tokens: tokens}
}

// Checkpoint records the current position.
func (b *Backtrackable) Checkpoint() Checkpoint {
	return Checkpoint{pos: b.pos}
}

// Rewind returns the cursor to a previously recorded checkpoint.
func (b *Backtrackable) Rewind(c Checkpoint) {
	b.pos = c.pos
}

// Peek returns the current token without consuming it. At the end of the
// stream it keeps returning the EOF token.
func (b *Backtrackable) Peek() token.Token {
	if b.pos >= len(b.tokens) {
		return b.tokens[len(b.tokens)-1]
	}
	return b.tokens[b.pos]
}

// PeekN looks n tokens ahead (PeekN(0) == Peek).
func (b *Backtrackable) PeekN(n int) token.Token {
	if b.pos+n >= len(b.tokens) {
		return b.tokens[len(b.tokens)-1]
	}
	return b.tokens[b.pos+n]
}

// Next consumes and returns the current token.
func (b *Backtrackable) Next() token.Token {
	t := b.Peek()
	if b.pos < len(b.tokens) {
		b.pos++
	}
	return t
}

// Accept consumes the current token when it has the given kind.
func (b *Backtrackable) Accept(kind token.Kind) (token.Token, bool) {
	if b.Peek().Kind == kind {
		return b.Next(), true
	}
	return token.Token{}, false
}

// At reports whether the current token has the given kind.
func (b *Backtrackable) At(kind token.Kind) bool {
	return b.Peek().Kind == kind
}
