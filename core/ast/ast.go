// Package ast defines the syntax tree produced by the parser and annotated
// by the post-processor.
//
// Nodes carry source spans for diagnostics. Fields named Slot or Ref are
// zero until the post-processor resolves them; the evaluator relies on them
// and never performs name lookup.
package ast

import (
	"github.com/nashlang/nash/core/token"
	"github.com/nashlang/nash/core/value"
)

// Node is implemented by every syntax tree node.
type Node interface {
	Span() token.Span
}

// Stmt is a statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is an expression node.
type Expr interface {
	Node
	exprNode()
}

// Base is embedded in every node and carries its source span.
type Base struct {
	Loc token.Span
}

func (b Base) Span() token.Span { return b.Loc }

// Program is the root of a parsed script.
type Program struct {
	Base
	Stmts []Stmt

	// FrameSize is the number of slots the root frame needs, set by the
	// post-processor.
	FrameSize int
	// Funcs collects the top-level function declarations in order.
	Funcs []*FuncDecl
}

// Mark records an explicit mut / !mut prefix on a container literal or
// record field.
type Mark int

const (
	MarkNone Mark = iota
	MarkMut
	MarkImmut
)

// --- Statements ---

// VarDecl is `var [mut] name [: type] [= init];`.
type VarDecl struct {
	Base
	BindingMut bool
	Name       string
	Type       *TypeExpr // nil when inferred
	Init       Expr      // nil for uninitialized declarations

	Slot int
}

// Assign is `target = value;` where target is an identifier, an index
// expression, or a member access.
type Assign struct {
	Base
	Target Expr
	Value  Expr
}

// If is a conditional statement; Else is nil, a *Block, or another *If.
type If struct {
	Base
	Cond Expr
	Then *Block
	Else Stmt
}

// While is `while cond { ... };`.
type While struct {
	Base
	Cond Expr
	Body *Block
}

// For is `for name in iterable { ... };`. The loop variable is immutable.
type For struct {
	Base
	Name     string
	Iterable Expr
	Body     *Block

	Slot int
}

// Return is `return [expr];`.
type Return struct {
	Base
	Value Expr // nil for bare return
}

// Break is `break;`.
type Break struct {
	Base
}

// Continue is `continue;`.
type Continue struct {
	Base
}

// Exit is `exit expr;`.
type Exit struct {
	Base
	Code Expr
}

// ExprStmt is an expression evaluated for its effects.
type ExprStmt struct {
	Base
	X Expr
}

// Block is `{ stmt* }`. Blocks open a lexical scope.
type Block struct {
	Base
	Stmts []Stmt
}

// Param is a declared function parameter.
type Param struct {
	Name string
	Type *TypeExpr
	Slot int
}

// FuncDecl is `func name(params): ret { ... }`. Top level only.
type FuncDecl struct {
	Base
	Name   string
	Params []Param
	Ret    *TypeExpr // nil means unit
	Body   *Block

	// Index into Program.Funcs, and the size of the call frame.
	Index     int
	FrameSize int
}

func (*VarDecl) stmtNode()  {}
func (*Assign) stmtNode()   {}
func (*If) stmtNode()       {}
func (*While) stmtNode()    {}
func (*For) stmtNode()      {}
func (*Return) stmtNode()   {}
func (*Break) stmtNode()    {}
func (*Continue) stmtNode() {}
func (*Exit) stmtNode()     {}
func (*ExprStmt) stmtNode() {}
func (*Block) stmtNode()    {}
func (*FuncDecl) stmtNode() {}

// --- Expressions ---

// IntLit is a decimal integer literal.
type IntLit struct {
	Base
	Value int64
}

// BoolLit is true or false.
type BoolLit struct {
	Base
	Value bool
}

// StrPart is a chunk of an interpolated string or command word: either
// literal text or an embedded expression.
type StrPart struct {
	Lit  string
	Expr Expr // nil for literal chunks
}

// StrLit is a string literal, possibly interpolated.
type StrLit struct {
	Base
	Parts []StrPart
}

// ArrayLit is `[e, ...]`, optionally prefixed with mut or !mut.
type ArrayLit struct {
	Base
	Mark  Mark
	Elems []Expr

	// EffectiveMut is the cascade-computed value mutability.
	EffectiveMut bool
	// ElemType is the inferred element type.
	ElemType value.Type
}

// RecField is one field of a record literal, with an optional per-field
// mutability override.
type RecField struct {
	Name  string
	Mark  Mark
	Value Expr
}

// RecordLit is `{ f: e, ... }`, optionally prefixed with mut or !mut.
type RecordLit struct {
	Base
	Mark   Mark
	Fields []RecField

	EffectiveMut bool
}

// Ident is a resolved name use.
type Ident struct {
	Base
	Name string

	// Ref is filled by the post-processor.
	Ref Ref
}

// RefKind says what an identifier resolved to.
type RefKind int

const (
	RefUnresolved RefKind = iota
	RefLocal              // slot in the current frame
	RefGlobal             // slot in the root frame
	RefFunc               // top-level function
)

// Ref is a resolved identifier target.
type Ref struct {
	Kind RefKind
	Slot int // frame slot for RefLocal / RefGlobal, Program.Funcs index for RefFunc
}

// Member is `x.name` on a record.
type Member struct {
	Base
	X    Expr
	Name string
}

// Index is `x[i]` on an array.
type Index struct {
	Base
	X Expr
	I Expr
}

// Call is `name(args)`. Functions are not first class; the callee is a
// top-level function or a built-in.
type Call struct {
	Base
	Name string
	Args []Expr

	// Func is the resolved function reference; Builtin is set instead when
	// the name resolved to a built-in.
	Func    Ref
	Builtin string
}

// MethodCall is `recv.name(args)` dispatched on the receiver's kind.
type MethodCall struct {
	Base
	Recv Expr
	Name string
	Args []Expr
}

// Unary is `-x` or `!x`.
type Unary struct {
	Base
	Op token.Kind
	X  Expr
}

// Binary is a binary operator application.
type Binary struct {
	Base
	Op   token.Kind
	L, R Expr
}

// CommandLit is a backtick literal, split into words. Each word is a
// sequence of chunks glued together; interpolated chunks become exactly one
// part of the word and are never re-split.
type CommandLit struct {
	Base
	Words [][]StrPart
}

// CaptureKind says what a pipeline capture records.
type CaptureKind int

const (
	CaptureStderr CaptureKind = iota
	CaptureExitCode
)

// Capture is one `cap what [as name]` annotation.
type Capture struct {
	Kind CaptureKind
	Name string // defaulted by the post-processor when empty
	Span token.Span

	Slot int
}

// Stage is one pipeline stage with its capture annotations.
type Stage struct {
	X        Expr
	Captures []Capture
}

// Exec is `exec stage => stage => ...`.
type Exec struct {
	Base
	Stages []Stage
}

func (*IntLit) exprNode()     {}
func (*BoolLit) exprNode()    {}
func (*StrLit) exprNode()     {}
func (*ArrayLit) exprNode()   {}
func (*RecordLit) exprNode()  {}
func (*Ident) exprNode()      {}
func (*Member) exprNode()     {}
func (*Index) exprNode()      {}
func (*Call) exprNode()       {}
func (*MethodCall) exprNode() {}
func (*Unary) exprNode()      {}
func (*Binary) exprNode()     {}
func (*CommandLit) exprNode() {}
func (*Exec) exprNode()       {}

// --- Type annotations ---

// TypeExpr is a parsed type annotation, resolved to a value.Type by the
// post-processor.
type TypeExpr struct {
	Base
	Resolved value.Type

	Kind   TypeExprKind
	Name   string       // for named base types
	Mut    bool         // mut prefix on container annotations
	Elem   *TypeExpr    // for arrays
	Fields []TypeField  // for records
}

// TypeField is one field of a record type annotation.
type TypeField struct {
	Name string
	Type *TypeExpr
}

// TypeExprKind discriminates type annotations.
type TypeExprKind int

const (
	TypeName TypeExprKind = iota
	TypeArray
	TypeRecord
)
