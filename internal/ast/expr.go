package ast

import (
	"github.com/holiman/uint256"

	"ember/internal/types"
)

// Expr is the closed set of expression kinds. Types are annotated by the
// binder; the code generator reads them and never re-infers.
type Expr interface {
	Node
	isExpr()
	// ExprType is the type-checked type of the expression's value.
	ExprType() types.Type
}

func (*Literal) isExpr()    {}
func (*Ident) isExpr()      {}
func (*MagicExpr) isExpr()  {}
func (*UnaryExpr) isExpr()  {}
func (*BinaryExpr) isExpr() {}
func (*AssignExpr) isExpr() {}
func (*CallExpr) isExpr()   {}

func (e *Literal) ExprType() types.Type    { return e.Type }
func (e *Ident) ExprType() types.Type      { return e.Type }
func (e *MagicExpr) ExprType() types.Type  { return e.Type }
func (e *UnaryExpr) ExprType() types.Type  { return e.Type }
func (e *BinaryExpr) ExprType() types.Type { return e.Type }
func (e *AssignExpr) ExprType() types.Type { return e.Type }
func (e *CallExpr) ExprType() types.Type   { return e.Type }

// Literal is an integer or boolean constant, already folded to a word.
type Literal struct {
	Pos   Position
	Value *uint256.Int
	Type  types.Type
}

// Ident resolves to either a local variable/parameter or a state variable;
// the binder fills exactly one of Local and State.
type Ident struct {
	Pos   Position
	Name  string
	Local *VariableDeclaration
	State *StateVariable
	Type  types.Type
}

// MagicKind enumerates the transaction-context builtins.
type MagicKind int

const (
	MagicSender MagicKind = iota // msg.sender
	MagicValue                   // msg.value
)

type MagicExpr struct {
	Pos  Position
	Kind MagicKind
	Type types.Type
}

type UnaryExpr struct {
	Pos  Position
	Op   string // "!" or "-"
	X    Expr
	Type types.Type
}

type BinaryExpr struct {
	Pos  Position
	Op   string // arithmetic, comparison, "&&", "||"
	X    Expr
	Y    Expr
	Type types.Type
}

// AssignExpr stores into a local or state variable and yields the stored
// value.
type AssignExpr struct {
	Pos    Position
	Target *Ident
	Value  Expr
	Type   types.Type
}

// CallExpr is a direct call to a function of the same hierarchy. The callee
// is resolved by the binder.
type CallExpr struct {
	Pos    Position
	Name   string
	Args   []Expr
	Callee *FunctionDefinition
	Type   types.Type
}
