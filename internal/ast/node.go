package ast

import "fmt"

// Position is a location in an Ember source file.
type Position struct {
	Filename string
	Line     int
	Column   int
}

func (p Position) String() string {
	return fmt.Sprintf("%s:%d:%d", p.Filename, p.Line, p.Column)
}

// Node is implemented by every AST node.
type Node interface {
	NodePos() Position
}

func (c *Contract) NodePos() Position             { return c.Pos }
func (i *InheritanceSpecifier) NodePos() Position { return i.Pos }
func (v *StateVariable) NodePos() Position        { return v.Pos }
func (f *FunctionDefinition) NodePos() Position   { return f.Pos }
func (m *ModifierDefinition) NodePos() Position   { return m.Pos }
func (m *ModifierInvocation) NodePos() Position   { return m.Pos }
func (v *VariableDeclaration) NodePos() Position  { return v.Pos }

func (b *Block) NodePos() Position        { return b.Pos }
func (s *IfStmt) NodePos() Position       { return s.Pos }
func (s *WhileStmt) NodePos() Position    { return s.Pos }
func (s *ForStmt) NodePos() Position      { return s.Pos }
func (s *BreakStmt) NodePos() Position    { return s.Pos }
func (s *ContinueStmt) NodePos() Position { return s.Pos }
func (s *ReturnStmt) NodePos() Position   { return s.Pos }
func (s *Placeholder) NodePos() Position  { return s.Pos }
func (s *VarDeclStmt) NodePos() Position  { return s.Pos }
func (s *ExprStmt) NodePos() Position     { return s.Pos }

func (e *Literal) NodePos() Position    { return e.Pos }
func (e *Ident) NodePos() Position      { return e.Pos }
func (e *MagicExpr) NodePos() Position  { return e.Pos }
func (e *UnaryExpr) NodePos() Position  { return e.Pos }
func (e *BinaryExpr) NodePos() Position { return e.Pos }
func (e *AssignExpr) NodePos() Position { return e.Pos }
func (e *CallExpr) NodePos() Position   { return e.Pos }
