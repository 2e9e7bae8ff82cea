package ast

// Stmt is the closed set of statement kinds the control-flow lowerer
// handles. The marker method keeps the variant set closed so lowering can
// switch exhaustively.
type Stmt interface {
	Node
	isStmt()
}

func (*Block) isStmt()        {}
func (*IfStmt) isStmt()       {}
func (*WhileStmt) isStmt()    {}
func (*ForStmt) isStmt()      {}
func (*BreakStmt) isStmt()    {}
func (*ContinueStmt) isStmt() {}
func (*ReturnStmt) isStmt()   {}
func (*Placeholder) isStmt()  {}
func (*VarDeclStmt) isStmt()  {}
func (*ExprStmt) isStmt()     {}

// Block is a brace-delimited statement list opening a lexical scope.
type Block struct {
	Pos   Position
	Stmts []Stmt
}

type IfStmt struct {
	Pos  Position
	Cond Expr
	Then *Block
	Else *Block // may be nil
}

type WhileStmt struct {
	Pos  Position
	Cond Expr
	Body *Block
}

// ForStmt: the init statement's scope survives the whole loop.
type ForStmt struct {
	Pos  Position
	Init Stmt // may be nil; VarDeclStmt or ExprStmt
	Cond Expr // may be nil, meaning true
	Post Stmt // may be nil; ExprStmt
	Body *Block
}

type BreakStmt struct {
	Pos Position
}

type ContinueStmt struct {
	Pos Position
}

type ReturnStmt struct {
	Pos   Position
	Value Expr // may be nil
	// Function is the enclosing function, set by the binder; needed to
	// locate the return variables the value is stored into.
	Function *FunctionDefinition
}

// Placeholder is the `_;` statement inside a modifier body marking where the
// wrapped code is spliced in.
type Placeholder struct {
	Pos Position
}

type VarDeclStmt struct {
	Pos   Position
	Decl  *VariableDeclaration
	Value Expr // may be nil, meaning zero
}

type ExprStmt struct {
	Pos Position
	X   Expr
}
