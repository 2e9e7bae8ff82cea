package grammar

import "github.com/alecthomas/participle/v2/lexer"

type SourceUnit struct {
	Contracts []*ContractDecl `@@*`
}

type ContractDecl struct {
	Pos   lexer.Position
	Kind  string          `@("contract" | "library")`
	Name  string          `@Ident`
	Bases []*BaseSpec     `( "is" @@ ( "," @@ )* )?`
	Items []*ContractItem `"{" @@* "}"`
}

type BaseSpec struct {
	Pos  lexer.Position
	Name string    `@Ident`
	Args *CallArgs `@@?`
}

type CallArgs struct {
	Args []*Expr `"(" ( @@ ( "," @@ )* )? ")"`
}

type ContractItem struct {
	Constructor *ConstructorDecl `  @@`
	Modifier    *ModifierDecl    `| @@`
	Fallback    *FallbackDecl    `| @@`
	Function    *FunctionDecl    `| @@`
	StateVar    *StateVarDecl    `| @@`
}

type StateVarDecl struct {
	Pos   lexer.Position
	Type  *TypeRef `@@`
	Name  string   `@Ident`
	Value *Expr    `( "=" @@ )? ";"`
}

type TypeRef struct {
	Pos  lexer.Position
	Name string `@("uint256" | "uint128" | "uint64" | "uint32" | "uint8" | "bool" | "address")`
}

type ConstructorDecl struct {
	Pos         lexer.Position
	Kw          string            `@"constructor"`
	Params      []*ParamDecl      `"(" ( @@ ( "," @@ )* )? ")"`
	Invocations []*InvocationDecl `@@*`
	Body        *BlockStmt        `@@`
}

type ModifierDecl struct {
	Pos    lexer.Position
	Name   string       `"modifier" @Ident`
	Params []*ParamDecl `"(" ( @@ ( "," @@ )* )? ")"`
	Body   *BlockStmt   `@@`
}

type FallbackDecl struct {
	Pos     lexer.Position
	Kw      string     `@"fallback" "(" ")"`
	Payable bool       `@"payable"?`
	Body    *BlockStmt `@@`
}

// FunctionDecl: the returns clause precedes modifier invocations so that
// `returns` never has to be disambiguated from a modifier name.
type FunctionDecl struct {
	Pos         lexer.Position
	Name        string            `"function" @Ident`
	Params      []*ParamDecl      `"(" ( @@ ( "," @@ )* )? ")"`
	Visibility  string            `@("public" | "internal")?`
	Payable     bool              `@"payable"?`
	Returns     []*ParamDecl      `( "returns" "(" @@ ( "," @@ )* ")" )?`
	Invocations []*InvocationDecl `@@*`
	Body        *BlockStmt        `@@`
}

type ParamDecl struct {
	Pos  lexer.Position
	Type *TypeRef `@@`
	Name string   `@Ident`
}

type InvocationDecl struct {
	Pos  lexer.Position
	Name string    `@Ident`
	Args *CallArgs `@@?`
}

type Stmt struct {
	Block       *BlockStmt       `  @@`
	If          *IfStmt          `| @@`
	While       *WhileStmt       `| @@`
	For         *ForStmt         `| @@`
	Break       *BreakStmt       `| @@`
	Continue    *ContinueStmt    `| @@`
	Return      *ReturnStmt      `| @@`
	Placeholder *PlaceholderStmt `| @@`
	VarDecl     *VarDeclStmt     `| @@`
	Expr        *ExprStmt        `| @@`
}

type BlockStmt struct {
	Pos   lexer.Position
	Stmts []*Stmt `"{" @@* "}"`
}

type IfStmt struct {
	Pos  lexer.Position
	Cond *Expr      `"if" "(" @@ ")"`
	Then *BlockStmt `@@`
	Else *BlockStmt `( "else" @@ )?`
}

type WhileStmt struct {
	Pos  lexer.Position
	Cond *Expr      `"while" "(" @@ ")"`
	Body *BlockStmt `@@`
}

type ForStmt struct {
	Pos  lexer.Position
	Kw   string     `@"for" "("`
	Init *ForInit   `@@? ";"`
	Cond *Expr      `@@? ";"`
	Post *Expr      `@@? ")"`
	Body *BlockStmt `@@`
}

type ForInit struct {
	VarDecl *VarDeclInit `  @@`
	Expr    *Expr        `| @@`
}

type VarDeclInit struct {
	Pos   lexer.Position
	Type  *TypeRef `@@`
	Name  string   `@Ident`
	Value *Expr    `( "=" @@ )?`
}

type BreakStmt struct {
	Pos lexer.Position
	Kw  string `@"break" ";"`
}

type ContinueStmt struct {
	Pos lexer.Position
	Kw  string `@"continue" ";"`
}

type ReturnStmt struct {
	Pos   lexer.Position
	Kw    string `@"return"`
	Value *Expr  `@@? ";"`
}

type PlaceholderStmt struct {
	Pos lexer.Position
	Kw  string `@"_" ";"`
}

type VarDeclStmt struct {
	Pos   lexer.Position
	Type  *TypeRef `@@`
	Name  string   `@Ident`
	Value *Expr    `( "=" @@ )? ";"`
}

type ExprStmt struct {
	Pos  lexer.Position
	Expr *Expr `@@ ";"`
}

type Expr struct {
	Pos    lexer.Position
	Assign *AssignExpr `@@`
}

// AssignExpr is right-associative; the binder checks the left side is an
// assignable identifier when a value is present.
type AssignExpr struct {
	Pos   lexer.Position
	Or    *OrExpr     `@@`
	Value *AssignExpr `( "=" @@ )?`
}

type OrExpr struct {
	Pos  lexer.Position
	Left *AndExpr   `@@`
	Rest []*AndExpr `( "||" @@ )*`
}

type AndExpr struct {
	Pos  lexer.Position
	Left *CmpExpr   `@@`
	Rest []*CmpExpr `( "&&" @@ )*`
}

type CmpExpr struct {
	Pos  lexer.Position
	Left *AddExpr `@@`
	Ops  []*CmpOp `@@*`
}

type CmpOp struct {
	Op    string   `@("==" | "!=" | "<=" | ">=" | "<" | ">")`
	Right *AddExpr `@@`
}

type AddExpr struct {
	Pos  lexer.Position
	Left *MulExpr `@@`
	Ops  []*AddOp `@@*`
}

type AddOp struct {
	Op    string   `@("+" | "-")`
	Right *MulExpr `@@`
}

type MulExpr struct {
	Pos  lexer.Position
	Left *UnaryExpr `@@`
	Ops  []*MulOp   `@@*`
}

type MulOp struct {
	Op    string     `@("*" | "/" | "%")`
	Right *UnaryExpr `@@`
}

type UnaryExpr struct {
	Pos   lexer.Position
	Op    *string      `@("!" | "-")?`
	Value *PrimaryExpr `@@`
}

type PrimaryExpr struct {
	Pos    lexer.Position
	Msg    *MsgExpr  `  @@`
	Bool   *string   `| @("true" | "false")`
	Number *string   `| @Integer`
	Call   *CallPrim `| @@`
	Ident  *string   `| @Ident`
	Paren  *Expr     `| "(" @@ ")"`
}

type MsgExpr struct {
	Pos   lexer.Position
	Field string `"msg" "." @("sender" | "value")`
}

type CallPrim struct {
	Pos  lexer.Position
	Name string  `@Ident`
	Args []*Expr `"(" ( @@ ( "," @@ )* )? ")"`
}
