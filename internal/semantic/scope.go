package semantic

import (
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
	"github.com/holiman/uint256"

	"ember/grammar"
	"ember/internal/ast"
	"ember/internal/errors"
	"ember/internal/types"
)

// scope is the binding state for one function, modifier or initializer
// body: a stack of lexical frames plus the flow-control context needed to
// reject break/continue/placeholder misuse.
type scope struct {
	b         *Binder
	contract  *ast.Contract
	fn        *ast.FunctionDefinition
	mod       *ast.ModifierDefinition
	locals    []map[string]*ast.VariableDeclaration
	loopDepth int
}

func (b *Binder) newScope(c *ast.Contract, fn *ast.FunctionDefinition, mod *ast.ModifierDefinition) *scope {
	return &scope{
		b:        b,
		contract: c,
		fn:       fn,
		mod:      mod,
		locals:   []map[string]*ast.VariableDeclaration{{}},
	}
}

func (s *scope) push() { s.locals = append(s.locals, map[string]*ast.VariableDeclaration{}) }
func (s *scope) pop()  { s.locals = s.locals[:len(s.locals)-1] }

func (s *scope) declareAll(decls []*ast.VariableDeclaration) {
	for _, d := range decls {
		s.locals[len(s.locals)-1][d.Name] = d
	}
}

func (s *scope) declare(p lexer.Position, d *ast.VariableDeclaration) {
	if s.lookupLocal(d.Name) != nil {
		s.b.errorf(p, errors.ErrorDuplicateName, "redeclaration of %q", d.Name)
		return
	}
	s.locals[len(s.locals)-1][d.Name] = d
}

func (s *scope) lookupLocal(name string) *ast.VariableDeclaration {
	for i := len(s.locals) - 1; i >= 0; i-- {
		if d, ok := s.locals[i][name]; ok {
			return d
		}
	}
	return nil
}

func (s *scope) bindBlock(g *grammar.BlockStmt) *ast.Block {
	s.push()
	defer s.pop()
	block := &ast.Block{Pos: pos(g.Pos)}
	for _, stmt := range g.Stmts {
		if bound := s.bindStmt(stmt); bound != nil {
			block.Stmts = append(block.Stmts, bound)
		}
	}
	return block
}

func (s *scope) bindStmt(g *grammar.Stmt) ast.Stmt {
	switch {
	case g.Block != nil:
		return s.bindBlock(g.Block)

	case g.If != nil:
		stmt := &ast.IfStmt{Pos: pos(g.If.Pos), Cond: s.bindCond(g.If.Cond)}
		stmt.Then = s.bindBlock(g.If.Then)
		if g.If.Else != nil {
			stmt.Else = s.bindBlock(g.If.Else)
		}
		return stmt

	case g.While != nil:
		stmt := &ast.WhileStmt{Pos: pos(g.While.Pos), Cond: s.bindCond(g.While.Cond)}
		s.loopDepth++
		stmt.Body = s.bindBlock(g.While.Body)
		s.loopDepth--
		return stmt

	case g.For != nil:
		return s.bindFor(g.For)

	case g.Break != nil:
		if s.loopDepth == 0 {
			s.b.errorf(g.Break.Pos, errors.ErrorBreakOutsideLoop, "break outside of a loop")
			return nil
		}
		return &ast.BreakStmt{Pos: pos(g.Break.Pos)}

	case g.Continue != nil:
		if s.loopDepth == 0 {
			s.b.errorf(g.Continue.Pos, errors.ErrorContinueOutsideLoop, "continue outside of a loop")
			return nil
		}
		return &ast.ContinueStmt{Pos: pos(g.Continue.Pos)}

	case g.Return != nil:
		return s.bindReturn(g.Return)

	case g.Placeholder != nil:
		if s.mod == nil {
			s.b.errorf(g.Placeholder.Pos, errors.ErrorPlaceholderOutsideBody, "`_;` is only valid inside a modifier body")
			return nil
		}
		return &ast.Placeholder{Pos: pos(g.Placeholder.Pos)}

	case g.VarDecl != nil:
		return s.bindVarDecl(g.VarDecl.Pos, g.VarDecl.Type, g.VarDecl.Name, g.VarDecl.Value)

	case g.Expr != nil:
		return &ast.ExprStmt{Pos: pos(g.Expr.Pos), X: s.bindExpr(g.Expr.Expr, nil)}
	}
	return nil
}

func (s *scope) bindFor(g *grammar.ForStmt) ast.Stmt {
	// The init declaration's scope survives the whole loop.
	s.push()
	defer s.pop()

	stmt := &ast.ForStmt{Pos: pos(g.Pos)}
	if g.Init != nil {
		switch {
		case g.Init.VarDecl != nil:
			vd := g.Init.VarDecl
			stmt.Init = s.bindVarDecl(vd.Pos, vd.Type, vd.Name, vd.Value)
		case g.Init.Expr != nil:
			stmt.Init = &ast.ExprStmt{Pos: pos(g.Pos), X: s.bindExpr(g.Init.Expr, nil)}
		}
	}
	if g.Cond != nil {
		stmt.Cond = s.bindCond(g.Cond)
	}
	if g.Post != nil {
		stmt.Post = &ast.ExprStmt{Pos: pos(g.Pos), X: s.bindExpr(g.Post, nil)}
	}
	s.loopDepth++
	stmt.Body = s.bindBlock(g.Body)
	s.loopDepth--
	return stmt
}

func (s *scope) bindReturn(g *grammar.ReturnStmt) ast.Stmt {
	stmt := &ast.ReturnStmt{Pos: pos(g.Pos), Function: s.fn}
	if s.mod != nil {
		if g.Value != nil {
			s.b.errorf(g.Pos, errors.ErrorReturnValueInModifier, "return inside a modifier cannot carry a value")
		}
		return stmt
	}
	if g.Value == nil {
		return stmt
	}
	if s.fn == nil || len(s.fn.Returns) != 1 {
		s.b.errorf(g.Pos, errors.ErrorMissingReturnValue, "return value requires exactly one declared return variable")
		return stmt
	}
	stmt.Value = s.bindExpr(g.Value, s.fn.Returns[0].Type)
	s.requireType(g.Pos, stmt.Value, s.fn.Returns[0].Type)
	return stmt
}

func (s *scope) bindVarDecl(p lexer.Position, ref *grammar.TypeRef, name string, value *grammar.Expr) ast.Stmt {
	decl := &ast.VariableDeclaration{Pos: pos(p), Name: name, Type: s.b.lookupType(ref)}
	stmt := &ast.VarDeclStmt{Pos: pos(p), Decl: decl}
	if value != nil {
		stmt.Value = s.bindExpr(value, decl.Type)
		s.requireType(p, stmt.Value, decl.Type)
	}
	s.declare(p, decl)
	return stmt
}

func (s *scope) bindCond(g *grammar.Expr) ast.Expr {
	e := s.bindExpr(g, types.BoolT)
	s.requireType(g.Pos, e, types.BoolT)
	return e
}

func (s *scope) bindExpr(g *grammar.Expr, expected types.Type) ast.Expr {
	return s.bindAssign(g.Assign, expected)
}

func (s *scope) bindAssign(g *grammar.AssignExpr, expected types.Type) ast.Expr {
	if g.Value == nil {
		return s.bindOr(g.Or, expected)
	}
	name, ok := bareIdent(g.Or)
	if !ok {
		s.b.errorf(g.Pos, errors.ErrorNotAssignable, "left side of assignment must be a variable")
		return s.errExpr(g.Pos)
	}
	target := s.bindIdent(g.Pos, name)
	value := s.bindAssign(g.Value, target.Type)
	s.requireType(g.Pos, value, target.Type)
	return &ast.AssignExpr{Pos: pos(g.Pos), Target: target, Value: value, Type: target.Type}
}

func (s *scope) bindOr(g *grammar.OrExpr, expected types.Type) ast.Expr {
	if len(g.Rest) == 0 {
		return s.bindAnd(g.Left, expected)
	}
	left := s.bindAnd(g.Left, types.BoolT)
	s.requireType(g.Pos, left, types.BoolT)
	for _, r := range g.Rest {
		right := s.bindAnd(r, types.BoolT)
		s.requireType(r.Pos, right, types.BoolT)
		left = &ast.BinaryExpr{Pos: left.NodePos(), Op: "||", X: left, Y: right, Type: types.BoolT}
	}
	return left
}

func (s *scope) bindAnd(g *grammar.AndExpr, expected types.Type) ast.Expr {
	if len(g.Rest) == 0 {
		return s.bindCmp(g.Left, expected)
	}
	left := s.bindCmp(g.Left, types.BoolT)
	s.requireType(g.Pos, left, types.BoolT)
	for _, r := range g.Rest {
		right := s.bindCmp(r, types.BoolT)
		s.requireType(r.Pos, right, types.BoolT)
		left = &ast.BinaryExpr{Pos: left.NodePos(), Op: "&&", X: left, Y: right, Type: types.BoolT}
	}
	return left
}

func (s *scope) bindCmp(g *grammar.CmpExpr, expected types.Type) ast.Expr {
	if len(g.Ops) == 0 {
		return s.bindAdd(g.Left, expected)
	}
	left := s.bindAdd(g.Left, nil)
	for _, op := range g.Ops {
		right := s.bindAdd(op.Right, left.ExprType())
		s.requireType(g.Pos, right, left.ExprType())
		left = &ast.BinaryExpr{Pos: left.NodePos(), Op: op.Op, X: left, Y: right, Type: types.BoolT}
	}
	return left
}

func (s *scope) bindAdd(g *grammar.AddExpr, expected types.Type) ast.Expr {
	left := s.bindMul(g.Left, expected)
	for _, op := range g.Ops {
		right := s.bindMul(op.Right, left.ExprType())
		s.requireUint(g.Pos, left)
		s.requireType(g.Pos, right, left.ExprType())
		left = &ast.BinaryExpr{Pos: left.NodePos(), Op: op.Op, X: left, Y: right, Type: left.ExprType()}
	}
	return left
}

func (s *scope) bindMul(g *grammar.MulExpr, expected types.Type) ast.Expr {
	left := s.bindUnary(g.Left, expected)
	for _, op := range g.Ops {
		right := s.bindUnary(op.Right, left.ExprType())
		s.requireUint(g.Pos, left)
		s.requireType(g.Pos, right, left.ExprType())
		left = &ast.BinaryExpr{Pos: left.NodePos(), Op: op.Op, X: left, Y: right, Type: left.ExprType()}
	}
	return left
}

func (s *scope) bindUnary(g *grammar.UnaryExpr, expected types.Type) ast.Expr {
	if g.Op == nil {
		return s.bindPrimary(g.Value, expected)
	}
	switch *g.Op {
	case "!":
		x := s.bindPrimary(g.Value, types.BoolT)
		s.requireType(g.Pos, x, types.BoolT)
		return &ast.UnaryExpr{Pos: pos(g.Pos), Op: "!", X: x, Type: types.BoolT}
	default: // "-"
		x := s.bindPrimary(g.Value, expected)
		s.requireUint(g.Pos, x)
		return &ast.UnaryExpr{Pos: pos(g.Pos), Op: "-", X: x, Type: x.ExprType()}
	}
}

func (s *scope) bindPrimary(g *grammar.PrimaryExpr, expected types.Type) ast.Expr {
	switch {
	case g.Msg != nil:
		kind, t := ast.MagicSender, types.Type(types.AddrT)
		if g.Msg.Field == "value" {
			kind, t = ast.MagicValue, types.U256
		}
		return &ast.MagicExpr{Pos: pos(g.Pos), Kind: kind, Type: t}

	case g.Bool != nil:
		v := uint256.NewInt(0)
		if *g.Bool == "true" {
			v = uint256.NewInt(1)
		}
		return &ast.Literal{Pos: pos(g.Pos), Value: v, Type: types.BoolT}

	case g.Number != nil:
		return s.bindNumber(g.Pos, *g.Number, expected)

	case g.Call != nil:
		return s.bindCall(g.Call)

	case g.Ident != nil:
		return s.bindIdent(g.Pos, *g.Ident)

	case g.Paren != nil:
		return s.bindExpr(g.Paren, expected)
	}
	return s.errExpr(g.Pos)
}

func (s *scope) bindNumber(p lexer.Position, text string, expected types.Type) ast.Expr {
	v := new(uint256.Int)
	var err error
	if strings.HasPrefix(text, "0x") {
		v, err = uint256.FromHex(text)
	} else {
		err = v.SetFromDecimal(text)
	}
	if err != nil {
		s.b.errorf(p, errors.ErrorTypeMismatch, "invalid integer literal %q", text)
		return s.errExpr(p)
	}
	t := types.Type(types.U256)
	if u, ok := expected.(*types.Uint); ok {
		if v.BitLen() > u.Bits {
			s.b.errorf(p, errors.ErrorTypeMismatch, "literal %s does not fit in %s", text, u)
		}
		t = u
	}
	return &ast.Literal{Pos: pos(p), Value: v, Type: t}
}

func (s *scope) bindCall(g *grammar.CallPrim) ast.Expr {
	var callee *ast.FunctionDefinition
	for _, base := range s.contract.Linearized {
		if f := findFunction(base, g.Name); f != nil {
			callee = f
			break
		}
	}
	if callee == nil {
		s.b.errorf(g.Pos, errors.ErrorUndefinedFunction, "undefined function %q", g.Name)
		return s.errExpr(g.Pos)
	}
	if len(g.Args) != len(callee.Params) {
		s.b.errorf(g.Pos, errors.ErrorWrongArgCount, "%q expects %d argument(s), got %d",
			g.Name, len(callee.Params), len(g.Args))
		return s.errExpr(g.Pos)
	}
	call := &ast.CallExpr{Pos: pos(g.Pos), Name: g.Name, Callee: callee}
	for i, arg := range g.Args {
		bound := s.bindExpr(arg, callee.Params[i].Type)
		s.requireType(g.Pos, bound, callee.Params[i].Type)
		call.Args = append(call.Args, bound)
	}
	if len(callee.Returns) == 1 {
		call.Type = callee.Returns[0].Type
	}
	return call
}

func (s *scope) bindIdent(p lexer.Position, name string) *ast.Ident {
	if local := s.lookupLocal(name); local != nil {
		return &ast.Ident{Pos: pos(p), Name: name, Local: local, Type: local.Type}
	}
	if s.contract != nil {
		linearized := s.contract.Linearized
		if linearized == nil {
			linearized = []*ast.Contract{s.contract}
		}
		for _, base := range linearized {
			if sv := findStateVar(base, name); sv != nil {
				return &ast.Ident{Pos: pos(p), Name: name, State: sv, Type: sv.Type}
			}
		}
	}
	s.b.errorf(p, errors.ErrorUndefinedIdentifier, "undefined identifier %q", name)
	return &ast.Ident{Pos: pos(p), Name: name, Type: types.U256}
}

func (s *scope) requireType(p lexer.Position, e ast.Expr, want types.Type) {
	if e == nil || want == nil {
		return
	}
	if !types.Same(e.ExprType(), want) {
		s.b.errorf(p, errors.ErrorTypeMismatch, "expected %s, got %s", want, typeName(e.ExprType()))
	}
}

func (s *scope) requireUint(p lexer.Position, e ast.Expr) {
	if e == nil {
		return
	}
	if _, ok := e.ExprType().(*types.Uint); !ok {
		s.b.errorf(p, errors.ErrorTypeMismatch, "expected an unsigned integer, got %s", typeName(e.ExprType()))
	}
}

func (s *scope) errExpr(p lexer.Position) ast.Expr {
	return &ast.Literal{Pos: pos(p), Value: uint256.NewInt(0), Type: types.U256}
}

func typeName(t types.Type) string {
	if t == nil {
		return "no value"
	}
	return t.String()
}

// bareIdent reports whether the expression chain is a single unadorned
// identifier, the only assignable form.
func bareIdent(g *grammar.OrExpr) (string, bool) {
	if len(g.Rest) != 0 || len(g.Left.Rest) != 0 {
		return "", false
	}
	cmp := g.Left.Left
	if len(cmp.Ops) != 0 || len(cmp.Left.Ops) != 0 || len(cmp.Left.Left.Ops) != 0 {
		return "", false
	}
	unary := cmp.Left.Left.Left
	if unary.Op != nil || unary.Value.Ident == nil {
		return "", false
	}
	return *unary.Value.Ident, true
}
