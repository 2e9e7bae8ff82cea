package codegen

import (
	"ember/internal/ast"
	"ember/internal/errors"
	"ember/internal/evm"
)

func (c *Compiler) compileBlock(b *ast.Block) {
	c.enterScope(b)
	for _, stmt := range b.Stmts {
		c.compileStmt(stmt)
	}
	c.exitScope()
}

func (c *Compiler) compileStmt(s ast.Stmt) {
	switch s := s.(type) {
	case *ast.Block:
		c.compileBlock(s)
	case *ast.IfStmt:
		c.compileIf(s)
	case *ast.WhileStmt:
		c.compileWhile(s)
	case *ast.ForStmt:
		c.compileFor(s)
	case *ast.BreakStmt:
		loop := c.currentLoop()
		dropped := c.unwindLoop(loop)
		c.asm.Jump(loop.breakTag)
		c.asm.AdjustStackHeight(dropped)
	case *ast.ContinueStmt:
		loop := c.currentLoop()
		dropped := c.unwindLoop(loop)
		c.asm.Jump(loop.continueTag)
		c.asm.AdjustStackHeight(dropped)
	case *ast.ReturnStmt:
		c.compileReturn(s)
	case *ast.Placeholder:
		// splice the next modifier, or the function body at the innermost
		// depth
		c.fn.depth++
		c.appendModifierOrFunctionCode()
		c.fn.depth--
	case *ast.VarDeclStmt:
		if s.Value != nil {
			c.compileExpr(s.Value)
		} else {
			c.asm.PushInt(0)
		}
		c.declareLocal(s.Decl)
	case *ast.ExprStmt:
		c.compileExpr(s.X)
		for i := 0; i < exprSlots(s.X); i++ {
			c.asm.Append(evm.POP)
		}
	default:
		errors.Internalf("unhandled statement %T", s)
	}
}

func (c *Compiler) compileIf(s *ast.IfStmt) {
	c.compileExpr(s.Cond)
	end := c.asm.NewTag()
	if s.Else == nil {
		c.asm.JumpIfFalse(end)
		c.compileBlock(s.Then)
		c.asm.Define(end)
		return
	}
	elseTag := c.asm.NewTag()
	c.asm.JumpIfFalse(elseTag)
	c.compileBlock(s.Then)
	c.asm.Jump(end)
	c.asm.Define(elseTag)
	c.compileBlock(s.Else)
	c.asm.Define(end)
}

func (c *Compiler) compileWhile(s *ast.WhileStmt) {
	condTag := c.asm.NewTag()
	end := c.asm.NewTag()
	c.asm.Define(condTag)
	c.compileExpr(s.Cond)
	c.asm.JumpIfFalse(end)
	c.pushLoop(end, condTag)
	c.compileBlock(s.Body)
	c.popLoop()
	c.asm.Jump(condTag)
	c.asm.Define(end)
}

// compileFor opens a scope around the whole loop so an init declaration
// survives every iteration; continue jumps to the post statement, not the
// condition.
func (c *Compiler) compileFor(s *ast.ForStmt) {
	c.enterScope(s)
	if s.Init != nil {
		c.compileStmt(s.Init)
	}
	condTag := c.asm.NewTag()
	postTag := c.asm.NewTag()
	end := c.asm.NewTag()
	c.asm.Define(condTag)
	if s.Cond != nil {
		c.compileExpr(s.Cond)
		c.asm.JumpIfFalse(end)
	}
	c.pushLoop(end, postTag)
	c.compileBlock(s.Body)
	c.popLoop()
	c.asm.Define(postTag)
	if s.Post != nil {
		c.compileStmt(s.Post)
	}
	c.asm.Jump(condTag)
	c.asm.Define(end)
	c.exitScope()
}

// compileReturn stores the value, if any, into the return variable, unwinds
// the stack to the current splice depth's return target and jumps there.
func (c *Compiler) compileReturn(s *ast.ReturnStmt) {
	f := c.fn
	errors.Assert(len(f.returns) > 0, "return outside a function frame")
	target := f.returns[len(f.returns)-1]

	if s.Value != nil {
		errors.Assert(s.Function != nil && len(s.Function.Returns) == 1,
			"return value without a single return variable")
		c.compileExpr(s.Value)
		c.storeLocal(s.Function.Returns[0])
	}

	drop := c.asm.StackHeight() - target.height
	errors.Assert(drop >= 0, "stack height mismatch at return: height %d below target %d",
		c.asm.StackHeight(), target.height)
	for i := 0; i < drop; i++ {
		c.asm.Append(evm.POP)
	}
	c.asm.Jump(target.tag)
	c.asm.AdjustStackHeight(drop)
}
