package codegen

import (
	"ember/internal/ast"
	"ember/internal/errors"
	"ember/internal/evm"
)

// compileExpr lowers an expression, leaving its value slots on top of the
// stack. Every expression produces exactly one slot except a call to a
// function with zero or multiple return variables.
func (c *Compiler) compileExpr(e ast.Expr) {
	switch e := e.(type) {
	case *ast.Literal:
		c.asm.Push(e.Value)

	case *ast.Ident:
		switch {
		case e.Local != nil:
			c.dupLocal(e.Local)
		case e.State != nil:
			c.asm.PushInt(c.stateSlot(e.State))
			c.asm.Append(evm.SLOAD)
		default:
			errors.Internalf("unresolved identifier %q reached lowering", e.Name)
		}

	case *ast.MagicExpr:
		switch e.Kind {
		case ast.MagicSender:
			c.asm.Append(evm.CALLER)
		case ast.MagicValue:
			c.asm.Append(evm.CALLVALUE)
		}

	case *ast.UnaryExpr:
		c.compileExpr(e.X)
		switch e.Op {
		case "!":
			c.asm.Append(evm.ISZERO)
		case "-":
			// two's-complement negation: 0 - x
			c.asm.PushInt(0)
			c.asm.Append(evm.SUB)
		default:
			errors.Internalf("unknown unary operator %q", e.Op)
		}

	case *ast.BinaryExpr:
		c.compileBinary(e)

	case *ast.AssignExpr:
		c.compileExpr(e.Value)
		c.asm.Append(evm.DUP1)
		c.storeIdent(e.Target)

	case *ast.CallExpr:
		c.compileCall(e)

	default:
		errors.Internalf("unhandled expression %T", e)
	}
}

// compileBinary lowers arithmetic, comparison and short-circuit operators.
// Operands are evaluated left to right; non-commutative opcodes take their
// first operand from the top of the stack, so a SWAP1 restores the order.
func (c *Compiler) compileBinary(e *ast.BinaryExpr) {
	switch e.Op {
	case "&&":
		end := c.asm.NewTag()
		c.compileExpr(e.X)
		c.asm.Append(evm.DUP1)
		c.asm.JumpIfFalse(end)
		c.asm.Append(evm.POP)
		c.compileExpr(e.Y)
		c.asm.Define(end)
		return
	case "||":
		end := c.asm.NewTag()
		c.compileExpr(e.X)
		c.asm.Append(evm.DUP1)
		c.asm.JumpIf(end)
		c.asm.Append(evm.POP)
		c.compileExpr(e.Y)
		c.asm.Define(end)
		return
	}

	c.compileExpr(e.X)
	c.compileExpr(e.Y)
	switch e.Op {
	case "+":
		c.asm.Append(evm.ADD)
	case "*":
		c.asm.Append(evm.MUL)
	case "-":
		c.asm.Append(evm.SWAP1)
		c.asm.Append(evm.SUB)
	case "/":
		c.asm.Append(evm.SWAP1)
		c.asm.Append(evm.DIV)
	case "%":
		c.asm.Append(evm.SWAP1)
		c.asm.Append(evm.MOD)
	case "<":
		c.asm.Append(evm.SWAP1)
		c.asm.Append(evm.LT)
	case ">":
		c.asm.Append(evm.SWAP1)
		c.asm.Append(evm.GT)
	case "<=":
		c.asm.Append(evm.SWAP1)
		c.asm.Append(evm.GT)
		c.asm.Append(evm.ISZERO)
	case ">=":
		c.asm.Append(evm.SWAP1)
		c.asm.Append(evm.LT)
		c.asm.Append(evm.ISZERO)
	case "==":
		c.asm.Append(evm.EQ)
	case "!=":
		c.asm.Append(evm.EQ)
		c.asm.Append(evm.ISZERO)
	default:
		errors.Internalf("unknown binary operator %q", e.Op)
	}
}

// storeIdent consumes the value on top of the stack, writing it into the
// target variable.
func (c *Compiler) storeIdent(target *ast.Ident) {
	switch {
	case target.Local != nil:
		c.storeLocal(target.Local)
	case target.State != nil:
		c.asm.PushInt(c.stateSlot(target.State))
		c.asm.Append(evm.SSTORE)
	default:
		errors.Internalf("unresolved assignment target %q reached lowering", target.Name)
	}
}

// compileCall lowers an internal call: push the return tag, evaluate the
// arguments left to right, jump to the callee's entry. The callee removes
// the tag and arguments and leaves its return values, which the tracked
// height is corrected to reflect.
func (c *Compiler) compileCall(e *ast.CallExpr) {
	callee := e.Callee
	ret := c.asm.NewTag()
	c.asm.PushTag(ret)
	for _, arg := range e.Args {
		c.compileExpr(arg)
	}
	c.asm.Jump(c.entryTag(callee))
	c.asm.Define(ret)
	c.asm.AdjustStackHeight(callee.ReturnSlots() - callee.ParamSlots() - 1)
}

// exprSlots is the number of stack slots an expression's value occupies.
func exprSlots(e ast.Expr) int {
	if call, ok := e.(*ast.CallExpr); ok {
		return call.Callee.ReturnSlots()
	}
	return 1
}
