package codegen

import (
	"ember/internal/asm"
	"ember/internal/ast"
	"ember/internal/errors"
	"ember/internal/evm"
)

// newFrame opens a lowering frame for f. Base-constructor invocations are
// not part of the splice chain; they are sequenced by the creation code.
func newFrame(f *ast.FunctionDefinition) *frame {
	fr := &frame{fn: f, locals: map[*ast.VariableDeclaration][]int{}}
	for _, inv := range f.Modifiers {
		if inv.Modifier != nil {
			fr.chain = append(fr.chain, inv)
		}
	}
	return fr
}

// compileFunction emits f's internal entry. The caller leaves the return
// tag below the arguments; the callee pushes zeroed return variables, runs
// the modifier chain around the body, then shuffles the stack so only the
// return values and the return tag remain and jumps back.
func (c *Compiler) compileFunction(f *ast.FunctionDefinition) {
	tag, ok := c.entries[f]
	errors.Assert(ok, "compiling %q without an entry tag", f.Name)
	c.asm.Define(tag)
	c.asm.SetStackHeight(1 + f.ParamSlots())

	c.fn = newFrame(f)
	slot := 1
	for _, p := range f.Params {
		c.declareAt(p, slot)
		slot += p.Type.Slots()
	}

	if f.IsConstructor {
		// chain to the next base constructor before anything else runs,
		// so constructor bodies execute base-most first
		if base, ctor := c.nextBaseConstructor(f.Contract); ctor != nil {
			c.appendBaseConstructorCall(base, ctor)
		}
	}

	for _, r := range f.Returns {
		c.asm.PushInt(0)
		c.declareAt(r, slot)
		slot += r.Type.Slots()
	}

	c.appendModifierOrFunctionCode()

	c.appendReturnShuffle(f)
	c.asm.Append(evm.JUMP)
	c.fn = nil
}

// nextBaseConstructor finds the constructor the given contract's own
// constructor must chain to: the nearest more base contract with a
// constructor in the deployed contract's linearization.
func (c *Compiler) nextBaseConstructor(from *ast.Contract) (*ast.Contract, *ast.FunctionDefinition) {
	lin := c.contract.Linearized
	i := 0
	for i < len(lin) && lin[i] != from {
		i++
	}
	for i++; i < len(lin); i++ {
		if ctor := lin[i].Constructor(); ctor != nil {
			return lin[i], ctor
		}
	}
	return nil, nil
}

// appendModifierOrFunctionCode splices one step of the modifier chain: at
// depth d it evaluates the d-th modifier's arguments, lowers its body, and
// recurses at each `_;`; past the last modifier it lowers the function body.
// Each depth gets its own return target so a return unwinds only to the end
// of the code block it appears in.
func (c *Compiler) appendModifierOrFunctionCode() {
	f := c.fn
	var body *ast.Block
	var params []*ast.VariableDeclaration
	if f.depth < len(f.chain) {
		inv := f.chain[f.depth]
		mod := inv.Modifier
		for i, arg := range inv.Args {
			slot := c.asm.StackHeight()
			c.compileExpr(arg)
			c.declareAt(mod.Params[i], slot)
		}
		body = mod.Body
		params = mod.Params
	} else {
		body = f.fn.Body
	}

	ret := returnTarget{tag: c.asm.NewTag(), height: c.asm.StackHeight()}
	f.returns = append(f.returns, ret)
	c.compileBlock(body)
	errors.Assert(c.asm.StackHeight() == ret.height,
		"stack height mismatch after code block: %d, want %d", c.asm.StackHeight(), ret.height)
	c.asm.Define(ret.tag)
	f.returns = f.returns[:len(f.returns)-1]

	for range params {
		c.asm.Append(evm.POP)
	}
	for _, p := range params {
		c.undeclare(p)
	}
}

// appendReturnShuffle reorders [tag, params, returns] into [returns, tag],
// popping the parameters, by sorting the target-position layout with swaps.
func (c *Compiler) appendReturnShuffle(f *ast.FunctionDefinition) {
	paramSlots, returnSlots := f.ParamSlots(), f.ReturnSlots()
	layout := make([]int, 0, 1+paramSlots+returnSlots)
	layout = append(layout, returnSlots)
	for i := 0; i < paramSlots; i++ {
		layout = append(layout, -1)
	}
	for i := 0; i < returnSlots; i++ {
		layout = append(layout, i)
	}

	for layout[len(layout)-1] != len(layout)-1 {
		back := layout[len(layout)-1]
		if back < 0 {
			c.asm.Append(evm.POP)
			layout = layout[:len(layout)-1]
			continue
		}
		depth := len(layout) - 1 - back
		if depth > maxReach {
			errors.Internalf("stack too deep shuffling return values of %q", f.Name)
		}
		c.asm.Append(evm.SwapN(depth))
		layout[back], layout[len(layout)-1] = layout[len(layout)-1], layout[back]
	}
	for i, want := range layout {
		errors.Assert(i == want, "invalid stack layout after return shuffle of %q", f.Name)
	}
}

// appendEntryThunk bridges the dispatcher to f's internal entry: it drops
// the selector, optionally rejects attached value, loads the arguments from
// calldata and calls f with the return packer as the return tag.
func (c *Compiler) appendEntryThunk(f *ast.FunctionDefinition, entry asm.Tag, checkValue bool) {
	c.asm.Define(entry)
	c.asm.SetStackHeight(1)
	c.asm.Append(evm.POP)
	if checkValue {
		c.appendCallValueCheck()
	}
	packer := c.asm.NewTag()
	c.asm.PushTag(packer)
	for i := 0; i < f.ParamSlots(); i++ {
		c.asm.PushInt(uint64(4 + 32*i))
		c.asm.Append(evm.CALLDATALOAD)
	}
	c.asm.Jump(c.entryTag(f))
	c.asm.Define(packer)
	c.asm.SetStackHeight(f.ReturnSlots())
	c.appendReturnPacker(f.ReturnSlots())
}

// appendReturnPacker stores the return values into scratch memory, deepest
// slot first, and returns them ABI-encoded head to tail.
func (c *Compiler) appendReturnPacker(slots int) {
	if slots == 0 {
		c.asm.Append(evm.STOP)
		return
	}
	for i := slots; i >= 1; i-- {
		c.asm.PushInt(uint64(32 * (i - 1)))
		c.asm.Append(evm.MSTORE)
	}
	c.asm.PushInt(uint64(32 * slots))
	c.asm.PushInt(0)
	c.asm.Append(evm.RETURN)
}

// appendCallValueCheck reverts when the call carries value.
func (c *Compiler) appendCallValueCheck() {
	ok := c.asm.NewTag()
	c.asm.Append(evm.CALLVALUE)
	c.asm.JumpIfFalse(ok)
	c.appendRevert()
	c.asm.Define(ok)
}

func (c *Compiler) appendRevert() {
	c.asm.PushInt(0)
	c.asm.PushInt(0)
	c.asm.Append(evm.REVERT)
}
