// Package codegen lowers bound contracts to stack-machine assembly: it
// sequences creation and runtime code, splices modifier bodies around
// function bodies, lowers structured control flow to jumps, and tracks
// every local variable's absolute stack slot so reads and writes become
// DUP and SWAP instructions.
package codegen

import (
	"ember/internal/asm"
	"ember/internal/ast"
	"ember/internal/errors"
	"ember/internal/evm"
)

// maxReach is the deepest stack slot DUP/SWAP can address.
const maxReach = 16

// Compiler generates one assembly (creation or runtime) for one contract.
// Functions reached through calls are compiled lazily: the first reference
// allocates an entry tag and queues the function, and the queue is drained
// until no referenced function is missing.
type Compiler struct {
	contract *ast.Contract
	asm      *asm.Assembly
	slots    map[*ast.StateVariable]uint64

	entries map[*ast.FunctionDefinition]asm.Tag
	queue   []*ast.FunctionDefinition
	done    map[*ast.FunctionDefinition]bool

	fn *frame
}

// frame is the per-function lowering state: the modifier chain being
// spliced, the return target for every splice depth, the open loops, and
// the stack slot of every live local.
type frame struct {
	fn    *ast.FunctionDefinition
	chain []*ast.ModifierInvocation // base-constructor invocations excluded
	depth int

	returns []returnTarget
	loops   []loopFrame
	scopes  []*scopeRecord

	// locals maps a declaration to the stack of slot indices it currently
	// occupies; a modifier invoked twice in one chain re-declares its
	// parameters at a second slot.
	locals map[*ast.VariableDeclaration][]int
}

// returnTarget is where a return statement at one splice depth jumps to,
// together with the stack height the target expects.
type returnTarget struct {
	tag    asm.Tag
	height int
}

// loopFrame records the jump targets of an enclosing loop and the stack
// height at its entry, which break and continue unwind to.
type loopFrame struct {
	breakTag    asm.Tag
	continueTag asm.Tag
	height      int
	depth       int
	scopeMark   int
}

// scopeRecord tracks the locals declared inside one lexical scope at one
// splice depth, so scope exit pops exactly the slots the scope added.
type scopeRecord struct {
	node  ast.Node
	depth int
	base  int
	decls []*ast.VariableDeclaration
}

func newCompiler(contract *ast.Contract, a *asm.Assembly) *Compiler {
	return &Compiler{
		contract: contract,
		asm:      a,
		slots:    stateSlots(contract),
		entries:  map[*ast.FunctionDefinition]asm.Tag{},
		done:     map[*ast.FunctionDefinition]bool{},
	}
}

// stateSlots assigns storage slots walking the linearization from the most
// base contract, so that a base's variables keep their slots in every
// derived contract and creation and runtime code agree.
func stateSlots(contract *ast.Contract) map[*ast.StateVariable]uint64 {
	slots := map[*ast.StateVariable]uint64{}
	var next uint64
	for i := len(contract.Linearized) - 1; i >= 0; i-- {
		for _, sv := range contract.Linearized[i].StateVars {
			slots[sv] = next
			next += uint64(sv.Type.Slots())
		}
	}
	return slots
}

func (c *Compiler) stateSlot(sv *ast.StateVariable) uint64 {
	slot, ok := c.slots[sv]
	errors.Assert(ok, "state variable %q has no storage slot in %s", sv.Name, c.asm.Name())
	return slot
}

// entryTag returns the internal entry tag of f, queueing f for compilation
// on first reference.
func (c *Compiler) entryTag(f *ast.FunctionDefinition) asm.Tag {
	if tag, ok := c.entries[f]; ok {
		return tag
	}
	tag := c.asm.NewTag()
	c.entries[f] = tag
	c.queue = append(c.queue, f)
	return tag
}

// appendMissingFunctions drains the queue until every referenced function
// has been compiled. Compiling a function may queue further callees.
func (c *Compiler) appendMissingFunctions() {
	for len(c.queue) > 0 {
		f := c.queue[0]
		c.queue = c.queue[1:]
		if c.done[f] {
			continue
		}
		c.done[f] = true
		c.compileFunction(f)
	}
}

// ---- local variable slots ----

// declareLocal binds decl to the slot its value already occupies on top of
// the stack and records it in the innermost open scope.
func (c *Compiler) declareLocal(decl *ast.VariableDeclaration) {
	f := c.fn
	slot := c.asm.StackHeight() - 1
	f.locals[decl] = append(f.locals[decl], slot)
	if n := len(f.scopes); n > 0 {
		f.scopes[n-1].decls = append(f.scopes[n-1].decls, decl)
	}
}

// declareAt binds decl to a slot established by the calling convention
// rather than by an emitted push.
func (c *Compiler) declareAt(decl *ast.VariableDeclaration, slot int) {
	f := c.fn
	f.locals[decl] = append(f.locals[decl], slot)
}

func (c *Compiler) undeclare(decl *ast.VariableDeclaration) {
	f := c.fn
	stack := f.locals[decl]
	errors.Assert(len(stack) > 0, "undeclaring unknown local %q", decl.Name)
	if len(stack) == 1 {
		delete(f.locals, decl)
	} else {
		f.locals[decl] = stack[:len(stack)-1]
	}
}

func (c *Compiler) localSlot(decl *ast.VariableDeclaration) int {
	stack := c.fn.locals[decl]
	errors.Assert(len(stack) > 0, "local %q used before declaration", decl.Name)
	return stack[len(stack)-1]
}

// dupLocal copies a local's slot to the top of the stack.
func (c *Compiler) dupLocal(decl *ast.VariableDeclaration) {
	depth := c.asm.StackHeight() - c.localSlot(decl)
	if depth > maxReach {
		errors.Internalf("stack too deep: %q is %d slots below the top", decl.Name, depth)
	}
	c.asm.Append(evm.DupN(depth))
}

// storeLocal moves the value on top of the stack into a local's slot,
// consuming it.
func (c *Compiler) storeLocal(decl *ast.VariableDeclaration) {
	depth := c.asm.StackHeight() - 1 - c.localSlot(decl)
	if depth > maxReach {
		errors.Internalf("stack too deep: %q is %d slots below the top", decl.Name, depth+1)
	}
	if depth > 0 {
		c.asm.Append(evm.SwapN(depth))
	}
	c.asm.Append(evm.POP)
}

// ---- lexical scopes ----

func (c *Compiler) enterScope(node ast.Node) {
	c.fn.scopes = append(c.fn.scopes, &scopeRecord{
		node:  node,
		depth: c.fn.depth,
		base:  c.asm.StackHeight(),
	})
}

// exitScope pops the slots the innermost scope declared and forgets its
// locals. The tracked height must account exactly for those slots.
func (c *Compiler) exitScope() {
	f := c.fn
	rec := f.scopes[len(f.scopes)-1]
	f.scopes = f.scopes[:len(f.scopes)-1]
	errors.Assert(rec.depth == f.depth,
		"scope opened at modifier depth %d closed at depth %d", rec.depth, f.depth)

	drop := c.asm.StackHeight() - rec.base
	errors.Assert(drop == len(rec.decls),
		"stack height mismatch leaving scope: %d slots on stack, %d declared", drop, len(rec.decls))
	for i := 0; i < drop; i++ {
		c.asm.Append(evm.POP)
	}
	for _, decl := range rec.decls {
		c.undeclare(decl)
	}
}

// ---- loops ----

func (c *Compiler) pushLoop(breakTag, continueTag asm.Tag) {
	c.fn.loops = append(c.fn.loops, loopFrame{
		breakTag:    breakTag,
		continueTag: continueTag,
		height:      c.asm.StackHeight(),
		depth:       c.fn.depth,
		scopeMark:   len(c.fn.scopes),
	})
}

func (c *Compiler) popLoop() {
	c.fn.loops = c.fn.loops[:len(c.fn.loops)-1]
}

func (c *Compiler) currentLoop() *loopFrame {
	f := c.fn
	errors.Assert(len(f.loops) > 0, "break or continue outside a loop reached lowering")
	loop := &f.loops[len(f.loops)-1]
	errors.Assert(loop.depth == f.depth, "loop frame crosses modifier depth")
	return loop
}

// unwindLoop pops every slot declared since the loop frame was pushed and
// cross-checks the count against the scope records opened inside the loop.
func (c *Compiler) unwindLoop(loop *loopFrame) int {
	drop := c.asm.StackHeight() - loop.height
	declared := 0
	for _, rec := range c.fn.scopes[loop.scopeMark:] {
		declared += len(rec.decls)
	}
	errors.Assert(drop == declared,
		"stack height mismatch unwinding loop: %d slots on stack, %d declared", drop, declared)
	for i := 0; i < drop; i++ {
		c.asm.Append(evm.POP)
	}
	return drop
}
