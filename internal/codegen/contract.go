package codegen

import (
	"sort"

	"github.com/holiman/uint256"

	"ember/internal/abi"
	"ember/internal/asm"
	"ember/internal/ast"
	"ember/internal/errors"
	"ember/internal/evm"
)

// libraryRuntimeOffset is where library deploy code copies the runtime in
// memory: 11 bytes in, so that storing the deploying address at offset 0
// lands the address inside the leading PUSH20's immediate data.
const libraryRuntimeOffset = 11

// Result is the compiled output for one contract. Creation embeds Runtime
// as its first sub-assembly, so assembling Creation yields the complete
// deploy payload.
type Result struct {
	Contract *ast.Contract
	Creation *asm.Assembly
	Runtime  *asm.Assembly
}

// CompileContract generates creation and runtime code for one contract.
// Internal inconsistencies in the generator surface as errors here rather
// than panics.
func CompileContract(contract *ast.Contract) (res *Result, err error) {
	defer func() { errors.Recover(recover(), &err) }()

	runtime := compileRuntime(contract)
	creation := compileCreation(contract, runtime)
	return &Result{Contract: contract, Creation: creation, Runtime: runtime}, nil
}

// CompileClone generates creation code whose deployed runtime is a thin
// trampoline delegating every call to an already deployed copy of the
// contract. State initialization and the constructor chain still run, so
// the clone's storage starts out exactly like a full instance's.
func CompileClone(contract *ast.Contract) (res *Result, err error) {
	defer func() { errors.Recover(recover(), &err) }()
	errors.Assert(!contract.Library, "cannot clone library %q", contract.Name)

	runtime := compileCloneRuntime(contract)
	creation := compileCreation(contract, runtime)
	return &Result{Contract: contract, Creation: creation, Runtime: runtime}, nil
}

func compileRuntime(contract *ast.Contract) *asm.Assembly {
	c := newCompiler(contract, asm.New(contract.Name+".runtime"))
	if contract.Library {
		c.appendCallProtector()
	}
	c.appendDispatch()
	c.appendMissingFunctions()
	return c.asm
}

func compileCreation(contract *ast.Contract, runtime *asm.Assembly) *asm.Assembly {
	c := newCompiler(contract, asm.New(contract.Name))
	sub := c.asm.AppendSub(runtime)
	if contract.Library {
		c.appendLibraryDeploy(sub)
		return c.asm
	}
	c.appendInitAndConstructorCode()
	c.appendRuntimeReturn(sub)
	c.appendMissingFunctions()
	return c.asm
}

// appendInitAndConstructorCode runs the state variable initializers,
// walking the linearization from the most base contract, then calls the
// most derived constructor. Each constructor calls the next base
// constructor at its entry, so bodies execute base-most first and every
// constructor runs exactly once.
func (c *Compiler) appendInitAndConstructorCode() {
	lin := c.contract.Linearized
	for i := len(lin) - 1; i >= 0; i-- {
		for _, sv := range lin[i].StateVars {
			if sv.Value == nil {
				continue
			}
			c.compileExpr(sv.Value)
			c.asm.PushInt(c.stateSlot(sv))
			c.asm.Append(evm.SSTORE)
		}
	}
	for _, base := range lin {
		if ctor := base.Constructor(); ctor != nil {
			if base == c.contract {
				c.appendDeployedConstructorCall(ctor)
			} else {
				c.appendBaseConstructorCall(base, ctor)
			}
			return
		}
	}
}

// appendDeployedConstructorCall calls the deployed contract's own
// constructor, loading its arguments from the data appended after the
// creation code.
func (c *Compiler) appendDeployedConstructorCall(ctor *ast.FunctionDefinition) {
	if ctor.ParamSlots() > 0 {
		// memcpy the appended arguments into scratch memory
		c.asm.PushInt(uint64(32 * ctor.ParamSlots()))
		c.asm.PushProgramSize()
		c.asm.PushInt(0)
		c.asm.Append(evm.CODECOPY)
	}
	ret := c.asm.NewTag()
	c.asm.PushTag(ret)
	for i := 0; i < ctor.ParamSlots(); i++ {
		c.asm.PushInt(uint64(32 * i))
		c.asm.Append(evm.MLOAD)
	}
	c.asm.Jump(c.entryTag(ctor))
	c.asm.Define(ret)
	c.asm.AdjustStackHeight(-ctor.ParamSlots() - 1)
}

// appendBaseConstructorCall calls a base constructor with the internal
// convention, evaluating the resolved arguments in the current frame.
func (c *Compiler) appendBaseConstructorCall(base *ast.Contract, ctor *ast.FunctionDefinition) {
	ret := c.asm.NewTag()
	c.asm.PushTag(ret)
	for _, arg := range c.contract.BaseConstructorArgs[base] {
		c.compileExpr(arg)
	}
	c.asm.Jump(c.entryTag(ctor))
	c.asm.Define(ret)
	c.asm.AdjustStackHeight(-ctor.ParamSlots() - 1)
}

// appendRuntimeReturn copies the runtime sub-assembly to memory and returns
// it, finishing deployment.
func (c *Compiler) appendRuntimeReturn(sub int) {
	c.asm.PushSubSize(sub)
	c.asm.Append(evm.DUP1)
	c.asm.PushSubOffset(sub)
	c.asm.PushInt(0)
	c.asm.Append(evm.CODECOPY)
	c.asm.PushInt(0)
	c.asm.Append(evm.RETURN)
}

// appendLibraryDeploy returns the library runtime with the deploying
// address stamped into the call protector's PUSH20. The runtime is copied
// to memory at an offset chosen so that storing ADDRESS as a full word at
// offset 0 writes the 20 address bytes exactly over the push data; the
// MSTORE8 restores the push opcode the word store overwrote.
func (c *Compiler) appendLibraryDeploy(sub int) {
	c.asm.PushSubSize(sub)
	c.asm.Append(evm.DUP1)
	c.asm.PushSubOffset(sub)
	c.asm.PushInt(libraryRuntimeOffset)
	c.asm.Append(evm.CODECOPY)
	c.asm.Append(evm.ADDRESS)
	c.asm.PushInt(0)
	c.asm.Append(evm.MSTORE)
	c.asm.PushInt(uint64(evm.PushN(20)))
	c.asm.PushInt(libraryRuntimeOffset)
	c.asm.Append(evm.MSTORE8)
	c.asm.PushInt(libraryRuntimeOffset)
	c.asm.Append(evm.RETURN)
}

// appendCallProtector guards library runtime code: executing in the
// library's own context means a plain call, which is rejected; only
// delegatecall reaches the dispatcher.
func (c *Compiler) appendCallProtector() {
	delegated := c.asm.NewTag()
	c.asm.AppendPlaceholder(asm.RoleCallProtector)
	c.asm.Append(evm.ADDRESS)
	c.asm.Append(evm.EQ)
	c.asm.Append(evm.ISZERO)
	c.asm.JumpIf(delegated)
	c.appendRevert()
	c.asm.Define(delegated)
}

// dispatchEntry pairs an externally callable function with its selector.
type dispatchEntry struct {
	fn       *ast.FunctionDefinition
	selector uint64
	tag      asm.Tag
}

// appendDispatch emits the function selector: extract the first four bytes
// of calldata, compare against every externally callable function in
// ascending selector order, and fall through to the fallback, or revert.
func (c *Compiler) appendDispatch() {
	external := c.contract.ExternalFunctions()
	fallback := c.contract.Fallback()

	anyPayable := fallback != nil && fallback.Payable
	for _, f := range external {
		if f.Payable {
			anyPayable = true
		}
	}
	if !anyPayable {
		// nothing accepts value: one check up front covers every entry
		c.appendCallValueCheck()
	}

	entries := make([]dispatchEntry, 0, len(external))
	for _, f := range external {
		entries = append(entries, dispatchEntry{
			fn:       f,
			selector: abi.SelectorValue(abi.FunctionSelector(f)),
			tag:      c.asm.NewTag(),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].selector < entries[j].selector })

	if len(entries) > 0 {
		// selector = calldata[0..32) / 2^224
		divisor := new(uint256.Int).Lsh(uint256.NewInt(1), 224)
		c.asm.Push(divisor)
		c.asm.PushInt(0)
		c.asm.Append(evm.CALLDATALOAD)
		c.asm.Append(evm.DIV)
		for _, e := range entries {
			c.asm.Append(evm.DUP1)
			c.asm.PushInt(e.selector)
			c.asm.Append(evm.EQ)
			c.asm.JumpIf(e.tag)
		}
		c.asm.Append(evm.POP)
	}

	if fallback != nil {
		if !fallback.Payable && anyPayable {
			c.appendCallValueCheck()
		}
		c.appendFallback(fallback)
	} else {
		c.appendRevert()
	}

	for _, e := range entries {
		c.appendEntryThunk(e.fn, e.tag, !e.fn.Payable && anyPayable)
	}
}

// appendFallback lowers the fallback body inline at the dispatch
// fall-through; it takes no arguments and returns no data.
func (c *Compiler) appendFallback(f *ast.FunctionDefinition) {
	c.fn = newFrame(f)
	c.appendModifierOrFunctionCode()
	c.fn = nil
	c.asm.Append(evm.STOP)
}

// compileCloneRuntime builds the trampoline deployed for clones: forward
// calldata to the master copy via delegatecall and relay the result,
// whether return or revert.
func compileCloneRuntime(contract *ast.Contract) *asm.Assembly {
	a := asm.New(contract.Name + ".clone")
	a.Append(evm.CALLDATASIZE)
	a.PushInt(0)
	a.PushInt(0)
	a.Append(evm.CALLDATACOPY)

	a.PushInt(0)
	a.PushInt(0)
	a.Append(evm.CALLDATASIZE)
	a.PushInt(0)
	a.AppendPlaceholder(asm.RoleCloneTarget)
	a.Append(evm.GAS)
	a.Append(evm.DELEGATECALL)

	a.Append(evm.RETURNDATASIZE)
	a.PushInt(0)
	a.PushInt(0)
	a.Append(evm.RETURNDATACOPY)

	ok := a.NewTag()
	a.JumpIf(ok)
	a.Append(evm.RETURNDATASIZE)
	a.PushInt(0)
	a.Append(evm.REVERT)
	a.Define(ok)
	a.Append(evm.RETURNDATASIZE)
	a.PushInt(0)
	a.Append(evm.RETURN)
	return a
}
