// Package asm is the append-only instruction stream the code generator
// writes into. It tracks the running stack height as items are appended,
// hands out symbolic jump tags, and resolves tags to byte offsets only at
// final assembly.
package asm

import (
	"github.com/holiman/uint256"

	"ember/internal/errors"
	"ember/internal/evm"
)

// Tag is a symbolic jump target. A tag is only valid within the assembly
// that created it and is never reused across assemblies.
type Tag struct {
	owner *Assembly
	id    int
}

// ID returns the tag's numeric identity within its owning assembly.
func (t Tag) ID() int { return t.id }

// PatchRole names a deploy-time patch site: a pushed placeholder whose
// immediate data is rewritten outside the code generator.
type PatchRole string

const (
	// RoleCallProtector is the address placeholder at the start of library
	// runtime code, patched with the deploying address.
	RoleCallProtector PatchRole = "call-protector"
	// RoleCloneTarget is the delegatecall target of a clone contract's
	// trampoline.
	RoleCloneTarget PatchRole = "clone-target"
)

// ItemKind discriminates the entries of an assembly.
type ItemKind int

const (
	// KindOp is a bare opcode.
	KindOp ItemKind = iota
	// KindPush is an immediate push, sized to its value.
	KindPush
	// KindPushTag pushes a tag's resolved code offset.
	KindPushTag
	// KindTag defines a jump target; assembles to JUMPDEST.
	KindTag
	// KindPushSubSize pushes the byte size of an embedded sub-assembly.
	KindPushSubSize
	// KindPushSubOffset pushes the byte offset of an embedded sub-assembly.
	KindPushSubOffset
	// KindPlaceholder is a 20-byte push whose data is patched at deploy
	// time; its role and offset are reported by Assemble.
	KindPlaceholder
	// KindPushProgramSize pushes the total byte size of the assembled
	// program, sub images included; appended deploy data starts there.
	KindPushProgramSize
)

// Item is one entry of the stream.
type Item struct {
	Kind ItemKind
	Op   evm.OpCode
	Data *uint256.Int
	Tag  Tag
	Sub  int
	Role PatchRole
}

// Assembly is one code-generation unit: either the creation code or the
// runtime code of a contract. Sub-assemblies hold embedded units, most
// importantly the runtime code within the creation code.
type Assembly struct {
	name     string
	items    []Item
	tagCount int
	defined  map[int]bool
	height   int
	subs     []*Assembly
}

// New creates an empty assembly.
func New(name string) *Assembly {
	return &Assembly{name: name, defined: map[int]bool{}}
}

// Name returns the assembly's name.
func (a *Assembly) Name() string { return a.name }

// Items exposes the appended items, for inspection and assembly.
func (a *Assembly) Items() []Item { return a.items }

// StackHeight returns the tracked operand-stack height at the current
// append position.
func (a *Assembly) StackHeight() int { return a.height }

// SetStackHeight resets the tracked height; used when emission moves to an
// unrelated program point such as a new function's entry.
func (a *Assembly) SetStackHeight(h int) { a.height = h }

// AdjustStackHeight corrects the tracked height after an emitted jump leaves
// the linear fall-through at a different height than the jump target.
func (a *Assembly) AdjustStackHeight(delta int) {
	a.height += delta
	errors.Assert(a.height >= 0, "stack height adjusted below zero in %s", a.name)
}

// Append emits a bare opcode and applies its stack effect.
func (a *Assembly) Append(op evm.OpCode) {
	pops, pushes := evm.StackCounts(op)
	errors.Assert(a.height >= pops, "stack underflow emitting %s in %s (height %d)", op, a.name, a.height)
	a.height += pushes - pops
	a.items = append(a.items, Item{Kind: KindOp, Op: op})
}

// Push emits an immediate push of v.
func (a *Assembly) Push(v *uint256.Int) {
	a.height++
	a.items = append(a.items, Item{Kind: KindPush, Data: v.Clone()})
}

// PushInt emits an immediate push of a small constant.
func (a *Assembly) PushInt(v uint64) {
	a.Push(uint256.NewInt(v))
}

// NewTag allocates a fresh symbolic jump target.
func (a *Assembly) NewTag() Tag {
	a.tagCount++
	return Tag{owner: a, id: a.tagCount}
}

func (a *Assembly) checkTag(t Tag) {
	errors.Assert(t.owner == a, "tag used outside its owning assembly %s", a.name)
}

// Define places t at the current position. Each tag is defined exactly once.
func (a *Assembly) Define(t Tag) {
	a.checkTag(t)
	errors.Assert(!a.defined[t.id], "tag %d defined twice in %s", t.id, a.name)
	a.defined[t.id] = true
	a.items = append(a.items, Item{Kind: KindTag, Tag: t})
}

// PushTag pushes t's eventual code offset.
func (a *Assembly) PushTag(t Tag) {
	a.checkTag(t)
	a.height++
	a.items = append(a.items, Item{Kind: KindPushTag, Tag: t})
}

// Jump emits an unconditional jump to t.
func (a *Assembly) Jump(t Tag) {
	a.PushTag(t)
	a.Append(evm.JUMP)
}

// JumpIf emits a jump to t taken when the value on top of the stack is
// non-zero. The condition is consumed.
func (a *Assembly) JumpIf(t Tag) {
	a.PushTag(t)
	a.Append(evm.JUMPI)
}

// JumpIfFalse emits a jump to t taken when the value on top of the stack is
// zero. The condition is consumed.
func (a *Assembly) JumpIfFalse(t Tag) {
	a.Append(evm.ISZERO)
	a.JumpIf(t)
}

// AppendPlaceholder emits a 20-byte push whose data is patched at deploy
// time according to role.
func (a *Assembly) AppendPlaceholder(role PatchRole) {
	a.height++
	a.items = append(a.items, Item{Kind: KindPlaceholder, Role: role})
}

// PushProgramSize pushes the total byte size of the assembled program.
// Constructor arguments appended after the code start at that offset.
func (a *Assembly) PushProgramSize() {
	a.height++
	a.items = append(a.items, Item{Kind: KindPushProgramSize})
}

// AppendSub embeds a finished sub-assembly and returns its index.
func (a *Assembly) AppendSub(sub *Assembly) int {
	a.subs = append(a.subs, sub)
	return len(a.subs) - 1
}

// PushSubSize pushes the byte size of sub-assembly i.
func (a *Assembly) PushSubSize(i int) {
	errors.Assert(i >= 0 && i < len(a.subs), "sub-assembly index %d out of range in %s", i, a.name)
	a.height++
	a.items = append(a.items, Item{Kind: KindPushSubSize, Sub: i})
}

// PushSubOffset pushes the byte offset of sub-assembly i within the
// assembled output.
func (a *Assembly) PushSubOffset(i int) {
	errors.Assert(i >= 0 && i < len(a.subs), "sub-assembly index %d out of range in %s", i, a.name)
	a.height++
	a.items = append(a.items, Item{Kind: KindPushSubOffset, Sub: i})
}
