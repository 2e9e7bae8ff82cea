package asm

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ember/internal/evm"
)

func TestStackHeightTracksAppends(t *testing.T) {
	a := New("t")
	assert.Equal(t, 0, a.StackHeight())
	a.PushInt(1)
	a.PushInt(2)
	assert.Equal(t, 2, a.StackHeight())
	a.Append(evm.ADD)
	assert.Equal(t, 1, a.StackHeight())
	a.Append(evm.DUP1)
	assert.Equal(t, 2, a.StackHeight())
	a.Append(evm.SWAP1)
	assert.Equal(t, 2, a.StackHeight())
	a.Append(evm.POP)
	a.Append(evm.POP)
	assert.Equal(t, 0, a.StackHeight())
}

func TestAppendUnderflowPanics(t *testing.T) {
	a := New("t")
	a.PushInt(1)
	require.Panics(t, func() { a.Append(evm.ADD) })
}

func TestDefineTwicePanics(t *testing.T) {
	a := New("t")
	tag := a.NewTag()
	a.Define(tag)
	require.Panics(t, func() { a.Define(tag) })
}

func TestForeignTagPanics(t *testing.T) {
	a, b := New("a"), New("b")
	tag := a.NewTag()
	require.Panics(t, func() { b.PushTag(tag) })
}

func TestAssembleResolvesTagOffsets(t *testing.T) {
	a := New("t")
	a.PushInt(7)
	tag := a.NewTag()
	a.Jump(tag)
	a.Append(evm.STOP)
	a.Define(tag)

	p, err := a.Assemble()
	require.NoError(t, err)
	// PUSH1 07, PUSH2 0007, JUMP, STOP, JUMPDEST
	assert.Equal(t, []byte{
		byte(evm.PushN(1)), 0x07,
		byte(evm.PushN(2)), 0x00, 0x07,
		byte(evm.JUMP),
		byte(evm.STOP),
		byte(evm.JUMPDEST),
	}, p.Code)
	assert.Equal(t, len(p.Code), p.MainSize)
}

func TestAssembleUndefinedTagErrors(t *testing.T) {
	a := New("t")
	a.PushTag(a.NewTag())
	_, err := a.Assemble()
	require.Error(t, err)
}

func TestPushWidthMatchesValue(t *testing.T) {
	a := New("t")
	a.PushInt(0)
	a.PushInt(0xff)
	a.PushInt(0x100)
	a.Push(new(uint256.Int).Not(uint256.NewInt(0)))

	p, err := a.Assemble()
	require.NoError(t, err)
	want := []byte{byte(evm.PushN(1)), 0x00, byte(evm.PushN(1)), 0xff, byte(evm.PushN(2)), 0x01, 0x00}
	require.Greater(t, len(p.Code), len(want))
	assert.Equal(t, want, p.Code[:len(want)])
	assert.Equal(t, byte(evm.PushN(32)), p.Code[len(want)], "a full word gets PUSH32")
	assert.Equal(t, len(want)+1+32, len(p.Code))
}

func TestSubAssemblyOffsets(t *testing.T) {
	sub := New("sub")
	sub.Append(evm.STOP)

	a := New("main")
	i := a.AppendSub(sub)
	a.PushSubSize(i)
	a.PushSubOffset(i)
	a.PushProgramSize()
	a.Append(evm.STOP)

	p, err := a.Assemble()
	require.NoError(t, err)
	// three PUSH2s and a STOP, then the one-byte sub image
	assert.Equal(t, 10, p.MainSize)
	require.Len(t, p.SubOffsets, 1)
	assert.Equal(t, 10, p.SubOffsets[0])
	assert.Equal(t, []byte{
		byte(evm.PushN(2)), 0x00, 0x01, // sub size
		byte(evm.PushN(2)), 0x00, 0x0a, // sub offset
		byte(evm.PushN(2)), 0x00, 0x0b, // program size, sub included
		byte(evm.STOP),
		byte(evm.STOP),
	}, p.Code)
	require.Len(t, p.Subs, 1)
	assert.Equal(t, []byte{byte(evm.STOP)}, p.Subs[0].Code)
}

func TestPlaceholderPatchSites(t *testing.T) {
	a := New("t")
	a.PushInt(1)
	a.AppendPlaceholder(RoleCloneTarget)
	a.Append(evm.POP)
	a.Append(evm.POP)

	p, err := a.Assemble()
	require.NoError(t, err)
	require.Len(t, p.PatchSites, 1)
	assert.Equal(t, RoleCloneTarget, p.PatchSites[0].Role)
	// the PUSH1 takes two bytes, the patch data starts after the PUSH20
	assert.Equal(t, 3, p.PatchSites[0].Offset)
	assert.Equal(t, byte(evm.PushN(20)), p.Code[2])
	assert.Equal(t, make([]byte, 20), p.Code[3:23], "placeholder data assembles as zeros")
}

func TestJumpHelpersConsumeCondition(t *testing.T) {
	a := New("t")
	a.PushInt(1)
	a.JumpIf(a.NewTag())
	assert.Equal(t, 0, a.StackHeight())
	a.PushInt(1)
	a.JumpIfFalse(a.NewTag())
	assert.Equal(t, 0, a.StackHeight())
}
