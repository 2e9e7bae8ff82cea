package evm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushFamily(t *testing.T) {
	assert.Equal(t, PUSH1, PushN(1))
	assert.Equal(t, PUSH32, PushN(32))
	assert.Equal(t, 1, PushN(1).PushSize())
	assert.Equal(t, 20, PushN(20).PushSize())
	assert.True(t, PushN(20).IsPush())
	assert.False(t, JUMPDEST.IsPush())
	assert.Equal(t, 0, JUMPDEST.PushSize())
	require.Panics(t, func() { PushN(0) })
	require.Panics(t, func() { PushN(33) })
}

func TestDupAndSwapFamilies(t *testing.T) {
	assert.Equal(t, DUP1, DupN(1))
	assert.Equal(t, OpCode(0x8f), DupN(16))
	assert.Equal(t, SWAP1, SwapN(1))
	assert.Equal(t, SWAP16, SwapN(16))
	require.Panics(t, func() { DupN(17) })
	require.Panics(t, func() { SwapN(0) })
}

func TestStackCounts(t *testing.T) {
	check := func(op OpCode, wantPops, wantPushes int) {
		t.Helper()
		pops, pushes := StackCounts(op)
		assert.Equal(t, wantPops, pops, "%s pops", op)
		assert.Equal(t, wantPushes, pushes, "%s pushes", op)
	}
	check(ADD, 2, 1)
	check(ISZERO, 1, 1)
	check(PushN(7), 0, 1)
	check(DUP1, 1, 2)
	check(DupN(16), 16, 17)
	check(SWAP1, 2, 2)
	check(SwapN(16), 17, 17)
	check(JUMPI, 2, 0)
	check(CODECOPY, 3, 0)
	check(DELEGATECALL, 6, 1)
	check(SSTORE, 2, 0)
	check(JUMPDEST, 0, 0)
}

func TestStackCountsRejectsUnknownOpcode(t *testing.T) {
	require.Panics(t, func() { StackCounts(OpCode(0xfe)) })
}

func TestOpcodeNames(t *testing.T) {
	assert.Equal(t, "SSTORE", SSTORE.String())
	assert.Equal(t, "PUSH20", PushN(20).String())
	assert.Equal(t, "DUP3", DupN(3).String())
	assert.Equal(t, "SWAP16", SwapN(16).String())
	assert.Equal(t, "opcode 0xfe", OpCode(0xfe).String())
}
