package abi

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ember/internal/types"
)

func TestSignature(t *testing.T) {
	assert.Equal(t, "totalSupply()", Signature("totalSupply", nil))
	assert.Equal(t, "transfer(address,uint256)",
		Signature("transfer", []types.Type{types.AddrT, types.U256}))
	assert.Equal(t, "f(uint8,bool)",
		Signature("f", []types.Type{types.U8, types.BoolT}))
}

func TestSelectorMatchesKnownValues(t *testing.T) {
	// the canonical ERC-20 selectors
	assert.Equal(t, [4]byte{0xa9, 0x05, 0x9c, 0xbb},
		Selector("transfer", []types.Type{types.AddrT, types.U256}))
	assert.Equal(t, [4]byte{0x18, 0x16, 0x0d, 0xdd},
		Selector("totalSupply", nil))
	assert.Equal(t, [4]byte{0x70, 0xa0, 0x82, 0x31},
		Selector("balanceOf", []types.Type{types.AddrT}))
}

func TestSelectorValue(t *testing.T) {
	assert.Equal(t, uint64(0xa9059cbb), SelectorValue([4]byte{0xa9, 0x05, 0x9c, 0xbb}))
	assert.Equal(t, uint64(0), SelectorValue([4]byte{}))
}
