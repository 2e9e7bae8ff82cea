// Package abi computes the 4-byte call selectors used by the runtime
// dispatch table.
package abi

import (
	"encoding/binary"
	"strings"

	"golang.org/x/crypto/sha3"

	"ember/internal/ast"
	"ember/internal/types"
)

// Signature renders the canonical signature string hashed for dispatch,
// e.g. "transfer(address,uint256)".
func Signature(name string, params []types.Type) string {
	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('(')
	for i, p := range params {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(p.ABI())
	}
	b.WriteByte(')')
	return b.String()
}

// Selector returns the first four bytes of the keccak-256 hash of the
// canonical signature.
func Selector(name string, params []types.Type) [4]byte {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(Signature(name, params)))
	var sel [4]byte
	copy(sel[:], h.Sum(nil)[:4])
	return sel
}

// FunctionSelector computes the selector of a function definition.
func FunctionSelector(f *ast.FunctionDefinition) [4]byte {
	params := make([]types.Type, len(f.Params))
	for i, p := range f.Params {
		params[i] = p.Type
	}
	return Selector(f.Name, params)
}

// SelectorValue returns the selector as a number, the form the dispatch
// comparisons push.
func SelectorValue(sel [4]byte) uint64 {
	return uint64(binary.BigEndian.Uint32(sel[:]))
}
