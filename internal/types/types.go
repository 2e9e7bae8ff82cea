package types

import "fmt"

// Type describes a value type of the Ember language. Every type knows how
// many operand-stack slots a value of that type occupies, which is what the
// scope tracker and the expression lowerer count in.
type Type interface {
	String() string
	// ABI returns the canonical signature fragment used for selector hashing.
	ABI() string
	// Slots returns the number of stack slots a value occupies.
	Slots() int
}

// Uint is an unsigned integer type of 8..256 bits.
type Uint struct {
	Bits int
}

func (t *Uint) String() string { return fmt.Sprintf("uint%d", t.Bits) }
func (t *Uint) ABI() string    { return fmt.Sprintf("uint%d", t.Bits) }
func (t *Uint) Slots() int     { return 1 }

// Bool is the boolean type.
type Bool struct{}

func (t *Bool) String() string { return "bool" }
func (t *Bool) ABI() string    { return "bool" }
func (t *Bool) Slots() int     { return 1 }

// Address is a 160-bit account address.
type Address struct{}

func (t *Address) String() string { return "address" }
func (t *Address) ABI() string    { return "address" }
func (t *Address) Slots() int     { return 1 }

var (
	U8    = &Uint{Bits: 8}
	U32   = &Uint{Bits: 32}
	U64   = &Uint{Bits: 64}
	U128  = &Uint{Bits: 128}
	U256  = &Uint{Bits: 256}
	BoolT = &Bool{}
	AddrT = &Address{}

	byName = map[string]Type{}
)

func init() {
	for _, t := range []Type{U8, U32, U64, U128, U256, BoolT, AddrT} {
		byName[t.String()] = t
	}
}

// Lookup resolves a source-level type name. Returns nil if the name does not
// denote a built-in type.
func Lookup(name string) Type {
	return byName[name]
}

// Same reports whether two types are identical.
func Same(a, b Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.String() == b.String()
}
