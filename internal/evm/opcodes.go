package evm

import "fmt"

// OpCode is a single EVM instruction byte.
type OpCode byte

const (
	STOP OpCode = 0x00
	ADD  OpCode = 0x01
	MUL  OpCode = 0x02
	SUB  OpCode = 0x03
	DIV  OpCode = 0x04
	MOD  OpCode = 0x06
	EXP  OpCode = 0x0a

	LT     OpCode = 0x10
	GT     OpCode = 0x11
	EQ     OpCode = 0x14
	ISZERO OpCode = 0x15
	AND    OpCode = 0x16
	OR     OpCode = 0x17
	XOR    OpCode = 0x18
	NOT    OpCode = 0x19

	ADDRESS        OpCode = 0x30
	CALLER         OpCode = 0x33
	CALLVALUE      OpCode = 0x34
	CALLDATALOAD   OpCode = 0x35
	CALLDATASIZE   OpCode = 0x36
	CALLDATACOPY   OpCode = 0x37
	CODECOPY       OpCode = 0x39
	RETURNDATASIZE OpCode = 0x3d
	RETURNDATACOPY OpCode = 0x3e

	POP      OpCode = 0x50
	MLOAD    OpCode = 0x51
	MSTORE   OpCode = 0x52
	MSTORE8  OpCode = 0x53
	SLOAD    OpCode = 0x54
	SSTORE   OpCode = 0x55
	JUMP     OpCode = 0x56
	JUMPI    OpCode = 0x57
	JUMPDEST OpCode = 0x5b

	GAS OpCode = 0x5a

	PUSH1  OpCode = 0x60
	PUSH32 OpCode = 0x7f
	DUP1   OpCode = 0x80
	DUP16  OpCode = 0x8f
	SWAP1  OpCode = 0x90
	SWAP16 OpCode = 0x9f

	DELEGATECALL OpCode = 0xf4
	RETURN       OpCode = 0xf3
	REVERT       OpCode = 0xfd
)

// PushN returns the push opcode carrying n immediate bytes, 1 <= n <= 32.
func PushN(n int) OpCode {
	if n < 1 || n > 32 {
		panic(fmt.Sprintf("evm: invalid push size %d", n))
	}
	return PUSH1 + OpCode(n-1)
}

// DupN returns the opcode duplicating the n-th stack item, 1 <= n <= 16.
func DupN(n int) OpCode {
	if n < 1 || n > 16 {
		panic(fmt.Sprintf("evm: invalid dup position %d", n))
	}
	return DUP1 + OpCode(n-1)
}

// SwapN returns the opcode swapping the top with the (n+1)-th item, 1 <= n <= 16.
func SwapN(n int) OpCode {
	if n < 1 || n > 16 {
		panic(fmt.Sprintf("evm: invalid swap position %d", n))
	}
	return SWAP1 + OpCode(n-1)
}

// IsPush reports whether op carries immediate data.
func (op OpCode) IsPush() bool { return op >= PUSH1 && op <= PUSH32 }

// PushSize returns the number of immediate bytes following a push opcode.
func (op OpCode) PushSize() int {
	if !op.IsPush() {
		return 0
	}
	return int(op-PUSH1) + 1
}

type stackEffect struct {
	pops, pushes int
}

var stackEffects = map[OpCode]stackEffect{
	STOP:   {0, 0},
	ADD:    {2, 1},
	MUL:    {2, 1},
	SUB:    {2, 1},
	DIV:    {2, 1},
	MOD:    {2, 1},
	EXP:    {2, 1},
	LT:     {2, 1},
	GT:     {2, 1},
	EQ:     {2, 1},
	ISZERO: {1, 1},
	AND:    {2, 1},
	OR:     {2, 1},
	XOR:    {2, 1},
	NOT:    {1, 1},

	ADDRESS:        {0, 1},
	CALLER:         {0, 1},
	CALLVALUE:      {0, 1},
	CALLDATALOAD:   {1, 1},
	CALLDATASIZE:   {0, 1},
	CALLDATACOPY:   {3, 0},
	CODECOPY:       {3, 0},
	RETURNDATASIZE: {0, 1},
	RETURNDATACOPY: {3, 0},

	POP:      {1, 0},
	MLOAD:    {1, 1},
	MSTORE:   {2, 0},
	MSTORE8:  {2, 0},
	SLOAD:    {1, 1},
	SSTORE:   {2, 0},
	JUMP:     {1, 0},
	JUMPI:    {2, 0},
	JUMPDEST: {0, 0},
	GAS:      {0, 1},

	DELEGATECALL: {6, 1},
	RETURN:       {2, 0},
	REVERT:       {2, 0},
}

// StackCounts returns the number of operand-stack slots popped and pushed by
// op. The effect is deterministic per opcode, so the assembler can track the
// running stack height as instructions are appended.
func StackCounts(op OpCode) (pops, pushes int) {
	switch {
	case op.IsPush():
		return 0, 1
	case op >= DUP1 && op <= DUP16:
		n := int(op-DUP1) + 1
		return n, n + 1
	case op >= SWAP1 && op <= SWAP16:
		n := int(op-SWAP1) + 2
		return n, n
	}
	e, ok := stackEffects[op]
	if !ok {
		panic(fmt.Sprintf("evm: unknown opcode %#x", byte(op)))
	}
	return e.pops, e.pushes
}

var opNames = map[OpCode]string{
	STOP:           "STOP",
	ADD:            "ADD",
	MUL:            "MUL",
	SUB:            "SUB",
	DIV:            "DIV",
	MOD:            "MOD",
	EXP:            "EXP",
	LT:             "LT",
	GT:             "GT",
	EQ:             "EQ",
	ISZERO:         "ISZERO",
	AND:            "AND",
	OR:             "OR",
	XOR:            "XOR",
	NOT:            "NOT",
	ADDRESS:        "ADDRESS",
	CALLER:         "CALLER",
	CALLVALUE:      "CALLVALUE",
	CALLDATALOAD:   "CALLDATALOAD",
	CALLDATASIZE:   "CALLDATASIZE",
	CALLDATACOPY:   "CALLDATACOPY",
	CODECOPY:       "CODECOPY",
	RETURNDATASIZE: "RETURNDATASIZE",
	RETURNDATACOPY: "RETURNDATACOPY",
	POP:            "POP",
	MLOAD:          "MLOAD",
	MSTORE:         "MSTORE",
	MSTORE8:        "MSTORE8",
	SLOAD:          "SLOAD",
	SSTORE:         "SSTORE",
	JUMP:           "JUMP",
	JUMPI:          "JUMPI",
	JUMPDEST:       "JUMPDEST",
	GAS:            "GAS",
	DELEGATECALL:   "DELEGATECALL",
	RETURN:         "RETURN",
	REVERT:         "REVERT",
}

func (op OpCode) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	switch {
	case op.IsPush():
		return fmt.Sprintf("PUSH%d", op.PushSize())
	case op >= DUP1 && op <= DUP16:
		return fmt.Sprintf("DUP%d", int(op-DUP1)+1)
	case op >= SWAP1 && op <= SWAP16:
		return fmt.Sprintf("SWAP%d", int(op-SWAP1)+1)
	}
	return fmt.Sprintf("opcode %#x", byte(op))
}
