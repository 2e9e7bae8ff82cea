package codegen

import (
	"testing"

	"github.com/stretchr/testify/require"

	"ember/grammar"
	"ember/internal/asm"
	"ember/internal/ast"
	"ember/internal/evm"
	"ember/internal/semantic"
)

func bindContracts(t *testing.T, source string) []*ast.Contract {
	t.Helper()
	unit, err := grammar.Parse("test.mbr", source)
	require.NoError(t, err, "source should parse")
	contracts, diags := semantic.Bind(unit)
	require.Empty(t, diags, "source should bind cleanly")
	return contracts
}

func findContract(t *testing.T, contracts []*ast.Contract, name string) *ast.Contract {
	t.Helper()
	for _, c := range contracts {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("no contract %q", name)
	return nil
}

func compileSource(t *testing.T, source string) map[string]*Result {
	t.Helper()
	out := map[string]*Result{}
	for _, contract := range bindContracts(t, source) {
		res, err := CompileContract(contract)
		require.NoError(t, err, contract.Name)
		out[contract.Name] = res
	}
	return out
}

// lowerFunction compiles a single function (and its callees) into a fresh
// assembly, returning the compiler so tests can inspect entry tags.
func lowerFunction(t *testing.T, source, contractName, fnName string) *Compiler {
	t.Helper()
	contract := findContract(t, bindContracts(t, source), contractName)
	var fn *ast.FunctionDefinition
	for _, f := range contract.Functions {
		if f.Name == fnName {
			fn = f
		}
	}
	require.NotNil(t, fn, "no function %q", fnName)

	c := newCompiler(contract, asm.New("test"))
	c.entryTag(fn)
	err := func() (err error) {
		defer func() { recoverInternal(recover(), &err) }()
		c.appendMissingFunctions()
		return nil
	}()
	require.NoError(t, err)
	return c
}

func recoverInternal(r any, err *error) {
	if r == nil {
		return
	}
	if e, ok := r.(error); ok {
		*err = e
		return
	}
	panic(r)
}

// checkStackHeights symbolically executes the item stream and verifies that
// every jump target is reached with one consistent stack height. Entry
// seeds give the heights established by the calling convention; the checker
// covers assemblies without internal calls, whose return jumps carry
// heights it cannot derive.
func checkStackHeights(t *testing.T, a *asm.Assembly, seeds map[int]int) {
	t.Helper()
	items := a.Items()
	known := map[int]int{}
	seeded := map[int]bool{}
	for id, h := range seeds {
		known[id] = h
		seeded[id] = true
	}

	// Seeded entries are calling-convention tags: jumps into them carry a
	// caller-relative height the checker must not mistake for the entry's.
	constrain := func(id, h int) bool {
		if seeded[id] {
			return false
		}
		if have, ok := known[id]; ok {
			require.Equal(t, have, h, "tag_%d reached at two different stack heights", id)
			return false
		}
		known[id] = h
		return true
	}

	for pass := 0; pass <= len(items); pass++ {
		changed := false
		cur, valid := 0, false
		for i := 0; i < len(items); i++ {
			it := items[i]
			switch it.Kind {
			case asm.KindTag:
				id := it.Tag.ID()
				if h, ok := known[id]; ok {
					if valid {
						require.Equal(t, h, cur, "fallthrough into tag_%d at wrong height", id)
					}
					cur, valid = h, true
				} else if valid {
					changed = constrain(id, cur) || changed
				}
			case asm.KindPushTag:
				id := it.Tag.ID()
				if i+1 < len(items) && items[i+1].Kind == asm.KindOp && items[i+1].Op == evm.JUMP {
					if valid {
						changed = constrain(id, cur) || changed
					}
					valid = false
					i++
					continue
				}
				if i+1 < len(items) && items[i+1].Kind == asm.KindOp && items[i+1].Op == evm.JUMPI {
					if valid {
						changed = constrain(id, cur-1) || changed
						cur--
					}
					i++
					continue
				}
				cur++ // bare return-address push
			case asm.KindPush, asm.KindPushSubSize, asm.KindPushSubOffset,
				asm.KindPushProgramSize, asm.KindPlaceholder:
				cur++
			case asm.KindOp:
				pops, pushes := evm.StackCounts(it.Op)
				if valid {
					require.GreaterOrEqual(t, cur, pops, "underflow at item %d (%s)", i, it.Op)
				}
				cur += pushes - pops
				switch it.Op {
				case evm.STOP, evm.RETURN, evm.REVERT, evm.JUMP:
					valid = false
				}
			}
		}
		if !changed {
			return
		}
	}
}

// entrySeeds returns the calling-convention stack height of every compiled
// function entry.
func entrySeeds(c *Compiler) map[int]int {
	seeds := map[int]int{}
	for f, tag := range c.entries {
		seeds[tag.ID()] = 1 + f.ParamSlots()
	}
	return seeds
}

// findOpSequence reports the first index at or after from where the given
// opcode run appears consecutively, or -1.
func findOpSequence(items []asm.Item, from int, ops ...evm.OpCode) int {
	for i := from; i+len(ops) <= len(items); i++ {
		match := true
		for j, op := range ops {
			if items[i+j].Kind != asm.KindOp || items[i+j].Op != op {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

// pushValueIndex reports the first index at or after from pushing the exact
// immediate value, or -1.
func pushValueIndex(items []asm.Item, from int, v uint64) int {
	for i := from; i < len(items); i++ {
		if items[i].Kind == asm.KindPush && items[i].Data.IsUint64() && items[i].Data.Uint64() == v {
			return i
		}
	}
	return -1
}

// tagIndex reports the index where the tag is defined, or -1.
func tagIndex(items []asm.Item, tag asm.Tag) int {
	for i, it := range items {
		if it.Kind == asm.KindTag && it.Tag.ID() == tag.ID() {
			return i
		}
	}
	return -1
}

// pushTagIndex reports the first index at or after from pushing the tag, or -1.
func pushTagIndex(items []asm.Item, from int, tag asm.Tag) int {
	for i := from; i < len(items); i++ {
		if items[i].Kind == asm.KindPushTag && items[i].Tag.ID() == tag.ID() {
			return i
		}
	}
	return -1
}

func countOp(items []asm.Item, op evm.OpCode) int {
	n := 0
	for _, it := range items {
		if it.Kind == asm.KindOp && it.Op == op {
			n++
		}
	}
	return n
}
