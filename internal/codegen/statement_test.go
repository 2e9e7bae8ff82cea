package codegen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ember/internal/evm"
)

func TestIfElseJoinsAtOneHeight(t *testing.T) {
	c := lowerFunction(t, `
contract C {
    function pick(uint256 a, uint256 b, bool flip) internal returns (uint256 r) {
        if (flip) {
            r = a;
        } else {
            r = b;
        }
    }
}`, "C", "pick")
	checkStackHeights(t, c.asm, entrySeeds(c))
}

func TestLoopsBalanceTheStack(t *testing.T) {
	c := lowerFunction(t, `
contract C {
    function gauss(uint256 n) internal returns (uint256 s) {
        for (uint256 i = 0; i < n; i = i + 1) {
            uint256 twice = i * 2;
            if (twice > 100) {
                break;
            }
            if (twice == 4) {
                continue;
            }
            s = s + i;
        }
        while (s > 1000) {
            s = s - 1000;
        }
    }
}`, "C", "gauss")
	checkStackHeights(t, c.asm, entrySeeds(c))
}

func TestReturnInsideLoopUnwinds(t *testing.T) {
	c := lowerFunction(t, `
contract C {
    function firstOver(uint256 limit) internal returns (uint256 r) {
        for (uint256 i = 0; true; i = i + 1) {
            uint256 sq = i * i;
            if (sq > limit) {
                return sq;
            }
        }
    }
}`, "C", "firstOver")
	checkStackHeights(t, c.asm, entrySeeds(c))
}

func TestBreakPopsLoopLocals(t *testing.T) {
	c := lowerFunction(t, `
contract C {
    function f() internal {
        while (true) {
            uint256 a = 1;
            uint256 b = 2;
            break;
        }
    }
}`, "C", "f")
	items := c.asm.Items()
	// the two loop locals are popped right before the break's jump
	i := pushValueIndex(items, 0, 2)
	require.GreaterOrEqual(t, i, 0)
	j := findOpSequence(items, i, evm.POP, evm.POP)
	require.GreaterOrEqual(t, j, 0, "break should pop both locals")
	require.Less(t, j+2, len(items))
	assert.Equal(t, evm.JUMP, items[j+3].Op, "pops are followed by the break jump")
	checkStackHeights(t, c.asm, entrySeeds(c))
}

func TestModifiersWrapInInvocationOrder(t *testing.T) {
	c := lowerFunction(t, `
contract C {
    uint256 trace;
    modifier outer() {
        trace = 11;
        _;
        trace = 12;
    }
    modifier inner() {
        trace = 21;
        _;
        trace = 22;
    }
    function act() internal outer inner {
        trace = 99;
    }
}`, "C", "act")
	items := c.asm.Items()

	order := []uint64{11, 21, 99, 22, 12}
	at := 0
	for _, marker := range order {
		i := pushValueIndex(items, at, marker)
		require.GreaterOrEqual(t, i, 0, "marker %d missing or out of order", marker)
		at = i + 1
	}
	checkStackHeights(t, c.asm, entrySeeds(c))
}

func TestModifierArgumentsActAsLocals(t *testing.T) {
	c := lowerFunction(t, `
contract C {
    uint256 floor;
    modifier atLeast(uint256 bound) {
        if (bound > floor) {
            _;
        }
    }
    function raise(uint256 v) internal atLeast(v) returns (uint256 r) {
        r = v;
    }
}`, "C", "raise")
	checkStackHeights(t, c.asm, entrySeeds(c))
}

func TestReturnInModifierSkipsBody(t *testing.T) {
	c := lowerFunction(t, `
contract C {
    uint256 trace;
    modifier gated(bool open) {
        if (!open) {
            return;
        }
        _;
    }
    function act(bool open) internal gated(open) {
        trace = 99;
    }
}`, "C", "act")
	checkStackHeights(t, c.asm, entrySeeds(c))
}

func TestInternalCallConvention(t *testing.T) {
	c := lowerFunction(t, `
contract C {
    function double(uint256 x) internal returns (uint256 r) {
        r = x * 2;
    }
    function quad(uint256 x) internal returns (uint256 r) {
        r = double(double(x));
    }
}`, "C", "quad")
	require.Len(t, c.entries, 2, "callee compiled via the work list")
	checkStackHeights(t, c.asm, entrySeeds(c))
}

func TestShortCircuitOperators(t *testing.T) {
	c := lowerFunction(t, `
contract C {
    function inRange(uint256 x, uint256 lo, uint256 hi) internal returns (bool r) {
        r = lo < x && x < hi || x == 0;
    }
}`, "C", "inRange")
	checkStackHeights(t, c.asm, entrySeeds(c))
}

func TestStackTooDeepReported(t *testing.T) {
	var decls strings.Builder
	for i := 0; i < 17; i++ {
		decls.WriteString("        uint256 x")
		decls.WriteByte(byte('a' + i))
		decls.WriteString(" = 1;\n")
	}
	source := `
contract C {
    function f() public {
        uint256 first = 0;
` + decls.String() + `
        first = first + 1;
    }
}`
	contracts := bindContracts(t, source)
	_, err := CompileContract(contracts[0])
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stack too deep")
}
