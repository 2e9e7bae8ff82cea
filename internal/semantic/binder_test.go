package semantic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ember/grammar"
	"ember/internal/ast"
	"ember/internal/errors"
)

func bindSource(t *testing.T, source string) ([]*ast.Contract, []errors.CompilerError) {
	t.Helper()
	unit, err := grammar.Parse("test.mbr", source)
	require.NoError(t, err, "source should parse")
	return Bind(unit)
}

func bindClean(t *testing.T, source string) []*ast.Contract {
	t.Helper()
	contracts, errs := bindSource(t, source)
	require.Empty(t, errs, "source should bind without diagnostics")
	return contracts
}

func errCodes(errs []errors.CompilerError) []string {
	codes := make([]string, len(errs))
	for i, e := range errs {
		codes[i] = e.Code
	}
	return codes
}

func TestDiamondLinearization(t *testing.T) {
	contracts := bindClean(t, `
contract A { }
contract B is A { }
contract C is A { }
contract D is B, C { }
`)
	require.Len(t, contracts, 4)
	d := contracts[3]
	require.Len(t, d.Linearized, 4)
	assert.Equal(t, "D", d.Linearized[0].Name)
	assert.Equal(t, "C", d.Linearized[1].Name)
	assert.Equal(t, "B", d.Linearized[2].Name)
	assert.Equal(t, "A", d.Linearized[3].Name)
}

func TestInconsistentLinearizationRejected(t *testing.T) {
	// B and C demand opposite orders of A and each other's shared bases.
	_, errs := bindSource(t, `
contract X { }
contract Y { }
contract B is X, Y { }
contract C is Y, X { }
contract D is B, C { }
`)
	assert.Contains(t, errCodes(errs), errors.ErrorLinearizationFailed)
}

func TestCyclicInheritanceRejected(t *testing.T) {
	_, errs := bindSource(t, `
contract A is B { }
contract B is A { }
`)
	assert.Contains(t, errCodes(errs), errors.ErrorCyclicInheritance)
}

func TestLibraryCannotInherit(t *testing.T) {
	_, errs := bindSource(t, `
contract A { }
library L is A { }
`)
	assert.Contains(t, errCodes(errs), errors.ErrorLibraryInheritance)
}

func TestLibraryStateVariableRejected(t *testing.T) {
	// library code executes in the caller's storage context, so a stored
	// initializer would silently write the caller's slots
	_, errs := bindSource(t, `
library L {
    uint256 seed = 5;
    function get() public returns (uint256 y) {
        y = seed;
    }
}
`)
	assert.Contains(t, errCodes(errs), errors.ErrorLibraryStateVariable)
}

func TestLibraryConstructorRejected(t *testing.T) {
	_, errs := bindSource(t, `
library L {
    constructor() {
    }
    function id(uint256 x) public returns (uint256 y) {
        y = x;
    }
}
`)
	assert.Contains(t, errCodes(errs), errors.ErrorLibraryConstructor)
}

func TestBaseConstructorArgsMostDerivedWins(t *testing.T) {
	contracts := bindClean(t, `
contract A {
    uint256 x;
    constructor(uint256 v) {
        x = v;
    }
}
contract B is A(1) { }
contract C is B {
    constructor() A(2) {
    }
}
`)
	b, c := contracts[1], contracts[2]
	a := contracts[0]

	require.Contains(t, b.BaseConstructorArgs, a)
	require.Len(t, b.BaseConstructorArgs[a], 1)
	lit, ok := b.BaseConstructorArgs[a][0].(*ast.Literal)
	require.True(t, ok)
	assert.Equal(t, uint64(1), lit.Value.Uint64())

	require.Contains(t, c.BaseConstructorArgs, a)
	lit, ok = c.BaseConstructorArgs[a][0].(*ast.Literal)
	require.True(t, ok)
	assert.Equal(t, uint64(2), lit.Value.Uint64(), "constructor-list mention overrides the inherited one")
}

func TestMissingBaseConstructorArgs(t *testing.T) {
	_, errs := bindSource(t, `
contract A {
    constructor(uint256 v) {
    }
}
contract B is A { }
`)
	assert.Contains(t, errCodes(errs), errors.ErrorMissingBaseArgs)
}

func TestDuplicateBaseConstructorArgs(t *testing.T) {
	_, errs := bindSource(t, `
contract A {
    constructor(uint256 v) {
    }
}
contract B is A(1) {
    constructor() A(2) {
    }
}
`)
	assert.Contains(t, errCodes(errs), errors.ErrorDuplicateBaseArgs,
		"inheritance list and constructor list must not both give arguments")
}

func TestBaseConstructorArgsOutOfScope(t *testing.T) {
	// C sits between D and A in the chain, so A's call is emitted in C's
	// frame where D's parameter is not live.
	_, errs := bindSource(t, `
contract A {
    constructor(uint256 v) {
    }
}
contract C is A(0) {
    constructor() {
    }
}
contract D is C {
    constructor(uint256 x) A(x) {
    }
}
`)
	assert.Contains(t, errCodes(errs), errors.ErrorBaseArgsOutOfScope)
}

func TestModifierResolution(t *testing.T) {
	contracts := bindClean(t, `
contract Base {
    address owner;
    modifier onlyOwner() {
        if (msg.sender == owner) {
            _;
        }
    }
}
contract Child is Base {
    uint256 n;
    function bump() public onlyOwner {
        n = n + 1;
    }
}
`)
	child := contracts[1]
	fn := child.Functions[0]
	require.Len(t, fn.Modifiers, 1)
	require.NotNil(t, fn.Modifiers[0].Modifier)
	assert.Equal(t, "onlyOwner", fn.Modifiers[0].Modifier.Name)
	assert.Nil(t, fn.Modifiers[0].Base)
}

func TestConstructorBaseInvocationBinds(t *testing.T) {
	contracts := bindClean(t, `
contract A {
    uint256 x;
    constructor(uint256 v) {
        x = v;
    }
}
contract B is A {
    constructor(uint256 v) A(v) {
    }
}
`)
	b := contracts[1]
	ctor := b.Constructor()
	require.NotNil(t, ctor)
	require.Len(t, ctor.Modifiers, 1)
	assert.NotNil(t, ctor.Modifiers[0].Base, "A(v) on a constructor is a base-constructor call")
}

func TestUnknownModifier(t *testing.T) {
	_, errs := bindSource(t, `
contract C {
    function f() public missing {
    }
}
`)
	assert.Contains(t, errCodes(errs), errors.ErrorUnknownModifier)
}

func TestBreakOutsideLoop(t *testing.T) {
	_, errs := bindSource(t, `
contract C {
    function f() public {
        break;
    }
}
`)
	assert.Contains(t, errCodes(errs), errors.ErrorBreakOutsideLoop)
}

func TestContinueOutsideLoop(t *testing.T) {
	_, errs := bindSource(t, `
contract C {
    function f() public {
        if (true) {
            continue;
        }
    }
}
`)
	assert.Contains(t, errCodes(errs), errors.ErrorContinueOutsideLoop)
}

func TestPlaceholderOutsideModifier(t *testing.T) {
	_, errs := bindSource(t, `
contract C {
    function f() public {
        _;
    }
}
`)
	assert.Contains(t, errCodes(errs), errors.ErrorPlaceholderOutsideBody)
}

func TestReturnValueInModifierRejected(t *testing.T) {
	_, errs := bindSource(t, `
contract C {
    modifier m() {
        return 1;
    }
}
`)
	assert.Contains(t, errCodes(errs), errors.ErrorReturnValueInModifier)
}

func TestReturnValueWithoutReturnVariable(t *testing.T) {
	_, errs := bindSource(t, `
contract C {
    function f() public {
        return 1;
    }
}
`)
	assert.Contains(t, errCodes(errs), errors.ErrorMissingReturnValue)
}

func TestConditionMustBeBool(t *testing.T) {
	_, errs := bindSource(t, `
contract C {
    function f(uint256 x) public {
        if (x) {
        }
    }
}
`)
	assert.Contains(t, errCodes(errs), errors.ErrorTypeMismatch)
}

func TestArithmeticTypeMismatch(t *testing.T) {
	_, errs := bindSource(t, `
contract C {
    function f(uint256 a, uint64 b) public returns (uint256 r) {
        r = a + b;
    }
}
`)
	assert.Contains(t, errCodes(errs), errors.ErrorTypeMismatch)
}

func TestLiteralTypedByContext(t *testing.T) {
	contracts := bindClean(t, `
contract C {
    function f(uint64 a) public returns (uint64 r) {
        r = a + 1;
    }
}
`)
	_ = contracts
}

func TestLiteralOverflowRejected(t *testing.T) {
	_, errs := bindSource(t, `
contract C {
    uint8 tiny = 300;
}
`)
	assert.Contains(t, errCodes(errs), errors.ErrorTypeMismatch)
}

func TestUndefinedIdentifier(t *testing.T) {
	_, errs := bindSource(t, `
contract C {
    function f() public {
        ghost = 1;
    }
}
`)
	assert.Contains(t, errCodes(errs), errors.ErrorUndefinedIdentifier)
}

func TestStateVariableVisibleInDerived(t *testing.T) {
	contracts := bindClean(t, `
contract Base {
    uint256 stored;
}
contract Child is Base {
    function get() public returns (uint256 v) {
        return stored;
    }
}
`)
	child := contracts[1]
	ret := child.Functions[0].Body.Stmts[0].(*ast.ReturnStmt)
	ident, ok := ret.Value.(*ast.Ident)
	require.True(t, ok)
	require.NotNil(t, ident.State)
	assert.Equal(t, "Base", ident.State.Contract.Name)
}

func TestInternalCallResolvesAlongLinearization(t *testing.T) {
	contracts := bindClean(t, `
contract Base {
    function helper() internal returns (uint256 v) {
        return 7;
    }
}
contract Child is Base {
    function get() public returns (uint256 v) {
        return helper();
    }
}
`)
	child := contracts[1]
	ret := child.Functions[0].Body.Stmts[0].(*ast.ReturnStmt)
	call, ok := ret.Value.(*ast.CallExpr)
	require.True(t, ok)
	require.NotNil(t, call.Callee)
	assert.Equal(t, "Base", call.Callee.Contract.Name)
}

func TestWrongArgumentCount(t *testing.T) {
	_, errs := bindSource(t, `
contract C {
    function g(uint256 a) internal {
    }
    function f() public {
        g(1, 2);
    }
}
`)
	assert.Contains(t, errCodes(errs), errors.ErrorWrongArgCount)
}

func TestDuplicateDeclarations(t *testing.T) {
	_, errs := bindSource(t, `
contract C {
    uint256 x;
    uint256 x;
}
`)
	assert.Contains(t, errCodes(errs), errors.ErrorDuplicateName)
}

func TestUnknownBaseContract(t *testing.T) {
	_, errs := bindSource(t, `
contract C is Ghost { }
`)
	assert.Contains(t, errCodes(errs), errors.ErrorUnknownBase)
}
