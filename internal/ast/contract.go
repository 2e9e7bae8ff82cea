package ast

import "ember/internal/types"

// Visibility controls how a function can be reached.
type Visibility int

const (
	// Public functions are externally dispatchable and internally callable.
	Public Visibility = iota
	// Internal functions are only reachable through direct calls.
	Internal
)

// Contract is the compilation unit handed to the code generator. All
// reference fields (base links, linearization, resolved declarations) are
// filled in by the binder; the code generator trusts them and treats missing
// links as fatal internal errors.
type Contract struct {
	Pos     Position
	Name    string
	Library bool

	// Bases as written at the inheritance declaration, in source order.
	Bases []*InheritanceSpecifier

	StateVars []*StateVariable
	Functions []*FunctionDefinition
	Modifiers []*ModifierDefinition

	// Linearized is the full inheritance linearization, most-derived first;
	// Linearized[0] is the contract itself.
	Linearized []*Contract

	// BaseConstructorArgs maps each base with a constructor to the argument
	// list that applies when this contract is the deployed one. Resolved
	// exactly once per base by the binder: the most-derived mention wins.
	BaseConstructorArgs map[*Contract][]Expr
}

// Constructor returns the contract's own constructor, or nil.
func (c *Contract) Constructor() *FunctionDefinition {
	for _, f := range c.Functions {
		if f.IsConstructor {
			return f
		}
	}
	return nil
}

// Fallback returns the contract's fallback function, searching the
// linearization, or nil.
func (c *Contract) Fallback() *FunctionDefinition {
	for _, base := range c.Linearized {
		for _, f := range base.Functions {
			if f.IsFallback {
				return f
			}
		}
	}
	return nil
}

// ExternalFunctions returns the externally dispatchable functions of the
// whole hierarchy in linearization order, most-derived definitions shadowing
// base definitions of the same name.
func (c *Contract) ExternalFunctions() []*FunctionDefinition {
	var out []*FunctionDefinition
	seen := map[string]bool{}
	for _, base := range c.Linearized {
		for _, f := range base.Functions {
			if f.IsConstructor || f.IsFallback || f.Visibility != Public {
				continue
			}
			if seen[f.Name] {
				continue
			}
			seen[f.Name] = true
			out = append(out, f)
		}
	}
	return out
}

// ResolveModifier finds a modifier definition by name along the
// linearization.
func (c *Contract) ResolveModifier(name string) *ModifierDefinition {
	for _, base := range c.Linearized {
		for _, m := range base.Modifiers {
			if m.Name == name {
				return m
			}
		}
	}
	return nil
}

// InheritanceSpecifier is one entry of a contract's `is` list.
type InheritanceSpecifier struct {
	Pos  Position
	Name string
	// Base is resolved by the binder.
	Base *Contract
	// Args are the constructor arguments given at the declaration site.
	// HasArgs distinguishes `is A()` from `is A`.
	Args    []Expr
	HasArgs bool
}

// StateVariable is a contract storage variable. Storage slots are assigned
// by the code generator when compilation of the deployed contract starts.
type StateVariable struct {
	Pos      Position
	Name     string
	Type     types.Type
	Value    Expr // initializer, may be nil
	Contract *Contract
}

// FunctionDefinition covers ordinary functions, constructors and the
// fallback function.
type FunctionDefinition struct {
	Pos           Position
	Name          string
	Visibility    Visibility
	Payable       bool
	IsConstructor bool
	IsFallback    bool

	Params  []*VariableDeclaration
	Returns []*VariableDeclaration

	// Modifiers in source order. On constructors this list also carries
	// base-constructor invocations, which the sequencer skips.
	Modifiers []*ModifierInvocation

	Body     *Block
	Contract *Contract
}

// ParamSlots returns the stack slots occupied by the parameters.
func (f *FunctionDefinition) ParamSlots() int {
	n := 0
	for _, p := range f.Params {
		n += p.Type.Slots()
	}
	return n
}

// ReturnSlots returns the stack slots occupied by the return variables.
func (f *FunctionDefinition) ReturnSlots() int {
	n := 0
	for _, r := range f.Returns {
		n += r.Type.Slots()
	}
	return n
}

// ModifierDefinition is a named wrapper whose body runs around a function
// body wherever it contains a `_;` placeholder.
type ModifierDefinition struct {
	Pos      Position
	Name     string
	Params   []*VariableDeclaration
	Body     *Block
	Contract *Contract
}

// ModifierInvocation is one entry of a function's modifier list. Exactly one
// of Modifier and Base is non-nil after binding: Base marks a
// base-constructor call written in modifier position.
type ModifierInvocation struct {
	Pos      Position
	Name     string
	Args     []Expr
	Modifier *ModifierDefinition
	Base     *Contract
}

// VariableDeclaration is a parameter, return variable or local variable.
type VariableDeclaration struct {
	Pos  Position
	Name string
	Type types.Type
}
