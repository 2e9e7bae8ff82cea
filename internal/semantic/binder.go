// Package semantic binds the raw grammar tree into the type-checked
// contract AST the code generator consumes: it resolves names, computes the
// inheritance linearization, resolves base-constructor arguments exactly
// once per base, and rejects the flow-control misuse the code generator is
// entitled to assume absent.
package semantic

import (
	"github.com/alecthomas/participle/v2/lexer"

	"ember/grammar"
	"ember/internal/ast"
	"ember/internal/errors"
	"ember/internal/types"
)

// Binder turns one parsed source unit into bound contracts.
type Binder struct {
	contracts map[string]*ast.Contract
	decls     map[string]*grammar.ContractDecl
	order     []*ast.Contract
	errs      []errors.CompilerError
	visiting  map[string]bool

	// per declaring contract: base -> constructor arguments written there
	specArgs map[*ast.Contract]map[*ast.Contract][]ast.Expr
	invArgs  map[*ast.Contract]map[*ast.Contract][]ast.Expr
}

// Bind binds a parsed source unit. The returned contracts are in source
// order. Any diagnostics mean the contracts must not be handed to the code
// generator.
func Bind(unit *grammar.SourceUnit) ([]*ast.Contract, []errors.CompilerError) {
	b := &Binder{
		contracts: map[string]*ast.Contract{},
		decls:     map[string]*grammar.ContractDecl{},
		visiting:  map[string]bool{},
		specArgs:  map[*ast.Contract]map[*ast.Contract][]ast.Expr{},
		invArgs:   map[*ast.Contract]map[*ast.Contract][]ast.Expr{},
	}

	for _, decl := range unit.Contracts {
		if _, dup := b.contracts[decl.Name]; dup {
			b.errorf(decl.Pos, errors.ErrorDuplicateName, "contract %q declared twice", decl.Name)
			continue
		}
		c := &ast.Contract{
			Pos:     pos(decl.Pos),
			Name:    decl.Name,
			Library: decl.Kind == "library",
		}
		b.contracts[decl.Name] = c
		b.decls[decl.Name] = decl
		b.order = append(b.order, c)
	}

	for _, c := range b.order {
		b.resolveHierarchy(c)
	}
	for _, c := range b.order {
		b.declareMembers(c)
	}
	for _, c := range b.order {
		b.bindBodies(c)
	}
	for _, c := range b.order {
		b.resolveBaseConstructorArgs(c)
	}

	return b.order, b.errs
}

func pos(p lexer.Position) ast.Position {
	return ast.Position{Filename: p.Filename, Line: p.Line, Column: p.Column}
}

func (b *Binder) errorf(p lexer.Position, code, format string, args ...any) {
	b.errs = append(b.errs, errors.Newf(code, pos(p), format, args...))
}

// resolveHierarchy resolves base references and computes the linearization.
func (b *Binder) resolveHierarchy(c *ast.Contract) {
	if c.Linearized != nil {
		return
	}
	decl := b.decls[c.Name]
	if b.visiting[c.Name] {
		b.errorf(decl.Pos, errors.ErrorCyclicInheritance, "cyclic inheritance involving %q", c.Name)
		c.Linearized = []*ast.Contract{c}
		return
	}
	b.visiting[c.Name] = true
	defer delete(b.visiting, c.Name)

	if c.Library && len(decl.Bases) > 0 {
		b.errorf(decl.Pos, errors.ErrorLibraryInheritance, "library %q cannot inherit", c.Name)
	}

	var direct []*ast.Contract
	for _, spec := range decl.Bases {
		base, ok := b.contracts[spec.Name]
		if !ok {
			b.errorf(spec.Pos, errors.ErrorUnknownBase, "unknown base contract %q", spec.Name)
			continue
		}
		b.resolveHierarchy(base)
		direct = append(direct, base)
		c.Bases = append(c.Bases, &ast.InheritanceSpecifier{
			Pos:     pos(spec.Pos),
			Name:    spec.Name,
			Base:    base,
			HasArgs: spec.Args != nil,
		})
	}

	c.Linearized = linearize(c, direct)
	if c.Linearized == nil {
		b.errorf(decl.Pos, errors.ErrorLinearizationFailed,
			"no consistent inheritance linearization for %q", c.Name)
		c.Linearized = []*ast.Contract{c}
	}
}

// declareMembers creates state variables and function/modifier shells so
// that bodies can reference members of any contract in the hierarchy.
func (b *Binder) declareMembers(c *ast.Contract) {
	decl := b.decls[c.Name]
	names := map[string]bool{}
	claim := func(p lexer.Position, name string) bool {
		if names[name] {
			b.errorf(p, errors.ErrorDuplicateName, "duplicate declaration of %q", name)
			return false
		}
		names[name] = true
		return true
	}

	for _, item := range decl.Items {
		switch {
		case item.StateVar != nil:
			sv := item.StateVar
			if c.Library {
				// deployed library code runs in the caller's storage
				// context, so a library has no storage of its own
				b.errorf(sv.Pos, errors.ErrorLibraryStateVariable,
					"library %q cannot declare state variable %q", c.Name, sv.Name)
				continue
			}
			if !claim(sv.Pos, sv.Name) {
				continue
			}
			c.StateVars = append(c.StateVars, &ast.StateVariable{
				Pos:      pos(sv.Pos),
				Name:     sv.Name,
				Type:     b.lookupType(sv.Type),
				Contract: c,
			})
		case item.Modifier != nil:
			m := item.Modifier
			if !claim(m.Pos, m.Name) {
				continue
			}
			c.Modifiers = append(c.Modifiers, &ast.ModifierDefinition{
				Pos:      pos(m.Pos),
				Name:     m.Name,
				Params:   b.bindParams(m.Params),
				Contract: c,
			})
		case item.Function != nil:
			f := item.Function
			if !claim(f.Pos, f.Name) {
				continue
			}
			vis := ast.Public
			if f.Visibility == "internal" {
				vis = ast.Internal
			}
			c.Functions = append(c.Functions, &ast.FunctionDefinition{
				Pos:        pos(f.Pos),
				Name:       f.Name,
				Visibility: vis,
				Payable:    f.Payable,
				Params:     b.bindParams(f.Params),
				Returns:    b.bindParams(f.Returns),
				Contract:   c,
			})
		case item.Constructor != nil:
			ct := item.Constructor
			if c.Library {
				b.errorf(ct.Pos, errors.ErrorLibraryConstructor,
					"library %q cannot have a constructor", c.Name)
				continue
			}
			if c.Constructor() != nil {
				b.errorf(ct.Pos, errors.ErrorDuplicateName, "contract %q has two constructors", c.Name)
				continue
			}
			c.Functions = append(c.Functions, &ast.FunctionDefinition{
				Pos:           pos(ct.Pos),
				Name:          c.Name,
				IsConstructor: true,
				Visibility:    ast.Internal,
				Params:        b.bindParams(ct.Params),
				Contract:      c,
			})
		case item.Fallback != nil:
			fb := item.Fallback
			if c.Fallback() != nil && c.Fallback().Contract == c {
				b.errorf(fb.Pos, errors.ErrorDuplicateName, "contract %q has two fallback functions", c.Name)
				continue
			}
			c.Functions = append(c.Functions, &ast.FunctionDefinition{
				Pos:        pos(fb.Pos),
				Name:       "",
				IsFallback: true,
				Visibility: ast.Public,
				Payable:    fb.Payable,
				Contract:   c,
			})
		}
	}
}

func (b *Binder) lookupType(ref *grammar.TypeRef) types.Type {
	t := types.Lookup(ref.Name)
	if t == nil {
		b.errorf(ref.Pos, errors.ErrorUnknownType, "unknown type %q", ref.Name)
		return types.U256
	}
	return t
}

func (b *Binder) bindParams(params []*grammar.ParamDecl) []*ast.VariableDeclaration {
	var out []*ast.VariableDeclaration
	for _, p := range params {
		out = append(out, &ast.VariableDeclaration{
			Pos:  pos(p.Pos),
			Name: p.Name,
			Type: b.lookupType(p.Type),
		})
	}
	return out
}

// bindBodies binds initializers, modifier bodies, function bodies and
// modifier/base-constructor invocation lists.
func (b *Binder) bindBodies(c *ast.Contract) {
	decl := b.decls[c.Name]
	b.specArgs[c] = map[*ast.Contract][]ast.Expr{}
	b.invArgs[c] = map[*ast.Contract][]ast.Expr{}

	// Inheritance-specifier constructor arguments, bound in contract scope.
	for i, spec := range c.Bases {
		gspec := decl.Bases[i]
		if gspec.Args == nil {
			continue
		}
		ctor := spec.Base.Constructor()
		spec.Args = b.bindCallArgs(gspec.Pos, gspec.Args.Args, ctorParams(ctor), c, nil)
		b.storeBaseArgs(b.specArgs[c], spec.Base, spec.Args, gspec.Pos)
	}

	var sawCtor, sawFallback bool
	for _, item := range decl.Items {
		switch {
		case item.StateVar != nil:
			sv := findStateVar(c, item.StateVar.Name)
			if sv == nil {
				continue
			}
			if item.StateVar.Value != nil {
				s := b.newScope(c, nil, nil)
				sv.Value = s.bindExpr(item.StateVar.Value, sv.Type)
			}
		case item.Modifier != nil:
			m := findModifier(c, item.Modifier.Name)
			if m == nil {
				continue
			}
			s := b.newScope(c, nil, m)
			s.declareAll(m.Params)
			m.Body = s.bindBlock(item.Modifier.Body)
		case item.Function != nil:
			f := findFunction(c, item.Function.Name)
			if f == nil {
				continue
			}
			b.bindInvocations(c, f, item.Function.Invocations, false)
			s := b.newScope(c, f, nil)
			s.declareAll(f.Params)
			s.declareAll(f.Returns)
			f.Body = s.bindBlock(item.Function.Body)
		case item.Constructor != nil:
			if sawCtor {
				continue
			}
			sawCtor = true
			f := c.Constructor()
			if f == nil {
				continue
			}
			b.bindInvocations(c, f, item.Constructor.Invocations, true)
			s := b.newScope(c, f, nil)
			s.declareAll(f.Params)
			f.Body = s.bindBlock(item.Constructor.Body)
		case item.Fallback != nil:
			if sawFallback {
				continue
			}
			sawFallback = true
			var f *ast.FunctionDefinition
			for _, fn := range c.Functions {
				if fn.IsFallback {
					f = fn
				}
			}
			if f == nil {
				continue
			}
			s := b.newScope(c, f, nil)
			f.Body = s.bindBlock(item.Fallback.Body)
		}
	}
}

// bindInvocations binds a function's modifier list. On constructors,
// invocations naming a base contract become base-constructor calls.
func (b *Binder) bindInvocations(c *ast.Contract, f *ast.FunctionDefinition, invs []*grammar.InvocationDecl, isCtor bool) {
	for _, inv := range invs {
		if base, ok := b.contracts[inv.Name]; ok && isCtor && isBaseOf(base, c) {
			var raw []*grammar.Expr
			if inv.Args != nil {
				raw = inv.Args.Args
			}
			// constructor parameters are in scope: the call is emitted
			// inside this constructor's frame
			args := b.bindCallArgs(inv.Pos, raw, ctorParams(base.Constructor()), c, f.Params)
			if _, dup := b.specArgs[c][base]; dup {
				b.errorf(inv.Pos, errors.ErrorDuplicateBaseArgs,
					"constructor arguments for base %q given twice", base.Name)
				continue
			}
			b.storeBaseArgs(b.invArgs[c], base, args, inv.Pos)
			f.Modifiers = append(f.Modifiers, &ast.ModifierInvocation{
				Pos:  pos(inv.Pos),
				Name: inv.Name,
				Args: args,
				Base: base,
			})
			continue
		}
		m := c.ResolveModifier(inv.Name)
		if m == nil {
			b.errorf(inv.Pos, errors.ErrorUnknownModifier, "unknown modifier %q", inv.Name)
			continue
		}
		var raw []*grammar.Expr
		if inv.Args != nil {
			raw = inv.Args.Args
		}
		args := b.bindCallArgs(inv.Pos, raw, m.Params, c, f.Params)
		f.Modifiers = append(f.Modifiers, &ast.ModifierInvocation{
			Pos:      pos(inv.Pos),
			Name:     inv.Name,
			Args:     args,
			Modifier: m,
		})
	}
}

// bindCallArgs binds an argument list against the target's parameters.
// visible lists additional declarations in scope (the calling function's
// parameters for modifier arguments; nil for base-constructor arguments,
// which are evaluated outside any function frame).
func (b *Binder) bindCallArgs(p lexer.Position, raw []*grammar.Expr, params []*ast.VariableDeclaration, c *ast.Contract, visible []*ast.VariableDeclaration) []ast.Expr {
	if len(raw) != len(params) {
		b.errorf(p, errors.ErrorWrongArgCount, "expected %d argument(s), got %d", len(params), len(raw))
		return nil
	}
	s := b.newScope(c, nil, nil)
	s.declareAll(visible)
	args := make([]ast.Expr, 0, len(raw))
	for i, r := range raw {
		args = append(args, s.bindExpr(r, params[i].Type))
	}
	return args
}

func (b *Binder) storeBaseArgs(m map[*ast.Contract][]ast.Expr, base *ast.Contract, args []ast.Expr, p lexer.Position) {
	if _, dup := m[base]; dup {
		b.errorf(p, errors.ErrorDuplicateBaseArgs, "constructor arguments for base %q given twice", base.Name)
		return
	}
	m[base] = args
}

// resolveBaseConstructorArgs picks, for every base with a constructor, the
// argument list that applies when c is the deployed contract: the most
// derived mention along the linearization wins, and the result is recorded
// exactly once so the code generator never evaluates an argument list twice.
//
// An argument list naming constructor parameters is evaluated inside the
// frame of the constructor that calls the base, so it is only valid when
// the declaring contract is that caller.
func (b *Binder) resolveBaseConstructorArgs(c *ast.Contract) {
	c.BaseConstructorArgs = map[*ast.Contract][]ast.Expr{}
	for _, base := range c.Linearized[1:] {
		ctor := base.Constructor()
		found := false
		var declarer *ast.Contract
		for _, d := range c.Linearized {
			if args, ok := b.invArgs[d][base]; ok {
				c.BaseConstructorArgs[base] = args
				found, declarer = true, d
				break
			}
			if args, ok := b.specArgs[d][base]; ok {
				c.BaseConstructorArgs[base] = args
				found, declarer = true, d
				break
			}
		}
		if !found {
			if ctor != nil && len(ctor.Params) > 0 {
				b.errs = append(b.errs, errors.Newf(errors.ErrorMissingBaseArgs, c.Pos,
					"no arguments given for constructor of base %q of %q", base.Name, c.Name))
			}
			continue
		}
		if refersToLocals(c.BaseConstructorArgs[base]) && declarer != baseCaller(c, base) {
			b.errs = append(b.errs, errors.Newf(errors.ErrorBaseArgsOutOfScope, c.Pos,
				"constructor arguments for base %q of %q reference parameters that are not in scope at the call",
				base.Name, c.Name))
		}
	}
}

// baseCaller returns the contract whose constructor frame the call to
// base's constructor is emitted in: the nearest more derived contract with
// a constructor. Nil means the call comes from creation top level.
func baseCaller(c *ast.Contract, base *ast.Contract) *ast.Contract {
	var caller *ast.Contract
	for _, d := range c.Linearized {
		if d == base {
			return caller
		}
		if d.Constructor() != nil {
			caller = d
		}
	}
	return caller
}

func refersToLocals(args []ast.Expr) bool {
	for _, arg := range args {
		if exprRefersToLocal(arg) {
			return true
		}
	}
	return false
}

func exprRefersToLocal(e ast.Expr) bool {
	switch e := e.(type) {
	case *ast.Ident:
		return e.Local != nil
	case *ast.UnaryExpr:
		return exprRefersToLocal(e.X)
	case *ast.BinaryExpr:
		return exprRefersToLocal(e.X) || exprRefersToLocal(e.Y)
	case *ast.AssignExpr:
		return e.Target.Local != nil || exprRefersToLocal(e.Value)
	case *ast.CallExpr:
		return refersToLocals(e.Args)
	}
	return false
}

func ctorParams(ctor *ast.FunctionDefinition) []*ast.VariableDeclaration {
	if ctor == nil {
		return nil
	}
	return ctor.Params
}

func isBaseOf(base, c *ast.Contract) bool {
	for _, l := range c.Linearized[1:] {
		if l == base {
			return true
		}
	}
	return false
}

func findStateVar(c *ast.Contract, name string) *ast.StateVariable {
	for _, sv := range c.StateVars {
		if sv.Name == name {
			return sv
		}
	}
	return nil
}

func findModifier(c *ast.Contract, name string) *ast.ModifierDefinition {
	for _, m := range c.Modifiers {
		if m.Name == name {
			return m
		}
	}
	return nil
}

func findFunction(c *ast.Contract, name string) *ast.FunctionDefinition {
	for _, f := range c.Functions {
		if !f.IsConstructor && !f.IsFallback && f.Name == name {
			return f
		}
	}
	return nil
}
