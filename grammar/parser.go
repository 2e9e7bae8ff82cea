package grammar

import (
	"fmt"

	"github.com/alecthomas/participle/v2"

	"ember/internal/ast"
	"ember/internal/errors"
)

// Parse parses Ember source text into the raw grammar tree. Binding and
// type checking happen in internal/semantic.
func Parse(filename, source string) (*SourceUnit, error) {
	parser, err := participle.Build[SourceUnit](
		participle.Lexer(EmberLexer),
		participle.Elide("Whitespace", "Comment"),
		participle.UseLookahead(3),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build parser: %w", err)
	}

	unit, err := parser.ParseString(filename, source)
	if err != nil {
		return nil, err
	}
	return unit, nil
}

// Diagnostic converts a syntax error from Parse into a positioned compiler
// diagnostic. Reports false for errors that carry no source position.
func Diagnostic(err error) (errors.CompilerError, bool) {
	pe, ok := err.(participle.Error)
	if !ok {
		return errors.CompilerError{}, false
	}
	p := pe.Position()
	return errors.New(errors.ErrorSyntax, pe.Message(),
		ast.Position{Filename: p.Filename, Line: p.Line, Column: p.Column}), true
}
