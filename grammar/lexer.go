package grammar

import (
	"github.com/alecthomas/participle/v2/lexer"
)

var EmberLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		// Comments
		{Name: "Comment", Pattern: `//[^\n]*`},

		// Keywords and identifiers (keywords are matched literally against
		// Ident tokens by the grammar)
		{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},

		// Integer literals
		{Name: "Integer", Pattern: `0x[0-9a-fA-F]+|[0-9]+`},

		// Operators
		{Name: "Operator", Pattern: `(\|\||&&|==|!=|<=|>=|[-+*/%<>=!])`},

		// Punctuation (must come after operators)
		{Name: "Punctuation", Pattern: `[{}(),;.]`},

		// Whitespace
		{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
	},
})
