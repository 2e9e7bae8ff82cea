package errors

import (
	"fmt"

	"ember/internal/ast"
)

// ErrorLevel represents the severity of a diagnostic.
type ErrorLevel string

const (
	Error   ErrorLevel = "error"
	Warning ErrorLevel = "warning"
	Note    ErrorLevel = "note"
)

// CompilerError is a user-facing diagnostic produced by the front end. The
// code generator itself never creates these; it trusts its input is
// well-formed.
type CompilerError struct {
	Level    ErrorLevel
	Code     string // error code like E0001
	Message  string
	Position ast.Position
	Notes    []string
}

func (e CompilerError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s[%s]: %s", e.Position, e.Level, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Position, e.Level, e.Message)
}

// Diagnostic error codes.
//
// E0001-E0099: name resolution
// E0100-E0199: syntax
// E0200-E0299: type errors
// E0400-E0499: contract structure
// E0600-E0699: flow control
const (
	ErrorUndefinedIdentifier = "E0001"
	ErrorUndefinedFunction   = "E0002"
	ErrorDuplicateName       = "E0003"

	ErrorSyntax = "E0100"

	ErrorTypeMismatch    = "E0201"
	ErrorNotAssignable   = "E0202"
	ErrorWrongArgCount   = "E0203"
	ErrorUnknownType     = "E0204"

	ErrorUnknownBase          = "E0401"
	ErrorDuplicateBaseArgs    = "E0402"
	ErrorCyclicInheritance    = "E0403"
	ErrorLinearizationFailed  = "E0404"
	ErrorUnknownModifier      = "E0405"
	ErrorMissingBaseArgs      = "E0406"
	ErrorLibraryInheritance   = "E0407"
	ErrorBaseArgsOutOfScope   = "E0408"
	ErrorLibraryStateVariable = "E0409"
	ErrorLibraryConstructor   = "E0410"

	ErrorBreakOutsideLoop        = "E0601"
	ErrorContinueOutsideLoop     = "E0602"
	ErrorPlaceholderOutsideBody  = "E0603"
	ErrorReturnValueInModifier   = "E0604"
	ErrorMissingReturnValue      = "E0605"
)

// New builds a diagnostic at a position.
func New(code, message string, pos ast.Position) CompilerError {
	return CompilerError{Level: Error, Code: code, Message: message, Position: pos}
}

// Newf builds a diagnostic with a formatted message.
func Newf(code string, pos ast.Position, format string, args ...any) CompilerError {
	return New(code, fmt.Sprintf(format, args...), pos)
}
