package errors

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// ErrorReporter renders diagnostics with source context and a caret, in the
// style of modern compiler output.
type ErrorReporter struct {
	filename string
	lines    []string
}

// NewErrorReporter creates a reporter for one source file.
func NewErrorReporter(filename, source string) *ErrorReporter {
	return &ErrorReporter{
		filename: filename,
		lines:    strings.Split(source, "\n"),
	}
}

// FormatError formats one diagnostic.
func (er *ErrorReporter) FormatError(err CompilerError) string {
	var result strings.Builder

	levelColor := er.levelColor(err.Level)
	dim := color.New(color.Faint).SprintFunc()

	if err.Code != "" {
		result.WriteString(fmt.Sprintf("%s[%s]: %s\n",
			levelColor(string(err.Level)), err.Code, err.Message))
	} else {
		result.WriteString(fmt.Sprintf("%s: %s\n",
			levelColor(string(err.Level)), err.Message))
	}

	result.WriteString(fmt.Sprintf("  %s %s:%d:%d\n",
		dim("-->"), er.filename, err.Position.Line, err.Position.Column))

	if err.Position.Line >= 1 && err.Position.Line <= len(er.lines) {
		line := er.lines[err.Position.Line-1]
		num := fmt.Sprintf("%d", err.Position.Line)
		pad := strings.Repeat(" ", len(num))
		result.WriteString(fmt.Sprintf("%s %s\n", dim(pad+" |"), ""))
		result.WriteString(fmt.Sprintf("%s %s\n", dim(num+" |"), line))
		caret := strings.Repeat(" ", max(err.Position.Column-1, 0)) + levelColor("^")
		result.WriteString(fmt.Sprintf("%s %s\n", dim(pad+" |"), caret))
	}

	for _, note := range err.Notes {
		result.WriteString(fmt.Sprintf("  %s %s\n", dim("= note:"), note))
	}

	return result.String()
}

func (er *ErrorReporter) levelColor(level ErrorLevel) func(a ...interface{}) string {
	switch level {
	case Warning:
		return color.New(color.FgYellow, color.Bold).SprintFunc()
	case Note:
		return color.New(color.FgCyan, color.Bold).SprintFunc()
	default:
		return color.New(color.FgRed, color.Bold).SprintFunc()
	}
}
