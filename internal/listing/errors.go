// Completion: 100% - Diagnostics complete, clear and helpful messages
package listing

import (
	"fmt"
	"strings"
)

// Level indicates the severity of a diagnostic
type Level int

const (
	LevelWarning Level = iota
	LevelError
	LevelFatal
)

func (l Level) String() string {
	switch l {
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	case LevelFatal:
		return "fatal error"
	default:
		return "unknown"
	}
}

// Category classifies the type of diagnostic
type Category int

const (
	CategorySyntax Category = iota
	CategorySemantic
	CategoryAllocation
)

func (c Category) String() string {
	switch c {
	case CategorySyntax:
		return "syntax"
	case CategorySemantic:
		return "semantic"
	case CategoryAllocation:
		return "allocation"
	default:
		return "unknown"
	}
}

// Location is a position in a listing
type Location struct {
	File   string
	Line   int
	Column int
	Length int // Length of the problematic token
}

func (loc Location) String() string {
	if loc.File == "" {
		return fmt.Sprintf("%d:%d", loc.Line, loc.Column)
	}
	return fmt.Sprintf("%s:%d:%d", loc.File, loc.Line, loc.Column)
}

// Context provides additional context for a diagnostic
type Context struct {
	SourceLine string
	Suggestion string // "did you mean 'x'?"
	HelpText   string
}

// Diagnostic is a single problem found in a listing
type Diagnostic struct {
	Level    Level
	Category Category
	Message  string
	Location Location
	Context  Context
}

// Error implements the error interface
func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s", d.Location, d.Message)
}

// Format returns a nicely formatted message with context
func (d Diagnostic) Format(useColor bool) string {
	var sb strings.Builder
	paint := func(code, s string) {
		if useColor {
			sb.WriteString(code)
		}
		sb.WriteString(s)
		if useColor {
			sb.WriteString("\033[0m")
		}
	}

	paint("\033[1;31m", d.Level.String()+": ")
	sb.WriteString(d.Message)
	sb.WriteString("\n")
	paint("\033[1;34m", "  --> "+d.Location.String())
	sb.WriteString("\n")

	if d.Context.SourceLine != "" {
		lineNum := fmt.Sprintf("%d", d.Location.Line)
		padding := strings.Repeat(" ", len(lineNum)+1)
		sb.WriteString(padding + "|\n")
		sb.WriteString(lineNum + " | " + d.Context.SourceLine + "\n")
		sb.WriteString(padding + "| ")
		// Underline the error position
		if d.Location.Column > 0 {
			sb.WriteString(strings.Repeat(" ", d.Location.Column-1))
			paint("\033[1;31m", strings.Repeat("^", max(d.Location.Length, 1)))
			sb.WriteString("\n")
		}
	}
	if d.Context.Suggestion != "" {
		paint("\033[1;32m", "   help: ")
		sb.WriteString(d.Context.Suggestion + "\n")
	}
	if d.Context.HelpText != "" {
		paint("\033[1;36m", "   note: ")
		sb.WriteString(d.Context.HelpText + "\n")
	}
	return sb.String()
}

// ErrorCollector accumulates diagnostics while a listing is parsed
type ErrorCollector struct {
	errors     []Diagnostic
	warnings   []Diagnostic
	maxErrors  int
	sourceCode string
}

// NewErrorCollector creates a new collector
func NewErrorCollector(maxErrors int) *ErrorCollector {
	if maxErrors <= 0 {
		maxErrors = 10 // Default: stop after 10 errors
	}
	return &ErrorCollector{maxErrors: maxErrors}
}

// SetSourceCode stores the listing for error context
func (ec *ErrorCollector) SetSourceCode(source string) {
	ec.sourceCode = source
}

// Add records a diagnostic
func (ec *ErrorCollector) Add(d Diagnostic) {
	if d.Context.SourceLine == "" && ec.sourceCode != "" {
		d.Context.SourceLine = ec.getSourceLine(d.Location.Line)
	}
	if d.Level == LevelWarning {
		ec.warnings = append(ec.warnings, d)
		return
	}
	ec.errors = append(ec.errors, d)
}

func (ec *ErrorCollector) getSourceLine(lineNum int) string {
	if ec.sourceCode == "" || lineNum <= 0 {
		return ""
	}
	lines := strings.Split(ec.sourceCode, "\n")
	if lineNum > len(lines) {
		return ""
	}
	return lines[lineNum-1]
}

// HasErrors returns true if any errors were collected
func (ec *ErrorCollector) HasErrors() bool {
	return len(ec.errors) > 0
}

// ErrorCount returns the number of errors
func (ec *ErrorCollector) ErrorCount() int {
	return len(ec.errors)
}

// WarningCount returns the number of warnings
func (ec *ErrorCollector) WarningCount() int {
	return len(ec.warnings)
}

// Errors returns the collected errors
func (ec *ErrorCollector) Errors() []Diagnostic {
	return ec.errors
}

// ShouldStop returns true if we've hit the error limit
func (ec *ErrorCollector) ShouldStop() bool {
	return len(ec.errors) >= ec.maxErrors
}

// Report formats all errors and warnings for display
func (ec *ErrorCollector) Report(useColor bool) string {
	var sb strings.Builder
	all := append(append([]Diagnostic(nil), ec.errors...), ec.warnings...)
	for i, d := range all {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(d.Format(useColor))
	}
	if len(all) > 0 {
		sb.WriteString("\n")
		var parts []string
		if len(ec.errors) > 0 {
			parts = append(parts, fmt.Sprintf("%d error(s)", len(ec.errors)))
		}
		if len(ec.warnings) > 0 {
			parts = append(parts, fmt.Sprintf("%d warning(s)", len(ec.warnings)))
		}
		sb.WriteString(strings.Join(parts, ", ") + " found\n")
	}
	return sb.String()
}

// Err returns the collector as an error when it holds errors
func (ec *ErrorCollector) Err() error {
	if !ec.HasErrors() {
		return nil
	}
	return &ParseError{Collector: ec}
}

// ParseError carries every error of a listing
type ParseError struct {
	Collector *ErrorCollector
}

func (e *ParseError) Error() string {
	errs := e.Collector.errors
	if len(errs) == 1 {
		return errs[0].Error()
	}
	return fmt.Sprintf("%s (and %d more errors)", errs[0].Error(), len(errs)-1)
}

// SyntaxError creates a syntax error
func SyntaxError(message string, loc Location) Diagnostic {
	return Diagnostic{Level: LevelError, Category: CategorySyntax, Message: message, Location: loc}
}

// UndeclaredRegisterError creates an error for a name that is neither a virtual nor a literal
func UndeclaredRegisterError(name string, loc Location, similar []string) Diagnostic {
	d := Diagnostic{
		Level:    LevelError,
		Category: CategorySemantic,
		Message:  fmt.Sprintf("undeclared virtual register '%s'", name),
		Location: loc,
		Context:  Context{HelpText: "virtual registers must be declared with gpr, fpr, vec or pred before use"},
	}
	if len(similar) > 0 {
		d.Context.Suggestion = fmt.Sprintf("did you mean '%s'?", similar[0])
	}
	return d
}

// UnknownRealError creates an error for a register the target does not have
func UnknownRealError(name, target string, loc Location, similar []string) Diagnostic {
	d := Diagnostic{
		Level:    LevelError,
		Category: CategorySemantic,
		Message:  fmt.Sprintf("%s has no register '%s'", target, name),
		Location: loc,
	}
	if len(similar) > 0 {
		d.Context.Suggestion = fmt.Sprintf("did you mean '%s'?", similar[0])
	}
	return d
}
