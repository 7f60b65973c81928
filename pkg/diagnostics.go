package plume

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/fatih/color"
)

type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}

	return "error"
}

// Code identifies one entry of the diagnostic taxonomy.
type Code string

const (
	// Lexer
	UnterminatedString      Code = "UnterminatedString"
	UnterminatedCharLiteral Code = "UnterminatedCharLiteral"
	InvalidEscapeSequence   Code = "InvalidEscapeSequence"
	InvalidCharLiteral      Code = "InvalidCharLiteral"
	InvalidByteCharLiteral  Code = "InvalidByteCharLiteral"
	InvalidCStringLiteral   Code = "InvalidCStringLiteral"
	InvalidNumericLiteral   Code = "InvalidNumericLiteral"
	UnexpectedByte          Code = "UnexpectedByte"
	TemplateTooDeep         Code = "TemplateTooDeep"

	// Parser
	UnexpectedToken         Code = "UnexpectedToken"
	MissingClosingDelimiter Code = "MissingClosingDelimiter"
	DuplicateDiscriminant   Code = "DuplicateDiscriminant"
	MalformedDeclaration    Code = "MalformedDeclaration"

	// Checker
	CapabilityViolation       Code = "CapabilityViolation"
	DuplicateEnumDiscriminant Code = "DuplicateEnumDiscriminant"
	PackedStructOverflow      Code = "PackedStructOverflow"
)

// Note is a secondary "declared here" style annotation.
type Note struct {
	Message string
	Span    Span
}

type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Span     Span
	Notes    []Note
}

// WithNote attaches a secondary annotation. Only the goroutine that
// emitted the diagnostic may call it; the bag never copies or moves an
// entry once added, so the write cannot race with later appends.
func (d *Diagnostic) WithNote(span Span, format string, args ...any) *Diagnostic {
	d.Notes = append(d.Notes, Note{
		Message: fmt.Sprintf(format, args...),
		Span:    span,
	})

	return d
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s %s[%s]: %s", d.Span, d.Severity, d.Code, d.Message)
}

// Bag collects diagnostics from every front-end stage for one
// compilation unit. The lexer runs as a goroutine feeding the parser,
// so the bag is locked on every access. Entries are held by pointer so
// the *Diagnostic returned by Add stays valid for WithNote chaining no
// matter how many diagnostics are appended afterwards.
type Bag struct {
	mu    sync.Mutex
	diags []*Diagnostic
}

func NewBag() *Bag {
	return &Bag{}
}

func (b *Bag) Add(d Diagnostic) *Diagnostic {
	dp := &d

	b.mu.Lock()
	defer b.mu.Unlock()

	b.diags = append(b.diags, dp)
	return dp
}

func (b *Bag) Errorf(code Code, span Span, format string, args ...any) *Diagnostic {
	return b.Add(Diagnostic{
		Severity: SeverityError,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Span:     span,
	})
}

func (b *Bag) Warnf(code Code, span Span, format string, args ...any) *Diagnostic {
	return b.Add(Diagnostic{
		Severity: SeverityWarning,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Span:     span,
	})
}

func (b *Bag) HasErrors() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, d := range b.diags {
		if d.Severity == SeverityError {
			return true
		}
	}

	return false
}

func (b *Bag) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.diags)
}

// Diagnostics returns a copy ordered by primary span start offset. The
// sort is stable so same-offset diagnostics keep emission order.
func (b *Bag) Diagnostics() []Diagnostic {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Diagnostic, len(b.diags))
	for i, d := range b.diags {
		out[i] = *d
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Span.Start < out[j].Span.Start
	})

	return out
}

// Render formats a diagnostic as a caret snippet over the source:
//
//	main.pl:3:12: error[UnexpectedToken]: unexpected token ')'
//	   3 | r x : &r i32 = )
//	     |                ^
func Render(d Diagnostic, filename, src string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%s:%s: %s[%s]: %s\n", filename, d.Span, d.Severity, d.Code, d.Message)
	writeSnippet(&sb, src, d.Span)

	for _, n := range d.Notes {
		fmt.Fprintf(&sb, "%s:%s: note: %s\n", filename, n.Span, n.Message)
		writeSnippet(&sb, src, n.Span)
	}

	return sb.String()
}

// RenderColor is Render with ANSI colors for terminal output.
func RenderColor(d Diagnostic, filename, src string) string {
	head := color.New(color.Bold, color.FgRed)
	if d.Severity == SeverityWarning {
		head = color.New(color.Bold, color.FgYellow)
	}

	var sb strings.Builder

	fmt.Fprintf(&sb, "%s %s\n",
		head.Sprintf("%s:%s: %s[%s]:", filename, d.Span, d.Severity, d.Code),
		d.Message)
	writeSnippet(&sb, src, d.Span)

	note := color.New(color.Bold, color.FgCyan)
	for _, n := range d.Notes {
		fmt.Fprintf(&sb, "%s %s\n",
			note.Sprintf("%s:%s: note:", filename, n.Span),
			n.Message)
		writeSnippet(&sb, src, n.Span)
	}

	return sb.String()
}

func writeSnippet(sb *strings.Builder, src string, span Span) {
	if src == "" || span.Line < 1 {
		return
	}

	line, ok := sourceLine(src, span.Line)
	if !ok {
		return
	}

	col := span.Col
	if col < 1 {
		col = 1
	}
	if col > len(line)+1 {
		col = len(line) + 1
	}

	width := span.End - span.Start
	if width < 1 || col-1+width > len(line) {
		width = 1
	}

	fmt.Fprintf(sb, "%4d | %s\n", span.Line, line)
	fmt.Fprintf(sb, "     | %s%s\n", strings.Repeat(" ", col-1), strings.Repeat("^", width))
}

func sourceLine(src string, n int) (string, bool) {
	for i, line := range strings.Split(src, "\n") {
		if i+1 == n {
			return line, true
		}
	}

	return "", false
}
