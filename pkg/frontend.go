package plume

import (
	"io"
	"os"
)

// Frontend wires the lexer, parser and capability checker into a
// single pipeline. A zero-value configuration uses the defaults:
// bare declarations immutable, unbounded template nesting.
type Frontend struct {
	Policy   Policy
	MaxDepth int
}

func NewFrontend() *Frontend {
	return &Frontend{Policy: BareIsImmutable}
}

// Run parses and checks src, returning the AST alongside every
// diagnostic collected by any stage. The AST is always non-nil; on
// errors it holds the recovered portions of the input.
func (f *Frontend) Run(filename, src string) (*AST, []Diagnostic) {
	diags := NewBag()

	lexer := NewLexer(filename, src, diags)
	lexer.MaxDepth = f.MaxDepth

	parser := NewParser(lexer, diags)
	ast := parser.Run()

	checker := NewChecker(diags)
	checker.Policy = f.Policy
	checker.Check(ast)

	return ast, diags.Diagnostics()
}

// Parse runs the lexer and parser without capability checking.
func (f *Frontend) Parse(filename, src string) (*AST, []Diagnostic) {
	diags := NewBag()

	lexer := NewLexer(filename, src, diags)
	lexer.MaxDepth = f.MaxDepth

	parser := NewParser(lexer, diags)
	ast := parser.Run()

	return ast, diags.Diagnostics()
}

func (f *Frontend) RunFile(filename string) (*AST, []Diagnostic, error) {
	src, err := os.ReadFile(filename)
	if err != nil {
		return nil, nil, err
	}

	ast, diags := f.Run(filename, string(src))
	return ast, diags, nil
}

func (f *Frontend) RunFromReader(filename string, reader io.Reader) (*AST, []Diagnostic, error) {
	src, err := io.ReadAll(reader)
	if err != nil {
		return nil, nil, err
	}

	ast, diags := f.Run(filename, string(src))
	return ast, diags, nil
}
