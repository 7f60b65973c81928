package plume

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrintExpr(t *testing.T) {
	cases := []struct {
		src    string
		expect string
	}{
		{"1 + 2", "(1 + 2)"},
		{"x = y", "x = y"},
		{"&rw buf", "&rw buf"},
		{"f(1, 2)[i]", "f(1, 2)[i]"},
		{"not done", "(not done)"},
		{"x++", "(x++)"},
		{"if c then a else b", "if c then a else b"},
		{"while c do step()", "while c do step()"},
		{"do step() while c", "do step() while c"},
		{`$"a\n{x}\{b\}"`, `$"a\n{x}\{b\}"`},
		{`'a' b'z' "s\t" b"bs" c"cs"`, `'a'`},
		{"x := 5", "x := 5"},
		{"rw x : u8 = 5", "rw x : u8 = 5"},
	}

	for _, c := range cases {
		ast, diags := NewFrontend().Parse("testing", c.src)
		assert.Empty(t, diags, c.src)

		if assert.NotEmpty(t, ast.Statements, c.src) {
			assert.Equal(t, c.expect, Print(ast.Statements[0]), c.src)
		}
	}
}

// Printing a parsed tree and parsing the output again must reach a
// fixed point: same text, no new diagnostics.
func TestPrintRoundTrip(t *testing.T) {
	sources := []string{
		"x := 1 + 2 * 3",
		"w total : u64 = 0; total = total + 1",
		"p := &r y; q := &rw y",
		`greet :: fn(name : str) -> str { $"hello, {name}!" }`,
		"pub limit :: 512",
		"Handle :: &r File",
		"Mode :: enum { Read, Write = 4, Append(i32), }",
		"Flags :: packed struct u16 { ready, kind : 3, pad : 12, }",
		"main :: fn() { defer close(f); loop { if done then break 1; continue } }",
		"do { x = x - 1 } while x > 0",
		`msg := $"a {$"b {1 + 1} c"} d"`,
		`esc := $"brace \{x\} and {y}"`,
		"v := { a := 1; a ** 2 ** 3 }",
		"b := not (x and y) or ~z",
		"c := 'ඞ'; d := b'a'; s := c\"zero\"",
	}

	for _, src := range sources {
		fe := NewFrontend()

		ast, diags := fe.Parse("testing", src)
		if !assert.Empty(t, diags, src) {
			continue
		}

		first := PrintAST(ast)

		ast2, diags2 := fe.Parse("testing", first)
		if !assert.Empty(t, diags2, "reparse of %q:\n%s", src, first) {
			continue
		}

		assert.Equal(t, first, PrintAST(ast2), src)
	}
}

func TestPrintTemplateSegments(t *testing.T) {
	tmpl := &TemplateExpr{
		Segments: []TemplateSegment{
			{Text: "a{b}"},
			{Expr: &Identifier{Name: "x"}},
			{Text: "\n"},
		},
	}

	assert.Equal(t, `$"a\{b\}{x}\n"`, Print(tmpl))
}
