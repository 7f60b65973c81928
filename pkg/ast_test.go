package plume

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBlockValue(t *testing.T) {
	cases := []struct {
		src    string
		expect string // printed block value, empty means unit
	}{
		{"{ a; b + 1 }", "(b + 1)"},
		{"{ a; x := 1 }", ""},
		{"{ defer f() }", ""},
		{"{}", ""},
	}

	for _, c := range cases {
		ast, diags := NewFrontend().Parse("testing", c.src)
		assert.Empty(t, diags, c.src)

		blk := ast.Statements[0].(*Block)
		val := blk.Value()
		if c.expect == "" {
			assert.Nil(t, val, c.src)
			continue
		}

		if assert.NotNil(t, val, c.src) {
			assert.Equal(t, c.expect, Print(val), c.src)
		}
	}
}

func TestWalkPreOrder(t *testing.T) {
	ast, diags := NewFrontend().Parse("testing", "f(a + b, c)")
	assert.Empty(t, diags)

	var kinds []string
	Walk(ast.Statements[0], func(e Expr) bool {
		switch n := e.(type) {
		case *CallExpr:
			kinds = append(kinds, "call")
		case *BinaryExpr:
			kinds = append(kinds, string(n.Operation))
		case *Identifier:
			kinds = append(kinds, n.Name)
		}
		return true
	})

	assert.Equal(t, []string{"call", "f", "+", "a", "b", "c"}, kinds)
}

func TestWalkSkipsChildren(t *testing.T) {
	ast, diags := NewFrontend().Parse("testing", "f(a + b)")
	assert.Empty(t, diags)

	var seen []string
	Walk(ast.Statements[0], func(e Expr) bool {
		if id, ok := e.(*Identifier); ok {
			seen = append(seen, id.Name)
		}

		_, isBinary := e.(*BinaryExpr)
		return !isBinary
	})

	assert.Equal(t, []string{"f"}, seen)
}
