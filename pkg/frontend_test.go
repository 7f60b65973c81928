package plume

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrontendRun(t *testing.T) {
	src := `
counter :: fn(start : u64) -> u64 {
	w n := start;
	n = n + 1;
	n
}
`
	ast, diags := NewFrontend().Run("testing", src)

	assert.Empty(t, diags)
	assert.Len(t, ast.Statements, 1)
}

// One run reports problems from every stage, ordered by position.
func TestFrontendCollectsAllStages(t *testing.T) {
	src := "x := @; y := ); w z := 0; p := &r z; p = 1"
	_, diags := NewFrontend().Run("testing", src)

	codes := make(map[Code]bool)
	for _, d := range diags {
		codes[d.Code] = true
	}

	assert.True(t, codes[UnexpectedByte], "lexer stage")
	assert.True(t, codes[UnexpectedToken], "parser stage")
	assert.True(t, codes[CapabilityViolation], "checker stage")

	assert.True(t, sort.SliceIsSorted(diags, func(i, j int) bool {
		return diags[i].Span.Start < diags[j].Span.Start
	}))
}

func TestFrontendRunFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.pl")
	err := os.WriteFile(path, []byte("x := 42"), 0o644)
	assert.NoError(t, err)

	ast, diags, err := NewFrontend().RunFile(path)
	assert.NoError(t, err)
	assert.Empty(t, diags)
	assert.Equal(t, path, ast.Filename)

	_, _, err = NewFrontend().RunFile(filepath.Join(t.TempDir(), "missing.pl"))
	assert.Error(t, err)
}
