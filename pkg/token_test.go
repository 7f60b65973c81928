package plume

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpanContains(t *testing.T) {
	outer := Span{Start: 0, End: 10}
	assert.True(t, outer.Contains(Span{Start: 0, End: 10}))
	assert.True(t, outer.Contains(Span{Start: 3, End: 7}))
	assert.False(t, outer.Contains(Span{Start: 3, End: 11}))
	assert.False(t, outer.Contains(Span{Start: 10, End: 12}))
}

func TestNewSpanRejectsInvertedRange(t *testing.T) {
	assert.Panics(t, func() {
		NewSpan(5, 2, 1, 1)
	})
}

func TestTokenTypeString(t *testing.T) {
	assert.Equal(t, "Declaration", TokenDeclaration.String())
	assert.Equal(t, "Feather", TokenFeather.String())
	assert.Equal(t, "TokenType(9999)", TokenType(9999).String())
}
