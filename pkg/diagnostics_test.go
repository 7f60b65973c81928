package plume

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBagOrdersBySpan(t *testing.T) {
	b := NewBag()
	b.Errorf(UnexpectedToken, Span{Start: 9, End: 10, Line: 2, Col: 1}, "second")
	b.Errorf(UnexpectedByte, Span{Start: 2, End: 3, Line: 1, Col: 3}, "first")
	b.Warnf(UnexpectedToken, Span{Start: 9, End: 10, Line: 2, Col: 1}, "third")

	ds := b.Diagnostics()
	if assert.Len(t, ds, 3) {
		assert.Equal(t, "first", ds[0].Message)
		// Equal offsets keep emission order.
		assert.Equal(t, "second", ds[1].Message)
		assert.Equal(t, "third", ds[2].Message)
	}

	assert.True(t, b.HasErrors())
	assert.Equal(t, 3, b.Len())
}

func TestBagWarningsAreNotErrors(t *testing.T) {
	b := NewBag()
	b.Warnf(TemplateTooDeep, Span{}, "deep")

	assert.False(t, b.HasErrors())
	assert.Equal(t, 1, b.Len())
}

func TestDiagnosticNotes(t *testing.T) {
	b := NewBag()
	b.Errorf(CapabilityViolation, Span{Start: 10, End: 11, Line: 1, Col: 11}, "bad write").
		WithNote(Span{Start: 0, End: 1, Line: 1, Col: 1}, "declared here")

	ds := b.Diagnostics()
	if assert.Len(t, ds, 1) && assert.Len(t, ds[0].Notes, 1) {
		assert.Equal(t, "declared here", ds[0].Notes[0].Message)
	}
}

func TestDiagnosticNotesAfterMoreErrors(t *testing.T) {
	b := NewBag()
	d := b.Errorf(UnexpectedToken, Span{Start: 0, End: 1, Line: 1, Col: 1}, "first")

	// Enough later entries to force the bag's backing storage to grow.
	for i := 1; i <= 32; i++ {
		b.Errorf(UnexpectedToken, Span{Start: i, End: i + 1, Line: 1, Col: i + 1}, "later")
	}

	d.WithNote(Span{Start: 0, End: 1, Line: 1, Col: 1}, "declared here")

	ds := b.Diagnostics()
	if assert.Len(t, ds, 33) && assert.Len(t, ds[0].Notes, 1) {
		assert.Equal(t, "declared here", ds[0].Notes[0].Message)
	}
}

func TestRender(t *testing.T) {
	src := "x := 1\ny = )"
	d := Diagnostic{
		Severity: SeverityError,
		Code:     UnexpectedToken,
		Message:  "unexpected token ')'",
		Span:     Span{Start: 11, End: 12, Line: 2, Col: 5},
	}

	expect := "main.pl:2:5: error[UnexpectedToken]: unexpected token ')'\n" +
		"   2 | y = )\n" +
		"     |     ^\n"

	assert.Equal(t, expect, Render(d, "main.pl", src))
}

func TestRenderNote(t *testing.T) {
	src := "r x := 1\nx = 2"
	d := Diagnostic{
		Severity: SeverityError,
		Code:     CapabilityViolation,
		Message:  "cannot assign to immutable binding 'x'",
		Span:     Span{Start: 9, End: 10, Line: 2, Col: 1},
		Notes: []Note{
			{Message: "'x' declared here", Span: Span{Start: 0, End: 8, Line: 1, Col: 1}},
		},
	}

	out := Render(d, "main.pl", src)

	assert.Contains(t, out, "main.pl:2:1: error[CapabilityViolation]")
	assert.Contains(t, out, "main.pl:1:1: note: 'x' declared here")
	assert.Contains(t, out, "   1 | r x := 1\n     | ^^^^^^^^\n")
}

func TestDiagnosticString(t *testing.T) {
	d := Diagnostic{
		Severity: SeverityWarning,
		Code:     TemplateTooDeep,
		Message:  "too deep",
		Span:     Span{Start: 4, End: 5, Line: 1, Col: 5},
	}

	assert.Equal(t, "1:5 warning[TemplateTooDeep]: too deep", d.String())
}
