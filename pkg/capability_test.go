package plume

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCapabilitySatisfies(t *testing.T) {
	cases := []struct {
		have   Capability
		want   Capability
		expect bool
	}{
		{CapRead, CapRead, true},
		{CapWrite, CapWrite, true},
		{CapReadWrite, CapRead, true},
		{CapReadWrite, CapWrite, true},
		{CapReadWrite, CapReadWrite, true},
		{CapRead, CapWrite, false},
		{CapWrite, CapRead, false},
		{CapRead, CapReadWrite, false},
		{CapWrite, CapReadWrite, false},
		{CapOwned, CapOwned, true},
		{CapRead, CapOwned, true},
	}

	for _, c := range cases {
		assert.Equal(t, c.expect, c.have.Satisfies(c.want),
			"%s satisfies %s", c.have, c.want)
	}
}

func checkSource(t *testing.T, src string, policy Policy) []Diagnostic {
	t.Helper()

	fe := NewFrontend()
	fe.Policy = policy
	_, diags := fe.Run("testing", src)

	return diags
}

func TestCheckerReferences(t *testing.T) {
	cases := []struct {
		name string
		src  string
		code Code // empty means no diagnostics expected
	}{
		{
			"write through read-only reference",
			"w y := 0; p := &r y; p = 1",
			CapabilityViolation,
		},
		{
			"read through write-only reference",
			"w y := 0; p := &w y; z := p + 1",
			CapabilityViolation,
		},
		{
			"increment reads through a write-only reference",
			"w y := 0; p := &w y; p++",
			CapabilityViolation,
		},
		{
			"read-write reference allows both",
			"w y := 0; p := &rw y; p = p + 1",
			"",
		},
		{
			"declared reference type wins over initializer",
			"w y := 0; p : &r i32 = &r y; p = 1",
			CapabilityViolation,
		},
		{
			"write-only reference may be written",
			"w y := 0; p := &w y; p = 3",
			"",
		},
		{
			"taking a reference is not a use",
			"w y := 0; p := &w y; q := &w y",
			"",
		},
		{
			"assign to immutable bare binding",
			"x := 1; x = 2",
			CapabilityViolation,
		},
		{
			"assign to w-flagged binding",
			"w x := 1; x = 2",
			"",
		},
		{
			"r-flagged binding rejects writes",
			"r x := 1; x = 2",
			CapabilityViolation,
		},
		{
			"index write goes through the base binding",
			"buf := f(); buf[0] = 1",
			CapabilityViolation,
		},
		{
			"shadowing in a nested block",
			"x := 1; { w x := 2; x = 3 }",
			"",
		},
		{
			"reads inside templates are checked",
			`w y := 0; p := &w y; s := $"value {p}"`,
			CapabilityViolation,
		},
	}

	for _, c := range cases {
		diags := checkSource(t, c.src, BareIsImmutable)

		if c.code == "" {
			assert.Empty(t, diags, c.name)
			continue
		}

		if assert.NotEmpty(t, diags, c.name) {
			last := diags[len(diags)-1]
			assert.Equal(t, c.code, last.Code, c.name)
		}
	}
}

func TestCheckerPolicy(t *testing.T) {
	src := "x := 1; x = 2"

	assert.NotEmpty(t, checkSource(t, src, BareIsImmutable))
	assert.Empty(t, checkSource(t, src, BareIsMutable))
}

func TestCheckerViolationNotes(t *testing.T) {
	src := "w y := 0; p := &r y; p = 1"
	diags := checkSource(t, src, BareIsImmutable)

	if !assert.Len(t, diags, 1) {
		return
	}

	d := diags[0]
	assert.Equal(t, CapabilityViolation, d.Code)

	// The note points back at the declaration, before the bad write.
	if assert.Len(t, d.Notes, 1) {
		assert.Less(t, d.Notes[0].Span.Start, d.Span.Start)
	}
}

func TestCheckerCalls(t *testing.T) {
	cases := []struct {
		name string
		src  string
		fail bool
	}{
		{
			"literal reference argument narrows",
			"sink :: fn(p : &rw i32) {}\nw y := 0\nsink(&r y)",
			true,
		},
		{
			"matching capability passes",
			"sink :: fn(p : &r i32) {}\nw y := 0\nsink(&r y)",
			false,
		},
		{
			"read-write satisfies read",
			"sink :: fn(p : &r i32) {}\nw y := 0\nsink(&rw y)",
			false,
		},
		{
			"forwarded reference keeps its capability",
			"sink :: fn(p : &rw i32) {}\nw y := 0\nq := &r y\nsink(q)",
			true,
		},
		{
			"forwarding a reference is not a dereference",
			"sink :: fn(p : &w i32) {}\nw y := 0\nq := &w y\nsink(q)",
			false,
		},
		{
			"parameter capability applies inside the body",
			"sink :: fn(p : &r i32) { p = 1 }",
			true,
		},
		{
			"non-reference arguments are plain reads",
			"sink :: fn(p : i32) {}\nx := 1\nsink(x)",
			false,
		},
		{
			"calling through a write-only reference is a read",
			"w y := 0\np := &w y\np()",
			true,
		},
		{
			"calling through a readable reference passes",
			"w y := 0\np := &r y\np()",
			false,
		},
	}

	for _, c := range cases {
		diags := checkSource(t, c.src, BareIsImmutable)
		if c.fail {
			assert.NotEmpty(t, diags, c.name)
		} else {
			assert.Empty(t, diags, c.name)
		}
	}
}

func TestCheckerEnumAndPacked(t *testing.T) {
	cases := []struct {
		name string
		src  string
		code Code
	}{
		{
			"implicit discriminant collides with explicit",
			"E :: enum { A, B = 0, }",
			DuplicateEnumDiscriminant,
		},
		{
			"auto-increment collides after explicit reset",
			"E :: enum { A = 3, B, C = 4, }",
			DuplicateEnumDiscriminant,
		},
		{
			"packed struct overflows its backing type",
			"P :: packed struct u8 { a : 5, b : 4, }",
			PackedStructOverflow,
		},
		{
			"packed struct that exactly fits",
			"P :: packed struct u8 { a : 5, b : 3, }",
			"",
		},
	}

	for _, c := range cases {
		diags := checkSource(t, c.src, BareIsImmutable)

		if c.code == "" {
			assert.Empty(t, diags, c.name)
			continue
		}

		if assert.NotEmpty(t, diags, c.name) {
			assert.Equal(t, c.code, diags[len(diags)-1].Code, c.name)
		}
	}
}

// Running the checker twice over one AST must not change its output.
func TestCheckerIsIdempotent(t *testing.T) {
	src := "w y := 0; p := &r y; p = 1; p = 2"

	diags := NewBag()
	ast := NewParser(NewLexer("testing", src, diags), diags).Run()
	assert.Empty(t, diags.Diagnostics())

	checker := NewChecker(diags)
	checker.Check(ast)
	first := diags.Len()

	checker.Check(ast)
	assert.Equal(t, first*2, diags.Len())
	assert.Equal(t, 2, first)
}
