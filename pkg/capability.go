package plume

// Capability is the declared access right of a reference. ReadOnly and
// WriteOnly sit below ReadWrite in the lattice and are incomparable to
// each other.
type Capability int

const (
	CapOwned Capability = iota
	CapRead
	CapWrite
	CapReadWrite
)

func (c Capability) String() string {
	switch c {
	case CapRead:
		return "&r"
	case CapWrite:
		return "&w"
	case CapReadWrite:
		return "&rw"
	default:
		return "owned"
	}
}

// Satisfies reports whether c is at least as permissive as want. This
// is the lattice comparison, not a numeric one.
func (c Capability) Satisfies(want Capability) bool {
	switch want {
	case CapRead:
		return c == CapRead || c == CapReadWrite
	case CapWrite:
		return c == CapWrite || c == CapReadWrite
	case CapReadWrite:
		return c == CapReadWrite
	default:
		return true
	}
}

func (c Capability) CanRead() bool {
	return c == CapRead || c == CapReadWrite
}

func (c Capability) CanWrite() bool {
	return c == CapWrite || c == CapReadWrite
}

// Policy decides what a variable declaration with neither 'r' nor 'w'
// flag means. The checker carries it as an explicit knob instead of
// hardcoding one interpretation.
type Policy int

const (
	// BareIsImmutable treats flagless declarations as assign-once.
	BareIsImmutable Policy = iota
	BareIsMutable
)

type binding struct {
	name     string
	declSpan Span
	isRef    bool
	cap      Capability // reference capability when isRef
	writable bool       // whether the binding itself may be re-assigned
}

// Checker walks a completed AST and verifies every use of a reference
// against its declared capability. It is a pure pass: running it twice
// over the same AST produces identical diagnostics. It never stops at
// the first violation.
type Checker struct {
	Policy Policy

	diags  *Bag
	scopes []map[string]*binding
	fns    map[string]*FnDecl
}

func NewChecker(diags *Bag) *Checker {
	return &Checker{
		Policy: BareIsImmutable,
		diags:  diags,
	}
}

func (c *Checker) Check(ast *AST) {
	c.scopes = []map[string]*binding{make(map[string]*binding)}
	c.fns = make(map[string]*FnDecl)

	// Functions are visible unit-wide, so collect them first.
	for _, stmt := range ast.Statements {
		if fn, ok := stmt.(*FnDecl); ok {
			c.fns[fn.Name] = fn
		}
	}

	for _, stmt := range ast.Statements {
		c.checkExpr(stmt)
	}
}

func (c *Checker) pushScope() {
	c.scopes = append(c.scopes, make(map[string]*binding))
}

func (c *Checker) popScope() {
	c.scopes = c.scopes[:len(c.scopes)-1]
}

func (c *Checker) define(b *binding) {
	c.scopes[len(c.scopes)-1][b.name] = b
}

func (c *Checker) lookup(name string) *binding {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if b, ok := c.scopes[i][name]; ok {
			return b
		}
	}

	return nil
}

func (c *Checker) checkExpr(e Expr) {
	switch n := e.(type) {
	case *Identifier:
		c.checkRead(n)
	case *TemplateExpr:
		for _, seg := range n.Segments {
			if seg.Expr != nil {
				c.checkExpr(seg.Expr)
			}
		}
	case *BinaryExpr:
		c.checkExpr(n.Op1)
		c.checkExpr(n.Op2)
	case *UnaryExpr:
		if n.Operation == UnaryIncr || n.Operation == UnaryDecr {
			// Increment both reads and writes its operand.
			if id, ok := n.Operand.(*Identifier); ok {
				c.checkRead(id)
			}
			c.checkWriteTarget(n.Operand)
			return
		}

		c.checkExpr(n.Operand)
	case *AssignExpr:
		c.checkWriteTarget(n.Target)
		c.checkExpr(n.Value)
	case *RefExpr:
		// Taking a reference is neither a read nor a write.
		if _, ok := n.Operand.(*Identifier); !ok {
			c.checkExpr(n.Operand)
		}
	case *CallExpr:
		c.checkCall(n)
	case *IndexExpr:
		if id, ok := n.Target.(*Identifier); ok {
			c.checkRead(id)
		} else {
			c.checkExpr(n.Target)
		}
		c.checkExpr(n.Index)
	case *Block:
		c.pushScope()
		for _, stmt := range n.Statements {
			c.checkExpr(stmt)
		}
		c.popScope()
	case *IfExpr:
		c.checkExpr(n.Cond)
		c.checkExpr(n.Then)
		if n.Else != nil {
			c.checkExpr(n.Else)
		}
	case *WhileExpr:
		c.checkExpr(n.Cond)
		c.checkExpr(n.Body)
	case *LoopExpr:
		c.checkExpr(n.Body)
	case *BreakExpr:
		if n.Value != nil {
			c.checkExpr(n.Value)
		}
	case *DeferExpr:
		c.checkExpr(n.Body)
	case *VarDecl:
		c.checkExpr(n.Value)
		c.defineVar(n)
	case *ConstDecl:
		c.checkExpr(n.Value)
		c.define(&binding{name: n.Name, declSpan: n.Span})
	case *FnDecl:
		c.checkFn(n)
	case *TypeDecl:
		c.checkTypeDef(n.Def)
	}
}

func (c *Checker) defineVar(n *VarDecl) {
	b := &binding{name: n.Name, declSpan: n.Span}

	if rt, ok := n.Type.(*RefType); ok {
		b.isRef = true
		b.cap = rt.Cap
	} else if ref, ok := n.Value.(*RefExpr); ok && n.Type == nil {
		b.isRef = true
		b.cap = ref.Cap
	}

	if n.HasFlags {
		b.writable = n.Writable
	} else {
		b.writable = c.Policy == BareIsMutable
	}

	c.define(b)
}

func (c *Checker) checkFn(fn *FnDecl) {
	c.pushScope()

	for _, param := range fn.Params {
		b := &binding{name: param.Name, declSpan: param.Span}
		if rt, ok := param.Type.(*RefType); ok {
			b.isRef = true
			b.cap = rt.Cap
		}

		c.define(b)
	}

	// The body's own Block pushes one more scope; that is fine, the
	// parameter scope just sits under it.
	c.checkExpr(fn.Body)
	c.popScope()
}

func (c *Checker) checkRead(id *Identifier) {
	b := c.lookup(id.Name)
	if b == nil || !b.isRef {
		return
	}

	if !b.cap.CanRead() {
		c.diags.Errorf(CapabilityViolation, id.Span,
			"cannot read through write-only reference '%s'", id.Name).
			WithNote(b.declSpan, "'%s' declared write-only here", id.Name)
	}
}

func (c *Checker) checkWriteTarget(target Expr) {
	switch t := target.(type) {
	case *Identifier:
		b := c.lookup(t.Name)
		if b == nil {
			return
		}

		if b.isRef {
			if !b.cap.CanWrite() {
				c.diags.Errorf(CapabilityViolation, t.Span,
					"cannot write through read-only reference '%s'", t.Name).
					WithNote(b.declSpan, "'%s' declared read-only here", t.Name)
			}
			return
		}

		if !b.writable {
			c.diags.Errorf(CapabilityViolation, t.Span,
				"cannot assign to immutable binding '%s'", t.Name).
				WithNote(b.declSpan, "'%s' declared without the 'w' flag here", t.Name)
		}
	case *IndexExpr:
		c.checkWriteTarget(t.Target)
		c.checkExpr(t.Index)
	default:
		c.checkExpr(target)
	}
}

// checkCall verifies that every reference argument is at least as
// permissive as the parameter it is bound to.
func (c *Checker) checkCall(call *CallExpr) {
	var fn *FnDecl
	if id, ok := call.Callee.(*Identifier); ok {
		fn = c.fns[id.Name]
	}
	// A callee that is not a declared function is an ordinary value
	// read, so a call through a write-only reference is a violation.
	if fn == nil {
		c.checkExpr(call.Callee)
	}

	for i, arg := range call.Args {
		var want *RefType
		var param *Param
		if fn != nil && i < len(fn.Params) {
			param = &fn.Params[i]
			want, _ = param.Type.(*RefType)
		}

		switch a := arg.(type) {
		case *RefExpr:
			if want != nil && !a.Cap.Satisfies(want.Cap) {
				c.diags.Errorf(CapabilityViolation, a.Span,
					"argument capability %s does not satisfy parameter capability %s",
					a.Cap, want.Cap).
					WithNote(param.Span, "parameter '%s' declared here", param.Name)
			}

			if _, ok := a.Operand.(*Identifier); !ok {
				c.checkExpr(a.Operand)
			}
		case *Identifier:
			b := c.lookup(a.Name)
			if b != nil && b.isRef {
				// Passing a reference along is not a dereference.
				if want != nil && !b.cap.Satisfies(want.Cap) {
					c.diags.Errorf(CapabilityViolation, a.Span,
						"argument capability %s does not satisfy parameter capability %s",
						b.cap, want.Cap).
						WithNote(b.declSpan, "'%s' declared %s here", a.Name, b.cap).
						WithNote(param.Span, "parameter '%s' declared here", param.Name)
				}
				continue
			}

			c.checkExpr(a)
		default:
			c.checkExpr(arg)
		}
	}
}

func (c *Checker) checkTypeDef(def TypeDef) {
	switch d := def.(type) {
	case *EnumDef:
		type used struct {
			span     Span
			explicit bool
		}

		seen := make(map[uint64]used)
		for _, v := range d.Variants {
			if !v.Resolved {
				continue
			}

			prev, dup := seen[v.Discriminant]
			if dup {
				// Explicit-vs-explicit pairs were already rejected by
				// the parser; report the rest here.
				if !(prev.explicit && v.ValueExpr != nil) {
					c.diags.Errorf(DuplicateEnumDiscriminant, v.Span,
						"enum discriminant %d is already used", v.Discriminant).
						WithNote(prev.span, "discriminant %d first used here", v.Discriminant)
				}
				continue
			}

			seen[v.Discriminant] = used{span: v.Span, explicit: v.ValueExpr != nil}
		}
	case *PackedStructDef:
		if d.Bits == 0 {
			return // backing type was malformed, already reported
		}

		total := 0
		for _, f := range d.Fields {
			total += f.Width
		}

		if total > d.Bits {
			c.diags.Errorf(PackedStructOverflow, d.Span,
				"packed struct fields need %d bits but backing type %s holds only %d",
				total, d.Backing, d.Bits)
		}
	}
}
