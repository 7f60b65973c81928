package plume

type AST struct {
	Filename   string
	Statements []Expr
}

// Expr is any AST node. Every node carries the source span it was
// parsed from; child spans are contained in their parent's span.
type Expr interface {
	GetSpan() Span
}

type BadExpr struct {
	Span  Span
	Error string
}

type LiteralKind int

const (
	LiteralInt LiteralKind = iota
	LiteralFloat
	LiteralBool
	LiteralChar
	LiteralByteChar
	LiteralString
	LiteralByteString
	LiteralCString
)

// LiteralExpr keeps the raw lexeme in Value and the decoded value in
// Val (uint64, float64, bool, rune, byte or string by kind).
type LiteralExpr struct {
	Span  Span
	Kind  LiteralKind
	Value string
	Val   any
}

// TemplateExpr is an interpolated string. A segment is either literal
// text (Expr nil) or an embedded expression (Text empty). Segments may
// nest arbitrarily deep: an embedded expression can itself contain a
// TemplateExpr.
type TemplateExpr struct {
	Span     Span
	Segments []TemplateSegment
}

type TemplateSegment struct {
	Text string
	Expr Expr
}

type Identifier struct {
	Span Span
	Name string
}

type BinaryOp string

const (
	BinaryAddition       BinaryOp = "+"
	BinarySubtraction    BinaryOp = "-"
	BinaryMultiplication BinaryOp = "*"
	BinaryDivision       BinaryOp = "/"
	BinaryModulo         BinaryOp = "%"
	BinaryPower          BinaryOp = "**"
	BinaryEquals         BinaryOp = "=="
	BinaryNotEquals      BinaryOp = "!="
	BinaryLess           BinaryOp = "<"
	BinaryGreater        BinaryOp = ">"
	BinaryLessEqual      BinaryOp = "<="
	BinaryGreaterEqual   BinaryOp = ">="
	BinaryLShift         BinaryOp = "<<"
	BinaryRShift         BinaryOp = ">>"
	BinaryBitAnd         BinaryOp = "&"
	BinaryBitOr          BinaryOp = "|"
	BinaryBitXor         BinaryOp = "^"
	BinaryAnd            BinaryOp = "and"
	BinaryOr             BinaryOp = "or"
	BinaryXor            BinaryOp = "xor"
)

type BinaryExpr struct {
	Span      Span
	Operation BinaryOp
	Op1       Expr
	Op2       Expr
}

type UnaryOp string

const (
	UnaryNegative UnaryOp = "-"
	UnaryNot      UnaryOp = "not"
	UnaryBitNot   UnaryOp = "~"
	UnaryIncr     UnaryOp = "++"
	UnaryDecr     UnaryOp = "--"
)

// UnaryExpr covers both prefix forms (not, -, ~) and the postfix
// increment and decrement, distinguished by Postfix.
type UnaryExpr struct {
	Span      Span
	Operation UnaryOp
	Operand   Expr
	Postfix   bool
}

type AssignExpr struct {
	Span   Span
	Target Expr
	Value  Expr
}

// RefExpr takes a reference to Operand with an explicit capability,
// as in `&r x` or `&rw buf`.
type RefExpr struct {
	Span    Span
	Cap     Capability
	Operand Expr
}

type CallExpr struct {
	Span   Span
	Callee Expr
	Args   []Expr
}

type IndexExpr struct {
	Span   Span
	Target Expr
	Index  Expr
}

// Block is an ordered statement list; the last expression is the
// block's value. Defers holds the block's DeferExpr nodes in
// registration order.
type Block struct {
	Span       Span
	Statements []Expr
	Defers     []*DeferExpr
}

// DeferRunOrder returns the block's defers in execution order, which
// is the reverse of registration order.
func (b *Block) DeferRunOrder() []*DeferExpr {
	out := make([]*DeferExpr, len(b.Defers))
	for i, d := range b.Defers {
		out[len(b.Defers)-1-i] = d
	}

	return out
}

// Value returns the expression a block evaluates to: its last
// statement, unless that is a statement-only form.
func (b *Block) Value() Expr {
	if len(b.Statements) == 0 {
		return nil
	}

	switch last := b.Statements[len(b.Statements)-1].(type) {
	case *DeferExpr, *VarDecl, *ConstDecl, *FnDecl, *TypeDecl:
		return nil
	default:
		return last
	}
}

type IfExpr struct {
	Span Span
	Cond Expr
	Then Expr
	Else Expr // nil means the absent branch yields unit
}

// WhileExpr covers both `while C do BODY` and `do BODY while C`,
// distinguished by the condition-position flag.
type WhileExpr struct {
	Span    Span
	Cond    Expr
	Body    Expr
	DoWhile bool
}

// LoopExpr records every break that targets it, skipping breaks inside
// nested loops.
type LoopExpr struct {
	Span   Span
	Body   *Block
	Breaks []*BreakExpr
}

type BreakExpr struct {
	Span  Span
	Value Expr // optional
}

type ContinueExpr struct {
	Span Span
}

type DeferExpr struct {
	Span Span
	Body Expr
}

// VarDecl is the `r? w? NAME : TYPE? = EXPR` runtime declaration.
// HasFlags distinguishes a bare declaration from one that spelled its
// mutability; the checker applies its policy to bare ones.
type VarDecl struct {
	Span     Span
	Name     string
	Readable bool
	Writable bool
	HasFlags bool
	Type     TypeExpr // nil when inferred
	Value    Expr
}

// ConstDecl is the `NAME :: EXPR` compile-time binding.
type ConstDecl struct {
	Span  Span
	Name  string
	Pub   bool
	Value Expr
}

type Param struct {
	Span Span
	Name string
	Type TypeExpr
}

type FnDecl struct {
	Span   Span
	Name   string
	Pub    bool
	Params []Param
	Return TypeExpr // nil means unit
	Body   *Block
}

type TypeDecl struct {
	Span Span
	Name string
	Pub  bool
	Def  TypeDef
}

type TypeDef interface {
	GetSpan() Span
}

// EnumVariant's discriminant is resolved by the parser when it can be
// proven lexically; computed discriminants keep Resolved false and are
// re-checked by the capability checker pass.
type EnumVariant struct {
	Span         Span
	Name         string
	ValueExpr    Expr // explicit discriminant expression, nil if implicit
	Discriminant uint64
	Resolved     bool
	Payload      TypeExpr // nil means unit payload
}

type EnumDef struct {
	Span     Span
	Variants []EnumVariant
}

type PackedField struct {
	Span  Span
	Name  string
	Width int
}

// PackedStructDef packs its fields into a backing integer; fields
// occupy bits in declaration order.
type PackedStructDef struct {
	Span    Span
	Backing string
	Bits    int
	Fields  []PackedField
}

type AliasDef struct {
	Span Span
	Type TypeExpr
}

type TypeExpr interface {
	GetSpan() Span
}

type NamedType struct {
	Span Span
	Name string
}

type RefType struct {
	Span Span
	Cap  Capability
	Elem TypeExpr
}

func (e *BadExpr) GetSpan() Span         { return e.Span }
func (e *LiteralExpr) GetSpan() Span     { return e.Span }
func (e *TemplateExpr) GetSpan() Span    { return e.Span }
func (e *Identifier) GetSpan() Span      { return e.Span }
func (e *BinaryExpr) GetSpan() Span      { return e.Span }
func (e *UnaryExpr) GetSpan() Span       { return e.Span }
func (e *AssignExpr) GetSpan() Span      { return e.Span }
func (e *RefExpr) GetSpan() Span         { return e.Span }
func (e *CallExpr) GetSpan() Span        { return e.Span }
func (e *IndexExpr) GetSpan() Span       { return e.Span }
func (e *Block) GetSpan() Span           { return e.Span }
func (e *IfExpr) GetSpan() Span          { return e.Span }
func (e *WhileExpr) GetSpan() Span       { return e.Span }
func (e *LoopExpr) GetSpan() Span        { return e.Span }
func (e *BreakExpr) GetSpan() Span       { return e.Span }
func (e *ContinueExpr) GetSpan() Span    { return e.Span }
func (e *DeferExpr) GetSpan() Span       { return e.Span }
func (e *VarDecl) GetSpan() Span         { return e.Span }
func (e *ConstDecl) GetSpan() Span       { return e.Span }
func (e *FnDecl) GetSpan() Span          { return e.Span }
func (e *TypeDecl) GetSpan() Span        { return e.Span }
func (e *EnumDef) GetSpan() Span         { return e.Span }
func (e *PackedStructDef) GetSpan() Span { return e.Span }
func (e *AliasDef) GetSpan() Span        { return e.Span }
func (e *NamedType) GetSpan() Span       { return e.Span }
func (e *RefType) GetSpan() Span         { return e.Span }

// Walk traverses the tree rooted at e in pre-order. If fn returns
// false the node's children are skipped.
func Walk(e Expr, fn func(Expr) bool) {
	if e == nil || !fn(e) {
		return
	}

	switch n := e.(type) {
	case *TemplateExpr:
		for _, seg := range n.Segments {
			if seg.Expr != nil {
				Walk(seg.Expr, fn)
			}
		}
	case *BinaryExpr:
		Walk(n.Op1, fn)
		Walk(n.Op2, fn)
	case *UnaryExpr:
		Walk(n.Operand, fn)
	case *AssignExpr:
		Walk(n.Target, fn)
		Walk(n.Value, fn)
	case *RefExpr:
		Walk(n.Operand, fn)
	case *CallExpr:
		Walk(n.Callee, fn)
		for _, arg := range n.Args {
			Walk(arg, fn)
		}
	case *IndexExpr:
		Walk(n.Target, fn)
		Walk(n.Index, fn)
	case *Block:
		for _, stmt := range n.Statements {
			Walk(stmt, fn)
		}
	case *IfExpr:
		Walk(n.Cond, fn)
		Walk(n.Then, fn)
		if n.Else != nil {
			Walk(n.Else, fn)
		}
	case *WhileExpr:
		Walk(n.Cond, fn)
		Walk(n.Body, fn)
	case *LoopExpr:
		Walk(n.Body, fn)
	case *BreakExpr:
		if n.Value != nil {
			Walk(n.Value, fn)
		}
	case *DeferExpr:
		Walk(n.Body, fn)
	case *VarDecl:
		Walk(n.Value, fn)
	case *ConstDecl:
		Walk(n.Value, fn)
	case *FnDecl:
		Walk(n.Body, fn)
	case *TypeDecl:
		if def, ok := n.Def.(*EnumDef); ok {
			for _, v := range def.Variants {
				if v.ValueExpr != nil {
					Walk(v.ValueExpr, fn)
				}
			}
		}
	}
}
