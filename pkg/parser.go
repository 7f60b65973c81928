package plume

import (
	"fmt"
	"strings"
)

type Tokenizer interface {
	Do()
	Get() Token
	GetFilename() string
}

// Parser consumes the token stream and produces one AST per
// compilation unit. Malformed input never panics: every production
// emits a diagnostic and resynchronizes at the next statement
// terminator or closing delimiter.
type Parser struct {
	filename  string
	tokenizer Tokenizer
	diags     *Bag

	buf     []Token
	last    Span
	started bool

	// loops holds the enclosing loop frames; a nil entry is a while
	// frame, which breaks may target but which records nothing.
	loops  []*LoopExpr
	blocks []*Block
}

func NewParser(tokenizer Tokenizer, diags *Bag) *Parser {
	return &Parser{
		tokenizer: tokenizer,
		filename:  tokenizer.GetFilename(),
		diags:     diags,
	}
}

func (p *Parser) GetFilename() string {
	return p.filename
}

func (p *Parser) Run() *AST {
	if !p.started {
		go p.tokenizer.Do()
		p.started = true
	}

	ast := &AST{Filename: p.filename}
	for !p.peek().isEOF() {
		if p.peek().Typ == TokenSemi {
			p.next()
			continue
		}

		ast.Statements = append(ast.Statements, p.statement())
	}

	return ast
}

// fill buffers lookahead. Once EOF is buffered it is never consumed,
// so the parser cannot read past the end of the stream.
func (p *Parser) fill(n int) {
	for len(p.buf) < n {
		if k := len(p.buf); k > 0 && p.buf[k-1].isEOF() {
			p.buf = append(p.buf, p.buf[k-1])
			continue
		}

		tok := p.tokenizer.Get()
		if tok.isComment() {
			continue
		}

		p.buf = append(p.buf, tok)
	}
}

func (p *Parser) peek() Token {
	p.fill(1)
	return p.buf[0]
}

func (p *Parser) peek2() Token {
	p.fill(2)
	return p.buf[1]
}

func (p *Parser) next() Token {
	p.fill(1)

	tok := p.buf[0]
	if !tok.isEOF() {
		p.buf = p.buf[1:]
		p.last = tok.Span
	}

	return tok
}

func (p *Parser) expect(typ TokenType) *Token {
	tok := p.next()
	if tok.Typ != typ {
		return nil
	}

	return &tok
}

func (p *Parser) check(typ TokenType) bool {
	return p.peek().Typ == typ
}

func (p *Parser) consume(typ TokenType) bool {
	return p.next().Typ == typ
}

func (p *Parser) errorExpr(span Span, code Code, format string, args ...any) Expr {
	msg := fmt.Sprintf(format, args...)
	p.diags.Errorf(code, span, "%s", msg)

	return &BadExpr{Span: span, Error: msg}
}

// resync skips ahead to the next statement boundary or the start of
// the next declaration.
func (p *Parser) resync() {
	for {
		switch p.peek().Typ {
		case TokenEOF, TokenCloseCurly, TokenPub:
			return
		case TokenSemi:
			p.next()
			return
		case TokenIdentifier:
			if t2 := p.peek2().Typ; t2 == TokenDeclaration || t2 == TokenColon {
				return
			}

			// A capability flag leads the declared name, so look one
			// token past it.
			if isFlagIdent(p.peek().Value) && p.peek2().Typ == TokenIdentifier {
				return
			}

			p.next()
		default:
			p.next()
		}
	}
}

func spanJoin(a, b Span) Span {
	end := b.End
	if end < a.End {
		end = a.End
	}

	return Span{Start: a.Start, End: end, Line: a.Line, Col: a.Col}
}

func isFlagIdent(s string) bool {
	return s == "r" || s == "w" || s == "rw"
}

func (p *Parser) statement() Expr {
	switch tok := p.peek(); {
	case tok.Typ == TokenPub:
		return p.pubDecl()
	case tok.Typ == TokenIdentifier && p.peek2().Typ == TokenDeclaration:
		return p.constDecl(tok.Span, false)
	case tok.Typ == TokenIdentifier && isFlagIdent(tok.Value) && p.peek2().Typ == TokenIdentifier:
		return p.varDecl()
	case tok.Typ == TokenIdentifier && p.peek2().Typ == TokenColon:
		return p.varDecl()
	default:
		expr := p.expr()
		if _, bad := expr.(*BadExpr); bad {
			p.resync()
		}

		return expr
	}
}

func (p *Parser) pubDecl() Expr {
	pub := p.next()

	if p.peek().Typ != TokenIdentifier || p.peek2().Typ != TokenDeclaration {
		bad := p.errorExpr(pub.Span, MalformedDeclaration, "'pub' must be followed by a '::' declaration")
		p.resync()
		return bad
	}

	return p.constDecl(pub.Span, true)
}

// constDecl parses the `NAME :: ...` family: functions, enums, packed
// structs, type aliases and compile-time constants.
func (p *Parser) constDecl(start Span, pub bool) Expr {
	name := p.next() // identifier, checked by the caller
	p.next()         // ::

	switch p.peek().Typ {
	case TokenFn:
		return p.fnDecl(start, name.Value, pub)
	case TokenEnum:
		return p.enumDecl(start, name.Value, pub)
	case TokenPacked:
		return p.packedStructDecl(start, name.Value, pub)
	case TokenStruct:
		bad := p.errorExpr(p.peek().Span, MalformedDeclaration,
			"plain structs are not supported, use 'packed struct'")
		p.resync()
		return bad
	case TokenAmpersand:
		typ := p.typeExpr()
		return &TypeDecl{
			Span: spanJoin(start, p.last),
			Name: name.Value,
			Pub:  pub,
			Def:  &AliasDef{Span: typ.GetSpan(), Type: typ},
		}
	case TokenIdentifier:
		if t2 := p.peek2().Typ; t2 == TokenSemi || t2 == TokenCloseCurly || t2 == TokenEOF {
			typ := p.typeExpr()
			return &TypeDecl{
				Span: spanJoin(start, p.last),
				Name: name.Value,
				Pub:  pub,
				Def:  &AliasDef{Span: typ.GetSpan(), Type: typ},
			}
		}
	}

	value := p.expr()
	if _, bad := value.(*BadExpr); bad {
		p.resync()
	}

	return &ConstDecl{
		Span:  spanJoin(start, p.last),
		Name:  name.Value,
		Pub:   pub,
		Value: value,
	}
}

func (p *Parser) fnDecl(start Span, name string, pub bool) Expr {
	p.next() // fn

	if !p.consume(TokenOpenParentheses) {
		return p.errorExpr(p.last, UnexpectedToken, "expected '(' after 'fn'")
	}

	var params []Param
	for !p.check(TokenCloseParentheses) && !p.peek().isEOF() {
		pname := p.expect(TokenIdentifier)
		if pname == nil {
			return p.errorExpr(p.last, UnexpectedToken, "expected parameter name")
		}

		if !p.consume(TokenColon) {
			return p.errorExpr(p.last, UnexpectedToken, "expected ':' after parameter name")
		}

		ptype := p.typeExpr()
		params = append(params, Param{
			Span: spanJoin(pname.Span, p.last),
			Name: pname.Value,
			Type: ptype,
		})

		if !p.check(TokenComma) {
			break
		}

		p.next()
	}

	if !p.consume(TokenCloseParentheses) {
		return p.errorExpr(p.last, MissingClosingDelimiter, "missing ')' in parameter list")
	}

	var ret TypeExpr
	if p.check(TokenArrow) {
		p.next()
		ret = p.typeExpr()
	}

	if !p.check(TokenOpenCurly) {
		return p.errorExpr(p.last, UnexpectedToken, "expected function body")
	}

	return &FnDecl{
		Span:   spanJoin(start, p.last),
		Name:   name,
		Pub:    pub,
		Params: params,
		Return: ret,
		Body:   p.blockExpr(),
	}
}

func (p *Parser) enumDecl(start Span, name string, pub bool) Expr {
	kw := p.next() // enum

	if !p.consume(TokenOpenCurly) {
		bad := p.errorExpr(p.last, MalformedDeclaration, "expected '{' after 'enum'")
		p.resync()
		return bad
	}

	type used struct {
		span     Span
		explicit bool
	}

	def := &EnumDef{}
	next := uint64(0)
	seen := make(map[uint64]used)

	for !p.check(TokenCloseCurly) && !p.peek().isEOF() {
		vname := p.expect(TokenIdentifier)
		if vname == nil {
			p.diags.Errorf(UnexpectedToken, p.last, "expected enum variant name")
			break
		}

		v := EnumVariant{Span: vname.Span, Name: vname.Value}

		if p.check(TokenOpenParentheses) {
			p.next()
			v.Payload = p.typeExpr()
			if !p.consume(TokenCloseParentheses) {
				p.diags.Errorf(MissingClosingDelimiter, p.last, "missing ')' after variant payload type")
			}
		}

		if p.check(TokenAssign) {
			p.next()
			v.ValueExpr = p.expr()

			switch lit := v.ValueExpr.(type) {
			case *LiteralExpr:
				if lit.Kind == LiteralInt {
					v.Discriminant = lit.Val.(uint64)
					v.Resolved = true
					next = v.Discriminant + 1
				} else {
					p.diags.Errorf(MalformedDeclaration, lit.Span,
						"enum discriminant must be a non-negative integer")
				}
			case *UnaryExpr:
				if lit.Operation == UnaryNegative {
					p.diags.Errorf(MalformedDeclaration, lit.Span,
						"enum discriminant must be a non-negative integer")
				}
			}
		} else {
			v.Discriminant = next
			v.Resolved = true
			next++
		}

		v.Span = spanJoin(vname.Span, p.last)

		// Duplicates provable from the literals alone are rejected
		// here; collisions involving computed or implicit values are
		// reported by the checker.
		if v.Resolved {
			prev, dup := seen[v.Discriminant]
			if dup && v.ValueExpr != nil && prev.explicit {
				p.diags.Errorf(DuplicateDiscriminant, v.Span,
					"duplicate enum discriminant %d", v.Discriminant).
					WithNote(prev.span, "discriminant %d first used here", v.Discriminant)
			}
			if !dup {
				seen[v.Discriminant] = used{span: v.Span, explicit: v.ValueExpr != nil}
			}
		}

		def.Variants = append(def.Variants, v)

		if !p.check(TokenComma) {
			break
		}

		p.next()
	}

	if !p.consume(TokenCloseCurly) {
		p.diags.Errorf(MissingClosingDelimiter, p.last, "missing '}' in enum declaration")
	}

	def.Span = spanJoin(kw.Span, p.last)

	return &TypeDecl{
		Span: spanJoin(start, p.last),
		Name: name,
		Pub:  pub,
		Def:  def,
	}
}

var backingBits = map[string]int{"u8": 8, "u16": 16, "u32": 32, "u64": 64}

func (p *Parser) packedStructDecl(start Span, name string, pub bool) Expr {
	kw := p.next() // packed

	if !p.consume(TokenStruct) {
		bad := p.errorExpr(p.last, MalformedDeclaration, "expected 'struct' after 'packed'")
		p.resync()
		return bad
	}

	backing := p.expect(TokenIdentifier)
	if backing == nil {
		bad := p.errorExpr(p.last, MalformedDeclaration, "expected backing integer type after 'packed struct'")
		p.resync()
		return bad
	}

	bits, ok := backingBits[backing.Value]
	if !ok {
		p.diags.Errorf(MalformedDeclaration, backing.Span,
			"invalid packed struct backing type '%s', expected u8, u16, u32 or u64", backing.Value)
	}

	def := &PackedStructDef{Backing: backing.Value, Bits: bits}

	if !p.consume(TokenOpenCurly) {
		bad := p.errorExpr(p.last, MalformedDeclaration, "expected '{' in packed struct declaration")
		p.resync()
		return bad
	}

	for !p.check(TokenCloseCurly) && !p.peek().isEOF() {
		fname := p.expect(TokenIdentifier)
		if fname == nil {
			p.diags.Errorf(UnexpectedToken, p.last, "expected packed struct field name")
			break
		}

		field := PackedField{Span: fname.Span, Name: fname.Value, Width: 1}

		if p.check(TokenColon) {
			p.next()

			width := p.expect(TokenInt)
			if width == nil {
				p.diags.Errorf(MalformedDeclaration, p.last, "packed struct field width must be an integer literal")
			} else {
				field.Width = int(width.Val.(uint64))
				field.Span = spanJoin(fname.Span, width.Span)
				if field.Width < 1 {
					p.diags.Errorf(MalformedDeclaration, width.Span, "packed struct field width must be at least 1")
					field.Width = 1
				}
			}
		}

		def.Fields = append(def.Fields, field)

		if !p.check(TokenComma) {
			break
		}

		p.next()
	}

	if !p.consume(TokenCloseCurly) {
		p.diags.Errorf(MissingClosingDelimiter, p.last, "missing '}' in packed struct declaration")
	}

	def.Span = spanJoin(kw.Span, p.last)

	return &TypeDecl{
		Span: spanJoin(start, p.last),
		Name: name,
		Pub:  pub,
		Def:  def,
	}
}

func (p *Parser) varDecl() Expr {
	start := p.peek().Span

	readable, writable, hasFlags := false, false, false
	if tok := p.peek(); isFlagIdent(tok.Value) && p.peek2().Typ == TokenIdentifier {
		flags := p.next().Value
		hasFlags = true
		readable = strings.Contains(flags, "r")
		writable = strings.Contains(flags, "w")
	}

	name := p.expect(TokenIdentifier)
	if name == nil {
		bad := p.errorExpr(p.last, MalformedDeclaration, "expected variable name")
		p.resync()
		return bad
	}

	if !p.consume(TokenColon) {
		bad := p.errorExpr(p.last, MalformedDeclaration, "expected ':' in variable declaration")
		p.resync()
		return bad
	}

	var typ TypeExpr
	if !p.check(TokenAssign) {
		typ = p.typeExpr()
	}

	if !p.consume(TokenAssign) {
		bad := p.errorExpr(p.last, MalformedDeclaration, "variable declaration requires an initializer")
		p.resync()
		return bad
	}

	value := p.expr()
	if _, bad := value.(*BadExpr); bad {
		p.resync()
	}

	return &VarDecl{
		Span:     spanJoin(start, p.last),
		Name:     name.Value,
		Readable: readable,
		Writable: writable,
		HasFlags: hasFlags,
		Type:     typ,
		Value:    value,
	}
}

func (p *Parser) typeExpr() TypeExpr {
	switch tok := p.peek(); tok.Typ {
	case TokenAmpersand:
		amp := p.next()

		c, ok := p.capability()
		if !ok {
			return &NamedType{Span: amp.Span, Name: "<error>"}
		}

		elem := p.typeExpr()
		return &RefType{Span: spanJoin(amp.Span, p.last), Cap: c, Elem: elem}
	case TokenIdentifier:
		t := p.next()
		return &NamedType{Span: t.Span, Name: t.Value}
	default:
		p.diags.Errorf(UnexpectedToken, tok.Span, "expected a type, found '%s'", tok.Value)
		if !tok.isEOF() {
			p.next()
		}

		return &NamedType{Span: tok.Span, Name: "<error>"}
	}
}

// capability parses the r/w/rw marker that must follow '&'.
func (p *Parser) capability() (Capability, bool) {
	tok := p.peek()
	if tok.Typ == TokenIdentifier {
		switch tok.Value {
		case "r":
			p.next()
			return CapRead, true
		case "w":
			p.next()
			return CapWrite, true
		case "rw":
			p.next()
			return CapReadWrite, true
		}
	}

	p.diags.Errorf(UnexpectedToken, tok.Span, "expected capability marker 'r', 'w' or 'rw' after '&'")
	return CapRead, false
}

func (p *Parser) expr() Expr {
	lhs := p.binaryExpr(1)

	if p.check(TokenAssign) {
		p.next()
		rhs := p.expr()

		return &AssignExpr{
			Span:   spanJoin(lhs.GetSpan(), p.last),
			Target: lhs,
			Value:  rhs,
		}
	}

	return lhs
}

// binaryPrec orders the binary operators from loosest to tightest.
// The keyword operators use the same table as the symbolic ones.
var binaryPrec = map[TokenType]int{
	TokenOr: 1, TokenXor: 1,
	TokenAnd:    2,
	TokenEquals: 3, TokenNotEquals: 3,
	TokenLess: 4, TokenGreater: 4, TokenLessEqual: 4, TokenGreaterEqual: 4,
	TokenPipe: 5, TokenCaret: 5, TokenAmpersand: 5,
	TokenLShift: 6, TokenRShift: 6,
	TokenPlus: 7, TokenMinus: 7,
	TokenMulti: 8, TokenDiv: 8, TokenModulo: 8,
	TokenPow: 9,
}

func (p *Parser) binaryExpr(minPrec int) Expr {
	lhs := p.unaryExpr()

	for {
		tok := p.peek()

		prec, ok := binaryPrec[tok.Typ]
		if !ok || prec < minPrec {
			return lhs
		}

		p.next()

		nextMin := prec + 1
		if tok.Typ == TokenPow { // right-associative
			nextMin = prec
		}

		rhs := p.binaryExpr(nextMin)
		lhs = &BinaryExpr{
			Span:      spanJoin(lhs.GetSpan(), p.last),
			Operation: BinaryOp(tok.Value),
			Op1:       lhs,
			Op2:       rhs,
		}
	}
}

func (p *Parser) unaryExpr() Expr {
	switch tok := p.peek(); tok.Typ {
	case TokenNot, TokenMinus, TokenTilde:
		p.next()
		operand := p.unaryExpr()

		return &UnaryExpr{
			Span:      spanJoin(tok.Span, p.last),
			Operation: UnaryOp(tok.Value),
			Operand:   operand,
		}
	case TokenAmpersand:
		p.next()

		c, ok := p.capability()
		if !ok {
			return &BadExpr{Span: tok.Span, Error: "bad reference expression"}
		}

		operand := p.unaryExpr()
		return &RefExpr{
			Span:    spanJoin(tok.Span, p.last),
			Cap:     c,
			Operand: operand,
		}
	default:
		return p.postfixExpr()
	}
}

func (p *Parser) postfixExpr() Expr {
	expr := p.primary()

	for {
		switch tok := p.peek(); tok.Typ {
		case TokenOpenParentheses:
			p.next()

			var args []Expr
			for !p.check(TokenCloseParentheses) && !p.peek().isEOF() {
				args = append(args, p.expr())

				if !p.check(TokenComma) {
					break
				}

				p.next()
			}

			if !p.consume(TokenCloseParentheses) {
				return p.errorExpr(spanJoin(expr.GetSpan(), p.last), MissingClosingDelimiter,
					"missing ')' in call")
			}

			expr = &CallExpr{
				Span:   spanJoin(expr.GetSpan(), p.last),
				Callee: expr,
				Args:   args,
			}
		case TokenOpenBracket:
			p.next()
			idx := p.expr()

			if !p.consume(TokenCloseBracket) {
				return p.errorExpr(spanJoin(expr.GetSpan(), p.last), MissingClosingDelimiter,
					"missing ']' in index expression")
			}

			expr = &IndexExpr{
				Span:   spanJoin(expr.GetSpan(), p.last),
				Target: expr,
				Index:  idx,
			}
		case TokenIncr, TokenDecr:
			p.next()

			expr = &UnaryExpr{
				Span:      spanJoin(expr.GetSpan(), tok.Span),
				Operation: UnaryOp(tok.Value),
				Operand:   expr,
				Postfix:   true,
			}
		default:
			return expr
		}
	}
}

var literalKinds = map[TokenType]LiteralKind{
	TokenInt:        LiteralInt,
	TokenFloat:      LiteralFloat,
	TokenTrue:       LiteralBool,
	TokenFalse:      LiteralBool,
	TokenChar:       LiteralChar,
	TokenByteChar:   LiteralByteChar,
	TokenString:     LiteralString,
	TokenByteString: LiteralByteString,
	TokenCString:    LiteralCString,
}

func (p *Parser) primary() Expr {
	tok := p.peek()

	if kind, ok := literalKinds[tok.Typ]; ok {
		p.next()
		return &LiteralExpr{Span: tok.Span, Kind: kind, Value: tok.Value, Val: tok.Val}
	}

	switch tok.Typ {
	case TokenOpenParentheses:
		p.next()
		expr := p.expr()

		if !p.consume(TokenCloseParentheses) {
			return p.errorExpr(spanJoin(tok.Span, p.last), MissingClosingDelimiter,
				"missing ')' in parenthesised expression")
		}

		return expr
	case TokenOpenCurly:
		return p.blockExpr()
	case TokenIf:
		return p.ifExpr()
	case TokenWhile:
		return p.whileExpr()
	case TokenDo:
		return p.doWhileExpr()
	case TokenLoop:
		return p.loopExpr()
	case TokenBreak:
		return p.breakExpr()
	case TokenContinue:
		p.next()
		if len(p.loops) == 0 {
			p.diags.Errorf(UnexpectedToken, tok.Span, "'continue' outside of a loop")
		}

		return &ContinueExpr{Span: tok.Span}
	case TokenDefer:
		return p.deferExpr()
	case TokenTemplateStart:
		return p.templateExpr()
	case TokenIdentifier:
		p.next()
		return &Identifier{Span: tok.Span, Name: tok.Value}
	case TokenError:
		// The lexer already reported this one.
		p.next()
		return &BadExpr{Span: tok.Span, Error: "invalid token"}
	case TokenEOF:
		return p.errorExpr(tok.Span, UnexpectedToken, "unexpected end of input")
	default:
		p.next()
		return p.errorExpr(tok.Span, UnexpectedToken, "unexpected token '%s'", tok.Value)
	}
}

func (p *Parser) blockExpr() *Block {
	open := p.next() // {

	blk := &Block{}
	p.blocks = append(p.blocks, blk)

	for !p.check(TokenCloseCurly) && !p.peek().isEOF() {
		if p.check(TokenSemi) {
			p.next()
			continue
		}

		blk.Statements = append(blk.Statements, p.statement())
	}

	p.blocks = p.blocks[:len(p.blocks)-1]

	if !p.consume(TokenCloseCurly) {
		p.diags.Errorf(MissingClosingDelimiter, spanJoin(open.Span, p.last), "unclosed block")
	}

	blk.Span = spanJoin(open.Span, p.last)
	return blk
}

func (p *Parser) ifExpr() Expr {
	start := p.next() // if

	cond := p.expr()
	if !p.consume(TokenThen) {
		return p.errorExpr(spanJoin(start.Span, p.last), UnexpectedToken,
			"expected 'then' after if condition")
	}

	then := p.expr()

	var els Expr
	if p.check(TokenElse) {
		p.next()
		els = p.expr()
	}

	return &IfExpr{
		Span: spanJoin(start.Span, p.last),
		Cond: cond,
		Then: then,
		Else: els,
	}
}

func (p *Parser) whileExpr() Expr {
	start := p.next() // while

	cond := p.expr()
	if !p.consume(TokenDo) {
		return p.errorExpr(spanJoin(start.Span, p.last), UnexpectedToken,
			"expected 'do' after while condition")
	}

	p.loops = append(p.loops, nil)
	body := p.expr()
	p.loops = p.loops[:len(p.loops)-1]

	return &WhileExpr{
		Span: spanJoin(start.Span, p.last),
		Cond: cond,
		Body: body,
	}
}

func (p *Parser) doWhileExpr() Expr {
	start := p.next() // do

	p.loops = append(p.loops, nil)
	body := p.expr()
	p.loops = p.loops[:len(p.loops)-1]

	if !p.consume(TokenWhile) {
		return p.errorExpr(spanJoin(start.Span, p.last), UnexpectedToken,
			"expected 'while' after do body")
	}

	cond := p.expr()

	return &WhileExpr{
		Span:    spanJoin(start.Span, p.last),
		Cond:    cond,
		Body:    body,
		DoWhile: true,
	}
}

func (p *Parser) loopExpr() Expr {
	start := p.next() // loop

	if !p.check(TokenOpenCurly) {
		return p.errorExpr(spanJoin(start.Span, p.last), UnexpectedToken,
			"expected '{' after 'loop'")
	}

	lp := &LoopExpr{}
	p.loops = append(p.loops, lp)
	lp.Body = p.blockExpr()
	p.loops = p.loops[:len(p.loops)-1]

	lp.Span = spanJoin(start.Span, p.last)
	return lp
}

func (p *Parser) breakExpr() Expr {
	start := p.next() // break

	var val Expr
	if startsExpr(p.peek()) {
		val = p.expr()
	}

	b := &BreakExpr{Span: spanJoin(start.Span, p.last), Value: val}

	if len(p.loops) == 0 {
		p.diags.Errorf(UnexpectedToken, b.Span, "'break' outside of a loop")
		return b
	}

	// Associate the break with its nearest enclosing loop; a while
	// frame accepts it without recording.
	if lp := p.loops[len(p.loops)-1]; lp != nil {
		lp.Breaks = append(lp.Breaks, b)
	}

	return b
}

func (p *Parser) deferExpr() Expr {
	start := p.next() // defer

	body := p.expr()
	d := &DeferExpr{Span: spanJoin(start.Span, p.last), Body: body}

	if len(p.blocks) > 0 {
		blk := p.blocks[len(p.blocks)-1]
		blk.Defers = append(blk.Defers, d)
	} else {
		p.diags.Errorf(MalformedDeclaration, d.Span, "'defer' outside of a block")
	}

	return d
}

func (p *Parser) templateExpr() Expr {
	start := p.next() // TemplateStart

	t := &TemplateExpr{}
	for {
		switch tok := p.peek(); tok.Typ {
		case TokenStringSegment:
			p.next()
			t.Segments = append(t.Segments, TemplateSegment{Text: tok.Val.(string)})
		case TokenInterpStart:
			p.next()

			inner := p.expr()
			t.Segments = append(t.Segments, TemplateSegment{Expr: inner})

			if !p.check(TokenInterpEnd) {
				p.diags.Errorf(UnexpectedToken, p.peek().Span,
					"expected '}' after interpolated expression")
				for !p.check(TokenInterpEnd) && !p.check(TokenTemplateEnd) && !p.peek().isEOF() {
					p.next()
				}
			}
			if p.check(TokenInterpEnd) {
				p.next()
			}
		case TokenTemplateEnd:
			p.next()
			t.Span = spanJoin(start.Span, p.last)
			return t
		case TokenError:
			// The lexer recovered and reported already.
			p.next()
		case TokenEOF:
			// Unterminated template, reported by the lexer.
			t.Span = spanJoin(start.Span, p.last)
			return t
		default:
			p.next()
		}
	}
}

func startsExpr(tok Token) bool {
	if _, ok := literalKinds[tok.Typ]; ok {
		return true
	}

	switch tok.Typ {
	case TokenIdentifier, TokenOpenParentheses, TokenOpenCurly, TokenTemplateStart,
		TokenIf, TokenWhile, TokenDo, TokenLoop,
		TokenNot, TokenMinus, TokenTilde, TokenAmpersand:
		return true
	}

	return false
}
