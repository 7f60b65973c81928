package plume

import (
	"fmt"
	"strings"
)

// PrintAST renders an AST back to parseable source. Re-parsing the
// output yields a structurally equal tree, modulo spans and
// insignificant whitespace.
func PrintAST(ast *AST) string {
	var pr printer
	for _, stmt := range ast.Statements {
		pr.expr(stmt)
		pr.sb.WriteString(";\n")
	}

	return pr.sb.String()
}

// Print renders a single expression.
func Print(e Expr) string {
	var pr printer
	pr.expr(e)
	return pr.sb.String()
}

type printer struct {
	sb     strings.Builder
	indent int
}

func (pr *printer) write(s string) {
	pr.sb.WriteString(s)
}

func (pr *printer) writef(format string, args ...any) {
	fmt.Fprintf(&pr.sb, format, args...)
}

func (pr *printer) newline() {
	pr.write("\n")
	pr.write(strings.Repeat("\t", pr.indent))
}

func (pr *printer) expr(e Expr) {
	switch n := e.(type) {
	case *BadExpr:
		pr.write("/* bad expression */")
	case *LiteralExpr:
		pr.literal(n)
	case *TemplateExpr:
		pr.write(`$"`)
		for _, seg := range n.Segments {
			if seg.Expr != nil {
				pr.write("{")
				pr.expr(seg.Expr)
				pr.write("}")
				continue
			}

			pr.write(escapeText(seg.Text, true))
		}
		pr.write(`"`)
	case *Identifier:
		pr.write(n.Name)
	case *BinaryExpr:
		pr.write("(")
		pr.expr(n.Op1)
		pr.writef(" %s ", n.Operation)
		pr.expr(n.Op2)
		pr.write(")")
	case *UnaryExpr:
		pr.write("(")
		if n.Postfix {
			pr.expr(n.Operand)
			pr.write(string(n.Operation))
		} else {
			pr.write(string(n.Operation))
			if n.Operation == UnaryNot {
				pr.write(" ")
			}
			pr.expr(n.Operand)
		}
		pr.write(")")
	case *AssignExpr:
		pr.expr(n.Target)
		pr.write(" = ")
		pr.expr(n.Value)
	case *RefExpr:
		pr.writef("%s ", n.Cap)
		pr.expr(n.Operand)
	case *CallExpr:
		pr.expr(n.Callee)
		pr.write("(")
		for i, arg := range n.Args {
			if i > 0 {
				pr.write(", ")
			}
			pr.expr(arg)
		}
		pr.write(")")
	case *IndexExpr:
		pr.expr(n.Target)
		pr.write("[")
		pr.expr(n.Index)
		pr.write("]")
	case *Block:
		pr.block(n)
	case *IfExpr:
		pr.write("if ")
		pr.expr(n.Cond)
		pr.write(" then ")
		pr.expr(n.Then)
		if n.Else != nil {
			pr.write(" else ")
			pr.expr(n.Else)
		}
	case *WhileExpr:
		if n.DoWhile {
			pr.write("do ")
			pr.expr(n.Body)
			pr.write(" while ")
			pr.expr(n.Cond)
		} else {
			pr.write("while ")
			pr.expr(n.Cond)
			pr.write(" do ")
			pr.expr(n.Body)
		}
	case *LoopExpr:
		pr.write("loop ")
		pr.block(n.Body)
	case *BreakExpr:
		pr.write("break")
		if n.Value != nil {
			pr.write(" ")
			pr.expr(n.Value)
		}
	case *ContinueExpr:
		pr.write("continue")
	case *DeferExpr:
		pr.write("defer ")
		pr.expr(n.Body)
	case *VarDecl:
		if n.HasFlags {
			if n.Readable {
				pr.write("r")
			}
			if n.Writable {
				pr.write("w")
			}
			pr.write(" ")
		}
		pr.write(n.Name)
		if n.Type != nil {
			pr.write(" : ")
			pr.typ(n.Type)
			pr.write(" = ")
		} else {
			pr.write(" := ")
		}
		pr.expr(n.Value)
	case *ConstDecl:
		if n.Pub {
			pr.write("pub ")
		}
		pr.writef("%s :: ", n.Name)
		pr.expr(n.Value)
	case *FnDecl:
		if n.Pub {
			pr.write("pub ")
		}
		pr.writef("%s :: fn(", n.Name)
		for i, param := range n.Params {
			if i > 0 {
				pr.write(", ")
			}
			pr.writef("%s : ", param.Name)
			pr.typ(param.Type)
		}
		pr.write(") ")
		if n.Return != nil {
			pr.write("-> ")
			pr.typ(n.Return)
			pr.write(" ")
		}
		pr.block(n.Body)
	case *TypeDecl:
		if n.Pub {
			pr.write("pub ")
		}
		pr.writef("%s :: ", n.Name)
		pr.typeDef(n.Def)
	}
}

func (pr *printer) block(b *Block) {
	if len(b.Statements) == 0 {
		pr.write("{}")
		return
	}

	pr.write("{")
	pr.indent++
	for _, stmt := range b.Statements {
		pr.newline()
		pr.expr(stmt)
		pr.write(";")
	}
	pr.indent--
	pr.newline()
	pr.write("}")
}

func (pr *printer) typeDef(def TypeDef) {
	switch d := def.(type) {
	case *EnumDef:
		pr.write("enum {")
		pr.indent++
		for _, v := range d.Variants {
			pr.newline()
			pr.write(v.Name)
			if v.Payload != nil {
				pr.write("(")
				pr.typ(v.Payload)
				pr.write(")")
			}
			if v.ValueExpr != nil {
				pr.write(" = ")
				pr.expr(v.ValueExpr)
			}
			pr.write(",")
		}
		pr.indent--
		pr.newline()
		pr.write("}")
	case *PackedStructDef:
		pr.writef("packed struct %s {", d.Backing)
		pr.indent++
		for _, f := range d.Fields {
			pr.newline()
			pr.write(f.Name)
			if f.Width != 1 {
				pr.writef(" : %d", f.Width)
			}
			pr.write(",")
		}
		pr.indent--
		pr.newline()
		pr.write("}")
	case *AliasDef:
		pr.typ(d.Type)
	}
}

func (pr *printer) typ(t TypeExpr) {
	switch n := t.(type) {
	case *NamedType:
		pr.write(n.Name)
	case *RefType:
		pr.writef("%s ", n.Cap)
		pr.typ(n.Elem)
	}
}

func (pr *printer) literal(n *LiteralExpr) {
	switch n.Kind {
	case LiteralInt, LiteralFloat, LiteralBool:
		pr.write(n.Value)
	case LiteralChar:
		pr.writef("'%s'", escapeText(string(n.Val.(rune)), false))
	case LiteralByteChar:
		pr.writef("b'%s'", escapeText(string(rune(n.Val.(byte))), false))
	case LiteralString:
		pr.writef(`"%s"`, escapeText(n.Val.(string), false))
	case LiteralByteString:
		pr.writef(`b"%s"`, escapeText(n.Val.(string), false))
	case LiteralCString:
		pr.writef(`c"%s"`, escapeText(n.Val.(string), false))
	}
}

// escapeText re-escapes decoded literal text. Braces only need
// escaping inside string templates.
func escapeText(s string, forTemplate bool) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '\\':
			sb.WriteString(`\\`)
		case '"':
			sb.WriteString(`\"`)
		case '\'':
			sb.WriteString(`\'`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		case 0:
			sb.WriteString(`\0`)
		case '{', '}':
			if forTemplate {
				sb.WriteRune('\\')
			}
			sb.WriteRune(r)
		default:
			sb.WriteRune(r)
		}
	}

	return sb.String()
}
