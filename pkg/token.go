package plume

import "fmt"

type TokenType uint64

const (
	TokenError TokenType = iota
	TokenEOF

	TokenInt
	TokenFloat
	TokenChar
	TokenByteChar
	TokenString
	TokenByteString
	TokenCString

	// String templates are lexed as TemplateStart, then alternating
	// StringSegment and InterpStart ... InterpEnd runs, then TemplateEnd.
	TokenTemplateStart
	TokenStringSegment
	TokenInterpStart
	TokenInterpEnd
	TokenTemplateEnd

	TokenIdentifier

	TokenAnd
	TokenOr
	TokenXor
	TokenNot
	TokenTrue
	TokenFalse
	TokenPub
	TokenPacked
	TokenStruct
	TokenEnum
	TokenUnion
	TokenFn
	TokenDefer
	TokenIf
	TokenThen
	TokenElse
	TokenWhile
	TokenDo
	TokenLoop
	TokenContinue
	TokenBreak

	TokenEquals
	TokenNotEquals
	TokenLess
	TokenGreater
	TokenLessEqual
	TokenGreaterEqual
	TokenFeather // >-
	TokenArrow   // ->
	TokenAmpersand
	TokenPipe
	TokenCaret
	TokenTilde
	TokenLShift
	TokenRShift
	TokenIncr
	TokenDecr
	TokenPlus
	TokenMinus
	TokenMulti
	TokenDiv
	TokenPow
	TokenModulo

	TokenAssign
	TokenDeclaration // ::
	TokenSemi
	TokenColon
	TokenComma
	TokenDot
	TokenOpenParentheses
	TokenCloseParentheses
	TokenOpenBracket
	TokenCloseBracket
	TokenOpenCurly
	TokenCloseCurly

	TokenLineComment
)

var keywordTable = map[string]TokenType{
	"and":      TokenAnd,
	"or":       TokenOr,
	"xor":      TokenXor,
	"not":      TokenNot,
	"true":     TokenTrue,
	"false":    TokenFalse,
	"pub":      TokenPub,
	"packed":   TokenPacked,
	"struct":   TokenStruct,
	"enum":     TokenEnum,
	"union":    TokenUnion,
	"fn":       TokenFn,
	"defer":    TokenDefer,
	"if":       TokenIf,
	"then":     TokenThen,
	"else":     TokenElse,
	"while":    TokenWhile,
	"do":       TokenDo,
	"loop":     TokenLoop,
	"continue": TokenContinue,
	"break":    TokenBreak,
}

// Two-rune operators are matched before one-rune operators.
var operatorTable2 = map[string]TokenType{
	"==": TokenEquals,
	"!=": TokenNotEquals,
	"<=": TokenLessEqual,
	">=": TokenGreaterEqual,
	">-": TokenFeather,
	"->": TokenArrow,
	"<<": TokenLShift,
	">>": TokenRShift,
	"++": TokenIncr,
	"--": TokenDecr,
	"**": TokenPow,
	"::": TokenDeclaration,
}

var operatorTable1 = map[string]TokenType{
	"%": TokenModulo,
	"<": TokenLess,
	">": TokenGreater,
	"&": TokenAmpersand,
	"|": TokenPipe,
	"^": TokenCaret,
	"~": TokenTilde,
	"+": TokenPlus,
	"-": TokenMinus,
	"*": TokenMulti,
	"/": TokenDiv,
	"=": TokenAssign,
	";": TokenSemi,
	":": TokenColon,
	",": TokenComma,
	".": TokenDot,
	"(": TokenOpenParentheses,
	")": TokenCloseParentheses,
	"[": TokenOpenBracket,
	"]": TokenCloseBracket,
	"{": TokenOpenCurly,
	"}": TokenCloseCurly,
}

var tokenNames = map[TokenType]string{
	TokenError: "Error", TokenEOF: "EOF",
	TokenInt: "Int", TokenFloat: "Float", TokenChar: "Char", TokenByteChar: "ByteChar",
	TokenString: "String", TokenByteString: "ByteString", TokenCString: "CString",
	TokenTemplateStart: "TemplateStart", TokenStringSegment: "StringSegment",
	TokenInterpStart: "InterpStart", TokenInterpEnd: "InterpEnd", TokenTemplateEnd: "TemplateEnd",
	TokenIdentifier: "Identifier",
	TokenAnd:        "And", TokenOr: "Or", TokenXor: "Xor", TokenNot: "Not",
	TokenTrue: "True", TokenFalse: "False",
	TokenPub: "Pub", TokenPacked: "Packed", TokenStruct: "Struct", TokenEnum: "Enum",
	TokenUnion: "Union", TokenFn: "Fn", TokenDefer: "Defer", TokenIf: "If",
	TokenThen: "Then", TokenElse: "Else", TokenWhile: "While", TokenDo: "Do",
	TokenLoop: "Loop", TokenContinue: "Continue", TokenBreak: "Break",
	TokenEquals: "Equals", TokenNotEquals: "NotEquals", TokenLess: "Less",
	TokenGreater: "Greater", TokenLessEqual: "LessEqual", TokenGreaterEqual: "GreaterEqual",
	TokenFeather: "Feather", TokenArrow: "Arrow", TokenAmpersand: "Ampersand",
	TokenPipe: "Pipe", TokenCaret: "Caret", TokenTilde: "Tilde",
	TokenLShift: "LShift", TokenRShift: "RShift", TokenIncr: "Incr", TokenDecr: "Decr",
	TokenPlus: "Plus", TokenMinus: "Minus", TokenMulti: "Multi", TokenDiv: "Div",
	TokenPow: "Pow", TokenModulo: "Modulo",
	TokenAssign: "Assign", TokenDeclaration: "Declaration", TokenSemi: "Semi",
	TokenColon: "Colon", TokenComma: "Comma", TokenDot: "Dot",
	TokenOpenParentheses: "OpenParentheses", TokenCloseParentheses: "CloseParentheses",
	TokenOpenBracket: "OpenBracket", TokenCloseBracket: "CloseBracket",
	TokenOpenCurly: "OpenCurly", TokenCloseCurly: "CloseCurly",
	TokenLineComment: "LineComment",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}

	return fmt.Sprintf("TokenType(%d)", uint64(t))
}

// Span is a half-open byte range [Start, End) into the source, plus the
// 1-based line and column of Start.
type Span struct {
	Start int
	End   int
	Line  int
	Col   int
}

func NewSpan(start, end, line, col int) Span {
	if end < start {
		panic(fmt.Sprintf("span end %d before start %d", end, start))
	}

	return Span{Start: start, End: end, Line: line, Col: col}
}

func (s Span) Contains(o Span) bool {
	return s.Start <= o.Start && o.End <= s.End
}

func (s Span) String() string {
	return fmt.Sprintf("%d:%d", s.Line, s.Col)
}

// Token is an immutable lexical token. Value holds the raw lexeme; for
// literal tokens Val carries the decoded value (uint64, float64, rune,
// byte or string depending on the kind).
type Token struct {
	Typ   TokenType
	Value string
	Span  Span
	Val   any
}

func (t Token) isComment() bool {
	return t.Typ == TokenLineComment
}

func (t Token) isEOF() bool {
	return t.Typ == TokenEOF
}
