package plume

import (
	"errors"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// EOF is returned by next and peek once the source is exhausted. It is
// negative so a NUL byte in the input cannot be mistaken for it.
const EOF rune = -1

type stateFunc func(l *Lexer) stateFunc

// templateContext tracks one open string-template. braceDepth counts
// ordinary curly braces inside the current interpolated expression, so
// the lexer can tell a block's closing brace from the brace that ends
// the interpolation. Templates nest, hence the stack in Lexer.
type templateContext struct {
	braceDepth int
}

// Lexer turns source text into a lazy token sequence. Every successful
// token consumes at least one byte and every error consumes at least
// one byte before resuming, so lexing always terminates.
type Lexer struct {
	filename  string
	src       string
	pos       int
	line      int
	lineStart int
	done      chan Token
	diags     *Bag
	templates []templateContext

	// MaxDepth bounds string-template nesting; zero means unbounded.
	MaxDepth int
}

func NewLexer(filename, src string, diags *Bag) *Lexer {
	return &Lexer{
		filename: filename,
		src:      src,
		line:     1,
		done:     make(chan Token),
		diags:    diags,
	}
}

func (l *Lexer) GetFilename() string {
	return l.filename
}

func (l *Lexer) Chan() chan Token {
	return l.done
}

// Do implements Tokenizer; the parser runs it as a goroutine.
func (l *Lexer) Do() {
	l.Run()
}

func (l *Lexer) Get() Token {
	return <-l.done
}

func (l *Lexer) Run() {
	for state := defaultState; state != nil; {
		state = state(l)
	}

	close(l.done)
}

// RunBlocking collects every token up to EOF. The returned error is
// the first lex diagnostic, if any; tokens after a recovered error are
// still returned.
func (l *Lexer) RunBlocking() ([]Token, error) {
	go l.Run()

	var toks []Token
	for t := range l.done {
		if t.Typ == TokenEOF {
			break
		}

		toks = append(toks, t)
	}

	if ds := l.diags.Diagnostics(); len(ds) > 0 {
		return toks, errors.New(ds[0].Message)
	}

	return toks, nil
}

type mark struct {
	pos  int
	line int
	col  int
}

func (l *Lexer) mark() mark {
	return mark{pos: l.pos, line: l.line, col: l.pos - l.lineStart + 1}
}

func (l *Lexer) spanFrom(m mark) Span {
	return NewSpan(m.pos, l.pos, m.line, m.col)
}

func (l *Lexer) next() rune {
	if l.pos >= len(l.src) {
		return EOF
	}

	r, w := utf8.DecodeRuneInString(l.src[l.pos:])
	l.pos += w
	if r == '\n' {
		l.line++
		l.lineStart = l.pos
	}

	return r
}

func (l *Lexer) peek() rune {
	if l.pos >= len(l.src) {
		return EOF
	}

	r, _ := utf8.DecodeRuneInString(l.src[l.pos:])
	return r
}

func (l *Lexer) hasPrefix(s string) bool {
	return strings.HasPrefix(l.src[l.pos:], s)
}

func (l *Lexer) send(t TokenType, m mark, val any) {
	l.done <- Token{
		Typ:   t,
		Value: l.src[m.pos:l.pos],
		Span:  l.spanFrom(m),
		Val:   val,
	}
}

func (l *Lexer) sendText(t TokenType, m mark, text string, val any) {
	l.done <- Token{
		Typ:   t,
		Value: text,
		Span:  l.spanFrom(m),
		Val:   val,
	}
}

// errorf records a diagnostic and emits an error token covering the
// offending bytes; the caller resumes from the next byte.
func (l *Lexer) errorf(code Code, m mark, format string, args ...any) {
	l.diags.Errorf(code, l.spanFrom(m), format, args...)
	l.send(TokenError, m, nil)
}

func defaultState(l *Lexer) stateFunc {
	for {
		m := l.mark()

		switch r := l.peek(); {
		case r == EOF:
			if len(l.templates) > 0 {
				l.errorf(UnterminatedString, m, "unterminated string template")
				l.templates = nil
			}

			l.send(TokenEOF, m, nil)
			return nil
		case unicode.IsSpace(r):
			l.next()
			continue
		case l.hasPrefix("//"):
			return lineCommentState
		case l.hasPrefix(`$"`):
			return templateStartState
		case l.hasPrefix("b'"):
			return byteCharState
		case l.hasPrefix(`b"`) || l.hasPrefix(`c"`) || r == '"':
			return stringState
		case r == '\'':
			return charState
		case '0' <= r && r <= '9':
			return numberState
		case r == '_' || unicode.IsLetter(r):
			return identifierState
		case r == '{':
			l.next()
			if len(l.templates) > 0 {
				l.templates[len(l.templates)-1].braceDepth++
			}

			l.send(TokenOpenCurly, m, nil)
			continue
		case r == '}':
			l.next()
			if len(l.templates) > 0 {
				top := &l.templates[len(l.templates)-1]
				if top.braceDepth == 0 {
					l.send(TokenInterpEnd, m, nil)
					return templateTextState
				}

				top.braceDepth--
			}

			l.send(TokenCloseCurly, m, nil)
			continue
		default:
			return operatorState
		}
	}
}

func lineCommentState(l *Lexer) stateFunc {
	m := l.mark()
	l.next() // /
	l.next() // /

	var text strings.Builder
	for r := l.peek(); r != '\n' && r != EOF; r = l.peek() {
		text.WriteRune(l.next())
	}

	l.sendText(TokenLineComment, m, text.String(), nil)
	return defaultState
}

func templateStartState(l *Lexer) stateFunc {
	m := l.mark()
	l.next() // $
	l.next() // "

	if l.MaxDepth > 0 && len(l.templates) >= l.MaxDepth {
		l.diags.Errorf(TemplateTooDeep, l.spanFrom(m),
			"string template nesting exceeds depth limit %d", l.MaxDepth)
	}

	l.send(TokenTemplateStart, m, nil)
	l.templates = append(l.templates, templateContext{})
	return templateTextState
}

// templateTextState scans the literal text of the innermost open
// template until an interpolation opens or the template closes.
func templateTextState(l *Lexer) stateFunc {
	m := l.mark()

	var text strings.Builder
	for {
		switch r := l.peek(); {
		case r == EOF:
			l.errorf(UnterminatedString, m, "unterminated string template")
			l.templates = l.templates[:len(l.templates)-1]
			return defaultState
		case r == '\\':
			em := l.mark()
			l.next()
			if c, ok := l.escape(em); ok {
				text.WriteRune(c)
			}
		case r == '{':
			if l.pos > m.pos {
				l.send(TokenStringSegment, m, text.String())
			}

			om := l.mark()
			l.next()
			l.send(TokenInterpStart, om, nil)
			return defaultState
		case r == '}':
			bm := l.mark()
			l.next()
			l.diags.Errorf(UnexpectedByte, l.spanFrom(bm),
				"unescaped '}' in string template, use '\\}'")
		case r == '"':
			if l.pos > m.pos {
				l.send(TokenStringSegment, m, text.String())
			}

			cm := l.mark()
			l.next()
			l.send(TokenTemplateEnd, cm, nil)
			l.templates = l.templates[:len(l.templates)-1]
			return defaultState
		default:
			text.WriteRune(l.next())
		}
	}
}

// escape decodes one backslash escape; the backslash at m is already
// consumed. On an invalid escape a diagnostic is recorded and lexing
// continues without a decoded rune.
func (l *Lexer) escape(m mark) (rune, bool) {
	switch r := l.next(); r {
	case '\\':
		return '\\', true
	case '"':
		return '"', true
	case '\'':
		return '\'', true
	case '{':
		return '{', true
	case '}':
		return '}', true
	case 'n':
		return '\n', true
	case 't':
		return '\t', true
	case 'r':
		return '\r', true
	case '0':
		return 0, true
	case EOF:
		l.diags.Errorf(InvalidEscapeSequence, l.spanFrom(m), "incomplete escape sequence")
		return 0, false
	default:
		l.diags.Errorf(InvalidEscapeSequence, l.spanFrom(m), "invalid escape sequence '\\%c'", r)
		return 0, false
	}
}

func stringState(l *Lexer) stateFunc {
	m := l.mark()

	typ := TokenString
	switch {
	case l.hasPrefix(`b"`):
		typ = TokenByteString
		l.next()
	case l.hasPrefix(`c"`):
		typ = TokenCString
		l.next()
	}
	l.next() // opening quote

	var text strings.Builder
	for {
		switch r := l.peek(); {
		case r == EOF:
			l.errorf(UnterminatedString, m, "unterminated string literal")
			return defaultState
		case r == '\\':
			em := l.mark()
			l.next()
			if c, ok := l.escape(em); ok {
				text.WriteRune(c)
			}
		case r == '"':
			l.next()

			decoded := text.String()
			if typ == TokenCString && strings.ContainsRune(decoded, 0) {
				l.errorf(InvalidCStringLiteral, m,
					"c string literal contains an embedded zero byte")
				return defaultState
			}

			l.send(typ, m, decoded)
			return defaultState
		default:
			text.WriteRune(l.next())
		}
	}
}

func charState(l *Lexer) stateFunc {
	return lexChar(l, false)
}

func byteCharState(l *Lexer) stateFunc {
	return lexChar(l, true)
}

func lexChar(l *Lexer, isByte bool) stateFunc {
	m := l.mark()
	if isByte {
		l.next() // b
	}
	l.next() // opening quote

	var text strings.Builder
	for {
		switch r := l.peek(); {
		case r == EOF || r == '\n':
			l.errorf(UnterminatedCharLiteral, m, "unterminated character literal")
			return defaultState
		case r == '\\':
			em := l.mark()
			l.next()
			if c, ok := l.escape(em); ok {
				text.WriteRune(c)
			}
		case r == '\'':
			l.next()

			decoded := text.String()
			if isByte {
				if len(decoded) != 1 {
					l.errorf(InvalidByteCharLiteral, m,
						"byte character literal must be exactly one byte, got %q", decoded)
					return defaultState
				}

				l.send(TokenByteChar, m, decoded[0])
				return defaultState
			}

			runes := []rune(decoded)
			if len(runes) != 1 {
				l.errorf(InvalidCharLiteral, m,
					"character literal must be exactly one character, got %q", decoded)
				return defaultState
			}

			l.send(TokenChar, m, runes[0])
			return defaultState
		default:
			text.WriteRune(l.next())
		}
	}
}

func numberState(l *Lexer) stateFunc {
	m := l.mark()

	digits := func(valid func(rune) bool) int {
		n := 0
		for {
			r := l.peek()
			if r == '_' {
				l.next()
				continue
			}
			if !valid(r) {
				return n
			}

			l.next()
			n++
		}
	}
	isDec := func(r rune) bool { return '0' <= r && r <= '9' }

	base := 10
	switch {
	case l.hasPrefix("0x"):
		base = 16
		l.next()
		l.next()
		if digits(func(r rune) bool {
			return isDec(r) || ('a' <= r && r <= 'f') || ('A' <= r && r <= 'F')
		}) == 0 {
			l.errorf(InvalidNumericLiteral, m, "missing digits in hexadecimal literal")
			return defaultState
		}
	case l.hasPrefix("0o"):
		base = 8
		l.next()
		l.next()
		if digits(func(r rune) bool { return '0' <= r && r <= '7' }) == 0 {
			l.errorf(InvalidNumericLiteral, m, "missing digits in octal literal")
			return defaultState
		}
	case l.hasPrefix("0b"):
		base = 2
		l.next()
		l.next()
		if digits(func(r rune) bool { return r == '0' || r == '1' }) == 0 {
			l.errorf(InvalidNumericLiteral, m, "missing digits in binary literal")
			return defaultState
		}
	default:
		digits(isDec)
	}

	isFloat := false
	if base == 10 {
		if l.peek() == '.' && l.pos+1 < len(l.src) && isDec(rune(l.src[l.pos+1])) {
			isFloat = true
			l.next()
			digits(isDec)
		}

		if r := l.peek(); r == 'e' || r == 'E' {
			isFloat = true
			l.next()
			if r := l.peek(); r == '+' || r == '-' {
				l.next()
			}
			if digits(isDec) == 0 {
				l.errorf(InvalidNumericLiteral, m, "missing digits in float exponent")
				return defaultState
			}
		}
	}

	// Separators are allowed anywhere between digits and stripped
	// before decoding.
	clean := strings.ReplaceAll(l.src[m.pos:l.pos], "_", "")

	if isFloat {
		v, err := strconv.ParseFloat(clean, 64)
		if err != nil {
			l.errorf(InvalidNumericLiteral, m, "invalid float literal %q", clean)
			return defaultState
		}

		l.send(TokenFloat, m, v)
		return defaultState
	}

	if base != 10 {
		clean = clean[2:]
	}

	v, err := strconv.ParseUint(clean, base, 64)
	if err != nil {
		l.errorf(InvalidNumericLiteral, m, "invalid integer literal %q", l.src[m.pos:l.pos])
		return defaultState
	}

	l.send(TokenInt, m, v)
	return defaultState
}

func identifierState(l *Lexer) stateFunc {
	m := l.mark()

	for r := l.peek(); r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r); r = l.peek() {
		l.next()
	}

	id := l.src[m.pos:l.pos]
	if t, ok := keywordTable[id]; ok {
		switch t {
		case TokenTrue:
			l.send(t, m, true)
		case TokenFalse:
			l.send(t, m, false)
		default:
			l.send(t, m, nil)
		}

		return defaultState
	}

	l.send(TokenIdentifier, m, nil)
	return defaultState
}

func operatorState(l *Lexer) stateFunc {
	m := l.mark()

	if l.pos+2 <= len(l.src) {
		if t, ok := operatorTable2[l.src[l.pos:l.pos+2]]; ok {
			l.next()
			l.next()
			l.send(t, m, nil)
			return defaultState
		}
	}

	r := l.next()
	if t, ok := operatorTable1[string(r)]; ok {
		l.send(t, m, nil)
		return defaultState
	}

	l.errorf(UnexpectedByte, m, "unexpected character %q", r)
	return defaultState
}
