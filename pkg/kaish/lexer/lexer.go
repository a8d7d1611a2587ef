package lexer

import (
	"fmt"
	"strings"

	"github.com/kaishlang/kaish/pkg/kaish/ast"
)

// Error is a LexError (spec §7): malformed token, unterminated string, or
// invalid escape, with the byte span where it occurred.
type Error struct {
	Span    ast.Span
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s at %d:%d", e.Message, e.Span.Start, e.Span.End)
}

// Lexer scans kaish source into a token stream.
type Lexer struct {
	src    string
	pos    int
	tokens []Token
}

// New creates a Lexer over the given source.
func New(src string) *Lexer {
	return &Lexer{src: src}
}

// Tokenize scans the entire source and returns its token stream, or the
// first lexical error encountered.
func Tokenize(src string) ([]Token, error) {
	l := New(src)
	return l.Tokenize()
}

// Tokenize runs the scan loop.
func (l *Lexer) Tokenize() ([]Token, error) {
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		l.tokens = append(l.tokens, tok)
		if tok.Kind == EOF {
			return l.tokens, nil
		}
	}
}

func (l *Lexer) peekByte() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *Lexer) peekByteAt(off int) byte {
	if l.pos+off >= len(l.src) {
		return 0
	}
	return l.src[l.pos+off]
}

func (l *Lexer) skipWhitespaceAndComments() {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == '\n' {
			return
		}
		if c == ' ' || c == '\t' || c == '\r' {
			l.pos++
			continue
		}
		if c == '#' {
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
			continue
		}
		return
	}
}

func (l *Lexer) next() (Token, error) {
	l.skipWhitespaceAndComments()
	start := l.pos
	if l.pos >= len(l.src) {
		return Token{Kind: EOF, Span: ast.Span{Start: start, End: start}}, nil
	}
	c := l.src[l.pos]

	switch {
	case c == '\n':
		l.pos++
		return Token{Kind: Newline, Span: ast.Span{Start: start, End: l.pos}}, nil
	case c == '"':
		return l.lexString()
	case c == '$':
		if l.peekByteAt(1) == '{' {
			return l.lexVarRef()
		}
		l.pos++
		return Token{Kind: Dollar, Span: ast.Span{Start: start, End: l.pos}}, nil
	case c == '2' && l.peekByteAt(1) == '>':
		return l.lexPunct()
	case isDigit(c):
		return l.lexNumber()
	case isIdentStart(c):
		return l.lexIdentOrKeyword()
	default:
		return l.lexPunct()
	}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentCont(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func (l *Lexer) lexNumber() (Token, error) {
	start := l.pos
	for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
		l.pos++
	}
	isFloat := false
	if l.peekByte() == '.' && isDigit(l.peekByteAt(1)) {
		isFloat = true
		l.pos++
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.pos++
		}
	}
	text := l.src[start:l.pos]
	kind := Int
	if isFloat {
		kind = Float
	}
	return Token{Kind: kind, Text: text, Span: ast.Span{Start: start, End: l.pos}}, nil
}

func (l *Lexer) lexIdentOrKeyword() (Token, error) {
	start := l.pos
	for l.pos < len(l.src) && isIdentCont(l.src[l.pos]) {
		l.pos++
	}
	text := l.src[start:l.pos]
	if kw, ok := keywords[text]; ok {
		return Token{Kind: kw, Text: text, Span: ast.Span{Start: start, End: l.pos}}, nil
	}
	if typeNames[text] {
		return Token{Kind: TypeName, Text: text, Span: ast.Span{Start: start, End: l.pos}}, nil
	}
	return Token{Kind: Ident, Text: text, Span: ast.Span{Start: start, End: l.pos}}, nil
}

// lexString scans a double-quoted string, resolving `\n \t \r \\ \0`
// escapes to bytes. `${...}` content is kept verbatim for later
// interpolation-part splitting by the parser.
func (l *Lexer) lexString() (Token, error) {
	start := l.pos
	l.pos++ // opening quote
	var sb strings.Builder
	for {
		if l.pos >= len(l.src) {
			return Token{}, &Error{Span: ast.Span{Start: start, End: l.pos}, Message: "unterminated string"}
		}
		c := l.src[l.pos]
		if c == '"' {
			l.pos++
			break
		}
		if c == '\\' {
			if l.pos+1 >= len(l.src) {
				return Token{}, &Error{Span: ast.Span{Start: l.pos, End: l.pos + 1}, Message: "unterminated escape"}
			}
			esc := l.src[l.pos+1]
			switch esc {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '\\':
				sb.WriteByte('\\')
			case '0':
				sb.WriteByte(0)
			case '"':
				sb.WriteByte('"')
			case '$':
				sb.WriteByte('$')
			default:
				return Token{}, &Error{Span: ast.Span{Start: l.pos, End: l.pos + 2}, Message: fmt.Sprintf("invalid escape \\%c", esc)}
			}
			l.pos += 2
			continue
		}
		if c == '$' && l.peekByteAt(1) == '{' {
			// Keep ${...} verbatim in the string body; the parser's
			// interpolation splitter re-scans for these later.
			sb.WriteByte(c)
			l.pos++
			depth := 0
			for l.pos < len(l.src) {
				ch := l.src[l.pos]
				sb.WriteByte(ch)
				if ch == '{' {
					depth++
				} else if ch == '}' {
					depth--
					l.pos++
					if depth == 0 {
						break
					}
					continue
				}
				l.pos++
			}
			continue
		}
		sb.WriteByte(c)
		l.pos++
	}
	return Token{Kind: String, Text: sb.String(), Span: ast.Span{Start: start, End: l.pos}}, nil
}

// lexVarRef scans a raw `${...}` reference outside of a string literal,
// returning its body (including the delimiters) for the parser to split
// into path segments.
func (l *Lexer) lexVarRef() (Token, error) {
	start := l.pos
	l.pos += 2 // "${"
	depth := 1
	bodyStart := l.pos
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == '{' {
			depth++
		} else if c == '}' {
			depth--
			if depth == 0 {
				body := l.src[bodyStart:l.pos]
				l.pos++
				return Token{Kind: VarRef, Text: body, Span: ast.Span{Start: start, End: l.pos}}, nil
			}
		}
		l.pos++
	}
	return Token{}, &Error{Span: ast.Span{Start: start, End: l.pos}, Message: "unterminated variable reference"}
}

func (l *Lexer) lexPunct() (Token, error) {
	start := l.pos
	two := func(a, b byte, k Kind) (Token, bool) {
		if l.peekByte() == a && l.peekByteAt(1) == b {
			l.pos += 2
			return Token{Kind: k, Span: ast.Span{Start: start, End: l.pos}}, true
		}
		return Token{}, false
	}
	if t, ok := two('&', '&', AndAnd); ok {
		return t, nil
	}
	if t, ok := two('|', '|', OrOr); ok {
		return t, nil
	}
	if t, ok := two('=', '=', Eq); ok {
		return t, nil
	}
	if t, ok := two('!', '=', NotEq); ok {
		return t, nil
	}
	if t, ok := two('<', '=', LtEq); ok {
		return t, nil
	}
	if t, ok := two('>', '=', GtEq); ok {
		return t, nil
	}
	if t, ok := two('=', '>', FatArrow); ok {
		return t, nil
	}
	if t, ok := two('=', '~', MatchOp); ok {
		return t, nil
	}
	if t, ok := two('!', '~', NotMatchOp); ok {
		return t, nil
	}
	if t, ok := two('>', '>', AppendRedir); ok {
		return t, nil
	}
	if t, ok := two('&', '>', BothRedir); ok {
		return t, nil
	}
	if t, ok := two('2', '>', StderrRedir); ok {
		return t, nil
	}
	if t, ok := two('-', '-', DashDash); ok {
		return t, nil
	}
	c := l.src[l.pos]
	single := map[byte]Kind{
		';': Semicolon, '|': Pipe, '&': And, '=': Assign, ':': Colon,
		'<': Lt, '>': Gt, '(': LParen, ')': RParen, '{': LBrace, '}': RBrace,
		'[': LBracket, ']': RBracket, ',': Comma, '.': Dot, '-': Dash,
	}
	if k, ok := single[c]; ok {
		l.pos++
		return Token{Kind: k, Span: ast.Span{Start: start, End: l.pos}}, nil
	}
	return Token{}, &Error{Span: ast.Span{Start: start, End: start + 1}, Message: fmt.Sprintf("unexpected character %q", c)}
}
