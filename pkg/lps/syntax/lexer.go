package syntax

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/cognicore/lps/pkg/lps/internalerr"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokAtom
	tokVar
	tokInt
	tokFloat
	tokString
	tokQuoted
	tokPunct
)

type token struct {
	kind tokenKind
	text string
	line int
	col  int
}

func (t token) String() string {
	if t.kind == tokEOF {
		return "end of input"
	}
	return fmt.Sprintf("%q", t.text)
}

// Longest first.
var punctuation = []string{
	"<-", "->", "<=", ">=", "==", "!=", "&&", "||", "**",
	"(", ")", "[", "]", ",", "|", ".", "+", "-", "*", "/", "<", ">", "=", "!",
}

// lex splits src into tokens. Comments run from % to the end of the line
// or between /* and */.
func lex(src string) ([]token, error) {
	l := &lexer{src: []rune(src), line: 1, col: 1}
	var out []token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		out = append(out, tok)
		if tok.kind == tokEOF {
			return out, nil
		}
	}
}

type lexer struct {
	src  []rune
	pos  int
	line int
	col  int
}

func (l *lexer) peek(off int) rune {
	if l.pos+off >= len(l.src) {
		return 0
	}
	return l.src[l.pos+off]
}

func (l *lexer) advance() rune {
	r := l.src[l.pos]
	l.pos++
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

func (l *lexer) errorf(format string, args ...any) error {
	return fmt.Errorf("line %d:%d: %s: %w", l.line, l.col, fmt.Sprintf(format, args...), internalerr.ErrSyntax)
}

func (l *lexer) skip() error {
	for l.pos < len(l.src) {
		r := l.peek(0)
		switch {
		case unicode.IsSpace(r):
			l.advance()
		case r == '%':
			for l.pos < len(l.src) && l.peek(0) != '\n' {
				l.advance()
			}
		case r == '/' && l.peek(1) == '*':
			l.advance()
			l.advance()
			for {
				if l.pos >= len(l.src) {
					return l.errorf("unterminated comment")
				}
				if l.peek(0) == '*' && l.peek(1) == '/' {
					l.advance()
					l.advance()
					break
				}
				l.advance()
			}
		default:
			return nil
		}
	}
	return nil
}

func (l *lexer) next() (token, error) {
	if err := l.skip(); err != nil {
		return token{}, err
	}
	tok := token{line: l.line, col: l.col}
	if l.pos >= len(l.src) {
		tok.kind = tokEOF
		return tok, nil
	}

	r := l.peek(0)
	switch {
	case unicode.IsLetter(r) || r == '_':
		start := l.pos
		for l.pos < len(l.src) && isIdent(l.peek(0)) {
			l.advance()
		}
		tok.text = string(l.src[start:l.pos])
		if r == '_' || unicode.IsUpper(r) {
			tok.kind = tokVar
		} else {
			tok.kind = tokAtom
		}
		return tok, nil

	case unicode.IsDigit(r):
		start := l.pos
		for l.pos < len(l.src) && unicode.IsDigit(l.peek(0)) {
			l.advance()
		}
		tok.kind = tokInt
		// A dot followed by a digit continues the number; otherwise it
		// ends the statement.
		if l.peek(0) == '.' && unicode.IsDigit(l.peek(1)) {
			l.advance()
			for l.pos < len(l.src) && unicode.IsDigit(l.peek(0)) {
				l.advance()
			}
			tok.kind = tokFloat
		}
		tok.text = string(l.src[start:l.pos])
		return tok, nil

	case r == '"' || r == '\'':
		text, err := l.quoted(r)
		if err != nil {
			return token{}, err
		}
		tok.text = text
		tok.kind = tokString
		if r == '\'' {
			tok.kind = tokQuoted
		}
		return tok, nil
	}

	rest := string(l.src[l.pos:min(l.pos+2, len(l.src))])
	for _, p := range punctuation {
		if strings.HasPrefix(rest, p) {
			for range p {
				l.advance()
			}
			tok.kind = tokPunct
			tok.text = p
			return tok, nil
		}
	}
	return token{}, l.errorf("unexpected character %q", r)
}

func (l *lexer) quoted(q rune) (string, error) {
	l.advance()
	var b strings.Builder
	for {
		if l.pos >= len(l.src) {
			return "", l.errorf("unterminated string")
		}
		r := l.advance()
		switch r {
		case q:
			return b.String(), nil
		case '\\':
			if l.pos >= len(l.src) {
				return "", l.errorf("unterminated string")
			}
			switch e := l.advance(); e {
			case 'n':
				b.WriteRune('\n')
			case 't':
				b.WriteRune('\t')
			default:
				b.WriteRune(e)
			}
		default:
			b.WriteRune(r)
		}
	}
}

func isIdent(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
