package query

import (
	"strconv"
	"strings"
	"unicode"
)

// Scanner splits media query text into tokens, tracking line and column
// so errors can point at the offending character.
type Scanner struct {
	source  []rune
	current int
	line    int
	column  int
}

// NewScanner creates a Scanner positioned at the start of text.
func NewScanner(text string) *Scanner {
	return &Scanner{
		source: []rune(text),
		line:   1,
		column: 1,
	}
}

// Next returns the next token, skipping whitespace. Once the input is
// exhausted every call returns an EOF token.
func (s *Scanner) Next() Token {
	s.skipWhitespace()

	line, column := s.line, s.column
	if s.isAtEnd() {
		return Token{Kind: EOF, Line: line, Column: column}
	}

	start := s.current
	r := s.advance()
	tok := Token{Line: line, Column: column}

	switch r {
	case ',':
		tok.Kind = Comma
	case ':':
		tok.Kind = Colon
	case '(':
		tok.Kind = OpenParen
	case ')':
		tok.Kind = CloseParen
	case '"', '\'':
		return s.scanString(r, tok)
	default:
		if !isWordRune(r) {
			tok.Kind = Invalid
			tok.Text = string(r)
			tok.Err = "unexpected character " + strconv.QuoteRune(r)
			return tok
		}
		for !s.isAtEnd() && isWordRune(s.peek()) {
			s.advance()
		}
		tok.Kind = classifyWord(string(s.source[start:s.current]))
	}

	tok.Text = string(s.source[start:s.current])
	tok.Value = tok.Text
	return tok
}

// scanString scans a quoted literal. Backslash escapes the next rune.
func (s *Scanner) scanString(quote rune, tok Token) Token {
	start := s.current - 1
	var b strings.Builder
	for {
		if s.isAtEnd() {
			tok.Kind = Invalid
			tok.Text = string(s.source[start:s.current])
			tok.Err = "unterminated string literal"
			return tok
		}
		r := s.advance()
		if r == quote {
			break
		}
		if r == '\\' && !s.isAtEnd() {
			r = s.advance()
		}
		b.WriteRune(r)
	}
	tok.Kind = String
	tok.Text = string(s.source[start:s.current])
	tok.Value = b.String()
	return tok
}

func (s *Scanner) skipWhitespace() {
	for !s.isAtEnd() && unicode.IsSpace(s.peek()) {
		s.advance()
	}
}

func (s *Scanner) advance() rune {
	r := s.source[s.current]
	s.current++
	if r == '\n' {
		s.line++
		s.column = 1
	} else {
		s.column++
	}
	return r
}

func (s *Scanner) peek() rune {
	return s.source[s.current]
}

func (s *Scanner) isAtEnd() bool {
	return s.current >= len(s.source)
}

// isWordRune reports whether r may appear in an identifier or number.
func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' || r == '.' || r == '+'
}

func classifyWord(word string) Kind {
	if k, ok := keywords[word]; ok {
		return k
	}
	if looksNumeric(word) {
		if _, err := strconv.ParseFloat(word, 64); err == nil {
			return Number
		}
	}
	return Identifier
}

// looksNumeric keeps words such as "inf" or "nan" out of the number class.
func looksNumeric(word string) bool {
	r := []rune(word)
	if unicode.IsDigit(r[0]) {
		return true
	}
	return len(r) > 1 && strings.ContainsRune("+-.", r[0]) && unicode.IsDigit(r[1])
}
