package query

import "fmt"

// Kind identifies the lexical class of a token.
type Kind int

const (
	EOF Kind = iota
	Invalid
	Identifier
	Number
	Boolean
	String
	And
	Not
	Or
	Comma
	Colon
	OpenParen
	CloseParen
)

var kindNames = map[Kind]string{
	EOF:        "end of query",
	Invalid:    "invalid token",
	Identifier: "identifier",
	Number:     "number",
	Boolean:    "boolean",
	String:     "string literal",
	And:        "'and'",
	Not:        "'not'",
	Or:         "'or'",
	Comma:      "','",
	Colon:      "':'",
	OpenParen:  "'('",
	CloseParen: "')'",
}

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// keywords maps reserved words to their token kinds. Keywords are
// case-sensitive.
var keywords = map[string]Kind{
	"and":   And,
	"not":   Not,
	"or":    Or,
	"true":  Boolean,
	"false": Boolean,
}

// Token is a single lexeme with its 1-based source position.
type Token struct {
	Kind   Kind
	Text   string // raw source text
	Value  string // decoded text; differs from Text only for string literals
	Line   int
	Column int
	Err    string // scanner diagnostic for Invalid tokens
}

// describe renders the token for use in an error message.
func (t Token) describe() string {
	if t.Kind == EOF {
		return t.Kind.String()
	}
	return fmt.Sprintf("%q", t.Text)
}
