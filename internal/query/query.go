// Package query implements the media query language used to key
// conditional blocks in artifact metadata.
//
// A query list is a comma separated set of alternatives; each alternative
// is a conjunction of feature tests:
//
//	windows and x64, linux and target:arm64
//
// A list matches a host context when any alternative matches; an
// alternative matches when all of its expressions match.
package query

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseError describes a malformed media query.
type ParseError struct {
	Message string
	Line    int // 1-based
	Column  int // 1-based
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
}

// Constant is the literal on the right-hand side of feature:constant.
type Constant struct {
	Kind Kind // Number, Boolean, Identifier or String
	Text string
}

// Value returns the constant as a Go scalar: float64 for numbers, bool
// for booleans and string otherwise.
func (c *Constant) Value() any {
	switch c.Kind {
	case Number:
		f, _ := strconv.ParseFloat(c.Text, 64)
		return f
	case Boolean:
		return c.Text == "true"
	default:
		return c.Text
	}
}

func (c *Constant) String() string {
	if c.Kind == String {
		return strconv.Quote(c.Text)
	}
	return c.Text
}

// Expression tests a single host feature.
type Expression struct {
	Feature  string
	Constant *Constant // nil for a presence test
	Negated  bool
}

func (e Expression) String() string {
	var b strings.Builder
	if e.Negated {
		b.WriteString("not ")
	}
	b.WriteString(e.Feature)
	if e.Constant != nil {
		b.WriteByte(':')
		b.WriteString(e.Constant.String())
	}
	return b.String()
}

// Query is a conjunction of expressions.
type Query struct {
	Expressions []Expression
}

func (q Query) String() string {
	parts := make([]string, len(q.Expressions))
	for i, e := range q.Expressions {
		parts[i] = e.String()
	}
	return strings.Join(parts, " and ")
}

// List is a parsed media query list. Lists are read-only after Parse.
type List struct {
	Text    string      // source text, used as the document key
	Queries []Query     // alternatives; empty when Err is set
	Err     *ParseError // first syntax error, if any
}

// IsValid reports whether the list parsed without error.
func (l *List) IsValid() bool {
	return l.Err == nil
}

// String returns the normalized form of the list.
func (l *List) String() string {
	parts := make([]string, len(l.Queries))
	for i, q := range l.Queries {
		parts[i] = q.String()
	}
	return strings.Join(parts, ", ")
}
