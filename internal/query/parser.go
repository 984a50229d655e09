package query

import "fmt"

type parser struct {
	scanner *Scanner
	tok     Token
}

// Parse parses a comma separated media query list. It never fails: a
// syntax error is recorded on the returned list so that callers can
// validate a whole document and report every bad query in one pass.
func Parse(text string) *List {
	list := &List{Text: text}
	p := &parser{scanner: NewScanner(text)}
	p.next()

	queries, err := p.parseList()
	if err != nil {
		list.Err = err
		return list
	}
	list.Queries = queries
	return list
}

func (p *parser) next() {
	p.tok = p.scanner.Next()
}

func (p *parser) errorf(format string, args ...any) *ParseError {
	return &ParseError{
		Message: fmt.Sprintf(format, args...),
		Line:    p.tok.Line,
		Column:  p.tok.Column,
	}
}

// unexpected builds the error for a token that does not fit the grammar.
func (p *parser) unexpected(expected string) *ParseError {
	if p.tok.Kind == Invalid {
		return p.errorf("%s", p.tok.Err)
	}
	return p.errorf("expected %s, found %s", expected, p.tok.describe())
}

func (p *parser) parseList() ([]Query, *ParseError) {
	if p.tok.Kind == EOF {
		return nil, nil
	}

	var queries []Query
	for {
		q, err := p.parseQuery()
		if err != nil {
			return nil, err
		}
		queries = append(queries, q)

		switch p.tok.Kind {
		case EOF:
			return queries, nil
		case Comma:
			p.next()
		default:
			return nil, p.unexpected("',' or 'and'")
		}
	}
}

func (p *parser) parseQuery() (Query, *ParseError) {
	var q Query
	for {
		e, err := p.parseExpression()
		if err != nil {
			return Query{}, err
		}
		q.Expressions = append(q.Expressions, e)

		if p.tok.Kind != And {
			return q, nil
		}
		p.next()
	}
}

func (p *parser) parseExpression() (Expression, *ParseError) {
	switch p.tok.Kind {
	case Not:
		p.next()
		e, err := p.parseExpression()
		if err != nil {
			return Expression{}, err
		}
		e.Negated = !e.Negated
		return e, nil

	case OpenParen:
		p.next()
		e, err := p.parseExpression()
		if err != nil {
			return Expression{}, err
		}
		if p.tok.Kind != CloseParen {
			return Expression{}, p.unexpected("')'")
		}
		p.next()
		return e, nil

	case Identifier:
		e := Expression{Feature: p.tok.Value}
		p.next()
		if p.tok.Kind != Colon {
			return e, nil
		}
		p.next()
		switch p.tok.Kind {
		case Number, Boolean, Identifier, String:
			e.Constant = &Constant{Kind: p.tok.Kind, Text: p.tok.Value}
			p.next()
			return e, nil
		default:
			return Expression{}, p.unexpected("constant")
		}

	default:
		return Expression{}, p.unexpected("identifier")
	}
}
