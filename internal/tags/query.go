package tags

import (
	"strings"

	"github.com/notecomb/notecomb/internal/errors"
)

// Query is a boolean expression over a fragment's tag set.
type Query interface {
	// Matches reports whether a fragment carrying the given tags
	// satisfies the query. Keys must be lowercase.
	Matches(tagSet map[string]bool) bool
	// String renders the query in canonical form.
	String() string
}

type singleQuery struct{ tag string }

func (q singleQuery) Matches(tagSet map[string]bool) bool { return tagSet[q.tag] }
func (q singleQuery) String() string                      { return "#" + q.tag }

type andQuery struct{ left, right Query }

func (q andQuery) Matches(tagSet map[string]bool) bool {
	return q.left.Matches(tagSet) && q.right.Matches(tagSet)
}
func (q andQuery) String() string {
	return q.left.String() + " AND " + q.right.String()
}

type orQuery struct{ left, right Query }

func (q orQuery) Matches(tagSet map[string]bool) bool {
	return q.left.Matches(tagSet) || q.right.Matches(tagSet)
}
func (q orQuery) String() string {
	return "(" + q.left.String() + " OR " + q.right.String() + ")"
}

type notQuery struct{ inner Query }

func (q notQuery) Matches(tagSet map[string]bool) bool { return !q.inner.Matches(tagSet) }
func (q notQuery) String() string                      { return "NOT " + q.inner.String() }

type tokenKind int

const (
	tokTag tokenKind = iota
	tokAnd
	tokOr
	tokNot
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string // lowercase tag name for tokTag
	pos  int    // byte offset in the input
}

func lexQuery(input string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(input) {
		c := input[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(':
			toks = append(toks, token{kind: tokLParen, pos: i})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen, pos: i})
			i++
		case isWordByte(c) || c == '#':
			start := i
			if c == '#' {
				i++
			}
			wordStart := i
			for i < len(input) && isWordByte(input[i]) {
				i++
			}
			if i == wordStart {
				return nil, errors.NewQuerySyntax("empty tag name", start)
			}
			word := input[wordStart:i]
			if input[start] != '#' {
				switch strings.ToUpper(word) {
				case "AND":
					toks = append(toks, token{kind: tokAnd, pos: start})
					continue
				case "OR":
					toks = append(toks, token{kind: tokOr, pos: start})
					continue
				case "NOT":
					toks = append(toks, token{kind: tokNot, pos: start})
					continue
				}
			}
			toks = append(toks, token{kind: tokTag, text: strings.ToLower(word), pos: start})
		default:
			return nil, errors.NewQuerySyntax("unexpected character "+string(c), i)
		}
	}
	return toks, nil
}

func isWordByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' ||
		c >= '0' && c <= '9' || c == '_' || c == '-'
}

// ParseQuery parses a boolean tag expression. Grammar, loosest first:
//
//	expression := term (OR term)*
//	term       := factor ((AND)? factor)*
//	factor     := NOT factor | "(" expression ")" | TAG
//
// Adjacent factors with no operator are joined by an implicit AND. Tag
// names and keywords are case-insensitive; a leading "#" on a tag is
// optional.
func ParseQuery(input string) (Query, error) {
	toks, err := lexQuery(input)
	if err != nil {
		return nil, err
	}
	if len(toks) == 0 {
		return nil, errors.NewQuerySyntax("empty query", 0)
	}
	p := &queryParser{toks: toks, inputLen: len(input)}
	q, err := p.expression()
	if err != nil {
		return nil, err
	}
	if p.idx < len(p.toks) {
		return nil, errors.NewQuerySyntax("unexpected token", p.toks[p.idx].pos)
	}
	return q, nil
}

type queryParser struct {
	toks     []token
	idx      int
	inputLen int
}

func (p *queryParser) peek() (token, bool) {
	if p.idx >= len(p.toks) {
		return token{}, false
	}
	return p.toks[p.idx], true
}

func (p *queryParser) errPos() int {
	if p.idx < len(p.toks) {
		return p.toks[p.idx].pos
	}
	return p.inputLen
}

func (p *queryParser) expression() (Query, error) {
	left, err := p.term()
	if err != nil {
		return nil, err
	}
	for {
		tok, ok := p.peek()
		if !ok || tok.kind != tokOr {
			return left, nil
		}
		p.idx++
		right, err := p.term()
		if err != nil {
			return nil, err
		}
		left = orQuery{left: left, right: right}
	}
}

func (p *queryParser) term() (Query, error) {
	left, err := p.factor()
	if err != nil {
		return nil, err
	}
	for {
		tok, ok := p.peek()
		if !ok {
			return left, nil
		}
		switch tok.kind {
		case tokAnd:
			p.idx++
		case tokTag, tokNot, tokLParen:
			// implicit AND
		default:
			return left, nil
		}
		right, err := p.factor()
		if err != nil {
			return nil, err
		}
		left = andQuery{left: left, right: right}
	}
}

func (p *queryParser) factor() (Query, error) {
	tok, ok := p.peek()
	if !ok {
		return nil, errors.NewQuerySyntax("expected tag, NOT, or (", p.errPos())
	}
	switch tok.kind {
	case tokNot:
		p.idx++
		inner, err := p.factor()
		if err != nil {
			return nil, err
		}
		return notQuery{inner: inner}, nil
	case tokLParen:
		p.idx++
		inner, err := p.expression()
		if err != nil {
			return nil, err
		}
		closing, ok := p.peek()
		if !ok || closing.kind != tokRParen {
			return nil, errors.NewQuerySyntax("missing closing parenthesis", p.errPos())
		}
		p.idx++
		return inner, nil
	case tokTag:
		p.idx++
		return singleQuery{tag: tok.text}, nil
	default:
		return nil, errors.NewQuerySyntax("expected tag, NOT, or (", tok.pos)
	}
}

func tagSetOf(tags []string) map[string]bool {
	set := make(map[string]bool, len(tags))
	for _, t := range tags {
		set[strings.ToLower(t)] = true
	}
	return set
}
