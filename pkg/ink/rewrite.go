package ink

import "fmt"

// exprKind discriminates the expression AST produced by parseExpr (spec
// §4.3's "rewrite-then-evaluate" pipeline: rules 1–6 are resolved here,
// against the token stream, rather than by textual substitution, so that
// operand boundaries for `has`/`hasnt`/pattern-match are found correctly
// regardless of surrounding parens).
type exprKind int

const (
	exprNumber exprKind = iota
	exprString
	exprBool
	exprNil
	exprIdent
	exprCall
	exprListLit
	exprUnary
	exprBinary
	exprHas
	exprPatternMatch
)

// exprNode is one node of the parsed expression tree. Tagged variant,
// same shape as Block.
type exprNode struct {
	kind exprKind

	num  float64
	str  string
	b    bool
	name string // exprIdent / exprCall

	args  []*exprNode // exprCall
	items []string    // exprListLit: raw item names, e.g. "green" or "colors.green"

	op string // exprUnary / exprBinary

	negate bool // exprHas ("hasnt"), exprPatternMatch ("!?")

	l, r *exprNode // exprBinary, exprHas, exprPatternMatch
	x    *exprNode // exprUnary operand
}

type exprParser struct {
	toks []token
	pos  int
}

// parseExpr tokenizes and parses src into an expression tree (rules
// 1–6 of spec §4.3; rule 7, evaluation, happens in Evaluator.Eval).
func parseExpr(src string) (*exprNode, error) {
	toks, err := lexExpr(src)
	if err != nil {
		return nil, err
	}
	p := &exprParser{toks: toks}
	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, fmt.Errorf("unexpected token %q at offset %d", p.peek().text, p.peek().pos)
	}
	return node, nil
}

func (p *exprParser) peek() token { return p.toks[p.pos] }

func (p *exprParser) advance() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

// isOp reports whether the current token is the operator text s, where
// s may be a symbolic operator (tokOp) or a keyword spelled as an
// identifier (`has`, `hasnt`, `and`, `or`).
func (p *exprParser) isOp(s string) bool {
	t := p.peek()
	return (t.kind == tokOp || t.kind == tokIdent) && t.text == s
}

// rule 1 (partial): `||` / `or` is the loosest binding operator.
func (p *exprParser) parseOr() (*exprNode, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.isOp("||") || p.isOp("or") {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &exprNode{kind: exprBinary, op: "||", l: left, r: right}
	}
	return left, nil
}

// rule 1 (partial): `&&` / `and`.
func (p *exprParser) parseAnd() (*exprNode, error) {
	left, err := p.parsePatternMatch()
	if err != nil {
		return nil, err
	}
	for p.isOp("&&") || p.isOp("and") {
		p.advance()
		right, err := p.parsePatternMatch()
		if err != nil {
			return nil, err
		}
		left = &exprNode{kind: exprBinary, op: "&&", l: left, r: right}
	}
	return left, nil
}

// rule 6: pattern-match `?` / `!?`.
func (p *exprParser) parsePatternMatch() (*exprNode, error) {
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for p.isOp("?") || p.isOp("!?") {
		negate := p.peek().text == "!?"
		p.advance()
		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		left = &exprNode{kind: exprPatternMatch, negate: negate, l: left, r: right}
	}
	return left, nil
}

// rule 1: `!=` → structural not-equal, alongside `==`.
func (p *exprParser) parseEquality() (*exprNode, error) {
	left, err := p.parseHas()
	if err != nil {
		return nil, err
	}
	for p.isOp("==") || p.isOp("!=") {
		op := p.peek().text
		p.advance()
		right, err := p.parseHas()
		if err != nil {
			return nil, err
		}
		left = &exprNode{kind: exprBinary, op: op, l: left, r: right}
	}
	return left, nil
}

// rule 2: `has` / `hasnt`.
func (p *exprParser) parseHas() (*exprNode, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.isOp("has") || p.isOp("hasnt") {
		negate := p.peek().text == "hasnt"
		p.advance()
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = &exprNode{kind: exprHas, negate: negate, l: left, r: right}
	}
	return left, nil
}

func (p *exprParser) parseComparison() (*exprNode, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for p.isOp("<") || p.isOp("<=") || p.isOp(">") || p.isOp(">=") {
		op := p.peek().text
		p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = &exprNode{kind: exprBinary, op: op, l: left, r: right}
	}
	return left, nil
}

func (p *exprParser) parseAdditive() (*exprNode, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.isOp("+") || p.isOp("-") {
		op := p.peek().text
		p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &exprNode{kind: exprBinary, op: op, l: left, r: right}
	}
	return left, nil
}

func (p *exprParser) parseMultiplicative() (*exprNode, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.isOp("*") || p.isOp("/") || p.isOp("%") {
		op := p.peek().text
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &exprNode{kind: exprBinary, op: op, l: left, r: right}
	}
	return left, nil
}

func (p *exprParser) parseUnary() (*exprNode, error) {
	if p.isOp("!") || p.isOp("-") {
		op := p.peek().text
		p.advance()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &exprNode{kind: exprUnary, op: op, x: x}, nil
	}
	return p.parsePrimary()
}

// rule 3 (function calls), rule 4 (parenthesised item lists), rule 5
// (bare identifiers and literals pass through).
func (p *exprParser) parsePrimary() (*exprNode, error) {
	t := p.peek()
	switch {
	case t.kind == tokNumber:
		p.advance()
		var f float64
		if _, err := fmt.Sscanf(t.text, "%g", &f); err != nil {
			return nil, fmt.Errorf("invalid number %q", t.text)
		}
		return &exprNode{kind: exprNumber, num: f}, nil

	case t.kind == tokString:
		p.advance()
		return &exprNode{kind: exprString, str: t.text}, nil

	case t.kind == tokIdent:
		p.advance()
		switch t.text {
		case "true":
			return &exprNode{kind: exprBool, b: true}, nil
		case "false":
			return &exprNode{kind: exprBool, b: false}, nil
		case "nil":
			return &exprNode{kind: exprNil}, nil
		}
		if p.peek().kind == tokLParen {
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			return &exprNode{kind: exprCall, name: t.text, args: args}, nil
		}
		return &exprNode{kind: exprIdent, name: t.text}, nil

	case t.kind == tokLParen:
		return p.parseParenGroup()

	default:
		return nil, fmt.Errorf("unexpected token %q at offset %d", t.text, t.pos)
	}
}

func (p *exprParser) parseArgs() ([]*exprNode, error) {
	p.advance() // consume '('
	var args []*exprNode
	if p.peek().kind == tokRParen {
		p.advance()
		return args, nil
	}
	for {
		arg, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.peek().kind == tokComma {
			p.advance()
			continue
		}
		break
	}
	if p.peek().kind != tokRParen {
		return nil, fmt.Errorf("expected ')' at offset %d", p.peek().pos)
	}
	p.advance()
	return args, nil
}

// parseParenGroup handles rule 4: `(a, b.c, …)` is a List value literal
// when it holds more than one bare identifier; a lone parenthesised
// expression is ordinary grouping.
func (p *exprParser) parseParenGroup() (*exprNode, error) {
	p.advance() // consume '('
	first, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.peek().kind == tokComma {
		items := []string{}
		if first.kind == exprIdent {
			items = append(items, first.name)
		} else {
			return nil, fmt.Errorf("list literal items must be bare identifiers")
		}
		for p.peek().kind == tokComma {
			p.advance()
			item, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			if item.kind != exprIdent {
				return nil, fmt.Errorf("list literal items must be bare identifiers")
			}
			items = append(items, item.name)
		}
		if p.peek().kind != tokRParen {
			return nil, fmt.Errorf("expected ')' at offset %d", p.peek().pos)
		}
		p.advance()
		return &exprNode{kind: exprListLit, items: items}, nil
	}
	if p.peek().kind != tokRParen {
		return nil, fmt.Errorf("expected ')' at offset %d", p.peek().pos)
	}
	p.advance()
	return first, nil
}
