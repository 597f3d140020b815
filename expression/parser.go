package expression

import (
	"fmt"
	"strings"
)

// SyntaxError describes why an expression could not be parsed.
type SyntaxError struct {
	Expression string
	Offset     int
	Reason     string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s at offset %d", e.Reason, e.Offset)
}

type operator struct {
	token string
	kind  Kind
	// characters that must not follow token for it to match (eg "|" for "||")
	notFollowedBy string
}

// binary operator levels, loosest binding first
var levels = [][]operator{
	{{"||", LogicalOr, ""}},
	{{"&&", LogicalAnd, ""}},
	{{"|", BitwiseOr, "|"}},
	{{"^", BitwiseXor, ""}},
	{{"&", BitwiseAnd, "&"}},
	{{"==", Equal, ""}, {"!=", NotEqual, ""}},
	{{"<=", LessThanEqual, ""}, {">=", GreaterThanEqual, ""}, {"<", LessThan, "<"}, {">", GreaterThan, ">"}},
	{{"<<", ShiftLeft, ""}, {">>", ShiftRight, ""}},
	{{"+", Add, ""}, {"-", Subtract, ""}, {"~", Concatenate, ""}},
	{{"*", Multiply, ""}, {"/", Divide, ""}, {"%", Modulo, ""}},
}

type parser struct {
	s   string
	pos int
}

// Parse builds the expression tree for s. An empty (or all-whitespace)
// expression yields a Null node.
func Parse(s string) (*Node, error) {
	p := &parser{s: s}
	p.skipWhitespace()
	if p.eof() {
		return &Node{Kind: Null}, nil
	}

	node, err := p.parseSeparator()
	if err != nil {
		return nil, err
	}

	p.skipWhitespace()
	if !p.eof() {
		return nil, p.fail("unrecognized terminal")
	}
	return node, nil
}

func (p *parser) fail(reason string) *SyntaxError {
	return &SyntaxError{Expression: p.s, Offset: p.pos, Reason: reason}
}

func (p *parser) eof() bool {
	return p.pos >= len(p.s)
}

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.s[p.pos]
}

func (p *parser) peekAt(offset int) byte {
	if p.pos+offset >= len(p.s) {
		return 0
	}
	return p.s[p.pos+offset]
}

func (p *parser) skipWhitespace() {
	for !p.eof() && (p.s[p.pos] == ' ' || p.s[p.pos] == '\t') {
		p.pos++
	}
}

// accept consumes token when it is next in the input and is not followed by
// any of the characters in notFollowedBy.
func (p *parser) accept(token, notFollowedBy string) bool {
	p.skipWhitespace()
	if !strings.HasPrefix(p.s[p.pos:], token) {
		return false
	}
	if next := p.peekAt(len(token)); next != 0 && strings.IndexByte(notFollowedBy, next) >= 0 {
		return false
	}
	p.pos += len(token)
	return true
}

func (p *parser) parseSeparator() (*Node, error) {
	node, err := p.parseAssign()
	if err != nil {
		return nil, err
	}
	if !p.accept(",", "") {
		return node, nil
	}

	list := &Node{Kind: Separator, Link: []*Node{node}}
	for {
		next, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		list.Link = append(list.Link, next)
		if !p.accept(",", "") {
			return list, nil
		}
	}
}

func (p *parser) parseAssign() (*Node, error) {
	left, err := p.parseCondition()
	if err != nil {
		return nil, err
	}
	if !p.accept("=", "=") {
		return left, nil
	}
	right, err := p.parseAssign()
	if err != nil {
		return nil, err
	}
	return &Node{Kind: Assign, Link: []*Node{left, right}}, nil
}

func (p *parser) parseCondition() (*Node, error) {
	test, err := p.parseBinary(0)
	if err != nil {
		return nil, err
	}
	if !p.accept("?", "") {
		return test, nil
	}

	whenTrue, err := p.parseAssign()
	if err != nil {
		return nil, err
	}
	if !p.accept(":", "") {
		return nil, p.fail("mismatched ternary")
	}
	whenFalse, err := p.parseCondition()
	if err != nil {
		return nil, err
	}
	return &Node{Kind: Condition, Link: []*Node{test, whenTrue, whenFalse}}, nil
}

func (p *parser) parseBinary(level int) (*Node, error) {
	if level == len(levels) {
		return p.parseUnary()
	}

	left, err := p.parseBinary(level + 1)
	if err != nil {
		return nil, err
	}

	for {
		matched := false
		for _, op := range levels[level] {
			if !p.accept(op.token, op.notFollowedBy) {
				continue
			}
			right, err := p.parseBinary(level + 1)
			if err != nil {
				return nil, err
			}
			left = &Node{Kind: op.kind, Link: []*Node{left, right}}
			matched = true
			break
		}
		if !matched {
			return left, nil
		}
	}
}

func (p *parser) parseUnary() (*Node, error) {
	p.skipWhitespace()

	var kind Kind
	switch {
	case p.peek() == '!' && p.peekAt(1) != '=':
		kind = LogicalNot
	case p.peek() == '~':
		kind = BitwiseNot
	case p.peek() == '+':
		kind = Positive
	case p.peek() == '-':
		kind = Negative
	default:
		return p.parsePostfix()
	}

	p.pos++
	operand, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return &Node{Kind: kind, Link: []*Node{operand}}, nil
}

func (p *parser) parsePostfix() (*Node, error) {
	node, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	for {
		switch {
		case p.accept("(", ""):
			args, err := p.parseArguments()
			if err != nil {
				return nil, err
			}
			if !p.accept(")", "") {
				return nil, p.fail("mismatched function")
			}
			node = &Node{Kind: Function, Link: []*Node{node, args}}
		case p.accept("[", ""):
			index, err := p.parseAssign()
			if err != nil {
				return nil, err
			}
			if !p.accept("]", "") {
				return nil, p.fail("mismatched subscript")
			}
			node = &Node{Kind: Subscript, Link: []*Node{node, index}}
		default:
			return node, nil
		}
	}
}

func (p *parser) parseArguments() (*Node, error) {
	p.skipWhitespace()
	if p.peek() == ')' {
		return &Node{Kind: Null}, nil
	}
	return p.parseSeparator()
}

func (p *parser) parsePrimary() (*Node, error) {
	p.skipWhitespace()
	if p.eof() {
		return nil, p.fail("unexpected end of expression")
	}

	if p.accept("(", "") {
		node, err := p.parseSeparator()
		if err != nil {
			return nil, err
		}
		if !p.accept(")", "") {
			return nil, p.fail("mismatched group")
		}
		return node, nil
	}

	literal, err := p.parseLiteral()
	if err != nil {
		return nil, err
	}
	return &Node{Kind: Literal, Literal: literal}, nil
}

func (p *parser) parseLiteral() (string, error) {
	start := p.pos
	c := p.peek()

	switch {
	case c == '\'' || c == '"':
		p.pos++
		for !p.eof() {
			ch := p.s[p.pos]
			if ch == '\\' {
				p.pos += 2
				continue
			}
			p.pos++
			if ch == c {
				return p.s[start:p.pos], nil
			}
		}
		p.pos = start
		return "", p.fail("mismatched quotes")

	case c == '%':
		if next := p.peekAt(1); next != '0' && next != '1' {
			return "", p.fail("invalid binary literal")
		}
		p.pos++
		p.scanNumber()
		return p.s[start:p.pos], nil

	case c == '$':
		if !isHexDigit(p.peekAt(1)) {
			return "", p.fail("invalid hex literal")
		}
		p.pos++
		p.scanNumber()
		return p.s[start:p.pos], nil

	case isDigit(c):
		p.scanNumber()
		return p.s[start:p.pos], nil

	case isIdentifierStart(c):
		for !p.eof() && isIdentifierPart(p.s[p.pos]) {
			p.pos++
		}
		return p.s[start:p.pos], nil
	}

	return "", p.fail("invalid literal")
}

// scanNumber consumes the alphanumeric run of a numeric literal, including
// ' digit separators. Digits are validated when the literal is evaluated.
func (p *parser) scanNumber() {
	for !p.eof() {
		ch := p.s[p.pos]
		if isAlphanumeric(ch) || (ch == '\'' && isHexDigit(p.peekAt(1))) {
			p.pos++
			continue
		}
		return
	}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isAlphanumeric(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentifierStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_' || c == '.'
}

func isIdentifierPart(c byte) bool {
	return isAlphanumeric(c) || c == '_' || c == '.'
}
