package expression_test

import (
	"errors"
	"strings"
	"testing"

	"github.gatech.edu/ECEInnovation/bass/expression"
)

// render prints a tree in prefix form so shapes can be compared as strings.
func render(n *expression.Node) string {
	if n.Kind == expression.Literal {
		return n.Literal
	}
	if len(n.Link) == 0 {
		return n.Kind.String()
	}
	parts := []string{n.Kind.String()}
	for _, link := range n.Link {
		parts = append(parts, render(link))
	}
	return "(" + strings.Join(parts, " ") + ")"
}

func TestParsePrecedence(t *testing.T) {
	tests := []struct {
		source   string
		expected string
	}{
		{"1 + 2 * 3", "(+ 1 (* 2 3))"},
		{"(1 + 2) * 3", "(* (+ 1 2) 3)"},
		{"1 << 2 + 3", "(<< 1 (+ 2 3))"},
		{"a < b == c", "(== (< a b) c)"},
		{"a & b | c ^ d", "(| (& a b) (^ c d))"},
		{"a || b && c", "(|| a (&& b c))"},
		{"a ? b : c ? d : e", "(?: a b (?: c d e))"},
		{"x = y = 3", "(= x (= y 3))"},
		{"-a * !b", "(* (-x a) (! b))"},
		{"~$ff", "(~ $ff)"},
		{"10 % 3", "(% 10 3)"},
		{"%1010 % %11", "(% %1010 %11)"},
		{"\"foo\" ~ \"bar\"", "(~x \"foo\" \"bar\")"},
		{"a >= b", "(>= a b)"},
		{"a >> 2", "(>> a 2)"},
		{"scope.name + 1", "(+ scope.name 1)"},
		{"'a' + 1", "(+ 'a' 1)"},
		{"'\\'' + 1", "(+ '\\'' 1)"},
	}

	for _, test := range tests {
		node, err := expression.Parse(test.source)
		if err != nil {
			t.Errorf("Parse(%q) returned error: %v", test.source, err)
			continue
		}
		if got := render(node); got != test.expected {
			t.Errorf("Parse(%q) = %s, expected %s", test.source, got, test.expected)
		}
	}
}

func TestParseFunctionArity(t *testing.T) {
	tests := []struct {
		source string
		arity  int
	}{
		{"f()", 0},
		{"f(x)", 1},
		{"f(x, y)", 2},
		{"f(x, y + 1, g(z))", 3},
	}

	for _, test := range tests {
		node, err := expression.Parse(test.source)
		if err != nil {
			t.Fatalf("Parse(%q) returned error: %v", test.source, err)
		}
		if node.Kind != expression.Function {
			t.Fatalf("Parse(%q) produced %v, expected a function node", test.source, node.Kind)
		}
		if got := node.Link[1].Arity(); got != test.arity {
			t.Errorf("Parse(%q) arity = %d, expected %d", test.source, got, test.arity)
		}
		if got := len(node.Link[1].Arguments()); got != test.arity {
			t.Errorf("Parse(%q) produced %d arguments, expected %d", test.source, got, test.arity)
		}
	}
}

func TestParseSubscript(t *testing.T) {
	node, err := expression.Parse("table[i + 1]")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := render(node); got != "(subscript table (+ i 1))" {
		t.Errorf("unexpected tree %s", got)
	}
}

func TestParseEmpty(t *testing.T) {
	node, err := expression.Parse("   ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if node.Kind != expression.Null {
		t.Errorf("expected null node, got %v", node.Kind)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		source string
		reason string
	}{
		{"(1 + 2", "mismatched group"},
		{"f(1, 2", "mismatched function"},
		{"a[1", "mismatched subscript"},
		{"a ? b", "mismatched ternary"},
		{"1 +", "unexpected end of expression"},
		{"1 2", "unrecognized terminal"},
		{"'abc", "mismatched quotes"},
		{"%2", "invalid binary literal"},
		{"@", "invalid literal"},
	}

	for _, test := range tests {
		_, err := expression.Parse(test.source)
		var syntaxErr *expression.SyntaxError
		if !errors.As(err, &syntaxErr) {
			t.Errorf("Parse(%q) returned %v, expected a syntax error", test.source, err)
			continue
		}
		if syntaxErr.Reason != test.reason {
			t.Errorf("Parse(%q) reason = %q, expected %q", test.source, syntaxErr.Reason, test.reason)
		}
	}
}
