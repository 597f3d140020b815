package expression

// Kind identifies the operation a Node performs.
type Kind int

const (
	Null Kind = iota // empty expression, eg the argument list of f()
	Literal
	Function
	Subscript
	Separator
	LogicalNot
	BitwiseNot
	Positive
	Negative
	Multiply
	Divide
	Modulo
	Add
	Subtract
	Concatenate
	ShiftLeft
	ShiftRight
	BitwiseAnd
	BitwiseOr
	BitwiseXor
	Equal
	NotEqual
	LessThanEqual
	GreaterThanEqual
	LessThan
	GreaterThan
	LogicalAnd
	LogicalOr
	Condition
	Assign
)

var kindNames = [...]string{
	Null:             "null",
	Literal:          "literal",
	Function:         "function",
	Subscript:        "subscript",
	Separator:        "separator",
	LogicalNot:       "!",
	BitwiseNot:       "~",
	Positive:         "+x",
	Negative:         "-x",
	Multiply:         "*",
	Divide:           "/",
	Modulo:           "%",
	Add:              "+",
	Subtract:         "-",
	Concatenate:      "~x",
	ShiftLeft:        "<<",
	ShiftRight:       ">>",
	BitwiseAnd:       "&",
	BitwiseOr:        "|",
	BitwiseXor:       "^",
	Equal:            "==",
	NotEqual:         "!=",
	LessThanEqual:    "<=",
	GreaterThanEqual: ">=",
	LessThan:         "<",
	GreaterThan:      ">",
	LogicalAnd:       "&&",
	LogicalOr:        "||",
	Condition:        "?:",
	Assign:           "=",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// Node is one vertex of a parsed expression. Literal nodes carry their
// source text; every other kind stores its operands in Link.
//
// Function nodes hold the callee literal in Link[0] and the argument list in
// Link[1]: a Null node for f(), a Separator for two or more arguments, and
// the bare argument expression otherwise.
type Node struct {
	Kind    Kind
	Literal string
	Link    []*Node
}

// Arity reports how many arguments an argument-list node holds without
// evaluating any of them.
func (n *Node) Arity() int {
	switch n.Kind {
	case Null:
		return 0
	case Separator:
		return len(n.Link)
	}
	return 1
}

// Arguments flattens an argument-list node into its argument expressions.
func (n *Node) Arguments() []*Node {
	switch n.Kind {
	case Null:
		return nil
	case Separator:
		return n.Link
	}
	return []*Node{n}
}
