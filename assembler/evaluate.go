package assembler

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.gatech.edu/ECEInnovation/bass/expression"
	"github.gatech.edu/ECEInnovation/bass/symbols"
)

func (a *Assembler) evaluate(source string, mode Evaluation) (int64, error) {
	source = strings.TrimSpace(source)

	name := ""
	switch source {
	case "--":
		name = fmt.Sprintf("lastLabel#%d", a.lastLabelCounter-2)
	case "-":
		name = fmt.Sprintf("lastLabel#%d", a.lastLabelCounter-1)
	case "+":
		name = fmt.Sprintf("nextLabel#%d", a.nextLabelCounter)
	case "++":
		name = fmt.Sprintf("nextLabel#%d", a.nextLabelCounter+1)
	}
	if name != "" {
		if value, ok := a.env.FindConstant(name); ok {
			return value, nil
		}
		if a.phase == Query {
			return a.pc(), nil
		}
		return 0, Errors.RelativeLabel()
	}

	node, err := expression.Parse(source)
	if err != nil {
		return 0, Errors.MalformedExpression(source, err)
	}
	return a.evaluateNode(node, mode)
}

func boolean(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func (a *Assembler) evaluateNode(node *expression.Node, mode Evaluation) (int64, error) {
	p := func(n int) (int64, error) {
		return a.evaluateNode(node.Link[n], mode)
	}

	switch node.Kind {
	case expression.Null:
		return 0, nil
	case expression.Function:
		return a.evaluateFunction(node, mode)
	case expression.Literal:
		return a.evaluateLiteral(node, mode)
	case expression.Subscript:
		return a.evaluateSubscript(node, mode)
	case expression.Assign:
		return a.evaluateAssign(node, mode)

	case expression.LogicalAnd:
		left, err := p(0)
		if err != nil || left == 0 {
			return 0, err
		}
		return p(1)

	case expression.LogicalOr:
		left, err := p(0)
		if err != nil || left != 0 {
			return boolean(left != 0), err
		}
		return p(1)

	case expression.Condition:
		test, err := p(0)
		if err != nil {
			return 0, err
		}
		if test != 0 {
			return p(1)
		}
		return p(2)

	case expression.LogicalNot, expression.BitwiseNot, expression.Positive, expression.Negative:
		value, err := p(0)
		if err != nil {
			return 0, err
		}
		switch node.Kind {
		case expression.LogicalNot:
			return boolean(value == 0), nil
		case expression.BitwiseNot:
			return ^value, nil
		case expression.Negative:
			return -value, nil
		}
		return value, nil
	}

	if len(node.Link) != 2 {
		return 0, Errors.New(MalformedExpression, "unsupported operator: %v", node.Kind)
	}
	left, err := p(0)
	if err != nil {
		return 0, err
	}
	right, err := p(1)
	if err != nil {
		return 0, err
	}

	switch node.Kind {
	case expression.Multiply:
		return left * right, nil
	case expression.Divide, expression.Modulo:
		if right == 0 {
			return 0, Errors.New(Failure, "division by zero")
		}
		if node.Kind == expression.Divide {
			return left / right, nil
		}
		return left % right, nil
	case expression.Add:
		return left + right, nil
	case expression.Subtract:
		return left - right, nil
	case expression.ShiftLeft, expression.ShiftRight:
		if right < 0 {
			return 0, Errors.New(Failure, "negative shift amount: %d", right)
		}
		if node.Kind == expression.ShiftLeft {
			return left << right, nil
		}
		return left >> right, nil
	case expression.BitwiseAnd:
		return left & right, nil
	case expression.BitwiseOr:
		return left | right, nil
	case expression.BitwiseXor:
		return left ^ right, nil
	case expression.Equal:
		return boolean(left == right), nil
	case expression.NotEqual:
		return boolean(left != right), nil
	case expression.LessThanEqual:
		return boolean(left <= right), nil
	case expression.GreaterThanEqual:
		return boolean(left >= right), nil
	case expression.LessThan:
		return boolean(left < right), nil
	case expression.GreaterThan:
		return boolean(left > right), nil
	}

	return 0, Errors.New(MalformedExpression, "unsupported operator: %v", node.Kind)
}

func (a *Assembler) evaluateParameters(node *expression.Node, mode Evaluation) ([]int64, error) {
	var result []int64
	for _, argument := range node.Arguments() {
		value, err := a.evaluateNode(argument, mode)
		if err != nil {
			return nil, err
		}
		result = append(result, value)
	}
	return result, nil
}

func (a *Assembler) evaluateFunction(node *expression.Node, mode Evaluation) (int64, error) {
	name := node.Link[0].Literal
	arguments := node.Link[1]
	if n := arguments.Arity(); n > 0 {
		name += "#" + strconv.Itoa(n)
	}

	switch name {
	case "array.size#1":
		s, err := a.evaluateString(arguments)
		if err != nil {
			return 0, err
		}
		if array, ok := a.env.FindArray(s); ok {
			return int64(len(*array)), nil
		}
		return 0, Errors.UnrecognizedArray(s)

	case "array.sort#1":
		s, err := a.evaluateString(arguments)
		if err != nil {
			return 0, err
		}
		if array, ok := a.env.FindArray(s); ok {
			slices.Sort(*array)
			return 0, nil
		}
		return 0, Errors.UnrecognizedArray(s)

	case "assert#1":
		result, err := a.evaluateNode(arguments, mode)
		if err != nil {
			return 0, err
		}
		if result == 0 {
			return 0, Errors.AssertionFailed()
		}
		return 0, nil

	case "file.size#1", "file.exists#1":
		s, err := a.evaluateString(arguments)
		if err != nil {
			return 0, err
		}
		filename := unquote(s)
		path, err := a.sourcePath(filename)
		if err != nil {
			return 0, err
		}
		info, err := os.Stat(path)
		if name == "file.exists#1" {
			return boolean(err == nil), nil
		}
		if err != nil {
			return 0, Errors.FileNotFound(filename)
		}
		return info.Size(), nil

	case "read#1":
		if a.target == nil {
			return 0, Errors.New(Resource, "no target file open for reading")
		}
		address, err := a.evaluateNode(arguments, mode)
		if err != nil {
			return 0, err
		}
		data := make([]byte, 1)
		if _, err := a.target.ReadAt(data, address); err != nil {
			// nothing is written during the query phase
			if a.phase == Query {
				return 0, nil
			}
			return 0, Errors.New(Resource, "unable to read target file at 0x%x", address)
		}
		return int64(data[0]), nil

	case "origin":
		return a.origin, nil
	case "base":
		return a.base, nil
	case "pc":
		return a.pc(), nil
	}

	found, ok := a.env.FindExpression(name)
	if !ok {
		return 0, Errors.UnrecognizedExpression(name)
	}
	function := *found

	parameters, err := a.evaluateParameters(arguments, mode)
	if err != nil {
		return 0, err
	}
	if len(parameters) > 0 {
		a.env.PushFrame(0, true)
		defer a.env.PopFrame()
	}
	for n, value := range parameters {
		if err := a.env.SetVariable(function.Parameters[n], value, symbols.Inline); err != nil {
			return 0, err
		}
	}
	return a.evaluate(function.Value, mode)
}

// evaluateString resolves literal and '~' concatenation nodes to text.
func (a *Assembler) evaluateString(node *expression.Node) (string, error) {
	switch node.Kind {
	case expression.Literal:
		return node.Literal, nil
	case expression.Concatenate:
		left, err := a.evaluateString(node.Link[0])
		if err != nil {
			return "", err
		}
		right, err := a.evaluateString(node.Link[1])
		if err != nil {
			return "", err
		}
		return `"` + unquote(left) + unquote(right) + `"`, nil
	}
	return "", Errors.New(MalformedExpression, "unrecognized string expression")
}

func parseNumber(s string, base int) (int64, error) {
	digits := strings.ReplaceAll(s, "'", "")
	value, err := strconv.ParseUint(digits, base, 64)
	if err != nil || digits == "" {
		return 0, Errors.InvalidLiteral(s)
	}
	return int64(value), nil
}

func (a *Assembler) evaluateLiteral(node *expression.Node, mode Evaluation) (int64, error) {
	s := node.Literal

	switch {
	case strings.HasPrefix(s, "0b"):
		return parseNumber(s[2:], 2)
	case strings.HasPrefix(s, "0o"):
		return parseNumber(s[2:], 8)
	case strings.HasPrefix(s, "0x"):
		return parseNumber(s[2:], 16)
	case s[0] >= '0' && s[0] <= '9':
		return parseNumber(s, 10)
	case s[0] == '%':
		return parseNumber(s[1:], 2)
	case s[0] == '$':
		return parseNumber(s[1:], 16)
	case len(s) >= 3 && s[0] == '\'' && s[len(s)-1] == '\'':
		return a.character(s)
	}

	if variable, ok := a.env.FindVariable(s); ok {
		return *variable, nil
	}
	if constant, ok := a.env.FindConstant(s); ok {
		return constant, nil
	}
	if mode != Strict && a.phase == Query {
		return a.pc(), nil
	}
	return 0, Errors.UnrecognizedVariable(s)
}

func (a *Assembler) evaluateSubscript(node *expression.Node, mode Evaluation) (int64, error) {
	s := node.Link[0].Literal

	array, ok := a.env.FindArray(s)
	if !ok {
		return 0, Errors.UnrecognizedArray(s)
	}
	index, err := a.evaluateNode(node.Link[1], mode)
	if err != nil {
		return 0, err
	}
	if index < 0 || index >= int64(len(*array)) {
		return 0, Errors.SubscriptOutOfBounds(index, len(*array))
	}
	return (*array)[index], nil
}

func (a *Assembler) evaluateAssign(node *expression.Node, mode Evaluation) (int64, error) {
	s := node.Link[0].Literal

	variable, ok := a.env.FindVariable(s)
	if !ok {
		return 0, Errors.UnrecognizedAssignment(s)
	}
	value, err := a.evaluateNode(node.Link[1], mode)
	if err != nil {
		return 0, err
	}
	*variable = value
	return value, nil
}
