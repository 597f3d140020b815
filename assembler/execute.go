package assembler

import (
	"fmt"
	"strconv"
	"strings"

	"github.gatech.edu/ECEInnovation/bass/symbols"
)

func hasBlock(s, prefix string) bool {
	return strings.HasPrefix(s, prefix) && strings.HasSuffix(s, " {") && len(s) > len(prefix)+1
}

func blockHeader(s, prefix string) string {
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(s, prefix), " {"))
}

func classifyStatement(s string) statementKind {
	for strings.HasPrefix(s, "global ") || strings.HasPrefix(s, "parent ") {
		s = s[len("global "):]
	}

	switch {
	case s == "{":
		return statementBlock
	case s == "}":
		return statementEnd
	case s == "} else {":
		return statementElse
	case hasBlock(s, "} else if "):
		return statementElseIf
	case hasBlock(s, "macro "), hasBlock(s, "inline "):
		return statementMacro
	case hasBlock(s, "if "):
		return statementIf
	case hasBlock(s, "while "):
		return statementWhile
	case hasBlock(s, "scope "), hasBlock(s, "namespace "):
		return statementScope
	case hasBlock(s, "function "):
		return statementFunction
	}
	return statementOther
}

// levelPrefix strips a leading "global " or "parent " and returns the level
// it selects.
func levelPrefix(s string) (string, symbols.Level, error) {
	level := symbols.Active
	for {
		next := symbols.Active
		switch {
		case strings.HasPrefix(s, "global "):
			next = symbols.Global
		case strings.HasPrefix(s, "parent "):
			next = symbols.Parent
		default:
			return s, level, nil
		}
		if level != symbols.Active {
			return s, level, Errors.New(Structural, "multiple frame specifiers are not allowed")
		}
		level = next
		s = s[len("global "):]
	}
}

// signature splits "name(a, b)" into the name and its parameter list.
func signature(s string) (string, []string, error) {
	s = strings.TrimSpace(s)
	open := strings.IndexByte(s, '(')
	if open < 0 {
		return s, nil, nil
	}
	if !strings.HasSuffix(s, ")") {
		return "", nil, Errors.MismatchedParentheses()
	}
	parameters, err := split(s[open+1 : len(s)-1])
	return strings.TrimSpace(s[:open]), parameters, err
}

// analyze pairs every block statement with its closing brace and stores
// the jump targets on the instructions. Nothing is evaluated.
func (a *Assembler) analyze() error {
	a.initialize()

	type block struct {
		ip    int
		kind  blockKind
		chain []int
	}
	var blocks []block

	for ip, i := range a.program {
		a.active = i
		i.kind = classifyStatement(i.Statement)
		i.ip, i.exit, i.end = 0, 0, blockNone

		switch i.kind {
		case statementMacro:
			blocks = append(blocks, block{ip: ip, kind: blockMacro})
		case statementIf:
			blocks = append(blocks, block{ip: ip, kind: blockIf, chain: []int{ip}})
		case statementWhile:
			blocks = append(blocks, block{ip: ip, kind: blockWhile})
		case statementScope, statementFunction:
			blocks = append(blocks, block{ip: ip, kind: blockScope})
		case statementBlock:
			blocks = append(blocks, block{ip: ip, kind: blockPlain})

		case statementElseIf, statementElse:
			if len(blocks) == 0 || blocks[len(blocks)-1].kind != blockIf {
				return Errors.New(Structural, "else without matching if")
			}
			top := &blocks[len(blocks)-1]
			previous := a.program[top.chain[len(top.chain)-1]]
			if previous.kind == statementElse {
				return Errors.New(Structural, "else after else")
			}
			previous.ip = ip
			top.chain = append(top.chain, ip)

		case statementEnd:
			if len(blocks) == 0 {
				return Errors.New(Structural, "} without matching {")
			}
			b := blocks[len(blocks)-1]
			blocks = blocks[:len(blocks)-1]
			i.end = b.kind

			switch b.kind {
			case blockMacro:
				a.program[b.ip].ip = ip + 1
			case blockIf:
				a.program[b.chain[len(b.chain)-1]].ip = ip
				for _, n := range b.chain {
					a.program[n].exit = ip
				}
			case blockWhile:
				a.program[b.ip].ip = ip + 1
				i.ip = b.ip
			}
		}
	}

	if len(blocks) > 0 {
		a.active = a.program[blocks[len(blocks)-1].ip]
		return Errors.New(Structural, "unterminated block")
	}
	a.active = nil
	return nil
}

// execute runs one Query or Write pass over the program from a clean
// state. The first failing instruction is reported and aborts the pass.
func (a *Assembler) execute() error {
	a.initialize()
	if err := a.seek(0); err != nil {
		return a.fail(err)
	}

	for a.ip < len(a.program) {
		i := a.program[a.ip]
		a.active = i
		a.ip++
		if err := a.executeInstruction(i); err != nil {
			return a.fail(err)
		}
	}
	a.active = nil
	return nil
}

func (a *Assembler) executeInstruction(i *Instruction) error {
	s, err := a.evaluateDefines(i.Statement)
	if err != nil {
		return err
	}
	s, level, err := levelPrefix(s)
	if err != nil {
		return err
	}

	switch i.kind {
	case statementMacro:
		return a.declareMacro(s, level, i)
	case statementIf:
		return a.executeIf(blockHeader(s, "if "), i)
	case statementElseIf:
		return a.executeElseIf(blockHeader(s, "} else if "), i)
	case statementElse:
		return a.executeElse(i)
	case statementWhile:
		taken, err := a.condition(blockHeader(s, "while "))
		if err != nil {
			return err
		}
		if !taken {
			a.ip = i.ip
		}
		return nil
	case statementScope:
		name := blockHeader(blockHeader(s, "scope "), "namespace ")
		if !symbols.Valid(name) {
			return Errors.New(InvalidIdentifier, "invalid scope identifier: %s", name)
		}
		a.env.PushScope(name)
		return nil
	case statementFunction:
		name := blockHeader(s, "function ")
		if err := a.setLabel(name); err != nil {
			return err
		}
		a.env.PushScope(name)
		return nil
	case statementBlock:
		return nil
	case statementEnd:
		return a.closeBlock(i)
	}

	if handled, err := a.invoke(s); handled || err != nil {
		return err
	}
	if handled, err := a.declare(s, level); handled || err != nil {
		return err
	}
	if handled, err := a.directive(s); handled || err != nil {
		return err
	}
	if a.architecture != nil {
		if handled, err := a.architecture.Assemble(s); handled || err != nil {
			return err
		}
	}
	return Errors.UnrecognizedDirective(s)
}

func (a *Assembler) condition(s string) (bool, error) {
	value, err := a.evaluate(s, Strict)
	return value != 0, err
}

func (a *Assembler) executeIf(s string, i *Instruction) error {
	taken, err := a.condition(s)
	if err != nil {
		return err
	}
	a.conditionals = append(a.conditionals, taken)
	if !taken {
		a.ip = i.ip
	}
	return nil
}

func (a *Assembler) executeElseIf(s string, i *Instruction) error {
	if len(a.conditionals) == 0 {
		return Errors.New(Structural, "else without matching if")
	}
	top := &a.conditionals[len(a.conditionals)-1]
	if *top {
		a.ip = i.exit
		return nil
	}
	taken, err := a.condition(s)
	if err != nil {
		return err
	}
	*top = taken
	if !taken {
		a.ip = i.ip
	}
	return nil
}

func (a *Assembler) executeElse(i *Instruction) error {
	if len(a.conditionals) == 0 {
		return Errors.New(Structural, "else without matching if")
	}
	top := &a.conditionals[len(a.conditionals)-1]
	if *top {
		a.ip = i.exit
		return nil
	}
	*top = true
	return nil
}

func (a *Assembler) closeBlock(i *Instruction) error {
	switch i.end {
	case blockMacro:
		if len(a.env.Frames()) <= 1 {
			return Errors.New(Structural, "macro end outside of an invocation")
		}
		frame := a.env.Top()
		a.ip = frame.IP
		if !frame.Inlined {
			a.env.PopScope()
		}
		a.env.PopFrame()
	case blockIf:
		if len(a.conditionals) == 0 {
			return Errors.New(Structural, "} without matching if")
		}
		a.conditionals = a.conditionals[:len(a.conditionals)-1]
	case blockWhile:
		a.ip = i.ip
	case blockScope:
		a.env.PopScope()
	}
	return nil
}

// declareMacro records the macro body, which starts after the header, and
// skips over it.
func (a *Assembler) declareMacro(s string, level symbols.Level, i *Instruction) error {
	inlined := strings.HasPrefix(s, "inline ")
	header := blockHeader(blockHeader(s, "macro "), "inline ")
	name, parameters, err := signature(header)
	if err != nil {
		return err
	}
	if err := a.env.SetMacro(name, parameters, a.ip, inlined, level); err != nil {
		return err
	}
	a.ip = i.ip
	return nil
}

// invocation recognizes "name(args)" and bare "name" statements.
func invocation(s string) (string, []string, bool) {
	if open := strings.IndexByte(s, '('); open > 0 && strings.HasSuffix(s, ")") {
		name := s[:open]
		if !symbols.Valid(name) {
			return "", nil, false
		}
		arguments, err := split(s[open+1 : len(s)-1])
		if err != nil {
			return "", nil, false
		}
		return name, arguments, true
	}
	if symbols.Valid(s) {
		return s, nil, true
	}
	return "", nil, false
}

func (a *Assembler) invoke(s string) (bool, error) {
	name, arguments, ok := invocation(s)
	if !ok {
		return false, nil
	}
	key := name
	if len(arguments) > 0 {
		key += "#" + strconv.Itoa(len(arguments))
	}
	found, ok := a.env.FindMacro(key)
	if !ok {
		return false, nil
	}
	macro := *found

	// arguments are evaluated in the caller's frame and scope
	kinds := make([]string, len(arguments))
	names := make([]string, len(arguments))
	texts := make([]string, len(arguments))
	values := make([]int64, len(arguments))
	for n, argument := range arguments {
		kinds[n], names[n] = parameterType(macro.Parameters[n])
		switch kinds[n] {
		case "define":
			texts[n] = argument
		case "string":
			text, err := a.text(argument)
			if err != nil {
				return true, err
			}
			texts[n] = text
		case "evaluate", "variable":
			value, err := a.evaluate(argument, Default)
			if err != nil {
				return true, err
			}
			values[n] = value
			texts[n] = strconv.FormatInt(value, 10)
		default:
			return true, Errors.UnsupportedParameterType(kinds[n])
		}
	}

	a.env.PushFrame(a.ip, macro.Inlined)
	if !macro.Inlined {
		a.env.PushScope(name)
	}
	if err := a.env.SetDefine("#", nil, fmt.Sprintf("_%d", a.macroInvocationCounter), symbols.Inline); err != nil {
		return true, err
	}
	a.macroInvocationCounter++

	for n := range arguments {
		var err error
		if kinds[n] == "variable" {
			err = a.env.SetVariable(names[n], values[n], symbols.Inline)
		} else {
			err = a.env.SetDefine(names[n], nil, texts[n], symbols.Inline)
		}
		if err != nil {
			return true, err
		}
	}

	a.ip = macro.IP
	return true, nil
}

// assignment splits "name = value". A missing value yields ok false.
func assignment(s string) (string, string, bool) {
	name, value, ok := strings.Cut(s, " = ")
	return strings.TrimSpace(name), strings.TrimSpace(value), ok
}

func (a *Assembler) setConstant(name string, value int64) error {
	return a.env.SetConstant(name, value, a.phase == Query)
}

func (a *Assembler) setLabel(name string) error {
	return a.setConstant(name, a.pc())
}

// declare handles symbol declarations, labels, assignments and expression
// statements.
func (a *Assembler) declare(s string, level symbols.Level) (bool, error) {
	switch {
	case strings.HasPrefix(s, "define "):
		lhs, value, ok := assignment(s[len("define "):])
		if !ok {
			value = "1"
		}
		name, parameters, err := signature(lhs)
		if err != nil {
			return true, err
		}
		return true, a.env.SetDefine(name, parameters, value, level)

	case strings.HasPrefix(s, "evaluate "):
		name, value, ok := assignment(s[len("evaluate "):])
		if !ok {
			return true, Errors.New(MalformedExpression, "evaluate requires a value: %s", s)
		}
		result, err := a.evaluate(value, Default)
		if err != nil {
			return true, err
		}
		return true, a.env.SetDefine(name, nil, strconv.FormatInt(result, 10), level)

	case strings.HasPrefix(s, "expression "):
		lhs, value, ok := assignment(s[len("expression "):])
		if !ok {
			return true, Errors.New(MalformedExpression, "expression requires a value: %s", s)
		}
		name, parameters, err := signature(lhs)
		if err != nil {
			return true, err
		}
		return true, a.env.SetExpression(name, parameters, value, level)

	case strings.HasPrefix(s, "variable "):
		name, value, ok := assignment(s[len("variable "):])
		var result int64
		if ok {
			var err error
			if result, err = a.evaluate(value, Default); err != nil {
				return true, err
			}
		}
		return true, a.env.SetVariable(name, result, level)

	case strings.HasPrefix(s, "constant "):
		name, value, ok := assignment(s[len("constant "):])
		if !ok {
			return true, Errors.New(MalformedExpression, "constant requires a value: %s", s)
		}
		result, err := a.evaluate(value, Default)
		if err != nil {
			return true, err
		}
		return true, a.setConstant(name, result)

	case strings.HasPrefix(s, "array["):
		return true, a.declareSizedArray(s, level)
	case strings.HasPrefix(s, "array "):
		return true, a.declareArray(s[len("array "):], level)
	case strings.HasPrefix(s, "array.append "):
		return true, a.appendArray(s[len("array.append "):])
	case strings.HasPrefix(s, "array.assign "):
		return true, a.assignArray(s[len("array.assign "):])

	case s == "-":
		err := a.setConstant(fmt.Sprintf("lastLabel#%d", a.lastLabelCounter), a.pc())
		a.lastLabelCounter++
		return true, err
	case s == "+":
		err := a.setConstant(fmt.Sprintf("nextLabel#%d", a.nextLabelCounter), a.pc())
		a.nextLabelCounter++
		return true, err
	case strings.HasSuffix(s, ":") && symbols.Valid(s[:len(s)-1]):
		return true, a.setLabel(s[:len(s)-1])

	case strings.HasPrefix(s, "assert("), strings.HasPrefix(s, "array.sort("):
		_, err := a.evaluate(s, Default)
		return true, err
	}

	if name, _, ok := assignment(s); ok && symbols.Valid(name) {
		if _, found := a.env.FindVariable(name); found {
			_, err := a.evaluate(s, Default)
			return true, err
		}
	}
	return false, nil
}

// declareSizedArray handles "array[size] name", a zero filled array.
func (a *Assembler) declareSizedArray(s string, level symbols.Level) error {
	end := strings.IndexByte(s, ']')
	if end < 0 {
		return Errors.New(MalformedExpression, "malformed array declaration: %s", s)
	}
	size, err := a.evaluate(s[len("array["):end], Default)
	if err != nil {
		return err
	}
	if size < 0 {
		return Errors.New(OutOfBounds, "negative array size: %d", size)
	}
	name := strings.TrimSpace(s[end+1:])
	return a.env.SetArray(name, make([]int64, size), level)
}

// declareArray handles "array name = e, e, ...".
func (a *Assembler) declareArray(s string, level symbols.Level) error {
	name, value, ok := assignment(s)
	var values []int64
	if ok {
		items, err := split(value)
		if err != nil {
			return err
		}
		for _, item := range items {
			result, err := a.evaluate(item, Default)
			if err != nil {
				return err
			}
			values = append(values, result)
		}
	}
	return a.env.SetArray(name, values, level)
}

func (a *Assembler) appendArray(s string) error {
	items, err := split(s)
	if err != nil {
		return err
	}
	if len(items) < 1 {
		return Errors.New(MalformedExpression, "array.append requires an array")
	}
	array, ok := a.env.FindArray(items[0])
	if !ok {
		return Errors.UnrecognizedArray(items[0])
	}
	for _, item := range items[1:] {
		value, err := a.evaluate(item, Default)
		if err != nil {
			return err
		}
		*array = append(*array, value)
	}
	return nil
}

func (a *Assembler) assignArray(s string) error {
	items, err := split(s)
	if err != nil {
		return err
	}
	if len(items) != 3 {
		return Errors.New(MalformedExpression, "array.assign requires an array, an index and a value")
	}
	array, ok := a.env.FindArray(items[0])
	if !ok {
		return Errors.UnrecognizedArray(items[0])
	}
	index, err := a.evaluate(items[1], Default)
	if err != nil {
		return err
	}
	if index < 0 || index >= int64(len(*array)) {
		return Errors.SubscriptOutOfBounds(index, len(*array))
	}
	value, err := a.evaluate(items[2], Default)
	if err != nil {
		return err
	}
	(*array)[index] = value
	return nil
}
