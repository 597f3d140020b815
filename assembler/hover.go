package assembler

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.gatech.edu/ECEInnovation/bass/expression"
	"github.gatech.edu/ECEInnovation/bass/symbols"
)

func isWordCharacter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') ||
		c == '_' || c == '.' || c == '#' || c == '$' || c == '%'
}

// wordAt returns the identifier or literal under char and the offset just
// past it.
func wordAt(line string, char int) (string, int) {
	if char < 0 || char >= len(line) || !isWordCharacter(line[char]) {
		return "", -1
	}
	start, end := char, char
	for start > 0 && isWordCharacter(line[start-1]) {
		start--
	}
	for end < len(line) && isWordCharacter(line[end]) {
		end++
	}
	return line[start:end], end
}

// lookup finds word in t as written, with an arity suffix, or qualified by
// any scope.
func lookup[T any](t symbols.Table[T], word string) (string, *T, bool) {
	for _, key := range slices.Sorted(maps.Keys(t)) {
		name, _, _ := strings.Cut(key, "#")
		if name == word || strings.HasSuffix(name, "."+word) {
			return key, t[key], true
		}
	}
	return "", nil, false
}

func (a *Assembler) lookupConstant(word string) (string, int64, bool) {
	if value, ok := a.env.FindConstant(word); ok {
		return word, value, true
	}
	for _, name := range a.env.ConstantNames() {
		if strings.HasSuffix(name, "."+word) {
			value, _ := a.env.FindConstant(name)
			return name, value, true
		}
	}
	return "", 0, false
}

// Hover returns markdown describing the word at position in filename,
// using the symbols left by the last assembly.
func (a *Assembler) Hover(filename string, position TextPosition) (string, bool) {
	file := slices.Index(a.sourceFilenames, filename)
	if file < 0 || file >= len(a.sourceLines) || position.Line < 0 || position.Line >= len(a.sourceLines[file]) {
		return "", false
	}
	line := a.sourceLines[file][position.Line]
	if comment := quotedIndex(line, "//"); comment >= 0 && position.Char >= comment {
		return "", false
	}

	word, end := wordAt(line, position.Char)
	if word == "" {
		return "", false
	}
	if help, ok := directiveHover[word]; ok {
		return help, true
	}

	switch c := word[0]; {
	case c >= '0' && c <= '9', c == '$', c == '%':
		value, err := a.evaluateLiteral(&expression.Node{Kind: expression.Literal, Literal: word}, Strict)
		if err != nil {
			return "", false
		}
		return fmt.Sprintf(hoverInfoFormats.integerLiteral, value, value), true
	}

	if name, value, ok := a.lookupConstant(word); ok {
		if end < len(line) && line[end] == ':' {
			return fmt.Sprintf(hoverInfoFormats.labelDefinition, name, value), true
		}
		return fmt.Sprintf(hoverInfoFormats.constant, name, value, value), true
	}

	root := a.env.Frames()[0]
	if name, value, ok := lookup(root.Variables, word); ok {
		return fmt.Sprintf(hoverInfoFormats.variable, name, *value), true
	}
	if name, array, ok := lookup(root.Arrays, word); ok {
		return fmt.Sprintf(hoverInfoFormats.array, name, len(*array)), true
	}
	if name, define, ok := lookup(root.Defines, word); ok {
		return fmt.Sprintf(hoverInfoFormats.define, name, define.Value), true
	}
	if name, function, ok := lookup(root.Expressions, word); ok {
		name, _, _ = strings.Cut(name, "#")
		return fmt.Sprintf(hoverInfoFormats.expression, name, strings.Join(function.Parameters, ", "), function.Value), true
	}
	if name, macro, ok := lookup(root.Macros, word); ok {
		name, _, _ = strings.Cut(name, "#")
		return fmt.Sprintf(hoverInfoFormats.macro, name, strings.Join(macro.Parameters, ", ")), true
	}
	return "", false
}
