package table

import (
	"strconv"
	"strings"
)

// Host is the assembly session as seen by an encoder.
type Host interface {
	PC() int64
	BigEndian() bool
	SetBigEndian(bigEndian bool)
	// DefineDirective adds or resizes a byte emission directive such as "db ".
	DefineDirective(token string, size int)
	ReadArchitecture(name string) (string, error)
	Evaluate(expression string) (int64, error)
	Write(data uint64, length int) error
}

type FormatType int

const (
	Static FormatType = iota
	Absolute
	Relative
	Repeat
	ShiftRight
	ShiftLeft
	RelativeShiftRight
	Negative
	NegativeShiftRight
)

var formatTypeNames = [...]string{
	Static:             "static",
	Absolute:           "absolute",
	Relative:           "relative",
	Repeat:             "repeat",
	ShiftRight:         "shiftRight",
	ShiftLeft:          "shiftLeft",
	RelativeShiftRight: "relativeShiftRight",
	Negative:           "negative",
	NegativeShiftRight: "negativeShiftRight",
}

func (t FormatType) String() string {
	if t < 0 || int(t) >= len(formatTypeNames) {
		return "unknown"
	}
	return formatTypeNames[t]
}

// Match is the operand width policy of an Absolute format.
type Match int

const (
	Exact  Match = iota // literal width must equal the slot width
	Strong              // only a definite, different width rejects
	Weak                // width is never checked
)

func (m Match) String() string {
	switch m {
	case Exact:
		return "exact"
	case Strong:
		return "strong"
	case Weak:
		return "weak"
	}
	return "unknown"
}

// Format is one bit packing operation of a rule.
type Format struct {
	Type         FormatType
	Match        Match
	Data         uint64 // static value, shift amount or repeat count
	Bits         int    // width of Static formats
	Argument     int
	Displacement int64
}

// Opcode is one compiled rule.
type Opcode struct {
	Pattern  string
	Prefixes []string
	Slots    []int // declared bit width per operand
	Formats  []Format
}

// Table is an encoder compiled from opcode table text. A Table keeps
// pending bits between statements, so a fresh one is built for every pass.
type Table struct {
	host    Host
	opcodes []Opcode

	bitval uint64
	bitpos int
}

func New(host Host, text string) (*Table, error) {
	t := &Table{host: host}
	if err := t.parse(text); err != nil {
		return nil, err
	}
	return t, nil
}

// Opcodes returns the compiled rules in match order.
func (t *Table) Opcodes() []Opcode {
	return t.opcodes
}

func (t *Table) parse(text string) error {
	for _, line := range strings.Split(text, "\n") {
		if position := strings.Index(line, "//"); position >= 0 {
			line = line[:position]
		}
		line = strings.TrimSpace(strings.ReplaceAll(line, "\t", " "))
		if line == "" {
			continue
		}

		lhs, rhs, found := strings.Cut(line, ";")
		if strings.HasPrefix(line, "#") && !found {
			if err := t.parseDirective(line); err != nil {
				return err
			}
			continue
		}
		if !found {
			continue
		}

		var opcode Opcode
		t.compileLHS(&opcode, strings.TrimSpace(lhs))
		if err := t.compileRHS(&opcode, strings.TrimSpace(rhs)); err != nil {
			return &SyntaxError{Line: line, Reason: err.Error()}
		}
		t.opcodes = append(t.opcodes, opcode)
	}
	return nil
}

func (t *Table) parseDirective(line string) error {
	fields := strings.Fields(line)
	switch fields[0] {
	case "#endian":
		if len(fields) == 2 && fields[1] == "lsb" {
			t.host.SetBigEndian(false)
			return nil
		}
		if len(fields) == 2 && fields[1] == "msb" {
			t.host.SetBigEndian(true)
			return nil
		}

	case "#include":
		name := strings.Trim(strings.TrimSpace(strings.TrimPrefix(line, "#include")), "\"")
		if name == "" {
			break
		}
		more, err := t.host.ReadArchitecture(name)
		if err != nil {
			return err
		}
		return t.parse(more)

	case "#directive":
		if len(fields) != 3 {
			break
		}
		size, err := strconv.Atoi(fields[2])
		if err != nil || size < 0 {
			break
		}
		t.host.DefineDirective(fields[1]+" ", size)
		return nil
	}

	return &SyntaxError{Line: line, Reason: "wrong syntax"}
}

// compileLHS splits a pattern into literal prefixes and *NN operand slots.
// A lowercase letter right after *NN naming that slot ("*08a") is an
// annotation and is dropped.
func (t *Table) compileLHS(opcode *Opcode, text string) {
	offset := 0
	for offset < len(text) {
		size := strings.IndexByte(text[offset:], '*')
		if size < 0 {
			size = len(text) - offset
		}
		opcode.Prefixes = append(opcode.Prefixes, text[offset:offset+size])
		offset += size

		if offset >= len(text) {
			break
		}
		bits := 0
		if offset+2 < len(text) && isDigit(text[offset+1]) && isDigit(text[offset+2]) {
			bits = int(text[offset+1]-'0')*10 + int(text[offset+2]-'0')
		}
		opcode.Slots = append(opcode.Slots, bits)
		offset += 3

		letter := byte('a' + len(opcode.Slots) - 1)
		if offset < len(text) && text[offset] == letter &&
			(offset+1 == len(text) || !isAlphanumeric(text[offset+1])) {
			offset++
		}
	}

	opcode.Pattern = strings.Join(opcode.Prefixes, "*")
	if len(opcode.Slots) == len(opcode.Prefixes) {
		opcode.Pattern += "*"
	}
}

func (t *Table) compileRHS(opcode *Opcode, text string) error {
	for _, item := range strings.Split(text, " ") {
		if item == "" {
			continue
		}
		format, err := compileFormat(item)
		if err != nil {
			return err
		}
		if format.Type != Static {
			if format.Argument >= len(opcode.Slots) {
				return &formatError{item, "argument has no operand slot"}
			}
			bits := opcode.Slots[format.Argument]
			if bits == 0 {
				return &formatError{item, "operand slot has no width"}
			}
			switch format.Type {
			case ShiftLeft, ShiftRight, RelativeShiftRight, NegativeShiftRight:
				if format.Data >= uint64(bits) {
					return &formatError{item, "shift exceeds operand slot width"}
				}
			}
		}
		opcode.Formats = append(opcode.Formats, format)
	}
	return nil
}

type formatError struct {
	item   string
	reason string
}

func (e *formatError) Error() string {
	return e.reason + ": " + e.item
}

func compileFormat(item string) (Format, error) {
	at := func(n int) byte {
		if n < len(item) {
			return item[n]
		}
		return 0
	}
	twoDigits := func(n int) (uint64, bool) {
		if !isDigit(at(n)) || !isDigit(at(n + 1)) {
			return 0, false
		}
		return uint64(at(n)-'0')*10 + uint64(at(n+1)-'0'), true
	}
	argument := func(n int) (int, bool) {
		c := at(n)
		if c < 'a' || c > 'z' || n+1 != len(item) {
			return 0, false
		}
		return int(c - 'a'), true
	}

	bad := &formatError{item, "unrecognized format"}

	switch {
	// $XX
	case item[0] == '$':
		data, err := strconv.ParseUint(item[1:], 16, 64)
		if err != nil || len(item) < 2 {
			return Format{}, bad
		}
		return Format{Type: Static, Data: data, Bits: 4 * (len(item) - 1)}, nil

	// >>NNa and <<NNa
	case strings.HasPrefix(item, ">>"), strings.HasPrefix(item, "<<"):
		shift, ok := twoDigits(2)
		arg, argOK := argument(4)
		if !ok || !argOK {
			return Format{}, bad
		}
		kind := ShiftRight
		if item[0] == '<' {
			kind = ShiftLeft
		}
		return Format{Type: kind, Match: Weak, Data: shift, Argument: arg}, nil

	// +D>>NNa
	case item[0] == '+' && at(2) == '>' && at(3) == '>':
		shift, ok := twoDigits(4)
		arg, argOK := argument(6)
		if !isDigit(at(1)) || !ok || !argOK {
			return Format{}, bad
		}
		return Format{Type: RelativeShiftRight, Match: Weak, Data: shift, Argument: arg,
			Displacement: int64(at(1) - '0')}, nil

	// N>>NNa
	case strings.HasPrefix(item, "N>>"):
		shift, ok := twoDigits(3)
		arg, argOK := argument(5)
		if !ok || !argOK {
			return Format{}, bad
		}
		return Format{Type: NegativeShiftRight, Match: Weak, Data: shift, Argument: arg}, nil

	// Na
	case item[0] == 'N':
		arg, ok := argument(1)
		if !ok {
			return Format{}, bad
		}
		return Format{Type: Negative, Match: Weak, Argument: arg}, nil

	// %BITS
	case item[0] == '%':
		data, err := strconv.ParseUint(item[1:], 2, 64)
		if err != nil || len(item) < 2 {
			return Format{}, bad
		}
		return Format{Type: Static, Data: data, Bits: len(item) - 1}, nil

	case item[0] == '!', item[0] == '=', item[0] == '~':
		arg, ok := argument(1)
		if !ok {
			return Format{}, bad
		}
		match := map[byte]Match{'!': Exact, '=': Strong, '~': Weak}[item[0]]
		return Format{Type: Absolute, Match: match, Argument: arg}, nil

	// +Da and -Da
	case item[0] == '+', item[0] == '-':
		arg, ok := argument(2)
		if !isDigit(at(1)) || !ok {
			return Format{}, bad
		}
		displacement := int64(at(1) - '0')
		if item[0] == '-' {
			displacement = -displacement
		}
		return Format{Type: Relative, Argument: arg, Displacement: displacement}, nil

	// *aXX, the count may follow a separator
	case item[0] == '*':
		c := at(1)
		if c < 'a' || c > 'z' || len(item) < 3 {
			return Format{}, bad
		}
		digits := item[2:]
		if !isHexDigit(digits[0]) {
			digits = digits[1:]
		}
		count, err := strconv.ParseUint(digits, 16, 64)
		if err != nil {
			return Format{}, bad
		}
		return Format{Type: Repeat, Data: count, Argument: int(c - 'a')}, nil
	}

	return Format{}, bad
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
