package table

import (
	"fmt"
	"math"
	"strings"
)

// Assemble encodes statement with the first rule that matches it and
// reports whether any rule did. An `instrument "..."` statement compiles
// its text as additional table lines instead.
func (t *Table) Assemble(statement string) (bool, error) {
	if strings.HasPrefix(statement, `instrument "`) && strings.HasSuffix(statement, `"`) && len(statement) > len(`instrument "`) {
		text := statement[len(`instrument "`) : len(statement)-1]
		return true, t.parse(text)
	}

	pc := t.host.PC()

	for _, opcode := range t.opcodes {
		args, ok := tokenize(statement, opcode.Pattern)
		if !ok || len(args) != len(opcode.Slots) {
			continue
		}

		widths := make([]int, len(args))
		for n := range args {
			widths[n], args[n] = bitLength(args[n])
		}

		if mismatch(opcode, widths) {
			continue
		}

		for _, format := range opcode.Formats {
			if err := t.apply(opcode, format, args, pc); err != nil {
				return true, err
			}
		}
		return true, nil
	}

	return false, nil
}

func mismatch(opcode Opcode, widths []int) bool {
	for _, format := range opcode.Formats {
		if format.Type != Absolute || format.Match == Weak {
			continue
		}
		bits := widths[format.Argument]
		if bits == opcode.Slots[format.Argument] {
			continue
		}
		if format.Match == Exact || bits != 0 {
			return true
		}
	}
	return false
}

func (t *Table) apply(opcode Opcode, format Format, args []string, pc int64) error {
	if format.Type == Static {
		return t.writeBits(format.Data, format.Bits)
	}

	bits := opcode.Slots[format.Argument]
	data, err := t.host.Evaluate(args[format.Argument])
	if err != nil {
		return err
	}

	switch format.Type {
	case Absolute:
		return t.writeBits(uint64(data), bits)

	case Relative:
		displacement := data - (pc + format.Displacement)
		if err := checkBounds(displacement, bits); err != nil {
			return err
		}
		return t.writeBits(uint64(displacement), bits)

	case Repeat:
		for n := uint64(0); n < format.Data; n++ {
			if err := t.writeBits(uint64(data), bits); err != nil {
				return err
			}
		}
		return nil

	case ShiftRight:
		return t.writeBits(uint64(data)>>format.Data, bits)

	case ShiftLeft:
		return t.writeBits(uint64(data)<<format.Data, bits)

	case RelativeShiftRight:
		displacement := data - (pc + format.Displacement)
		if err := checkBounds(displacement, bits); err != nil {
			return err
		}
		bits -= int(format.Data)
		shifted := uint64(displacement >> format.Data)
		if t.host.BigEndian() {
			if shifted, err = swapEndian(shifted, bits); err != nil {
				return err
			}
		}
		return t.writeBits(shifted, bits)

	case Negative:
		return t.writeBits(-uint64(data), bits)

	case NegativeShiftRight:
		return t.writeBits(-uint64(data)>>format.Data, bits)
	}

	return fmt.Errorf("unsupported format type %v", format.Type)
}

func checkBounds(value int64, bits int) error {
	if bits <= 0 || bits >= 64 {
		return nil
	}
	min := -(int64(1) << (bits - 1))
	max := int64(1)<<(bits-1) - 1
	if value < min || value > max {
		return &BoundsError{Value: value, Bits: bits}
	}
	return nil
}

// bitLength infers the width of a numeric operand from its literal form.
// Size markers (<, >, ^, ?, :) are removed from the returned operand.
func bitLength(text string) (int, string) {
	if text == "" {
		return 0, text
	}
	switch text[0] {
	case '<':
		return 8, " " + text[1:]
	case '>':
		return 16, " " + text[1:]
	case '^':
		return 24, " " + text[1:]
	case '?':
		return 32, " " + text[1:]
	case ':':
		return 64, " " + text[1:]
	case '%':
		return digitLength(text[1:], 1, isBinaryDigit), text
	case '$':
		return digitLength(text[1:], 4, isHexDigit), text
	}
	if strings.HasPrefix(text, "0b") {
		return digitLength(text[2:], 1, isBinaryDigit), text
	}
	if strings.HasPrefix(text, "0x") {
		return digitLength(text[2:], 4, isHexDigit), text
	}
	return 0, text
}

// digitLength is 0 when any character is not a digit of the base.
func digitLength(digits string, bitsPerDigit int, valid func(byte) bool) int {
	for n := 0; n < len(digits); n++ {
		if !valid(digits[n]) {
			return 0
		}
	}
	return len(digits) * bitsPerDigit
}

func isBinaryDigit(c byte) bool {
	return c == '0' || c == '1'
}

// writeBits appends the low length bits of data MSB first and flushes every
// completed byte to the host.
func (t *Table) writeBits(data uint64, length int) error {
	if length < 0 {
		return fmt.Errorf("invalid field width: %d", length)
	}
	mask := uint64(math.MaxUint64)
	if length < 64 {
		mask = uint64(1)<<length - 1
	}
	t.bitval <<= length
	t.bitval |= data & mask
	t.bitpos += length

	for t.bitpos >= 8 {
		if err := t.host.Write(t.bitval&0xff, 1); err != nil {
			return err
		}
		t.bitval >>= 8
		t.bitpos -= 8
	}
	return nil
}

func swapEndian(data uint64, bits int) (uint64, error) {
	switch (bits - 1) / 8 {
	case 3:
		return (data&0xff000000)>>24 | (data&0x00ff0000)>>8 | (data&0x0000ff00)<<8 | (data&0x000000ff)<<24, nil
	case 2:
		return (data&0xff0000)>>16 | data&0x00ff00 | (data&0x0000ff)<<16, nil
	case 1:
		return (data&0xff00)>>8 | (data&0x00ff)<<8, nil
	case 0:
		if bits > 0 {
			return data, nil
		}
	}
	return 0, fmt.Errorf("invalid number of bits for byte swap: %d", bits)
}

// tokenize matches s against a pattern where each '*' matches the shortest
// possible run, possibly empty, and returns the wildcard captures.
func tokenize(s, pattern string) ([]string, bool) {
	star := strings.IndexByte(pattern, '*')
	if star < 0 {
		return nil, s == pattern
	}
	if !strings.HasPrefix(s, pattern[:star]) {
		return nil, false
	}
	s = s[len(pattern[:star]):]
	rest := pattern[star+1:]

	if rest == "" {
		return []string{s}, true
	}
	for n := 0; n <= len(s); n++ {
		if captures, ok := tokenize(s[n:], rest); ok {
			return append([]string{s[:n]}, captures...), true
		}
	}
	return nil, false
}
