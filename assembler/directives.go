package assembler

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.gatech.edu/ECEInnovation/bass/table"
)

// directive handles the statements built into the assembler itself, ahead
// of the active architecture.
func (a *Assembler) directive(s string) (bool, error) {
	switch {
	case strings.HasPrefix(s, "output "):
		return true, a.output(s[len("output "):])

	case strings.HasPrefix(s, "architecture "):
		return true, a.selectArchitecture(strings.TrimSpace(s[len("architecture "):]))

	case s == "endian lsb":
		a.bigEndian = false
		return true, nil
	case s == "endian msb":
		a.bigEndian = true
		return true, nil

	case strings.HasPrefix(s, "origin "):
		value, err := a.evaluate(s[len("origin "):], Default)
		if err != nil {
			return true, err
		}
		a.origin = value
		return true, a.seek(a.origin)

	case strings.HasPrefix(s, "base "):
		value, err := a.evaluate(s[len("base "):], Default)
		if err != nil {
			return true, err
		}
		a.base = value - a.origin
		return true, nil

	case strings.HasPrefix(s, "enqueue "):
		return true, a.enqueue(s[len("enqueue "):])
	case strings.HasPrefix(s, "dequeue "):
		return true, a.dequeue(s[len("dequeue "):])

	case strings.HasPrefix(s, "insert "):
		return true, a.insert(s[len("insert "):])
	case strings.HasPrefix(s, "fill "):
		return true, a.fill(s[len("fill "):])
	case strings.HasPrefix(s, "map "):
		return true, a.mapCharacters(s[len("map "):])

	case s == "characters map":
		a.charactersUseMap = true
		return true, nil
	case s == "characters ascii":
		a.charactersUseMap = false
		return true, nil

	case strings.HasPrefix(s, "print "):
		return true, a.print(s[len("print "):])

	case strings.HasPrefix(s, "notice "):
		if a.phase != Write {
			return true, nil
		}
		text, err := a.text(s[len("notice "):])
		if err != nil {
			return true, err
		}
		a.notice("%s", text)
		return true, nil

	case strings.HasPrefix(s, "warning "):
		if a.phase != Write {
			return true, nil
		}
		text, err := a.text(s[len("warning "):])
		if err != nil {
			return true, err
		}
		return true, a.warning("%s", text)

	case strings.HasPrefix(s, "error "):
		if a.phase != Write {
			return true, nil
		}
		text, err := a.text(s[len("error "):])
		if err != nil {
			return true, err
		}
		return true, Errors.New(Failure, "%s", text)

	case s == "tracker enable":
		a.tracker.enable = true
		return true, nil
	case s == "tracker disable":
		a.tracker.enable = false
		return true, nil
	}

	for _, d := range a.directives.EmitBytes {
		if strings.HasPrefix(s, d.token) {
			return true, a.emit(s[len(d.token):], d.length)
		}
	}
	return false, nil
}

// output opens the target relative to the current source file. The target
// is reopened on every pass. A target that cannot be opened is a warning and
// leaves no target open.
func (a *Assembler) output(s string) error {
	arguments, err := split(s)
	if err != nil {
		return err
	}
	if len(arguments) == 0 || len(arguments) > 2 {
		return Errors.New(Structural, "output requires a filename")
	}
	create := len(arguments) == 2 && arguments[1] == "create"
	if len(arguments) == 2 && !create {
		return Errors.New(Structural, "unrecognized output mode: %s", arguments[1])
	}
	if a.Sandboxed {
		return nil
	}

	if err := a.Close(); err != nil {
		a.message(Warning, errors.Wrap(err, "unable to close target file").Error())
	}
	filename := filepath.Join(a.sourceDirectory(), unquote(arguments[0]))
	target, err := OpenTarget(filename, create)
	if err != nil {
		// reported once, the write pass reopens the same file
		if a.phase == Query {
			a.message(Warning, errors.Wrapf(err, "unable to open target file: %s", filename).Error())
		}
		return nil
	}
	a.SetTarget(target)
	return nil
}

func (a *Assembler) selectArchitecture(name string) error {
	if name == "none" {
		a.architecture = nil
		return nil
	}
	architecture, err := a.CompileArchitecture(name)
	if err != nil {
		return err
	}
	a.architecture = architecture
	return nil
}

// CompileArchitecture compiles name.arch from the architecture search path
// against this session.
func (a *Assembler) CompileArchitecture(name string) (*table.Table, error) {
	text, err := a.readArchitecture(name)
	if err != nil {
		return nil, err
	}
	architecture, err := table.New(tableHost{a}, text)
	if err != nil {
		return nil, errors.Wrapf(err, "architecture %s", name)
	}
	return architecture, nil
}

func (a *Assembler) enqueue(s string) error {
	items, err := split(s)
	if err != nil {
		return err
	}
	for _, item := range items {
		switch item {
		case "origin":
			a.queue = append(a.queue, a.origin)
		case "base":
			a.queue = append(a.queue, a.base)
		case "pc":
			a.queue = append(a.queue, a.origin, a.base)
		default:
			return Errors.New(Structural, "unrecognized enqueue variable: %s", item)
		}
	}
	return nil
}

func (a *Assembler) pop() (int64, error) {
	if len(a.queue) == 0 {
		return 0, Errors.New(Structural, "dequeue with an empty queue")
	}
	value := a.queue[len(a.queue)-1]
	a.queue = a.queue[:len(a.queue)-1]
	return value, nil
}

func (a *Assembler) dequeue(s string) error {
	items, err := split(s)
	if err != nil {
		return err
	}
	for _, item := range items {
		switch item {
		case "origin":
			if a.origin, err = a.pop(); err != nil {
				return err
			}
			if err := a.seek(a.origin); err != nil {
				return err
			}
		case "base":
			if a.base, err = a.pop(); err != nil {
				return err
			}
		case "pc":
			if a.base, err = a.pop(); err != nil {
				return err
			}
			if a.origin, err = a.pop(); err != nil {
				return err
			}
			if err := a.seek(a.origin); err != nil {
				return err
			}
		default:
			return Errors.New(Structural, "unrecognized dequeue variable: %s", item)
		}
	}
	return nil
}

// optional evaluates arguments[n] when present.
func (a *Assembler) optional(arguments []string, n int, fallback int64) (int64, error) {
	if n >= len(arguments) {
		return fallback, nil
	}
	return a.evaluate(arguments[n], Default)
}

// insert copies a binary file into the output: insert [name, ]"file"[, offset[, length]].
func (a *Assembler) insert(s string) error {
	arguments, err := split(s)
	if err != nil {
		return err
	}
	name := ""
	if len(arguments) > 0 && !isQuoted(arguments[0]) {
		name, arguments = arguments[0], arguments[1:]
	}
	if len(arguments) == 0 || len(arguments) > 3 {
		return Errors.New(Structural, "insert requires a filename")
	}

	filename := unquote(arguments[0])
	path, err := a.sourcePath(filename)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Errors.FileNotFound(filename)
	}

	offset, err := a.optional(arguments, 1, 0)
	if err != nil {
		return err
	}
	if offset < 0 || offset > int64(len(data)) {
		return Errors.New(OutOfBounds, "insert offset exceeds file size: %d", offset)
	}
	length, err := a.optional(arguments, 2, int64(len(data))-offset)
	if err != nil {
		return err
	}
	if length < 0 || offset+length > int64(len(data)) {
		return Errors.New(OutOfBounds, "insert length exceeds file size: %d", length)
	}

	if name != "" {
		if err := a.setLabel(name); err != nil {
			return err
		}
		if err := a.setConstant(name+".size", length); err != nil {
			return err
		}
	}
	for _, b := range data[offset : offset+length] {
		if err := a.write(uint64(b), 1); err != nil {
			return err
		}
	}
	return nil
}

func (a *Assembler) fill(s string) error {
	arguments, err := split(s)
	if err != nil {
		return err
	}
	if len(arguments) == 0 || len(arguments) > 2 {
		return Errors.New(Structural, "fill requires a length")
	}
	length, err := a.evaluate(arguments[0], Default)
	if err != nil {
		return err
	}
	value, err := a.optional(arguments, 1, 0)
	if err != nil {
		return err
	}
	for n := int64(0); n < length; n++ {
		if err := a.write(uint64(value), 1); err != nil {
			return err
		}
	}
	return nil
}

// mapCharacters sets remap entries: map 'c'|index, value[, length].
// Consecutive entries receive consecutive values.
func (a *Assembler) mapCharacters(s string) error {
	arguments, err := split(s)
	if err != nil {
		return err
	}
	if len(arguments) < 2 || len(arguments) > 3 {
		return Errors.New(Structural, "map requires an index and a value")
	}

	index, ok := decodeCharacter(arguments[0])
	if !ok {
		if index, err = a.evaluate(arguments[0], Default); err != nil {
			return err
		}
	}
	value, err := a.evaluate(arguments[1], Default)
	if err != nil {
		return err
	}
	length, err := a.optional(arguments, 2, 1)
	if err != nil {
		return err
	}
	for n := int64(0); n < length; n++ {
		a.stringTable[(index+n)&0xff] = value + n
	}
	return nil
}

// emit writes each argument with the given width. Quoted text writes one
// remapped entry per character.
func (a *Assembler) emit(s string, length int) error {
	arguments, err := split(s)
	if err != nil {
		return err
	}
	for _, argument := range arguments {
		if isQuoted(argument) {
			text, err := a.text(argument)
			if err != nil {
				return err
			}
			for n := 0; n < len(text); n++ {
				if err := a.write(uint64(a.stringTable[text[n]]), length); err != nil {
					return err
				}
			}
			continue
		}

		value, err := a.evaluate(argument, Default)
		if err != nil {
			return err
		}
		if err := a.write(uint64(value), length); err != nil {
			return err
		}
	}
	return nil
}

// print logs its arguments in the write phase: "text", hex:e, bin:e or e.
func (a *Assembler) print(s string) error {
	if a.phase != Write {
		return nil
	}
	arguments, err := split(s)
	if err != nil {
		return err
	}

	var b strings.Builder
	for _, argument := range arguments {
		switch {
		case isQuoted(argument):
			text, err := a.text(argument)
			if err != nil {
				return err
			}
			b.WriteString(text)
		case strings.HasPrefix(argument, "hex:"):
			value, err := a.evaluate(argument[len("hex:"):], Default)
			if err != nil {
				return err
			}
			fmt.Fprintf(&b, "%x", value)
		case strings.HasPrefix(argument, "bin:"):
			value, err := a.evaluate(argument[len("bin:"):], Default)
			if err != nil {
				return err
			}
			b.WriteString(strconv.FormatInt(value, 2))
		default:
			value, err := a.evaluate(argument, Default)
			if err != nil {
				return err
			}
			b.WriteString(strconv.FormatInt(value, 10))
		}
	}
	a.Log.Print(b.String())
	return nil
}
