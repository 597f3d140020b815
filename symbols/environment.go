package symbols

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Level selects which frame receives a symbol on write.
type Level int

const (
	Inline Level = iota // deepest frame, eg for parameters
	Active              // deepest non-inline frame
	Parent              // second-deepest non-inline frame
	Global              // root frame
)

func (l Level) String() string {
	switch l {
	case Inline:
		return "inline"
	case Active:
		return "active"
	case Parent:
		return "parent"
	case Global:
		return "global"
	}
	return "unknown"
}

type Macro struct {
	Parameters []string
	IP         int
	Inlined    bool
}

type Define struct {
	Parameters []string
	Value      string
}

type Expression struct {
	Parameters []string
	Value      string
}

// Table maps scope-qualified keys to entries. Entries are stored by pointer
// so callers can update a found symbol in place.
type Table[T any] map[string]*T

type Frame struct {
	IP      int
	Inlined bool

	Macros      Table[Macro]
	Defines     Table[Define]
	Expressions Table[Expression]
	Variables   Table[int64]
	Arrays      Table[[]int64]
}

func newFrame(ip int, inlined bool) *Frame {
	return &Frame{
		IP:          ip,
		Inlined:     inlined,
		Macros:      Table[Macro]{},
		Defines:     Table[Define]{},
		Expressions: Table[Expression]{},
		Variables:   Table[int64]{},
		Arrays:      Table[[]int64]{},
	}
}

// Environment is the frame stack, the scope path and the flat constant table
// of one assembly session.
type Environment struct {
	frames    []*Frame
	scope     []string
	constants map[string]*int64
}

func NewEnvironment() *Environment {
	e := &Environment{constants: map[string]*int64{}}
	e.Reset()
	return e
}

// Reset drops every frame but a fresh root and clears the scope path.
// Constants survive, they are cleared with ClearConstants.
func (e *Environment) Reset() {
	e.frames = []*Frame{newFrame(0, false)}
	e.scope = nil
}

func (e *Environment) ClearConstants() {
	e.constants = map[string]*int64{}
}

func (e *Environment) PushFrame(ip int, inlined bool) *Frame {
	f := newFrame(ip, inlined)
	e.frames = append(e.frames, f)
	return f
}

// PopFrame removes the deepest frame. The root frame is never popped and
// nil is returned when only it remains.
func (e *Environment) PopFrame() *Frame {
	if len(e.frames) <= 1 {
		return nil
	}
	f := e.frames[len(e.frames)-1]
	e.frames = e.frames[:len(e.frames)-1]
	return f
}

func (e *Environment) Frames() []*Frame {
	return e.frames
}

func (e *Environment) Top() *Frame {
	return e.frames[len(e.frames)-1]
}

func (e *Environment) PushScope(segment string) {
	e.scope = append(e.scope, segment)
}

func (e *Environment) PopScope() bool {
	if len(e.scope) == 0 {
		return false
	}
	e.scope = e.scope[:len(e.scope)-1]
	return true
}

func (e *Environment) Scope() []string {
	return slices.Clone(e.scope)
}

// Qualify prefixes name with the active scope path.
func (e *Environment) Qualify(name string) string {
	return qualify(e.scope, name)
}

func qualify(scope []string, name string) string {
	if len(scope) == 0 {
		return name
	}
	return strings.Join(scope, ".") + "." + name
}

func arityKey(name string, parameters []string) string {
	if len(parameters) == 0 {
		return name
	}
	return fmt.Sprintf("%s#%d", name, len(parameters))
}

// Valid reports whether s is a settable identifier: letters, '_' and '#'
// anywhere, digits and '.' anywhere but the first character.
func Valid(s string) bool {
	if s == "" {
		return false
	}
	for n := 0; n < len(s); n++ {
		c := s[n]
		switch {
		case c == '_' || c == '#':
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9' && n > 0:
		case c == '.' && n > 0:
		default:
			return false
		}
	}
	return true
}

func set[T any](e *Environment, table func(*Frame) Table[T], key string, value T, level Level) {
	for n := len(e.frames) - 1; n >= 0; n-- {
		f := e.frames[n]
		if level != Inline {
			if f.Inlined {
				continue
			}
			if level == Global && n > 0 {
				continue
			}
			if level == Parent && n > 0 {
				level = Active
				continue
			}
		}

		t := table(f)
		if entry, ok := t[key]; ok {
			*entry = value
		} else {
			t[key] = &value
		}
		return
	}
}

// find walks frames innermost first, and within each frame shortens the
// scope path one segment at a time before moving outward.
func find[T any](e *Environment, table func(*Frame) Table[T], name string) (*T, bool) {
	for n := len(e.frames) - 1; n >= 0; n-- {
		t := table(e.frames[n])
		for depth := len(e.scope); depth >= 0; depth-- {
			if entry, ok := t[qualify(e.scope[:depth], name)]; ok {
				return entry, true
			}
		}
	}
	return nil, false
}

func macros(f *Frame) Table[Macro]           { return f.Macros }
func defines(f *Frame) Table[Define]         { return f.Defines }
func expressions(f *Frame) Table[Expression] { return f.Expressions }
func variables(f *Frame) Table[int64]        { return f.Variables }
func arrays(f *Frame) Table[[]int64]         { return f.Arrays }

func (e *Environment) SetMacro(name string, parameters []string, ip int, inlined bool, level Level) error {
	if !Valid(name) {
		return &IdentifierError{Kind: "macro", Name: name}
	}
	key := arityKey(e.Qualify(name), parameters)
	set(e, macros, key, Macro{Parameters: parameters, IP: ip, Inlined: inlined}, level)
	return nil
}

// FindMacro looks name up as given; parameterized symbols are found with
// their "#arity" suffix.
func (e *Environment) FindMacro(name string) (*Macro, bool) {
	return find(e, macros, name)
}

func (e *Environment) SetDefine(name string, parameters []string, value string, level Level) error {
	if !Valid(name) {
		return &IdentifierError{Kind: "define", Name: name}
	}
	key := arityKey(e.Qualify(name), parameters)
	set(e, defines, key, Define{Parameters: parameters, Value: value}, level)
	return nil
}

func (e *Environment) FindDefine(name string) (*Define, bool) {
	return find(e, defines, name)
}

func (e *Environment) SetExpression(name string, parameters []string, value string, level Level) error {
	if !Valid(name) {
		return &IdentifierError{Kind: "expression", Name: name}
	}
	key := arityKey(e.Qualify(name), parameters)
	set(e, expressions, key, Expression{Parameters: parameters, Value: value}, level)
	return nil
}

func (e *Environment) FindExpression(name string) (*Expression, bool) {
	return find(e, expressions, name)
}

func (e *Environment) SetVariable(name string, value int64, level Level) error {
	if !Valid(name) {
		return &IdentifierError{Kind: "variable", Name: name}
	}
	set(e, variables, e.Qualify(name), value, level)
	return nil
}

func (e *Environment) FindVariable(name string) (*int64, bool) {
	return find(e, variables, name)
}

func (e *Environment) SetArray(name string, values []int64, level Level) error {
	if !Valid(name) {
		return &IdentifierError{Kind: "array", Name: name}
	}
	set(e, arrays, e.Qualify(name), values, level)
	return nil
}

func (e *Environment) FindArray(name string) (*[]int64, bool) {
	return find(e, arrays, name)
}

// SetConstant stores a scope-qualified constant. Once locked is true an
// existing constant can no longer change.
func (e *Environment) SetConstant(name string, value int64, locked bool) error {
	if !Valid(name) {
		return &IdentifierError{Kind: "constant", Name: name}
	}
	key := e.Qualify(name)
	if entry, ok := e.constants[key]; ok {
		if locked {
			return &ConstantError{Name: key}
		}
		*entry = value
		return nil
	}
	e.constants[key] = &value
	return nil
}

func (e *Environment) FindConstant(name string) (int64, bool) {
	for depth := len(e.scope); depth >= 0; depth-- {
		if entry, ok := e.constants[qualify(e.scope[:depth], name)]; ok {
			return *entry, true
		}
	}
	return 0, false
}

// Constants returns a snapshot of every constant by fully qualified name.
func (e *Environment) Constants() map[string]int64 {
	result := make(map[string]int64, len(e.constants))
	for name, value := range e.constants {
		result[name] = *value
	}
	return result
}

func (e *Environment) ConstantNames() []string {
	return slices.Sorted(maps.Keys(e.constants))
}
