package assembler

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.gatech.edu/ECEInnovation/bass/symbols"
)

type segment struct {
	text   string
	offset int
}

// quotedIndex is strings.Index ignoring matches inside quotes.
func quotedIndex(s, substr string) int {
	var quoted byte
	for n := 0; n < len(s); n++ {
		c := s[n]
		if quoted == 0 {
			if c == '"' || c == '\'' {
				quoted = c
				continue
			}
			if strings.HasPrefix(s[n:], substr) {
				return n
			}
		} else if c == quoted {
			quoted = 0
		}
	}
	return -1
}

// quotedSplit splits s on separator outside of quotes.
func quotedSplit(s string, separator byte) []segment {
	var result []segment
	var quoted byte
	offset := 0
	for n := 0; n < len(s); n++ {
		c := s[n]
		if quoted == 0 {
			if c == '"' || c == '\'' {
				quoted = c
			} else if c == separator {
				result = append(result, segment{s[offset:n], offset})
				offset = n + 1
			}
		} else if c == quoted {
			quoted = 0
		}
	}
	return append(result, segment{s[offset:], offset})
}

// strip collapses runs of spaces outside of quotes into one space.
func strip(s string) string {
	var b strings.Builder
	var quoted byte
	for n := 0; n < len(s); n++ {
		c := s[n]
		if quoted == 0 {
			if c == '"' || c == '\'' {
				quoted = c
			}
		} else if c == quoted {
			quoted = 0
		}
		if quoted == 0 && c == ' ' && n+1 < len(s) && s[n+1] == ' ' {
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// split separates an argument list on commas outside of quotes and
// parentheses and trims each argument.
func split(s string) ([]string, error) {
	var result []string
	var quoted byte
	offset, depth := 0, 0
	escaped := false
	for n := 0; n < len(s); n++ {
		c := s[n]
		if c == '\\' && quoted != 0 && !escaped {
			escaped = true
			continue
		}
		if escaped {
			escaped = false
			continue
		}
		if quoted == 0 {
			if c == '"' || c == '\'' {
				quoted = c
			}
		} else if c == quoted {
			quoted = 0
		}
		if quoted != 0 {
			continue
		}
		switch c {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				result = append(result, strings.TrimSpace(s[offset:n]))
				offset = n + 1
			}
		}
	}
	if offset < len(s) {
		result = append(result, strings.TrimSpace(s[offset:]))
	}
	if quoted != 0 {
		return nil, Errors.MismatchedQuotes()
	}
	if depth != 0 {
		return nil, Errors.MismatchedParentheses()
	}
	return result, nil
}

func isQuoted(s string) bool {
	return len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"'
}

func unquote(s string) string {
	if isQuoted(s) {
		return s[1 : len(s)-1]
	}
	return s
}

// text decodes a string argument: quoted parts joined with '~', with the
// escapes \\ \n \t and \" applied.
func (a *Assembler) text(s string) (string, error) {
	if !isQuoted(s) {
		if err := a.warning("string value is unquoted: %s", s); err != nil {
			return "", err
		}
	}

	var b strings.Builder
	for _, part := range quotedSplit(s, '~') {
		p := unquote(strings.TrimSpace(part.text))
		p = strings.NewReplacer(`\\`, `\`, `\n`, "\n", `\t`, "\t", `\"`, `"`).Replace(p)
		b.WriteString(p)
	}
	return b.String(), nil
}

func decodeCharacter(s string) (int64, bool) {
	switch {
	case s == `'\\'`:
		return '\\', true
	case s == `'\''`:
		return '\'', true
	case s == `'\"'`:
		return '"', true
	case s == `'\n'`:
		return '\n', true
	case s == `'\t'`:
		return '\t', true
	case len(s) == 3 && s[0] == '\'' && s[2] == '\'':
		return int64(s[1]), true
	}
	return 0, false
}

// character decodes a 'c' constant, through the remap table when enabled.
func (a *Assembler) character(s string) (int64, error) {
	result, ok := decodeCharacter(s)
	if !ok {
		return 0, a.warning("unrecognized character constant: %s", s)
	}
	if a.charactersUseMap {
		result = a.stringTable[result]
	}
	return result, nil
}

// sourceDirectory is the directory of the active instruction's source file.
func (a *Assembler) sourceDirectory() string {
	if a.active == nil || a.active.File >= len(a.sourceFilenames) {
		return "."
	}
	return filepath.Dir(a.sourceFilenames[a.active.File])
}

// sourcePath resolves name against the active source directory. Sandboxed
// sessions only reach files below that directory.
func (a *Assembler) sourcePath(name string) (string, error) {
	if a.Sandboxed && !filepath.IsLocal(name) {
		return "", Errors.OutsideSourceDirectory(name)
	}
	return filepath.Join(a.sourceDirectory(), name), nil
}

// readArchitecture searches the configured paths, the user data directory
// and the program directory for name.arch.
func (a *Assembler) readArchitecture(name string) (string, error) {
	if a.Sandboxed && !filepath.IsLocal(name) {
		return "", Errors.UnknownArchitecture(name)
	}
	var locations []string
	for _, path := range a.ArchitecturePaths {
		locations = append(locations, filepath.Join(path, name+".arch"))
	}
	if dir, err := os.UserConfigDir(); err == nil {
		locations = append(locations, filepath.Join(dir, "bass", "architectures", name+".arch"))
	}
	if program, err := os.Executable(); err == nil {
		locations = append(locations, filepath.Join(filepath.Dir(program), "architectures", name+".arch"))
	}

	for _, location := range locations {
		data, err := os.ReadFile(location)
		if err == nil {
			return string(data), nil
		}
		if !os.IsNotExist(err) {
			return "", errors.Wrapf(err, "unable to read architecture %s", name)
		}
	}
	return "", Errors.UnknownArchitecture(name)
}

const maximumDefineDepth = 256

// evaluateDefines expands {name}, {name(args)} and {defined name} from the
// rightmost closed brace pair outward until none remain.
func (a *Assembler) evaluateDefines(s string) (string, error) {
	return a.expandDefines(s, 0)
}

func (a *Assembler) expandDefines(s string, depth int) (string, error) {
	if depth > maximumDefineDepth {
		return "", Errors.New(Structural, "define expansion is too deep")
	}

	for x, y := len(s)-1, -1; x >= 0; x-- {
		if s[x] == '}' {
			y = x
		}
		if s[x] != '{' || y <= x {
			continue
		}

		name := s[x+1 : y]
		if strings.HasPrefix(name, "defined ") {
			name = strings.TrimSpace(strings.TrimPrefix(name, "defined "))
			_, found := a.env.FindDefine(name)
			replacement := "0"
			if found {
				replacement = "1"
			}
			return a.expandDefines(s[:x]+replacement+s[y+1:], depth+1)
		}

		var parameters []string
		if open := strings.IndexByte(name, '('); open > 0 && strings.HasSuffix(name, ")") {
			var err error
			if parameters, err = split(name[open+1 : len(name)-1]); err != nil {
				return "", err
			}
			name = strings.TrimSpace(name[:open])
		}
		key := name
		if len(parameters) > 0 {
			key += "#" + strconv.Itoa(len(parameters))
		}

		define, found := a.env.FindDefine(key)
		if !found {
			continue
		}
		value, err := a.expandDefine(*define, parameters, depth)
		if err != nil {
			return "", err
		}
		return a.expandDefines(s[:x]+value+s[y+1:], depth+1)
	}
	return s, nil
}

// expandDefine binds parameters in an inline frame, which is always popped,
// and expands the define body.
func (a *Assembler) expandDefine(define symbols.Define, parameters []string, depth int) (string, error) {
	if len(parameters) > 0 {
		a.env.PushFrame(0, true)
		defer a.env.PopFrame()
	}

	for n, argument := range parameters {
		kind, name := parameterType(define.Parameters[n])
		if err := a.bindDefineParameter(kind, name, argument); err != nil {
			return "", err
		}
	}
	return a.expandDefines(define.Value, depth+1)
}

// parameterType splits "evaluate x" into its type and name; untyped
// parameters are defines.
func parameterType(parameter string) (string, string) {
	kind, name, found := strings.Cut(strings.TrimSpace(parameter), " ")
	if !found {
		return "define", kind
	}
	return kind, strings.TrimSpace(name)
}

func (a *Assembler) bindDefineParameter(kind, name, argument string) error {
	switch kind {
	case "define":
		return a.env.SetDefine(name, nil, argument, symbols.Inline)
	case "string":
		value, err := a.text(argument)
		if err != nil {
			return err
		}
		return a.env.SetDefine(name, nil, value, symbols.Inline)
	case "evaluate":
		value, err := a.evaluate(argument, Default)
		if err != nil {
			return err
		}
		return a.env.SetDefine(name, nil, strconv.FormatInt(value, 10), symbols.Inline)
	}
	return Errors.UnsupportedParameterType(kind)
}
