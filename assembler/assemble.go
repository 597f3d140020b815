package assembler

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.gatech.edu/ECEInnovation/bass/symbols"
	"github.gatech.edu/ECEInnovation/bass/table"
)

type terminalDefine struct {
	name  string
	value string
}

type terminalConstant struct {
	name  string
	value int64
}

// Assembler is one assembly session. It owns the program, the symbol
// environment, the output target and every piece of positional state.
type Assembler struct {
	Log    *log.Logger
	Stdout io.Writer // raw output when no target is open, used only if it is not a terminal

	Diagnostics       []Diagnostic
	ArchitecturePaths []string
	Strict            bool // promote warnings to errors
	Sandboxed         bool // ignore output directives and confine file access to the source directory

	env             *symbols.Environment
	sourceFilenames []string
	sourceLines     [][]string
	program         []*Instruction
	defines         []terminalDefine
	constants       []terminalConstant

	phase        Phase
	bigEndian    bool
	tracker      tracker
	target       Target
	architecture *table.Table
	directives   Directives

	conditionals           []bool
	queue                  []int64
	stringTable            [256]int64
	charactersUseMap       bool
	macroInvocationCounter int
	ip                     int
	origin                 int64
	base                   int64
	lastLabelCounter       int
	nextLabelCounter       int
	active                 *Instruction
}

func New() *Assembler {
	a := &Assembler{
		Log:        log.New(os.Stderr, "", 0),
		Stdout:     os.Stdout,
		env:        symbols.NewEnvironment(),
		directives: defaultDirectives(),
	}
	a.tracker.addresses = map[int64]struct{}{}
	a.initialize()
	return a
}

// Target opens filename as the output image, closing any previous target.
// An empty filename only closes. A file that does not exist is created.
func (a *Assembler) Target(filename string, create bool) bool {
	if err := a.Close(); err != nil {
		a.message(Warning, errors.Wrap(err, "unable to close target file").Error())
	}
	if filename == "" {
		return true
	}

	target, err := OpenTarget(filename, create)
	if err != nil {
		a.message(Warning, errors.Wrapf(err, "unable to open target file: %s", filename).Error())
		return false
	}
	a.SetTarget(target)
	return true
}

// SetTarget installs an already opened target, eg a MemoryTarget.
func (a *Assembler) SetTarget(target Target) {
	if a.target != nil && a.target != target {
		a.target.Close()
	}
	a.target = target
	a.tracker.addresses = map[int64]struct{}{}
}

func (a *Assembler) Close() error {
	if a.target == nil {
		return nil
	}
	err := a.target.Close()
	a.target = nil
	return err
}

// Source reads filename and appends its statements to the program.
func (a *Assembler) Source(filename string) bool {
	data, err := os.ReadFile(filename)
	if err != nil {
		a.message(Warning, "source file not found: "+filename)
		return false
	}
	a.SourceText(filename, string(data))
	return true
}

// SourceText appends the statements of text as if read from filename.
// Includes are resolved relative to filename's directory.
func (a *Assembler) SourceText(filename, text string) {
	fileNumber := len(a.sourceFilenames)
	a.sourceFilenames = append(a.sourceFilenames, filename)

	text = strings.NewReplacer("\t", " ", "\r", " ").Replace(text)
	lines := strings.Split(text, "\n")
	a.sourceLines = append(a.sourceLines, lines)
	for lineNumber, line := range lines {
		if position := quotedIndex(line, "//"); position >= 0 {
			line = line[:position]
		}

		for blockNumber, block := range quotedSplit(line, ';') {
			trimmed := strings.TrimLeft(block.text, " ")
			column := block.offset + len(block.text) - len(trimmed)
			trimmed = strings.TrimRight(trimmed, " ")
			statement := strip(trimmed)
			if statement == "" {
				continue
			}

			if strings.HasPrefix(statement, `include "`) && strings.HasSuffix(statement, `"`) && len(statement) > len(`include ""`) {
				name := unquote(strings.TrimPrefix(statement, "include "))
				if a.Sandboxed && !filepath.IsLocal(name) {
					a.message(Warning, Errors.OutsideSourceDirectory(name).Message)
					continue
				}
				a.Source(filepath.Join(filepath.Dir(filename), name))
				continue
			}

			a.program = append(a.program, &Instruction{
				Statement: statement,
				File:      fileNumber,
				Line:      lineNumber + 1,
				Block:     blockNumber + 1,
				Column:    column,
				Length:    len(trimmed),
			})
		}
	}
}

// Define registers a define that is recreated in the root frame at the
// start of every pass.
func (a *Assembler) Define(name, value string) {
	a.defines = append(a.defines, terminalDefine{name, value})
}

// Constant registers a constant whose value is evaluated immediately in
// strict mode. Values that fail to evaluate are ignored.
func (a *Assembler) Constant(name, value string) {
	if !symbols.Valid(name) {
		return
	}
	result, err := a.evaluate(value, Strict)
	if err != nil {
		return
	}
	a.constants = append(a.constants, terminalConstant{name, result})
}

// Assemble runs the analyze, query and write phases over the program.
// The first error aborts the run; it has already been logged and recorded
// in Diagnostics.
func (a *Assembler) Assemble(strict bool) error {
	a.Strict = strict

	a.phase = Analyze
	if err := a.analyze(); err != nil {
		return a.fail(err)
	}

	a.env.ClearConstants()
	for _, constant := range a.constants {
		_ = a.env.SetConstant(constant.name, constant.value, false)
	}

	a.phase = Query
	if err := a.execute(); err != nil {
		return err
	}

	a.phase = Write
	return a.execute()
}

// Evaluate evaluates an expression against the symbols left by the last
// pass, after define expansion.
func (a *Assembler) Evaluate(source string) (int64, error) {
	source, err := a.evaluateDefines(source)
	if err != nil {
		return 0, classify(err)
	}
	value, err := a.evaluate(source, Default)
	if err != nil {
		return 0, classify(err)
	}
	return value, nil
}

// Constants returns every constant of the last pass by qualified name.
func (a *Assembler) Constants() map[string]int64 {
	return a.env.Constants()
}

func (a *Assembler) Program() []*Instruction {
	return a.program
}

func (a *Assembler) SourceFilenames() []string {
	return a.sourceFilenames
}

func (a *Assembler) Phase() Phase {
	return a.phase
}

// initialize resets the per-pass state.
func (a *Assembler) initialize() {
	a.env.Reset()
	a.conditionals = nil
	a.queue = nil
	for n := range a.stringTable {
		a.stringTable[n] = int64(n)
	}
	a.charactersUseMap = false
	a.bigEndian = false
	a.origin = 0
	a.base = 0
	a.ip = 0
	a.lastLabelCounter = 1
	a.nextLabelCounter = 1
	a.macroInvocationCounter = 0
	a.tracker.enable = false
	a.tracker.addresses = map[int64]struct{}{}
	a.architecture = nil
	a.directives = defaultDirectives()
	a.active = nil

	for _, define := range a.defines {
		_ = a.env.SetDefine(define.name, nil, define.value, symbols.Global)
	}
}
