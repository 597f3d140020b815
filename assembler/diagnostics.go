package assembler

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

const (
	colorGray   = "\x1b[90m"
	colorYellow = "\x1b[33m"
	colorRed    = "\x1b[31m"
	colorReset  = "\x1b[0m"
)

// colorize wraps label in an ANSI color when the log goes to a terminal.
func (a *Assembler) colorize(label, color string) string {
	if f, ok := a.Log.Writer().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return color + label + colorReset
	}
	return label
}

func (a *Assembler) location(i *Instruction) string {
	filename := ""
	if i.File < len(a.sourceFilenames) {
		filename = a.sourceFilenames[i.File]
	}
	return fmt.Sprintf("%s:%d:%d", filename, i.Line, i.Block)
}

func (a *Assembler) printInstruction() {
	if a.active != nil {
		a.Log.Printf("%s: %s", a.location(a.active), a.active.Statement)
	}
}

// instructionStack lists the active instruction followed by the invocation
// site of every enclosing macro, innermost first.
func (a *Assembler) instructionStack() []string {
	var stack []string
	if a.active != nil {
		stack = append(stack, a.location(a.active)+": "+a.active.Statement)
	}

	frames := a.env.Frames()
	for n := len(frames) - 1; n >= 0; n-- {
		ip := frames[n].IP
		if ip > 0 && ip <= len(a.program) {
			i := a.program[ip-1]
			stack = append(stack, "   "+a.location(i)+": "+i.Statement)
		}
	}
	return stack
}

func (a *Assembler) printInstructionStack() {
	for _, line := range a.instructionStack() {
		a.Log.Print(line)
	}
}

func (a *Assembler) record(severity DiagnosticSeverity, message string) {
	diagnostic := Diagnostic{
		Message:  message,
		Source:   "bass",
		Severity: severity,
	}
	if i := a.active; i != nil {
		if i.File < len(a.sourceFilenames) {
			diagnostic.File = a.sourceFilenames[i.File]
		}
		diagnostic.Range = TextRange{
			Start: TextPosition{Line: i.Line - 1, Char: i.Column},
			End:   TextPosition{Line: i.Line - 1, Char: i.Column + i.Length},
		}
	}
	a.Diagnostics = append(a.Diagnostics, diagnostic)
}

// message reports a problem that is not tied to an instruction and never
// aborts, eg a missing source file.
func (a *Assembler) message(severity DiagnosticSeverity, text string) {
	switch severity {
	case Error:
		a.Log.Printf("%s%s", a.colorize("error: ", colorRed), text)
	case Warning:
		a.Log.Printf("%s%s", a.colorize("warning: ", colorYellow), text)
	default:
		a.Log.Printf("%s%s", a.colorize("notice: ", colorGray), text)
	}
	active := a.active
	a.active = nil
	a.record(severity, text)
	a.active = active
}

func (a *Assembler) notice(format string, args ...interface{}) {
	text := fmt.Sprintf(format, args...)
	a.Log.Printf("%s%s", a.colorize("notice: ", colorGray), text)
	a.printInstruction()
	a.record(Information, text)
}

// warning logs a warning. In strict mode the warning aborts assembly and
// the returned error must be propagated.
func (a *Assembler) warning(format string, args ...interface{}) error {
	text := fmt.Sprintf(format, args...)
	a.Log.Printf("%s%s", a.colorize("warning: ", colorYellow), text)
	if !a.Strict {
		a.printInstruction()
		a.record(Warning, text)
		return nil
	}

	a.printInstructionStack()
	a.record(Error, text)
	err := &AssemblyError{Kind: PromotedWarning, Message: text, Stack: a.instructionStack(), reported: true}
	if a.active != nil {
		err.Location = a.location(a.active)
	}
	return err
}

// fail reports err against the active instruction unless it was reported
// already, and returns it as an *AssemblyError.
func (a *Assembler) fail(err error) *AssemblyError {
	e := classify(err)
	if e.reported {
		return e
	}
	e.reported = true
	e.Stack = a.instructionStack()
	if a.active != nil {
		e.Location = a.location(a.active)
	}

	a.Log.Printf("%s%s", a.colorize("error: ", colorRed), e.Message)
	a.printInstructionStack()
	a.record(Error, e.Message)
	return e
}
