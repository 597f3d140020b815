package assembler_test

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/davecgh/go-spew/spew"

	"github.gatech.edu/ECEInnovation/bass/assembler"
)

const testArchitecture = `
nop ; $ea
lda *08 ; $a9 =a
bne *08 ; $d0 +2a
jmp *16 ; $4c =a
`

type session struct {
	*assembler.Assembler
	target *assembler.MemoryTarget
	logs   *bytes.Buffer
}

func newSession(t *testing.T) *session {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "test.arch"), []byte(testArchitecture), 0644); err != nil {
		t.Fatal(err)
	}

	s := &session{Assembler: assembler.New(), target: assembler.NewMemoryTarget(), logs: &bytes.Buffer{}}
	s.Log = log.New(s.logs, "", 0)
	s.Stdout = nil
	s.ArchitecturePaths = []string{dir}
	s.SetTarget(s.target)
	return s
}

func assemble(t *testing.T, source string) (*session, error) {
	t.Helper()
	s := newSession(t)
	s.SourceText("test.asm", source)
	return s, s.Assemble(false)
}

func validateResult(t *testing.T, s *session, err error, expected []byte, expectedDiagnostics []assembler.Diagnostic) {
	t.Helper()
	if err != nil && len(expectedDiagnostics) == 0 {
		t.Fatalf("unexpected assembly failure: %v\n%s", err, s.logs.String())
	}

	if len(s.Diagnostics) != len(expectedDiagnostics) {
		t.Fatalf("Expected %d diagnostics, got %d\n%s", len(expectedDiagnostics), len(s.Diagnostics), spew.Sdump(s.Diagnostics))
	}

	for i, diagnostic := range s.Diagnostics {
		if diagnostic.Severity != expectedDiagnostics[i].Severity {
			t.Errorf("Expected diagnostic %d to have severity %d, got %d", i, expectedDiagnostics[i].Severity, diagnostic.Severity)
		}

		if diagnostic.Range.Start.Line != expectedDiagnostics[i].Range.Start.Line {
			t.Errorf("Expected diagnostic %d to start on line %d, got %d", i, expectedDiagnostics[i].Range.Start.Line, diagnostic.Range.Start.Line)
		}

		if diagnostic.Message != expectedDiagnostics[i].Message {
			t.Errorf("Expected diagnostic %d to be \"%s\", got \"%s\"", i, expectedDiagnostics[i].Message, diagnostic.Message)
		}
	}

	if expected != nil && !bytes.Equal(s.target.Bytes(), expected) {
		t.Errorf("Expected image % X, got % X", expected, s.target.Bytes())
	}
}

func diagnostic(severity assembler.DiagnosticSeverity, line int, message string) assembler.Diagnostic {
	return assembler.Diagnostic{
		Severity: severity,
		Message:  message,
		Range:    assembler.TextRange{Start: assembler.TextPosition{Line: line}},
	}
}

func TestDataDirectives(t *testing.T) {
	s, err := assemble(t, `
	db 1, 2, $ff
	dw $1234
	dd 0x01020304
	db "Hi"
	`)
	validateResult(t, s, err, []byte{0x01, 0x02, 0xFF, 0x34, 0x12, 0x04, 0x03, 0x02, 0x01, 'H', 'i'}, nil)
}

func TestEndian(t *testing.T) {
	s, err := assemble(t, "endian msb; dw $1234; endian lsb; dw $1234")
	validateResult(t, s, err, []byte{0x12, 0x34, 0x34, 0x12}, nil)
}

func TestEvaluate(t *testing.T) {
	s, err := assemble(t, `
	constant answer = 42
	variable v = 3
	expression twice(x) = x * 2
	expression add(a, b) = a + b
	array values = 5, 6, 7
	`)
	validateResult(t, s, err, nil, nil)

	cases := map[string]int64{
		"1 + 2 * 3":          7,
		"(1 + 2) * 3":        9,
		"0b101 + 0o17":       20,
		"0x10 | %0001":       17,
		"$ff & 0x0f":         15,
		"1'000":              1000,
		"'A'":                65,
		"answer - v":         39,
		"-v":                 -3,
		"!0 + !5":            1,
		"~0":                 -1,
		"1 << 4 >> 2":        4,
		"7 % 4":              3,
		"3 > 2 && 2 >= 2":    1,
		"0 && undefined":     0,
		"1 || undefined":     1,
		"v == 3 ? 10 : 20":   10,
		"twice(4)":           8,
		"add(twice(1), 3)":   5,
		"values[2]":          7,
		"array.size(values)": 3,
	}
	for source, expected := range cases {
		value, err := s.Evaluate(source)
		if err != nil {
			t.Errorf("Evaluate(%q) failed: %v", source, err)
			continue
		}
		if value != expected {
			t.Errorf("Evaluate(%q) = %d, expected %d", source, value, expected)
		}
	}

	if value, err := s.Evaluate("v = v * 3"); err != nil || value != 9 {
		t.Errorf("assignment returned %d (%v)", value, err)
	}
	if value, err := s.Evaluate("v"); err != nil || value != 9 {
		t.Errorf("assignment was not stored, v = %d (%v)", value, err)
	}
}

func TestEvaluateErrors(t *testing.T) {
	s, err := assemble(t, "array values = 1, 2")
	validateResult(t, s, err, nil, nil)

	cases := map[string]assembler.ErrorKind{
		"1 && undefined": assembler.UnresolvedSymbol,
		"1 / 0":          assembler.Failure,
		"values[2]":      assembler.OutOfBounds,
		"values[-1]":     assembler.OutOfBounds,
		"missing(1)":     assembler.UnresolvedSymbol,
		"1 +":            assembler.MalformedExpression,
		"0xZZ":           assembler.MalformedExpression,
		"unknown = 1":    assembler.UnresolvedSymbol,
	}
	for source, kind := range cases {
		_, err := s.Evaluate(source)
		if !assembler.IsKind(err, kind) {
			t.Errorf("Evaluate(%q) returned %v, expected a %v error", source, err, kind)
		}
	}
}

func TestShortCircuitSkipsAssignment(t *testing.T) {
	s, err := assemble(t, `
	variable x = 0
	variable r = 0 && (x = 5)
	variable q = 1 || (x = 5)
	db x, r, q
	`)
	validateResult(t, s, err, []byte{0x00, 0x00, 0x01}, nil)

	if value, err := s.Evaluate("x"); err != nil || value != 0 {
		t.Errorf("expected x to be unchanged, got %d (%v)", value, err)
	}
	if _, err := s.Evaluate("1 && (x = 5)"); err != nil {
		t.Fatal(err)
	}
	if value, err := s.Evaluate("x"); err != nil || value != 5 {
		t.Errorf("expected the evaluated operand to assign x, got %d (%v)", value, err)
	}
}

func TestForwardReference(t *testing.T) {
	s, err := assemble(t, `
	dw target
	db 0
	target:
	db 7
	`)
	validateResult(t, s, err, []byte{0x03, 0x00, 0x00, 0x07}, nil)

	if value, err := s.Evaluate("target"); err != nil || value != 3 {
		t.Errorf("expected target to be 3, got %d (%v)", value, err)
	}
}

func TestRelativeLabels(t *testing.T) {
	s, err := assemble(t, `
	dw +
	db 0
	+
	db 9
	-
	db -
	`)
	validateResult(t, s, err, []byte{0x03, 0x00, 0x00, 0x09, 0x04}, nil)
}

func TestConstantRedefinition(t *testing.T) {
	s, err := assemble(t, `
	constant x = 1
	constant x = 2
	`)
	validateResult(t, s, err, nil, []assembler.Diagnostic{
		diagnostic(assembler.Error, 2, "constant cannot be modified: x"),
	})
	if !assembler.IsKind(err, assembler.Structural) {
		t.Errorf("expected a structural error, got %v", err)
	}
}

func TestStrictConditionRejectsForwardReference(t *testing.T) {
	s, err := assemble(t, `
	if later == 0 {
	}
	constant later = 0
	`)
	validateResult(t, s, err, nil, []assembler.Diagnostic{
		diagnostic(assembler.Error, 1, "unrecognized variable: later"),
	})
	if !assembler.IsKind(err, assembler.UnresolvedSymbol) {
		t.Errorf("expected an unresolved symbol error, got %v", err)
	}
}

func TestArchitecture(t *testing.T) {
	s, err := assemble(t, `
	architecture test
	base $8000
	start:
	nop
	lda $12
	-
	bne -
	jmp start
	bne end
	jmp end
	end:
	`)
	validateResult(t, s, err, []byte{
		0xEA,
		0xA9, 0x12,
		0xD0, 0xFE,
		0x4C, 0x00, 0x80,
		0xD0, 0x03,
		0x4C, 0x0D, 0x80,
	}, nil)
}

func TestBranchLabelOrder(t *testing.T) {
	cases := []struct {
		source   string
		label    string
		expected []byte
		address  int64
	}{
		{"architecture test\nbne next\nnext:\ndb 1\n", "next", []byte{0xD0, 0x00, 0x01}, 2},
		{"architecture test\nback:\nbne back\ndb 1\n", "back", []byte{0xD0, 0xFE, 0x01}, 0},
		{"architecture test\ndb 0\nbne next\nnext:\ndb 1\n", "next", []byte{0x00, 0xD0, 0x00, 0x01}, 3},
		{"architecture test\ndb 0\nback:\nbne back\ndb 1\n", "back", []byte{0x00, 0xD0, 0xFE, 0x01}, 1},
	}

	for _, c := range cases {
		s, err := assemble(t, c.source)
		validateResult(t, s, err, c.expected, nil)
		if value, err := s.Evaluate(c.label); err != nil || value != c.address {
			t.Errorf("expected %s to be %d, got %d (%v)", c.label, c.address, value, err)
		}
	}
}

func TestBranchOutOfBounds(t *testing.T) {
	s, err := assemble(t, `
	architecture test
	base $8000
	bne far
	fill 200
	fill 100
	far:
	`)
	validateResult(t, s, err, nil, []assembler.Diagnostic{
		diagnostic(assembler.Error, 3, "branch out of bounds: 300"),
	})
	if !assembler.IsKind(err, assembler.OutOfBounds) {
		t.Errorf("expected an out of bounds error, got %v", err)
	}
}

func TestUnknownArchitecture(t *testing.T) {
	s, err := assemble(t, "architecture missing")
	validateResult(t, s, err, nil, []assembler.Diagnostic{
		diagnostic(assembler.Error, 0, "unknown architecture: missing"),
	})
	if !assembler.IsKind(err, assembler.Resource) {
		t.Errorf("expected a resource error, got %v", err)
	}
}

func TestOverwriteTracker(t *testing.T) {
	s, err := assemble(t, `
	tracker enable
	db 1, 2
	origin 1
	db 3
	`)
	validateResult(t, s, err, nil, []assembler.Diagnostic{
		diagnostic(assembler.Error, 4, "overwrite detected at address 0x1 [0x1]"),
	})

	s, err = assemble(t, `
	db 1, 2
	origin 1
	db 3
	`)
	validateResult(t, s, err, []byte{0x01, 0x03}, nil)
}

func TestQueue(t *testing.T) {
	s, err := assemble(t, `
	origin 4
	enqueue origin
	origin 0
	db 1
	dequeue origin
	db 2
	`)
	validateResult(t, s, err, []byte{0x01, 0x00, 0x00, 0x00, 0x02}, nil)

	s, err = assemble(t, "dequeue pc")
	validateResult(t, s, err, nil, []assembler.Diagnostic{
		diagnostic(assembler.Error, 0, "dequeue with an empty queue"),
	})
}

func TestFillAndMap(t *testing.T) {
	s, err := assemble(t, `
	fill 3, $ff
	map 'A', $10, 3
	db "ABC"
	characters map
	db 'B'
	characters ascii
	db 'B'
	`)
	validateResult(t, s, err, []byte{0xFF, 0xFF, 0xFF, 0x10, 0x11, 0x12, 0x11, 0x42}, nil)
}

func TestMacros(t *testing.T) {
	s, err := assemble(t, `
	macro emit(value) {
		db {value}
	}
	macro pair(evaluate a, b) {
		db {a}, {b}
	}
	macro counter(variable n) {
		n = n + 1
		db n
	}
	emit(1)
	pair(1 + 1, 3)
	counter(4)
	`)
	validateResult(t, s, err, []byte{0x01, 0x02, 0x03, 0x05}, nil)
}

func TestMacroUniqueLabels(t *testing.T) {
	s, err := assemble(t, `
	macro mark() {
		{#}:
		db {#}
	}
	mark()
	mark()
	`)
	validateResult(t, s, err, []byte{0x00, 0x01}, nil)
}

func TestInlineMacroAndLevels(t *testing.T) {
	s, err := assemble(t, `
	inline setmode() {
		define mode = 2
	}
	macro setup() {
		global variable counter = 7
	}
	setmode()
	setup()
	db {mode}, setup.counter
	`)
	validateResult(t, s, err, []byte{0x02, 0x07}, nil)

	s, err = assemble(t, "global parent define x = 1")
	validateResult(t, s, err, nil, []assembler.Diagnostic{
		diagnostic(assembler.Error, 0, "multiple frame specifiers are not allowed"),
	})
}

func TestConditionals(t *testing.T) {
	s, err := assemble(t, `
	variable i = 0
	while i < 3 {
		db i
		i = i + 1
	}
	if i == 3 {
		db $aa
	} else if i == 4 {
		db $bb
	} else {
		db $cc
	}
	if 0 {
		db 1
	} else if 0 {
		db 2
	} else {
		db $dd
	}
	`)
	validateResult(t, s, err, []byte{0x00, 0x01, 0x02, 0xAA, 0xDD}, nil)
}

func TestDefines(t *testing.T) {
	s, err := assemble(t, `
	define enabled
	define size = 4
	define scaled(n) = {n} * {size}
	evaluate total = 2 + 3
	if {defined enabled} {
		db {scaled(2)}
	}
	if {defined missing} {
		db 2
	}
	db {total}
	`)
	validateResult(t, s, err, []byte{0x08, 0x05}, nil)
}

func TestScopes(t *testing.T) {
	s, err := assemble(t, `
	scope outer {
		constant value = 1
		namespace inner {
			constant value = 2
			db value
		}
		db value
	}
	db outer.value, outer.inner.value
	function entry {
		db 0
	}
	db entry
	`)
	validateResult(t, s, err, []byte{0x02, 0x01, 0x01, 0x02, 0x00, 0x04}, nil)
}

func TestArrays(t *testing.T) {
	s, err := assemble(t, `
	array[2] zeros
	array values = 3, 1, 2
	array.append values, 0
	array.sort(values)
	array.assign zeros, 1, 5
	db values[0], values[3], array.size(values), zeros[1]
	assert(values[1] == 1)
	`)
	validateResult(t, s, err, []byte{0x00, 0x03, 0x04, 0x05}, nil)

	s, err = assemble(t, "assert(0)")
	validateResult(t, s, err, nil, []assembler.Diagnostic{
		diagnostic(assembler.Error, 0, "assertion failed"),
	})
}

func TestStructuralErrors(t *testing.T) {
	cases := map[string]string{
		"}":               "} without matching {",
		"if 1 {":          "unterminated block",
		"} else {":        "else without matching if",
		"bogus 1":         "unrecognized directive: bogus 1",
		"define 1bad = 2": "invalid define identifier: 1bad",
	}
	for source, message := range cases {
		s, err := assemble(t, source)
		if err == nil {
			t.Errorf("expected %q to fail", source)
			continue
		}
		validateResult(t, s, err, nil, []assembler.Diagnostic{
			diagnostic(assembler.Error, 0, message),
		})
	}
}

func TestMessages(t *testing.T) {
	s, err := assemble(t, `
	print "x=", 10, " h=", hex:255, " b=", bin:5
	warning "careful"
	`)
	validateResult(t, s, err, nil, []assembler.Diagnostic{
		diagnostic(assembler.Warning, 2, "careful"),
	})
	if !strings.Contains(s.logs.String(), "x=10 h=ff b=101") {
		t.Errorf("print output missing from log:\n%s", s.logs.String())
	}

	s = newSession(t)
	s.SourceText("test.asm", `warning "careful"`)
	err = s.Assemble(true)
	validateResult(t, s, err, nil, []assembler.Diagnostic{
		diagnostic(assembler.Error, 0, "careful"),
	})
	if !assembler.IsKind(err, assembler.PromotedWarning) {
		t.Errorf("expected a promoted warning, got %v", err)
	}

	s, err = assemble(t, `error "boom"`)
	validateResult(t, s, err, nil, []assembler.Diagnostic{
		diagnostic(assembler.Error, 0, "boom"),
	})
	var assemblyErr *assembler.AssemblyError
	if e, ok := err.(*assembler.AssemblyError); ok {
		assemblyErr = e
	}
	if assemblyErr == nil || assemblyErr.Location != "test.asm:1:1" {
		t.Errorf("unexpected error location: %v", err)
	}
}

func TestInsertAndFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "data.bin"), []byte{1, 2, 3, 4}, 0644); err != nil {
		t.Fatal(err)
	}

	s := newSession(t)
	s.SourceText(filepath.Join(dir, "main.asm"), `
	insert blob, "data.bin", 1, 2
	db blob, blob.size, file.size("data.bin"), file.exists("nope.bin")
	db read(1)
	`)
	err := s.Assemble(false)
	validateResult(t, s, err, []byte{0x02, 0x03, 0x00, 0x02, 0x04, 0x00, 0x03}, nil)
}

func TestOutputDirective(t *testing.T) {
	dir := t.TempDir()
	s := newSession(t)
	s.SourceText(filepath.Join(dir, "main.asm"), `
	output "out.bin", create
	db $de, $ad
	`)
	if err := s.Assemble(false); err != nil {
		t.Fatalf("assembly failed: %v\n%s", err, s.logs.String())
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "out.bin"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, []byte{0xDE, 0xAD}) {
		t.Errorf("unexpected output file contents % X", data)
	}
}

func TestOutputDirectiveMissingDirectory(t *testing.T) {
	dir := t.TempDir()
	s := newSession(t)
	s.SourceText(filepath.Join(dir, "main.asm"), `
	output "no/such/dir/out.bin", create
	db 1
	`)
	if err := s.Assemble(false); err != nil {
		t.Fatalf("expected an unopenable target to be a warning, got %v", err)
	}
	if len(s.Diagnostics) != 1 {
		t.Fatalf("expected one diagnostic, got %s", spew.Sdump(s.Diagnostics))
	}
	d := s.Diagnostics[0]
	if d.Severity != assembler.Warning || !strings.HasPrefix(d.Message, "unable to open target file: ") {
		t.Errorf("unexpected diagnostic %s", spew.Sdump(d))
	}
	if s.target.Size() != 0 {
		t.Errorf("expected nothing written to the previous target, got % X", s.target.Bytes())
	}
}

func TestStdoutFallback(t *testing.T) {
	s := newSession(t)
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	var stdout bytes.Buffer
	s.Stdout = &stdout
	s.SourceText("test.asm", "db 1, 2")
	if err := s.Assemble(false); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(stdout.Bytes(), []byte{1, 2}) {
		t.Errorf("expected the write phase alone to reach stdout, got % X", stdout.Bytes())
	}
}

func TestTerminalSymbols(t *testing.T) {
	s := newSession(t)
	s.Define("width", "3")
	s.Constant("height", "4")
	s.Constant("bad", "undefined")
	s.SourceText("test.asm", "db {width}, height")
	err := s.Assemble(false)
	validateResult(t, s, err, []byte{0x03, 0x04}, nil)

	if _, ok := s.Constants()["bad"]; ok {
		t.Errorf("a constant that failed to evaluate should be skipped")
	}
}

func TestInclude(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "lib.asm"), []byte("constant libvalue = 6\n"), 0644); err != nil {
		t.Fatal(err)
	}

	s := newSession(t)
	s.SourceText(filepath.Join(dir, "main.asm"), "include \"lib.asm\"\ndb libvalue // comment; not a statement")
	err := s.Assemble(false)
	validateResult(t, s, err, []byte{0x06}, nil)

	if len(s.SourceFilenames()) != 2 || len(s.Program()) != 2 {
		t.Errorf("unexpected sources %v with %d statements", s.SourceFilenames(), len(s.Program()))
	}
}

func TestHover(t *testing.T) {
	s, err := assemble(t, "constant answer = 42\nstart:\ndb answer, $10")
	validateResult(t, s, err, nil, nil)

	cases := []struct {
		line, char int
		contains   string
	}{
		{0, 0, "Constant Declaration"},
		{0, 10, "Evaluates to `42`"},
		{1, 2, "Definition of label `start`"},
		{2, 0, "Data Byte Directive"},
		{2, 5, "Evaluates to `42`"},
		{2, 12, "Integer Literal `16`"},
	}
	for _, c := range cases {
		text, ok := s.Hover("test.asm", assembler.TextPosition{Line: c.line, Char: c.char})
		if !ok || !strings.Contains(text, c.contains) {
			t.Errorf("hover at %d:%d = %q, expected it to contain %q", c.line, c.char, text, c.contains)
		}
	}

	if _, ok := s.Hover("test.asm", assembler.TextPosition{Line: 2, Char: 9}); ok {
		t.Errorf("expected no hover between operands")
	}
}
