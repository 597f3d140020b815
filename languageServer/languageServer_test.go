package languageServer_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.gatech.edu/ECEInnovation/bass/assembler"
	"github.gatech.edu/ECEInnovation/bass/languageServer"
)

func TestAssembleDocumentDiagnostics(t *testing.T) {
	_, diagnostics := languageServer.AssembleDocument("doc.asm", "db 1\n  frobnicate 3\n", nil)

	if len(diagnostics) != 1 {
		t.Fatalf("expected one diagnostic, got %s", spew.Sdump(diagnostics))
	}
	d := diagnostics[0]
	if d.Severity != assembler.Error || d.Message != "unrecognized directive: frobnicate 3" {
		t.Errorf("unexpected diagnostic %s", spew.Sdump(d))
	}
	if d.Range.Start.Line != 1 || d.Range.Start.Char != 2 || d.Range.End.Char != 14 {
		t.Errorf("unexpected range %s", spew.Sdump(d.Range))
	}
}

func TestAssembleDocumentClean(t *testing.T) {
	_, diagnostics := languageServer.AssembleDocument("doc.asm", "constant x = 2\ndb x, x + 1\n", nil)
	if diagnostics == nil || len(diagnostics) != 0 {
		t.Errorf("expected an empty diagnostic list, got %s", spew.Sdump(diagnostics))
	}
}

func TestAssembleDocumentIgnoresOutput(t *testing.T) {
	dir := t.TempDir()
	filename := filepath.Join(dir, "doc.asm")
	_, diagnostics := languageServer.AssembleDocument(filename, "output \"out.bin\", create\ndb 1\n", nil)
	if len(diagnostics) != 0 {
		t.Errorf("unexpected diagnostics %s", spew.Sdump(diagnostics))
	}
	if _, err := os.Stat(filepath.Join(dir, "out.bin")); !os.IsNotExist(err) {
		t.Errorf("expected no output file to be written, got %v", err)
	}
}

func TestDocumentHover(t *testing.T) {
	session, _ := languageServer.AssembleDocument("doc.asm", "constant limit = 5\ndb limit\n", nil)

	text, ok := session.Hover("doc.asm", assembler.TextPosition{Line: 1, Char: 4})
	if !ok || text != "Constant `limit`\n\nEvaluates to `5` (`0x5`)" {
		t.Errorf("unexpected hover %q (%v)", text, ok)
	}
	if _, ok := session.Hover("other.asm", assembler.TextPosition{Line: 1, Char: 4}); ok {
		t.Errorf("expected no hover for a file outside the session")
	}
}

func TestFormatDocument(t *testing.T) {
	source := "macro twice(x) {\ndb {x}, {x}\n   }\nstart:\n if 1 {\n\t  twice(2) // {\n } else {\ndb \"}\"\n}\n\n"
	expected := "macro twice(x) {\n  db {x}, {x}\n}\nstart:\nif 1 {\n  twice(2) // {\n} else {\n  db \"}\"\n}\n\n"

	if formatted := languageServer.FormatDocument(source); formatted != expected {
		t.Errorf("unexpected formatting:\n%s\nexpected:\n%s", formatted, expected)
	}
}
