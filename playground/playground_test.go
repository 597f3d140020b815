package playground_test

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/gorilla/websocket"

	"github.gatech.edu/ECEInnovation/bass/playground"
)

const table = `
nop ; $ea
lda *08 ; $a9 =a
`

func decodeImage(t *testing.T, result playground.Result) []byte {
	t.Helper()
	image, err := base64.StdEncoding.DecodeString(result.Image)
	if err != nil {
		t.Fatal(err)
	}
	return image
}

func TestAssembleWithTable(t *testing.T) {
	s := &playground.Server{}
	result, err := s.Assemble(playground.Request{
		Type:   "assemble",
		Source: "architecture playground\nnop\nlda $12\ndb 7\n",
		Table:  table,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !result.Success || len(result.Diagnostics) != 0 {
		t.Fatalf("unexpected failure %s", spew.Sdump(result))
	}
	if image := decodeImage(t, result); !bytes.Equal(image, []byte{0xEA, 0xA9, 0x12, 0x07}) {
		t.Errorf("unexpected image % X", image)
	}
}

func TestAssembleFailure(t *testing.T) {
	s := &playground.Server{}
	result, err := s.Assemble(playground.Request{Type: "assemble", Source: "db 1\nerror \"stop\"\n"})
	if err != nil {
		t.Fatal(err)
	}
	if result.Success {
		t.Fatalf("expected failure")
	}
	if len(result.Diagnostics) != 1 || result.Diagnostics[0].Message != "stop" {
		t.Errorf("unexpected diagnostics %s", spew.Sdump(result.Diagnostics))
	}
	if !strings.Contains(result.Log, "stop") {
		t.Errorf("expected the log to mention the error, got %q", result.Log)
	}
}

func TestAssembleRejectsArchitecturePath(t *testing.T) {
	s := &playground.Server{}
	if _, err := s.Assemble(playground.Request{Type: "assemble", Table: table, Architecture: "../evil"}); err == nil {
		t.Errorf("expected an invalid architecture name to be rejected")
	}
}

func TestAssembleCannotReadHostFiles(t *testing.T) {
	dir := t.TempDir()
	secret := filepath.Join(dir, "secret.bin")
	if err := os.WriteFile(secret, []byte("SECRET\n"), 0644); err != nil {
		t.Fatal(err)
	}
	s := &playground.Server{}

	for _, source := range []string{
		fmt.Sprintf("insert %q\n", secret),
		fmt.Sprintf("insert %q\n", "../../../../../../../../.."+secret),
		fmt.Sprintf("db file.exists(%q)\n", secret),
		fmt.Sprintf("db file.size(%q)\n", secret),
	} {
		result, err := s.Assemble(playground.Request{Type: "assemble", Source: source})
		if err != nil {
			t.Fatal(err)
		}
		if result.Success || result.Image != "" {
			t.Errorf("expected %q to be rejected, got %s", source, spew.Sdump(result))
			continue
		}
		if len(result.Diagnostics) != 1 || !strings.HasPrefix(result.Diagnostics[0].Message, "file outside the source directory: ") {
			t.Errorf("unexpected diagnostics for %q: %s", source, spew.Sdump(result.Diagnostics))
		}
	}

	included := filepath.Join(dir, "secret.asm")
	if err := os.WriteFile(included, []byte("db 9\n"), 0644); err != nil {
		t.Fatal(err)
	}
	result, err := s.Assemble(playground.Request{Type: "assemble", Source: fmt.Sprintf("include %q\ndb 1\n", included)})
	if err != nil {
		t.Fatal(err)
	}
	if image := decodeImage(t, result); !result.Success || !bytes.Equal(image, []byte{0x01}) {
		t.Errorf("expected the include to be skipped, got % X %s", image, spew.Sdump(result))
	}
	if len(result.Diagnostics) != 1 || !strings.HasPrefix(result.Diagnostics[0].Message, "file outside the source directory: ") {
		t.Errorf("unexpected diagnostics %s", spew.Sdump(result.Diagnostics))
	}
}

func TestAssembleRejectsOversizedShift(t *testing.T) {
	s := &playground.Server{}
	result, err := s.Assemble(playground.Request{
		Type:   "assemble",
		Source: "architecture playground\nb 0\n",
		Table:  "b *08a ; +0>>16a",
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Success {
		t.Fatalf("expected the table to be rejected")
	}
	if len(result.Diagnostics) != 1 || !strings.Contains(result.Diagnostics[0].Message, "shift exceeds operand slot width") {
		t.Errorf("unexpected diagnostics %s", spew.Sdump(result.Diagnostics))
	}
}

func TestWebsocket(t *testing.T) {
	server := httptest.NewServer((&playground.Server{}).Handler())
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(playground.Request{Type: "assemble", Source: "dw $1234\n"}); err != nil {
		t.Fatal(err)
	}
	var result playground.Result
	if err := conn.ReadJSON(&result); err != nil {
		t.Fatal(err)
	}
	if result.Type != "result" || !result.Success {
		t.Fatalf("unexpected result %s", spew.Sdump(result))
	}
	if image := decodeImage(t, result); !bytes.Equal(image, []byte{0x34, 0x12}) {
		t.Errorf("unexpected image % X", image)
	}
}
