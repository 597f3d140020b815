package languageServer

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/sourcegraph/jsonrpc2"
	"github.gatech.edu/ECEInnovation/bass/assembler"
	"github.gatech.edu/ECEInnovation/bass/util"
)

// ArchitecturePaths is handed to every document session.
var ArchitecturePaths []string

// documentPath maps a file URI to the filename used for includes and
// diagnostics. Other schemes keep the URI as written.
func documentPath(uri DocumentUri) string {
	u, err := url.Parse(string(uri))
	if err != nil || u.Scheme != "file" {
		return string(uri)
	}
	return filepath.FromSlash(u.Path)
}

// AssembleDocument assembles text in memory as if read from filename and
// returns the session together with the diagnostics reported against that
// file. Output directives are ignored and nothing is written to disk.
func AssembleDocument(filename, text string, architecturePaths []string) (*assembler.Assembler, []assembler.Diagnostic) {
	a := assembler.New()
	a.Log = log.New(io.Discard, "", 0)
	a.Stdout = io.Discard
	a.Sandboxed = true
	a.ArchitecturePaths = architecturePaths
	a.SetTarget(assembler.NewMemoryTarget())
	a.SourceText(filename, text)
	if err := a.Assemble(false); err != nil {
		util.LogF("bass language server: %s did not assemble: %v", filename, err)
	}
	a.Close()

	diagnostics := make([]assembler.Diagnostic, 0)
	for _, d := range a.Diagnostics {
		if d.File == filename {
			diagnostics = append(diagnostics, d)
		}
	}
	return a, diagnostics
}

func (h *handler) assembleAndReportDiagnostics(uri DocumentUri) []assembler.Diagnostic {
	doc := h.documents[string(uri)]

	session, diagnostics := AssembleDocument(documentPath(uri), doc.Text, ArchitecturePaths)
	doc.session = session
	h.documents[string(uri)] = doc
	return diagnostics
}

func replyInvalidParameters(conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	rpcErr := jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams}
	rpcErr.SetError("invalid parameters")
	conn.ReplyWithError(context.Background(), req.ID, &rpcErr)
}

func (h *handler) documentOpenNotification(conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	decodedParams := DidOpenTextDocumentParams{}
	if req.Params == nil || json.Unmarshal(*req.Params, &decodedParams) != nil {
		replyInvalidParameters(conn, req)
		return
	}

	h.documents[string(decodedParams.TextDocument.URI)] = decodedParams.TextDocument

	diagnostics := h.assembleAndReportDiagnostics(decodedParams.TextDocument.URI)
	conn.Notify(context.Background(), "textDocument/publishDiagnostics", PublishDiagnosticsParams{
		URI:         decodedParams.TextDocument.URI,
		Version:     decodedParams.TextDocument.Version,
		Diagnostics: diagnostics,
	})
}

func (h *handler) documentCloseNotification(conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	decodedParams := DidCloseTextDocumentParams{}
	if req.Params == nil || json.Unmarshal(*req.Params, &decodedParams) != nil {
		replyInvalidParameters(conn, req)
		return
	}

	delete(h.documents, string(decodedParams.TextDocument.URI))
}

func (h *handler) documentChangeNotification(conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	decodedParams := DidChangeTextDocumentParams{}
	if req.Params == nil || json.Unmarshal(*req.Params, &decodedParams) != nil || len(decodedParams.ContentChanges) == 0 {
		replyInvalidParameters(conn, req)
		return
	}

	doc := h.documents[string(decodedParams.TextDocument.URI)]
	doc.URI = decodedParams.TextDocument.URI
	doc.Text = decodedParams.ContentChanges[len(decodedParams.ContentChanges)-1].Text
	doc.Version = decodedParams.TextDocument.Version
	h.documents[string(decodedParams.TextDocument.URI)] = doc

	diagnostics := h.assembleAndReportDiagnostics(decodedParams.TextDocument.URI)
	conn.Notify(context.Background(), "textDocument/publishDiagnostics", PublishDiagnosticsParams{
		URI:         decodedParams.TextDocument.URI,
		Version:     doc.Version,
		Diagnostics: diagnostics,
	})
}

func (h *handler) documentDiagnostics(conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	decodedParams := DocumentDiagnosticsParams{}
	if req.Params == nil || json.Unmarshal(*req.Params, &decodedParams) != nil {
		replyInvalidParameters(conn, req)
		return
	}

	diagnostics := h.assembleAndReportDiagnostics(decodedParams.TextDocument.URI)
	conn.Reply(context.Background(), req.ID, DocumentDiagnosticsReport{
		Kind:  "full",
		Items: diagnostics,
	})
}

// codeBraces counts the braces of line outside quotes and comments.
func codeBraces(line string) (opens, closes int) {
	var quote byte
	for n := 0; n < len(line); n++ {
		c := line[n]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '/' && n+1 < len(line) && line[n+1] == '/':
			return
		case c == '{':
			opens++
		case c == '}':
			closes++
		}
	}
	return
}

func isLabel(line string) bool {
	return strings.HasSuffix(line, ":") && !strings.ContainsAny(line, " \"")
}

// FormatDocument indents every statement by its block depth. Labels sit one
// level out from the statements around them.
func FormatDocument(text string) string {
	const indent = "  "

	lines := strings.Split(text, "\n")
	depth := 0
	for n, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			lines[n] = ""
			continue
		}

		level := depth
		if strings.HasPrefix(trimmed, "}") || isLabel(trimmed) {
			level--
		}
		lines[n] = strings.Repeat(indent, max(level, 0)) + trimmed

		opens, closes := codeBraces(trimmed)
		depth = max(depth+opens-closes, 0)
	}
	return strings.Join(lines, "\n")
}

func (h *handler) documentWillSaveWaitUntil(conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	decodedParams := DocumentWillSaveWaitUntilParams{}
	if req.Params == nil || json.Unmarshal(*req.Params, &decodedParams) != nil {
		replyInvalidParameters(conn, req)
		return
	}

	text := h.documents[string(decodedParams.TextDocument.URI)].Text
	lines := strings.Split(text, "\n")

	edits := []TextEdit{{
		Range: assembler.TextRange{
			Start: assembler.TextPosition{Line: 0, Char: 0},
			End:   assembler.TextPosition{Line: len(lines) - 1, Char: len(lines[len(lines)-1])},
		},
		NewText: FormatDocument(text),
	}}

	conn.Reply(context.Background(), req.ID, edits)
	util.LogF("bass language server: formatted %s", decodedParams.TextDocument.URI)
}
