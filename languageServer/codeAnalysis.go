package languageServer

import (
	"context"
	"encoding/json"

	"github.com/sourcegraph/jsonrpc2"
)

func (h *handler) hoverRequest(conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	decodedParams := TextDocumentPositionParams{}
	if req.Params == nil || json.Unmarshal(*req.Params, &decodedParams) != nil {
		replyInvalidParameters(conn, req)
		return
	}

	doc, ok := h.documents[string(decodedParams.TextDocument.URI)]
	if !ok || doc.session == nil {
		conn.Reply(context.Background(), req.ID, nil)
		return
	}
	text, ok := doc.session.Hover(documentPath(decodedParams.TextDocument.URI), decodedParams.Position)
	if !ok {
		conn.Reply(context.Background(), req.ID, nil)
		return
	}

	conn.Reply(context.Background(), req.ID, Hover{
		Contents: MarkupContent{
			Kind:  "markdown",
			Value: text,
		},
	})
}
