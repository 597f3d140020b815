// Package playground serves a web page that assembles source typed into the
// browser and shows the resulting image and diagnostics.
package playground

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.gatech.edu/ECEInnovation/bass/assembler"
	"github.gatech.edu/ECEInnovation/bass/util"
)

const defaultArchitecture = "playground"

type Request struct {
	Type         string `json:"type"`
	Source       string `json:"source"`
	Table        string `json:"table"`        // architecture table text, optional
	Architecture string `json:"architecture"` // name the table is installed under
	Strict       bool   `json:"strict"`
}

type Result struct {
	Type        string                 `json:"type"`
	Image       string                 `json:"image"` // base64
	Diagnostics []assembler.Diagnostic `json:"diagnostics"`
	Log         string                 `json:"log"`
	Success     bool                   `json:"success"`
}

// Server holds the settings shared by every playground connection.
type Server struct {
	ArchitecturePaths []string
}

// Assemble assembles req.Source in memory inside an empty scratch directory,
// so the source can reach no host files. A table sent with the request is
// installed ahead of the configured architecture paths, and the source
// selects it with "architecture <name>".
func (s *Server) Assemble(req Request) (Result, error) {
	result := Result{Type: "result", Diagnostics: make([]assembler.Diagnostic, 0)}

	dir, err := os.MkdirTemp("", "bass-playground")
	if err != nil {
		return result, errors.Wrap(err, "unable to create a scratch directory")
	}
	defer os.RemoveAll(dir)

	paths := s.ArchitecturePaths
	if req.Table != "" {
		name := req.Architecture
		if name == "" {
			name = defaultArchitecture
		}
		if !filepath.IsLocal(name) || filepath.Base(name) != name {
			return result, errors.Errorf("invalid architecture name: %s", name)
		}
		tables := filepath.Join(dir, "architectures")
		if err := os.Mkdir(tables, 0o755); err != nil {
			return result, errors.Wrap(err, "unable to install architecture table")
		}
		if err := os.WriteFile(filepath.Join(tables, name+".arch"), []byte(req.Table), 0o644); err != nil {
			return result, errors.Wrap(err, "unable to install architecture table")
		}
		paths = append([]string{tables}, paths...)
	}

	var logs bytes.Buffer
	target := assembler.NewMemoryTarget()
	a := assembler.New()
	a.Log = log.New(&logs, "", 0)
	a.Stdout = nil
	a.Sandboxed = true
	a.ArchitecturePaths = paths
	a.SetTarget(target)
	a.SourceText(filepath.Join(dir, "playground.asm"), req.Source)
	err = a.Assemble(req.Strict)

	result.Success = err == nil
	result.Image = base64.StdEncoding.EncodeToString(target.Bytes())
	result.Diagnostics = append(result.Diagnostics, a.Diagnostics...)
	result.Log = logs.String()
	a.Close()
	return result, nil
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println(err)
		return
	}
	defer conn.Close()

	for {
		_, messageBytes, err := conn.ReadMessage()
		if err != nil {
			util.LogF("bass playground: read: %v", err)
			return
		}

		var req Request
		if err := json.Unmarshal(messageBytes, &req); err != nil {
			log.Println("json:", err)
			return
		}

		switch req.Type {
		case "assemble":
			result, err := s.Assemble(req)
			if err != nil {
				log.Println("assemble:", err)
				result.Log = err.Error()
			}
			if err := conn.WriteJSON(result); err != nil {
				log.Println("write:", err)
				return
			}
		default:
			log.Printf("Unknown message type: %s", req.Type)
		}
	}
}

func handleGetPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	w.Write([]byte(htmlPage))
}

// Handler routes the page and the websocket endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebsocket)
	mux.HandleFunc("/", handleGetPage)
	return mux
}

func (s *Server) ListenAndServe(addr string) error {
	log.Printf("Connect to the playground at http://localhost%s", addr)
	return http.ListenAndServe(addr, s.Handler())
}
