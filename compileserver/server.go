// Package compileserver exposes the compile pipeline over HTTP and
// WebSocket, grounded on the teacher's api/server.go and api/websocket.go
// (itself grounded on ajroetker-goat's and db47h-ngaro's precedent of
// putting tool functionality behind a network service).
package compileserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/loisplang/loisp/compiler"
	"github.com/loisplang/loisp/diag"
	"github.com/loisplang/loisp/emitter"
	"github.com/loisplang/loisp/lexer"
	"github.com/loisplang/loisp/sexpr"
	"github.com/loisplang/loisp/typecheck"
)

// Server serves the compile-as-a-service HTTP and WebSocket endpoints.
type Server struct {
	addr   string
	mux    *http.ServeMux
	server *http.Server
}

// NewServer creates a Server listening on addr (e.g. "127.0.0.1:4470").
func NewServer(addr string) *Server {
	s := &Server{addr: addr, mux: http.NewServeMux()}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/compile", s.handleCompile)
	s.mux.HandleFunc("/ws", s.handleWebSocket)
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start runs the HTTP server until it errors or is shut down.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	log.Printf("compileserver listening on http://%s", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// compileResult is the synchronous /compile response.
type compileResult struct {
	Assembly string   `json:"assembly,omitempty"`
	Errors   []string `json:"errors,omitempty"`
}

func (s *Server) handleCompile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	src, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	asm, errs := compileSource(string(src))

	result := compileResult{Assembly: asm}
	for _, e := range errs {
		result.Errors = append(result.Errors, e.Error())
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(result)
}

// compileSource runs the full pipeline once, returning assembly text (if
// it got that far) and any diagnostics encountered.
func compileSource(src string) (string, []*diag.Error) {
	l := lexer.New(src, "<compileserver>")
	toks := l.All()
	if l.Errors().HasErrors() {
		return "", l.Errors().Errors
	}

	p := sexpr.New(toks, l.Errors())
	exprs := p.ParseAll()
	if p.Errors().HasErrors() {
		return "", p.Errors().Errors
	}

	r := compiler.New(".")
	prog := r.ResolveFile(exprs)
	if r.Errors().HasErrors() {
		return "", r.Errors().Errors
	}

	if err := typecheck.Check(prog); err != nil {
		return "", []*diag.Error{err}
	}

	asm, err := emitter.Emit(prog)
	if err != nil {
		return "", []*diag.Error{diag.New(diag.Position{}, diag.IOError, fmt.Sprintf("emit: %v", err))}
	}
	return asm, nil
}
