package compileserver

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/loisplang/loisp/compiler"
	"github.com/loisplang/loisp/emitter"
	"github.com/loisplang/loisp/lexer"
	"github.com/loisplang/loisp/sexpr"
	"github.com/loisplang/loisp/typecheck"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 1 << 20
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins: this is a local compile tool, not a public service.
		return true
	},
}

// stageEvent is one step of a streamed compile, sent as the pipeline
// progresses from lexing through emission.
type stageEvent struct {
	Stage    string `json:"stage"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
	Assembly string `json:"assembly,omitempty"`
	Done     bool   `json:"done"`
}

// compileRequest is the single message a client sends to kick off a
// streamed compile.
type compileRequest struct {
	Source string `json:"source"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("compileserver: websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(maxMessageSize)

	for {
		var req compileRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("compileserver: websocket read error: %v", err)
			}
			return
		}
		streamCompile(conn, req.Source)
	}
}

// streamCompile runs the pipeline stage by stage, writing a stageEvent
// after each stage completes. It stops at the first stage that reports
// diagnostics, matching the compiler's fail-fast behavior.
func streamCompile(conn *websocket.Conn, src string) {
	send := func(ev stageEvent) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(ev); err != nil {
			log.Printf("compileserver: websocket write error: %v", err)
			return false
		}
		return true
	}

	l := lexer.New(src, "<ws>")
	toks := l.All()
	if l.Errors().HasErrors() {
		send(stageEvent{Stage: "lex", Error: l.Errors().First().Error(), Done: true})
		return
	}
	if !send(stageEvent{Stage: "lex", Message: "tokenized"}) {
		return
	}

	p := sexpr.New(toks, l.Errors())
	exprs := p.ParseAll()
	if p.Errors().HasErrors() {
		send(stageEvent{Stage: "parse", Error: p.Errors().First().Error(), Done: true})
		return
	}
	if !send(stageEvent{Stage: "parse", Message: "parsed"}) {
		return
	}

	res := compiler.New(".")
	prog := res.ResolveFile(exprs)
	if res.Errors().HasErrors() {
		send(stageEvent{Stage: "resolve", Error: res.Errors().First().Error(), Done: true})
		return
	}
	if !send(stageEvent{Stage: "resolve", Message: "resolved"}) {
		return
	}

	if err := typecheck.Check(prog); err != nil {
		send(stageEvent{Stage: "typecheck", Error: err.Error(), Done: true})
		return
	}
	if !send(stageEvent{Stage: "typecheck", Message: "balanced"}) {
		return
	}

	asm, err := emitter.Emit(prog)
	if err != nil {
		send(stageEvent{Stage: "emit", Error: err.Error(), Done: true})
		return
	}
	send(stageEvent{Stage: "emit", Assembly: asm, Done: true})
}
