package compileserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandleCompileSuccess(t *testing.T) {
	s := NewServer("127.0.0.1:0")

	req := httptest.NewRequest(http.MethodPost, "/compile", bytes.NewBufferString(`(print (+ 1 2))`))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var result compileResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("unexpected error decoding response: %s", err)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if !strings.Contains(result.Assembly, "format ELF64 executable") {
		t.Errorf("expected fasm header in assembly, got: %s", result.Assembly)
	}
}

func TestHandleCompileTypeError(t *testing.T) {
	s := NewServer("127.0.0.1:0")

	req := httptest.NewRequest(http.MethodPost, "/compile", bytes.NewBufferString(`(+ 1 "s")`))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	var result compileResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("unexpected error decoding response: %s", err)
	}
	if len(result.Errors) == 0 {
		t.Fatal("expected a type error to be reported")
	}
}

func TestHandleCompileRejectsGet(t *testing.T) {
	s := NewServer("127.0.0.1:0")

	req := httptest.NewRequest(http.MethodGet, "/compile", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", w.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	s := NewServer("127.0.0.1:0")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}
