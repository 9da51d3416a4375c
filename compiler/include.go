package compiler

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/loisplang/loisp/diag"
	"github.com/loisplang/loisp/lexer"
	"github.com/loisplang/loisp/sexpr"
)

// MaxIncludeDepth guards against include cycles, per spec.md §6.
const MaxIncludeDepth = 256

// includer resolves `(include "path")`, reading files relative to the
// currently-including file's directory (falling back to a configured
// search root), and guarding against cycles. Grounded on
// parser/preprocessor.go's Preprocessor: an include stack for cycle
// detection plus a completed set so repeated inclusion of the same
// canonical path is a no-op.
type includer struct {
	searchRoot string
	maxDepth   int
	stack      []string // canonical paths currently being included
}

func newIncluder(searchRoot string) *includer {
	if searchRoot == "" {
		searchRoot = "."
	}
	return &includer{searchRoot: searchRoot, maxDepth: MaxIncludeDepth}
}

// resolvePath turns a raw `(include "path")` argument into a canonical
// filesystem path, trying relative-to-includer-directory first and then
// the configured search root.
func (inc *includer) resolvePath(raw, includingDir string) (string, error) {
	candidates := []string{
		filepath.Join(includingDir, raw),
		filepath.Join(inc.searchRoot, raw),
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return filepath.Abs(c)
		}
	}
	return "", fmt.Errorf("include file not found: %q (searched %v)", raw, candidates)
}

// load reads and parses path, returning its top-level S-expressions. It
// does not itself track the include stack; callers push/pop around load.
func (inc *includer) load(path string) ([]*sexpr.SExpr, *diag.Error) {
	content, err := os.ReadFile(path) // #nosec G304 -- path resolved from compiler-controlled search roots
	if err != nil {
		return nil, diag.Newf(diag.Position{File: path}, diag.IncludeError, "failed to read include file: %v", err)
	}
	l := lexer.New(string(content), path)
	toks := l.All()
	p := sexpr.New(toks, l.Errors())
	exprs := p.ParseAll()
	if p.Errors().HasErrors() {
		first := p.Errors().First()
		return nil, diag.New(first.Pos, diag.IncludeError,
			fmt.Sprintf("errors parsing included file %s: %s", path, first.Message))
	}
	return exprs, nil
}

// enter pushes path onto the in-progress stack, detecting cycles and depth
// overruns. Call leave() (via defer) to pop on return.
func (inc *includer) enter(path string, pos diag.Position) *diag.Error {
	for _, p := range inc.stack {
		if p == path {
			return diag.Newf(pos, diag.IncludeError, "circular include detected: %s", path)
		}
	}
	if len(inc.stack) >= inc.maxDepth {
		return diag.Newf(pos, diag.IncludeError, "include depth exceeds %d", inc.maxDepth)
	}
	inc.stack = append(inc.stack, path)
	return nil
}

func (inc *includer) leave() {
	inc.stack = inc.stack[:len(inc.stack)-1]
}

// currentDir returns the directory of the file currently being processed,
// for resolving a nested include relative to its own includer.
func (inc *includer) currentDir() string {
	if len(inc.stack) == 0 {
		return inc.searchRoot
	}
	return filepath.Dir(inc.stack[len(inc.stack)-1])
}
