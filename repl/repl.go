// Package repl is a stub for Loisp's tree-walking interpreter/REPL mode.
// The language's own specification treats the REPL as an external
// collaborator to the compiler rather than something the compiler itself
// implements, and this package exists only so the CLI has a place to hang
// a `repl` subcommand that says so.
package repl

import (
	"errors"

	"github.com/loisplang/loisp/ir"
)

// ErrNotImplemented is returned by Eval: this repository compiles Loisp to
// native binaries and does not carry a tree-walking evaluator.
var ErrNotImplemented = errors.New("repl: interpreter mode is not implemented in this repository")

// Eval would evaluate one line of input against the accumulated session
// history and return the resulting node. It always fails here.
func Eval(history []ir.Node, line string) (ir.Node, error) {
	return nil, ErrNotImplemented
}
