package compiler

import (
	"github.com/loisplang/loisp/diag"
	"github.com/loisplang/loisp/sexpr"
)

// MaxMacroNestingDepth bounds macro expansion recursion, per spec.md §4.3
// and §7 (MacroRecursion). Mirrors parser/macros.go's maxDepth guard.
const MaxMacroNestingDepth = 128

// Macro records a `(macro NAME body...)` definition. Loisp macros take no
// parameters: expansion is pure structural substitution of the stored
// body at each `(expand NAME)` site.
type Macro struct {
	Name      string
	Body      []*sexpr.SExpr
	DefinedAt diag.Position
}

// macroExpander tracks the active expansion call stack so that both
// indirect cycles and the expansion-depth bound are caught deterministically,
// matching parser/macros.go's MacroExpander.
type macroExpander struct {
	stack    []string
	maxDepth int
}

// push returns an error if expanding name would recurse (directly,
// indirectly, or past the depth bound), and otherwise enters it.
func (m *macroExpander) push(name string, pos diag.Position) *diag.Error {
	max := m.maxDepth
	if max <= 0 {
		max = MaxMacroNestingDepth
	}
	if len(m.stack) >= max {
		return diag.Newf(pos, diag.MacroRecursion,
			"macro expansion too deep (possible recursion): %v -> %s", m.stack, name)
	}
	for _, caller := range m.stack {
		if caller == name {
			return diag.Newf(pos, diag.MacroRecursion,
				"recursive macro expansion detected: %v -> %s", m.stack, name)
		}
	}
	m.stack = append(m.stack, name)
	return nil
}

func (m *macroExpander) pop() {
	m.stack = m.stack[:len(m.stack)-1]
}
