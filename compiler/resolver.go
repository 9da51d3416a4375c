package compiler

import (
	"fmt"

	"github.com/loisplang/loisp/diag"
	"github.com/loisplang/loisp/ir"
	"github.com/loisplang/loisp/sexpr"
)

// Resolver converts a translation unit's S-expressions into ir.Program,
// maintaining the single compile-time Env across the whole walk. Dispatch
// is by head word, per spec.md §4.3's Table 1.
type Resolver struct {
	Env *Env

	errs    diag.List
	macroXp macroExpander
	inc     *includer
}

// New creates a Resolver. searchRoot is where top-level `(include ...)`
// paths are resolved relative to when no including file is in scope.
func New(searchRoot string) *Resolver {
	return &Resolver{
		Env: NewEnv(),
		inc: newIncluder(searchRoot),
	}
}

// SetLimits overrides the include and macro expansion depth bounds (both
// default to their package constants), so a loaded loisp.toml can tighten
// or loosen them per spec.md §6/§7 without the caller reaching into
// Resolver internals.
func (r *Resolver) SetLimits(maxIncludeDepth, maxMacroDepth int) {
	if maxIncludeDepth > 0 {
		r.inc.maxDepth = maxIncludeDepth
	}
	if maxMacroDepth > 0 {
		r.macroXp.maxDepth = maxMacroDepth
	}
}

// Errors returns the diagnostics accumulated while resolving.
func (r *Resolver) Errors() *diag.List {
	return &r.errs
}

func (r *Resolver) fail(err *diag.Error) {
	r.errs.Add(err)
}

// ResolveFile resolves exprs as the root of a translation unit and returns
// the completed program. Resolution stops at the first error, per spec.md
// §7's fatal-on-first-error policy.
func (r *Resolver) ResolveFile(exprs []*sexpr.SExpr) *ir.Program {
	top := r.resolveSeq(exprs)
	prog := &ir.Program{TopLevel: top, Functions: r.Env.OrderedFunctions()}
	for _, v := range r.Env.OrderedVariables() {
		prog.Vars = append(prog.Vars, ir.VarSlot{Name: v.Name, Slot: v.Slot})
	}
	for _, a := range r.Env.OrderedAllocations() {
		prog.Allocs = append(prog.Allocs, ir.AllocSlot{Name: a.Name, Label: a.Label, Size: a.Size})
	}
	return prog
}

// resolveSeq resolves a sequence of statements (a translation unit's
// top-level forms, or a block/while/function body), splicing `include`
// and statement-position `expand` forms flatly into the result.
func (r *Resolver) resolveSeq(exprs []*sexpr.SExpr) []ir.Node {
	var out []ir.Node
	for _, e := range exprs {
		if r.errs.HasErrors() {
			return out
		}
		if head, ok := e.HeadWord(); ok {
			switch head {
			case "include":
				out = append(out, r.resolveIncludeStatement(e)...)
				continue
			case "expand":
				out = append(out, r.resolveExpandStatement(e)...)
				continue
			case "macro", "defun":
				// Declarations produce no IR node of their own.
				r.resolveDeclaration(e, head)
				continue
			}
		}
		if n := r.resolveExpr(e); n != nil {
			out = append(out, n)
		}
	}
	return out
}

// resolveDeclaration handles the compile-time-only forms `macro` and
// `defun`, which install entries in Env rather than producing IR.
func (r *Resolver) resolveDeclaration(e *sexpr.SExpr, head string) {
	switch head {
	case "macro":
		r.resolveMacroDef(e)
	case "defun":
		r.resolveDefun(e)
	}
}

// resolveExpr resolves a single S-expression to a single IR node, for use
// in an expression (value) position. `include` is not legal here.
func (r *Resolver) resolveExpr(e *sexpr.SExpr) ir.Node {
	if e.IsAtom {
		return r.resolveAtom(e)
	}

	if len(e.Children) == 0 {
		r.fail(diag.New(e.Pos, diag.ResolveError, "empty list () is not a valid expression; use (block) for an empty body"))
		return nil
	}

	head, ok := e.HeadWord()
	if !ok {
		r.fail(diag.New(e.Pos, diag.ResolveError, "list head must be a word"))
		return nil
	}

	if fn, isBuiltin := builtins[head]; isBuiltin {
		return fn(r, e)
	}

	switch head {
	case "expand":
		return r.resolveExpandExpr(e)
	case "include":
		r.fail(diag.New(e.Pos, diag.ResolveError, "`include` is only valid as a statement, not inside an expression"))
		return nil
	case "macro", "defun":
		r.fail(diag.New(e.Pos, diag.ResolveError, fmt.Sprintf("`%s` is only valid as a top-level statement", head)))
		return nil
	}

	if kind, exists := r.Env.lookupAnyName(head); exists {
		switch kind {
		case nameMacro:
			r.fail(diag.New(e.Pos, diag.ResolveError, fmt.Sprintf("%q is a macro; invoke it with (expand %s)", head, head)))
		case nameFunction:
			r.fail(diag.New(e.Pos, diag.ResolveError, fmt.Sprintf("%q is a function; invoke it with (call %s ...)", head, head)))
		default:
			r.fail(diag.New(e.Pos, diag.ResolveError, fmt.Sprintf("%q is a %s; access it with getvar/getmem/ptrto", head, kind)))
		}
		return nil
	}

	r.fail(diag.New(e.Pos, diag.ResolveError, fmt.Sprintf("unknown head: %q", head)))
	return nil
}

func (r *Resolver) resolveAtom(e *sexpr.SExpr) ir.Node {
	switch e.AtomKind {
	case sexpr.AtomInt, sexpr.AtomChar:
		return &ir.IntLit{Base: ir.Base{Pos: e.Pos}, Value: e.Int}
	case sexpr.AtomStr:
		return &ir.StrLit{Base: ir.Base{Pos: e.Pos}, Value: e.Str}
	case sexpr.AtomWord:
		r.fail(diag.New(e.Pos, diag.ResolveError,
			fmt.Sprintf("bare word %q is not a value expression; use getvar/getmem/expand/call", e.Word)))
		return nil
	default:
		r.fail(diag.New(e.Pos, diag.ResolveError, "unrecognized atom"))
		return nil
	}
}

// wordArg requires args[idx] to be a bare word atom (a name, not a
// value), per the `(word, ...)` signatures in spec.md Table 1.
func (r *Resolver) wordArg(e *sexpr.SExpr, args []*sexpr.SExpr, idx int, form string) (string, bool) {
	if idx >= len(args) {
		r.fail(diag.New(e.Pos, diag.ResolveError, fmt.Sprintf("%s: expected a name argument", form)))
		return "", false
	}
	a := args[idx]
	if !a.IsAtom || a.AtomKind != sexpr.AtomWord {
		r.fail(diag.New(a.Pos, diag.ResolveError, fmt.Sprintf("%s: argument must be a word, not a value", form)))
		return "", false
	}
	return a.Word, true
}

func (r *Resolver) argCount(e *sexpr.SExpr, args []*sexpr.SExpr, n int, form string) bool {
	if len(args) != n {
		r.fail(diag.New(e.Pos, diag.ResolveError, fmt.Sprintf("%s: expected %d argument(s), got %d", form, n, len(args))))
		return false
	}
	return true
}
