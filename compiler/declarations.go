package compiler

import (
	"fmt"

	"github.com/loisplang/loisp/diag"
	"github.com/loisplang/loisp/ir"
	"github.com/loisplang/loisp/sexpr"
)

// resolveMacroDef installs `(macro NAME body...)`. The body is kept as raw,
// unresolved S-expressions: expansion is structural substitution performed
// fresh at each `(expand NAME)` site, per spec.md §3/§9.
func (r *Resolver) resolveMacroDef(e *sexpr.SExpr) {
	args := e.Args()
	if len(args) < 1 {
		r.fail(diag.New(e.Pos, diag.ResolveError, "macro: expected a name"))
		return
	}
	name, ok := r.wordArg(e, args, 0, "macro")
	if !ok {
		return
	}
	m := &Macro{Name: name, Body: args[1:], DefinedAt: e.Pos}
	if err := r.Env.DefineMacro(m); err != nil {
		r.fail(diag.New(e.Pos, diag.ResolveError, err.Error()))
	}
}

// resolveDefun installs `(defun NAME body...)`. No formal parameter list is
// declared: arguments arrive on the runtime value stack, retrieved by the
// body's top-level `pop` forms. Because forward references are not
// permitted, every name the body refers to is already fully resolved by
// the time this runs.
func (r *Resolver) resolveDefun(e *sexpr.SExpr) {
	args := e.Args()
	if len(args) < 1 {
		r.fail(diag.New(e.Pos, diag.ResolveError, "defun: expected a name"))
		return
	}
	name, ok := r.wordArg(e, args, 0, "defun")
	if !ok {
		return
	}

	label := r.Env.NextLabel("func_" + name)
	body := r.resolveSeq(args[1:])
	if r.errs.HasErrors() {
		return
	}

	returns, hasValue := ir.Integer, false
	if len(body) > 0 {
		returns, hasValue = ir.ResultKind(body[len(body)-1])
	}

	fn := &ir.Function{
		Name:     name,
		Body:     body,
		Label:    label,
		Pos:      e.Pos,
		Returns:  returns,
		HasValue: hasValue,
	}
	if err := r.Env.DefineFunction(fn); err != nil {
		r.fail(diag.New(e.Pos, diag.ResolveError, err.Error()))
	}
}

// resolveIncludeStatement splices a `(include "path")` file's top-level
// forms flatly into the surrounding statement sequence. Repeated inclusion
// of the same canonical path is a no-op, per spec.md §4.3; true cycles
// report an IncludeError.
func (r *Resolver) resolveIncludeStatement(e *sexpr.SExpr) []ir.Node {
	args := e.Args()
	if len(args) != 1 || !args[0].IsAtom || args[0].AtomKind != sexpr.AtomStr {
		r.fail(diag.New(e.Pos, diag.ResolveError, "include: expected a single string path"))
		return nil
	}
	raw := args[0].Str

	path, err := r.inc.resolvePath(raw, r.inc.currentDir())
	if err != nil {
		r.fail(diag.New(e.Pos, diag.IncludeError, err.Error()))
		return nil
	}

	if derr := r.inc.enter(path, e.Pos); derr != nil {
		r.fail(derr)
		return nil
	}
	defer r.inc.leave()

	if already := r.Env.markIncluded(path); already {
		return nil
	}

	exprs, derr := r.inc.load(path)
	if derr != nil {
		r.fail(derr)
		return nil
	}

	return r.resolveSeq(exprs)
}

// resolveExpandStatement splices a statement-position `(expand NAME)`'s
// resolved body flatly into the surrounding sequence.
func (r *Resolver) resolveExpandStatement(e *sexpr.SExpr) []ir.Node {
	body, ok := r.beginExpand(e)
	if !ok {
		return nil
	}
	defer r.macroXp.pop()
	return r.resolveSeq(body)
}

// resolveExpandExpr resolves an expression-position `(expand NAME)` to a
// single node: the lone resolved expression if the macro body has exactly
// one form, or a Block (value = last expression) if it has several.
func (r *Resolver) resolveExpandExpr(e *sexpr.SExpr) ir.Node {
	body, ok := r.beginExpand(e)
	if !ok {
		return nil
	}
	defer r.macroXp.pop()

	resolved := r.resolveSeq(body)
	if r.errs.HasErrors() {
		return nil
	}
	switch len(resolved) {
	case 0:
		r.fail(diag.New(e.Pos, diag.ResolveError, "expand: macro body is empty, not a value"))
		return nil
	case 1:
		return resolved[0]
	default:
		return &ir.Block{Base: ir.Base{Pos: e.Pos}, Exprs: resolved}
	}
}

// beginExpand validates `(expand NAME)`, looks up the macro, and pushes it
// onto the expansion call stack (the caller must pop it). Returns the raw,
// unresolved body to be resolved fresh at this expansion site.
func (r *Resolver) beginExpand(e *sexpr.SExpr) ([]*sexpr.SExpr, bool) {
	args := e.Args()
	if !r.argCount(e, args, 1, "expand") {
		return nil, false
	}
	name, ok := r.wordArg(e, args, 0, "expand")
	if !ok {
		return nil, false
	}
	m, exists := r.Env.LookupMacro(name)
	if !exists {
		r.fail(diag.New(e.Pos, diag.ResolveError, fmt.Sprintf("expand: unknown macro %q", name)))
		return nil, false
	}
	if derr := r.macroXp.push(name, e.Pos); derr != nil {
		r.fail(derr)
		return nil, false
	}
	return m.Body, true
}

// expandMacroBody returns nameExpr's macro body unresolved, for use by
// evalCompileTimeInt. nameExpr must be a bare word atom naming a macro.
func (r *Resolver) expandMacroBody(nameExpr *sexpr.SExpr) ([]*sexpr.SExpr, error) {
	if !nameExpr.IsAtom || nameExpr.AtomKind != sexpr.AtomWord {
		return nil, fmt.Errorf("expand: expected a macro name")
	}
	m, exists := r.Env.LookupMacro(nameExpr.Word)
	if !exists {
		return nil, fmt.Errorf("expand: unknown macro %q", nameExpr.Word)
	}
	if derr := r.macroXp.push(nameExpr.Word, nameExpr.Pos); derr != nil {
		return nil, derr
	}
	defer r.macroXp.pop()
	return m.Body, nil
}
