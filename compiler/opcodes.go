package compiler

import (
	"fmt"

	"github.com/loisplang/loisp/diag"
	"github.com/loisplang/loisp/ir"
	"github.com/loisplang/loisp/sexpr"
)

// builtinFn resolves one recognized head word's argument list into an IR
// node. Registered in the builtins table below.
type builtinFn func(r *Resolver, e *sexpr.SExpr) ir.Node

var binOpHeads = map[string]ir.BinOpKind{
	"+": ir.Add, "-": ir.Sub, "*": ir.Mul, "/": ir.Div, "%": ir.Mod,
	"=": ir.Eq, "!=": ir.Ne, "<": ir.Lt, ">": ir.Gt, "<=": ir.Le, ">=": ir.Ge,
	"<<": ir.Shl, ">>": ir.Shr, "&": ir.And, "|": ir.Or,
}

var loadSizes = map[string]ir.MemSize{
	"load8": ir.Size8, "load16": ir.Size16, "load32": ir.Size32, "load64": ir.Size64,
}

var storeSizes = map[string]ir.MemSize{
	"store8": ir.Size8, "store16": ir.Size16, "store32": ir.Size32, "store64": ir.Size64,
}

var builtins map[string]builtinFn

func init() {
	builtins = make(map[string]builtinFn)

	for head, op := range binOpHeads {
		op := op
		builtins[head] = func(r *Resolver, e *sexpr.SExpr) ir.Node { return r.resolveBinOp(e, op) }
	}
	for head, size := range loadSizes {
		size := size
		builtins[head] = func(r *Resolver, e *sexpr.SExpr) ir.Node { return r.resolveLoad(e, size) }
	}
	for head, size := range storeSizes {
		size := size
		builtins[head] = func(r *Resolver, e *sexpr.SExpr) ir.Node { return r.resolveStore(e, size) }
	}

	builtins["!"] = (*Resolver).resolveNot
	builtins["castint"] = (*Resolver).resolveCastInt
	builtins["castptr"] = (*Resolver).resolveCastPtr
	builtins["print"] = (*Resolver).resolvePrint
	builtins["syscall"] = (*Resolver).resolveSyscall
	builtins["setvar"] = (*Resolver).resolveSetVar
	builtins["chvar"] = (*Resolver).resolveChVar
	builtins["getvar"] = (*Resolver).resolveGetVar
	builtins["ptrto"] = (*Resolver).resolvePtrTo
	builtins["alloc"] = (*Resolver).resolveAlloc
	builtins["getmem"] = (*Resolver).resolveGetMem
	builtins["while"] = (*Resolver).resolveWhile
	builtins["if"] = (*Resolver).resolveIf
	builtins["block"] = (*Resolver).resolveBlock
	builtins["pop"] = (*Resolver).resolvePop
	builtins["call"] = (*Resolver).resolveCall
	builtins["increment"] = (*Resolver).resolveIncrement
	builtins["reset"] = (*Resolver).resolveReset
}

func (r *Resolver) resolveBinOp(e *sexpr.SExpr, op ir.BinOpKind) ir.Node {
	args := e.Args()
	if !r.argCount(e, args, 2, op.String()) {
		return nil
	}
	left := r.resolveExpr(args[0])
	right := r.resolveExpr(args[1])
	if left == nil || right == nil {
		return nil
	}
	return &ir.BinOp{Base: ir.Base{Pos: e.Pos}, Op: op, Left: left, Right: right}
}

func (r *Resolver) resolveNot(e *sexpr.SExpr) ir.Node {
	args := e.Args()
	if !r.argCount(e, args, 1, "!") {
		return nil
	}
	operand := r.resolveExpr(args[0])
	if operand == nil {
		return nil
	}
	return &ir.Not{Base: ir.Base{Pos: e.Pos}, Operand: operand}
}

func (r *Resolver) resolveLoad(e *sexpr.SExpr, size ir.MemSize) ir.Node {
	head, _ := e.HeadWord()
	args := e.Args()
	if !r.argCount(e, args, 1, head) {
		return nil
	}
	addr := r.resolveExpr(args[0])
	if addr == nil {
		return nil
	}
	return &ir.Load{Base: ir.Base{Pos: e.Pos}, Size: size, Addr: addr}
}

func (r *Resolver) resolveStore(e *sexpr.SExpr, size ir.MemSize) ir.Node {
	head, _ := e.HeadWord()
	args := e.Args()
	if !r.argCount(e, args, 2, head) {
		return nil
	}
	addr := r.resolveExpr(args[0])
	val := r.resolveExpr(args[1])
	if addr == nil || val == nil {
		return nil
	}
	return &ir.Store{Base: ir.Base{Pos: e.Pos}, Size: size, Addr: addr, Value: val}
}

func (r *Resolver) resolveCastInt(e *sexpr.SExpr) ir.Node {
	args := e.Args()
	if !r.argCount(e, args, 1, "castint") {
		return nil
	}
	operand := r.resolveExpr(args[0])
	if operand == nil {
		return nil
	}
	return &ir.CastInt{Base: ir.Base{Pos: e.Pos}, Operand: operand}
}

func (r *Resolver) resolveCastPtr(e *sexpr.SExpr) ir.Node {
	args := e.Args()
	if !r.argCount(e, args, 1, "castptr") {
		return nil
	}
	operand := r.resolveExpr(args[0])
	if operand == nil {
		return nil
	}
	return &ir.CastPtr{Base: ir.Base{Pos: e.Pos}, Operand: operand}
}

func (r *Resolver) resolvePrint(e *sexpr.SExpr) ir.Node {
	args := e.Args()
	if !r.argCount(e, args, 1, "print") {
		return nil
	}
	v := r.resolveExpr(args[0])
	if v == nil {
		return nil
	}
	return &ir.Print{Base: ir.Base{Pos: e.Pos}, Value: v}
}

func (r *Resolver) resolveSyscall(e *sexpr.SExpr) ir.Node {
	args := e.Args()
	if len(args) < 1 || len(args) > 7 {
		r.fail(diag.New(e.Pos, diag.ResolveError, "syscall: expected a syscall number and 0-6 arguments"))
		return nil
	}
	number := r.resolveExpr(args[0])
	if number == nil {
		return nil
	}
	var sargs []ir.Node
	for _, a := range args[1:] {
		v := r.resolveExpr(a)
		if v == nil {
			return nil
		}
		sargs = append(sargs, v)
	}
	return &ir.Syscall{Base: ir.Base{Pos: e.Pos}, Number: number, Args: sargs}
}

func (r *Resolver) resolveSetVar(e *sexpr.SExpr) ir.Node {
	args := e.Args()
	if !r.argCount(e, args, 2, "setvar") {
		return nil
	}
	name, ok := r.wordArg(e, args, 0, "setvar")
	if !ok {
		return nil
	}
	initial := r.resolveExpr(args[1])
	if initial == nil {
		return nil
	}
	if _, err := r.Env.DefineVariable(name, ir.Integer, e.Pos); err != nil {
		r.fail(diag.New(e.Pos, diag.ResolveError, err.Error()))
		return nil
	}
	return &ir.SetVar{Base: ir.Base{Pos: e.Pos}, Name: name, Initial: initial}
}

func (r *Resolver) resolveChVar(e *sexpr.SExpr) ir.Node {
	args := e.Args()
	if !r.argCount(e, args, 2, "chvar") {
		return nil
	}
	name, ok := r.wordArg(e, args, 0, "chvar")
	if !ok {
		return nil
	}
	v, exists := r.Env.LookupVariable(name)
	if !exists {
		r.fail(diag.New(e.Pos, diag.ResolveError, fmt.Sprintf("chvar: %q was never setvar'd", name)))
		return nil
	}
	val := r.resolveExpr(args[1])
	if val == nil {
		return nil
	}
	kind, _ := ir.ResultKind(val)
	v.Kind = kind
	return &ir.ChVar{Base: ir.Base{Pos: e.Pos}, Name: name, Value: val, Kind: kind}
}

func (r *Resolver) resolveGetVar(e *sexpr.SExpr) ir.Node {
	args := e.Args()
	if !r.argCount(e, args, 1, "getvar") {
		return nil
	}
	name, ok := r.wordArg(e, args, 0, "getvar")
	if !ok {
		return nil
	}
	v, exists := r.Env.LookupVariable(name)
	if !exists {
		r.fail(diag.New(e.Pos, diag.ResolveError, fmt.Sprintf("getvar: unknown variable %q", name)))
		return nil
	}
	return &ir.GetVar{Base: ir.Base{Pos: e.Pos}, Name: name, Kind: v.Kind}
}

func (r *Resolver) resolvePtrTo(e *sexpr.SExpr) ir.Node {
	args := e.Args()
	if !r.argCount(e, args, 1, "ptrto") {
		return nil
	}
	name, ok := r.wordArg(e, args, 0, "ptrto")
	if !ok {
		return nil
	}
	if _, exists := r.Env.LookupVariable(name); !exists {
		r.fail(diag.New(e.Pos, diag.ResolveError, fmt.Sprintf("ptrto: unknown variable %q", name)))
		return nil
	}
	return &ir.PtrTo{Base: ir.Base{Pos: e.Pos}, Name: name}
}

func (r *Resolver) resolveAlloc(e *sexpr.SExpr) ir.Node {
	args := e.Args()
	if !r.argCount(e, args, 2, "alloc") {
		return nil
	}
	name, ok := r.wordArg(e, args, 0, "alloc")
	if !ok {
		return nil
	}
	size, err := r.evalCompileTimeInt(args[1])
	if err != nil {
		r.fail(diag.New(args[1].Pos, diag.ResolveError, err.Error()))
		return nil
	}
	if size <= 0 {
		r.fail(diag.New(args[1].Pos, diag.ResolveError, "alloc: size must be a positive compile-time integer"))
		return nil
	}
	if _, err := r.Env.DefineAllocation(name, size, e.Pos); err != nil {
		r.fail(diag.New(e.Pos, diag.ResolveError, err.Error()))
		return nil
	}
	return &ir.Alloc{Base: ir.Base{Pos: e.Pos}, Name: name, Size: size}
}

func (r *Resolver) resolveGetMem(e *sexpr.SExpr) ir.Node {
	args := e.Args()
	if !r.argCount(e, args, 1, "getmem") {
		return nil
	}
	name, ok := r.wordArg(e, args, 0, "getmem")
	if !ok {
		return nil
	}
	if _, exists := r.Env.LookupAllocation(name); !exists {
		r.fail(diag.New(e.Pos, diag.ResolveError, fmt.Sprintf("getmem: unknown allocation %q", name)))
		return nil
	}
	return &ir.GetMem{Base: ir.Base{Pos: e.Pos}, Name: name}
}

func (r *Resolver) resolveWhile(e *sexpr.SExpr) ir.Node {
	args := e.Args()
	if len(args) < 1 {
		r.fail(diag.New(e.Pos, diag.ResolveError, "while: expected a condition and a body"))
		return nil
	}
	cond := r.resolveExpr(args[0])
	if cond == nil {
		return nil
	}
	body := r.resolveSeq(args[1:])
	return &ir.While{Base: ir.Base{Pos: e.Pos}, Cond: cond, Body: body}
}

func (r *Resolver) resolveIf(e *sexpr.SExpr) ir.Node {
	args := e.Args()
	if !r.argCount(e, args, 3, "if") {
		return nil
	}
	cond := r.resolveExpr(args[0])
	then := r.resolveExpr(args[1])
	els := r.resolveExpr(args[2])
	if cond == nil || then == nil || els == nil {
		return nil
	}
	return &ir.If{Base: ir.Base{Pos: e.Pos}, Cond: cond, Then: then, Else: els}
}

func (r *Resolver) resolveBlock(e *sexpr.SExpr) ir.Node {
	exprs := r.resolveSeq(e.Args())
	return &ir.Block{Base: ir.Base{Pos: e.Pos}, Exprs: exprs}
}

func (r *Resolver) resolvePop(e *sexpr.SExpr) ir.Node {
	args := e.Args()
	if !r.argCount(e, args, 1, "pop") {
		return nil
	}
	name, ok := r.wordArg(e, args, 0, "pop")
	if !ok {
		return nil
	}
	if _, exists := r.Env.LookupVariable(name); !exists {
		r.fail(diag.New(e.Pos, diag.ResolveError, fmt.Sprintf("pop: %q was never setvar'd", name)))
		return nil
	}
	return &ir.Pop{Base: ir.Base{Pos: e.Pos}, Name: name}
}

func (r *Resolver) resolveCall(e *sexpr.SExpr) ir.Node {
	args := e.Args()
	if len(args) < 1 {
		r.fail(diag.New(e.Pos, diag.ResolveError, "call: expected a function name"))
		return nil
	}
	name, ok := r.wordArg(e, args, 0, "call")
	if !ok {
		return nil
	}
	fn, exists := r.Env.LookupFunction(name)
	if !exists {
		r.fail(diag.New(e.Pos, diag.ResolveError, fmt.Sprintf("call: unknown function %q (forward references are not permitted)", name)))
		return nil
	}

	var callArgs []ir.Node
	for _, a := range args[1:] {
		v := r.resolveExpr(a)
		if v == nil {
			return nil
		}
		callArgs = append(callArgs, v)
	}

	expected := countTopLevelPops(fn.Body)
	if len(callArgs) != expected {
		r.fail(diag.Newf(e.Pos, diag.TypeError,
			"call to %q: expected %d argument(s) (one per top-level `pop`), got %d", name, expected, len(callArgs)))
		return nil
	}

	return &ir.Call{Base: ir.Base{Pos: e.Pos}, FuncName: name, Label: fn.Label, Args: callArgs, Return: fn.Returns, HasValue: fn.HasValue}
}

// countTopLevelPops counts the `pop` statements appearing directly in a
// function body (not nested inside if/while/block), which by convention
// is the number of arguments the function expects — the resolve-time
// arity check spec.md §9's Open Questions calls for.
func countTopLevelPops(body []ir.Node) int {
	n := 0
	for _, node := range body {
		if _, ok := node.(*ir.Pop); ok {
			n++
		}
	}
	return n
}

func (r *Resolver) resolveIncrement(e *sexpr.SExpr) ir.Node {
	args := e.Args()
	if !r.argCount(e, args, 1, "increment") {
		return nil
	}
	n, err := r.evalCompileTimeInt(args[0])
	if err != nil {
		r.fail(diag.New(args[0].Pos, diag.ResolveError, err.Error()))
		return nil
	}
	before := r.Env.Iota
	r.Env.Iota += n
	return &ir.IntLit{Base: ir.Base{Pos: e.Pos}, Value: before}
}

func (r *Resolver) resolveReset(e *sexpr.SExpr) ir.Node {
	args := e.Args()
	if !r.argCount(e, args, 0, "reset") {
		return nil
	}
	before := r.Env.Iota
	r.Env.Iota = 0
	return &ir.IntLit{Base: ir.Base{Pos: e.Pos}, Value: before}
}

// evalCompileTimeInt evaluates a compile-time integer expression: a
// literal, `(expand NAME)` of a macro whose body is itself such an
// expression, or a nested `increment`/`reset`, per spec.md §4.3.
func (r *Resolver) evalCompileTimeInt(e *sexpr.SExpr) (int64, error) {
	if e.IsAtom {
		if e.AtomKind == sexpr.AtomInt || e.AtomKind == sexpr.AtomChar {
			return e.Int, nil
		}
		return 0, fmt.Errorf("not a compile-time integer expression")
	}
	head, ok := e.HeadWord()
	if !ok {
		return 0, fmt.Errorf("not a compile-time integer expression")
	}
	switch head {
	case "expand":
		args := e.Args()
		if len(args) != 1 {
			return 0, fmt.Errorf("expand: expected a macro name")
		}
		body, err := r.expandMacroBody(args[0])
		if err != nil {
			return 0, err
		}
		// Keep the macro on the expansion stack while its body is
		// evaluated, so a self-referential body is caught as recursion.
		if derr := r.macroXp.push(args[0].Word, args[0].Pos); derr != nil {
			return 0, derr
		}
		defer r.macroXp.pop()
		if len(body) != 1 {
			return 0, fmt.Errorf("expand: macro body must be a single compile-time integer expression here")
		}
		return r.evalCompileTimeInt(body[0])
	case "increment":
		args := e.Args()
		if len(args) != 1 {
			return 0, fmt.Errorf("increment: expected one argument")
		}
		n, err := r.evalCompileTimeInt(args[0])
		if err != nil {
			return 0, err
		}
		before := r.Env.Iota
		r.Env.Iota += n
		return before, nil
	case "reset":
		if len(e.Args()) != 0 {
			return 0, fmt.Errorf("reset: expected no arguments")
		}
		before := r.Env.Iota
		r.Env.Iota = 0
		return before, nil
	default:
		return 0, fmt.Errorf("not a compile-time integer expression: (%s ...)", head)
	}
}
