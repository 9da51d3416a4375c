package compiler

import (
	"testing"

	"github.com/loisplang/loisp/diag"
	"github.com/loisplang/loisp/ir"
	"github.com/loisplang/loisp/lexer"
	"github.com/loisplang/loisp/sexpr"
)

func resolveSource(t *testing.T, src string) (*ir.Program, *diag.List) {
	t.Helper()
	l := lexer.New(src, "test.loisp")
	toks := l.All()
	p := sexpr.New(toks, l.Errors())
	exprs := p.ParseAll()
	r := New(".")
	prog := r.ResolveFile(exprs)
	errs := diag.List{}
	errs.Errors = append(errs.Errors, p.Errors().Errors...)
	errs.Errors = append(errs.Errors, r.Errors().Errors...)
	return prog, &errs
}

func mustResolve(t *testing.T, src string) *ir.Program {
	t.Helper()
	prog, errs := resolveSource(t, src)
	if errs.HasErrors() {
		t.Fatalf("unexpected resolve errors for %q: %s", src, errs.Error())
	}
	return prog
}

func TestResolvePrintSum(t *testing.T) {
	prog := mustResolve(t, `(print (+ 34 35))`)
	if len(prog.TopLevel) != 1 {
		t.Fatalf("expected 1 top-level node, got %d", len(prog.TopLevel))
	}
	print, ok := prog.TopLevel[0].(*ir.Print)
	if !ok {
		t.Fatalf("expected *ir.Print, got %T", prog.TopLevel[0])
	}
	bin, ok := print.Value.(*ir.BinOp)
	if !ok || bin.Op != ir.Add {
		t.Fatalf("expected addition, got %#v", print.Value)
	}
}

func TestResolveWhileLoop(t *testing.T) {
	prog := mustResolve(t, `(setvar x 0) (while (!= (getvar x) 3) (print (getvar x)) (chvar x (+ (getvar x) 1)))`)
	if len(prog.TopLevel) != 2 {
		t.Fatalf("expected 2 top-level nodes, got %d", len(prog.TopLevel))
	}
	wh, ok := prog.TopLevel[1].(*ir.While)
	if !ok {
		t.Fatalf("expected *ir.While, got %T", prog.TopLevel[1])
	}
	if len(wh.Body) != 2 {
		t.Fatalf("expected 2 body statements, got %d", len(wh.Body))
	}
}

func TestResolveIfElse(t *testing.T) {
	prog := mustResolve(t, `(if 1 (print 10) (block))`)
	ifNode, ok := prog.TopLevel[0].(*ir.If)
	if !ok {
		t.Fatalf("expected *ir.If, got %T", prog.TopLevel[0])
	}
	if _, ok := ifNode.Then.(*ir.Print); !ok {
		t.Fatalf("expected Then to be Print, got %T", ifNode.Then)
	}
	if _, ok := ifNode.Else.(*ir.Block); !ok {
		t.Fatalf("expected Else to be Block, got %T", ifNode.Else)
	}
}

func TestMacroExpand(t *testing.T) {
	prog := mustResolve(t, `(macro N 5) (print (expand N))`)
	print, ok := prog.TopLevel[0].(*ir.Print)
	if !ok {
		t.Fatalf("expected *ir.Print, got %T", prog.TopLevel[0])
	}
	lit, ok := print.Value.(*ir.IntLit)
	if !ok || lit.Value != 5 {
		t.Fatalf("expected IntLit(5), got %#v", print.Value)
	}
}

func TestMacroRecursionError(t *testing.T) {
	_, errs := resolveSource(t, `(macro A (expand A)) (expand A)`)
	if !errs.HasErrors() {
		t.Fatal("expected a MacroRecursion error")
	}
	if errs.First().Kind != diag.MacroRecursion {
		t.Fatalf("expected MacroRecursion, got %s", errs.First().Kind)
	}
}

func TestAllocStoreLoad(t *testing.T) {
	prog := mustResolve(t, `(alloc buf 8) (store64 (getmem buf) 42) (print (load64 (getmem buf)))`)
	if len(prog.TopLevel) != 3 {
		t.Fatalf("expected 3 top-level nodes, got %d", len(prog.TopLevel))
	}
	if _, ok := prog.TopLevel[0].(*ir.Alloc); !ok {
		t.Fatalf("expected *ir.Alloc, got %T", prog.TopLevel[0])
	}
	store, ok := prog.TopLevel[1].(*ir.Store)
	if !ok || store.Size != ir.Size64 {
		t.Fatalf("expected 64-bit store, got %#v", prog.TopLevel[1])
	}
}

func TestDefunCall(t *testing.T) {
	prog := mustResolve(t, `(defun sq (setvar n 0) (pop n) (* (getvar n) (getvar n))) (print (call sq 7))`)
	if len(prog.Functions) != 1 {
		t.Fatalf("expected 1 function, got %d", len(prog.Functions))
	}
	fn := prog.Functions[0]
	if fn.Name != "sq" || fn.Returns != ir.Integer || !fn.HasValue {
		t.Fatalf("unexpected function shape: %#v", fn)
	}
	print, ok := prog.TopLevel[0].(*ir.Print)
	if !ok {
		t.Fatalf("expected *ir.Print, got %T", prog.TopLevel[0])
	}
	call, ok := print.Value.(*ir.Call)
	if !ok || call.FuncName != "sq" || len(call.Args) != 1 {
		t.Fatalf("unexpected call shape: %#v", print.Value)
	}
}

func TestCallArityMismatchIsTypeError(t *testing.T) {
	_, errs := resolveSource(t, `(defun sq (setvar n 0) (pop n) (* (getvar n) (getvar n))) (print (call sq 7 8))`)
	if !errs.HasErrors() {
		t.Fatal("expected an arity TypeError")
	}
	if errs.First().Kind != diag.TypeError {
		t.Fatalf("expected TypeError, got %s", errs.First().Kind)
	}
}

func TestForwardReferenceToFunctionIsError(t *testing.T) {
	_, errs := resolveSource(t, `(print (call late)) (defun late (setvar n 0) (pop n) (getvar n))`)
	if !errs.HasErrors() {
		t.Fatal("expected a resolve error for the forward reference")
	}
}

func TestChvarUnknownVariableIsError(t *testing.T) {
	_, errs := resolveSource(t, `(chvar missing 1)`)
	if !errs.HasErrors() {
		t.Fatal("expected a resolve error")
	}
}

func TestRedefinitionAcrossNamespacesIsError(t *testing.T) {
	_, errs := resolveSource(t, `(setvar x 0) (alloc x 8)`)
	if !errs.HasErrors() {
		t.Fatal("expected a redefinition error")
	}
}

func TestSetLimitsTightensMacroDepth(t *testing.T) {
	l := lexer.New(`(macro A 1) (macro B (expand A)) (macro C (expand B)) (expand C)`, "test.loisp")
	toks := l.All()
	p := sexpr.New(toks, l.Errors())
	exprs := p.ParseAll()
	r := New(".")
	r.SetLimits(0, 2) // only two nested expansions allowed
	r.ResolveFile(exprs)
	if !r.Errors().HasErrors() {
		t.Fatal("expected a MacroRecursion error from the tightened depth bound")
	}
	if r.Errors().First().Kind != diag.MacroRecursion {
		t.Fatalf("expected MacroRecursion, got %s", r.Errors().First().Kind)
	}
}

func TestResolvedNodePositionMatchesSourceLine(t *testing.T) {
	src := "(setvar x 0)\n(print\n  (+ (getvar x)\n     2))\n"
	prog := mustResolve(t, src)
	print, ok := prog.TopLevel[1].(*ir.Print)
	if !ok {
		t.Fatalf("expected *ir.Print, got %T", prog.TopLevel[1])
	}
	if print.Position().Line != 2 {
		t.Errorf("print.Position().Line = %d, want 2 (the line `(print` opens on)", print.Position().Line)
	}
	bin, ok := print.Value.(*ir.BinOp)
	if !ok {
		t.Fatalf("expected *ir.BinOp, got %T", print.Value)
	}
	if bin.Position().Line != 3 {
		t.Errorf("bin.Position().Line = %d, want 3 (the line `(+ (getvar x)` opens on)", bin.Position().Line)
	}
	if bin.Right.Position().Line != 4 {
		t.Errorf("bin.Right.Position().Line = %d, want 4 (the line the literal 2 appears on)", bin.Right.Position().Line)
	}
}

func TestIncrementAndReset(t *testing.T) {
	prog := mustResolve(t, `(print (increment 1)) (print (increment 1)) (print (reset))`)
	want := []int64{0, 1, 2}
	for i, n := range prog.TopLevel {
		p := n.(*ir.Print)
		lit := p.Value.(*ir.IntLit)
		if lit.Value != want[i] {
			t.Fatalf("print %d: expected %d, got %d", i, want[i], lit.Value)
		}
	}
}
