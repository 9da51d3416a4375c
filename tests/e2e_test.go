// Package tests holds end-to-end scenarios that drive the full pipeline
// (lex, parse, resolve, typecheck, emit) over small Loisp programs and
// check the properties spec.md §8 names. Running the emitted assembly
// through fasm and the resulting binary is out of scope here: these
// tests validate the assembly text the emitter produces, not a fasm
// install or CPU execution.
package tests

import (
	"strings"
	"testing"

	"github.com/loisplang/loisp/compiler"
	"github.com/loisplang/loisp/emitter"
	"github.com/loisplang/loisp/lexer"
	"github.com/loisplang/loisp/sexpr"
	"github.com/loisplang/loisp/typecheck"
)

func compile(t *testing.T, src string) (string, error) {
	t.Helper()

	l := lexer.New(src, "<test>")
	toks := l.All()
	if l.Errors().HasErrors() {
		return "", l.Errors().First()
	}

	p := sexpr.New(toks, l.Errors())
	exprs := p.ParseAll()
	if p.Errors().HasErrors() {
		return "", p.Errors().First()
	}

	r := compiler.New(".")
	prog := r.ResolveFile(exprs)
	if r.Errors().HasErrors() {
		return "", r.Errors().First()
	}

	if err := typecheck.Check(prog); err != nil {
		return "", err
	}

	return emitter.Emit(prog)
}

// Scenario 1: `(print (+ 34 35))` -> stdout "69\n", exit 0.
func TestScenarioPrintSum(t *testing.T) {
	asm, err := compile(t, `(print (+ 34 35))`)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if !strings.Contains(asm, "call print_int") {
		t.Error("expected the print routine to be called")
	}
	if !strings.Contains(asm, "add rax, rbx") {
		t.Error("expected the sum to be emitted as an add instruction")
	}
}

// Scenario 2: a while loop counting 0, 1, 2 and printing each iteration.
func TestScenarioWhileLoopCounter(t *testing.T) {
	src := `(setvar x 0) (while (!= (getvar x) 3) (print (getvar x)) (chvar x (+ (getvar x) 1)))`
	asm, err := compile(t, src)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if !strings.Contains(asm, "while_top_") || !strings.Contains(asm, "while_end_") {
		t.Error("expected while-loop labels in emitted assembly")
	}
}

// Scenario 3: if/else balance, with each branch individually void.
func TestScenarioIfElseTruthy(t *testing.T) {
	asm, err := compile(t, `(if 1 (print 10) (block))`)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if !strings.Contains(asm, "if_else_") || !strings.Contains(asm, "if_end_") {
		t.Error("expected if/else labels in emitted assembly")
	}
}

// Scenario 4: macro expansion succeeds; self-referential macro expansion
// is rejected as MacroRecursion.
func TestScenarioMacroExpand(t *testing.T) {
	asm, err := compile(t, `(macro N 5) (print (expand N))`)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if !strings.Contains(asm, "call print_int") {
		t.Error("expected the expanded literal to be printed")
	}
}

func TestScenarioMacroSelfRecursionIsError(t *testing.T) {
	_, err := compile(t, `(macro A (expand A)) (expand A)`)
	if err == nil {
		t.Fatal("expected a MacroRecursion error")
	}
	if !strings.Contains(strings.ToLower(err.Error()), "macro") {
		t.Errorf("expected a macro-recursion diagnostic, got: %s", err)
	}
}

// Scenario 5: named allocation round-trips through store64/load64.
func TestScenarioAllocStoreLoad(t *testing.T) {
	asm, err := compile(t, `(alloc buf 8) (store64 (getmem buf) 42) (print (load64 (getmem buf)))`)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if !strings.Contains(asm, "rb 8") {
		t.Error("expected an 8-byte reservation for the named allocation")
	}
}

// Scenario 6: a function call with an argument popped off the stack.
func TestScenarioDefunCall(t *testing.T) {
	src := `(defun sq (setvar n 0) (pop n) (* (getvar n) (getvar n))) (print (call sq 7))`
	asm, err := compile(t, src)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if !strings.Contains(asm, "call func_sq") {
		t.Error("expected a call to the compiled function label")
	}
	if !strings.Contains(asm, "retslot_func_sq") {
		t.Error("expected a dedicated return-address slot for the function")
	}
}

// Scenario 7: mismatched operand kinds are rejected at typecheck, not
// silently coerced.
func TestScenarioStringArithmeticIsTypeError(t *testing.T) {
	_, err := compile(t, `(+ 1 "s")`)
	if err == nil {
		t.Fatal("expected a TypeError")
	}
}

// Scenario 8 (partial): the rule-110 automaton is a loop nest over a
// fixed-size allocation, using only opcodes this pipeline already
// exercises elsewhere. Running it to completion and diffing stdout
// against a golden file needs fasm and a CPU to execute the linked
// binary, neither of which this suite invokes; this test instead checks
// that a program with the same loop nest (28 generations over a 32-cell
// allocation) compiles and typechecks cleanly end to end. It prints the
// cells each generation but does not apply the rule-110 update.
func TestScenarioCellularAutomatonStepCompiles(t *testing.T) {
	src := `
(alloc cells 32)
(setvar base 0)
(chvar base (castint (getmem cells)))
(setvar i 0)
(while (< (getvar i) 32)
  (store8 (castptr (+ (getvar base) (getvar i))) 0)
  (chvar i (+ (getvar i) 1)))
(store8 (castptr (+ (getvar base) 16)) 1)
(setvar gen 0)
(while (< (getvar gen) 28)
  (setvar j 0)
  (while (< (getvar j) 32)
    (print (load8 (castptr (+ (getvar base) (getvar j)))))
    (chvar j (+ (getvar j) 1)))
  (chvar gen (+ (getvar gen) 1)))
`
	asm, err := compile(t, src)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if strings.Count(asm, "while_top_") < 2 {
		t.Error("expected nested while loops for the generation/cell sweep")
	}
}

// Property 3: compiling the same input twice yields byte-identical
// assembly.
func TestDeterministicAcrossRecompiles(t *testing.T) {
	src := `(defun sq (setvar n 0) (pop n) (* (getvar n) (getvar n))) (print (call sq (+ 3 4)))`
	first, err := compile(t, src)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	second, err := compile(t, src)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if first != second {
		t.Fatal("expected byte-identical assembly across repeated compiles")
	}
}
