package sexpr

import (
	"testing"

	"github.com/loisplang/loisp/lexer"
)

func parse(t *testing.T, src string) []*SExpr {
	t.Helper()
	l := lexer.New(src, "t")
	toks := l.All()
	p := New(toks, l.Errors())
	exprs := p.ParseAll()
	if p.Errors().HasErrors() {
		t.Fatalf("unexpected parse errors: %v", p.Errors())
	}
	return exprs
}

func TestParseAtom(t *testing.T) {
	exprs := parse(t, "42")
	if len(exprs) != 1 || !exprs[0].IsAtom || exprs[0].Int != 42 {
		t.Fatalf("got %+v", exprs)
	}
}

func TestParseNestedList(t *testing.T) {
	exprs := parse(t, "(print (+ 34 35))")
	if len(exprs) != 1 {
		t.Fatalf("expected 1 top-level expr, got %d", len(exprs))
	}
	top := exprs[0]
	head, ok := top.HeadWord()
	if !ok || head != "print" {
		t.Fatalf("head = %v, ok=%v", head, ok)
	}
	args := top.Args()
	if len(args) != 1 {
		t.Fatalf("expected 1 arg, got %d", len(args))
	}
	inner := args[0]
	innerHead, ok := inner.HeadWord()
	if !ok || innerHead != "+" {
		t.Fatalf("inner head = %v", innerHead)
	}
	if len(inner.Args()) != 2 {
		t.Fatalf("expected 2 inner args, got %d", len(inner.Args()))
	}
}

func TestEmptyList(t *testing.T) {
	exprs := parse(t, "()")
	if len(exprs) != 1 || exprs[0].IsAtom || len(exprs[0].Children) != 0 {
		t.Fatalf("got %+v", exprs)
	}
}

func TestUnbalancedParens(t *testing.T) {
	l := lexer.New("(print (+ 1 2)", "t")
	p := New(l.All(), l.Errors())
	p.ParseAll()
	if !p.Errors().HasErrors() {
		t.Fatal("expected unbalanced-paren error")
	}
}

func TestStrayCloseParen(t *testing.T) {
	l := lexer.New(")", "t")
	p := New(l.All(), l.Errors())
	p.ParseAll()
	if !p.Errors().HasErrors() {
		t.Fatal("expected stray ')' error")
	}
}
