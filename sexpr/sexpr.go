// Package sexpr assembles a Lexer's token stream into S-expression trees:
// atoms (word, integer, string, character) and lists, whose first child is
// the list's head and the rest its arguments.
package sexpr

import (
	"github.com/loisplang/loisp/diag"
	"github.com/loisplang/loisp/lexer"
)

// AtomKind distinguishes the four atom varieties.
type AtomKind int

const (
	AtomWord AtomKind = iota
	AtomInt
	AtomStr
	AtomChar
)

// SExpr is either an atom (IsAtom true, Children nil) or a list (IsAtom
// false). The empty list `()` is a list whose Children is nil.
type SExpr struct {
	IsAtom bool
	Pos    diag.Position

	// Atom fields.
	AtomKind AtomKind
	Word     string
	Int      int64
	Str      string

	// List fields. Children[0] is the head when len(Children) > 0.
	Children []*SExpr
}

// Head returns the list's head expression, or nil for an empty list or an
// atom.
func (e *SExpr) Head() *SExpr {
	if e.IsAtom || len(e.Children) == 0 {
		return nil
	}
	return e.Children[0]
}

// Args returns the list's argument expressions (everything after the
// head), or nil for an atom.
func (e *SExpr) Args() []*SExpr {
	if e.IsAtom || len(e.Children) == 0 {
		return nil
	}
	return e.Children[1:]
}

// HeadWord returns the head's word text and true, if the expression is a
// non-empty list whose head is a word atom.
func (e *SExpr) HeadWord() (string, bool) {
	h := e.Head()
	if h == nil || !h.IsAtom || h.AtomKind != AtomWord {
		return "", false
	}
	return h.Word, true
}

// Parser builds SExpr trees from a token stream, one list-nesting level at
// a time.
type Parser struct {
	tokens []lexer.Token
	pos    int
	errs   diag.List
}

// New creates a Parser over the full token stream (including the lexer's
// own diagnostics merged in).
func New(toks []lexer.Token, lexErrs *diag.List) *Parser {
	p := &Parser{tokens: toks}
	if lexErrs != nil {
		p.errs.Errors = append(p.errs.Errors, lexErrs.Errors...)
	}
	return p
}

func (p *Parser) peek() lexer.Token {
	if p.pos >= len(p.tokens) {
		return lexer.Token{Kind: lexer.EOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) advance() lexer.Token {
	t := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return t
}

// Errors returns the diagnostics accumulated while parsing (including any
// merged lexer diagnostics).
func (p *Parser) Errors() *diag.List {
	return &p.errs
}

// ParseAll parses every top-level expression in the token stream.
func (p *Parser) ParseAll() []*SExpr {
	var exprs []*SExpr
	for p.peek().Kind != lexer.EOF {
		e := p.parseExpr()
		if e != nil {
			exprs = append(exprs, e)
		}
	}
	return exprs
}

func (p *Parser) parseExpr() *SExpr {
	tok := p.peek()
	switch tok.Kind {
	case lexer.OpenParen:
		return p.parseList()
	case lexer.Word:
		p.advance()
		return &SExpr{IsAtom: true, AtomKind: AtomWord, Word: tok.Lexeme, Pos: tok.Pos}
	case lexer.Int:
		p.advance()
		return &SExpr{IsAtom: true, AtomKind: AtomInt, Int: tok.IntVal, Pos: tok.Pos}
	case lexer.Str:
		p.advance()
		return &SExpr{IsAtom: true, AtomKind: AtomStr, Str: tok.StrVal, Pos: tok.Pos}
	case lexer.Char:
		p.advance()
		return &SExpr{IsAtom: true, AtomKind: AtomChar, Int: tok.IntVal, Pos: tok.Pos}
	case lexer.CloseParen:
		p.errs.Add(diag.New(tok.Pos, diag.ParseError, "unexpected ')'"))
		p.advance()
		return nil
	default:
		p.errs.Add(diag.New(tok.Pos, diag.ParseError, "unexpected end of input"))
		return nil
	}
}

func (p *Parser) parseList() *SExpr {
	open := p.advance() // consume '('
	list := &SExpr{Pos: open.Pos}
	for {
		switch p.peek().Kind {
		case lexer.CloseParen:
			p.advance()
			return list
		case lexer.EOF:
			p.errs.Add(diag.New(open.Pos, diag.ParseError, "unbalanced parentheses: '(' never closed"))
			return list
		default:
			child := p.parseExpr()
			if child != nil {
				list.Children = append(list.Children, child)
			}
		}
	}
}
