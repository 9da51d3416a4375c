// Package diag defines the diagnostic types shared by every stage of the
// Loisp compiler: a source position, a typed error, and an accumulating
// error list.
package diag

import (
	"fmt"
	"strings"
)

// Position identifies a location in a source file.
type Position struct {
	File   string
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

// Kind categorizes a diagnostic. These correspond one-to-one with the
// error kinds of spec.md §7.
type Kind int

const (
	LexError Kind = iota
	ParseError
	ResolveError
	MacroRecursion
	TypeError
	IncludeError
	ToolchainError
	IOError
)

var kindNames = map[Kind]string{
	LexError:       "lex error",
	ParseError:     "parse error",
	ResolveError:   "resolve error",
	MacroRecursion: "macro recursion",
	TypeError:      "type error",
	IncludeError:   "include error",
	ToolchainError: "toolchain error",
	IOError:        "io error",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is a single diagnostic with a resolvable source position.
type Error struct {
	Pos     Position
	Kind    Kind
	Message string
}

func New(pos Position, kind Kind, message string) *Error {
	return &Error{Pos: pos, Kind: kind, Message: message}
}

func Newf(pos Position, kind Kind, format string, args ...any) *Error {
	return New(pos, kind, fmt.Sprintf(format, args...))
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Pos, e.Kind, e.Message)
}

// ExitCode maps a diagnostic kind to the process exit code required by
// spec.md §6: 1 for any compilation diagnostic, 2 for toolchain failures.
func (e *Error) ExitCode() int {
	if e.Kind == ToolchainError {
		return 2
	}
	return 1
}

// List accumulates diagnostics across a compile. The compiler is fatal on
// first error per spec.md §7, but lexing and parsing collect a small batch
// before surfacing the first one so diagnostics stay precise.
type List struct {
	Errors []*Error
}

func (l *List) Add(err *Error) {
	l.Errors = append(l.Errors, err)
}

func (l *List) HasErrors() bool {
	return len(l.Errors) > 0
}

func (l *List) First() *Error {
	if len(l.Errors) == 0 {
		return nil
	}
	return l.Errors[0]
}

func (l *List) Error() string {
	var sb strings.Builder
	for _, e := range l.Errors {
		sb.WriteString(e.Error())
		sb.WriteByte('\n')
	}
	return sb.String()
}
