// Package emitter lowers a resolved, type-checked ir.Program into
// flat-assembler (fasm) source for x86-64 Linux, per spec.md §4.5. Every IR
// node's code leaves its result, if any, on top of the machine stack —
// the same stack `call`/`ret` and `push`/`pop` use, so argument passing and
// the runtime value stack share one discipline.
package emitter

import (
	"fmt"
	"strings"

	"github.com/loisplang/loisp/ir"
)

// Emitter accumulates generated assembly text across one compile.
type Emitter struct {
	text strings.Builder

	strLabels map[string]string // literal value -> label, first-use order
	strPool   []stringEntry

	vars   map[string]int    // variable name -> BSS slot index
	allocs map[string]string // allocation name -> data label

	labelCounter int
}

type stringEntry struct {
	Label string
	Value string
}

// New creates an Emitter ready to emit prog.
func New() *Emitter {
	return &Emitter{
		strLabels: make(map[string]string),
		vars:      make(map[string]int),
		allocs:    make(map[string]string),
	}
}

// Emit lowers prog to a complete fasm source file.
func Emit(prog *ir.Program) (string, error) {
	e := New()
	return e.emitProgram(prog)
}

func (e *Emitter) nextLabel(prefix string) string {
	e.labelCounter++
	return fmt.Sprintf("%s_%d", prefix, e.labelCounter)
}

func (e *Emitter) emitProgram(prog *ir.Program) (string, error) {
	for _, v := range prog.Vars {
		e.vars[v.Name] = v.Slot
	}
	for _, a := range prog.Allocs {
		e.allocs[a.Name] = a.Label
	}

	e.line("format ELF64 executable 3")
	e.line("entry _start")
	e.line("")
	e.line("segment readable executable")
	e.line("_start:")
	if err := e.emitSeq(prog.TopLevel); err != nil {
		return "", err
	}
	e.line("\tmov rax, 60")
	e.line("\txor rdi, rdi")
	e.line("\tsyscall")
	e.line("")

	for _, fn := range prog.Functions {
		if err := e.emitFunction(fn); err != nil {
			return "", err
		}
	}

	e.emitPrintRoutine()

	e.line("")
	e.line("segment readable writable")
	e.emitDataSection(prog)

	return e.text.String(), nil
}

func (e *Emitter) line(s string) {
	e.text.WriteString(s)
	e.text.WriteByte('\n')
}

func (e *Emitter) emitf(format string, args ...any) {
	e.line(fmt.Sprintf(format, args...))
}

// emitDataSection lays out variables, allocations, return-address slots,
// and the string pool — all insertion-ordered so label assignment is a
// deterministic function of source order (spec.md §8 property 3).
func (e *Emitter) emitDataSection(prog *ir.Program) {
	if len(prog.Vars) > 0 {
		e.emitf("vars: rq %d", len(prog.Vars))
	} else {
		e.line("vars: rq 1")
	}

	for _, a := range prog.Allocs {
		e.emitf("%s: rb %d", a.Label, a.Size)
	}

	for _, fn := range prog.Functions {
		e.emitf("%s: rq 1", retSlotLabel(fn.Label))
	}

	e.line("print_buf: rb 32")

	for _, s := range e.strPool {
		e.emitf("%s: db %s, 0", s.Label, fasmStringLiteral(s.Value))
	}
}

func retSlotLabel(funcLabel string) string {
	return "retslot_" + funcLabel
}

// stringLabel returns the pool label for value, interning it on first use.
func (e *Emitter) stringLabel(value string) string {
	if label, ok := e.strLabels[value]; ok {
		return label
	}
	label := e.nextLabel("str")
	e.strLabels[value] = label
	e.strPool = append(e.strPool, stringEntry{Label: label, Value: value})
	return label
}

// fasmStringLiteral renders a Go string as a fasm byte-list literal,
// escaping characters that can't appear inside a quoted fasm string.
func fasmStringLiteral(s string) string {
	var parts []string
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			parts = append(parts, "'"+lit.String()+"'")
			lit.Reset()
		}
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\'' {
			flush()
			parts = append(parts, "39")
			continue
		}
		if c < 0x20 || c > 0x7e {
			flush()
			parts = append(parts, fmt.Sprintf("%d", c))
			continue
		}
		lit.WriteByte(c)
	}
	flush()
	if len(parts) == 0 {
		return "''"
	}
	return strings.Join(parts, ", ")
}
