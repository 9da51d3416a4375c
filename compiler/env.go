// Package compiler implements Loisp's resolver: it walks the surface
// S-expression tree and produces typed IR, maintaining the compile-time
// environment described in spec.md §3 — the macro table, function table,
// flat variable/allocation namespace, and the `iota` enumeration counter.
package compiler

import (
	"fmt"

	"github.com/loisplang/loisp/diag"
	"github.com/loisplang/loisp/ir"
)

// nameKind records which namespace a flat-namespace name belongs to, for
// diagnostics on redefinition.
type nameKind int

const (
	nameMacro nameKind = iota
	nameFunction
	nameVariable
	nameAllocation
)

func (k nameKind) String() string {
	switch k {
	case nameMacro:
		return "macro"
	case nameFunction:
		return "function"
	case nameVariable:
		return "variable"
	case nameAllocation:
		return "allocation"
	default:
		return "name"
	}
}

type nameEntry struct {
	kind nameKind
	pos  diag.Position
}

// Variable is a flat, process-wide addressable 8-byte cell, per spec.md §3.
type Variable struct {
	Name string
	Slot int
	Kind ir.ValueKind
}

// Allocation is a sized static buffer placed in uninitialized data.
type Allocation struct {
	Name  string
	Size  int64
	Label string
}

// Env is the single owning structure for compile-time state: mutated only
// by the resolver, read only by the emitter. Grounded on the "single
// owning structure passed by mutable reference through resolution" design
// note in spec.md §9.
type Env struct {
	names map[string]nameEntry

	Macros    map[string]*Macro
	Funcs     map[string]*ir.Function
	funcOrder []string

	Vars     map[string]*Variable
	varOrder []string
	nextSlot int

	Allocs     map[string]*Allocation
	allocOrder []string

	Iota int64

	labelCounter int

	includedFiles map[string]bool
}

// NewEnv creates an empty compile-time environment.
func NewEnv() *Env {
	return &Env{
		names:         make(map[string]nameEntry),
		Macros:        make(map[string]*Macro),
		Funcs:         make(map[string]*ir.Function),
		Vars:          make(map[string]*Variable),
		Allocs:        make(map[string]*Allocation),
		includedFiles: make(map[string]bool),
	}
}

// declare registers name in the shared flat namespace, failing if it is
// already taken by any macro, function, variable, or allocation.
func (e *Env) declare(name string, kind nameKind, pos diag.Position) error {
	if prev, exists := e.names[name]; exists {
		return fmt.Errorf("%q already defined as a %s at %s", name, prev.kind, prev.pos)
	}
	e.names[name] = nameEntry{kind: kind, pos: pos}
	return nil
}

// NextLabel returns a fresh, deterministic, globally unique label with the
// given prefix. Determinism follows from the counter being advanced only
// as the resolver walks the translation unit in source order (spec.md §8
// property 3, §9 "Labels derived from a monotonically increasing counter").
func (e *Env) NextLabel(prefix string) string {
	e.labelCounter++
	return fmt.Sprintf("%s_%d", prefix, e.labelCounter)
}

// DefineVariable installs a new flat-namespace variable with its own slot.
func (e *Env) DefineVariable(name string, kind ir.ValueKind, pos diag.Position) (*Variable, error) {
	if err := e.declare(name, nameVariable, pos); err != nil {
		return nil, err
	}
	v := &Variable{Name: name, Slot: e.nextSlot, Kind: kind}
	e.nextSlot++
	e.Vars[name] = v
	e.varOrder = append(e.varOrder, name)
	return v, nil
}

// LookupVariable finds a previously `setvar`'d variable.
func (e *Env) LookupVariable(name string) (*Variable, bool) {
	v, ok := e.Vars[name]
	return v, ok
}

// OrderedVariables returns variables in declaration order, for deterministic
// BSS layout.
func (e *Env) OrderedVariables() []*Variable {
	out := make([]*Variable, 0, len(e.varOrder))
	for _, name := range e.varOrder {
		out = append(out, e.Vars[name])
	}
	return out
}

// DefineAllocation installs a new named, sized BSS buffer.
func (e *Env) DefineAllocation(name string, size int64, pos diag.Position) (*Allocation, error) {
	if err := e.declare(name, nameAllocation, pos); err != nil {
		return nil, err
	}
	a := &Allocation{Name: name, Size: size, Label: e.NextLabel("alloc")}
	e.Allocs[name] = a
	e.allocOrder = append(e.allocOrder, name)
	return a, nil
}

// LookupAllocation finds a previously `alloc`'d buffer.
func (e *Env) LookupAllocation(name string) (*Allocation, bool) {
	a, ok := e.Allocs[name]
	return a, ok
}

// OrderedAllocations returns allocations in declaration order.
func (e *Env) OrderedAllocations() []*Allocation {
	out := make([]*Allocation, 0, len(e.allocOrder))
	for _, name := range e.allocOrder {
		out = append(out, e.Allocs[name])
	}
	return out
}

// DefineFunction installs a resolved function.
func (e *Env) DefineFunction(fn *ir.Function) error {
	if err := e.declare(fn.Name, nameFunction, fn.Pos); err != nil {
		return err
	}
	e.Funcs[fn.Name] = fn
	e.funcOrder = append(e.funcOrder, fn.Name)
	return nil
}

// OrderedFunctions returns functions in definition order, so the emitter's
// output is a deterministic function of source order (spec.md §8 property
// 3) rather than of Go map iteration.
func (e *Env) OrderedFunctions() []*ir.Function {
	out := make([]*ir.Function, 0, len(e.funcOrder))
	for _, name := range e.funcOrder {
		out = append(out, e.Funcs[name])
	}
	return out
}

// LookupFunction finds a previously `defun`'d function.
func (e *Env) LookupFunction(name string) (*ir.Function, bool) {
	fn, ok := e.Funcs[name]
	return fn, ok
}

// DefineMacro installs a macro body.
func (e *Env) DefineMacro(m *Macro) error {
	if err := e.declare(m.Name, nameMacro, m.DefinedAt); err != nil {
		return err
	}
	e.Macros[m.Name] = m
	return nil
}

// LookupMacro finds a previously `macro`'d definition.
func (e *Env) LookupMacro(name string) (*Macro, bool) {
	m, ok := e.Macros[name]
	return m, ok
}

// lookupAnyName reports which namespace, if any, already claims name — used
// to produce a friendlier diagnostic for an unrecognized head word.
func (e *Env) lookupAnyName(name string) (nameKind, bool) {
	entry, ok := e.names[name]
	return entry.kind, ok
}

// markIncluded records a canonical include path as fully processed, and
// reports whether it had already been seen (making this inclusion a
// no-op per spec.md §4.3).
func (e *Env) markIncluded(canonicalPath string) (alreadyIncluded bool) {
	if e.includedFiles[canonicalPath] {
		return true
	}
	e.includedFiles[canonicalPath] = true
	return false
}
