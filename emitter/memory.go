package emitter

import "github.com/loisplang/loisp/ir"

var sizeSuffix = map[ir.MemSize]string{
	ir.Size8:  "byte",
	ir.Size16: "word",
	ir.Size32: "dword",
	ir.Size64: "qword",
}

func (e *Emitter) emitLoad(l *ir.Load) error {
	if err := e.emitNode(l.Addr); err != nil {
		return err
	}
	e.line("\tpop rax")
	switch l.Size {
	case ir.Size64:
		e.line("\tmov rax, [rax]")
	case ir.Size32:
		e.line("\tmov eax, [rax]") // zero-extends into rax
	case ir.Size16:
		e.line("\tmovzx eax, word [rax]")
	default:
		e.line("\tmovzx eax, byte [rax]")
	}
	e.line("\tpush rax")
	return nil
}

func (e *Emitter) emitStore(s *ir.Store) error {
	if err := e.emitNode(s.Addr); err != nil {
		return err
	}
	if err := e.emitNode(s.Value); err != nil {
		return err
	}
	e.line("\tpop rbx") // value
	e.line("\tpop rax") // address
	e.emitf("\tmov %s [rax], %s", sizeSuffix[s.Size], storeReg(s.Size))
	return nil
}

func storeReg(size ir.MemSize) string {
	switch size {
	case ir.Size8:
		return "bl"
	case ir.Size16:
		return "bx"
	case ir.Size32:
		return "ebx"
	default:
		return "rbx"
	}
}

func (e *Emitter) emitSetVar(s *ir.SetVar) error {
	if err := e.emitNode(s.Initial); err != nil {
		return err
	}
	e.line("\tpop rax")
	e.emitf("\tmov [vars + %d*8], rax", e.vars[s.Name])
	return nil
}

func (e *Emitter) emitChVar(c *ir.ChVar) error {
	if err := e.emitNode(c.Value); err != nil {
		return err
	}
	e.line("\tpop rax")
	e.emitf("\tmov [vars + %d*8], rax", e.vars[c.Name])
	return nil
}

func (e *Emitter) emitGetVar(g *ir.GetVar) error {
	e.emitf("\tmov rax, [vars + %d*8]", e.vars[g.Name])
	e.line("\tpush rax")
	return nil
}

func (e *Emitter) emitPtrTo(p *ir.PtrTo) error {
	e.emitf("\tlea rax, [vars + %d*8]", e.vars[p.Name])
	e.line("\tpush rax")
	return nil
}

func (e *Emitter) emitGetMem(g *ir.GetMem) error {
	e.emitf("\tlea rax, [%s]", e.allocs[g.Name])
	e.line("\tpush rax")
	return nil
}
