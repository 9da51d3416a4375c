package emitter

import (
	"fmt"

	"github.com/loisplang/loisp/ir"
)

// emitSeq emits a statement sequence (top level, block, function, or
// while body) in order.
func (e *Emitter) emitSeq(nodes []ir.Node) error {
	for _, n := range nodes {
		if err := e.emitNode(n); err != nil {
			return err
		}
	}
	return nil
}

// emitNode dispatches a single IR node to its code generator. Every case
// leaves the node's result, if it has one, on top of the machine stack.
func (e *Emitter) emitNode(n ir.Node) error {
	switch v := n.(type) {
	case *ir.IntLit:
		e.emitf("\tmov rax, %d", v.Value)
		e.line("\tpush rax")
		return nil
	case *ir.StrLit:
		label := e.stringLabel(v.Value)
		e.emitf("\tlea rax, [%s]", label)
		e.line("\tpush rax")
		return nil
	case *ir.BinOp:
		return e.emitBinOp(v)
	case *ir.Not:
		return e.emitNot(v)
	case *ir.Load:
		return e.emitLoad(v)
	case *ir.Store:
		return e.emitStore(v)
	case *ir.CastInt, *ir.CastPtr:
		return e.emitCast(n)
	case *ir.Print:
		return e.emitPrint(v)
	case *ir.Syscall:
		return e.emitSyscall(v)
	case *ir.SetVar:
		return e.emitSetVar(v)
	case *ir.ChVar:
		return e.emitChVar(v)
	case *ir.GetVar:
		return e.emitGetVar(v)
	case *ir.PtrTo:
		return e.emitPtrTo(v)
	case *ir.Alloc:
		return nil // declaration only; space reserved in the data section
	case *ir.GetMem:
		return e.emitGetMem(v)
	case *ir.While:
		return e.emitWhile(v)
	case *ir.If:
		return e.emitIf(v)
	case *ir.Block:
		return e.emitSeq(v.Exprs)
	case *ir.Pop:
		return e.emitPop(v)
	case *ir.Call:
		return e.emitCall(v)
	default:
		return fmt.Errorf("emitter: unhandled node %T", n)
	}
}

func (e *Emitter) emitCast(n ir.Node) error {
	switch v := n.(type) {
	case *ir.CastInt:
		return e.emitNode(v.Operand)
	case *ir.CastPtr:
		return e.emitNode(v.Operand)
	}
	return nil
}

func (e *Emitter) emitWhile(w *ir.While) error {
	top := e.nextLabel("while_top")
	end := e.nextLabel("while_end")

	e.emitf("%s:", top)
	if err := e.emitNode(w.Cond); err != nil {
		return err
	}
	e.line("\tpop rax")
	e.line("\ttest rax, rax")
	e.emitf("\tjz %s", end)
	if err := e.emitSeq(w.Body); err != nil {
		return err
	}
	e.emitf("\tjmp %s", top)
	e.emitf("%s:", end)
	return nil
}

func (e *Emitter) emitIf(f *ir.If) error {
	elseLabel := e.nextLabel("if_else")
	endLabel := e.nextLabel("if_end")

	if err := e.emitNode(f.Cond); err != nil {
		return err
	}
	e.line("\tpop rax")
	e.line("\ttest rax, rax")
	e.emitf("\tjz %s", elseLabel)
	if err := e.emitNode(f.Then); err != nil {
		return err
	}
	e.emitf("\tjmp %s", endLabel)
	e.emitf("%s:", elseLabel)
	if err := e.emitNode(f.Else); err != nil {
		return err
	}
	e.emitf("%s:", endLabel)
	return nil
}

func (e *Emitter) emitPop(p *ir.Pop) error {
	e.line("\tpop rax")
	e.emitf("\tmov [vars + %d*8], rax", e.vars[p.Name])
	return nil
}
