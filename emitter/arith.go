package emitter

import "github.com/loisplang/loisp/ir"

func (e *Emitter) emitBinOp(b *ir.BinOp) error {
	if err := e.emitNode(b.Left); err != nil {
		return err
	}
	if err := e.emitNode(b.Right); err != nil {
		return err
	}
	e.line("\tpop rbx") // right
	e.line("\tpop rax") // left

	switch b.Op {
	case ir.Add:
		e.line("\tadd rax, rbx")
	case ir.Sub:
		e.line("\tsub rax, rbx")
	case ir.Mul:
		e.line("\timul rax, rbx")
	case ir.Div:
		e.line("\tcqo")
		e.line("\tidiv rbx")
	case ir.Mod:
		e.line("\tcqo")
		e.line("\tidiv rbx")
		e.line("\tmov rax, rdx")
	case ir.Shl:
		e.line("\tmov rcx, rbx")
		e.line("\tshl rax, cl")
	case ir.Shr:
		e.line("\tmov rcx, rbx")
		e.line("\tsar rax, cl")
	case ir.And:
		e.line("\tand rax, rbx")
	case ir.Or:
		e.line("\tor rax, rbx")
	case ir.Eq, ir.Ne, ir.Lt, ir.Gt, ir.Le, ir.Ge:
		e.line("\tcmp rax, rbx")
		e.emitf("\t%s al", setccFor(b.Op))
		e.line("\tmovzx rax, al")
	}

	e.line("\tpush rax")
	return nil
}

func setccFor(op ir.BinOpKind) string {
	switch op {
	case ir.Eq:
		return "sete"
	case ir.Ne:
		return "setne"
	case ir.Lt:
		return "setl"
	case ir.Gt:
		return "setg"
	case ir.Le:
		return "setle"
	default: // Ge
		return "setge"
	}
}

func (e *Emitter) emitNot(n *ir.Not) error {
	if err := e.emitNode(n.Operand); err != nil {
		return err
	}
	e.line("\tpop rax")
	e.line("\ttest rax, rax")
	e.line("\tsete al")
	e.line("\tmovzx rax, al")
	e.line("\tpush rax")
	return nil
}
