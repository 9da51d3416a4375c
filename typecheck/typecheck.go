// Package typecheck verifies a resolved ir.Program against the operand
// and result kind signatures of spec.md §4.3's Table 1, simulating the
// runtime value stack the emitter will later generate code for.
package typecheck

import (
	"github.com/loisplang/loisp/diag"
	"github.com/loisplang/loisp/ir"
)

// Check verifies prog's top-level sequence and every function body,
// returning the first TypeError (or other diagnostic) encountered. A nil
// return means prog is well-typed.
func Check(prog *ir.Program) *diag.Error {
	c := &checker{}
	if _, _, err := c.checkSeq(prog.TopLevel); err != nil {
		return err
	}
	for _, fn := range prog.Functions {
		if _, _, err := c.checkSeq(fn.Body); err != nil {
			return err
		}
	}
	return nil
}

type checker struct{}

// checkSeq verifies a statement sequence (a translation unit's top level,
// a block body, or a function body): every statement but the last must be
// void, since nothing in the language discards a value mid-sequence. The
// sequence's own result is that of its last statement (or void, if empty).
func (c *checker) checkSeq(nodes []ir.Node) (ir.ValueKind, bool, *diag.Error) {
	for i, n := range nodes {
		kind, hasValue, err := c.infer(n)
		if err != nil {
			return 0, false, err
		}
		if i < len(nodes)-1 && hasValue {
			return 0, false, diag.Newf(n.Position(), diag.TypeError,
				"statement leaves an unconsumed %s value on the stack", kind)
		}
		if i == len(nodes)-1 {
			return kind, hasValue, nil
		}
	}
	return ir.Integer, false, nil
}

// checkVoidSeq verifies a sequence where EVERY statement must be void,
// including the last — used for `while` bodies, since a value leaked on
// the last statement of a loop body would grow the stack every iteration.
func (c *checker) checkVoidSeq(nodes []ir.Node) *diag.Error {
	for _, n := range nodes {
		kind, hasValue, err := c.infer(n)
		if err != nil {
			return err
		}
		if hasValue {
			return diag.Newf(n.Position(), diag.TypeError,
				"while body leaves an unconsumed %s value on the stack each iteration", kind)
		}
	}
	return nil
}

// checkVoid verifies that n produces no value, for positions where nothing
// would ever consume one (`if`'s branches).
func (c *checker) checkVoid(n ir.Node) *diag.Error {
	kind, hasValue, err := c.infer(n)
	if err != nil {
		return err
	}
	if hasValue {
		return diag.Newf(n.Position(), diag.TypeError, "expected no value here, got %s", kind)
	}
	return nil
}

// checkKind verifies that n produces exactly want.
func (c *checker) checkKind(n ir.Node, want ir.ValueKind, form string) *diag.Error {
	kind, hasValue, err := c.infer(n)
	if err != nil {
		return err
	}
	if !hasValue {
		return diag.Newf(n.Position(), diag.TypeError, "%s: expected a %s value, got none", form, want)
	}
	if kind != want {
		return diag.Newf(n.Position(), diag.TypeError, "%s: expected %s, got %s", form, want, kind)
	}
	return nil
}

// infer recursively verifies n's operands against Table 1 and returns n's
// own result kind (and whether it has one at all).
func (c *checker) infer(n ir.Node) (ir.ValueKind, bool, *diag.Error) {
	switch v := n.(type) {
	case *ir.IntLit:
		return ir.Integer, true, nil
	case *ir.StrLit:
		return ir.String, true, nil

	case *ir.BinOp:
		if err := c.checkKind(v.Left, ir.Integer, v.Op.String()); err != nil {
			return 0, false, err
		}
		if err := c.checkKind(v.Right, ir.Integer, v.Op.String()); err != nil {
			return 0, false, err
		}
		return ir.Integer, true, nil

	case *ir.Not:
		if err := c.checkKind(v.Operand, ir.Integer, "!"); err != nil {
			return 0, false, err
		}
		return ir.Integer, true, nil

	case *ir.Load:
		if err := c.checkKind(v.Addr, ir.Pointer, "load"); err != nil {
			return 0, false, err
		}
		return ir.Integer, true, nil

	case *ir.Store:
		if err := c.checkKind(v.Addr, ir.Pointer, "store"); err != nil {
			return 0, false, err
		}
		if err := c.checkKind(v.Value, ir.Integer, "store"); err != nil {
			return 0, false, err
		}
		return ir.Integer, false, nil

	case *ir.CastInt:
		if _, _, err := c.infer(v.Operand); err != nil {
			return 0, false, err
		}
		return ir.Integer, true, nil

	case *ir.CastPtr:
		if _, _, err := c.infer(v.Operand); err != nil {
			return 0, false, err
		}
		return ir.Pointer, true, nil

	case *ir.Print:
		if err := c.checkKind(v.Value, ir.Integer, "print"); err != nil {
			return 0, false, err
		}
		return ir.Integer, false, nil

	case *ir.Syscall:
		if err := c.checkKind(v.Number, ir.Integer, "syscall"); err != nil {
			return 0, false, err
		}
		if len(v.Args) > 6 {
			return 0, false, diag.Newf(v.Position(), diag.TypeError,
				"syscall: at most 6 arguments, got %d", len(v.Args))
		}
		for _, a := range v.Args {
			if err := c.checkKind(a, ir.Integer, "syscall"); err != nil {
				return 0, false, err
			}
		}
		return ir.Integer, true, nil

	case *ir.SetVar:
		if err := c.checkKind(v.Initial, ir.Integer, "setvar"); err != nil {
			return 0, false, err
		}
		return ir.Integer, false, nil

	case *ir.ChVar:
		if _, _, err := c.infer(v.Value); err != nil {
			return 0, false, err
		}
		return ir.Integer, false, nil

	case *ir.GetVar:
		return v.Kind, true, nil

	case *ir.PtrTo:
		return ir.Pointer, true, nil

	case *ir.Alloc:
		return ir.Integer, false, nil

	case *ir.GetMem:
		return ir.Pointer, true, nil

	case *ir.While:
		if err := c.checkKind(v.Cond, ir.Integer, "while"); err != nil {
			return 0, false, err
		}
		if err := c.checkVoidSeq(v.Body); err != nil {
			return 0, false, err
		}
		return ir.Integer, false, nil

	case *ir.If:
		if err := c.checkKind(v.Cond, ir.Integer, "if"); err != nil {
			return 0, false, err
		}
		if err := c.checkVoid(v.Then); err != nil {
			return 0, false, err
		}
		if err := c.checkVoid(v.Else); err != nil {
			return 0, false, err
		}
		return ir.Integer, false, nil

	case *ir.Block:
		return c.checkSeq(v.Exprs)

	case *ir.Pop:
		// The value a pop consumes arrives from the caller's pushed
		// arguments, outside this function's own IR tree; arity between
		// a call site and its callee's top-level pops is enforced at
		// resolve time (see compiler.countTopLevelPops).
		return ir.Integer, false, nil

	case *ir.Call:
		for _, a := range v.Args {
			if _, _, err := c.infer(a); err != nil {
				return 0, false, err
			}
		}
		return v.Return, v.HasValue, nil

	default:
		return 0, false, diag.Newf(n.Position(), diag.TypeError, "typecheck: unhandled node %T", n)
	}
}
