package emitter

import "github.com/loisplang/loisp/ir"

// emitFunction emits a function's prologue, body, and epilogue. The
// prologue immediately relocates the return address `call` pushed into a
// dedicated static slot, since the callee's `pop` statements must see its
// pushed arguments — not that return address — on top of the stack. The
// epilogue restores it and returns. Per spec.md §9, this is why the
// calling convention cannot rely on a bare call/ret pair.
func (e *Emitter) emitFunction(fn *ir.Function) error {
	slot := retSlotLabel(fn.Label)
	e.emitf("%s:", fn.Label)
	e.emitf("\tpop qword [%s]", slot)
	if err := e.emitSeq(fn.Body); err != nil {
		return err
	}
	e.emitf("\tpush qword [%s]", slot)
	e.line("\tret")
	e.line("")
	return nil
}

// emitCall pushes each argument in order, then calls the callee's label.
// `call` pushes the return address on top of the just-pushed arguments;
// the callee's own prologue is what relocates it out of the way.
func (e *Emitter) emitCall(c *ir.Call) error {
	for _, a := range c.Args {
		if err := e.emitNode(a); err != nil {
			return err
		}
	}
	e.emitf("\tcall %s", c.Label)
	return nil
}

// emitPrint formats Value as a signed decimal integer followed by a
// newline and writes it to stdout via a shared built-in routine.
func (e *Emitter) emitPrint(p *ir.Print) error {
	if err := e.emitNode(p.Value); err != nil {
		return err
	}
	e.line("\tpop rdi")
	e.line("\tcall print_int")
	return nil
}

// emitSyscall moves the syscall number and up to six arguments into the
// SysV syscall registers and issues `syscall`. Args were pushed in order,
// so the last argument is on top; pop in reverse to restore positional
// order, then the number underneath everything.
func (e *Emitter) emitSyscall(s *ir.Syscall) error {
	if err := e.emitNode(s.Number); err != nil {
		return err
	}
	for _, a := range s.Args {
		if err := e.emitNode(a); err != nil {
			return err
		}
	}

	regs := []string{"rdi", "rsi", "rdx", "r10", "r8", "r9"}
	for i := len(s.Args) - 1; i >= 0; i-- {
		e.emitf("\tpop %s", regs[i])
	}
	e.line("\tpop rax")
	e.line("\tsyscall")
	e.line("\tpush rax")
	return nil
}

// emitPrintRoutine emits the shared decimal-printing helper: converts rdi
// (a signed 64-bit integer) to ASCII in print_buf, appends a newline, and
// writes it with SYS_write.
func (e *Emitter) emitPrintRoutine() {
	e.line("print_int:")
	e.line("\tmov rax, rdi")
	e.line("\tlea rsi, [print_buf + 31]")
	e.line("\tmov byte [rsi], 10") // trailing newline
	e.line("\tdec rsi")
	e.line("\tmov r8, 0")          // sign flag
	e.line("\ttest rax, rax")
	e.line("\tjns .positive")
	e.line("\tmov r8, 1")
	e.line("\tneg rax")
	e.line(".positive:")
	e.line("\tmov rcx, 10")
	e.line(".digit_loop:")
	e.line("\txor rdx, rdx")
	e.line("\tdiv rcx")
	e.line("\tadd dl, '0'")
	e.line("\tmov [rsi], dl")
	e.line("\tdec rsi")
	e.line("\ttest rax, rax")
	e.line("\tjnz .digit_loop")
	e.line("\ttest r8, r8")
	e.line("\tjz .no_sign")
	e.line("\tmov byte [rsi], '-'")
	e.line("\tdec rsi")
	e.line(".no_sign:")
	e.line("\tinc rsi")
	e.line("\tlea rdx, [print_buf + 32]")
	e.line("\tsub rdx, rsi") // length = end - start
	e.line("\tmov rax, 1") // SYS_write
	e.line("\tmov rdi, 1") // stdout
	e.line("\tsyscall")
	e.line("\tret")
	e.line("")
}
