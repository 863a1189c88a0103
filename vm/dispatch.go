package vm

import (
	"github.com/nolang/ripvm/code"
	"github.com/nolang/ripvm/internal/errs"
	"github.com/nolang/ripvm/value"
)

// withFrame is the scoped frame acquisition protocol: it saves the
// program counter and stack length, pushes a fresh frame over iseq, runs
// preBody (used by callers to bind arguments into the new frame's
// locals), then dispatches instructions until leave. On any exit, normal
// or error, it pops the frame, restores the saved program counter, and
// truncates the value stack back to the saved length. On a normal exit the
// frame must have left exactly one value above the saved length; that
// value is removed from the stack and returned as the result, and any
// other count is an InternalError.
func (ctx *Context) withFrame(iseq *code.ISeq, preBody func(*Frame) error) (value.Value, error) {
	savedPC := ctx.pc
	savedLen := len(ctx.stack)

	frame := newFrame(iseq)
	ctx.frames = append(ctx.frames, frame)
	ctx.pc = 0

	defer func() {
		ctx.frames = ctx.frames[:len(ctx.frames)-1]
		ctx.pc = savedPC
	}()

	if preBody != nil {
		if err := preBody(frame); err != nil {
			ctx.truncateStack(savedLen)
			return nil, err
		}
	}

	if err := ctx.dispatch(iseq); err != nil {
		ctx.truncateStack(savedLen)
		return nil, err
	}

	if len(ctx.stack) != savedLen+1 {
		ctx.truncateStack(savedLen)
		return nil, errs.NewInternalError(
			"frame left %d values on the stack above its caller, expected exactly 1", len(ctx.stack)-savedLen)
	}
	result := ctx.stack[savedLen]
	ctx.truncateStack(savedLen)
	return result, nil
}

// dispatch runs the fetch-advance-execute loop for the current frame
// until its leave instruction executes.
func (ctx *Context) dispatch(iseq *code.ISeq) error {
	for {
		if ctx.pc < 0 || ctx.pc >= len(iseq.Insns) {
			return errs.NewInternalError("program counter %d out of range (%d instructions)", ctx.pc, len(iseq.Insns))
		}
		insn := iseq.Insns[ctx.pc]
		ctx.pc++

		if _, ok := insn.(code.Leave); ok {
			return nil
		}
		if err := insn.Step(ctx); err != nil {
			return err
		}
	}
}

// truncateStack drops every value above n, used by withFrame's cleanup
// path when a call exits abnormally or leaves the wrong number of
// values behind.
func (ctx *Context) truncateStack(n int) {
	if len(ctx.stack) > n {
		ctx.stack = ctx.stack[:n]
	}
}
