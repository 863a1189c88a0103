package vm

import (
	"github.com/nolang/ripvm/code"
	"github.com/nolang/ripvm/host"
	"github.com/nolang/ripvm/internal/errs"
	"github.com/nolang/ripvm/value"
)

// methodKey identifies a user-defined method: the host type it was
// defined on, paired with its name.
type methodKey struct {
	owner value.Tag
	mid   string
}

// Context is the execution context: the value stack, the frame stack,
// the program counter, globals, and the user-method table. It is the
// single mutable aggregate the dispatch loop operates on and is not safe
// for concurrent use.
type Context struct {
	stack   []value.Value
	frames  []*Frame
	pc      int
	globals map[string]value.Value
	methods map[methodKey]*code.Method
	host    host.Runtime

	// globalsImported tracks which global names have already been
	// lazily imported from the host runtime, so a global the program
	// deletes doesn't get silently reimported on the next read.
	globalsImported map[string]bool
}

// NewContext creates an empty execution context backed by host.
func NewContext(h host.Runtime) *Context {
	return &Context{
		globals:         make(map[string]value.Value),
		methods:         make(map[methodKey]*code.Method),
		globalsImported: make(map[string]bool),
		host:            h,
	}
}

// Eval pushes iseq's top-level frame and runs it to completion, returning
// the program's return value.
func (ctx *Context) Eval(iseq *code.ISeq) (value.Value, error) {
	return ctx.withFrame(iseq, nil)
}

// currentFrame returns the innermost active frame. Callers must only
// invoke it from within a Step call, where at least one frame is always
// present.
func (ctx *Context) currentFrame() *Frame {
	return ctx.frames[len(ctx.frames)-1]
}

// Push implements code.Machine.
func (ctx *Context) Push(v value.Value) {
	ctx.stack = append(ctx.stack, v)
}

// Pop implements code.Machine.
func (ctx *Context) Pop() (value.Value, error) {
	if len(ctx.stack) == 0 {
		return nil, errs.NewInternalError("stack underflow")
	}
	v := ctx.stack[len(ctx.stack)-1]
	ctx.stack = ctx.stack[:len(ctx.stack)-1]
	return v, nil
}

// PopN implements code.Machine.
func (ctx *Context) PopN(n int) ([]value.Value, error) {
	if n == 0 {
		return nil, nil
	}
	if len(ctx.stack) < n {
		return nil, errs.NewInternalError("stack underflow: need %d, have %d", n, len(ctx.stack))
	}
	split := len(ctx.stack) - n
	out := make([]value.Value, n)
	copy(out, ctx.stack[split:])
	ctx.stack = ctx.stack[:split]
	return out, nil
}

// Dup implements code.Machine.
func (ctx *Context) Dup() error {
	if len(ctx.stack) == 0 {
		return errs.NewInternalError("stack underflow")
	}
	ctx.Push(ctx.stack[len(ctx.stack)-1])
	return nil
}

// Swap implements code.Machine.
func (ctx *Context) Swap() error {
	n := len(ctx.stack)
	if n < 2 {
		return errs.NewInternalError("stack underflow")
	}
	ctx.stack[n-1], ctx.stack[n-2] = ctx.stack[n-2], ctx.stack[n-1]
	return nil
}

// Self implements code.Machine.
func (ctx *Context) Self() value.Value {
	return ctx.currentFrame().iseq.SelfValue
}

// GetLocal implements code.Machine.
func (ctx *Context) GetLocal(rawIdx int) (value.Value, error) {
	f := ctx.currentFrame()
	slot := f.translate(rawIdx)
	if slot < 0 || slot >= len(f.locals) {
		return nil, errs.NewInternalError("local slot %d out of range (%d locals)", slot, len(f.locals))
	}
	v := f.locals[slot]
	if value.IsUndefined(v) {
		name := "?"
		if slot >= 0 && slot < len(f.iseq.Locals) {
			name = f.iseq.Locals[slot]
		}
		return nil, &errs.UndefinedLocal{Name: name, Self: f.iseq.SelfValue.Inspect()}
	}
	return v, nil
}

// SetLocal implements code.Machine.
func (ctx *Context) SetLocal(rawIdx int, v value.Value) error {
	f := ctx.currentFrame()
	slot := f.translate(rawIdx)
	if slot < 0 || slot >= len(f.locals) {
		return errs.NewInternalError("local slot %d out of range (%d locals)", slot, len(f.locals))
	}
	f.locals[slot] = v
	return nil
}

// GetGlobal implements code.Machine.
func (ctx *Context) GetGlobal(name string) value.Value {
	if v, ok := ctx.globals[name]; ok {
		return v
	}
	if !ctx.globalsImported[name] {
		ctx.globalsImported[name] = true
		for k, v := range ctx.host.Globals() {
			if k == name {
				ctx.globals[name] = v
				return v
			}
		}
	}
	return value.Nil
}

// SetGlobal implements code.Machine.
func (ctx *Context) SetGlobal(name string, v value.Value) {
	ctx.globals[name] = v
	ctx.globalsImported[name] = true
}

// Constant implements code.Machine.
func (ctx *Context) Constant(name string) (value.Value, error) {
	v, err := ctx.host.Constant(name)
	if err != nil {
		return nil, errs.NewHostError(err)
	}
	return v, nil
}

// ShallowCopy implements code.Machine.
func (ctx *Context) ShallowCopy(v value.Value) value.Value {
	return ctx.host.ShallowCopy(v)
}

// DefineMethod implements code.Machine.
func (ctx *Context) DefineMethod(name string, body *code.ISeq) {
	owner := ctx.Self().Tag()
	ctx.methods[methodKey{owner: owner, mid: name}] = &code.Method{ISeq: body, Owner: owner}
}

// Labels implements code.Machine.
func (ctx *Context) Labels() map[string]int {
	return ctx.currentFrame().iseq.Labels
}

// PC implements code.Machine.
func (ctx *Context) PC() int { return ctx.pc }

// SetPC implements code.Machine.
func (ctx *Context) SetPC(i int) { ctx.pc = i }

// Call implements code.Machine: method dispatch. A hit in the
// user-method table invokes the method under a fresh frame with its
// arguments bound into locals[0:argc); a miss delegates to the host
// runtime's dynamic send.
func (ctx *Context) Call(recv value.Value, data value.CallData, args []value.Value) (value.Value, error) {
	key := methodKey{owner: recv.Tag(), mid: data.MethodID}
	m, ok := ctx.methods[key]
	if !ok {
		result, err := ctx.host.Send(recv, data.MethodID, args)
		if err != nil {
			return nil, errs.NewHostError(err)
		}
		return result, nil
	}

	if !argsMatch(m.ISeq.Args, data.Argc) {
		want := 0
		if m.ISeq.Args.HasLeadNum {
			want = m.ISeq.Args.LeadNum
		}
		return nil, &errs.ArgArityError{Method: data.MethodID, Want: want, Got: data.Argc}
	}

	return ctx.withFrame(m.ISeq, func(f *Frame) error {
		for i := 0; i < data.Argc; i++ {
			f.locals[i] = args[i]
		}
		return nil
	})
}

// argsMatch reports whether a method's argument descriptor accepts a
// call site with argc arguments: either the descriptor is empty and
// argc is 0, or the descriptor names a fixed lead count equal to argc.
func argsMatch(desc code.ArgsDesc, argc int) bool {
	if !desc.HasLeadNum {
		return argc == 0
	}
	return desc.LeadNum == argc
}
