// Package vm implements the execution context: the value stack, the frame
// stack, the program counter, globals, and the user-method table, plus the
// frame/call protocol and the dispatch loop that drives package code's
// Instruction.Step over them.
package vm

import (
	"github.com/nolang/ripvm/code"
	"github.com/nolang/ripvm/value"
)

// Frame is a single activation of an ISeq: its locals vector and a
// reference to the sequence that owns them. It carries no program
// counter of its own. program_counter lives on Context and is saved and
// restored around a call by withFrame, since only one frame is ever
// actively dispatching at a time.
type Frame struct {
	iseq   *code.ISeq
	locals []value.Value
}

// newFrame allocates a Frame over iseq with every local slot initialized
// to value.Undefined.
func newFrame(iseq *code.ISeq) *Frame {
	locals := make([]value.Value, len(iseq.Locals))
	for i := range locals {
		locals[i] = value.Undefined
	}
	return &Frame{iseq: iseq, locals: locals}
}

// translate converts a raw (biased) operand index, as found on
// getlocal_WC_0/setlocal_WC_0, into a slot in f.locals. The compiler
// biases indices so that slot = (locals.length - (i - 3)) - 1.
func (f *Frame) translate(raw int) int {
	return (len(f.locals) - (raw - 3)) - 1
}
