// Package code defines the decoded instruction sequence format the
// execution core runs: the ~35-variant instruction set, the decoder that
// translates the compiler's tuple tree into it, and the label table that
// backs branches.
//
// Package vm owns the mutable execution state (the value stack, the frame
// stack, globals, the method table); package code only knows about that
// state through the Machine interface below, so an Instruction can be
// decoded once here and stepped by any Machine implementation without the
// two packages importing each other.
package code

import "github.com/nolang/ripvm/value"

// ArgsDesc describes the argument shape a method's ISeq accepts. The only
// recognized non-empty shape is a fixed count of leading positional
// arguments.
type ArgsDesc struct {
	HasLeadNum bool
	LeadNum    int
}

// ISeq is an immutable, decoded instruction sequence.
type ISeq struct {
	// SelfValue is the receiver `putself` pushes inside this sequence.
	SelfValue value.Value

	// Insns is the ordered, decoded instruction list.
	Insns []Instruction

	// Labels maps a label name to its index into Insns.
	Labels map[string]int

	// Locals is the ordered list of local variable names; its length is
	// the frame's local slot count.
	Locals []string

	// Args is this sequence's argument descriptor.
	Args ArgsDesc
}

// Machine is the slice of execution-context behavior an Instruction needs
// in order to step. vm.Context implements it; no type in this package
// refers to vm.Context directly.
type Machine interface {
	// Push pushes v onto the value stack.
	Push(v value.Value)

	// Pop pops and returns the top of the value stack, or an error if the
	// stack is empty (an internal error: the program is malformed).
	Pop() (value.Value, error)

	// PopN pops n values and returns them in the order they were pushed
	// (oldest first).
	PopN(n int) ([]value.Value, error)

	// Dup pushes a copy of the top of the stack.
	Dup() error

	// Swap exchanges the top two stack values.
	Swap() error

	// Self returns the current frame's self value.
	Self() value.Value

	// GetLocal reads a local by its raw (biased) operand index, as found
	// in a getlocal_WC_0 instruction.
	GetLocal(rawIdx int) (value.Value, error)

	// SetLocal writes a local by its raw (biased) operand index.
	SetLocal(rawIdx int, v value.Value) error

	// GetGlobal reads a global, lazily importing it from the host runtime
	// on first miss.
	GetGlobal(name string) value.Value

	// SetGlobal writes a global.
	SetGlobal(name string, v value.Value)

	// Constant resolves a constant by name through the host runtime.
	Constant(name string) (value.Value, error)

	// ShallowCopy asks the host runtime for a shallow copy of v.
	ShallowCopy(v value.Value) value.Value

	// DefineMethod registers body under name, owned by the current
	// frame's self type.
	DefineMethod(name string, body *ISeq)

	// Labels returns the current frame's label table.
	Labels() map[string]int

	// PC returns the program counter.
	PC() int

	// SetPC sets the program counter.
	SetPC(i int)

	// Call performs method dispatch: a hit invokes a user-defined method
	// in a fresh frame, a miss delegates to the host runtime's send.
	Call(recv value.Value, data value.CallData, args []value.Value) (value.Value, error)
}

// Instruction is the contract every decoded opcode satisfies.
type Instruction interface {
	// Step executes the instruction against m. The program counter has
	// already been advanced past this instruction by the dispatch loop;
	// a branch instruction overrides it again via m.SetPC.
	Step(m Machine) error

	// String renders the instruction the way a disassembler would, with
	// its mnemonic first, matching the opcode name the decoder read it
	// from.
	String() string
}

// Method is a method handle: a value variant pairing an ISeq with the
// host type it was defined on. ctx.methods stores these; the subset of
// instructions this interpreter supports never pushes one onto the value
// stack, but it still satisfies value.Value for fidelity with the data
// model.
type Method struct {
	ISeq  *ISeq
	Owner value.Tag
}

func (m *Method) Tag() value.Tag { return value.TagMethod }

func (m *Method) Truthy() bool    { return true }
func (m *Method) Inspect() string { return "#<Method: " + m.Owner.String() + ">" }
