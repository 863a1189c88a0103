package code

import (
	"fmt"

	"github.com/nolang/ripvm/internal/errs"
	"github.com/nolang/ripvm/value"
)

// PutNil pushes nil.
type PutNil struct{}

func (PutNil) Step(m Machine) error { m.Push(value.Nil); return nil }
func (PutNil) String() string       { return "putnil" }

// PutObject pushes the literal value V.
type PutObject struct{ V value.Value }

func (i PutObject) Step(m Machine) error { m.Push(i.V); return nil }
func (i PutObject) String() string       { return fmt.Sprintf("putobject %s", i.V.Inspect()) }

// PutObjectInt0 pushes the integer 0.
type PutObjectInt0 struct{}

func (PutObjectInt0) Step(m Machine) error { m.Push(&value.Integer{Value: 0}); return nil }
func (PutObjectInt0) String() string       { return "putobject_INT2FIX_0_" }

// PutObjectInt1 pushes the integer 1.
type PutObjectInt1 struct{}

func (PutObjectInt1) Step(m Machine) error { m.Push(&value.Integer{Value: 1}); return nil }
func (PutObjectInt1) String() string       { return "putobject_INT2FIX_1_" }

// PutSelf pushes the current frame's self value.
type PutSelf struct{}

func (PutSelf) Step(m Machine) error { m.Push(m.Self()); return nil }
func (PutSelf) String() string       { return "putself" }

// PutString pushes the string literal S.
type PutString struct{ S string }

func (i PutString) Step(m Machine) error { m.Push(&value.String{Value: i.S}); return nil }
func (i PutString) String() string       { return fmt.Sprintf("putstring %q", i.S) }

// Pop discards the top of the stack.
type Pop struct{}

func (Pop) Step(m Machine) error { _, err := m.Pop(); return err }
func (Pop) String() string       { return "pop" }

// Dup pushes a copy of the top of the stack.
type Dup struct{}

func (Dup) Step(m Machine) error { return m.Dup() }
func (Dup) String() string       { return "dup" }

// Swap exchanges the top two stack values.
type Swap struct{}

func (Swap) Step(m Machine) error { return m.Swap() }
func (Swap) String() string       { return "swap" }

// NewArray pops N values and pushes an array built from them, in the
// order they were pushed.
type NewArray struct{ N int }

func (i NewArray) Step(m Machine) error {
	elems, err := m.PopN(i.N)
	if err != nil {
		return err
	}
	m.Push(&value.Array{Elements: elems})
	return nil
}
func (i NewArray) String() string { return fmt.Sprintf("newarray %d", i.N) }

// DupArray pushes a shallow copy of a literal array template.
type DupArray struct{ Template *value.Array }

func (i DupArray) Step(m Machine) error { m.Push(m.ShallowCopy(i.Template)); return nil }
func (i DupArray) String() string       { return fmt.Sprintf("duparray %s", i.Template.Inspect()) }

// NewHash pops N values (N even, as (key, value) pairs) and pushes a hash
// built from them.
type NewHash struct{ N int }

func (i NewHash) Step(m Machine) error {
	elems, err := m.PopN(i.N)
	if err != nil {
		return err
	}
	h := value.NewHash()
	for p := 0; p < len(elems); p += 2 {
		if err := h.Set(elems[p], elems[p+1]); err != nil {
			return errs.NewHostError(err)
		}
	}
	m.Push(h)
	return nil
}
func (i NewHash) String() string { return fmt.Sprintf("newhash %d", i.N) }

// DupHash pushes a shallow copy of a literal hash template.
type DupHash struct{ Template *value.Hash }

func (i DupHash) Step(m Machine) error { m.Push(m.ShallowCopy(i.Template)); return nil }
func (i DupHash) String() string       { return fmt.Sprintf("duphash %s", i.Template.Inspect()) }

// ConcatArray pops b then a and pushes a concatenated with b.
type ConcatArray struct{}

func (ConcatArray) Step(m Machine) error {
	pair, err := m.PopN(2)
	if err != nil {
		return err
	}
	a, ok := pair[0].(*value.Array)
	if !ok {
		return errs.NewInternalError("concatarray left operand is not an array: %s", pair[0].Tag())
	}
	b, ok := pair[1].(*value.Array)
	if !ok {
		return errs.NewInternalError("concatarray right operand is not an array: %s", pair[1].Tag())
	}
	out := make([]value.Value, 0, len(a.Elements)+len(b.Elements))
	out = append(out, a.Elements...)
	out = append(out, b.Elements...)
	m.Push(&value.Array{Elements: out})
	return nil
}
func (ConcatArray) String() string { return "concatarray" }

// GetGlobal pushes the named global, lazily importing it from the host
// runtime on first miss.
type GetGlobal struct{ Name string }

func (i GetGlobal) Step(m Machine) error { m.Push(m.GetGlobal(i.Name)); return nil }
func (i GetGlobal) String() string       { return fmt.Sprintf("getglobal %s", i.Name) }

// SetGlobal pops the top of the stack and stores it as the named global.
type SetGlobal struct{ Name string }

func (i SetGlobal) Step(m Machine) error {
	v, err := m.Pop()
	if err != nil {
		return err
	}
	m.SetGlobal(i.Name, v)
	return nil
}
func (i SetGlobal) String() string { return fmt.Sprintf("setglobal %s", i.Name) }

// GetLocalWC0 pushes the local at the given raw (biased) index.
type GetLocalWC0 struct{ Idx int }

func (i GetLocalWC0) Step(m Machine) error {
	v, err := m.GetLocal(i.Idx)
	if err != nil {
		return err
	}
	m.Push(v)
	return nil
}
func (i GetLocalWC0) String() string { return fmt.Sprintf("getlocal_WC_0 %d", i.Idx) }

// SetLocalWC0 pops the top of the stack and stores it at the local
// identified by the given raw (biased) index.
type SetLocalWC0 struct{ Idx int }

func (i SetLocalWC0) Step(m Machine) error {
	v, err := m.Pop()
	if err != nil {
		return err
	}
	return m.SetLocal(i.Idx, v)
}
func (i SetLocalWC0) String() string { return fmt.Sprintf("setlocal_WC_0 %d", i.Idx) }

// GetConstant pushes the named constant, resolved through the host
// runtime.
type GetConstant struct{ Name string }

func (i GetConstant) Step(m Machine) error {
	v, err := m.Constant(i.Name)
	if err != nil {
		return err
	}
	m.Push(v)
	return nil
}
func (i GetConstant) String() string { return fmt.Sprintf("getconstant %s", i.Name) }

// OptGetInlineCache is a no-op: the cache always misses, so execution
// simply falls through to the constant lookup that follows it.
type OptGetInlineCache struct {
	Label string
	Cache any
}

func (OptGetInlineCache) Step(Machine) error { return nil }
func (i OptGetInlineCache) String() string {
	return fmt.Sprintf("opt_getinlinecache %s, <%v>", i.Label, i.Cache)
}

// OptSetInlineCache is a no-op; the cache is never populated.
type OptSetInlineCache struct{ Cache any }

func (OptSetInlineCache) Step(Machine) error { return nil }
func (i OptSetInlineCache) String() string   { return fmt.Sprintf("opt_setinlinecache <%v>", i.Cache) }

// Jump unconditionally transfers control to Label.
type Jump struct{ Label string }

func (i Jump) Step(m Machine) error { return jumpTo(m, i.Label) }
func (i Jump) String() string       { return fmt.Sprintf("jump %s", i.Label) }

// BranchNil pops the top of the stack and jumps to Label if it is nil.
type BranchNil struct{ Label string }

func (i BranchNil) Step(m Machine) error {
	v, err := m.Pop()
	if err != nil {
		return err
	}
	if v == value.Nil {
		return jumpTo(m, i.Label)
	}
	return nil
}
func (i BranchNil) String() string { return fmt.Sprintf("branchnil %s", i.Label) }

// BranchUnless pops the top of the stack and jumps to Label if it is
// falsy (nil or false).
type BranchUnless struct{ Label string }

func (i BranchUnless) Step(m Machine) error {
	v, err := m.Pop()
	if err != nil {
		return err
	}
	if !v.Truthy() {
		return jumpTo(m, i.Label)
	}
	return nil
}
func (i BranchUnless) String() string { return fmt.Sprintf("branchunless %s", i.Label) }

func jumpTo(m Machine, label string) error {
	idx, ok := m.Labels()[label]
	if !ok {
		return errs.NewInternalError("jump to undefined label %q", label)
	}
	m.SetPC(idx)
	return nil
}

// optBinaryMethods maps an opt_* binary mnemonic to the host method id
// conventionally paired with it; OptBinary.Step dispatches on the method id
// in its CallData, not on this table.
var optBinaryMethods = map[string]string{
	"opt_plus":  "+",
	"opt_minus": "-",
	"opt_div":   "/",
	"opt_mod":   "%",
	"opt_and":   "&",
	"opt_or":    "|",
	"opt_eq":    "==",
	"opt_ge":    ">=",
	"opt_gt":    ">",
	"opt_le":    "<=",
	"opt_lt":    "<",
	"opt_aref":  "[]",
}

// OptBinary covers the opt_plus/minus/div/mod/and/or/eq/ge/gt/le/lt/aref
// family: pop argc+1, call_method, push the result.
type OptBinary struct {
	Mnemonic string
	Data     value.CallData
}

func (i OptBinary) Step(m Machine) error {
	return callAndPush(m, i.Data)
}
func (i OptBinary) String() string { return fmt.Sprintf("%s <callinfo!mid:%s, argc:1>", i.Mnemonic, i.Data.MethodID) }

// OptArefWith calls `[]` with a fixed key operand instead of a popped one.
type OptArefWith struct {
	Key  string
	Data value.CallData
}

func (i OptArefWith) Step(m Machine) error {
	recv, err := m.Pop()
	if err != nil {
		return err
	}
	result, err := m.Call(recv, i.Data, []value.Value{&value.String{Value: i.Key}})
	if err != nil {
		return err
	}
	m.Push(result)
	return nil
}
func (i OptArefWith) String() string {
	return fmt.Sprintf("opt_aref_with %q, <callinfo!mid:%s, argc:1>", i.Key, i.Data.MethodID)
}

// optUnaryMethods maps an opt_* unary mnemonic to the host method id.
var optUnaryMethods = map[string]string{
	"opt_not":     "not",
	"opt_empty_p": "empty?",
	"opt_nil_p":   "nil?",
	"opt_length":  "length",
	"opt_succ":    "succ",
}

// OptUnary covers the opt_not/empty_p/nil_p/length/succ family: pop 1,
// call_method, push the result.
type OptUnary struct {
	Mnemonic string
	Data     value.CallData
}

func (i OptUnary) Step(m Machine) error { return callAndPush(m, i.Data) }
func (i OptUnary) String() string {
	return fmt.Sprintf("%s <callinfo!mid:%s, argc:0>", i.Mnemonic, i.Data.MethodID)
}

// OptStrFreeze pushes the literal string S without invoking freeze or
// calling into the host runtime; value.String carries no frozen flag.
type OptStrFreeze struct{ S string }

func (i OptStrFreeze) Step(m Machine) error { m.Push(&value.String{Value: i.S}); return nil }
func (i OptStrFreeze) String() string       { return fmt.Sprintf("opt_str_freeze %q", i.S) }

// OptStrUminus pushes an interned/frozen copy of S, which may call
// through to the host runtime's unary minus method.
type OptStrUminus struct {
	S    string
	Data value.CallData
}

func (i OptStrUminus) Step(m Machine) error {
	result, err := m.Call(&value.String{Value: i.S}, i.Data, nil)
	if err != nil {
		return err
	}
	m.Push(result)
	return nil
}
func (i OptStrUminus) String() string {
	return fmt.Sprintf("opt_str_uminus %q, <callinfo!mid:%s, argc:0>", i.S, i.Data.MethodID)
}

// OptSendWithoutBlock pops argc+1 values (the receiver, then the
// arguments), performs method dispatch, and pushes the result.
type OptSendWithoutBlock struct{ Data value.CallData }

func (i OptSendWithoutBlock) Step(m Machine) error { return callAndPush(m, i.Data) }
func (i OptSendWithoutBlock) String() string {
	return fmt.Sprintf("opt_send_without_block <callinfo!mid:%s, argc:%d>", i.Data.MethodID, i.Data.Argc)
}

// callAndPush pops the receiver and Data.Argc arguments, dispatches the
// call, and pushes the result. It is shared by every instruction whose
// contract is "pop argc+1, call_method, push".
func callAndPush(m Machine, data value.CallData) error {
	popped, err := m.PopN(data.Argc + 1)
	if err != nil {
		return err
	}
	recv := popped[0]
	args := popped[1:]
	result, err := m.Call(recv, data, args)
	if err != nil {
		return err
	}
	m.Push(result)
	return nil
}

// DefineMethod registers ISeq as a method named Name on the current
// frame's self type, and pushes nil.
type DefineMethod struct {
	Name string
	ISeq *ISeq
}

func (i DefineMethod) Step(m Machine) error {
	m.DefineMethod(i.Name, i.ISeq)
	m.Push(value.Nil)
	return nil
}
func (i DefineMethod) String() string { return fmt.Sprintf("definemethod :%s", i.Name) }

// Leave terminates the current frame's dispatch loop; the value left on
// top of the stack is the frame's return value.
type Leave struct{}

func (Leave) Step(Machine) error { return nil }
func (Leave) String() string     { return "leave" }
