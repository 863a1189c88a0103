package code

import (
	"github.com/nolang/ripvm/internal/errs"
	"github.com/nolang/ripvm/value"
)

// Sym marks a tuple leaf as a host symbol literal, distinguishing it from
// a plain host string. It has no other behavior; the decoder and the
// compiler front end are the only things that ever construct one.
type Sym string

// tupleLen is the element count of the compiler's to-array form, and
// localsIdx/argsIdx/insnsIdx locate locals/args/insns in it. The ten
// leading elements ahead of locals are ignored by the decoder (magic
// string, version triple, name, path, absolute_path, first line number,
// iseq type, and a misc placeholder map), mirroring the thirteen-element
// shape the host compiler's InstructionSequence#to_a produces.
const (
	localsIdx = 10
	argsIdx   = 11
	insnsIdx  = 12
	tupleLen  = 13
)

// Decode translates the compiler's tuple tree for one instruction
// sequence into an ISeq, recursively decoding any nested sequence found
// inside a definemethod instruction. self is the receiver `putself` will
// push for every instruction in the resulting (and any nested) sequence.
func Decode(tuple any, self value.Value) (*ISeq, error) {
	top, ok := tuple.([]any)
	if !ok {
		return nil, errs.NewDecodeError("top-level iseq tuple must be a sequence, got %T", tuple)
	}
	if len(top) != tupleLen {
		return nil, errs.NewDecodeError("top-level iseq tuple must have %d elements, got %d", tupleLen, len(top))
	}

	locals, err := decodeLocals(top[localsIdx])
	if err != nil {
		return nil, err
	}
	args, err := decodeArgs(top[argsIdx])
	if err != nil {
		return nil, err
	}
	entries, ok := top[insnsIdx].([]any)
	if !ok {
		return nil, errs.NewDecodeError("iseq insns entry must be a sequence, got %T", top[insnsIdx])
	}

	iseq := &ISeq{
		SelfValue: self,
		Labels:    make(map[string]int),
		Locals:    locals,
		Args:      args,
	}

	for _, entry := range entries {
		switch e := entry.(type) {
		case int:
			continue // line number, ignored
		case int64:
			continue // line number, ignored
		case string:
			if e == "RUBY_EVENT_LINE" {
				continue
			}
			iseq.Labels[e] = len(iseq.Insns)
		case []any:
			insn, derr := decodeInsn(e, self)
			if derr != nil {
				return nil, derr
			}
			iseq.Insns = append(iseq.Insns, insn)
		default:
			return nil, errs.NewDecodeError("unrecognized insns entry shape %T", entry)
		}
	}
	return iseq, nil
}

func decodeLocals(raw any) ([]string, error) {
	if raw == nil {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, errs.NewDecodeError("locals entry must be a sequence, got %T", raw)
	}
	out := make([]string, len(list))
	for i, l := range list {
		name, ok := l.(string)
		if !ok {
			return nil, errs.NewDecodeError("local name must be a string, got %T", l)
		}
		out[i] = name
	}
	return out, nil
}

func decodeArgs(raw any) (ArgsDesc, error) {
	if raw == nil {
		return ArgsDesc{}, nil
	}
	m, ok := raw.(map[string]int)
	if !ok {
		return ArgsDesc{}, errs.NewDecodeError("args descriptor must be nil or map[string]int, got %T", raw)
	}
	k, ok := m["lead_num"]
	if !ok {
		return ArgsDesc{}, errs.NewDecodeError("args descriptor map must carry \"lead_num\"")
	}
	return ArgsDesc{HasLeadNum: true, LeadNum: k}, nil
}

// decodeInsn decodes one `[]any{opcodeName, operands...}` entry.
func decodeInsn(e []any, self value.Value) (Instruction, error) {
	if len(e) == 0 {
		return nil, errs.NewDecodeError("empty instruction tuple")
	}
	op, ok := e[0].(string)
	if !ok {
		return nil, errs.NewDecodeError("instruction opcode must be a string, got %T", e[0])
	}
	operands := e[1:]

	switch op {
	case "putnil":
		return requireArity(op, operands, 0, func([]any) (Instruction, error) { return PutNil{}, nil })
	case "putobject":
		return requireArity(op, operands, 1, func(ops []any) (Instruction, error) {
			v, err := literalToValue(ops[0])
			if err != nil {
				return nil, err
			}
			return PutObject{V: v}, nil
		})
	case "putobject_INT2FIX_0_":
		return requireArity(op, operands, 0, func([]any) (Instruction, error) { return PutObjectInt0{}, nil })
	case "putobject_INT2FIX_1_":
		return requireArity(op, operands, 0, func([]any) (Instruction, error) { return PutObjectInt1{}, nil })
	case "putself":
		return requireArity(op, operands, 0, func([]any) (Instruction, error) { return PutSelf{}, nil })
	case "putstring":
		return requireArity(op, operands, 1, func(ops []any) (Instruction, error) {
			s, ok := ops[0].(string)
			if !ok {
				return nil, errs.NewDecodeError("putstring operand must be a string, got %T", ops[0])
			}
			return PutString{S: s}, nil
		})
	case "pop":
		return requireArity(op, operands, 0, func([]any) (Instruction, error) { return Pop{}, nil })
	case "dup":
		return requireArity(op, operands, 0, func([]any) (Instruction, error) { return Dup{}, nil })
	case "swap":
		return requireArity(op, operands, 0, func([]any) (Instruction, error) { return Swap{}, nil })
	case "newarray":
		return requireArity(op, operands, 1, func(ops []any) (Instruction, error) {
			n, err := toInt(ops[0])
			if err != nil {
				return nil, err
			}
			return NewArray{N: n}, nil
		})
	case "duparray":
		return requireArity(op, operands, 1, func(ops []any) (Instruction, error) {
			tmpl, err := decodeArrayLiteral(ops[0])
			if err != nil {
				return nil, err
			}
			return DupArray{Template: tmpl}, nil
		})
	case "newhash":
		return requireArity(op, operands, 1, func(ops []any) (Instruction, error) {
			n, err := toInt(ops[0])
			if err != nil {
				return nil, err
			}
			if n%2 != 0 {
				return nil, errs.NewDecodeError("newhash operand must be even, got %d", n)
			}
			return NewHash{N: n}, nil
		})
	case "duphash":
		return requireArity(op, operands, 1, func(ops []any) (Instruction, error) {
			tmpl, err := decodeHashLiteral(ops[0])
			if err != nil {
				return nil, err
			}
			return DupHash{Template: tmpl}, nil
		})
	case "concatarray":
		return requireArity(op, operands, 0, func([]any) (Instruction, error) { return ConcatArray{}, nil })
	case "getglobal":
		return requireArity(op, operands, 1, func(ops []any) (Instruction, error) {
			name, err := toString(ops[0])
			if err != nil {
				return nil, err
			}
			return GetGlobal{Name: name}, nil
		})
	case "setglobal":
		return requireArity(op, operands, 1, func(ops []any) (Instruction, error) {
			name, err := toString(ops[0])
			if err != nil {
				return nil, err
			}
			return SetGlobal{Name: name}, nil
		})
	case "getlocal_WC_0":
		return requireArity(op, operands, 1, func(ops []any) (Instruction, error) {
			idx, err := toInt(ops[0])
			if err != nil {
				return nil, err
			}
			return GetLocalWC0{Idx: idx}, nil
		})
	case "setlocal_WC_0":
		return requireArity(op, operands, 1, func(ops []any) (Instruction, error) {
			idx, err := toInt(ops[0])
			if err != nil {
				return nil, err
			}
			return SetLocalWC0{Idx: idx}, nil
		})
	case "getconstant":
		return requireArity(op, operands, 1, func(ops []any) (Instruction, error) {
			name, err := toString(ops[0])
			if err != nil {
				return nil, err
			}
			return GetConstant{Name: name}, nil
		})
	case "opt_getinlinecache":
		return requireArity(op, operands, 2, func(ops []any) (Instruction, error) {
			label, err := toString(ops[0])
			if err != nil {
				return nil, err
			}
			return OptGetInlineCache{Label: label, Cache: ops[1]}, nil
		})
	case "opt_setinlinecache":
		return requireArity(op, operands, 1, func(ops []any) (Instruction, error) {
			return OptSetInlineCache{Cache: ops[0]}, nil
		})
	case "jump":
		return requireArity(op, operands, 1, func(ops []any) (Instruction, error) {
			label, err := toString(ops[0])
			if err != nil {
				return nil, err
			}
			return Jump{Label: label}, nil
		})
	case "branchnil":
		return requireArity(op, operands, 1, func(ops []any) (Instruction, error) {
			label, err := toString(ops[0])
			if err != nil {
				return nil, err
			}
			return BranchNil{Label: label}, nil
		})
	case "branchunless":
		return requireArity(op, operands, 1, func(ops []any) (Instruction, error) {
			label, err := toString(ops[0])
			if err != nil {
				return nil, err
			}
			return BranchUnless{Label: label}, nil
		})
	case "opt_plus", "opt_minus", "opt_div", "opt_mod", "opt_and", "opt_or",
		"opt_eq", "opt_ge", "opt_gt", "opt_le", "opt_lt", "opt_aref":
		return requireArity(op, operands, 1, func(ops []any) (Instruction, error) {
			data, err := decodeCallData(ops[0])
			if err != nil {
				return nil, err
			}
			return OptBinary{Mnemonic: op, Data: data}, nil
		})
	case "opt_aref_with":
		return requireArity(op, operands, 2, func(ops []any) (Instruction, error) {
			key, err := toString(ops[0])
			if err != nil {
				return nil, err
			}
			data, err := decodeCallData(ops[1])
			if err != nil {
				return nil, err
			}
			return OptArefWith{Key: key, Data: data}, nil
		})
	case "opt_not", "opt_empty_p", "opt_nil_p", "opt_length", "opt_succ":
		return requireArity(op, operands, 1, func(ops []any) (Instruction, error) {
			data, err := decodeCallData(ops[0])
			if err != nil {
				return nil, err
			}
			return OptUnary{Mnemonic: op, Data: data}, nil
		})
	case "opt_str_freeze":
		return requireArity(op, operands, 1, func(ops []any) (Instruction, error) {
			s, err := toString(ops[0])
			if err != nil {
				return nil, err
			}
			return OptStrFreeze{S: s}, nil
		})
	case "opt_str_uminus":
		return requireArity(op, operands, 2, func(ops []any) (Instruction, error) {
			s, err := toString(ops[0])
			if err != nil {
				return nil, err
			}
			data, err := decodeCallData(ops[1])
			if err != nil {
				return nil, err
			}
			return OptStrUminus{S: s, Data: data}, nil
		})
	case "opt_send_without_block":
		return requireArity(op, operands, 1, func(ops []any) (Instruction, error) {
			data, err := decodeCallData(ops[0])
			if err != nil {
				return nil, err
			}
			return OptSendWithoutBlock{Data: data}, nil
		})
	case "definemethod":
		return requireArity(op, operands, 2, func(ops []any) (Instruction, error) {
			name, err := toString(ops[0])
			if err != nil {
				return nil, err
			}
			nested, err := Decode(ops[1], self)
			if err != nil {
				return nil, err
			}
			return DefineMethod{Name: name, ISeq: nested}, nil
		})
	case "leave":
		return requireArity(op, operands, 0, func([]any) (Instruction, error) { return Leave{}, nil })
	default:
		return nil, errs.NewDecodeError("unrecognized opcode %q", op)
	}
}

func requireArity(op string, operands []any, n int, build func([]any) (Instruction, error)) (Instruction, error) {
	if len(operands) != n {
		return nil, errs.NewDecodeError("%s expects %d operand(s), got %d", op, n, len(operands))
	}
	return build(operands)
}

func decodeCallData(raw any) (value.CallData, error) {
	tuple, ok := raw.([]any)
	if !ok || len(tuple) != 2 {
		return value.CallData{}, errs.NewDecodeError("call data must be a 2-element sequence, got %T", raw)
	}
	mid, err := toString(tuple[0])
	if err != nil {
		return value.CallData{}, err
	}
	argc, err := toInt(tuple[1])
	if err != nil {
		return value.CallData{}, err
	}
	if argc < 0 {
		return value.CallData{}, errs.NewDecodeError("call data argc must be nonnegative, got %d", argc)
	}
	return value.CallData{MethodID: mid, Argc: argc}, nil
}

func decodeArrayLiteral(raw any) (*value.Array, error) {
	elems, ok := raw.([]any)
	if !ok {
		return nil, errs.NewDecodeError("duparray operand must be a sequence, got %T", raw)
	}
	out := make([]value.Value, len(elems))
	for i, e := range elems {
		v, err := literalToValue(e)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return &value.Array{Elements: out}, nil
}

func decodeHashLiteral(raw any) (*value.Hash, error) {
	flat, ok := raw.([]any)
	if !ok || len(flat)%2 != 0 {
		return nil, errs.NewDecodeError("duphash operand must be a flat, even-length sequence, got %T", raw)
	}
	h := value.NewHash()
	for i := 0; i < len(flat); i += 2 {
		k, err := literalToValue(flat[i])
		if err != nil {
			return nil, err
		}
		v, err := literalToValue(flat[i+1])
		if err != nil {
			return nil, err
		}
		if err := h.Set(k, v); err != nil {
			return nil, errs.NewDecodeError("%s", err)
		}
	}
	return h, nil
}

func literalToValue(raw any) (value.Value, error) {
	switch v := raw.(type) {
	case nil:
		return value.Nil, nil
	case bool:
		return value.Bool(v), nil
	case int:
		return &value.Integer{Value: int64(v)}, nil
	case int64:
		return &value.Integer{Value: v}, nil
	case string:
		return &value.String{Value: v}, nil
	case Sym:
		return &value.Symbol{Name: string(v)}, nil
	default:
		return nil, errs.NewDecodeError("unsupported literal operand of type %T", raw)
	}
}

func toInt(raw any) (int, error) {
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	default:
		return 0, errs.NewDecodeError("operand must be an integer, got %T", raw)
	}
}

func toString(raw any) (string, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case Sym:
		return string(v), nil
	default:
		return "", errs.NewDecodeError("operand must be a string, got %T", raw)
	}
}
