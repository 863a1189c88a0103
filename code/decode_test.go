package code

import (
	"errors"
	"strings"
	"testing"

	"github.com/nolang/ripvm/internal/errs"
	"github.com/nolang/ripvm/value"
)

// tuple builds a minimal 13-element top-level iseq tuple, the shape
// decode.go's tupleLen/localsIdx/argsIdx/insnsIdx constants describe; only
// locals/args/insns (indices 10-12) ever carry decoder-relevant data.
func tuple(locals any, args any, insns []any) []any {
	header := make([]any, tupleLen)
	header[localsIdx] = locals
	header[argsIdx] = args
	header[insnsIdx] = insns
	return header
}

func TestDecodeSimpleProgram(t *testing.T) {
	// putobject 2; putobject 3; opt_plus <+,1>; leave
	in := tuple(nil, nil, []any{
		[]any{"putobject", 2},
		[]any{"putobject", 3},
		[]any{"opt_plus", []any{"+", 1}},
		[]any{"leave"},
	})

	iseq, err := Decode(in, value.MainValue)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(iseq.Insns) != 4 {
		t.Fatalf("len(Insns) = %d, want 4", len(iseq.Insns))
	}
	if _, ok := iseq.Insns[0].(PutObject); !ok {
		t.Fatalf("Insns[0] = %T, want PutObject", iseq.Insns[0])
	}
	if _, ok := iseq.Insns[2].(OptBinary); !ok {
		t.Fatalf("Insns[2] = %T, want OptBinary", iseq.Insns[2])
	}
	if _, ok := iseq.Insns[3].(Leave); !ok {
		t.Fatalf("Insns[3] = %T, want Leave", iseq.Insns[3])
	}
}

func TestDecodeLabelsAndLineNumbersAreSkipped(t *testing.T) {
	in := tuple(nil, nil, []any{
		1, // line number
		[]any{"putnil"},
		"label_0",
		"RUBY_EVENT_LINE",
		[]any{"leave"},
	})

	iseq, err := Decode(in, value.MainValue)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(iseq.Insns) != 2 {
		t.Fatalf("len(Insns) = %d, want 2 (line numbers/RUBY_EVENT_LINE must not decode as instructions)", len(iseq.Insns))
	}
	if idx, ok := iseq.Labels["label_0"]; !ok || idx != 1 {
		t.Fatalf("Labels[%q] = (%d, %v), want (1, true)", "label_0", idx, ok)
	}
}

func TestDecodeLocalsAndArgs(t *testing.T) {
	in := tuple(
		[]any{"y", "x"},
		map[string]int{"lead_num": 1},
		[]any{[]any{"leave"}},
	)
	iseq, err := Decode(in, value.MainValue)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(iseq.Locals) != 2 || iseq.Locals[0] != "y" || iseq.Locals[1] != "x" {
		t.Fatalf("Locals = %v, want [y x]", iseq.Locals)
	}
	if !iseq.Args.HasLeadNum || iseq.Args.LeadNum != 1 {
		t.Fatalf("Args = %+v, want {HasLeadNum:true LeadNum:1}", iseq.Args)
	}
}

func TestDecodeNestedDefineMethod(t *testing.T) {
	nested := tuple(nil, map[string]int{"lead_num": 1}, []any{
		[]any{"getlocal_WC_0", 3},
		[]any{"leave"},
	})
	in := tuple(nil, nil, []any{
		[]any{"definemethod", "identity", nested},
		[]any{"leave"},
	})

	iseq, err := Decode(in, value.MainValue)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	dm, ok := iseq.Insns[0].(DefineMethod)
	if !ok {
		t.Fatalf("Insns[0] = %T, want DefineMethod", iseq.Insns[0])
	}
	if dm.Name != "identity" {
		t.Fatalf("DefineMethod.Name = %q, want identity", dm.Name)
	}
	if len(dm.ISeq.Insns) != 2 {
		t.Fatalf("nested ISeq has %d insns, want 2", len(dm.ISeq.Insns))
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		in   any
	}{
		{"top-level not a sequence", "not a tuple"},
		{"top-level wrong length", []any{1, 2, 3}},
		{"unrecognized opcode", tuple(nil, nil, []any{[]any{"bogus_opcode"}})},
		{"wrong arity", tuple(nil, nil, []any{[]any{"putobject", 1, 2}})},
		{"newhash odd arity", tuple(nil, nil, []any{[]any{"newhash", 3}})},
		{"bad locals shape", tuple("not a list", nil, []any{})},
		{"bad args shape", tuple(nil, "not a map", []any{})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.in, value.MainValue)
			if err == nil {
				t.Fatal("Decode returned no error, want one")
			}
			var de *errs.DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("error is %T, want *errs.DecodeError", err)
			}
		})
	}
}

func TestDecodeNewHashEvenArityOK(t *testing.T) {
	in := tuple(nil, nil, []any{
		[]any{"newhash", 0},
		[]any{"leave"},
	})
	iseq, err := Decode(in, value.MainValue)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	nh, ok := iseq.Insns[0].(NewHash)
	if !ok || nh.N != 0 {
		t.Fatalf("Insns[0] = %#v, want NewHash{N: 0}", iseq.Insns[0])
	}
}

func TestDisassembleRoundTripsOpcodeNames(t *testing.T) {
	in := tuple(nil, nil, []any{
		[]any{"putobject", 2},
		[]any{"putobject", 3},
		[]any{"opt_plus", []any{"+", 1}},
		[]any{"leave"},
	})
	iseq, err := Decode(in, value.MainValue)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	out := Disassemble(iseq)
	for _, want := range []string{"putobject 2", "putobject 3", "opt_plus", "leave"} {
		if !strings.Contains(out, want) {
			t.Errorf("disassembly missing %q:\n%s", want, out)
		}
	}
}

func TestOptBinaryAndUnaryMethodLookup(t *testing.T) {
	if mid, ok := OptBinaryMethod("opt_plus"); !ok || mid != "+" {
		t.Fatalf("OptBinaryMethod(opt_plus) = (%q, %v), want (+, true)", mid, ok)
	}
	if _, ok := OptBinaryMethod("not_an_opcode"); ok {
		t.Fatal("OptBinaryMethod(not_an_opcode) reported ok, want false")
	}
	if mid, ok := OptUnaryMethod("opt_not"); !ok || mid == "" {
		t.Fatalf("OptUnaryMethod(opt_not) = (%q, %v), want (non-empty, true)", mid, ok)
	}
}
