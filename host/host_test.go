package host

import (
	"strings"
	"testing"

	"github.com/nolang/ripvm/value"
)

func TestSendIntegerArithmetic(t *testing.T) {
	tests := []struct {
		name string
		mid  string
		a, b int64
		want int64
	}{
		{"addition", "+", 2, 3, 5},
		{"subtraction", "-", 5, 3, 2},
		{"multiplication", "*", 4, 3, 12},
		{"floor division", "/", 2, 3, 0},
		{"floor division of negatives rounds toward -inf", "/", -7, 2, -4},
		{"modulo follows floor division", "%", -7, 2, 1},
		{"bitwise and", "&", 6, 3, 2},
		{"bitwise or", "|", 2, 3, 3},
	}
	d := NewDefault()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := d.Send(&value.Integer{Value: tt.a}, tt.mid, []value.Value{&value.Integer{Value: tt.b}})
			if err != nil {
				t.Fatalf("Send: %v", err)
			}
			i, ok := result.(*value.Integer)
			if !ok || i.Value != tt.want {
				t.Fatalf("%d %s %d = %s, want %d", tt.a, tt.mid, tt.b, result.Inspect(), tt.want)
			}
		})
	}
}

func TestSendIntegerComparisons(t *testing.T) {
	tests := []struct {
		mid  string
		a, b int64
		want bool
	}{
		{"==", 3, 3, true},
		{"==", 3, 4, false},
		{">=", 3, 3, true},
		{">", 3, 3, false},
		{"<=", 2, 3, true},
		{"<", 3, 2, false},
	}
	d := NewDefault()
	for _, tt := range tests {
		result, err := d.Send(&value.Integer{Value: tt.a}, tt.mid, []value.Value{&value.Integer{Value: tt.b}})
		if err != nil {
			t.Fatalf("Send: %v", err)
		}
		if result.Truthy() != tt.want {
			t.Fatalf("%d %s %d = %s, want %v", tt.a, tt.mid, tt.b, result.Inspect(), tt.want)
		}
	}
}

func TestSendIntegerDivisionByZero(t *testing.T) {
	d := NewDefault()
	if _, err := d.Send(&value.Integer{Value: 1}, "/", []value.Value{&value.Integer{Value: 0}}); err == nil {
		t.Fatal("Send(1, \"/\", [0]) returned no error")
	}
}

func TestSendIntegerUnary(t *testing.T) {
	d := NewDefault()

	neg, err := d.Send(&value.Integer{Value: 5}, "-@", nil)
	if err != nil {
		t.Fatalf("Send -@: %v", err)
	}
	if i, ok := neg.(*value.Integer); !ok || i.Value != -5 {
		t.Fatalf("-@(5) = %s, want -5", neg.Inspect())
	}

	succ, err := d.Send(&value.Integer{Value: 5}, "succ", nil)
	if err != nil {
		t.Fatalf("Send succ: %v", err)
	}
	if i, ok := succ.(*value.Integer); !ok || i.Value != 6 {
		t.Fatalf("succ(5) = %s, want 6", succ.Inspect())
	}
}

func TestSendStringMethods(t *testing.T) {
	d := NewDefault()

	concat, err := d.Send(&value.String{Value: "foo"}, "+", []value.Value{&value.String{Value: "bar"}})
	if err != nil {
		t.Fatalf("Send +: %v", err)
	}
	if s, ok := concat.(*value.String); !ok || s.Value != "foobar" {
		t.Fatalf("\"foo\"+\"bar\" = %s, want foobar", concat.Inspect())
	}

	length, err := d.Send(&value.String{Value: "hello"}, "length", nil)
	if err != nil {
		t.Fatalf("Send length: %v", err)
	}
	if i, ok := length.(*value.Integer); !ok || i.Value != 5 {
		t.Fatalf("length(\"hello\") = %s, want 5", length.Inspect())
	}

	empty, err := d.Send(&value.String{Value: ""}, "empty?", nil)
	if err != nil {
		t.Fatalf("Send empty?: %v", err)
	}
	if !empty.Truthy() {
		t.Fatal("empty?(\"\") = false, want true")
	}

	uminus, err := d.Send(&value.String{Value: "string"}, "-@", nil)
	if err != nil {
		t.Fatalf("Send -@: %v", err)
	}
	if s, ok := uminus.(*value.String); !ok || s.Value != "string" {
		t.Fatalf("-@(\"string\") = %s, want string", uminus.Inspect())
	}
}

func TestSendArrayAndHashIndexing(t *testing.T) {
	d := NewDefault()
	arr := &value.Array{Elements: []value.Value{&value.Integer{Value: 10}, &value.Integer{Value: 20}}}

	got, err := d.Send(arr, "[]", []value.Value{&value.Integer{Value: 1}})
	if err != nil {
		t.Fatalf("Send []: %v", err)
	}
	if i, ok := got.(*value.Integer); !ok || i.Value != 20 {
		t.Fatalf("arr[1] = %s, want 20", got.Inspect())
	}

	outOfRange, err := d.Send(arr, "[]", []value.Value{&value.Integer{Value: 5}})
	if err != nil {
		t.Fatalf("Send []: %v", err)
	}
	if outOfRange != value.Nil {
		t.Fatalf("arr[5] = %s, want nil", outOfRange.Inspect())
	}

	h := value.NewHash()
	if err := h.Set(&value.Symbol{Name: "k"}, &value.Integer{Value: 7}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err = d.Send(h, "[]", []value.Value{&value.Symbol{Name: "k"}})
	if err != nil {
		t.Fatalf("Send []: %v", err)
	}
	if i, ok := got.(*value.Integer); !ok || i.Value != 7 {
		t.Fatalf("hash[:k] = %s, want 7", got.Inspect())
	}
}

func TestNilPAndNot(t *testing.T) {
	d := NewDefault()

	got, err := d.Send(value.Nil, "nil?", nil)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !got.Truthy() {
		t.Fatal("nil.nil? = false, want true")
	}

	got, err = d.Send(&value.Integer{Value: 1}, "nil?", nil)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got.Truthy() {
		t.Fatal("1.nil? = true, want false")
	}

	got, err = d.Send(value.False, "not", nil)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !got.Truthy() {
		t.Fatal("false.not = false, want true")
	}
}

func TestUndefinedMethodReportsAnError(t *testing.T) {
	d := NewDefault()
	if _, err := d.Send(&value.Integer{Value: 1}, "no_such_method", nil); err == nil {
		t.Fatal("Send with an unrecognized method id returned no error")
	}
}

func TestPutsAndP(t *testing.T) {
	var out strings.Builder
	d := NewDefault(WithOutput(&out))

	if _, err := d.Send(value.MainValue, "puts", []value.Value{&value.String{Value: "foo"}}); err != nil {
		t.Fatalf("Send puts: %v", err)
	}
	if out.String() != "foo\n" {
		t.Fatalf("output = %q, want %q", out.String(), "foo\n")
	}

	out.Reset()
	result, err := d.Send(value.MainValue, "p", []value.Value{&value.Integer{Value: 5}})
	if err != nil {
		t.Fatalf("Send p: %v", err)
	}
	if out.String() != "5\n" {
		t.Fatalf("output = %q, want %q", out.String(), "5\n")
	}
	if i, ok := result.(*value.Integer); !ok || i.Value != 5 {
		t.Fatalf("p(5) returned %s, want 5", result.Inspect())
	}
}

func TestPutsFlattensArrayArguments(t *testing.T) {
	var out strings.Builder
	d := NewDefault(WithOutput(&out))
	arr := &value.Array{Elements: []value.Value{&value.Integer{Value: 1}, &value.Integer{Value: 2}}}

	if _, err := d.Send(value.MainValue, "puts", []value.Value{arr}); err != nil {
		t.Fatalf("Send puts: %v", err)
	}
	if out.String() != "1\n2\n" {
		t.Fatalf("output = %q, want %q", out.String(), "1\n2\n")
	}
}

func TestWithGlobalSeedsGlobals(t *testing.T) {
	d := NewDefault(WithGlobal("g", &value.Integer{Value: 42}))
	g, ok := d.Globals()["g"]
	if !ok {
		t.Fatal(`Globals()["g"] not present`)
	}
	if i, ok := g.(*value.Integer); !ok || i.Value != 42 {
		t.Fatalf(`Globals()["g"] = %s, want 42`, g.Inspect())
	}
}

func TestShallowCopyIsIndependent(t *testing.T) {
	d := NewDefault()
	orig := &value.Array{Elements: []value.Value{&value.Integer{Value: 1}}}
	dup := d.ShallowCopy(orig).(*value.Array)
	dup.Elements[0] = &value.Integer{Value: 99}

	if orig.Elements[0].(*value.Integer).Value != 1 {
		t.Fatal("ShallowCopy aliased the underlying element slice")
	}
}

func TestEqual(t *testing.T) {
	d := NewDefault()
	if !d.Equal(&value.Integer{Value: 3}, &value.Integer{Value: 3}) {
		t.Fatal("Equal(3, 3) = false, want true")
	}
	if d.Equal(&value.Integer{Value: 3}, &value.String{Value: "3"}) {
		t.Fatal("Equal(3, \"3\") = true, want false (different tags)")
	}
	a := &value.Array{Elements: []value.Value{&value.Integer{Value: 1}, &value.Integer{Value: 2}}}
	b := &value.Array{Elements: []value.Value{&value.Integer{Value: 1}, &value.Integer{Value: 2}}}
	if !d.Equal(a, b) {
		t.Fatal("Equal on structurally-equal arrays = false, want true")
	}
}

func TestConstantResolvesToASymbol(t *testing.T) {
	d := NewDefault()
	c, err := d.Constant("FOO")
	if err != nil {
		t.Fatalf("Constant: %v", err)
	}
	if s, ok := c.(*value.Symbol); !ok || s.Name != "FOO" {
		t.Fatalf("Constant(\"FOO\") = %s, want :FOO", c.Inspect())
	}
}
