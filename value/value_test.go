package value

import "testing"

func TestTruthy(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want bool
	}{
		{"nil is falsy", Nil, false},
		{"false is falsy", False, false},
		{"true is truthy", True, true},
		{"zero integer is truthy", &Integer{Value: 0}, true},
		{"empty string is truthy", &String{Value: ""}, true},
		{"main is truthy", MainValue, true},
		{"undefined is falsy", Undefined, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.Truthy(); got != tt.want {
				t.Fatalf("Truthy() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInspect(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want string
	}{
		{"integer", &Integer{Value: 42}, "42"},
		{"negative integer", &Integer{Value: -7}, "-7"},
		{"string quotes", &String{Value: "hi"}, `"hi"`},
		{"symbol", &Symbol{Name: "foo"}, ":foo"},
		{"nil", Nil, "nil"},
		{"true", True, "true"},
		{"false", False, "false"},
		{"main", MainValue, "main"},
		{"undefined", Undefined, "undefined"},
		{"empty array", &Array{}, "[]"},
		{"array of integers", &Array{Elements: []Value{&Integer{Value: 1}, &Integer{Value: 2}}}, "[1, 2]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.Inspect(); got != tt.want {
				t.Fatalf("Inspect() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsUndefined(t *testing.T) {
	if !IsUndefined(Undefined) {
		t.Fatal("IsUndefined(Undefined) = false, want true")
	}
	if IsUndefined(Nil) {
		t.Fatal("IsUndefined(Nil) = true, want false")
	}
}

func TestHashKeyDistinguishesTags(t *testing.T) {
	intKey := (&Integer{Value: 0}).HashKey()
	falseKey := falseValue{}.HashKey()
	if intKey == falseKey {
		t.Fatalf("Integer(0) and false produced the same HashKey: %+v", intKey)
	}
}

func TestHashSetRejectsUnhashableKey(t *testing.T) {
	h := NewHash()
	err := h.Set(&Array{}, &Integer{Value: 1})
	if err == nil {
		t.Fatal("Set with an Array key did not error")
	}
}

func TestHashSetAndInspectRoundTrip(t *testing.T) {
	h := NewHash()
	if err := h.Set(&Symbol{Name: "k"}, &Integer{Value: 9}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	key := (&Symbol{Name: "k"}).HashKey()
	pair, ok := h.Pairs[key]
	if !ok {
		t.Fatal("Set did not store the pair under the expected HashKey")
	}
	if pair.Value.(*Integer).Value != 9 {
		t.Fatalf("stored value = %v, want 9", pair.Value.Inspect())
	}
}

func TestBool(t *testing.T) {
	if Bool(true) != True {
		t.Fatal("Bool(true) != True")
	}
	if Bool(false) != False {
		t.Fatal("Bool(false) != False")
	}
}
