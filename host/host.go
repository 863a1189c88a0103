// Package host provides the one concrete implementation of the host
// runtime contract the execution core delegates to: dynamic method
// invocation for values whose methods are not user-defined, global
// import, constant lookup, shallow copy, equality, and printing.
//
// The execution core never special-cases integers vs. strings vs. arrays;
// every primitive operation reaches this package through Context.Call's
// miss path, the same way package code's opt_* instructions fall through
// to call_method when no user-defined method shadows them.
package host

import (
	"fmt"
	"strings"

	"github.com/nolang/ripvm/value"
)

// Runtime is the host runtime contract: dynamic method invocation by
// symbol, enumeration of currently-defined host globals, access to
// constants by name, shallow copy of literal array and hash, value
// equality, and printing.
type Runtime interface {
	// Send performs dynamic dispatch of mid against recv with args, the
	// way the host runtime's own method invocation would for a value
	// whose method is not user-defined.
	Send(recv value.Value, mid string, args []value.Value) (value.Value, error)

	// Globals enumerates the host's own predefined globals, imported
	// lazily by Context on a getglobal miss.
	Globals() map[string]value.Value

	// Constant resolves a constant by name.
	Constant(name string) (value.Value, error)

	// ShallowCopy returns a shallow copy of v (duparray/duphash).
	ShallowCopy(v value.Value) value.Value

	// Equal reports whether a and b are equal under host semantics.
	Equal(a, b value.Value) bool

	// Print renders a single value the way `puts` would (no surrounding
	// quotes on strings). It does not split arrays into one element per
	// line; Default's puts does that itself before calling Print.
	Print(v value.Value) string
}

// Default is the interpreter's only Runtime implementation: a small,
// host-process-backed standard library covering the primitive operators
// the instruction set names (+ - * / % & | == >= > <= < [] length succ
// empty? nil? not -@) plus the puts/p output builtins.
type Default struct {
	out      *strings.Builder
	globals  map[string]value.Value
	constant func(name string) (value.Value, error)
}

// Option configures a Default runtime.
type Option func(*Default)

// WithOutput redirects puts/p output into buf instead of stdout,
// discoverable by CLI tests without capturing os.Stdout.
func WithOutput(buf *strings.Builder) Option {
	return func(d *Default) { d.out = buf }
}

// WithGlobal seeds one host-defined global, importable on first
// getglobal miss.
func WithGlobal(name string, v value.Value) Option {
	return func(d *Default) { d.globals[name] = v }
}

// NewDefault creates a Default host runtime.
func NewDefault(opts ...Option) *Default {
	d := &Default{globals: make(map[string]value.Value)}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Globals implements Runtime.
func (d *Default) Globals() map[string]value.Value { return d.globals }

// Constant implements Runtime. This interpreter models no class/module
// system, so every name resolves to the symbol naming it, a minimal
// stand-in good enough to make getconstant round-trip.
func (d *Default) Constant(name string) (value.Value, error) {
	return &value.Symbol{Name: name}, nil
}

// ShallowCopy implements Runtime.
func (d *Default) ShallowCopy(v value.Value) value.Value {
	switch t := v.(type) {
	case *value.Array:
		out := make([]value.Value, len(t.Elements))
		copy(out, t.Elements)
		return &value.Array{Elements: out}
	case *value.Hash:
		out := value.NewHash()
		for _, p := range t.Pairs {
			_ = out.Set(p.Key, p.Value)
		}
		return out
	default:
		return v
	}
}

// Equal implements Runtime.
func (d *Default) Equal(a, b value.Value) bool {
	if a.Tag() != b.Tag() {
		return false
	}
	switch av := a.(type) {
	case *value.Integer:
		return av.Value == b.(*value.Integer).Value
	case *value.String:
		return av.Value == b.(*value.String).Value
	case *value.Symbol:
		return av.Name == b.(*value.Symbol).Name
	case *value.Array:
		bv := b.(*value.Array)
		if len(av.Elements) != len(bv.Elements) {
			return false
		}
		for i := range av.Elements {
			if !d.Equal(av.Elements[i], bv.Elements[i]) {
				return false
			}
		}
		return true
	case *value.Hash:
		bv := b.(*value.Hash)
		if len(av.Pairs) != len(bv.Pairs) {
			return false
		}
		for k, p := range av.Pairs {
			bp, ok := bv.Pairs[k]
			if !ok || !d.Equal(p.Value, bp.Value) {
				return false
			}
		}
		return true
	default:
		// nil, true, false, Main: tag equality already checked above.
		return true
	}
}

// Print implements Runtime.
func (d *Default) Print(v value.Value) string {
	if s, ok := v.(*value.String); ok {
		return s.Value
	}
	return v.Inspect()
}

// Send implements Runtime: the miss path of call_method, covering every
// primitive operator and builtin this interpreter's subset needs.
func (d *Default) Send(recv value.Value, mid string, args []value.Value) (value.Value, error) {
	switch mid {
	case "puts":
		return d.doPuts(recv, args)
	case "p":
		return d.doP(recv, args)
	}

	switch r := recv.(type) {
	case *value.Integer:
		return d.sendInteger(r, mid, args)
	case *value.String:
		return d.sendString(r, mid, args)
	case *value.Array:
		return d.sendArray(r, mid, args)
	case *value.Hash:
		return d.sendHash(r, mid, args)
	}

	switch mid {
	case "nil?":
		return value.Bool(recv == value.Nil), nil
	case "not":
		return value.Bool(!recv.Truthy()), nil
	case "empty?":
		return nil, fmt.Errorf("undefined method `empty?' for %s", recv.Tag())
	}
	return nil, fmt.Errorf("undefined method `%s' for %s", mid, recv.Tag())
}

func (d *Default) println(s string) {
	if d.out != nil {
		d.out.WriteString(s)
		d.out.WriteString("\n")
		return
	}
	fmt.Println(s)
}

func (d *Default) doPuts(_ value.Value, args []value.Value) (value.Value, error) {
	if len(args) == 0 {
		d.println("")
	}
	for _, a := range args {
		if arr, ok := a.(*value.Array); ok {
			for _, e := range arr.Elements {
				d.println(d.Print(e))
			}
			continue
		}
		d.println(d.Print(a))
	}
	return value.Nil, nil
}

func (d *Default) doP(_ value.Value, args []value.Value) (value.Value, error) {
	var last value.Value = value.Nil
	for _, a := range args {
		d.println(a.Inspect())
		last = a
	}
	if len(args) == 1 {
		return last, nil
	}
	if len(args) == 0 {
		return value.Nil, nil
	}
	out := make([]value.Value, len(args))
	copy(out, args)
	return &value.Array{Elements: out}, nil
}

func (d *Default) sendInteger(recv *value.Integer, mid string, args []value.Value) (value.Value, error) {
	if mid == "-@" {
		return &value.Integer{Value: -recv.Value}, nil
	}
	if mid == "succ" {
		return &value.Integer{Value: recv.Value + 1}, nil
	}
	if mid == "nil?" {
		return value.False, nil
	}
	if mid == "not" {
		return value.False, nil
	}
	if len(args) != 1 {
		return nil, fmt.Errorf("wrong number of arguments for Integer#%s (given %d, expected 1)", mid, len(args))
	}
	other, ok := args[0].(*value.Integer)
	if !ok {
		return nil, fmt.Errorf("%s: %s can't be coerced into Integer", mid, args[0].Tag())
	}
	a, b := recv.Value, other.Value
	switch mid {
	case "+":
		return &value.Integer{Value: a + b}, nil
	case "-":
		return &value.Integer{Value: a - b}, nil
	case "*":
		return &value.Integer{Value: a * b}, nil
	case "/":
		if b == 0 {
			return nil, fmt.Errorf("divided by 0")
		}
		return &value.Integer{Value: floorDiv(a, b)}, nil
	case "%":
		if b == 0 {
			return nil, fmt.Errorf("divided by 0")
		}
		return &value.Integer{Value: a - floorDiv(a, b)*b}, nil
	case "&":
		return &value.Integer{Value: a & b}, nil
	case "|":
		return &value.Integer{Value: a | b}, nil
	case "==":
		return value.Bool(a == b), nil
	case ">=":
		return value.Bool(a >= b), nil
	case ">":
		return value.Bool(a > b), nil
	case "<=":
		return value.Bool(a <= b), nil
	case "<":
		return value.Bool(a < b), nil
	default:
		return nil, fmt.Errorf("undefined method `%s' for Integer", mid)
	}
}

// floorDiv implements Ruby-style (floored) integer division: the
// quotient rounds toward negative infinity rather than toward zero.
func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func (d *Default) sendString(recv *value.String, mid string, args []value.Value) (value.Value, error) {
	switch mid {
	case "-@":
		return &value.String{Value: recv.Value}, nil
	case "length":
		return &value.Integer{Value: int64(len(recv.Value))}, nil
	case "empty?":
		return value.Bool(recv.Value == ""), nil
	case "nil?":
		return value.False, nil
	case "not":
		return value.False, nil
	case "+":
		if len(args) != 1 {
			return nil, fmt.Errorf("wrong number of arguments for String#+ (given %d, expected 1)", len(args))
		}
		other, ok := args[0].(*value.String)
		if !ok {
			return nil, fmt.Errorf("no implicit conversion of %s into String", args[0].Tag())
		}
		return &value.String{Value: recv.Value + other.Value}, nil
	case "==":
		if len(args) != 1 {
			return value.False, nil
		}
		other, ok := args[0].(*value.String)
		return value.Bool(ok && recv.Value == other.Value), nil
	case "[]":
		if len(args) != 1 {
			return nil, fmt.Errorf("wrong number of arguments for String#[] (given %d, expected 1)", len(args))
		}
		idx, ok := args[0].(*value.Integer)
		if !ok || idx.Value < 0 || int(idx.Value) >= len(recv.Value) {
			return value.Nil, nil
		}
		return &value.String{Value: string(recv.Value[idx.Value])}, nil
	default:
		return nil, fmt.Errorf("undefined method `%s' for String", mid)
	}
}

func (d *Default) sendArray(recv *value.Array, mid string, args []value.Value) (value.Value, error) {
	switch mid {
	case "length":
		return &value.Integer{Value: int64(len(recv.Elements))}, nil
	case "empty?":
		return value.Bool(len(recv.Elements) == 0), nil
	case "nil?":
		return value.False, nil
	case "not":
		return value.False, nil
	case "[]":
		if len(args) != 1 {
			return nil, fmt.Errorf("wrong number of arguments for Array#[] (given %d, expected 1)", len(args))
		}
		idx, ok := args[0].(*value.Integer)
		if !ok || idx.Value < 0 || int(idx.Value) >= len(recv.Elements) {
			return value.Nil, nil
		}
		return recv.Elements[idx.Value], nil
	default:
		return nil, fmt.Errorf("undefined method `%s' for Array", mid)
	}
}

func (d *Default) sendHash(recv *value.Hash, mid string, args []value.Value) (value.Value, error) {
	switch mid {
	case "length":
		return &value.Integer{Value: int64(len(recv.Pairs))}, nil
	case "empty?":
		return value.Bool(len(recv.Pairs) == 0), nil
	case "nil?":
		return value.False, nil
	case "not":
		return value.False, nil
	case "[]":
		if len(args) != 1 {
			return nil, fmt.Errorf("wrong number of arguments for Hash#[] (given %d, expected 1)", len(args))
		}
		key, ok := args[0].(value.Hashable)
		if !ok {
			return value.Nil, nil
		}
		p, ok := recv.Pairs[key.HashKey()]
		if !ok {
			return value.Nil, nil
		}
		return p.Value, nil
	default:
		return nil, fmt.Errorf("undefined method `%s' for Hash", mid)
	}
}
