// Package compiler transforms the AST the parser builds into the
// compiler's "to-array" tuple form that package code's Decode function
// consumes: a nested []any tree with instruction entries, label strings,
// and the locals/args descriptors the decoder reads by fixed position.
//
// This compiler never constructs a code.ISeq or a code.Instruction
// directly. That is exactly the boundary the execution core's decoder
// owns. Its only job is producing well-formed tuples, the same
// arm's-length relationship the host compiler has to YARV's instruction
// sequence format.
package compiler

import (
	"fmt"

	"github.com/nolang/ripvm/ast"
)

// optBinaryOpcode maps an infix operator to the opt_* binary
// mnemonic the instruction set names for it. Operators with no
// specialized opcode (only "*" among the arithmetic set, matching the
// host's own opcode table) fall back to a general opt_send_without_block.
var optBinaryOpcode = map[string]string{
	"+":  "opt_plus",
	"-":  "opt_minus",
	"/":  "opt_div",
	"%":  "opt_mod",
	"&":  "opt_and",
	"|":  "opt_or",
	"==": "opt_eq",
	">=": "opt_ge",
	">":  "opt_gt",
	"<=": "opt_le",
	"<":  "opt_lt",
}

// Compiler walks an *ast.Program and emits the top-level iseq tuple.
type Compiler struct {
	labelSeq int
}

// New creates a Compiler.
func New() *Compiler {
	return &Compiler{}
}

// Compile compiles program into the compiler's-to-array tuple for its
// top-level instruction sequence, suitable for code.Decode.
func (c *Compiler) Compile(program *ast.Program) (any, error) {
	locals := collectLocals(nil, program.Statements)
	return c.compileScope(program.Statements, locals)
}

// nextLabel returns a fresh, globally-unique label name. Reusing one
// counter across nested scopes is safe: each nested ISeq owns its own
// labels map, so uniqueness only needs to hold within one scope's
// instruction list, and a monotonic counter trivially gives that.
func (c *Compiler) nextLabel() string {
	c.labelSeq++
	return fmt.Sprintf("label_%d", c.labelSeq)
}

// compileScope compiles one ISeq's worth of statements (either the
// top-level program or one method body) into its to-array tuple. Every
// statement but the last is popped after evaluation; the last statement's
// value is left on the stack for the scope's leave.
func (c *Compiler) compileScope(stmts []ast.Statement, locals *SymbolTable) (any, error) {
	insns, err := c.compileStatementsKeepLast(stmts, locals)
	if err != nil {
		return nil, err
	}
	insns = append(insns, []any{"leave"})
	return buildTuple(localNames(locals), nil, insns), nil
}

// compileMethodScope is compileScope for a method body, threading through
// the method's argument descriptor.
func (c *Compiler) compileMethodScope(params []*ast.Identifier, stmts []ast.Statement) (any, error) {
	locals := collectLocals(params, stmts)
	insns, err := c.compileStatementsKeepLast(stmts, locals)
	if err != nil {
		return nil, err
	}
	insns = append(insns, []any{"leave"})

	var args any
	if len(params) > 0 {
		args = map[string]int{"lead_num": len(params)}
	}
	return buildTuple(localNames(locals), args, insns), nil
}

// compileStatementsKeepLast compiles stmts, popping every result but the
// last; an empty list compiles to a single pushed nil.
func (c *Compiler) compileStatementsKeepLast(stmts []ast.Statement, locals *SymbolTable) ([]any, error) {
	if len(stmts) == 0 {
		return []any{[]any{"putnil"}}, nil
	}
	var insns []any
	for i, stmt := range stmts {
		out, err := c.compileStatement(stmt, locals)
		if err != nil {
			return nil, err
		}
		insns = append(insns, out...)
		if i != len(stmts)-1 {
			insns = append(insns, []any{"pop"})
		}
	}
	return insns, nil
}

func (c *Compiler) compileStatement(stmt ast.Statement, locals *SymbolTable) ([]any, error) {
	switch node := stmt.(type) {
	case *ast.ExpressionStatement:
		return c.compileExpression(node.Expression, locals)

	case *ast.LocalAssignment:
		valueInsns, err := c.compileExpression(node.Value, locals)
		if err != nil {
			return nil, err
		}
		sym, ok := locals.Resolve(node.Name.Value)
		if !ok {
			return nil, fmt.Errorf("internal error: local %q not pre-declared", node.Name.Value)
		}
		raw := rawLocalIndex(locals.NumDefinitions(), sym.Index)
		insns := append(valueInsns, []any{"dup"}, []any{"setlocal_WC_0", raw})
		return insns, nil

	case *ast.GlobalAssignment:
		valueInsns, err := c.compileExpression(node.Value, locals)
		if err != nil {
			return nil, err
		}
		insns := append(valueInsns, []any{"dup"}, []any{"setglobal", globalName(node.Name.Name)})
		return insns, nil

	case *ast.MethodDefinition:
		nested, err := c.compileMethodScope(node.Parameters, node.Body.Statements)
		if err != nil {
			return nil, err
		}
		return []any{[]any{"definemethod", node.Name, nested}}, nil

	default:
		return nil, fmt.Errorf("compiler: unsupported statement type %T", stmt)
	}
}

func (c *Compiler) compileExpression(expr ast.Expression, locals *SymbolTable) ([]any, error) {
	switch node := expr.(type) {
	case *ast.IntegerLiteral:
		switch node.Value {
		case 0:
			return []any{[]any{"putobject_INT2FIX_0_"}}, nil
		case 1:
			return []any{[]any{"putobject_INT2FIX_1_"}}, nil
		default:
			return []any{[]any{"putobject", node.Value}}, nil
		}

	case *ast.Boolean:
		return []any{[]any{"putobject", node.Value}}, nil

	case *ast.NilLiteral:
		return []any{[]any{"putnil"}}, nil

	case *ast.StringLiteral:
		return []any{[]any{"putstring", node.Value}}, nil

	case *ast.GlobalIdentifier:
		return []any{[]any{"getglobal", globalName(node.Name)}}, nil

	case *ast.Identifier:
		if sym, ok := locals.Resolve(node.Value); ok {
			raw := rawLocalIndex(locals.NumDefinitions(), sym.Index)
			return []any{[]any{"getlocal_WC_0", raw}}, nil
		}
		// Unresolved identifiers are zero-argument self-calls, the same
		// rule the host runtime applies to a bare bareword.
		return []any{
			[]any{"putself"},
			[]any{"opt_send_without_block", []any{node.Value, 0}},
		}, nil

	case *ast.PrefixExpression:
		return c.compilePrefix(node, locals)

	case *ast.InfixExpression:
		return c.compileInfix(node, locals)

	case *ast.IndexExpression:
		left, err := c.compileExpression(node.Left, locals)
		if err != nil {
			return nil, err
		}
		idx, err := c.compileExpression(node.Index, locals)
		if err != nil {
			return nil, err
		}
		insns := append(left, idx...)
		insns = append(insns, []any{"opt_aref", []any{"[]", 1}})
		return insns, nil

	case *ast.ArrayLiteral:
		return c.compileArray(node, locals)

	case *ast.HashLiteral:
		return c.compileHash(node, locals)

	case *ast.CallExpression:
		return c.compileCall(node, locals)

	case *ast.IfExpression:
		return c.compileIf(node, locals)

	default:
		return nil, fmt.Errorf("compiler: unsupported expression type %T", expr)
	}
}

func (c *Compiler) compilePrefix(node *ast.PrefixExpression, locals *SymbolTable) ([]any, error) {
	switch node.Operator {
	case "!":
		right, err := c.compileExpression(node.Right, locals)
		if err != nil {
			return nil, err
		}
		return append(right, []any{"opt_not", []any{"not", 0}}), nil

	case "-":
		if lit, ok := node.Right.(*ast.StringLiteral); ok {
			return []any{[]any{"opt_str_uminus", lit.Value, []any{"-@", 0}}}, nil
		}
		right, err := c.compileExpression(node.Right, locals)
		if err != nil {
			return nil, err
		}
		return append(right, []any{"opt_send_without_block", []any{"-@", 0}}), nil

	default:
		return nil, fmt.Errorf("compiler: unsupported prefix operator %q", node.Operator)
	}
}

func (c *Compiler) compileInfix(node *ast.InfixExpression, locals *SymbolTable) ([]any, error) {
	left, err := c.compileExpression(node.Left, locals)
	if err != nil {
		return nil, err
	}
	right, err := c.compileExpression(node.Right, locals)
	if err != nil {
		return nil, err
	}
	insns := append(left, right...)

	if node.Operator == "!=" {
		insns = append(insns, []any{"opt_eq", []any{"==", 1}}, []any{"opt_not", []any{"not", 0}})
		return insns, nil
	}
	if opcode, ok := optBinaryOpcode[node.Operator]; ok {
		insns = append(insns, []any{opcode, []any{node.Operator, 1}})
		return insns, nil
	}
	// "*" and anything else not specialized: general method dispatch.
	insns = append(insns, []any{"opt_send_without_block", []any{node.Operator, 1}})
	return insns, nil
}

// literalFoldable reports whether expr is a constant the decoder's
// literalToValue can represent directly, making it eligible for
// duparray/duphash instead of a runtime newarray/newhash.
func literalFoldable(expr ast.Expression) (any, bool) {
	switch n := expr.(type) {
	case *ast.IntegerLiteral:
		return n.Value, true
	case *ast.StringLiteral:
		return n.Value, true
	case *ast.Boolean:
		return n.Value, true
	case *ast.NilLiteral:
		return nil, true
	default:
		return nil, false
	}
}

func (c *Compiler) compileArray(node *ast.ArrayLiteral, locals *SymbolTable) ([]any, error) {
	literals := make([]any, 0, len(node.Elements))
	allLiteral := true
	for _, el := range node.Elements {
		v, ok := literalFoldable(el)
		if !ok {
			allLiteral = false
			break
		}
		literals = append(literals, v)
	}
	if allLiteral {
		return []any{[]any{"duparray", literals}}, nil
	}

	var insns []any
	for _, el := range node.Elements {
		out, err := c.compileExpression(el, locals)
		if err != nil {
			return nil, err
		}
		insns = append(insns, out...)
	}
	insns = append(insns, []any{"newarray", len(node.Elements)})
	return insns, nil
}

func (c *Compiler) compileHash(node *ast.HashLiteral, locals *SymbolTable) ([]any, error) {
	flat := make([]any, 0, len(node.Order)*2)
	allLiteral := true
	for _, key := range node.Order {
		kv, ok := literalFoldable(key)
		if !ok {
			allLiteral = false
			break
		}
		vv, ok := literalFoldable(node.Pairs[key])
		if !ok {
			allLiteral = false
			break
		}
		flat = append(flat, kv, vv)
	}
	if allLiteral {
		return []any{[]any{"duphash", flat}}, nil
	}

	var insns []any
	for _, key := range node.Order {
		kOut, err := c.compileExpression(key, locals)
		if err != nil {
			return nil, err
		}
		vOut, err := c.compileExpression(node.Pairs[key], locals)
		if err != nil {
			return nil, err
		}
		insns = append(insns, kOut...)
		insns = append(insns, vOut...)
	}
	insns = append(insns, []any{"newhash", len(node.Order) * 2})
	return insns, nil
}

func (c *Compiler) compileCall(node *ast.CallExpression, locals *SymbolTable) ([]any, error) {
	insns := []any{[]any{"putself"}}
	for _, arg := range node.Arguments {
		out, err := c.compileExpression(arg, locals)
		if err != nil {
			return nil, err
		}
		insns = append(insns, out...)
	}
	insns = append(insns, []any{"opt_send_without_block", []any{node.Function.Value, len(node.Arguments)}})
	return insns, nil
}

// compileIf compiles both "if" and "unless": Negate swaps which block
// runs on a truthy condition, so both forms share one code path built on
// branchunless (jump when the condition is falsy).
func (c *Compiler) compileIf(node *ast.IfExpression, locals *SymbolTable) ([]any, error) {
	thenBlock, elseBlock := node.Consequence, node.Alternative
	if node.Negate {
		thenBlock, elseBlock = node.Alternative, node.Consequence
	}

	cond, err := c.compileExpression(node.Condition, locals)
	if err != nil {
		return nil, err
	}
	thenInsns, err := c.compileBlock(thenBlock, locals)
	if err != nil {
		return nil, err
	}
	elseInsns, err := c.compileBlock(elseBlock, locals)
	if err != nil {
		return nil, err
	}

	elseLabel := c.nextLabel()
	endLabel := c.nextLabel()

	insns := append([]any{}, cond...)
	insns = append(insns, []any{"branchunless", elseLabel})
	insns = append(insns, thenInsns...)
	insns = append(insns, []any{"jump", endLabel})
	insns = append(insns, elseLabel)
	insns = append(insns, elseInsns...)
	insns = append(insns, endLabel)
	return insns, nil
}

// compileBlock compiles a block used in expression position: the block's
// last statement's value is its result, and a missing or empty block
// yields nil.
func (c *Compiler) compileBlock(block *ast.BlockStatement, locals *SymbolTable) ([]any, error) {
	if block == nil {
		return []any{[]any{"putnil"}}, nil
	}
	return c.compileStatementsKeepLast(block.Statements, locals)
}

// globalName maps a GlobalIdentifier's bare name (lexer strips the "$")
// back to the "$name" key the context's globals map and host runtime use.
func globalName(name string) string { return "$" + name }

// rawLocalIndex converts a symbol table slot into the biased operand
// index getlocal_WC_0/setlocal_WC_0 expect, inverting vm.Frame.translate:
// slot = (numLocals - (raw - 3)) - 1  =>  raw = numLocals - slot + 2.
func rawLocalIndex(numLocals, slot int) int {
	return numLocals - slot + 2
}

// localNames renders a symbol table's locals in slot order for the ISeq's
// locals name list.
func localNames(locals *SymbolTable) []string {
	names := make([]string, locals.NumDefinitions())
	for name, sym := range locals.store {
		if sym.Scope == LocalScope {
			names[sym.Index] = name
		}
	}
	return names
}

// collectLocals pre-declares every local a scope will need: its
// parameters, in order, followed by every local-assignment target found
// while walking its statements, before any code is generated. This lets
// getlocal_WC_0/setlocal_WC_0 use the scope's final local count up front,
// since the biasing formula depends on it. It does not descend into a
// nested MethodDefinition's body: that is a separate scope.
func collectLocals(params []*ast.Identifier, stmts []ast.Statement) *SymbolTable {
	locals := NewSymbolTable()
	for _, p := range params {
		locals.Define(p.Value)
	}
	collectLocalsInStatements(locals, stmts)
	return locals
}

func collectLocalsInStatements(locals *SymbolTable, stmts []ast.Statement) {
	for _, stmt := range stmts {
		collectLocalsInStatement(locals, stmt)
	}
}

func collectLocalsInStatement(locals *SymbolTable, stmt ast.Statement) {
	switch node := stmt.(type) {
	case *ast.LocalAssignment:
		if _, ok := locals.Resolve(node.Name.Value); !ok {
			locals.Define(node.Name.Value)
		}
		collectLocalsInExpression(locals, node.Value)
	case *ast.GlobalAssignment:
		collectLocalsInExpression(locals, node.Value)
	case *ast.ExpressionStatement:
		collectLocalsInExpression(locals, node.Expression)
	case *ast.MethodDefinition:
		// A separate scope; its own locals are collected when it is compiled.
	}
}

func collectLocalsInExpression(locals *SymbolTable, expr ast.Expression) {
	switch node := expr.(type) {
	case *ast.PrefixExpression:
		collectLocalsInExpression(locals, node.Right)
	case *ast.InfixExpression:
		collectLocalsInExpression(locals, node.Left)
		collectLocalsInExpression(locals, node.Right)
	case *ast.IndexExpression:
		collectLocalsInExpression(locals, node.Left)
		collectLocalsInExpression(locals, node.Index)
	case *ast.CallExpression:
		for _, a := range node.Arguments {
			collectLocalsInExpression(locals, a)
		}
	case *ast.ArrayLiteral:
		for _, el := range node.Elements {
			collectLocalsInExpression(locals, el)
		}
	case *ast.HashLiteral:
		for _, key := range node.Order {
			collectLocalsInExpression(locals, key)
			collectLocalsInExpression(locals, node.Pairs[key])
		}
	case *ast.IfExpression:
		collectLocalsInExpression(locals, node.Condition)
		if node.Consequence != nil {
			collectLocalsInStatements(locals, node.Consequence.Statements)
		}
		if node.Alternative != nil {
			collectLocalsInStatements(locals, node.Alternative.Statements)
		}
	}
}

// headerLen mirrors code.Decode's expectations: a 13-element tuple with
// locals at index 10, the args descriptor at 11, and the flat
// instruction/label/line-number stream at 12. Indices 0-9 are the
// decoder-ignored header fields (magic string, version, name, path,
// absolute path, first line, iseq type, a misc placeholder); this
// compiler leaves them nil since nothing reads them back.
const headerLen = 13

func buildTuple(locals []string, args any, insns []any) []any {
	tuple := make([]any, headerLen)
	localsAny := make([]any, len(locals))
	for i, n := range locals {
		localsAny[i] = n
	}
	tuple[10] = localsAny
	tuple[11] = args
	tuple[12] = insns
	return tuple
}
