// Package parser implements the syntactic analyzer for the source language:
// a small Ruby-like subset with top-level statements, method definitions,
// if/unless expressions, and global/local assignment.
//
// It implements a recursive descent parser with Pratt parsing (precedence
// climbing) for expressions, adapted to a grammar with no braces or
// semicolons required: blocks are terminated by a keyword ("end"/"else")
// rather than "}", and a bare identifier followed directly by another
// expression is a command-form method call ("puts 'foo'") rather than a
// syntax error.
package parser

import (
	"fmt"
	"strconv"

	"github.com/nolang/ripvm/ast"
	"github.com/nolang/ripvm/lexer"
	"github.com/nolang/ripvm/token"
)

const (
	_ int = iota

	// Lowest is the lowest possible precedence for parsing expressions.
	Lowest

	// Equals is the precedence for the equality operators.
	Equals // == !=

	// LessGreater is the precedence for ordering operators.
	LessGreater // > < >= <=

	// BitOr is the precedence for bitwise or.
	BitOr // |

	// BitAnd is the precedence for bitwise and.
	BitAnd // &

	// Sum is the precedence for addition and subtraction.
	Sum // + -

	// Product is the precedence for multiplication, division, modulo.
	Product // * / %

	// Prefix is the precedence for prefix operators.
	Prefix // -x or !x

	// Call is the precedence for function calls.
	Call // myFunc(x)

	// Index is the precedence for array/hash indexing.
	Index // array[index]
)

// precedences maps token types to their respective precedence levels.
var precedences = map[token.Type]int{
	token.Eq:       Equals,
	token.NotEq:    Equals,
	token.Lt:       LessGreater,
	token.Lte:      LessGreater,
	token.Gt:       LessGreater,
	token.Gte:      LessGreater,
	token.Pipe:     BitOr,
	token.Amp:      BitAnd,
	token.Plus:     Sum,
	token.Minus:    Sum,
	token.Slash:    Product,
	token.Asterisk: Product,
	token.Percent:  Product,
	token.Lparen:   Call,
	token.Lbracket: Index,
}

// commandArgStart is the set of token types that, appearing immediately
// after a bare identifier, signal a command-form call ("puts 'foo'")
// rather than a standalone variable reference. Lbracket and Minus are
// deliberately excluded: both are ambiguous with indexing ("a[0]") and
// infix subtraction ("x - 1") respectively, and this grammar has no
// whitespace-sensitivity to disambiguate them the way the host language
// does, so command calls with those first arguments require parens.
var commandArgStart = map[token.Type]bool{
	token.Int:    true,
	token.String: true,
	token.True:   true,
	token.False:  true,
	token.Nil:    true,
	token.Global: true,
	token.Ident:  true,
	token.Bang:   true,
}

type (
	prefixParseFn func() ast.Expression
	infixParseFn  func(ast.Expression) ast.Expression
)

// Parser turns a lexer's token stream into an *ast.Program.
type Parser struct {
	l      *lexer.Lexer
	errors []string

	currentToken token.Token
	peekToken    token.Token

	prefixParseFns map[token.Type]prefixParseFn
	infixParseFns  map[token.Type]infixParseFn
}

// New creates a Parser over l.
func New(l *lexer.Lexer) *Parser {
	p := &Parser{
		l:      l,
		errors: []string{},
	}

	p.prefixParseFns = make(map[token.Type]prefixParseFn)
	p.registerPrefix(token.Ident, p.parseIdentifier)
	p.registerPrefix(token.Global, p.parseGlobalIdentifier)
	p.registerPrefix(token.Int, p.parseIntegerLiteral)
	p.registerPrefix(token.Bang, p.parsePrefixExpression)
	p.registerPrefix(token.Minus, p.parsePrefixExpression)
	p.registerPrefix(token.True, p.parseBoolean)
	p.registerPrefix(token.False, p.parseBoolean)
	p.registerPrefix(token.Nil, p.parseNilLiteral)
	p.registerPrefix(token.Lparen, p.parseGroupedExpression)
	p.registerPrefix(token.If, p.parseIfExpression)
	p.registerPrefix(token.Unless, p.parseIfExpression)
	p.registerPrefix(token.String, p.parseStringLiteral)
	p.registerPrefix(token.Lbracket, p.parseArrayLiteral)
	p.registerPrefix(token.Lbrace, p.parseHashLiteral)

	p.infixParseFns = make(map[token.Type]infixParseFn)
	p.registerInfix(token.Plus, p.parseInfixExpression)
	p.registerInfix(token.Minus, p.parseInfixExpression)
	p.registerInfix(token.Slash, p.parseInfixExpression)
	p.registerInfix(token.Asterisk, p.parseInfixExpression)
	p.registerInfix(token.Percent, p.parseInfixExpression)
	p.registerInfix(token.Amp, p.parseInfixExpression)
	p.registerInfix(token.Pipe, p.parseInfixExpression)
	p.registerInfix(token.Eq, p.parseInfixExpression)
	p.registerInfix(token.NotEq, p.parseInfixExpression)
	p.registerInfix(token.Lt, p.parseInfixExpression)
	p.registerInfix(token.Lte, p.parseInfixExpression)
	p.registerInfix(token.Gt, p.parseInfixExpression)
	p.registerInfix(token.Gte, p.parseInfixExpression)
	p.registerInfix(token.Lparen, p.parseCallExpression)
	p.registerInfix(token.Lbracket, p.parseIndexExpression)

	// Read two tokens, so currentToken and peekToken are both set.
	p.nextToken()
	p.nextToken()

	return p
}

func (p *Parser) registerPrefix(t token.Type, fn prefixParseFn) { p.prefixParseFns[t] = fn }
func (p *Parser) registerInfix(t token.Type, fn infixParseFn)   { p.infixParseFns[t] = fn }

// Errors returns the list of errors encountered during parsing.
func (p *Parser) Errors() []string { return p.errors }

func (p *Parser) peekError(t token.Type) {
	msg := fmt.Sprintf("expected next token to be %s, got %s instead", t, p.peekToken.Type)
	p.errors = append(p.errors, msg)
}

func (p *Parser) peekPrecedence() int {
	if pr, ok := precedences[p.peekToken.Type]; ok {
		return pr
	}
	return Lowest
}

func (p *Parser) curPrecedence() int {
	if pr, ok := precedences[p.currentToken.Type]; ok {
		return pr
	}
	return Lowest
}

func (p *Parser) nextToken() {
	p.currentToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) currentTokenIs(t token.Type) bool { return p.currentToken.Type == t }
func (p *Parser) peekTokenIs(t token.Type) bool    { return p.peekToken.Type == t }

func (p *Parser) expectPeek(t token.Type) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(t)
	return false
}

// ParseProgram parses a complete program and returns its AST. Check
// [Parser.Errors] afterward to see whether any parsing errors occurred.
func (p *Parser) ParseProgram() *ast.Program {
	program := &ast.Program{}

	for !p.currentTokenIs(token.EOF) {
		if p.currentTokenIs(token.Semicolon) {
			p.nextToken()
			continue
		}
		if stmt := p.parseStatement(); stmt != nil {
			program.Statements = append(program.Statements, stmt)
		}
		p.nextToken()
	}
	return program
}

// isBlockEnd reports whether t terminates an enclosing block: "end" closes
// every block, "else" additionally closes an if-expression's consequence.
func isBlockEnd(t token.Type) bool {
	return t == token.End || t == token.Else || t == token.EOF
}

func (p *Parser) parseStatement() ast.Statement {
	switch {
	case p.currentTokenIs(token.Def):
		return p.parseMethodDefinition()
	case p.currentTokenIs(token.Global) && p.peekTokenIs(token.Assign):
		return p.parseGlobalAssignment()
	case p.currentTokenIs(token.Ident) && p.peekTokenIs(token.Assign):
		return p.parseLocalAssignment()
	default:
		return p.parseExpressionStatement()
	}
}

func (p *Parser) parseGlobalAssignment() ast.Statement {
	stmt := &ast.GlobalAssignment{
		Token: p.currentToken,
		Name:  &ast.GlobalIdentifier{Token: p.currentToken, Name: p.currentToken.Literal},
	}
	p.nextToken() // consume "="
	p.nextToken()
	stmt.Value = p.parseExpression(Lowest)
	if p.peekTokenIs(token.Semicolon) {
		p.nextToken()
	}
	return stmt
}

func (p *Parser) parseLocalAssignment() ast.Statement {
	stmt := &ast.LocalAssignment{
		Token: p.currentToken,
		Name:  &ast.Identifier{Token: p.currentToken, Value: p.currentToken.Literal},
	}
	p.nextToken() // consume "="
	p.nextToken()
	stmt.Value = p.parseExpression(Lowest)
	if p.peekTokenIs(token.Semicolon) {
		p.nextToken()
	}
	return stmt
}

func (p *Parser) parseMethodDefinition() ast.Statement {
	def := &ast.MethodDefinition{Token: p.currentToken}

	if !p.expectPeek(token.Ident) {
		return nil
	}
	def.Name = p.currentToken.Literal

	if p.peekTokenIs(token.Lparen) {
		p.nextToken()
		def.Parameters = p.parseMethodParameters()
	}

	def.Body = p.parseBlockStatement()
	if !p.currentTokenIs(token.End) {
		p.peekError(token.End)
		return nil
	}
	return def
}

func (p *Parser) parseMethodParameters() []*ast.Identifier {
	var params []*ast.Identifier

	if p.peekTokenIs(token.Rparen) {
		p.nextToken()
		return params
	}
	p.nextToken()
	params = append(params, &ast.Identifier{Token: p.currentToken, Value: p.currentToken.Literal})

	for p.peekTokenIs(token.Comma) {
		p.nextToken()
		p.nextToken()
		params = append(params, &ast.Identifier{Token: p.currentToken, Value: p.currentToken.Literal})
	}

	if !p.expectPeek(token.Rparen) {
		return nil
	}
	return params
}

// parseBlockStatement parses statements up to (but not past) a block
// terminator ("end" or "else"); the caller decides what to do with
// whichever terminator it finds, which is left as currentToken.
func (p *Parser) parseBlockStatement() *ast.BlockStatement {
	block := &ast.BlockStatement{Token: p.currentToken}
	p.nextToken()

	for !isBlockEnd(p.currentToken.Type) {
		if p.currentTokenIs(token.Semicolon) {
			p.nextToken()
			continue
		}
		stmt := p.parseStatement()
		if stmt != nil {
			block.Statements = append(block.Statements, stmt)
		}
		p.nextToken()
	}
	return block
}

func (p *Parser) parseExpressionStatement() *ast.ExpressionStatement {
	stmt := &ast.ExpressionStatement{Token: p.currentToken}
	stmt.Expression = p.parseExpression(Lowest)
	if p.peekTokenIs(token.Semicolon) {
		p.nextToken()
	}
	return stmt
}

func (p *Parser) parseExpression(precedence int) ast.Expression {
	prefix := p.prefixParseFns[p.currentToken.Type]
	if prefix == nil {
		p.noPrefixParseFnError(p.currentToken.Type)
		return nil
	}
	leftExp := prefix()

	for !p.peekTokenIs(token.Semicolon) && precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return leftExp
		}
		p.nextToken()
		leftExp = infix(leftExp)
	}
	return leftExp
}

func (p *Parser) noPrefixParseFnError(t token.Type) {
	p.errors = append(p.errors, fmt.Sprintf("no prefix parse function for %s found", t))
}

// parseIdentifier handles a bare identifier in prefix position. If it is
// immediately followed by the start of another expression, it is a
// command-form call ("puts 'foo'", "p 2 + 3"); otherwise it is a plain
// variable/zero-arg-call reference, resolved by the compiler.
func (p *Parser) parseIdentifier() ast.Expression {
	ident := &ast.Identifier{Token: p.currentToken, Value: p.currentToken.Literal}

	if commandArgStart[p.peekToken.Type] {
		call := &ast.CallExpression{Token: p.currentToken, Function: ident}
		p.nextToken()
		call.Arguments = append(call.Arguments, p.parseExpression(Lowest))
		for p.peekTokenIs(token.Comma) {
			p.nextToken()
			p.nextToken()
			call.Arguments = append(call.Arguments, p.parseExpression(Lowest))
		}
		return call
	}
	return ident
}

func (p *Parser) parseGlobalIdentifier() ast.Expression {
	return &ast.GlobalIdentifier{Token: p.currentToken, Name: p.currentToken.Literal}
}

func (p *Parser) parseBoolean() ast.Expression {
	return &ast.Boolean{Token: p.currentToken, Value: p.currentTokenIs(token.True)}
}

func (p *Parser) parseNilLiteral() ast.Expression {
	return &ast.NilLiteral{Token: p.currentToken}
}

func (p *Parser) parseIntegerLiteral() ast.Expression {
	lit := &ast.IntegerLiteral{Token: p.currentToken}
	v, err := strconv.ParseInt(p.currentToken.Literal, 0, 64)
	if err != nil {
		p.errors = append(p.errors, fmt.Sprintf("could not parse %q as integer", p.currentToken.Literal))
		return nil
	}
	lit.Value = v
	return lit
}

func (p *Parser) parsePrefixExpression() ast.Expression {
	expr := &ast.PrefixExpression{Token: p.currentToken, Operator: p.currentToken.Literal}
	p.nextToken()
	expr.Right = p.parseExpression(Prefix)
	return expr
}

func (p *Parser) parseInfixExpression(left ast.Expression) ast.Expression {
	expr := &ast.InfixExpression{Token: p.currentToken, Operator: p.currentToken.Literal, Left: left}
	precedence := p.curPrecedence()
	p.nextToken()
	expr.Right = p.parseExpression(precedence)
	return expr
}

func (p *Parser) parseGroupedExpression() ast.Expression {
	p.nextToken()
	exp := p.parseExpression(Lowest)
	if !p.expectPeek(token.Rparen) {
		return nil
	}
	return exp
}

// parseIfExpression parses both "if ... [else ...] end" and
// "unless ... [else ...] end"; Negate records which keyword introduced it.
func (p *Parser) parseIfExpression() ast.Expression {
	expr := &ast.IfExpression{Token: p.currentToken, Negate: p.currentTokenIs(token.Unless)}
	p.nextToken()
	expr.Condition = p.parseExpression(Lowest)
	if p.peekTokenIs(token.Semicolon) {
		p.nextToken()
	}

	expr.Consequence = p.parseBlockStatement()
	if p.currentTokenIs(token.Else) {
		expr.Alternative = p.parseBlockStatement()
	}
	if !p.currentTokenIs(token.End) {
		p.peekError(token.End)
		return nil
	}
	return expr
}

func (p *Parser) parseStringLiteral() ast.Expression {
	return &ast.StringLiteral{Token: p.currentToken, Value: p.currentToken.Literal}
}

func (p *Parser) parseArrayLiteral() ast.Expression {
	arr := &ast.ArrayLiteral{Token: p.currentToken}
	arr.Elements = p.parseExpressionList(token.Rbracket)
	return arr
}

func (p *Parser) parseExpressionList(end token.Type) []ast.Expression {
	var list []ast.Expression

	if p.peekTokenIs(end) {
		p.nextToken()
		return list
	}

	p.nextToken()
	list = append(list, p.parseExpression(Lowest))

	for p.peekTokenIs(token.Comma) {
		p.nextToken()
		p.nextToken()
		list = append(list, p.parseExpression(Lowest))
	}

	if !p.expectPeek(end) {
		return nil
	}
	return list
}

func (p *Parser) parseCallExpression(function ast.Expression) ast.Expression {
	ident, ok := function.(*ast.Identifier)
	if !ok {
		p.errors = append(p.errors, "call target must be a plain method name")
		return nil
	}
	exp := &ast.CallExpression{Token: p.currentToken, Function: ident}
	exp.Arguments = p.parseExpressionList(token.Rparen)
	return exp
}

func (p *Parser) parseIndexExpression(left ast.Expression) ast.Expression {
	exp := &ast.IndexExpression{Token: p.currentToken, Left: left}
	p.nextToken()
	exp.Index = p.parseExpression(Lowest)
	if !p.expectPeek(token.Rbracket) {
		return nil
	}
	return exp
}

func (p *Parser) parseHashLiteral() ast.Expression {
	hash := &ast.HashLiteral{Token: p.currentToken, Pairs: make(map[ast.Expression]ast.Expression)}

	for !p.peekTokenIs(token.Rbrace) {
		p.nextToken()
		key := p.parseExpression(Lowest)

		if !p.expectPeek(token.Colon) {
			return nil
		}

		p.nextToken()
		value := p.parseExpression(Lowest)
		hash.Pairs[key] = value
		hash.Order = append(hash.Order, key)

		if !p.peekTokenIs(token.Rbrace) && !p.expectPeek(token.Comma) {
			return nil
		}
	}

	if !p.expectPeek(token.Rbrace) {
		return nil
	}
	return hash
}
