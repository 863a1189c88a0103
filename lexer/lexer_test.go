package lexer

import (
	"testing"

	"github.com/nolang/ripvm/token"
)

func TestNextToken(t *testing.T) {
	input := `def add(x, y)
  x + y
end
$g = 5
p $g
puts 'foo'
p(-'string')
2 / 3 | 4 % 5 & 6
5 <= 10 >= 5
10 == 10
10 != 9
"foo bar"
[1, 2]
`
	tests := []struct {
		expectedType    token.Type
		expectedLiteral string
	}{
		{token.Def, "def"},
		{token.Ident, "add"},
		{token.Lparen, "("},
		{token.Ident, "x"},
		{token.Comma, ","},
		{token.Ident, "y"},
		{token.Rparen, ")"},
		{token.Ident, "x"},
		{token.Plus, "+"},
		{token.Ident, "y"},
		{token.End, "end"},
		{token.Global, "g"},
		{token.Assign, "="},
		{token.Int, "5"},
		{token.Ident, "p"},
		{token.Global, "g"},
		{token.Ident, "puts"},
		{token.String, "foo"},
		{token.Ident, "p"},
		{token.Lparen, "("},
		{token.Minus, "-"},
		{token.String, "string"},
		{token.Rparen, ")"},
		{token.Int, "2"},
		{token.Slash, "/"},
		{token.Int, "3"},
		{token.Pipe, "|"},
		{token.Int, "4"},
		{token.Percent, "%"},
		{token.Int, "5"},
		{token.Amp, "&"},
		{token.Int, "6"},
		{token.Int, "5"},
		{token.Lte, "<="},
		{token.Int, "10"},
		{token.Gte, ">="},
		{token.Int, "5"},
		{token.Int, "10"},
		{token.Eq, "=="},
		{token.Int, "10"},
		{token.Int, "10"},
		{token.NotEq, "!="},
		{token.Int, "9"},
		{token.String, "foo bar"},
		{token.Lbracket, "["},
		{token.Int, "1"},
		{token.Comma, ","},
		{token.Int, "2"},
		{token.Rbracket, "]"},
		{token.EOF, ""},
	}

	l := New(input)

	for i, tt := range tests {
		tok := l.NextToken()

		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q",
				i, tt.expectedType, tok.Type)
		}

		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q",
				i, tt.expectedLiteral, tok.Literal)
		}
	}
}

// TestComments ensures that `#` line comments are ignored by the lexer
// whether they appear at end-of-line, on their own line, or directly after
// code.
func TestComments(t *testing.T) {
	input := `$a = 1 # comment
# full line comment
$b = 2 # another
$c = 3 #no space
# comment at EOF`

	tests := []struct {
		expectedType    token.Type
		expectedLiteral string
	}{
		{token.Global, "a"},
		{token.Assign, "="},
		{token.Int, "1"},
		{token.Global, "b"},
		{token.Assign, "="},
		{token.Int, "2"},
		{token.Global, "c"},
		{token.Assign, "="},
		{token.Int, "3"},
		{token.EOF, ""},
	}

	l := New(input)

	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q", i, tt.expectedType, tok.Type)
		}
		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q", i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestStringEscapesDoubleQuoted(t *testing.T) {
	input := `"hello\nworld" "tab:\tend" "quote:\"inner\"" "backslash:\\"`

	tests := []struct {
		expectedType    token.Type
		expectedLiteral string
	}{
		{token.String, "hello\nworld"},
		{token.String, "tab:\tend"},
		{token.String, "quote:\"inner\""},
		{token.String, "backslash:\\"},
		{token.EOF, ""},
	}

	l := New(input)

	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q", i, tt.expectedType, tok.Type)
		}
		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q", i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestSingleQuotedStringsAreLiteral(t *testing.T) {
	input := `'no \n escapes here' 'it\'s fine'`

	tests := []struct {
		expectedType    token.Type
		expectedLiteral string
	}{
		{token.String, `no \n escapes here`},
		{token.String, `it's fine`},
		{token.EOF, ""},
	}

	l := New(input)

	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q", i, tt.expectedType, tok.Type)
		}
		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q", i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestUnterminatedString(t *testing.T) {
	input := `"no end`

	l := New(input)

	tok := l.NextToken()
	if tok.Type != token.Illegal {
		t.Fatalf("expected ILLEGAL token for unterminated string, got %q", tok.Type)
	}
	if tok.Literal != "unterminated string" {
		t.Fatalf("expected literal 'unterminated string', got %q", tok.Literal)
	}
}

func TestSingleSlashAtEOF(t *testing.T) {
	input := `/`

	l := New(input)

	tok := l.NextToken()
	if tok.Type != token.Slash || tok.Literal != "/" {
		t.Fatalf("expected single slash token, got type=%q literal=%q", tok.Type, tok.Literal)
	}

	tok = l.NextToken()
	if tok.Type != token.EOF {
		t.Fatalf("expected EOF after single slash, got %q", tok.Type)
	}
}
