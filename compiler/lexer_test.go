package compiler

import (
	"testing"
)

func tokenTypes(src string) []TokenType {
	var out []TokenType
	for _, tok := range NewLexer(src).Tokenize() {
		out = append(out, tok.Type)
	}
	return out
}

func sameTypes(a, b []TokenType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestLexerIndentation(t *testing.T) {
	src := "if x:\n    y = 1\n\n    # comment\n    z\nw\n"
	want := []TokenType{
		TokenIf, TokenIdentifier, TokenColon, TokenNewline,
		TokenIndent, TokenIdentifier, TokenAssign, TokenInteger, TokenNewline,
		TokenIdentifier, TokenNewline,
		TokenDedent, TokenIdentifier, TokenNewline,
		TokenEOF,
	}
	if got := tokenTypes(src); !sameTypes(got, want) {
		t.Errorf("tokens = %v\nwant     %v", got, want)
	}
}

func TestLexerClosesBlocksAtEOF(t *testing.T) {
	toks := NewLexer("def f():\n  return 1").Tokenize()
	n := len(toks)
	if toks[n-1].Type != TokenEOF || toks[n-2].Type != TokenDedent || toks[n-3].Type != TokenNewline {
		t.Fatalf("tail = %v", toks[n-3:])
	}
	if !toks[n-2].AtEOF || !toks[n-3].AtEOF {
		t.Error("synthesized layout tokens should be marked AtEOF")
	}
}

func TestLexerIgnoresNewlinesInBrackets(t *testing.T) {
	want := []TokenType{
		TokenIdentifier, TokenAssign, TokenLParen, TokenInteger, TokenComma,
		TokenInteger, TokenRParen, TokenNewline, TokenEOF,
	}
	if got := tokenTypes("x = (1,\n     2)\n"); !sameTypes(got, want) {
		t.Errorf("tokens = %v, want %v", got, want)
	}
}

func TestLexerOpenBracketAtEOF(t *testing.T) {
	want := []TokenType{TokenLParen, TokenEOF}
	if got := tokenTypes("(\n"); !sameTypes(got, want) {
		t.Errorf("tokens = %v, want %v", got, want)
	}
}

func TestLexerLiterals(t *testing.T) {
	tests := []struct {
		src     string
		typ     TokenType
		literal string
	}{
		{"42", TokenInteger, "42"},
		{"0xFF", TokenInteger, "0xFF"},
		{"3.25", TokenFloat, "3.25"},
		{"1e3", TokenFloat, "1e3"},
		{".5", TokenFloat, ".5"},
		{`'a\tb'`, TokenString, "a\tb"},
		{`"it's"`, TokenString, "it's"},
		{`'\x41'`, TokenString, "A"},
		{"'''a\nb'''", TokenString, "a\nb"},
		{`r'\n'`, TokenString, `\n`},
		{"None", TokenNone, "None"},
		{"lambda_", TokenIdentifier, "lambda_"},
	}
	for _, tt := range tests {
		tok := NewLexer(tt.src).NextToken()
		if tok.Type != tt.typ || tok.Literal != tt.literal {
			t.Errorf("%q: got %s %q, want %s %q", tt.src, tok.Type, tok.Literal, tt.typ, tt.literal)
		}
	}
}

func TestLexerOperators(t *testing.T) {
	want := []TokenType{
		TokenDoubleStar, TokenDoubleSlashAssign, TokenNe, TokenLe, TokenDoubleSlash,
		TokenPercent, TokenNewline, TokenEOF,
	}
	if got := tokenTypes("** //= != <= // %"); !sameTypes(got, want) {
		t.Errorf("tokens = %v, want %v", got, want)
	}
}

func TestLexerErrors(t *testing.T) {
	tests := []struct {
		src   string
		atEOF bool
	}{
		{"'abc\n", false},
		{"'''abc", true},
		{"if x:\n    a\n  b\n", false},
		{"$", false},
	}
	for _, tt := range tests {
		toks := NewLexer(tt.src).Tokenize()
		last := toks[len(toks)-1]
		if last.Type != TokenError {
			t.Errorf("%q: last token = %v, want error", tt.src, last)
			continue
		}
		if last.AtEOF != tt.atEOF {
			t.Errorf("%q: AtEOF = %v, want %v", tt.src, last.AtEOF, tt.atEOF)
		}
	}
}

func TestLexerPositions(t *testing.T) {
	toks := NewLexer("a\n  bb").Tokenize()
	// a NEWLINE INDENT bb
	if toks[0].Pos.Line != 1 || toks[0].Pos.Column != 1 {
		t.Errorf("a at %d:%d", toks[0].Pos.Line, toks[0].Pos.Column)
	}
	if toks[3].Literal != "bb" || toks[3].Pos.Line != 2 || toks[3].Pos.Column != 3 {
		t.Errorf("bb token = %v at %d:%d", toks[3], toks[3].Pos.Line, toks[3].Pos.Column)
	}
}
