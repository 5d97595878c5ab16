package compiler

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Lexer: tokenizer with indentation tracking
// ---------------------------------------------------------------------------

// Lexer tokenizes source text. Leading whitespace at the start of a
// logical line becomes INDENT/DEDENT tokens; newlines inside brackets are
// ignored.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      rune // current character
	line    int  // current line (1-based)
	col     int  // current column (1-based)

	indents     []int
	parenDepth  int
	atLineStart bool
	pending     []Token
	lastType    TokenType
	emitted     bool
	done        bool
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input:       input,
		line:        1,
		col:         0,
		indents:     []int{0},
		atLineStart: true,
	}
	l.readChar()
	return l
}

// readChar reads the next character.
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.col = 0
	}
	if l.readPos >= len(l.input) {
		l.ch = 0 // EOF
		l.pos = len(l.input)
		l.col++
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPos:])
	l.ch = r
	l.pos = l.readPos
	l.readPos += size
	l.col++
}

// peekChar returns the next character without consuming it.
func (l *Lexer) peekChar() rune {
	if l.readPos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPos:])
	return r
}

func (l *Lexer) atEOF() bool {
	return l.pos >= len(l.input)
}

// position returns the current position.
func (l *Lexer) position() Position {
	return Position{
		Offset: l.pos,
		Line:   l.line,
		Column: l.col,
	}
}

// Tokenize returns every token of the input up to and including EOF.
func (l *Lexer) Tokenize() []Token {
	var toks []Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Type == TokenEOF || tok.Type == TokenError {
			return toks
		}
	}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	tok := l.next()
	l.lastType = tok.Type
	l.emitted = true
	return tok
}

func (l *Lexer) next() Token {
	if len(l.pending) > 0 {
		tok := l.pending[0]
		l.pending = l.pending[1:]
		return tok
	}
	if l.done {
		return Token{Type: TokenEOF, Pos: l.position(), AtEOF: true}
	}

	for l.atLineStart && l.parenDepth == 0 {
		if tok, ok := l.readIndentation(); ok {
			return tok
		}
	}

	l.skipWhitespaceAndComments()
	pos := l.position()

	if l.atEOF() {
		return l.finish(pos)
	}

	switch ch := l.ch; {
	case ch == '\n':
		l.readChar()
		if l.parenDepth > 0 {
			return l.next()
		}
		l.atLineStart = true
		return Token{Type: TokenNewline, Literal: "\n", Pos: pos}

	case ch == '(' || ch == '[' || ch == '{':
		l.parenDepth++
		l.readChar()
		return Token{Type: bracketTokens[ch], Literal: string(ch), Pos: pos}

	case ch == ')' || ch == ']' || ch == '}':
		if l.parenDepth > 0 {
			l.parenDepth--
		}
		l.readChar()
		return Token{Type: bracketTokens[ch], Literal: string(ch), Pos: pos}

	case ch == '\'' || ch == '"':
		return l.readString(pos)

	case isDigit(ch) || (ch == '.' && isDigit(l.peekChar())):
		return l.readNumber(pos)

	case isLetter(ch):
		return l.readIdentifierOrKeyword(pos)
	}

	return l.readOperator(pos)
}

// readIndentation measures the indentation of a new logical line. Blank
// and comment-only lines are skipped; ok is false when no layout token
// results and the caller should continue scanning.
func (l *Lexer) readIndentation() (Token, bool) {
	width := 0
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\f' {
		switch l.ch {
		case ' ':
			width++
		case '\t':
			width = (width/8 + 1) * 8
		}
		l.readChar()
	}
	pos := l.position()

	if l.atEOF() {
		l.atLineStart = false
		return Token{}, false
	}
	if l.ch == '#' || l.ch == '\n' || l.ch == '\r' {
		for l.ch != '\n' && !l.atEOF() {
			l.readChar()
		}
		if l.ch == '\n' {
			l.readChar()
		}
		return Token{}, false
	}
	l.atLineStart = false

	top := l.indents[len(l.indents)-1]
	switch {
	case width > top:
		l.indents = append(l.indents, width)
		return Token{Type: TokenIndent, Pos: pos}, true
	case width < top:
		var dedents []Token
		for len(l.indents) > 1 && l.indents[len(l.indents)-1] > width {
			l.indents = l.indents[:len(l.indents)-1]
			dedents = append(dedents, Token{Type: TokenDedent, Pos: pos})
		}
		if l.indents[len(l.indents)-1] != width {
			return Token{Type: TokenError, Literal: "unindent does not match any outer indentation level", Pos: pos}, true
		}
		l.pending = append(l.pending, dedents[1:]...)
		return dedents[0], true
	}
	return Token{}, false
}

// finish emits the closing layout tokens at end of input.
func (l *Lexer) finish(pos Position) Token {
	l.done = true
	if l.parenDepth == 0 {
		if l.emitted && l.lastType != TokenNewline && l.lastType != TokenDedent {
			l.pending = append(l.pending, Token{Type: TokenNewline, Pos: pos, AtEOF: true})
		}
		for len(l.indents) > 1 {
			l.indents = l.indents[:len(l.indents)-1]
			l.pending = append(l.pending, Token{Type: TokenDedent, Pos: pos, AtEOF: true})
		}
	}
	l.pending = append(l.pending, Token{Type: TokenEOF, Pos: pos, AtEOF: true})
	return l.next()
}

// skipWhitespaceAndComments skips blanks, comments and explicit line
// continuations. Newlines are significant and left in place.
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\f':
			l.readChar()
		case l.ch == '\\' && l.peekChar() == '\n':
			l.readChar()
			l.readChar()
		case l.ch == '\n' && l.parenDepth > 0:
			l.readChar()
		case l.ch == '#':
			for l.ch != '\n' && !l.atEOF() {
				l.readChar()
			}
		default:
			return
		}
	}
}

// readIdentifierOrKeyword reads an identifier or reserved word.
func (l *Lexer) readIdentifierOrKeyword(pos Position) Token {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	word := l.input[start:l.pos]

	// String prefixes: r'..', b'..' and friends.
	if (l.ch == '\'' || l.ch == '"') && isStringPrefix(word) {
		tok := l.readString(pos)
		if strings.ContainsAny(word, "rR") && tok.Type == TokenString {
			tok.Literal = rawStringBody(l.input[pos.Offset:l.pos], len(word))
		}
		return tok
	}

	if tt, ok := keywords[word]; ok {
		return Token{Type: tt, Literal: word, Pos: pos}
	}
	return Token{Type: TokenIdentifier, Literal: word, Pos: pos}
}

func isStringPrefix(s string) bool {
	switch strings.ToLower(s) {
	case "r", "b", "u", "br", "rb":
		return true
	}
	return false
}

// rawStringBody extracts a raw string's text without escape processing.
func rawStringBody(text string, prefixLen int) string {
	body := text[prefixLen:]
	q := 1
	if len(body) >= 6 && (strings.HasPrefix(body, `"""`) || strings.HasPrefix(body, "'''")) {
		q = 3
	}
	return body[q : len(body)-q]
}

// readNumber reads an integer or float literal.
func (l *Lexer) readNumber(pos Position) Token {
	start := l.pos

	if l.ch == '0' && strings.ContainsRune("xXoObB", l.peekChar()) {
		l.readChar()
		l.readChar()
		for isHexDigit(l.ch) || l.ch == '_' {
			l.readChar()
		}
		return Token{Type: TokenInteger, Literal: l.input[start:l.pos], Pos: pos}
	}

	isFloat := false
	for isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	if l.ch == '.' {
		isFloat = true
		l.readChar()
		for isDigit(l.ch) || l.ch == '_' {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		next := l.peekChar()
		if isDigit(next) || next == '+' || next == '-' {
			isFloat = true
			l.readChar()
			if l.ch == '+' || l.ch == '-' {
				l.readChar()
			}
			for isDigit(l.ch) {
				l.readChar()
			}
		}
	}

	if isFloat {
		return Token{Type: TokenFloat, Literal: l.input[start:l.pos], Pos: pos}
	}
	return Token{Type: TokenInteger, Literal: l.input[start:l.pos], Pos: pos}
}

// readString reads a quoted string literal, decoding escapes.
func (l *Lexer) readString(pos Position) Token {
	quote := l.ch
	triple := false
	if l.peekChar() == quote && l.readPos+1 < len(l.input) && rune(l.input[l.readPos+1]) == quote {
		triple = true
		l.readChar()
		l.readChar()
	}
	l.readChar() // opening quote

	var sb strings.Builder
	for {
		if l.atEOF() {
			if triple {
				return Token{Type: TokenError, Literal: "EOF while scanning triple-quoted string literal", Pos: pos, AtEOF: true}
			}
			return Token{Type: TokenError, Literal: "EOL while scanning string literal", Pos: pos}
		}
		if l.ch == '\n' && !triple {
			return Token{Type: TokenError, Literal: "EOL while scanning string literal", Pos: pos}
		}
		if l.ch == quote {
			if !triple {
				l.readChar()
				break
			}
			if l.peekChar() == quote && l.readPos+1 < len(l.input) && rune(l.input[l.readPos+1]) == quote {
				l.readChar()
				l.readChar()
				l.readChar()
				break
			}
		}
		if l.ch == '\\' {
			l.readChar()
			if l.atEOF() {
				continue
			}
			if err := l.readEscape(&sb); err != "" {
				return Token{Type: TokenError, Literal: err, Pos: pos}
			}
			continue
		}
		sb.WriteRune(l.ch)
		l.readChar()
	}

	return Token{Type: TokenString, Literal: sb.String(), Pos: pos}
}

// readEscape decodes one escape sequence; the backslash is already consumed.
func (l *Lexer) readEscape(sb *strings.Builder) string {
	switch l.ch {
	case 'n':
		sb.WriteByte('\n')
	case 't':
		sb.WriteByte('\t')
	case 'r':
		sb.WriteByte('\r')
	case '0':
		sb.WriteByte(0)
	case '\\', '\'', '"':
		sb.WriteRune(l.ch)
	case '\n':
		// line continuation inside the literal
	case 'x':
		l.readChar()
		hi, lo := l.ch, l.peekChar()
		if !isHexDigit(hi) || !isHexDigit(lo) {
			return "truncated \\xXX escape"
		}
		l.readChar()
		sb.WriteRune(rune(hexVal(hi)<<4 | hexVal(lo)))
	default:
		sb.WriteByte('\\')
		sb.WriteRune(l.ch)
	}
	l.readChar()
	return ""
}

var bracketTokens = map[rune]TokenType{
	'(': TokenLParen,
	')': TokenRParen,
	'[': TokenLBracket,
	']': TokenRBracket,
	'{': TokenLBrace,
	'}': TokenRBrace,
}

// operators lists operator spellings, longest first.
var operators = []struct {
	text string
	tt   TokenType
}{
	{"**=", TokenDoubleStarAssign},
	{"//=", TokenDoubleSlashAssign},
	{"**", TokenDoubleStar},
	{"//", TokenDoubleSlash},
	{"==", TokenEq},
	{"!=", TokenNe},
	{"<=", TokenLe},
	{">=", TokenGe},
	{"+=", TokenPlusAssign},
	{"-=", TokenMinusAssign},
	{"*=", TokenStarAssign},
	{"/=", TokenSlashAssign},
	{"%=", TokenPercentAssign},
	{"+", TokenPlus},
	{"-", TokenMinus},
	{"*", TokenStar},
	{"/", TokenSlash},
	{"%", TokenPercent},
	{"<", TokenLt},
	{">", TokenGt},
	{"=", TokenAssign},
	{",", TokenComma},
	{":", TokenColon},
	{";", TokenSemicolon},
	{".", TokenDot},
}

// readOperator reads an operator or punctuation token.
func (l *Lexer) readOperator(pos Position) Token {
	rest := l.input[l.pos:]
	for _, op := range operators {
		if strings.HasPrefix(rest, op.text) {
			for range op.text {
				l.readChar()
			}
			return Token{Type: op.tt, Literal: op.text, Pos: pos}
		}
	}
	ch := l.ch
	l.readChar()
	return Token{Type: TokenError, Literal: fmt.Sprintf("invalid character %q", ch), Pos: pos}
}

func isLetter(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isHexDigit(r rune) bool {
	return isDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

func hexVal(r rune) int {
	switch {
	case r >= '0' && r <= '9':
		return int(r - '0')
	case r >= 'a' && r <= 'f':
		return int(r-'a') + 10
	default:
		return int(r-'A') + 10
	}
}
