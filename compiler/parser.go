package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chazu/serpent/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// Parser: recursive descent over the token stream
// ---------------------------------------------------------------------------

// Parser parses source text into an AST. Parsing stops at the first error.
type Parser struct {
	lexer     *Lexer
	curToken  Token
	peekToken Token
	filename  string
	err       *Error
	started   bool
}

// NewParser creates a new parser for the given input.
func NewParser(input, filename string) *Parser {
	p := &Parser{
		lexer:    NewLexer(input),
		filename: filename,
	}
	// Read two tokens to fill curToken and peekToken
	p.nextToken()
	p.nextToken()
	return p
}

// nextToken advances to the next token.
func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	if p.started && p.curToken.Type == TokenError {
		p.failAt(p.curToken, p.curToken.Literal)
	}
	p.peekToken = p.lexer.NextToken()
}

// curTokenIs checks if the current token is of the given type.
func (p *Parser) curTokenIs(t TokenType) bool {
	return p.curToken.Type == t
}

// peekTokenIs checks if the peek token is of the given type.
func (p *Parser) peekTokenIs(t TokenType) bool {
	return p.peekToken.Type == t
}

// expect consumes the current token if it matches, otherwise fails.
func (p *Parser) expect(t TokenType) Token {
	tok := p.curToken
	if !p.curTokenIs(t) {
		p.failf("expected %s, got %s", t, describe(p.curToken))
	}
	p.nextToken()
	return tok
}

func describe(t Token) string {
	switch t.Type {
	case TokenIdentifier, TokenInteger, TokenFloat:
		return strconv.Quote(t.Literal)
	case TokenString:
		return "string"
	}
	return t.Type.String()
}

// failf records an error at the current token and abandons parsing.
func (p *Parser) failf(format string, args ...interface{}) {
	p.failAt(p.curToken, fmt.Sprintf(format, args...))
}

// failAt records an error at tok. Errors at synthesized end-of-input
// tokens are reported as incomplete input.
func (p *Parser) failAt(tok Token, msg string) {
	if tok.Type == TokenEOF || tok.AtEOF {
		msg = MsgUnexpectedEOF
	}
	if p.err == nil {
		p.err = &Error{
			Msg:        msg,
			Filename:   p.filename,
			Line:       tok.Pos.Line,
			Column:     tok.Pos.Column,
			Incomplete: msg == MsgUnexpectedEOF,
		}
	}
	panic(bailout{})
}

// failAtPos records an error at a position that is not end of input.
func (p *Parser) failAtPos(pos Position, msg string) {
	p.failAt(Token{Type: TokenError, Pos: pos}, msg)
}

// begin marks the parser live and reports a lexical error in the first token.
func (p *Parser) begin() {
	p.started = true
	if p.curTokenIs(TokenError) {
		p.failAt(p.curToken, p.curToken.Literal)
	}
}

// Err returns the parse error, if any.
func (p *Parser) Err() *Error {
	return p.err
}

func (p *Parser) spanFrom(start Position) Span {
	return Span{Start: start, End: p.curToken.Pos}
}

// ---------------------------------------------------------------------------
// Top-level parsing
// ---------------------------------------------------------------------------

// ParseModule parses a whole source unit.
func (p *Parser) ParseModule() (mod *Module, err error) {
	defer p.recoverBailout(&err)
	p.begin()

	mod = &Module{}
	for !p.curTokenIs(TokenEOF) {
		if p.curTokenIs(TokenNewline) {
			p.nextToken()
			continue
		}
		mod.Body = append(mod.Body, p.parseStatement()...)
	}
	return mod, nil
}

// ParseExpression parses a single expression followed by end of input.
func (p *Parser) ParseExpression() (expr Expr, err error) {
	defer p.recoverBailout(&err)
	p.begin()

	for p.curTokenIs(TokenNewline) {
		p.nextToken()
	}
	expr = p.parseTestList()
	for p.curTokenIs(TokenNewline) {
		p.nextToken()
	}
	if !p.curTokenIs(TokenEOF) {
		p.failf("invalid syntax")
	}
	return expr, nil
}

func (p *Parser) recoverBailout(err *error) {
	if r := recover(); r != nil {
		if _, ok := r.(bailout); !ok {
			panic(r)
		}
		*err = p.err
	}
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// parseStatement parses one logical line or one compound statement.
func (p *Parser) parseStatement() []Stmt {
	switch p.curToken.Type {
	case TokenIf:
		return []Stmt{p.parseIf()}
	case TokenWhile:
		return []Stmt{p.parseWhile()}
	case TokenFor:
		return []Stmt{p.parseFor()}
	case TokenDef:
		return []Stmt{p.parseFuncDef()}
	case TokenClass:
		return []Stmt{p.parseClassDef()}
	case TokenTry:
		return []Stmt{p.parseTry()}
	case TokenIndent:
		p.failf("unexpected indent")
	}
	return p.parseSimpleStatements()
}

// parseSimpleStatements parses small statements separated by semicolons
// up to the end of the line.
func (p *Parser) parseSimpleStatements() []Stmt {
	stmts := []Stmt{p.parseSmallStatement()}
	for p.curTokenIs(TokenSemicolon) {
		p.nextToken()
		if p.curTokenIs(TokenNewline) {
			break
		}
		stmts = append(stmts, p.parseSmallStatement())
	}
	p.expect(TokenNewline)
	return stmts
}

func (p *Parser) parseSmallStatement() Stmt {
	start := p.curToken.Pos
	switch p.curToken.Type {
	case TokenPass:
		p.nextToken()
		return &Pass{SpanVal: p.spanFrom(start)}
	case TokenBreak:
		p.nextToken()
		return &Break{SpanVal: p.spanFrom(start)}
	case TokenContinue:
		p.nextToken()
		return &Continue{SpanVal: p.spanFrom(start)}
	case TokenReturn:
		p.nextToken()
		var value Expr
		if !p.atStatementEnd() {
			value = p.parseTestList()
		}
		return &Return{SpanVal: p.spanFrom(start), Value: value}
	case TokenRaise:
		return p.parseRaise()
	case TokenAssert:
		p.nextToken()
		test := p.parseTest()
		var msg Expr
		if p.curTokenIs(TokenComma) {
			p.nextToken()
			msg = p.parseTest()
		}
		return &Assert{SpanVal: p.spanFrom(start), Test: test, Msg: msg}
	case TokenImport:
		return p.parseImport()
	case TokenFrom:
		return p.parseImportFrom()
	case TokenDel:
		p.nextToken()
		var targets []Expr
		for {
			t := p.parseExpr()
			p.checkTarget(t, "delete")
			targets = append(targets, t)
			if !p.curTokenIs(TokenComma) {
				break
			}
			p.nextToken()
		}
		return &Delete{SpanVal: p.spanFrom(start), Targets: targets}
	}
	return p.parseExprStatement()
}

func (p *Parser) atStatementEnd() bool {
	return p.curTokenIs(TokenNewline) || p.curTokenIs(TokenSemicolon) || p.curTokenIs(TokenEOF)
}

var augOps = map[TokenType]bytecode.BinaryOp{
	TokenPlusAssign:        bytecode.BinaryAdd,
	TokenMinusAssign:       bytecode.BinarySub,
	TokenStarAssign:        bytecode.BinaryMul,
	TokenSlashAssign:       bytecode.BinaryTrueDiv,
	TokenDoubleSlashAssign: bytecode.BinaryFloorDiv,
	TokenPercentAssign:     bytecode.BinaryMod,
	TokenDoubleStarAssign:  bytecode.BinaryPow,
}

// parseExprStatement parses an expression, assignment chain or augmented
// assignment.
func (p *Parser) parseExprStatement() Stmt {
	start := p.curToken.Pos
	first := p.parseTestList()

	if op, ok := augOps[p.curToken.Type]; ok {
		switch first.(type) {
		case *Name, *Attribute, *Subscript:
		default:
			p.failf("illegal expression for augmented assignment")
		}
		p.nextToken()
		value := p.parseTestList()
		return &AugAssign{SpanVal: p.spanFrom(start), Target: first, Op: op, Value: value}
	}

	if !p.curTokenIs(TokenAssign) {
		return &ExprStmt{SpanVal: p.spanFrom(start), Expr: first}
	}

	targets := []Expr{first}
	var value Expr
	for p.curTokenIs(TokenAssign) {
		p.nextToken()
		value = p.parseTestList()
		if p.curTokenIs(TokenAssign) {
			targets = append(targets, value)
		}
	}
	for _, t := range targets {
		p.checkTarget(t, "assign to")
	}
	return &Assign{SpanVal: p.spanFrom(start), Targets: targets, Value: value}
}

// checkTarget rejects expressions that cannot be bound.
func (p *Parser) checkTarget(e Expr, verb string) {
	switch t := e.(type) {
	case *Name, *Attribute, *Subscript:
		return
	case *TupleExpr:
		if verb == "assign to" {
			for _, el := range t.Elements {
				p.checkTarget(el, verb)
			}
			return
		}
	case *ListExpr:
		if verb == "assign to" {
			for _, el := range t.Elements {
				p.checkTarget(el, verb)
			}
			return
		}
	}
	p.failAtPos(e.Span().Start, "can't "+verb+" "+exprKind(e))
}

func exprKind(e Expr) string {
	switch e.(type) {
	case *Call:
		return "function call"
	case *IntLiteral, *FloatLiteral, *StringLiteral, *NoneLiteral, *BoolLiteral:
		return "literal"
	case *TupleExpr:
		return "tuple"
	case *ListExpr:
		return "list"
	}
	return "expression"
}

func (p *Parser) parseRaise() Stmt {
	start := p.curToken.Pos
	p.nextToken()
	r := &Raise{}
	if !p.atStatementEnd() {
		r.Exc = p.parseTest()
		if p.curTokenIs(TokenFrom) {
			p.nextToken()
			r.Cause = p.parseTest()
		}
	}
	r.SpanVal = p.spanFrom(start)
	return r
}

func (p *Parser) parseDottedName() string {
	parts := []string{p.expect(TokenIdentifier).Literal}
	for p.curTokenIs(TokenDot) {
		p.nextToken()
		parts = append(parts, p.expect(TokenIdentifier).Literal)
	}
	return strings.Join(parts, ".")
}

func (p *Parser) parseAlias(dotted bool) Alias {
	var a Alias
	if dotted {
		a.Name = p.parseDottedName()
	} else {
		a.Name = p.expect(TokenIdentifier).Literal
	}
	if p.curTokenIs(TokenAs) {
		p.nextToken()
		a.AsName = p.expect(TokenIdentifier).Literal
	}
	return a
}

func (p *Parser) parseImport() Stmt {
	start := p.curToken.Pos
	p.nextToken()
	names := []Alias{p.parseAlias(true)}
	for p.curTokenIs(TokenComma) {
		p.nextToken()
		names = append(names, p.parseAlias(true))
	}
	return &Import{SpanVal: p.spanFrom(start), Names: names}
}

func (p *Parser) parseImportFrom() Stmt {
	start := p.curToken.Pos
	p.nextToken()
	module := p.parseDottedName()
	p.expect(TokenImport)

	paren := p.curTokenIs(TokenLParen)
	if paren {
		p.nextToken()
	}
	names := []Alias{p.parseAlias(false)}
	for p.curTokenIs(TokenComma) {
		p.nextToken()
		if paren && p.curTokenIs(TokenRParen) {
			break
		}
		names = append(names, p.parseAlias(false))
	}
	if paren {
		p.expect(TokenRParen)
	}
	return &ImportFrom{SpanVal: p.spanFrom(start), Module: module, Names: names}
}

// parseBlock parses the suite after a colon: either simple statements on
// the same line or an indented block.
func (p *Parser) parseBlock() []Stmt {
	p.expect(TokenColon)
	if !p.curTokenIs(TokenNewline) {
		return p.parseSimpleStatements()
	}
	p.nextToken()
	if !p.curTokenIs(TokenIndent) {
		p.failf("expected an indented block")
	}
	p.nextToken()

	var body []Stmt
	for !p.curTokenIs(TokenDedent) {
		if p.curTokenIs(TokenEOF) {
			p.failf("expected dedent")
		}
		if p.curTokenIs(TokenNewline) {
			p.nextToken()
			continue
		}
		body = append(body, p.parseStatement()...)
	}
	p.nextToken()
	return body
}

func (p *Parser) parseIf() Stmt {
	start := p.curToken.Pos
	p.nextToken() // if / elif
	test := p.parseTest()
	body := p.parseBlock()

	node := &If{Test: test, Body: body}
	switch p.curToken.Type {
	case TokenElif:
		node.OrElse = []Stmt{p.parseIf()}
	case TokenElse:
		p.nextToken()
		node.OrElse = p.parseBlock()
	}
	node.SpanVal = p.spanFrom(start)
	return node
}

func (p *Parser) parseLoopElse() []Stmt {
	if p.curTokenIs(TokenElse) {
		p.nextToken()
		return p.parseBlock()
	}
	return nil
}

func (p *Parser) parseWhile() Stmt {
	start := p.curToken.Pos
	p.nextToken()
	test := p.parseTest()
	body := p.parseBlock()
	orElse := p.parseLoopElse()
	return &While{SpanVal: p.spanFrom(start), Test: test, Body: body, OrElse: orElse}
}

func (p *Parser) parseFor() Stmt {
	start := p.curToken.Pos
	p.nextToken()
	target := p.parseTargetList()
	p.checkTarget(target, "assign to")
	p.expect(TokenIn)
	iter := p.parseTestList()
	body := p.parseBlock()
	orElse := p.parseLoopElse()
	return &For{SpanVal: p.spanFrom(start), Target: target, Iter: iter, Body: body, OrElse: orElse}
}

// parseTargetList parses the comma-separated targets of a for loop.
func (p *Parser) parseTargetList() Expr {
	start := p.curToken.Pos
	first := p.parseExpr()
	if !p.curTokenIs(TokenComma) {
		return first
	}
	elems := []Expr{first}
	for p.curTokenIs(TokenComma) {
		p.nextToken()
		if p.curTokenIs(TokenIn) {
			break
		}
		elems = append(elems, p.parseExpr())
	}
	return &TupleExpr{SpanVal: p.spanFrom(start), Elements: elems}
}

func (p *Parser) parseFuncDef() Stmt {
	start := p.curToken.Pos
	p.nextToken()
	name := p.expect(TokenIdentifier).Literal
	p.expect(TokenLParen)

	var params []Param
	seen := map[string]bool{}
	sawDefault := false
	for !p.curTokenIs(TokenRParen) {
		tok := p.expect(TokenIdentifier)
		if seen[tok.Literal] {
			p.failAt(tok, "duplicate argument '"+tok.Literal+"' in function definition")
		}
		seen[tok.Literal] = true
		param := Param{Name: tok.Literal}
		if p.curTokenIs(TokenAssign) {
			p.nextToken()
			param.Default = p.parseTest()
			sawDefault = true
		} else if sawDefault {
			p.failAt(tok, "non-default argument follows default argument")
		}
		params = append(params, param)
		if !p.curTokenIs(TokenComma) {
			break
		}
		p.nextToken()
	}
	p.expect(TokenRParen)
	body := p.parseBlock()
	return &FuncDef{SpanVal: p.spanFrom(start), Name: name, Params: params, Body: body}
}

func (p *Parser) parseClassDef() Stmt {
	start := p.curToken.Pos
	p.nextToken()
	name := p.expect(TokenIdentifier).Literal

	var bases []Expr
	if p.curTokenIs(TokenLParen) {
		p.nextToken()
		for !p.curTokenIs(TokenRParen) {
			bases = append(bases, p.parseTest())
			if !p.curTokenIs(TokenComma) {
				break
			}
			p.nextToken()
		}
		p.expect(TokenRParen)
	}
	body := p.parseBlock()
	return &ClassDef{SpanVal: p.spanFrom(start), Name: name, Bases: bases, Body: body}
}

func (p *Parser) parseTry() Stmt {
	start := p.curToken.Pos
	p.nextToken()
	node := &Try{Body: p.parseBlock()}

	for p.curTokenIs(TokenExcept) {
		hstart := p.curToken.Pos
		p.nextToken()
		h := ExceptHandler{}
		if !p.curTokenIs(TokenColon) {
			h.Type = p.parseTest()
			if p.curTokenIs(TokenAs) {
				p.nextToken()
				h.Name = p.expect(TokenIdentifier).Literal
			}
		}
		h.Body = p.parseBlock()
		h.SpanVal = p.spanFrom(hstart)
		if len(node.Handlers) > 0 && node.Handlers[len(node.Handlers)-1].Type == nil {
			p.failAtPos(hstart, "default 'except:' must be last")
		}
		node.Handlers = append(node.Handlers, h)
	}
	if p.curTokenIs(TokenElse) {
		if len(node.Handlers) == 0 {
			p.failf("invalid syntax")
		}
		p.nextToken()
		node.OrElse = p.parseBlock()
	}
	if p.curTokenIs(TokenFinally) {
		p.nextToken()
		node.Finally = p.parseBlock()
	}
	if len(node.Handlers) == 0 && node.Finally == nil {
		p.failf("expected 'except' or 'finally' block")
	}
	node.SpanVal = p.spanFrom(start)
	return node
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// parseTestList parses one or more comma-separated expressions; a comma
// makes a tuple.
func (p *Parser) parseTestList() Expr {
	start := p.curToken.Pos
	first := p.parseTest()
	if !p.curTokenIs(TokenComma) {
		return first
	}
	elems := []Expr{first}
	for p.curTokenIs(TokenComma) {
		p.nextToken()
		if !p.startsExpression() {
			break
		}
		elems = append(elems, p.parseTest())
	}
	return &TupleExpr{SpanVal: p.spanFrom(start), Elements: elems}
}

// startsExpression reports whether the current token can begin an expression.
func (p *Parser) startsExpression() bool {
	switch p.curToken.Type {
	case TokenIdentifier, TokenInteger, TokenFloat, TokenString, TokenNone, TokenTrue, TokenFalse,
		TokenLParen, TokenLBracket, TokenLBrace, TokenMinus, TokenPlus, TokenNot:
		return true
	}
	return false
}

// parseTest parses a conditional expression.
func (p *Parser) parseTest() Expr {
	start := p.curToken.Pos
	body := p.parseOrTest()
	if !p.curTokenIs(TokenIf) {
		return body
	}
	p.nextToken()
	test := p.parseOrTest()
	p.expect(TokenElse)
	orElse := p.parseTest()
	return &IfExpr{SpanVal: p.spanFrom(start), Test: test, Body: body, OrElse: orElse}
}

func (p *Parser) parseOrTest() Expr {
	start := p.curToken.Pos
	first := p.parseAndTest()
	if !p.curTokenIs(TokenOr) {
		return first
	}
	values := []Expr{first}
	for p.curTokenIs(TokenOr) {
		p.nextToken()
		values = append(values, p.parseAndTest())
	}
	return &BoolOp{SpanVal: p.spanFrom(start), And: false, Values: values}
}

func (p *Parser) parseAndTest() Expr {
	start := p.curToken.Pos
	first := p.parseNotTest()
	if !p.curTokenIs(TokenAnd) {
		return first
	}
	values := []Expr{first}
	for p.curTokenIs(TokenAnd) {
		p.nextToken()
		values = append(values, p.parseNotTest())
	}
	return &BoolOp{SpanVal: p.spanFrom(start), And: true, Values: values}
}

func (p *Parser) parseNotTest() Expr {
	if p.curTokenIs(TokenNot) {
		start := p.curToken.Pos
		p.nextToken()
		operand := p.parseNotTest()
		return &UnaryOp{SpanVal: p.spanFrom(start), Op: TokenNot, Operand: operand}
	}
	return p.parseComparison()
}

// compareOp returns the comparison at the current token, consuming it.
func (p *Parser) compareOp() (bytecode.CompareOp, bool) {
	var op bytecode.CompareOp
	switch p.curToken.Type {
	case TokenEq:
		op = bytecode.CompareEq
	case TokenNe:
		op = bytecode.CompareNe
	case TokenLt:
		op = bytecode.CompareLt
	case TokenLe:
		op = bytecode.CompareLe
	case TokenGt:
		op = bytecode.CompareGt
	case TokenGe:
		op = bytecode.CompareGe
	case TokenIn:
		op = bytecode.CompareIn
	case TokenIs:
		p.nextToken()
		if p.curTokenIs(TokenNot) {
			p.nextToken()
			return bytecode.CompareIsNot, true
		}
		return bytecode.CompareIs, true
	case TokenNot:
		if !p.peekTokenIs(TokenIn) {
			return 0, false
		}
		p.nextToken()
		p.nextToken()
		return bytecode.CompareNotIn, true
	default:
		return 0, false
	}
	p.nextToken()
	return op, true
}

func (p *Parser) parseComparison() Expr {
	start := p.curToken.Pos
	left := p.parseExpr()
	var ops []bytecode.CompareOp
	var rights []Expr
	for {
		op, ok := p.compareOp()
		if !ok {
			break
		}
		ops = append(ops, op)
		rights = append(rights, p.parseExpr())
	}
	if len(ops) == 0 {
		return left
	}
	return &Compare{SpanVal: p.spanFrom(start), Left: left, Ops: ops, Comparators: rights}
}

// parseExpr parses an arithmetic expression (no comparisons).
func (p *Parser) parseExpr() Expr {
	start := p.curToken.Pos
	left := p.parseTerm()
	for {
		var op bytecode.BinaryOp
		switch p.curToken.Type {
		case TokenPlus:
			op = bytecode.BinaryAdd
		case TokenMinus:
			op = bytecode.BinarySub
		default:
			return left
		}
		p.nextToken()
		right := p.parseTerm()
		left = &BinOp{SpanVal: p.spanFrom(start), Op: op, Left: left, Right: right}
	}
}

func (p *Parser) parseTerm() Expr {
	start := p.curToken.Pos
	left := p.parseFactor()
	for {
		var op bytecode.BinaryOp
		switch p.curToken.Type {
		case TokenStar:
			op = bytecode.BinaryMul
		case TokenSlash:
			op = bytecode.BinaryTrueDiv
		case TokenDoubleSlash:
			op = bytecode.BinaryFloorDiv
		case TokenPercent:
			op = bytecode.BinaryMod
		default:
			return left
		}
		p.nextToken()
		right := p.parseFactor()
		left = &BinOp{SpanVal: p.spanFrom(start), Op: op, Left: left, Right: right}
	}
}

func (p *Parser) parseFactor() Expr {
	if p.curTokenIs(TokenMinus) || p.curTokenIs(TokenPlus) {
		start := p.curToken.Pos
		op := p.curToken.Type
		p.nextToken()
		operand := p.parseFactor()
		if lit, ok := operand.(*IntLiteral); ok && op == TokenMinus {
			return &IntLiteral{SpanVal: p.spanFrom(start), Value: -lit.Value}
		}
		return &UnaryOp{SpanVal: p.spanFrom(start), Op: op, Operand: operand}
	}
	return p.parsePower()
}

func (p *Parser) parsePower() Expr {
	start := p.curToken.Pos
	base := p.parsePostfix()
	if !p.curTokenIs(TokenDoubleStar) {
		return base
	}
	p.nextToken()
	exp := p.parseFactor()
	return &BinOp{SpanVal: p.spanFrom(start), Op: bytecode.BinaryPow, Left: base, Right: exp}
}

// parsePostfix parses an atom followed by calls, attributes and subscripts.
func (p *Parser) parsePostfix() Expr {
	start := p.curToken.Pos
	expr := p.parseAtom()
	for {
		switch p.curToken.Type {
		case TokenLParen:
			expr = p.parseCall(expr, start)
		case TokenDot:
			p.nextToken()
			name := p.expect(TokenIdentifier).Literal
			expr = &Attribute{SpanVal: p.spanFrom(start), Value: expr, Attr: name}
		case TokenLBracket:
			p.nextToken()
			index := p.parseSubscriptIndex()
			p.expect(TokenRBracket)
			expr = &Subscript{SpanVal: p.spanFrom(start), Value: expr, Index: index}
		default:
			return expr
		}
	}
}

func (p *Parser) parseCall(fn Expr, start Position) Expr {
	p.nextToken() // (
	call := &Call{Func: fn}
	for !p.curTokenIs(TokenRParen) {
		if p.curTokenIs(TokenIdentifier) && p.peekTokenIs(TokenAssign) {
			name := p.curToken
			p.nextToken()
			p.nextToken()
			for _, kw := range call.Keywords {
				if kw.Name == name.Literal {
					p.failAt(name, "keyword argument repeated")
				}
			}
			call.Keywords = append(call.Keywords, Keyword{Name: name.Literal, Value: p.parseTest()})
		} else {
			if len(call.Keywords) > 0 {
				p.failf("positional argument follows keyword argument")
			}
			call.Args = append(call.Args, p.parseTest())
		}
		if !p.curTokenIs(TokenComma) {
			break
		}
		p.nextToken()
	}
	p.expect(TokenRParen)
	call.SpanVal = p.spanFrom(start)
	return call
}

// parseSubscriptIndex parses an index, a slice, or a tuple of indexes.
func (p *Parser) parseSubscriptIndex() Expr {
	start := p.curToken.Pos
	first := p.parseSliceItem()
	if !p.curTokenIs(TokenComma) {
		return first
	}
	elems := []Expr{first}
	for p.curTokenIs(TokenComma) {
		p.nextToken()
		if p.curTokenIs(TokenRBracket) {
			break
		}
		elems = append(elems, p.parseSliceItem())
	}
	return &TupleExpr{SpanVal: p.spanFrom(start), Elements: elems}
}

func (p *Parser) parseSliceItem() Expr {
	start := p.curToken.Pos
	var lower Expr
	if !p.curTokenIs(TokenColon) {
		lower = p.parseTest()
		if !p.curTokenIs(TokenColon) {
			return lower
		}
	}
	s := &SliceExpr{Lower: lower}
	p.nextToken() // first colon
	if !p.curTokenIs(TokenColon) && !p.curTokenIs(TokenRBracket) && !p.curTokenIs(TokenComma) {
		s.Upper = p.parseTest()
	}
	if p.curTokenIs(TokenColon) {
		p.nextToken()
		s.HasStep = true
		if !p.curTokenIs(TokenRBracket) && !p.curTokenIs(TokenComma) {
			s.Step = p.parseTest()
		}
	}
	s.SpanVal = p.spanFrom(start)
	return s
}

// parseAtom parses literals, names and bracketed displays.
func (p *Parser) parseAtom() Expr {
	start := p.curToken.Pos
	tok := p.curToken

	switch tok.Type {
	case TokenIdentifier:
		p.nextToken()
		return &Name{SpanVal: p.spanFrom(start), Ident: tok.Literal}

	case TokenInteger:
		p.nextToken()
		v, err := strconv.ParseInt(tok.Literal, 0, 64)
		if err != nil {
			p.failAt(tok, "integer literal too large: "+tok.Literal)
		}
		return &IntLiteral{SpanVal: p.spanFrom(start), Value: v}

	case TokenFloat:
		p.nextToken()
		v, err := strconv.ParseFloat(strings.ReplaceAll(tok.Literal, "_", ""), 64)
		if err != nil {
			p.failAt(tok, "invalid float literal: "+tok.Literal)
		}
		return &FloatLiteral{SpanVal: p.spanFrom(start), Value: v}

	case TokenString:
		var sb strings.Builder
		for p.curTokenIs(TokenString) {
			sb.WriteString(p.curToken.Literal)
			p.nextToken()
		}
		return &StringLiteral{SpanVal: p.spanFrom(start), Value: sb.String()}

	case TokenNone:
		p.nextToken()
		return &NoneLiteral{SpanVal: p.spanFrom(start)}

	case TokenTrue, TokenFalse:
		p.nextToken()
		return &BoolLiteral{SpanVal: p.spanFrom(start), Value: tok.Type == TokenTrue}

	case TokenLParen:
		return p.parseParenExpr()

	case TokenLBracket:
		p.nextToken()
		elems := p.parseElements(TokenRBracket)
		p.expect(TokenRBracket)
		return &ListExpr{SpanVal: p.spanFrom(start), Elements: elems}

	case TokenLBrace:
		return p.parseDict()
	}

	if tok.Type == TokenEOF || tok.AtEOF {
		p.failAt(tok, MsgUnexpectedEOF)
	}
	p.failf("invalid syntax")
	return nil
}

// parseParenExpr parses (), (x), (x,) and (x, y).
func (p *Parser) parseParenExpr() Expr {
	start := p.curToken.Pos
	p.nextToken() // (
	if p.curTokenIs(TokenRParen) {
		p.nextToken()
		return &TupleExpr{SpanVal: p.spanFrom(start)}
	}
	first := p.parseTest()
	if p.curTokenIs(TokenRParen) {
		p.nextToken()
		return first
	}
	p.expect(TokenComma)
	elems := append([]Expr{first}, p.parseElements(TokenRParen)...)
	p.expect(TokenRParen)
	return &TupleExpr{SpanVal: p.spanFrom(start), Elements: elems}
}

// parseElements parses comma-separated expressions up to the closing token,
// allowing a trailing comma.
func (p *Parser) parseElements(closing TokenType) []Expr {
	var elems []Expr
	for !p.curTokenIs(closing) {
		elems = append(elems, p.parseTest())
		if !p.curTokenIs(TokenComma) {
			break
		}
		p.nextToken()
	}
	return elems
}

func (p *Parser) parseDict() Expr {
	start := p.curToken.Pos
	p.nextToken() // {
	d := &DictExpr{}
	for !p.curTokenIs(TokenRBrace) {
		d.Keys = append(d.Keys, p.parseTest())
		p.expect(TokenColon)
		d.Values = append(d.Values, p.parseTest())
		if !p.curTokenIs(TokenComma) {
			break
		}
		p.nextToken()
	}
	p.expect(TokenRBrace)
	d.SpanVal = p.spanFrom(start)
	return d
}
