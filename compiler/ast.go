package compiler

import "github.com/chazu/serpent/pkg/bytecode"

// ---------------------------------------------------------------------------
// AST
// ---------------------------------------------------------------------------

// Position represents a source location.
type Position struct {
	Offset int // byte offset
	Line   int // 1-based line number
	Column int // 1-based column number
}

// Span represents a range in source code.
type Span struct {
	Start Position
	End   Position
}

// Node is the interface implemented by all AST nodes.
type Node interface {
	Span() Span
	node() // marker method
}

// ---------------------------------------------------------------------------
// Expression nodes
// ---------------------------------------------------------------------------

// Expr is the interface for expression nodes.
type Expr interface {
	Node
	expr() // marker method
}

// IntLiteral represents an integer literal.
type IntLiteral struct {
	SpanVal Span
	Value   int64
}

// FloatLiteral represents a floating-point literal.
type FloatLiteral struct {
	SpanVal Span
	Value   float64
}

// StringLiteral represents a string literal; adjacent literals are joined.
type StringLiteral struct {
	SpanVal Span
	Value   string
}

// NoneLiteral represents None.
type NoneLiteral struct {
	SpanVal Span
}

// BoolLiteral represents True or False.
type BoolLiteral struct {
	SpanVal Span
	Value   bool
}

// Name represents a variable reference.
type Name struct {
	SpanVal Span
	Ident   string
}

// TupleExpr represents a tuple display, parenthesized or bare.
type TupleExpr struct {
	SpanVal  Span
	Elements []Expr
}

// ListExpr represents a list display.
type ListExpr struct {
	SpanVal  Span
	Elements []Expr
}

// DictExpr represents a dict display.
type DictExpr struct {
	SpanVal Span
	Keys    []Expr
	Values  []Expr
}

// Attribute represents obj.name.
type Attribute struct {
	SpanVal Span
	Value   Expr
	Attr    string
}

// Subscript represents obj[index].
type Subscript struct {
	SpanVal Span
	Value   Expr
	Index   Expr
}

// SliceExpr represents lower:upper:step inside a subscript. Absent parts
// are nil.
type SliceExpr struct {
	SpanVal Span
	Lower   Expr
	Upper   Expr
	Step    Expr
	HasStep bool
}

// Keyword is a keyword argument in a call.
type Keyword struct {
	Name  string
	Value Expr
}

// Call represents a function call.
type Call struct {
	SpanVal  Span
	Func     Expr
	Args     []Expr
	Keywords []Keyword
}

// UnaryOp represents -x, +x and not x.
type UnaryOp struct {
	SpanVal Span
	Op      TokenType // TokenMinus, TokenPlus, TokenNot
	Operand Expr
}

// BinOp represents an arithmetic operation.
type BinOp struct {
	SpanVal Span
	Op      bytecode.BinaryOp
	Left    Expr
	Right   Expr
}

// BoolOp represents a chain of and/or.
type BoolOp struct {
	SpanVal Span
	And     bool
	Values  []Expr
}

// Compare represents a possibly chained comparison: a < b <= c.
type Compare struct {
	SpanVal     Span
	Left        Expr
	Ops         []bytecode.CompareOp
	Comparators []Expr
}

// IfExpr represents body if test else orelse.
type IfExpr struct {
	SpanVal Span
	Test    Expr
	Body    Expr
	OrElse  Expr
}

func (n *IntLiteral) Span() Span    { return n.SpanVal }
func (n *FloatLiteral) Span() Span  { return n.SpanVal }
func (n *StringLiteral) Span() Span { return n.SpanVal }
func (n *NoneLiteral) Span() Span   { return n.SpanVal }
func (n *BoolLiteral) Span() Span   { return n.SpanVal }
func (n *Name) Span() Span          { return n.SpanVal }
func (n *TupleExpr) Span() Span     { return n.SpanVal }
func (n *ListExpr) Span() Span      { return n.SpanVal }
func (n *DictExpr) Span() Span      { return n.SpanVal }
func (n *Attribute) Span() Span     { return n.SpanVal }
func (n *Subscript) Span() Span     { return n.SpanVal }
func (n *SliceExpr) Span() Span     { return n.SpanVal }
func (n *Call) Span() Span          { return n.SpanVal }
func (n *UnaryOp) Span() Span       { return n.SpanVal }
func (n *BinOp) Span() Span         { return n.SpanVal }
func (n *BoolOp) Span() Span        { return n.SpanVal }
func (n *Compare) Span() Span       { return n.SpanVal }
func (n *IfExpr) Span() Span        { return n.SpanVal }

func (n *IntLiteral) node()    {}
func (n *FloatLiteral) node()  {}
func (n *StringLiteral) node() {}
func (n *NoneLiteral) node()   {}
func (n *BoolLiteral) node()   {}
func (n *Name) node()          {}
func (n *TupleExpr) node()     {}
func (n *ListExpr) node()      {}
func (n *DictExpr) node()      {}
func (n *Attribute) node()     {}
func (n *Subscript) node()     {}
func (n *SliceExpr) node()     {}
func (n *Call) node()          {}
func (n *UnaryOp) node()       {}
func (n *BinOp) node()         {}
func (n *BoolOp) node()        {}
func (n *Compare) node()       {}
func (n *IfExpr) node()        {}

func (n *IntLiteral) expr()    {}
func (n *FloatLiteral) expr()  {}
func (n *StringLiteral) expr() {}
func (n *NoneLiteral) expr()   {}
func (n *BoolLiteral) expr()   {}
func (n *Name) expr()          {}
func (n *TupleExpr) expr()     {}
func (n *ListExpr) expr()      {}
func (n *DictExpr) expr()      {}
func (n *Attribute) expr()     {}
func (n *Subscript) expr()     {}
func (n *SliceExpr) expr()     {}
func (n *Call) expr()          {}
func (n *UnaryOp) expr()       {}
func (n *BinOp) expr()         {}
func (n *BoolOp) expr()        {}
func (n *Compare) expr()       {}
func (n *IfExpr) expr()        {}

// ---------------------------------------------------------------------------
// Statement nodes
// ---------------------------------------------------------------------------

// Stmt is the interface for statement nodes.
type Stmt interface {
	Node
	stmt() // marker method
}

// ExprStmt is an expression evaluated for its effect.
type ExprStmt struct {
	SpanVal Span
	Expr    Expr
}

// Assign is targets[0] = targets[1] = ... = value.
type Assign struct {
	SpanVal Span
	Targets []Expr
	Value   Expr
}

// AugAssign is target op= value.
type AugAssign struct {
	SpanVal Span
	Target  Expr
	Op      bytecode.BinaryOp
	Value   Expr
}

// If is an if/elif/else chain; elif is a nested If in OrElse.
type If struct {
	SpanVal Span
	Test    Expr
	Body    []Stmt
	OrElse  []Stmt
}

// While is a while loop with optional else.
type While struct {
	SpanVal Span
	Test    Expr
	Body    []Stmt
	OrElse  []Stmt
}

// For is a for-in loop with optional else.
type For struct {
	SpanVal Span
	Target  Expr
	Iter    Expr
	Body    []Stmt
	OrElse  []Stmt
}

// Break exits the innermost loop.
type Break struct{ SpanVal Span }

// Continue restarts the innermost loop.
type Continue struct{ SpanVal Span }

// Pass does nothing.
type Pass struct{ SpanVal Span }

// Param is a function parameter with an optional default.
type Param struct {
	Name    string
	Default Expr
}

// FuncDef is a def statement.
type FuncDef struct {
	SpanVal Span
	Name    string
	Params  []Param
	Body    []Stmt
}

// Return leaves the current function.
type Return struct {
	SpanVal Span
	Value   Expr // nil for bare return
}

// ClassDef is a class statement.
type ClassDef struct {
	SpanVal Span
	Name    string
	Bases   []Expr
	Body    []Stmt
}

// ExceptHandler is one except clause.
type ExceptHandler struct {
	SpanVal Span
	Type    Expr   // nil for a bare except
	Name    string // empty when there is no "as" clause
	Body    []Stmt
}

// Try is try/except/else/finally.
type Try struct {
	SpanVal  Span
	Body     []Stmt
	Handlers []ExceptHandler
	OrElse   []Stmt
	Finally  []Stmt
}

// Raise is raise [exc [from cause]].
type Raise struct {
	SpanVal Span
	Exc     Expr
	Cause   Expr
}

// Assert is assert test [, msg].
type Assert struct {
	SpanVal Span
	Test    Expr
	Msg     Expr
}

// Alias is one imported name with an optional binding name.
type Alias struct {
	Name   string
	AsName string
}

// Import is import a [as b], ...
type Import struct {
	SpanVal Span
	Names   []Alias
}

// ImportFrom is from module import a [as b], ...
type ImportFrom struct {
	SpanVal Span
	Module  string
	Names   []Alias
}

// Delete is del target, ...
type Delete struct {
	SpanVal Span
	Targets []Expr
}

func (n *ExprStmt) Span() Span   { return n.SpanVal }
func (n *Assign) Span() Span     { return n.SpanVal }
func (n *AugAssign) Span() Span  { return n.SpanVal }
func (n *If) Span() Span         { return n.SpanVal }
func (n *While) Span() Span      { return n.SpanVal }
func (n *For) Span() Span        { return n.SpanVal }
func (n *Break) Span() Span      { return n.SpanVal }
func (n *Continue) Span() Span   { return n.SpanVal }
func (n *Pass) Span() Span       { return n.SpanVal }
func (n *FuncDef) Span() Span    { return n.SpanVal }
func (n *Return) Span() Span     { return n.SpanVal }
func (n *ClassDef) Span() Span   { return n.SpanVal }
func (n *Try) Span() Span        { return n.SpanVal }
func (n *Raise) Span() Span      { return n.SpanVal }
func (n *Assert) Span() Span     { return n.SpanVal }
func (n *Import) Span() Span     { return n.SpanVal }
func (n *ImportFrom) Span() Span { return n.SpanVal }
func (n *Delete) Span() Span     { return n.SpanVal }

func (n *ExprStmt) node()   {}
func (n *Assign) node()     {}
func (n *AugAssign) node()  {}
func (n *If) node()         {}
func (n *While) node()      {}
func (n *For) node()        {}
func (n *Break) node()      {}
func (n *Continue) node()   {}
func (n *Pass) node()       {}
func (n *FuncDef) node()    {}
func (n *Return) node()     {}
func (n *ClassDef) node()   {}
func (n *Try) node()        {}
func (n *Raise) node()      {}
func (n *Assert) node()     {}
func (n *Import) node()     {}
func (n *ImportFrom) node() {}
func (n *Delete) node()     {}

func (n *ExprStmt) stmt()   {}
func (n *Assign) stmt()     {}
func (n *AugAssign) stmt()  {}
func (n *If) stmt()         {}
func (n *While) stmt()      {}
func (n *For) stmt()        {}
func (n *Break) stmt()      {}
func (n *Continue) stmt()   {}
func (n *Pass) stmt()       {}
func (n *FuncDef) stmt()    {}
func (n *Return) stmt()     {}
func (n *ClassDef) stmt()   {}
func (n *Try) stmt()        {}
func (n *Raise) stmt()      {}
func (n *Assert) stmt()     {}
func (n *Import) stmt()     {}
func (n *ImportFrom) stmt() {}
func (n *Delete) stmt()     {}

// Module is the root of a parsed source unit.
type Module struct {
	Body []Stmt
}

func (n *ExceptHandler) Span() Span { return n.SpanVal }
func (n *ExceptHandler) node()      {}
