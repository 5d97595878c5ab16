package compiler

import (
	"github.com/chazu/serpent/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// Codegen: compile AST to code objects
// ---------------------------------------------------------------------------

type fblockKind int

const (
	fbWhile      fblockKind = iota // while loop
	fbFor                          // for loop; iterator on the stack
	fbTryExcept                    // body protected by except clauses
	fbTryFinally                   // body protected by a finally clause
	fbHandler                      // except body or exceptional finally path; exception on the stack
)

// fblock tracks an enclosing construct that break, continue and return
// must unwind through.
type fblock struct {
	kind fblockKind

	// loops
	continueTarget int
	breaks         []int

	// protected regions; segments are split around inlined finally code
	segStart  int
	segments  [][2]int
	finalBody []Stmt
	depth     int
}

func (fb *fblock) isTry() bool {
	return fb.kind == fbTryExcept || fb.kind == fbTryFinally
}

func (fb *fblock) closeSegment(at int) {
	if at > fb.segStart {
		fb.segments = append(fb.segments, [2]int{fb.segStart, at})
	}
	fb.segStart = at
}

// unit is the compilation state of one code object.
type unit struct {
	code    *bytecode.CodeObject
	fblocks []*fblock
	depth   int // operand stack entries owned by enclosing statements
}

// Compiler compiles a parsed module into code objects.
type Compiler struct {
	filename string
	mode     bytecode.Mode
	u        *unit
	err      *Error
	pos      Position // start of the most recently located node
}

// NewCompiler creates a new compiler for the given file and mode.
func NewCompiler(filename string, mode bytecode.Mode) *Compiler {
	return &Compiler{filename: filename, mode: mode}
}

// errorAt records a compilation error and abandons compilation.
func (c *Compiler) errorAt(n Node, msg string) {
	c.errorAtPos(n.Span().Start, msg)
}

// limitError reports an operand that outgrew its encoding.
func (c *Compiler) limitError(msg string) {
	c.errorAtPos(c.pos, msg)
}

func (c *Compiler) errorAtPos(pos Position, msg string) {
	if c.err == nil {
		c.err = &Error{Msg: msg, Filename: c.filename, Line: pos.Line, Column: pos.Column}
	}
	panic(bailout{})
}

func (c *Compiler) recoverBailout(err *error) {
	if r := recover(); r != nil {
		if _, ok := r.(bailout); !ok {
			panic(r)
		}
		*err = c.err
	}
}

func (c *Compiler) code() *bytecode.CodeObject { return c.u.code }

func (c *Compiler) offset() int { return c.u.code.CurrentOffset() }

func (c *Compiler) emit(op bytecode.Opcode) { c.u.code.Emit(op) }

func (c *Compiler) emitArg(op bytecode.Opcode, arg int) {
	if arg > bytecode.MaxOperand {
		c.limitError("too many operands")
	}
	c.u.code.EmitU16(op, uint16(arg))
}

func (c *Compiler) emitName(op bytecode.Opcode, name string) {
	idx := c.u.code.AddName(name)
	if len(c.u.code.Names) > bytecode.MaxOperand+1 {
		c.limitError("too many names")
	}
	c.u.code.EmitU16(op, idx)
}

func (c *Compiler) emitConst(k bytecode.Constant) {
	idx := c.u.code.AddConstant(k)
	if len(c.u.code.Constants) > bytecode.MaxOperand+1 {
		c.limitError("too many constants")
	}
	c.u.code.EmitU16(bytecode.OpLoadConst, idx)
}

// finishUnit emits the implicit return and checks that every jump
// target fits its operand.
func (c *Compiler) finishUnit(loadNone bool) *bytecode.CodeObject {
	if loadNone {
		c.emit(bytecode.OpLoadNone)
	}
	c.emit(bytecode.OpReturn)
	if c.offset() > bytecode.MaxOperand {
		c.limitError("code object too large")
	}
	return c.u.code
}

func (c *Compiler) setLoc(n Node) {
	pos := n.Span().Start
	if pos.Line > 0 {
		c.pos = pos
		c.u.code.AddSourceLocation(uint32(c.offset()), uint32(pos.Line), uint16(pos.Column))
	}
}

func (c *Compiler) pushFblock(fb *fblock) {
	c.u.fblocks = append(c.u.fblocks, fb)
}

func (c *Compiler) popFblock() {
	c.u.fblocks = c.u.fblocks[:len(c.u.fblocks)-1]
}

// CompileModule compiles a module body (exec or single mode).
func (c *Compiler) CompileModule(mod *Module) (code *bytecode.CodeObject, err error) {
	defer c.recoverBailout(&err)

	c.u = &unit{code: bytecode.NewCodeObject("<module>", c.filename, bytecode.KindModule)}
	c.u.code.Mode = c.mode
	c.u.code.FirstLine = 1
	c.compileStmts(mod.Body)
	return c.finishUnit(true), nil
}

// CompileExpression compiles a single expression whose value is the result.
func (c *Compiler) CompileExpression(e Expr) (code *bytecode.CodeObject, err error) {
	defer c.recoverBailout(&err)

	c.u = &unit{code: bytecode.NewCodeObject("<expr>", c.filename, bytecode.KindModule)}
	c.u.code.Mode = bytecode.ModeEval
	c.u.code.FirstLine = 1
	c.compileExpr(e)
	return c.finishUnit(false), nil
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (c *Compiler) compileStmts(stmts []Stmt) {
	for _, s := range stmts {
		c.compileStmt(s)
	}
}

func (c *Compiler) compileStmt(s Stmt) {
	c.setLoc(s)

	switch s := s.(type) {
	case *ExprStmt:
		c.compileExpr(s.Expr)
		if c.mode == bytecode.ModeSingle && c.code().Kind == bytecode.KindModule {
			c.emit(bytecode.OpPrintExpr)
		} else {
			c.emit(bytecode.OpPop)
		}

	case *Assign:
		c.compileExpr(s.Value)
		for i, t := range s.Targets {
			if i < len(s.Targets)-1 {
				c.emit(bytecode.OpDup)
			}
			c.compileStore(t)
		}

	case *AugAssign:
		c.compileAugAssign(s)

	case *If:
		c.compileExpr(s.Test)
		jElse := c.code().EmitJump(bytecode.OpJumpIfFalse)
		c.compileStmts(s.Body)
		if len(s.OrElse) > 0 {
			jEnd := c.code().EmitJump(bytecode.OpJump)
			c.code().PatchJump(jElse)
			c.compileStmts(s.OrElse)
			c.code().PatchJump(jEnd)
		} else {
			c.code().PatchJump(jElse)
		}

	case *While:
		c.compileWhile(s)

	case *For:
		c.compileFor(s)

	case *Break:
		c.compileBreak(s)

	case *Continue:
		c.compileContinue(s)

	case *Pass:

	case *FuncDef:
		for _, p := range s.Params {
			if p.Default != nil {
				c.compileExpr(p.Default)
			}
		}
		ndefaults := 0
		for _, p := range s.Params {
			if p.Default != nil {
				ndefaults++
			}
		}
		fn := c.compileFunctionBody(s)
		c.emitConst(bytecode.Constant{Kind: bytecode.ConstCode, Code: fn})
		c.emitArg(bytecode.OpMakeFunction, ndefaults)
		c.emitName(bytecode.OpStoreName, s.Name)

	case *Return:
		if c.code().Kind != bytecode.KindFunction {
			c.errorAt(s, "'return' outside function")
		}
		if s.Value != nil {
			c.compileExpr(s.Value)
		} else {
			c.emit(bytecode.OpLoadNone)
		}
		depth := c.u.depth
		c.u.depth++
		saved := c.unwind(0, true)
		c.emit(bytecode.OpReturn)
		c.reopen(saved, 0)
		c.u.depth = depth

	case *ClassDef:
		body := c.compileClassBody(s)
		c.emitConst(bytecode.Constant{Kind: bytecode.ConstCode, Code: body})
		c.emitArg(bytecode.OpMakeFunction, 0)
		c.emitConst(bytecode.Constant{Kind: bytecode.ConstString, Str: s.Name})
		for _, b := range s.Bases {
			c.compileExpr(b)
		}
		c.emitArg(bytecode.OpBuildTuple, len(s.Bases))
		c.emit(bytecode.OpBuildClass)
		c.emitName(bytecode.OpStoreName, s.Name)

	case *Try:
		if s.Finally != nil {
			c.compileTryFinally(s)
		} else {
			c.compileTryExcept(s)
		}

	case *Raise:
		argc := 0
		if s.Exc != nil {
			c.compileExpr(s.Exc)
			argc = 1
			if s.Cause != nil {
				c.compileExpr(s.Cause)
				argc = 2
			}
		}
		c.code().EmitU8(bytecode.OpRaise, uint8(argc))

	case *Assert:
		c.compileExpr(s.Test)
		jOk := c.code().EmitJump(bytecode.OpJumpIfTrue)
		c.emit(bytecode.OpLoadAssertionError)
		if s.Msg != nil {
			c.compileExpr(s.Msg)
			c.emitArg(bytecode.OpCall, 1)
		}
		c.code().EmitU8(bytecode.OpRaise, 1)
		c.code().PatchJump(jOk)

	case *Import:
		for _, a := range s.Names {
			c.emitName(bytecode.OpImportName, a.Name)
			c.emitName(bytecode.OpStoreName, bindingName(a))
		}

	case *ImportFrom:
		c.emitName(bytecode.OpImportName, s.Module)
		for _, a := range s.Names {
			c.emitName(bytecode.OpImportFrom, a.Name)
			c.emitName(bytecode.OpStoreName, bindingName(a))
		}
		c.emit(bytecode.OpPop)

	case *Delete:
		for _, t := range s.Targets {
			c.compileDelete(t)
		}

	default:
		c.errorAt(s, "unsupported statement")
	}
}

func bindingName(a Alias) string {
	if a.AsName != "" {
		return a.AsName
	}
	return a.Name
}

func (c *Compiler) compileAugAssign(s *AugAssign) {
	switch t := s.Target.(type) {
	case *Name:
		c.emitName(bytecode.OpLoadName, t.Ident)
		c.compileExpr(s.Value)
		c.code().EmitU8(bytecode.OpBinary, uint8(s.Op))
		c.emitName(bytecode.OpStoreName, t.Ident)
	case *Attribute:
		c.compileExpr(t.Value)
		c.emit(bytecode.OpDup)
		c.emitName(bytecode.OpLoadAttr, t.Attr)
		c.compileExpr(s.Value)
		c.code().EmitU8(bytecode.OpBinary, uint8(s.Op))
		c.emit(bytecode.OpSwap)
		c.emitName(bytecode.OpStoreAttr, t.Attr)
	case *Subscript:
		c.compileExpr(t.Value)
		c.compileExpr(t.Index)
		c.emit(bytecode.OpDup2)
		c.emit(bytecode.OpLoadSubscr)
		c.compileExpr(s.Value)
		c.code().EmitU8(bytecode.OpBinary, uint8(s.Op))
		c.emit(bytecode.OpRot)
		c.emit(bytecode.OpStoreSubscr)
	default:
		c.errorAt(s, "illegal expression for augmented assignment")
	}
}

// compileStore binds the value on top of the stack to target.
func (c *Compiler) compileStore(target Expr) {
	switch t := target.(type) {
	case *Name:
		c.emitName(bytecode.OpStoreName, t.Ident)
	case *Attribute:
		c.compileExpr(t.Value)
		c.emitName(bytecode.OpStoreAttr, t.Attr)
	case *Subscript:
		c.compileExpr(t.Value)
		c.compileExpr(t.Index)
		c.emit(bytecode.OpStoreSubscr)
	case *TupleExpr:
		c.emitArg(bytecode.OpUnpackSequence, len(t.Elements))
		for _, el := range t.Elements {
			c.compileStore(el)
		}
	case *ListExpr:
		c.emitArg(bytecode.OpUnpackSequence, len(t.Elements))
		for _, el := range t.Elements {
			c.compileStore(el)
		}
	default:
		c.errorAt(target, "can't assign to "+exprKind(target))
	}
}

func (c *Compiler) compileDelete(target Expr) {
	switch t := target.(type) {
	case *Name:
		c.emitName(bytecode.OpDeleteName, t.Ident)
	case *Attribute:
		c.compileExpr(t.Value)
		c.emitName(bytecode.OpDelAttr, t.Attr)
	case *Subscript:
		c.compileExpr(t.Value)
		c.compileExpr(t.Index)
		c.emit(bytecode.OpDelSubscr)
	default:
		c.errorAt(target, "can't delete "+exprKind(target))
	}
}

func (c *Compiler) compileWhile(s *While) {
	loopStart := c.offset()
	c.compileExpr(s.Test)
	jExit := c.code().EmitJump(bytecode.OpJumpIfFalse)

	fb := &fblock{kind: fbWhile, continueTarget: loopStart}
	c.pushFblock(fb)
	c.compileStmts(s.Body)
	c.popFblock()
	c.code().EmitLoop(loopStart)

	c.code().PatchJump(jExit)
	c.compileStmts(s.OrElse)
	for _, b := range fb.breaks {
		c.code().PatchJump(b)
	}
}

func (c *Compiler) compileFor(s *For) {
	c.compileExpr(s.Iter)
	c.emit(bytecode.OpGetIter)
	c.u.depth++

	loopStart := c.offset()
	jExit := c.code().EmitJump(bytecode.OpForIter)
	c.compileStore(s.Target)

	fb := &fblock{kind: fbFor, continueTarget: loopStart}
	c.pushFblock(fb)
	c.compileStmts(s.Body)
	c.popFblock()
	c.code().EmitLoop(loopStart)

	// FOR_ITER pops the exhausted iterator before jumping here.
	c.code().PatchJump(jExit)
	c.u.depth--
	c.compileStmts(s.OrElse)
	for _, b := range fb.breaks {
		c.code().PatchJump(b)
	}
}

// innermostLoop returns the index of the innermost loop fblock, or -1.
func (c *Compiler) innermostLoop() int {
	for i := len(c.u.fblocks) - 1; i >= 0; i-- {
		switch c.u.fblocks[i].kind {
		case fbWhile, fbFor:
			return i
		}
	}
	return -1
}

func (c *Compiler) compileBreak(s *Break) {
	idx := c.innermostLoop()
	if idx < 0 {
		c.errorAt(s, "'break' outside loop")
	}
	depth := c.u.depth
	saved := c.unwind(idx+1, false)
	loop := saved[idx]
	if loop.kind == fbFor {
		c.emit(bytecode.OpPop)
	}
	loop.breaks = append(loop.breaks, c.code().EmitJump(bytecode.OpJump))
	c.reopen(saved, idx+1)
	c.u.depth = depth
}

func (c *Compiler) compileContinue(s *Continue) {
	idx := c.innermostLoop()
	if idx < 0 {
		c.errorAt(s, "'continue' not properly in loop")
	}
	depth := c.u.depth
	saved := c.unwind(idx+1, false)
	c.code().EmitLoop(saved[idx].continueTarget)
	c.reopen(saved, idx+1)
	c.u.depth = depth
}

// unwind emits the cleanup for leaving every fblock above stop: inlined
// finally bodies, handled exceptions and, when returning, loop iterators.
// preserveTop keeps a return value on top of the stack. Protected regions
// being left are closed so inlined code is not covered by them; reopen
// restores them.
func (c *Compiler) unwind(stop int, preserveTop bool) []*fblock {
	saved := c.u.fblocks
	for _, fb := range saved[stop:] {
		if fb.isTry() {
			fb.closeSegment(c.offset())
		}
	}
	for i := len(saved) - 1; i >= stop; i-- {
		fb := saved[i]
		switch fb.kind {
		case fbTryFinally:
			c.u.fblocks = saved[:i]
			c.compileStmts(fb.finalBody)
			c.u.fblocks = saved
		case fbHandler:
			if preserveTop {
				c.emit(bytecode.OpSwap)
			}
			c.emit(bytecode.OpPopExcept)
			c.u.depth--
		case fbFor:
			if preserveTop {
				c.emit(bytecode.OpSwap)
			}
			c.emit(bytecode.OpPop)
			c.u.depth--
		}
	}
	return saved
}

func (c *Compiler) reopen(saved []*fblock, stop int) {
	for _, fb := range saved[stop:] {
		if fb.isTry() {
			fb.segStart = c.offset()
		}
	}
}

func (c *Compiler) addHandlers(fb *fblock, target int) {
	for _, seg := range fb.segments {
		c.code().AddHandler(bytecode.HandlerRange{
			Start:  uint32(seg[0]),
			End:    uint32(seg[1]),
			Target: uint32(target),
			Depth:  uint32(fb.depth),
		})
	}
}

// compileTryExcept lays out:
//
//	body; JUMP else
//	handler: (exception on stack)
//	  DUP; type; EXC_MATCH; JUMP_IF_FALSE next; [DUP; STORE name]; clause; POP_EXCEPT; JUMP end
//	  next: ... RERAISE
//	else: orelse
//	end:
func (c *Compiler) compileTryExcept(s *Try) {
	fb := &fblock{kind: fbTryExcept, segStart: c.offset(), depth: c.u.depth}
	c.pushFblock(fb)
	c.compileStmts(s.Body)
	c.popFblock()
	fb.closeSegment(c.offset())
	jElse := c.code().EmitJump(bytecode.OpJump)

	handler := c.offset()
	c.addHandlers(fb, handler)
	c.u.depth++

	var ends []int
	for i := range s.Handlers {
		h := &s.Handlers[i]
		c.setLoc(h)
		next := -1
		if h.Type != nil {
			c.emit(bytecode.OpDup)
			c.compileExpr(h.Type)
			c.emit(bytecode.OpExcMatch)
			next = c.code().EmitJump(bytecode.OpJumpIfFalse)
		}
		if h.Name != "" {
			c.emit(bytecode.OpDup)
			c.emitName(bytecode.OpStoreName, h.Name)
		}
		c.pushFblock(&fblock{kind: fbHandler})
		c.compileStmts(h.Body)
		c.popFblock()
		c.emit(bytecode.OpPopExcept)
		ends = append(ends, c.code().EmitJump(bytecode.OpJump))
		if next >= 0 {
			c.code().PatchJump(next)
		}
	}
	c.emit(bytecode.OpReraise)
	c.u.depth--

	c.code().PatchJump(jElse)
	c.compileStmts(s.OrElse)
	for _, e := range ends {
		c.code().PatchJump(e)
	}
}

// compileTryFinally runs the finally body on the normal path and again
// on the exceptional path before re-raising.
func (c *Compiler) compileTryFinally(s *Try) {
	fb := &fblock{kind: fbTryFinally, segStart: c.offset(), finalBody: s.Finally, depth: c.u.depth}
	c.pushFblock(fb)
	if len(s.Handlers) > 0 {
		c.compileTryExcept(&Try{SpanVal: s.SpanVal, Body: s.Body, Handlers: s.Handlers, OrElse: s.OrElse})
	} else {
		c.compileStmts(s.Body)
	}
	c.popFblock()
	fb.closeSegment(c.offset())

	c.compileStmts(s.Finally)
	jEnd := c.code().EmitJump(bytecode.OpJump)

	handler := c.offset()
	c.addHandlers(fb, handler)
	c.u.depth++
	c.pushFblock(&fblock{kind: fbHandler})
	c.compileStmts(s.Finally)
	c.popFblock()
	c.u.depth--
	c.emit(bytecode.OpReraise)

	c.code().PatchJump(jEnd)
}

// compileFunctionBody compiles a def body into its own code object.
func (c *Compiler) compileFunctionBody(s *FuncDef) *bytecode.CodeObject {
	outer := c.u
	c.u = &unit{code: bytecode.NewCodeObject(s.Name, c.filename, bytecode.KindFunction)}
	c.u.code.Mode = c.mode
	c.u.code.FirstLine = uint32(s.SpanVal.Start.Line)
	for _, p := range s.Params {
		c.u.code.Params = append(c.u.code.Params, p.Name)
	}
	c.compileStmts(s.Body)
	code := c.finishUnit(true)
	c.u = outer
	return code
}

// compileClassBody compiles a class body; it runs in the class namespace.
func (c *Compiler) compileClassBody(s *ClassDef) *bytecode.CodeObject {
	outer := c.u
	c.u = &unit{code: bytecode.NewCodeObject(s.Name, c.filename, bytecode.KindClassBody)}
	c.u.code.Mode = c.mode
	c.u.code.FirstLine = uint32(s.SpanVal.Start.Line)
	c.compileStmts(s.Body)
	code := c.finishUnit(true)
	c.u = outer
	return code
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (c *Compiler) compileExpr(e Expr) {
	c.setLoc(e)

	switch e := e.(type) {
	case *IntLiteral:
		c.emitConst(bytecode.Constant{Kind: bytecode.ConstInt, Int: e.Value})
	case *FloatLiteral:
		c.emitConst(bytecode.Constant{Kind: bytecode.ConstFloat, Float: e.Value})
	case *StringLiteral:
		c.emitConst(bytecode.Constant{Kind: bytecode.ConstString, Str: e.Value})
	case *NoneLiteral:
		c.emit(bytecode.OpLoadNone)
	case *BoolLiteral:
		if e.Value {
			c.emit(bytecode.OpLoadTrue)
		} else {
			c.emit(bytecode.OpLoadFalse)
		}
	case *Name:
		c.emitName(bytecode.OpLoadName, e.Ident)

	case *TupleExpr:
		for _, el := range e.Elements {
			c.compileExpr(el)
		}
		c.emitArg(bytecode.OpBuildTuple, len(e.Elements))
	case *ListExpr:
		for _, el := range e.Elements {
			c.compileExpr(el)
		}
		c.emitArg(bytecode.OpBuildList, len(e.Elements))
	case *DictExpr:
		for i := range e.Keys {
			c.compileExpr(e.Keys[i])
			c.compileExpr(e.Values[i])
		}
		c.emitArg(bytecode.OpBuildDict, len(e.Keys))

	case *Attribute:
		c.compileExpr(e.Value)
		c.setLoc(e)
		c.emitName(bytecode.OpLoadAttr, e.Attr)
	case *Subscript:
		c.compileExpr(e.Value)
		c.compileExpr(e.Index)
		c.setLoc(e)
		c.emit(bytecode.OpLoadSubscr)
	case *SliceExpr:
		c.compileOptional(e.Lower)
		c.compileOptional(e.Upper)
		if e.HasStep {
			c.compileOptional(e.Step)
			c.code().EmitU8(bytecode.OpBuildSlice, 3)
		} else {
			c.code().EmitU8(bytecode.OpBuildSlice, 2)
		}

	case *Call:
		c.compileCall(e)

	case *UnaryOp:
		c.compileExpr(e.Operand)
		c.setLoc(e)
		switch e.Op {
		case TokenMinus:
			c.emit(bytecode.OpUnaryNeg)
		case TokenPlus:
			c.emit(bytecode.OpUnaryPos)
		default:
			c.emit(bytecode.OpUnaryNot)
		}
	case *BinOp:
		c.compileExpr(e.Left)
		c.compileExpr(e.Right)
		c.setLoc(e)
		c.code().EmitU8(bytecode.OpBinary, uint8(e.Op))
	case *BoolOp:
		op := bytecode.OpJumpIfTrueOrPop
		if e.And {
			op = bytecode.OpJumpIfFalseOrPop
		}
		var jumps []int
		for i, v := range e.Values {
			c.compileExpr(v)
			if i < len(e.Values)-1 {
				jumps = append(jumps, c.code().EmitJump(op))
			}
		}
		for _, j := range jumps {
			c.code().PatchJump(j)
		}
	case *Compare:
		c.compileCompare(e)
	case *IfExpr:
		c.compileExpr(e.Test)
		jElse := c.code().EmitJump(bytecode.OpJumpIfFalse)
		c.compileExpr(e.Body)
		jEnd := c.code().EmitJump(bytecode.OpJump)
		c.code().PatchJump(jElse)
		c.compileExpr(e.OrElse)
		c.code().PatchJump(jEnd)

	default:
		c.errorAt(e, "unsupported expression")
	}
}

func (c *Compiler) compileOptional(e Expr) {
	if e == nil {
		c.emit(bytecode.OpLoadNone)
		return
	}
	c.compileExpr(e)
}

func (c *Compiler) compileCall(e *Call) {
	c.compileExpr(e.Func)
	for _, a := range e.Args {
		c.compileExpr(a)
	}
	c.setLoc(e)
	if len(e.Keywords) == 0 {
		c.emitArg(bytecode.OpCall, len(e.Args))
		return
	}
	names := make([]string, len(e.Keywords))
	for i, kw := range e.Keywords {
		c.compileExpr(kw.Value)
		names[i] = kw.Name
	}
	c.emitConst(bytecode.Constant{Kind: bytecode.ConstNames, Names: names})
	c.setLoc(e)
	c.emitArg(bytecode.OpCallKw, len(e.Args)+len(e.Keywords))
}

// compileCompare evaluates a chain a op1 b op2 c as (a op1 b) and
// (b op2 c) with b evaluated once.
func (c *Compiler) compileCompare(e *Compare) {
	c.compileExpr(e.Left)
	if len(e.Ops) == 1 {
		c.compileExpr(e.Comparators[0])
		c.setLoc(e)
		c.code().EmitU8(bytecode.OpCompare, uint8(e.Ops[0]))
		return
	}

	var cleanups []int
	last := len(e.Ops) - 1
	for i := 0; i < last; i++ {
		c.compileExpr(e.Comparators[i])
		c.emit(bytecode.OpDup)
		c.emit(bytecode.OpRot)
		c.code().EmitU8(bytecode.OpCompare, uint8(e.Ops[i]))
		cleanups = append(cleanups, c.code().EmitJump(bytecode.OpJumpIfFalseOrPop))
	}
	c.compileExpr(e.Comparators[last])
	c.code().EmitU8(bytecode.OpCompare, uint8(e.Ops[last]))
	jEnd := c.code().EmitJump(bytecode.OpJump)

	for _, j := range cleanups {
		c.code().PatchJump(j)
	}
	c.emit(bytecode.OpSwap)
	c.emit(bytecode.OpPop)
	c.code().PatchJump(jEnd)
}
