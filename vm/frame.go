package vm

import (
	"fmt"

	"github.com/chazu/serpent/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// Frame: one activation of a code object
// ---------------------------------------------------------------------------

// FrameState tracks where a frame is in its lifecycle.
type FrameState uint8

const (
	FrameRunning         FrameState = iota // dispatching instructions
	FrameSuspendedOnCall                   // waiting for a callee frame
	FrameReturning                         // producing its result
	FrameUnwinding                         // searching its handlers for an exception
	FrameTerminal                          // returned or let an exception escape
)

var frameStateNames = [...]string{"Running", "SuspendedOnCall", "Returning", "Unwinding", "Terminal"}

func (s FrameState) String() string {
	if int(s) < len(frameStateNames) {
		return frameStateNames[s]
	}
	return fmt.Sprintf("FrameState(%d)", s)
}

// handledException is an exception caught by a handler that has not yet
// finished. depth is the operand stack depth of the handler range.
type handledException struct {
	exc   Value
	depth int
}

// pendingClass is attached to a class body frame; when the body returns,
// its scope becomes the namespace of the new class.
type pendingClass struct {
	name  string
	bases Value
}

// Frame holds the execution state of one code object.
type Frame struct {
	Code  *bytecode.CodeObject
	Scope Value
	State FrameState

	ip     int // next instruction
	lastIP int // start of the instruction being executed

	consts  []Value
	stack   []Value
	handled []handledException

	class    *pendingClass
	initSelf Value // instance being initialized by this __init__ frame, or Missing
}

// newFrame creates a frame for code. consts is its constant pool as
// values; nil converts the pool afresh.
func (vm *VM) newFrame(code *bytecode.CodeObject, consts []Value, scope Value) *Frame {
	if consts == nil {
		consts = vm.constants(code)
	}
	return &Frame{
		Code:     code,
		Scope:    scope,
		consts:   consts,
		stack:    make([]Value, 0, 16),
		initSelf: Missing,
	}
}

func (f *Frame) push(v Value) {
	f.stack = append(f.stack, v)
}

func (f *Frame) pop() Value {
	v := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	return v
}

func (f *Frame) top() Value {
	return f.stack[len(f.stack)-1]
}

// popN removes the top n values, returning them in push order. The
// returned slice is a copy.
func (f *Frame) popN(n int) []Value {
	start := len(f.stack) - n
	out := make([]Value, n)
	copy(out, f.stack[start:])
	f.stack = f.stack[:start]
	return out
}

func (f *Frame) readU8() int {
	v := int(f.Code.Code[f.ip])
	f.ip++
	return v
}

func (f *Frame) readU16() int {
	v := int(f.Code.ReadU16(f.ip))
	f.ip += 2
	return v
}

// currentException returns the innermost exception being handled in f.
func (f *Frame) currentException() (Value, bool) {
	if n := len(f.handled); n > 0 {
		return f.handled[n-1].exc, true
	}
	return None, false
}

// Line returns the source line of the instruction being executed.
func (f *Frame) Line() int {
	line, _ := f.Code.GetSourceLocation(uint32(f.lastIP))
	return int(line)
}

func (f *Frame) trace(visit func(Value)) {
	visit(f.Scope)
	for _, v := range f.consts {
		visit(v)
	}
	for _, v := range f.stack {
		visit(v)
	}
	for _, h := range f.handled {
		visit(h.exc)
	}
	if f.class != nil {
		visit(f.class.bases)
	}
	visit(f.initSelf)
}

// constants converts a code object's constant pool to values. The result
// lives only as long as the frame or function holding it.
func (vm *VM) constants(code *bytecode.CodeObject) []Value {
	out := make([]Value, len(code.Constants))
	for i, k := range code.Constants {
		switch k.Kind {
		case bytecode.ConstInt:
			if v, ok := TryFromSmallInt(k.Int); ok {
				out[i] = v
			} else {
				out[i] = Missing // LOAD_CONST raises OverflowError
			}
		case bytecode.ConstFloat:
			out[i] = FromFloat64(k.Float)
		case bytecode.ConstString:
			out[i] = vm.NewString(k.Str)
		case bytecode.ConstCode:
			out[i] = vm.heap.Alloc(&CodeValue{Code: k.Code})
		case bytecode.ConstNames:
			names := make([]Value, len(k.Names))
			for j, n := range k.Names {
				names[j] = vm.NewString(n)
			}
			out[i] = vm.NewTuple(names)
		default:
			out[i] = None
		}
	}
	return out
}

// codeConstants returns the constant pool of a nested code object,
// converting it on first use.
func (vm *VM) codeConstants(cv *CodeValue) []Value {
	if cv.consts == nil {
		cv.consts = vm.constants(cv.Code)
	}
	return cv.consts
}
