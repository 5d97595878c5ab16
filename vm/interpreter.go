package vm

import (
	"fmt"

	"github.com/chazu/serpent/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// Interpreter loop
// ---------------------------------------------------------------------------

// DefaultRecursionLimit bounds the depth of the frame stack.
const DefaultRecursionLimit = 1000

// exitKind says why dispatch stopped running a frame.
type exitKind uint8

const (
	exitReturn exitKind = iota // the frame returned a value
	exitCall                   // a callee frame was pushed
)

func (vm *VM) topFrame() *Frame {
	return vm.frames[len(vm.frames)-1]
}

func (vm *VM) pushFrame(f *Frame) error {
	if len(vm.frames) >= vm.RecursionLimit {
		return vm.Errorf(vm.RecursionErrorType, "maximum recursion depth exceeded")
	}
	f.State = FrameRunning
	vm.frames = append(vm.frames, f)
	return nil
}

func (vm *VM) popFrame() {
	vm.frames[len(vm.frames)-1] = nil
	vm.frames = vm.frames[:len(vm.frames)-1]
}

// execute pushes f and runs until it returns or an exception escapes it.
func (vm *VM) execute(f *Frame) (Value, error) {
	base := len(vm.frames)
	if err := vm.pushFrame(f); err != nil {
		return None, err
	}
	return vm.run(base)
}

// run dispatches the frame stack until the frame at index base finishes.
// Python-level calls push frames onto the same stack, so they never
// recurse on the Go stack.
func (vm *VM) run(base int) (Value, error) {
	for {
		f := vm.topFrame()
		f.State = FrameRunning
		result, exit, err := vm.dispatch(f)
		if err == nil {
			if exit == exitCall {
				continue
			}
			f.State = FrameReturning
			vm.popFrame()
			f.State = FrameTerminal
			result, err = vm.completeFrame(f, result)
			if err == nil {
				if len(vm.frames) == base {
					return result, nil
				}
				vm.topFrame().push(result)
				continue
			}
			if len(vm.frames) == base {
				return None, err
			}
			// The failure belongs to the suspended caller.
		}
		if exc, escaped := vm.unwind(base, err); escaped {
			return None, exc
		}
	}
}

// completeFrame post-processes the result of a finished frame: class
// bodies become classes and __init__ frames yield their instance.
func (vm *VM) completeFrame(f *Frame, result Value) (Value, error) {
	switch {
	case f.class != nil:
		return vm.NewClass(f.class.name, f.class.bases, vm.scope(f.Scope).Vars)
	case f.initSelf != Missing:
		if result != None {
			return None, vm.Errorf(vm.TypeErrorType, "__init__() should return None, not '%s'", vm.TypeName(result))
		}
		return f.initSelf, nil
	}
	return result, nil
}

// unwind propagates an exception from the top frame outwards. A frame
// whose handler table covers the faulting instruction catches it;
// otherwise the frame terminates and its caller repeats the search. It
// reports escaped when the exception leaves the frame at index base.
func (vm *VM) unwind(base int, err error) (*ExceptionObject, bool) {
	exc := vm.asException(err)
	vm.setContext(exc)
	for {
		f := vm.topFrame()
		f.State = FrameUnwinding
		vm.addTraceback(exc, f)
		if vm.catch(f, exc) {
			f.State = FrameRunning
			return nil, false
		}
		f.State = FrameTerminal
		vm.popFrame()
		if len(vm.frames) == base {
			return exc, true
		}
	}
}

// catch looks for the first handler range covering the faulting
// instruction. On a match the operand stack is cut back to the range's
// depth, the exception becomes the frame's handled exception and is
// pushed for the handler code, and execution resumes at the target.
func (vm *VM) catch(f *Frame, exc *ExceptionObject) bool {
	for i := range f.Code.Handlers {
		h := &f.Code.Handlers[i]
		if !h.Covers(f.lastIP) {
			continue
		}
		depth := min(int(h.Depth), len(f.stack))
		f.stack = f.stack[:depth]
		for len(f.handled) > 0 && f.handled[len(f.handled)-1].depth >= depth {
			f.handled = f.handled[:len(f.handled)-1]
		}
		f.handled = append(f.handled, handledException{exc: exc.self, depth: depth})
		f.push(exc.self)
		if h.Bind != "" {
			vm.StoreName(f.Scope, h.Bind, exc.self)
		}
		f.ip = int(h.Target)
		return true
	}
	return false
}

// setContext records the exception being handled when exc was raised.
func (vm *VM) setContext(exc *ExceptionObject) {
	if exc.Context != None {
		return
	}
	if cur, ok := vm.currentHandled(); ok && cur != exc.self {
		exc.Context = cur
	}
}

// currentHandled returns the innermost exception being handled anywhere
// on the frame stack.
func (vm *VM) currentHandled() (Value, bool) {
	for i := len(vm.frames) - 1; i >= 0; i-- {
		if cur, ok := vm.frames[i].currentException(); ok {
			return cur, true
		}
	}
	return None, false
}

func (vm *VM) addTraceback(exc *ExceptionObject, f *Frame) {
	if exc.lastFrame == f {
		return
	}
	exc.lastFrame = f
	exc.Traceback = append(exc.Traceback, TracebackEntry{
		Filename: f.Code.Filename,
		Line:     f.Line(),
		Func:     f.Code.Name,
	})
}

// jumpTo moves the instruction pointer. Backward jumps are safe points
// for the collector when no native call is in progress.
func (vm *VM) jumpTo(f *Frame, target int) {
	if target <= f.lastIP && vm.nativeDepth == 0 && vm.heap.allocs >= vm.gcThreshold {
		vm.collect()
	}
	f.ip = target
}

// dispatch executes instructions of f until it returns, pushes a callee
// frame, or fails.
func (vm *VM) dispatch(f *Frame) (Value, exitKind, error) {
	code := f.Code.Code
	for {
		var err error
		f.lastIP = f.ip
		op := bytecode.Opcode(code[f.ip])
		f.ip++

		switch op {
		case bytecode.OpNop:

		case bytecode.OpPop:
			f.pop()

		case bytecode.OpDup:
			f.push(f.top())

		case bytecode.OpSwap:
			n := len(f.stack)
			f.stack[n-1], f.stack[n-2] = f.stack[n-2], f.stack[n-1]

		case bytecode.OpRot:
			n := len(f.stack)
			a, b, c := f.stack[n-3], f.stack[n-2], f.stack[n-1]
			f.stack[n-3], f.stack[n-2], f.stack[n-1] = c, a, b

		case bytecode.OpDup2:
			n := len(f.stack)
			a, b := f.stack[n-2], f.stack[n-1]
			f.push(a)
			f.push(b)

		case bytecode.OpLoadConst:
			v := f.consts[f.readU16()]
			if v == Missing {
				err = vm.Errorf(vm.OverflowErrorType, "integer literal too large")
				break
			}
			f.push(v)

		case bytecode.OpLoadNone:
			f.push(None)

		case bytecode.OpLoadTrue:
			f.push(True)

		case bytecode.OpLoadFalse:
			f.push(False)

		case bytecode.OpLoadAssertionError:
			f.push(vm.AssertionErrorType)

		case bytecode.OpLoadName:
			name := f.Code.Names[f.readU16()]
			v, ok := vm.LookupName(f.Scope, name)
			if !ok {
				err = vm.Errorf(vm.NameErrorType, "name '%s' is not defined", name)
				break
			}
			f.push(v)

		case bytecode.OpStoreName:
			vm.StoreName(f.Scope, f.Code.Names[f.readU16()], f.pop())

		case bytecode.OpDeleteName:
			err = vm.deleteName(f.Scope, f.Code.Names[f.readU16()])

		case bytecode.OpLoadAttr:
			name := f.Code.Names[f.readU16()]
			var v Value
			if v, err = vm.GetAttr(f.pop(), name); err == nil {
				f.push(v)
			}

		case bytecode.OpStoreAttr:
			name := f.Code.Names[f.readU16()]
			obj := f.pop()
			err = vm.SetAttr(obj, name, f.pop())

		case bytecode.OpDelAttr:
			err = vm.DelAttr(f.pop(), f.Code.Names[f.readU16()])

		case bytecode.OpLoadSubscr:
			key := f.pop()
			var v Value
			if v, err = vm.GetItem(f.pop(), key); err == nil {
				f.push(v)
			}

		case bytecode.OpStoreSubscr:
			key := f.pop()
			obj := f.pop()
			err = vm.SetItem(obj, key, f.pop())

		case bytecode.OpDelSubscr:
			key := f.pop()
			err = vm.DelItem(f.pop(), key)

		case bytecode.OpBuildTuple:
			f.push(vm.NewTuple(f.popN(f.readU16())))

		case bytecode.OpBuildList:
			f.push(vm.NewList(f.popN(f.readU16())))

		case bytecode.OpBuildDict:
			items := f.popN(2 * f.readU16())
			d := vm.NewDict()
			for i := 0; i < len(items) && err == nil; i += 2 {
				err = vm.DictSet(d, items[i], items[i+1])
			}
			if err == nil {
				f.push(d)
			}

		case bytecode.OpBuildSlice:
			step := None
			if f.readU8() == 3 {
				step = f.pop()
			}
			stop := f.pop()
			start := f.pop()
			f.push(vm.NewSlice(start, stop, step))

		case bytecode.OpUnpackSequence:
			n := f.readU16()
			var items []Value
			if items, err = vm.unpack(f.pop(), n); err == nil {
				for i := n - 1; i >= 0; i-- {
					f.push(items[i])
				}
			}

		case bytecode.OpBinary:
			op := bytecode.BinaryOp(f.readU8())
			b := f.pop()
			var v Value
			if v, err = vm.BinaryOp(op, f.pop(), b); err == nil {
				f.push(v)
			}

		case bytecode.OpCompare:
			op := bytecode.CompareOp(f.readU8())
			b := f.pop()
			var v Value
			if v, err = vm.Compare(op, f.pop(), b); err == nil {
				f.push(v)
			}

		case bytecode.OpUnaryNeg, bytecode.OpUnaryPos:
			var v Value
			if v, err = vm.unaryOp(op, f.pop()); err == nil {
				f.push(v)
			}

		case bytecode.OpUnaryNot:
			var t bool
			if t, err = vm.Truthy(f.pop()); err == nil {
				f.push(FromBool(!t))
			}

		case bytecode.OpJump:
			vm.jumpTo(f, f.readU16())

		case bytecode.OpJumpIfFalse, bytecode.OpJumpIfTrue:
			target := f.readU16()
			var t bool
			if t, err = vm.Truthy(f.pop()); err == nil && t == (op == bytecode.OpJumpIfTrue) {
				vm.jumpTo(f, target)
			}

		case bytecode.OpJumpIfFalseOrPop, bytecode.OpJumpIfTrueOrPop:
			target := f.readU16()
			var t bool
			if t, err = vm.Truthy(f.top()); err == nil {
				if t == (op == bytecode.OpJumpIfTrueOrPop) {
					vm.jumpTo(f, target)
				} else {
					f.pop()
				}
			}

		case bytecode.OpGetIter:
			var it Value
			if it, err = vm.GetIter(f.pop()); err == nil {
				f.push(it)
			}

		case bytecode.OpForIter:
			target := f.readU16()
			var (
				next Value
				ok   bool
			)
			if next, ok, err = vm.IterNext(f.top()); err == nil {
				if ok {
					f.push(next)
				} else {
					f.pop()
					vm.jumpTo(f, target)
				}
			}

		case bytecode.OpMakeFunction:
			n := f.readU16()
			cv, ok := as[*CodeValue](vm, f.pop())
			if !ok {
				err = vm.Errorf(vm.RuntimeErrorType, "MAKE_FUNCTION without a code object")
				break
			}
			defaults := f.popN(n)
			scope := f.Scope
			if f.Code.Kind == bytecode.KindClassBody {
				scope = vm.scope(f.Scope).Parent
			}
			f.push(vm.newFunction(cv, scope, defaults))

		case bytecode.OpCall:
			args := Args{Positional: f.popN(f.readU16())}
			callee := f.pop()
			var (
				v      Value
				pushed bool
			)
			if v, pushed, err = vm.callFrom(f, callee, args); err == nil {
				if pushed {
					return None, exitCall, nil
				}
				f.push(v)
			}

		case bytecode.OpCallKw:
			argc := f.readU16()
			names, _ := as[*TupleObject](vm, f.pop())
			values := f.popN(argc)
			callee := f.pop()
			npos := argc - len(names.Items)
			args := Args{Positional: values[:npos]}
			for i, nv := range names.Items {
				name, _ := vm.StringOf(nv)
				args.Keywords = append(args.Keywords, Keyword{Name: name, Value: values[npos+i]})
			}
			var (
				v      Value
				pushed bool
			)
			if v, pushed, err = vm.callFrom(f, callee, args); err == nil {
				if pushed {
					return None, exitCall, nil
				}
				f.push(v)
			}

		case bytecode.OpReturn:
			return f.pop(), exitReturn, nil

		case bytecode.OpBuildClass:
			bases := f.pop()
			nameV := f.pop()
			body, ok := as[*FunctionObject](vm, f.pop())
			name, _ := vm.StringOf(nameV)
			if !ok {
				err = vm.Errorf(vm.TypeErrorType, "class body must be a function")
				break
			}
			frame := vm.newFrame(body.Code, body.consts, vm.NewScope(body.Scope))
			frame.class = &pendingClass{name: name, bases: bases}
			if err = vm.pushFrame(frame); err == nil {
				f.State = FrameSuspendedOnCall
				return None, exitCall, nil
			}

		case bytecode.OpRaise:
			err = vm.raise(f, f.readU8())

		case bytecode.OpPushExc:
			cur, _ := vm.currentHandled()
			f.push(cur)

		case bytecode.OpExcMatch:
			typ := f.pop()
			var ok bool
			if ok, err = vm.exceptionMatches(f.pop(), typ); err == nil {
				f.push(FromBool(ok))
			}

		case bytecode.OpPopExcept:
			f.pop()
			if n := len(f.handled); n > 0 {
				f.handled = f.handled[:n-1]
			}

		case bytecode.OpReraise:
			cur, ok := f.currentException()
			if !ok {
				err = vm.Errorf(vm.RuntimeErrorType, "No active exception to reraise")
				break
			}
			exc, _ := as[*ExceptionObject](vm, cur)
			err = exc

		case bytecode.OpImportName:
			var mod Value
			if mod, err = vm.Import(f.Code.Names[f.readU16()]); err == nil {
				f.push(mod)
			}

		case bytecode.OpImportFrom:
			name := f.Code.Names[f.readU16()]
			mod := f.top()
			v, gerr := vm.GetAttr(mod, name)
			if gerr != nil {
				modName := vm.TypeName(mod)
				if m, ok := as[*ModuleObject](vm, mod); ok {
					modName = m.Name
				}
				err = vm.Errorf(vm.ImportErrorType, "cannot import name '%s' from '%s'", name, modName)
				break
			}
			f.push(v)

		case bytecode.OpPrintExpr:
			v := f.pop()
			if v == None {
				break
			}
			var s string
			if s, err = vm.Repr(v); err == nil {
				fmt.Fprintln(vm.Stdout, s)
				vm.StoreName(vm.Builtins, "_", v)
			}

		default:
			err = vm.Errorf(vm.RuntimeErrorType, "unknown opcode %s at %04X", op, f.lastIP)
		}

		if err != nil {
			return None, exitReturn, err
		}
	}
}

// raise implements RAISE with argc 0 (re-raise), 1 (exception) or 2
// (exception from cause). It always returns the exception to propagate.
func (vm *VM) raise(f *Frame, argc int) error {
	switch argc {
	case 0:
		cur, ok := vm.currentHandled()
		if !ok {
			return vm.Errorf(vm.RuntimeErrorType, "No active exception to reraise")
		}
		exc, _ := as[*ExceptionObject](vm, cur)
		return exc
	case 1:
		exc, err := vm.exceptionValue(f.pop())
		if err != nil {
			return err
		}
		return exc
	}
	causeV := f.pop()
	exc, err := vm.exceptionValue(f.pop())
	if err != nil {
		return err
	}
	exc.SuppressContext = true
	if causeV == None {
		exc.Cause = None
		return exc
	}
	cause, err := vm.exceptionValue(causeV)
	if err != nil {
		return err
	}
	exc.Cause = cause.self
	return exc
}

// exceptionMatches implements the except clause test. typ is a class or
// a tuple of classes.
func (vm *VM) exceptionMatches(exc, typ Value) (bool, error) {
	if tup, ok := as[*TupleObject](vm, typ); ok {
		for _, t := range tup.Items {
			m, err := vm.exceptionMatches(exc, t)
			if err != nil || m {
				return m, err
			}
		}
		return false, nil
	}
	if !vm.IsType(typ) || !vm.IsSubclass(typ, vm.BaseExceptionType) {
		return false, vm.Errorf(vm.TypeErrorType, "catching classes that do not inherit from BaseException is not allowed")
	}
	return vm.IsInstance(exc, typ), nil
}

// ---------------------------------------------------------------------------
// Calls
// ---------------------------------------------------------------------------

func (vm *VM) newFunction(cv *CodeValue, scope Value, defaults []Value) Value {
	return vm.heap.Alloc(&FunctionObject{
		Name:     cv.Code.Name,
		Code:     cv.Code,
		Scope:    scope,
		Defaults: defaults,
		Attrs:    NewAttrTable(),
		consts:   vm.codeConstants(cv),
	})
}

// functionFrame binds args to fn's parameters in a new scope chained to
// the scope fn captured.
func (vm *VM) functionFrame(fn *FunctionObject, args Args) (*Frame, error) {
	params := fn.Code.Params
	if len(args.Positional) > len(params) {
		return nil, vm.Errorf(vm.TypeErrorType, "%s() takes %d positional %s but %d %s given",
			fn.Name, len(params), plural(len(params), "argument"), len(args.Positional), wasWere(len(args.Positional)))
	}

	bound := make([]Value, len(params))
	for i := range bound {
		bound[i] = Missing
	}
	copy(bound, args.Positional)

	for _, kw := range args.Keywords {
		idx := -1
		for i, p := range params {
			if p == kw.Name {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, vm.Errorf(vm.TypeErrorType, "%s() got an unexpected keyword argument '%s'", fn.Name, kw.Name)
		}
		if bound[idx] != Missing {
			return nil, vm.Errorf(vm.TypeErrorType, "%s() got multiple values for argument '%s'", fn.Name, kw.Name)
		}
		bound[idx] = kw.Value
	}

	scopeV := vm.NewScope(fn.Scope)
	vars := vm.scope(scopeV).Vars
	firstDefault := len(params) - len(fn.Defaults)
	for i, p := range params {
		if bound[i] == Missing {
			if i < firstDefault {
				return nil, vm.Errorf(vm.TypeErrorType, "%s() missing required argument: '%s'", fn.Name, p)
			}
			bound[i] = fn.Defaults[i-firstDefault]
		}
		vars.Set(p, bound[i])
	}
	return vm.newFrame(fn.Code, fn.consts, scopeV), nil
}

func wasWere(n int) string {
	if n == 1 {
		return "was"
	}
	return "were"
}

// callFrom calls callee for the instruction running in f. Python-level
// callees are pushed as frames (pushed is true) and their result arrives
// on f's stack when they return; everything else runs to completion.
func (vm *VM) callFrom(f *Frame, callee Value, args Args) (result Value, pushed bool, err error) {
	switch o := vm.heap.Get(callee).(type) {
	case *FunctionObject:
		frame, err := vm.functionFrame(o, args)
		if err != nil {
			return None, false, err
		}
		if err := vm.pushFrame(frame); err != nil {
			return None, false, err
		}
		f.State = FrameSuspendedOnCall
		return None, true, nil

	case *BoundMethod:
		return vm.callFrom(f, o.Func, args.prepend(o.Self))

	case *TypeObject:
		obj, init, err := vm.instantiate(callee, args)
		if err != nil || init == Missing {
			return obj, false, err
		}
		m, _ := as[*BoundMethod](vm, init)
		fn, ok := as[*FunctionObject](vm, m.Func)
		if !ok {
			_, err := vm.Call(init, args)
			return obj, false, err
		}
		frame, err := vm.functionFrame(fn, args.prepend(obj))
		if err != nil {
			return None, false, err
		}
		frame.initSelf = obj
		if err := vm.pushFrame(frame); err != nil {
			return None, false, err
		}
		f.State = FrameSuspendedOnCall
		return None, true, nil
	}
	result, err = vm.Call(callee, args)
	return result, false, err
}

// Call invokes any callable from Go. Python-level functions run in a
// nested interpreter loop bounded to their own frame. The collector does
// not run while a Call is in progress.
func (vm *VM) Call(callee Value, args Args) (Value, error) {
	vm.nativeDepth++
	defer func() { vm.nativeDepth-- }()
	return vm.call(callee, args)
}

func (vm *VM) call(callee Value, args Args) (Value, error) {
	switch o := vm.heap.Get(callee).(type) {
	case *NativeFunction:
		return o.Fn(vm, args)

	case *FunctionObject:
		frame, err := vm.functionFrame(o, args)
		if err != nil {
			return None, err
		}
		return vm.execute(frame)

	case *BoundMethod:
		return vm.call(o.Func, args.prepend(o.Self))

	case *TypeObject:
		obj, init, err := vm.instantiate(callee, args)
		if err != nil || init == Missing {
			return obj, err
		}
		r, err := vm.call(init, args)
		if err != nil {
			return None, err
		}
		if r != None {
			return None, vm.Errorf(vm.TypeErrorType, "__init__() should return None, not '%s'", vm.TypeName(r))
		}
		return obj, nil
	}

	if fn, ok := vm.lookupType(vm.TypeOf(callee), "__call__"); ok {
		return vm.call(fn, args.prepend(callee))
	}
	return None, vm.Errorf(vm.TypeErrorType, "'%s' object is not callable", vm.TypeName(callee))
}

// callMethod looks name up on the type of obj and calls it with obj as
// the receiver. found is false when the type does not define name.
func (vm *VM) callMethod(obj Value, name string, args ...Value) (result Value, found bool, err error) {
	fn, ok := vm.lookupType(vm.TypeOf(obj), name)
	if !ok {
		return None, false, nil
	}
	pos := make([]Value, 0, len(args)+1)
	pos = append(pos, obj)
	pos = append(pos, args...)
	result, err = vm.Call(fn, Args{Positional: pos})
	return result, true, err
}
