package vm

import (
	"errors"
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Exceptions
// ---------------------------------------------------------------------------

// TracebackEntry records one frame an exception passed through.
type TracebackEntry struct {
	Filename string
	Line     int
	Func     string
}

// ExceptionObject is a raised (or raisable) exception. It is a heap object
// and also a Go error, so every VM operation can return it as the error
// half of (Value, error).
type ExceptionObject struct {
	Type    Value
	Args    []Value
	Attrs   *AttrTable
	Cause   Value // __cause__, None when unset
	Context Value // __context__, None when unset

	// SuppressContext is set by "raise ... from ..." and hides Context in
	// reports.
	SuppressContext bool

	// Traceback is ordered innermost frame first.
	Traceback []TracebackEntry

	self      Value
	typeName  string
	message   string
	lastFrame *Frame // frame of the most recent traceback entry
}

func (*ExceptionObject) Kind() Kind { return KindException }
func (e *ExceptionObject) trace(visit func(Value)) {
	visit(e.Type)
	for _, v := range e.Args {
		visit(v)
	}
	e.Attrs.trace(visit)
	visit(e.Cause)
	visit(e.Context)
}

// Error implements error as "<Type>: <message>".
func (e *ExceptionObject) Error() string {
	if e.message == "" {
		return e.typeName
	}
	return e.typeName + ": " + e.message
}

// Value returns the exception's handle.
func (e *ExceptionObject) Value() Value { return e.self }

// TypeName returns the name of the exception's class.
func (e *ExceptionObject) TypeName() string { return e.typeName }

// Message returns str() of the exception.
func (e *ExceptionObject) Message() string { return e.message }

// newException allocates an exception of type t carrying args.
func (vm *VM) newException(t Value, args []Value) *ExceptionObject {
	e := &ExceptionObject{
		Type:     t,
		Args:     args,
		Attrs:    NewAttrTable(),
		Cause:    None,
		Context:  None,
		typeName: vm.typeObj(t).Name,
	}
	e.self = vm.heap.Alloc(e)
	e.message = vm.exceptionMessage(e)
	return e
}

// exceptionMessage computes str(e) from its args. KeyError shows the
// repr of its key.
func (vm *VM) exceptionMessage(e *ExceptionObject) string {
	switch len(e.Args) {
	case 0:
		return ""
	case 1:
		if vm.IsSubclass(e.Type, vm.KeyErrorType) {
			if s, err := vm.Repr(e.Args[0]); err == nil {
				return s
			}
		}
		if s, err := vm.Str(e.Args[0]); err == nil {
			return s
		}
		return ""
	}
	s, err := vm.Repr(vm.NewTuple(e.Args))
	if err != nil {
		return ""
	}
	return s
}

// Errorf creates an exception of type t with a formatted message.
func (vm *VM) Errorf(t Value, format string, args ...any) *ExceptionObject {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return vm.newException(t, []Value{vm.NewString(msg)})
}

// asException converts any error reaching the VM boundary into an
// exception. Go errors that are not exceptions become OSError.
func (vm *VM) asException(err error) *ExceptionObject {
	var exc *ExceptionObject
	if errors.As(err, &exc) {
		return exc
	}
	return vm.Errorf(vm.OSErrorType, "%s", err.Error())
}

// errorIs reports whether err is an exception of type t or a subclass.
func (vm *VM) errorIs(err error, t Value) bool {
	var exc *ExceptionObject
	return errors.As(err, &exc) && vm.IsInstance(exc.self, t)
}

// exceptionValue turns a raised operand into an exception: exception
// instances are used as is, exception classes are instantiated.
func (vm *VM) exceptionValue(v Value) (*ExceptionObject, error) {
	if e, ok := as[*ExceptionObject](vm, v); ok {
		return e, nil
	}
	if vm.IsType(v) && vm.IsSubclass(v, vm.BaseExceptionType) {
		inst, err := vm.Call(v, Args{})
		if err != nil {
			return nil, err
		}
		if e, ok := as[*ExceptionObject](vm, inst); ok {
			return e, nil
		}
	}
	return nil, vm.Errorf(vm.TypeErrorType, "exceptions must derive from BaseException")
}

// ---------------------------------------------------------------------------
// Exception hierarchy
// ---------------------------------------------------------------------------

func (vm *VM) bootstrapExceptionTypes() {
	vm.BaseExceptionType = vm.builtinType("BaseException")
	vm.typeObj(vm.BaseExceptionType).alloc = func(vm *VM, t Value, args Args) (Value, error) {
		return vm.newException(t, append([]Value(nil), args.Positional...)).self, nil
	}

	exc := vm.builtinType("Exception", vm.BaseExceptionType)
	vm.ExceptionType = exc
	vm.CompileErrorType = vm.builtinType("CompileError", exc)
	vm.AttributeErrorType = vm.builtinType("AttributeError", exc)
	vm.TypeErrorType = vm.builtinType("TypeError", exc)
	vm.LookupErrorType = vm.builtinType("LookupError", exc)
	vm.IndexErrorType = vm.builtinType("IndexError", vm.LookupErrorType)
	vm.KeyErrorType = vm.builtinType("KeyError", vm.LookupErrorType)
	vm.NameErrorType = vm.builtinType("NameError", exc)
	vm.ValueErrorType = vm.builtinType("ValueError", exc)
	vm.ArithmeticErrorType = vm.builtinType("ArithmeticError", exc)
	vm.ZeroDivisionErrorType = vm.builtinType("ZeroDivisionError", vm.ArithmeticErrorType)
	vm.OverflowErrorType = vm.builtinType("OverflowError", vm.ArithmeticErrorType)
	vm.AssertionErrorType = vm.builtinType("AssertionError", exc)
	vm.ImportErrorType = vm.builtinType("ImportError", exc)
	vm.UnsupportedOperationType = vm.builtinType("UnsupportedOperation", exc)
	vm.RuntimeErrorType = vm.builtinType("RuntimeError", exc)
	vm.RecursionErrorType = vm.builtinType("RecursionError", vm.RuntimeErrorType)
	vm.StopIterationType = vm.builtinType("StopIteration", exc)
	vm.OSErrorType = vm.builtinType("OSError", exc)

	vm.registerExceptionPrimitives()
}

// exceptionTypes lists the exception classes published as builtins.
func (vm *VM) exceptionTypes() []Value {
	return []Value{
		vm.BaseExceptionType, vm.ExceptionType, vm.CompileErrorType,
		vm.AttributeErrorType, vm.TypeErrorType, vm.LookupErrorType,
		vm.IndexErrorType, vm.KeyErrorType, vm.NameErrorType,
		vm.ValueErrorType, vm.ArithmeticErrorType, vm.ZeroDivisionErrorType,
		vm.OverflowErrorType, vm.AssertionErrorType, vm.ImportErrorType,
		vm.UnsupportedOperationType, vm.RuntimeErrorType, vm.RecursionErrorType,
		vm.StopIterationType, vm.OSErrorType,
	}
}

func (vm *VM) registerExceptionPrimitives() {
	t := vm.BaseExceptionType

	vm.defineMethod(t, "__init__", func(vm *VM, args Args) (Value, error) {
		if err := vm.noKeywords("BaseException.__init__", args); err != nil {
			return None, err
		}
		e, ok := as[*ExceptionObject](vm, args.Positional[0])
		if !ok {
			return None, vm.Errorf(vm.TypeErrorType, "descriptor '__init__' requires a 'BaseException' object")
		}
		e.Args = append([]Value(nil), args.Positional[1:]...)
		e.message = vm.exceptionMessage(e)
		return None, nil
	})

	vm.defineMethod(t, "__str__", func(vm *VM, args Args) (Value, error) {
		e, _ := as[*ExceptionObject](vm, args.Positional[0])
		return vm.NewString(e.message), nil
	})

	vm.defineMethod(t, "__repr__", func(vm *VM, args Args) (Value, error) {
		e, _ := as[*ExceptionObject](vm, args.Positional[0])
		if len(e.Args) == 1 {
			s, err := vm.Repr(e.Args[0])
			if err != nil {
				return None, err
			}
			return vm.NewString(e.typeName + "(" + s + ")"), nil
		}
		s, err := vm.Repr(vm.NewTuple(e.Args))
		if err != nil {
			return None, err
		}
		return vm.NewString(e.typeName + s), nil
	})
}

// exceptionAttr serves the attributes every exception has.
func (vm *VM) exceptionAttr(e *ExceptionObject, name string) (Value, bool) {
	switch name {
	case "args":
		return vm.NewTuple(append([]Value(nil), e.Args...)), true
	case "__cause__":
		return e.Cause, true
	case "__context__":
		return e.Context, true
	}
	return e.Attrs.Get(name)
}

// ---------------------------------------------------------------------------
// Reporting
// ---------------------------------------------------------------------------

const (
	causeSeparator   = "\nThe above exception was the direct cause of the following exception:\n\n"
	contextSeparator = "\nDuring handling of the above exception, another exception occurred:\n\n"
)

// FormatException renders err the way an uncaught exception is reported:
// the chained exceptions first, then the traceback (most recent call
// last) and the "<Type>: <message>" line.
func (vm *VM) FormatException(err error) string {
	var exc *ExceptionObject
	if !errors.As(err, &exc) {
		return err.Error() + "\n"
	}
	var b strings.Builder
	vm.formatChain(&b, exc, make(map[*ExceptionObject]bool))
	return b.String()
}

func (vm *VM) formatChain(b *strings.Builder, e *ExceptionObject, seen map[*ExceptionObject]bool) {
	seen[e] = true
	if cause, ok := as[*ExceptionObject](vm, e.Cause); ok && !seen[cause] {
		vm.formatChain(b, cause, seen)
		b.WriteString(causeSeparator)
	} else if ctx, ok := as[*ExceptionObject](vm, e.Context); ok && !e.SuppressContext && !seen[ctx] {
		vm.formatChain(b, ctx, seen)
		b.WriteString(contextSeparator)
	}

	if len(e.Traceback) > 0 {
		b.WriteString("Traceback (most recent call last):\n")
		for i := len(e.Traceback) - 1; i >= 0; i-- {
			tb := e.Traceback[i]
			fmt.Fprintf(b, "  File \"%s\", line %d, in %s\n", tb.Filename, tb.Line, tb.Func)
		}
	}
	if e.typeName == "CompileError" {
		if line, ok := e.Attrs.Get("lineno"); ok && line.IsSmallInt() && line.SmallInt() > 0 {
			file := "<string>"
			if f, ok := e.Attrs.Get("filename"); ok {
				if s, ok := vm.StringOf(f); ok {
					file = s
				}
			}
			fmt.Fprintf(b, "  File \"%s\", line %d\n", file, line.SmallInt())
		}
	}
	b.WriteString(e.Error())
	b.WriteString("\n")
}
