package vm

import (
	"errors"

	"github.com/chazu/serpent/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// Top-level execution
// ---------------------------------------------------------------------------

// CompileFunc is the front end: it turns source text into a code object.
// path is used in error messages and tracebacks.
type CompileFunc func(source string, mode bytecode.Mode, path string) (*bytecode.CodeObject, error)

// compileFailure is implemented by front-end errors that carry a bare
// message and a source position.
type compileFailure interface {
	Message() string
	Location() (line, column int)
}

// UseCompiler installs the front end.
func (vm *VM) UseCompiler(fn CompileFunc) {
	vm.compile = fn
}

// Compile runs the front end and converts its failures to CompileError
// exceptions carrying lineno, offset and filename attributes.
func (vm *VM) Compile(source string, mode bytecode.Mode, path string) (*bytecode.CodeObject, error) {
	if vm.compile == nil {
		return nil, vm.Errorf(vm.RuntimeErrorType, "no compiler installed")
	}
	code, err := vm.compile(source, mode, path)
	if err == nil {
		return code, nil
	}

	filename := path
	if filename == "" {
		filename = "<string>"
	}
	var cf compileFailure
	if !errors.As(err, &cf) {
		exc := vm.Errorf(vm.CompileErrorType, "%s", err.Error())
		exc.Attrs.Set("filename", vm.NewString(filename))
		return nil, exc
	}
	exc := vm.Errorf(vm.CompileErrorType, "%s", cf.Message())
	line, col := cf.Location()
	exc.Attrs.Set("lineno", FromSmallInt(int64(line)))
	exc.Attrs.Set("offset", FromSmallInt(int64(col)))
	exc.Attrs.Set("filename", vm.NewString(filename))
	return nil, exc
}

// NewModuleScope creates a scope for a __main__ module, chained to the
// builtin scope. The scope is pinned; release it with Unpin when done.
func (vm *VM) NewModuleScope() Value {
	scope := vm.NewScope(vm.Builtins)
	vm.StoreName(scope, "__name__", vm.NewString("__main__"))
	vm.Pin(scope)
	return scope
}

// RunString compiles and runs source in a fresh module scope.
func (vm *VM) RunString(source string, mode bytecode.Mode, path string) (Value, error) {
	scope := vm.NewModuleScope()
	defer vm.Unpin(scope)
	return vm.RunStringInScope(source, mode, path, scope)
}

// RunStringInScope compiles and runs source in scope. In ModeSingle the
// values of expression statements are printed; in ModeEval the value of
// the expression is returned. A returned object stays valid until the
// next run unless it is pinned.
func (vm *VM) RunStringInScope(source string, mode bytecode.Mode, path string, scope Value) (Value, error) {
	code, err := vm.Compile(source, mode, path)
	if err != nil {
		return None, err
	}
	return vm.RunCode(code, scope)
}

// RunCode runs a compiled code object in scope. When called with no code
// running, the collector runs afterwards, keeping the result and any
// escaping exception alive.
func (vm *VM) RunCode(code *bytecode.CodeObject, scope Value) (Value, error) {
	result, err := vm.execute(vm.newFrame(code, nil, scope))
	if len(vm.frames) == 0 && vm.nativeDepth == 0 {
		keep := []Value{result, scope}
		var exc *ExceptionObject
		if errors.As(err, &exc) {
			keep = append(keep, exc.self)
		}
		vm.collect(keep...)
	}
	return result, err
}
