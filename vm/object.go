package vm

import "github.com/chazu/serpent/pkg/bytecode"

// ---------------------------------------------------------------------------
// Heap object variants
// ---------------------------------------------------------------------------

// StringObject is an immutable string.
type StringObject struct {
	S string
}

func (*StringObject) Kind() Kind        { return KindString }
func (*StringObject) trace(func(Value)) {}

// BytesObject is an immutable byte string.
type BytesObject struct {
	B []byte
}

func (*BytesObject) Kind() Kind        { return KindBytes }
func (*BytesObject) trace(func(Value)) {}

// TupleObject is a fixed-length sequence.
type TupleObject struct {
	Items []Value
}

func (*TupleObject) Kind() Kind { return KindTuple }
func (o *TupleObject) trace(visit func(Value)) {
	for _, v := range o.Items {
		visit(v)
	}
}

// ListObject is a mutable sequence.
type ListObject struct {
	Items []Value
}

func (*ListObject) Kind() Kind { return KindList }
func (o *ListObject) trace(visit func(Value)) {
	for _, v := range o.Items {
		visit(v)
	}
}

// SliceObject holds the bounds of a slice expression; absent parts are None.
type SliceObject struct {
	Start, Stop, Step Value
}

func (*SliceObject) Kind() Kind { return KindSlice }
func (o *SliceObject) trace(visit func(Value)) {
	visit(o.Start)
	visit(o.Stop)
	visit(o.Step)
}

// FunctionObject is a user-defined function: a code object closed over the
// scope it was defined in.
type FunctionObject struct {
	Name     string
	Code     *bytecode.CodeObject
	Scope    Value   // captured defining scope
	Defaults []Value // defaults for the trailing parameters
	Attrs    *AttrTable

	consts []Value // Code's constant pool as values
}

func (*FunctionObject) Kind() Kind { return KindFunction }
func (o *FunctionObject) trace(visit func(Value)) {
	visit(o.Scope)
	for _, v := range o.Defaults {
		visit(v)
	}
	for _, v := range o.consts {
		visit(v)
	}
	o.Attrs.trace(visit)
}

// NativeFunc is the Go signature of built-in callables. Methods receive
// their receiver as the first positional argument.
type NativeFunc func(vm *VM, args Args) (Value, error)

// NativeFunction wraps a Go function as a callable value.
type NativeFunction struct {
	Name string
	Fn   NativeFunc
}

func (*NativeFunction) Kind() Kind        { return KindNative }
func (*NativeFunction) trace(func(Value)) {}

// BoundMethod pairs a callable with the receiver it was looked up on.
type BoundMethod struct {
	Self Value
	Func Value
}

func (*BoundMethod) Kind() Kind { return KindBoundMethod }
func (o *BoundMethod) trace(visit func(Value)) {
	visit(o.Self)
	visit(o.Func)
}

// ModuleObject is an imported module. Its attribute table is the scope its
// code ran in.
type ModuleObject struct {
	Name  string
	Path  string // empty for built-in modules
	Scope Value
}

func (*ModuleObject) Kind() Kind { return KindModule }
func (o *ModuleObject) trace(visit func(Value)) {
	visit(o.Scope)
}

// InstanceObject is an instance of a user-defined class.
type InstanceObject struct {
	Type  Value
	Attrs *AttrTable
}

func (*InstanceObject) Kind() Kind { return KindInstance }
func (o *InstanceObject) trace(visit func(Value)) {
	visit(o.Type)
	o.Attrs.trace(visit)
}

// CodeValue carries a code object on the operand stack between
// LOAD_CONST and MAKE_FUNCTION. consts is filled on first use and shared
// by every function made from it.
type CodeValue struct {
	Code *bytecode.CodeObject

	consts []Value
}

func (*CodeValue) Kind() Kind { return KindCode }
func (o *CodeValue) trace(visit func(Value)) {
	for _, v := range o.consts {
		visit(v)
	}
}

// ---------------------------------------------------------------------------
// Access and construction helpers
// ---------------------------------------------------------------------------

// as resolves v and asserts its concrete object type.
func as[T Object](vm *VM, v Value) (T, bool) {
	o, ok := vm.heap.Get(v).(T)
	return o, ok
}

// KindOf returns the heap kind of an object value.
func (vm *VM) KindOf(v Value) (Kind, bool) {
	o := vm.heap.Get(v)
	if o == nil {
		return 0, false
	}
	return o.Kind(), true
}

// NewString allocates a string value.
func (vm *VM) NewString(s string) Value {
	return vm.heap.Alloc(&StringObject{S: s})
}

// StringOf returns the Go string held by a str value.
func (vm *VM) StringOf(v Value) (string, bool) {
	if o, ok := as[*StringObject](vm, v); ok {
		return o.S, true
	}
	return "", false
}

// NewBytes allocates a bytes value that takes ownership of b.
func (vm *VM) NewBytes(b []byte) Value {
	return vm.heap.Alloc(&BytesObject{B: b})
}

// NewTuple allocates a tuple that takes ownership of items.
func (vm *VM) NewTuple(items []Value) Value {
	return vm.heap.Alloc(&TupleObject{Items: items})
}

// NewList allocates a list that takes ownership of items.
func (vm *VM) NewList(items []Value) Value {
	if items == nil {
		items = []Value{}
	}
	return vm.heap.Alloc(&ListObject{Items: items})
}

// NewNative wraps fn as a callable value.
func (vm *VM) NewNative(name string, fn NativeFunc) Value {
	return vm.heap.Alloc(&NativeFunction{Name: name, Fn: fn})
}

func (vm *VM) newBoundMethod(self, fn Value) Value {
	return vm.heap.Alloc(&BoundMethod{Self: self, Func: fn})
}

func (vm *VM) newInstance(t Value) Value {
	return vm.heap.Alloc(&InstanceObject{Type: t, Attrs: NewAttrTable()})
}

// sequenceItems returns the backing slice of a tuple or list.
func (vm *VM) sequenceItems(v Value) ([]Value, bool) {
	switch o := vm.heap.Get(v).(type) {
	case *TupleObject:
		return o.Items, true
	case *ListObject:
		return o.Items, true
	}
	return nil, false
}
