package vm

import "fmt"

// ---------------------------------------------------------------------------
// Type: classes, their namespaces and method resolution order
// ---------------------------------------------------------------------------

// allocFunc constructs a new value of type t from call arguments.
type allocFunc func(vm *VM, t Value, args Args) (Value, error)

// TypeObject is a class. Attrs is its own namespace; MRO starts with the
// type itself and ends with object.
type TypeObject struct {
	Name    string
	Bases   []Value
	MRO     []Value
	Attrs   *AttrTable
	Builtin bool // defined by the runtime; the namespace is read-only

	alloc allocFunc // inherited through the MRO
}

func (*TypeObject) Kind() Kind { return KindType }
func (o *TypeObject) trace(visit func(Value)) {
	for _, v := range o.Bases {
		visit(v)
	}
	for _, v := range o.MRO {
		visit(v)
	}
	o.Attrs.trace(visit)
}

// typeObj resolves a value known to be a type.
func (vm *VM) typeObj(v Value) *TypeObject {
	t, ok := as[*TypeObject](vm, v)
	if !ok {
		panic("vm: value is not a type")
	}
	return t
}

// IsType reports whether v is a class.
func (vm *VM) IsType(v Value) bool {
	_, ok := as[*TypeObject](vm, v)
	return ok
}

// newType allocates a type and computes its MRO. bases must already be
// validated; empty bases mean (object,).
func (vm *VM) newType(name string, bases []Value, attrs *AttrTable) Value {
	if len(bases) == 0 && vm.ObjectType != 0 {
		bases = []Value{vm.ObjectType}
	}
	t := &TypeObject{Name: name, Bases: bases, Attrs: attrs}
	v := vm.heap.Alloc(t)
	t.MRO = vm.linearize(v, bases)
	return v
}

// linearize computes the MRO: the type itself, then the MRO of each base
// in the order given, depth first, keeping only the first occurrence of
// each type, with object moved to the end.
func (vm *VM) linearize(self Value, bases []Value) []Value {
	mro := []Value{self}
	if self == vm.ObjectType {
		return mro
	}
	seen := map[Value]bool{self: true, vm.ObjectType: true}
	for _, b := range bases {
		for _, t := range vm.typeObj(b).MRO {
			if !seen[t] {
				seen[t] = true
				mro = append(mro, t)
			}
		}
	}
	return append(mro, vm.ObjectType)
}

// builtinType creates a runtime-defined type.
func (vm *VM) builtinType(name string, bases ...Value) Value {
	v := vm.newType(name, bases, NewAttrTable())
	vm.typeObj(v).Builtin = true
	return v
}

// NewClass builds a class from a name, a bases tuple and a namespace.
// Missing or None bases mean no explicit bases. Anything other than a
// tuple of types is a TypeError.
func (vm *VM) NewClass(name string, bases Value, namespace *AttrTable) (Value, error) {
	var list []Value
	if bases != Missing && bases != None {
		tup, ok := as[*TupleObject](vm, bases)
		if !ok {
			return None, vm.Errorf(vm.TypeErrorType, "Bases must be a tuple")
		}
		seen := make(map[Value]bool, len(tup.Items))
		for _, b := range tup.Items {
			if !vm.IsType(b) {
				return None, vm.Errorf(vm.TypeErrorType, "bases must be types, not %s", vm.TypeName(b))
			}
			if seen[b] {
				return None, vm.Errorf(vm.TypeErrorType, "duplicate base class %s", vm.typeObj(b).Name)
			}
			if !vm.acceptableBase(b) {
				return None, vm.Errorf(vm.TypeErrorType, "type '%s' is not an acceptable base type", vm.typeObj(b).Name)
			}
			seen[b] = true
		}
		list = append(list, tup.Items...)
	}
	if namespace == nil {
		namespace = NewAttrTable()
	}
	t := vm.newType(name, list, namespace)
	log.Debugf("class %s created with %d bases", name, len(list))
	return t, nil
}

// acceptableBase reports whether classes may derive from t. Built-in
// values other than plain objects and exceptions have no room for a
// subclass, so only object, the exception hierarchy and user classes
// qualify.
func (vm *VM) acceptableBase(t Value) bool {
	to := vm.typeObj(t)
	if !to.Builtin || t == vm.ObjectType {
		return true
	}
	return vm.IsSubclass(t, vm.BaseExceptionType)
}

// MRONames returns the names along the method resolution order of t,
// or nil when t is not a class.
func (vm *VM) MRONames(t Value) []string {
	to, ok := as[*TypeObject](vm, t)
	if !ok {
		return nil
	}
	names := make([]string, len(to.MRO))
	for i, m := range to.MRO {
		names[i] = vm.typeObj(m).Name
	}
	return names
}

// TypeOf returns the class of any value.
func (vm *VM) TypeOf(v Value) Value {
	switch {
	case v.IsSmallInt():
		return vm.IntType
	case v == True || v == False:
		return vm.BoolType
	case v == None:
		return vm.NoneType
	case v == NotImplemented:
		return vm.NotImplementedType
	case v.IsFloat():
		return vm.FloatType
	}
	switch o := vm.heap.Get(v).(type) {
	case *StringObject:
		return vm.StrType
	case *BytesObject:
		return vm.BytesType
	case *TupleObject:
		return vm.TupleType
	case *ListObject:
		return vm.ListType
	case *DictObject:
		return vm.DictType
	case *SliceObject:
		return vm.SliceType
	case *RangeObject:
		return vm.RangeType
	case *FunctionObject:
		return vm.FunctionType
	case *NativeFunction:
		return vm.BuiltinFunctionType
	case *BoundMethod:
		return vm.MethodType
	case *TypeObject:
		return vm.TypeType
	case *ModuleObject:
		return vm.ModuleType
	case *ExceptionObject:
		return o.Type
	case *InstanceObject:
		return o.Type
	case *IteratorObject:
		return vm.IteratorType
	case *CodeValue:
		return vm.CodeType
	}
	return vm.ObjectType
}

// TypeName returns the class name of v.
func (vm *VM) TypeName(v Value) string {
	return vm.typeObj(vm.TypeOf(v)).Name
}

// IsSubclass reports whether b appears in the MRO of type a.
func (vm *VM) IsSubclass(a, b Value) bool {
	t, ok := as[*TypeObject](vm, a)
	if !ok {
		return false
	}
	for _, m := range t.MRO {
		if m == b {
			return true
		}
	}
	return false
}

// IsInstance reports whether t appears in the MRO of v's type.
func (vm *VM) IsInstance(v, t Value) bool {
	return vm.IsSubclass(vm.TypeOf(v), t)
}

// lookupType searches the namespaces along t's MRO.
func (vm *VM) lookupType(t Value, name string) (Value, bool) {
	for _, m := range vm.typeObj(t).MRO {
		if v, ok := vm.typeObj(m).Attrs.Get(name); ok {
			return v, true
		}
	}
	return None, false
}

// instantiate allocates a new value of type t. When the allocation only
// produced a blank object, the returned init is the __init__ to run on it
// (Missing when there is none).
func (vm *VM) instantiate(t Value, args Args) (obj, init Value, err error) {
	owner := vm.ObjectType
	alloc := allocFunc(nil)
	for _, m := range vm.typeObj(t).MRO {
		if a := vm.typeObj(m).alloc; a != nil {
			owner, alloc = m, a
			break
		}
	}
	if alloc == nil {
		alloc = allocInstance
	}
	obj, err = alloc(vm, t, args)
	if err != nil {
		return None, Missing, err
	}
	if owner != vm.ObjectType && owner != vm.BaseExceptionType {
		return obj, Missing, nil
	}
	if fn, ok := vm.lookupType(t, "__init__"); ok {
		return obj, vm.newBoundMethod(obj, fn), nil
	}
	if owner == vm.ObjectType && (len(args.Positional) > 0 || len(args.Keywords) > 0) {
		return None, Missing, vm.Errorf(vm.TypeErrorType, "%s() takes no arguments", vm.typeObj(t).Name)
	}
	return obj, Missing, nil
}

func allocInstance(vm *VM, t Value, _ Args) (Value, error) {
	return vm.newInstance(t), nil
}

// ---------------------------------------------------------------------------
// Bootstrap
// ---------------------------------------------------------------------------

// bootstrapTypes creates the core type hierarchy. object and type are
// created first since every other type refers to them.
func (vm *VM) bootstrapTypes() {
	vm.ObjectType = vm.heap.Alloc(&TypeObject{Name: "object", Attrs: NewAttrTable(), Builtin: true})
	obj := vm.typeObj(vm.ObjectType)
	obj.MRO = []Value{vm.ObjectType}
	obj.alloc = allocInstance

	vm.TypeType = vm.builtinType("type")
	vm.IntType = vm.builtinType("int")
	vm.BoolType = vm.builtinType("bool", vm.IntType)
	vm.FloatType = vm.builtinType("float")
	vm.StrType = vm.builtinType("str")
	vm.BytesType = vm.builtinType("bytes")
	vm.TupleType = vm.builtinType("tuple")
	vm.ListType = vm.builtinType("list")
	vm.DictType = vm.builtinType("dict")
	vm.SliceType = vm.builtinType("slice")
	vm.RangeType = vm.builtinType("range")
	vm.NoneType = vm.builtinType("NoneType")
	vm.NotImplementedType = vm.builtinType("NotImplementedType")
	vm.FunctionType = vm.builtinType("function")
	vm.BuiltinFunctionType = vm.builtinType("builtin_function_or_method")
	vm.MethodType = vm.builtinType("method")
	vm.ModuleType = vm.builtinType("module")
	vm.CodeType = vm.builtinType("code")
	vm.IteratorType = vm.builtinType("iterator")

	vm.registerTypePrimitives()
}

func (vm *VM) registerTypePrimitives() {
	t := vm.typeObj(vm.TypeType)
	t.alloc = func(vm *VM, _ Value, args Args) (Value, error) {
		switch len(args.Positional) {
		case 1:
			return vm.TypeOf(args.Positional[0]), nil
		case 3:
			name, ok := vm.StringOf(args.Positional[0])
			if !ok {
				return None, vm.Errorf(vm.TypeErrorType, "type() argument 1 must be str, not %s", vm.TypeName(args.Positional[0]))
			}
			ns, err := vm.namespaceFromDict(args.Positional[2])
			if err != nil {
				return None, err
			}
			return vm.NewClass(name, args.Positional[1], ns)
		}
		return None, vm.Errorf(vm.TypeErrorType, "type() takes 1 or 3 arguments")
	}

	vm.defineMethod(vm.TypeType, "__repr__", func(vm *VM, args Args) (Value, error) {
		return vm.NewString(fmt.Sprintf("<class '%s'>", vm.typeObj(args.Positional[0]).Name)), nil
	})
	vm.defineMethod(vm.TypeType, "mro", func(vm *VM, args Args) (Value, error) {
		mro := vm.typeObj(args.Positional[0]).MRO
		return vm.NewList(append([]Value(nil), mro...)), nil
	})

	vm.defineMethod(vm.FunctionType, "__repr__", func(vm *VM, args Args) (Value, error) {
		fn, _ := as[*FunctionObject](vm, args.Positional[0])
		return vm.NewString(fmt.Sprintf("<function %s at %#x>", fn.Name, vm.identity(args.Positional[0]))), nil
	})
	vm.defineMethod(vm.BuiltinFunctionType, "__repr__", func(vm *VM, args Args) (Value, error) {
		fn, _ := as[*NativeFunction](vm, args.Positional[0])
		return vm.NewString(fmt.Sprintf("<built-in function %s>", fn.Name)), nil
	})
	vm.defineMethod(vm.MethodType, "__repr__", func(vm *VM, args Args) (Value, error) {
		m, _ := as[*BoundMethod](vm, args.Positional[0])
		self, err := vm.Repr(m.Self)
		if err != nil {
			return None, err
		}
		return vm.NewString(fmt.Sprintf("<bound method %s of %s>", vm.callableName(m.Func), self)), nil
	})
	vm.defineMethod(vm.ModuleType, "__repr__", func(vm *VM, args Args) (Value, error) {
		m, _ := as[*ModuleObject](vm, args.Positional[0])
		if m.Path == "" {
			return vm.NewString(fmt.Sprintf("<module '%s' (built-in)>", m.Name)), nil
		}
		return vm.NewString(fmt.Sprintf("<module '%s' from '%s'>", m.Name, m.Path)), nil
	})
	vm.defineMethod(vm.NoneType, "__repr__", func(vm *VM, _ Args) (Value, error) {
		return vm.NewString("None"), nil
	})
	vm.defineMethod(vm.NotImplementedType, "__repr__", func(vm *VM, _ Args) (Value, error) {
		return vm.NewString("NotImplemented"), nil
	})
}

// defineMethod installs a native method in a type's namespace. The
// receiver is checked before fn runs, so fn may assume Positional[0] is
// an instance of t even when the method is called unbound.
func (vm *VM) defineMethod(t Value, name string, fn NativeFunc) {
	tn := vm.typeObj(t)
	tn.Attrs.Set(name, vm.NewNative(tn.Name+"."+name, func(vm *VM, args Args) (Value, error) {
		if len(args.Positional) == 0 {
			return None, vm.Errorf(vm.TypeErrorType, "descriptor '%s' of '%s' object needs an argument", name, tn.Name)
		}
		if recv := args.Positional[0]; !vm.IsInstance(recv, t) {
			return None, vm.Errorf(vm.TypeErrorType, "descriptor '%s' for '%s' objects doesn't apply to a '%s' object", name, tn.Name, vm.TypeName(recv))
		}
		return fn(vm, args)
	}))
}

// callableName returns the display name of a function-like value.
func (vm *VM) callableName(v Value) string {
	switch o := vm.heap.Get(v).(type) {
	case *FunctionObject:
		return o.Name
	case *NativeFunction:
		return o.Name
	case *TypeObject:
		return o.Name
	case *BoundMethod:
		return vm.callableName(o.Func)
	}
	return vm.TypeName(v) + " object"
}
