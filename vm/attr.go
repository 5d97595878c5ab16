package vm

// ---------------------------------------------------------------------------
// Attribute protocol
// ---------------------------------------------------------------------------

// GetAttr resolves obj.name: first the object's own table (for a type,
// its whole MRO), then the namespace of its type and that type's bases in
// MRO order. Functions found on the type are bound to obj.
func (vm *VM) GetAttr(obj Value, name string) (Value, error) {
	if v, ok, err := vm.ownAttr(obj, name); err != nil || ok {
		return v, err
	}

	t := vm.TypeOf(obj)
	if name == "__class__" {
		return t, nil
	}
	if v, ok := vm.lookupType(t, name); ok {
		return vm.bind(obj, v), nil
	}

	switch o := vm.heap.Get(obj).(type) {
	case *TypeObject:
		return None, vm.Errorf(vm.AttributeErrorType, "type object '%s' has no attribute '%s'", o.Name, name)
	case *ModuleObject:
		return None, vm.Errorf(vm.AttributeErrorType, "module '%s' has no attribute '%s'", o.Name, name)
	}
	return None, vm.Errorf(vm.AttributeErrorType, "'%s' object has no attribute '%s'", vm.TypeName(obj), name)
}

// ownAttr looks in the instance-level table of kinds that have one.
func (vm *VM) ownAttr(obj Value, name string) (Value, bool, error) {
	switch o := vm.heap.Get(obj).(type) {
	case *InstanceObject:
		v, ok := o.Attrs.Get(name)
		return v, ok, nil

	case *ModuleObject:
		if name == "__name__" {
			return vm.NewString(o.Name), true, nil
		}
		v, ok := vm.scope(o.Scope).Vars.Get(name)
		return v, ok, nil

	case *ExceptionObject:
		v, ok := vm.exceptionAttr(o, name)
		return v, ok, nil

	case *FunctionObject:
		if name == "__name__" {
			return vm.NewString(o.Name), true, nil
		}
		v, ok := o.Attrs.Get(name)
		return v, ok, nil

	case *NativeFunction:
		if name == "__name__" {
			return vm.NewString(o.Name), true, nil
		}

	case *BoundMethod:
		switch name {
		case "__self__":
			return o.Self, true, nil
		case "__func__":
			return o.Func, true, nil
		}

	case *SliceObject:
		switch name {
		case "start":
			return o.Start, true, nil
		case "stop":
			return o.Stop, true, nil
		case "step":
			return o.Step, true, nil
		}

	case *TypeObject:
		switch name {
		case "__name__":
			return vm.NewString(o.Name), true, nil
		case "__bases__":
			return vm.NewTuple(append([]Value(nil), o.Bases...)), true, nil
		case "__mro__":
			return vm.NewTuple(append([]Value(nil), o.MRO...)), true, nil
		case "__dict__":
			return vm.dictFromTable(o.Attrs), true, nil
		}
		v, ok := vm.lookupType(obj, name)
		return v, ok, nil
	}
	return None, false, nil
}

// bind wraps functions found on a type so the receiver is passed along.
// Types themselves are never bound.
func (vm *VM) bind(obj, v Value) Value {
	switch vm.heap.Get(v).(type) {
	case *FunctionObject, *NativeFunction:
		return vm.newBoundMethod(obj, v)
	}
	return v
}

// SetAttr binds obj.name. Kinds without an instance table fail with
// AttributeError; runtime-defined types are read-only.
func (vm *VM) SetAttr(obj Value, name string, value Value) error {
	switch o := vm.heap.Get(obj).(type) {
	case *InstanceObject:
		o.Attrs.Set(name, value)
		return nil

	case *ModuleObject:
		vm.scope(o.Scope).Vars.Set(name, value)
		return nil

	case *ExceptionObject:
		switch name {
		case "__cause__":
			o.Cause = value
			o.SuppressContext = true
		case "__context__":
			o.Context = value
		default:
			o.Attrs.Set(name, value)
		}
		return nil

	case *FunctionObject:
		o.Attrs.Set(name, value)
		return nil

	case *TypeObject:
		if o.Builtin {
			return vm.Errorf(vm.TypeErrorType, "cannot set '%s' attribute of immutable type '%s'", name, o.Name)
		}
		o.Attrs.Set(name, value)
		return nil
	}
	return vm.Errorf(vm.AttributeErrorType, "'%s' object has no attribute '%s'", vm.TypeName(obj), name)
}

// DelAttr removes obj.name from the object's own table.
func (vm *VM) DelAttr(obj Value, name string) error {
	var table *AttrTable
	switch o := vm.heap.Get(obj).(type) {
	case *InstanceObject:
		table = o.Attrs
	case *ModuleObject:
		table = vm.scope(o.Scope).Vars
	case *ExceptionObject:
		table = o.Attrs
	case *FunctionObject:
		table = o.Attrs
	case *TypeObject:
		if o.Builtin {
			return vm.Errorf(vm.TypeErrorType, "cannot delete '%s' attribute of immutable type '%s'", name, o.Name)
		}
		table = o.Attrs
	}
	if table == nil || !table.Delete(name) {
		return vm.Errorf(vm.AttributeErrorType, "'%s' object has no attribute '%s'", vm.TypeName(obj), name)
	}
	return nil
}

// HasAttr reports whether GetAttr succeeds. Errors other than
// AttributeError are returned.
func (vm *VM) HasAttr(obj Value, name string) (bool, error) {
	_, err := vm.GetAttr(obj, name)
	if err == nil {
		return true, nil
	}
	if vm.errorIs(err, vm.AttributeErrorType) {
		return false, nil
	}
	return false, err
}

// ---------------------------------------------------------------------------
// Subscription through special methods
// ---------------------------------------------------------------------------

// GetItem evaluates obj[key] through __getitem__.
func (vm *VM) GetItem(obj, key Value) (Value, error) {
	r, found, err := vm.callMethod(obj, "__getitem__", key)
	if err != nil || found {
		return r, err
	}
	if vm.IsType(obj) {
		return None, vm.Errorf(vm.TypeErrorType, "type '%s' is not subscriptable", vm.typeObj(obj).Name)
	}
	return None, vm.Errorf(vm.TypeErrorType, "'%s' object is not subscriptable", vm.TypeName(obj))
}

// SetItem evaluates obj[key] = value through __setitem__.
func (vm *VM) SetItem(obj, key, value Value) error {
	_, found, err := vm.callMethod(obj, "__setitem__", key, value)
	if err != nil || found {
		return err
	}
	return vm.Errorf(vm.TypeErrorType, "'%s' object does not support item assignment", vm.TypeName(obj))
}

// DelItem evaluates del obj[key] through __delitem__.
func (vm *VM) DelItem(obj, key Value) error {
	_, found, err := vm.callMethod(obj, "__delitem__", key)
	if err != nil || found {
		return err
	}
	return vm.Errorf(vm.TypeErrorType, "'%s' object does not support item deletion", vm.TypeName(obj))
}

// Len evaluates len(v) through __len__.
func (vm *VM) Len(v Value) (int, error) {
	r, found, err := vm.callMethod(v, "__len__")
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, vm.Errorf(vm.TypeErrorType, "object of type '%s' has no len()", vm.TypeName(v))
	}
	if !r.IsSmallInt() {
		return 0, vm.Errorf(vm.TypeErrorType, "'%s' object cannot be interpreted as an integer", vm.TypeName(r))
	}
	return int(r.SmallInt()), nil
}
