package vm

// ---------------------------------------------------------------------------
// tuple
// ---------------------------------------------------------------------------

func (vm *VM) registerTuplePrimitives() {
	t := vm.TupleType

	vm.typeObj(t).alloc = func(vm *VM, _ Value, args Args) (Value, error) {
		if err := vm.noKeywords("tuple", args); err != nil {
			return None, err
		}
		switch len(args.Positional) {
		case 0:
			return vm.NewTuple(nil), nil
		case 1:
			if _, ok := as[*TupleObject](vm, args.Positional[0]); ok {
				return args.Positional[0], nil
			}
			items, err := vm.collectIterable(args.Positional[0])
			if err != nil {
				return None, err
			}
			return vm.NewTuple(items), nil
		}
		return None, vm.Errorf(vm.TypeErrorType, "tuple expected at most 1 argument, got %d", len(args.Positional))
	}

	items := func(v Value) ([]Value, bool) {
		o, ok := as[*TupleObject](vm, v)
		if !ok {
			return nil, false
		}
		return o.Items, true
	}
	vm.registerSequenceMethods(t, items, vm.NewTuple, "(", ")")
}

// collectIterable drains any iterable into a fresh slice.
func (vm *VM) collectIterable(v Value) ([]Value, error) {
	if xs, ok := vm.sequenceItems(v); ok {
		return append([]Value(nil), xs...), nil
	}
	it, err := vm.GetIter(v)
	if err != nil {
		return nil, err
	}
	var out []Value
	for {
		x, ok, err := vm.IterNext(it)
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, x)
	}
}

// unpack destructures seq into exactly n values.
func (vm *VM) unpack(seq Value, n int) ([]Value, error) {
	items, err := vm.collectIterable(seq)
	if err != nil {
		if vm.errorIs(err, vm.TypeErrorType) {
			return nil, vm.Errorf(vm.TypeErrorType, "cannot unpack non-iterable %s object", vm.TypeName(seq))
		}
		return nil, err
	}
	switch {
	case len(items) < n:
		return nil, vm.Errorf(vm.ValueErrorType, "not enough values to unpack (expected %d, got %d)", n, len(items))
	case len(items) > n:
		return nil, vm.Errorf(vm.ValueErrorType, "too many values to unpack (expected %d)", n)
	}
	return items, nil
}
