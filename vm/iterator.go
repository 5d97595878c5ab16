package vm

import "fmt"

// ---------------------------------------------------------------------------
// Iteration protocol
// ---------------------------------------------------------------------------

// IteratorObject walks a built-in container. size is the length of a
// dict source when iteration started.
type IteratorObject struct {
	Source Value
	Pos    int

	runes []rune // str sources are iterated by code point
	size  int
}

func (*IteratorObject) Kind() Kind { return KindIterator }
func (o *IteratorObject) trace(visit func(Value)) {
	visit(o.Source)
}

// RangeObject is an arithmetic progression.
type RangeObject struct {
	Start, Stop, Step int64
}

func (*RangeObject) Kind() Kind        { return KindRange }
func (*RangeObject) trace(func(Value)) {}

// Len returns the number of elements in the progression.
func (o *RangeObject) Len() int {
	switch {
	case o.Step > 0 && o.Start < o.Stop:
		return int((o.Stop - o.Start + o.Step - 1) / o.Step)
	case o.Step < 0 && o.Start > o.Stop:
		return int((o.Start - o.Stop - o.Step - 1) / -o.Step)
	}
	return 0
}

func (o *RangeObject) at(i int) int64 {
	return o.Start + int64(i)*o.Step
}

// GetIter returns an iterator over v: a built-in iterator for the
// container kinds, the result of __iter__ otherwise.
func (vm *VM) GetIter(v Value) (Value, error) {
	switch o := vm.heap.Get(v).(type) {
	case *IteratorObject:
		return v, nil
	case *TupleObject, *ListObject, *RangeObject, *BytesObject:
		return vm.heap.Alloc(&IteratorObject{Source: v}), nil
	case *StringObject:
		return vm.heap.Alloc(&IteratorObject{Source: v, runes: []rune(o.S)}), nil
	case *DictObject:
		return vm.heap.Alloc(&IteratorObject{Source: v, size: o.Len()}), nil
	}
	r, found, err := vm.callMethod(v, "__iter__")
	if err != nil || found {
		return r, err
	}
	return None, vm.Errorf(vm.TypeErrorType, "'%s' object is not iterable", vm.TypeName(v))
}

// IterNext advances it. ok is false once the iterator is exhausted;
// StopIteration raised by a __next__ method means the same.
func (vm *VM) IterNext(it Value) (v Value, ok bool, err error) {
	o, builtin := as[*IteratorObject](vm, it)
	if !builtin {
		r, found, err := vm.callMethod(it, "__next__")
		if !found && err == nil {
			return None, false, vm.Errorf(vm.TypeErrorType, "'%s' object is not an iterator", vm.TypeName(it))
		}
		if vm.errorIs(err, vm.StopIterationType) {
			return None, false, nil
		}
		return r, err == nil, err
	}

	i := o.Pos
	switch src := vm.heap.Get(o.Source).(type) {
	case *TupleObject:
		if i < len(src.Items) {
			o.Pos++
			return src.Items[i], true, nil
		}
	case *ListObject:
		if i < len(src.Items) {
			o.Pos++
			return src.Items[i], true, nil
		}
	case *StringObject:
		if i < len(o.runes) {
			o.Pos++
			return vm.NewString(string(o.runes[i])), true, nil
		}
	case *BytesObject:
		if i < len(src.B) {
			o.Pos++
			return FromSmallInt(int64(src.B[i])), true, nil
		}
	case *RangeObject:
		if i < src.Len() {
			o.Pos++
			return FromSmallInt(src.at(i)), true, nil
		}
	case *DictObject:
		if src.Len() != o.size {
			return None, false, vm.Errorf(vm.RuntimeErrorType, "dictionary changed size during iteration")
		}
		if i < src.Len() {
			o.Pos++
			return src.entries[i].key, true, nil
		}
	}
	return None, false, nil
}

func (vm *VM) registerIteratorPrimitives() {
	vm.defineMethod(vm.IteratorType, "__iter__", func(vm *VM, args Args) (Value, error) {
		return args.Positional[0], nil
	})
	vm.defineMethod(vm.IteratorType, "__next__", func(vm *VM, args Args) (Value, error) {
		v, ok, err := vm.IterNext(args.Positional[0])
		if err != nil {
			return None, err
		}
		if !ok {
			return None, vm.newException(vm.StopIterationType, nil)
		}
		return v, nil
	})
}

// ---------------------------------------------------------------------------
// range
// ---------------------------------------------------------------------------

func (vm *VM) registerRangePrimitives() {
	t := vm.RangeType

	vm.typeObj(t).alloc = func(vm *VM, _ Value, args Args) (Value, error) {
		if err := vm.noKeywords("range", args); err != nil {
			return None, err
		}
		bounds := make([]int64, len(args.Positional))
		for i, a := range args.Positional {
			if !isIntLike(a) {
				return None, vm.Errorf(vm.TypeErrorType, "'%s' object cannot be interpreted as an integer", vm.TypeName(a))
			}
			bounds[i] = intOf(a)
		}
		r := &RangeObject{Step: 1}
		switch len(bounds) {
		case 1:
			r.Stop = bounds[0]
		case 2:
			r.Start, r.Stop = bounds[0], bounds[1]
		case 3:
			r.Start, r.Stop, r.Step = bounds[0], bounds[1], bounds[2]
			if r.Step == 0 {
				return None, vm.Errorf(vm.ValueErrorType, "range() arg 3 must not be zero")
			}
		default:
			return None, vm.Errorf(vm.TypeErrorType, "range expected 1 to 3 arguments, got %d", len(bounds))
		}
		return vm.heap.Alloc(r), nil
	}

	self := func(args Args) *RangeObject {
		r, _ := as[*RangeObject](vm, args.Positional[0])
		return r
	}

	vm.defineMethod(t, "__len__", func(vm *VM, args Args) (Value, error) {
		return FromSmallInt(int64(self(args).Len())), nil
	})

	vm.defineMethod(t, "__getitem__", func(vm *VM, args Args) (Value, error) {
		if err := vm.methodArgs("__getitem__", args, 1); err != nil {
			return None, err
		}
		r := self(args)
		idx, err := vm.itemIndex("range object", r.Len(), args.Positional[1])
		if err != nil {
			return None, err
		}
		return FromSmallInt(r.at(idx)), nil
	})

	vm.defineMethod(t, "__contains__", func(vm *VM, args Args) (Value, error) {
		if err := vm.methodArgs("__contains__", args, 1); err != nil {
			return None, err
		}
		r, x := self(args), args.Positional[1]
		if !isIntLike(x) {
			return False, nil
		}
		n := intOf(x)
		in := false
		if r.Step > 0 {
			in = n >= r.Start && n < r.Stop
		} else {
			in = n <= r.Start && n > r.Stop
		}
		return FromBool(in && (n-r.Start)%r.Step == 0), nil
	})

	vm.defineMethod(t, "__repr__", func(vm *VM, args Args) (Value, error) {
		r := self(args)
		if r.Step == 1 {
			return vm.NewString(fmt.Sprintf("range(%d, %d)", r.Start, r.Stop)), nil
		}
		return vm.NewString(fmt.Sprintf("range(%d, %d, %d)", r.Start, r.Stop, r.Step)), nil
	})
}
