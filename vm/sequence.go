package vm

import (
	"github.com/chazu/serpent/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// Indexing and slicing shared by str, tuple, list and range
// ---------------------------------------------------------------------------

// normalizeIndex maps a possibly negative index to a position and reports
// whether it lies inside a sequence of length n.
func normalizeIndex(i, n int) (int, bool) {
	if i < 0 {
		i += n
	}
	return i, i >= 0 && i < n
}

// asIndex converts an int or bool to a Go int.
func (vm *VM) asIndex(v Value) (int, bool) {
	if isIntLike(v) {
		return int(intOf(v)), true
	}
	return 0, false
}

// itemIndex resolves an integer subscript of a sequence of length n.
func (vm *VM) itemIndex(typeName string, n int, key Value) (int, error) {
	i, ok := vm.asIndex(key)
	if !ok {
		return 0, vm.Errorf(vm.TypeErrorType, "%s indices must be integers or slices, not %s", typeName, vm.TypeName(key))
	}
	idx, ok := normalizeIndex(i, n)
	if !ok {
		return 0, vm.Errorf(vm.IndexErrorType, "%s index out of range", typeName)
	}
	return idx, nil
}

// sliceIndices resolves a slice against a sequence of length n. Start and
// stop default to 0 and n, negative values count from the end, and both
// are clamped to [0, n]. Negative steps are not supported.
func (vm *VM) sliceIndices(s *SliceObject, n int) (start, stop, step int, err error) {
	bound := func(v Value, def int) (int, error) {
		if v == None {
			return def, nil
		}
		i, ok := vm.asIndex(v)
		if !ok {
			return 0, vm.Errorf(vm.TypeErrorType, "slice indices must be integers or None")
		}
		if i < 0 {
			i += n
		}
		return min(max(i, 0), n), nil
	}

	step = 1
	if s.Step != None {
		var ok bool
		if step, ok = vm.asIndex(s.Step); !ok {
			return 0, 0, 0, vm.Errorf(vm.TypeErrorType, "slice indices must be integers or None")
		}
		if step == 0 {
			return 0, 0, 0, vm.Errorf(vm.ValueErrorType, "slice step cannot be zero")
		}
		if step < 0 {
			return 0, 0, 0, vm.Errorf(vm.UnsupportedOperationType, "negative step indexing not yet supported")
		}
	}
	if start, err = bound(s.Start, 0); err != nil {
		return 0, 0, 0, err
	}
	if stop, err = bound(s.Stop, n); err != nil {
		return 0, 0, 0, err
	}
	if stop < start {
		stop = start
	}
	return start, stop, step, nil
}

// selectSlice copies every step-th element of items[start:stop].
func selectSlice[T any](items []T, start, stop, step int) []T {
	out := make([]T, 0, (stop-start+step-1)/step)
	for i := start; i < stop; i += step {
		out = append(out, items[i])
	}
	return out
}

// NewSlice allocates a slice object.
func (vm *VM) NewSlice(start, stop, step Value) Value {
	return vm.heap.Alloc(&SliceObject{Start: start, Stop: stop, Step: step})
}

// subscriptItems implements __getitem__ for tuple and list: an integer
// selects one element, a slice builds a new sequence with wrap.
func (vm *VM) subscriptItems(typeName string, items []Value, key Value, wrap func([]Value) Value) (Value, error) {
	if s, ok := as[*SliceObject](vm, key); ok {
		start, stop, step, err := vm.sliceIndices(s, len(items))
		if err != nil {
			return None, err
		}
		return wrap(selectSlice(items, start, stop, step)), nil
	}
	idx, err := vm.itemIndex(typeName, len(items), key)
	if err != nil {
		return None, err
	}
	return items[idx], nil
}

// sequencesEqual compares element-wise with short-circuit. Lengths are
// checked before any element is compared.
func (vm *VM) sequencesEqual(a, b []Value) (bool, error) {
	if len(a) != len(b) {
		return false, nil
	}
	for i := range a {
		eq, err := vm.Equal(a[i], b[i])
		if err != nil || !eq {
			return false, err
		}
	}
	return true, nil
}

// maxRepeatLen bounds the length of a repetition result, in elements for
// sequences and in bytes for strings.
const maxRepeatLen = 1 << 26

// checkRepeat rejects repetitions whose result would exceed maxRepeatLen.
func (vm *VM) checkRepeat(typeName string, size, n int) error {
	if n > 0 && size > maxRepeatLen/n {
		return vm.Errorf(vm.OverflowErrorType, "repeated %s is too long", typeName)
	}
	return nil
}

// repeatCount validates the right operand of sequence repetition.
// NotImplemented is signalled by ok == false.
func repeatCount(v Value) (int, bool) {
	if !isIntLike(v) {
		return 0, false
	}
	return max(int(intOf(v)), 0), true
}

// registerSequenceMethods installs the methods tuple and list share.
// items extracts the elements of a receiver of this type; wrap builds a
// new one.
func (vm *VM) registerSequenceMethods(t Value, items func(Value) ([]Value, bool), wrap func([]Value) Value, open, close string) {
	name := vm.typeObj(t).Name

	vm.defineMethod(t, "__len__", func(vm *VM, args Args) (Value, error) {
		xs, _ := items(args.Positional[0])
		return FromSmallInt(int64(len(xs))), nil
	})

	vm.defineMethod(t, "__getitem__", func(vm *VM, args Args) (Value, error) {
		if err := vm.methodArgs("__getitem__", args, 1); err != nil {
			return None, err
		}
		xs, _ := items(args.Positional[0])
		return vm.subscriptItems(name, xs, args.Positional[1], wrap)
	})

	vm.defineMethod(t, "__contains__", func(vm *VM, args Args) (Value, error) {
		if err := vm.methodArgs("__contains__", args, 1); err != nil {
			return None, err
		}
		xs, _ := items(args.Positional[0])
		for _, x := range xs {
			eq, err := vm.Equal(x, args.Positional[1])
			if err != nil {
				return None, err
			}
			if eq {
				return True, nil
			}
		}
		return False, nil
	})

	vm.defineMethod(t, "__eq__", func(vm *VM, args Args) (Value, error) {
		if err := vm.methodArgs("__eq__", args, 1); err != nil {
			return None, err
		}
		a, _ := items(args.Positional[0])
		b, ok := items(args.Positional[1])
		if !ok {
			return False, nil
		}
		eq, err := vm.sequencesEqual(a, b)
		return FromBool(eq), err
	})

	for op, method := range map[bytecode.CompareOp]string{
		bytecode.CompareLt: "__lt__",
		bytecode.CompareLe: "__le__",
		bytecode.CompareGt: "__gt__",
		bytecode.CompareGe: "__ge__",
	} {
		vm.defineMethod(t, method, func(vm *VM, args Args) (Value, error) {
			if err := vm.methodArgs(method, args, 1); err != nil {
				return None, err
			}
			a, _ := items(args.Positional[0])
			b, ok := items(args.Positional[1])
			if !ok {
				return NotImplemented, nil
			}
			r, err := vm.compareSequences(op, a, b)
			return FromBool(r), err
		})
	}

	vm.defineMethod(t, "__add__", func(vm *VM, args Args) (Value, error) {
		if err := vm.methodArgs("__add__", args, 1); err != nil {
			return None, err
		}
		a, _ := items(args.Positional[0])
		b, ok := items(args.Positional[1])
		if !ok {
			return NotImplemented, nil
		}
		out := make([]Value, 0, len(a)+len(b))
		return wrap(append(append(out, a...), b...)), nil
	})

	mul := func(vm *VM, args Args) (Value, error) {
		if err := vm.methodArgs("__mul__", args, 1); err != nil {
			return None, err
		}
		xs, _ := items(args.Positional[0])
		n, ok := repeatCount(args.Positional[1])
		if !ok {
			return NotImplemented, nil
		}
		if err := vm.checkRepeat(name, len(xs), n); err != nil {
			return None, err
		}
		out := make([]Value, 0, len(xs)*n)
		for range n {
			out = append(out, xs...)
		}
		return wrap(out), nil
	}
	vm.defineMethod(t, "__mul__", mul)
	vm.defineMethod(t, "__rmul__", mul)

	vm.defineMethod(t, "index", func(vm *VM, args Args) (Value, error) {
		if err := vm.methodArgs("index", args, 1); err != nil {
			return None, err
		}
		xs, _ := items(args.Positional[0])
		for i, x := range xs {
			eq, err := vm.Equal(x, args.Positional[1])
			if err != nil {
				return None, err
			}
			if eq {
				return FromSmallInt(int64(i)), nil
			}
		}
		return None, vm.Errorf(vm.ValueErrorType, "%s.index(x): x not in %s", name, name)
	})

	vm.defineMethod(t, "count", func(vm *VM, args Args) (Value, error) {
		if err := vm.methodArgs("count", args, 1); err != nil {
			return None, err
		}
		xs, _ := items(args.Positional[0])
		n := 0
		for _, x := range xs {
			eq, err := vm.Equal(x, args.Positional[1])
			if err != nil {
				return None, err
			}
			if eq {
				n++
			}
		}
		return FromSmallInt(int64(n)), nil
	})

	vm.defineMethod(t, "__repr__", func(vm *VM, args Args) (Value, error) {
		self := args.Positional[0]
		xs, _ := items(self)
		if len(xs) == 1 && open == "(" {
			s, err := vm.reprJoin(self, xs, "(", ",)", "(...)")
			return vm.NewString(s), err
		}
		s, err := vm.reprJoin(self, xs, open, close, open+"..."+close)
		return vm.NewString(s), err
	})
}
