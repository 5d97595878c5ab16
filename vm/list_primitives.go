package vm

import (
	"slices"

	"github.com/chazu/serpent/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// list
// ---------------------------------------------------------------------------

func (vm *VM) listObj(v Value) *ListObject {
	o, _ := as[*ListObject](vm, v)
	return o
}

func (vm *VM) registerListPrimitives() {
	t := vm.ListType

	vm.typeObj(t).alloc = func(vm *VM, _ Value, args Args) (Value, error) {
		if err := vm.noKeywords("list", args); err != nil {
			return None, err
		}
		switch len(args.Positional) {
		case 0:
			return vm.NewList(nil), nil
		case 1:
			items, err := vm.collectIterable(args.Positional[0])
			if err != nil {
				return None, err
			}
			return vm.NewList(items), nil
		}
		return None, vm.Errorf(vm.TypeErrorType, "list expected at most 1 argument, got %d", len(args.Positional))
	}

	items := func(v Value) ([]Value, bool) {
		o, ok := as[*ListObject](vm, v)
		if !ok {
			return nil, false
		}
		return o.Items, true
	}
	vm.registerSequenceMethods(t, items, vm.NewList, "[", "]")

	vm.defineMethod(t, "__setitem__", func(vm *VM, args Args) (Value, error) {
		if err := vm.methodArgs("__setitem__", args, 2); err != nil {
			return None, err
		}
		l := vm.listObj(args.Positional[0])
		key, value := args.Positional[1], args.Positional[2]
		if s, ok := as[*SliceObject](vm, key); ok {
			return None, vm.assignSlice(l, s, value)
		}
		idx, err := vm.itemIndex("list assignment", len(l.Items), key)
		if err != nil {
			return None, err
		}
		l.Items[idx] = value
		return None, nil
	})

	vm.defineMethod(t, "__delitem__", func(vm *VM, args Args) (Value, error) {
		if err := vm.methodArgs("__delitem__", args, 1); err != nil {
			return None, err
		}
		l := vm.listObj(args.Positional[0])
		if s, ok := as[*SliceObject](vm, args.Positional[1]); ok {
			start, stop, step, err := vm.sliceIndices(s, len(l.Items))
			if err != nil {
				return None, err
			}
			kept := make([]Value, 0, len(l.Items))
			for i, x := range l.Items {
				if i >= start && i < stop && (i-start)%step == 0 {
					continue
				}
				kept = append(kept, x)
			}
			l.Items = kept
			return None, nil
		}
		idx, err := vm.itemIndex("list assignment", len(l.Items), args.Positional[1])
		if err != nil {
			return None, err
		}
		l.Items = slices.Delete(l.Items, idx, idx+1)
		return None, nil
	})

	vm.defineMethod(t, "append", func(vm *VM, args Args) (Value, error) {
		if err := vm.methodArgs("append", args, 1); err != nil {
			return None, err
		}
		l := vm.listObj(args.Positional[0])
		l.Items = append(l.Items, args.Positional[1])
		return None, nil
	})

	vm.defineMethod(t, "extend", func(vm *VM, args Args) (Value, error) {
		if err := vm.methodArgs("extend", args, 1); err != nil {
			return None, err
		}
		more, err := vm.collectIterable(args.Positional[1])
		if err != nil {
			return None, err
		}
		l := vm.listObj(args.Positional[0])
		l.Items = append(l.Items, more...)
		return None, nil
	})

	vm.defineMethod(t, "insert", func(vm *VM, args Args) (Value, error) {
		if err := vm.methodArgs("insert", args, 2); err != nil {
			return None, err
		}
		l := vm.listObj(args.Positional[0])
		i, ok := vm.asIndex(args.Positional[1])
		if !ok {
			return None, vm.Errorf(vm.TypeErrorType, "'%s' object cannot be interpreted as an integer", vm.TypeName(args.Positional[1]))
		}
		if i < 0 {
			i += len(l.Items)
		}
		i = min(max(i, 0), len(l.Items))
		l.Items = slices.Insert(l.Items, i, args.Positional[2])
		return None, nil
	})

	vm.defineMethod(t, "pop", func(vm *VM, args Args) (Value, error) {
		if err := vm.noKeywords("pop", args); err != nil {
			return None, err
		}
		l := vm.listObj(args.Positional[0])
		if len(args.Positional) > 2 {
			return None, vm.Errorf(vm.TypeErrorType, "pop expected at most 1 argument, got %d", len(args.Positional)-1)
		}
		if len(l.Items) == 0 {
			return None, vm.Errorf(vm.IndexErrorType, "pop from empty list")
		}
		idx := len(l.Items) - 1
		if len(args.Positional) == 2 {
			var err error
			if idx, err = vm.itemIndex("pop", len(l.Items), args.Positional[1]); err != nil {
				return None, err
			}
		}
		v := l.Items[idx]
		l.Items = slices.Delete(l.Items, idx, idx+1)
		return v, nil
	})

	vm.defineMethod(t, "remove", func(vm *VM, args Args) (Value, error) {
		if err := vm.methodArgs("remove", args, 1); err != nil {
			return None, err
		}
		l := vm.listObj(args.Positional[0])
		for i, x := range l.Items {
			eq, err := vm.Equal(x, args.Positional[1])
			if err != nil {
				return None, err
			}
			if eq {
				l.Items = slices.Delete(l.Items, i, i+1)
				return None, nil
			}
		}
		return None, vm.Errorf(vm.ValueErrorType, "list.remove(x): x not in list")
	})

	vm.defineMethod(t, "reverse", func(vm *VM, args Args) (Value, error) {
		if err := vm.methodArgs("reverse", args, 0); err != nil {
			return None, err
		}
		slices.Reverse(vm.listObj(args.Positional[0]).Items)
		return None, nil
	})

	vm.defineMethod(t, "clear", func(vm *VM, args Args) (Value, error) {
		if err := vm.methodArgs("clear", args, 0); err != nil {
			return None, err
		}
		vm.listObj(args.Positional[0]).Items = []Value{}
		return None, nil
	})

	vm.defineMethod(t, "copy", func(vm *VM, args Args) (Value, error) {
		if err := vm.methodArgs("copy", args, 0); err != nil {
			return None, err
		}
		return vm.NewList(slices.Clone(vm.listObj(args.Positional[0]).Items)), nil
	})

	sortSpec := ArgSpec{Name: "sort", Optional: []Param{{Name: "key"}, {Name: "reverse"}}}
	vm.defineMethod(t, "sort", func(vm *VM, args Args) (Value, error) {
		l := vm.listObj(args.Positional[0])
		bound, err := sortSpec.Bind(vm, Args{Positional: args.Positional[1:], Keywords: args.Keywords})
		if err != nil {
			return None, err
		}
		sorted, err := vm.sortValues(l.Items, bound[0], bound[1])
		if err != nil {
			return None, err
		}
		copy(l.Items, sorted)
		return None, nil
	})
}

// assignSlice replaces l[s] with the items of value. Extended slices
// require an iterable of the same length.
func (vm *VM) assignSlice(l *ListObject, s *SliceObject, value Value) error {
	repl, err := vm.collectIterable(value)
	if err != nil {
		return vm.Errorf(vm.TypeErrorType, "can only assign an iterable")
	}
	start, stop, step, err := vm.sliceIndices(s, len(l.Items))
	if err != nil {
		return err
	}
	if step == 1 {
		l.Items = slices.Replace(l.Items, start, stop, repl...)
		return nil
	}
	n := (stop - start + step - 1) / step
	if len(repl) != n {
		return vm.Errorf(vm.ValueErrorType, "attempt to assign sequence of size %d to extended slice of size %d", len(repl), n)
	}
	for i, x := range repl {
		l.Items[start+i*step] = x
	}
	return nil
}

// sortValues returns a stably sorted copy of items. key, when not
// Missing or None, is called on each item to produce its sort key;
// reverse keeps equal elements in their original order.
func (vm *VM) sortValues(items []Value, key, reverse Value) ([]Value, error) {
	keys := slices.Clone(items)
	if key != Missing && key != None {
		for i, x := range items {
			k, err := vm.Call(key, PosArgs(x))
			if err != nil {
				return nil, err
			}
			keys[i] = k
		}
	}
	desc := false
	if reverse != Missing {
		var err error
		if desc, err = vm.Truthy(reverse); err != nil {
			return nil, err
		}
	}

	order := make([]int, len(items))
	for i := range order {
		order[i] = i
	}
	var sortErr error
	slices.SortStableFunc(order, func(a, b int) int {
		if sortErr != nil {
			return 0
		}
		x, y := keys[a], keys[b]
		if desc {
			x, y = y, x
		}
		lt, err := vm.Less(bytecode.CompareLt, x, y)
		if err != nil {
			sortErr = err
			return 0
		}
		if lt {
			return -1
		}
		gt, err := vm.Less(bytecode.CompareLt, y, x)
		if err != nil {
			sortErr = err
			return 0
		}
		if gt {
			return 1
		}
		return 0
	})
	if sortErr != nil {
		return nil, sortErr
	}
	out := make([]Value, len(items))
	for i, idx := range order {
		out[i] = items[idx]
	}
	return out, nil
}
