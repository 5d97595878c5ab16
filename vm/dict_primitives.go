package vm

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// dict: insertion-ordered mapping
// ---------------------------------------------------------------------------

type dictEntry struct {
	key, value Value
}

// DictObject keeps entries in insertion order. index maps the hash key of
// each entry to its position in entries.
type DictObject struct {
	index   map[string]int
	entries []dictEntry
}

func (*DictObject) Kind() Kind { return KindDict }
func (o *DictObject) trace(visit func(Value)) {
	for _, e := range o.entries {
		visit(e.key)
		visit(e.value)
	}
}

// Len returns the number of entries.
func (o *DictObject) Len() int { return len(o.entries) }

func (o *DictObject) remove(pos int) {
	o.entries = slices.Delete(o.entries, pos, pos+1)
	for k, i := range o.index {
		if i > pos {
			o.index[k] = i - 1
		}
	}
}

// NewDict allocates an empty dict.
func (vm *VM) NewDict() Value {
	return vm.heap.Alloc(&DictObject{index: make(map[string]int)})
}

// hashKey computes the lookup key of v. Values that compare equal get the
// same key: ints, bools and integral floats share one encoding. Lists and
// dicts are unhashable; other objects hash by identity.
func (vm *VM) hashKey(v Value) (string, error) {
	switch {
	case isIntLike(v):
		return "i" + strconv.FormatInt(intOf(v), 10), nil
	case v.IsFloat():
		f := v.Float64()
		if f == math.Trunc(f) && math.Abs(f) <= float64(MaxSmallInt) {
			return "i" + strconv.FormatInt(int64(f), 10), nil
		}
		return "f" + strconv.FormatUint(math.Float64bits(f), 16), nil
	case v == None:
		return "n", nil
	}
	switch o := vm.heap.Get(v).(type) {
	case *StringObject:
		return "s" + o.S, nil
	case *BytesObject:
		return "b" + string(o.B), nil
	case *TupleObject:
		var b strings.Builder
		fmt.Fprintf(&b, "t%d(", len(o.Items))
		for _, item := range o.Items {
			k, err := vm.hashKey(item)
			if err != nil {
				return "", err
			}
			fmt.Fprintf(&b, "%d:%s", len(k), k)
		}
		b.WriteByte(')')
		return b.String(), nil
	case *ListObject, *DictObject:
		return "", vm.Errorf(vm.TypeErrorType, "unhashable type: '%s'", vm.TypeName(v))
	}
	return "o" + strconv.FormatUint(vm.identity(v), 16), nil
}

func (vm *VM) dictObj(v Value) *DictObject {
	d, _ := as[*DictObject](vm, v)
	return d
}

// DictSet binds key to value in the dict d.
func (vm *VM) DictSet(d, key, value Value) error {
	k, err := vm.hashKey(key)
	if err != nil {
		return err
	}
	o := vm.dictObj(d)
	if i, ok := o.index[k]; ok {
		o.entries[i].value = value
		return nil
	}
	o.index[k] = len(o.entries)
	o.entries = append(o.entries, dictEntry{key: key, value: value})
	return nil
}

// DictGet looks key up in the dict d.
func (vm *VM) DictGet(d, key Value) (Value, bool, error) {
	k, err := vm.hashKey(key)
	if err != nil {
		return None, false, err
	}
	o := vm.dictObj(d)
	if i, ok := o.index[k]; ok {
		return o.entries[i].value, true, nil
	}
	return None, false, nil
}

func (vm *VM) dictDelete(d, key Value) (Value, bool, error) {
	k, err := vm.hashKey(key)
	if err != nil {
		return None, false, err
	}
	o := vm.dictObj(d)
	i, ok := o.index[k]
	if !ok {
		return None, false, nil
	}
	v := o.entries[i].value
	delete(o.index, k)
	o.remove(i)
	return v, true, nil
}

// dictUpdate merges a dict, or an iterable of pairs, into d.
func (vm *VM) dictUpdate(d, src Value) error {
	if other, ok := as[*DictObject](vm, src); ok {
		for _, e := range slices.Clone(other.entries) {
			if err := vm.DictSet(d, e.key, e.value); err != nil {
				return err
			}
		}
		return nil
	}
	items, err := vm.collectIterable(src)
	if err != nil {
		return err
	}
	for i, item := range items {
		pair, err := vm.collectIterable(item)
		if err != nil {
			return vm.Errorf(vm.TypeErrorType, "cannot convert dictionary update sequence element #%d to a sequence", i)
		}
		if len(pair) != 2 {
			return vm.Errorf(vm.ValueErrorType, "dictionary update sequence element #%d has length %d; 2 is required", i, len(pair))
		}
		if err := vm.DictSet(d, pair[0], pair[1]); err != nil {
			return err
		}
	}
	return nil
}

// dictFromTable copies an attribute table into a new dict with str keys.
func (vm *VM) dictFromTable(t *AttrTable) Value {
	d := vm.NewDict()
	t.Each(func(name string, v Value) {
		_ = vm.DictSet(d, vm.NewString(name), v)
	})
	return d
}

// namespaceFromDict converts a dict with str keys into an attribute table
// suitable as a class namespace.
func (vm *VM) namespaceFromDict(v Value) (*AttrTable, error) {
	d, ok := as[*DictObject](vm, v)
	if !ok {
		return nil, vm.Errorf(vm.TypeErrorType, "namespace must be a dict, not %s", vm.TypeName(v))
	}
	ns := NewAttrTable()
	for _, e := range d.entries {
		name, ok := vm.StringOf(e.key)
		if !ok {
			return nil, vm.Errorf(vm.TypeErrorType, "namespace keys must be str, not %s", vm.TypeName(e.key))
		}
		ns.Set(name, e.value)
	}
	return ns, nil
}

func (vm *VM) registerDictPrimitives() {
	t := vm.DictType

	vm.typeObj(t).alloc = func(vm *VM, _ Value, args Args) (Value, error) {
		if len(args.Positional) > 1 {
			return None, vm.Errorf(vm.TypeErrorType, "dict expected at most 1 argument, got %d", len(args.Positional))
		}
		d := vm.NewDict()
		if len(args.Positional) == 1 {
			if err := vm.dictUpdate(d, args.Positional[0]); err != nil {
				return None, err
			}
		}
		for _, kw := range args.Keywords {
			if err := vm.DictSet(d, vm.NewString(kw.Name), kw.Value); err != nil {
				return None, err
			}
		}
		return d, nil
	}

	vm.defineMethod(t, "__len__", func(vm *VM, args Args) (Value, error) {
		return FromSmallInt(int64(vm.dictObj(args.Positional[0]).Len())), nil
	})

	vm.defineMethod(t, "__getitem__", func(vm *VM, args Args) (Value, error) {
		if err := vm.methodArgs("__getitem__", args, 1); err != nil {
			return None, err
		}
		v, ok, err := vm.DictGet(args.Positional[0], args.Positional[1])
		if err != nil {
			return None, err
		}
		if !ok {
			return None, vm.newException(vm.KeyErrorType, []Value{args.Positional[1]})
		}
		return v, nil
	})

	vm.defineMethod(t, "__setitem__", func(vm *VM, args Args) (Value, error) {
		if err := vm.methodArgs("__setitem__", args, 2); err != nil {
			return None, err
		}
		return None, vm.DictSet(args.Positional[0], args.Positional[1], args.Positional[2])
	})

	vm.defineMethod(t, "__delitem__", func(vm *VM, args Args) (Value, error) {
		if err := vm.methodArgs("__delitem__", args, 1); err != nil {
			return None, err
		}
		_, ok, err := vm.dictDelete(args.Positional[0], args.Positional[1])
		if err != nil {
			return None, err
		}
		if !ok {
			return None, vm.newException(vm.KeyErrorType, []Value{args.Positional[1]})
		}
		return None, nil
	})

	vm.defineMethod(t, "__contains__", func(vm *VM, args Args) (Value, error) {
		if err := vm.methodArgs("__contains__", args, 1); err != nil {
			return None, err
		}
		_, ok, err := vm.DictGet(args.Positional[0], args.Positional[1])
		return FromBool(ok), err
	})

	vm.defineMethod(t, "__eq__", func(vm *VM, args Args) (Value, error) {
		if err := vm.methodArgs("__eq__", args, 1); err != nil {
			return None, err
		}
		a := vm.dictObj(args.Positional[0])
		if _, ok := as[*DictObject](vm, args.Positional[1]); !ok {
			return False, nil
		}
		b := vm.dictObj(args.Positional[1])
		if a.Len() != b.Len() {
			return False, nil
		}
		for _, e := range a.entries {
			v, ok, err := vm.DictGet(args.Positional[1], e.key)
			if err != nil || !ok {
				return False, err
			}
			eq, err := vm.Equal(e.value, v)
			if err != nil || !eq {
				return False, err
			}
		}
		return True, nil
	})

	vm.defineMethod(t, "__repr__", func(vm *VM, args Args) (Value, error) {
		self := args.Positional[0]
		if vm.reprActive[self] {
			return vm.NewString("{...}"), nil
		}
		vm.reprActive[self] = true
		defer delete(vm.reprActive, self)

		d := vm.dictObj(self)
		parts := make([]string, 0, d.Len())
		for _, e := range d.entries {
			k, err := vm.Repr(e.key)
			if err != nil {
				return None, err
			}
			v, err := vm.Repr(e.value)
			if err != nil {
				return None, err
			}
			parts = append(parts, k+": "+v)
		}
		return vm.NewString("{" + strings.Join(parts, ", ") + "}"), nil
	})

	getSpec := ArgSpec{Name: "get", Required: []Param{{Name: "key"}}, Optional: []Param{{Name: "default"}}}
	vm.defineMethod(t, "get", func(vm *VM, args Args) (Value, error) {
		bound, err := getSpec.Bind(vm, Args{Positional: args.Positional[1:], Keywords: args.Keywords})
		if err != nil {
			return None, err
		}
		v, ok, err := vm.DictGet(args.Positional[0], bound[0])
		if err != nil {
			return None, err
		}
		if ok {
			return v, nil
		}
		if bound[1] == Missing {
			return None, nil
		}
		return bound[1], nil
	})

	view := func(name string, pick func(e dictEntry) Value) {
		vm.defineMethod(t, name, func(vm *VM, args Args) (Value, error) {
			if err := vm.methodArgs(name, args, 0); err != nil {
				return None, err
			}
			d := vm.dictObj(args.Positional[0])
			out := make([]Value, d.Len())
			for i, e := range d.entries {
				out[i] = pick(e)
			}
			return vm.NewList(out), nil
		})
	}
	view("keys", func(e dictEntry) Value { return e.key })
	view("values", func(e dictEntry) Value { return e.value })
	view("items", func(e dictEntry) Value { return vm.NewTuple([]Value{e.key, e.value}) })

	popSpec := ArgSpec{Name: "pop", Required: []Param{{Name: "key"}}, Optional: []Param{{Name: "default"}}}
	vm.defineMethod(t, "pop", func(vm *VM, args Args) (Value, error) {
		bound, err := popSpec.Bind(vm, Args{Positional: args.Positional[1:], Keywords: args.Keywords})
		if err != nil {
			return None, err
		}
		v, ok, err := vm.dictDelete(args.Positional[0], bound[0])
		if err != nil {
			return None, err
		}
		if ok {
			return v, nil
		}
		if bound[1] == Missing {
			return None, vm.newException(vm.KeyErrorType, []Value{bound[0]})
		}
		return bound[1], nil
	})

	vm.defineMethod(t, "update", func(vm *VM, args Args) (Value, error) {
		self := args.Positional[0]
		if len(args.Positional) > 2 {
			return None, vm.Errorf(vm.TypeErrorType, "update expected at most 1 argument, got %d", len(args.Positional)-1)
		}
		if len(args.Positional) == 2 {
			if err := vm.dictUpdate(self, args.Positional[1]); err != nil {
				return None, err
			}
		}
		for _, kw := range args.Keywords {
			if err := vm.DictSet(self, vm.NewString(kw.Name), kw.Value); err != nil {
				return None, err
			}
		}
		return None, nil
	})

	vm.defineMethod(t, "clear", func(vm *VM, args Args) (Value, error) {
		if err := vm.methodArgs("clear", args, 0); err != nil {
			return None, err
		}
		d := vm.dictObj(args.Positional[0])
		d.entries = nil
		clear(d.index)
		return None, nil
	})

	vm.defineMethod(t, "copy", func(vm *VM, args Args) (Value, error) {
		if err := vm.methodArgs("copy", args, 0); err != nil {
			return None, err
		}
		out := vm.NewDict()
		return out, vm.dictUpdate(out, args.Positional[0])
	})
}
