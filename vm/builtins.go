package vm

import (
	"fmt"
	"hash/fnv"
	"math"
	"strings"

	"github.com/chazu/serpent/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// Builtin scope
// ---------------------------------------------------------------------------

// defineBuiltin binds a native function in the builtin scope.
func (vm *VM) defineBuiltin(name string, fn NativeFunc) {
	vm.StoreName(vm.Builtins, name, vm.NewNative(name, fn))
}

func (vm *VM) installBuiltins() {
	for _, t := range []Value{
		vm.ObjectType, vm.TypeType, vm.IntType, vm.BoolType, vm.FloatType,
		vm.StrType, vm.TupleType, vm.ListType, vm.DictType, vm.SliceType,
		vm.RangeType, vm.BytesType,
	} {
		vm.StoreName(vm.Builtins, vm.typeObj(t).Name, t)
	}
	for _, t := range vm.exceptionTypes() {
		vm.StoreName(vm.Builtins, vm.typeObj(t).Name, t)
	}
	vm.StoreName(vm.Builtins, "NotImplemented", NotImplemented)
	vm.StoreName(vm.Builtins, "__name__", vm.NewString("builtins"))

	printSpec := ArgSpec{Name: "print", Optional: []Param{{Name: "sep"}, {Name: "end"}}}
	vm.defineBuiltin("print", func(vm *VM, args Args) (Value, error) {
		opts, err := printSpec.Bind(vm, Args{Keywords: args.Keywords})
		if err != nil {
			return None, err
		}
		sep, end := " ", "\n"
		for i, dst := range []*string{&sep, &end} {
			if opts[i] == Missing || opts[i] == None {
				continue
			}
			s, ok := vm.StringOf(opts[i])
			if !ok {
				return None, vm.Errorf(vm.TypeErrorType, "%s must be None or a string, not %s", printSpec.Optional[i].Name, vm.TypeName(opts[i]))
			}
			*dst = s
		}
		parts := make([]string, len(args.Positional))
		for i, v := range args.Positional {
			s, err := vm.Str(v)
			if err != nil {
				return None, err
			}
			parts[i] = s
		}
		if _, err := fmt.Fprint(vm.Stdout, strings.Join(parts, sep)+end); err != nil {
			return None, err
		}
		return None, nil
	})

	vm.defineBuiltin("repr", func(vm *VM, args Args) (Value, error) {
		if err := vm.exactArgs("repr", args, 1); err != nil {
			return None, err
		}
		s, err := vm.Repr(args.Positional[0])
		if err != nil {
			return None, err
		}
		return vm.NewString(s), nil
	})

	vm.defineBuiltin("len", func(vm *VM, args Args) (Value, error) {
		if err := vm.exactArgs("len", args, 1); err != nil {
			return None, err
		}
		n, err := vm.Len(args.Positional[0])
		return FromSmallInt(int64(n)), err
	})

	classCheck := func(name string, test func(v, t Value) bool) NativeFunc {
		return func(vm *VM, args Args) (Value, error) {
			if err := vm.exactArgs(name, args, 2); err != nil {
				return None, err
			}
			v, spec := args.Positional[0], args.Positional[1]
			types := []Value{spec}
			if tup, ok := as[*TupleObject](vm, spec); ok {
				types = tup.Items
			}
			for _, t := range types {
				if !vm.IsType(t) {
					return None, vm.Errorf(vm.TypeErrorType, "%s() arg 2 must be a type or tuple of types", name)
				}
				if test(v, t) {
					return True, nil
				}
			}
			return False, nil
		}
	}
	vm.defineBuiltin("isinstance", classCheck("isinstance", vm.IsInstance))
	vm.defineBuiltin("issubclass", func(vm *VM, args Args) (Value, error) {
		if err := vm.exactArgs("issubclass", args, 2); err != nil {
			return None, err
		}
		if !vm.IsType(args.Positional[0]) {
			return None, vm.Errorf(vm.TypeErrorType, "issubclass() arg 1 must be a class")
		}
		return classCheck("issubclass", vm.IsSubclass)(vm, args)
	})

	getattrSpec := ArgSpec{Name: "getattr", Required: []Param{{Name: "object"}, {Name: "name", Type: vm.StrType}}, Optional: []Param{{Name: "default"}}}
	vm.defineBuiltin("getattr", func(vm *VM, args Args) (Value, error) {
		bound, err := getattrSpec.Bind(vm, args)
		if err != nil {
			return None, err
		}
		name, _ := vm.StringOf(bound[1])
		v, err := vm.GetAttr(bound[0], name)
		if err != nil && bound[2] != Missing && vm.errorIs(err, vm.AttributeErrorType) {
			return bound[2], nil
		}
		return v, err
	})

	attrName := func(fn string, v Value) (string, error) {
		s, ok := vm.StringOf(v)
		if !ok {
			return "", vm.Errorf(vm.TypeErrorType, "%s(): attribute name must be string, not '%s'", fn, vm.TypeName(v))
		}
		return s, nil
	}

	vm.defineBuiltin("setattr", func(vm *VM, args Args) (Value, error) {
		if err := vm.exactArgs("setattr", args, 3); err != nil {
			return None, err
		}
		name, err := attrName("setattr", args.Positional[1])
		if err != nil {
			return None, err
		}
		return None, vm.SetAttr(args.Positional[0], name, args.Positional[2])
	})

	vm.defineBuiltin("hasattr", func(vm *VM, args Args) (Value, error) {
		if err := vm.exactArgs("hasattr", args, 2); err != nil {
			return None, err
		}
		name, err := attrName("hasattr", args.Positional[1])
		if err != nil {
			return None, err
		}
		ok, err := vm.HasAttr(args.Positional[0], name)
		return FromBool(ok), err
	})

	vm.defineBuiltin("delattr", func(vm *VM, args Args) (Value, error) {
		if err := vm.exactArgs("delattr", args, 2); err != nil {
			return None, err
		}
		name, err := attrName("delattr", args.Positional[1])
		if err != nil {
			return None, err
		}
		return None, vm.DelAttr(args.Positional[0], name)
	})

	vm.defineBuiltin("id", func(vm *VM, args Args) (Value, error) {
		if err := vm.exactArgs("id", args, 1); err != nil {
			return None, err
		}
		return FromSmallInt(int64(vm.identity(args.Positional[0]) & uint64(MaxSmallInt))), nil
	})

	vm.defineBuiltin("hash", func(vm *VM, args Args) (Value, error) {
		if err := vm.exactArgs("hash", args, 1); err != nil {
			return None, err
		}
		k, err := vm.hashKey(args.Positional[0])
		if err != nil {
			return None, err
		}
		h := fnv.New64a()
		h.Write([]byte(k))
		return FromSmallInt(int64(h.Sum64() & uint64(MaxSmallInt))), nil
	})

	vm.defineBuiltin("abs", func(vm *VM, args Args) (Value, error) {
		if err := vm.exactArgs("abs", args, 1); err != nil {
			return None, err
		}
		v := args.Positional[0]
		switch {
		case isIntLike(v):
			n := intOf(v)
			if n < 0 {
				return vm.intResult(-n)
			}
			return FromSmallInt(n), nil
		case v.IsFloat():
			return FromFloat64(math.Abs(v.Float64())), nil
		}
		r, found, err := vm.callMethod(v, "__abs__")
		if err != nil || found {
			return r, err
		}
		return None, vm.Errorf(vm.TypeErrorType, "bad operand type for abs(): '%s'", vm.TypeName(v))
	})

	vm.defineBuiltin("iter", func(vm *VM, args Args) (Value, error) {
		if err := vm.exactArgs("iter", args, 1); err != nil {
			return None, err
		}
		return vm.GetIter(args.Positional[0])
	})

	vm.defineBuiltin("next", func(vm *VM, args Args) (Value, error) {
		if err := vm.noKeywords("next", args); err != nil {
			return None, err
		}
		if n := len(args.Positional); n < 1 || n > 2 {
			return None, vm.Errorf(vm.TypeErrorType, "next expected 1 or 2 arguments, got %d", n)
		}
		v, ok, err := vm.IterNext(args.Positional[0])
		if err != nil {
			return None, err
		}
		if !ok {
			if len(args.Positional) == 2 {
				return args.Positional[1], nil
			}
			return None, vm.newException(vm.StopIterationType, nil)
		}
		return v, nil
	})

	vm.defineBuiltin("min", vm.extremum("min", bytecode.CompareLt))
	vm.defineBuiltin("max", vm.extremum("max", bytecode.CompareGt))

	sumSpec := ArgSpec{Name: "sum", Required: []Param{{Name: "iterable"}}, Optional: []Param{{Name: "start"}}}
	vm.defineBuiltin("sum", func(vm *VM, args Args) (Value, error) {
		bound, err := sumSpec.Bind(vm, args)
		if err != nil {
			return None, err
		}
		total := FromSmallInt(0)
		if bound[1] != Missing {
			total = bound[1]
		}
		items, err := vm.collectIterable(bound[0])
		if err != nil {
			return None, err
		}
		for _, x := range items {
			if total, err = vm.BinaryOp(bytecode.BinaryAdd, total, x); err != nil {
				return None, err
			}
		}
		return total, nil
	})

	sortedSpec := ArgSpec{Name: "sorted", Required: []Param{{Name: "iterable"}}, Optional: []Param{{Name: "key"}, {Name: "reverse"}}}
	vm.defineBuiltin("sorted", func(vm *VM, args Args) (Value, error) {
		bound, err := sortedSpec.Bind(vm, args)
		if err != nil {
			return None, err
		}
		items, err := vm.collectIterable(bound[0])
		if err != nil {
			return None, err
		}
		out, err := vm.sortValues(items, bound[1], bound[2])
		if err != nil {
			return None, err
		}
		return vm.NewList(out), nil
	})

	vm.defineBuiltin("callable", func(vm *VM, args Args) (Value, error) {
		if err := vm.exactArgs("callable", args, 1); err != nil {
			return None, err
		}
		v := args.Positional[0]
		switch vm.heap.Get(v).(type) {
		case *FunctionObject, *NativeFunction, *BoundMethod, *TypeObject:
			return True, nil
		}
		_, ok := vm.lookupType(vm.TypeOf(v), "__call__")
		return FromBool(ok), nil
	})

	enumerateSpec := ArgSpec{Name: "enumerate", Required: []Param{{Name: "iterable"}}, Optional: []Param{{Name: "start", Type: vm.IntType}}}
	vm.defineBuiltin("enumerate", func(vm *VM, args Args) (Value, error) {
		bound, err := enumerateSpec.Bind(vm, args)
		if err != nil {
			return None, err
		}
		items, err := vm.collectIterable(bound[0])
		if err != nil {
			return None, err
		}
		start := int64(0)
		if bound[1] != Missing {
			start = intOf(bound[1])
		}
		pairs := make([]Value, len(items))
		for i, x := range items {
			pairs[i] = vm.NewTuple([]Value{FromSmallInt(start + int64(i)), x})
		}
		return vm.GetIter(vm.NewList(pairs))
	})

	vm.defineBuiltin("zip", func(vm *VM, args Args) (Value, error) {
		if err := vm.noKeywords("zip", args); err != nil {
			return None, err
		}
		var columns [][]Value
		n := -1
		for _, a := range args.Positional {
			col, err := vm.collectIterable(a)
			if err != nil {
				return None, err
			}
			columns = append(columns, col)
			if n < 0 || len(col) < n {
				n = len(col)
			}
		}
		rows := make([]Value, 0, max(n, 0))
		for i := 0; i < n; i++ {
			row := make([]Value, len(columns))
			for j, col := range columns {
				row[j] = col[i]
			}
			rows = append(rows, vm.NewTuple(row))
		}
		return vm.GetIter(vm.NewList(rows))
	})
}

// extremum builds min or max. Both take either one iterable or several
// positional values, plus optional key and default keywords.
func (vm *VM) extremum(name string, op bytecode.CompareOp) NativeFunc {
	spec := ArgSpec{Name: name, Optional: []Param{{Name: "key"}, {Name: "default"}}}
	return func(vm *VM, args Args) (Value, error) {
		opts, err := spec.Bind(vm, Args{Keywords: args.Keywords})
		if err != nil {
			return None, err
		}
		key, def := opts[0], opts[1]

		var items []Value
		switch len(args.Positional) {
		case 0:
			return None, vm.Errorf(vm.TypeErrorType, "%s expected at least 1 argument, got 0", name)
		case 1:
			if items, err = vm.collectIterable(args.Positional[0]); err != nil {
				return None, err
			}
		default:
			if def != Missing {
				return None, vm.Errorf(vm.TypeErrorType, "Cannot specify a default for %s() with multiple positional arguments", name)
			}
			items = args.Positional
		}
		if len(items) == 0 {
			if def != Missing {
				return def, nil
			}
			return None, vm.Errorf(vm.ValueErrorType, "%s() arg is an empty sequence", name)
		}

		keyOf := func(v Value) (Value, error) {
			if key == Missing || key == None {
				return v, nil
			}
			return vm.Call(key, PosArgs(v))
		}
		best := items[0]
		bestKey, err := keyOf(best)
		if err != nil {
			return None, err
		}
		for _, x := range items[1:] {
			k, err := keyOf(x)
			if err != nil {
				return None, err
			}
			better, err := vm.Less(op, k, bestKey)
			if err != nil {
				return None, err
			}
			if better {
				best, bestKey = x, k
			}
		}
		return best, nil
	}
}
