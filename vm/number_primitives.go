package vm

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// int, float, bool and slice constructors
// ---------------------------------------------------------------------------

func (vm *VM) registerNumberPrimitives() {
	vm.typeObj(vm.IntType).alloc = func(vm *VM, _ Value, args Args) (Value, error) {
		if err := vm.noKeywords("int", args); err != nil {
			return None, err
		}
		switch len(args.Positional) {
		case 0:
			return FromSmallInt(0), nil
		case 1:
			return vm.toInt(args.Positional[0])
		}
		return None, vm.Errorf(vm.TypeErrorType, "int expected at most 1 argument, got %d", len(args.Positional))
	}

	vm.typeObj(vm.FloatType).alloc = func(vm *VM, _ Value, args Args) (Value, error) {
		if err := vm.noKeywords("float", args); err != nil {
			return None, err
		}
		switch len(args.Positional) {
		case 0:
			return FromFloat64(0), nil
		case 1:
			return vm.toFloat(args.Positional[0])
		}
		return None, vm.Errorf(vm.TypeErrorType, "float expected at most 1 argument, got %d", len(args.Positional))
	}

	vm.typeObj(vm.BoolType).alloc = func(vm *VM, _ Value, args Args) (Value, error) {
		if err := vm.noKeywords("bool", args); err != nil {
			return None, err
		}
		switch len(args.Positional) {
		case 0:
			return False, nil
		case 1:
			t, err := vm.Truthy(args.Positional[0])
			return FromBool(t), err
		}
		return None, vm.Errorf(vm.TypeErrorType, "bool expected at most 1 argument, got %d", len(args.Positional))
	}

	vm.defineMethod(vm.FloatType, "is_integer", func(vm *VM, args Args) (Value, error) {
		if err := vm.methodArgs("is_integer", args, 0); err != nil {
			return None, err
		}
		f := floatOf(args.Positional[0])
		return FromBool(f == math.Trunc(f) && !math.IsInf(f, 0)), nil
	})

	vm.defineMethod(vm.IntType, "bit_length", func(vm *VM, args Args) (Value, error) {
		if err := vm.methodArgs("bit_length", args, 0); err != nil {
			return None, err
		}
		n := intOf(args.Positional[0])
		if n < 0 {
			n = -n
		}
		bits := 0
		for ; n > 0; n >>= 1 {
			bits++
		}
		return FromSmallInt(int64(bits)), nil
	})
}

func (vm *VM) toInt(v Value) (Value, error) {
	switch {
	case isIntLike(v):
		return FromSmallInt(intOf(v)), nil
	case v.IsFloat():
		f := v.Float64()
		if math.IsNaN(f) {
			return None, vm.Errorf(vm.ValueErrorType, "cannot convert float NaN to integer")
		}
		if math.IsInf(f, 0) || f > float64(MaxSmallInt) || f < float64(MinSmallInt) {
			return None, vm.Errorf(vm.OverflowErrorType, "cannot convert float %s to integer", formatFloat(f))
		}
		return FromSmallInt(int64(f)), nil
	}
	if s, ok := vm.StringOf(v); ok {
		text := strings.ReplaceAll(strings.TrimSpace(s), "_", "")
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return None, vm.Errorf(vm.ValueErrorType, "invalid literal for int() with base 10: %s", quoteString(s))
		}
		return vm.intResult(n)
	}
	r, found, err := vm.callMethod(v, "__int__")
	if err != nil || found {
		return r, err
	}
	return None, vm.Errorf(vm.TypeErrorType, "int() argument must be a string or a number, not '%s'", vm.TypeName(v))
}

func (vm *VM) toFloat(v Value) (Value, error) {
	if v.IsNumber() {
		return FromFloat64(floatOf(v)), nil
	}
	if s, ok := vm.StringOf(v); ok {
		text := strings.ToLower(strings.TrimSpace(s))
		switch text {
		case "inf", "+inf", "infinity":
			return FromFloat64(math.Inf(1)), nil
		case "-inf", "-infinity":
			return FromFloat64(math.Inf(-1)), nil
		case "nan", "+nan", "-nan":
			return FromFloat64(math.NaN()), nil
		}
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return None, vm.Errorf(vm.ValueErrorType, "could not convert string to float: %s", quoteString(s))
		}
		return FromFloat64(f), nil
	}
	r, found, err := vm.callMethod(v, "__float__")
	if err != nil || found {
		return r, err
	}
	return None, vm.Errorf(vm.TypeErrorType, "float() argument must be a string or a number, not '%s'", vm.TypeName(v))
}

func (vm *VM) registerSlicePrimitives() {
	t := vm.SliceType

	vm.typeObj(t).alloc = func(vm *VM, _ Value, args Args) (Value, error) {
		if err := vm.noKeywords("slice", args); err != nil {
			return None, err
		}
		p := args.Positional
		switch len(p) {
		case 1:
			return vm.NewSlice(None, p[0], None), nil
		case 2:
			return vm.NewSlice(p[0], p[1], None), nil
		case 3:
			return vm.NewSlice(p[0], p[1], p[2]), nil
		}
		return None, vm.Errorf(vm.TypeErrorType, "slice expected 1 to 3 arguments, got %d", len(p))
	}

	vm.defineMethod(t, "__repr__", func(vm *VM, args Args) (Value, error) {
		s, _ := as[*SliceObject](vm, args.Positional[0])
		parts := make([]string, 3)
		for i, v := range []Value{s.Start, s.Stop, s.Step} {
			r, err := vm.Repr(v)
			if err != nil {
				return None, err
			}
			parts[i] = r
		}
		return vm.NewString(fmt.Sprintf("slice(%s)", strings.Join(parts, ", "))), nil
	})
}
