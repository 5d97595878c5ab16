package vm

import (
	"math"
	"math/bits"

	"github.com/chazu/serpent/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// Operators
// ---------------------------------------------------------------------------

// binaryMethods maps an operator to its special method and reflected
// special method.
var binaryMethods = map[bytecode.BinaryOp][2]string{
	bytecode.BinaryAdd:      {"__add__", "__radd__"},
	bytecode.BinarySub:      {"__sub__", "__rsub__"},
	bytecode.BinaryMul:      {"__mul__", "__rmul__"},
	bytecode.BinaryTrueDiv:  {"__truediv__", "__rtruediv__"},
	bytecode.BinaryFloorDiv: {"__floordiv__", "__rfloordiv__"},
	bytecode.BinaryMod:      {"__mod__", "__rmod__"},
	bytecode.BinaryPow:      {"__pow__", "__rpow__"},
}

// orderMethods maps an ordering comparison to its special method and the
// reflected one tried on the right operand.
var orderMethods = map[bytecode.CompareOp][2]string{
	bytecode.CompareLt: {"__lt__", "__gt__"},
	bytecode.CompareLe: {"__le__", "__ge__"},
	bytecode.CompareGt: {"__gt__", "__lt__"},
	bytecode.CompareGe: {"__ge__", "__le__"},
}

func isIntLike(v Value) bool {
	return v.IsSmallInt() || v.IsBool()
}

func intOf(v Value) int64 {
	switch {
	case v.IsSmallInt():
		return v.SmallInt()
	case v == True:
		return 1
	}
	return 0
}

func floatOf(v Value) float64 {
	if v.IsFloat() {
		return v.Float64()
	}
	return float64(intOf(v))
}

// BinaryOp applies an arithmetic operator. Numbers are handled directly;
// everything else dispatches to __op__ on the left operand, then __rop__
// on the right one.
func (vm *VM) BinaryOp(op bytecode.BinaryOp, a, b Value) (Value, error) {
	if a.IsNumber() && b.IsNumber() {
		if isIntLike(a) && isIntLike(b) {
			return vm.intOp(op, intOf(a), intOf(b))
		}
		return vm.floatOp(op, floatOf(a), floatOf(b))
	}

	names, ok := binaryMethods[op]
	if ok {
		r, found, err := vm.callMethod(a, names[0], b)
		if err != nil {
			return None, err
		}
		if found && r != NotImplemented {
			return r, nil
		}
		r, found, err = vm.callMethod(b, names[1], a)
		if err != nil {
			return None, err
		}
		if found && r != NotImplemented {
			return r, nil
		}
	}
	return None, vm.Errorf(vm.TypeErrorType, "unsupported operand type(s) for %s: '%s' and '%s'",
		op.String(), vm.TypeName(a), vm.TypeName(b))
}

func (vm *VM) intResult(n int64) (Value, error) {
	if v, ok := TryFromSmallInt(n); ok {
		return v, nil
	}
	return None, vm.Errorf(vm.OverflowErrorType, "integer overflow")
}

func (vm *VM) intOp(op bytecode.BinaryOp, x, y int64) (Value, error) {
	switch op {
	case bytecode.BinaryAdd:
		return vm.intResult(x + y)
	case bytecode.BinarySub:
		return vm.intResult(x - y)
	case bytecode.BinaryMul:
		return vm.intMul(x, y)
	case bytecode.BinaryTrueDiv:
		if y == 0 {
			return None, vm.Errorf(vm.ZeroDivisionErrorType, "division by zero")
		}
		return FromFloat64(float64(x) / float64(y)), nil
	case bytecode.BinaryFloorDiv:
		if y == 0 {
			return None, vm.Errorf(vm.ZeroDivisionErrorType, "integer division or modulo by zero")
		}
		q := x / y
		if x%y != 0 && (x < 0) != (y < 0) {
			q--
		}
		return vm.intResult(q)
	case bytecode.BinaryMod:
		if y == 0 {
			return None, vm.Errorf(vm.ZeroDivisionErrorType, "integer modulo by zero")
		}
		m := x % y
		if m != 0 && (m < 0) != (y < 0) {
			m += y
		}
		return FromSmallInt(m), nil
	case bytecode.BinaryPow:
		if y < 0 {
			if x == 0 {
				return None, vm.Errorf(vm.ZeroDivisionErrorType, "0.0 cannot be raised to a negative power")
			}
			return FromFloat64(math.Pow(float64(x), float64(y))), nil
		}
		result := int64(1)
		base := x
		for y > 0 {
			if y&1 == 1 {
				v, err := vm.intMul(result, base)
				if err != nil {
					return None, err
				}
				result = v.SmallInt()
			}
			y >>= 1
			if y > 0 {
				v, err := vm.intMul(base, base)
				if err != nil {
					return None, err
				}
				base = v.SmallInt()
			}
		}
		return vm.intResult(result)
	}
	return None, vm.Errorf(vm.TypeErrorType, "unsupported operator %s", op)
}

// intMul multiplies with overflow detection past the integer range.
func (vm *VM) intMul(x, y int64) (Value, error) {
	neg := (x < 0) != (y < 0)
	ax, ay := uint64(x), uint64(y)
	if x < 0 {
		ax = uint64(-x)
	}
	if y < 0 {
		ay = uint64(-y)
	}
	hi, lo := bits.Mul64(ax, ay)
	if hi != 0 || lo > uint64(MaxSmallInt)+1 {
		return None, vm.Errorf(vm.OverflowErrorType, "integer overflow")
	}
	r := int64(lo)
	if neg {
		r = -r
	}
	return vm.intResult(r)
}

func (vm *VM) floatOp(op bytecode.BinaryOp, x, y float64) (Value, error) {
	switch op {
	case bytecode.BinaryAdd:
		return FromFloat64(x + y), nil
	case bytecode.BinarySub:
		return FromFloat64(x - y), nil
	case bytecode.BinaryMul:
		return FromFloat64(x * y), nil
	case bytecode.BinaryTrueDiv:
		if y == 0 {
			return None, vm.Errorf(vm.ZeroDivisionErrorType, "float division by zero")
		}
		return FromFloat64(x / y), nil
	case bytecode.BinaryFloorDiv:
		if y == 0 {
			return None, vm.Errorf(vm.ZeroDivisionErrorType, "float floor division by zero")
		}
		return FromFloat64(math.Floor(x / y)), nil
	case bytecode.BinaryMod:
		if y == 0 {
			return None, vm.Errorf(vm.ZeroDivisionErrorType, "float modulo")
		}
		m := math.Mod(x, y)
		if m != 0 && (m < 0) != (y < 0) {
			m += y
		}
		return FromFloat64(m), nil
	case bytecode.BinaryPow:
		if x == 0 && y < 0 {
			return None, vm.Errorf(vm.ZeroDivisionErrorType, "0.0 cannot be raised to a negative power")
		}
		if x < 0 && y != math.Trunc(y) {
			return None, vm.Errorf(vm.ValueErrorType, "math domain error")
		}
		return FromFloat64(math.Pow(x, y)), nil
	}
	return None, vm.Errorf(vm.TypeErrorType, "unsupported operator %s", op)
}

// unaryOp implements unary minus and plus.
func (vm *VM) unaryOp(op bytecode.Opcode, v Value) (Value, error) {
	neg := op == bytecode.OpUnaryNeg
	switch {
	case isIntLike(v):
		if neg {
			return vm.intResult(-intOf(v))
		}
		return FromSmallInt(intOf(v)), nil
	case v.IsFloat():
		if neg {
			return FromFloat64(-v.Float64()), nil
		}
		return v, nil
	}
	name, sym := "__pos__", "+"
	if neg {
		name, sym = "__neg__", "-"
	}
	r, found, err := vm.callMethod(v, name)
	if err != nil || found {
		return r, err
	}
	return None, vm.Errorf(vm.TypeErrorType, "bad operand type for unary %s: '%s'", sym, vm.TypeName(v))
}

// ---------------------------------------------------------------------------
// Comparison
// ---------------------------------------------------------------------------

// Compare applies a comparison operator.
func (vm *VM) Compare(op bytecode.CompareOp, a, b Value) (Value, error) {
	switch op {
	case bytecode.CompareIs:
		return FromBool(a == b), nil
	case bytecode.CompareIsNot:
		return FromBool(a != b), nil
	case bytecode.CompareEq, bytecode.CompareNe:
		eq, err := vm.Equal(a, b)
		if err != nil {
			return None, err
		}
		return FromBool(eq == (op == bytecode.CompareEq)), nil
	case bytecode.CompareIn, bytecode.CompareNotIn:
		in, err := vm.Contains(b, a)
		if err != nil {
			return None, err
		}
		return FromBool(in == (op == bytecode.CompareIn)), nil
	}
	ok, err := vm.Less(op, a, b)
	if err != nil {
		return None, err
	}
	return FromBool(ok), nil
}

// Equal reports a == b. Numbers compare by value across int, bool and
// float; everything else dispatches to __eq__, first on a, then reflected
// on b, falling back to identity.
func (vm *VM) Equal(a, b Value) (bool, error) {
	if a.IsNumber() && b.IsNumber() {
		if isIntLike(a) && isIntLike(b) {
			return intOf(a) == intOf(b), nil
		}
		return floatOf(a) == floatOf(b), nil
	}
	if a == b {
		return true, nil
	}
	r, found, err := vm.callMethod(a, "__eq__", b)
	if err != nil {
		return false, err
	}
	if found && r != NotImplemented {
		return vm.Truthy(r)
	}
	r, found, err = vm.callMethod(b, "__eq__", a)
	if err != nil {
		return false, err
	}
	if found && r != NotImplemented {
		return vm.Truthy(r)
	}
	return false, nil
}

// Less evaluates an ordering comparison (<, <=, >, >=).
func (vm *VM) Less(op bytecode.CompareOp, a, b Value) (bool, error) {
	if a.IsNumber() && b.IsNumber() {
		if isIntLike(a) && isIntLike(b) {
			return compareOrdered(op, intOf(a), intOf(b)), nil
		}
		return compareOrdered(op, floatOf(a), floatOf(b)), nil
	}
	names, ok := orderMethods[op]
	if ok {
		r, found, err := vm.callMethod(a, names[0], b)
		if err != nil {
			return false, err
		}
		if found && r != NotImplemented {
			return vm.Truthy(r)
		}
		r, found, err = vm.callMethod(b, names[1], a)
		if err != nil {
			return false, err
		}
		if found && r != NotImplemented {
			return vm.Truthy(r)
		}
	}
	return false, vm.Errorf(vm.TypeErrorType, "'%s' not supported between instances of '%s' and '%s'",
		op.String(), vm.TypeName(a), vm.TypeName(b))
}

func compareOrdered[T int64 | float64 | string](op bytecode.CompareOp, x, y T) bool {
	switch op {
	case bytecode.CompareLt:
		return x < y
	case bytecode.CompareLe:
		return x <= y
	case bytecode.CompareGt:
		return x > y
	case bytecode.CompareGe:
		return x >= y
	}
	return false
}

// compareSequences orders two sequences lexicographically using element
// equality and ordering.
func (vm *VM) compareSequences(op bytecode.CompareOp, a, b []Value) (bool, error) {
	for i := 0; i < len(a) && i < len(b); i++ {
		eq, err := vm.Equal(a[i], b[i])
		if err != nil {
			return false, err
		}
		if !eq {
			return vm.Less(op, a[i], b[i])
		}
	}
	return compareOrdered(op, int64(len(a)), int64(len(b))), nil
}

// ---------------------------------------------------------------------------
// Truth and membership
// ---------------------------------------------------------------------------

// Truthy reports the truth value of v.
func (vm *VM) Truthy(v Value) (bool, error) {
	switch {
	case v == True:
		return true, nil
	case v == False, v == None:
		return false, nil
	case v.IsSmallInt():
		return v.SmallInt() != 0, nil
	case v.IsFloat():
		return v.Float64() != 0, nil
	}
	switch o := vm.heap.Get(v).(type) {
	case *StringObject:
		return o.S != "", nil
	case *TupleObject:
		return len(o.Items) > 0, nil
	case *ListObject:
		return len(o.Items) > 0, nil
	case *DictObject:
		return o.Len() > 0, nil
	case *RangeObject:
		return o.Len() > 0, nil
	case *InstanceObject:
		if r, found, err := vm.callMethod(v, "__bool__"); err != nil || found {
			if err != nil {
				return false, err
			}
			if !r.IsBool() {
				return false, vm.Errorf(vm.TypeErrorType, "__bool__ should return bool, returned %s", vm.TypeName(r))
			}
			return r == True, nil
		}
		if r, found, err := vm.callMethod(v, "__len__"); err != nil || found {
			if err != nil {
				return false, err
			}
			return r != FromSmallInt(0), nil
		}
	}
	return true, nil
}

// Contains reports item in container, through __contains__ when the
// container defines it and by iteration otherwise.
func (vm *VM) Contains(container, item Value) (bool, error) {
	r, found, err := vm.callMethod(container, "__contains__", item)
	if err != nil {
		return false, err
	}
	if found {
		return vm.Truthy(r)
	}
	it, err := vm.GetIter(container)
	if err != nil {
		return false, vm.Errorf(vm.TypeErrorType, "argument of type '%s' is not iterable", vm.TypeName(container))
	}
	for {
		v, ok, err := vm.IterNext(it)
		if err != nil || !ok {
			return false, err
		}
		eq, err := vm.Equal(v, item)
		if err != nil || eq {
			return eq, err
		}
	}
}
