package vm

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// object: the root type, and the repr/str protocol
// ---------------------------------------------------------------------------

func (vm *VM) registerObjectPrimitives() {
	t := vm.ObjectType

	vm.defineMethod(t, "__repr__", func(vm *VM, args Args) (Value, error) {
		self := args.Positional[0]
		return vm.NewString(fmt.Sprintf("<%s object at %#x>", vm.TypeName(self), vm.identity(self))), nil
	})

	vm.defineMethod(t, "__str__", func(vm *VM, args Args) (Value, error) {
		s, err := vm.Repr(args.Positional[0])
		if err != nil {
			return None, err
		}
		return vm.NewString(s), nil
	})

	vm.defineMethod(t, "__eq__", func(vm *VM, args Args) (Value, error) {
		if err := vm.methodArgs("__eq__", args, 1); err != nil {
			return None, err
		}
		if args.Positional[0] == args.Positional[1] {
			return True, nil
		}
		return NotImplemented, nil
	})

	vm.defineMethod(t, "__ne__", func(vm *VM, args Args) (Value, error) {
		if err := vm.methodArgs("__ne__", args, 1); err != nil {
			return None, err
		}
		eq, err := vm.Equal(args.Positional[0], args.Positional[1])
		if err != nil {
			return None, err
		}
		return FromBool(!eq), nil
	})
}

// Repr returns the printable representation of v, dispatching to
// __repr__ for everything but the scalar kinds.
func (vm *VM) Repr(v Value) (string, error) {
	switch {
	case v == None:
		return "None", nil
	case v == True:
		return "True", nil
	case v == False:
		return "False", nil
	case v.IsSmallInt():
		return strconv.FormatInt(v.SmallInt(), 10), nil
	case v.IsFloat():
		return formatFloat(v.Float64()), nil
	}
	if s, ok := vm.StringOf(v); ok {
		return quoteString(s), nil
	}
	r, found, err := vm.callMethod(v, "__repr__")
	if err != nil {
		return "", err
	}
	if !found {
		return fmt.Sprintf("<%s object at %#x>", vm.TypeName(v), vm.identity(v)), nil
	}
	s, ok := vm.StringOf(r)
	if !ok {
		return "", vm.Errorf(vm.TypeErrorType, "__repr__ returned non-string (type %s)", vm.TypeName(r))
	}
	return s, nil
}

// Str returns str(v): the content of strings, __str__ otherwise.
func (vm *VM) Str(v Value) (string, error) {
	if s, ok := vm.StringOf(v); ok {
		return s, nil
	}
	if v.IsSpecial() || v.IsSmallInt() || v.IsFloat() {
		return vm.Repr(v)
	}
	r, found, err := vm.callMethod(v, "__str__")
	if err != nil {
		return "", err
	}
	if !found {
		return vm.Repr(v)
	}
	s, ok := vm.StringOf(r)
	if !ok {
		return "", vm.Errorf(vm.TypeErrorType, "__str__ returned non-string (type %s)", vm.TypeName(r))
	}
	return s, nil
}

// reprJoin renders items with Repr between open and close. A container
// that is already being rendered further up shows as placeholder.
func (vm *VM) reprJoin(self Value, items []Value, open, close, placeholder string) (string, error) {
	if vm.reprActive[self] {
		return placeholder, nil
	}
	vm.reprActive[self] = true
	defer delete(vm.reprActive, self)

	parts := make([]string, len(items))
	for i, item := range items {
		s, err := vm.Repr(item)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return open + strings.Join(parts, ", ") + close, nil
}

// formatFloat renders a float the way the language prints it: integral
// values keep a ".0", large and tiny magnitudes use exponent notation.
func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e16 {
		return strconv.FormatFloat(f, 'f', 1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// quoteString renders a string literal, preferring single quotes.
func quoteString(s string) string {
	quote := byte('\'')
	if strings.ContainsRune(s, '\'') && !strings.ContainsRune(s, '"') {
		quote = '"'
	}
	var b strings.Builder
	b.WriteByte(quote)
	for _, r := range s {
		switch {
		case r == rune(quote) || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(&b, `\x%02x`, r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte(quote)
	return b.String()
}
