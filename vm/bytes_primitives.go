package vm

import (
	"bytes"
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// bytes
// ---------------------------------------------------------------------------

func (vm *VM) bytesSelf(args Args) []byte {
	o, _ := as[*BytesObject](vm, args.Positional[0])
	return o.B
}

// BytesOf returns the contents of a bytes value.
func (vm *VM) BytesOf(v Value) ([]byte, bool) {
	if o, ok := as[*BytesObject](vm, v); ok {
		return o.B, true
	}
	return nil, false
}

func (vm *VM) registerBytesPrimitives() {
	t := vm.BytesType

	vm.typeObj(t).alloc = func(vm *VM, _ Value, args Args) (Value, error) {
		if err := vm.noKeywords("bytes", args); err != nil {
			return None, err
		}
		switch len(args.Positional) {
		case 0:
			return vm.NewBytes(nil), nil
		case 1:
			return vm.bytesFrom(args.Positional[0])
		}
		return None, vm.Errorf(vm.TypeErrorType, "bytes expected at most 1 argument, got %d", len(args.Positional))
	}

	vm.defineMethod(t, "__len__", func(vm *VM, args Args) (Value, error) {
		return FromSmallInt(int64(len(vm.bytesSelf(args)))), nil
	})

	vm.defineMethod(t, "__getitem__", func(vm *VM, args Args) (Value, error) {
		if err := vm.methodArgs("__getitem__", args, 1); err != nil {
			return None, err
		}
		b := vm.bytesSelf(args)
		key := args.Positional[1]
		i, ok := vm.asIndex(key)
		if !ok {
			return None, vm.Errorf(vm.TypeErrorType, "byte indices must be integers, not %s", vm.TypeName(key))
		}
		idx, ok := normalizeIndex(i, len(b))
		if !ok {
			return None, vm.Errorf(vm.IndexErrorType, "index out of range")
		}
		return FromSmallInt(int64(b[idx])), nil
	})

	vm.defineMethod(t, "__eq__", func(vm *VM, args Args) (Value, error) {
		if err := vm.methodArgs("__eq__", args, 1); err != nil {
			return None, err
		}
		other, ok := vm.BytesOf(args.Positional[1])
		return FromBool(ok && bytes.Equal(other, vm.bytesSelf(args))), nil
	})

	vm.defineMethod(t, "__repr__", func(vm *VM, args Args) (Value, error) {
		return vm.NewString(quoteBytes(vm.bytesSelf(args))), nil
	})
}

// bytesFrom builds bytes from a size or an iterable of ints in range(256).
func (vm *VM) bytesFrom(src Value) (Value, error) {
	if n, ok := vm.asIndex(src); ok {
		if n < 0 {
			return None, vm.Errorf(vm.ValueErrorType, "negative count")
		}
		return vm.NewBytes(make([]byte, n)), nil
	}
	if b, ok := vm.BytesOf(src); ok {
		return vm.NewBytes(bytes.Clone(b)), nil
	}
	if _, ok := vm.StringOf(src); ok {
		return None, vm.Errorf(vm.TypeErrorType, "string argument without an encoding")
	}
	items, err := vm.collectIterable(src)
	if err != nil {
		if vm.errorIs(err, vm.TypeErrorType) {
			return None, vm.Errorf(vm.TypeErrorType, "cannot convert '%s' object to bytes", vm.TypeName(src))
		}
		return None, err
	}
	out := make([]byte, len(items))
	for i, item := range items {
		n, ok := vm.asIndex(item)
		if !ok {
			return None, vm.Errorf(vm.TypeErrorType, "'%s' object cannot be interpreted as an integer", vm.TypeName(item))
		}
		if n < 0 || n > 255 {
			return None, vm.Errorf(vm.ValueErrorType, "bytes must be in range(0, 256)")
		}
		out[i] = byte(n)
	}
	return vm.NewBytes(out), nil
}

// quoteBytes renders a bytes literal. Bytes outside printable ASCII are
// written as \x escapes.
func quoteBytes(b []byte) string {
	quote := byte('\'')
	if bytes.IndexByte(b, '\'') >= 0 && bytes.IndexByte(b, '"') < 0 {
		quote = '"'
	}
	var s strings.Builder
	s.WriteByte('b')
	s.WriteByte(quote)
	for _, c := range b {
		switch {
		case c == quote || c == '\\':
			s.WriteByte('\\')
			s.WriteByte(c)
		case c == '\n':
			s.WriteString(`\n`)
		case c == '\r':
			s.WriteString(`\r`)
		case c == '\t':
			s.WriteString(`\t`)
		case c < 0x20 || c >= 0x7f:
			fmt.Fprintf(&s, `\x%02x`, c)
		default:
			s.WriteByte(c)
		}
	}
	s.WriteByte(quote)
	return s.String()
}
