package vm

import (
	"strings"
	"unicode/utf8"

	"github.com/chazu/serpent/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// str
//
// Strings index by code point. Text semantics beyond that (normalization,
// case folding rules) are whatever the Go strings package does.
// ---------------------------------------------------------------------------

func (vm *VM) strSelf(args Args) string {
	s, _ := vm.StringOf(args.Positional[0])
	return s
}

// strArg returns positional argument i (after the receiver) as a string.
func (vm *VM) strArg(method string, args Args, i int) (string, error) {
	v := args.Positional[i]
	s, ok := vm.StringOf(v)
	if !ok {
		return "", vm.Errorf(vm.TypeErrorType, "%s() argument %d must be str, not %s", method, i, vm.TypeName(v))
	}
	return s, nil
}

func (vm *VM) registerStringPrimitives() {
	t := vm.StrType

	vm.typeObj(t).alloc = func(vm *VM, _ Value, args Args) (Value, error) {
		if err := vm.noKeywords("str", args); err != nil {
			return None, err
		}
		switch len(args.Positional) {
		case 0:
			return vm.NewString(""), nil
		case 1:
			s, err := vm.Str(args.Positional[0])
			if err != nil {
				return None, err
			}
			return vm.NewString(s), nil
		}
		return None, vm.Errorf(vm.TypeErrorType, "str expected at most 1 argument, got %d", len(args.Positional))
	}

	vm.defineMethod(t, "__len__", func(vm *VM, args Args) (Value, error) {
		return FromSmallInt(int64(utf8.RuneCountInString(vm.strSelf(args)))), nil
	})

	vm.defineMethod(t, "__getitem__", func(vm *VM, args Args) (Value, error) {
		if err := vm.methodArgs("__getitem__", args, 1); err != nil {
			return None, err
		}
		runes := []rune(vm.strSelf(args))
		key := args.Positional[1]
		if s, ok := as[*SliceObject](vm, key); ok {
			start, stop, step, err := vm.sliceIndices(s, len(runes))
			if err != nil {
				return None, err
			}
			return vm.NewString(string(selectSlice(runes, start, stop, step))), nil
		}
		idx, err := vm.itemIndex("string", len(runes), key)
		if err != nil {
			return None, err
		}
		return vm.NewString(string(runes[idx])), nil
	})

	vm.defineMethod(t, "__eq__", func(vm *VM, args Args) (Value, error) {
		if err := vm.methodArgs("__eq__", args, 1); err != nil {
			return None, err
		}
		other, ok := vm.StringOf(args.Positional[1])
		return FromBool(ok && other == vm.strSelf(args)), nil
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
			other, ok := vm.StringOf(args.Positional[1])
			if !ok {
				return NotImplemented, nil
			}
			return FromBool(compareOrdered(op, vm.strSelf(args), other)), nil
		})
	}

	vm.defineMethod(t, "__repr__", func(vm *VM, args Args) (Value, error) {
		return vm.NewString(quoteString(vm.strSelf(args))), nil
	})

	vm.defineMethod(t, "__str__", func(vm *VM, args Args) (Value, error) {
		return args.Positional[0], nil
	})

	vm.defineMethod(t, "__contains__", func(vm *VM, args Args) (Value, error) {
		if err := vm.methodArgs("__contains__", args, 1); err != nil {
			return None, err
		}
		sub, ok := vm.StringOf(args.Positional[1])
		if !ok {
			return None, vm.Errorf(vm.TypeErrorType, "'in <string>' requires string as left operand, not %s", vm.TypeName(args.Positional[1]))
		}
		return FromBool(strings.Contains(vm.strSelf(args), sub)), nil
	})

	vm.defineMethod(t, "__add__", func(vm *VM, args Args) (Value, error) {
		if err := vm.methodArgs("__add__", args, 1); err != nil {
			return None, err
		}
		other, ok := vm.StringOf(args.Positional[1])
		if !ok {
			return NotImplemented, nil
		}
		return vm.NewString(vm.strSelf(args) + other), nil
	})

	mul := func(vm *VM, args Args) (Value, error) {
		if err := vm.methodArgs("__mul__", args, 1); err != nil {
			return None, err
		}
		n, ok := repeatCount(args.Positional[1])
		if !ok {
			return NotImplemented, nil
		}
		self := vm.strSelf(args)
		if err := vm.checkRepeat("string", len(self), n); err != nil {
			return None, err
		}
		return vm.NewString(strings.Repeat(self, n)), nil
	}
	vm.defineMethod(t, "__mul__", mul)
	vm.defineMethod(t, "__rmul__", mul)

	vm.defineMethod(t, "join", func(vm *VM, args Args) (Value, error) {
		if err := vm.methodArgs("join", args, 1); err != nil {
			return None, err
		}
		items, err := vm.collectIterable(args.Positional[1])
		if err != nil {
			return None, err
		}
		parts := make([]string, len(items))
		for i, item := range items {
			s, ok := vm.StringOf(item)
			if !ok {
				return None, vm.Errorf(vm.TypeErrorType, "sequence item %d: expected str instance, %s found", i, vm.TypeName(item))
			}
			parts[i] = s
		}
		return vm.NewString(strings.Join(parts, vm.strSelf(args))), nil
	})

	vm.defineMethod(t, "upper", func(vm *VM, args Args) (Value, error) {
		if err := vm.methodArgs("upper", args, 0); err != nil {
			return None, err
		}
		return vm.NewString(strings.ToUpper(vm.strSelf(args))), nil
	})

	vm.defineMethod(t, "lower", func(vm *VM, args Args) (Value, error) {
		if err := vm.methodArgs("lower", args, 0); err != nil {
			return None, err
		}
		return vm.NewString(strings.ToLower(vm.strSelf(args))), nil
	})

	splitSpec := ArgSpec{Name: "split", Optional: []Param{{Name: "sep"}, {Name: "maxsplit"}}}
	vm.defineMethod(t, "split", func(vm *VM, args Args) (Value, error) {
		bound, err := splitSpec.Bind(vm, Args{Positional: args.Positional[1:], Keywords: args.Keywords})
		if err != nil {
			return None, err
		}
		s := vm.strSelf(args)
		limit := -1
		if bound[1] != Missing {
			n, ok := vm.asIndex(bound[1])
			if !ok {
				return None, vm.Errorf(vm.TypeErrorType, "'%s' object cannot be interpreted as an integer", vm.TypeName(bound[1]))
			}
			if n >= 0 {
				limit = n + 1
			}
		}

		var parts []string
		if bound[0] == Missing || bound[0] == None {
			parts = splitWhitespace(s, limit)
		} else {
			sep, ok := vm.StringOf(bound[0])
			if !ok {
				return None, vm.Errorf(vm.TypeErrorType, "must be str or None, not %s", vm.TypeName(bound[0]))
			}
			if sep == "" {
				return None, vm.Errorf(vm.ValueErrorType, "empty separator")
			}
			parts = strings.SplitN(s, sep, limit)
		}
		out := make([]Value, len(parts))
		for i, p := range parts {
			out[i] = vm.NewString(p)
		}
		return vm.NewList(out), nil
	})

	vm.defineMethod(t, "startswith", func(vm *VM, args Args) (Value, error) {
		if err := vm.methodArgs("startswith", args, 1); err != nil {
			return None, err
		}
		prefix, err := vm.strArg("startswith", args, 1)
		if err != nil {
			return None, err
		}
		return FromBool(strings.HasPrefix(vm.strSelf(args), prefix)), nil
	})

	vm.defineMethod(t, "endswith", func(vm *VM, args Args) (Value, error) {
		if err := vm.methodArgs("endswith", args, 1); err != nil {
			return None, err
		}
		suffix, err := vm.strArg("endswith", args, 1)
		if err != nil {
			return None, err
		}
		return FromBool(strings.HasSuffix(vm.strSelf(args), suffix)), nil
	})

	vm.defineMethod(t, "strip", func(vm *VM, args Args) (Value, error) {
		if err := vm.noKeywords("strip", args); err != nil {
			return None, err
		}
		switch len(args.Positional) {
		case 1:
			return vm.NewString(strings.TrimSpace(vm.strSelf(args))), nil
		case 2:
			chars, err := vm.strArg("strip", args, 1)
			if err != nil {
				return None, err
			}
			return vm.NewString(strings.Trim(vm.strSelf(args), chars)), nil
		}
		return None, vm.Errorf(vm.TypeErrorType, "strip expected at most 1 argument, got %d", len(args.Positional)-1)
	})

	vm.defineMethod(t, "replace", func(vm *VM, args Args) (Value, error) {
		if err := vm.methodArgs("replace", args, 2); err != nil {
			return None, err
		}
		old, err := vm.strArg("replace", args, 1)
		if err != nil {
			return None, err
		}
		repl, err := vm.strArg("replace", args, 2)
		if err != nil {
			return None, err
		}
		return vm.NewString(strings.ReplaceAll(vm.strSelf(args), old, repl)), nil
	})

	vm.defineMethod(t, "find", func(vm *VM, args Args) (Value, error) {
		if err := vm.methodArgs("find", args, 1); err != nil {
			return None, err
		}
		sub, err := vm.strArg("find", args, 1)
		if err != nil {
			return None, err
		}
		s := vm.strSelf(args)
		i := strings.Index(s, sub)
		if i < 0 {
			return FromSmallInt(-1), nil
		}
		return FromSmallInt(int64(utf8.RuneCountInString(s[:i]))), nil
	})
}

// splitWhitespace splits on runs of whitespace, dropping empty fields.
// limit < 0 means no limit; otherwise at most limit fields are returned
// and the last one keeps the rest of s with leading space removed.
func splitWhitespace(s string, limit int) []string {
	if limit < 0 {
		return strings.Fields(s)
	}
	var out []string
	rest := strings.TrimLeft(s, " \t\n\r\v\f")
	for rest != "" {
		if len(out) == limit-1 {
			return append(out, rest)
		}
		i := strings.IndexAny(rest, " \t\n\r\v\f")
		if i < 0 {
			return append(out, rest)
		}
		out = append(out, rest[:i])
		rest = strings.TrimLeft(rest[i:], " \t\n\r\v\f")
	}
	return out
}
