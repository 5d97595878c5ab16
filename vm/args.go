package vm

import "fmt"

// ---------------------------------------------------------------------------
// Packed call arguments for native functions
// ---------------------------------------------------------------------------

// Keyword is one name=value argument.
type Keyword struct {
	Name  string
	Value Value
}

// Args is the packed argument list handed to natives.
type Args struct {
	Positional []Value
	Keywords   []Keyword
}

// PosArgs builds an Args with positional values only.
func PosArgs(values ...Value) Args {
	return Args{Positional: values}
}

// prepend returns a copy of a with self as the first positional argument.
func (a Args) prepend(self Value) Args {
	pos := make([]Value, 0, len(a.Positional)+1)
	pos = append(pos, self)
	pos = append(pos, a.Positional...)
	return Args{Positional: pos, Keywords: a.Keywords}
}

func (a Args) trace(visit func(Value)) {
	for _, v := range a.Positional {
		visit(v)
	}
	for _, kw := range a.Keywords {
		visit(kw.Value)
	}
}

// Param describes one slot of a native signature. A Type that is not an
// object value (the zero Value) accepts anything.
type Param struct {
	Name string
	Type Value
}

// ArgSpec is the signature of a native: required slots followed by
// optional ones. Absent optional slots are filled with Missing.
type ArgSpec struct {
	Name     string
	Required []Param
	Optional []Param
}

// Bind unpacks args against the spec, returning one value per slot.
func (s ArgSpec) Bind(vm *VM, args Args) ([]Value, error) {
	total := len(s.Required) + len(s.Optional)
	if len(args.Positional) > total {
		return nil, vm.Errorf(vm.TypeErrorType, "%s() takes at most %d %s (%d given)",
			s.Name, total, plural(total, "argument"), len(args.Positional))
	}

	out := make([]Value, total)
	for i := range out {
		out[i] = Missing
	}
	copy(out, args.Positional)

	for _, kw := range args.Keywords {
		idx := s.slot(kw.Name)
		if idx < 0 {
			return nil, vm.Errorf(vm.TypeErrorType, "%s() got an unexpected keyword argument '%s'", s.Name, kw.Name)
		}
		if out[idx] != Missing {
			return nil, vm.Errorf(vm.TypeErrorType, "%s() got multiple values for argument '%s'", s.Name, kw.Name)
		}
		out[idx] = kw.Value
	}

	for i, p := range s.Required {
		if out[i] == Missing {
			return nil, vm.Errorf(vm.TypeErrorType, "%s() missing required argument: '%s'", s.Name, p.Name)
		}
	}
	for i := range out {
		p := s.param(i)
		if out[i] == Missing || !p.Type.IsObject() {
			continue
		}
		if !vm.IsInstance(out[i], p.Type) {
			return nil, vm.Errorf(vm.TypeErrorType, "%s() argument '%s' must be %s, not %s",
				s.Name, p.Name, vm.typeObj(p.Type).Name, vm.TypeName(out[i]))
		}
	}
	return out, nil
}

func (s ArgSpec) slot(name string) int {
	for i, p := range s.Required {
		if p.Name == name {
			return i
		}
	}
	for i, p := range s.Optional {
		if p.Name == name {
			return len(s.Required) + i
		}
	}
	return -1
}

func (s ArgSpec) param(i int) Param {
	if i < len(s.Required) {
		return s.Required[i]
	}
	return s.Optional[i-len(s.Required)]
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

// noKeywords rejects keyword arguments for natives that take none.
func (vm *VM) noKeywords(name string, args Args) error {
	if len(args.Keywords) > 0 {
		return vm.Errorf(vm.TypeErrorType, "%s() takes no keyword arguments", name)
	}
	return nil
}

// exactArgs checks the positional count of a native that takes no keywords.
func (vm *VM) exactArgs(name string, args Args, n int) error {
	if err := vm.noKeywords(name, args); err != nil {
		return err
	}
	if len(args.Positional) != n {
		return vm.Errorf(vm.TypeErrorType, "%s() takes exactly %s (%d given)",
			name, fmt.Sprintf("%d %s", n, plural(n, "argument")), len(args.Positional))
	}
	return nil
}

// methodArgs is exactArgs for methods; n excludes the receiver.
func (vm *VM) methodArgs(name string, args Args, n int) error {
	if err := vm.noKeywords(name, args); err != nil {
		return err
	}
	if got := len(args.Positional) - 1; got != n {
		return vm.Errorf(vm.TypeErrorType, "%s() takes exactly %d %s (%d given)",
			name, n, plural(n, "argument"), got)
	}
	return nil
}
