package vm

// ---------------------------------------------------------------------------
// The built-in types module
// ---------------------------------------------------------------------------

func (vm *VM) newTypesModule() Value {
	mod := vm.newModule("types", "")
	scope := vm.moduleScope(mod)

	vm.StoreName(scope, "FunctionType", vm.FunctionType)
	vm.StoreName(scope, "BuiltinFunctionType", vm.BuiltinFunctionType)
	vm.StoreName(scope, "MethodType", vm.MethodType)
	vm.StoreName(scope, "ModuleType", vm.ModuleType)
	vm.StoreName(scope, "NoneType", vm.NoneType)

	spec := ArgSpec{
		Name:     "new_class",
		Required: []Param{{Name: "name", Type: vm.StrType}},
		Optional: []Param{{Name: "bases"}, {Name: "kwds"}, {Name: "exec_body"}},
	}
	vm.StoreName(scope, "new_class", vm.NewNative("new_class", func(vm *VM, args Args) (Value, error) {
		bound, err := spec.Bind(vm, args)
		if err != nil {
			return None, err
		}
		return vm.newClassFromArgs(bound[0], bound[1], bound[3])
	}))
	return mod
}

// newClassFromArgs implements types.new_class. exec_body, when given, is
// called with the namespace dict before the class is built.
func (vm *VM) newClassFromArgs(nameV, bases, execBody Value) (Value, error) {
	name, _ := vm.StringOf(nameV)
	if bases != Missing && bases != None {
		if _, ok := as[*TupleObject](vm, bases); !ok {
			return None, vm.Errorf(vm.TypeErrorType, "Bases must be a tuple")
		}
	}

	ns := vm.NewDict()
	if execBody != Missing && execBody != None {
		if _, err := vm.Call(execBody, PosArgs(ns)); err != nil {
			return None, err
		}
	}
	table, err := vm.namespaceFromDict(ns)
	if err != nil {
		return None, err
	}
	return vm.NewClass(name, bases, table)
}
