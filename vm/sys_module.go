package vm

// ---------------------------------------------------------------------------
// Modules and the built-in sys module
// ---------------------------------------------------------------------------

// Default interactive prompts.
const (
	DefaultPS1 = ">>>>> "
	DefaultPS2 = "..... "
)

// newModule allocates a module whose scope chains to the builtin scope.
func (vm *VM) newModule(name, path string) Value {
	scope := vm.NewScope(vm.Builtins)
	vm.StoreName(scope, "__name__", vm.NewString(name))
	return vm.heap.Alloc(&ModuleObject{Name: name, Path: path, Scope: scope})
}

func (vm *VM) registerModule(mod Value) {
	m, _ := as[*ModuleObject](vm, mod)
	vm.modules[m.Name] = mod
}

// moduleScope returns the scope of a module value.
func (vm *VM) moduleScope(mod Value) Value {
	m, _ := as[*ModuleObject](vm, mod)
	return m.Scope
}

// Module returns an imported module by name.
func (vm *VM) Module(name string) (Value, bool) {
	m, ok := vm.modules[name]
	return m, ok
}

func (vm *VM) newSysModule() Value {
	mod := vm.newModule("sys", "")
	scope := vm.moduleScope(mod)

	vm.StoreName(scope, "path", vm.sysPath)
	vm.StoreName(scope, "argv", vm.NewList(nil))
	vm.StoreName(scope, "ps1", vm.NewString(DefaultPS1))
	vm.StoreName(scope, "ps2", vm.NewString(DefaultPS2))
	vm.StoreName(scope, "version", vm.NewString(Version))

	vm.StoreName(scope, "getrecursionlimit", vm.NewNative("getrecursionlimit", func(vm *VM, args Args) (Value, error) {
		if err := vm.exactArgs("getrecursionlimit", args, 0); err != nil {
			return None, err
		}
		return FromSmallInt(int64(vm.RecursionLimit)), nil
	}))

	vm.StoreName(scope, "setrecursionlimit", vm.NewNative("setrecursionlimit", func(vm *VM, args Args) (Value, error) {
		if err := vm.exactArgs("setrecursionlimit", args, 1); err != nil {
			return None, err
		}
		n, ok := vm.asIndex(args.Positional[0])
		if !ok {
			return None, vm.Errorf(vm.TypeErrorType, "'%s' object cannot be interpreted as an integer", vm.TypeName(args.Positional[0]))
		}
		if n < 1 {
			return None, vm.Errorf(vm.ValueErrorType, "recursion limit must be greater or equal than 1")
		}
		vm.RecursionLimit = n
		return None, nil
	}))
	return mod
}

// sysAttr reads an attribute of the sys module.
func (vm *VM) sysAttr(name string) (Value, bool) {
	return vm.scope(vm.moduleScope(vm.modules["sys"])).Vars.Get(name)
}

// Prompt returns sys.ps1 (or sys.ps2 when continuation is set) as a
// string, falling back to the defaults when it was rebound to a
// non-string.
func (vm *VM) Prompt(continuation bool) string {
	name, def := "ps1", DefaultPS1
	if continuation {
		name, def = "ps2", DefaultPS2
	}
	v, ok := vm.sysAttr(name)
	if !ok {
		return def
	}
	s, err := vm.Str(v)
	if err != nil {
		return def
	}
	return s
}

// SetArgv sets sys.argv.
func (vm *VM) SetArgv(argv []string) {
	items := make([]Value, len(argv))
	for i, a := range argv {
		items[i] = vm.NewString(a)
	}
	vm.StoreName(vm.moduleScope(vm.modules["sys"]), "argv", vm.NewList(items))
}

// AddSearchPath appends dir to sys.path.
func (vm *VM) AddSearchPath(dir string) {
	l := vm.listObj(vm.sysPath)
	l.Items = append(l.Items, vm.NewString(dir))
}

// SearchPath returns the string entries of sys.path.
func (vm *VM) SearchPath() []string {
	var out []string
	for _, v := range vm.listObj(vm.sysPath).Items {
		if s, ok := vm.StringOf(v); ok {
			out = append(out, s)
		}
	}
	return out
}

// SetPrompts rebinds sys.ps1 and sys.ps2. An empty string leaves that
// prompt unchanged.
func (vm *VM) SetPrompts(ps1, ps2 string) {
	sys := vm.moduleScope(vm.modules["sys"])
	if ps1 != "" {
		vm.StoreName(sys, "ps1", vm.NewString(ps1))
	}
	if ps2 != "" {
		vm.StoreName(sys, "ps2", vm.NewString(ps2))
	}
}
