package vm

// ---------------------------------------------------------------------------
// Scope: name tables chained to their lexically enclosing scope
// ---------------------------------------------------------------------------

// ScopeObject is a mutable name table. Lookups that miss walk Parent;
// module and function scopes reach the builtin scope only through that
// chain. The builtin scope is the root and has Parent None.
type ScopeObject struct {
	Vars   *AttrTable
	Parent Value
}

func (*ScopeObject) Kind() Kind { return KindScope }
func (o *ScopeObject) trace(visit func(Value)) {
	o.Vars.trace(visit)
	visit(o.Parent)
}

// NewScope allocates a scope chained to parent (None for a root scope).
func (vm *VM) NewScope(parent Value) Value {
	return vm.heap.Alloc(&ScopeObject{Vars: NewAttrTable(), Parent: parent})
}

// scope resolves a scope handle. A stale handle is an interpreter bug.
func (vm *VM) scope(v Value) *ScopeObject {
	s, ok := as[*ScopeObject](vm, v)
	if !ok {
		panic("vm: stale scope handle")
	}
	return s
}

// LookupName resolves name through the chain starting at scope.
func (vm *VM) LookupName(scope Value, name string) (Value, bool) {
	for scope != None {
		s := vm.scope(scope)
		if v, ok := s.Vars.Get(name); ok {
			return v, true
		}
		scope = s.Parent
	}
	return None, false
}

// StoreName binds name in scope itself.
func (vm *VM) StoreName(scope Value, name string, v Value) {
	vm.scope(scope).Vars.Set(name, v)
}

// deleteName unbinds name in scope itself.
func (vm *VM) deleteName(scope Value, name string) error {
	if !vm.scope(scope).Vars.Delete(name) {
		return vm.Errorf(vm.NameErrorType, "name '%s' is not defined", name)
	}
	return nil
}

// ScopeNames returns the names bound in scope itself, in binding order.
func (vm *VM) ScopeNames(scope Value) []string {
	return vm.scope(scope).Vars.Names()
}
