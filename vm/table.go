package vm

// AttrTable is an insertion-ordered name to value table. It backs scopes,
// type namespaces and instance attributes.
type AttrTable struct {
	index  map[string]int
	names  []string
	values []Value
}

// NewAttrTable creates an empty table.
func NewAttrTable() *AttrTable {
	return &AttrTable{index: make(map[string]int)}
}

// Get returns the value bound to name.
func (t *AttrTable) Get(name string) (Value, bool) {
	if i, ok := t.index[name]; ok {
		return t.values[i], true
	}
	return None, false
}

// Set binds name, keeping its original position if it already exists.
func (t *AttrTable) Set(name string, v Value) {
	if i, ok := t.index[name]; ok {
		t.values[i] = v
		return
	}
	t.index[name] = len(t.names)
	t.names = append(t.names, name)
	t.values = append(t.values, v)
}

// Delete unbinds name and reports whether it was bound.
func (t *AttrTable) Delete(name string) bool {
	i, ok := t.index[name]
	if !ok {
		return false
	}
	delete(t.index, name)
	t.names = append(t.names[:i], t.names[i+1:]...)
	t.values = append(t.values[:i], t.values[i+1:]...)
	for j := i; j < len(t.names); j++ {
		t.index[t.names[j]] = j
	}
	return true
}

// Len returns the number of bindings.
func (t *AttrTable) Len() int {
	return len(t.names)
}

// Names returns the bound names in insertion order.
func (t *AttrTable) Names() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Each calls fn for every binding in insertion order.
func (t *AttrTable) Each(fn func(name string, v Value)) {
	for i, n := range t.names {
		fn(n, t.values[i])
	}
}

func (t *AttrTable) trace(visit func(Value)) {
	if t == nil {
		return
	}
	for _, v := range t.values {
		visit(v)
	}
}
