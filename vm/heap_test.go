package vm

import (
	"testing"

	"github.com/chazu/serpent/pkg/bytecode"
)

func TestHeapAllocGet(t *testing.T) {
	h := NewHeap()
	v := h.Alloc(&StringObject{S: "hello"})
	s, ok := h.Get(v).(*StringObject)
	if !ok || s.S != "hello" {
		t.Fatalf("Get returned %#v", h.Get(v))
	}
	if h.Live() != 1 {
		t.Errorf("Live() = %d, want 1", h.Live())
	}
	if h.Get(FromSmallInt(3)) != nil {
		t.Error("Get of a non-object should be nil")
	}
}

func TestHeapCollectFreesUnreachable(t *testing.T) {
	h := NewHeap()
	kept := h.Alloc(&StringObject{S: "kept"})
	dropped := h.Alloc(&StringObject{S: "dropped"})
	list := h.Alloc(&ListObject{Items: []Value{kept}})

	freed := h.Collect([]Value{list})
	if freed != 1 {
		t.Errorf("freed = %d, want 1", freed)
	}
	if h.Get(kept) == nil {
		t.Error("object reachable through a list was freed")
	}
	if h.Get(dropped) != nil {
		t.Error("unreachable object survived")
	}
	if h.Live() != 2 {
		t.Errorf("Live() = %d, want 2", h.Live())
	}
}

func TestHeapStaleHandleAfterReuse(t *testing.T) {
	h := NewHeap()
	old := h.Alloc(&StringObject{S: "old"})
	h.Collect(nil)

	fresh := h.Alloc(&StringObject{S: "fresh"})
	if h.Get(old) != nil {
		t.Error("stale handle resolved to the slot's new occupant")
	}
	if s, ok := h.Get(fresh).(*StringObject); !ok || s.S != "fresh" {
		t.Error("fresh handle does not resolve")
	}
	oi, og := old.handle()
	fi, fg := fresh.handle()
	if oi != fi {
		t.Fatalf("expected slot reuse, got %d and %d", oi, fi)
	}
	if og == fg {
		t.Error("generation was not bumped on reuse")
	}
}

func TestHeapCollectsCycles(t *testing.T) {
	h := NewHeap()
	a := &ListObject{}
	b := &ListObject{}
	av := h.Alloc(a)
	bv := h.Alloc(b)
	a.Items = []Value{bv}
	b.Items = []Value{av}

	if freed := h.Collect(nil); freed != 2 {
		t.Errorf("freed = %d, want 2", freed)
	}
	if h.Live() != 0 {
		t.Errorf("Live() = %d, want 0", h.Live())
	}
}

func TestVMCollectKeepsModuleState(t *testing.T) {
	vm, out := newTestVM(t)
	scope := vm.NewModuleScope()
	defer vm.Unpin(scope)

	src := "class A:\n    pass\nitems = [A(), A()]\n"
	if _, err := vm.RunStringInScope(src, bytecode.ModeExec, "<test>", scope); err != nil {
		t.Fatal(vm.FormatException(err))
	}
	for i := 0; i < 50; i++ {
		vm.NewString("garbage")
	}
	vm.Collect()

	if _, err := vm.RunStringInScope("print(len(items), type(items[0]).__name__)\n", bytecode.ModeExec, "<test>", scope); err != nil {
		t.Fatal(vm.FormatException(err))
	}
	if out.String() != "2 A\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestVMCollectDuringLoop(t *testing.T) {
	vm, out := newTestVM(t)
	vm.SetGCThreshold(64)
	src := `
keep = []
i = 0
while i < 500:
    s = str(i)
    if i % 100 == 0:
        keep.append(s)
    i += 1
print(keep)
`
	if _, err := vm.RunString(src, bytecode.ModeExec, "<test>"); err != nil {
		t.Fatal(vm.FormatException(err))
	}
	if got, want := out.String(), "['0', '100', '200', '300', '400']\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}
