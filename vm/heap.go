package vm

// ---------------------------------------------------------------------------
// Heap: arena storage for every object value
// ---------------------------------------------------------------------------

// Kind identifies the variant of a heap object.
type Kind uint8

const (
	KindString Kind = iota
	KindTuple
	KindList
	KindDict
	KindSlice
	KindFunction
	KindNative
	KindType
	KindModule
	KindException
	KindInstance
	KindBoundMethod
	KindScope
	KindIterator
	KindRange
	KindCode
	KindBytes
)

var kindNames = [...]string{
	"str", "tuple", "list", "dict", "slice", "function", "builtin_function_or_method",
	"type", "module", "exception", "instance", "method", "scope", "iterator", "range", "code", "bytes",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Object is implemented by everything stored in the Heap. trace reports
// every Value the object references so the collector can follow it.
type Object interface {
	Kind() Kind
	trace(visit func(Value))
}

type heapSlot struct {
	obj    Object
	gen    uint16
	marked bool
}

// Heap is an arena of objects addressed by generational handles. Freed
// slots are reused with a bumped generation, so a stale handle resolves
// to nothing instead of aliasing the new occupant.
type Heap struct {
	slots  []heapSlot
	free   []uint32
	live   int
	allocs int // allocations since the last collection
}

// NewHeap creates an empty heap.
func NewHeap() *Heap {
	return &Heap{}
}

// Alloc stores o and returns its handle.
func (h *Heap) Alloc(o Object) Value {
	h.live++
	h.allocs++
	if n := len(h.free); n > 0 {
		idx := h.free[n-1]
		h.free = h.free[:n-1]
		s := &h.slots[idx]
		s.obj = o
		return fromHandle(idx, s.gen)
	}
	idx := uint32(len(h.slots))
	h.slots = append(h.slots, heapSlot{obj: o, gen: 1})
	return fromHandle(idx, 1)
}

// Get resolves a handle. It returns nil for non-object values and for
// handles whose slot has been freed or reused.
func (h *Heap) Get(v Value) Object {
	if !v.IsObject() {
		return nil
	}
	idx, gen := v.handle()
	if int(idx) >= len(h.slots) {
		return nil
	}
	s := &h.slots[idx]
	if s.obj == nil || s.gen != gen {
		return nil
	}
	return s.obj
}

// Live returns the number of allocated objects.
func (h *Heap) Live() int {
	return h.live
}

// Collect marks everything reachable from roots and frees the rest. It
// returns the number of objects freed.
func (h *Heap) Collect(roots []Value) int {
	var work []Value
	visit := func(v Value) {
		if !v.IsObject() {
			return
		}
		idx, gen := v.handle()
		if int(idx) >= len(h.slots) {
			return
		}
		s := &h.slots[idx]
		if s.obj == nil || s.gen != gen || s.marked {
			return
		}
		s.marked = true
		work = append(work, v)
	}

	for _, r := range roots {
		visit(r)
	}
	for len(work) > 0 {
		v := work[len(work)-1]
		work = work[:len(work)-1]
		idx, _ := v.handle()
		h.slots[idx].obj.trace(visit)
	}

	freed := 0
	for i := range h.slots {
		s := &h.slots[i]
		if s.obj == nil {
			continue
		}
		if s.marked {
			s.marked = false
			continue
		}
		s.obj = nil
		s.gen++
		if s.gen == 0 {
			s.gen = 1
		}
		h.free = append(h.free, uint32(i))
		freed++
	}
	h.live -= freed
	h.allocs = 0
	return freed
}
