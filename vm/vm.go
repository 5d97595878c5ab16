package vm

import (
	"io"
	"os"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("serpent.vm")

// DefaultGCThreshold is the number of allocations between collections.
const DefaultGCThreshold = 1 << 16

// VM is a serpent interpreter instance. It is not safe for concurrent use.
type VM struct {
	heap *Heap

	// Builtins is the root scope every module scope chains to.
	Builtins Value

	// Stdout receives print() output and auto-printed results.
	Stdout io.Writer

	// RecursionLimit bounds the frame stack.
	RecursionLimit int

	compile  CompileFunc
	importer Importer
	modules  map[string]Value
	sysPath  Value // list of search directories, shared with sys.path

	frames      []*Frame
	nativeDepth int
	pinned      map[Value]int
	reprActive  map[Value]bool
	gcThreshold int

	// Core types
	ObjectType          Value
	TypeType            Value
	IntType             Value
	BoolType            Value
	FloatType           Value
	StrType             Value
	BytesType           Value
	TupleType           Value
	ListType            Value
	DictType            Value
	SliceType           Value
	RangeType           Value
	NoneType            Value
	NotImplementedType  Value
	FunctionType        Value
	BuiltinFunctionType Value
	MethodType          Value
	ModuleType          Value
	CodeType            Value
	IteratorType        Value

	// Exception types
	BaseExceptionType        Value
	ExceptionType            Value
	CompileErrorType         Value
	AttributeErrorType       Value
	TypeErrorType            Value
	LookupErrorType          Value
	IndexErrorType           Value
	KeyErrorType             Value
	NameErrorType            Value
	ValueErrorType           Value
	ArithmeticErrorType      Value
	ZeroDivisionErrorType    Value
	OverflowErrorType        Value
	AssertionErrorType       Value
	ImportErrorType          Value
	UnsupportedOperationType Value
	RuntimeErrorType         Value
	RecursionErrorType       Value
	StopIterationType        Value
	OSErrorType              Value
}

// NewVM creates an interpreter with the built-in types, the builtin scope
// and the built-in modules installed. A compiler must be attached with
// UseCompiler before source text can be run.
func NewVM() *VM {
	vm := &VM{
		heap:           NewHeap(),
		Stdout:         os.Stdout,
		RecursionLimit: DefaultRecursionLimit,
		modules:        make(map[string]Value),
		pinned:         make(map[Value]int),
		reprActive:     make(map[Value]bool),
		gcThreshold:    DefaultGCThreshold,
	}

	vm.bootstrapTypes()
	vm.bootstrapExceptionTypes()
	vm.registerObjectPrimitives()
	vm.registerNumberPrimitives()
	vm.registerStringPrimitives()
	vm.registerBytesPrimitives()
	vm.registerTuplePrimitives()
	vm.registerListPrimitives()
	vm.registerDictPrimitives()
	vm.registerRangePrimitives()
	vm.registerIteratorPrimitives()
	vm.registerSlicePrimitives()

	vm.Builtins = vm.NewScope(None)
	vm.installBuiltins()

	vm.sysPath = vm.NewList(nil)
	vm.registerModule(vm.newSysModule())
	vm.registerModule(vm.newTypesModule())

	log.Debugf("vm ready: %d heap objects", vm.heap.Live())
	return vm
}

// Pin keeps v and everything it references alive across collections
// until a matching Unpin.
func (vm *VM) Pin(v Value) {
	if v.IsObject() {
		vm.pinned[v]++
	}
}

// Unpin releases one Pin of v.
func (vm *VM) Unpin(v Value) {
	if n := vm.pinned[v]; n > 1 {
		vm.pinned[v] = n - 1
	} else {
		delete(vm.pinned, v)
	}
}

// HeapLive returns the number of live heap objects.
func (vm *VM) HeapLive() int {
	return vm.heap.Live()
}

// SetGCThreshold sets the number of allocations between collections.
func (vm *VM) SetGCThreshold(n int) {
	vm.gcThreshold = max(n, 1)
}

// roots lists every value the collector must keep: the builtin scope,
// imported modules, the frame stack and pinned values.
// extra values are kept as well.
func (vm *VM) roots(extra ...Value) []Value {
	roots := append([]Value{vm.Builtins, vm.sysPath}, extra...)
	for _, m := range vm.modules {
		roots = append(roots, m)
	}
	visit := func(v Value) { roots = append(roots, v) }
	for _, f := range vm.frames {
		f.trace(visit)
	}
	for v := range vm.pinned {
		roots = append(roots, v)
	}
	for v := range vm.reprActive {
		roots = append(roots, v)
	}
	roots = append(roots, vm.coreTypes()...)
	return append(roots, vm.exceptionTypes()...)
}

func (vm *VM) coreTypes() []Value {
	return []Value{
		vm.ObjectType, vm.TypeType, vm.IntType, vm.BoolType, vm.FloatType,
		vm.StrType, vm.TupleType, vm.ListType, vm.DictType, vm.SliceType,
		vm.RangeType, vm.NoneType, vm.NotImplementedType, vm.FunctionType,
		vm.BuiltinFunctionType, vm.MethodType, vm.ModuleType, vm.CodeType,
		vm.IteratorType, vm.BytesType,
	}
}

// collect runs the mark-and-sweep collector. It must only be called at a
// safe point: between instructions with no native call in progress, or
// between top-level runs.
func (vm *VM) collect(extra ...Value) {
	before := vm.heap.Live()
	freed := vm.heap.Collect(vm.roots(extra...))
	log.Debugf("collected %d of %d heap objects", freed, before)
}

// Collect runs the collector now, keeping keep alive in addition to the
// usual roots. It must not be called while code is running.
func (vm *VM) Collect(keep ...Value) int {
	before := vm.heap.Live()
	vm.collect(keep...)
	return before - vm.heap.Live()
}

// identity returns a stable number for v, used by id() and default reprs.
func (vm *VM) identity(v Value) uint64 {
	if v.IsObject() {
		idx, gen := v.handle()
		return uint64(gen)<<32 | uint64(idx)
	}
	return uint64(v)
}
