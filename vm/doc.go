// Package vm is serpent's runtime: the object model, the attribute and
// type resolution protocol, scope chains, the frame interpreter and
// exception propagation.
//
// # Values and the heap
//
// A Value is a NaN-boxed 64-bit word. Floats are stored as themselves,
// small integers and the special constants live in the quiet-NaN space, and
// everything else is a handle into the VM's Heap. Objects reference each
// other only through handles, so cycles (a class in its own MRO, a function
// stored in the scope it closes over) need no special treatment. The heap
// is reclaimed by mark and sweep from explicit roots at safe points.
//
// # Execution
//
// Code objects come from an injected CompileFunc. Python-level calls push
// frames onto the VM's frame stack instead of recursing on the Go stack;
// natives that call back into the interpreter start a nested run bounded to
// their own entry frame. Exceptions are *ExceptionObject values, which are
// also Go errors, and unwind through each frame's handler table.
//
// # Driver
//
// RunString, RunStringInScope and NewModuleScope are the entry points used
// by the command line tool and the language server. FormatException renders
// an escaped exception as a traceback report.
package vm

// Version is the runtime version reported by sys.version and -version.
const Version = "0.1.0"
