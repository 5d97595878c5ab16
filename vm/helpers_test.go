package vm

import (
	"bytes"
	"errors"
	"testing"

	"github.com/chazu/serpent/compiler"
	"github.com/chazu/serpent/pkg/bytecode"
)

func newTestVM(t *testing.T) (*VM, *bytes.Buffer) {
	t.Helper()
	vm := NewVM()
	vm.UseCompiler(compiler.Compile)
	out := &bytes.Buffer{}
	vm.Stdout = out
	return vm, out
}

// runSource executes src as a script and returns what it printed.
func runSource(t *testing.T, src string) string {
	t.Helper()
	vm, out := newTestVM(t)
	if _, err := vm.RunString(src, bytecode.ModeExec, "<test>"); err != nil {
		t.Fatalf("unexpected error: %s\nsource:\n%s", vm.FormatException(err), src)
	}
	return out.String()
}

// runError executes src and returns the exception that escaped it.
func runError(t *testing.T, src string) (*VM, *ExceptionObject) {
	t.Helper()
	vm, _ := newTestVM(t)
	_, err := vm.RunString(src, bytecode.ModeExec, "<test>")
	if err == nil {
		t.Fatalf("expected an exception from:\n%s", src)
	}
	var exc *ExceptionObject
	if !errors.As(err, &exc) {
		t.Fatalf("expected *ExceptionObject, got %T: %v", err, err)
	}
	return vm, exc
}

func expectOutput(t *testing.T, src, want string) {
	t.Helper()
	if got := runSource(t, src); got != want {
		t.Errorf("output mismatch\nsource:\n%s\ngot:\n%q\nwant:\n%q", src, got, want)
	}
}

func expectError(t *testing.T, src, wantType, wantMsg string) {
	t.Helper()
	_, exc := runError(t, src)
	if exc.TypeName() != wantType {
		t.Errorf("exception type = %s, want %s (message %q)", exc.TypeName(), wantType, exc.Message())
	}
	if wantMsg != "" && exc.Message() != wantMsg {
		t.Errorf("exception message = %q, want %q", exc.Message(), wantMsg)
	}
}
