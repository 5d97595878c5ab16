package vm

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/chazu/serpent/pkg/bytecode"
)

func writeModule(t *testing.T, dir, name, source string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name+".py"), []byte(source), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestImportFromSearchPath(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "geometry", `
print('loading geometry')
PI = 3
def area(r):
    return PI * r * r
`)
	vm, out := newTestVM(t)
	vm.UseImporter(NewFileImporter())
	vm.AddSearchPath(dir)

	_, err := vm.RunString(`
import geometry
import geometry as g
from geometry import area, PI
print(geometry.area(2), g is geometry, area(1), PI, geometry.__name__)
`, bytecode.ModeExec, "<test>")
	if err != nil {
		t.Fatal(vm.FormatException(err))
	}
	want := "loading geometry\n12 True 3 3 geometry\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
	if _, ok := vm.Module("geometry"); !ok {
		t.Error("module not cached")
	}
}

func TestImporterExtraPaths(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "helpers", "def twice(x):\n    return x * 2\n")
	vm, out := newTestVM(t)
	vm.UseImporter(NewFileImporter(dir))
	if _, err := vm.RunString("import helpers\nprint(helpers.twice(21))\n", bytecode.ModeExec, "<test>"); err != nil {
		t.Fatal(vm.FormatException(err))
	}
	if out.String() != "42\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestImportMissingModule(t *testing.T) {
	vm, _ := newTestVM(t)
	vm.UseImporter(NewFileImporter(t.TempDir()))
	_, err := vm.RunString("import nowhere\n", bytecode.ModeExec, "<test>")
	if !vm.errorIs(err, vm.ImportErrorType) {
		t.Fatalf("expected ImportError, got %v", err)
	}
	if got := err.Error(); got != "ImportError: No module named 'nowhere'" {
		t.Errorf("message = %q", got)
	}

	expectError(t, "import nowhere\n", "ImportError", "No module named 'nowhere'")
}

func TestImportMissingName(t *testing.T) {
	expectError(t, "from sys import nothing_here\n", "ImportError", "cannot import name 'nothing_here' from 'sys'")
}

func TestFailedImportIsNotCached(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "broken", "x = 1\nraise ValueError('bad module')\n")
	vm, _ := newTestVM(t)
	vm.UseImporter(NewFileImporter(dir))

	for i := 0; i < 2; i++ {
		_, err := vm.RunString("import broken\n", bytecode.ModeExec, "<test>")
		if !vm.errorIs(err, vm.ValueErrorType) {
			t.Fatalf("attempt %d: expected ValueError, got %v", i, err)
		}
	}
	if _, ok := vm.Module("broken"); ok {
		t.Error("failed module left in the module table")
	}
}

func TestImportCompileError(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "syntax", "def f(:\n")
	vm, _ := newTestVM(t)
	vm.UseImporter(NewFileImporter(dir))
	_, err := vm.RunString("import syntax\n", bytecode.ModeExec, "<test>")
	var exc *ExceptionObject
	if !errors.As(err, &exc) || exc.TypeName() != "CompileError" {
		t.Fatalf("expected CompileError, got %v", err)
	}
	file, _ := exc.Attrs.Get("filename")
	if s, _ := vm.StringOf(file); s != filepath.Join(dir, "syntax.py") {
		t.Errorf("filename = %q", s)
	}
}

func TestRunModule(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "app", "print('running as', __name__)\n")
	vm, out := newTestVM(t)
	vm.UseImporter(NewFileImporter(dir))
	if _, err := vm.RunModule("app"); err != nil {
		t.Fatal(vm.FormatException(err))
	}
	if out.String() != "running as __main__\n" {
		t.Errorf("output = %q", out.String())
	}
	if _, err := vm.RunModule("absent"); !vm.errorIs(err, vm.ImportErrorType) {
		t.Errorf("expected ImportError, got %v", err)
	}
}

func TestBuiltinModules(t *testing.T) {
	expectOutput(t, `
import sys
import types
print(sys.ps1, sys.ps2, sys.getrecursionlimit(), type(sys).__name__)
def f():
    pass
print(isinstance(f, types.FunctionType), isinstance(len, types.BuiltinFunctionType), isinstance(None, types.NoneType))
`, ">>>>>  .....  1000 module\nTrue True True\n")
}

type mapImporter map[string]string

func (m mapImporter) Find(_ *VM, name string) (string, string, error) {
	src, ok := m[name]
	if !ok {
		return "", "", ErrModuleNotFound
	}
	return "<" + name + ">", src, nil
}

func TestCustomImporterAndCircularImport(t *testing.T) {
	vm, out := newTestVM(t)
	vm.UseImporter(mapImporter{
		"a": "import b\nvalue = 'a'\n",
		"b": "import a\nvalue = 'b'\n",
	})
	if _, err := vm.RunString("import a\nimport b\nprint(a.value, b.value)\n", bytecode.ModeExec, "<test>"); err != nil {
		t.Fatal(vm.FormatException(err))
	}
	if out.String() != "a b\n" {
		t.Errorf("output = %q", out.String())
	}
}
