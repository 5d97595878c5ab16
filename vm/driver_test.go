package vm

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/chazu/serpent/compiler"
	"github.com/chazu/serpent/pkg/bytecode"
)

func TestSingleModeEchoesExpressions(t *testing.T) {
	vm, out := newTestVM(t)
	scope := vm.NewModuleScope()
	defer vm.Unpin(scope)

	lines := []string{
		"x = (1, 2, 3)\n",
		"x[1:]\n",
		"None\n",
		"'text'\n",
		"print('side effect')\n",
		"_\n",
	}
	for _, line := range lines {
		if _, err := vm.RunStringInScope(line, bytecode.ModeSingle, "<stdin>", scope); err != nil {
			t.Fatalf("%q: %s", line, vm.FormatException(err))
		}
	}
	want := "(2, 3)\n'text'\nside effect\n'text'\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

func TestExecModeDoesNotEcho(t *testing.T) {
	expectOutput(t, "1 + 1\n'quiet'\n", "")
}

func TestEvalModeReturnsValue(t *testing.T) {
	vm, _ := newTestVM(t)
	scope := vm.NewModuleScope()
	defer vm.Unpin(scope)
	if _, err := vm.RunStringInScope("base = 40\n", bytecode.ModeExec, "<test>", scope); err != nil {
		t.Fatal(err)
	}
	v, err := vm.RunStringInScope("base + 2", bytecode.ModeEval, "<test>", scope)
	if err != nil {
		t.Fatal(vm.FormatException(err))
	}
	if !v.IsSmallInt() || v.SmallInt() != 42 {
		t.Errorf("result = %v", v)
	}

	v, err = vm.RunStringInScope("'a' * 3", bytecode.ModeEval, "<test>", scope)
	if err != nil {
		t.Fatal(err)
	}
	if s, ok := vm.StringOf(v); !ok || s != "aaa" {
		t.Errorf("result = %q", s)
	}
}

func TestScopePersistsAcrossRuns(t *testing.T) {
	vm, out := newTestVM(t)
	scope := vm.NewModuleScope()
	defer vm.Unpin(scope)
	for _, src := range []string{"def f():\n    return 'kept'\n", "items = [f()]\n", "print(items, f.__name__)\n"} {
		if _, err := vm.RunStringInScope(src, bytecode.ModeExec, "<test>", scope); err != nil {
			t.Fatal(vm.FormatException(err))
		}
	}
	if out.String() != "['kept'] f\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestRuntimeErrorLeavesScopeUsable(t *testing.T) {
	vm, out := newTestVM(t)
	scope := vm.NewModuleScope()
	defer vm.Unpin(scope)
	if _, err := vm.RunStringInScope("a = 1\nb = a / 0\n", bytecode.ModeExec, "<test>", scope); err == nil {
		t.Fatal("expected ZeroDivisionError")
	}
	if _, err := vm.RunStringInScope("print(a)\n", bytecode.ModeExec, "<test>", scope); err != nil {
		t.Fatal(vm.FormatException(err))
	}
	if out.String() != "1\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestCompileErrorIsException(t *testing.T) {
	vm, _ := newTestVM(t)
	_, err := vm.RunString("x = = 1\n", bytecode.ModeExec, "prog.py")
	var exc *ExceptionObject
	if !errors.As(err, &exc) {
		t.Fatalf("expected exception, got %v", err)
	}
	if exc.TypeName() != "CompileError" || exc.Message() != "invalid syntax" {
		t.Errorf("got %s", exc.Error())
	}
	line, _ := exc.Attrs.Get("lineno")
	if !line.IsSmallInt() || line.SmallInt() != 1 {
		t.Errorf("lineno = %v", line)
	}
	report := vm.FormatException(err)
	if !strings.Contains(report, `File "prog.py", line 1`) || !strings.HasSuffix(report, "CompileError: invalid syntax\n") {
		t.Errorf("report:\n%s", report)
	}
}

func TestIncompleteInputMessage(t *testing.T) {
	vm, _ := newTestVM(t)
	_, err := vm.Compile("if True:\n", bytecode.ModeSingle, "<stdin>")
	var exc *ExceptionObject
	if !errors.As(err, &exc) {
		t.Fatalf("expected exception, got %v", err)
	}
	if exc.Message() != compiler.MsgUnexpectedEOF {
		t.Errorf("message = %q, want %q", exc.Message(), compiler.MsgUnexpectedEOF)
	}
}

func TestCompileWithoutFrontEnd(t *testing.T) {
	vm := NewVM()
	if _, err := vm.RunString("1\n", bytecode.ModeExec, ""); !vm.errorIs(err, vm.RuntimeErrorType) {
		t.Errorf("expected RuntimeError, got %v", err)
	}
}

func TestPromptFollowsSys(t *testing.T) {
	vm, _ := newTestVM(t)
	if vm.Prompt(false) != DefaultPS1 || vm.Prompt(true) != DefaultPS2 {
		t.Fatal("default prompts")
	}
	if _, err := vm.RunString("import sys\nsys.ps1 = 'py> '\nsys.ps2 = 42\n", bytecode.ModeExec, ""); err != nil {
		t.Fatal(vm.FormatException(err))
	}
	if got := vm.Prompt(false); got != "py> " {
		t.Errorf("ps1 = %q", got)
	}
	if got := vm.Prompt(true); got != "42" {
		t.Errorf("ps2 = %q", got)
	}
}

func TestArgvAndSearchPath(t *testing.T) {
	vm, out := newTestVM(t)
	vm.SetArgv([]string{"script.py", "--flag"})
	vm.AddSearchPath("/opt/lib")
	if _, err := vm.RunString("import sys\nprint(sys.argv, sys.path)\n", bytecode.ModeExec, ""); err != nil {
		t.Fatal(vm.FormatException(err))
	}
	if out.String() != "['script.py', '--flag'] ['/opt/lib']\n" {
		t.Errorf("output = %q", out.String())
	}
	if got := vm.SearchPath(); len(got) != 1 || got[0] != "/opt/lib" {
		t.Errorf("SearchPath() = %v", got)
	}
}

func TestCollectAfterRunFreesGarbage(t *testing.T) {
	vm, _ := newTestVM(t)
	if _, err := vm.RunString("x = 0\nwhile x < 10:\n    junk = [x, str(x)]\n    x += 1\n", bytecode.ModeExec, ""); err != nil {
		t.Fatal(vm.FormatException(err))
	}
	before := vm.HeapLive()
	for i := 0; i < 100; i++ {
		vm.NewList([]Value{vm.NewString("garbage")})
	}
	vm.Collect()
	if after := vm.HeapLive(); after > before {
		t.Errorf("live objects grew from %d to %d after collection", before, after)
	}
}

func TestPinnedValueSurvivesCollection(t *testing.T) {
	vm, _ := newTestVM(t)
	s := vm.NewString("pinned")
	vm.Pin(s)
	vm.Collect()
	if got, ok := vm.StringOf(s); !ok || got != "pinned" {
		t.Fatal("pinned string was collected")
	}
	vm.Unpin(s)
	vm.Collect()
	if _, ok := vm.StringOf(s); ok {
		t.Error("unpinned string survived collection")
	}
}

func TestFinishedCodeReleasesConstants(t *testing.T) {
	vm, _ := newTestVM(t)
	if _, err := vm.RunString("pass\n", bytecode.ModeExec, ""); err != nil {
		t.Fatal(vm.FormatException(err))
	}
	vm.Collect()
	before := vm.HeapLive()
	for i := 0; i < 50; i++ {
		src := fmt.Sprintf("s = 'constant %d'\n", i)
		if _, err := vm.RunString(src, bytecode.ModeExec, ""); err != nil {
			t.Fatal(vm.FormatException(err))
		}
	}
	vm.Collect()
	if after := vm.HeapLive(); after > before {
		t.Errorf("live objects grew from %d to %d", before, after)
	}
}

func TestFunctionKeepsConstantsAcrossCollections(t *testing.T) {
	vm, _ := newTestVM(t)
	scope := vm.NewModuleScope()
	defer vm.Unpin(scope)
	src := "def greet():\n    return 'hello ' + 'there'\n"
	if _, err := vm.RunStringInScope(src, bytecode.ModeExec, "", scope); err != nil {
		t.Fatal(vm.FormatException(err))
	}
	for i := 0; i < 3; i++ {
		vm.Collect()
		for j := 0; j < 20; j++ {
			vm.NewString("churn")
		}
		got, err := vm.RunStringInScope("greet()", bytecode.ModeEval, "", scope)
		if err != nil {
			t.Fatal(vm.FormatException(err))
		}
		if s, ok := vm.StringOf(got); !ok || s != "hello there" {
			t.Fatalf("greet() = %v", got)
		}
	}
}
