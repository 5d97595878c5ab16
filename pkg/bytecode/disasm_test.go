package bytecode

import (
	"strings"
	"testing"
)

func sampleCode() *CodeObject {
	c := NewCodeObject("<module>", "sample.py", KindModule)
	fn := NewCodeObject("f", "sample.py", KindFunction)
	fn.Params = []string{"a", "b"}
	fn.EmitU16(OpLoadName, fn.AddName("a"))
	fn.Emit(OpReturn)

	c.AddSourceLocation(0, 1, 1)
	c.EmitU16(OpLoadConst, c.AddConstant(Constant{Kind: ConstCode, Code: fn}))
	c.EmitU16(OpMakeFunction, 0)
	c.EmitU16(OpStoreName, c.AddName("f"))
	c.AddSourceLocation(uint32(c.CurrentOffset()), 2, 1)
	c.EmitU16(OpLoadConst, c.AddConstant(Constant{Kind: ConstInt, Int: 42}))
	j := c.EmitJump(OpJumpIfFalse)
	c.PatchJump(j)
	c.EmitU8(OpCompare, byte(CompareIn))
	c.Emit(OpLoadNone)
	c.Emit(OpReturn)
	c.AddHandler(HandlerRange{Start: 0, End: 3, Target: 9, Depth: 0, Bind: "e"})
	return c
}

func TestDisassemble(t *testing.T) {
	out := sampleCode().Disassemble()

	for _, want := range []string{
		"; === <module> (sample.py) ===",
		"; Parameters (2): a, b",
		"LOAD_CONST 1 ; 42",
		"STORE_NAME 0 ; f",
		"COMPARE in",
		"; line 2:1",
		"0000-0003 -> 0009 depth=0 as e",
		"; === f (sample.py) ===",
		"LOAD_NAME 0 ; a",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("disassembly missing %q:\n%s", want, out)
		}
	}
}

func TestDisassembleToLines(t *testing.T) {
	lines := sampleCode().DisassembleToLines()
	if len(lines) != 8 {
		t.Fatalf("got %d lines, want 8: %v", len(lines), lines)
	}
	if !strings.HasPrefix(lines[0], "0000  LOAD_CONST") {
		t.Errorf("lines[0] = %q", lines[0])
	}
	if !strings.Contains(lines[4], "JUMP_IF_FALSE -> 000F") {
		t.Errorf("lines[4] = %q", lines[4])
	}
}
