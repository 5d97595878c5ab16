package compiler

import (
	"errors"
	"testing"

	"github.com/chazu/serpent/pkg/bytecode"
)

func mustParse(t *testing.T, src string) *Module {
	t.Helper()
	mod, err := Parse(src, "test.py")
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	return mod
}

func TestParseAssignments(t *testing.T) {
	mod := mustParse(t, "a = b = 1\nx, y = y, x\nn += 2\n")
	if len(mod.Body) != 3 {
		t.Fatalf("got %d statements", len(mod.Body))
	}

	a, ok := mod.Body[0].(*Assign)
	if !ok || len(a.Targets) != 2 {
		t.Fatalf("stmt 0 = %#v", mod.Body[0])
	}

	swap := mod.Body[1].(*Assign)
	if _, ok := swap.Targets[0].(*TupleExpr); !ok {
		t.Errorf("swap target = %T, want *TupleExpr", swap.Targets[0])
	}
	if _, ok := swap.Value.(*TupleExpr); !ok {
		t.Errorf("swap value = %T, want *TupleExpr", swap.Value)
	}

	aug := mod.Body[2].(*AugAssign)
	if aug.Op != bytecode.BinaryAdd {
		t.Errorf("aug op = %v", aug.Op)
	}
}

func TestParseTupleForms(t *testing.T) {
	tests := []struct {
		src  string
		size int
	}{
		{"()", 0},
		{"(1,)", 1},
		{"(1, 2)", 2},
		{"1, 2, 3", 3},
		{"1,", 1},
	}
	for _, tt := range tests {
		mod := mustParse(t, tt.src+"\n")
		tup, ok := mod.Body[0].(*ExprStmt).Expr.(*TupleExpr)
		if !ok {
			t.Errorf("%q: got %T", tt.src, mod.Body[0].(*ExprStmt).Expr)
			continue
		}
		if len(tup.Elements) != tt.size {
			t.Errorf("%q: %d elements, want %d", tt.src, len(tup.Elements), tt.size)
		}
	}

	mod := mustParse(t, "(1)\n")
	if _, ok := mod.Body[0].(*ExprStmt).Expr.(*IntLiteral); !ok {
		t.Error("(1) should be a plain int")
	}
}

func TestParseSlices(t *testing.T) {
	mod := mustParse(t, "s[:]\ns[::2]\ns[1:3]\ns[-1]\n")

	full := mod.Body[0].(*ExprStmt).Expr.(*Subscript).Index.(*SliceExpr)
	if full.Lower != nil || full.Upper != nil || full.HasStep {
		t.Errorf("s[:] = %+v", full)
	}
	step := mod.Body[1].(*ExprStmt).Expr.(*Subscript).Index.(*SliceExpr)
	if !step.HasStep || step.Step == nil {
		t.Errorf("s[::2] = %+v", step)
	}
	rng := mod.Body[2].(*ExprStmt).Expr.(*Subscript).Index.(*SliceExpr)
	if rng.Lower == nil || rng.Upper == nil || rng.HasStep {
		t.Errorf("s[1:3] = %+v", rng)
	}
	idx := mod.Body[3].(*ExprStmt).Expr.(*Subscript).Index.(*IntLiteral)
	if idx.Value != -1 {
		t.Errorf("s[-1] index = %d", idx.Value)
	}
}

func TestParsePrecedence(t *testing.T) {
	mod := mustParse(t, "1 + 2 * 3 ** 2 < 4 and not x or y\n")
	or, ok := mod.Body[0].(*ExprStmt).Expr.(*BoolOp)
	if !ok || or.And {
		t.Fatalf("top = %T", mod.Body[0].(*ExprStmt).Expr)
	}
	and := or.Values[0].(*BoolOp)
	cmp := and.Values[0].(*Compare)
	sum := cmp.Left.(*BinOp)
	if sum.Op != bytecode.BinaryAdd {
		t.Errorf("sum op = %v", sum.Op)
	}
	prod := sum.Right.(*BinOp)
	if prod.Op != bytecode.BinaryMul || prod.Right.(*BinOp).Op != bytecode.BinaryPow {
		t.Errorf("product = %+v", prod)
	}
	if not, ok := and.Values[1].(*UnaryOp); !ok || not.Op != TokenNot {
		t.Errorf("not = %#v", and.Values[1])
	}
}

func TestParseCompareOperators(t *testing.T) {
	mod := mustParse(t, "a is not b\na not in b\na < b < c\n")
	if op := mod.Body[0].(*ExprStmt).Expr.(*Compare).Ops[0]; op != bytecode.CompareIsNot {
		t.Errorf("is not = %v", op)
	}
	if op := mod.Body[1].(*ExprStmt).Expr.(*Compare).Ops[0]; op != bytecode.CompareNotIn {
		t.Errorf("not in = %v", op)
	}
	if n := len(mod.Body[2].(*ExprStmt).Expr.(*Compare).Ops); n != 2 {
		t.Errorf("chain has %d ops", n)
	}
}

func TestParseCompound(t *testing.T) {
	src := `
class A(B, C):
    def m(self, x, y=2):
        return x
try:
    pass
except KeyError as e:
    pass
except:
    raise
else:
    pass
finally:
    pass
for i in range(3):
    if i: continue
    elif i > 1:
        break
    else:
        pass
else:
    pass
`
	mod := mustParse(t, src)
	if len(mod.Body) != 3 {
		t.Fatalf("got %d statements", len(mod.Body))
	}

	cls := mod.Body[0].(*ClassDef)
	if cls.Name != "A" || len(cls.Bases) != 2 {
		t.Errorf("class = %+v", cls)
	}
	fn := cls.Body[0].(*FuncDef)
	if len(fn.Params) != 3 || fn.Params[2].Default == nil {
		t.Errorf("params = %+v", fn.Params)
	}

	try := mod.Body[1].(*Try)
	if len(try.Handlers) != 2 || try.Handlers[0].Name != "e" || try.Handlers[1].Type != nil {
		t.Errorf("handlers = %+v", try.Handlers)
	}
	if try.OrElse == nil || try.Finally == nil {
		t.Error("missing else/finally")
	}

	loop := mod.Body[2].(*For)
	if loop.OrElse == nil {
		t.Error("for-else missing")
	}
	if _, ok := loop.Body[0].(*If).OrElse[0].(*If); !ok {
		t.Error("elif should nest an If")
	}
}

func TestParseImports(t *testing.T) {
	mod := mustParse(t, "import a, b as c\nfrom m import (x, y as z,)\n")
	imp := mod.Body[0].(*Import)
	if len(imp.Names) != 2 || imp.Names[1].AsName != "c" {
		t.Errorf("import = %+v", imp)
	}
	from := mod.Body[1].(*ImportFrom)
	if from.Module != "m" || len(from.Names) != 2 || from.Names[1].AsName != "z" {
		t.Errorf("from = %+v", from)
	}
}

func TestParseCallKeywords(t *testing.T) {
	mod := mustParse(t, "f(1, 2, key=3)\n")
	call := mod.Body[0].(*ExprStmt).Expr.(*Call)
	if len(call.Args) != 2 || len(call.Keywords) != 1 || call.Keywords[0].Name != "key" {
		t.Errorf("call = %+v", call)
	}
}

func TestParseIncompleteInput(t *testing.T) {
	for _, src := range []string{
		"(",
		"(\n",
		"if True:\n",
		"def f(a,\n",
		"x = [1, 2,\n",
		"'''doc",
		"try:\n    pass\n",
		"class A:\n",
	} {
		_, err := Parse(src, "")
		var cerr *Error
		if !errors.As(err, &cerr) {
			t.Errorf("%q: err = %v, want *Error", src, err)
			continue
		}
		if !cerr.Incomplete || cerr.Msg != MsgUnexpectedEOF {
			t.Errorf("%q: got %q (incomplete=%v), want %q", src, cerr.Msg, cerr.Incomplete, MsgUnexpectedEOF)
		}
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		src  string
		msg  string
		line int
	}{
		{"x = = 1\n", "invalid syntax", 1},
		{"1 = x\n", "can't assign to literal", 1},
		{"f() = 1\n", "can't assign to function call", 1},
		{"a\n  b\n", "unexpected indent", 2},
		{"def f(a=1, b):\n  pass\n", "non-default argument follows default argument", 1},
		{"x = 'abc\n", "EOL while scanning string literal", 1},
		{"f(a=1, 2)\n", "positional argument follows keyword argument", 1},
	}
	for _, tt := range tests {
		_, err := Parse(tt.src, "t.py")
		var cerr *Error
		if !errors.As(err, &cerr) {
			t.Errorf("%q: err = %v", tt.src, err)
			continue
		}
		if cerr.Incomplete {
			t.Errorf("%q: should not be incomplete", tt.src)
		}
		if cerr.Msg != tt.msg || cerr.Line != tt.line {
			t.Errorf("%q: got %q at line %d, want %q at line %d", tt.src, cerr.Msg, cerr.Line, tt.msg, tt.line)
		}
	}
}
