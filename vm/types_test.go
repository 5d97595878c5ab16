package vm

import (
	"testing"
)

func TestMROLinearizesBasesInOrder(t *testing.T) {
	expectOutput(t, `
class A:
    pass
class B(A):
    pass
class C(A):
    pass
class D(B, C):
    pass
print(D.__mro__)
`, "(<class 'D'>, <class 'B'>, <class 'A'>, <class 'C'>, <class 'object'>)\n")
}

func TestAttributeResolutionOrder(t *testing.T) {
	expectOutput(t, `
class A:
    x = 1
    y = 1
class B(A):
    y = 2
b = B()
print(b.x, b.y)
b.y = 3
print(b.y, B.y)
del b.y
print(b.y)
`, "1 2\n3 2\n2\n")
}

func TestMissingAttributeNamesType(t *testing.T) {
	expectError(t, `
class Point:
    pass
Point().z
`, "AttributeError", "'Point' object has no attribute 'z'")
	expectError(t, "(1).real\n", "AttributeError", "'int' object has no attribute 'real'")
}

func TestIsInstanceFollowsMRO(t *testing.T) {
	expectOutput(t, `
class A:
    pass
class B(A):
    pass
print(isinstance(B(), A), isinstance(A(), B), isinstance(B(), object))
print(isinstance(True, int), isinstance(1, (str, int)), issubclass(B, A))
`, "True False True\nTrue True True\n")
}

func TestNewClassRejectsNonTupleBases(t *testing.T) {
	expectError(t, "import types\ntypes.new_class('A', 1)\n", "TypeError", "Bases must be a tuple")
	expectError(t, "import types\ntypes.new_class('A', [object])\n", "TypeError", "Bases must be a tuple")
}

func TestNewClassEmptyBasesHasRootOnly(t *testing.T) {
	expectOutput(t, `
import types
E = types.new_class('E', ())
print(E.__mro__)
F = types.new_class('F')
print(F.__mro__, F.__bases__)
`, "(<class 'E'>, <class 'object'>)\n(<class 'F'>, <class 'object'>) (<class 'object'>,)\n")
}

func TestNewClassExecBody(t *testing.T) {
	expectOutput(t, `
import types
class Base:
    def hello(self):
        return 'hello from ' + type(self).__name__
def body(ns):
    ns['greeting'] = 'hi'
Greeter = types.new_class('Greeter', (Base,), None, body)
g = Greeter()
print(g.greeting, g.hello(), isinstance(g, Base))
print(type(Greeter).__name__)
`, "hi hello from Greeter True\ntype\n")
}

func TestNewClassBasesMustBeTypes(t *testing.T) {
	expectError(t, "import types\ntypes.new_class('A', (1,))\n", "TypeError", "bases must be types, not int")
}

func TestThreeArgumentType(t *testing.T) {
	expectOutput(t, `
P = type('P', (), {'x': 5})
print(P().x, P.__name__)
`, "5 P\n")
}

func TestNewClassFromGo(t *testing.T) {
	vm, _ := newTestVM(t)
	if _, err := vm.NewClass("Bad", FromSmallInt(1), nil); err == nil {
		t.Fatal("expected TypeError for non-tuple bases")
	} else if !vm.errorIs(err, vm.TypeErrorType) {
		t.Errorf("got %v, want TypeError", err)
	}

	cls, err := vm.NewClass("Empty", vm.NewTuple(nil), nil)
	if err != nil {
		t.Fatal(err)
	}
	mro := vm.typeObj(cls).MRO
	if len(mro) != 2 || mro[0] != cls || mro[1] != vm.ObjectType {
		t.Errorf("MRO = %v", mro)
	}
	if vm.TypeOf(cls) != vm.TypeType {
		t.Error("a class should be an instance of type")
	}
}

func TestInitAndMethods(t *testing.T) {
	expectOutput(t, `
class Counter:
    def __init__(self, start=0):
        self.n = start
    def inc(self, by=1):
        self.n += by
        return self
c = Counter(5)
c.inc().inc(by=3)
print(c.n)
m = c.inc
m()
print(c.n)
`, "9\n10\n")
}

func TestInitMustReturnNone(t *testing.T) {
	expectError(t, `
class A:
    def __init__(self):
        return 1
A()
`, "TypeError", "__init__() should return None, not 'int'")
}

func TestSpecialMethodDispatch(t *testing.T) {
	expectOutput(t, `
class V:
    def __init__(self, x):
        self.x = x
    def __add__(self, other):
        return V(self.x + other.x)
    def __eq__(self, other):
        return self.x == other.x
    def __repr__(self):
        return 'V(' + repr(self.x) + ')'
    def __len__(self):
        return self.x
print(V(1) + V(2), V(3) == V(3), V(1) != V(2), len(V(4)))
print([V(1)])
`, "V(3) True True 4\n[V(1)]\n")
}

func TestReflectedOperator(t *testing.T) {
	expectOutput(t, `
class Scale:
    def __init__(self, k):
        self.k = k
    def __rmul__(self, other):
        return other * self.k
print(3 * Scale(4))
`, "12\n")
}

func TestUnsupportedOperands(t *testing.T) {
	expectError(t, "1 + 'a'\n", "TypeError", "unsupported operand type(s) for +: 'int' and 'str'")
	expectError(t, "1 < 'a'\n", "TypeError", "'<' not supported between instances of 'int' and 'str'")
}

func TestUnboundBuiltinMethodChecksReceiver(t *testing.T) {
	expectOutput(t, "print(tuple.__len__((1, 2)), str.upper('ab'), int.bit_length(True))\n", "2 AB 1\n")
	expectError(t, "tuple.__len__()\n", "TypeError", "descriptor '__len__' of 'tuple' object needs an argument")
	expectError(t, "tuple.__len__(5)\n", "TypeError", "descriptor '__len__' for 'tuple' objects doesn't apply to a 'int' object")
	expectError(t, "list.append((), 1)\n", "TypeError", "descriptor 'append' for 'list' objects doesn't apply to a 'tuple' object")
}

func TestBuiltinBasesRejected(t *testing.T) {
	for _, base := range []string{"list", "tuple", "dict", "str", "int", "bool", "type"} {
		expectError(t, "class L("+base+"):\n    pass\n", "TypeError", "type '"+base+"' is not an acceptable base type")
	}
	expectOutput(t, `
class E(ValueError):
    pass
class P(object):
    pass
class Q(P):
    pass
print(isinstance(E('x'), Exception), isinstance(Q(), P))
`, "True True\n")
}
