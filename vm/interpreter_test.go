package vm

import (
	"strings"
	"testing"
)

func TestArithmetic(t *testing.T) {
	expectOutput(t, `
print(1 + 2 * 3, (1 + 2) * 3, 7 // 2, -7 // 2, 7 % 3, -7 % 3, 2 ** 10)
print(7 / 2, 1.5 + 1, 10 / 5, -3.0, 0.1 + 0.2 == 0.3)
print(True + True, -True, not 0, 3 - -2)
`, "7 9 3 -4 1 2 1024\n3.5 2.5 2.0 -3.0 False\n2 -1 True 5\n")
}

func TestArithmeticErrors(t *testing.T) {
	expectError(t, "1 / 0\n", "ZeroDivisionError", "division by zero")
	expectError(t, "1 // 0\n", "ZeroDivisionError", "integer division or modulo by zero")
	expectError(t, "1.0 / 0\n", "ZeroDivisionError", "float division by zero")
	expectError(t, "-'a'\n", "TypeError", "bad operand type for unary -: 'str'")
}

func TestComparisonChains(t *testing.T) {
	expectOutput(t, `
x = 5
print(1 < x < 10, 1 < x > 6, x == 5 != 4, 1 < 2 < 3 < 2)
print(None is None, [] is not [], 1 in [1, 2], 3 not in (1, 2))
`, "True False True False\nTrue True True True\n")
}

func TestBooleanOperatorsReturnOperands(t *testing.T) {
	expectOutput(t, `
print(0 or 'x', 'a' and 'b', [] or [], None and 1, 1 if [] else 2)
`, "x b [] None 2\n")
}

func TestControlFlow(t *testing.T) {
	expectOutput(t, `
total = 0
for i in range(10):
    if i == 2:
        continue
    if i == 6:
        break
    total += i
else:
    total = -1
print(total)
n = 0
while n < 3:
    n += 1
else:
    print('while else', n)
for c in 'ab':
    pass
else:
    print('for else', c)
if n > 5:
    print('big')
elif n > 2:
    print('medium')
else:
    print('small')
`, "13\nwhile else 3\nfor else b\nmedium\n")
}

func TestNestedLoopsBreak(t *testing.T) {
	expectOutput(t, `
found = None
for i in range(5):
    for j in range(5):
        if i * j == 6:
            found = (i, j)
            break
    if found:
        break
print(found)
`, "(2, 3)\n")
}

func TestFunctionsAndDefaults(t *testing.T) {
	expectOutput(t, `
def greet(name, greeting='Hello', punct='!'):
    return greeting + ', ' + name + punct
print(greet('Ann'))
print(greet('Bob', 'Hi'))
print(greet(punct='?', name='Cy'))
def nothing():
    pass
print(nothing())
`, "Hello, Ann!\nHi, Bob!\nHello, Cy?\nNone\n")
}

func TestCallArgumentErrors(t *testing.T) {
	expectError(t, "def f(a):\n    pass\nf(1, 2)\n", "TypeError", "f() takes 1 positional argument but 2 were given")
	expectError(t, "def f(a):\n    pass\nf()\n", "TypeError", "f() missing required argument: 'a'")
	expectError(t, "def f(a):\n    pass\nf(b=1)\n", "TypeError", "f() got an unexpected keyword argument 'b'")
	expectError(t, "def f(a):\n    pass\nf(1, a=2)\n", "TypeError", "f() got multiple values for argument 'a'")
	expectError(t, "5()\n", "TypeError", "'int' object is not callable")
}

func TestClosuresCaptureScope(t *testing.T) {
	expectOutput(t, `
def make_adder(n):
    def add(x):
        return x + n
    return add
add5 = make_adder(5)
add7 = make_adder(7)
print(add5(1), add7(1))
def counter():
    state = [0]
    def tick():
        state[0] += 1
        return state[0]
    return tick
c = counter()
c()
print(c())
`, "6 8\n2\n")
}

func TestRecursion(t *testing.T) {
	expectOutput(t, `
def fib(n):
    if n < 2:
        return n
    return fib(n - 1) + fib(n - 2)
print(fib(20))
`, "6765\n")
}

func TestDeepRecursionDoesNotGrowGoStack(t *testing.T) {
	expectOutput(t, `
import sys
sys.setrecursionlimit(20000)
def depth(n):
    if n == 0:
        return 0
    return 1 + depth(n - 1)
print(depth(10000))
`, "10000\n")
}

func TestRecursionLimit(t *testing.T) {
	expectError(t, `
def forever(n):
    return forever(n + 1)
forever(0)
`, "RecursionError", "maximum recursion depth exceeded")
}

func TestNameErrors(t *testing.T) {
	expectError(t, "print(undefined_name)\n", "NameError", "name 'undefined_name' is not defined")
	expectError(t, "x = 1\ndel x\nx\n", "NameError", "name 'x' is not defined")
}

func TestIteratorProtocol(t *testing.T) {
	expectOutput(t, `
class Countdown:
    def __init__(self, n):
        self.n = n
    def __iter__(self):
        return self
    def __next__(self):
        if self.n == 0:
            raise StopIteration
        self.n -= 1
        return self.n + 1
out = []
for v in Countdown(3):
    out.append(v)
print(out, list(Countdown(2)), tuple(range(2, 8, 2)))
it = iter([1, 2])
print(next(it), next(it), next(it, 'done'))
`, "[3, 2, 1] [2, 1] (2, 4, 6)\n1 2 done\n")
	expectError(t, "for x in 5:\n    pass\n", "TypeError", "'int' object is not iterable")
	expectError(t, "next(iter([]))\n", "StopIteration", "")
}

func TestDicts(t *testing.T) {
	expectOutput(t, `
d = {'a': 1, 'b': 2}
d['c'] = 3
d[(1, 2)] = 'tuple'
d[1] = 'int'
print(d['a'], d[(1, 2)], d[1.0], len(d), 'b' in d, 2 in d)
del d['b']
print(d.get('b'), d.get('b', 0), sorted(d.keys(), key=repr))
print(d.pop('a'), d.pop('zz', 'none'))
e = dict(x=1)
e.update({'y': 2})
print(e, {} == {}, {'k': 1} == {'k': 1})
for k in {'p': 1, 'q': 2}:
    print(k)
`, "1 tuple int 5 True False\nNone 0 ['a', 'c', (1, 2), 1]\n1 none\n{'x': 1, 'y': 2} True True\np\nq\n")
	expectError(t, "{}['missing']\n", "KeyError", "'missing'")
	expectError(t, "{[1]: 2}\n", "TypeError", "unhashable type: 'list'")
}

func TestBuiltins(t *testing.T) {
	expectOutput(t, `
print(len([1, 2]), abs(-3), abs(-2.5), min(3, 1, 2), max([4, 9, 2]), max('a', 'bb', key=len))
print(sum([1, 2, 3]), sum([0.5, 0.5], 1), sorted('cab'), list(enumerate('ab', 1)), list(zip([1, 2], 'xyz')))
print(int('42'), int(3.9), int(True), float('1.5'), float(2), str(None), bool([]), bool('x'))
print(callable(len), callable(3), hasattr('x', 'upper'), getattr(1, 'nope', 'dflt'))
print(repr('a'), type(1.0).__name__, type(None).__name__, isinstance(len, object))
print('x', 'y', sep='-', end='!\n')
`, "2 3 2.5 1 9 bb\n6 2.0 ['a', 'b', 'c'] [(1, 'a'), (2, 'b')] [(1, 'x'), (2, 'y')]\n42 3 1 1.5 2.0 None False True\nTrue False True dflt\n'a' float NoneType True\nx-y!\n")
	expectError(t, "int('abc')\n", "ValueError", "invalid literal for int() with base 10: 'abc'")
	expectError(t, "min([])\n", "ValueError", "min() arg is an empty sequence")
	expectError(t, "len(5)\n", "TypeError", "object of type 'int' has no len()")
}

func TestAssert(t *testing.T) {
	expectOutput(t, "assert 1 == 1\nprint('ok')\n", "ok\n")
	expectError(t, "assert 1 == 2, 'math is broken'\n", "AssertionError", "math is broken")
	expectError(t, "assert []\n", "AssertionError", "")
}

func TestPrintStrUsesDunderStr(t *testing.T) {
	expectOutput(t, `
class P:
    def __str__(self):
        return 'pretty'
    def __repr__(self):
        return 'P()'
print(P(), [P()], str(P()), repr(P()))
`, "pretty [P()] pretty P()\n")
}

func TestObjectDefaultRepr(t *testing.T) {
	out := runSource(t, "class Thing:\n    pass\nprint(Thing())\n")
	if !strings.HasPrefix(out, "<Thing object at 0x") {
		t.Errorf("default repr = %q", out)
	}
}
