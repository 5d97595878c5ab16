package vm

import (
	"testing"
)

// refSlice is the clamp-and-step rule written out directly.
func refSlice(n int, start, stop *int, step int) []int {
	clamp := func(p *int, def int) int {
		if p == nil {
			return def
		}
		i := *p
		if i < 0 {
			i += n
		}
		return min(max(i, 0), n)
	}
	lo, hi := clamp(start, 0), clamp(stop, n)
	var out []int
	for i := lo; i < hi; i += step {
		out = append(out, i)
	}
	return out
}

func TestSliceMatchesReference(t *testing.T) {
	vm, _ := newTestVM(t)
	bounds := []*int{nil}
	for _, b := range []int{-7, -3, -1, 0, 1, 2, 5, 9} {
		b := b
		bounds = append(bounds, &b)
	}
	boxed := func(p *int) Value {
		if p == nil {
			return None
		}
		return FromSmallInt(int64(*p))
	}

	for n := 0; n <= 6; n++ {
		items := make([]Value, n)
		for i := range items {
			items[i] = FromSmallInt(int64(i))
		}
		list := vm.NewList(items)
		for _, start := range bounds {
			for _, stop := range bounds {
				for _, step := range []int{1, 2, 3} {
					got, err := vm.GetItem(list, vm.NewSlice(boxed(start), boxed(stop), FromSmallInt(int64(step))))
					if err != nil {
						t.Fatalf("n=%d: %v", n, err)
					}
					gotItems, _ := vm.sequenceItems(got)
					want := refSlice(n, start, stop, step)
					if len(gotItems) != len(want) {
						t.Fatalf("n=%d start=%v stop=%v step=%d: got %d items, want %d", n, start, stop, step, len(gotItems), len(want))
					}
					for i, w := range want {
						if gotItems[i].SmallInt() != int64(w) {
							t.Errorf("n=%d start=%v stop=%v step=%d: item %d = %d, want %d", n, start, stop, step, i, gotItems[i].SmallInt(), w)
						}
					}
				}
			}
		}
	}
}

func TestFullSliceCopies(t *testing.T) {
	expectOutput(t, `
a = [1, 2, 3]
b = a[:]
b.append(4)
print(a, b, a[:] == a, a[:] is a)
t = (1, 2, 3)
print(t[:] == t, t[1:], t[::2])
`, "[1, 2, 3] [1, 2, 3, 4] True False\nTrue (2, 3) (1, 3)\n")
}

func TestSliceErrors(t *testing.T) {
	expectError(t, "'abc'[::-1]\n", "UnsupportedOperation", "negative step indexing not yet supported")
	expectError(t, "[1, 2][::-2]\n", "UnsupportedOperation", "negative step indexing not yet supported")
	expectError(t, "(1, 2)[::0]\n", "ValueError", "slice step cannot be zero")
	expectError(t, "[1, 2]['a':]\n", "TypeError", "slice indices must be integers or None")
}

func TestIndexing(t *testing.T) {
	expectOutput(t, `
s = 'hello'
t = (1, 2, 3)
print(s[0], s[-1], t[-3], 'héllo'[1])
`, "h o 1 é\n")
	expectError(t, "(1, 2)[2]\n", "IndexError", "tuple index out of range")
	expectError(t, "[1][-2]\n", "IndexError", "list index out of range")
	expectError(t, "'ab'[5]\n", "IndexError", "string index out of range")
	expectError(t, "[1]['x']\n", "TypeError", "list indices must be integers or slices, not str")
}

func TestTupleRepr(t *testing.T) {
	expectOutput(t, "print((1,), (), (1, 'a'), ((1,),))\n", "(1,) () (1, 'a') ((1,),)\n")
}

func TestSequenceOperations(t *testing.T) {
	expectOutput(t, `
print((1, 2) + (3,), [0] * 3, 2 * 'ab', 3 in (1, 2, 3), 'el' in 'hello')
print((1, 2) < (1, 3), [1, 2] < [1, 2, 0], (2,) > (1, 9), [1] == [1.0])
print((1, 2, 2).count(2), [5, 6, 7].index(6))
`, "(1, 2, 3) [0, 0, 0] abab True True\nTrue True True True\n2 1\n")
	expectError(t, "[1, 2].index(9)\n", "ValueError", "list.index(x): x not in list")
}

func TestListMethods(t *testing.T) {
	expectOutput(t, `
l = [3, 1, 2]
l.append(4)
l.extend((5, 6))
l.insert(0, 0)
print(l, l.pop(), l.pop(0), l)
l.remove(1)
l.reverse()
print(l)
l.sort()
print(l, sorted([3, 1, 2], reverse=True))
words = ['ccc', 'a', 'bb']
words.sort(key=len)
print(words)
l[1:3] = ['x']
del l[0]
print(l, len(l))
l.clear()
print(l)
`, "[3, 1, 2, 4, 5] 6 0 [3, 1, 2, 4, 5]\n[5, 4, 2, 3]\n[2, 3, 4, 5] [3, 2, 1]\n['a', 'bb', 'ccc']\n['x', 5] 2\n[]\n")
	expectError(t, "[].pop()\n", "IndexError", "pop from empty list")
	expectError(t, "[1].remove(2)\n", "ValueError", "list.remove(x): x not in list")
}

func TestStringMethods(t *testing.T) {
	expectOutput(t, `
print('a,b,,c'.split(','), '  x  y '.split(), '-'.join(['a', 'b', 'c']))
print('Hi'.upper(), 'Hi'.lower(), '  pad  '.strip(), 'aXbX'.replace('X', '-'))
print('hello'.startswith('he'), 'hello'.endswith('lo'), 'hello'.find('l'), 'hello'.find('z'))
print(len('héllo'), repr("it's"), str(12), 'a' < 'b')
`, "['a', 'b', '', 'c'] ['x', 'y'] a-b-c\nHI hi pad a-b-\nTrue True 2 -1\n5 \"it's\" 12 True\n")
	expectError(t, "1 in 'abc'\n", "TypeError", "'in <string>' requires string as left operand, not int")
}

func TestUnpacking(t *testing.T) {
	expectOutput(t, `
a, b = 1, 2
a, b = b, a
(c, d), e = (3, 4), 5
print(a, b, c, d, e)
`, "2 1 3 4 5\n")
	expectError(t, "a, b = (1,)\n", "ValueError", "not enough values to unpack (expected 2, got 1)")
	expectError(t, "a, b = [1, 2, 3]\n", "ValueError", "too many values to unpack (expected 2)")
	expectError(t, "a, b = 5\n", "TypeError", "cannot unpack non-iterable int object")
}

func TestSequenceEqualityComparesLazily(t *testing.T) {
	expectOutput(t, `
log = []
class A:
    def __init__(self, v=0):
        self.v = v
    def __eq__(self, other):
        log.append(self.v)
        return self.v == other.v
print((A(),) == (A(), A()), len(log))
print([A()] == [], len(log))
print((A(1), A(2)) == (A(9), A(2)), len(log))
print((A(1), A(2)) == (A(1), A(3)), log)
`, "False 0\nFalse 0\nFalse 1\nFalse [1, 1, 2]\n")
}

func TestRepetitionTooLong(t *testing.T) {
	expectError(t, "(1,) * 2**46\n", "OverflowError", "repeated tuple is too long")
	expectError(t, "2**46 * [1, 2]\n", "OverflowError", "repeated list is too long")
	expectError(t, "'a' * 2**46\n", "OverflowError", "repeated string is too long")
	expectOutput(t, "print(len((1, 2) * 1000), len('ab' * 1000), [0] * -3)\n", "2000 2000 []\n")
}

func TestBytes(t *testing.T) {
	expectOutput(t, `
b = bytes([104, 105, 0, 255, 39])
print(b, len(b), b[1], b[-1])
print(bytes(), bytes(3), bytes(range(65, 68)), list(bytes([7, 8])))
print(b == bytes([104, 105, 0, 255, 39]), b == bytes([104]), b == 'hi')
d = {bytes([1]): 'one'}
print(d[bytes([1])])
`, "b\"hi\\x00\\xff'\" 5 105 39\nb'' b'\\x00\\x00\\x00' b'ABC' [7, 8]\nTrue False False\none\n")
	expectError(t, "bytes([object()])\n", "TypeError", "'object' object cannot be interpreted as an integer")
	expectError(t, "bytes('abc')\n", "TypeError", "string argument without an encoding")
	expectError(t, "bytes(1.5)\n", "TypeError", "cannot convert 'float' object to bytes")
	expectError(t, "bytes([-1])\n", "ValueError", "bytes must be in range(0, 256)")
	expectError(t, "bytes(2)[2]\n", "IndexError", "index out of range")
}
