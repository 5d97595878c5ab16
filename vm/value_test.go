package vm

import (
	"math"
	"testing"
)

func TestSmallIntRoundTrip(t *testing.T) {
	for _, n := range []int64{0, 1, -1, 42, -1000, MaxSmallInt, MinSmallInt} {
		v := FromSmallInt(n)
		if !v.IsSmallInt() {
			t.Fatalf("FromSmallInt(%d) is not a small int", n)
		}
		if v.IsFloat() || v.IsObject() || v.IsSpecial() {
			t.Errorf("FromSmallInt(%d) matches another variant", n)
		}
		if got := v.SmallInt(); got != n {
			t.Errorf("SmallInt() = %d, want %d", got, n)
		}
	}
}

func TestTryFromSmallIntRange(t *testing.T) {
	if _, ok := TryFromSmallInt(MaxSmallInt + 1); ok {
		t.Error("MaxSmallInt+1 should not fit")
	}
	if _, ok := TryFromSmallInt(MinSmallInt - 1); ok {
		t.Error("MinSmallInt-1 should not fit")
	}
	if v, ok := TryFromSmallInt(7); !ok || v.SmallInt() != 7 {
		t.Error("7 should fit")
	}
}

func TestFloatRoundTrip(t *testing.T) {
	for _, f := range []float64{0, -0.0, 1.5, -2.25, math.MaxFloat64, math.SmallestNonzeroFloat64, math.Inf(1), math.Inf(-1)} {
		v := FromFloat64(f)
		if !v.IsFloat() {
			t.Fatalf("FromFloat64(%v) is not a float", f)
		}
		if v.IsSmallInt() || v.IsObject() || v.IsSpecial() {
			t.Errorf("FromFloat64(%v) matches another variant", f)
		}
		if got := v.Float64(); got != f {
			t.Errorf("Float64() = %v, want %v", got, f)
		}
	}
}

func TestNaNIsCanonical(t *testing.T) {
	weird := math.Float64frombits(0x7FF8000000000001 | 0x0002000000000000)
	v := FromFloat64(weird)
	if !v.IsFloat() {
		t.Fatal("NaN payload must stay a float")
	}
	if !math.IsNaN(v.Float64()) {
		t.Error("NaN did not survive boxing")
	}
	if v.IsSmallInt() {
		t.Error("NaN payload aliased an integer")
	}
}

func TestSpecialValuesAreDistinct(t *testing.T) {
	specials := []Value{None, True, False, Missing, NotImplemented}
	for i, a := range specials {
		if !a.IsSpecial() {
			t.Errorf("special %d is not tagged special", i)
		}
		for j, b := range specials {
			if i != j && a == b {
				t.Errorf("specials %d and %d collide", i, j)
			}
		}
	}
	if FromBool(true) != True || FromBool(false) != False {
		t.Error("FromBool does not map to True/False")
	}
	if !True.IsBool() || None.IsBool() {
		t.Error("IsBool misclassifies")
	}
	if !None.IsNone() || !Missing.IsMissing() {
		t.Error("IsNone/IsMissing misclassify")
	}
}

func TestHandleRoundTrip(t *testing.T) {
	v := fromHandle(12345, 7)
	if !v.IsObject() {
		t.Fatal("handle is not an object value")
	}
	idx, gen := v.handle()
	if idx != 12345 || gen != 7 {
		t.Errorf("handle() = (%d, %d), want (12345, 7)", idx, gen)
	}
}
