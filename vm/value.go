package vm

import "math"

// Value represents a serpent value using NaN-boxing.
//
// All values are 64-bit IEEE 754 doubles. Non-float values live in the
// quiet-NaN space, with three tag bits selecting the variant:
//   - Float: native IEEE 754 double (any bit pattern that is not tagged)
//   - Integer: quiet NaN + tagInt + 48-bit signed payload
//   - Object: quiet NaN + tagObject + heap handle (32-bit index, 16-bit generation)
//   - Special: quiet NaN + tagSpecial + special id (None/True/False/...)
//
// Object values are handles into the VM's Heap; they never carry Go
// pointers, so reference cycles between heap objects are plain integers.
type Value uint64

// NaN-boxing constants
const (
	// Quiet NaN prefix: exponent all 1s, quiet bit set
	nanBits uint64 = 0x7FF8000000000000

	// Tag mask: 3 bits within the NaN mantissa space
	tagMask uint64 = 0x0007000000000000

	// Payload mask: 48 bits for handle/int/id
	payloadMask uint64 = 0x0000FFFFFFFFFFFF

	tagObject  uint64 = 0x0001000000000000
	tagInt     uint64 = 0x0002000000000000
	tagSpecial uint64 = 0x0003000000000000

	// Sign bit for 48-bit integer sign extension
	intSignBit    uint64 = 0x0000800000000000
	intSignExtend uint64 = 0xFFFF000000000000

	// Handle layout inside the object payload
	handleIndexMask uint64 = 0x00000000FFFFFFFF
	handleGenShift         = 32
)

// Special value payloads
const (
	specialNone uint64 = iota
	specialTrue
	specialFalse
	specialMissing
	specialNotImplemented
)

// Pre-defined special values
const (
	None  Value = Value(nanBits | tagSpecial | specialNone)
	True  Value = Value(nanBits | tagSpecial | specialTrue)
	False Value = Value(nanBits | tagSpecial | specialFalse)

	// Missing marks an optional argument that was not supplied. It never
	// reaches user code.
	Missing Value = Value(nanBits | tagSpecial | specialMissing)

	// NotImplemented is returned by binary special methods that do not
	// handle the other operand, so the reflected method is tried.
	NotImplemented Value = Value(nanBits | tagSpecial | specialNotImplemented)
)

// Integer range (48-bit signed)
const (
	MaxSmallInt int64 = (1 << 47) - 1
	MinSmallInt int64 = -(1 << 47)
)

// canonicalNaN is the bit pattern every float NaN is folded to, so a NaN
// produced by arithmetic can never be mistaken for a tagged value.
const canonicalNaN uint64 = 0x7FF8000000000000

// ---------------------------------------------------------------------------
// Type checking
// ---------------------------------------------------------------------------

// IsFloat returns true if v represents a float64 value.
func (v Value) IsFloat() bool {
	bits := uint64(v)
	if (bits & nanBits) != nanBits {
		return true
	}
	return bits&tagMask == 0
}

// IsSmallInt returns true if v represents an integer.
func (v Value) IsSmallInt() bool {
	return (uint64(v) & (nanBits | tagMask)) == (nanBits | tagInt)
}

// IsObject returns true if v is a heap handle.
func (v Value) IsObject() bool {
	return (uint64(v) & (nanBits | tagMask)) == (nanBits | tagObject)
}

// IsSpecial returns true if v is None, True, False or an internal marker.
func (v Value) IsSpecial() bool {
	return (uint64(v) & (nanBits | tagMask)) == (nanBits | tagSpecial)
}

func (v Value) IsNone() bool    { return v == None }
func (v Value) IsMissing() bool { return v == Missing }

// IsBool returns true if v is True or False.
func (v Value) IsBool() bool {
	return v == True || v == False
}

// IsNumber returns true for integers, booleans and floats.
func (v Value) IsNumber() bool {
	return v.IsSmallInt() || v.IsFloat() || v.IsBool()
}

// ---------------------------------------------------------------------------
// Float operations
// ---------------------------------------------------------------------------

// Float64 returns v as a float64.
// Panics if v is not a float.
func (v Value) Float64() float64 {
	if !v.IsFloat() {
		panic("Value.Float64: not a float")
	}
	return math.Float64frombits(uint64(v))
}

// FromFloat64 creates a Value from a float64.
func FromFloat64(f float64) Value {
	if f != f {
		return Value(canonicalNaN)
	}
	return Value(math.Float64bits(f))
}

// ---------------------------------------------------------------------------
// Integer operations
// ---------------------------------------------------------------------------

// SmallInt returns v as an int64.
// Panics if v is not an integer.
func (v Value) SmallInt() int64 {
	if !v.IsSmallInt() {
		panic("Value.SmallInt: not a small integer")
	}
	payload := uint64(v) & payloadMask
	if (payload & intSignBit) != 0 {
		payload |= intSignExtend
	}
	return int64(payload)
}

// FromSmallInt creates a Value from an int64.
// Panics if n is outside the integer range.
func FromSmallInt(n int64) Value {
	if n > MaxSmallInt || n < MinSmallInt {
		panic("FromSmallInt: value out of range")
	}
	return Value(nanBits | tagInt | (uint64(n) & payloadMask))
}

// TryFromSmallInt creates a Value from an int64, returning false if out of range.
func TryFromSmallInt(n int64) (Value, bool) {
	if n > MaxSmallInt || n < MinSmallInt {
		return None, false
	}
	return Value(nanBits | tagInt | (uint64(n) & payloadMask)), true
}

// ---------------------------------------------------------------------------
// Booleans
// ---------------------------------------------------------------------------

// FromBool converts a Go bool.
func FromBool(b bool) Value {
	if b {
		return True
	}
	return False
}

// ---------------------------------------------------------------------------
// Heap handles
// ---------------------------------------------------------------------------

// handle splits an object value into its arena index and generation.
func (v Value) handle() (index uint32, gen uint16) {
	p := uint64(v) & payloadMask
	return uint32(p & handleIndexMask), uint16(p >> handleGenShift)
}

func fromHandle(index uint32, gen uint16) Value {
	return Value(nanBits | tagObject | uint64(gen)<<handleGenShift | uint64(index))
}
