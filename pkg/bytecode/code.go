package bytecode

import (
	"encoding/binary"
	"fmt"
	"math"
)

// FormatVersion is the current code object format version.
// Increment when making incompatible changes to the instruction set or
// the wire encoding; cached code objects with another version are ignored.
const FormatVersion uint16 = 1

// Mode selects how a source unit is compiled and how its result is used.
type Mode uint8

const (
	// ModeExec compiles a module body; the result is None.
	ModeExec Mode = iota

	// ModeSingle compiles one interactive input; expression statements
	// print the repr of non-None results.
	ModeSingle

	// ModeEval compiles a single expression; the result is its value.
	ModeEval
)

func (m Mode) String() string {
	switch m {
	case ModeExec:
		return "exec"
	case ModeSingle:
		return "single"
	case ModeEval:
		return "eval"
	default:
		return fmt.Sprintf("Mode(%d)", m)
	}
}

// ParseMode converts a mode name to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "exec":
		return ModeExec, nil
	case "single":
		return ModeSingle, nil
	case "eval":
		return ModeEval, nil
	}
	return 0, fmt.Errorf("unknown compile mode %q", s)
}

// CodeKind identifies what a code object was compiled from.
type CodeKind uint8

const (
	KindModule CodeKind = iota
	KindFunction
	KindClassBody
)

// ConstKind identifies the type of a constant pool entry.
type ConstKind uint8

const (
	ConstInt ConstKind = iota
	ConstFloat
	ConstString
	ConstCode
	ConstNames // tuple of strings, used for keyword argument names
)

// Constant is one entry of a code object's constant pool.
type Constant struct {
	Kind  ConstKind   `cbor:"1,keyasint"`
	Int   int64       `cbor:"2,keyasint,omitempty"`
	Float float64     `cbor:"3,keyasint,omitempty"`
	Str   string      `cbor:"4,keyasint,omitempty"`
	Code  *CodeObject `cbor:"5,keyasint,omitempty"`
	Names []string    `cbor:"6,keyasint,omitempty"`
}

func (c Constant) String() string {
	switch c.Kind {
	case ConstInt:
		return fmt.Sprintf("%d", c.Int)
	case ConstFloat:
		return fmt.Sprintf("%g", c.Float)
	case ConstString:
		return fmt.Sprintf("%q", c.Str)
	case ConstCode:
		if c.Code == nil {
			return "<code nil>"
		}
		return fmt.Sprintf("<code %s>", c.Code.Name)
	case ConstNames:
		return fmt.Sprintf("%q", c.Names)
	}
	return fmt.Sprintf("Constant(%d)", c.Kind)
}

// HandlerRange describes a protected region of code. When an exception is
// raised while IP is in [Start, End), the operand stack is truncated to
// Depth and execution resumes at Target. If Bind is not empty the
// exception is also stored under that name.
type HandlerRange struct {
	Start  uint32 `cbor:"1,keyasint"`
	End    uint32 `cbor:"2,keyasint"`
	Target uint32 `cbor:"3,keyasint"`
	Depth  uint32 `cbor:"4,keyasint"`
	Bind   string `cbor:"5,keyasint,omitempty"`
}

// Covers reports whether ip lies inside the protected region.
func (h HandlerRange) Covers(ip int) bool {
	return uint32(ip) >= h.Start && uint32(ip) < h.End
}

// SourceLocation maps bytecode position to source location for debugging.
type SourceLocation struct {
	BytecodeOffset uint32 `cbor:"1,keyasint"` // Offset in code section
	Line           uint32 `cbor:"2,keyasint"` // Source line number (1-based)
	Column         uint16 `cbor:"3,keyasint"` // Source column number (1-based)
}

// CodeObject is an immutable compiled unit: a module body, a function
// body or a class body. Code objects nest through ConstCode constants.
type CodeObject struct {
	Version  uint16   `cbor:"1,keyasint"`
	Name     string   `cbor:"2,keyasint"`
	Filename string   `cbor:"3,keyasint"`
	Kind     CodeKind `cbor:"4,keyasint"`
	Mode     Mode     `cbor:"5,keyasint"`

	// Code section
	Code []byte `cbor:"6,keyasint"`

	// Pools referenced by operands
	Constants []Constant `cbor:"7,keyasint"`
	Names     []string   `cbor:"8,keyasint"`

	// Parameter names in positional order
	Params []string `cbor:"9,keyasint,omitempty"`

	// Exception handler table, innermost ranges first
	Handlers []HandlerRange `cbor:"10,keyasint,omitempty"`

	// Debug information
	SourceMap []SourceLocation `cbor:"11,keyasint,omitempty"`
	FirstLine uint32           `cbor:"12,keyasint,omitempty"`
}

// NewCodeObject creates a new empty code object with the current version.
func NewCodeObject(name, filename string, kind CodeKind) *CodeObject {
	return &CodeObject{
		Version:  FormatVersion,
		Name:     name,
		Filename: filename,
		Kind:     kind,
		Code:     make([]byte, 0, 64),
	}
}

// MaxOperand is the largest value a two-byte operand holds: pool
// indexes, counts and jump targets all have to fit.
const MaxOperand = math.MaxUint16

// AddConstant adds a constant to the pool and returns its index.
// Scalar constants are deduplicated; code objects and name tuples are not.
func (c *CodeObject) AddConstant(k Constant) uint16 {
	if k.Kind == ConstInt || k.Kind == ConstFloat || k.Kind == ConstString {
		for i, existing := range c.Constants {
			if existing.Kind != k.Kind {
				continue
			}
			switch k.Kind {
			case ConstInt:
				if existing.Int == k.Int {
					return uint16(i)
				}
			case ConstFloat:
				// Compare bits so 0.0 and -0.0 stay distinct.
				if math.Float64bits(existing.Float) == math.Float64bits(k.Float) {
					return uint16(i)
				}
			case ConstString:
				if existing.Str == k.Str {
					return uint16(i)
				}
			}
		}
	}
	idx := uint16(len(c.Constants))
	c.Constants = append(c.Constants, k)
	return idx
}

// AddName adds a name to the name pool and returns its index.
func (c *CodeObject) AddName(name string) uint16 {
	for i, n := range c.Names {
		if n == name {
			return uint16(i)
		}
	}
	idx := uint16(len(c.Names))
	c.Names = append(c.Names, name)
	return idx
}

// Emit appends a single-byte opcode to the code section.
func (c *CodeObject) Emit(op Opcode) int {
	offset := len(c.Code)
	c.Code = append(c.Code, byte(op))
	return offset
}

// EmitU8 appends an opcode with a one-byte operand.
func (c *CodeObject) EmitU8(op Opcode, operand uint8) int {
	offset := len(c.Code)
	c.Code = append(c.Code, byte(op), operand)
	return offset
}

// EmitU16 appends an opcode with a two-byte operand.
func (c *CodeObject) EmitU16(op Opcode, operand uint16) int {
	offset := len(c.Code)
	c.Code = append(c.Code, byte(op))
	c.Code = binary.BigEndian.AppendUint16(c.Code, operand)
	return offset
}

// EmitJump emits a jump instruction with a placeholder target.
// Returns the offset of the placeholder for later patching.
func (c *CodeObject) EmitJump(op Opcode) int {
	offset := len(c.Code)
	c.Code = append(c.Code, byte(op), 0xFF, 0xFF) // Placeholder
	return offset + 1
}

// PatchJump patches a jump instruction to target the current position.
func (c *CodeObject) PatchJump(placeholderOffset int) {
	c.PatchJumpTo(placeholderOffset, len(c.Code))
}

// PatchJumpTo patches a jump to go to a specific offset.
func (c *CodeObject) PatchJumpTo(placeholderOffset int, target int) {
	binary.BigEndian.PutUint16(c.Code[placeholderOffset:], uint16(target))
}

// EmitLoop emits a backward jump to the given loop start.
func (c *CodeObject) EmitLoop(loopStart int) {
	c.EmitU16(OpJump, uint16(loopStart))
}

// CurrentOffset returns the current offset in the code section.
func (c *CodeObject) CurrentOffset() int {
	return len(c.Code)
}

// AddHandler appends an exception handler range.
func (c *CodeObject) AddHandler(h HandlerRange) {
	c.Handlers = append(c.Handlers, h)
}

// AddSourceLocation adds a debug source location mapping.
// Consecutive entries for the same line and column are collapsed.
func (c *CodeObject) AddSourceLocation(bytecodeOffset uint32, line uint32, column uint16) {
	if n := len(c.SourceMap); n > 0 {
		last := c.SourceMap[n-1]
		if last.Line == line && last.Column == column {
			return
		}
		if last.BytecodeOffset == bytecodeOffset {
			c.SourceMap[n-1] = SourceLocation{bytecodeOffset, line, column}
			return
		}
	}
	c.SourceMap = append(c.SourceMap, SourceLocation{
		BytecodeOffset: bytecodeOffset,
		Line:           line,
		Column:         column,
	})
}

// GetSourceLocation returns the source location for a bytecode offset.
// Returns line 0, column 0 if no mapping exists.
func (c *CodeObject) GetSourceLocation(offset uint32) (line uint32, column uint16) {
	for i := len(c.SourceMap) - 1; i >= 0; i-- {
		if c.SourceMap[i].BytecodeOffset <= offset {
			return c.SourceMap[i].Line, c.SourceMap[i].Column
		}
	}
	return c.FirstLine, 0
}

// ReadU16 decodes the two-byte operand starting at offset.
func (c *CodeObject) ReadU16(offset int) uint16 {
	return binary.BigEndian.Uint16(c.Code[offset:])
}

// Validate checks that every instruction is known, that operands fit in
// the code section, and that pool indexes and jump targets are in range.
func (c *CodeObject) Validate() error {
	for ip := 0; ip < len(c.Code); {
		op := Opcode(c.Code[ip])
		if !op.IsValid() {
			return fmt.Errorf("%s: invalid opcode 0x%02X at %04X", c.Name, byte(op), ip)
		}
		n := op.InstructionLen()
		if ip+n > len(c.Code) {
			return fmt.Errorf("%s: truncated %s at %04X", c.Name, op, ip)
		}
		if GetOpcodeInfo(op).OperandLen == 2 {
			arg := int(c.ReadU16(ip + 1))
			switch {
			case op == OpLoadConst && arg >= len(c.Constants):
				return fmt.Errorf("%s: constant %d out of range at %04X", c.Name, arg, ip)
			case usesName(op) && arg >= len(c.Names):
				return fmt.Errorf("%s: name %d out of range at %04X", c.Name, arg, ip)
			case op.IsJump() && arg > len(c.Code):
				return fmt.Errorf("%s: jump target %04X out of range at %04X", c.Name, arg, ip)
			}
		}
		ip += n
	}
	for _, k := range c.Constants {
		if k.Kind == ConstCode && k.Code != nil {
			if err := k.Code.Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

func usesName(op Opcode) bool {
	switch op {
	case OpLoadName, OpStoreName, OpDeleteName, OpLoadAttr, OpStoreAttr, OpDelAttr, OpImportName, OpImportFrom:
		return true
	}
	return false
}
