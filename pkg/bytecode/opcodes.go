package bytecode

import "fmt"

// Opcode represents a bytecode instruction.
// Opcodes are organized into ranges by category for easy identification.
type Opcode byte

const (
	// ========================================================================
	// Stack manipulation (0x00-0x0F)
	// ========================================================================

	OpNop  Opcode = 0x00 // No operation
	OpPop  Opcode = 0x01 // Pop top of stack
	OpDup  Opcode = 0x02 // Duplicate top of stack
	OpSwap Opcode = 0x03 // Swap top two stack elements
	OpRot  Opcode = 0x04 // Rotate top three: a b c -> c a b
	OpDup2 Opcode = 0x05 // Duplicate top two: a b -> a b a b

	// ========================================================================
	// Constants (0x10-0x1F)
	// ========================================================================

	OpLoadConst          Opcode = 0x10 // Push constant: OpLoadConst <index:u16>
	OpLoadNone           Opcode = 0x11 // Push None
	OpLoadTrue           Opcode = 0x12 // Push True
	OpLoadFalse          Opcode = 0x13 // Push False
	OpLoadAssertionError Opcode = 0x14 // Push the AssertionError type

	// ========================================================================
	// Names (0x20-0x2F) - resolved through the scope chain
	// ========================================================================

	OpLoadName   Opcode = 0x20 // Push name: OpLoadName <name:u16>
	OpStoreName  Opcode = 0x21 // Pop and bind: OpStoreName <name:u16>
	OpDeleteName Opcode = 0x22 // Unbind: OpDeleteName <name:u16>

	// ========================================================================
	// Attributes and subscripts (0x30-0x3F)
	// ========================================================================

	OpLoadAttr    Opcode = 0x30 // obj -> obj.name: OpLoadAttr <name:u16>
	OpStoreAttr   Opcode = 0x31 // value obj -> (obj.name = value): OpStoreAttr <name:u16>
	OpLoadSubscr  Opcode = 0x32 // obj key -> obj[key]
	OpStoreSubscr Opcode = 0x33 // value obj key -> (obj[key] = value)
	OpDelSubscr   Opcode = 0x34 // obj key -> (del obj[key])
	OpDelAttr     Opcode = 0x35 // obj -> (del obj.name): OpDelAttr <name:u16>

	// ========================================================================
	// Containers (0x40-0x4F)
	// ========================================================================

	OpBuildTuple     Opcode = 0x40 // Pop n, push tuple: OpBuildTuple <n:u16>
	OpBuildList      Opcode = 0x41 // Pop n, push list: OpBuildList <n:u16>
	OpBuildDict      Opcode = 0x42 // Pop 2n (k v ...), push dict: OpBuildDict <n:u16>
	OpBuildSlice     Opcode = 0x43 // Pop 2 or 3, push slice: OpBuildSlice <n:u8>
	OpUnpackSequence Opcode = 0x44 // Pop sequence, push n items reversed: OpUnpackSequence <n:u16>

	// ========================================================================
	// Operators (0x50-0x5F)
	// ========================================================================

	OpBinary   Opcode = 0x50 // Pop two, push result: OpBinary <op:u8>
	OpCompare  Opcode = 0x51 // Pop two, push result: OpCompare <op:u8>
	OpUnaryNeg Opcode = 0x52 // Negate top of stack
	OpUnaryPos Opcode = 0x53 // Unary plus
	OpUnaryNot Opcode = 0x54 // Logical NOT of top of stack

	// ========================================================================
	// Control flow (0x60-0x6F) - targets are absolute code offsets
	// ========================================================================

	OpJump             Opcode = 0x60 // Unconditional jump: OpJump <target:u16>
	OpJumpIfFalse      Opcode = 0x61 // Pop, jump if falsy: OpJumpIfFalse <target:u16>
	OpJumpIfTrue       Opcode = 0x62 // Pop, jump if truthy: OpJumpIfTrue <target:u16>
	OpJumpIfFalseOrPop Opcode = 0x63 // Jump keeping TOS if falsy, else pop
	OpJumpIfTrueOrPop  Opcode = 0x64 // Jump keeping TOS if truthy, else pop
	OpGetIter          Opcode = 0x65 // Replace TOS with an iterator over it
	OpForIter          Opcode = 0x66 // Push next item, or pop iterator and jump: OpForIter <target:u16>

	// ========================================================================
	// Calls and definitions (0x70-0x7F)
	// ========================================================================

	OpMakeFunction Opcode = 0x70 // defaults... code -> function: OpMakeFunction <ndefaults:u16>
	OpCall         Opcode = 0x71 // callable args... -> result: OpCall <argc:u16>
	OpCallKw       Opcode = 0x72 // callable args... kwnames -> result: OpCallKw <argc:u16>
	OpReturn       Opcode = 0x73 // Return top of stack from frame
	OpBuildClass   Opcode = 0x74 // body name bases -> class

	// ========================================================================
	// Exceptions (0x80-0x8F)
	// ========================================================================

	OpRaise     Opcode = 0x80 // Raise: OpRaise <argc:u8> (0 = re-raise, 1 = exc, 2 = exc from cause)
	OpPushExc   Opcode = 0x81 // Push the exception being handled
	OpExcMatch  Opcode = 0x82 // exc type -> bool
	OpPopExcept Opcode = 0x83 // Finish handling the current exception
	OpReraise   Opcode = 0x84 // Re-raise the exception being handled

	// ========================================================================
	// Modules and interactive output (0x90-0x9F)
	// ========================================================================

	OpImportName Opcode = 0x90 // Push module: OpImportName <name:u16>
	OpImportFrom Opcode = 0x91 // module -> module attr: OpImportFrom <name:u16>
	OpPrintExpr  Opcode = 0x92 // Pop and print repr if not None (interactive mode)
)

// BinaryOp selects the operator for OpBinary.
type BinaryOp byte

const (
	BinaryAdd BinaryOp = iota
	BinarySub
	BinaryMul
	BinaryTrueDiv
	BinaryFloorDiv
	BinaryMod
	BinaryPow
)

var binaryOpNames = [...]string{"+", "-", "*", "/", "//", "%", "**"}

func (op BinaryOp) String() string {
	if int(op) < len(binaryOpNames) {
		return binaryOpNames[op]
	}
	return fmt.Sprintf("BinaryOp(%d)", op)
}

// CompareOp selects the comparison for OpCompare.
type CompareOp byte

const (
	CompareEq CompareOp = iota
	CompareNe
	CompareLt
	CompareLe
	CompareGt
	CompareGe
	CompareIs
	CompareIsNot
	CompareIn
	CompareNotIn
)

var compareOpNames = [...]string{"==", "!=", "<", "<=", ">", ">=", "is", "is not", "in", "not in"}

func (op CompareOp) String() string {
	if int(op) < len(compareOpNames) {
		return compareOpNames[op]
	}
	return fmt.Sprintf("CompareOp(%d)", op)
}

// OpcodeInfo provides metadata about each opcode for debugging and validation.
type OpcodeInfo struct {
	Name       string // Human-readable name
	StackPop   int    // How many values popped from stack (-1 = variable)
	StackPush  int    // How many values pushed to stack (-1 = variable)
	OperandLen int    // Number of operand bytes following the opcode
}

// opcodeInfoTable maps opcodes to their metadata.
var opcodeInfoTable = map[Opcode]OpcodeInfo{
	OpNop:  {"NOP", 0, 0, 0},
	OpPop:  {"POP", 1, 0, 0},
	OpDup:  {"DUP", 1, 2, 0},
	OpSwap: {"SWAP", 2, 2, 0},
	OpRot:  {"ROT", 3, 3, 0},
	OpDup2: {"DUP2", 2, 4, 0},

	OpLoadConst:          {"LOAD_CONST", 0, 1, 2},
	OpLoadNone:           {"LOAD_NONE", 0, 1, 0},
	OpLoadTrue:           {"LOAD_TRUE", 0, 1, 0},
	OpLoadFalse:          {"LOAD_FALSE", 0, 1, 0},
	OpLoadAssertionError: {"LOAD_ASSERTION_ERROR", 0, 1, 0},

	OpLoadName:   {"LOAD_NAME", 0, 1, 2},
	OpStoreName:  {"STORE_NAME", 1, 0, 2},
	OpDeleteName: {"DELETE_NAME", 0, 0, 2},

	OpLoadAttr:    {"LOAD_ATTR", 1, 1, 2},
	OpStoreAttr:   {"STORE_ATTR", 2, 0, 2},
	OpLoadSubscr:  {"LOAD_SUBSCR", 2, 1, 0},
	OpStoreSubscr: {"STORE_SUBSCR", 3, 0, 0},
	OpDelSubscr:   {"DEL_SUBSCR", 2, 0, 0},
	OpDelAttr:     {"DEL_ATTR", 1, 0, 2},

	OpBuildTuple:     {"BUILD_TUPLE", -1, 1, 2},
	OpBuildList:      {"BUILD_LIST", -1, 1, 2},
	OpBuildDict:      {"BUILD_DICT", -1, 1, 2},
	OpBuildSlice:     {"BUILD_SLICE", -1, 1, 1},
	OpUnpackSequence: {"UNPACK_SEQUENCE", 1, -1, 2},

	OpBinary:   {"BINARY", 2, 1, 1},
	OpCompare:  {"COMPARE", 2, 1, 1},
	OpUnaryNeg: {"UNARY_NEG", 1, 1, 0},
	OpUnaryPos: {"UNARY_POS", 1, 1, 0},
	OpUnaryNot: {"UNARY_NOT", 1, 1, 0},

	OpJump:             {"JUMP", 0, 0, 2},
	OpJumpIfFalse:      {"JUMP_IF_FALSE", 1, 0, 2},
	OpJumpIfTrue:       {"JUMP_IF_TRUE", 1, 0, 2},
	OpJumpIfFalseOrPop: {"JUMP_IF_FALSE_OR_POP", 1, -1, 2},
	OpJumpIfTrueOrPop:  {"JUMP_IF_TRUE_OR_POP", 1, -1, 2},
	OpGetIter:          {"GET_ITER", 1, 1, 0},
	OpForIter:          {"FOR_ITER", 1, -1, 2},

	OpMakeFunction: {"MAKE_FUNCTION", -1, 1, 2},
	OpCall:         {"CALL", -1, 1, 2},
	OpCallKw:       {"CALL_KW", -1, 1, 2},
	OpReturn:       {"RETURN", 1, 0, 0},
	OpBuildClass:   {"BUILD_CLASS", 3, 1, 0},

	OpRaise:     {"RAISE", -1, 0, 1},
	OpPushExc:   {"PUSH_EXC", 0, 1, 0},
	OpExcMatch:  {"EXC_MATCH", 2, 1, 0},
	OpPopExcept: {"POP_EXCEPT", 0, 0, 0},
	OpReraise:   {"RERAISE", 0, 0, 0},

	OpImportName: {"IMPORT_NAME", 0, 1, 2},
	OpImportFrom: {"IMPORT_FROM", 1, 2, 2},
	OpPrintExpr:  {"PRINT_EXPR", 1, 0, 0},
}

// GetOpcodeInfo returns metadata for an opcode.
// Returns a default info with "UNKNOWN" name for unrecognized opcodes.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN_%02X", byte(op))}
}

// String returns the human-readable name of the opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// InstructionLen returns the total length of an instruction including operands.
func (op Opcode) InstructionLen() int {
	return 1 + GetOpcodeInfo(op).OperandLen
}

// IsJump returns true if the opcode carries a jump target operand.
func (op Opcode) IsJump() bool {
	switch op {
	case OpJump, OpJumpIfFalse, OpJumpIfTrue, OpJumpIfFalseOrPop, OpJumpIfTrueOrPop, OpForIter:
		return true
	}
	return false
}

// IsValid returns true if the opcode is a recognized instruction.
func (op Opcode) IsValid() bool {
	_, ok := opcodeInfoTable[op]
	return ok
}
