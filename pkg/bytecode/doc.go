// Package bytecode defines serpent's compiled form: code objects, the
// instruction set, a disassembler, and a CBOR wire encoding.
//
// # Code objects
//
// A CodeObject holds one compiled unit (module body, function body or class
// body). Operands index into per-object pools:
//
//   - Constants: ints, floats, strings, nested code objects, and keyword
//     name tuples
//   - Names: identifiers used by name, attribute and import instructions
//
// Instructions are one opcode byte followed by zero, one or two operand
// bytes. Two-byte operands are big-endian. Jump operands are absolute
// offsets into the code section.
//
// # Exception handlers
//
// Try blocks compile to HandlerRange entries rather than setup/teardown
// instructions. The interpreter searches the table, innermost first, for a
// range covering the faulting instruction, truncates the operand stack to
// the recorded depth and resumes at the target.
//
// # Wire format
//
// Marshal and Unmarshal use canonical CBOR so identical code objects encode
// to identical bytes; the code cache relies on that.
package bytecode
