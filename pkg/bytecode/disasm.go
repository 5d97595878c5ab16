package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble returns a human-readable listing of the code object and
// every code object nested in its constant pool.
func (c *CodeObject) Disassemble() string {
	var sb strings.Builder
	c.disassembleInto(&sb)
	return sb.String()
}

func (c *CodeObject) disassembleInto(sb *strings.Builder) {
	fmt.Fprintf(sb, "; === %s (%s) ===\n", c.Name, c.Filename)
	fmt.Fprintf(sb, "; Serpent Bytecode v%d, %s\n", c.Version, c.Mode)

	if len(c.Params) > 0 {
		fmt.Fprintf(sb, "; Parameters (%d): %s\n", len(c.Params), strings.Join(c.Params, ", "))
	}

	if len(c.Constants) > 0 {
		sb.WriteString("; Constants:\n")
		for i, k := range c.Constants {
			display := k.String()
			if len(display) > 40 {
				display = display[:37] + "..."
			}
			fmt.Fprintf(sb, ";   [%3d] %s\n", i, display)
		}
	}

	if len(c.Names) > 0 {
		fmt.Fprintf(sb, "; Names: %s\n", strings.Join(c.Names, ", "))
	}

	if len(c.Handlers) > 0 {
		sb.WriteString("; Handlers:\n")
		for _, h := range c.Handlers {
			fmt.Fprintf(sb, ";   %04X-%04X -> %04X depth=%d", h.Start, h.End, h.Target, h.Depth)
			if h.Bind != "" {
				fmt.Fprintf(sb, " as %s", h.Bind)
			}
			sb.WriteString("\n")
		}
	}

	sb.WriteString("; Code:\n")
	lastLine := uint32(0)
	offset := 0
	for offset < len(c.Code) {
		line, instrLen := c.disassembleInstruction(offset)
		if srcLine, srcCol := c.GetSourceLocation(uint32(offset)); srcLine > 0 && srcLine != lastLine {
			fmt.Fprintf(sb, "%04X  %-36s ; line %d:%d\n", offset, line, srcLine, srcCol)
			lastLine = srcLine
		} else {
			fmt.Fprintf(sb, "%04X  %s\n", offset, line)
		}
		if instrLen == 0 {
			break
		}
		offset += instrLen
	}

	for _, k := range c.Constants {
		if k.Kind == ConstCode && k.Code != nil {
			sb.WriteString("\n")
			k.Code.disassembleInto(sb)
		}
	}
}

// disassembleInstruction disassembles a single instruction at the given offset.
// Returns the formatted string and the instruction length.
func (c *CodeObject) disassembleInstruction(offset int) (string, int) {
	if offset >= len(c.Code) {
		return "<end of code>", 0
	}

	op := Opcode(c.Code[offset])
	info := GetOpcodeInfo(op)
	instrLen := 1 + info.OperandLen
	if offset+instrLen > len(c.Code) {
		return fmt.Sprintf("%s <truncated>", info.Name), len(c.Code) - offset
	}

	switch {
	case op == OpLoadConst:
		idx := c.ReadU16(offset + 1)
		display := ""
		if int(idx) < len(c.Constants) {
			display = c.Constants[idx].String()
			if len(display) > 24 {
				display = display[:21] + "..."
			}
		}
		return fmt.Sprintf("%s %d ; %s", info.Name, idx, display), instrLen

	case usesName(op):
		idx := c.ReadU16(offset + 1)
		name := ""
		if int(idx) < len(c.Names) {
			name = c.Names[idx]
		}
		return fmt.Sprintf("%s %d ; %s", info.Name, idx, name), instrLen

	case op.IsJump():
		return fmt.Sprintf("%s -> %04X", info.Name, c.ReadU16(offset+1)), instrLen

	case op == OpBinary:
		return fmt.Sprintf("%s %s", info.Name, BinaryOp(c.Code[offset+1])), instrLen

	case op == OpCompare:
		return fmt.Sprintf("%s %s", info.Name, CompareOp(c.Code[offset+1])), instrLen

	case info.OperandLen == 2:
		return fmt.Sprintf("%s %d", info.Name, c.ReadU16(offset+1)), instrLen

	case info.OperandLen == 1:
		return fmt.Sprintf("%s %d", info.Name, c.Code[offset+1]), instrLen
	}
	return info.Name, instrLen
}

// DisassembleInstruction returns a human-readable representation of a single instruction.
func (c *CodeObject) DisassembleInstruction(offset int) string {
	line, _ := c.disassembleInstruction(offset)
	return line
}

// DisassembleToLines returns the disassembly of this code object alone as
// a slice of lines.
func (c *CodeObject) DisassembleToLines() []string {
	var lines []string
	offset := 0
	for offset < len(c.Code) {
		line, instrLen := c.disassembleInstruction(offset)
		lines = append(lines, fmt.Sprintf("%04X  %s", offset, line))
		if instrLen == 0 {
			break
		}
		offset += instrLen
	}
	return lines
}

// InstructionCount returns the number of instructions in the code object.
func (c *CodeObject) InstructionCount() int {
	count := 0
	offset := 0
	for offset < len(c.Code) {
		offset += Opcode(c.Code[offset]).InstructionLen()
		count++
	}
	return count
}
