package chip8

import (
	"fmt"

	chip8arch "github.com/retroenv/retrogolib/arch/cpu/chip8"
)

// Disassemble renders a raw opcode as assembly text for traces and
// state dumps. Encodings that match no instruction render as a data
// word. Decoding for execution happens in the dispatch switch; only
// the instruction table is shared with it.
func Disassemble(op uint16) string {
	ins := lookupInstruction(op)
	if ins == nil {
		return fmt.Sprintf(".word %#06x", op)
	}

	if operands := formatOperands(op); operands != "" {
		return ins.Name + " " + operands
	}
	return ins.Name
}

// lookupInstruction matches an opcode against the mask/value table,
// first match wins.
func lookupInstruction(op uint16) *chip8arch.Instruction {
	for _, candidate := range chip8arch.Opcodes[int(op>>12)] {
		if candidate.Info.Mask&op == candidate.Info.Value {
			return candidate.Instruction
		}
	}
	return nil
}

func formatOperands(op uint16) string {
	x := (op >> 8) & 0x0F
	y := (op >> 4) & 0x0F
	n := op & 0x000F
	kk := op & 0x00FF
	nnn := op & 0x0FFF

	switch op & 0xF000 {
	case 0x0000:
		return ""
	case 0x1000, 0x2000:
		return fmt.Sprintf("$%03X", nnn)
	case 0x3000, 0x4000, 0x6000, 0x7000, 0xC000:
		return fmt.Sprintf("V%X, $%02X", x, kk)
	case 0x5000, 0x9000:
		return fmt.Sprintf("V%X, V%X", x, y)
	case 0x8000:
		if n == 0x6 || n == 0xE {
			return fmt.Sprintf("V%X", x)
		}
		return fmt.Sprintf("V%X, V%X", x, y)
	case 0xA000:
		return fmt.Sprintf("I, $%03X", nnn)
	case 0xB000:
		return fmt.Sprintf("V0, $%03X", nnn)
	case 0xD000:
		return fmt.Sprintf("V%X, V%X, $%X", x, y, n)
	case 0xE000:
		return fmt.Sprintf("V%X", x)
	case 0xF000:
		switch kk {
		case 0x07:
			return fmt.Sprintf("V%X, DT", x)
		case 0x0A:
			return fmt.Sprintf("V%X, K", x)
		case 0x15:
			return fmt.Sprintf("DT, V%X", x)
		case 0x18:
			return fmt.Sprintf("ST, V%X", x)
		case 0x1E:
			return fmt.Sprintf("I, V%X", x)
		case 0x29:
			return fmt.Sprintf("F, V%X", x)
		case 0x33:
			return fmt.Sprintf("B, V%X", x)
		case 0x55:
			return fmt.Sprintf("[I], V%X", x)
		case 0x65:
			return fmt.Sprintf("V%X, [I]", x)
		}
	}
	return ""
}
