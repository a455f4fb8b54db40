package gameboy

import "fmt"

// Opcode table names. Operand bytes are not part of the captured
// opcode, so immediates render as their placeholder names (d8, d16,
// a8, a16, r8).
var (
	regNames   = [8]string{"b", "c", "d", "e", "h", "l", "(hl)", "a"}
	pairNames  = [4]string{"bc", "de", "hl", "sp"}
	stackNames = [4]string{"bc", "de", "hl", "af"}
	condNames  = [4]string{"nz", "z", "nc", "c"}
	aluNames   = [8]string{"add a,", "adc a,", "sub", "sbc a,", "and", "xor", "or", "cp"}
	rotNames   = [8]string{"rlc", "rrc", "rl", "rr", "sla", "sra", "swap", "srl"}
)

// Disassemble renders an opcode as captured by the machine, with
// CB-prefixed opcodes passed as 0xCBxx. Encodings the SM83 does not
// define render as data bytes.
func Disassemble(op uint16) string {
	if op>>8 == 0xCB {
		return disassembleCB(byte(op))
	}
	if op > 0xFF {
		return fmt.Sprintf(".word %#06x", op)
	}
	return disassemble(byte(op))
}

func disassemble(op byte) string {
	switch {
	case op == 0x76:
		return "halt"
	case op>>6 == 1:
		return fmt.Sprintf("ld %s, %s", regNames[(op>>3)&0x07], regNames[op&0x07])
	case op>>6 == 2:
		return fmt.Sprintf("%s %s", aluNames[(op>>3)&0x07], regNames[op&0x07])
	case op&0xC7 == 0x04:
		return "inc " + regNames[(op>>3)&0x07]
	case op&0xC7 == 0x05:
		return "dec " + regNames[(op>>3)&0x07]
	case op&0xC7 == 0x06:
		return fmt.Sprintf("ld %s, d8", regNames[(op>>3)&0x07])
	case op&0xC7 == 0xC6:
		return aluNames[(op>>3)&0x07] + " d8"
	case op&0xC7 == 0xC7:
		return fmt.Sprintf("rst $%02X", op&0x38)
	case op&0xCF == 0x01:
		return fmt.Sprintf("ld %s, d16", pairNames[(op>>4)&0x03])
	case op&0xCF == 0x03:
		return "inc " + pairNames[(op>>4)&0x03]
	case op&0xCF == 0x0B:
		return "dec " + pairNames[(op>>4)&0x03]
	case op&0xCF == 0x09:
		return "add hl, " + pairNames[(op>>4)&0x03]
	case op&0xCF == 0xC5:
		return "push " + stackNames[(op>>4)&0x03]
	case op&0xCF == 0xC1:
		return "pop " + stackNames[(op>>4)&0x03]
	}

	switch op {
	case 0x00:
		return "nop"
	case 0x02:
		return "ld (bc), a"
	case 0x12:
		return "ld (de), a"
	case 0x0A:
		return "ld a, (bc)"
	case 0x1A:
		return "ld a, (de)"
	case 0x22:
		return "ld (hl+), a"
	case 0x2A:
		return "ld a, (hl+)"
	case 0x32:
		return "ld (hl-), a"
	case 0x3A:
		return "ld a, (hl-)"
	case 0x08:
		return "ld (a16), sp"
	case 0x07:
		return "rlca"
	case 0x0F:
		return "rrca"
	case 0x17:
		return "rla"
	case 0x1F:
		return "rra"
	case 0x10:
		return "stop"
	case 0x18:
		return "jr r8"
	case 0x20, 0x28, 0x30, 0x38:
		return fmt.Sprintf("jr %s, r8", condNames[(op>>3)&0x03])
	case 0x27:
		return "daa"
	case 0x2F:
		return "cpl"
	case 0x37:
		return "scf"
	case 0x3F:
		return "ccf"
	case 0xC3:
		return "jp a16"
	case 0xC2, 0xCA, 0xD2, 0xDA:
		return fmt.Sprintf("jp %s, a16", condNames[(op>>3)&0x03])
	case 0xE9:
		return "jp hl"
	case 0xCD:
		return "call a16"
	case 0xC4, 0xCC, 0xD4, 0xDC:
		return fmt.Sprintf("call %s, a16", condNames[(op>>3)&0x03])
	case 0xC9:
		return "ret"
	case 0xD9:
		return "reti"
	case 0xC0, 0xC8, 0xD0, 0xD8:
		return "ret " + condNames[(op>>3)&0x03]
	case 0xE0:
		return "ldh (a8), a"
	case 0xF0:
		return "ldh a, (a8)"
	case 0xE2:
		return "ld (c), a"
	case 0xF2:
		return "ld a, (c)"
	case 0xEA:
		return "ld (a16), a"
	case 0xFA:
		return "ld a, (a16)"
	case 0xE8:
		return "add sp, r8"
	case 0xF8:
		return "ld hl, sp+r8"
	case 0xF9:
		return "ld sp, hl"
	case 0xF3:
		return "di"
	case 0xFB:
		return "ei"
	}
	return fmt.Sprintf(".byte %#04x", op)
}

func disassembleCB(cb byte) string {
	reg := regNames[cb&0x07]
	n := (cb >> 3) & 0x07
	switch cb >> 6 {
	case 0:
		return fmt.Sprintf("%s %s", rotNames[n], reg)
	case 1:
		return fmt.Sprintf("bit %d, %s", n, reg)
	case 2:
		return fmt.Sprintf("res %d, %s", n, reg)
	default:
		return fmt.Sprintf("set %d, %s", n, reg)
	}
}
