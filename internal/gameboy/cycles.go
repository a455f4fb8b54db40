package gameboy

// Cycle costs in T-states. Conditional control flow has two costs, one
// for the fall-through path and one for the taken branch; everything
// else costs the same either way.

// opcodeCycles returns the (untaken, taken) cost of an unprefixed
// opcode. Illegal encodings return zero; they fault before any cost is
// charged.
func opcodeCycles(op byte) (untaken, taken int) {
	switch {
	case op == 0x76: // halt
		return 4, 4
	case op>>6 == 1: // ld r,r'
		if op&0x07 == 6 || (op>>3)&0x07 == 6 {
			return 8, 8
		}
		return 4, 4
	case op>>6 == 2: // alu a,r
		if op&0x07 == 6 {
			return 8, 8
		}
		return 4, 4
	}

	switch op {
	case 0x20, 0x28, 0x30, 0x38: // jr cc,r8
		return 8, 12
	case 0xC0, 0xC8, 0xD0, 0xD8: // ret cc
		return 8, 20
	case 0xC2, 0xCA, 0xD2, 0xDA: // jp cc,a16
		return 12, 16
	case 0xC4, 0xCC, 0xD4, 0xDC: // call cc,a16
		return 12, 24
	case 0x00, // nop
		0x04, 0x0C, 0x14, 0x1C, 0x24, 0x2C, 0x3C, // inc r
		0x05, 0x0D, 0x15, 0x1D, 0x25, 0x2D, 0x3D, // dec r
		0x07, 0x0F, 0x17, 0x1F, // rotate a
		0x27, 0x2F, 0x37, 0x3F, // daa, cpl, scf, ccf
		0xE9,       // jp hl
		0xF3, 0xFB: // di, ei
		return 4, 4
	case 0x02, 0x12, 0x0A, 0x1A, // ld (bc)/(de) indirections
		0x22, 0x2A, 0x32, 0x3A, // ld (hl±)
		0x03, 0x13, 0x23, 0x33, // inc rr
		0x0B, 0x1B, 0x2B, 0x3B, // dec rr
		0x06, 0x0E, 0x16, 0x1E, 0x26, 0x2E, 0x3E, // ld r,d8
		0x09, 0x19, 0x29, 0x39, // add hl,rr
		0xC6, 0xCE, 0xD6, 0xDE, 0xE6, 0xEE, 0xF6, 0xFE, // alu a,d8
		0xE2, 0xF2, // ld (c) indirections
		0xF9: // ld sp,hl
		return 8, 8
	case 0x01, 0x11, 0x21, 0x31, // ld rr,d16
		0x34, 0x35, 0x36, // inc/dec/ld (hl) direct
		0x18,             // jr r8
		0xC1, 0xD1, 0xE1, 0xF1, // pop rr
		0xE0, 0xF0, // ldh
		0xF8: // ld hl,sp+r8
		return 12, 12
	case 0xC3, // jp a16
		0xC5, 0xD5, 0xE5, 0xF5, // push rr
		0xC7, 0xCF, 0xD7, 0xDF, 0xE7, 0xEF, 0xF7, 0xFF, // rst
		0xC9, 0xD9, // ret, reti
		0xEA, 0xFA, // ld (a16) indirections
		0xE8: // add sp,r8
		return 16, 16
	case 0x08: // ld (a16),sp
		return 20, 20
	case 0xCD: // call a16
		return 24, 24
	}
	return 0, 0
}

// cbCycles returns the cost of a CB-prefixed opcode, prefix fetch
// included. Register forms take 8 cycles; the (HL) forms take 16,
// except BIT which only reads and takes 12.
func cbCycles(cb byte) int {
	if cb&0x07 != 6 {
		return 8
	}
	if cb>>6 == 1 {
		return 12
	}
	return 16
}
