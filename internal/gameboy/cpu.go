package gameboy

import (
	"github.com/retroenv/retrogolib/log"

	"github.com/Saphereye/multiemu/internal/emu"
)

// SM83 flag bits in F. The low nibble of F always reads zero.
const (
	flagZ = 1 << 7
	flagN = 1 << 6
	flagH = 1 << 5
	flagC = 1 << 4
)

// Step fetches, decodes and executes one instruction. A halted CPU
// burns a machine cycle per step; with no interrupt delivery in this
// core only Reset leaves that state. Illegal encodings return
// UnrecognizedOpcodeError with the machine otherwise untouched past
// the opcode fetch.
func (m *Machine) Step() error {
	if m.halted {
		m.cycles += 4
		return nil
	}
	pc := m.pc
	op := m.fetch8()
	m.logger.Debug("step", log.Hex("pc", pc), log.Hex("opcode", op))
	m.opcode = uint16(op)
	pendingEI := m.eiPending
	if op == 0xCB {
		cb := m.fetch8()
		m.opcode = 0xCB00 | uint16(cb)
		m.executeCB(cb)
		m.cycles += uint64(cbCycles(cb))
	} else {
		taken, err := m.execute(op)
		if err != nil {
			return err
		}
		fallthru, branch := opcodeCycles(op)
		if taken {
			m.cycles += uint64(branch)
		} else {
			m.cycles += uint64(fallthru)
		}
	}
	// EI takes effect after the instruction that follows it. DI in
	// that window cancels the pending enable.
	if pendingEI && m.eiPending {
		m.ime = true
		m.eiPending = false
	}
	return nil
}

// execute runs one unprefixed opcode and reports whether a conditional
// branch was taken. The regular encoding blocks are decoded by bit
// pattern; the rest is a flat opcode switch.
func (m *Machine) execute(op byte) (bool, error) {
	switch {
	case op == 0x76: // halt
		m.halted = true
		return false, nil
	case op>>6 == 1: // ld r,r'
		m.setReg8((op>>3)&0x07, m.reg8(op&0x07))
		return false, nil
	case op>>6 == 2: // alu a,r
		m.alu((op>>3)&0x07, m.reg8(op&0x07))
		return false, nil
	case op&0xC7 == 0x04: // inc r
		m.incReg8((op >> 3) & 0x07)
		return false, nil
	case op&0xC7 == 0x05: // dec r
		m.decReg8((op >> 3) & 0x07)
		return false, nil
	case op&0xC7 == 0x06: // ld r,d8
		m.setReg8((op>>3)&0x07, m.fetch8())
		return false, nil
	case op&0xC7 == 0xC6: // alu a,d8
		m.alu((op>>3)&0x07, m.fetch8())
		return false, nil
	case op&0xC7 == 0xC7: // rst
		m.push16(m.pc)
		m.pc = uint16(op & 0x38)
		return false, nil
	case op&0xCF == 0x01: // ld rr,d16
		m.setPair((op>>4)&0x03, m.fetch16())
		return false, nil
	case op&0xCF == 0x03: // inc rr
		sel := (op >> 4) & 0x03
		m.setPair(sel, m.pair(sel)+1)
		return false, nil
	case op&0xCF == 0x0B: // dec rr
		sel := (op >> 4) & 0x03
		m.setPair(sel, m.pair(sel)-1)
		return false, nil
	case op&0xCF == 0x09: // add hl,rr
		m.addHL(m.pair((op >> 4) & 0x03))
		return false, nil
	case op&0xCF == 0xC5: // push rr, af in slot 3
		sel := (op >> 4) & 0x03
		if sel == 3 {
			m.push16(m.af())
		} else {
			m.push16(m.pair(sel))
		}
		return false, nil
	case op&0xCF == 0xC1: // pop rr, af in slot 3
		sel := (op >> 4) & 0x03
		if sel == 3 {
			m.setAF(m.pop16())
		} else {
			m.setPair(sel, m.pop16())
		}
		return false, nil
	}

	switch op {
	case 0x00: // nop
	case 0x02: // ld (bc),a
		m.bus.write(m.bc(), m.a)
	case 0x12: // ld (de),a
		m.bus.write(m.de(), m.a)
	case 0x0A: // ld a,(bc)
		m.a = m.bus.read(m.bc())
	case 0x1A: // ld a,(de)
		m.a = m.bus.read(m.de())
	case 0x22: // ld (hl+),a
		m.bus.write(m.hl(), m.a)
		m.setHL(m.hl() + 1)
	case 0x2A: // ld a,(hl+)
		m.a = m.bus.read(m.hl())
		m.setHL(m.hl() + 1)
	case 0x32: // ld (hl-),a
		m.bus.write(m.hl(), m.a)
		m.setHL(m.hl() - 1)
	case 0x3A: // ld a,(hl-)
		m.a = m.bus.read(m.hl())
		m.setHL(m.hl() - 1)
	case 0x08: // ld (a16),sp
		m.write16(m.fetch16(), m.sp)
	case 0x07: // rlca
		carry := m.a >> 7
		m.a = m.a<<1 | carry
		m.setZNHC(false, false, false, carry == 1)
	case 0x0F: // rrca
		carry := m.a & 1
		m.a = m.a>>1 | carry<<7
		m.setZNHC(false, false, false, carry == 1)
	case 0x17: // rla
		carry := m.a >> 7
		m.a <<= 1
		if m.f&flagC != 0 {
			m.a |= 0x01
		}
		m.setZNHC(false, false, false, carry == 1)
	case 0x1F: // rra
		carry := m.a & 1
		m.a >>= 1
		if m.f&flagC != 0 {
			m.a |= 0x80
		}
		m.setZNHC(false, false, false, carry == 1)
	case 0x18: // jr r8
		off := int8(m.fetch8())
		m.pc = uint16(int32(m.pc) + int32(off))
	case 0x20, 0x28, 0x30, 0x38: // jr cc,r8
		off := int8(m.fetch8())
		if !m.cond((op >> 3) & 0x03) {
			return false, nil
		}
		m.pc = uint16(int32(m.pc) + int32(off))
		return true, nil
	case 0x27: // daa
		m.daa()
	case 0x2F: // cpl
		m.a = ^m.a
		m.f |= flagN | flagH
	case 0x37: // scf
		m.f = m.f&flagZ | flagC
	case 0x3F: // ccf
		m.f = m.f&(flagZ|flagC) ^ flagC
	case 0xC3: // jp a16
		m.pc = m.fetch16()
	case 0xC2, 0xCA, 0xD2, 0xDA: // jp cc,a16
		addr := m.fetch16()
		if !m.cond((op >> 3) & 0x03) {
			return false, nil
		}
		m.pc = addr
		return true, nil
	case 0xE9: // jp hl
		m.pc = m.hl()
	case 0xCD: // call a16
		addr := m.fetch16()
		m.push16(m.pc)
		m.pc = addr
	case 0xC4, 0xCC, 0xD4, 0xDC: // call cc,a16
		addr := m.fetch16()
		if !m.cond((op >> 3) & 0x03) {
			return false, nil
		}
		m.push16(m.pc)
		m.pc = addr
		return true, nil
	case 0xC9: // ret
		m.pc = m.pop16()
	case 0xD9: // reti
		m.pc = m.pop16()
		m.ime = true
	case 0xC0, 0xC8, 0xD0, 0xD8: // ret cc
		if !m.cond((op >> 3) & 0x03) {
			return false, nil
		}
		m.pc = m.pop16()
		return true, nil
	case 0xE0: // ldh (a8),a
		m.bus.write(0xFF00|uint16(m.fetch8()), m.a)
	case 0xF0: // ldh a,(a8)
		m.a = m.bus.read(0xFF00 | uint16(m.fetch8()))
	case 0xE2: // ld (c),a
		m.bus.write(0xFF00|uint16(m.c), m.a)
	case 0xF2: // ld a,(c)
		m.a = m.bus.read(0xFF00 | uint16(m.c))
	case 0xEA: // ld (a16),a
		m.bus.write(m.fetch16(), m.a)
	case 0xFA: // ld a,(a16)
		m.a = m.bus.read(m.fetch16())
	case 0xE8: // add sp,r8
		m.sp = m.addSPr8()
	case 0xF8: // ld hl,sp+r8
		m.setHL(m.addSPr8())
	case 0xF9: // ld sp,hl
		m.sp = m.hl()
	case 0xF3: // di
		m.ime = false
		m.eiPending = false
	case 0xFB: // ei
		m.eiPending = true
	default:
		return false, emu.UnrecognizedOpcodeError{Opcode: uint16(op), PC: m.pc}
	}
	return false, nil
}

// executeCB runs a CB-prefixed opcode: rotates, shifts and swap in the
// low quarter, then bit test, reset and set.
func (m *Machine) executeCB(cb byte) {
	sel := cb & 0x07
	n := (cb >> 3) & 0x07
	switch cb >> 6 {
	case 0:
		v := m.reg8(sel)
		var carry bool
		switch n {
		case 0: // rlc
			carry = v&0x80 != 0
			v = v<<1 | v>>7
		case 1: // rrc
			carry = v&0x01 != 0
			v = v>>1 | v<<7
		case 2: // rl
			carry = v&0x80 != 0
			v <<= 1
			if m.f&flagC != 0 {
				v |= 0x01
			}
		case 3: // rr
			carry = v&0x01 != 0
			v >>= 1
			if m.f&flagC != 0 {
				v |= 0x80
			}
		case 4: // sla
			carry = v&0x80 != 0
			v <<= 1
		case 5: // sra
			carry = v&0x01 != 0
			v = v>>1 | v&0x80
		case 6: // swap
			v = v<<4 | v>>4
		default: // srl
			carry = v&0x01 != 0
			v >>= 1
		}
		m.setReg8(sel, v)
		m.setZNHC(v == 0, false, false, carry)
	case 1: // bit n,r
		m.f = m.f&flagC | flagH
		if m.reg8(sel)&(1<<n) == 0 {
			m.f |= flagZ
		}
	case 2: // res n,r
		m.setReg8(sel, m.reg8(sel)&^(1<<n))
	default: // set n,r
		m.setReg8(sel, m.reg8(sel)|1<<n)
	}
}

// reg8 reads the 8-bit register selected by a 3-bit opcode field;
// index 6 is the memory cell at HL.
func (m *Machine) reg8(sel byte) byte {
	switch sel {
	case 0:
		return m.b
	case 1:
		return m.c
	case 2:
		return m.d
	case 3:
		return m.e
	case 4:
		return m.h
	case 5:
		return m.l
	case 6:
		return m.bus.read(m.hl())
	default:
		return m.a
	}
}

func (m *Machine) setReg8(sel, v byte) {
	switch sel {
	case 0:
		m.b = v
	case 1:
		m.c = v
	case 2:
		m.d = v
	case 3:
		m.e = v
	case 4:
		m.h = v
	case 5:
		m.l = v
	case 6:
		m.bus.write(m.hl(), v)
	default:
		m.a = v
	}
}

// pair reads the 16-bit register pair selected by a 2-bit opcode
// field: BC, DE, HL, SP. The stack variants with AF in slot 3 are
// handled at the push/pop sites.
func (m *Machine) pair(sel byte) uint16 {
	switch sel {
	case 0:
		return m.bc()
	case 1:
		return m.de()
	case 2:
		return m.hl()
	default:
		return m.sp
	}
}

func (m *Machine) setPair(sel byte, v uint16) {
	switch sel {
	case 0:
		m.setBC(v)
	case 1:
		m.setDE(v)
	case 2:
		m.setHL(v)
	default:
		m.sp = v
	}
}

func (m *Machine) af() uint16 { return uint16(m.a)<<8 | uint16(m.f) }
func (m *Machine) bc() uint16 { return uint16(m.b)<<8 | uint16(m.c) }
func (m *Machine) de() uint16 { return uint16(m.d)<<8 | uint16(m.e) }
func (m *Machine) hl() uint16 { return uint16(m.h)<<8 | uint16(m.l) }

// setAF keeps the low nibble of F hardwired to zero.
func (m *Machine) setAF(v uint16) {
	m.a = byte(v >> 8)
	m.f = byte(v) & 0xF0
}

func (m *Machine) setBC(v uint16) {
	m.b = byte(v >> 8)
	m.c = byte(v)
}

func (m *Machine) setDE(v uint16) {
	m.d = byte(v >> 8)
	m.e = byte(v)
}

func (m *Machine) setHL(v uint16) {
	m.h = byte(v >> 8)
	m.l = byte(v)
}

func (m *Machine) setZNHC(z, n, h, c bool) {
	m.f = 0
	if z {
		m.f |= flagZ
	}
	if n {
		m.f |= flagN
	}
	if h {
		m.f |= flagH
	}
	if c {
		m.f |= flagC
	}
}

// cond evaluates a 2-bit condition code: nz, z, nc, c.
func (m *Machine) cond(sel byte) bool {
	switch sel {
	case 0:
		return m.f&flagZ == 0
	case 1:
		return m.f&flagZ != 0
	case 2:
		return m.f&flagC == 0
	default:
		return m.f&flagC != 0
	}
}

func (m *Machine) fetch8() byte {
	v := m.bus.read(m.pc)
	m.pc++
	return v
}

func (m *Machine) fetch16() uint16 {
	lo := m.fetch8()
	hi := m.fetch8()
	return uint16(hi)<<8 | uint16(lo)
}

func (m *Machine) push16(v uint16) {
	m.sp -= 2
	m.bus.write(m.sp, byte(v))
	m.bus.write(m.sp+1, byte(v>>8))
}

func (m *Machine) pop16() uint16 {
	lo := m.bus.read(m.sp)
	hi := m.bus.read(m.sp + 1)
	m.sp += 2
	return uint16(hi)<<8 | uint16(lo)
}

func (m *Machine) write16(addr, v uint16) {
	m.bus.write(addr, byte(v))
	m.bus.write(addr+1, byte(v>>8))
}

// alu applies the accumulator operation selected by a 3-bit opcode
// field: add, adc, sub, sbc, and, xor, or, cp.
func (m *Machine) alu(sel, v byte) {
	var (
		r          byte
		z, n, h, c bool
	)
	switch sel {
	case 0:
		r, z, n, h, c = add8(m.a, v)
	case 1:
		r, z, n, h, c = adc8(m.a, v, m.f&flagC != 0)
	case 2:
		r, z, n, h, c = sub8(m.a, v)
	case 3:
		r, z, n, h, c = sbc8(m.a, v, m.f&flagC != 0)
	case 4:
		r, z, n, h, c = and8(m.a, v)
	case 5:
		r, z, n, h, c = xor8(m.a, v)
	case 6:
		r, z, n, h, c = or8(m.a, v)
	default: // cp: flags of a subtraction, accumulator unchanged
		_, z, n, h, c = sub8(m.a, v)
		m.setZNHC(z, n, h, c)
		return
	}
	m.a = r
	m.setZNHC(z, n, h, c)
}

func (m *Machine) incReg8(sel byte) {
	v := m.reg8(sel) + 1
	m.setReg8(sel, v)
	m.setZNHC(v == 0, false, v&0x0F == 0, m.f&flagC != 0)
}

func (m *Machine) decReg8(sel byte) {
	v := m.reg8(sel) - 1
	m.setReg8(sel, v)
	m.setZNHC(v == 0, true, v&0x0F == 0x0F, m.f&flagC != 0)
}

// addHL adds a 16-bit value into HL. Z is preserved; H and C come from
// bits 11 and 15.
func (m *Machine) addHL(v uint16) {
	hl := m.hl()
	f := m.f & flagZ
	if (hl&0x0FFF)+(v&0x0FFF) > 0x0FFF {
		f |= flagH
	}
	if uint32(hl)+uint32(v) > 0xFFFF {
		f |= flagC
	}
	m.setHL(hl + v)
	m.f = f
}

// addSPr8 fetches the signed offset and returns SP plus it. H and C
// come from the unsigned low-byte addition, Z and N are cleared.
func (m *Machine) addSPr8() uint16 {
	off := m.fetch8()
	r := m.sp + uint16(int8(off))
	h := (m.sp&0x0F)+(uint16(off)&0x0F) > 0x0F
	c := (m.sp&0xFF)+(uint16(off)&0xFF) > 0xFF
	m.setZNHC(false, false, h, c)
	return r
}

// daa adjusts the accumulator to packed BCD after an addition or
// subtraction, using the N flag to tell which direction.
func (m *Machine) daa() {
	a := m.a
	carry := m.f&flagC != 0
	if m.f&flagN == 0 {
		if carry || a > 0x99 {
			a += 0x60
			carry = true
		}
		if m.f&flagH != 0 || a&0x0F > 0x09 {
			a += 0x06
		}
	} else {
		if carry {
			a -= 0x60
		}
		if m.f&flagH != 0 {
			a -= 0x06
		}
	}
	m.setZNHC(a == 0, m.f&flagN != 0, false, carry)
	m.a = a
}

func add8(a, b byte) (byte, bool, bool, bool, bool) {
	r := a + b
	h := (a&0x0F)+(b&0x0F) > 0x0F
	c := uint16(a)+uint16(b) > 0xFF
	return r, r == 0, false, h, c
}

func adc8(a, b byte, carry bool) (byte, bool, bool, bool, bool) {
	var ci byte
	if carry {
		ci = 1
	}
	r := a + b + ci
	h := (a&0x0F)+(b&0x0F)+ci > 0x0F
	c := uint16(a)+uint16(b)+uint16(ci) > 0xFF
	return r, r == 0, false, h, c
}

func sub8(a, b byte) (byte, bool, bool, bool, bool) {
	r := a - b
	return r, r == 0, true, a&0x0F < b&0x0F, a < b
}

func sbc8(a, b byte, carry bool) (byte, bool, bool, bool, bool) {
	var ci byte
	if carry {
		ci = 1
	}
	r := a - b - ci
	h := a&0x0F < (b&0x0F)+ci
	c := uint16(a) < uint16(b)+uint16(ci)
	return r, r == 0, true, h, c
}

func and8(a, b byte) (byte, bool, bool, bool, bool) {
	r := a & b
	return r, r == 0, false, true, false
}

func xor8(a, b byte) (byte, bool, bool, bool, bool) {
	r := a ^ b
	return r, r == 0, false, false, false
}

func or8(a, b byte) (byte, bool, bool, bool, bool) {
	r := a | b
	return r, r == 0, false, false, false
}
