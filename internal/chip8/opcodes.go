package chip8

import (
	"github.com/retroenv/retrogolib/log"

	"github.com/Saphereye/multiemu/internal/emu"
)

// Step runs one fetch/decode/execute cycle. The program counter moves
// past the instruction before execution, so control flow instructions
// already see the address of the next instruction. A failing
// instruction changes nothing beyond the fetch itself: errors are
// raised before any register, memory or display writes happen.
func (m *Machine) Step() error {
	if int(m.pc)+1 >= MemorySize {
		return emu.MemoryAccessError{Addr: m.pc, PC: m.pc}
	}
	op := uint16(m.mem[m.pc])<<8 | uint16(m.mem[m.pc+1])
	m.logger.Debug("step", log.Hex("pc", m.pc), log.Hex("opcode", op))
	m.opcode = op
	m.pc += 2
	return m.execute(op)
}

func (m *Machine) execute(op uint16) error {
	x := byte(op>>8) & 0x0F
	y := byte(op>>4) & 0x0F
	n := byte(op) & 0x0F
	kk := byte(op)
	nnn := op & 0x0FFF

	switch op & 0xF000 {
	case 0x0000:
		switch op {
		case 0x00E0: // CLS
			for i := range m.fb {
				m.fb[i] = pixelOff
			}
		case 0x00EE: // RET
			if m.sp == 0 {
				return emu.StackAccessError{SP: m.sp, PC: m.pc}
			}
			m.sp--
			m.pc = m.stack[m.sp]
		default:
			// SYS addr jumps into interpreter-native routines, which
			// don't exist here.
			return emu.UnrecognizedOpcodeError{Opcode: op, PC: m.pc}
		}

	case 0x1000: // JP addr
		m.pc = nnn

	case 0x2000: // CALL addr
		if m.sp >= StackDepth {
			return emu.StackAccessError{SP: m.sp, PC: m.pc}
		}
		m.stack[m.sp] = m.pc
		m.sp++
		m.pc = nnn

	case 0x3000: // SE Vx, byte
		if m.v[x] == kk {
			m.pc += 2
		}

	case 0x4000: // SNE Vx, byte
		if m.v[x] != kk {
			m.pc += 2
		}

	case 0x5000: // SE Vx, Vy
		if n != 0 {
			return emu.OpcodeUsageError{Opcode: op, PC: m.pc, Hint: "set last nibble to 0"}
		}
		if m.v[x] == m.v[y] {
			m.pc += 2
		}

	case 0x6000: // LD Vx, byte
		m.v[x] = kk

	case 0x7000: // ADD Vx, byte (no carry flag)
		m.v[x] += kk

	case 0x8000:
		return m.executeALU(op, x, y, n)

	case 0x9000: // SNE Vx, Vy
		if n != 0 {
			return emu.OpcodeUsageError{Opcode: op, PC: m.pc, Hint: "set last nibble to 0"}
		}
		if m.v[x] != m.v[y] {
			m.pc += 2
		}

	case 0xA000: // LD I, addr
		m.i = nnn

	case 0xB000: // JP V0, addr
		m.pc = uint16(m.v[0]) + nnn

	case 0xC000: // RND Vx, byte
		m.v[x] = m.rng.next() & kk

	case 0xD000:
		return m.executeDraw(x, y, n)

	case 0xE000:
		switch kk {
		case 0x9E: // SKP Vx
			if m.keys[m.vxNibble(x)] {
				m.pc += 2
			}
		case 0xA1: // SKNP Vx
			if !m.keys[m.vxNibble(x)] {
				m.pc += 2
			}
		default:
			return emu.OpcodeUsageError{Opcode: op, PC: m.pc,
				Hint: "for Ex prefix only suffixes 9E and A1 are supported"}
		}

	case 0xF000:
		return m.executeMisc(op, x, kk)
	}

	return nil
}

func (m *Machine) executeALU(op uint16, x, y, n byte) error {
	switch n {
	case 0x0: // LD Vx, Vy
		m.v[x] = m.v[y]

	case 0x1: // OR Vx, Vy
		m.v[x] |= m.v[y]
		if !m.quirks.KeepFlagOnLogic {
			m.v[0xF] = 0
		}

	case 0x2: // AND Vx, Vy
		m.v[x] &= m.v[y]
		if !m.quirks.KeepFlagOnLogic {
			m.v[0xF] = 0
		}

	case 0x3: // XOR Vx, Vy
		m.v[x] ^= m.v[y]
		if !m.quirks.KeepFlagOnLogic {
			m.v[0xF] = 0
		}

	case 0x4: // ADD Vx, Vy, VF = carry
		sum := uint16(m.v[x]) + uint16(m.v[y])
		m.v[x] = byte(sum)
		if sum > 0xFF {
			m.v[0xF] = 1
		} else {
			m.v[0xF] = 0
		}

	case 0x5: // SUB Vx, Vy, VF = not borrow
		noBorrow := m.v[x] >= m.v[y]
		m.v[x] -= m.v[y]
		m.v[0xF] = flag(noBorrow)

	case 0x6: // SHR Vx {, Vy}, VF = shifted out bit
		src := m.v[y]
		if m.quirks.ShiftUsesVX {
			src = m.v[x]
		}
		carry := src & 0x01
		m.v[x] = src >> 1
		m.v[0xF] = carry

	case 0x7: // SUBN Vx, Vy, VF = not borrow
		noBorrow := m.v[y] >= m.v[x]
		m.v[x] = m.v[y] - m.v[x]
		m.v[0xF] = flag(noBorrow)

	case 0xE: // SHL Vx {, Vy}, VF = shifted out bit
		src := m.v[y]
		if m.quirks.ShiftUsesVX {
			src = m.v[x]
		}
		carry := src >> 7
		m.v[x] = src << 1
		m.v[0xF] = carry

	default:
		return emu.OpcodeUsageError{Opcode: op, PC: m.pc,
			Hint: "set last nibble to 0, 1, 2, 3, 4, 5, 6, 7 or E"}
	}

	return nil
}

// executeDraw XORs an n-row sprite read from I onto the display at
// (Vx, Vy). Both the start position and every pixel wrap around the
// display edges. VF reports whether any lit pixel was cleared. The
// whole sprite range is validated before the first pixel is touched,
// so a faulting draw leaves the display unchanged.
func (m *Machine) executeDraw(x, y, n byte) error {
	if err := m.checkMemRange(m.i, int(n)); err != nil {
		return err
	}

	xPos := int(m.v[x]) % DisplayWidth
	yPos := int(m.v[y]) % DisplayHeight
	m.v[0xF] = 0

	for row := 0; row < int(n); row++ {
		spriteByte := m.mem[int(m.i)+row]
		screenY := (yPos + row) % DisplayHeight
		for col := 0; col < 8; col++ {
			if spriteByte&(0x80>>col) == 0 {
				continue
			}
			screenX := (xPos + col) % DisplayWidth
			idx := screenY*DisplayWidth + screenX
			if m.fb[idx] == pixelOn {
				m.v[0xF] = 1
			}
			m.fb[idx] ^= pixelToggle
		}
	}

	return nil
}

func (m *Machine) executeMisc(op uint16, x, kk byte) error {
	switch kk {
	case 0x07: // LD Vx, DT
		m.v[x] = m.delay

	case 0x0A: // LD Vx, K: wait for a key press, then its release
		for i := range m.keys {
			if m.keys[i] {
				m.v[x] = byte(i)
				m.keyLatched = true
				break
			}
		}
		if m.keyLatched && !m.anyKeyDown() {
			m.keyLatched = false
		} else {
			m.pc -= 2
		}

	case 0x15: // LD DT, Vx
		m.delay = m.v[x]

	case 0x18: // LD ST, Vx
		m.sound = m.v[x]

	case 0x1E: // ADD I, Vx
		m.i += uint16(m.v[x])

	case 0x29: // LD F, Vx: point I at the glyph for digit Vx
		m.i = FontStart + uint16(m.vxNibble(x))*5

	case 0x33: // LD B, Vx: BCD of Vx to [I], [I+1], [I+2]
		if err := m.checkMemRange(m.i, 3); err != nil {
			return err
		}
		v := m.v[x]
		m.mem[m.i] = v / 100
		m.mem[m.i+1] = (v / 10) % 10
		m.mem[m.i+2] = v % 10

	case 0x55: // LD [I], Vx: store V0..Vx starting at I
		if err := m.checkMemRange(m.i, int(x)+1); err != nil {
			return err
		}
		for i := byte(0); i <= x; i++ {
			m.mem[m.i+uint16(i)] = m.v[i]
		}
		if !m.quirks.KeepIndexOnBlockCopy {
			m.i += uint16(x) + 1
		}

	case 0x65: // LD Vx, [I]: load V0..Vx starting at I
		if err := m.checkMemRange(m.i, int(x)+1); err != nil {
			return err
		}
		for i := byte(0); i <= x; i++ {
			m.v[i] = m.mem[m.i+uint16(i)]
		}
		if !m.quirks.KeepIndexOnBlockCopy {
			m.i += uint16(x) + 1
		}

	default:
		return emu.OpcodeUsageError{Opcode: op, PC: m.pc,
			Hint: "for Fx prefix only suffixes 07, 0A, 15, 18, 1E, 29, 33, 55 and 65 are supported"}
	}

	return nil
}

// checkMemRange validates that count bytes starting at addr fit into
// memory. On failure it reports the first address outside the valid
// range.
func (m *Machine) checkMemRange(addr uint16, count int) error {
	if int(addr)+count <= MemorySize {
		return nil
	}
	first := addr
	if int(first) < MemorySize {
		first = MemorySize
	}
	return emu.MemoryAccessError{Addr: first, PC: m.pc}
}

// vxNibble reads Vx as a 4-bit key or glyph index. Guest bugs can
// leave larger values here, so it folds them back into range with a
// warning instead of faulting.
func (m *Machine) vxNibble(x byte) byte {
	v := m.v[x]
	if v > 15 {
		m.logger.Warn("register value not in 0..15 range",
			log.Uint8("value", v),
			log.Hex("opcode", m.opcode),
			log.Hex("pc", m.pc))
		v %= 16
	}
	return v
}

func (m *Machine) anyKeyDown() bool {
	for _, down := range m.keys {
		if down {
			return true
		}
	}
	return false
}

func flag(b bool) byte {
	if b {
		return 1
	}
	return 0
}
