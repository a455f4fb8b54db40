// Package gameboy implements a DMG Game Boy core: an SM83 CPU over the
// flat 64K address space, a background tile renderer and the post-boot
// state of the stock DMG. The cartridge is treated as plain 32K ROM
// with no banking controller.
package gameboy

import (
	"fmt"
	"strings"
	"time"

	"github.com/retroenv/retrogolib/log"

	"github.com/Saphereye/multiemu/internal/emu"
)

const (
	// ScreenWidth and ScreenHeight are the LCD dimensions in pixels.
	ScreenWidth  = 160
	ScreenHeight = 144

	// ROMCapacity is the cartridge window size. Larger images would
	// need a mapper.
	ROMCapacity = 0x8000

	// EntryPoint is where execution starts once the boot ROM has
	// handed over.
	EntryPoint = 0x0100
)

// Cartridge header title field.
const (
	titleStart = 0x0134
	titleEnd   = 0x0144
)

// dividerPeriod is the interval between DIV increments.
const dividerPeriod = time.Second / 60

// Compile-time check that the machine satisfies the shared interface.
var _ emu.Machine = (*Machine)(nil)

// Machine is a DMG Game Boy. The zero value is not usable; create one
// with New.
type Machine struct {
	logger *log.Logger
	bus    *bus

	a, f   byte
	b, c   byte
	d, e   byte
	h, l   byte
	sp, pc uint16

	ime       bool
	eiPending bool
	halted    bool

	opcode   uint16
	cycles   uint64
	timerAcc time.Duration

	fb [ScreenWidth * ScreenHeight]uint32
}

// New creates a machine in post-boot state with no cartridge loaded.
func New(logger *log.Logger) *Machine {
	if logger == nil {
		logger = log.NewWithConfig(log.DefaultConfig())
	}
	m := &Machine{
		logger: logger,
		bus:    &bus{},
	}
	m.Reset()
	return m
}

// System reports which core this machine is.
func (m *Machine) System() emu.System { return emu.GameBoy }

// Reset restores the state the stock DMG boot ROM leaves behind:
// registers and the handful of I/O registers it initializes, RAM and
// display cleared, PC at the cartridge entry point. The loaded ROM
// survives a reset.
func (m *Machine) Reset() {
	m.a, m.f = 0x01, 0xB0
	m.b, m.c = 0x00, 0x13
	m.d, m.e = 0x00, 0xD8
	m.h, m.l = 0x01, 0x4D
	m.sp = 0xFFFE
	m.pc = EntryPoint
	m.ime = false
	m.eiPending = false
	m.halted = false
	m.opcode = 0
	m.cycles = 0
	m.timerAcc = 0
	for i := range m.fb {
		m.fb[i] = shades[0]
	}
	m.bus.reset()
	m.bus.write(regP1, 0xCF)
	m.bus.write(regLCDC, 0x91)
	m.bus.write(regSCY, 0x00)
	m.bus.write(regSCX, 0x00)
	m.bus.write(regBGP, 0xFC)
}

// Load installs a cartridge image. The size is checked before any
// state changes, so a rejected image leaves the machine untouched.
func (m *Machine) Load(rom []byte) error {
	if len(rom) > ROMCapacity {
		return emu.ROMSizeError{Size: len(rom), Capacity: ROMCapacity}
	}
	m.bus.rom = append([]byte(nil), rom...)
	m.Reset()
	m.logger.Info("loaded rom",
		log.String("title", romTitle(rom)),
		log.Int("size", len(rom)))
	return nil
}

// romTitle extracts the printable cartridge title from the header.
// Images too small to carry a header yield an empty title.
func romTitle(rom []byte) string {
	if len(rom) < titleEnd {
		return ""
	}
	raw := rom[titleStart:titleEnd]
	end := 0
	for end < len(raw) && raw[end] >= 0x20 && raw[end] < 0x7F {
		end++
	}
	return strings.TrimSpace(string(raw[:end]))
}

// TickTimers advances the DIV divider by the elapsed wall time.
// Remainders accumulate across calls so irregular host frame times
// don't drift it.
func (m *Machine) TickTimers(delta time.Duration) {
	if delta <= 0 {
		return
	}
	m.timerAcc += delta
	for m.timerAcc >= dividerPeriod {
		m.timerAcc -= dividerPeriod
		m.bus.tickDivider()
	}
}

// AudioActive reports false: this core carries no APU.
func (m *Machine) AudioActive() bool { return false }

// Framebuffer renders the background layer and returns the LCD as
// packed ARGB pixels, row-major.
func (m *Machine) Framebuffer() []uint32 {
	m.renderBG()
	return m.fb[:]
}

// Resolution returns the LCD size in pixels.
func (m *Machine) Resolution() (w, h int) { return ScreenWidth, ScreenHeight }

// SetInputState latches the pressed state of the eight buttons.
// Entries beyond the pad size are ignored, missing entries read as
// released.
func (m *Machine) SetInputState(pressed []bool) {
	for i := range m.bus.keys {
		m.bus.keys[i] = i < len(pressed) && pressed[i]
	}
}

var keymap = []emu.Key{
	{Index: keyA, Label: "X"},
	{Index: keyB, Label: "Z"},
	{Index: keyStart, Label: "Return"},
	{Index: keySelect, Label: "RShift"},
	{Index: keyUp, Label: "Up"},
	{Index: keyDown, Label: "Down"},
	{Index: keyLeft, Label: "Left"},
	{Index: keyRight, Label: "Right"},
}

// Keymap returns the stock button layout: A and B on X and Z, Start
// and Select on Return and right shift, the D-pad on the arrow keys.
func (m *Machine) Keymap() []emu.Key { return keymap }

// Metadata holds a full copy of the machine state for debugging,
// including the CPU's view of the whole address space.
type Metadata struct {
	A, F, B, C, D, E, H, L byte
	SP, PC                 uint16
	IME, Halted            bool
	Opcode                 uint16
	Cycles                 uint64
	Memory                 [0x10000]byte
}

// Metadata returns a snapshot of the machine state. The memory image
// is the mapped view, echo RAM and open-bus reads included.
func (m *Machine) Metadata() emu.Metadata {
	md := &Metadata{
		A: m.a, F: m.f, B: m.b, C: m.c,
		D: m.d, E: m.e, H: m.h, L: m.l,
		SP: m.sp, PC: m.pc,
		IME: m.ime, Halted: m.halted,
		Opcode: m.opcode,
		Cycles: m.cycles,
	}
	for i := range md.Memory {
		md.Memory[i] = m.bus.read(uint16(i))
	}
	return md
}

func (md *Metadata) System() emu.System { return emu.GameBoy }

func (md *Metadata) ProgramCounter() uint16 { return md.PC }

func (md *Metadata) CurrentOpcode() uint16 { return md.Opcode }

func (md *Metadata) Disassembly() string { return Disassemble(md.Opcode) }

func (md *Metadata) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "gameboy pc=%#06x op=%#06x (%s) sp=%#06x ime=%t halted=%t cycles=%d\n",
		md.PC, md.Opcode, md.Disassembly(), md.SP, md.IME, md.Halted, md.Cycles)
	fmt.Fprintf(&b, "af=%02x%02x bc=%02x%02x de=%02x%02x hl=%02x%02x",
		md.A, md.F, md.B, md.C, md.D, md.E, md.H, md.L)
	return b.String()
}
