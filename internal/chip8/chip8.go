// Package chip8 implements the CHIP-8 virtual machine: 4K of memory,
// sixteen 8-bit registers, a bounded call stack, two 60 Hz timers, a
// 16-key pad and a 64x32 monochrome display composited by XOR.
package chip8

import (
	"fmt"
	"strings"
	"time"

	"github.com/retroenv/retrogolib/log"

	"github.com/Saphereye/multiemu/internal/emu"
)

const (
	// MemorySize is the full addressable memory of the machine.
	MemorySize = 4096
	// ProgramStart is where ROM images are loaded and execution begins.
	ProgramStart = 0x200
	// FontStart is where the built-in hex digit glyphs live.
	FontStart = 0x050

	NumRegisters = 16
	StackDepth   = 16
	NumKeys      = 16

	DisplayWidth  = 64
	DisplayHeight = 32
)

// Framebuffer pixel values. A pixel toggles between on and off by
// XORing the color channels, leaving alpha untouched.
const (
	pixelOn     = 0xFFFFFFFF
	pixelOff    = 0xFF000000
	pixelToggle = 0x00FFFFFF
)

// timerPeriod is the interval between timer decrements.
const timerPeriod = time.Second / 60

// Default parameters of the byte-wide LCG behind the random
// instruction.
const (
	rngMul  = 75
	rngInc  = 1
	rngSeed = 31
)

// Quirks selects between historically divergent interpreter behaviors.
// The zero value matches the classic COSMAC VIP interpreter; later
// interpreters changed these and some ROMs depend on one side or the
// other.
type Quirks struct {
	// ShiftUsesVX makes the shift instructions operate on Vx in place
	// instead of shifting Vy into Vx.
	ShiftUsesVX bool
	// KeepFlagOnLogic leaves VF untouched by OR/AND/XOR instead of
	// clearing it.
	KeepFlagOnLogic bool
	// KeepIndexOnBlockCopy leaves I unchanged by the register block
	// load/store instructions instead of advancing it by x+1.
	KeepIndexOnBlockCopy bool
}

// DefaultQuirks returns the classic interpreter behavior.
func DefaultQuirks() Quirks {
	return Quirks{}
}

// Compile-time check that the machine satisfies the shared interface.
var _ emu.Machine = (*Machine)(nil)

// Machine is a CHIP-8 virtual machine. The zero value is not usable;
// create one with New.
type Machine struct {
	logger *log.Logger
	quirks Quirks
	rng    lcg

	mem   [MemorySize]byte
	v     [NumRegisters]byte
	i     uint16
	pc    uint16
	stack [StackDepth]uint16
	sp    byte

	delay    byte
	sound    byte
	timerAcc time.Duration

	keys [NumKeys]bool
	// keyLatched is set once the key-wait instruction has captured a
	// key; the instruction completes on a later step when all keys are
	// released again.
	keyLatched bool

	opcode uint16
	fb     [DisplayWidth * DisplayHeight]uint32
}

// New creates a machine with default quirks in power-on state.
func New(logger *log.Logger) *Machine {
	return NewWithQuirks(logger, DefaultQuirks())
}

// NewWithQuirks creates a machine with explicit quirk settings.
func NewWithQuirks(logger *log.Logger, quirks Quirks) *Machine {
	if logger == nil {
		logger = log.NewWithConfig(log.DefaultConfig())
	}
	m := &Machine{
		logger: logger,
		quirks: quirks,
	}
	m.Reset()
	return m
}

// System reports which core this machine is.
func (m *Machine) System() emu.System { return emu.Chip8 }

// Reset restores power-on state: cleared registers, stack, timers,
// keys and display, the font glyphs back in place, the RNG reseeded
// and PC at the program start. Memory outside the font area is left
// alone, so a loaded program survives a reset.
func (m *Machine) Reset() {
	copy(m.mem[FontStart:], fontset[:])
	m.v = [NumRegisters]byte{}
	m.i = 0
	m.pc = ProgramStart
	m.stack = [StackDepth]uint16{}
	m.sp = 0
	m.delay = 0
	m.sound = 0
	m.timerAcc = 0
	m.keys = [NumKeys]bool{}
	m.keyLatched = false
	m.opcode = 0
	for i := range m.fb {
		m.fb[i] = pixelOff
	}
	m.rng = newLCG(rngMul, rngInc, rngSeed)
}

// Load installs a ROM image at the program start. The size is checked
// before any state changes, so a rejected image leaves the machine
// untouched.
func (m *Machine) Load(rom []byte) error {
	if len(rom) > MemorySize-ProgramStart {
		return emu.ROMSizeError{Size: len(rom), Capacity: MemorySize - ProgramStart}
	}
	m.Reset()
	clear(m.mem[ProgramStart:])
	copy(m.mem[ProgramStart:], rom)
	m.logger.Debug("loaded rom",
		log.Int("size", len(rom)),
		log.Hex("start", uint16(ProgramStart)))
	return nil
}

// TickTimers advances the delay and sound timers by the elapsed wall
// time, one decrement per 60 Hz period. Remainders accumulate across
// calls so irregular host frame times don't drift the timers.
func (m *Machine) TickTimers(delta time.Duration) {
	if delta <= 0 {
		return
	}
	m.timerAcc += delta
	for m.timerAcc >= timerPeriod {
		m.timerAcc -= timerPeriod
		if m.delay > 0 {
			m.delay--
		}
		if m.sound > 0 {
			m.sound--
		}
	}
}

// AudioActive reports whether the sound timer is running. The host
// decides what a tone sounds like.
func (m *Machine) AudioActive() bool { return m.sound > 0 }

// Framebuffer returns the display as packed ARGB pixels, row-major.
func (m *Machine) Framebuffer() []uint32 { return m.fb[:] }

// Resolution returns the display size in pixels.
func (m *Machine) Resolution() (w, h int) { return DisplayWidth, DisplayHeight }

// SetInputState latches the pressed state of the 16 keys. Entries
// beyond the pad size are ignored, missing entries read as released.
func (m *Machine) SetInputState(pressed []bool) {
	for i := range m.keys {
		m.keys[i] = i < len(pressed) && pressed[i]
	}
}

var keymap = []emu.Key{
	{Index: 0x0, Label: "X"},
	{Index: 0x1, Label: "1"},
	{Index: 0x2, Label: "2"},
	{Index: 0x3, Label: "3"},
	{Index: 0x4, Label: "Q"},
	{Index: 0x5, Label: "W"},
	{Index: 0x6, Label: "E"},
	{Index: 0x7, Label: "A"},
	{Index: 0x8, Label: "S"},
	{Index: 0x9, Label: "D"},
	{Index: 0xA, Label: "Z"},
	{Index: 0xB, Label: "C"},
	{Index: 0xC, Label: "4"},
	{Index: 0xD, Label: "R"},
	{Index: 0xE, Label: "F"},
	{Index: 0xF, Label: "V"},
}

// Keymap returns the classic hex pad layout on the left block of a
// QWERTY keyboard.
func (m *Machine) Keymap() []emu.Key { return keymap }

// Metadata holds a full copy of the machine state for debugging.
type Metadata struct {
	V      [NumRegisters]byte
	I      uint16
	PC     uint16
	Stack  [StackDepth]uint16
	SP     byte
	Delay  byte
	Sound  byte
	Opcode uint16
	Keys   [NumKeys]bool
	Memory [MemorySize]byte
}

// Metadata returns a snapshot of the machine state. The snapshot is a
// copy and stays valid while the machine runs on.
func (m *Machine) Metadata() emu.Metadata {
	return &Metadata{
		V:      m.v,
		I:      m.i,
		PC:     m.pc,
		Stack:  m.stack,
		SP:     m.sp,
		Delay:  m.delay,
		Sound:  m.sound,
		Opcode: m.opcode,
		Keys:   m.keys,
		Memory: m.mem,
	}
}

func (md *Metadata) System() emu.System { return emu.Chip8 }

func (md *Metadata) ProgramCounter() uint16 { return md.PC }

func (md *Metadata) CurrentOpcode() uint16 { return md.Opcode }

func (md *Metadata) Disassembly() string { return Disassemble(md.Opcode) }

func (md *Metadata) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "chip8 pc=%#06x op=%#06x (%s) i=%#06x sp=%d delay=%d sound=%d\n",
		md.PC, md.Opcode, md.Disassembly(), md.I, md.SP, md.Delay, md.Sound)
	b.WriteString("v:")
	for _, v := range md.V {
		fmt.Fprintf(&b, " %02x", v)
	}
	b.WriteString("\nstack:")
	for i := byte(0); i < md.SP && int(i) < len(md.Stack); i++ {
		fmt.Fprintf(&b, " %#06x", md.Stack[i])
	}
	return b.String()
}
