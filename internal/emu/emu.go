// Package emu defines the capability surface shared by all emulation cores
// and the error taxonomy they report through.
package emu

import (
	"fmt"
	"strings"
	"time"
)

// System identifies one of the supported emulation cores.
type System int

const (
	Chip8 System = iota
	GameBoy
)

func (s System) String() string {
	switch s {
	case Chip8:
		return "chip8"
	case GameBoy:
		return "gameboy"
	default:
		return fmt.Sprintf("system(%d)", int(s))
	}
}

// ParseSystem maps a user-supplied name to a System.
func ParseSystem(name string) (System, error) {
	switch strings.ToLower(name) {
	case "chip8", "chip-8":
		return Chip8, nil
	case "gameboy", "gb", "dmg":
		return GameBoy, nil
	default:
		return 0, fmt.Errorf("unknown system %q", name)
	}
}

// Key is one entry of a machine keymap: the input index the core reads
// through SetInputState and the host key label it is usually bound to.
type Key struct {
	Index int
	Label string
}

// Machine is the interface every emulation core implements. Front ends
// drive a core exclusively through it: feed input, step, tick timers,
// present the framebuffer. Step returns a typed error from this package
// when the guest program faults; the machine stays inspectable via
// Metadata afterwards.
type Machine interface {
	// System reports which core this machine is.
	System() System
	// Load validates and installs a ROM image, resetting the machine.
	// On error the machine keeps its previous state.
	Load(rom []byte) error
	// Reset restores power-on state. The loaded ROM stays in place.
	Reset()
	// Step fetches, decodes and executes a single instruction.
	Step() error
	// TickTimers advances time-based state by the elapsed wall time.
	// Independent of Step so hosts can run CPU speed and timer speed
	// on different schedules.
	TickTimers(delta time.Duration)
	// AudioActive reports whether the machine currently requests tone
	// output. Hosts map this to whatever audio backend they use.
	AudioActive() bool
	// Framebuffer returns the current frame as packed ARGB pixels,
	// row-major. The slice is owned by the machine; treat it as
	// read-only and invalidated by the next Step.
	Framebuffer() []uint32
	// Resolution returns the framebuffer dimensions in pixels.
	Resolution() (w, h int)
	// SetInputState latches the pressed state of the machine's keys.
	// The slice is indexed by Key.Index; missing entries read as
	// released.
	SetInputState(pressed []bool)
	// Keymap describes the machine's input keys in index order.
	Keymap() []Key
	// Metadata returns a debug snapshot of the machine state. The
	// snapshot is a copy; mutating it does not affect the machine.
	Metadata() Metadata
}

// Metadata is a point-in-time debug snapshot of a core. The concrete
// type behind it is per-system; front ends use the common accessors for
// tracing and String for a full state dump.
type Metadata interface {
	System() System
	ProgramCounter() uint16
	CurrentOpcode() uint16
	// Disassembly renders the current opcode as assembly text.
	Disassembly() string
	// String formats the whole snapshot, registers and stack included.
	String() string
}
