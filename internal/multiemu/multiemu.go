// Package multiemu creates emulation cores and loads ROM images into
// them. It is the only package that knows all the concrete systems;
// front ends depend on it and the emu interfaces alone.
package multiemu

import (
	"fmt"
	"os"

	"github.com/retroenv/retrogolib/log"

	"github.com/Saphereye/multiemu/internal/chip8"
	"github.com/Saphereye/multiemu/internal/emu"
	"github.com/Saphereye/multiemu/internal/gameboy"
)

// New creates a machine of the given system in power-on state.
func New(sys emu.System, logger *log.Logger) (emu.Machine, error) {
	switch sys {
	case emu.Chip8:
		return chip8.New(logger), nil
	case emu.GameBoy:
		return gameboy.New(logger), nil
	default:
		return nil, fmt.Errorf("unsupported system %s", sys)
	}
}

// LoadFile reads a ROM image from disk and installs it into the
// machine. Read failures come back as ROMReadError; anything the
// machine rejects passes through as its own typed error.
func LoadFile(m emu.Machine, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return emu.ROMReadError{Path: path, Err: err}
	}
	return m.Load(data)
}
