package emu

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/retroenv/retrogolib/assert"
)

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "unrecognized opcode",
			err:  UnrecognizedOpcodeError{Opcode: 0xF0FF, PC: 0x0202},
			want: "unrecognized opcode 0xf0ff at pc 0x0202",
		},
		{
			name: "opcode usage",
			err:  OpcodeUsageError{Opcode: 0x5051, PC: 0x0200, Hint: "set last nibble to 0"},
			want: "invalid use of opcode 0x5051 at pc 0x0200: set last nibble to 0",
		},
		{
			name: "stack access",
			err:  StackAccessError{SP: 16, PC: 0x0204},
			want: "invalid stack access with sp 16 at pc 0x0204",
		},
		{
			name: "memory access",
			err:  MemoryAccessError{Addr: 0x1000, PC: 0x0200},
			want: "invalid memory access at address 0x1000, pc 0x0200",
		},
		{
			name: "register index",
			err:  RegisterIndexError{Index: 16, PC: 0x0200},
			want: "invalid register index 16 at pc 0x0200",
		},
		{
			name: "rom size",
			err:  ROMSizeError{Size: 4000, Capacity: 3584},
			want: "invalid rom: 4000 bytes exceeds capacity of 3584",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestErrorsAsMatchesConcreteType(t *testing.T) {
	var err error = StackAccessError{SP: 0, PC: 0x0202}

	var stackErr StackAccessError
	assert.True(t, errors.As(err, &stackErr))
	assert.Equal(t, byte(0), stackErr.SP)
	assert.Equal(t, uint16(0x0202), stackErr.PC)

	var memErr MemoryAccessError
	assert.False(t, errors.As(err, &memErr))
}

func TestROMReadErrorUnwrap(t *testing.T) {
	err := ROMReadError{Path: "missing.ch8", Err: fs.ErrNotExist}

	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.ErrorContains(t, err, "missing.ch8")
}
