package emu

import "fmt"

// The error types below are the full set of faults a core reports from
// Load and Step. All of them are recoverable: the machine stays in a
// consistent state and can be inspected or reset afterwards.

// UnrecognizedOpcodeError reports an opcode that decodes to no known
// instruction.
type UnrecognizedOpcodeError struct {
	Opcode uint16
	PC     uint16
}

func (e UnrecognizedOpcodeError) Error() string {
	return fmt.Sprintf("unrecognized opcode %#06x at pc %#06x", e.Opcode, e.PC)
}

// OpcodeUsageError reports a recognized opcode whose operand bits
// violate its encoding.
type OpcodeUsageError struct {
	Opcode uint16
	PC     uint16
	Hint   string
}

func (e OpcodeUsageError) Error() string {
	return fmt.Sprintf("invalid use of opcode %#06x at pc %#06x: %s", e.Opcode, e.PC, e.Hint)
}

// StackAccessError reports a call past the stack capacity or a return
// on an empty stack.
type StackAccessError struct {
	SP byte
	PC uint16
}

func (e StackAccessError) Error() string {
	return fmt.Sprintf("invalid stack access with sp %d at pc %#06x", e.SP, e.PC)
}

// MemoryAccessError reports a read or write outside addressable memory.
type MemoryAccessError struct {
	Addr uint16
	PC   uint16
}

func (e MemoryAccessError) Error() string {
	return fmt.Sprintf("invalid memory access at address %#06x, pc %#06x", e.Addr, e.PC)
}

// RegisterIndexError reports a register operand outside the register
// file.
type RegisterIndexError struct {
	Index byte
	PC    uint16
}

func (e RegisterIndexError) Error() string {
	return fmt.Sprintf("invalid register index %d at pc %#06x", e.Index, e.PC)
}

// ROMSizeError reports a ROM image that does not fit the machine's
// program area.
type ROMSizeError struct {
	Size     int
	Capacity int
}

func (e ROMSizeError) Error() string {
	return fmt.Sprintf("invalid rom: %d bytes exceeds capacity of %d", e.Size, e.Capacity)
}

// ROMReadError reports a failure reading a ROM image from disk.
type ROMReadError struct {
	Path string
	Err  error
}

func (e ROMReadError) Error() string {
	return fmt.Sprintf("reading rom %s: %v", e.Path, e.Err)
}

func (e ROMReadError) Unwrap() error { return e.Err }
