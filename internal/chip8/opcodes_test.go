package chip8

import (
	"errors"
	"testing"

	"github.com/Saphereye/multiemu/internal/emu"
)

func TestALUBoundaries(t *testing.T) {
	// All cases run as 8xy? with x=1, y=2 and VF preset to 1 so the
	// expected flag value proves an explicit write.
	tests := []struct {
		name   string
		vx, vy byte
		op     uint16
		want   byte
		wantVF byte
	}{
		{"add with carry", 0xFF, 0x01, 0x8124, 0x00, 1},
		{"add without carry", 0x0F, 0x01, 0x8124, 0x10, 0},
		{"sub with borrow", 0x00, 0x01, 0x8125, 0xFF, 0},
		{"sub equal operands", 0x01, 0x01, 0x8125, 0x00, 1},
		{"sub without borrow", 0x10, 0x01, 0x8125, 0x0F, 1},
		{"subn with borrow", 0x01, 0x00, 0x8127, 0xFF, 0},
		{"subn without borrow", 0x05, 0x0A, 0x8127, 0x05, 1},
		{"or clears flag", 0xF0, 0x0F, 0x8121, 0xFF, 0},
		{"and clears flag", 0xF0, 0x1F, 0x8122, 0x10, 0},
		{"xor clears flag", 0xFF, 0x0F, 0x8123, 0xF0, 0},
		{"copy register", 0x00, 0x77, 0x8120, 0x77, 1},
		{"shr takes vy low bit", 0x00, 0x03, 0x8126, 0x01, 1},
		{"shr even vy", 0x00, 0x04, 0x8126, 0x02, 0},
		{"shl takes vy high bit", 0x00, 0x81, 0x812E, 0x02, 1},
		{"shl low vy", 0x00, 0x41, 0x812E, 0x82, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMachine(t)
			m.v[1] = tt.vx
			m.v[2] = tt.vy
			m.v[0xF] = 1
			if err := m.execute(tt.op); err != nil {
				t.Fatalf("execute %#06x: %v", tt.op, err)
			}
			if m.v[1] != tt.want {
				t.Fatalf("v1 got %#02x want %#02x", m.v[1], tt.want)
			}
			if m.v[0xF] != tt.wantVF {
				t.Fatalf("vf got %d want %d", m.v[0xF], tt.wantVF)
			}
		})
	}
}

func TestALUFlagRegisterAsDestination(t *testing.T) {
	// When VF is the destination, the flag write wins over the result.
	m := newMachine(t)
	m.v[0xF] = 0xFF
	m.v[1] = 0x01
	if err := m.execute(0x8F14); err != nil { // add vf, v1
		t.Fatalf("execute: %v", err)
	}
	if m.v[0xF] != 1 {
		t.Fatalf("vf got %#02x want 0x01", m.v[0xF])
	}
}

func TestAddImmediateSetsNoFlag(t *testing.T) {
	m := newMachine(t)
	m.v[0] = 0xFF
	m.v[0xF] = 9
	if err := m.execute(0x7002); err != nil { // add v0, $02
		t.Fatalf("execute: %v", err)
	}
	if m.v[0] != 0x01 {
		t.Fatalf("v0 got %#02x want 0x01", m.v[0])
	}
	if m.v[0xF] != 9 {
		t.Fatalf("vf got %d want 9 (untouched)", m.v[0xF])
	}
}

func TestSkipInstructions(t *testing.T) {
	tests := []struct {
		name  string
		op    uint16
		v1    byte
		v2    byte
		taken bool
	}{
		{"se byte taken", 0x3107, 7, 0, true},
		{"se byte not taken", 0x3107, 8, 0, false},
		{"sne byte taken", 0x4107, 8, 0, true},
		{"sne byte not taken", 0x4107, 7, 0, false},
		{"se register taken", 0x5120, 5, 5, true},
		{"se register not taken", 0x5120, 5, 6, false},
		{"sne register taken", 0x9120, 5, 6, true},
		{"sne register not taken", 0x9120, 5, 5, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMachine(t)
			m.v[1] = tt.v1
			m.v[2] = tt.v2
			m.pc = 0x0202
			if err := m.execute(tt.op); err != nil {
				t.Fatalf("execute %#06x: %v", tt.op, err)
			}
			want := uint16(0x0202)
			if tt.taken {
				want = 0x0204
			}
			if m.pc != want {
				t.Fatalf("pc got %#06x want %#06x", m.pc, want)
			}
		})
	}
}

func TestSkipOperandValidation(t *testing.T) {
	// The register compare skips use the whole low nibble as
	// discriminant, not just its lowest bit.
	for _, op := range []uint16{0x5121, 0x5122, 0x9123, 0x9128} {
		m := newMachine(t)
		err := m.execute(op)
		var usageErr emu.OpcodeUsageError
		if !errors.As(err, &usageErr) {
			t.Fatalf("op %#06x: error got %T want emu.OpcodeUsageError", op, err)
		}
		if usageErr.Opcode != op {
			t.Fatalf("opcode field got %#06x want %#06x", usageErr.Opcode, op)
		}
	}
}

func TestCallReturnNesting(t *testing.T) {
	m := newMachine(t)
	loadProgram(t, m,
		0x22, 0x04, // 0x200: call $204
		0x00, 0x00, // 0x202: unreached
		0x22, 0x08, // 0x204: call $208
		0x00, 0x00, // 0x206: unreached until return
		0x00, 0xEE, // 0x208: ret
	)

	step(t, m)
	if m.pc != 0x0204 || m.sp != 1 || m.stack[0] != 0x0202 {
		t.Fatalf("after call got pc=%#06x sp=%d stack0=%#06x", m.pc, m.sp, m.stack[0])
	}
	step(t, m)
	if m.pc != 0x0208 || m.sp != 2 || m.stack[1] != 0x0206 {
		t.Fatalf("after nested call got pc=%#06x sp=%d stack1=%#06x", m.pc, m.sp, m.stack[1])
	}
	step(t, m)
	// Return pops in LIFO order: back to the inner return address.
	if m.pc != 0x0206 || m.sp != 1 {
		t.Fatalf("after ret got pc=%#06x sp=%d", m.pc, m.sp)
	}
}

func TestCallStackOverflow(t *testing.T) {
	m := newMachine(t)
	loadProgram(t, m, 0x22, 0x00) // call $200: calls its own address

	for i := 0; i < StackDepth; i++ {
		if err := m.Step(); err != nil {
			t.Fatalf("call %d: %v", i+1, err)
		}
	}
	err := m.Step()
	var stackErr emu.StackAccessError
	if !errors.As(err, &stackErr) {
		t.Fatalf("error got %T want emu.StackAccessError", err)
	}
	if stackErr.SP != StackDepth {
		t.Fatalf("sp got %d want %d", stackErr.SP, StackDepth)
	}
}

func TestReturnOnEmptyStack(t *testing.T) {
	m := newMachine(t)
	err := m.execute(0x00EE)
	var stackErr emu.StackAccessError
	if !errors.As(err, &stackErr) {
		t.Fatalf("error got %T want emu.StackAccessError", err)
	}
	if stackErr.SP != 0 {
		t.Fatalf("sp got %d want 0", stackErr.SP)
	}
}

func TestClearScreen(t *testing.T) {
	m := newMachine(t)
	m.mem[0x0300] = 0x80
	m.i = 0x0300
	if err := m.execute(0xD011); err != nil {
		t.Fatalf("draw: %v", err)
	}
	if litPixels(m) != 1 {
		t.Fatalf("lit pixels got %d want 1", litPixels(m))
	}

	if err := m.execute(0x00E0); err != nil {
		t.Fatalf("cls: %v", err)
	}
	if litPixels(m) != 0 {
		t.Fatalf("lit pixels after cls got %d want 0", litPixels(m))
	}
	if m.fb[0] != pixelOff {
		t.Fatalf("pixel value got %#08x want %#08x", m.fb[0], uint32(pixelOff))
	}
}

func TestDrawXORSelfInverse(t *testing.T) {
	// Drawing the same sprite twice at the same spot restores the
	// display and reports the collision on the second draw.
	m := newMachine(t)
	loadProgram(t, m,
		0xA0, 0x50, // ld i, $050: glyph 0
		0xD0, 0x15, // drw v0, v1, $5
		0xD0, 0x15, // drw v0, v1, $5
	)

	step(t, m)
	step(t, m)
	if m.v[0xF] != 0 {
		t.Fatalf("first draw vf got %d want 0", m.v[0xF])
	}
	if litPixels(m) == 0 {
		t.Fatal("first draw lit nothing")
	}

	step(t, m)
	if m.v[0xF] != 1 {
		t.Fatalf("second draw vf got %d want 1", m.v[0xF])
	}
	if litPixels(m) != 0 {
		t.Fatalf("lit pixels after erase got %d want 0", litPixels(m))
	}
}

func TestDrawWrapsAtEdges(t *testing.T) {
	m := newMachine(t)
	m.mem[0x0300] = 0xF0 // one row, four lit pixels
	m.i = 0x0300

	// Horizontal wrap: starts two pixels before the right edge.
	m.v[0] = 62
	m.v[1] = 30
	if err := m.execute(0xD011); err != nil {
		t.Fatalf("draw: %v", err)
	}
	for _, x := range []int{62, 63, 0, 1} {
		if m.fb[30*DisplayWidth+x] != pixelOn {
			t.Fatalf("pixel (%d, 30) not lit", x)
		}
	}

	// Vertical wrap: two rows starting on the bottom line.
	m.mem[0x0310] = 0x80
	m.mem[0x0311] = 0x80
	m.i = 0x0310
	m.v[0] = 4
	m.v[1] = 31
	if err := m.execute(0xD012); err != nil {
		t.Fatalf("draw: %v", err)
	}
	if m.fb[31*DisplayWidth+4] != pixelOn || m.fb[0*DisplayWidth+4] != pixelOn {
		t.Fatal("vertical wrap pixels not lit")
	}

	// Start coordinates fold into the display before drawing.
	m.v[0] = 64 + 3
	m.v[1] = 32 + 2
	m.mem[0x0320] = 0x80
	m.i = 0x0320
	if err := m.execute(0xD011); err != nil {
		t.Fatalf("draw: %v", err)
	}
	if m.fb[2*DisplayWidth+3] != pixelOn {
		t.Fatal("folded start coordinate pixel not lit")
	}
}

func TestDrawValidatesSpriteRange(t *testing.T) {
	m := newMachine(t)
	m.mem[0x0300] = 0x80
	m.i = 0x0300
	if err := m.execute(0xD011); err != nil {
		t.Fatalf("draw: %v", err)
	}

	// A sprite reaching past the end of memory faults before any
	// pixel or flag changes.
	m.i = 0x0FFF
	m.v[0xF] = 1
	err := m.execute(0xD012)
	var memErr emu.MemoryAccessError
	if !errors.As(err, &memErr) {
		t.Fatalf("error got %T want emu.MemoryAccessError", err)
	}
	if memErr.Addr != MemorySize {
		t.Fatalf("addr got %#06x want %#06x", memErr.Addr, uint16(MemorySize))
	}
	if litPixels(m) != 1 {
		t.Fatalf("display changed on faulting draw: %d lit", litPixels(m))
	}
	if m.v[0xF] != 1 {
		t.Fatalf("vf changed on faulting draw: got %d", m.v[0xF])
	}
}

func TestBCDAllValues(t *testing.T) {
	m := newMachine(t)
	for v := 0; v <= 255; v++ {
		m.v[3] = byte(v)
		m.i = 0x0300
		if err := m.execute(0xF333); err != nil {
			t.Fatalf("value %d: %v", v, err)
		}
		hundreds, tens, ones := m.mem[0x0300], m.mem[0x0301], m.mem[0x0302]
		if int(hundreds)*100+int(tens)*10+int(ones) != v {
			t.Fatalf("value %d decomposed to %d %d %d", v, hundreds, tens, ones)
		}
		if hundreds > 9 || tens > 9 || ones > 9 {
			t.Fatalf("value %d produced non-decimal digit: %d %d %d", v, hundreds, tens, ones)
		}
	}
}

func TestBCDBoundsCheck(t *testing.T) {
	m := newMachine(t)
	m.i = 0x0FFE
	m.v[3] = 123
	err := m.execute(0xF333)
	var memErr emu.MemoryAccessError
	if !errors.As(err, &memErr) {
		t.Fatalf("error got %T want emu.MemoryAccessError", err)
	}
	if memErr.Addr != MemorySize {
		t.Fatalf("addr got %#06x want %#06x", memErr.Addr, uint16(MemorySize))
	}
	if m.mem[0x0FFE] != 0 || m.mem[0x0FFF] != 0 {
		t.Fatal("memory changed on faulting bcd")
	}
}

func TestBlockStoreLoadRoundtrip(t *testing.T) {
	m := newMachine(t)
	m.v[0], m.v[1], m.v[2], m.v[3] = 10, 20, 30, 40
	m.i = 0x0400
	if err := m.execute(0xF355); err != nil { // ld [i], v3
		t.Fatalf("store: %v", err)
	}
	for i, want := range []byte{10, 20, 30, 40} {
		if m.mem[0x0400+i] != want {
			t.Fatalf("mem[%#06x] got %d want %d", 0x0400+i, m.mem[0x0400+i], want)
		}
	}
	if m.i != 0x0404 {
		t.Fatalf("i after store got %#06x want 0x0404 (advanced by x+1)", m.i)
	}

	m.v[0], m.v[1], m.v[2], m.v[3] = 0, 0, 0, 0
	m.i = 0x0400
	if err := m.execute(0xF365); err != nil { // ld v3, [i]
		t.Fatalf("load: %v", err)
	}
	if m.v[0] != 10 || m.v[1] != 20 || m.v[2] != 30 || m.v[3] != 40 {
		t.Fatalf("registers got %v", m.v[:4])
	}
	if m.i != 0x0404 {
		t.Fatalf("i after load got %#06x want 0x0404", m.i)
	}
}

func TestBlockCopyBounds(t *testing.T) {
	m := newMachine(t)
	m.i = 0x0FFE
	m.v[0], m.v[1], m.v[2] = 1, 2, 3
	err := m.execute(0xF255) // needs 3 bytes, only 2 remain
	var memErr emu.MemoryAccessError
	if !errors.As(err, &memErr) {
		t.Fatalf("error got %T want emu.MemoryAccessError", err)
	}
	if m.mem[0x0FFE] != 0 || m.mem[0x0FFF] != 0 {
		t.Fatal("partial write on faulting block store")
	}
	if m.i != 0x0FFE {
		t.Fatalf("i changed on fault: got %#06x", m.i)
	}
}

func TestShiftQuirkUsesVX(t *testing.T) {
	m := NewWithQuirks(testLogger(t), Quirks{ShiftUsesVX: true})
	m.v[1] = 0x02
	m.v[2] = 0xFF
	if err := m.execute(0x8126); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if m.v[1] != 0x01 || m.v[0xF] != 0 {
		t.Fatalf("got v1=%#02x vf=%d want v1=0x01 vf=0", m.v[1], m.v[0xF])
	}
}

func TestLogicQuirkKeepsFlag(t *testing.T) {
	m := NewWithQuirks(testLogger(t), Quirks{KeepFlagOnLogic: true})
	m.v[1] = 0xF0
	m.v[2] = 0x0F
	m.v[0xF] = 1
	if err := m.execute(0x8121); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if m.v[0xF] != 1 {
		t.Fatalf("vf got %d want 1 (kept)", m.v[0xF])
	}
}

func TestIndexQuirkKeepsI(t *testing.T) {
	m := NewWithQuirks(testLogger(t), Quirks{KeepIndexOnBlockCopy: true})
	m.i = 0x0300
	if err := m.execute(0xF255); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if m.i != 0x0300 {
		t.Fatalf("i got %#06x want 0x0300 (kept)", m.i)
	}
}

func TestKeyWaitPressAndRelease(t *testing.T) {
	m := newMachine(t)
	loadProgram(t, m, 0xF5, 0x0A) // ld v5, k

	// No key: the instruction re-arms itself.
	step(t, m)
	if m.pc != ProgramStart {
		t.Fatalf("pc got %#06x want %#06x", m.pc, uint16(ProgramStart))
	}

	// Key down: latched, still waiting for release.
	m.SetInputState(keyDown(7))
	step(t, m)
	if m.pc != ProgramStart || m.v[5] != 7 {
		t.Fatalf("after press got pc=%#06x v5=%d", m.pc, m.v[5])
	}
	step(t, m)
	if m.pc != ProgramStart {
		t.Fatalf("completed while key still held: pc=%#06x", m.pc)
	}

	// Release: the wait completes.
	m.SetInputState(nil)
	step(t, m)
	if m.pc != ProgramStart+2 || m.v[5] != 7 {
		t.Fatalf("after release got pc=%#06x v5=%d", m.pc, m.v[5])
	}
}

func TestKeyWaitPicksLowestKey(t *testing.T) {
	m := newMachine(t)
	loadProgram(t, m, 0xF0, 0x0A)

	keys := make([]bool, NumKeys)
	keys[9] = true
	keys[3] = true
	m.SetInputState(keys)
	step(t, m)
	if m.v[0] != 3 {
		t.Fatalf("v0 got %d want 3", m.v[0])
	}
}

func TestKeySkipMasksRegister(t *testing.T) {
	m := newMachine(t)
	m.v[1] = 0xFF // folds to key 15
	m.pc = 0x0202

	m.SetInputState(keyDown(15))
	if err := m.execute(0xE19E); err != nil {
		t.Fatalf("skp: %v", err)
	}
	if m.pc != 0x0204 {
		t.Fatalf("pc got %#06x want 0x0204", m.pc)
	}

	if err := m.execute(0xE1A1); err != nil {
		t.Fatalf("sknp: %v", err)
	}
	if m.pc != 0x0204 {
		t.Fatalf("sknp skipped while key held: pc=%#06x", m.pc)
	}
}

func TestFontAddress(t *testing.T) {
	m := newMachine(t)
	m.v[1] = 0x07
	if err := m.execute(0xF129); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if m.i != FontStart+7*5 {
		t.Fatalf("i got %#06x want %#06x", m.i, uint16(FontStart+7*5))
	}

	// Out-of-range digits fold back into 0..15.
	m.v[1] = 0x12
	if err := m.execute(0xF129); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if m.i != FontStart+2*5 {
		t.Fatalf("i got %#06x want %#06x", m.i, uint16(FontStart+2*5))
	}
}

func TestIndexArithmetic(t *testing.T) {
	m := newMachine(t)
	if err := m.execute(0xA123); err != nil { // ld i, $123
		t.Fatalf("execute: %v", err)
	}
	if m.i != 0x0123 {
		t.Fatalf("i got %#06x want 0x0123", m.i)
	}

	m.i = 0xFFF0
	m.v[1] = 0x20
	if err := m.execute(0xF11E); err != nil { // add i, v1
		t.Fatalf("execute: %v", err)
	}
	if m.i != 0x0010 {
		t.Fatalf("i got %#06x want 0x0010 (wrapped)", m.i)
	}
}

func TestJumpWithOffset(t *testing.T) {
	m := newMachine(t)
	m.v[0] = 0x10
	if err := m.execute(0xB300); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if m.pc != 0x0310 {
		t.Fatalf("pc got %#06x want 0x0310", m.pc)
	}
}

func TestDelayAndSoundRegisters(t *testing.T) {
	m := newMachine(t)
	m.v[1] = 0x42
	if err := m.execute(0xF115); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if m.delay != 0x42 {
		t.Fatalf("delay got %#02x want 0x42", m.delay)
	}
	if err := m.execute(0xF118); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if m.sound != 0x42 {
		t.Fatalf("sound got %#02x want 0x42", m.sound)
	}

	m.delay = 7
	if err := m.execute(0xF207); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if m.v[2] != 7 {
		t.Fatalf("v2 got %d want 7", m.v[2])
	}
}

func TestRandomSequenceIsDeterministic(t *testing.T) {
	m := newMachine(t)
	want := []byte{22, 115, 178}
	for i, w := range want {
		if err := m.execute(0xC0FF); err != nil {
			t.Fatalf("execute: %v", err)
		}
		if m.v[0] != w {
			t.Fatalf("draw %d got %d want %d", i, m.v[0], w)
		}
	}

	// The mask applies to the generated byte.
	other := newMachine(t)
	if err := other.execute(0xC10F); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if other.v[1] != 22&0x0F {
		t.Fatalf("masked value got %d want %d", other.v[1], 22&0x0F)
	}

	// Reset reseeds the generator.
	m.Reset()
	if err := m.execute(0xC0FF); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if m.v[0] != 22 {
		t.Fatalf("after reset got %d want 22", m.v[0])
	}
}

func TestUnrecognizedOpcode(t *testing.T) {
	m := newMachine(t)
	loadProgram(t, m, 0x01, 0x23) // sys-style native call
	err := m.Step()
	var unkErr emu.UnrecognizedOpcodeError
	if !errors.As(err, &unkErr) {
		t.Fatalf("error got %T want emu.UnrecognizedOpcodeError", err)
	}
	if unkErr.Opcode != 0x0123 || unkErr.PC != 0x0202 {
		t.Fatalf("fields got opcode=%#06x pc=%#06x", unkErr.Opcode, unkErr.PC)
	}
}

func TestOpcodeUsageErrorVariants(t *testing.T) {
	for _, op := range []uint16{0x81A8, 0xE1FF, 0xF1FF} {
		m := newMachine(t)
		err := m.execute(op)
		var usageErr emu.OpcodeUsageError
		if !errors.As(err, &usageErr) {
			t.Fatalf("op %#06x: error got %T want emu.OpcodeUsageError", op, err)
		}
		if usageErr.Hint == "" {
			t.Fatalf("op %#06x: empty hint", op)
		}
	}
}

func TestEndToEndClearDisplay(t *testing.T) {
	m := newMachine(t)
	loadProgram(t, m, 0x00, 0xE0)
	step(t, m)
	if m.pc != ProgramStart+2 {
		t.Fatalf("pc got %#06x want %#06x", m.pc, uint16(ProgramStart+2))
	}
	for i, px := range m.fb {
		if px != pixelOff {
			t.Fatalf("pixel %d got %#08x want off", i, px)
		}
	}
}

func TestEndToEndLoadAdd(t *testing.T) {
	m := newMachine(t)
	loadProgram(t, m, 0x60, 0x05, 0x70, 0x01)
	step(t, m)
	step(t, m)
	if m.v[0] != 0x06 {
		t.Fatalf("v0 got %#02x want 0x06", m.v[0])
	}
}

func keyDown(idx int) []bool {
	keys := make([]bool, NumKeys)
	keys[idx] = true
	return keys
}
