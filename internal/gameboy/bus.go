package gameboy

// Region boundaries of the DMG address space. The cartridge is plain
// ROM with no banking controller, so everything past the 32 KiB window
// reads open bus.
const (
	romEnd    = 0x8000
	vramStart = 0x8000
	vramEnd   = 0xA000
	extEnd    = 0xC000
	wramStart = 0xC000
	wramEnd   = 0xE000
	echoStart = 0xE000
	echoEnd   = 0xFE00
	oamStart  = 0xFE00
	oamEnd    = 0xFEA0
	ioStart   = 0xFF00
	hramStart = 0xFF80
	addrIE    = 0xFFFF
)

// I/O register addresses the core implements. Registers outside this
// list still read and write as plain bytes in the I/O window.
const (
	regP1   = 0xFF00
	regDIV  = 0xFF04
	regLCDC = 0xFF40
	regSCY  = 0xFF42
	regSCX  = 0xFF43
	regBGP  = 0xFF47
)

// openBus is what unmapped or absent addresses read as.
const openBus = 0xFF

// Joypad button indexes as fed through SetInputState.
const (
	keyA = iota
	keyB
	keyStart
	keySelect
	keyUp
	keyDown
	keyLeft
	keyRight
	numKeys
)

// bus routes CPU addresses to the memory regions of the DMG. Echo RAM
// mirrors work RAM, writes to the ROM window are dropped, and absent
// regions (cartridge RAM, the unusable area above OAM) read open bus.
type bus struct {
	rom  []byte
	vram [vramEnd - vramStart]byte
	wram [wramEnd - wramStart]byte
	oam  [oamEnd - oamStart]byte
	io   [hramStart - ioStart]byte
	hram [addrIE - hramStart]byte
	ie   byte

	// joyp holds the P1 group select bits as last written; the low
	// nibble is composed from the key state on every read.
	joyp byte
	keys [numKeys]bool
}

// reset clears everything but the cartridge.
func (b *bus) reset() {
	b.vram = [vramEnd - vramStart]byte{}
	b.wram = [wramEnd - wramStart]byte{}
	b.oam = [oamEnd - oamStart]byte{}
	b.io = [hramStart - ioStart]byte{}
	b.hram = [addrIE - hramStart]byte{}
	b.ie = 0
	b.joyp = 0
	b.keys = [numKeys]bool{}
}

func (b *bus) read(addr uint16) byte {
	switch {
	case addr < romEnd:
		if int(addr) < len(b.rom) {
			return b.rom[addr]
		}
		return openBus
	case addr < vramEnd:
		return b.vram[addr-vramStart]
	case addr < extEnd:
		return openBus
	case addr < wramEnd:
		return b.wram[addr-wramStart]
	case addr < echoEnd:
		return b.wram[addr-echoStart]
	case addr < oamEnd:
		return b.oam[addr-oamStart]
	case addr < ioStart:
		return openBus
	case addr == regP1:
		return b.readJoypad()
	case addr < hramStart:
		return b.io[addr-ioStart]
	case addr < addrIE:
		return b.hram[addr-hramStart]
	default:
		return b.ie
	}
}

func (b *bus) write(addr uint16, v byte) {
	switch {
	case addr < romEnd:
		// ROM; without a mapper there is nothing to latch.
	case addr < vramEnd:
		b.vram[addr-vramStart] = v
	case addr < extEnd:
		// no cartridge RAM present
	case addr < wramEnd:
		b.wram[addr-wramStart] = v
	case addr < echoEnd:
		b.wram[addr-echoStart] = v
	case addr < oamEnd:
		b.oam[addr-oamStart] = v
	case addr < ioStart:
		// unusable region
	case addr == regP1:
		b.joyp = v & 0x30
	case addr == regDIV:
		// any write resets the divider
		b.io[regDIV-ioStart] = 0
	case addr < hramStart:
		b.io[addr-ioStart] = v
	case addr < addrIE:
		b.hram[addr-hramStart] = v
	default:
		b.ie = v
	}
}

// readJoypad composes P1: bits 6-7 read high, bits 4-5 echo the group
// select as written, and the low nibble reads the selected key rows
// active-low. With both groups selected the rows overlap, as on
// hardware.
func (b *bus) readJoypad() byte {
	v := 0xC0 | b.joyp | 0x0F
	if b.joyp&0x10 == 0 {
		v &^= b.directionRow()
	}
	if b.joyp&0x20 == 0 {
		v &^= b.buttonRow()
	}
	return v
}

func (b *bus) directionRow() byte {
	var row byte
	if b.keys[keyRight] {
		row |= 0x01
	}
	if b.keys[keyLeft] {
		row |= 0x02
	}
	if b.keys[keyUp] {
		row |= 0x04
	}
	if b.keys[keyDown] {
		row |= 0x08
	}
	return row
}

func (b *bus) buttonRow() byte {
	var row byte
	if b.keys[keyA] {
		row |= 0x01
	}
	if b.keys[keyB] {
		row |= 0x02
	}
	if b.keys[keySelect] {
		row |= 0x04
	}
	if b.keys[keyStart] {
		row |= 0x08
	}
	return row
}

// tickDivider advances the DIV register by one period.
func (b *bus) tickDivider() {
	b.io[regDIV-ioStart]++
}
