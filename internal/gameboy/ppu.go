package gameboy

// LCDC bits the background path cares about.
const (
	lcdcBGOn     = 1 << 0
	lcdcBGMap    = 1 << 3
	lcdcTileData = 1 << 4
	lcdcEnable   = 1 << 7
)

// shades maps the four DMG color indexes to packed ARGB grays, index 0
// lightest.
var shades = [4]uint32{0xFFFFFFFF, 0xFFC0C0C0, 0xFF606060, 0xFF000000}

// renderBG composites the background tile plane into the framebuffer:
// 32x32 tile map selected by LCDC bit 3, tile data addressed unsigned
// from 0x8000 or signed from 0x9000 per bit 4, scrolled by SCY/SCX
// with wraparound, shaded through BGP. A disabled LCD or background
// blanks the screen to the lightest shade.
func (m *Machine) renderBG() {
	lcdc := m.bus.read(regLCDC)
	if lcdc&lcdcEnable == 0 || lcdc&lcdcBGOn == 0 {
		for i := range m.fb {
			m.fb[i] = shades[0]
		}
		return
	}

	scy := m.bus.read(regSCY)
	scx := m.bus.read(regSCX)
	bgp := m.bus.read(regBGP)
	mapBase := uint16(0x9800)
	if lcdc&lcdcBGMap != 0 {
		mapBase = 0x9C00
	}

	for y := 0; y < ScreenHeight; y++ {
		bgy := scy + byte(y)
		tileRow := uint16(bgy/8) * 32
		fineY := uint16(bgy%8) * 2
		for x := 0; x < ScreenWidth; x++ {
			bgx := scx + byte(x)
			tileNum := m.bus.read(mapBase + tileRow + uint16(bgx/8))

			var tileAddr uint16
			if lcdc&lcdcTileData != 0 {
				tileAddr = 0x8000 + uint16(tileNum)*16 + fineY
			} else {
				tileAddr = uint16(0x9000+int(int8(tileNum))*16) + fineY
			}

			lo := m.bus.read(tileAddr)
			hi := m.bus.read(tileAddr + 1)
			bit := 7 - bgx%8
			ci := ((hi>>bit)&1)<<1 | ((lo >> bit) & 1)
			m.fb[y*ScreenWidth+x] = shades[(bgp>>(ci*2))&0x03]
		}
	}
}
