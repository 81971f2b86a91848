// Package vic implements the MOS 6569 (VIC-II, PAL) raster video engine:
// the 64-byte mirrored register file, the scan-line timing model driven by
// the CPU's cumulative cycle count, and the text/hires-bitmap/multicolor-
// bitmap/sprite rasterizer that paints a PAL frame buffer.
//
// Like memory, vic never imports its collaborators. It declares its own
// narrow Bus and BankSelector interfaces, wired post-construction by the
// machine package.
package vic

// PAL timing geometry.
const (
	RasterLines         = 312
	CyclesPerRasterLine = 63
	CyclesPerFrame      = RasterLines * CyclesPerRasterLine

	// Raster-line bands.
	TopBorderStart    = 16
	DisplayRowStart   = 51
	DisplayRowEnd     = 250
	BottomBorderEnd   = 299
	TotalRasterBottom = 311

	// Raster-column bands.
	LeftBorderStart  = 76
	DisplayColStart  = 124
	DisplayColEnd    = 443
	RightBorderEnd   = 480

	BorderTop   = TopBorderStart
	BorderBottom = BottomBorderEnd
	BorderLeft  = LeftBorderStart
	BorderRight = RightBorderEnd

	Width  = BorderRight - BorderLeft + 1 // 405
	Height = BorderBottom - BorderTop + 1 // 284
)

// Register offsets within the 64-byte mirrored file ($D000 + offset, or
// any mirror through $D3FF via addr&0x3F).
const (
	regMSBX   = 0x10
	regSCROLY = 0x11
	regRASTER = 0x12
	regSPENA  = 0x15
	regSCROLX = 0x16
	regYXPAND = 0x17
	regVMCSB  = 0x18
	regIRR    = 0x19
	regIMR    = 0x1A
	regSPMC   = 0x1C
	regXXPAND = 0x1D
	regSSCOL  = 0x1E
	regSBCOL  = 0x1F
	regEXTCOL = 0x20
	regBGCOL0 = 0x21
	regSPMC0  = 0x25
	regSPMC1  = 0x26
	regSP0COL = 0x27
)

const (
	irqRaster uint8 = 0x01
	irqSBCol  uint8 = 0x02
	irqSSCol  uint8 = 0x04
)

// Bus is the narrow view of main memory the VIC needs. It bypasses the
// CPU's bank-switch latch entirely, matching real VIC-II hardware: the
// chip address-decodes straight into RAM or character ROM.
type Bus interface {
	ReadRAM(addr uint16) uint8
	ReadColorNibble(offset uint16) uint8
	ReadCharROM(offset uint16) uint8
}

// BankSelector supplies the 16 KiB video bank base address, selected by
// CIA2's port A low two bits.
type BankSelector interface {
	VideoBank() uint16
}

// Logger receives Warning-class diagnostics for partially implemented
// register bits (§7, and the Open Questions around SCROLX/SCROLY).
type Logger interface {
	Warnf(format string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warnf(string, ...any) {}

// Palette is the 16-entry VIC-II RGB palette in the documented order:
// black, white, red, cyan, purple, green, blue, yellow, orange, brown,
// pink, dark grey, grey, light green, light blue, light grey.
var Palette = [16][3]byte{
	{0x00, 0x00, 0x00}, {0xFF, 0xFF, 0xFF}, {0x68, 0x37, 0x2B}, {0x70, 0xA4, 0xB2},
	{0x6F, 0x3D, 0x86}, {0x58, 0x8D, 0x43}, {0x35, 0x28, 0x79}, {0xB8, 0xC7, 0x6F},
	{0x6F, 0x4F, 0x25}, {0x43, 0x39, 0x00}, {0x9A, 0x67, 0x59}, {0x44, 0x44, 0x44},
	{0x6C, 0x6C, 0x6C}, {0x9A, 0xD2, 0x84}, {0x6C, 0x5E, 0xB5}, {0x95, 0x95, 0x95},
}

// VIC is one MOS 6569 instance.
type VIC struct {
	regs [64]uint8

	bus  Bus
	bank BankSelector
	log  Logger

	lastRasterLine uint16
	frame          []byte

	onIRQ  func()
	warned map[string]bool
}

// New returns a VIC with its register file and frame buffer zeroed.
func New() *VIC {
	return &VIC{
		frame:  make([]byte, Width*Height*3),
		log:    noopLogger{},
		warned: map[string]bool{},
	}
}

// AttachBus wires the video-bank-relative memory view.
func (v *VIC) AttachBus(b Bus) { v.bus = b }

// AttachBankSelector wires the video bank source (CIA2).
func (v *VIC) AttachBankSelector(bs BankSelector) { v.bank = bs }

// SetLogger installs the sink for Warning-class diagnostics.
func (v *VIC) SetLogger(l Logger) {
	if l == nil {
		l = noopLogger{}
	}
	v.log = l
}

// OnIRQ registers the callback invoked when an enabled sprite-collision
// source latches, completing the IRQ signalling the interrupt registers
// advertise.
func (v *VIC) OnIRQ(fn func()) { v.onIRQ = fn }

// FrameBuffer returns the RGB888 frame buffer, Width*Height*3 bytes, row
// major, origin at the top-left of the visible (border+display) window.
func (v *VIC) FrameBuffer() []byte { return v.frame }

// ReadRegister implements memory.VideoChip.
func (v *VIC) ReadRegister(offset uint8) uint8 {
	switch offset & 0x3F {
	case regSSCOL:
		return v.takeAndClear(regSSCOL)
	case regSBCOL:
		return v.takeAndClear(regSBCOL)
	default:
		return v.regs[offset&0x3F]
	}
}

func (v *VIC) takeAndClear(offset uint8) uint8 {
	value := v.regs[offset]
	v.regs[offset] = 0
	return value
}

// WriteRegister implements memory.VideoChip.
func (v *VIC) WriteRegister(offset uint8, value uint8) {
	offset &= 0x3F
	switch offset {
	case regSSCOL, regSBCOL:
		// Collision registers are rasterizer-owned; CPU writes are ignored.
		return
	case regRASTER:
		// Raster-compare IRQ is not implemented; writes are accepted and
		// logged per the Open Question on unimplemented SCROLX/SCROLY-
		// adjacent bits, but never change the live raster position.
		v.warnOnceFmt("raster-compare-irq", "vic: raster compare IRQ not implemented, write to $D012 ignored")
		return
	case regIRR:
		v.regs[regIRR] &^= value & 0x0F
	case regIMR:
		v.regs[regIMR] = value & 0x0F
	case regSCROLX:
		if value&0x08 == 0 {
			v.warnOnceFmt("csel", "vic: 38-column mode (CSEL=0) not implemented")
		}
		v.regs[offset] = value
	case regSCROLY:
		if value&0x08 == 0 {
			v.warnOnceFmt("rsel", "vic: 24-row mode (RSEL=0) not implemented")
		}
		if value&0x40 != 0 {
			v.warnOnceFmt("ecm", "vic: extended color mode (ECM) not implemented")
		}
		v.regs[offset] = value
	default:
		v.regs[offset] = value
	}
}

func (v *VIC) warnOnceFmt(key, format string, args ...any) {
	if v.warned[key] {
		return
	}
	v.warned[key] = true
	v.log.Warnf(format, args...)
}

// Refresh advances the rasterizer to the scan line implied by cycles, the
// CPU's cumulative cycle counter. When a line boundary is crossed it
// latches the new line into $D012/$D011 bit 7, rasterizes the line that
// just finished, and evaluates collision interrupts.
func (v *VIC) Refresh(cycles uint64) {
	line := uint16((cycles % CyclesPerFrame) / CyclesPerRasterLine)
	if line == v.lastRasterLine {
		return
	}
	v.regs[regRASTER] = uint8(line)
	if line&0x100 != 0 {
		v.regs[regSCROLY] |= 0x80
	} else {
		v.regs[regSCROLY] &^= 0x80
	}

	v.rasterizeLine(int(v.lastRasterLine))
	v.lastRasterLine = line
}

// CurrentLine returns the raster line latched at the last Refresh call, as
// read through $D012/$D011.
func (v *VIC) CurrentLine() uint16 {
	line := uint16(v.regs[regRASTER])
	if v.regs[regSCROLY]&0x80 != 0 {
		line |= 0x100
	}
	return line
}

func (v *VIC) videoBank() uint16 {
	if v.bank == nil {
		return 0
	}
	return v.bank.VideoBank()
}

func (v *VIC) charMemBase(videoBank uint16) (base uint16, useROM bool) {
	ptr := (v.regs[regVMCSB] >> 1) & 0x07
	base = uint16(ptr) * 0x800
	useROM = (ptr == 2 || ptr == 3) && (videoBank == 0x0000 || videoBank == 0x8000)
	return base, useROM
}

func (v *VIC) charByte(videoBank, charBase uint16, useROM bool, code uint8, row uint16) uint8 {
	if useROM {
		return v.bus.ReadCharROM(charBase - 0x1000 + uint16(code)*8 + row)
	}
	return v.bus.ReadRAM(videoBank + charBase + uint16(code)*8 + row)
}

// rasterizeLine paints one completed scan line into the frame buffer. It
// is a no-op for lines outside the visible (border+display) window.
func (v *VIC) rasterizeLine(line int) {
	if line < BorderTop || line > BorderBottom {
		return
	}
	if v.bus == nil {
		return
	}
	frameY := line - BorderTop

	den := v.regs[regSCROLY]&0x10 != 0
	bitmapMode := v.regs[regSCROLY]&0x20 != 0
	mcMode := v.regs[regSCROLX]&0x10 != 0
	if !bitmapMode && mcMode {
		v.warnOnceFmt("mctext", "vic: multicolor text mode not implemented, rendering as standard text")
	}

	videoBank := v.videoBank()
	screenOffset := uint16(v.regs[regVMCSB]>>4) * 0x400
	bitmapBase := uint16(0)
	if v.regs[regVMCSB]&0x08 != 0 {
		bitmapBase = 0x2000
	}
	charBase, useCharROM := v.charMemBase(videoBank)

	lineColors := make([]uint8, Width)
	fgOccupied := make([]bool, Width)
	inDisplayRow := line >= DisplayRowStart && line <= DisplayRowEnd

	bg0 := v.regs[regBGCOL0] & 0x0F

	for col := BorderLeft; col <= BorderRight; col++ {
		fx := col - BorderLeft
		inDisplayCol := col >= DisplayColStart && col <= DisplayColEnd

		if !den || !inDisplayRow || !inDisplayCol {
			lineColors[fx] = v.regs[regEXTCOL] & 0x0F
			continue
		}

		rowInDisplay := line - DisplayRowStart
		colInDisplay := col - DisplayColStart
		cellRow := rowInDisplay / 8
		charY := uint16(rowInDisplay % 8)
		cellCol := colInDisplay / 8
		pixelX := colInDisplay % 8
		cellIndex := uint16(cellRow*40 + cellCol)

		var colorIdx uint8
		switch {
		case !bitmapMode:
			screenCode := v.bus.ReadRAM(videoBank + screenOffset + cellIndex)
			fg := v.bus.ReadColorNibble(cellIndex)
			pattern := v.charByte(videoBank, charBase, useCharROM, screenCode, charY)
			if pattern&(0x80>>uint(pixelX)) != 0 {
				colorIdx = fg
				fgOccupied[fx] = true
			} else {
				colorIdx = bg0
			}
		case !mcMode:
			screenByte := v.bus.ReadRAM(videoBank + screenOffset + cellIndex)
			pattern := v.bus.ReadRAM(videoBank + bitmapBase + uint16(cellRow)*320 + uint16(cellCol)*8 + charY)
			if pattern&(0x80>>uint(pixelX)) != 0 {
				colorIdx = screenByte >> 4
				fgOccupied[fx] = true
			} else {
				colorIdx = screenByte & 0x0F
			}
		default:
			screenByte := v.bus.ReadRAM(videoBank + screenOffset + cellIndex)
			pattern := v.bus.ReadRAM(videoBank + bitmapBase + uint16(cellRow)*320 + uint16(cellCol)*8 + charY)
			pairIndex := pixelX / 2
			bits := (pattern >> uint(6-2*pairIndex)) & 0x03
			switch bits {
			case 0:
				colorIdx = bg0
			case 1:
				colorIdx = screenByte >> 4
				fgOccupied[fx] = true
			case 2:
				colorIdx = screenByte & 0x0F
				fgOccupied[fx] = true
			case 3:
				colorIdx = v.bus.ReadColorNibble(cellIndex)
				fgOccupied[fx] = true
			}
		}
		lineColors[fx] = colorIdx & 0x0F
	}

	spriteMask := make([]uint8, Width)
	for n := 7; n >= 0; n-- {
		v.compositeSprite(n, frameY, videoBank, screenOffset, lineColors, fgOccupied, spriteMask)
	}

	for fx := 0; fx < Width; fx++ {
		rgb := Palette[lineColors[fx]]
		idx := (frameY*Width + fx) * 3
		v.frame[idx] = rgb[0]
		v.frame[idx+1] = rgb[1]
		v.frame[idx+2] = rgb[2]
	}
}

// compositeSprite paints sprite n's contribution to frameY, the row
// already expressed relative to the top of the exposed frame buffer
// (BorderTop). Sprite X/Y registers place the sprite directly in that
// same frame-relative coordinate system once the documented 24/50 offset
// is subtracted: X=24, Y=50 is the sprite unit's own (0,0), which lands
// on the frame buffer's (0,0) corner, not the inner display area's.
func (v *VIC) compositeSprite(n, frameY int, videoBank, screenOffset uint16, lineColors []uint8, fgOccupied []bool, spriteMask []uint8) {
	enableMask := uint8(1) << uint(n)
	if v.regs[regSPENA]&enableMask == 0 {
		return
	}

	x := int(v.regs[2*n])
	if v.regs[regMSBX]&enableMask != 0 {
		x += 256
	}
	y := int(v.regs[2*n+1])

	yExpand := v.regs[regYXPAND]&enableMask != 0
	xExpand := v.regs[regXXPAND]&enableMask != 0

	spriteX := x - 24
	spriteY := y - 50

	height := 21
	if yExpand {
		height = 42
	}
	if frameY < spriteY || frameY >= spriteY+height {
		return
	}
	spriteRow := frameY - spriteY
	if yExpand {
		spriteRow /= 2
	}

	ptr := v.bus.ReadRAM(videoBank + screenOffset + 0x3F8 + uint16(n))
	rowBase := videoBank + uint16(ptr)*64 + uint16(spriteRow)*3
	pattern := uint32(v.bus.ReadRAM(rowBase))<<16 |
		uint32(v.bus.ReadRAM(rowBase+1))<<8 |
		uint32(v.bus.ReadRAM(rowBase+2))

	width := 24
	if xExpand {
		width = 48
	}
	multicolor := v.regs[regSPMC]&enableMask != 0

	for sx := 0; sx < width; sx++ {
		bitPos := sx
		if xExpand {
			bitPos /= 2
		}
		fx := spriteX + sx
		if fx < 0 || fx >= Width {
			continue
		}

		var colorIdx uint8
		opaque := false
		if multicolor {
			pairIndex := bitPos / 2
			shift := 22 - 2*pairIndex
			if shift < 0 {
				continue
			}
			switch (pattern >> uint(shift)) & 0x03 {
			case 1:
				colorIdx, opaque = v.regs[regSPMC0]&0x0F, true
			case 2:
				colorIdx, opaque = v.regs[regSP0COL+n]&0x0F, true
			case 3:
				colorIdx, opaque = v.regs[regSPMC1]&0x0F, true
			}
		} else {
			shift := 23 - bitPos
			if shift < 0 {
				continue
			}
			if pattern&(1<<uint(shift)) != 0 {
				colorIdx, opaque = v.regs[regSP0COL+n]&0x0F, true
			}
		}
		if !opaque {
			continue
		}

		if spriteMask[fx] != 0 {
			v.latchCollision(regSSCOL, spriteMask[fx]|enableMask)
		}
		if fgOccupied[fx] {
			v.latchCollision(regSBCOL, enableMask)
		}
		spriteMask[fx] |= enableMask
		lineColors[fx] = colorIdx
	}
}

func (v *VIC) latchCollision(reg uint8, bits uint8) {
	before := v.regs[reg]
	v.regs[reg] |= bits
	if before == v.regs[reg] {
		return
	}
	var irqBit uint8
	if reg == regSSCOL {
		irqBit = irqSSCol
	} else {
		irqBit = irqSBCol
	}
	if v.regs[regIMR]&irqBit != 0 {
		v.regs[regIRR] |= irqBit | 0x80
		if v.onIRQ != nil {
			v.onIRQ()
		}
	}
}
