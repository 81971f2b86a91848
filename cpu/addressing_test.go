package cpu_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/user-sim/c64core/cpu"
)

func TestAbsoluteXPageCrossAddsCycle(t *testing.T) {
	bus := newTestBus()
	bus.load(0x0200, cpu.LDA_ABX, 0xFF, 0x02) // base $02FF, +X crosses into $0300
	bus.ram[0x0300] = 0x55
	c := newCPUAt(bus, 0x0200)
	c.Reg.X = 1

	assert.NoError(t, c.Step())
	assert.Equal(t, uint8(0x55), c.Reg.A)
	assert.Equal(t, uint64(5), c.Reg.Cycles) // base 4 + 1 page-cross
}

func TestAbsoluteXNoPageCrossBaseCycles(t *testing.T) {
	bus := newTestBus()
	bus.load(0x0200, cpu.LDA_ABX, 0x00, 0x03) // base $0300, +X stays on the same page
	bus.ram[0x0301] = 0x33
	c := newCPUAt(bus, 0x0200)
	c.Reg.X = 1

	assert.NoError(t, c.Step())
	assert.Equal(t, uint8(0x33), c.Reg.A)
	assert.Equal(t, uint64(4), c.Reg.Cycles)
}

func TestStoreAbsoluteXNeverGetsPageCrossBonus(t *testing.T) {
	bus := newTestBus()
	bus.load(0x0200, cpu.STA_ABX, 0xFF, 0x02) // crosses into $0300, STA is fixed-cost RMW
	c := newCPUAt(bus, 0x0200)
	c.Reg.A = 0x77
	c.Reg.X = 1

	assert.NoError(t, c.Step())
	assert.Equal(t, uint8(0x77), bus.ram[0x0300])
	assert.Equal(t, uint64(5), c.Reg.Cycles)
}

func TestIndexedIndirectX(t *testing.T) {
	bus := newTestBus()
	bus.load(0x0200, cpu.LDA_INX, 0x10)
	bus.ram[0x15] = 0x00 // (zp + X) low byte of pointer
	bus.ram[0x16] = 0x04 // high byte
	bus.ram[0x0400] = 0x99
	c := newCPUAt(bus, 0x0200)
	c.Reg.X = 5

	assert.NoError(t, c.Step())
	assert.Equal(t, uint8(0x99), c.Reg.A)
	assert.Equal(t, uint64(6), c.Reg.Cycles)
}

func TestIndirectIndexedYPageCross(t *testing.T) {
	bus := newTestBus()
	bus.load(0x0200, cpu.LDA_INY, 0x10)
	bus.ram[0x10] = 0xFF
	bus.ram[0x11] = 0x02 // pointer -> $02FF, +Y crosses to $0300
	bus.ram[0x0300] = 0x21
	c := newCPUAt(bus, 0x0200)
	c.Reg.Y = 1

	assert.NoError(t, c.Step())
	assert.Equal(t, uint8(0x21), c.Reg.A)
	assert.Equal(t, uint64(6), c.Reg.Cycles) // base 5 + 1 page-cross
}

func TestZeroPageIndexedWraps(t *testing.T) {
	bus := newTestBus()
	bus.load(0x0200, cpu.LDA_ZPX, 0xFF)
	bus.ram[0x04] = 0x66 // 0xFF + 0x05 wraps to 0x04 within zero page
	c := newCPUAt(bus, 0x0200)
	c.Reg.X = 0x05

	assert.NoError(t, c.Step())
	assert.Equal(t, uint8(0x66), c.Reg.A)
}

func TestAccumulatorModeShiftsA(t *testing.T) {
	bus := newTestBus()
	bus.load(0x0200, cpu.ASL_ACC)
	c := newCPUAt(bus, 0x0200)
	c.Reg.A = 0x81

	assert.NoError(t, c.Step())
	assert.Equal(t, uint8(0x02), c.Reg.A)
	assert.True(t, c.Reg.Flag(0x01)) // carry out of bit 7
}
