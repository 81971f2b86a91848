package cpu_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/user-sim/c64core/cpu"
	"github.com/user-sim/c64core/registers"
)

// TestDecimalModeAddition reproduces the spec's second concrete scenario:
// with D=1, C=0, A=$15, ADC #$27 yields A=$42, C=0.
func TestDecimalModeAddition(t *testing.T) {
	bus := newTestBus()
	bus.load(0x0200, cpu.ADC_IMM, 0x27)
	c := newCPUAt(bus, 0x0200)
	c.Reg.A = 0x15
	c.Reg.SetFlag(registers.FlagD, true)
	c.Reg.SetFlag(registers.FlagC, false)

	assert.NoError(t, c.Step())
	assert.Equal(t, uint8(0x42), c.Reg.A)
	assert.False(t, c.Reg.Flag(registers.FlagC))
	assert.False(t, c.Reg.Flag(registers.FlagZ))
	assert.False(t, c.Reg.Flag(registers.FlagN))
}

func TestBinaryAdditionSetsCarryAndOverflow(t *testing.T) {
	bus := newTestBus()
	bus.load(0x0200, cpu.ADC_IMM, 0x50)
	c := newCPUAt(bus, 0x0200)
	c.Reg.A = 0x50 // two positive operands overflowing into a negative result

	assert.NoError(t, c.Step())
	assert.Equal(t, uint8(0xA0), c.Reg.A)
	assert.False(t, c.Reg.Flag(registers.FlagC))
	assert.True(t, c.Reg.Flag(registers.FlagV))
	assert.True(t, c.Reg.Flag(registers.FlagN))
}

func TestDecimalModeSubtraction(t *testing.T) {
	bus := newTestBus()
	bus.load(0x0200, cpu.SBC_IMM, 0x01)
	c := newCPUAt(bus, 0x0200)
	c.Reg.A = 0x10 // BCD 10
	c.Reg.SetFlag(registers.FlagD, true)
	c.Reg.SetFlag(registers.FlagC, true) // no borrow in

	assert.NoError(t, c.Step())
	assert.Equal(t, uint8(0x09), c.Reg.A)
	assert.True(t, c.Reg.Flag(registers.FlagC))
}

func TestBinarySubtractionBorrow(t *testing.T) {
	bus := newTestBus()
	bus.load(0x0200, cpu.SBC_IMM, 0x01)
	c := newCPUAt(bus, 0x0200)
	c.Reg.A = 0x00
	c.Reg.SetFlag(registers.FlagC, true)

	assert.NoError(t, c.Step())
	assert.Equal(t, uint8(0xFF), c.Reg.A)
	assert.False(t, c.Reg.Flag(registers.FlagC)) // borrow occurred
	assert.True(t, c.Reg.Flag(registers.FlagN))
}

func TestCompareSetsCarryWhenRegisterGreaterOrEqual(t *testing.T) {
	bus := newTestBus()
	bus.load(0x0200, cpu.CMP_IMM, 0x10, cpu.CPX_IMM, 0x05, cpu.CPY_IMM, 0x20)
	c := newCPUAt(bus, 0x0200)
	c.Reg.A = 0x10
	c.Reg.X = 0x05
	c.Reg.Y = 0x05

	assert.NoError(t, c.Step())
	assert.True(t, c.Reg.Flag(registers.FlagC))
	assert.True(t, c.Reg.Flag(registers.FlagZ))

	assert.NoError(t, c.Step())
	assert.True(t, c.Reg.Flag(registers.FlagC))
	assert.True(t, c.Reg.Flag(registers.FlagZ))

	assert.NoError(t, c.Step())
	assert.False(t, c.Reg.Flag(registers.FlagC))
}

func TestBitSetsZeroOverflowAndNegativeFromMemory(t *testing.T) {
	bus := newTestBus()
	bus.load(0x0200, cpu.BIT_ABS, 0x00, 0x03)
	bus.ram[0x0300] = 0xC0 // N and V bits set, A&v==0
	c := newCPUAt(bus, 0x0200)
	c.Reg.A = 0x01

	assert.NoError(t, c.Step())
	assert.True(t, c.Reg.Flag(registers.FlagZ))
	assert.True(t, c.Reg.Flag(registers.FlagN))
	assert.True(t, c.Reg.Flag(registers.FlagV))
}

func TestLogicalOperators(t *testing.T) {
	bus := newTestBus()
	bus.load(0x0200, cpu.AND_IMM, 0x0F, cpu.ORA_IMM, 0xF0, cpu.EOR_IMM, 0xFF)
	c := newCPUAt(bus, 0x0200)
	c.Reg.A = 0xFF

	assert.NoError(t, c.Step())
	assert.Equal(t, uint8(0x0F), c.Reg.A)
	assert.NoError(t, c.Step())
	assert.Equal(t, uint8(0xFF), c.Reg.A)
	assert.NoError(t, c.Step())
	assert.Equal(t, uint8(0x00), c.Reg.A)
	assert.True(t, c.Reg.Flag(registers.FlagZ))
}

func TestIncDecMemoryAndRegisters(t *testing.T) {
	bus := newTestBus()
	bus.load(0x0200, cpu.INC_ZP, 0x10, cpu.DEC_ZP, 0x10, cpu.INX_OP, cpu.DEY_OP)
	bus.ram[0x10] = 0x7F
	c := newCPUAt(bus, 0x0200)
	c.Reg.X = 0x00
	c.Reg.Y = 0x00

	assert.NoError(t, c.Step())
	assert.Equal(t, uint8(0x80), bus.ram[0x10])
	assert.True(t, c.Reg.Flag(registers.FlagN))

	assert.NoError(t, c.Step())
	assert.Equal(t, uint8(0x7F), bus.ram[0x10])

	assert.NoError(t, c.Step())
	assert.Equal(t, uint8(0x01), c.Reg.X)

	assert.NoError(t, c.Step())
	assert.Equal(t, uint8(0xFF), c.Reg.Y)
}
