package cpu_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/user-sim/c64core/cpu"
	"github.com/user-sim/c64core/registers"
)

func TestBranchNotTakenCostsBaseCycles(t *testing.T) {
	bus := newTestBus()
	bus.load(0x0200, cpu.BEQ, 0x10)
	c := newCPUAt(bus, 0x0200)
	c.Reg.SetFlag(registers.FlagZ, false)

	assert.NoError(t, c.Step())
	assert.Equal(t, uint16(0x0202), c.Reg.PC)
	assert.Equal(t, uint64(2), c.Reg.Cycles)
}

func TestBranchTakenSamePageAddsOneCycle(t *testing.T) {
	bus := newTestBus()
	bus.load(0x0200, cpu.BEQ, 0x10)
	c := newCPUAt(bus, 0x0200)
	c.Reg.SetFlag(registers.FlagZ, true)

	assert.NoError(t, c.Step())
	assert.Equal(t, uint16(0x0212), c.Reg.PC)
	assert.Equal(t, uint64(3), c.Reg.Cycles)
}

func TestBranchTakenCrossingPageAddsTwoCycles(t *testing.T) {
	bus := newTestBus()
	bus.load(0x02F0, cpu.BEQ, 0x20) // branches from $02F2 to $0312, crossing pages
	c := newCPUAt(bus, 0x02F0)
	c.Reg.SetFlag(registers.FlagZ, true)

	assert.NoError(t, c.Step())
	assert.Equal(t, uint16(0x0312), c.Reg.PC)
	assert.Equal(t, uint64(4), c.Reg.Cycles)
}

func TestBranchBackwardsNegativeOffset(t *testing.T) {
	bus := newTestBus()
	bus.load(0x0210, cpu.BNE, 0xFB) // -5: lands at $020D
	c := newCPUAt(bus, 0x0210)
	c.Reg.SetFlag(registers.FlagZ, false)

	assert.NoError(t, c.Step())
	assert.Equal(t, uint16(0x020D), c.Reg.PC)
}

func TestAllBranchConditions(t *testing.T) {
	bus := newTestBus()
	bus.load(0x0200, cpu.BCS, 0x02, cpu.BVS, 0x02, cpu.BMI, 0x02, cpu.BPL, 0x02)
	c := newCPUAt(bus, 0x0200)
	c.Reg.SetFlag(registers.FlagC, true)
	assert.NoError(t, c.Step())
	assert.Equal(t, uint16(0x0204), c.Reg.PC)

	c.Reg.PC = 0x0202
	c.Reg.SetFlag(registers.FlagV, true)
	assert.NoError(t, c.Step())
	assert.Equal(t, uint16(0x0206), c.Reg.PC)

	c.Reg.PC = 0x0204
	c.Reg.SetFlag(registers.FlagN, true)
	assert.NoError(t, c.Step())
	assert.Equal(t, uint16(0x0208), c.Reg.PC)

	c.Reg.PC = 0x0206
	c.Reg.SetFlag(registers.FlagN, false)
	assert.NoError(t, c.Step())
	assert.Equal(t, uint16(0x020A), c.Reg.PC)
}
