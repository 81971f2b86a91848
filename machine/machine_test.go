package machine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/user-sim/c64core/cpu"
	"github.com/user-sim/c64core/machine"
	"github.com/user-sim/c64core/registers"
)

func romImage(size int, patch func([]byte)) []byte {
	img := make([]byte, size)
	if patch != nil {
		patch(img)
	}
	return img
}

func TestResetVectorsThroughKernalAndLatchesBankBytes(t *testing.T) {
	kernal := romImage(8192, func(b []byte) {
		b[0x1FFC] = 0x00 // $FFFC low
		b[0x1FFD] = 0xE0 // $FFFC high -> PC = $E000
	})
	m := machine.New()
	assert.NoError(t, m.LoadROMs(kernal, romImage(8192, nil), romImage(4096, nil)))

	m.Reset()

	assert.Equal(t, uint16(0xE000), m.CPU.Reg.PC)
	assert.Equal(t, uint8(0x27), m.Bus.Fetch(0x0000))
	assert.Equal(t, uint8(0x37), m.Bus.Fetch(0x0001))
}

func TestBankSwitchMovesE000BetweenRAMAndKernal(t *testing.T) {
	kernal := romImage(8192, func(b []byte) { b[0x0000] = 0xAA }) // KERNAL byte at $E000
	m := machine.New()
	assert.NoError(t, m.LoadROMs(kernal, romImage(8192, nil), romImage(4096, nil)))
	m.Reset()

	m.Bus.Store(0x0001, 0x30) // HIRAM low -> RAM exposed at $E000
	m.Bus.Store(0xE000, 0x42)
	assert.Equal(t, uint8(0x42), m.Bus.Fetch(0xE000))

	m.Bus.Store(0x0001, 0x37) // HIRAM high -> KERNAL exposed again
	assert.Equal(t, uint8(0xAA), m.Bus.Fetch(0xE000))
}

func TestLoadAndRunSmallProgram(t *testing.T) {
	m := machine.New()
	assert.NoError(t, m.LoadROMs(romImage(8192, nil), romImage(8192, nil), romImage(4096, nil)))
	m.Reset()

	addr, err := m.LoadPRG([]byte{0x00, 0x02, cpu.LDA_IMM, 0x42, cpu.STA_ABS, 0x00, 0x03})
	assert.NoError(t, err)
	assert.Equal(t, uint16(0x0200), addr)

	m.CPU.Reg.PC = 0x0200
	assert.NoError(t, m.Step())
	assert.NoError(t, m.Step())
	assert.Equal(t, uint8(0x42), m.Bus.Fetch(0x0300))
}

func TestSignalIRQServicedThroughMachineStep(t *testing.T) {
	m := machine.New()
	assert.NoError(t, m.LoadROMs(romImage(8192, nil), romImage(8192, nil), romImage(4096, nil)))
	m.Reset()

	m.Bus.Store(0x0001, 0x30) // expose RAM under $E000-$FFFF so the IRQ vector is writable
	m.Bus.Store(0xFFFE, 0x34)
	m.Bus.Store(0xFFFF, 0x12)

	m.CPU.Reg.SetFlag(registers.FlagI, false) // reset leaves I set
	m.CPU.SignalIRQ()
	m.CPU.Reg.PC = 0x0200
	assert.NoError(t, m.Step())
	assert.Equal(t, uint16(0x1234), m.CPU.Reg.PC)
}
