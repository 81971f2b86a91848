// Package machine owns the full collection of core subsystems and wires
// their narrow borrowed-reference interfaces together: the address bus,
// the two CIAs, the VIC-II, and the CPU that drives them all. No other
// package imports more than one of {memory, vic, cia, cpu} — machine is
// where the graph actually gets built.
package machine

import (
	"github.com/user-sim/c64core/cia"
	"github.com/user-sim/c64core/cpu"
	"github.com/user-sim/c64core/keyboard"
	"github.com/user-sim/c64core/memory"
	"github.com/user-sim/c64core/vic"
)

// Machine is a complete, runnable C64 core.
type Machine struct {
	Bus  *memory.Bus
	VIC  *vic.VIC
	CIA1 *cia.CIA
	CIA2 *cia.CIA
	CPU  *cpu.CPU
}

// New assembles a Machine with every subsystem wired: the VIC reads
// through the bus and selects its bank through CIA2, CIA1 scans
// keyboard and drives the CPU's IRQ line, CIA2 drives NMI, and the bus
// dispatches $D000-$DDFF to the three chips.
func New() *Machine {
	bus := memory.New()
	v := vic.New()
	c1 := cia.New(false)
	c2 := cia.New(true)

	v.AttachBus(busVideoAdapter{bus})
	v.AttachBankSelector(c2)

	bus.AttachVIC(v)
	bus.AttachCIA1(c1)
	bus.AttachCIA2(c2)

	cpuCore := cpu.NewCPU(bus)

	c1.OnIRQ(cpuCore.SignalIRQ)
	c2.OnNMI(cpuCore.SignalNMI)
	v.OnIRQ(cpuCore.SignalIRQ)

	return &Machine{Bus: bus, VIC: v, CIA1: c1, CIA2: c2, CPU: cpuCore}
}

// AttachKeyboard wires a keyboard source into CIA1's port A/B scan.
func (m *Machine) AttachKeyboard(k keyboard.Keyboard) { m.CIA1.AttachKeyboard(k) }

// SetLogger installs the Warning-class diagnostic sink shared by the bus
// and the VIC.
func (m *Machine) SetLogger(l memory.Logger) {
	m.Bus.SetLogger(l)
	if vl, ok := l.(vic.Logger); ok {
		m.VIC.SetLogger(vl)
	}
}

// LoadROMs installs the three fixed ROM images.
func (m *Machine) LoadROMs(kernal, basic, char []byte) error {
	if err := m.Bus.LoadKernal(kernal); err != nil {
		return err
	}
	if err := m.Bus.LoadBasic(basic); err != nil {
		return err
	}
	if err := m.Bus.LoadChar(char); err != nil {
		return err
	}
	return nil
}

// LoadPRG installs a C64 program image into RAM and returns its load
// address.
func (m *Machine) LoadPRG(data []byte) (uint16, error) { return m.Bus.LoadPRG(data) }

// Reset vectors the CPU through $FFFC, per §4.5.
func (m *Machine) Reset() { m.CPU.Reset() }

// Step executes one CPU instruction (or services a pending interrupt),
// then advances VIC-II raster state and both CIAs by the cycles that
// instruction consumed. It returns the *cpu.ExecutionError the CPU
// reports, if any.
func (m *Machine) Step() error {
	before := m.CPU.Reg.Cycles
	if err := m.CPU.Step(); err != nil {
		return err
	}
	consumed := m.CPU.Reg.Cycles - before

	m.VIC.Refresh(m.CPU.Reg.Cycles)
	for i := uint64(0); i < consumed; i++ {
		m.CIA1.Cycle()
		m.CIA2.Cycle()
	}
	return nil
}

// busVideoAdapter narrows *memory.Bus down to vic.Bus, so the VIC holds
// only the three bank-switch-free read methods (ReadRAM/ReadColorNibble/
// ReadCharROM) and never the CPU-facing Fetch/Store.
type busVideoAdapter struct {
	bus *memory.Bus
}

func (a busVideoAdapter) ReadRAM(addr uint16) uint8           { return a.bus.ReadRAM(addr) }
func (a busVideoAdapter) ReadColorNibble(offset uint16) uint8 { return a.bus.ReadColorNibble(offset) }
func (a busVideoAdapter) ReadCharROM(offset uint16) uint8     { return a.bus.ReadCharROM(offset) }
