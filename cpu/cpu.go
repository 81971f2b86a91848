// Package cpu implements the MOS 6510 fetch-decode-execute loop: the
// instruction table, every addressing mode, reset/IRQ/NMI/BRK vectoring,
// and the run loop step function.
//
// Like memory and vic, cpu never imports its collaborator. It declares
// its own narrow Bus interface, wired to the shared address space by the
// machine package.
package cpu

import (
	"fmt"

	"github.com/user-sim/c64core/registers"
)

// Opcode values, grouped by instruction family. Naming follows the
// addressing-mode suffix convention: IMM Immediate, ZP Zero Page, ZPX/ZPY
// Zero Page indexed, ABS Absolute, ABX/ABY Absolute indexed, INX
// (Indirect,X), INY (Indirect),Y, ACC Accumulator.
const (
	LDA_IMM = 0xA9
	LDA_ZP  = 0xA5
	LDA_ZPX = 0xB5
	LDA_ABS = 0xAD
	LDA_ABX = 0xBD
	LDA_ABY = 0xB9
	LDA_INX = 0xA1
	LDA_INY = 0xB1

	LDX_IMM = 0xA2
	LDX_ZP  = 0xA6
	LDX_ZPY = 0xB6
	LDX_ABS = 0xAE
	LDX_ABY = 0xBE

	LDY_IMM = 0xA0
	LDY_ZP  = 0xA4
	LDY_ZPX = 0xB4
	LDY_ABS = 0xAC
	LDY_ABX = 0xBC

	STA_ZP  = 0x85
	STA_ZPX = 0x95
	STA_ABS = 0x8D
	STA_ABX = 0x9D
	STA_ABY = 0x99
	STA_INX = 0x81
	STA_INY = 0x91

	STX_ZP  = 0x86
	STX_ZPY = 0x96
	STX_ABS = 0x8E

	STY_ZP  = 0x84
	STY_ZPX = 0x94
	STY_ABS = 0x8C

	TAX = 0xAA
	TAY = 0xA8
	TXA = 0x8A
	TYA = 0x98
	TSX = 0xBA
	TXS = 0x9A

	PHA = 0x48
	PHP = 0x08
	PLA = 0x68
	PLP = 0x28

	AND_IMM = 0x29
	AND_ZP  = 0x25
	AND_ZPX = 0x35
	AND_ABS = 0x2D
	AND_ABX = 0x3D
	AND_ABY = 0x39
	AND_INX = 0x21
	AND_INY = 0x31

	EOR_IMM = 0x49
	EOR_ZP  = 0x45
	EOR_ZPX = 0x55
	EOR_ABS = 0x4D
	EOR_ABX = 0x5D
	EOR_ABY = 0x59
	EOR_INX = 0x41
	EOR_INY = 0x51

	ORA_IMM = 0x09
	ORA_ZP  = 0x05
	ORA_ZPX = 0x15
	ORA_ABS = 0x0D
	ORA_ABX = 0x1D
	ORA_ABY = 0x19
	ORA_INX = 0x01
	ORA_INY = 0x11

	BIT_ZP  = 0x24
	BIT_ABS = 0x2C

	ADC_IMM = 0x69
	ADC_ZP  = 0x65
	ADC_ZPX = 0x75
	ADC_ABS = 0x6D
	ADC_ABX = 0x7D
	ADC_ABY = 0x79
	ADC_INX = 0x61
	ADC_INY = 0x71

	SBC_IMM = 0xE9
	SBC_ZP  = 0xE5
	SBC_ZPX = 0xF5
	SBC_ABS = 0xED
	SBC_ABX = 0xFD
	SBC_ABY = 0xF9
	SBC_INX = 0xE1
	SBC_INY = 0xF1

	CMP_IMM = 0xC9
	CMP_ZP  = 0xC5
	CMP_ZPX = 0xD5
	CMP_ABS = 0xCD
	CMP_ABX = 0xDD
	CMP_ABY = 0xD9
	CMP_INX = 0xC1
	CMP_INY = 0xD1

	CPX_IMM = 0xE0
	CPX_ZP  = 0xE4
	CPX_ABS = 0xEC

	CPY_IMM = 0xC0
	CPY_ZP  = 0xC4
	CPY_ABS = 0xCC

	INC_ZP  = 0xE6
	INC_ZPX = 0xF6
	INC_ABS = 0xEE
	INC_ABX = 0xFE

	DEC_ZP  = 0xC6
	DEC_ZPX = 0xD6
	DEC_ABS = 0xCE
	DEC_ABX = 0xDE

	INX_OP = 0xE8
	INY_OP = 0xC8
	DEX_OP = 0xCA
	DEY_OP = 0x88

	ASL_ACC = 0x0A
	ASL_ZP  = 0x06
	ASL_ZPX = 0x16
	ASL_ABS = 0x0E
	ASL_ABX = 0x1E

	LSR_ACC = 0x4A
	LSR_ZP  = 0x46
	LSR_ZPX = 0x56
	LSR_ABS = 0x4E
	LSR_ABX = 0x5E

	ROL_ACC = 0x2A
	ROL_ZP  = 0x26
	ROL_ZPX = 0x36
	ROL_ABS = 0x2E
	ROL_ABX = 0x3E

	ROR_ACC = 0x6A
	ROR_ZP  = 0x66
	ROR_ZPX = 0x76
	ROR_ABS = 0x6E
	ROR_ABX = 0x7E

	JMP_ABS = 0x4C
	JMP_IND = 0x6C
	JSR_ABS = 0x20
	RTS_OP  = 0x60

	BCC = 0x90
	BCS = 0xB0
	BEQ = 0xF0
	BMI = 0x30
	BNE = 0xD0
	BPL = 0x10
	BVC = 0x50
	BVS = 0x70

	CLC = 0x18
	CLD = 0xD8
	CLI = 0x58
	CLV = 0xB8
	SEC = 0x38
	SED = 0xF8
	SEI = 0x78

	BRK_OP = 0x00
	NOP_OP = 0xEA
	RTI_OP = 0x40
)

// Bus is the narrow view of the address space the CPU drives. cpu never
// imports the memory package; machine wires a *memory.Bus in.
type Bus interface {
	Fetch(addr uint16) uint8
	FetchWord(addr uint16) uint16
	Store(addr uint16, value uint8)
}

// ExecutionError reports an opcode with no table entry, or any other
// runtime invariant violation. It is fatal to the run loop (§7) and
// carries the diagnostic the loop surfaces: the opcode and its address,
// a register dump, and a window of surrounding memory. It holds no
// disassembly line.
type ExecutionError struct {
	Opcode       uint8
	PC           uint16
	RegisterDump string
	MemoryWindow []uint8
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("cpu: no instruction registered for opcode $%02X at $%04X (%s)", e.Opcode, e.PC, e.RegisterDump)
}

// ConfigError reports a fatal startup misconfiguration: registering the
// same opcode twice.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return e.Msg }

type addressingMode int

const (
	AddrImplicit addressingMode = iota
	AddrAccumulator
	AddrImmediate
	AddrZeroPage
	AddrZeroPageX
	AddrZeroPageY
	AddrAbsolute
	AddrAbsoluteX
	AddrAbsoluteY
	AddrIndexedIndirectX
	AddrIndirectIndexedY
	AddrRelative
	AddrIndirect
)

type opcodeKind int

const (
	kindZeroOp opcodeKind = iota
	kindRead
	kindRMW
)

type zeroOpHandler func(*CPU)
type readHandler func(*CPU, uint8)
type rmwHandler func(*CPU, uint8) uint8

// opcodeEntry is one of the three tagged-variant shapes the instruction
// registry holds, per the Design Notes. extraOnPageCross marks the read
// instructions whose indexed/indirect-Y addressing costs one additional
// cycle when the effective address crosses a page boundary; store and
// read-modify-write instructions already use their fixed worst-case cost.
type opcodeEntry struct {
	name             string
	mode             addressingMode
	cycles           uint8
	kind             opcodeKind
	extraOnPageCross bool
	zeroOp           zeroOpHandler
	read             readHandler
	rmw              rmwHandler
}

var opcodeTable [256]*opcodeEntry

func register(opcode uint8, e *opcodeEntry) {
	if opcodeTable[opcode] != nil {
		panic(&ConfigError{Msg: fmt.Sprintf("cpu: opcode $%02X registered twice (%s, then %s)", opcode, opcodeTable[opcode].name, e.name)})
	}
	opcodeTable[opcode] = e
}

func registerZero(opcode uint8, name string, cycles uint8, fn zeroOpHandler) {
	register(opcode, &opcodeEntry{name: name, mode: AddrImplicit, cycles: cycles, kind: kindZeroOp, zeroOp: fn})
}

func registerRead(opcode uint8, name string, mode addressingMode, cycles uint8, pageCross bool, fn readHandler) {
	register(opcode, &opcodeEntry{name: name, mode: mode, cycles: cycles, kind: kindRead, extraOnPageCross: pageCross, read: fn})
}

func registerRMW(opcode uint8, name string, mode addressingMode, cycles uint8, fn rmwHandler) {
	register(opcode, &opcodeEntry{name: name, mode: mode, cycles: cycles, kind: kindRMW, rmw: fn})
}

func init() {
	registerRead(LDA_IMM, "LDA", AddrImmediate, 2, false, opLDA)
	registerRead(LDA_ZP, "LDA", AddrZeroPage, 3, false, opLDA)
	registerRead(LDA_ZPX, "LDA", AddrZeroPageX, 4, false, opLDA)
	registerRead(LDA_ABS, "LDA", AddrAbsolute, 4, false, opLDA)
	registerRead(LDA_ABX, "LDA", AddrAbsoluteX, 4, true, opLDA)
	registerRead(LDA_ABY, "LDA", AddrAbsoluteY, 4, true, opLDA)
	registerRead(LDA_INX, "LDA", AddrIndexedIndirectX, 6, false, opLDA)
	registerRead(LDA_INY, "LDA", AddrIndirectIndexedY, 5, true, opLDA)

	registerRead(LDX_IMM, "LDX", AddrImmediate, 2, false, opLDX)
	registerRead(LDX_ZP, "LDX", AddrZeroPage, 3, false, opLDX)
	registerRead(LDX_ZPY, "LDX", AddrZeroPageY, 4, false, opLDX)
	registerRead(LDX_ABS, "LDX", AddrAbsolute, 4, false, opLDX)
	registerRead(LDX_ABY, "LDX", AddrAbsoluteY, 4, true, opLDX)

	registerRead(LDY_IMM, "LDY", AddrImmediate, 2, false, opLDY)
	registerRead(LDY_ZP, "LDY", AddrZeroPage, 3, false, opLDY)
	registerRead(LDY_ZPX, "LDY", AddrZeroPageX, 4, false, opLDY)
	registerRead(LDY_ABS, "LDY", AddrAbsolute, 4, false, opLDY)
	registerRead(LDY_ABX, "LDY", AddrAbsoluteX, 4, true, opLDY)

	registerRMW(STA_ZP, "STA", AddrZeroPage, 3, opSTA)
	registerRMW(STA_ZPX, "STA", AddrZeroPageX, 4, opSTA)
	registerRMW(STA_ABS, "STA", AddrAbsolute, 4, opSTA)
	registerRMW(STA_ABX, "STA", AddrAbsoluteX, 5, opSTA)
	registerRMW(STA_ABY, "STA", AddrAbsoluteY, 5, opSTA)
	registerRMW(STA_INX, "STA", AddrIndexedIndirectX, 6, opSTA)
	registerRMW(STA_INY, "STA", AddrIndirectIndexedY, 6, opSTA)

	registerRMW(STX_ZP, "STX", AddrZeroPage, 3, opSTX)
	registerRMW(STX_ZPY, "STX", AddrZeroPageY, 4, opSTX)
	registerRMW(STX_ABS, "STX", AddrAbsolute, 4, opSTX)

	registerRMW(STY_ZP, "STY", AddrZeroPage, 3, opSTY)
	registerRMW(STY_ZPX, "STY", AddrZeroPageX, 4, opSTY)
	registerRMW(STY_ABS, "STY", AddrAbsolute, 4, opSTY)

	registerZero(TAX, "TAX", 2, opTAX)
	registerZero(TAY, "TAY", 2, opTAY)
	registerZero(TXA, "TXA", 2, opTXA)
	registerZero(TYA, "TYA", 2, opTYA)
	registerZero(TSX, "TSX", 2, opTSX)
	registerZero(TXS, "TXS", 2, opTXS)

	registerZero(PHA, "PHA", 3, opPHA)
	registerZero(PHP, "PHP", 3, opPHP)
	registerZero(PLA, "PLA", 4, opPLA)
	registerZero(PLP, "PLP", 4, opPLP)

	registerRead(AND_IMM, "AND", AddrImmediate, 2, false, opAND)
	registerRead(AND_ZP, "AND", AddrZeroPage, 3, false, opAND)
	registerRead(AND_ZPX, "AND", AddrZeroPageX, 4, false, opAND)
	registerRead(AND_ABS, "AND", AddrAbsolute, 4, false, opAND)
	registerRead(AND_ABX, "AND", AddrAbsoluteX, 4, true, opAND)
	registerRead(AND_ABY, "AND", AddrAbsoluteY, 4, true, opAND)
	registerRead(AND_INX, "AND", AddrIndexedIndirectX, 6, false, opAND)
	registerRead(AND_INY, "AND", AddrIndirectIndexedY, 5, true, opAND)

	registerRead(EOR_IMM, "EOR", AddrImmediate, 2, false, opEOR)
	registerRead(EOR_ZP, "EOR", AddrZeroPage, 3, false, opEOR)
	registerRead(EOR_ZPX, "EOR", AddrZeroPageX, 4, false, opEOR)
	registerRead(EOR_ABS, "EOR", AddrAbsolute, 4, false, opEOR)
	registerRead(EOR_ABX, "EOR", AddrAbsoluteX, 4, true, opEOR)
	registerRead(EOR_ABY, "EOR", AddrAbsoluteY, 4, true, opEOR)
	registerRead(EOR_INX, "EOR", AddrIndexedIndirectX, 6, false, opEOR)
	registerRead(EOR_INY, "EOR", AddrIndirectIndexedY, 5, true, opEOR)

	registerRead(ORA_IMM, "ORA", AddrImmediate, 2, false, opORA)
	registerRead(ORA_ZP, "ORA", AddrZeroPage, 3, false, opORA)
	registerRead(ORA_ZPX, "ORA", AddrZeroPageX, 4, false, opORA)
	registerRead(ORA_ABS, "ORA", AddrAbsolute, 4, false, opORA)
	registerRead(ORA_ABX, "ORA", AddrAbsoluteX, 4, true, opORA)
	registerRead(ORA_ABY, "ORA", AddrAbsoluteY, 4, true, opORA)
	registerRead(ORA_INX, "ORA", AddrIndexedIndirectX, 6, false, opORA)
	registerRead(ORA_INY, "ORA", AddrIndirectIndexedY, 5, true, opORA)

	registerRead(BIT_ZP, "BIT", AddrZeroPage, 3, false, opBIT)
	registerRead(BIT_ABS, "BIT", AddrAbsolute, 4, false, opBIT)

	registerRead(ADC_IMM, "ADC", AddrImmediate, 2, false, opADC)
	registerRead(ADC_ZP, "ADC", AddrZeroPage, 3, false, opADC)
	registerRead(ADC_ZPX, "ADC", AddrZeroPageX, 4, false, opADC)
	registerRead(ADC_ABS, "ADC", AddrAbsolute, 4, false, opADC)
	registerRead(ADC_ABX, "ADC", AddrAbsoluteX, 4, true, opADC)
	registerRead(ADC_ABY, "ADC", AddrAbsoluteY, 4, true, opADC)
	registerRead(ADC_INX, "ADC", AddrIndexedIndirectX, 6, false, opADC)
	registerRead(ADC_INY, "ADC", AddrIndirectIndexedY, 5, true, opADC)

	registerRead(SBC_IMM, "SBC", AddrImmediate, 2, false, opSBC)
	registerRead(SBC_ZP, "SBC", AddrZeroPage, 3, false, opSBC)
	registerRead(SBC_ZPX, "SBC", AddrZeroPageX, 4, false, opSBC)
	registerRead(SBC_ABS, "SBC", AddrAbsolute, 4, false, opSBC)
	registerRead(SBC_ABX, "SBC", AddrAbsoluteX, 4, true, opSBC)
	registerRead(SBC_ABY, "SBC", AddrAbsoluteY, 4, true, opSBC)
	registerRead(SBC_INX, "SBC", AddrIndexedIndirectX, 6, false, opSBC)
	registerRead(SBC_INY, "SBC", AddrIndirectIndexedY, 5, true, opSBC)

	registerRead(CMP_IMM, "CMP", AddrImmediate, 2, false, opCMP)
	registerRead(CMP_ZP, "CMP", AddrZeroPage, 3, false, opCMP)
	registerRead(CMP_ZPX, "CMP", AddrZeroPageX, 4, false, opCMP)
	registerRead(CMP_ABS, "CMP", AddrAbsolute, 4, false, opCMP)
	registerRead(CMP_ABX, "CMP", AddrAbsoluteX, 4, true, opCMP)
	registerRead(CMP_ABY, "CMP", AddrAbsoluteY, 4, true, opCMP)
	registerRead(CMP_INX, "CMP", AddrIndexedIndirectX, 6, false, opCMP)
	registerRead(CMP_INY, "CMP", AddrIndirectIndexedY, 5, true, opCMP)

	registerRead(CPX_IMM, "CPX", AddrImmediate, 2, false, opCPX)
	registerRead(CPX_ZP, "CPX", AddrZeroPage, 3, false, opCPX)
	registerRead(CPX_ABS, "CPX", AddrAbsolute, 4, false, opCPX)

	registerRead(CPY_IMM, "CPY", AddrImmediate, 2, false, opCPY)
	registerRead(CPY_ZP, "CPY", AddrZeroPage, 3, false, opCPY)
	registerRead(CPY_ABS, "CPY", AddrAbsolute, 4, false, opCPY)

	registerRMW(INC_ZP, "INC", AddrZeroPage, 5, opINC)
	registerRMW(INC_ZPX, "INC", AddrZeroPageX, 6, opINC)
	registerRMW(INC_ABS, "INC", AddrAbsolute, 6, opINC)
	registerRMW(INC_ABX, "INC", AddrAbsoluteX, 7, opINC)

	registerRMW(DEC_ZP, "DEC", AddrZeroPage, 5, opDEC)
	registerRMW(DEC_ZPX, "DEC", AddrZeroPageX, 6, opDEC)
	registerRMW(DEC_ABS, "DEC", AddrAbsolute, 6, opDEC)
	registerRMW(DEC_ABX, "DEC", AddrAbsoluteX, 7, opDEC)

	registerZero(INX_OP, "INX", 2, opINX)
	registerZero(INY_OP, "INY", 2, opINY)
	registerZero(DEX_OP, "DEX", 2, opDEX)
	registerZero(DEY_OP, "DEY", 2, opDEY)

	registerRMW(ASL_ACC, "ASL", AddrAccumulator, 2, opASL)
	registerRMW(ASL_ZP, "ASL", AddrZeroPage, 5, opASL)
	registerRMW(ASL_ZPX, "ASL", AddrZeroPageX, 6, opASL)
	registerRMW(ASL_ABS, "ASL", AddrAbsolute, 6, opASL)
	registerRMW(ASL_ABX, "ASL", AddrAbsoluteX, 7, opASL)

	registerRMW(LSR_ACC, "LSR", AddrAccumulator, 2, opLSR)
	registerRMW(LSR_ZP, "LSR", AddrZeroPage, 5, opLSR)
	registerRMW(LSR_ZPX, "LSR", AddrZeroPageX, 6, opLSR)
	registerRMW(LSR_ABS, "LSR", AddrAbsolute, 6, opLSR)
	registerRMW(LSR_ABX, "LSR", AddrAbsoluteX, 7, opLSR)

	registerRMW(ROL_ACC, "ROL", AddrAccumulator, 2, opROL)
	registerRMW(ROL_ZP, "ROL", AddrZeroPage, 5, opROL)
	registerRMW(ROL_ZPX, "ROL", AddrZeroPageX, 6, opROL)
	registerRMW(ROL_ABS, "ROL", AddrAbsolute, 6, opROL)
	registerRMW(ROL_ABX, "ROL", AddrAbsoluteX, 7, opROL)

	registerRMW(ROR_ACC, "ROR", AddrAccumulator, 2, opROR)
	registerRMW(ROR_ZP, "ROR", AddrZeroPage, 5, opROR)
	registerRMW(ROR_ZPX, "ROR", AddrZeroPageX, 6, opROR)
	registerRMW(ROR_ABS, "ROR", AddrAbsolute, 6, opROR)
	registerRMW(ROR_ABX, "ROR", AddrAbsoluteX, 7, opROR)

	registerZero(JMP_ABS, "JMP", 3, opJMPAbs)
	registerZero(JMP_IND, "JMP", 5, opJMPInd)
	registerZero(JSR_ABS, "JSR", 6, opJSR)
	registerZero(RTS_OP, "RTS", 6, opRTS)

	registerRead(BCC, "BCC", AddrRelative, 2, false, opBCC)
	registerRead(BCS, "BCS", AddrRelative, 2, false, opBCS)
	registerRead(BEQ, "BEQ", AddrRelative, 2, false, opBEQ)
	registerRead(BNE, "BNE", AddrRelative, 2, false, opBNE)
	registerRead(BMI, "BMI", AddrRelative, 2, false, opBMI)
	registerRead(BPL, "BPL", AddrRelative, 2, false, opBPL)
	registerRead(BVC, "BVC", AddrRelative, 2, false, opBVC)
	registerRead(BVS, "BVS", AddrRelative, 2, false, opBVS)

	registerZero(CLC, "CLC", 2, opCLC)
	registerZero(SEC, "SEC", 2, opSEC)
	registerZero(CLD, "CLD", 2, opCLD)
	registerZero(SED, "SED", 2, opSED)
	registerZero(CLI, "CLI", 2, opCLI)
	registerZero(SEI, "SEI", 2, opSEI)
	registerZero(CLV, "CLV", 2, opCLV)

	registerZero(NOP_OP, "NOP", 2, opNOP)
	registerZero(BRK_OP, "BRK", 7, opBRK)
	registerZero(RTI_OP, "RTI", 6, opRTI)
}

// CPU is one MOS 6510 instance.
type CPU struct {
	Reg registers.Registers

	bus Bus

	irqPending bool
	nmiPending bool
}

// NewCPU returns a CPU wired to bus, with registers in their power-on
// state. Call Reset to vector through $FFFC the way real hardware does
// on the reset line.
func NewCPU(bus Bus) *CPU {
	c := &CPU{bus: bus}
	c.Reg.Reset()
	return c
}

// Reset hardwires $0000=$27, $0001=$37 and loads PC from the reset
// vector at $FFFC, per §4.5.
func (c *CPU) Reset() {
	c.Reg.Reset()
	c.bus.Store(0x0000, 0x27)
	c.bus.Store(0x0001, 0x37)
	c.Reg.PC = c.bus.FetchWord(0xFFFC)
}

// SignalIRQ requests a maskable interrupt, serviced at the start of the
// next Step if the interrupt-disable flag is clear.
func (c *CPU) SignalIRQ() { c.irqPending = true }

// SignalNMI requests a non-maskable interrupt, serviced unconditionally
// at the start of the next Step.
func (c *CPU) SignalNMI() { c.nmiPending = true }

// Step executes one instruction (or, if one is pending, services an
// interrupt instead) and returns an *ExecutionError if PC holds an
// opcode with no table entry.
func (c *CPU) Step() error {
	if c.nmiPending {
		c.nmiPending = false
		c.interrupt(0xFFFA)
		return nil
	}
	if c.irqPending && !c.Reg.Flag(registers.FlagI) {
		c.irqPending = false
		c.interrupt(0xFFFE)
		return nil
	}

	opcodePC := c.Reg.PC
	opcode := c.fetchWithPC()
	entry := opcodeTable[opcode]
	if entry == nil {
		return &ExecutionError{
			Opcode:       opcode,
			PC:           opcodePC,
			RegisterDump: c.registerDump(),
			MemoryWindow: c.memoryWindow(opcodePC),
		}
	}

	switch entry.kind {
	case kindZeroOp:
		entry.zeroOp(c)
		c.Reg.PushCycles(entry.cycles)
	case kindRead:
		value, extra := c.resolveRead(entry)
		entry.read(c, value)
		c.Reg.PushCycles(entry.cycles + extra)
	case kindRMW:
		addr, value := c.resolveRMW(entry)
		result := entry.rmw(c, value)
		if entry.mode == AddrAccumulator {
			c.Reg.A = result
		} else {
			c.bus.Store(addr, result)
		}
		c.Reg.PushCycles(entry.cycles)
	}
	return nil
}

func (c *CPU) registerDump() string {
	return fmt.Sprintf("A=$%02X X=$%02X Y=$%02X SP=$%02X P=$%02X PC=$%04X",
		c.Reg.A, c.Reg.X, c.Reg.Y, c.Reg.SP, c.Reg.P, c.Reg.PC)
}

func (c *CPU) memoryWindow(center uint16) []uint8 {
	start := center - 4
	if center < 4 {
		start = 0
	}
	window := make([]uint8, 0, 9)
	for i := 0; i < 9; i++ {
		window = append(window, c.bus.Fetch(start+uint16(i)))
	}
	return window
}

func (c *CPU) interrupt(vector uint16) {
	c.push16(c.Reg.PC)
	c.push(c.Reg.Status(false))
	c.Reg.SetFlag(registers.FlagI, true)
	c.Reg.PC = c.bus.FetchWord(vector)
	c.Reg.PushCycles(7)
}

func (c *CPU) fetchWithPC() uint8 {
	v := c.bus.Fetch(c.Reg.PC)
	c.Reg.PC++
	return v
}

func (c *CPU) fetchWordWithPC() uint16 {
	v := c.bus.FetchWord(c.Reg.PC)
	c.Reg.PC += 2
	return v
}

func (c *CPU) push(v uint8) {
	c.bus.Store(0x0100+uint16(c.Reg.SP), v)
	c.Reg.SP--
}

func (c *CPU) pull() uint8 {
	c.Reg.SP++
	return c.bus.Fetch(0x0100 + uint16(c.Reg.SP))
}

func (c *CPU) push16(v uint16) {
	c.push(uint8(v >> 8))
	c.push(uint8(v))
}

func (c *CPU) pull16() uint16 {
	lo := uint16(c.pull())
	hi := uint16(c.pull())
	return lo | hi<<8
}

// operandAddress resolves the effective address for every mode that has
// one. Immediate, Accumulator, Implicit and Relative are handled by their
// callers instead.
func (c *CPU) operandAddress(mode addressingMode) (addr uint16, pageCrossed bool) {
	switch mode {
	case AddrZeroPage:
		addr = uint16(c.fetchWithPC())
	case AddrZeroPageX:
		addr = uint16(c.fetchWithPC() + c.Reg.X)
	case AddrZeroPageY:
		addr = uint16(c.fetchWithPC() + c.Reg.Y)
	case AddrAbsolute:
		addr = c.fetchWordWithPC()
	case AddrAbsoluteX:
		base := c.fetchWordWithPC()
		addr = base + uint16(c.Reg.X)
		pageCrossed = base&0xFF00 != addr&0xFF00
	case AddrAbsoluteY:
		base := c.fetchWordWithPC()
		addr = base + uint16(c.Reg.Y)
		pageCrossed = base&0xFF00 != addr&0xFF00
	case AddrIndexedIndirectX:
		zp := c.fetchWithPC() + c.Reg.X
		lo := uint16(c.bus.Fetch(uint16(zp)))
		hi := uint16(c.bus.Fetch(uint16(zp + 1)))
		addr = lo | hi<<8
	case AddrIndirectIndexedY:
		zp := c.fetchWithPC()
		lo := uint16(c.bus.Fetch(uint16(zp)))
		hi := uint16(c.bus.Fetch(uint16(zp + 1)))
		base := lo | hi<<8
		addr = base + uint16(c.Reg.Y)
		pageCrossed = base&0xFF00 != addr&0xFF00
	case AddrIndirect:
		ptr := c.fetchWordWithPC()
		lo := uint16(c.bus.Fetch(ptr))
		// The 6502 JMP ($hhll) page-wrap bug: when the pointer's low byte
		// is $FF, the high byte is fetched from $xx00, not the next page.
		hiAddr := (ptr & 0xFF00) | uint16(uint8(ptr)+1)
		hi := uint16(c.bus.Fetch(hiAddr))
		addr = lo | hi<<8
	}
	return addr, pageCrossed
}

func (c *CPU) resolveRead(entry *opcodeEntry) (value uint8, extra uint8) {
	switch entry.mode {
	case AddrImmediate:
		return c.fetchWithPC(), 0
	case AddrRelative:
		return c.fetchWithPC(), 0
	default:
		addr, crossed := c.operandAddress(entry.mode)
		value = c.bus.Fetch(addr)
		if crossed && entry.extraOnPageCross {
			extra = 1
		}
		return value, extra
	}
}

func (c *CPU) resolveRMW(entry *opcodeEntry) (addr uint16, value uint8) {
	if entry.mode == AddrAccumulator {
		return 0, c.Reg.A
	}
	addr, _ = c.operandAddress(entry.mode)
	return addr, c.bus.Fetch(addr)
}

// --- Load/Store ---

func opLDA(c *CPU, v uint8) { c.Reg.A = v; c.Reg.SetZN(v) }
func opLDX(c *CPU, v uint8) { c.Reg.X = v; c.Reg.SetZN(v) }
func opLDY(c *CPU, v uint8) { c.Reg.Y = v; c.Reg.SetZN(v) }

func opSTA(c *CPU, _ uint8) uint8 { return c.Reg.A }
func opSTX(c *CPU, _ uint8) uint8 { return c.Reg.X }
func opSTY(c *CPU, _ uint8) uint8 { return c.Reg.Y }

// --- Register transfers ---

func opTAX(c *CPU) { c.Reg.X = c.Reg.A; c.Reg.SetZN(c.Reg.X) }
func opTAY(c *CPU) { c.Reg.Y = c.Reg.A; c.Reg.SetZN(c.Reg.Y) }
func opTXA(c *CPU) { c.Reg.A = c.Reg.X; c.Reg.SetZN(c.Reg.A) }
func opTYA(c *CPU) { c.Reg.A = c.Reg.Y; c.Reg.SetZN(c.Reg.A) }
func opTSX(c *CPU) { c.Reg.X = c.Reg.SP; c.Reg.SetZN(c.Reg.X) }
func opTXS(c *CPU) { c.Reg.SP = c.Reg.X }

// --- Stack ---

func opPHA(c *CPU) { c.push(c.Reg.A) }
func opPHP(c *CPU) { c.push(c.Reg.Status(true)) }
func opPLA(c *CPU) { c.Reg.A = c.pull(); c.Reg.SetZN(c.Reg.A) }
func opPLP(c *CPU) { c.Reg.SetStatus(c.pull() &^ registers.FlagB) }

// --- Logic/Arithmetic ---

func opAND(c *CPU, v uint8) { c.Reg.A &= v; c.Reg.SetZN(c.Reg.A) }
func opORA(c *CPU, v uint8) { c.Reg.A |= v; c.Reg.SetZN(c.Reg.A) }
func opEOR(c *CPU, v uint8) { c.Reg.A ^= v; c.Reg.SetZN(c.Reg.A) }

func opBIT(c *CPU, v uint8) {
	c.Reg.SetFlag(registers.FlagZ, c.Reg.A&v == 0)
	c.Reg.SetFlag(registers.FlagN, v&0x80 != 0)
	c.Reg.SetFlag(registers.FlagV, v&0x40 != 0)
}

func opADC(c *CPU, v uint8) {
	a := c.Reg.A
	carryIn := uint8(0)
	if c.Reg.Flag(registers.FlagC) {
		carryIn = 1
	}
	binSum := uint16(a) + uint16(v) + uint16(carryIn)
	binResult := uint8(binSum)

	if c.Reg.Flag(registers.FlagD) {
		lo := (a & 0x0F) + (v & 0x0F) + carryIn
		hi := uint16(a>>4) + uint16(v>>4)
		if lo > 9 {
			lo += 6
			hi++
		}
		c.Reg.SetFlag(registers.FlagV, (a^v)&0x80 == 0 && (a^binResult)&0x80 != 0)
		if hi > 9 {
			hi += 6
		}
		c.Reg.SetFlag(registers.FlagC, hi > 15)
		result := uint8(hi<<4) | (lo & 0x0F)
		c.Reg.A = result
		c.Reg.SetZeroFromValue(binResult)
		c.Reg.SetNegativeFromValue(result)
		return
	}

	c.Reg.SetFlag(registers.FlagC, binSum > 0xFF)
	c.Reg.SetFlag(registers.FlagV, (a^v)&0x80 == 0 && (a^binResult)&0x80 != 0)
	c.Reg.A = binResult
	c.Reg.SetZN(binResult)
}

func opSBC(c *CPU, v uint8) {
	a := c.Reg.A
	borrow := int16(1)
	if c.Reg.Flag(registers.FlagC) {
		borrow = 0
	}
	diff := int16(a) - int16(v) - borrow
	binResult := uint8(diff)

	if c.Reg.Flag(registers.FlagD) {
		lo := int16(a&0x0F) - int16(v&0x0F) - borrow
		hi := int16(a>>4) - int16(v>>4)
		if lo < 0 {
			lo -= 6
			hi--
		}
		if hi < 0 {
			hi -= 6
		}
		c.Reg.SetFlag(registers.FlagV, (a^v)&0x80 != 0 && (a^binResult)&0x80 != 0)
		c.Reg.SetFlag(registers.FlagC, diff >= 0)
		result := uint8((hi&0x0F)<<4) | uint8(lo&0x0F)
		c.Reg.A = result
		c.Reg.SetZeroFromValue(binResult)
		c.Reg.SetNegativeFromValue(result)
		return
	}

	c.Reg.SetFlag(registers.FlagC, diff >= 0)
	c.Reg.SetFlag(registers.FlagV, (a^v)&0x80 != 0 && (a^binResult)&0x80 != 0)
	c.Reg.A = binResult
	c.Reg.SetZN(binResult)
}

func (c *CPU) compare(reg uint8, v uint8) {
	result := reg - v
	c.Reg.SetFlag(registers.FlagC, reg >= v)
	c.Reg.SetZN(result)
}

func opCMP(c *CPU, v uint8) { c.compare(c.Reg.A, v) }
func opCPX(c *CPU, v uint8) { c.compare(c.Reg.X, v) }
func opCPY(c *CPU, v uint8) { c.compare(c.Reg.Y, v) }

// --- Increment/Decrement ---

func opINC(c *CPU, v uint8) uint8 { r := v + 1; c.Reg.SetZN(r); return r }
func opDEC(c *CPU, v uint8) uint8 { r := v - 1; c.Reg.SetZN(r); return r }

func opINX(c *CPU) { c.Reg.X++; c.Reg.SetZN(c.Reg.X) }
func opINY(c *CPU) { c.Reg.Y++; c.Reg.SetZN(c.Reg.Y) }
func opDEX(c *CPU) { c.Reg.X--; c.Reg.SetZN(c.Reg.X) }
func opDEY(c *CPU) { c.Reg.Y--; c.Reg.SetZN(c.Reg.Y) }

// --- Shifts ---

func opASL(c *CPU, v uint8) uint8 {
	r := v << 1
	c.Reg.SetFlag(registers.FlagC, v&0x80 != 0)
	c.Reg.SetZN(r)
	return r
}

func opLSR(c *CPU, v uint8) uint8 {
	r := v >> 1
	c.Reg.SetFlag(registers.FlagC, v&0x01 != 0)
	c.Reg.SetZN(r)
	return r
}

func opROL(c *CPU, v uint8) uint8 {
	carryIn := uint8(0)
	if c.Reg.Flag(registers.FlagC) {
		carryIn = 1
	}
	r := (v << 1) | carryIn
	c.Reg.SetFlag(registers.FlagC, v&0x80 != 0)
	c.Reg.SetZN(r)
	return r
}

func opROR(c *CPU, v uint8) uint8 {
	carryIn := uint8(0)
	if c.Reg.Flag(registers.FlagC) {
		carryIn = 0x80
	}
	r := (v >> 1) | carryIn
	c.Reg.SetFlag(registers.FlagC, v&0x01 != 0)
	c.Reg.SetZN(r)
	return r
}

// --- Jumps/Calls ---

func opJMPAbs(c *CPU) { c.Reg.PC = c.fetchWordWithPC() }

func opJMPInd(c *CPU) {
	ptr := c.fetchWordWithPC()
	lo := uint16(c.bus.Fetch(ptr))
	hiAddr := (ptr & 0xFF00) | uint16(uint8(ptr)+1)
	hi := uint16(c.bus.Fetch(hiAddr))
	c.Reg.PC = lo | hi<<8
}

func opJSR(c *CPU) {
	target := c.fetchWordWithPC()
	c.push16(c.Reg.PC - 1)
	c.Reg.PC = target
}

func opRTS(c *CPU) { c.Reg.PC = c.pull16() + 1 }

// --- Branches ---

func (c *CPU) doBranch(taken bool, offset uint8) {
	if !taken {
		return
	}
	c.Reg.PushCycles(1)
	oldPC := c.Reg.PC
	newPC := uint16(int32(oldPC) + int32(int8(offset)))
	if oldPC&0xFF00 != newPC&0xFF00 {
		c.Reg.PushCycles(1)
	}
	c.Reg.PC = newPC
}

func opBCC(c *CPU, offset uint8) { c.doBranch(!c.Reg.Flag(registers.FlagC), offset) }
func opBCS(c *CPU, offset uint8) { c.doBranch(c.Reg.Flag(registers.FlagC), offset) }
func opBEQ(c *CPU, offset uint8) { c.doBranch(c.Reg.Flag(registers.FlagZ), offset) }
func opBNE(c *CPU, offset uint8) { c.doBranch(!c.Reg.Flag(registers.FlagZ), offset) }
func opBMI(c *CPU, offset uint8) { c.doBranch(c.Reg.Flag(registers.FlagN), offset) }
func opBPL(c *CPU, offset uint8) { c.doBranch(!c.Reg.Flag(registers.FlagN), offset) }
func opBVC(c *CPU, offset uint8) { c.doBranch(!c.Reg.Flag(registers.FlagV), offset) }
func opBVS(c *CPU, offset uint8) { c.doBranch(c.Reg.Flag(registers.FlagV), offset) }

// --- Status flags ---

func opCLC(c *CPU) { c.Reg.SetFlag(registers.FlagC, false) }
func opSEC(c *CPU) { c.Reg.SetFlag(registers.FlagC, true) }
func opCLD(c *CPU) { c.Reg.SetFlag(registers.FlagD, false) }
func opSED(c *CPU) { c.Reg.SetFlag(registers.FlagD, true) }
func opCLI(c *CPU) { c.Reg.SetFlag(registers.FlagI, false) }
func opSEI(c *CPU) { c.Reg.SetFlag(registers.FlagI, true) }
func opCLV(c *CPU) { c.Reg.SetFlag(registers.FlagV, false) }

// --- System ---

func opNOP(c *CPU) {}

func opBRK(c *CPU) {
	c.push16(c.Reg.PC + 1) // skip the conventional signature/padding byte
	c.push(c.Reg.Status(true))
	c.Reg.SetFlag(registers.FlagI, true)
	c.Reg.PC = c.bus.FetchWord(0xFFFE)
}

func opRTI(c *CPU) {
	c.Reg.SetStatus(c.pull())
	c.Reg.PC = c.pull16()
}
