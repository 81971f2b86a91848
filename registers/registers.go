// Package registers holds the MOS 6510 register file: the accumulator,
// index registers, stack pointer, program counter, processor status flags
// and the cumulative cycle counter the rest of the core times itself
// against.
package registers

// Status flag bits, in the standard 6502 bit order.
const (
	FlagC uint8 = 0x01 // Carry
	FlagZ uint8 = 0x02 // Zero
	FlagI uint8 = 0x04 // Interrupt Disable
	FlagD uint8 = 0x08 // Decimal Mode
	FlagB uint8 = 0x10 // Break Command
	Flag1 uint8 = 0x20 // Unused, always reads 1
	FlagV uint8 = 0x40 // Overflow
	FlagN uint8 = 0x80 // Negative
)

// Registers is the 6510 register file. Fields are exported so CPU opcode
// handlers can touch them directly, the way the teacher's CPU struct does
// for its own (inlined) register fields.
type Registers struct {
	A  uint8
	X  uint8
	Y  uint8
	SP uint8
	PC uint16
	P  uint8

	// Cycles is the number of CPU cycles executed since the last reset.
	// The VIC derives its raster position from this counter.
	Cycles uint64
}

// New returns a Registers in its post-reset state.
func New() *Registers {
	r := &Registers{}
	r.Reset()
	return r
}

// Reset clears A, X, Y, sets SP to 0xFD, clears the cycle counter, sets
// the interrupt-disable flag and clears the rest.
func (r *Registers) Reset() {
	r.A = 0
	r.X = 0
	r.Y = 0
	r.SP = 0xFD
	r.Cycles = 0
	r.P = Flag1 | FlagI
}

// SetZeroFromValue sets Z from whether v is zero.
func (r *Registers) SetZeroFromValue(v uint8) {
	if v == 0 {
		r.P |= FlagZ
	} else {
		r.P &^= FlagZ
	}
}

// SetNegativeFromValue sets N from bit 7 of v.
func (r *Registers) SetNegativeFromValue(v uint8) {
	if v&0x80 != 0 {
		r.P |= FlagN
	} else {
		r.P &^= FlagN
	}
}

// SetZN is a convenience wrapper applying both flag updates at once; this
// is the pair almost every load/transfer/increment opcode needs.
func (r *Registers) SetZN(v uint8) {
	r.SetZeroFromValue(v)
	r.SetNegativeFromValue(v)
}

// Flag reports whether the given status bit is set.
func (r *Registers) Flag(mask uint8) bool {
	return r.P&mask != 0
}

// SetFlag sets or clears the given status bit.
func (r *Registers) SetFlag(mask uint8, set bool) {
	if set {
		r.P |= mask
	} else {
		r.P &^= mask
	}
}

// Status packs the processor status into a single byte, with the unused
// bit forced to 1, the way it appears on the stack after PHP/BRK/IRQ/NMI.
func (r *Registers) Status(breakSet bool) uint8 {
	p := r.P | Flag1
	if breakSet {
		p |= FlagB
	} else {
		p &^= FlagB
	}
	return p
}

// SetStatus unpacks a byte pulled from the stack back into the flags,
// forcing the unused bit to 1. The B flag itself is not a real latch on
// the 6510; callers that care about it (PLP) should mask it out of the
// value they keep.
func (r *Registers) SetStatus(b uint8) {
	r.P = b | Flag1
}

// PushCycles adds n to the cumulative cycle counter.
func (r *Registers) PushCycles(n uint8) {
	r.Cycles += uint64(n)
}
