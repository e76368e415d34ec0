package cpu

import "unsafe"

// DescriptorTablePointer holds the operand of the lgdt and lidt
// instructions: a 16-bit limit immediately followed by a 64-bit base
// address. The leading padding places the limit right before the naturally
// aligned base so that the pair forms the packed 10-byte layout the CPU
// expects.
type DescriptorTablePointer struct {
	_     [3]uint16
	limit uint16
	base  uint64
}

// Set points the descriptor at a table that starts at base and spans size
// bytes.
func (p *DescriptorTablePointer) Set(base, size uintptr) {
	p.base = uint64(base)
	p.limit = uint16(size - 1)
}

// Base returns the table address.
func (p *DescriptorTablePointer) Base() uintptr {
	return uintptr(p.base)
}

// Limit returns the offset of the last valid byte in the table.
func (p *DescriptorTablePointer) Limit() uint16 {
	return p.limit
}

// Addr returns the address that must be passed to LoadGDT or LoadIDT.
func (p *DescriptorTablePointer) Addr() uintptr {
	return uintptr(unsafe.Pointer(&p.limit))
}
