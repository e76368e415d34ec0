package gate

import "koratos/kernel/gdt"

const (
	gateTypeInterrupt = 0xe
	gatePresent       = 1 << 7
	gateISTMask       = 0x7
)

// Descriptor is a 16-byte entry of the interrupt descriptor table.
type Descriptor struct {
	offsetLow  uint16
	selector   uint16
	ist        uint8
	typeAttr   uint8
	offsetMid  uint16
	offsetHigh uint32
	_          uint32
}

// set points the descriptor to the handler at addr. Gates are always
// interrupt gates so handlers run with interrupts disabled.
func (d *Descriptor) set(addr uintptr, selector gdt.Selector, istOffset uint8, present bool) {
	d.offsetLow = uint16(addr)
	d.offsetMid = uint16(addr >> 16)
	d.offsetHigh = uint32(addr >> 32)
	d.selector = uint16(selector)
	d.ist = istOffset & gateISTMask
	d.typeAttr = gateTypeInterrupt
	if present {
		d.typeAttr |= gatePresent
	}
}

// Present returns true if the gate can be invoked.
func (d *Descriptor) Present() bool {
	return d.typeAttr&gatePresent != 0
}

// HandlerAddress returns the address the gate jumps to.
func (d *Descriptor) HandlerAddress() uintptr {
	return uintptr(d.offsetLow) | uintptr(d.offsetMid)<<16 | uintptr(d.offsetHigh)<<32
}

// IST returns the interrupt stack table slot used by the gate (0 = none).
func (d *Descriptor) IST() uint8 {
	return d.ist
}

// Selector returns the code segment selector loaded when the gate fires.
func (d *Descriptor) Selector() gdt.Selector {
	return gdt.Selector(d.selector)
}
