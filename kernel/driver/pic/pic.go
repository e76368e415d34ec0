// Package pic drives the pair of cascaded 8259 programmable interrupt
// controllers found on PC-compatible machines.
package pic

import (
	"koratos/kernel"
	"koratos/kernel/cpu"
	"koratos/kernel/sync"
)

const (
	primaryCommandPort   = uint16(0x20)
	primaryDataPort      = uint16(0x21)
	secondaryCommandPort = uint16(0xa0)
	secondaryDataPort    = uint16(0xa1)

	// ioWaitPort is an unused port; writing to it takes long enough for
	// the controllers to process the previous command.
	ioWaitPort = uint16(0x80)

	cmdInit           = 0x11
	cmdEndOfInterrupt = 0x20
	mode8086          = 0x01

	// linesPerController is the number of IRQ lines a single 8259 serves.
	linesPerController = 8

	// cascadeLine is the primary IRQ line that the secondary is wired to.
	cascadeLine = 2

	// exceptionVectors is the number of vectors reserved for CPU exceptions.
	exceptionVectors = 32
)

var (
	// the following functions are mocked by tests and are automatically
	// inlined by the compiler.
	portWriteByteFn = cpu.PortWriteByte
	portReadByteFn  = cpu.PortReadByte

	// ErrInvalidOffset is returned when a vector offset overlaps the CPU
	// exception vectors or the range of the other controller.
	ErrInvalidOffset = &kernel.Error{Module: "pic", Message: "invalid interrupt vector offset"}
)

// controller is a single 8259.
type controller struct {
	offset  uint8
	command uint16
	data    uint16
}

func (c *controller) handlesInterrupt(vector uint8) bool {
	return vector >= c.offset && int(vector) < int(c.offset)+linesPerController
}

func (c *controller) endOfInterrupt() {
	portWriteByteFn(c.command, cmdEndOfInterrupt)
}

func (c *controller) readMask() uint8 {
	return portReadByteFn(c.data)
}

func (c *controller) writeMask(mask uint8) {
	portWriteByteFn(c.data, mask)
}

// ChainedPICs is a primary 8259 with a secondary 8259 cascaded on IRQ line 2.
// Both controllers are remapped so that their vectors do not collide with the
// CPU exception vectors.
type ChainedPICs struct {
	lock      sync.IRQSpinlock
	primary   controller
	secondary controller
}

// Init assigns the vector offsets for both controllers. It does not touch
// the hardware; Initialize must be called to program the controllers.
func (p *ChainedPICs) Init(primaryOffset, secondaryOffset uint8) *kernel.Error {
	if !validOffset(primaryOffset) || !validOffset(secondaryOffset) {
		return ErrInvalidOffset
	}

	// The two 8-vector ranges must be disjoint
	if delta := int(primaryOffset) - int(secondaryOffset); delta > -linesPerController && delta < linesPerController {
		return ErrInvalidOffset
	}

	p.lock.Acquire()
	p.primary = controller{offset: primaryOffset, command: primaryCommandPort, data: primaryDataPort}
	p.secondary = controller{offset: secondaryOffset, command: secondaryCommandPort, data: secondaryDataPort}
	p.lock.Release()

	return nil
}

func validOffset(offset uint8) bool {
	return offset >= exceptionVectors && int(offset)+linesPerController <= 256
}

// Offsets returns the first vector of the primary and secondary controller.
func (p *ChainedPICs) Offsets() (uint8, uint8) {
	return p.primary.offset, p.secondary.offset
}

// Initialize runs the initialization sequence on both controllers, remapping
// their vectors to the configured offsets. The interrupt masks in effect
// before the call are preserved.
func (p *ChainedPICs) Initialize() {
	p.lock.Acquire()
	defer p.lock.Release()

	savedPrimaryMask := p.primary.readMask()
	savedSecondaryMask := p.secondary.readMask()

	// ICW1: start the initialization sequence; an ICW4 will follow
	p.writeWait(p.primary.command, cmdInit)
	p.writeWait(p.secondary.command, cmdInit)

	// ICW2: vector offsets
	p.writeWait(p.primary.data, p.primary.offset)
	p.writeWait(p.secondary.data, p.secondary.offset)

	// ICW3: the primary gets a bitmask of the line the secondary is wired
	// to while the secondary gets its cascade identity
	p.writeWait(p.primary.data, 1<<cascadeLine)
	p.writeWait(p.secondary.data, cascadeLine)

	// ICW4: 8086 mode
	p.writeWait(p.primary.data, mode8086)
	p.writeWait(p.secondary.data, mode8086)

	p.primary.writeMask(savedPrimaryMask)
	p.secondary.writeMask(savedSecondaryMask)
}

func (p *ChainedPICs) writeWait(port uint16, val uint8) {
	portWriteByteFn(port, val)
	portWriteByteFn(ioWaitPort, 0)
}

// HandlesInterrupt returns true if the vector is served by either controller.
func (p *ChainedPICs) HandlesInterrupt(vector uint8) bool {
	return p.primary.handlesInterrupt(vector) || p.secondary.handlesInterrupt(vector)
}

// NotifyEndOfInterrupt acknowledges the interrupt identified by vector. For
// vectors served by the secondary, both controllers must be notified with the
// secondary first. Vectors that are not served by the pair are ignored.
func (p *ChainedPICs) NotifyEndOfInterrupt(vector uint8) {
	p.lock.Acquire()
	defer p.lock.Release()

	if !p.HandlesInterrupt(vector) {
		return
	}

	if p.secondary.handlesInterrupt(vector) {
		p.secondary.endOfInterrupt()
	}
	p.primary.endOfInterrupt()
}

// ReadMasks returns the interrupt masks of the primary and the secondary
// controller. A set bit disables the corresponding IRQ line.
func (p *ChainedPICs) ReadMasks() (uint8, uint8) {
	p.lock.Acquire()
	defer p.lock.Release()

	return p.primary.readMask(), p.secondary.readMask()
}

// WriteMasks sets the interrupt masks of both controllers.
func (p *ChainedPICs) WriteMasks(primaryMask, secondaryMask uint8) {
	p.lock.Acquire()
	defer p.lock.Release()

	p.primary.writeMask(primaryMask)
	p.secondary.writeMask(secondaryMask)
}

// SetLineMasked masks or unmasks a single IRQ line (0-15). Lines outside
// that range are ignored.
func (p *ChainedPICs) SetLineMasked(line uint8, masked bool) {
	if line >= 2*linesPerController {
		return
	}

	p.lock.Acquire()
	defer p.lock.Release()

	c := &p.primary
	if line >= linesPerController {
		c = &p.secondary
		line -= linesPerController
	}

	mask := c.readMask()
	if masked {
		mask |= 1 << line
	} else {
		mask &^= 1 << line
	}
	c.writeMask(mask)
}

// Disable masks every IRQ line on both controllers.
func (p *ChainedPICs) Disable() {
	p.WriteMasks(0xff, 0xff)
}
