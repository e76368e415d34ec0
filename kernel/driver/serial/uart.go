// Package serial drives a 16550-compatible UART. The kernel mirrors its log
// output to COM1 so that a host running the kernel under QEMU can capture it.
package serial

import (
	"koratos/kernel"
	"koratos/kernel/cpu"
	"koratos/kernel/sync"
)

// COM1 is the I/O port base of the first serial port.
const COM1 = uint16(0x3f8)

// register offsets relative to the port base.
const (
	regData        = 0
	regIntEnable   = 1
	regFifoControl = 2
	regLineControl = 3
	regModemCtrl   = 4
	regLineStatus  = 5

	lineStatusTxEmpty = 0x20

	loopbackTestByte = 0xae

	// maxTxSpins bounds the wait for the transmit holding register so a
	// wedged UART cannot stall the kernel forever.
	maxTxSpins = 1 << 16
)

var (
	// the following functions are mocked by tests and are automatically
	// inlined by the compiler.
	portWriteByteFn = cpu.PortWriteByte
	portReadByteFn  = cpu.PortReadByte

	errLoopbackFailed = &kernel.Error{Module: "serial", Message: "loopback test failed; no UART present"}
)

// Port is a 16550 UART configured for 38400 baud, 8N1.
type Port struct {
	lock sync.IRQSpinlock
	base uint16
}

// Init binds the port to the UART at the specified I/O base, programs it and
// verifies that it is present by running a loopback test.
func (p *Port) Init(base uint16) *kernel.Error {
	p.lock.Acquire()
	defer p.lock.Release()

	p.base = base

	p.out(regIntEnable, 0x00)   // no interrupts
	p.out(regLineControl, 0x80) // DLAB on
	p.out(regData, 0x03)        // divisor low byte: 38400 baud
	p.out(regIntEnable, 0x00)   // divisor high byte
	p.out(regLineControl, 0x03) // 8 bits, no parity, one stop bit
	p.out(regFifoControl, 0xc7) // enable and clear FIFOs, 14-byte threshold
	p.out(regModemCtrl, 0x1e)   // loopback mode

	p.out(regData, loopbackTestByte)
	if portReadByteFn(p.base+regData) != loopbackTestByte {
		return errLoopbackFailed
	}

	p.out(regModemCtrl, 0x0f) // normal operation: DTR, RTS, OUT1, OUT2
	return nil
}

// Write implements io.Writer. Line feeds are translated to CR LF.
func (p *Port) Write(data []byte) (int, error) {
	p.lock.Acquire()
	defer p.lock.Release()

	for _, b := range data {
		if b == '\n' {
			p.transmit('\r')
		}
		p.transmit(b)
	}

	return len(data), nil
}

func (p *Port) transmit(b byte) {
	for spins := 0; portReadByteFn(p.base+regLineStatus)&lineStatusTxEmpty == 0 && spins < maxTxSpins; spins++ {
	}

	p.out(regData, b)
}

func (p *Port) out(reg uint16, val uint8) {
	portWriteByteFn(p.base+reg, val)
}
