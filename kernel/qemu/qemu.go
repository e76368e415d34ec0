// Package qemu signals the hosting QEMU instance through the isa-debug-exit
// device.
package qemu

import "koratos/kernel/cpu"

// ExitCode is written to the isa-debug-exit device. QEMU terminates with
// status (code << 1) | 1.
type ExitCode uint32

const (
	// ExitSuccess makes QEMU exit with status 33.
	ExitSuccess ExitCode = 0x10

	// ExitFailed makes QEMU exit with status 35.
	ExitFailed ExitCode = 0x11

	// debugExitPort is the I/O base of the isa-debug-exit device
	// (-device isa-debug-exit,iobase=0xf4,iosize=0x04).
	debugExitPort = uint16(0xf4)
)

var (
	// the following functions are mocked by tests and are automatically
	// inlined by the compiler.
	portWriteDwordFn = cpu.PortWriteDword
	cpuHaltFn        = cpu.Halt
)

// HostStatus returns the exit status observed by the host for code.
func (code ExitCode) HostStatus() int {
	return int(code)<<1 | 1
}

// Exit asks QEMU to terminate with the supplied code. When the kernel does
// not run under QEMU with the debug exit device, the write is ignored and the
// CPU is halted instead.
func Exit(code ExitCode) {
	portWriteDwordFn(debugExitPort, uint32(code))
	cpuHaltFn()
}
