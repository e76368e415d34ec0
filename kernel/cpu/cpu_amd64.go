// Package cpu exposes the privileged amd64 instructions used by the kernel.
// Every function without a body is implemented in cpu_amd64.s.
package cpu

var (
	cpuidFn = ID

	// waitForInterruptFn is mocked by tests.
	waitForInterruptFn = WaitForInterrupt
)

// EnableInterrupts enables interrupt handling.
func EnableInterrupts()

// DisableInterrupts disables interrupt handling.
func DisableInterrupts()

// InterruptsEnabled returns true if the interrupt flag (RFLAGS.IF) is set.
func InterruptsEnabled() bool

// Halt disables interrupts and stops instruction execution. Calls to Halt
// never return.
func Halt()

// WaitForInterrupt suspends instruction execution until the next interrupt
// arrives.
func WaitForInterrupt()

// HaltLoop parks the CPU, waking up only to service interrupts. Calls to
// HaltLoop never return.
func HaltLoop() {
	for {
		waitForInterruptFn()
	}
}

// Breakpoint raises a breakpoint exception (int3).
func Breakpoint()

// FlushTLBEntry flushes a TLB entry for a particular virtual address.
func FlushTLBEntry(virtAddr uintptr)

// SwitchPDT sets the root page table directory to point to the specified
// physical address and flushes the TLB.
func SwitchPDT(pdtPhysAddr uintptr)

// ActivePDT returns the physical address of the currently active page table.
func ActivePDT() uintptr

// ReadCR2 returns the value stored in the CR2 register.
func ReadCR2() uint64

// LoadGDT loads the descriptor table pointer (limit followed by base address)
// stored at descriptorPtr into the GDTR register.
func LoadGDT(descriptorPtr uintptr)

// LoadIDT loads the descriptor table pointer (limit followed by base address)
// stored at descriptorPtr into the IDTR register.
func LoadIDT(descriptorPtr uintptr)

// ReloadSegments reloads CS with codeSelector using a far return and sets the
// SS, DS and ES registers to dataSelector.
func ReloadSegments(codeSelector, dataSelector uint16)

// reloadSegmentsAddr returns the entry point of the ReloadSegments assembly
// body.
func reloadSegmentsAddr() uintptr

// LoadTaskRegister loads the task register with the supplied TSS selector.
func LoadTaskRegister(selector uint16)

// ID returns information about the CPU and its features. It
// is implemented as a CPUID instruction with EAX=leaf and
// returns the values in EAX, EBX, ECX and EDX.
func ID(leaf uint32) (uint32, uint32, uint32, uint32)

// Vendor returns the 12-character vendor identification string reported by
// CPUID leaf 0 (e.g. "GenuineIntel").
func Vendor() [12]byte {
	var vendor [12]byte

	_, ebx, ecx, edx := cpuidFn(0)

	for i, reg := range [3]uint32{ebx, edx, ecx} {
		vendor[i*4] = byte(reg)
		vendor[i*4+1] = byte(reg >> 8)
		vendor[i*4+2] = byte(reg >> 16)
		vendor[i*4+3] = byte(reg >> 24)
	}

	return vendor
}

// IsIntel returns true if the code is running on an Intel processor.
func IsIntel() bool {
	_, ebx, ecx, edx := cpuidFn(0)
	return ebx == 0x756e6547 && // "Genu"
		edx == 0x49656e69 && // "ineI"
		ecx == 0x6c65746e // "ntel"
}

// PortWriteByte writes a uint8 value to the requested port.
func PortWriteByte(port uint16, val uint8)

// PortWriteWord writes a uint16 value to the requested port.
func PortWriteWord(port uint16, val uint16)

// PortWriteDword writes a uint32 value to the requested port.
func PortWriteDword(port uint16, val uint32)

// PortReadByte reads a uint8 value from the requested port.
func PortReadByte(port uint16) uint8

// PortReadWord reads a uint16 value from the requested port.
func PortReadWord(port uint16) uint16

// PortReadDword reads a uint32 value from the requested port.
func PortReadDword(port uint16) uint32
