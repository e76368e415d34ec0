package gate

// InterruptNumber describes an x86 interrupt/exception/trap slot.
type InterruptNumber uint8

const (
	// DivideByZero occurs when dividing any number by 0 using the DIV or
	// IDIV instruction.
	DivideByZero = InterruptNumber(0)

	// Debug occurs when a debug trap condition is met.
	Debug = InterruptNumber(1)

	// NMI (non-maskable-interrupt) is a hardware interrupt that indicates
	// issues with RAM or unrecoverable hardware problems. It may also be
	// raised by the CPU when a watchdog timer is enabled.
	NMI = InterruptNumber(2)

	// Breakpoint occurs when the CPU executes an int3 instruction. The
	// saved RIP points to the instruction following int3.
	Breakpoint = InterruptNumber(3)

	// Overflow occurs when an overflow occurs (e.g result of division
	// cannot fit into the registers used).
	Overflow = InterruptNumber(4)

	// BoundRangeExceeded occurs when the BOUND instruction is invoked with
	// an index out of range.
	BoundRangeExceeded = InterruptNumber(5)

	// InvalidOpcode occurs when the CPU attempts to execute an invalid or
	// undefined instruction opcode.
	InvalidOpcode = InterruptNumber(6)

	// DeviceNotAvailable occurs when the CPU attempts to execute an
	// FPU/MMX/SSE instruction while no FPU is available or while
	// FPU/MMX/SSE support has been disabled by manipulating the CR0
	// register.
	DeviceNotAvailable = InterruptNumber(7)

	// DoubleFault occurs when an unhandled exception occurs or when an
	// exception occurs within a running exception handler.
	DoubleFault = InterruptNumber(8)

	// InvalidTSS occurs when the TSS points to an invalid task segment
	// selector.
	InvalidTSS = InterruptNumber(10)

	// SegmentNotPresent occurs when the CPU attempts to invoke a present
	// gate with an invalid stack segment selector.
	SegmentNotPresent = InterruptNumber(11)

	// StackSegmentFault occurs when attempting to push/pop from a
	// non-canonical stack address or when the stack base/limit (set in
	// GDT) checks fail.
	StackSegmentFault = InterruptNumber(12)

	// GPFException occurs when a general protection fault occurs.
	GPFException = InterruptNumber(13)

	// PageFaultException occurs when a page directory table (PDT) or one
	// of its entries is not present or when a privilege and/or RW
	// protection check fails.
	PageFaultException = InterruptNumber(14)

	// FloatingPointException occurs while invoking an FP instruction while:
	//  - CR0.NE = 1 OR
	//  - an unmasked FP exception is pending
	FloatingPointException = InterruptNumber(16)

	// AlignmentCheck occurs when alignment checks are enabled and an
	// unaligned memory access is performed.
	AlignmentCheck = InterruptNumber(17)

	// MachineCheck occurs when the CPU detects internal errors such as
	// memory-, bus- or cache-related errors.
	MachineCheck = InterruptNumber(18)

	// SIMDFloatingPointException occurs when an unmasked SSE exception
	// occurs while CR4.OSXMMEXCPT is set to 1. If the OSXMMEXCPT bit is
	// not set, SIMD FP exceptions cause InvalidOpcode exceptions instead.
	SIMDFloatingPointException = InterruptNumber(19)

	// VirtualizationException occurs on EPT violations.
	VirtualizationException = InterruptNumber(20)

	// ControlProtectionException occurs on control flow enforcement
	// violations.
	ControlProtectionException = InterruptNumber(21)

	// SecurityException is raised by SVM in security sensitive events.
	SecurityException = InterruptNumber(30)

	// ExceptionCount is the number of vectors reserved for CPU exceptions.
	// Hardware interrupts must be remapped at or above this number.
	ExceptionCount = 32
)

var exceptionNames = [ExceptionCount]string{
	DivideByZero:               "DIVIDE ERROR",
	Debug:                      "DEBUG",
	NMI:                        "NON-MASKABLE INTERRUPT",
	Breakpoint:                 "BREAKPOINT",
	Overflow:                   "OVERFLOW",
	BoundRangeExceeded:         "BOUND RANGE EXCEEDED",
	InvalidOpcode:              "INVALID OPCODE",
	DeviceNotAvailable:         "DEVICE NOT AVAILABLE",
	DoubleFault:                "DOUBLE FAULT",
	InvalidTSS:                 "INVALID TSS",
	SegmentNotPresent:          "SEGMENT NOT PRESENT",
	StackSegmentFault:          "STACK SEGMENT FAULT",
	GPFException:               "GENERAL PROTECTION FAULT",
	PageFaultException:         "PAGE FAULT",
	FloatingPointException:     "X87 FLOATING POINT",
	AlignmentCheck:             "ALIGNMENT CHECK",
	MachineCheck:               "MACHINE CHECK",
	SIMDFloatingPointException: "SIMD FLOATING POINT",
	VirtualizationException:    "VIRTUALIZATION",
	ControlProtectionException: "CONTROL PROTECTION",
	SecurityException:          "SECURITY",
}

// IsException returns true if the number is reserved for CPU exceptions.
func (n InterruptNumber) IsException() bool {
	return n < ExceptionCount
}

// ExceptionName returns the name of the CPU exception for n or "RESERVED"
// for unassigned exception slots and hardware interrupts.
func (n InterruptNumber) ExceptionName() string {
	if n.IsException() && exceptionNames[n] != "" {
		return exceptionNames[n]
	}
	return "RESERVED"
}
