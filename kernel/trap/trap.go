// Package trap installs the handlers for CPU exceptions that are not owned by
// a specific subsystem.
package trap

import (
	"koratos/kernel"
	"koratos/kernel/gate"
	"koratos/kernel/gdt"
	"koratos/kernel/kfmt"
)

var (
	// the following functions are mocked by tests and are automatically
	// inlined by the compiler.
	handleInterruptFn = gate.HandleInterrupt
	panicFn           = kfmt.Panic

	// lastBreakpoint is a copy of the frame saved by the most recent
	// breakpoint trap; breakpointCount counts the traps taken so far.
	lastBreakpoint  gate.Registers
	breakpointCount uint64

	errDoubleFault = &kernel.Error{Module: "trap", Message: "double fault"}
	errCPUFault    = &kernel.Error{Module: "trap", Message: "unrecoverable CPU exception"}

	// fatalExceptions lists the exceptions that terminate the kernel. Page
	// faults are handled by the vmm package.
	fatalExceptions = []gate.InterruptNumber{
		gate.DivideByZero,
		gate.Debug,
		gate.NMI,
		gate.Overflow,
		gate.BoundRangeExceeded,
		gate.InvalidOpcode,
		gate.DeviceNotAvailable,
		gate.InvalidTSS,
		gate.SegmentNotPresent,
		gate.StackSegmentFault,
		gate.GPFException,
		gate.FloatingPointException,
		gate.AlignmentCheck,
		gate.MachineCheck,
		gate.SIMDFloatingPointException,
		gate.VirtualizationException,
		gate.ControlProtectionException,
		gate.SecurityException,
	}
)

// Init registers the breakpoint, double fault and fatal exception handlers.
// The double fault handler runs on the IST stack reserved by the gdt package
// so it can execute even when the kernel stack has overflowed.
func Init() {
	handleInterruptFn(gate.Breakpoint, 0, breakpointHandler)
	handleInterruptFn(gate.DoubleFault, gdt.DoubleFaultISTIndex+1, doubleFaultHandler)

	for _, num := range fatalExceptions {
		handleInterruptFn(num, 0, fatalExceptionHandler)
	}
}

// breakpointHandler logs the interrupted context and resumes execution at the
// instruction that follows int3.
func breakpointHandler(regs *gate.Registers) {
	lastBreakpoint = *regs
	breakpointCount++

	kfmt.Printf("EXCEPTION: BREAKPOINT\n")
	regs.DumpTo(kfmt.GetOutputSink())
}

// LastBreakpoint returns the frame captured by the most recent breakpoint
// trap together with the number of breakpoint traps handled so far.
func LastBreakpoint() (gate.Registers, uint64) {
	return lastBreakpoint, breakpointCount
}

func doubleFaultHandler(regs *gate.Registers) {
	kfmt.Printf("\nEXCEPTION: DOUBLE FAULT (error code: %d)\n", regs.Info)
	regs.DumpTo(kfmt.GetOutputSink())
	panicFn(errDoubleFault)
}

func fatalExceptionHandler(regs *gate.Registers) {
	kfmt.Printf("\nEXCEPTION: %s (error code: %d)\n", gate.InterruptNumber(regs.Vector).ExceptionName(), regs.Info)
	regs.DumpTo(kfmt.GetOutputSink())
	panicFn(errCPUFault)
}
