package vmm

import (
	"io"

	"koratos/kernel"
	"koratos/kernel/cpu"
	"koratos/kernel/gate"
	"koratos/kernel/kfmt"
)

// Page fault error code bits.
const (
	faultProtectionViolation = 1 << iota
	faultCausedByWrite
	faultUserMode
	faultMalformedTable
	faultInstructionFetch
)

var (
	// the following functions are mocked by tests and are automatically
	// inlined by the compiler.
	readCR2Fn         = cpu.ReadCR2
	handleInterruptFn = gate.HandleInterrupt
	panicFn           = kfmt.Panic

	errUnrecoverableFault = &kernel.Error{Module: "vmm", Message: "page fault"}
)

// InstallFaultHandler registers the page fault handler with the interrupt
// dispatch table.
func InstallFaultHandler() {
	handleInterruptFn(gate.PageFaultException, 0, pageFaultHandler)
}

// pageFaultHandler is invoked when a page table entry is not present or when
// a protection check fails. Page faults are never recovered from.
func pageFaultHandler(regs *gate.Registers) {
	w := kfmt.GetOutputSink()

	kfmt.Fprintf(w, "\nEXCEPTION: PAGE FAULT\nAccessed address: 0x%16x\nReason: ", readCR2Fn())
	describeFault(w, regs.Info)
	kfmt.Fprintf(w, "\n\nRegisters:\n")
	regs.DumpTo(w)

	panicFn(errUnrecoverableFault)
}

// describeFault writes a description of the page fault error code to w.
func describeFault(w io.Writer, errorCode uint64) {
	if errorCode&faultProtectionViolation != 0 {
		kfmt.Fprintf(w, "page protection violation")
	} else {
		kfmt.Fprintf(w, "non-present page")
	}

	if errorCode&faultCausedByWrite != 0 {
		kfmt.Fprintf(w, " (write)")
	} else if errorCode&faultInstructionFetch != 0 {
		kfmt.Fprintf(w, " (instruction fetch)")
	} else {
		kfmt.Fprintf(w, " (read)")
	}

	if errorCode&faultUserMode != 0 {
		kfmt.Fprintf(w, ", user-mode")
	}

	if errorCode&faultMalformedTable != 0 {
		kfmt.Fprintf(w, ", page table has reserved bit set")
	}
}
