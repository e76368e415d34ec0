package vmm

import (
	"bytes"
	"strings"
	"testing"

	"koratos/kernel/cpu"
	"koratos/kernel/gate"
	"koratos/kernel/kfmt"
)

func TestPageFaultHandler(t *testing.T) {
	defer func() {
		readCR2Fn = cpu.ReadCR2
		panicFn = kfmt.Panic
		kfmt.SetOutputSink(nil)
	}()

	var buf bytes.Buffer
	kfmt.SetOutputSink(&buf)
	readCR2Fn = func() uint64 { return 0xdeadbeaf }

	specs := []struct {
		errCode   uint64
		expReason string
	}{
		{0, "Reason: non-present page (read)"},
		{faultCausedByWrite, "Reason: non-present page (write)"},
		{faultProtectionViolation, "Reason: page protection violation (read)"},
		{faultProtectionViolation | faultCausedByWrite, "Reason: page protection violation (write)"},
		{faultUserMode, "Reason: non-present page (read), user-mode"},
		{faultProtectionViolation | faultMalformedTable, "Reason: page protection violation (read), page table has reserved bit set"},
		{faultInstructionFetch, "Reason: non-present page (instruction fetch)"},
	}

	for specIndex, spec := range specs {
		buf.Reset()

		var panicErr interface{}
		panicFn = func(e interface{}) { panicErr = e }

		regs := gate.Registers{Vector: uint64(gate.PageFaultException), Info: spec.errCode}
		pageFaultHandler(&regs)

		if panicErr != errUnrecoverableFault {
			t.Errorf("[spec %d] expected page fault handler to panic with errUnrecoverableFault; got %v", specIndex, panicErr)
		}

		out := buf.String()
		if !strings.Contains(out, "EXCEPTION: PAGE FAULT\nAccessed address: 0x00000000deadbeaf\n") {
			t.Errorf("[spec %d] expected output to include the faulting address; got %q", specIndex, out)
		}

		if !strings.Contains(out, spec.expReason+"\n") {
			t.Errorf("[spec %d] expected output to contain %q; got %q", specIndex, spec.expReason, out)
		}

		if !strings.Contains(out, "Registers:\nRAX = ") {
			t.Errorf("[spec %d] expected output to include a register dump; got %q", specIndex, out)
		}
	}
}

func TestInstallFaultHandler(t *testing.T) {
	defer func() {
		handleInterruptFn = gate.HandleInterrupt
	}()

	var calls int
	handleInterruptFn = func(num gate.InterruptNumber, ist uint8, handler gate.Handler) {
		calls++
		if num != gate.PageFaultException || ist != 0 || handler == nil {
			t.Errorf("unexpected registration: vector %d, ist %d", num, ist)
		}
	}

	InstallFaultHandler()

	if calls != 1 {
		t.Fatalf("expected HandleInterrupt to be called once; got %d", calls)
	}
}
