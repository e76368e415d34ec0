package gate

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"
	"unsafe"

	"koratos/kernel/cpu"
	"koratos/kernel/gdt"
	"koratos/kernel/kfmt"
)

const fakeEntriesAddr = uintptr(0xffff8000_00104000)

func resetGateState() {
	loaded = false
	for i := range handlers {
		handlers[i] = nil
		idt[i] = Descriptor{}
	}
}

func TestRegistersLayout(t *testing.T) {
	var regs Registers

	specs := []struct {
		field  string
		offset uintptr
		exp    uintptr
	}{
		{"RAX", unsafe.Offsetof(regs.RAX), 0},
		{"R15", unsafe.Offsetof(regs.R15), 112},
		{"Vector", unsafe.Offsetof(regs.Vector), 120},
		{"Info", unsafe.Offsetof(regs.Info), 128},
		{"RIP", unsafe.Offsetof(regs.RIP), 136},
		{"SS", unsafe.Offsetof(regs.SS), 168},
	}

	for specIndex, spec := range specs {
		if spec.offset != spec.exp {
			t.Errorf("[spec %d] expected %s to be stored at offset %d; got %d", specIndex, spec.field, spec.exp, spec.offset)
		}
	}
}

func TestRegistersDumpTo(t *testing.T) {
	regs := Registers{
		RAX: 1, RBX: 2, RCX: 3, RDX: 4, RSI: 5, RDI: 6, RBP: 7,
		R8: 8, R9: 9, R10: 10, R11: 11, R12: 12, R13: 13, R14: 14, R15: 15,
		Vector: 14, Info: 2,
		RIP: 0xdeadbeef, CS: 0x8, RFlags: 0x202, RSP: 0xfeed, SS: 0x10,
	}

	exp := "RAX = 0000000000000001 RBX = 0000000000000002\n" +
		"RCX = 0000000000000003 RDX = 0000000000000004\n" +
		"RSI = 0000000000000005 RDI = 0000000000000006\n" +
		"RBP = 0000000000000007\n" +
		"R8  = 0000000000000008 R9  = 0000000000000009\n" +
		"R10 = 000000000000000a R11 = 000000000000000b\n" +
		"R12 = 000000000000000c R13 = 000000000000000d\n" +
		"R14 = 000000000000000e R15 = 000000000000000f\n" +
		"\n" +
		"VEC = 000000000000000e ERR = 0000000000000002\n" +
		"RIP = 00000000deadbeef CS  = 0000000000000008\n" +
		"RSP = 000000000000feed SS  = 0000000000000010\n" +
		"RFL = 0000000000000202\n"

	var buf bytes.Buffer
	regs.DumpTo(&buf)

	if got := buf.String(); got != exp {
		t.Fatalf("expected to get:\n%q\ngot:\n%q", exp, got)
	}
}

func TestDescriptor(t *testing.T) {
	var d Descriptor

	if exp, got := uintptr(16), unsafe.Sizeof(d); got != exp {
		t.Fatalf("expected descriptor size to be %d; got %d", exp, got)
	}

	d.set(0xffff8000_12345678, gdt.KernelCodeSelector, 1, true)

	raw := unsafe.Slice((*byte)(unsafe.Pointer(&d)), 16)
	exp := []byte{
		0x78, 0x56, // offset 0-15
		0x08, 0x00, // selector
		0x01,       // ist
		0x8e,       // present, DPL 0, interrupt gate
		0x34, 0x12, // offset 16-31
		0x00, 0x80, 0xff, 0xff, // offset 32-63
		0x00, 0x00, 0x00, 0x00,
	}
	if !bytes.Equal(raw, exp) {
		t.Fatalf("expected encoded descriptor to be % x; got % x", exp, raw)
	}

	if !d.Present() || d.IST() != 1 || d.Selector() != gdt.KernelCodeSelector || d.HandlerAddress() != 0xffff8000_12345678 {
		t.Fatal("descriptor accessors do not match the encoded values")
	}

	d.set(0x1000, gdt.KernelCodeSelector, 9, false)
	if d.Present() {
		t.Error("expected descriptor to be non-present")
	}

	if got := d.IST(); got != 1 {
		t.Errorf("expected IST value to be masked to 3 bits; got %d", got)
	}
}

func TestInit(t *testing.T) {
	defer func() {
		loadIDTFn = cpu.LoadIDT
		gateEntriesAddrFn = gateEntriesAddr
		resetGateState()
	}()
	resetGateState()

	var loadCalls int
	loadIDTFn = func(ptr uintptr) {
		loadCalls++
		if ptr != idtPtr.Addr() {
			t.Errorf("expected lidt operand to be 0x%x; got 0x%x", idtPtr.Addr(), ptr)
		}
	}
	gateEntriesAddrFn = func() uintptr { return fakeEntriesAddr }

	// handlers registered before Init must survive it
	HandleInterrupt(DoubleFault, gdt.DoubleFaultISTIndex+1, func(_ *Registers) {})

	if err := Init(); err != nil {
		t.Fatal(err)
	}

	if loadCalls != 1 {
		t.Fatalf("expected LoadIDT to be called once; got %d", loadCalls)
	}

	if exp, got := uintptr(unsafe.Pointer(&idt[0])), idtPtr.Base(); got != exp {
		t.Errorf("expected IDT base to be 0x%x; got 0x%x", exp, got)
	}

	if exp, got := uint16(gateCount*16-1), idtPtr.Limit(); got != exp {
		t.Errorf("expected IDT limit to be %d; got %d", exp, got)
	}

	for num := range idt {
		desc := &idt[num]
		if exp := fakeEntriesAddr + uintptr(num)*gateEntrySize; desc.HandlerAddress() != exp {
			t.Errorf("[gate %d] expected handler address to be 0x%x; got 0x%x", num, exp, desc.HandlerAddress())
		}

		if desc.Selector() != gdt.KernelCodeSelector {
			t.Errorf("[gate %d] expected selector to be kernel code", num)
		}

		expPresent := InterruptNumber(num) == DoubleFault
		if desc.Present() != expPresent {
			t.Errorf("[gate %d] expected present flag to be %t", num, expPresent)
		}
	}

	if got := idt[DoubleFault].IST(); got != 1 {
		t.Errorf("expected double fault gate to use IST 1; got %d", got)
	}

	t.Run("register after init", func(t *testing.T) {
		HandleInterrupt(Breakpoint, 0, func(_ *Registers) {})
		if !idt[Breakpoint].Present() || idt[Breakpoint].IST() != 0 {
			t.Fatal("expected breakpoint gate to be present without an IST stack")
		}
	})

	t.Run("second call", func(t *testing.T) {
		if err := Init(); err != ErrAlreadyLoaded {
			t.Fatalf("expected ErrAlreadyLoaded; got %v", err)
		}

		if loadCalls != 1 {
			t.Fatal("expected second Init call not to reload the IDT")
		}

		if !idt[Breakpoint].Present() {
			t.Fatal("expected second Init call to leave the gates untouched")
		}
	})
}

func TestGateEntries(t *testing.T) {
	// vectors for which the CPU pushes an error code
	errorCodeVectors := map[int]bool{
		int(DoubleFault):        true,
		int(InvalidTSS):         true,
		int(SegmentNotPresent):  true,
		int(StackSegmentFault):  true,
		int(GPFException):       true,
		int(PageFaultException): true,
		int(AlignmentCheck):     true,
		21:                      true, // control protection
		29:                      true, // VMM communication
		30:                      true, // security
	}

	var (
		base       = gateEntriesAddr()
		entries    = unsafe.Slice((*byte)(unsafe.Pointer(base)), 256*gateEntrySize)
		commonAddr = base + 256*gateEntrySize
	)

	for vector := 0; vector < 256; vector++ {
		entry := entries[vector*gateEntrySize : (vector+1)*gateEntrySize]

		expPrologue := []byte{0x6a, 0x00} // push $0
		if errorCodeVectors[vector] {
			expPrologue = []byte{0x66, 0x90} // 2-byte nop
		}

		if !bytes.Equal(entry[:2], expPrologue) {
			t.Errorf("[vector %d] expected entry to start with % x; got % x", vector, expPrologue, entry[:2])
		}

		if entry[2] != 0xe8 {
			t.Errorf("[vector %d] expected a call rel32 at offset 2; got opcode 0x%x", vector, entry[2])
			continue
		}

		rel := int32(binary.LittleEndian.Uint32(entry[3:7]))
		target := base + uintptr(vector*gateEntrySize+7) + uintptr(rel)
		if target != commonAddr {
			t.Errorf("[vector %d] expected call to land on the common handler at 0x%x; got 0x%x", vector, commonAddr, target)
		}

		for i := 7; i < gateEntrySize; i++ {
			if entry[i] != 0x90 {
				t.Errorf("[vector %d] expected nop padding at offset %d; got 0x%x", vector, i, entry[i])
			}
		}
	}

	// sub rsp, 120
	if common := unsafe.Slice((*byte)(unsafe.Pointer(commonAddr)), 4); !bytes.Equal(common, []byte{0x48, 0x83, 0xec, 0x78}) {
		t.Errorf("expected the common handler to reserve the register area; got % x", common)
	}
}

func TestDispatchInterrupt(t *testing.T) {
	defer func() {
		panicFn = kfmt.Panic
		kfmt.SetOutputSink(nil)
		resetGateState()
	}()
	resetGateState()

	var buf bytes.Buffer
	kfmt.SetOutputSink(&buf)

	t.Run("registered handler", func(t *testing.T) {
		var gotVector uint64
		HandleInterrupt(InterruptNumber(33), 0, func(regs *Registers) {
			gotVector = regs.Vector
			regs.RAX = 42
		})

		regs := Registers{Vector: 33}
		dispatchInterrupt(&regs)

		if gotVector != 33 {
			t.Fatalf("expected handler to receive vector 33; got %d", gotVector)
		}

		if regs.RAX != 42 {
			t.Fatal("expected handler modifications to the saved registers to persist")
		}
	})

	t.Run("unhandled interrupt", func(t *testing.T) {
		buf.Reset()

		var panicErr interface{}
		panicFn = func(e interface{}) { panicErr = e }

		dispatchInterrupt(&Registers{Vector: 200})

		if panicErr != errUnhandledInterrupt {
			t.Fatalf("expected panic with errUnhandledInterrupt; got %v", panicErr)
		}

		if !strings.Contains(buf.String(), "unhandled interrupt 200") {
			t.Fatalf("expected output to mention the vector; got %q", buf.String())
		}
	})
}

func TestExceptionName(t *testing.T) {
	specs := []struct {
		num InterruptNumber
		exp string
	}{
		{Breakpoint, "BREAKPOINT"},
		{DoubleFault, "DOUBLE FAULT"},
		{PageFaultException, "PAGE FAULT"},
		{InterruptNumber(15), "RESERVED"},
		{InterruptNumber(32), "RESERVED"},
	}

	for specIndex, spec := range specs {
		if got := spec.num.ExceptionName(); got != spec.exp {
			t.Errorf("[spec %d] expected name %q; got %q", specIndex, spec.exp, got)
		}
	}
}
