// Package gate builds the interrupt descriptor table and routes every
// interrupt, exception and trap to the Go handler registered for it.
package gate

import (
	"io"
	"unsafe"

	"koratos/kernel"
	"koratos/kernel/cpu"
	"koratos/kernel/gdt"
	"koratos/kernel/kfmt"
	"koratos/kernel/sync"
)

// Registers contains a snapshot of all register values when an exception,
// interrupt or trap occurs. The layout matches the frame built by the
// gate entry code.
type Registers struct {
	RAX uint64
	RBX uint64
	RCX uint64
	RDX uint64
	RSI uint64
	RDI uint64
	RBP uint64
	R8  uint64
	R9  uint64
	R10 uint64
	R11 uint64
	R12 uint64
	R13 uint64
	R14 uint64
	R15 uint64

	// Vector is the interrupt number that triggered the gate.
	Vector uint64

	// Info contains the error code pushed by the CPU for exceptions that
	// provide one; it is 0 for all other gates.
	Info uint64

	// The return frame used by IRETQ
	RIP    uint64
	CS     uint64
	RFlags uint64
	RSP    uint64
	SS     uint64
}

// DumpTo outputs the register contents to w.
func (r *Registers) DumpTo(w io.Writer) {
	kfmt.Fprintf(w, "RAX = %16x RBX = %16x\n", r.RAX, r.RBX)
	kfmt.Fprintf(w, "RCX = %16x RDX = %16x\n", r.RCX, r.RDX)
	kfmt.Fprintf(w, "RSI = %16x RDI = %16x\n", r.RSI, r.RDI)
	kfmt.Fprintf(w, "RBP = %16x\n", r.RBP)
	kfmt.Fprintf(w, "R8  = %16x R9  = %16x\n", r.R8, r.R9)
	kfmt.Fprintf(w, "R10 = %16x R11 = %16x\n", r.R10, r.R11)
	kfmt.Fprintf(w, "R12 = %16x R13 = %16x\n", r.R12, r.R13)
	kfmt.Fprintf(w, "R14 = %16x R15 = %16x\n", r.R14, r.R15)
	kfmt.Fprintf(w, "\n")
	kfmt.Fprintf(w, "VEC = %16x ERR = %16x\n", r.Vector, r.Info)
	kfmt.Fprintf(w, "RIP = %16x CS  = %16x\n", r.RIP, r.CS)
	kfmt.Fprintf(w, "RSP = %16x SS  = %16x\n", r.RSP, r.SS)
	kfmt.Fprintf(w, "RFL = %16x\n", r.RFlags)
}

// Handler is a function that services an interrupt. It receives the saved
// register state; changes to it are restored when the handler returns.
type Handler func(*Registers)

const (
	// gateCount is the number of vectors supported by the CPU.
	gateCount = 256

	// gateEntrySize is the size of each entry in interruptGateEntries.
	gateEntrySize = 16
)

var (
	// the following functions are mocked by tests and are automatically
	// inlined by the compiler.
	loadIDTFn         = cpu.LoadIDT
	gateEntriesAddrFn = gateEntriesAddr
	panicFn           = kfmt.Panic

	// ErrAlreadyLoaded is returned by Init when the descriptor table has
	// already been loaded.
	ErrAlreadyLoaded = &kernel.Error{Module: "gate", Message: "interrupt descriptor table already loaded"}

	errUnhandledInterrupt = &kernel.Error{Module: "gate", Message: "unhandled interrupt"}

	lock     sync.Spinlock
	loaded   bool
	idt      [gateCount]Descriptor
	idtPtr   cpu.DescriptorTablePointer
	handlers [gateCount]Handler
)

// Init builds the interrupt descriptor table and loads it into the CPU. All
// gates without a registered handler are marked as non-present. Init may only
// be called once; subsequent calls return ErrAlreadyLoaded.
func Init() *kernel.Error {
	lock.Acquire()
	defer lock.Release()

	if loaded {
		return ErrAlreadyLoaded
	}

	for num := range idt {
		if handlers[num] == nil {
			idt[num].set(entryAddr(InterruptNumber(num)), gdt.KernelCodeSelector, 0, false)
		}
	}

	idtPtr.Set(uintptr(unsafe.Pointer(&idt[0])), unsafe.Sizeof(idt))
	loadIDTFn(idtPtr.Addr())

	loaded = true
	return nil
}

// HandleInterrupt ensures that the provided handler will be invoked when a
// particular interrupt number occurs and marks its gate as present. The value
// of the istOffset argument selects a stack from the interrupt stack table
// (1-7); if 0 then the interrupted stack is used.
func HandleInterrupt(intNumber InterruptNumber, istOffset uint8, handler Handler) {
	lock.Acquire()
	handlers[intNumber] = handler
	idt[intNumber].set(entryAddr(intNumber), gdt.KernelCodeSelector, istOffset, handler != nil)
	lock.Release()
}

// entryAddr returns the address of the entry stub for intNumber.
func entryAddr(intNumber InterruptNumber) uintptr {
	return gateEntriesAddrFn() + uintptr(intNumber)*gateEntrySize
}

// dispatchInterrupt is invoked by the interrupt gate entrypoints to route
// an incoming interrupt to the selected handler.
func dispatchInterrupt(regs *Registers) {
	if handler := handlers[uint8(regs.Vector)]; handler != nil {
		handler(regs)
		return
	}

	kfmt.Printf("\nunhandled interrupt %d\n", regs.Vector)
	regs.DumpTo(kfmt.GetOutputSink())
	panicFn(errUnhandledInterrupt)
}

// interruptGateEntries contains a fixed-size entry stub for each possible
// interrupt number followed by the code that saves the CPU state and calls
// dispatchInterrupt.
func interruptGateEntries()

// gateEntriesAddr returns the address of interruptGateEntries.
func gateEntriesAddr() uintptr
