// Package gdt installs the global descriptor table and the task state segment
// that provides the kernel with a known-good stack for double faults.
package gdt

import (
	"unsafe"

	"koratos/kernel"
	"koratos/kernel/cpu"
	"koratos/kernel/mm"
	"koratos/kernel/sync"
)

// Selector is an index into the descriptor table shifted left by 3 and OR-ed
// with the requested privilege level.
type Selector uint16

// Index returns the descriptor table slot that the selector refers to.
func (s Selector) Index() uint16 {
	return uint16(s) >> 3
}

const (
	// KernelCodeSelector refers to the ring 0 long mode code segment.
	KernelCodeSelector = Selector(1 << 3)

	// KernelDataSelector refers to the ring 0 data segment.
	KernelDataSelector = Selector(2 << 3)

	// TSSSelector refers to the 16-byte task state segment descriptor.
	TSSSelector = Selector(3 << 3)

	// DoubleFaultISTIndex is the interrupt stack table slot that holds the
	// double fault stack. The IST field of an interrupt gate refers to this
	// slot as DoubleFaultISTIndex+1.
	DoubleFaultISTIndex = 0

	// doubleFaultStackSize is the size of the stack used while handling
	// double faults.
	doubleFaultStackSize = 5 * mm.PageSize

	// tableEntries is the number of 8-byte slots in the table: null, code,
	// data and the two halves of the TSS descriptor.
	tableEntries = 5
)

var (
	// the following functions are mocked by tests and are automatically
	// inlined by the compiler.
	loadGDTFn          = cpu.LoadGDT
	reloadSegmentsFn   = cpu.ReloadSegments
	loadTaskRegisterFn = cpu.LoadTaskRegister

	// ErrAlreadyLoaded is returned by Init when the descriptor table has
	// already been loaded.
	ErrAlreadyLoaded = &kernel.Error{Module: "gdt", Message: "descriptor table already loaded"}

	lock   sync.Spinlock
	loaded bool

	table            [tableEntries]SegmentDescriptor
	tablePtr         cpu.DescriptorTablePointer
	tss              TaskStateSegment
	doubleFaultStack [doubleFaultStackSize]byte
)

// DoubleFaultStackTop returns the 16-byte aligned address of the top of the
// double fault stack.
func DoubleFaultStackTop() uintptr {
	top := uintptr(unsafe.Pointer(&doubleFaultStack[0])) + doubleFaultStackSize
	return top &^ 15
}

// Init builds the descriptor table and the TSS, loads them into the CPU and
// reloads the segment registers. Init may only be called once; subsequent
// calls leave the CPU state untouched and return ErrAlreadyLoaded.
func Init() *kernel.Error {
	lock.Acquire()
	defer lock.Release()

	if loaded {
		return ErrAlreadyLoaded
	}

	tss = TaskStateSegment{}
	tss.SetInterruptStack(DoubleFaultISTIndex, DoubleFaultStackTop())
	tss.setIOMapBase(uint16(unsafe.Sizeof(tss)))

	table[0] = 0
	table[KernelCodeSelector.Index()] = kernelCodeDescriptor
	table[KernelDataSelector.Index()] = kernelDataDescriptor
	table[TSSSelector.Index()], table[TSSSelector.Index()+1] = tssDescriptor(uintptr(unsafe.Pointer(&tss)), unsafe.Sizeof(tss))

	tablePtr.Set(uintptr(unsafe.Pointer(&table[0])), unsafe.Sizeof(table))
	loadGDTFn(tablePtr.Addr())
	reloadSegmentsFn(uint16(KernelCodeSelector), uint16(KernelDataSelector))
	loadTaskRegisterFn(uint16(TSSSelector))

	loaded = true
	return nil
}
