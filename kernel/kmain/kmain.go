package kmain

import (
	"unsafe"

	"koratos/kernel"
	"koratos/kernel/cpu"
	"koratos/kernel/gate"
	"koratos/kernel/gdt"
	"koratos/kernel/hal"
	"koratos/kernel/hal/bootinfo"
	"koratos/kernel/hal/multiboot"
	"koratos/kernel/irq"
	"koratos/kernel/kfmt"
	"koratos/kernel/mm"
	"koratos/kernel/mm/heap"
	"koratos/kernel/mm/pmm"
	"koratos/kernel/mm/vmm"
	"koratos/kernel/selftest"
	"koratos/kernel/trap"
)

const (
	// exampleMappingAddr is the virtual page that is pointed at the VGA
	// text buffer during boot.
	exampleMappingAddr = uintptr(0xdeadbeaf000)

	// helloCell is written through the example mapping; it renders "New!"
	// as white on red on the third screen row.
	helloCell       = uint64(0x_f021_f077_f065_f04e)
	helloCellOffset = 400
)

var (
	errKmainReturned = &kernel.Error{Module: "kmain", Message: "Kmain returned"}

	frameAllocator pmm.BootInfoFrameAllocator

	bootLog = kfmt.PrefixWriter{Prefix: []byte("[boot] ")}
)

// Kmain is the kernel entrypoint invoked by the rt0 code once long mode is
// active and a minimal g0 with a boot stack is in place.
//
// The rt0 code passes the address of the multiboot info payload, the physical
// addresses for the kernel start/end and the virtual address at which the
// complete physical memory is mapped.
//
// Subsystems are brought up in dependency order: output, boot memory map,
// segmentation, exception and interrupt handlers, interrupt controllers,
// then the frame allocator and the page mapper. Any initialization error is
// fatal. Kmain is not expected to return.
//
//go:noinline
func Kmain(multibootInfoPtr, kernelStart, kernelEnd, physOffset uintptr) {
	multiboot.SetInfoPtr(multibootInfoPtr)

	hal.InitTerminal()
	bootLog.Sink = kfmt.GetOutputSink()

	vendor := cpu.Vendor()
	kfmt.Printf("Hello World!\n")
	kfmt.Fprintf(&bootLog, "cpu vendor: %s\n", vendor[:])

	bootInfo, err := bootinfo.Init(kernelStart, kernelEnd, physOffset)
	if err != nil {
		kfmt.Panic(err)
	}
	bootInfo.MemoryMap.DumpTo(&bootLog)

	if err = gdt.Init(); err != nil {
		kfmt.Panic(err)
	}

	trap.Init()
	vmm.InstallFaultHandler()
	if err = gate.Init(); err != nil {
		kfmt.Panic(err)
	}

	if err = irq.Init(); err != nil {
		kfmt.Panic(err)
	}
	applyIRQOptions()
	cpu.EnableInterrupts()

	frameAllocator.Init(&bootInfo.MemoryMap)

	mapper, err := vmm.Init(bootInfo.PhysicalMemoryOffset)
	if err != nil {
		kfmt.Panic(err)
	}

	page := mm.PageFromAddress(exampleMappingAddr)
	if err = vmm.CreateExampleMapping(page, mapper, &frameAllocator); err != nil {
		kfmt.Panic(err)
	}
	*(*uint64)(unsafe.Pointer(page.Address() + helloCellOffset)) = helloCell

	if err = heap.Init(mapper, &frameAllocator); err != nil {
		kfmt.Panic(err)
	}
	kfmt.Fprintf(&bootLog, "allocated %d frames\n", frameAllocator.AllocCount())

	if selftest.Enabled() {
		report := hal.SerialPort()
		if report == nil {
			report = kfmt.GetOutputSink()
		}
		selftest.Run(report, &selftest.Env{Mapper: mapper, Alloc: &frameAllocator})
	}

	kfmt.Printf("It did not crash!\n")
	cpu.HaltLoop()

	// Use kfmt.Panic instead of panic to prevent the compiler from
	// treating kfmt.Panic as dead-code and eliminating it.
	kfmt.Panic(errKmainReturned)
}

// applyIRQOptions masks the controller lines disabled on the boot command
// line (timer=off, kbd=off).
func applyIRQOptions() {
	if value, found := multiboot.CmdLineValue("timer"); found && value == "off" {
		irq.PICs.SetLineMasked(irq.TimerLine, true)
		kfmt.Fprintf(&bootLog, "timer interrupts disabled\n")
	}

	if value, found := multiboot.CmdLineValue("kbd"); found && value == "off" {
		irq.PICs.SetLineMasked(irq.KeyboardLine, true)
		kfmt.Fprintf(&bootLog, "keyboard interrupts disabled\n")
	}
}
