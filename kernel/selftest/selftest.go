// Package selftest implements the in-kernel test suite that runs when the
// kernel is booted with selftest=on. Each test prints a "name...\t[ok]" line
// and the suite terminates QEMU through the isa-debug-exit device so a host
// runner can collect the outcome.
package selftest

import (
	"io"
	"unsafe"

	"koratos/kernel"
	"koratos/kernel/cpu"
	"koratos/kernel/hal/multiboot"
	"koratos/kernel/irq"
	"koratos/kernel/kfmt"
	"koratos/kernel/mm"
	"koratos/kernel/mm/heap"
	"koratos/kernel/mm/vmm"
	"koratos/kernel/qemu"
	"koratos/kernel/trap"
)

const (
	// exampleCellOffset selects the framebuffer cell written by the
	// example mapping test (row 2, column 40).
	exampleCellOffset = 400

	// exampleCellValue renders "New!" as white on red.
	exampleCellValue = uint64(0x_4f21_4f77_4f65_4f4e)
)

var (
	// the following functions are mocked by tests and are automatically
	// inlined by the compiler.
	exitFn           = qemu.Exit
	onPanicFn        = kfmt.OnPanic
	breakpointFn     = cpu.Breakpoint
	lastBreakpointFn = trap.LastBreakpoint
	cmdLineValueFn   = multiboot.CmdLineValue
	maskTimerFn      = maskTimer

	// exampleMappingAddr is the virtual address that the example mapping
	// test points at the VGA text buffer. It must not be mapped yet.
	exampleMappingAddr = uintptr(0x_dead_bee0_000)

	// out receives the test report while Run executes.
	out io.Writer

	// current is the name of the running test.
	current string

	errBreakpointNotHandled = &kernel.Error{Module: "selftest", Message: "int3 did not reach the breakpoint handler"}
	errBreakpointFrame      = &kernel.Error{Module: "selftest", Message: "breakpoint frame has a zero instruction pointer"}
	errWrongFrame           = &kernel.Error{Module: "selftest", Message: "page translates to an unexpected frame"}
	errMappingNotVisible    = &kernel.Error{Module: "selftest", Message: "write through the mapped page is not visible in the frame"}
	errFrameOrder           = &kernel.Error{Module: "selftest", Message: "frame allocator returned frames out of order"}
)

// Mapper is the view of the active page table used by the tests.
type Mapper interface {
	vmm.PageMapper
	TranslatePage(page mm.Page) (mm.Frame, *kernel.Error)
	PhysOffset() uintptr
}

// Env gives the tests access to the memory subsystems set up by kmain.
type Env struct {
	Mapper Mapper
	Alloc  mm.FrameAllocator
}

type testCase struct {
	name string
	fn   func(env *Env) *kernel.Error
}

var suite = []testCase{
	{"breakpoint", testBreakpoint},
	{"example_mapping", testExampleMapping},
	{"heap_mapped", testHeapMapped},
	{"frame_allocation", testFrameAllocation},
}

// Enabled returns true if the boot command line contains selftest=on.
func Enabled() bool {
	value, found := cmdLineValueFn("selftest")
	return found && value == "on"
}

// Run executes the test suite, writing the report to w, and then asks QEMU
// to exit with ExitSuccess. A failing test or a kernel panic while a test
// runs makes QEMU exit with ExitFailed instead.
//
// Interrupt handlers share the serial line with the report, so the timer
// line stays masked once Run starts and each result line is written in one
// piece after its test returns.
func Run(w io.Writer, env *Env) {
	out = w
	onPanicFn(reportPanic)
	maskTimerFn()

	kfmt.Fprintf(out, "\nRunning %d tests\n", len(suite))
	for _, tc := range suite {
		current = tc.name
		if err := tc.fn(env); err != nil {
			kfmt.Fprintf(out, "%s...\t[failed]\n\nError: [%s] %s\n\n", tc.name, err.Module, err.Message)
			exitFn(qemu.ExitFailed)
			return
		}
		kfmt.Fprintf(out, "%s...\t[ok]\n", tc.name)
	}
	current = ""

	exitFn(qemu.ExitSuccess)
}

// reportPanic runs as the kfmt panic hook: the panic banner has already been
// printed so the current test only needs to be marked as failed.
func reportPanic() {
	kfmt.Fprintf(out, "\n%s...\t[failed]\n", current)
	exitFn(qemu.ExitFailed)
}

func maskTimer() {
	irq.PICs.SetLineMasked(irq.TimerLine, true)
}

// testBreakpoint raises int3 and checks that execution resumes after the
// trap with a sane frame recorded by the handler.
func testBreakpoint(_ *Env) *kernel.Error {
	_, countBefore := lastBreakpointFn()

	breakpointFn()

	frame, count := lastBreakpointFn()
	if count != countBefore+1 {
		return errBreakpointNotHandled
	}

	if frame.RIP == 0 {
		return errBreakpointFrame
	}

	return nil
}

// testExampleMapping maps a fresh page to the VGA text buffer and checks that
// a write through the page lands in the physical frame.
func testExampleMapping(env *Env) *kernel.Error {
	page := mm.PageFromAddress(exampleMappingAddr)
	if err := vmm.CreateExampleMapping(page, env.Mapper, env.Alloc); err != nil {
		return err
	}

	frame, err := env.Mapper.TranslatePage(page)
	if err != nil {
		return err
	}

	if frame != vmm.VGATextFrame {
		return errWrongFrame
	}

	virt := (*uint64)(unsafe.Pointer(page.Address() + exampleCellOffset))
	phys := (*uint64)(unsafe.Pointer(env.Mapper.PhysOffset() + frame.Address() + exampleCellOffset))

	*virt = exampleCellValue
	if *phys != exampleCellValue {
		return errMappingNotVisible
	}

	return nil
}

// testHeapMapped checks that every page of the heap region is backed by a
// frame.
func testHeapMapped(env *Env) *kernel.Error {
	endPage := mm.PageFromAddress(heap.Start + heap.Size - 1)
	for page := mm.PageFromAddress(heap.Start); page <= endPage; page++ {
		if _, err := env.Mapper.TranslatePage(page); err != nil {
			return err
		}
	}

	return nil
}

// testFrameAllocation checks that consecutive allocations yield distinct
// frames in ascending order.
func testFrameAllocation(env *Env) *kernel.Error {
	var prev mm.Frame
	for i := 0; i < 4; i++ {
		frame, err := env.Alloc.AllocFrame()
		if err != nil {
			return err
		}

		if i != 0 && frame <= prev {
			return errFrameOrder
		}
		prev = frame
	}

	return nil
}
