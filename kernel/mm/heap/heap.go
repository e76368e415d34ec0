// Package heap reserves and maps the virtual memory region that backs the
// kernel heap.
package heap

import (
	"koratos/kernel"
	"koratos/kernel/kfmt"
	"koratos/kernel/mm"
	"koratos/kernel/mm/vmm"
)

const (
	// Start is the virtual address where the heap region begins.
	Start = uintptr(0x_4444_4444_0000)

	// Size is the size of the heap region in bytes.
	Size = uintptr(100 * mm.Kb)
)

// Mapper installs page mappings. It is implemented by vmm.OffsetPageTable.
type Mapper interface {
	Map(page mm.Page, frame mm.Frame, flags vmm.PageTableEntryFlag, alloc mm.FrameAllocator) *kernel.Error
}

// Init backs every page in [Start, Start+Size) with a frame obtained from
// alloc and maps it as present and writable. Init stops at the first error.
func Init(mapper Mapper, alloc mm.FrameAllocator) *kernel.Error {
	var (
		startPage = mm.PageFromAddress(Start)
		endPage   = mm.PageFromAddress(Start + Size - 1)
	)

	for page := startPage; page <= endPage; page++ {
		frame, err := alloc.AllocFrame()
		if err != nil {
			return err
		}

		if err = mapper.Map(page, frame, vmm.FlagPresent|vmm.FlagRW, alloc); err != nil {
			return err
		}
	}

	kfmt.Printf("[heap] mapped %dKb at 0x%x\n", Size/uintptr(mm.Kb), Start)
	return nil
}
