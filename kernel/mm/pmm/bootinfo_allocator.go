// Package pmm provides physical frame allocators.
package pmm

import (
	"koratos/kernel"
	"koratos/kernel/hal/bootinfo"
	"koratos/kernel/mm"
)

var (
	// ErrOutOfMemory is returned once every usable frame has been handed out.
	ErrOutOfMemory = &kernel.Error{Module: "pmm", Message: "out of memory"}
)

// BootInfoFrameAllocator hands out the frames of the Usable regions in the
// boot memory map, in ascending address order.
//
// Allocations are tracked via a cursor that holds the last allocated frame.
// Frames cannot be freed: the cursor only moves forward and a frame is never
// returned twice. Frames that are only partially covered by a Usable region
// are never returned.
//
// BootInfoFrameAllocator is not safe for concurrent use.
type BootInfoFrameAllocator struct {
	memoryMap *bootinfo.MemoryMap

	// allocCount tracks the total number of allocated frames.
	allocCount uint64

	// lastAllocFrame tracks the last allocated frame number.
	lastAllocFrame mm.Frame
}

// Init binds the allocator to memoryMap and resets its cursor. The map must
// not change after this call.
func (alloc *BootInfoFrameAllocator) Init(memoryMap *bootinfo.MemoryMap) {
	alloc.memoryMap = memoryMap
	alloc.allocCount = 0
	alloc.lastAllocFrame = 0
}

// AllocFrame reserves the next usable frame. Once the memory map is exhausted
// every call returns (mm.InvalidFrame, ErrOutOfMemory).
func (alloc *BootInfoFrameAllocator) AllocFrame() (mm.Frame, *kernel.Error) {
	if alloc.memoryMap == nil {
		return mm.InvalidFrame, ErrOutOfMemory
	}

	err := ErrOutOfMemory
	alloc.memoryMap.Visit(func(region bootinfo.MemoryRegion) bool {
		if region.Kind != bootinfo.Usable {
			return true
		}

		// Round the region start up and its end down to whole frames;
		// regionEndFrame is exclusive.
		regionStartFrame := mm.FrameFromAddress(region.Start + mm.PageSize - 1)
		regionEndFrame := mm.FrameFromAddress(region.End)
		if regionStartFrame >= regionEndFrame {
			return true
		}

		next := regionStartFrame
		if alloc.allocCount != 0 && alloc.lastAllocFrame >= regionStartFrame {
			next = alloc.lastAllocFrame + 1
		}

		// Region already exhausted; try the next one.
		if next >= regionEndFrame {
			return true
		}

		alloc.lastAllocFrame = next
		err = nil
		return false
	})

	if err != nil {
		return mm.InvalidFrame, err
	}

	alloc.allocCount++
	return alloc.lastAllocFrame, nil
}

// AllocCount returns the number of frames handed out so far.
func (alloc *BootInfoFrameAllocator) AllocCount() uint64 {
	return alloc.allocCount
}

// EmptyFrameAllocator is a FrameAllocator that always fails. It is useful
// for mapping operations that must not create new page tables.
type EmptyFrameAllocator struct{}

// AllocFrame always returns (mm.InvalidFrame, ErrOutOfMemory).
func (EmptyFrameAllocator) AllocFrame() (mm.Frame, *kernel.Error) {
	return mm.InvalidFrame, ErrOutOfMemory
}
