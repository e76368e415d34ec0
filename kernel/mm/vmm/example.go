package vmm

import (
	"koratos/kernel"
	"koratos/kernel/mm"
)

// VGATextFrame is the physical frame backing the VGA text buffer.
const VGATextFrame = mm.Frame(0xb8000 >> mm.PageShift)

// PageMapper is implemented by types that can install page mappings, such as
// OffsetPageTable.
type PageMapper interface {
	Map(page mm.Page, frame mm.Frame, flags PageTableEntryFlag, alloc mm.FrameAllocator) *kernel.Error
}

// CreateExampleMapping maps page to the frame that holds the VGA text buffer.
// It is used at boot to check that the mapper can install new translations.
func CreateExampleMapping(page mm.Page, mapper PageMapper, alloc mm.FrameAllocator) *kernel.Error {
	return mapper.Map(page, VGATextFrame, FlagPresent|FlagRW, alloc)
}
