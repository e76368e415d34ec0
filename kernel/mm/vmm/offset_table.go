package vmm

import (
	"unsafe"

	"koratos/kernel"
	"koratos/kernel/cpu"
	"koratos/kernel/mm"
)

var (
	// the following functions are mocked by tests and are automatically
	// inlined by the compiler.
	activePDTFn     = cpu.ActivePDT
	flushTLBEntryFn = cpu.FlushTLBEntry

	// ptePtrFn returns a pointer to the supplied entry address. It is
	// used by tests to observe the generated page table entry pointers.
	ptePtrFn = func(entryAddr uintptr) unsafe.Pointer {
		return unsafe.Pointer(entryAddr)
	}

	// ErrInvalidMapping is returned when trying to lookup a virtual memory address that is not yet mapped.
	ErrInvalidMapping = &kernel.Error{Module: "vmm", Message: "virtual address does not point to a mapped physical page"}

	// ErrPageAlreadyMapped is returned by Map when the target page already
	// points to a frame.
	ErrPageAlreadyMapped = &kernel.Error{Module: "vmm", Message: "page is already mapped"}

	// ErrFrameAllocationFailed is returned by Map when a frame for a
	// missing intermediate page table cannot be obtained.
	ErrFrameAllocationFailed = &kernel.Error{Module: "vmm", Message: "unable to allocate frame for page table"}

	// ErrHugePage is returned when a walk runs into an entry that maps a
	// huge page where a page table was expected.
	ErrHugePage = &kernel.Error{Module: "vmm", Message: "huge pages are not supported"}

	// ErrMapperAliased is returned by Init when a mapper for the active
	// page tables has already been handed out.
	ErrMapperAliased = &kernel.Error{Module: "vmm", Message: "active page tables are already bound to a mapper"}

	activeMapper     OffsetPageTable
	activeMapperInit bool
)

// OffsetPageTable manipulates a page table hierarchy whose physical memory is
// linearly mapped into the virtual address space at a fixed offset. Page
// table frames are accessed at virtual address physOffset+physAddr.
type OffsetPageTable struct {
	level4     *PageTable
	physOffset uintptr
}

// Init binds a mapper to the page tables referenced by CR3. All of physical
// memory must be mapped starting at virtual address physOffset. Only one
// mapper may operate on the active tables; subsequent calls fail with
// ErrMapperAliased.
func Init(physOffset uintptr) (*OffsetPageTable, *kernel.Error) {
	if activeMapperInit {
		return nil, ErrMapperAliased
	}

	activeMapper.Bind(ActiveLevel4Table(physOffset), physOffset)
	activeMapperInit = true

	return &activeMapper, nil
}

// ActiveLevel4Table returns a pointer to the top-level page table that is
// currently loaded in CR3.
func ActiveLevel4Table(physOffset uintptr) *PageTable {
	tableAddr := (activePDTFn() & ptePhysPageMask) + physOffset
	return (*PageTable)(ptePtrFn(tableAddr))
}

// Bind points the mapper at the level4 table. The table and every table
// reachable from it must be accessible at physOffset+physAddr.
func (m *OffsetPageTable) Bind(level4 *PageTable, physOffset uintptr) {
	m.level4 = level4
	m.physOffset = physOffset
}

// PhysOffset returns the virtual address where physical memory is mapped.
func (m *OffsetPageTable) PhysOffset() uintptr {
	return m.physOffset
}

// Level4Table returns the top-level table managed by this mapper.
func (m *OffsetPageTable) Level4Table() *PageTable {
	return m.level4
}

// tableAt returns a pointer to the page table stored in frame.
func (m *OffsetPageTable) tableAt(frame mm.Frame) *PageTable {
	return (*PageTable)(ptePtrFn(frame.Address() + m.physOffset))
}

// pageTableWalker is a function that can be passed to the walk method. The
// function receives the current page level and page table entry as its
// arguments.  If the function returns false, then the page walk is aborted.
type pageTableWalker func(pteLevel uint8, pte *PageTableEntry) bool

// walk performs a page table walk for the given virtual address. It calls the
// supplied walkFn with the page table entry that corresponds to each page
// table level. The walk stops when walkFn returns false or after the last
// level has been visited.
//
// walkFn must ensure that the entry it returns true for points to a valid
// page table.
func (m *OffsetPageTable) walk(virtAddr uintptr, walkFn pageTableWalker) {
	table := m.level4
	for level := uint8(0); level < pageLevels; level++ {
		pte := &table[tableIndex(level, virtAddr)]
		if !walkFn(level, pte) || level == pageLevels-1 {
			return
		}

		table = m.tableAt(pte.Frame())
	}
}

// Map establishes a mapping between a virtual page and a physical memory
// frame. Missing intermediate page tables are allocated from alloc, cleared
// and linked with present and writable permissions. On success the TLB entry
// for the page is flushed.
func (m *OffsetPageTable) Map(page mm.Page, frame mm.Frame, flags PageTableEntryFlag, alloc mm.FrameAllocator) *kernel.Error {
	var err *kernel.Error

	m.walk(page.Address(), func(pteLevel uint8, pte *PageTableEntry) bool {
		// If we reached the last level all we need to do is to map the
		// frame in place and flush its TLB entry
		if pteLevel == pageLevels-1 {
			if pte.HasFlags(FlagPresent) {
				err = ErrPageAlreadyMapped
				return false
			}

			*pte = 0
			pte.SetFrame(frame)
			pte.SetFlags(flags)
			flushTLBEntryFn(page.Address())
			return true
		}

		if pte.HasFlags(FlagPresent) {
			if pte.HasFlags(FlagHugePage) {
				err = ErrHugePage
				return false
			}

			// Parent entries must be at least as permissive as the leaf.
			pte.SetFlags(flags & (FlagPresent | FlagRW | FlagUserAccessible))
			return true
		}

		// Next table does not yet exist; we need to allocate a
		// physical frame for it and clear its contents.
		newTableFrame, allocErr := alloc.AllocFrame()
		if allocErr != nil || !newTableFrame.Valid() {
			err = ErrFrameAllocationFailed
			return false
		}

		kernel.Memset(newTableFrame.Address()+m.physOffset, 0, mm.PageSize)

		*pte = 0
		pte.SetFrame(newTableFrame)
		pte.SetFlags(FlagPresent | FlagRW | (flags & FlagUserAccessible))
		return true
	})

	return err
}

// Translate returns the physical address that corresponds to the supplied
// virtual address or ErrInvalidMapping if the virtual address does not
// correspond to a mapped physical address. Both regular and huge (2M, 1G)
// mappings are resolved.
func (m *OffsetPageTable) Translate(virtAddr uintptr) (uintptr, *kernel.Error) {
	var (
		physAddr uintptr
		err      = ErrInvalidMapping
	)

	m.walk(virtAddr, func(pteLevel uint8, pte *PageTableEntry) bool {
		if !pte.HasFlags(FlagPresent) {
			return false
		}

		// Levels 1 and 2 may terminate the walk with a huge page whose
		// size is given by the shift of the level that maps it.
		if pteLevel == pageLevels-1 || (pteLevel > 0 && pte.HasFlags(FlagHugePage)) {
			offsetMask := uintptr(1)<<pageLevelShifts[pteLevel] - 1
			physAddr = (uintptr(*pte) & ptePhysPageMask &^ offsetMask) + (virtAddr & offsetMask)
			err = nil
			return false
		}

		return true
	})

	if err != nil {
		return 0, err
	}

	return physAddr, nil
}

// TranslatePage returns the frame that a 4K page is mapped to. It returns
// ErrHugePage if the page is part of a huge page mapping.
func (m *OffsetPageTable) TranslatePage(page mm.Page) (mm.Frame, *kernel.Error) {
	var (
		frame = mm.InvalidFrame
		err   = ErrInvalidMapping
	)

	m.walk(page.Address(), func(pteLevel uint8, pte *PageTableEntry) bool {
		if !pte.HasFlags(FlagPresent) {
			return false
		}

		if pteLevel == pageLevels-1 {
			frame, err = pte.Frame(), nil
			return false
		}

		if pte.HasFlags(FlagHugePage) {
			err = ErrHugePage
			return false
		}

		return true
	})

	return frame, err
}

// Unmap clears the mapping for page and flushes its TLB entry. Page tables
// that become empty are not released.
func (m *OffsetPageTable) Unmap(page mm.Page) (mm.Frame, *kernel.Error) {
	var (
		frame = mm.InvalidFrame
		err   = ErrInvalidMapping
	)

	m.walk(page.Address(), func(pteLevel uint8, pte *PageTableEntry) bool {
		if !pte.HasFlags(FlagPresent) {
			return false
		}

		if pteLevel == pageLevels-1 {
			frame, err = pte.Frame(), nil
			*pte = 0
			flushTLBEntryFn(page.Address())
			return false
		}

		if pte.HasFlags(FlagHugePage) {
			err = ErrHugePage
			return false
		}

		return true
	})

	return frame, err
}
