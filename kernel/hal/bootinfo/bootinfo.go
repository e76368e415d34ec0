// Package bootinfo holds the information the kernel receives from the boot
// stage: the physical memory map and the offset at which all physical memory
// is mapped into the virtual address space.
package bootinfo

import (
	"io"

	"koratos/kernel"
	"koratos/kernel/hal/multiboot"
	"koratos/kernel/kfmt"
	"koratos/kernel/mm"
)

// RegionKind describes what a physical memory region may be used for.
type RegionKind uint8

// The supported region kinds. Only Usable regions may be handed out by a
// frame allocator.
const (
	Usable RegionKind = iota
	InUse
	Reserved
	AcpiReclaimable
	AcpiNvs
	BadMemory
	Kernel
	BootInfo
)

// String implements fmt.Stringer for RegionKind.
func (k RegionKind) String() string {
	switch k {
	case Usable:
		return "usable"
	case InUse:
		return "in use"
	case Reserved:
		return "reserved"
	case AcpiReclaimable:
		return "ACPI (reclaimable)"
	case AcpiNvs:
		return "ACPI NVS"
	case BadMemory:
		return "bad memory"
	case Kernel:
		return "kernel image"
	case BootInfo:
		return "boot info"
	default:
		return "unknown"
	}
}

// MemoryRegion describes the physical address range [Start, End).
type MemoryRegion struct {
	Start, End uintptr
	Kind       RegionKind
}

// Size returns the region length in bytes.
func (r MemoryRegion) Size() uintptr {
	return r.End - r.Start
}

// MaxRegions is the capacity of a MemoryMap.
const MaxRegions = 64

var (
	errTooManyRegions = &kernel.Error{Module: "bootinfo", Message: "memory map has too many regions"}
	errInvalidRegion  = &kernel.Error{Module: "bootinfo", Message: "memory region end precedes its start"}
)

// MemoryMap is a list of non-overlapping physical memory regions sorted by
// start address. It uses a fixed-size backing array so it can be populated
// before any heap is available.
type MemoryMap struct {
	regions [MaxRegions]MemoryRegion
	count   int
}

// Len returns the number of regions in the map.
func (m *MemoryMap) Len() int {
	return m.count
}

// Region returns the i-th region in ascending address order.
func (m *MemoryMap) Region(i int) MemoryRegion {
	return m.regions[i]
}

// Visit invokes visitor for each region in ascending address order until
// visitor returns false.
func (m *MemoryMap) Visit(visitor func(MemoryRegion) bool) {
	for i := 0; i < m.count; i++ {
		if !visitor(m.regions[i]) {
			return
		}
	}
}

// Add inserts r keeping the map sorted and free of overlaps. Firmware memory
// maps may list overlapping entries: a non-usable region takes over the
// Usable bytes it overlaps while any other bytes already present in the map
// keep their kind. Empty regions are ignored.
func (m *MemoryMap) Add(r MemoryRegion) *kernel.Error {
	switch {
	case r.End < r.Start:
		return errInvalidRegion
	case r.End == r.Start:
		return nil
	}

	if r.Kind != Usable {
		if err := m.Reserve(r.Start, r.End, r.Kind); err != nil {
			return err
		}
	}

	// Collect the parts of r not covered by the map before inserting any of
	// them; the regions are sorted so a single pass finds every gap.
	var (
		gaps     [MaxRegions + 1]MemoryRegion
		gapCount int
		cursor   = r.Start
	)
	for i := 0; i < m.count && cursor < r.End; i++ {
		existing := m.regions[i]
		if existing.End <= cursor {
			continue
		}
		if existing.Start >= r.End {
			break
		}

		if existing.Start > cursor {
			gaps[gapCount] = MemoryRegion{cursor, existing.Start, r.Kind}
			gapCount++
		}
		cursor = existing.End
	}
	if cursor < r.End {
		gaps[gapCount] = MemoryRegion{cursor, r.End, r.Kind}
		gapCount++
	}

	if m.count+gapCount > MaxRegions {
		return errTooManyRegions
	}

	for i := 0; i < gapCount; i++ {
		m.insert(gaps[i])
	}
	return nil
}

// insert places r at its sorted position. The caller ensures r does not
// overlap any region in the map and that the map has room for it.
func (m *MemoryMap) insert(r MemoryRegion) {
	i := m.count
	for ; i > 0 && m.regions[i-1].Start > r.Start; i-- {
		m.regions[i] = m.regions[i-1]
	}
	m.regions[i] = r
	m.count++
}

// Reserve changes the kind of every Usable byte in [start, end) to kind,
// splitting Usable regions where needed. Non-usable regions are left
// untouched.
func (m *MemoryMap) Reserve(start, end uintptr, kind RegionKind) *kernel.Error {
	if end < start {
		return errInvalidRegion
	}

	for i := 0; i < m.count; i++ {
		r := m.regions[i]
		if r.Kind != Usable || r.End <= start || r.Start >= end {
			continue
		}

		overlapStart, overlapEnd := r.Start, r.End
		if start > overlapStart {
			overlapStart = start
		}
		if end < overlapEnd {
			overlapEnd = end
		}

		pieces := [3]MemoryRegion{
			{r.Start, overlapStart, Usable},
			{overlapStart, overlapEnd, kind},
			{overlapEnd, r.End, Usable},
		}

		extra := -1
		for _, piece := range pieces {
			if piece.Size() != 0 {
				extra++
			}
		}
		if m.count+extra > MaxRegions {
			return errTooManyRegions
		}

		// Shift the tail to make room and write the pieces in place.
		copy(m.regions[i+1+extra:m.count+extra], m.regions[i+1:m.count])
		m.count += extra
		for _, piece := range pieces {
			if piece.Size() == 0 {
				continue
			}
			m.regions[i] = piece
			i++
		}
		i--
	}

	return nil
}

// UsableBytes returns the total size of all Usable regions.
func (m *MemoryMap) UsableBytes() mm.Size {
	var total mm.Size
	m.Visit(func(r MemoryRegion) bool {
		if r.Kind == Usable {
			total += mm.Size(r.Size())
		}
		return true
	})
	return total
}

// DumpTo prints the memory map to w.
func (m *MemoryMap) DumpTo(w io.Writer) {
	kfmt.Fprintf(w, "system memory map:\n")
	m.Visit(func(r MemoryRegion) bool {
		kfmt.Fprintf(w, "  [0x%10x - 0x%10x], size: %10d, type: %s\n", r.Start, r.End, uint64(r.Size()), r.Kind.String())
		return true
	})
	kfmt.Fprintf(w, "available memory: %dKb\n", uint64(m.UsableBytes()/mm.Kb))
}

// Info is the boot information handed to the memory subsystems. It is
// immutable once Init returns.
type Info struct {
	MemoryMap MemoryMap

	// PhysicalMemoryOffset is the virtual address at which physical
	// address 0 is mapped. Physical address p is accessible through the
	// virtual address PhysicalMemoryOffset+p.
	PhysicalMemoryOffset uintptr
}

var bootInfo Info

// Init builds the boot information from the multiboot data registered via
// multiboot.SetInfoPtr. The physical ranges occupied by the kernel image and
// by the multiboot info block are excluded from the usable memory.
func Init(kernelStart, kernelEnd, physOffset uintptr) (*Info, *kernel.Error) {
	bootInfo = Info{PhysicalMemoryOffset: physOffset}

	var err *kernel.Error
	multiboot.VisitMemRegions(func(entry *multiboot.MemoryMapEntry) bool {
		err = bootInfo.MemoryMap.Add(MemoryRegion{
			Start: uintptr(entry.PhysAddress),
			End:   uintptr(entry.PhysAddress + entry.Length),
			Kind:  kindFromMultiboot(entry.Type),
		})
		return err == nil
	})
	if err != nil {
		return nil, err
	}

	if err = bootInfo.MemoryMap.Reserve(kernelStart, kernelEnd, Kernel); err != nil {
		return nil, err
	}

	if infoStart, infoSize := multiboot.InfoPtr(), multiboot.InfoSize(); infoSize != 0 {
		if err = bootInfo.MemoryMap.Reserve(infoStart, infoStart+infoSize, BootInfo); err != nil {
			return nil, err
		}
	}

	return &bootInfo, nil
}

func kindFromMultiboot(t multiboot.MemoryEntryType) RegionKind {
	switch t {
	case multiboot.MemAvailable:
		return Usable
	case multiboot.MemAcpiReclaimable:
		return AcpiReclaimable
	case multiboot.MemNvs:
		return AcpiNvs
	case multiboot.MemBad:
		return BadMemory
	default:
		return Reserved
	}
}
