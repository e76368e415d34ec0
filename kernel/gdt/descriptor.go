package gdt

// SegmentDescriptor is an 8-byte entry of the global descriptor table.
type SegmentDescriptor uint64

const (
	descAccessed    SegmentDescriptor = 1 << 40
	descWritable    SegmentDescriptor = 1 << 41
	descExecutable  SegmentDescriptor = 1 << 43
	descUserSegment SegmentDescriptor = 1 << 44
	descPresent     SegmentDescriptor = 1 << 47
	descLongMode    SegmentDescriptor = 1 << 53
	descDefaultSize SegmentDescriptor = 1 << 54
	descGranularity SegmentDescriptor = 1 << 55

	// descMaxLimit sets the limit bits (0-15 and 48-51) to 0xfffff.
	descMaxLimit SegmentDescriptor = 0xffff | 0xf<<48

	descCommon = descUserSegment | descPresent | descWritable | descAccessed | descMaxLimit | descGranularity

	// kernelCodeDescriptor evaluates to 0x00af9b000000ffff.
	kernelCodeDescriptor = descCommon | descExecutable | descLongMode

	// kernelDataDescriptor evaluates to 0x00cf93000000ffff.
	kernelDataDescriptor = descCommon | descDefaultSize

	// descTypeAvailableTSS marks a system descriptor as an available
	// 64-bit TSS.
	descTypeAvailableTSS SegmentDescriptor = 0x9 << 40
)

// Present returns true if the descriptor has its present bit set.
func (d SegmentDescriptor) Present() bool {
	return d&descPresent != 0
}

// tssDescriptor returns the two halves of the system descriptor that points
// to a TSS located at base.
func tssDescriptor(base, size uintptr) (low, high SegmentDescriptor) {
	limit := SegmentDescriptor(size - 1)
	b := SegmentDescriptor(base)

	low = descPresent | descTypeAvailableTSS |
		limit&0xffff | // limit 0-15
		(b&0xffffff)<<16 | // base 0-23
		((b>>24)&0xff)<<56 // base 24-31
	high = b >> 32 // base 32-63

	return low, high
}
