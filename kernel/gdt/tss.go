package gdt

const (
	privilegeStackWord = 1
	interruptStackWord = 9
	ioMapWord          = 25

	// interruptStacks is the number of entries in the interrupt stack table.
	interruptStacks = 7
)

// TaskStateSegment is the 104-byte amd64 TSS. It is expressed as 32-bit words
// because the 64-bit stack pointers it contains are only 4-byte aligned.
type TaskStateSegment [26]uint32

// SetPrivilegeStack sets the stack pointer loaded when the CPU switches to
// the specified privilege ring (0-2).
func (t *TaskStateSegment) SetPrivilegeStack(ring int, stackTop uintptr) {
	t.setQuad(privilegeStackWord+ring*2, uint64(stackTop))
}

// PrivilegeStack returns the stack pointer for the specified privilege ring.
func (t *TaskStateSegment) PrivilegeStack(ring int) uintptr {
	return uintptr(t.quad(privilegeStackWord + ring*2))
}

// SetInterruptStack stores stackTop in interrupt stack table slot index
// (0-6). Interrupt gates refer to slot index as IST index+1.
func (t *TaskStateSegment) SetInterruptStack(index int, stackTop uintptr) {
	if index < 0 || index >= interruptStacks {
		return
	}
	t.setQuad(interruptStackWord+index*2, uint64(stackTop))
}

// InterruptStack returns the stack pointer stored in the interrupt stack
// table slot index (0-6).
func (t *TaskStateSegment) InterruptStack(index int) uintptr {
	if index < 0 || index >= interruptStacks {
		return 0
	}
	return uintptr(t.quad(interruptStackWord + index*2))
}

// IOMapBase returns the offset of the I/O permission bitmap.
func (t *TaskStateSegment) IOMapBase() uint16 {
	return uint16(t[ioMapWord] >> 16)
}

// setIOMapBase sets the offset of the I/O permission bitmap. An offset that
// lies past the TSS limit denies ring 3 port access.
func (t *TaskStateSegment) setIOMapBase(offset uint16) {
	t[ioMapWord] = uint32(offset) << 16
}

func (t *TaskStateSegment) setQuad(word int, v uint64) {
	t[word] = uint32(v)
	t[word+1] = uint32(v >> 32)
}

func (t *TaskStateSegment) quad(word int) uint64 {
	return uint64(t[word]) | uint64(t[word+1])<<32
}
