//go:build linux

package vmm

import (
	"testing"
	"unsafe"

	"golang.org/x/sys/unix"

	"koratos/kernel"
	"koratos/kernel/mm"
)

var errArenaExhausted = &kernel.Error{Module: "test", Message: "physical arena exhausted"}

// physArena emulates physical memory with an anonymous mapping. Frame 0 of
// the arena is used as the level 4 table and the arena start plays the role
// of the physical memory offset.
type physArena struct {
	mem      []byte
	next     mm.Frame
	failNext bool
}

func newPhysArena(t *testing.T, pages int) *physArena {
	mem, err := unix.Mmap(-1, 0, pages*int(mm.PageSize), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		t.Fatalf("unable to map physical arena: %v", err)
	}

	t.Cleanup(func() {
		_ = unix.Munmap(mem)
	})

	return &physArena{mem: mem, next: 1}
}

func (a *physArena) physOffset() uintptr {
	return uintptr(unsafe.Pointer(&a.mem[0]))
}

func (a *physArena) level4() *PageTable {
	return (*PageTable)(unsafe.Pointer(&a.mem[0]))
}

func (a *physArena) table(frame mm.Frame) *PageTable {
	return (*PageTable)(unsafe.Pointer(&a.mem[frame.Address()]))
}

func (a *physArena) mapper() *OffsetPageTable {
	var m OffsetPageTable
	m.Bind(a.level4(), a.physOffset())
	return &m
}

func (a *physArena) AllocFrame() (mm.Frame, *kernel.Error) {
	if a.failNext || a.next.Address() >= uintptr(len(a.mem)) {
		return mm.InvalidFrame, errArenaExhausted
	}

	frame := a.next
	a.next++
	return frame, nil
}
