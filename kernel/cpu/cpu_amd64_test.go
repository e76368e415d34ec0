package cpu

import (
	"bytes"
	"encoding/binary"
	"testing"
	"unsafe"
)

func TestIsIntel(t *testing.T) {
	defer func() {
		cpuidFn = ID
	}()

	specs := []struct {
		eax, ebx, ecx, edx uint32
		exp                bool
	}{
		// CPUID output from an Intel CPU
		{0xd, 0x756e6547, 0x6c65746e, 0x49656e69, true},
		// CPUID output from an AMD Athlon CPU
		{0x1, 0x68747541, 0x444d4163, 0x69746e65, false},
	}

	for specIndex, spec := range specs {
		cpuidFn = func(_ uint32) (uint32, uint32, uint32, uint32) {
			return spec.eax, spec.ebx, spec.ecx, spec.edx
		}

		if got := IsIntel(); got != spec.exp {
			t.Errorf("[spec %d] expected IsIntel to return %t; got %t", specIndex, spec.exp, got)
		}
	}
}

func TestVendor(t *testing.T) {
	defer func() {
		cpuidFn = ID
	}()

	specs := []struct {
		ebx, ecx, edx uint32
		exp           string
	}{
		{0x756e6547, 0x6c65746e, 0x49656e69, "GenuineIntel"},
		{0x68747541, 0x444d4163, 0x69746e65, "AuthenticAMD"},
	}

	for specIndex, spec := range specs {
		cpuidFn = func(_ uint32) (uint32, uint32, uint32, uint32) {
			return 0xd, spec.ebx, spec.ecx, spec.edx
		}

		vendor := Vendor()
		if got := string(vendor[:]); got != spec.exp {
			t.Errorf("[spec %d] expected Vendor to return %q; got %q", specIndex, spec.exp, got)
		}
	}
}

func TestHaltLoop(t *testing.T) {
	defer func() {
		waitForInterruptFn = WaitForInterrupt
	}()

	type stopLoop struct{}

	var waitCount int
	waitForInterruptFn = func() {
		waitCount++
		if waitCount == 3 {
			panic(stopLoop{})
		}
	}

	func() {
		defer func() {
			if _, ok := recover().(stopLoop); !ok {
				t.Fatal("expected HaltLoop to keep waiting for interrupts")
			}
		}()
		HaltLoop()
	}()

	if exp := 3; waitCount != exp {
		t.Fatalf("expected WaitForInterrupt to be called %d times; got %d", exp, waitCount)
	}
}

func TestReloadSegmentsFarReturn(t *testing.T) {
	const scanLen = 64

	code := unsafe.Slice((*byte)(unsafe.Pointer(reloadSegmentsAddr())), scanLen)

	// mov es, bx; push rax; call rel32
	idx := bytes.Index(code, []byte{0x8e, 0xc3, 0x50, 0xe8})
	if idx == -1 {
		t.Fatalf("expected the new CS to be pushed right before the far return call; got % x", code)
	}

	rel := int32(binary.LittleEndian.Uint32(code[idx+4 : idx+8]))
	target := uintptr(unsafe.Pointer(&code[idx+8])) + uintptr(rel)

	if got := unsafe.Slice((*byte)(unsafe.Pointer(target)), 2); !bytes.Equal(got, []byte{0x48, 0xcb}) {
		t.Fatalf("expected the call to land on lretq (48 cb); got % x", got)
	}
}
