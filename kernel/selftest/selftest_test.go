package selftest

import (
	"bytes"
	"runtime"
	"strings"
	"testing"
	"unsafe"

	"koratos/kernel"
	"koratos/kernel/cpu"
	"koratos/kernel/gate"
	"koratos/kernel/hal/multiboot"
	"koratos/kernel/kfmt"
	"koratos/kernel/mm"
	"koratos/kernel/mm/vmm"
	"koratos/kernel/qemu"
	"koratos/kernel/trap"
)

type mockMapper struct {
	mapped     map[mm.Page]mm.Frame
	physOffset uintptr

	// identity makes TranslatePage succeed for every page.
	identity bool

	// wrongFrame makes TranslatePage report a frame other than the mapped one.
	wrongFrame bool
}

func (m *mockMapper) Map(page mm.Page, frame mm.Frame, _ vmm.PageTableEntryFlag, _ mm.FrameAllocator) *kernel.Error {
	if m.mapped == nil {
		m.mapped = make(map[mm.Page]mm.Frame)
	}

	if _, exists := m.mapped[page]; exists {
		return vmm.ErrPageAlreadyMapped
	}

	m.mapped[page] = frame
	return nil
}

func (m *mockMapper) TranslatePage(page mm.Page) (mm.Frame, *kernel.Error) {
	if m.identity {
		return mm.Frame(page), nil
	}

	frame, ok := m.mapped[page]
	if !ok {
		return mm.InvalidFrame, vmm.ErrInvalidMapping
	}

	if m.wrongFrame {
		frame++
	}
	return frame, nil
}

func (m *mockMapper) PhysOffset() uintptr {
	return m.physOffset
}

func restoreMocks() {
	exitFn = qemu.Exit
	onPanicFn = kfmt.OnPanic
	breakpointFn = cpu.Breakpoint
	lastBreakpointFn = trap.LastBreakpoint
	cmdLineValueFn = multiboot.CmdLineValue
	maskTimerFn = maskTimer
	exampleMappingAddr = uintptr(0x_dead_bee0_000)
	out = nil
	current = ""
}

func TestEnabled(t *testing.T) {
	defer restoreMocks()

	specs := []struct {
		value string
		found bool
		exp   bool
	}{
		{"on", true, true},
		{"off", true, false},
		{"", true, false},
		{"", false, false},
	}

	for specIndex, spec := range specs {
		cmdLineValueFn = func(key string) (string, bool) {
			if key != "selftest" {
				t.Errorf("[spec %d] unexpected command line key %q", specIndex, key)
			}
			return spec.value, spec.found
		}

		if got := Enabled(); got != spec.exp {
			t.Errorf("[spec %d] expected Enabled() to return %t; got %t", specIndex, spec.exp, got)
		}
	}
}

func TestRun(t *testing.T) {
	origSuite := suite
	defer func() {
		suite = origSuite
		restoreMocks()
	}()

	var (
		exitCodes   []qemu.ExitCode
		hook        func()
		ran         []string
		timerMasked bool
	)
	exitFn = func(code qemu.ExitCode) { exitCodes = append(exitCodes, code) }
	onPanicFn = func(fn func()) { hook = fn }
	maskTimerFn = func() { timerMasked = true }

	record := func(name string, err *kernel.Error) func(*Env) *kernel.Error {
		return func(_ *Env) *kernel.Error {
			ran = append(ran, name)
			return err
		}
	}

	t.Run("all tests pass", func(t *testing.T) {
		exitCodes, ran = nil, nil
		suite = []testCase{
			{"first", record("first", nil)},
			{"second", record("second", nil)},
		}

		var buf bytes.Buffer
		Run(&buf, &Env{})

		if exp, got := "\nRunning 2 tests\nfirst...\t[ok]\nsecond...\t[ok]\n", buf.String(); got != exp {
			t.Fatalf("expected output:\n%q\ngot:\n%q", exp, got)
		}

		if !timerMasked {
			t.Fatal("expected Run to mask the timer line")
		}

		if len(exitCodes) != 1 || exitCodes[0] != qemu.ExitSuccess {
			t.Fatalf("expected a single exit with ExitSuccess; got %v", exitCodes)
		}

		if hook == nil {
			t.Fatal("expected Run to register a panic hook")
		}
	})

	t.Run("test failure stops the suite", func(t *testing.T) {
		exitCodes, ran = nil, nil
		errTest := &kernel.Error{Module: "test", Message: "boom"}
		suite = []testCase{
			{"first", record("first", nil)},
			{"second", record("second", errTest)},
			{"third", record("third", nil)},
		}

		var buf bytes.Buffer
		Run(&buf, &Env{})

		if exp := []string{"first", "second"}; strings.Join(ran, ",") != strings.Join(exp, ",") {
			t.Fatalf("expected tests %v to run; got %v", exp, ran)
		}

		out := buf.String()
		if !strings.Contains(out, "second...\t[failed]\n") || !strings.Contains(out, "Error: [test] boom\n") {
			t.Fatalf("expected output to report the failure; got %q", out)
		}

		if len(exitCodes) != 1 || exitCodes[0] != qemu.ExitFailed {
			t.Fatalf("expected a single exit with ExitFailed; got %v", exitCodes)
		}
	})

	t.Run("handler output precedes the result line", func(t *testing.T) {
		exitCodes = nil
		suite = []testCase{
			{"trap", func(_ *Env) *kernel.Error {
				// a handler writing to the shared sink mid-test
				kfmt.Fprintf(out, "EXCEPTION: BREAKPOINT\n")
				return nil
			}},
		}

		var buf bytes.Buffer
		Run(&buf, &Env{})

		if exp, got := "\nRunning 1 tests\nEXCEPTION: BREAKPOINT\ntrap...\t[ok]\n", buf.String(); got != exp {
			t.Fatalf("expected output:\n%q\ngot:\n%q", exp, got)
		}
	})

	t.Run("panic hook", func(t *testing.T) {
		exitCodes = nil

		var buf bytes.Buffer
		out = &buf
		current = "second"
		hook()

		if exp, got := "\nsecond...\t[failed]\n", buf.String(); got != exp {
			t.Fatalf("expected panic hook output %q; got %q", exp, got)
		}

		if len(exitCodes) != 1 || exitCodes[0] != qemu.ExitFailed {
			t.Fatalf("expected a single exit with ExitFailed; got %v", exitCodes)
		}
	})
}

func TestBreakpoint(t *testing.T) {
	defer restoreMocks()

	specs := []struct {
		handled bool
		rip     uint64
		expErr  *kernel.Error
	}{
		{true, 0x100200, nil},
		{false, 0x100200, errBreakpointNotHandled},
		{true, 0, errBreakpointFrame},
	}

	for specIndex, spec := range specs {
		var (
			frame gate.Registers
			count uint64
		)

		lastBreakpointFn = func() (gate.Registers, uint64) { return frame, count }
		breakpointFn = func() {
			if spec.handled {
				frame.RIP = spec.rip
				count++
			}
		}

		if err := testBreakpoint(nil); err != spec.expErr {
			t.Errorf("[spec %d] expected error %v; got %v", specIndex, spec.expErr, err)
		}
	}
}

func TestExampleMapping(t *testing.T) {
	defer restoreMocks()

	// The mock mapper aliases the VGA frame onto a page-aligned host buffer
	// so a write through the "virtual" page is visible through the
	// physical offset.
	buf := make([]byte, 2*mm.PageSize)
	defer runtime.KeepAlive(buf)
	pageAddr := (uintptr(unsafe.Pointer(&buf[0])) + mm.PageSize - 1) &^ (mm.PageSize - 1)

	t.Run("write is visible", func(t *testing.T) {
		exampleMappingAddr = pageAddr
		mapper := &mockMapper{physOffset: pageAddr - vmm.VGATextFrame.Address()}

		if err := testExampleMapping(&Env{Mapper: mapper}); err != nil {
			t.Fatal(err)
		}

		if got := *(*uint64)(unsafe.Pointer(pageAddr + exampleCellOffset)); got != exampleCellValue {
			t.Fatalf("expected cell to contain 0x%x; got 0x%x", exampleCellValue, got)
		}

		if frame := mapper.mapped[mm.PageFromAddress(pageAddr)]; frame != vmm.VGATextFrame {
			t.Fatalf("expected page to be mapped to frame 0x%x; got 0x%x", vmm.VGATextFrame, frame)
		}
	})

	t.Run("page already mapped", func(t *testing.T) {
		exampleMappingAddr = pageAddr
		mapper := &mockMapper{
			mapped: map[mm.Page]mm.Frame{mm.PageFromAddress(pageAddr): 42},
		}

		if err := testExampleMapping(&Env{Mapper: mapper}); err != vmm.ErrPageAlreadyMapped {
			t.Fatalf("expected error %v; got %v", vmm.ErrPageAlreadyMapped, err)
		}
	})

	t.Run("wrong frame", func(t *testing.T) {
		exampleMappingAddr = pageAddr
		mapper := &mockMapper{wrongFrame: true}

		if err := testExampleMapping(&Env{Mapper: mapper}); err != errWrongFrame {
			t.Fatalf("expected error %v; got %v", errWrongFrame, err)
		}
	})
}

func TestHeapMapped(t *testing.T) {
	if err := testHeapMapped(&Env{Mapper: &mockMapper{identity: true}}); err != nil {
		t.Fatal(err)
	}

	if err := testHeapMapped(&Env{Mapper: &mockMapper{}}); err != vmm.ErrInvalidMapping {
		t.Fatalf("expected error %v; got %v", vmm.ErrInvalidMapping, err)
	}
}

func TestFrameAllocation(t *testing.T) {
	errAlloc := &kernel.Error{Module: "test", Message: "out of frames"}

	specs := []struct {
		frames []mm.Frame
		expErr *kernel.Error
	}{
		{[]mm.Frame{1, 2, 3, 10}, nil},
		{[]mm.Frame{1, 2, 2, 3}, errFrameOrder},
		{[]mm.Frame{5, 4, 6, 7}, errFrameOrder},
		{[]mm.Frame{1, 2}, errAlloc},
	}

	for specIndex, spec := range specs {
		next := 0
		alloc := mm.FrameAllocatorFn(func() (mm.Frame, *kernel.Error) {
			if next == len(spec.frames) {
				return mm.InvalidFrame, errAlloc
			}
			next++
			return spec.frames[next-1], nil
		})

		if err := testFrameAllocation(&Env{Alloc: alloc}); err != spec.expErr {
			t.Errorf("[spec %d] expected error %v; got %v", specIndex, spec.expErr, err)
		}
	}
}
