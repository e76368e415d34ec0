package heap

import (
	"testing"

	"koratos/kernel"
	"koratos/kernel/mm"
	"koratos/kernel/mm/vmm"
)

type mapCall struct {
	page  mm.Page
	frame mm.Frame
	flags vmm.PageTableEntryFlag
}

type mockMapper struct {
	calls  []mapCall
	failAt int
	err    *kernel.Error
}

func (m *mockMapper) Map(page mm.Page, frame mm.Frame, flags vmm.PageTableEntryFlag, _ mm.FrameAllocator) *kernel.Error {
	if m.err != nil && len(m.calls) == m.failAt {
		return m.err
	}
	m.calls = append(m.calls, mapCall{page, frame, flags})
	return nil
}

func TestInit(t *testing.T) {
	var (
		expPages  = int(Size / mm.PageSize)
		nextFrame = mm.Frame(100)
		alloc     = mm.FrameAllocatorFn(func() (mm.Frame, *kernel.Error) {
			nextFrame++
			return nextFrame, nil
		})
		mapper mockMapper
	)

	if err := Init(&mapper, alloc); err != nil {
		t.Fatal(err)
	}

	if len(mapper.calls) != expPages {
		t.Fatalf("expected %d pages to be mapped; got %d", expPages, len(mapper.calls))
	}

	for i, call := range mapper.calls {
		if exp := mm.PageFromAddress(Start) + mm.Page(i); call.page != exp {
			t.Errorf("[call %d] expected page %d; got %d", i, exp, call.page)
		}

		if exp := mm.Frame(101 + i); call.frame != exp {
			t.Errorf("[call %d] expected frame %d; got %d", i, exp, call.frame)
		}

		if call.flags != vmm.FlagPresent|vmm.FlagRW {
			t.Errorf("[call %d] expected page to be mapped present and writable", i)
		}
	}
}

func TestInitErrors(t *testing.T) {
	expErr := &kernel.Error{Module: "test", Message: "something went wrong"}

	t.Run("frame allocation fails", func(t *testing.T) {
		var (
			allocCount int
			mapper     mockMapper
			alloc      = mm.FrameAllocatorFn(func() (mm.Frame, *kernel.Error) {
				if allocCount++; allocCount == 3 {
					return mm.InvalidFrame, expErr
				}
				return mm.Frame(allocCount), nil
			})
		)

		if err := Init(&mapper, alloc); err != expErr {
			t.Fatalf("expected error %v; got %v", expErr, err)
		}

		if len(mapper.calls) != 2 {
			t.Fatalf("expected mapping to stop after 2 pages; got %d", len(mapper.calls))
		}
	})

	t.Run("map fails", func(t *testing.T) {
		var (
			mapper = mockMapper{failAt: 5, err: expErr}
			alloc  = mm.FrameAllocatorFn(func() (mm.Frame, *kernel.Error) { return mm.Frame(1), nil })
		)

		if err := Init(&mapper, alloc); err != expErr {
			t.Fatalf("expected error %v; got %v", expErr, err)
		}

		if len(mapper.calls) != 5 {
			t.Fatalf("expected mapping to stop after 5 pages; got %d", len(mapper.calls))
		}
	})
}
