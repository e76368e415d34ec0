package sync

import (
	"runtime"
	"testing"
	"time"

	"koratos/kernel/cpu"

	"golang.org/x/sync/errgroup"
)

func TestSpinlock(t *testing.T) {
	// Substitute the yieldFn with runtime.Gosched to avoid deadlocks while testing
	defer func(origYieldFn func()) { yieldFn = origYieldFn }(yieldFn)
	yieldFn = runtime.Gosched

	var (
		sl         Spinlock
		eg         errgroup.Group
		numWorkers = 10
		counter    int
	)

	sl.Acquire()

	if sl.TryToAcquire() != false {
		t.Error("expected TryToAcquire to return false when lock is held")
	}

	for i := 0; i < numWorkers; i++ {
		eg.Go(func() error {
			for j := 0; j < 100; j++ {
				sl.Acquire()
				counter++
				sl.Release()
			}
			return nil
		})
	}

	<-time.After(100 * time.Millisecond)
	sl.Release()

	if err := eg.Wait(); err != nil {
		t.Fatal(err)
	}

	if exp := numWorkers * 100; counter != exp {
		t.Fatalf("expected counter to be %d; got %d", exp, counter)
	}

	if !sl.TryToAcquire() {
		t.Fatal("expected TryToAcquire to succeed after all workers released the lock")
	}
}

func TestIRQSpinlock(t *testing.T) {
	defer func() {
		interruptsEnabledFn = cpu.InterruptsEnabled
		disableInterruptsFn = cpu.DisableInterrupts
		enableInterruptsFn = cpu.EnableInterrupts
	}()

	var (
		ifFlag                    bool
		disableCount, enableCount int
	)

	interruptsEnabledFn = func() bool { return ifFlag }
	disableInterruptsFn = func() { disableCount++; ifFlag = false }
	enableInterruptsFn = func() { enableCount++; ifFlag = true }

	specs := []struct {
		ifBefore       bool
		expEnableCalls int
	}{
		{true, 1},
		{false, 0},
	}

	for specIndex, spec := range specs {
		var l IRQSpinlock
		ifFlag = spec.ifBefore
		disableCount, enableCount = 0, 0

		l.Acquire()
		if ifFlag {
			t.Errorf("[spec %d] expected interrupts to be disabled while the lock is held", specIndex)
		}
		if l.lock.TryToAcquire() {
			t.Errorf("[spec %d] expected underlying lock to be held", specIndex)
		}

		l.Release()
		if disableCount != 1 {
			t.Errorf("[spec %d] expected DisableInterrupts to be called once; got %d", specIndex, disableCount)
		}
		if enableCount != spec.expEnableCalls {
			t.Errorf("[spec %d] expected EnableInterrupts to be called %d times; got %d", specIndex, spec.expEnableCalls, enableCount)
		}
		if ifFlag != spec.ifBefore {
			t.Errorf("[spec %d] expected interrupt flag to be restored to %t", specIndex, spec.ifBefore)
		}
	}
}

func TestEmulateInterruptFlag(t *testing.T) {
	restore := EmulateInterruptFlag()

	var l IRQSpinlock
	l.Acquire()
	if interruptsEnabledFn() {
		t.Fatal("expected emulated interrupt flag to be cleared while the lock is held")
	}
	l.Release()
	if !interruptsEnabledFn() {
		t.Fatal("expected emulated interrupt flag to be restored on release")
	}

	restore()
	if disableInterruptsFn == nil || enableInterruptsFn == nil || interruptsEnabledFn == nil {
		t.Fatal("expected restore to reinstall the hardware implementation")
	}
}
