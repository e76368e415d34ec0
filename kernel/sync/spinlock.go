// Package sync provides the spinlocks used to guard state that is shared
// between interrupt handlers and regular kernel code.
package sync

import (
	"sync/atomic"

	"koratos/kernel/cpu"
)

const attemptsBeforeYielding = 64

var (
	// yieldFn is nil while the kernel runs on a single core with no
	// scheduler; tests substitute runtime.Gosched.
	yieldFn func()

	// the following functions are mocked by tests and are automatically
	// inlined by the compiler.
	interruptsEnabledFn = cpu.InterruptsEnabled
	disableInterruptsFn = cpu.DisableInterrupts
	enableInterruptsFn  = cpu.EnableInterrupts
)

// Spinlock implements a lock where each task trying to acquire it busy-waits
// till the lock becomes available.
type Spinlock struct {
	state uint32
}

// Acquire blocks until the lock can be acquired by the currently active task.
// Any attempt to re-acquire a lock already held by the current task will cause
// a deadlock.
func (l *Spinlock) Acquire() {
	for attempts := 0; !atomic.CompareAndSwapUint32(&l.state, 0, 1); attempts++ {
		if attempts == attemptsBeforeYielding && yieldFn != nil {
			yieldFn()
			attempts = 0
			continue
		}

		archSpinWait()
	}
}

// TryToAcquire attempts to acquire the lock and returns true if the lock could
// be acquired or false otherwise.
func (l *Spinlock) TryToAcquire() bool {
	return atomic.SwapUint32(&l.state, 1) == 0
}

// Release relinquishes a held lock allowing other tasks to acquire it. Calling
// Release while the lock is free has no effect.
func (l *Spinlock) Release() {
	atomic.StoreUint32(&l.state, 0)
}

// IRQSpinlock is a Spinlock that also disables interrupts while it is held.
// It must guard any state that is touched both by interrupt handlers and by
// code running with interrupts enabled; otherwise a handler could spin
// forever on a lock owned by the context it interrupted.
type IRQSpinlock struct {
	lock Spinlock

	// restoreIF records whether interrupts were enabled before Acquire.
	restoreIF bool
}

// Acquire disables interrupts and then acquires the lock.
func (l *IRQSpinlock) Acquire() {
	enabled := interruptsEnabledFn()
	disableInterruptsFn()
	l.lock.Acquire()
	l.restoreIF = enabled
}

// Release releases the lock and re-enables interrupts if they were enabled
// when the lock was acquired.
func (l *IRQSpinlock) Release() {
	restore := l.restoreIF
	l.restoreIF = false
	l.lock.Release()

	if restore {
		enableInterruptsFn()
	}
}

// archSpinWait hints the CPU that the caller is in a spin-wait loop.
func archSpinWait()
