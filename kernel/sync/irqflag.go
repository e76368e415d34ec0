package sync

import "koratos/kernel/cpu"

// EmulateInterruptFlag makes IRQSpinlock track the interrupt flag in memory
// instead of executing cli and sti, which fault outside ring 0. The returned
// function restores the hardware implementation. Only hosted tests of
// packages built on IRQSpinlock call it.
func EmulateInterruptFlag() (restore func()) {
	flag := true

	interruptsEnabledFn = func() bool { return flag }
	disableInterruptsFn = func() { flag = false }
	enableInterruptsFn = func() { flag = true }

	return func() {
		interruptsEnabledFn = cpu.InterruptsEnabled
		disableInterruptsFn = cpu.DisableInterrupts
		enableInterruptsFn = cpu.EnableInterrupts
	}
}
