package kfmt

import (
	"koratos/kernel"
	"koratos/kernel/cpu"
)

var (
	// cpuHaltFn is mocked by tests and is automatically inlined by the compiler.
	cpuHaltFn = cpu.Halt

	// panicHookFn runs after the panic banner is printed and before the
	// CPU is halted.
	panicHookFn func()

	errRuntimePanic = &kernel.Error{Module: "rt", Message: "unknown cause"}
)

// OnPanic registers fn to be invoked by Panic right before the CPU is halted.
// The self-test runner uses it to report failures to the host.
func OnPanic(fn func()) {
	panicHookFn = fn
}

// Panic outputs the supplied error (if not nil) to the console and halts the
// CPU. Calls to Panic never return.
func Panic(e interface{}) {
	var err *kernel.Error

	switch t := e.(type) {
	case *kernel.Error:
		err = t
	case string:
		errRuntimePanic.Message = t
		err = errRuntimePanic
	case error:
		errRuntimePanic.Message = t.Error()
		err = errRuntimePanic
	}

	Printf("\n-----------------------------------\n")
	if err != nil {
		Printf("[%s] unrecoverable error: %s\n", err.Module, err.Message)
	}
	Printf("*** kernel panic: system halted ***")
	Printf("\n-----------------------------------\n")

	if panicHookFn != nil {
		panicHookFn()
	}

	cpuHaltFn()
}
