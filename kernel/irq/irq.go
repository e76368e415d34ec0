// Package irq routes the hardware interrupts raised through the chained PICs
// to their handlers.
package irq

import (
	"koratos/kernel"
	"koratos/kernel/cpu"
	"koratos/kernel/driver/kbd"
	"koratos/kernel/driver/pic"
	"koratos/kernel/gate"
	"koratos/kernel/kfmt"
	"koratos/kernel/sync"
)

const (
	// PrimaryOffset is the first vector served by the primary PIC.
	PrimaryOffset = gate.ExceptionCount

	// SecondaryOffset is the first vector served by the secondary PIC.
	SecondaryOffset = PrimaryOffset + 8

	// Timer is the vector raised by the programmable interval timer.
	Timer = gate.InterruptNumber(PrimaryOffset + TimerLine)

	// Keyboard is the vector raised by the PS/2 keyboard controller.
	Keyboard = gate.InterruptNumber(PrimaryOffset + KeyboardLine)

	// TimerLine is the PIC line of the interval timer.
	TimerLine = 0

	// KeyboardLine is the PIC line of the keyboard controller.
	KeyboardLine = 1

	keyboardDataPort = uint16(0x60)
)

var (
	// PICs is the controller pair that raises all hardware interrupts.
	PICs pic.ChainedPICs

	// the following functions are mocked by tests and are automatically
	// inlined by the compiler.
	portReadByteFn    = cpu.PortReadByte
	handleInterruptFn = gate.HandleInterrupt
	eoiFn             = notifyEndOfInterrupt
	initPICsFn        = initializePICs

	// keyboardLock protects keyboard. It is only taken by the keyboard
	// handler which runs with interrupts disabled.
	keyboardLock sync.Spinlock
	keyboard     kbd.Keyboard
)

// Init assigns the vector offsets to the controller pair, installs the timer
// and keyboard handlers and programs the controllers. Interrupts remain
// disabled until the caller enables them.
func Init() *kernel.Error {
	if err := PICs.Init(PrimaryOffset, SecondaryOffset); err != nil {
		return err
	}

	keyboardLock.Acquire()
	keyboard.Init()
	keyboardLock.Release()

	handleInterruptFn(Timer, 0, timerHandler)
	handleInterruptFn(Keyboard, 0, keyboardHandler)

	initPICsFn()
	return nil
}

func initializePICs() {
	PICs.Initialize()
}

func notifyEndOfInterrupt(vector uint8) {
	PICs.NotifyEndOfInterrupt(vector)
}

func timerHandler(_ *gate.Registers) {
	kfmt.Printf(".")
	eoiFn(uint8(Timer))
}

// keyboardHandler reads the pending scancode; the controller raises no
// further keyboard interrupts until it has been read.
func keyboardHandler(_ *gate.Registers) {
	scancode := portReadByteFn(keyboardDataPort)

	keyboardLock.Acquire()
	key, ok := decodeScancode(scancode)
	keyboardLock.Release()

	if ok {
		if key.IsRune {
			kfmt.Printf("%c", key.Rune)
		} else {
			kfmt.Printf("%s", key.Code.String())
		}
	}

	eoiFn(uint8(Keyboard))
}

// decodeScancode feeds scancode to the keyboard decoder. It must be called
// with keyboardLock held.
func decodeScancode(scancode uint8) (kbd.DecodedKey, bool) {
	ev, complete, err := keyboard.AddByte(scancode)
	if err != nil || !complete {
		return kbd.DecodedKey{}, false
	}

	return keyboard.ProcessKeyEvent(ev)
}
