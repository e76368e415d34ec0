package kbd

import "koratos/kernel"

const (
	extendedPrefix = 0xe0
	releaseBit     = 0x80
)

var (
	// ErrUnknownKeyCode is returned when a scancode does not map to a key.
	ErrUnknownKeyCode = &kernel.Error{Module: "kbd", Message: "unknown scancode"}

	set1Keys = [0x59]KeyCode{
		0x01: Escape,
		0x02: Key1, 0x03: Key2, 0x04: Key3, 0x05: Key4, 0x06: Key5,
		0x07: Key6, 0x08: Key7, 0x09: Key8, 0x0a: Key9, 0x0b: Key0,
		0x0c: Minus, 0x0d: Equals, 0x0e: Backspace, 0x0f: Tab,
		0x10: Q, 0x11: W, 0x12: E, 0x13: R, 0x14: T,
		0x15: Y, 0x16: U, 0x17: I, 0x18: O, 0x19: P,
		0x1a: BracketSquareLeft, 0x1b: BracketSquareRight, 0x1c: Enter, 0x1d: ControlLeft,
		0x1e: A, 0x1f: S, 0x20: D, 0x21: F, 0x22: G,
		0x23: H, 0x24: J, 0x25: K, 0x26: L,
		0x27: SemiColon, 0x28: Quote, 0x29: BackTick, 0x2a: ShiftLeft, 0x2b: BackSlash,
		0x2c: Z, 0x2d: X, 0x2e: C, 0x2f: V, 0x30: B, 0x31: N, 0x32: M,
		0x33: Comma, 0x34: Fullstop, 0x35: Slash, 0x36: ShiftRight,
		0x37: NumpadStar, 0x38: AltLeft, 0x39: Spacebar, 0x3a: CapsLock,
		0x3b: F1, 0x3c: F2, 0x3d: F3, 0x3e: F4, 0x3f: F5,
		0x40: F6, 0x41: F7, 0x42: F8, 0x43: F9, 0x44: F10,
		0x45: NumpadLock, 0x46: ScrollLock,
		0x47: Numpad7, 0x48: Numpad8, 0x49: Numpad9, 0x4a: NumpadMinus,
		0x4b: Numpad4, 0x4c: Numpad5, 0x4d: Numpad6, 0x4e: NumpadPlus,
		0x4f: Numpad1, 0x50: Numpad2, 0x51: Numpad3,
		0x52: Numpad0, 0x53: NumpadPeriod,
		0x57: F11, 0x58: F12,
	}

	set1ExtendedKeys = [0x5e]KeyCode{
		0x1c: NumpadEnter, 0x1d: ControlRight, 0x35: NumpadSlash, 0x38: AltRight,
		0x47: Home, 0x48: ArrowUp, 0x49: PageUp,
		0x4b: ArrowLeft, 0x4d: ArrowRight,
		0x4f: End, 0x50: ArrowDown, 0x51: PageDown,
		0x52: Insert, 0x53: Delete,
		0x5b: WindowsLeft, 0x5c: WindowsRight, 0x5d: Menus,
	}
)

// KeyState indicates whether a key was pressed or released.
type KeyState uint8

const (
	// KeyUp is reported when a key is released.
	KeyUp KeyState = iota

	// KeyDown is reported when a key is pressed or auto-repeats.
	KeyDown
)

// KeyEvent describes a state change of a single key.
type KeyEvent struct {
	Code  KeyCode
	State KeyState
}

// ScancodeSet1 decodes the byte stream produced by a keyboard that uses
// scancode set 1 (the set emulated by the PS/2 controller by default).
type ScancodeSet1 struct {
	extended bool
}

// AddByte feeds a byte received from the keyboard controller into the
// decoder. It returns true when the byte completes a key event.
func (s *ScancodeSet1) AddByte(code uint8) (KeyEvent, bool, *kernel.Error) {
	if code == extendedPrefix {
		s.extended = true
		return KeyEvent{}, false, nil
	}

	var (
		ev    = KeyEvent{State: KeyDown}
		table = set1Keys[:]
	)

	if s.extended {
		s.extended = false
		table = set1ExtendedKeys[:]
	}

	if code&releaseBit != 0 {
		ev.State = KeyUp
		code &^= releaseBit
	}

	if int(code) >= len(table) || table[code] == Unknown {
		return KeyEvent{}, false, ErrUnknownKeyCode
	}

	ev.Code = table[code]
	return ev, true, nil
}
