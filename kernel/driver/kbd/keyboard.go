// Package kbd decodes the scancodes produced by a PS/2 keyboard into key
// events and characters.
package kbd

import "koratos/kernel"

// Keyboard combines a scancode set 1 decoder with the US 104-key layout and
// tracks the modifier state between key events.
type Keyboard struct {
	decoder   ScancodeSet1
	modifiers Modifiers
}

// Init resets the decoder. Num lock starts out enabled.
func (k *Keyboard) Init() {
	k.decoder = ScancodeSet1{}
	k.modifiers = Modifiers{NumLock: true}
}

// Modifiers returns the current modifier state.
func (k *Keyboard) Modifiers() Modifiers {
	return k.modifiers
}

// AddByte feeds a scancode byte to the decoder. It returns true when the byte
// completes a key event.
func (k *Keyboard) AddByte(code uint8) (KeyEvent, bool, *kernel.Error) {
	return k.decoder.AddByte(code)
}

// ProcessKeyEvent updates the modifier state and returns the key produced by
// ev, if any. Key releases and modifier keys produce no key.
func (k *Keyboard) ProcessKeyEvent(ev KeyEvent) (DecodedKey, bool) {
	down := ev.State == KeyDown

	switch ev.Code {
	case ShiftLeft:
		k.modifiers.LeftShift = down
		return DecodedKey{}, false
	case ShiftRight:
		k.modifiers.RightShift = down
		return DecodedKey{}, false
	case ControlLeft:
		k.modifiers.LeftCtrl = down
		return DecodedKey{}, false
	case ControlRight:
		k.modifiers.RightCtrl = down
		return DecodedKey{}, false
	case CapsLock:
		if down {
			k.modifiers.CapsLock = !k.modifiers.CapsLock
		}
		return DecodedKey{}, false
	case NumpadLock:
		if down {
			k.modifiers.NumLock = !k.modifiers.NumLock
		}
		return DecodedKey{}, false
	}

	if !down {
		return DecodedKey{}, false
	}

	return MapUS104(ev.Code, k.modifiers), true
}
