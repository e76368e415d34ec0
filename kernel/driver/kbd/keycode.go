package kbd

// KeyCode identifies a physical key independently of the keyboard layout.
type KeyCode uint8

// Key codes for the keys of a US 104-key keyboard.
const (
	Unknown KeyCode = iota
	Escape
	Key1
	Key2
	Key3
	Key4
	Key5
	Key6
	Key7
	Key8
	Key9
	Key0
	Minus
	Equals
	Backspace
	Tab
	Q
	W
	E
	R
	T
	Y
	U
	I
	O
	P
	BracketSquareLeft
	BracketSquareRight
	Enter
	ControlLeft
	A
	S
	D
	F
	G
	H
	J
	K
	L
	SemiColon
	Quote
	BackTick
	ShiftLeft
	BackSlash
	Z
	X
	C
	V
	B
	N
	M
	Comma
	Fullstop
	Slash
	ShiftRight
	NumpadStar
	AltLeft
	Spacebar
	CapsLock
	F1
	F2
	F3
	F4
	F5
	F6
	F7
	F8
	F9
	F10
	NumpadLock
	ScrollLock
	Numpad7
	Numpad8
	Numpad9
	NumpadMinus
	Numpad4
	Numpad5
	Numpad6
	NumpadPlus
	Numpad1
	Numpad2
	Numpad3
	Numpad0
	NumpadPeriod
	F11
	F12
	NumpadEnter
	ControlRight
	NumpadSlash
	AltRight
	Home
	ArrowUp
	PageUp
	ArrowLeft
	ArrowRight
	End
	ArrowDown
	PageDown
	Insert
	Delete
	WindowsLeft
	WindowsRight
	Menus

	keyCodeCount
)

var keyCodeNames = [keyCodeCount]string{
	Unknown:            "Unknown",
	Escape:             "Escape",
	Key1:               "Key1",
	Key2:               "Key2",
	Key3:               "Key3",
	Key4:               "Key4",
	Key5:               "Key5",
	Key6:               "Key6",
	Key7:               "Key7",
	Key8:               "Key8",
	Key9:               "Key9",
	Key0:               "Key0",
	Minus:              "Minus",
	Equals:             "Equals",
	Backspace:          "Backspace",
	Tab:                "Tab",
	Q:                  "Q",
	W:                  "W",
	E:                  "E",
	R:                  "R",
	T:                  "T",
	Y:                  "Y",
	U:                  "U",
	I:                  "I",
	O:                  "O",
	P:                  "P",
	BracketSquareLeft:  "BracketSquareLeft",
	BracketSquareRight: "BracketSquareRight",
	Enter:              "Enter",
	ControlLeft:        "ControlLeft",
	A:                  "A",
	S:                  "S",
	D:                  "D",
	F:                  "F",
	G:                  "G",
	H:                  "H",
	J:                  "J",
	K:                  "K",
	L:                  "L",
	SemiColon:          "SemiColon",
	Quote:              "Quote",
	BackTick:           "BackTick",
	ShiftLeft:          "ShiftLeft",
	BackSlash:          "BackSlash",
	Z:                  "Z",
	X:                  "X",
	C:                  "C",
	V:                  "V",
	B:                  "B",
	N:                  "N",
	M:                  "M",
	Comma:              "Comma",
	Fullstop:           "Fullstop",
	Slash:              "Slash",
	ShiftRight:         "ShiftRight",
	NumpadStar:         "NumpadStar",
	AltLeft:            "AltLeft",
	Spacebar:           "Spacebar",
	CapsLock:           "CapsLock",
	F1:                 "F1",
	F2:                 "F2",
	F3:                 "F3",
	F4:                 "F4",
	F5:                 "F5",
	F6:                 "F6",
	F7:                 "F7",
	F8:                 "F8",
	F9:                 "F9",
	F10:                "F10",
	NumpadLock:         "NumpadLock",
	ScrollLock:         "ScrollLock",
	Numpad7:            "Numpad7",
	Numpad8:            "Numpad8",
	Numpad9:            "Numpad9",
	NumpadMinus:        "NumpadMinus",
	Numpad4:            "Numpad4",
	Numpad5:            "Numpad5",
	Numpad6:            "Numpad6",
	NumpadPlus:         "NumpadPlus",
	Numpad1:            "Numpad1",
	Numpad2:            "Numpad2",
	Numpad3:            "Numpad3",
	Numpad0:            "Numpad0",
	NumpadPeriod:       "NumpadPeriod",
	F11:                "F11",
	F12:                "F12",
	NumpadEnter:        "NumpadEnter",
	ControlRight:       "ControlRight",
	NumpadSlash:        "NumpadSlash",
	AltRight:           "AltRight",
	Home:               "Home",
	ArrowUp:            "ArrowUp",
	PageUp:             "PageUp",
	ArrowLeft:          "ArrowLeft",
	ArrowRight:         "ArrowRight",
	End:                "End",
	ArrowDown:          "ArrowDown",
	PageDown:           "PageDown",
	Insert:             "Insert",
	Delete:             "Delete",
	WindowsLeft:        "WindowsLeft",
	WindowsRight:       "WindowsRight",
	Menus:              "Menus",
}

// String returns the name of the key.
func (k KeyCode) String() string {
	if k >= keyCodeCount {
		return keyCodeNames[Unknown]
	}
	return keyCodeNames[k]
}
