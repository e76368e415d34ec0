package kbd

// Modifiers tracks the state of the modifier and lock keys.
type Modifiers struct {
	LeftShift  bool
	RightShift bool
	LeftCtrl   bool
	RightCtrl  bool
	NumLock    bool
	CapsLock   bool
}

// IsShifted returns true if either shift key is held down.
func (m Modifiers) IsShifted() bool {
	return m.LeftShift || m.RightShift
}

// IsCaps returns true if letters should be upper-case.
func (m Modifiers) IsCaps() bool {
	return m.IsShifted() != m.CapsLock
}

// DecodedKey is the result of mapping a key press through a layout. Keys
// that produce text carry a Rune; the rest are reported by KeyCode.
type DecodedKey struct {
	Rune   rune
	Code   KeyCode
	IsRune bool
}

func unicodeKey(r rune) DecodedKey {
	return DecodedKey{Rune: r, IsRune: true}
}

func rawKey(code KeyCode) DecodedKey {
	return DecodedKey{Code: code}
}

// us104Pair holds the unshifted and shifted characters produced by a key.
type us104Pair struct {
	plain, shifted rune
}

var (
	us104Letters = [keyCodeCount]rune{
		Q: 'q',
		W: 'w',
		E: 'e',
		R: 'r',
		T: 't',
		Y: 'y',
		U: 'u',
		I: 'i',
		O: 'o',
		P: 'p',
		A: 'a',
		S: 's',
		D: 'd',
		F: 'f',
		G: 'g',
		H: 'h',
		J: 'j',
		K: 'k',
		L: 'l',
		Z: 'z',
		X: 'x',
		C: 'c',
		V: 'v',
		B: 'b',
		N: 'n',
		M: 'm',
	}

	us104Symbols = [keyCodeCount]us104Pair{
		BackTick:           {'`', '~'},
		Key1:               {'1', '!'},
		Key2:               {'2', '@'},
		Key3:               {'3', '#'},
		Key4:               {'4', '$'},
		Key5:               {'5', '%'},
		Key6:               {'6', '^'},
		Key7:               {'7', '&'},
		Key8:               {'8', '*'},
		Key9:               {'9', '('},
		Key0:               {'0', ')'},
		Minus:              {'-', '_'},
		Equals:             {'=', '+'},
		BracketSquareLeft:  {'[', '{'},
		BracketSquareRight: {']', '}'},
		BackSlash:          {'\\', '|'},
		SemiColon:          {';', ':'},
		Quote:              {'\'', '"'},
		Comma:              {',', '<'},
		Fullstop:           {'.', '>'},
		Slash:              {'/', '?'},
		Spacebar:           {' ', ' '},
		Tab:                {'\t', '\t'},
		Enter:              {'\n', '\n'},
		Backspace:          {0x08, 0x08},
		Escape:             {0x1b, 0x1b},
		Delete:             {0x7f, 0x7f},
		NumpadStar:         {'*', '*'},
		NumpadMinus:        {'-', '-'},
		NumpadPlus:         {'+', '+'},
		NumpadSlash:        {'/', '/'},
		NumpadEnter:        {'\n', '\n'},
	}

	us104Numpad = [keyCodeCount]rune{
		Numpad0:      '0',
		Numpad1:      '1',
		Numpad2:      '2',
		Numpad3:      '3',
		Numpad4:      '4',
		Numpad5:      '5',
		Numpad6:      '6',
		Numpad7:      '7',
		Numpad8:      '8',
		Numpad9:      '9',
		NumpadPeriod: '.',
	}
)

// MapUS104 maps a key code to the character it produces on a US 104-key
// keyboard given the current modifiers. Control keys are not treated
// specially.
func MapUS104(code KeyCode, mods Modifiers) DecodedKey {
	if code >= keyCodeCount {
		return rawKey(Unknown)
	}

	if ch := us104Letters[code]; ch != 0 {
		if mods.IsCaps() {
			ch -= 'a' - 'A'
		}
		return unicodeKey(ch)
	}

	if pair := us104Symbols[code]; pair.plain != 0 {
		if mods.IsShifted() {
			return unicodeKey(pair.shifted)
		}
		return unicodeKey(pair.plain)
	}

	if ch := us104Numpad[code]; ch != 0 && mods.NumLock {
		return unicodeKey(ch)
	}

	return rawKey(code)
}
