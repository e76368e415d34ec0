// Package console provides character-grid output devices.
package console

// Attr is a cell attribute: the foreground color in the low nibble and the
// background color in the high nibble.
type Attr uint8

// The set of colors that can be combined into an Attr via MakeAttr.
const (
	Black Attr = iota
	Blue
	Green
	Cyan
	Red
	Magenta
	Brown
	LightGrey
	DarkGrey
	LightBlue
	LightGreen
	LightCyan
	LightRed
	Pink
	Yellow
	White
)

// MakeAttr combines a foreground and a background color into an Attr.
func MakeAttr(fg, bg Attr) Attr {
	return (bg << 4) | (fg & 0xf)
}

// ScrollDir defines a scroll direction.
type ScrollDir uint8

// The supported list of scroll directions for the console Scroll() calls.
const (
	Up ScrollDir = iota
	Down
)

// The Console interface is implemented by objects that can function as physical consoles.
type Console interface {
	// Dimensions returns the width and height of the console in characters.
	Dimensions() (uint16, uint16)

	// Clear blanks the specified rectangular region using attr.
	Clear(x, y, width, height uint16, attr Attr)

	// Scroll a particular number of lines to the specified direction.
	Scroll(dir ScrollDir, lines uint16)

	// Write a char to the specified location.
	Write(ch byte, attr Attr, x, y uint16)

	// Read returns the char and attribute stored at the specified location.
	Read(x, y uint16) (byte, Attr)
}
