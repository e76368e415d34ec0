package console

import "unsafe"

const (
	// EgaFramebufferAddr is the physical address of the EGA/VGA text buffer.
	EgaFramebufferAddr = uintptr(0xb8000)

	clearChar = byte(' ')
)

// Ega implements an 80x25 style EGA-compatible text console. Each cell is a
// 16-bit value: the character in the low byte and its Attr in the high byte.
type Ega struct {
	width  uint16
	height uint16

	fb []uint16
}

// Init sets up the console to use the framebuffer at fbAddr.
func (cons *Ega) Init(width, height uint16, fbAddr uintptr) {
	cons.width = width
	cons.height = height
	cons.fb = unsafe.Slice((*uint16)(unsafe.Pointer(fbAddr)), int(width)*int(height))
}

// Clear blanks the specified rectangular region. The region is clipped to
// the console dimensions.
func (cons *Ega) Clear(x, y, width, height uint16, attr Attr) {
	var (
		blank                = (uint16(attr) << 8) | uint16(clearChar)
		rowOffset, colOffset uint16
	)

	if x >= cons.width {
		x = cons.width
	}
	if y >= cons.height {
		y = cons.height
	}

	if x+width > cons.width {
		width = cons.width - x
	}
	if y+height > cons.height {
		height = cons.height - y
	}

	rowOffset = (y * cons.width) + x
	for ; height > 0; height, rowOffset = height-1, rowOffset+cons.width {
		for colOffset = rowOffset; colOffset < rowOffset+width; colOffset++ {
			cons.fb[colOffset] = blank
		}
	}
}

// Dimensions returns the console width and height in characters.
func (cons *Ega) Dimensions() (uint16, uint16) {
	return cons.width, cons.height
}

// Scroll moves the console contents by a number of lines in the specified
// direction. The lines that are uncovered keep their previous contents; it
// is up to the caller to clear them.
func (cons *Ega) Scroll(dir ScrollDir, lines uint16) {
	if lines == 0 || lines > cons.height {
		return
	}

	offset := int(lines) * int(cons.width)

	switch dir {
	case Up:
		copy(cons.fb, cons.fb[offset:])
	case Down:
		copy(cons.fb[offset:], cons.fb)
	}
}

// Write a char to the specified location. Writes outside the console are
// ignored.
func (cons *Ega) Write(ch byte, attr Attr, x, y uint16) {
	if x >= cons.width || y >= cons.height {
		return
	}

	cons.fb[(y*cons.width)+x] = (uint16(attr) << 8) | uint16(ch)
}

// Read returns the char and attribute at the specified location. Reads
// outside the console return a zero cell.
func (cons *Ega) Read(x, y uint16) (byte, Attr) {
	if x >= cons.width || y >= cons.height {
		return 0, 0
	}

	cell := cons.fb[(y*cons.width)+x]
	return byte(cell), Attr(cell >> 8)
}
