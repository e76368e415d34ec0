// Package tty implements the kernel's diagnostic terminal.
package tty

import (
	"koratos/kernel/driver/video/console"
	"koratos/kernel/sync"
)

const (
	defaultFg = console.Yellow
	defaultBg = console.Black

	// placeholderChar replaces any byte that is neither printable ASCII
	// nor a line feed.
	placeholderChar = byte(0x3f)
)

// Vt is a terminal that always writes to the bottom row of its console.
// Starting a new line, either because of a line feed or because the row is
// full, scrolls the console contents up by one row and blanks the bottom
// row.
//
// Vt is safe to use from interrupt handlers: its lock disables interrupts
// while held.
type Vt struct {
	lock sync.IRQSpinlock

	cons console.Console

	width  uint16
	height uint16

	col  uint16
	attr console.Attr
}

// AttachTo links the terminal with the specified console device and resets
// the cursor and colors.
func (t *Vt) AttachTo(cons console.Console) {
	t.lock.Acquire()
	defer t.lock.Release()

	t.cons = cons
	t.width, t.height = cons.Dimensions()
	t.col = 0
	t.attr = console.MakeAttr(defaultFg, defaultBg)
}

// Dimensions returns the width and height of the attached console.
func (t *Vt) Dimensions() (uint16, uint16) {
	return t.width, t.height
}

// Column returns the column where the next character will be written.
func (t *Vt) Column() uint16 {
	t.lock.Acquire()
	defer t.lock.Release()

	return t.col
}

// SetColor sets the colors used for subsequent writes.
func (t *Vt) SetColor(fg, bg console.Attr) {
	t.lock.Acquire()
	t.attr = console.MakeAttr(fg, bg)
	t.lock.Release()
}

// Clear blanks the terminal and moves the cursor to the start of the bottom
// row.
func (t *Vt) Clear() {
	t.lock.Acquire()
	defer t.lock.Release()

	if t.cons == nil {
		return
	}

	t.cons.Clear(0, 0, t.width, t.height, t.attr)
	t.col = 0
}

// Write implements io.Writer.
func (t *Vt) Write(data []byte) (int, error) {
	t.lock.Acquire()
	defer t.lock.Release()

	for _, b := range data {
		t.writeByte(b)
	}

	return len(data), nil
}

// WriteString writes s without converting it to a byte slice.
func (t *Vt) WriteString(s string) (int, error) {
	t.lock.Acquire()
	defer t.lock.Release()

	for i := 0; i < len(s); i++ {
		t.writeByte(s[i])
	}

	return len(s), nil
}

// WriteByte implements io.ByteWriter.
func (t *Vt) WriteByte(b byte) error {
	t.lock.Acquire()
	t.writeByte(b)
	t.lock.Release()

	return nil
}

func (t *Vt) writeByte(b byte) {
	if t.cons == nil {
		return
	}

	if b == '\n' {
		t.newLine()
		return
	}

	if b < 0x20 || b > 0x7e {
		b = placeholderChar
	}

	if t.col >= t.width {
		t.newLine()
	}

	t.cons.Write(b, t.attr, t.col, t.height-1)
	t.col++
}

// newLine scrolls the console up by one row and blanks the bottom row.
func (t *Vt) newLine() {
	t.cons.Scroll(console.Up, 1)
	t.cons.Clear(0, t.height-1, t.width, 1, t.attr)
	t.col = 0
}
