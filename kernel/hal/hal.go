// Package hal wires the kernel's early output devices: the text-mode
// terminal and the COM1 serial port. Both are fed from kfmt.
package hal

import (
	"io"

	"koratos/kernel"
	"koratos/kernel/driver/serial"
	"koratos/kernel/driver/tty"
	"koratos/kernel/driver/video/console"
	"koratos/kernel/hal/multiboot"
	"koratos/kernel/kfmt"
)

const (
	defaultWidth  = 80
	defaultHeight = 25
)

var (
	// the following functions are mocked by tests and are automatically
	// inlined by the compiler.
	framebufferInfoFn = multiboot.GetFramebufferInfo
	serialInitFn      = initSerialPort

	// fallbackFramebufferAddr is used when the boot loader does not
	// describe an EGA text framebuffer.
	fallbackFramebufferAddr = console.EgaFramebufferAddr

	egaConsole console.Ega

	// ActiveTerminal is the terminal that receives kernel output.
	ActiveTerminal tty.Vt

	serialPort serial.Port

	sink logSink
)

// logSink fans kfmt output out to the active terminal and, when one was
// detected, to the serial port.
type logSink struct {
	term   io.Writer
	serial io.Writer
}

func (s *logSink) Write(p []byte) (int, error) {
	s.term.Write(p)
	if s.serial != nil {
		s.serial.Write(p)
	}

	return len(p), nil
}

// InitTerminal sets up the text-mode terminal and the serial port and
// installs them as the kfmt output sink. Output printed before this call is
// replayed to both devices.
//
// The boot loader's framebuffer description is used when it reports an EGA
// text mode; otherwise an 80x25 console at the standard VGA text buffer
// address is assumed.
func InitTerminal() {
	width, height, fbAddr := uint16(defaultWidth), uint16(defaultHeight), fallbackFramebufferAddr
	if fbInfo := framebufferInfoFn(); fbInfo != nil && fbInfo.Type == multiboot.FramebufferTypeEGA {
		width, height, fbAddr = uint16(fbInfo.Width), uint16(fbInfo.Height), uintptr(fbInfo.PhysAddr)
	}

	egaConsole.Init(width, height, fbAddr)
	ActiveTerminal.AttachTo(&egaConsole)
	ActiveTerminal.Clear()

	sink.term, sink.serial = &ActiveTerminal, nil
	if serialInitFn() == nil {
		sink.serial = &serialPort
	}

	kfmt.SetOutputSink(&sink)
}

// SerialPort returns a writer for the serial port or nil if InitTerminal did
// not detect a UART.
func SerialPort() io.Writer {
	return sink.serial
}

func initSerialPort() *kernel.Error {
	return serialPort.Init(serial.COM1)
}
