package kfmt

import (
	"bytes"
	"io"
)

// PrefixWriter wraps an io.Writer and emits Prefix at the start of every
// output line. Subsystems use it to tag their log lines, e.g. "[pmm] ".
type PrefixWriter struct {
	// Sink receives all output.
	Sink io.Writer

	// Prefix is emitted before the first byte of each line.
	Prefix []byte

	// midLine is set while the current line has already been prefixed.
	midLine bool
}

// Write writes p to the sink, injecting the prefix where a line starts. The
// returned byte count only covers bytes from p.
func (w *PrefixWriter) Write(p []byte) (int, error) {
	var written int

	for len(p) != 0 {
		if !w.midLine {
			w.Sink.Write(w.Prefix)
			w.midLine = true
		}

		lineLen := len(p)
		if nl := bytes.IndexByte(p, '\n'); nl != -1 {
			lineLen = nl + 1
			w.midLine = false
		}

		n, err := w.Sink.Write(p[:lineLen])
		written += n
		if err != nil {
			return written, err
		}

		p = p[lineLen:]
	}

	return written, nil
}
