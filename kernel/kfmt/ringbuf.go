package kfmt

import "io"

// ringBufferSize is large enough to hold a full 80x25 text screen. It must
// be a power of 2.
const ringBufferSize = 2048

// ringBuffer keeps the most recent ringBufferSize bytes written to it. Once
// full, each new byte overwrites the oldest one.
type ringBuffer struct {
	buffer [ringBufferSize]byte

	// head is the index of the oldest unread byte; count is the number of
	// unread bytes.
	head, count int
}

// Write appends p to the buffer. It never fails.
func (rb *ringBuffer) Write(p []byte) (int, error) {
	for _, b := range p {
		rb.buffer[(rb.head+rb.count)&(ringBufferSize-1)] = b
		if rb.count == ringBufferSize {
			rb.head = (rb.head + 1) & (ringBufferSize - 1)
			continue
		}
		rb.count++
	}

	return len(p), nil
}

// Read copies up to len(p) unread bytes into p. It returns io.EOF once the
// buffer has been drained.
func (rb *ringBuffer) Read(p []byte) (int, error) {
	if rb.count == 0 {
		return 0, io.EOF
	}

	// Only copy the contiguous run that starts at head; callers loop.
	n := ringBufferSize - rb.head
	if n > rb.count {
		n = rb.count
	}
	n = copy(p, rb.buffer[rb.head:rb.head+n])

	rb.head = (rb.head + n) & (ringBufferSize - 1)
	rb.count -= n
	return n, nil
}
