package exec

import (
	"bytes"
)

// DefaultMaxOutputSize caps what is kept of a compiler's stdout or stderr (4MB).
// Diagnostics for a runaway include loop can otherwise grow without bound.
const DefaultMaxOutputSize = 4 * 1024 * 1024

// BoundedBuffer is an io.Writer that keeps at most limit bytes and
// discards the rest. Truncated reports whether anything was dropped.
type BoundedBuffer struct {
	buffer    bytes.Buffer
	limit     int
	Truncated bool
}

// NewBoundedBuffer creates a new BoundedBuffer with the specified limit.
func NewBoundedBuffer(limit int) *BoundedBuffer {
	return &BoundedBuffer{
		limit: limit,
	}
}

// Write implements io.Writer. It never reports a short write, so exec.Cmd
// keeps draining the pipe after the limit is reached.
func (b *BoundedBuffer) Write(p []byte) (int, error) {
	remaining := b.limit - b.buffer.Len()
	if remaining <= 0 {
		b.Truncated = len(p) > 0 || b.Truncated
		return len(p), nil
	}
	if len(p) > remaining {
		b.Truncated = true
		b.buffer.Write(p[:remaining])
		return len(p), nil
	}
	return b.buffer.Write(p)
}

// String returns the kept output.
func (b *BoundedBuffer) String() string {
	return b.buffer.String()
}

// Len returns the number of bytes kept.
func (b *BoundedBuffer) Len() int {
	return b.buffer.Len()
}
