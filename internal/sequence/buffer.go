// Package sequence accumulates per-frame feature vectors into fixed-length windows.
package sequence

import (
	"github.com/ayusman/lipread/internal/features"
)

// DefaultWindow is the number of frames in one classification window.
const DefaultWindow = 30

// Sequence is an ordered run of feature vectors, oldest first.
type Sequence []features.Vector

// Buffer is a sliding window of feature vectors. It is not safe for
// concurrent use; the capture loop owns it.
type Buffer struct {
	window int
	frames []features.Vector
}

// New creates a buffer holding at most window frames. A non-positive window
// uses DefaultWindow.
func New(window int) *Buffer {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Buffer{
		window: window,
		frames: make([]features.Vector, 0, window),
	}
}

// AddFrame appends v, dropping the oldest frame once the window is full.
// It reports whether the buffer now holds exactly one full window.
func (b *Buffer) AddFrame(v features.Vector) bool {
	if len(b.frames) >= b.window {
		copy(b.frames, b.frames[1:])
		b.frames = b.frames[:b.window-1]
	}
	b.frames = append(b.frames, v)

	return len(b.frames) == b.window
}

// Sequence returns a copy of the buffered frames in push order. The result
// is a complete window only after AddFrame has returned true.
func (b *Buffer) Sequence() Sequence {
	out := make(Sequence, len(b.frames))
	copy(out, b.frames)
	return out
}

// Len returns the number of buffered frames.
func (b *Buffer) Len() int {
	return len(b.frames)
}

// Window returns the buffer capacity.
func (b *Buffer) Window() int {
	return b.window
}

// Reset drops all buffered frames.
func (b *Buffer) Reset() {
	b.frames = b.frames[:0]
}
