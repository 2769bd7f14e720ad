package tcp

import (
	"bytes"
)

// Frame is one newline-delimited message unit recovered from the stream.
// Oversize frames carry no data: their bytes were discarded to bound memory,
// only the rejection is surfaced.
type Frame struct {
	Data     []byte
	Oversize bool
}

// Framer reassembles newline-delimited frames from an arbitrarily fragmented
// byte stream. It performs no JSON parsing; splitting is purely byte-based so
// partial TCP segments can never corrupt request boundaries. A Framer belongs
// to a single connection and is not safe for concurrent use.
type Framer struct {
	maxFrameBytes int
	buf           []byte
	discarding    bool
}

// NewFramer creates a framer that rejects frames longer than maxFrameBytes.
func NewFramer(maxFrameBytes int) *Framer {
	return &Framer{maxFrameBytes: maxFrameBytes}
}

// Push appends a chunk of bytes from the stream and returns every frame it
// completes, in arrival order. Blank lines are dropped silently. A frame
// exceeding the size limit is consumed up to its terminating newline and
// reported as a single Oversize frame; buffering stops as soon as the limit
// is crossed so a frame that never terminates cannot grow memory unboundedly.
// Returned frame data may alias chunk and is only valid until the next Push.
func (f *Framer) Push(chunk []byte) []Frame {
	var frames []Frame
	for len(chunk) > 0 {
		i := bytes.IndexByte(chunk, '\n')
		if i < 0 {
			if f.discarding {
				return frames
			}
			f.buf = append(f.buf, chunk...)
			if len(f.buf) > f.maxFrameBytes {
				f.buf = nil
				f.discarding = true
			}
			return frames
		}

		line := chunk[:i]
		chunk = chunk[i+1:]

		if f.discarding {
			f.discarding = false
			frames = append(frames, Frame{Oversize: true})
			continue
		}

		full := line
		if len(f.buf) > 0 {
			full = append(f.buf, line...)
			f.buf = nil
		}
		if len(full) > f.maxFrameBytes {
			frames = append(frames, Frame{Oversize: true})
			continue
		}
		if len(bytes.TrimRight(full, "\r")) == 0 {
			continue
		}
		frames = append(frames, Frame{Data: bytes.TrimSuffix(full, []byte("\r"))})
	}
	return frames
}

// Pending reports whether an incomplete frame is buffered.
func (f *Framer) Pending() bool {
	return len(f.buf) > 0 || f.discarding
}
