// SPDX-License-Identifier: MIT
/*
Package ring implements a fixed-capacity single-producer/single-consumer
sample buffer for handing audio from the capture callback to the analysis
loop.

The write side is the PortAudio callback and must never block, allocate or
take a lock; it uses atomic positions only and overwrites the oldest unread
samples when the consumer falls behind (drop-oldest backpressure, freshness
over completeness). The read side detects overwritten data and resynchronizes
to the newest window; samples are consumed as a sliding window, not as an
exact log, so gap integrity across an overflow is not required.
*/
package ring

import (
	"sync/atomic"

	"spectra/pkg/bitint"
)

// Buffer is a lock-free SPSC ring of float32 samples.
//
// Positions are monotonically increasing sample counts; the buffer index is
// pos & mask. Exactly one goroutine may call Write and exactly one may call
// Read/Reset.
type Buffer struct {
	buf  []float32
	mask uint64

	w        atomic.Uint64 // total samples written, producer-owned
	r        atomic.Uint64 // total samples consumed, consumer-owned
	overruns atomic.Uint64 // diagnostic only, never fatal
}

// New creates a buffer holding at least capacity samples, rounded up to a
// power of 2 so index masking replaces modulo on the hot path.
func New(capacity int) *Buffer {
	n := bitint.NextPowerOfTwo(capacity)
	return &Buffer{
		buf:  make([]float32, n),
		mask: uint64(n - 1),
	}
}

// Capacity returns the fixed buffer capacity in samples.
func (b *Buffer) Capacity() int {
	return len(b.buf)
}

// Write appends samples, overwriting the oldest unread data when full.
// It never blocks and never allocates. Producer side only.
func (b *Buffer) Write(p []float32) {
	if len(p) == 0 {
		return
	}

	// Larger-than-capacity blocks keep only their newest window.
	if len(p) > len(b.buf) {
		p = p[len(p)-len(b.buf):]
	}

	w := b.w.Load()
	idx := int(w & b.mask)
	n := copy(b.buf[idx:], p)
	if n < len(p) {
		copy(b.buf, p[n:])
	}

	w += uint64(len(p))
	if w-b.r.Load() > uint64(len(b.buf)) {
		b.overruns.Add(1)
	}
	b.w.Store(w)
}

// Read copies up to len(dst) of the oldest available samples into dst and
// returns the count. If the producer has lapped the consumer, the read
// position jumps forward to the oldest still-valid sample first. Consumer
// side only.
func (b *Buffer) Read(dst []float32) int {
	r := b.r.Load()
	w := b.w.Load()

	if w-r > uint64(len(b.buf)) {
		r = w - uint64(len(b.buf))
	}

	avail := w - r
	if avail == 0 {
		return 0
	}
	n := uint64(len(dst))
	if n > avail {
		n = avail
	}

	idx := int(r & b.mask)
	c := copy(dst[:n], b.buf[idx:])
	if uint64(c) < n {
		copy(dst[c:n], b.buf)
	}

	b.r.Store(r + n)
	return int(n)
}

// Buffered returns the number of unread samples, capped at capacity.
func (b *Buffer) Buffered() int {
	r := b.r.Load()
	w := b.w.Load()
	avail := w - r
	if avail > uint64(len(b.buf)) {
		avail = uint64(len(b.buf))
	}
	return int(avail)
}

// Written returns the total number of samples ever written. The capture
// watchdog uses this to detect a stalled stream.
func (b *Buffer) Written() uint64 {
	return b.w.Load()
}

// Overruns returns how many writes have overwritten unread data.
func (b *Buffer) Overruns() uint64 {
	return b.overruns.Load()
}

// Reset discards all unread samples. Only valid while the producer is
// stopped, e.g. between stream restarts.
func (b *Buffer) Reset() {
	b.r.Store(b.w.Load())
}
