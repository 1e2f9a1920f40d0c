// SPDX-License-Identifier: MIT
package transport

// Transport publishes one smoothed band frame per call to the UI-facing
// channel. Implementations must be thread-safe, must never block the
// caller (the analysis loop), and drop frames rather than queue unboundedly
// when the consumer cannot keep up. Delivery is best-effort, at most once
// per tick; consumers must tolerate missed frames.
type Transport interface {
	Send(frame []float64) error
	Close() error
}

// FrameProvider exposes the most recent published band frame. It decouples
// pull-based publishers (the UDP ticker) from the analysis pipeline.
type FrameProvider interface {
	// FrameInto copies the latest frame into dst, which must match the
	// band count.
	FrameInto(dst []float64) error
	// Bands returns the number of values per frame.
	Bands() int
}
