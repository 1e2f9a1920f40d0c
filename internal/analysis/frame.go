// SPDX-License-Identifier: MIT
package analysis

// FrameAssembler maintains a sliding window of the most recent fftSize mono
// samples, advancing by hop samples per analysis tick. Consecutive frames
// overlap by fftSize-hop samples, which raises the update rate without
// raising the FFT size.
//
// No frame is emitted until the window has filled once; until then Ready
// reports false and the pipeline withholds output.
type FrameAssembler struct {
	size int
	hop  int

	window  []float64 // pre-computed window coefficients
	history []float64 // last `size` samples, oldest first
	filled  int
}

// NewFrameAssembler creates an assembler for fftSize-sample frames advanced
// by hop samples, windowed with the given function.
func NewFrameAssembler(fftSize, hop int, windowType WindowFunc) *FrameAssembler {
	return &FrameAssembler{
		size:    fftSize,
		hop:     hop,
		window:  windowCoefficients(fftSize, windowType),
		history: make([]float64, fftSize),
	}
}

// Hop returns the samples advanced between consecutive frames.
func (a *FrameAssembler) Hop() int { return a.hop }

// Append slides the window forward by len(samples). Blocks larger than the
// frame keep only their newest window.
func (a *FrameAssembler) Append(samples []float32) {
	if len(samples) >= a.size {
		samples = samples[len(samples)-a.size:]
		for i, s := range samples {
			a.history[i] = float64(s)
		}
		a.filled = a.size
		return
	}

	n := len(samples)
	copy(a.history, a.history[n:])
	base := a.size - n
	for i, s := range samples {
		a.history[base+i] = float64(s)
	}

	a.filled += n
	if a.filled > a.size {
		a.filled = a.size
	}
}

// Ready reports whether a full frame has accumulated since the last Reset.
func (a *FrameAssembler) Ready() bool {
	return a.filled >= a.size
}

// WindowInto writes the current windowed frame into dst, which must be
// fftSize long. Allocation-free.
func (a *FrameAssembler) WindowInto(dst []float64) {
	for i, s := range a.history {
		dst[i] = s * a.window[i]
	}
}

// Reset discards accumulated history, e.g. on stream restart.
func (a *FrameAssembler) Reset() {
	for i := range a.history {
		a.history[i] = 0
	}
	a.filled = 0
}
