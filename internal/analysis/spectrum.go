// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math"
	"math/cmplx"
	"sync/atomic"

	"gonum.org/v1/gonum/dsp/fourier"

	applog "spectra/internal/log"
	"spectra/pkg/bitint"
)

// SpectralAnalyzer computes the magnitude spectrum of windowed frames.
// It is a pure function of one frame plus pre-allocated workspace: no state
// carries across frames except the fault counter.
type SpectralAnalyzer struct {
	fftSize    int
	sampleRate float64

	fft       *fourier.FFT
	coeffs    []complex128 // fftSize/2+1 complex bins (Hermitian symmetry of real input)
	magnitude []float64

	faults atomic.Uint64
}

// NewSpectralAnalyzer pre-allocates all FFT buffers for the given size.
func NewSpectralAnalyzer(fftSize int, sampleRate float64) (*SpectralAnalyzer, error) {
	if !bitint.IsPowerOfTwo(fftSize) {
		return nil, fmt.Errorf("fft size must be a power of 2, got %d", fftSize)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %f", sampleRate)
	}

	outputSize := fftSize/2 + 1
	return &SpectralAnalyzer{
		fftSize:    fftSize,
		sampleRate: sampleRate,
		fft:        fourier.NewFFT(fftSize),
		coeffs:     make([]complex128, outputSize),
		magnitude:  make([]float64, outputSize),
	}, nil
}

// Analyze computes per-bin magnitudes for one windowed frame and returns
// the internal magnitude buffer, valid until the next call. The frame must
// be fftSize long.
//
// A frame containing NaN or Inf is an analysis fault: the spectrum is
// zeroed for this frame and processing continues, since visual continuity
// matters more than any single frame.
func (s *SpectralAnalyzer) Analyze(frame []float64) []float64 {
	for _, v := range frame {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			s.faults.Add(1)
			applog.Warnf("Analysis: non-finite sample in FFT input, substituting zero frame (faults=%d)", s.faults.Load())
			for i := range s.magnitude {
				s.magnitude[i] = 0
			}
			return s.magnitude
		}
	}

	s.fft.Coefficients(s.coeffs, frame)

	// Amplitude normalization: 2/N maps a full-scale sinusoid to ~1.0
	// (half the energy sits in the mirrored negative-frequency bin).
	norm := 2.0 / float64(s.fftSize)
	for i, c := range s.coeffs {
		s.magnitude[i] = cmplx.Abs(c) * norm
	}

	return s.magnitude
}

// FrequencyForBin returns the center frequency (Hz) for a given FFT bin.
func (s *SpectralAnalyzer) FrequencyForBin(binIndex int) float64 {
	if binIndex < 0 || binIndex >= len(s.coeffs) {
		return 0
	}
	return float64(binIndex) * (s.sampleRate / float64(s.fftSize))
}

// FFTSize returns the configured FFT size.
func (s *SpectralAnalyzer) FFTSize() int { return s.fftSize }

// Faults returns how many frames were zeroed due to non-finite input.
func (s *SpectralAnalyzer) Faults() uint64 { return s.faults.Load() }
