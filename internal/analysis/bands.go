// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math"
)

// BandLayout maps linear FFT bins onto logarithmically spaced frequency
// bands. Band i spans minFreq*(maxFreq/minFreq)^(i/bands) to ^((i+1)/bands),
// so the bands are contiguous, non-overlapping and jointly cover
// [minFreq, maxFreq]. Computed once at startup; immutable afterwards.
type BandLayout struct {
	bands   int
	minFreq float64
	maxFreq float64

	edges []float64 // bands+1 edge frequencies, strictly increasing

	// Per-band bin ranges, hiBin exclusive. Bands narrower than one bin
	// (typical near 20Hz where resolution is coarse) fall back to the
	// single nearest bin, without interpolation.
	loBin []int
	hiBin []int
}

// NewBandLayout computes the band edges and their FFT bin ranges for the
// given analysis geometry. Bins above Nyquist or below the first band's
// floor are never assigned to any band.
func NewBandLayout(bands int, minFreq, maxFreq, sampleRate float64, fftSize int) (*BandLayout, error) {
	if bands <= 0 {
		return nil, fmt.Errorf("band count must be positive, got %d", bands)
	}
	if minFreq <= 0 || maxFreq <= minFreq {
		return nil, fmt.Errorf("invalid frequency range %g..%g Hz", minFreq, maxFreq)
	}

	l := &BandLayout{
		bands:   bands,
		minFreq: minFreq,
		maxFreq: maxFreq,
		edges:   make([]float64, bands+1),
		loBin:   make([]int, bands),
		hiBin:   make([]int, bands),
	}

	ratio := maxFreq / minFreq
	for i := 0; i <= bands; i++ {
		l.edges[i] = minFreq * math.Pow(ratio, float64(i)/float64(bands))
	}
	// Pin the outer edges exactly so the layout spans [minFreq, maxFreq]
	// regardless of floating-point drift in Pow.
	l.edges[0] = minFreq
	l.edges[bands] = maxFreq

	resolution := sampleRate / float64(fftSize)
	nyquistBin := fftSize / 2

	for i := 0; i < bands; i++ {
		lo, hi := l.edges[i], l.edges[i+1]

		// First bin at or above the band's floor; bin 0 (DC) is excluded.
		loBin := int(math.Ceil(lo / resolution))
		if loBin < 1 {
			loBin = 1
		}
		// One past the last bin below the band's ceiling.
		hiBin := int(math.Ceil(hi / resolution))
		if hiBin > nyquistBin+1 {
			hiBin = nyquistBin + 1
		}

		if hiBin <= loBin {
			// Zero or one bin in range: take the single nearest bin.
			center := math.Sqrt(lo * hi) // geometric mean of a log-spaced band
			nearest := int(math.Round(center / resolution))
			if nearest < 1 {
				nearest = 1
			}
			if nearest > nyquistBin {
				nearest = nyquistBin
			}
			loBin, hiBin = nearest, nearest+1
		}

		l.loBin[i] = loBin
		l.hiBin[i] = hiBin
	}

	return l, nil
}

// Bands returns the number of bands.
func (l *BandLayout) Bands() int { return l.bands }

// Edges returns the bands+1 edge frequencies, lowest first.
func (l *BandLayout) Edges() []float64 { return l.edges }

// BandRange returns band i's frequency span [low, high).
func (l *BandLayout) BandRange(i int) (low, high float64) {
	return l.edges[i], l.edges[i+1]
}

// BandFor returns the index of the band containing freq, or -1 when the
// frequency falls outside [minFreq, maxFreq].
func (l *BandLayout) BandFor(freq float64) int {
	if freq < l.minFreq || freq >= l.maxFreq {
		return -1
	}
	idx := int(math.Floor(float64(l.bands) * math.Log(freq/l.minFreq) / math.Log(l.maxFreq/l.minFreq)))
	if idx < 0 {
		idx = 0
	}
	if idx >= l.bands {
		idx = l.bands - 1
	}
	return idx
}

// BinInto aggregates per-bin magnitudes into per-band raw magnitudes using
// max rather than sum, preserving transient peaks inside wide bands.
// dst must be Bands() long. Allocation-free.
func (l *BandLayout) BinInto(dst, magnitudes []float64) {
	for i := 0; i < l.bands; i++ {
		peak := 0.0
		hi := l.hiBin[i]
		if hi > len(magnitudes) {
			hi = len(magnitudes)
		}
		for bin := l.loBin[i]; bin < hi; bin++ {
			if magnitudes[bin] > peak {
				peak = magnitudes[bin]
			}
		}
		dst[i] = peak
	}
}
