// SPDX-License-Identifier: MIT
package analysis

import "math"

// epsilon keeps the dB conversion finite on silence.
const epsilon = 1e-10

// LoudnessScaler converts raw band magnitudes to perceptual [0,1] loudness:
// decibel conversion, normalization against a fixed floor/ceiling window,
// a per-band frequency-compensation curve, and a global sensitivity gain.
type LoudnessScaler struct {
	floorDB     float64
	rangeDB     float64
	sensitivity float64

	// Fixed multiplicative boost per band. Perceived loudness and typical
	// program spectra both roll off toward the extremes, so the curve
	// rises from 1x at band 0 to 4x at the top band.
	compensation []float64
}

// NewLoudnessScaler precomputes the compensation curve for the given band
// count and normalization window.
func NewLoudnessScaler(bands int, floorDB, ceilingDB, sensitivity float64) *LoudnessScaler {
	comp := make([]float64, bands)
	for i := range comp {
		comp[i] = 1.0 + math.Pow(float64(i)/float64(bands), 1.5)*3.0
	}
	return &LoudnessScaler{
		floorDB:      floorDB,
		rangeDB:      ceilingDB - floorDB,
		sensitivity:  sensitivity,
		compensation: comp,
	}
}

// ScaleInto converts raw magnitudes into clamped [0,1] loudness values.
// dst and raw must have the same length as the compensation table.
// Allocation-free.
func (s *LoudnessScaler) ScaleInto(dst, raw []float64) {
	for i, mag := range raw {
		db := 20.0 * math.Log10(mag+epsilon)

		norm := (db - s.floorDB) / s.rangeDB
		if norm < 0 {
			norm = 0
		} else if norm > 1 {
			norm = 1
		}

		v := norm * s.sensitivity * s.compensation[i]
		if v > 1 {
			v = 1
		}
		dst[i] = v
	}
}
