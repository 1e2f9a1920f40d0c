// SPDX-License-Identifier: MIT
//
// Package utils holds signal generators and helpers shared by tests.
package utils

import "math"

// GenerateSineWave returns size mono samples of a pure sinusoid at the given
// frequency, at 90% of full scale.
func GenerateSineWave(size int, sampleRate, frequency float64) []float32 {
	buffer := make([]float32, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = float32(math.Sin(2*math.Pi*frequency*t) * 0.9)
	}
	return buffer
}

// GenerateComplexWave returns a 440Hz fundamental plus two harmonics, a
// reasonable stand-in for tonal program material.
func GenerateComplexWave(size int, sampleRate float64) []float32 {
	buffer := make([]float32, size)
	for i := range buffer {
		tm := float64(i) / sampleRate
		signal := math.Sin(2*math.Pi*440*tm)*0.5 +
			math.Sin(2*math.Pi*880*tm)*0.3 +
			math.Sin(2*math.Pi*1320*tm)*0.2
		buffer[i] = float32(signal * 0.9)
	}
	return buffer
}

// PeakIndex returns the index of the largest value in values[start..end].
func PeakIndex(values []float64, start, end int) int {
	if len(values) == 0 {
		return 0
	}
	if start < 0 {
		start = 0
	}
	if end >= len(values) {
		end = len(values) - 1
	}

	peak := start
	for i := start + 1; i <= end; i++ {
		if values[i] > values[peak] {
			peak = i
		}
	}
	return peak
}
