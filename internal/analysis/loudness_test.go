// SPDX-License-Identifier: MIT
package analysis

import "testing"

func TestLoudness_SilenceMapsToZero(t *testing.T) {
	s := NewLoudnessScaler(64, -60, 0, 1.5)
	raw := make([]float64, 64)
	dst := make([]float64, 64)

	s.ScaleInto(dst, raw)
	for i, v := range dst {
		if v != 0 {
			t.Errorf("band %d = %v for silent input, want 0", i, v)
		}
	}
}

func TestLoudness_FullScaleClampsToOne(t *testing.T) {
	s := NewLoudnessScaler(64, -60, 0, 1.5)
	raw := make([]float64, 64)
	for i := range raw {
		raw[i] = 1.0 // 0 dBFS
	}
	dst := make([]float64, 64)

	s.ScaleInto(dst, raw)
	for i, v := range dst {
		if v != 1 {
			t.Errorf("band %d = %v for full-scale input, want clamped 1", i, v)
		}
	}
}

func TestLoudness_OutputBounded(t *testing.T) {
	s := NewLoudnessScaler(64, -60, 0, 1.5)
	raw := make([]float64, 64)
	dst := make([]float64, 64)

	// Sweep magnitudes well past full scale; output must hold [0,1].
	for _, mag := range []float64{0, 1e-6, 0.001, 0.5, 1.0, 10.0} {
		for i := range raw {
			raw[i] = mag
		}
		s.ScaleInto(dst, raw)
		for i, v := range dst {
			if v < 0 || v > 1 {
				t.Errorf("mag %v band %d = %v outside [0,1]", mag, i, v)
			}
		}
	}
}

func TestLoudness_CompensationRisesWithBand(t *testing.T) {
	s := NewLoudnessScaler(64, -60, 0, 1.0)

	if s.compensation[0] != 1.0 {
		t.Errorf("band 0 compensation %v, want 1.0", s.compensation[0])
	}
	for i := 1; i < 64; i++ {
		if s.compensation[i] <= s.compensation[i-1] {
			t.Errorf("compensation not increasing at band %d: %v <= %v",
				i, s.compensation[i], s.compensation[i-1])
		}
	}
	// Curve tops out just under 4x at the last band.
	if s.compensation[63] <= 3.8 || s.compensation[63] >= 4.0 {
		t.Errorf("band 63 compensation %v, want just under 4", s.compensation[63])
	}
}

func TestLoudness_SensitivityScales(t *testing.T) {
	low := NewLoudnessScaler(4, -60, 0, 0.5)
	high := NewLoudnessScaler(4, -60, 0, 1.0)

	raw := []float64{0.01, 0.01, 0.01, 0.01} // -40 dBFS, inside the window
	dstLow := make([]float64, 4)
	dstHigh := make([]float64, 4)
	low.ScaleInto(dstLow, raw)
	high.ScaleInto(dstHigh, raw)

	for i := range raw {
		if dstHigh[i] >= 1 {
			continue // clamped, ratio no longer holds
		}
		if dstLow[i] >= dstHigh[i] {
			t.Errorf("band %d: sensitivity 0.5 gave %v, not below sensitivity 1.0's %v",
				i, dstLow[i], dstHigh[i])
		}
	}
}

func TestLoudness_ZeroAllocs(t *testing.T) {
	s := NewLoudnessScaler(64, -60, 0, 1.5)
	raw := make([]float64, 64)
	dst := make([]float64, 64)

	allocs := testing.AllocsPerRun(100, func() {
		s.ScaleInto(dst, raw)
	})
	if allocs != 0 {
		t.Errorf("ScaleInto allocated %v times per run, want 0", allocs)
	}
}
