// SPDX-License-Identifier: MIT
package analysis

// TemporalSmoother applies asymmetric attack/decay smoothing per band
// across frames. Rising values move toward the target by attack per tick,
// falling values by decay; with both factors in (0,1] the current value
// approaches the target monotonically and never overshoots.
//
// The smoothed state is the only value that persists across frames. It is
// reset to zero on stream restart and on silence timeout.
type TemporalSmoother struct {
	attack  float64
	decay   float64
	current []float64
}

// NewTemporalSmoother creates a smoother with all bands at zero.
func NewTemporalSmoother(bands int, attack, decay float64) *TemporalSmoother {
	return &TemporalSmoother{
		attack:  attack,
		decay:   decay,
		current: make([]float64, bands),
	}
}

// SmoothInto advances each band toward its target and writes the result to
// dst. dst and target must match the band count. Allocation-free.
func (s *TemporalSmoother) SmoothInto(dst, target []float64) {
	for i, t := range target {
		cur := s.current[i]
		if t > cur {
			cur += (t - cur) * s.attack
		} else {
			cur += (t - cur) * s.decay
		}
		s.current[i] = cur
		dst[i] = cur
	}
}

// Reset zeroes the smoothed state.
func (s *TemporalSmoother) Reset() {
	for i := range s.current {
		s.current[i] = 0
	}
}
