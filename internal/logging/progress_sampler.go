package logging

// ProgressSampler throttles transfer progress logging to one record per
// completed step, so a long upload logs at 0%, 10%, 20% and so on.
type ProgressSampler struct {
	step float64
	next float64
}

// NewProgressSampler returns a sampler with the given step in percent. Steps
// of zero or less default to 10.
func NewProgressSampler(step float64) *ProgressSampler {
	if step <= 0 {
		step = 10
	}
	return &ProgressSampler{step: step}
}

// ShouldLog reports whether fraction (0..1, clamped) reached the next step.
// A nil sampler logs everything.
func (s *ProgressSampler) ShouldLog(fraction float64) bool {
	if s == nil {
		return true
	}
	percent := min(max(fraction*100, 0), 100)
	if percent < s.next {
		return false
	}
	for s.next <= percent {
		s.next += s.step
	}
	return true
}

// Reset starts over for a new transfer.
func (s *ProgressSampler) Reset() {
	if s != nil {
		s.next = 0
	}
}
