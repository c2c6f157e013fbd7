package analysis

// Sampling skips the first and last 5% of a video to avoid intros and outros.
const (
	sampleStartRatio = 0.05
	sampleEndRatio   = 0.95
)

// FrameTimestamps returns count timestamps (seconds) evenly spaced from 5% to
// 95% of duration inclusive. A single frame is taken at the 5% mark. Returns
// nil when duration or count is not positive.
func FrameTimestamps(duration float64, count int) []float64 {
	if duration <= 0 || count <= 0 {
		return nil
	}
	start := duration * sampleStartRatio
	end := duration * sampleEndRatio
	var interval float64
	if count > 1 {
		interval = (end - start) / float64(count-1)
	}
	stamps := make([]float64, count)
	for i := range stamps {
		stamps[i] = start + float64(i)*interval
	}
	return stamps
}
