package thumbnail

// Style names accepted by the renderer.
const (
	StyleBold    = "bold"
	StyleMinimal = "minimal"
	// StyleAI asks a vision model for caption and grading, degrading to bold.
	StyleAI = "ai"
)

// Output geometry for YouTube custom thumbnails.
const (
	Width  = 1280
	Height = 720
)

// Artifact describes a rendered thumbnail.
type Artifact struct {
	Path        string `json:"path"`
	SourceFrame string `json:"source_frame"`
	Style       string `json:"style"`
	// Fallback is set when the requested style failed and the deterministic
	// title card was written instead.
	Fallback bool `json:"fallback,omitempty"`
}

// SelectFrame picks the thumbnail source. An explicit frame always wins;
// otherwise the suggested index is clamped into [0, len(frames)-1]. Returns
// false when there is nothing to choose from.
func SelectFrame(frames []string, suggested int, explicit string) (string, bool) {
	if explicit != "" {
		return explicit, true
	}
	if len(frames) == 0 {
		return "", false
	}
	idx := suggested
	if idx < 0 {
		idx = 0
	}
	if idx > len(frames)-1 {
		idx = len(frames) - 1
	}
	return frames[idx], true
}
