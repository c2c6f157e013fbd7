package analysis

import "fmt"

// MediaAsset describes a probed source video. Immutable once created.
type MediaAsset struct {
	Path            string  `json:"path"`
	DurationSeconds float64 `json:"duration_seconds"`
	Width           int     `json:"width"`
	Height          int     `json:"height"`
	FPS             float64 `json:"fps"`
	Codec           string  `json:"codec"`
	SizeBytes       int64   `json:"size_bytes"`
	HasAudio        bool    `json:"has_audio"`
}

// Resolution renders the frame size as WIDTHxHEIGHT.
func (m MediaAsset) Resolution() string {
	return fmt.Sprintf("%dx%d", m.Width, m.Height)
}

// SizeMB reports the file size in mebibytes.
func (m MediaAsset) SizeMB() float64 {
	return float64(m.SizeBytes) / (1024 * 1024)
}

// Segment is one timestamped transcript span.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Result bundles everything derived from a single video. Never mutated after
// Analyze returns it.
type Result struct {
	Asset      MediaAsset `json:"asset"`
	Frames     []string   `json:"frames"`
	Transcript string     `json:"transcript"`
	Segments   []Segment  `json:"segments"`
}
