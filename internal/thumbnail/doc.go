// Package thumbnail renders 1280x720 JPEG thumbnails from extracted frames.
//
// The bold style boosts saturation and contrast, darkens the corners, and
// overlays the first words of the title in outlined yellow capitals. The
// minimal style only resizes and lifts saturation slightly. Rendering never
// fails the pipeline: a frame that cannot be decoded produces a plain title
// card and an Artifact with Fallback set.
package thumbnail
