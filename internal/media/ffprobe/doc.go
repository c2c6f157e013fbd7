// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Inspect runs the binary and Parse decodes its output; helper methods on
// Result expose the primary video stream, duration, size, and frame rate the
// analysis stage needs to build a media asset.
package ffprobe
