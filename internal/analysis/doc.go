// Package analysis turns a video file into an immutable Result: probed media
// facts, evenly sampled still frames, and a timestamped transcript.
//
// ffprobe supplies duration, resolution, frame rate, and codec; ffmpeg
// extracts JPEG frames between 5% and 95% of the runtime plus a 16 kHz mono
// WAV; the whisper CLI transcribes that audio to JSON. A missing file maps to
// services.ErrNotFound, a non-positive duration to services.ErrValidation, and
// any tool failure to services.ErrExternalTool.
package analysis
