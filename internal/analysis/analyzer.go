package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"onemin/internal/logging"
	"onemin/internal/media/ffprobe"
	"onemin/internal/services"
)

var inspectMedia = ffprobe.Inspect

type commandRunner func(ctx context.Context, name string, args ...string) error

// Options configures tool locations and sampling.
type Options struct {
	FFmpegBinary  string
	FFprobeBinary string
	WhisperBinary string
	WhisperModel  string
	MaxFrames     int
	Transcribe    bool
}

// Analyzer probes a video, extracts representative frames, and transcribes
// its audio track.
type Analyzer struct {
	opts   Options
	logger *slog.Logger
	run    commandRunner
}

// Option customizes an Analyzer.
type Option func(*Analyzer)

// WithCommandRunner injects a custom command runner (primarily for tests).
func WithCommandRunner(r commandRunner) Option {
	return func(a *Analyzer) {
		if r != nil {
			a.run = r
		}
	}
}

// New constructs an Analyzer.
func New(opts Options, logger *slog.Logger, options ...Option) *Analyzer {
	if opts.MaxFrames <= 0 {
		opts.MaxFrames = 10
	}
	if strings.TrimSpace(opts.FFmpegBinary) == "" {
		opts.FFmpegBinary = "ffmpeg"
	}
	if strings.TrimSpace(opts.WhisperBinary) == "" {
		opts.WhisperBinary = "whisper"
	}
	if strings.TrimSpace(opts.WhisperModel) == "" {
		opts.WhisperModel = "base"
	}
	a := &Analyzer{
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "analysis"),
		run:    defaultCommandRunner,
	}
	for _, option := range options {
		option(a)
	}
	return a
}

// Probe reads container and stream metadata for path.
func (a *Analyzer) Probe(ctx context.Context, path string) (MediaAsset, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return MediaAsset{}, services.Wrap(services.ErrNotFound, "analysis", "probe", "Video not found: "+path, nil)
		}
		return MediaAsset{}, services.Wrap(services.ErrTransient, "analysis", "probe", "Stat video", err)
	}
	if info.IsDir() {
		return MediaAsset{}, services.Wrap(services.ErrValidation, "analysis", "probe", "Path is a directory: "+path, nil)
	}
	probe, err := inspectMedia(ctx, a.opts.FFprobeBinary, path)
	if err != nil {
		return MediaAsset{}, services.Wrap(services.ErrExternalTool, "analysis", "ffprobe", "Failed to inspect video", err)
	}
	video := probe.PrimaryVideo()
	if video == nil {
		return MediaAsset{}, services.Wrap(services.ErrValidation, "analysis", "probe", "No video stream found in "+path, nil)
	}
	size := probe.SizeBytes()
	if size <= 0 {
		size = info.Size()
	}
	return MediaAsset{
		Path:            path,
		DurationSeconds: probe.DurationSeconds(),
		Width:           video.Width,
		Height:          video.Height,
		FPS:             video.FrameRate(),
		Codec:           video.CodecName,
		SizeBytes:       size,
		HasAudio:        probe.HasAudio(),
	}, nil
}

// Analyze runs the full analysis for videoPath, writing frames and audio
// under workDir. Partial artifacts stay in workDir when a step fails.
func (a *Analyzer) Analyze(ctx context.Context, videoPath, workDir string) (*Result, error) {
	ctx = services.WithStage(ctx, "analysis")
	logger := logging.WithContext(ctx, a.logger)

	asset, err := a.Probe(ctx, videoPath)
	if err != nil {
		return nil, err
	}
	if asset.DurationSeconds <= 0 {
		return nil, services.Wrap(services.ErrValidation, "analysis", "probe",
			fmt.Sprintf("Invalid video duration: %g", asset.DurationSeconds), nil)
	}
	logger.Info("video probed",
		logging.Float64("duration_seconds", asset.DurationSeconds),
		logging.String("resolution", asset.Resolution()),
		logging.String("codec", asset.Codec),
	)

	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrTransient, "analysis", "work dir", "Create work directory", err)
	}

	frames, err := a.ExtractFrames(ctx, videoPath, asset.DurationSeconds, filepath.Join(workDir, "frames"))
	if err != nil {
		return nil, err
	}
	logger.Info("frames extracted", logging.Int("frames", len(frames)))

	result := &Result{Asset: asset, Frames: frames}
	if !a.opts.Transcribe {
		logger.Debug("transcription disabled")
		return result, nil
	}
	if !asset.HasAudio {
		logger.Info("no audio stream; skipping transcription",
			logging.String(logging.FieldEventType, "transcription_skipped"),
		)
		return result, nil
	}

	audioPath := filepath.Join(workDir, "audio.wav")
	if err := a.ExtractAudio(ctx, videoPath, audioPath); err != nil {
		return nil, err
	}
	text, segments, err := a.Transcribe(ctx, audioPath, workDir)
	if err != nil {
		return nil, err
	}
	result.Transcript = text
	result.Segments = segments
	logger.Info("audio transcribed",
		logging.Int("segments", len(segments)),
		logging.Int("characters", len(text)),
	)
	return result, nil
}

// ExtractFrames writes one high-quality JPEG per sampled timestamp into dir,
// named frame_000.jpg, frame_001.jpg, and so on.
func (a *Analyzer) ExtractFrames(ctx context.Context, videoPath string, duration float64, dir string) ([]string, error) {
	stamps := FrameTimestamps(duration, a.opts.MaxFrames)
	if len(stamps) == 0 {
		return nil, services.Wrap(services.ErrValidation, "analysis", "frames",
			fmt.Sprintf("Invalid video duration: %g", duration), nil)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrTransient, "analysis", "frames", "Create frame directory", err)
	}
	frames := make([]string, 0, len(stamps))
	for i, ts := range stamps {
		out := filepath.Join(dir, fmt.Sprintf("frame_%03d.jpg", i))
		args := []string{
			"-y", "-hide_banner", "-loglevel", "error",
			"-ss", strconv.FormatFloat(ts, 'f', 3, 64),
			"-i", videoPath,
			"-frames:v", "1",
			"-q:v", "2",
			out,
		}
		if err := a.run(ctx, a.opts.FFmpegBinary, args...); err != nil {
			return nil, services.Wrap(services.ErrExternalTool, "analysis", "ffmpeg",
				fmt.Sprintf("Extract frame %d at %.2fs", i, ts), err)
		}
		frames = append(frames, out)
	}
	return frames, nil
}

// ExtractAudio writes a 16 kHz mono PCM WAV suitable for speech recognition.
func (a *Analyzer) ExtractAudio(ctx context.Context, videoPath, out string) error {
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", videoPath,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", "16000",
		"-ac", "1",
		out,
	}
	if err := a.run(ctx, a.opts.FFmpegBinary, args...); err != nil {
		return services.Wrap(services.ErrExternalTool, "analysis", "ffmpeg", "Extract audio", err)
	}
	return nil
}

type whisperOutput struct {
	Text     string `json:"text"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// Transcribe runs the whisper CLI against audioPath and parses the JSON it
// writes into outDir.
func (a *Analyzer) Transcribe(ctx context.Context, audioPath, outDir string) (string, []Segment, error) {
	args := []string{
		audioPath,
		"--model", a.opts.WhisperModel,
		"--output_format", "json",
		"--output_dir", outDir,
		"--verbose", "False",
	}
	if err := a.run(ctx, a.opts.WhisperBinary, args...); err != nil {
		return "", nil, services.Wrap(services.ErrExternalTool, "analysis", "whisper", "Transcribe audio", err)
	}
	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	jsonPath := filepath.Join(outDir, base+".json")
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return "", nil, services.Wrap(services.ErrExternalTool, "analysis", "whisper", "Read transcript output", err)
	}
	var parsed whisperOutput
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", nil, services.Wrap(services.ErrExternalTool, "analysis", "whisper", "Parse transcript output", err)
	}
	segments := make([]Segment, 0, len(parsed.Segments))
	for _, seg := range parsed.Segments {
		segments = append(segments, Segment{
			Start: seg.Start,
			End:   seg.End,
			Text:  strings.TrimSpace(seg.Text),
		})
	}
	return strings.TrimSpace(parsed.Text), segments, nil
}

func defaultCommandRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stderr strings.Builder
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if len(detail) > 400 {
			detail = detail[len(detail)-400:]
		}
		if detail != "" {
			return fmt.Errorf("%s: %w: %s", filepath.Base(name), err, detail)
		}
		return fmt.Errorf("%s: %w", filepath.Base(name), err)
	}
	return nil
}
