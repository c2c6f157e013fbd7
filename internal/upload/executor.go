package upload

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"google.golang.org/api/youtube/v3"

	"onemin/internal/config"
	"onemin/internal/logging"
	"onemin/internal/metadata"
	"onemin/internal/services"
)

const watchURLPrefix = "https://youtube.com/watch?v="

// Result describes a finished upload.
type Result struct {
	VideoID string `json:"video_id"`
	URL     string `json:"url"`
	Title   string `json:"title"`
	Privacy string `json:"privacy"`
	// ThumbnailErr is set when the video uploaded but attaching the
	// thumbnail failed.
	ThumbnailErr string `json:"thumbnail_error,omitempty"`
}

// WatchURL returns the public page for videoID.
func WatchURL(videoID string) string {
	return watchURLPrefix + videoID
}

// Options configures the executor.
type Options struct {
	ClientSecretsFile string
	TokenFile         string
	DefaultPrivacy    string
	ChunkSize         int64
	UploadURL         string
	APIBaseURL        string
}

// OptionsFromConfig maps the [youtube] section.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ClientSecretsFile: cfg.YouTube.ClientSecretsFile,
		TokenFile:         cfg.YouTube.TokenFile,
		DefaultPrivacy:    cfg.YouTube.DefaultPrivacy,
		ChunkSize:         cfg.ChunkSizeBytes(),
		UploadURL:         cfg.YouTube.UploadURL,
		APIBaseURL:        cfg.YouTube.APIBaseURL,
	}
}

// Executor uploads videos and performs maintenance calls against the
// YouTube Data API.
type Executor struct {
	opts       Options
	logger     *slog.Logger
	httpClient *http.Client
	progress   func(Progress)
}

// Option customizes an Executor.
type Option func(*Executor)

// WithHTTPClient supplies an already-authorized client, bypassing the
// credential files.
func WithHTTPClient(client *http.Client) Option {
	return func(e *Executor) {
		e.httpClient = client
	}
}

// WithProgress registers a callback invoked after every acknowledged chunk.
func WithProgress(fn func(Progress)) Option {
	return func(e *Executor) {
		e.progress = fn
	}
}

// NewExecutor constructs an Executor.
func NewExecutor(opts Options, logger *slog.Logger, options ...Option) *Executor {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 10 * 1024 * 1024
	}
	if opts.DefaultPrivacy == "" {
		opts.DefaultPrivacy = config.PrivacyUnlisted
	}
	e := &Executor{opts: opts, logger: logging.NewComponentLogger(logger, "upload")}
	for _, opt := range options {
		opt(e)
	}
	return e
}

func (e *Executor) client(ctx context.Context) (*http.Client, error) {
	if e.httpClient != nil {
		return e.httpClient, nil
	}
	return authorizedClient(ctx, e.opts.ClientSecretsFile, e.opts.TokenFile)
}

// ResolvePrivacy returns privacy, or the configured default when empty.
func (e *Executor) ResolvePrivacy(privacy string) (string, error) {
	privacy = strings.ToLower(strings.TrimSpace(privacy))
	if privacy == "" {
		privacy = e.opts.DefaultPrivacy
	}
	if !config.ValidPrivacy(privacy) {
		return "", services.Wrap(services.ErrValidation, "upload", "privacy",
			fmt.Sprintf("Invalid privacy %q (want private, unlisted or public)", privacy), nil)
	}
	return privacy, nil
}

// Upload transfers videoPath with a resumable session, then attaches
// thumbnailPath when it exists. Transport failures are not retried.
func (e *Executor) Upload(ctx context.Context, videoPath string, meta metadata.Metadata, thumbnailPath, privacy string) (*Result, error) {
	ctx = services.WithStage(ctx, "upload")
	logger := logging.WithContext(ctx, e.logger)

	privacy, err := e.ResolvePrivacy(privacy)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(videoPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "upload", "video", "Video not found: "+videoPath, nil)
		}
		return nil, services.Wrap(services.ErrTransient, "upload", "video", "Stat video", err)
	}
	if info.Size() == 0 {
		return nil, services.Wrap(services.ErrValidation, "upload", "video", "Video is empty: "+videoPath, nil)
	}
	client, err := e.client(ctx)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(videoPath)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "upload", "video", "Open video", err)
	}
	defer file.Close()

	resource := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       meta.Title,
			Description: meta.Description,
			Tags:        meta.Tags,
			CategoryId:  meta.CategoryID,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus:           privacy,
			SelfDeclaredMadeForKids: false,
			ForceSendFields:         []string{"SelfDeclaredMadeForKids"},
		},
	}

	logger.Info("upload started",
		logging.String("title", meta.Title),
		logging.String("privacy", privacy),
		logging.Int64("size_bytes", info.Size()),
		logging.Int64("chunk_bytes", e.opts.ChunkSize),
	)
	uri, err := startSession(ctx, client, e.opts.UploadURL, resource, info.Size())
	if err != nil {
		return nil, e.transportError(ctx, "session", err)
	}

	video, err := e.transfer(ctx, &session{
		client:    client,
		uri:       uri,
		file:      file,
		size:      info.Size(),
		chunkSize: e.opts.ChunkSize,
	}, logger)
	if err != nil {
		return nil, e.transportError(ctx, "chunk", err)
	}

	result := &Result{
		VideoID: video.Id,
		URL:     WatchURL(video.Id),
		Title:   meta.Title,
		Privacy: privacy,
	}
	logger.Info("upload completed",
		logging.String("video_id", result.VideoID),
		logging.String("url", result.URL),
	)

	if thumbnailPath != "" {
		if _, statErr := os.Stat(thumbnailPath); statErr == nil {
			if err := e.setThumbnail(ctx, client, video.Id, thumbnailPath); err != nil {
				result.ThumbnailErr = err.Error()
				logging.WarnWithContext(logger, "thumbnail attach failed", "thumbnail_attach_failed",
					logging.String("video_id", video.Id),
					logging.String("thumbnail", thumbnailPath),
					logging.Error(err),
					logging.String(logging.FieldImpact, "video is live with YouTube's auto-generated thumbnail"),
					logging.String(logging.FieldErrorHint, "retry with 'onemin video thumbnail "+video.Id+" <path>' (custom thumbnails need a verified channel)"),
				)
			}
		} else {
			logger.Debug("thumbnail missing; skipping attach", logging.String("thumbnail", thumbnailPath))
		}
	}
	return result, nil
}

// transfer drives the session until the terminal response.
func (e *Executor) transfer(ctx context.Context, s *session, logger *slog.Logger) (*youtube.Video, error) {
	sampler := logging.NewProgressSampler(10)
	var offset, reported int64
	stalled := 0
	for {
		next, video, err := s.nextChunk(ctx, offset)
		if err != nil {
			return nil, err
		}
		if video != nil {
			e.report(Progress{Sent: s.size, Total: s.size})
			return video, nil
		}
		if next <= offset {
			stalled++
			if stalled >= 3 {
				return nil, fmt.Errorf("server acknowledged no bytes after %d attempts at offset %d", stalled, offset)
			}
		} else {
			stalled = 0
		}
		if next > s.size {
			next = s.size
		}
		// Never report going backwards even if the server rewinds.
		if next > reported {
			reported = next
			progress := Progress{Sent: next, Total: s.size}
			e.report(progress)
			if sampler.ShouldLog(progress.Fraction()) {
				logger.Info("upload progress",
					logging.Float64("percent", progress.Fraction()*100),
					logging.Int64("sent_bytes", next),
				)
			}
		}
		offset = next
	}
}

func (e *Executor) report(p Progress) {
	if e.progress != nil {
		e.progress(p)
	}
}

func (e *Executor) transportError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return services.Wrap(services.ErrExternalTool, "upload", "youtube "+op, "Upload failed", err)
}
