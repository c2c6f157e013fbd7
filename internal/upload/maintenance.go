package upload

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"onemin/internal/logging"
	"onemin/internal/metadata"
	"onemin/internal/services"
)

func (e *Executor) service(ctx context.Context, client *http.Client) (*youtube.Service, error) {
	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if base := strings.TrimSpace(e.opts.APIBaseURL); base != "" {
		opts = append(opts, option.WithEndpoint(strings.TrimRight(base, "/")+"/"))
	}
	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "upload", "youtube", "Create API client", err)
	}
	return svc, nil
}

func (e *Executor) authorizedService(ctx context.Context) (*youtube.Service, *http.Client, error) {
	client, err := e.client(ctx)
	if err != nil {
		return nil, nil, err
	}
	svc, err := e.service(ctx, client)
	if err != nil {
		return nil, nil, err
	}
	return svc, client, nil
}

// UpdateMetadata replaces the title, description, tags, and category of an
// existing video.
func (e *Executor) UpdateMetadata(ctx context.Context, videoID string, meta metadata.Metadata) error {
	svc, _, err := e.authorizedService(ctx)
	if err != nil {
		return err
	}
	video := &youtube.Video{
		Id: videoID,
		Snippet: &youtube.VideoSnippet{
			Title:       meta.Title,
			Description: meta.Description,
			Tags:        meta.Tags,
			CategoryId:  meta.CategoryID,
		},
	}
	if _, err := svc.Videos.Update([]string{"snippet"}, video).Context(ctx).Do(); err != nil {
		return apiError("videos.update", err)
	}
	logging.WithContext(ctx, e.logger).Info("video metadata updated",
		logging.String("video_id", videoID),
		logging.String("title", meta.Title),
	)
	return nil
}

// SetPrivacy changes the privacy status of an existing video.
func (e *Executor) SetPrivacy(ctx context.Context, videoID, privacy string) error {
	privacy, err := e.ResolvePrivacy(privacy)
	if err != nil {
		return err
	}
	svc, _, err := e.authorizedService(ctx)
	if err != nil {
		return err
	}
	video := &youtube.Video{
		Id:     videoID,
		Status: &youtube.VideoStatus{PrivacyStatus: privacy},
	}
	if _, err := svc.Videos.Update([]string{"status"}, video).Context(ctx).Do(); err != nil {
		return apiError("videos.update", err)
	}
	logging.WithContext(ctx, e.logger).Info("video privacy updated",
		logging.String("video_id", videoID),
		logging.String("privacy", privacy),
	)
	return nil
}

// SetThumbnail replaces the custom thumbnail of an existing video.
func (e *Executor) SetThumbnail(ctx context.Context, videoID, path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return services.Wrap(services.ErrNotFound, "upload", "thumbnail", "Thumbnail not found: "+path, nil)
		}
		return services.Wrap(services.ErrTransient, "upload", "thumbnail", "Stat thumbnail", err)
	}
	client, err := e.client(ctx)
	if err != nil {
		return err
	}
	return e.setThumbnail(ctx, client, videoID, path)
}

func (e *Executor) setThumbnail(ctx context.Context, client *http.Client, videoID, path string) error {
	svc, err := e.service(ctx, client)
	if err != nil {
		return err
	}
	file, err := os.Open(path)
	if err != nil {
		return services.Wrap(services.ErrTransient, "upload", "thumbnail", "Open thumbnail", err)
	}
	defer file.Close()
	if _, err := svc.Thumbnails.Set(videoID).Media(file, googleapi.ContentType("image/jpeg")).Context(ctx).Do(); err != nil {
		return apiError("thumbnails.set", err)
	}
	return nil
}

func apiError(call string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
		return services.Wrap(services.ErrNotFound, "upload", "youtube "+call, "Video not found", err)
	}
	return services.Wrap(services.ErrExternalTool, "upload", "youtube "+call, fmt.Sprintf("%s failed", call), err)
}
