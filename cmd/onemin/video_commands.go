package main

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"onemin/internal/metadata"
	"onemin/internal/services"
)

// parseVideoID accepts a bare id or a youtube.com / youtu.be link.
func parseVideoID(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", services.Wrap(services.ErrValidation, "video", "id", "video id is empty", nil)
	}
	if !strings.Contains(value, "/") {
		return value, nil
	}
	parsed, err := url.Parse(value)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "video", "id", "parse video url", err)
	}
	host := strings.TrimPrefix(strings.ToLower(parsed.Host), "www.")
	switch {
	case host == "youtu.be":
		if id := strings.Trim(parsed.Path, "/"); id != "" {
			return id, nil
		}
	case strings.HasSuffix(host, "youtube.com"):
		if id := parsed.Query().Get("v"); id != "" {
			return id, nil
		}
		if rest, ok := strings.CutPrefix(parsed.Path, "/shorts/"); ok && rest != "" {
			return strings.Trim(rest, "/"), nil
		}
	}
	return "", services.Wrap(services.ErrValidation, "video", "id", fmt.Sprintf("cannot find a video id in %q", value), nil)
}

func newVideoCommand(ctx *commandContext) *cobra.Command {
	videoCmd := &cobra.Command{
		Use:   "video",
		Short: "Maintain videos that are already on YouTube",
	}
	videoCmd.AddCommand(newVideoUpdateCommand(ctx))
	videoCmd.AddCommand(newVideoPrivacyCommand(ctx))
	videoCmd.AddCommand(newVideoThumbnailCommand(ctx))
	return videoCmd
}

func newVideoUpdateCommand(ctx *commandContext) *cobra.Command {
	var meta metadata.Metadata

	cmd := &cobra.Command{
		Use:   "update <video-id>",
		Short: "Replace the title, description, tags and category of a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseVideoID(args[0])
			if err != nil {
				return err
			}
			// The snippet is replaced wholesale, so a title is always required.
			if strings.TrimSpace(meta.Title) == "" {
				return services.Wrap(services.ErrValidation, "video", "update", "--title is required", nil)
			}
			cfg := ctx.configValue()
			if meta.CategoryID == "" {
				meta.CategoryID = cfg.YouTube.CategoryID
			}
			executor := newExecutor(cfg, ctx.log(), nil)
			if err := executor.UpdateMetadata(cmd.Context(), id, meta); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated metadata for %s\n", id)
			return nil
		},
	}

	cmd.Flags().StringVarP(&meta.Title, "title", "t", "", "Video title")
	cmd.Flags().StringVarP(&meta.Description, "description", "d", "", "Video description")
	cmd.Flags().StringSliceVar(&meta.Tags, "tags", nil, "Video tags (comma separated)")
	cmd.Flags().StringVar(&meta.CategoryID, "category", "", "YouTube category id (defaults to youtube.category_id)")
	return cmd
}

func newVideoPrivacyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "privacy <video-id> <public|unlisted|private>",
		Short: "Change the privacy status of a video",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseVideoID(args[0])
			if err != nil {
				return err
			}
			privacy := strings.ToLower(strings.TrimSpace(args[1]))
			if privacy == "" {
				return services.Wrap(services.ErrValidation, "video", "privacy", "privacy is empty", nil)
			}
			executor := newExecutor(ctx.configValue(), ctx.log(), nil)
			if err := executor.SetPrivacy(cmd.Context(), id, privacy); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s to %s\n", id, privacy)
			return nil
		},
	}
}

func newVideoThumbnailCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "thumbnail <video-id> <image>",
		Short: "Replace the custom thumbnail of a video",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseVideoID(args[0])
			if err != nil {
				return err
			}
			path, err := filepath.Abs(args[1])
			if err != nil {
				return fmt.Errorf("resolve thumbnail path: %w", err)
			}
			executor := newExecutor(ctx.configValue(), ctx.log(), nil)
			if err := executor.SetThumbnail(cmd.Context(), id, path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Thumbnail for %s set from %s\n", id, path)
			return nil
		},
	}
}
