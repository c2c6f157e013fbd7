package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"onemin/internal/pipeline"
	"onemin/internal/services"
)

func newUploadCommand(ctx *commandContext) *cobra.Command {
	var opts pipeline.Options
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "upload <video>",
		Short: "Analyze a video, generate metadata and upload or queue it for approval",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			videoPath, err := resolveVideoArg(args[0])
			if err != nil {
				return err
			}
			if opts.ThumbnailFrame != "" {
				if opts.ThumbnailFrame, err = filepath.Abs(opts.ThumbnailFrame); err != nil {
					return fmt.Errorf("resolve thumbnail path: %w", err)
				}
			}

			var progress io.Writer
			if !jsonOutput {
				progress = cmd.ErrOrStderr()
			}
			stack, err := ctx.newController(progress)
			if err != nil {
				return err
			}
			defer stack.Close()

			run, runErr := stack.controller.Process(cmd.Context(), videoPath, opts)
			if jsonOutput {
				if err := writeJSON(cmd, run); err != nil {
					return err
				}
				return runErr
			}
			if runErr != nil {
				return runErr
			}
			printRun(cmd.OutOrStdout(), run)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.Title, "title", "t", "", "Override the generated title")
	cmd.Flags().StringVarP(&opts.Description, "description", "d", "", "Override the generated description")
	cmd.Flags().StringSliceVar(&opts.Tags, "tags", nil, "Override the generated tags (comma separated)")
	cmd.Flags().StringVar(&opts.ThumbnailFrame, "thumbnail", "", "Use this image as the thumbnail base instead of a sampled frame")
	cmd.Flags().StringVarP(&opts.Privacy, "privacy", "p", "", "Privacy status (public, unlisted, private)")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Generate metadata and thumbnail without uploading")
	cmd.Flags().BoolVar(&opts.SkipApproval, "skip-approval", false, "Upload immediately instead of creating an approval request")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the run as JSON")
	return cmd
}

// resolveVideoArg returns the absolute path of an existing regular file.
func resolveVideoArg(arg string) (string, error) {
	path, err := filepath.Abs(strings.TrimSpace(arg))
	if err != nil {
		return "", fmt.Errorf("resolve video path: %w", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", services.Wrap(services.ErrNotFound, "cli", "video", "video not found: "+path, nil)
		}
		return "", services.Wrap(services.ErrTransient, "cli", "video", "stat video", err)
	}
	if info.IsDir() {
		return "", services.Wrap(services.ErrValidation, "cli", "video", path+" is a directory", nil)
	}
	return path, nil
}

func printRun(out io.Writer, run *pipeline.Run) {
	if run == nil {
		return
	}
	if run.Metadata != nil {
		fmt.Fprintf(out, "Title:       %s\n", run.Metadata.Title)
		fmt.Fprintf(out, "Tags:        %s\n", strings.Join(run.Metadata.Tags, ", "))
		fmt.Fprintf(out, "Category:    %s\n", run.Metadata.CategoryID)
		if desc := run.Metadata.Description; desc != "" {
			fmt.Fprintf(out, "Description:\n%s\n", indent(desc, "  "))
		}
	}
	if run.Thumbnail != nil {
		fmt.Fprintf(out, "Thumbnail:   %s\n", run.Thumbnail.Path)
	}
	fmt.Fprintf(out, "Work dir:    %s\n", run.WorkDir)

	switch run.Status {
	case pipeline.StatusDryRun:
		fmt.Fprintln(out, "Dry run complete; nothing was uploaded")
	case pipeline.StatusPending:
		fmt.Fprintf(out, "Approval request %s created\n", run.RequestID)
		if !run.Notified {
			fmt.Fprintln(out, "No notification was delivered")
		}
		fmt.Fprintf(out, "Approve with: onemin approve %s\n", run.RequestID)
	case pipeline.StatusUploaded:
		if run.Upload != nil {
			fmt.Fprintf(out, "Uploaded (%s): %s\n", run.Upload.Privacy, run.Upload.URL)
			if run.Upload.ThumbnailErr != "" {
				fmt.Fprintf(out, "Thumbnail was not set: %s\n", run.Upload.ThumbnailErr)
			}
		}
	}
}

func indent(text, prefix string) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
