package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"onemin/internal/analysis"
	"onemin/internal/metadata"
	"onemin/internal/textutil"
)

type analyzeOutput struct {
	WorkDir  string             `json:"work_dir"`
	Analysis *analysis.Result   `json:"analysis"`
	Metadata *metadata.Metadata `json:"metadata,omitempty"`
}

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var withMetadata bool

	cmd := &cobra.Command{
		Use:   "analyze <video>",
		Short: "Probe a video, sample frames and transcribe audio without uploading",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			videoPath, err := resolveVideoArg(args[0])
			if err != nil {
				return err
			}
			cfg := ctx.configValue()
			logger := ctx.log()

			workDir := filepath.Join(cfg.Paths.WorkDir, textutil.WorkDirName(time.Now().Format("20060102-150405"), videoPath))
			result, err := newAnalyzer(cfg, logger).Analyze(cmd.Context(), videoPath, workDir)
			if err != nil {
				return err
			}
			out := analyzeOutput{WorkDir: workDir, Analysis: result}
			if withMetadata {
				generator, err := metadata.NewGenerator(cfg.LLM, cfg.YouTube.CategoryID, logger)
				if err != nil {
					return err
				}
				if out.Metadata, err = generator.Generate(cmd.Context(), result); err != nil {
					return err
				}
			}
			if jsonOutput {
				return writeJSON(cmd, out)
			}

			w := cmd.OutOrStdout()
			asset := result.Asset
			fmt.Fprintf(w, "File:        %s\n", asset.Path)
			fmt.Fprintf(w, "Duration:    %.1fs\n", asset.DurationSeconds)
			fmt.Fprintf(w, "Resolution:  %s @ %.2f fps\n", asset.Resolution(), asset.FPS)
			fmt.Fprintf(w, "Codec:       %s\n", asset.Codec)
			fmt.Fprintf(w, "Size:        %.1f MB\n", asset.SizeMB())
			fmt.Fprintf(w, "Frames:      %d in %s\n", len(result.Frames), workDir)
			if transcript := strings.TrimSpace(result.Transcript); transcript != "" {
				fmt.Fprintf(w, "Transcript (%d segments):\n%s\n", len(result.Segments), indent(textutil.Truncate(transcript, 500), "  "))
			} else {
				fmt.Fprintln(w, "Transcript:  none")
			}
			if out.Metadata != nil {
				fmt.Fprintf(w, "Title:       %s\n", out.Metadata.Title)
				fmt.Fprintf(w, "Tags:        %s\n", strings.Join(out.Metadata.Tags, ", "))
				fmt.Fprintf(w, "Thumbnail:   frame %d\n", out.Metadata.SuggestedThumbnailIndex)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the analysis as JSON")
	cmd.Flags().BoolVar(&withMetadata, "metadata", false, "Also generate metadata with the configured LLM")
	return cmd
}
