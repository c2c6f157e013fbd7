package main

import (
	"fmt"
	"io"
	"log/slog"

	"onemin/internal/analysis"
	"onemin/internal/config"
	"onemin/internal/ledger"
	"onemin/internal/metadata"
	"onemin/internal/notifications"
	"onemin/internal/pipeline"
	"onemin/internal/services/llm"
	"onemin/internal/thumbnail"
	"onemin/internal/upload"
)

func newAnalyzer(cfg *config.Config, logger *slog.Logger) *analysis.Analyzer {
	return analysis.New(analysis.Options{
		FFmpegBinary:  cfg.Analysis.FFmpegBinary,
		FFprobeBinary: cfg.Analysis.FFprobeBinary,
		WhisperBinary: cfg.Analysis.WhisperBinary,
		WhisperModel:  cfg.Analysis.WhisperModel,
		MaxFrames:     cfg.Analysis.MaxFrames,
		Transcribe:    cfg.Analysis.Transcribe,
	}, logger)
}

func newRenderer(cfg *config.Config, logger *slog.Logger) *thumbnail.Renderer {
	opts := thumbnail.Options{
		Style:    cfg.Thumbnail.Style,
		FontPath: cfg.Thumbnail.FontPath,
		Quality:  cfg.Thumbnail.Quality,
	}
	if cfg.Thumbnail.Style == thumbnail.StyleAI {
		opts.Vision = newVisionClient(cfg)
	}
	return thumbnail.NewRenderer(opts, logger)
}

// newVisionClient reuses the metadata provider settings, swapping in
// thumbnail.ai_model when set.
func newVisionClient(cfg *config.Config) *llm.Client {
	model := cfg.LLM.Model
	if cfg.Thumbnail.AIModel != "" {
		model = cfg.Thumbnail.AIModel
	}
	return llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          model,
		Referer:        cfg.LLM.Referer,
		Title:          cfg.LLM.Title,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
		PlainText:      cfg.LLM.Provider == "anthropic",
	}, llm.WithTemperature(0.7))
}

func newNotifier(cfg *config.Config, logger *slog.Logger) *notifications.Notifier {
	return notifications.NewNotifier(notifications.NewService(cfg), logger)
}

// newExecutor builds the uploader. When progress is non-nil a percentage line
// is written to it as chunks complete.
func newExecutor(cfg *config.Config, logger *slog.Logger, progress io.Writer) *upload.Executor {
	var opts []upload.Option
	if progress != nil {
		last := -1
		opts = append(opts, upload.WithProgress(func(p upload.Progress) {
			pct := int(p.Fraction() * 100)
			if pct == last {
				return
			}
			last = pct
			fmt.Fprintf(progress, "\rUploading... %3d%%", pct)
			if pct >= 100 {
				fmt.Fprintln(progress)
			}
		}))
	}
	return upload.NewExecutor(upload.OptionsFromConfig(cfg), logger, opts...)
}

// controllerStack holds a controller and the resources it keeps open.
type controllerStack struct {
	controller *pipeline.Controller
	ledger     *ledger.Store
}

func (s *controllerStack) Close() {
	if s.ledger != nil {
		_ = s.ledger.Close()
	}
}

func (c *commandContext) newController(progress io.Writer) (*controllerStack, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger := c.log()

	generator, err := metadata.NewGenerator(cfg.LLM, cfg.YouTube.CategoryID, logger)
	if err != nil {
		return nil, err
	}
	approvals, err := c.openApprovals()
	if err != nil {
		return nil, err
	}
	led, err := c.openLedger()
	if err != nil {
		return nil, err
	}
	ctrl, err := pipeline.New(pipeline.Deps{
		Analyzer:  newAnalyzer(cfg, logger),
		Generator: generator,
		Renderer:  newRenderer(cfg, logger),
		Uploader:  newExecutor(cfg, logger, progress),
		Notifier:  newNotifier(cfg, logger),
		Approvals: approvals,
		Ledger:    led,
	}, cfg.Paths.WorkDir, logger)
	if err != nil {
		_ = led.Close()
		return nil, err
	}
	return &controllerStack{controller: ctrl, ledger: led}, nil
}
