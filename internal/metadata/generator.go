package metadata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"onemin/internal/analysis"
	"onemin/internal/config"
	"onemin/internal/logging"
	"onemin/internal/services"
	"onemin/internal/services/llm"
)

type completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Generator produces Metadata from an analysis result using the configured
// chat completions provider.
type Generator struct {
	provider        string
	envKey          string
	defaultCategory string
	charLimit       int
	client          completer
	logger          *slog.Logger
}

// Option customizes a Generator.
type Option func(*Generator)

// WithLLMOptions forwards options to the underlying LLM client.
func WithLLMOptions(opts ...llm.Option) Option {
	return func(g *Generator) {
		if c, ok := g.client.(*llm.Client); ok && c != nil {
			for _, opt := range opts {
				opt(c)
			}
		}
	}
}

// NewGenerator validates the provider and builds a client for it. An unknown
// provider is reported as services.ErrValidation.
func NewGenerator(cfg config.LLM, defaultCategory string, logger *slog.Logger, opts ...Option) (*Generator, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	info, ok := config.LookupProvider(provider)
	if !ok {
		return nil, services.Wrap(services.ErrValidation, "metadata", "provider",
			fmt.Sprintf("Unknown LLM provider %q", cfg.Provider), nil)
	}
	g := &Generator{
		provider:        provider,
		envKey:          info.EnvKey,
		defaultCategory: defaultCategory,
		charLimit:       config.TranscriptCharLimit,
		logger:          logging.NewComponentLogger(logger, "metadata"),
		client: llm.NewClient(llm.Config{
			APIKey:         cfg.APIKey,
			BaseURL:        cfg.BaseURL,
			Model:          cfg.Model,
			Referer:        cfg.Referer,
			Title:          cfg.Title,
			TimeoutSeconds: cfg.TimeoutSeconds,
			PlainText:      provider == "anthropic",
		}, llm.WithTemperature(0.7)),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Provider reports the normalized provider name.
func (g *Generator) Provider() string {
	return g.provider
}

// Generate asks the model for metadata describing result.
func (g *Generator) Generate(ctx context.Context, result *analysis.Result) (*Metadata, error) {
	return g.GenerateWithInstructions(ctx, result, "")
}

// GenerateWithInstructions is Generate with extra operator guidance appended
// to the prompt.
func (g *Generator) GenerateWithInstructions(ctx context.Context, result *analysis.Result, instructions string) (*Metadata, error) {
	if result == nil {
		return nil, services.Wrap(services.ErrValidation, "metadata", "generate", "No analysis result", nil)
	}
	logger := logging.WithContext(ctx, g.logger)
	prompt := buildUserPrompt(result, g.charLimit, instructions)

	content, err := g.client.CompleteJSON(ctx, systemPrompt, prompt)
	if err != nil {
		if errors.Is(err, llm.ErrMissingAPIKey) {
			return nil, services.Wrap(services.ErrConfiguration, "metadata", g.provider,
				fmt.Sprintf("API key not set (llm.api_key or %s)", g.envKey), err)
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, services.Wrap(services.ErrExternalTool, "metadata", g.provider, "Chat completion failed", err)
	}

	var resp modelResponse
	if err := llm.DecodeLLMJSON(content, &resp); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "metadata", g.provider, "Unparseable model response", err)
	}
	meta := resp.toMetadata(g.defaultCategory)
	if meta.Title == "" {
		return nil, services.Wrap(services.ErrExternalTool, "metadata", g.provider, "Model response has no title", nil)
	}
	logger.Info("metadata generated",
		logging.String("title", meta.Title),
		logging.Int("tags", len(meta.Tags)),
		logging.String("category_id", meta.CategoryID),
		logging.Int("suggested_thumbnail_index", meta.SuggestedThumbnailIndex),
	)
	return &meta, nil
}
