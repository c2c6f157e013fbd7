package testsupport

import (
	"path/filepath"
	"testing"

	"onemin/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config rooted in a per-test temp directory. Every path
// the pipeline writes to lives under that root and the LLM key is a dummy.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.WorkDir = filepath.Join(base, "state", "work")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Watch.Folder = filepath.Join(base, "inbox")
	cfgVal.LLM.APIKey = "test"
	if provider, ok := config.LookupProvider(cfgVal.LLM.Provider); ok {
		cfgVal.LLM.BaseURL = provider.BaseURL
		cfgVal.LLM.Model = provider.Model
	}
	cfgVal.YouTube.ClientSecretsFile = filepath.Join(base, "client_secrets.json")
	cfgVal.YouTube.TokenFile = filepath.Join(base, "youtube_token.json")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithLLMEndpoint points metadata generation at a test server.
func WithLLMEndpoint(baseURL, key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.LLM.BaseURL = baseURL
		b.cfg.LLM.APIKey = key
	}
}

// WithTelegram enables Telegram delivery against baseURL.
func WithTelegram(baseURL, token, chatID string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.TelegramBaseURL = baseURL
		b.cfg.Notifications.TelegramBotToken = token
		b.cfg.Notifications.TelegramChatID = chatID
	}
}

// WithYouTubeEndpoints redirects uploads and Data API calls to a test server.
func WithYouTubeEndpoints(uploadURL, apiBaseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.YouTube.UploadURL = uploadURL
		b.cfg.YouTube.APIBaseURL = apiBaseURL
	}
}

// WithBaseDir hands the temp root to fn so it can place sibling paths.
func WithBaseDir(fn func(base string, cfg *config.Config)) ConfigOption {
	return func(b *configBuilder) {
		fn(b.baseDir, b.cfg)
	}
}
