package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Paths contains state and scratch directory configuration.
type Paths struct {
	StateDir string `toml:"state_dir"`
	WorkDir  string `toml:"work_dir"`
	LogDir   string `toml:"log_dir"`
}

// Watch contains configuration for the ingestion watcher.
type Watch struct {
	Folder           string   `toml:"folder"`
	Extensions       []string `toml:"extensions"`
	PollInterval     int      `toml:"poll_interval"`
	StabilityTimeout int      `toml:"stability_timeout"`
	Workers          int      `toml:"workers"`
	QueueSize        int      `toml:"queue_size"`
	ProcessExisting  bool     `toml:"process_existing"`
	SkipApproval     bool     `toml:"skip_approval"`
}

// Analysis contains configuration for probing, frame sampling, and transcription.
type Analysis struct {
	MaxFrames     int    `toml:"max_frames"`
	Transcribe    bool   `toml:"transcribe"`
	WhisperModel  string `toml:"whisper_model"`
	WhisperBinary string `toml:"whisper_binary"`
	FFmpegBinary  string `toml:"ffmpeg_binary"`
	FFprobeBinary string `toml:"ffprobe_binary"`
}

// LLM contains connection settings for metadata generation.
type LLM struct {
	Provider       string `toml:"provider"`
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Thumbnail contains rendering preferences.
type Thumbnail struct {
	Style    string `toml:"style"`
	FontPath string `toml:"font_path"`
	Quality  int    `toml:"quality"`
	// AIModel overrides llm.model for the ai style, which needs a vision model.
	AIModel string `toml:"ai_model"`
}

// YouTube contains upload destination and credential configuration.
type YouTube struct {
	ClientSecretsFile string `toml:"client_secrets_file"`
	TokenFile         string `toml:"token_file"`
	DefaultPrivacy    string `toml:"default_privacy"`
	CategoryID        string `toml:"category_id"`
	ChunkSizeMiB      int    `toml:"chunk_size_mib"`
	UploadURL         string `toml:"upload_url"`
	APIBaseURL        string `toml:"api_base_url"`
}

// Notifications contains approval prompt delivery configuration.
type Notifications struct {
	TelegramBotToken string `toml:"telegram_bot_token"`
	TelegramChatID   string `toml:"telegram_chat_id"`
	TelegramBaseURL  string `toml:"telegram_base_url"`
	NtfyTopic        string `toml:"ntfy_topic"`
	RequestTimeout   int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for onemin.
//
// Configuration sections by subsystem:
//   - Paths: approval store, ledger, scratch and log directories
//   - Watch: watched folder, stability polling and worker pool sizing
//   - Analysis: frame sampling and transcription tooling
//   - LLM: metadata generation provider and credentials
//   - Thumbnail: rendering style
//   - YouTube: OAuth credential files and upload defaults
//   - Notifications: Telegram or ntfy approval prompts
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Watch         Watch         `toml:"watch"`
	Analysis      Analysis      `toml:"analysis"`
	LLM           LLM           `toml:"llm"`
	Thumbnail     Thumbnail     `toml:"thumbnail"`
	YouTube       YouTube       `toml:"youtube"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// EnsureDirectories creates the state, work, and log directories.
// The watch folder is created lazily by the watcher itself.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.WorkDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ApprovalStorePath returns the JSON file holding approval requests.
func (c *Config) ApprovalStorePath() string {
	return filepath.Join(c.Paths.StateDir, "pending_requests.json")
}

// LedgerPath returns the SQLite ingestion ledger location.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Paths.StateDir, "ledger.db")
}

// LogPath returns the file every log record is appended to.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.LogDir, "onemin.log")
}

// WatchLockPath returns the single-instance lock used by the watch command.
func (c *Config) WatchLockPath() string {
	return filepath.Join(c.Paths.StateDir, "watch.lock")
}

// PollInterval returns the stability poll interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Watch.PollInterval) * time.Second
}

// StabilityTimeout returns the stability wait ceiling as a duration.
func (c *Config) StabilityTimeout() time.Duration {
	return time.Duration(c.Watch.StabilityTimeout) * time.Second
}

// ChunkSizeBytes returns the resumable upload chunk size rounded down to
// the 256 KiB granularity the upload protocol requires.
func (c *Config) ChunkSizeBytes() int64 {
	const granule = 256 * 1024
	size := int64(c.YouTube.ChunkSizeMiB) * 1024 * 1024
	size -= size % granule
	if size < granule {
		size = granule
	}
	return size
}
