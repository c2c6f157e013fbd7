package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeWatch(); err != nil {
		return err
	}
	c.normalizeAnalysis()
	c.normalizeLLM()
	c.normalizeThumbnail()
	if err := c.normalizeYouTube(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeWatch() error {
	var err error
	c.Watch.Folder = strings.TrimSpace(c.Watch.Folder)
	if c.Watch.Folder == "" {
		if value, ok := os.LookupEnv("ONEMIN_WATCH_FOLDER"); ok {
			c.Watch.Folder = strings.TrimSpace(value)
		}
	}
	if c.Watch.Folder == "" {
		c.Watch.Folder = defaultWatchFolder
	}
	if c.Watch.Folder, err = expandPath(c.Watch.Folder); err != nil {
		return fmt.Errorf("watch.folder: %w", err)
	}
	c.Watch.Extensions = normalizeExtensions(c.Watch.Extensions)
	if c.Watch.Workers <= 0 {
		c.Watch.Workers = defaultWatchWorkers
	}
	if c.Watch.QueueSize <= 0 {
		c.Watch.QueueSize = defaultWatchQueueSize
	}
	return nil
}

func normalizeExtensions(values []string) []string {
	exts := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		ext := strings.ToLower(strings.TrimSpace(value))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if _, exists := seen[ext]; exists {
			continue
		}
		seen[ext] = struct{}{}
		exts = append(exts, ext)
	}
	if len(exts) == 0 {
		return append([]string(nil), DefaultExtensions...)
	}
	return exts
}

func (c *Config) normalizeAnalysis() {
	c.Analysis.WhisperModel = strings.TrimSpace(c.Analysis.WhisperModel)
	if c.Analysis.WhisperModel == "" {
		c.Analysis.WhisperModel = defaultWhisperModel
	}
	c.Analysis.WhisperBinary = strings.TrimSpace(c.Analysis.WhisperBinary)
	if c.Analysis.WhisperBinary == "" {
		c.Analysis.WhisperBinary = defaultWhisperBinary
	}
	c.Analysis.FFmpegBinary = strings.TrimSpace(c.Analysis.FFmpegBinary)
	if c.Analysis.FFmpegBinary == "" {
		c.Analysis.FFmpegBinary = defaultFFmpegBinary
	}
	c.Analysis.FFprobeBinary = strings.TrimSpace(c.Analysis.FFprobeBinary)
	if c.Analysis.FFprobeBinary == "" {
		c.Analysis.FFprobeBinary = defaultFFprobeBinary
	}
}

// normalizeLLM fills endpoint defaults from the provider table. Unknown
// providers are left untouched so Validate can report them by name.
func (c *Config) normalizeLLM() {
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	if c.LLM.Provider == "" {
		c.LLM.Provider = defaultLLMProvider
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if provider, ok := LookupProvider(c.LLM.Provider); ok {
		if c.LLM.BaseURL == "" {
			c.LLM.BaseURL = provider.BaseURL
		}
		if c.LLM.Model == "" {
			c.LLM.Model = provider.Model
		}
		if c.LLM.APIKey == "" {
			if value, ok := os.LookupEnv(provider.EnvKey); ok {
				c.LLM.APIKey = strings.TrimSpace(value)
			}
		}
	}
	c.LLM.Referer = strings.TrimSpace(c.LLM.Referer)
	if c.LLM.Referer == "" {
		c.LLM.Referer = defaultLLMReferer
	}
	c.LLM.Title = strings.TrimSpace(c.LLM.Title)
	if c.LLM.Title == "" {
		c.LLM.Title = defaultLLMTitle
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
}

func (c *Config) normalizeThumbnail() {
	c.Thumbnail.Style = strings.ToLower(strings.TrimSpace(c.Thumbnail.Style))
	switch c.Thumbnail.Style {
	case "":
		c.Thumbnail.Style = defaultThumbnailStyle
	case "mrbeast":
		c.Thumbnail.Style = "bold"
	}
	if c.Thumbnail.Quality <= 0 || c.Thumbnail.Quality > 100 {
		c.Thumbnail.Quality = defaultThumbnailQuality
	}
	c.Thumbnail.FontPath = strings.TrimSpace(c.Thumbnail.FontPath)
	c.Thumbnail.AIModel = strings.TrimSpace(c.Thumbnail.AIModel)
}

func (c *Config) normalizeYouTube() error {
	var err error
	if strings.TrimSpace(c.YouTube.ClientSecretsFile) == "" {
		c.YouTube.ClientSecretsFile = defaultClientSecretsFile
	}
	if c.YouTube.ClientSecretsFile, err = expandPath(c.YouTube.ClientSecretsFile); err != nil {
		return fmt.Errorf("youtube.client_secrets_file: %w", err)
	}
	if strings.TrimSpace(c.YouTube.TokenFile) == "" {
		c.YouTube.TokenFile = defaultTokenFile
	}
	if c.YouTube.TokenFile, err = expandPath(c.YouTube.TokenFile); err != nil {
		return fmt.Errorf("youtube.token_file: %w", err)
	}
	c.YouTube.DefaultPrivacy = strings.ToLower(strings.TrimSpace(c.YouTube.DefaultPrivacy))
	if c.YouTube.DefaultPrivacy == "" {
		c.YouTube.DefaultPrivacy = defaultPrivacy
	}
	c.YouTube.CategoryID = strings.TrimSpace(c.YouTube.CategoryID)
	if c.YouTube.CategoryID == "" {
		c.YouTube.CategoryID = defaultCategoryID
	}
	if c.YouTube.ChunkSizeMiB <= 0 {
		c.YouTube.ChunkSizeMiB = defaultChunkSizeMiB
	}
	c.YouTube.UploadURL = strings.TrimSpace(c.YouTube.UploadURL)
	if c.YouTube.UploadURL == "" {
		c.YouTube.UploadURL = defaultYouTubeUploadURL
	}
	c.YouTube.APIBaseURL = strings.TrimSpace(c.YouTube.APIBaseURL)
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.TelegramBotToken = strings.TrimSpace(c.Notifications.TelegramBotToken)
	if c.Notifications.TelegramBotToken == "" {
		if value, ok := os.LookupEnv("TELEGRAM_BOT_TOKEN"); ok {
			c.Notifications.TelegramBotToken = strings.TrimSpace(value)
		}
	}
	c.Notifications.TelegramChatID = strings.TrimSpace(c.Notifications.TelegramChatID)
	if c.Notifications.TelegramChatID == "" {
		if value, ok := os.LookupEnv("TELEGRAM_CHAT_ID"); ok {
			c.Notifications.TelegramChatID = strings.TrimSpace(value)
		}
	}
	c.Notifications.TelegramBaseURL = strings.TrimRight(strings.TrimSpace(c.Notifications.TelegramBaseURL), "/")
	if c.Notifications.TelegramBaseURL == "" {
		c.Notifications.TelegramBaseURL = defaultTelegramBaseURL
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
