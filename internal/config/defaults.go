package config

const (
	defaultConfigPath          = "~/.config/onemin/config.toml"
	defaultStateDir            = "~/.local/share/onemin"
	defaultWorkDir             = "~/.local/share/onemin/work"
	defaultLogDir              = "~/.local/share/onemin/logs"
	defaultWatchFolder         = "~/Videos/Upload"
	defaultPollInterval        = 2
	defaultStabilityTimeout    = 300
	defaultWatchWorkers        = 1
	defaultWatchQueueSize      = 16
	defaultMaxFrames           = 10
	defaultWhisperModel        = "base"
	defaultWhisperBinary       = "whisper"
	defaultFFmpegBinary        = "ffmpeg"
	defaultFFprobeBinary       = "ffprobe"
	defaultLLMProvider         = "openrouter"
	defaultLLMReferer          = "https://github.com/min-hsao/onemin"
	defaultLLMTitle            = "onemin metadata"
	defaultLLMTimeoutSeconds   = 60
	defaultThumbnailStyle      = "bold"
	defaultThumbnailQuality    = 90
	defaultClientSecretsFile   = "~/.config/onemin/client_secrets.json"
	defaultTokenFile           = "~/.config/onemin/youtube_token.json"
	defaultPrivacy             = "unlisted"
	defaultCategoryID          = "22"
	defaultChunkSizeMiB        = 10
	defaultYouTubeUploadURL    = "https://www.googleapis.com/upload/youtube/v3/videos"
	defaultTelegramBaseURL     = "https://api.telegram.org"
	defaultNotifyTimeout       = 10
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultTranscriptCharLimit = 8000
)

// DefaultExtensions lists the video container extensions the watcher accepts.
var DefaultExtensions = []string{".mp4", ".mov", ".avi", ".mkv", ".webm", ".m4v"}

// Provider describes an OpenAI-compatible chat completions endpoint.
type Provider struct {
	Name    string
	BaseURL string
	Model   string
	EnvKey  string
}

var providers = map[string]Provider{
	"openrouter": {
		Name:    "openrouter",
		BaseURL: "https://openrouter.ai/api/v1/chat/completions",
		Model:   "google/gemini-3-flash-preview",
		EnvKey:  "OPENROUTER_API_KEY",
	},
	"openai": {
		Name:    "openai",
		BaseURL: "https://api.openai.com/v1/chat/completions",
		Model:   "gpt-4o",
		EnvKey:  "OPENAI_API_KEY",
	},
	"anthropic": {
		Name:    "anthropic",
		BaseURL: "https://api.anthropic.com/v1/chat/completions",
		Model:   "claude-sonnet-4-20250514",
		EnvKey:  "ANTHROPIC_API_KEY",
	},
	"deepseek": {
		Name:    "deepseek",
		BaseURL: "https://api.deepseek.com/chat/completions",
		Model:   "deepseek-chat",
		EnvKey:  "DEEPSEEK_API_KEY",
	},
	"gemini": {
		Name:    "gemini",
		BaseURL: "https://generativelanguage.googleapis.com/v1beta/openai/chat/completions",
		Model:   "gemini-2.0-flash",
		EnvKey:  "GEMINI_API_KEY",
	},
}

// LookupProvider returns the endpoint defaults for a provider name.
func LookupProvider(name string) (Provider, bool) {
	p, ok := providers[name]
	return p, ok
}

// TranscriptCharLimit caps how much transcript text is sent to the LLM.
const TranscriptCharLimit = defaultTranscriptCharLimit

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			WorkDir:  defaultWorkDir,
			LogDir:   defaultLogDir,
		},
		Watch: Watch{
			Extensions:       append([]string(nil), DefaultExtensions...),
			PollInterval:     defaultPollInterval,
			StabilityTimeout: defaultStabilityTimeout,
			Workers:          defaultWatchWorkers,
			QueueSize:        defaultWatchQueueSize,
		},
		Analysis: Analysis{
			MaxFrames:     defaultMaxFrames,
			Transcribe:    true,
			WhisperModel:  defaultWhisperModel,
			WhisperBinary: defaultWhisperBinary,
			FFmpegBinary:  defaultFFmpegBinary,
			FFprobeBinary: defaultFFprobeBinary,
		},
		LLM: LLM{
			Provider:       defaultLLMProvider,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Thumbnail: Thumbnail{
			Style:   defaultThumbnailStyle,
			Quality: defaultThumbnailQuality,
		},
		YouTube: YouTube{
			ClientSecretsFile: defaultClientSecretsFile,
			TokenFile:         defaultTokenFile,
			DefaultPrivacy:    defaultPrivacy,
			CategoryID:        defaultCategoryID,
			ChunkSizeMiB:      defaultChunkSizeMiB,
			UploadURL:         defaultYouTubeUploadURL,
		},
		Notifications: Notifications{
			TelegramBaseURL: defaultTelegramBaseURL,
			RequestTimeout:  defaultNotifyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
