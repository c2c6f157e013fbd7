package preflight

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"onemin/internal/config"
	"onemin/internal/deps"
	"onemin/internal/services/llm"
)

// CheckLLM verifies that the LLM API is reachable and the key is valid.
// It uses a 30-second timeout and a single attempt.
func CheckLLM(ctx context.Context, name string, cfg config.LLM) Result {
	if cfg.APIKey == "" {
		envKey := "the provider's API key variable"
		if provider, ok := config.LookupProvider(cfg.Provider); ok {
			envKey = provider.EnvKey
		}
		return Result{Name: name, Detail: fmt.Sprintf("API key missing (set llm.api_key or %s)", envKey)}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client := llm.NewClient(llm.Config{
		APIKey:    cfg.APIKey,
		BaseURL:   cfg.BaseURL,
		Model:     cfg.Model,
		Referer:   cfg.Referer,
		Title:     cfg.Title,
		PlainText: cfg.Provider == "anthropic",
	}, llm.WithRetryMaxAttempts(1))

	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeLLMError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s reachable (%s)", cfg.Provider, cfg.Model)}
}

// CheckDirectoryAccess passes when path is a directory the process can list,
// read and write.
func CheckDirectoryAccess(name, path string) Result {
	if problem := inspectPath(path, true, unix.R_OK|unix.W_OK|unix.X_OK); problem != "" {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %s)", path, problem)}
	}
	return Result{Name: name, Passed: true, Detail: path + " (read/write ok)"}
}

// CheckFile passes when path is a readable regular file. Failures name the
// config key that points at it.
func CheckFile(name, path, key string) Result {
	problem := inspectPath(path, false, unix.R_OK)
	switch problem {
	case "":
		return Result{Name: name, Passed: true, Detail: path}
	case "does not exist":
		return Result{Name: name, Detail: fmt.Sprintf("%s missing (set %s)", path, key)}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("%s: %s (check %s)", path, problem, key)}
	}
}

// inspectPath returns "" when path has the wanted type and access mode,
// otherwise a short description of what is wrong.
func inspectPath(path string, wantDir bool, mode uint32) string {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "does not exist"
	case err != nil:
		return fmt.Sprintf("stat: %v", err)
	case wantDir && !info.IsDir():
		return "is not a directory"
	case !wantDir && info.IsDir():
		return "is a directory"
	}
	if err := unix.Access(path, mode); err != nil {
		return fmt.Sprintf("insufficient permissions: %v", err)
	}
	return ""
}

// CheckNotifications reports which approval transport is configured. No
// transport is a pass; approvals then happen from the CLI only.
func CheckNotifications(cfg *config.Config) Result {
	const name = "Notifications"
	var transports []string
	if cfg.Notifications.TelegramBotToken != "" && cfg.Notifications.TelegramChatID != "" {
		transports = append(transports, "telegram")
	}
	if cfg.Notifications.NtfyTopic != "" {
		transports = append(transports, "ntfy")
	}
	if len(transports) == 0 {
		return Result{Name: name, Passed: true, Detail: "none configured (approve from the CLI)"}
	}
	return Result{Name: name, Passed: true, Detail: strings.Join(transports, ", ")}
}

// CheckSystemDeps evaluates the external binaries for the given config.
// Whisper is optional when transcription is disabled.
func CheckSystemDeps(ctx context.Context, cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.Analysis.FFmpegBinary,
			Description: "Required for frame and audio extraction",
			VersionArgs: []string{"-version"},
		},
		{
			Name:        "FFprobe",
			Command:     cfg.Analysis.FFprobeBinary,
			Description: "Required for media inspection",
			VersionArgs: []string{"-version"},
		},
		{
			Name:        "Whisper",
			Command:     cfg.Analysis.WhisperBinary,
			Description: "Transcribes audio for metadata prompts",
			Optional:    !cfg.Analysis.Transcribe,
		},
	}
	return deps.CheckBinaries(ctx, requirements)
}

// summarizeLLMError produces a human-readable summary for LLM health check failures.
func summarizeLLMError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (LLM API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (LLM API unreachable)"
	}
	if errors.Is(err, llm.ErrMissingAPIKey) {
		return "API key missing"
	}
	return err.Error()
}
