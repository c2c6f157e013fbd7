package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Privacy values accepted by the upload destination.
const (
	PrivacyPrivate  = "private"
	PrivacyUnlisted = "unlisted"
	PrivacyPublic   = "public"
)

// ValidPrivacy reports whether value is an accepted privacy setting.
func ValidPrivacy(value string) bool {
	switch value {
	case PrivacyPrivate, PrivacyUnlisted, PrivacyPublic:
		return true
	}
	return false
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateWatch(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateThumbnail(); err != nil {
		return err
	}
	if err := c.validateYouTube(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateWatch() error {
	return ensurePositiveMap(map[string]int{
		"watch.poll_interval":     c.Watch.PollInterval,
		"watch.stability_timeout": c.Watch.StabilityTimeout,
		"watch.workers":           c.Watch.Workers,
		"analysis.max_frames":     c.Analysis.MaxFrames,
	})
}

func (c *Config) validateLLM() error {
	if _, ok := LookupProvider(c.LLM.Provider); !ok {
		names := make([]string, 0, len(providers))
		for name := range providers {
			names = append(names, name)
		}
		sort.Strings(names)
		return fmt.Errorf("llm.provider %q is not supported (use one of: %s)", c.LLM.Provider, strings.Join(names, ", "))
	}
	return nil
}

func (c *Config) validateThumbnail() error {
	switch c.Thumbnail.Style {
	case "bold", "minimal", "ai":
		return nil
	}
	return fmt.Errorf("thumbnail.style %q is not supported (use bold, minimal or ai)", c.Thumbnail.Style)
}

func (c *Config) validateYouTube() error {
	if !ValidPrivacy(c.YouTube.DefaultPrivacy) {
		return fmt.Errorf("youtube.default_privacy %q must be private, unlisted, or public", c.YouTube.DefaultPrivacy)
	}
	if c.YouTube.ChunkSizeMiB <= 0 {
		return errors.New("youtube.chunk_size_mib must be positive")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	hasToken := c.Notifications.TelegramBotToken != ""
	hasChat := c.Notifications.TelegramChatID != ""
	if hasToken != hasChat {
		return errors.New("notifications.telegram_bot_token and notifications.telegram_chat_id must be set together")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
