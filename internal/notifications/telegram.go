package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

type telegramService struct {
	baseURL string
	token   string
	chatID  string
	client  *http.Client
}

func (t *telegramService) Name() string { return "telegram" }

func (t *telegramService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := render(event, payload)
	if !ok {
		return nil
	}
	text, mode := msg.markdown, "Markdown"
	if text == "" {
		text, mode = msg.body, ""
	}
	if err := t.sendMessage(ctx, text, mode); err != nil {
		return err
	}
	if msg.photo == "" {
		return nil
	}
	if _, err := os.Stat(msg.photo); err != nil {
		return nil
	}
	// The prompt already arrived; a failed preview is reported but the
	// approval request is still actionable.
	if err := t.sendPhoto(ctx, msg.photo, msg.caption); err != nil {
		return fmt.Errorf("%w: %w", errPartialDelivery, err)
	}
	return nil
}

func (t *telegramService) endpoint(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", t.baseURL, t.token, method)
}

// sendMessage posts text; parseMode is omitted when empty.
func (t *telegramService) sendMessage(ctx context.Context, text, parseMode string) error {
	fields := map[string]any{"chat_id": t.chatID, "text": text}
	if parseMode != "" {
		fields["parse_mode"] = parseMode
	}
	body, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode telegram message: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint("sendMessage"), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return t.do(req, "sendMessage")
}

func (t *telegramService) sendPhoto(ctx context.Context, path, caption string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open photo: %w", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	_ = form.WriteField("chat_id", t.chatID)
	_ = form.WriteField("caption", caption)
	part, err := form.CreateFormFile("photo", filepath.Base(path))
	if err != nil {
		return fmt.Errorf("build photo form: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("read photo: %w", err)
	}
	if err := form.Close(); err != nil {
		return fmt.Errorf("finalize photo form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint("sendPhoto"), &buf)
	if err != nil {
		return fmt.Errorf("build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	return t.do(req, "sendPhoto")
}

func (t *telegramService) do(req *http.Request, method string) error {
	req.Header.Set("User-Agent", userAgent)
	resp, err := t.client.Do(req)
	if err != nil {
		// The URL embeds the bot token; keep it out of logs.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	defer resp.Body.Close()

	var result struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	_ = json.Unmarshal(data, &result)
	if resp.StatusCode >= 300 || !result.OK {
		detail := strings.TrimSpace(result.Description)
		if detail == "" {
			detail = strings.TrimSpace(string(data))
		}
		return fmt.Errorf("telegram %s returned %d: %s", method, resp.StatusCode, detail)
	}
	return nil
}
