package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) Name() string { return "ntfy" }

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := render(event, payload)
	if !ok {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	n.decorate(req, msg)
	if err := n.do(req); err != nil {
		return err
	}
	if msg.photo == "" {
		return nil
	}
	if err := n.attach(ctx, msg); err != nil {
		return fmt.Errorf("%w: %w", errPartialDelivery, err)
	}
	return nil
}

// attach uploads the preview image as a follow-up message.
func (n *ntfyService) attach(ctx context.Context, msg message) error {
	file, err := os.Open(msg.photo)
	if err != nil {
		return nil
	}
	defer file.Close()
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, n.endpoint, file)
	if err != nil {
		return fmt.Errorf("build ntfy attachment: %w", err)
	}
	req.Header.Set("Filename", filepath.Base(msg.photo))
	req.Header.Set("Message", msg.caption)
	n.decorate(req, msg)
	return n.do(req)
}

func (n *ntfyService) decorate(req *http.Request, msg message) {
	req.Header.Set("User-Agent", userAgent)
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
	}
}

func (n *ntfyService) do(req *http.Request) error {
	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
