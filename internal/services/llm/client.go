package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	defaultEndpoint    = "https://openrouter.ai/api/v1/chat/completions"
	defaultHTTPTimeout = 60 * time.Second
	defaultMaxTokens   = 1500
)

// ErrMissingAPIKey is returned before any request is sent when no key is configured.
var ErrMissingAPIKey = errors.New("api key required")

// Config captures the runtime settings required to talk to an
// OpenAI-compatible chat completions endpoint.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
	// PlainText disables the json_object response_format for providers that reject it.
	PlainText bool
}

// Client sends prompts to a chat completions endpoint and returns the text of
// the first usable choice.
type Client struct {
	cfg         Config
	httpClient  *http.Client
	temperature float64
	maxTokens   int
	retry       retryPolicy
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTemperature sets the sampling temperature (defaults to 0).
func WithTemperature(value float64) Option {
	return func(c *Client) { c.temperature = value }
}

// WithMaxTokens caps the completion length.
func WithMaxTokens(value int) Option {
	return func(c *Client) {
		if value > 0 {
			c.maxTokens = value
		}
	}
}

// WithRetryMaxAttempts sets how many requests a single call may issue.
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) { c.retry.attempts = attempts }
}

// WithRetryBackoff sets the first backoff delay and the ceiling.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retry.base = baseDelay
		c.retry.ceiling = maxDelay
	}
}

// WithSleeper replaces the timer used between attempts.
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) { c.retry.sleep = sleeper }
}

// NewClient constructs an LLM client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	cfg.Model = strings.TrimSpace(cfg.Model)
	cfg.Referer = strings.TrimSpace(cfg.Referer)
	cfg.Title = strings.TrimSpace(cfg.Title)
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultEndpoint
	}

	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		maxTokens:  defaultMaxTokens,
		retry:      defaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model reports the configured model name.
func (c *Client) Model() string {
	return c.cfg.Model
}

// CompleteJSON asks for a JSON object and returns the raw completion text.
// Decoding is left to the caller; see DecodeLLMJSON.
func (c *Client) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	const op = "llm complete"
	systemPrompt = strings.TrimSpace(systemPrompt)
	userPrompt = strings.TrimSpace(userPrompt)
	switch {
	case systemPrompt == "":
		return "", fmt.Errorf("%s: system prompt required", op)
	case userPrompt == "":
		return "", fmt.Errorf("%s: user prompt required", op)
	case c.cfg.APIKey == "":
		return "", fmt.Errorf("%s: %w", op, ErrMissingAPIKey)
	}
	return c.complete(ctx, c.newRequest(systemPrompt, userPrompt), op)
}

// CompleteVisionJSON is CompleteJSON with an image attached to the user
// message. mime defaults to image/jpeg.
func (c *Client) CompleteVisionJSON(ctx context.Context, systemPrompt, userPrompt string, image []byte, mime string) (string, error) {
	const op = "llm vision"
	systemPrompt = strings.TrimSpace(systemPrompt)
	userPrompt = strings.TrimSpace(userPrompt)
	switch {
	case systemPrompt == "":
		return "", fmt.Errorf("%s: system prompt required", op)
	case userPrompt == "":
		return "", fmt.Errorf("%s: user prompt required", op)
	case len(image) == 0:
		return "", fmt.Errorf("%s: image required", op)
	case c.cfg.APIKey == "":
		return "", fmt.Errorf("%s: %w", op, ErrMissingAPIKey)
	}
	if mime == "" {
		mime = "image/jpeg"
	}
	req := c.newRequest(systemPrompt, userPrompt)
	req.Messages[1].Content = imageParts(userPrompt, image, mime)
	return c.complete(ctx, req, op)
}

// HealthCheck round-trips a trivial prompt to prove the key and model work.
func (c *Client) HealthCheck(ctx context.Context) error {
	const op = "llm health"
	if c.cfg.APIKey == "" {
		return fmt.Errorf("%s: %w", op, ErrMissingAPIKey)
	}
	req := c.newRequest("You must respond with JSON only.", `Respond with {"ok":true}`)
	req.Temperature = 0
	content, err := c.complete(ctx, req, op)
	if err != nil {
		return err
	}
	var reply struct {
		OK bool `json:"ok"`
	}
	if err := DecodeLLMJSON(content, &reply); err != nil {
		return fmt.Errorf("%s: parse payload: %w", op, err)
	}
	if !reply.OK {
		return fmt.Errorf("%s: unexpected response %s", op, summarizePayloadSnippet(content))
	}
	return nil
}

// complete posts req until it yields text or the retry policy gives up.
func (c *Client) complete(ctx context.Context, req chatRequest, op string) (string, error) {
	attempts := max(c.retry.attempts, 1)
	var err error
	for attempt := 1; ; attempt++ {
		var text string
		text, err = c.attempt(ctx, req, op)
		if err == nil {
			return text, nil
		}
		if attempt >= attempts {
			break
		}
		delay, ok := c.retry.delay(ctx, err, attempt)
		if !ok {
			return "", err
		}
		if waitErr := c.retry.pause(ctx, delay); waitErr != nil {
			return "", waitErr
		}
	}
	if attempts == 1 {
		return "", err
	}
	return "", fmt.Errorf("%s: failed after %d attempts: %w", op, attempts, err)
}

func (c *Client) attempt(ctx context.Context, req chatRequest, op string) (string, error) {
	resp, raw, err := c.post(ctx, req)
	if err != nil {
		return "", err
	}
	text, finish := resp.content()
	if text != "" {
		return text, nil
	}
	if len(resp.Choices) == 0 {
		return "", &emptyContentError{Op: op, Snippet: summarizePayloadSnippet(string(raw))}
	}
	return "", &emptyContentError{
		Op:           op,
		FinishReason: finish,
		Refusal:      resp.refusal(),
		Snippet:      summarizePayloadSnippet(string(raw)),
	}
}
