// Package llm provides a chat completions client for OpenAI-compatible
// endpoints (OpenRouter, OpenAI, Anthropic, DeepSeek, Gemini).
//
// The metadata generator sends a system prompt describing the expected JSON
// shape and a user prompt built from the analysis result; CompleteJSON returns
// the raw content, and DecodeLLMJSON tolerates the code fences and leading
// prose that models commonly wrap around it.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors, empty completions, and
// network timeouts with exponential backoff (base 1s, max 10s, up to 3
// attempts by default). A Retry-After header overrides the computed delay.
// Context cancellation aborts retries immediately.
package llm
