package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const snippetLimit = 160

// DecodeLLMJSON unmarshals a model reply into target. When the reply is not
// bare JSON, a markdown fence or surrounding prose is stripped and the
// outermost object is decoded instead.
func DecodeLLMJSON(content string, target any) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return errors.New("empty payload")
	}
	firstErr := json.Unmarshal([]byte(content), target)
	if firstErr == nil {
		return nil
	}
	object := extractObject(content)
	if object == "" || object == content {
		return fmt.Errorf("%w (payload snippet: %s)", firstErr, summarizePayloadSnippet(content))
	}
	if err := json.Unmarshal([]byte(object), target); err != nil {
		return fmt.Errorf("%w (sanitized payload snippet: %s)", err, summarizePayloadSnippet(object))
	}
	return nil
}

// extractObject unwraps a ```json fence, then trims anything outside the
// first '{' and the last '}'.
func extractObject(content string) string {
	body := strings.TrimSpace(content)
	if rest, ok := strings.CutPrefix(body, "```"); ok {
		rest = strings.TrimLeft(rest, " \t\r\n")
		if len(rest) >= 4 && strings.EqualFold(rest[:4], "json") {
			rest = rest[4:]
		}
		if end := strings.LastIndex(rest, "```"); end >= 0 {
			rest = rest[:end]
		}
		body = strings.TrimSpace(rest)
	}
	open, closing := strings.IndexByte(body, '{'), strings.LastIndexByte(body, '}')
	if open > 0 && closing > open {
		body = strings.TrimSpace(body[open : closing+1])
	}
	return body
}

// summarizePayloadSnippet collapses whitespace and truncates for error text.
func summarizePayloadSnippet(content string) string {
	flat := strings.Join(strings.Fields(content), " ")
	if flat == "" {
		return "<empty>"
	}
	if r := []rune(flat); len(r) > snippetLimit {
		return string(r[:snippetLimit]) + "..."
	}
	return flat
}
