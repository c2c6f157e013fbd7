// Package metadata asks an OpenAI-compatible chat completions provider for a
// video's title, description, tags, category, and preferred thumbnail frame.
//
// The transcript is truncated before prompting. Responses are decoded
// tolerantly (code fences, numeric category ids) and then clamped to
// YouTube's field limits. Provider errors are tagged with services markers so
// callers can distinguish a missing API key from an unreachable endpoint.
package metadata
