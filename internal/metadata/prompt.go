package metadata

import (
	"fmt"
	"path/filepath"
	"strings"

	"onemin/internal/analysis"
)

const systemPrompt = `You are a YouTube content optimization expert. You write engaging, search-friendly metadata for videos from their transcript and technical details. Respond with a single JSON object and nothing else.`

const userPromptTemplate = `VIDEO TRANSCRIPT:
%s

VIDEO INFO:
- Duration: %.1f seconds (%.1f minutes)
- Resolution: %s
- Original filename: %s

Generate the following fields:

1. title: a catchy, curiosity-driven title under 60 characters. Use power words (INSANE, CRAZY, SHOCKING) where they fit and include keywords for search.
2. description: 150 to 300 words. The first line is a hook shown in search results, then a summary with natural keywords, then a call to action (like, subscribe, comment).
3. tags: 10 to 15 relevant tags.
4. category_id: YouTube category id ("28" Science & Technology, "22" People & Blogs, "24" Entertainment, "26" Howto & Style, "20" Gaming).
5. suggested_thumbnail_index: which frame (0 to %d) makes the best thumbnail; pick a moment with action, reaction, or a key reveal.

Respond with ONLY valid JSON, no markdown code blocks:
{"title": "...", "description": "...", "tags": ["..."], "category_id": "22", "suggested_thumbnail_index": 0}`

const emptyTranscript = "(no speech detected; infer the topic from the filename)"

func buildUserPrompt(result *analysis.Result, limit int, instructions string) string {
	transcript := strings.TrimSpace(result.Transcript)
	if transcript == "" {
		transcript = emptyTranscript
	}
	transcript = truncateRunes(transcript, limit)

	maxIndex := len(result.Frames) - 1
	if maxIndex < 0 {
		maxIndex = 0
	}
	asset := result.Asset
	prompt := fmt.Sprintf(userPromptTemplate,
		transcript,
		asset.DurationSeconds,
		asset.DurationSeconds/60,
		asset.Resolution(),
		filepath.Base(asset.Path),
		maxIndex,
	)
	if instructions = strings.TrimSpace(instructions); instructions != "" {
		prompt += "\n\nADDITIONAL INSTRUCTIONS:\n" + instructions
	}
	return prompt
}
