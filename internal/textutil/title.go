package textutil

import (
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// TitleFromFilename derives a human-readable title from a video path:
// separators become spaces and the words are title-cased.
func TitleFromFilename(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(base)
	base = strings.Join(strings.Fields(base), " ")
	if base == "" {
		return ""
	}
	return cases.Title(language.Und).String(base)
}

// OverlayText returns the first maxWords words of title in upper case, the
// form used for thumbnail captions.
func OverlayText(title string, maxWords int) string {
	words := strings.Fields(title)
	if maxWords > 0 && len(words) > maxWords {
		words = words[:maxWords]
	}
	return cases.Upper(language.Und).String(strings.Join(words, " "))
}

// Truncate shortens s to at most limit runes, appending an ellipsis when text
// was removed.
func Truncate(s string, limit int) string {
	runes := []rune(s)
	if limit <= 0 || len(runes) <= limit {
		return s
	}
	if limit <= 3 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}
