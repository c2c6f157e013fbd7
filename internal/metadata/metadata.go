package metadata

import (
	"encoding/json"
	"strconv"
	"strings"
	"unicode/utf8"
)

// YouTube rejects titles over 100 characters and descriptions over 5000 bytes.
const (
	maxTitleRunes       = 100
	maxDescriptionBytes = 5000
	maxTagCount         = 30
)

// Metadata is the publishable description of a video.
type Metadata struct {
	Title                   string   `json:"title"`
	Description             string   `json:"description"`
	Tags                    []string `json:"tags"`
	CategoryID              string   `json:"category_id"`
	SuggestedThumbnailIndex int      `json:"suggested_thumbnail_index"`
}

// Overrides replace generated fields verbatim when set.
type Overrides struct {
	Title       string
	Description string
	Tags        []string
}

// Apply returns a copy of m with non-empty override fields substituted.
func (m Metadata) Apply(o Overrides) Metadata {
	out := m
	out.Tags = append([]string(nil), m.Tags...)
	if o.Title != "" {
		out.Title = o.Title
	}
	if o.Description != "" {
		out.Description = o.Description
	}
	if len(o.Tags) > 0 {
		out.Tags = append([]string(nil), o.Tags...)
	}
	return out
}

// flexString accepts either a JSON string or number. Models routinely return
// category ids unquoted.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// flexInt accepts a JSON number or a numeric string.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexInt(int(n))
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	*f = flexInt(v)
	return nil
}

type modelResponse struct {
	Title                   string     `json:"title"`
	Description             string     `json:"description"`
	Tags                    []string   `json:"tags"`
	CategoryID              flexString `json:"category_id"`
	SuggestedThumbnailIndex flexInt    `json:"suggested_thumbnail_index"`
}

func (r modelResponse) toMetadata(defaultCategory string) Metadata {
	category := string(r.CategoryID)
	if category == "" {
		category = defaultCategory
	}
	index := int(r.SuggestedThumbnailIndex)
	if index < 0 {
		index = 0
	}
	return Metadata{
		Title:                   truncateRunes(strings.TrimSpace(r.Title), maxTitleRunes),
		Description:             truncateBytes(strings.TrimSpace(r.Description), maxDescriptionBytes),
		Tags:                    cleanTags(r.Tags),
		CategoryID:              category,
		SuggestedThumbnailIndex: index,
	}
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(tag), "#"))
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, tag)
		if len(out) == maxTagCount {
			break
		}
	}
	return out
}

// truncateRunes cuts s to at most limit runes.
func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}

// truncateBytes cuts s to at most limit bytes without splitting a rune.
func truncateBytes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
