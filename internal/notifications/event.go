package notifications

import (
	"fmt"
	"path/filepath"
	"strings"

	"onemin/internal/textutil"
)

// Event identifies a notification type.
type Event string

const (
	EventApprovalRequested Event = "approval_requested"
	EventUploadCompleted   Event = "upload_completed"
	EventError             Event = "error"
	EventTest              Event = "test"
)

// Payload carries event fields. Keys used by the formatters:
//
//	approval_requested: requestID, title, description, tags ([]string),
//	                    video, thumbnail, duration (float64 seconds), resolution
//	upload_completed:   title, url, privacy
//	error:              context, error
type Payload map[string]any

func (p Payload) str(key string) string {
	if p == nil {
		return ""
	}
	switch v := p[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func (p Payload) strings(key string) []string {
	if p == nil {
		return nil
	}
	if v, ok := p[key].([]string); ok {
		return v
	}
	return nil
}

func (p Payload) float(key string) float64 {
	if p == nil {
		return 0
	}
	switch v := p[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

const (
	descriptionPreviewLimit = 500
	tagPreviewLimit         = 5
)

// message is the transport-neutral rendering of an event. markdown is empty
// for events that carry no formatting; transports then send body as-is.
type message struct {
	title    string
	body     string
	markdown string
	tags     []string
	priority string
	photo    string
	caption  string
}

func render(event Event, payload Payload) (message, bool) {
	switch event {
	case EventApprovalRequested:
		return renderApproval(payload), true
	case EventUploadCompleted:
		title := payload.str("title")
		body := fmt.Sprintf("✅ Uploaded: %s", title)
		if url := payload.str("url"); url != "" {
			body += "\n" + url
		}
		if privacy := payload.str("privacy"); privacy != "" {
			body += fmt.Sprintf("\nPrivacy: %s", privacy)
		}
		return message{
			title: "onemin - Uploaded",
			body:  body,
			tags:  []string{"onemin", "upload", "completed"},
		}, true
	case EventError:
		var b strings.Builder
		b.WriteString("❌ Error")
		if label := payload.str("context"); label != "" {
			b.WriteString(" with ")
			b.WriteString(label)
		}
		b.WriteString(": ")
		if text := payload.str("error"); text != "" {
			b.WriteString(text)
		} else {
			b.WriteString("unknown")
		}
		return message{
			title:    "onemin - Error",
			body:     b.String(),
			tags:     []string{"onemin", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		body := "🧪 Notification system test"
		return message{
			title:    "onemin - Test",
			body:     body,
			tags:     []string{"onemin", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func renderApproval(p Payload) message {
	id := p.str("requestID")
	title := p.str("title")
	description := p.str("description")
	if len([]rune(description)) > descriptionPreviewLimit {
		description = string([]rune(description)[:descriptionPreviewLimit]) + "..."
	}
	tags := p.strings("tags")
	tagLine := strings.Join(tags, ", ")
	if len(tags) > tagPreviewLimit {
		tagLine = strings.Join(tags[:tagPreviewLimit], ", ") + "..."
	}
	video := filepath.Base(p.str("video"))

	var plain, md strings.Builder
	fmt.Fprintf(&md, "🎬 *New Video Ready for Upload*\n\n*Title:* %s\n\n*Description:*\n%s\n\n*Tags:* %s\n\n*Video:* `%s`\n",
		escapeMarkdown(title), escapeMarkdown(description), escapeMarkdown(tagLine), codeSpan(video))
	fmt.Fprintf(&plain, "🎬 New video ready for upload\n\nTitle: %s\n\n%s\n\nTags: %s\nVideo: %s\n", title, description, tagLine, video)
	if duration := p.float("duration"); duration > 0 {
		fmt.Fprintf(&md, "*Duration:* %.1f minutes\n", duration/60)
		fmt.Fprintf(&plain, "Duration: %.1f minutes\n", duration/60)
	}
	if res := p.str("resolution"); res != "" {
		fmt.Fprintf(&md, "*Resolution:* %s\n", escapeMarkdown(res))
		fmt.Fprintf(&plain, "Resolution: %s\n", res)
	}
	cid := codeSpan(id)
	fmt.Fprintf(&md, "\n*Request ID:* `%s`\n\nReply with:\n✅ `approve %s` to upload\n❌ `reject %s` to cancel\n✏️ `edit %s title <new title>` to change title\n", cid, cid, cid, cid)
	fmt.Fprintf(&plain, "\nRequest ID: %s\nonemin approve %s | onemin reject %s | onemin edit %s --title \"...\"", id, id, id, id)

	return message{
		title:    "onemin - Approval needed: " + textutil.Truncate(title, 60),
		body:     plain.String(),
		markdown: md.String(),
		tags:     []string{"onemin", "approval", id},
		priority: "high",
		photo:    p.str("thumbnail"),
		caption:  fmt.Sprintf("Thumbnail preview for %s", id),
	}
}

// markdownEscaper backslash-escapes the characters Telegram's legacy Markdown
// treats as entity delimiters.
var markdownEscaper = strings.NewReplacer("_", `\_`, "*", `\*`, "`", "\\`", "[", `\[`)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// codeSpan makes s safe inside a `code` entity, where escapes are not honoured.
func codeSpan(s string) string {
	return strings.ReplaceAll(s, "`", "'")
}
