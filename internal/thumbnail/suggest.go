package thumbnail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"strconv"
	"strings"

	"onemin/internal/logging"
	"onemin/internal/services/llm"
	"onemin/internal/textutil"
)

// Vision answers a prompt about an attached image with a JSON object.
// *llm.Client satisfies it.
type Vision interface {
	CompleteVisionJSON(ctx context.Context, systemPrompt, userPrompt string, image []byte, mime string) (string, error)
}

const (
	suggestSystemPrompt = "You design YouTube thumbnails. Respond with a single JSON object only."
	suggestMinFactor    = 0.5
	suggestMaxFactor    = 2.0
)

// suggestion is the model's reply. Absent fields keep the bold defaults.
type suggestion struct {
	OverlayText string   `json:"overlay_text"`
	TextColor   string   `json:"text_color"`
	Position    string   `json:"position"`
	Saturation  *float64 `json:"enhance_saturation"`
	Contrast    *float64 `json:"enhance_contrast"`
}

func suggestPrompt(title string) string {
	return fmt.Sprintf(`Analyze this video frame for a YouTube thumbnail. The video is titled: %q

Suggest:
1. Best text to overlay (2-4 impactful words, all caps, exciting)
2. Text color that contrasts well with the image (hex code)
3. Where to place text (top, center, bottom)
4. Saturation and contrast multipliers between 0.5 and 2.0

Respond in JSON format:
{"overlay_text": "...", "text_color": "#FFFF00", "position": "bottom", "enhance_saturation": 1.3, "enhance_contrast": 1.2}`, title)
}

// renderAI grades canvas and places the caption as the vision model suggests.
// Any failure is logged and the bold look is rendered instead.
func (r *Renderer) renderAI(ctx context.Context, canvas *image.NRGBA, title string) image.Image {
	c, sat, con, err := r.suggest(ctx, canvas, title)
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, r.logger), "ai thumbnail suggestion failed; using bold style", "thumbnail_ai_fallback",
			logging.Error(err),
			logging.String(logging.FieldImpact, "thumbnail rendered with bold defaults"),
			logging.String(logging.FieldErrorHint, "check llm provider credentials and that the model accepts images"),
		)
		return r.renderBold(canvas, title)
	}
	return r.grade(canvas, c, sat, con)
}

func (r *Renderer) suggest(ctx context.Context, canvas *image.NRGBA, title string) (caption, float64, float64, error) {
	c := boldCaption(title)
	if r.opts.Vision == nil {
		return c, 0, 0, errors.New("no vision model configured")
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: 85}); err != nil {
		return c, 0, 0, fmt.Errorf("encode frame for model: %w", err)
	}
	reply, err := r.opts.Vision.CompleteVisionJSON(ctx, suggestSystemPrompt, suggestPrompt(title), buf.Bytes(), "image/jpeg")
	if err != nil {
		return c, 0, 0, err
	}
	var s suggestion
	if err := llm.DecodeLLMJSON(reply, &s); err != nil {
		return c, 0, 0, fmt.Errorf("decode suggestion: %w", err)
	}
	return s.apply(c)
}

// apply merges s over the bold caption and returns clamped grading factors.
func (s suggestion) apply(c caption) (caption, float64, float64, error) {
	if text := strings.TrimSpace(s.OverlayText); text != "" {
		c.Text = textutil.OverlayText(text, captionWords)
	}
	if s.TextColor != "" {
		fill, err := parseHexColor(s.TextColor)
		if err != nil {
			return c, 0, 0, err
		}
		c.Fill = fill
	}
	switch pos := strings.ToLower(strings.TrimSpace(s.Position)); pos {
	case "":
	case positionTop, positionCenter, positionBottom:
		c.Position = pos
	default:
		return c, 0, 0, fmt.Errorf("unknown caption position %q", s.Position)
	}
	return c, factor(s.Saturation, boldSaturation), factor(s.Contrast, boldContrast), nil
}

func factor(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return min(max(*v, suggestMinFactor), suggestMaxFactor)
}

// parseHexColor accepts #RGB and #RRGGBB.
func parseHexColor(value string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(value), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.NRGBA{}, fmt.Errorf("invalid text color %q", value)
	}
	rgb, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid text color %q", value)
	}
	return color.NRGBA{R: uint8(rgb >> 16), G: uint8(rgb >> 8), B: uint8(rgb), A: 0xFF}, nil
}
