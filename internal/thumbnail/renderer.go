package thumbnail

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	_ "image/png" // frames may be PNG when supplied explicitly
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/google/renameio/v2"

	"onemin/internal/logging"
	"onemin/internal/services"
	"onemin/internal/textutil"
)

const (
	captionWords      = 4
	captionFontSize   = 80
	captionMinSize    = 36
	captionBottomPad  = 80
	captionStroke     = 4
	captionSidePad    = 40
	boldSaturation    = 1.3
	boldContrast      = 1.2
	vignetteIntensity = 0.3
	minimalSaturation = 1.1
)

var (
	captionColor  = color.NRGBA{R: 0xFF, G: 0xFF, B: 0x00, A: 0xFF}
	strokeColor   = color.NRGBA{A: 0xFF}
	fallbackColor = color.NRGBA{R: 0x1A, G: 0x1A, B: 0x2E, A: 0xFF}
)

// Options configures rendering.
type Options struct {
	Style    string
	FontPath string
	Quality  int
	// Vision serves StyleAI. Without it the ai style renders as bold.
	Vision Vision
}

// Renderer turns a video frame into a 1280x720 JPEG thumbnail.
type Renderer struct {
	opts   Options
	font   *truetype.Font
	logger *slog.Logger
}

// NewRenderer loads the caption font. A configured font that cannot be loaded
// is logged and replaced with the embedded face.
func NewRenderer(opts Options, logger *slog.Logger) *Renderer {
	if opts.Style == "" {
		opts.Style = StyleBold
	}
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = 90
	}
	r := &Renderer{opts: opts, logger: logging.NewComponentLogger(logger, "thumbnail")}
	f, err := loadFont(opts.FontPath)
	if err != nil {
		logging.WarnWithContext(r.logger, "caption font unavailable", "thumbnail_font",
			logging.String("font_path", opts.FontPath),
			logging.Error(err),
			logging.String(logging.FieldImpact, "using embedded Go Bold face"),
			logging.String(logging.FieldErrorHint, "check thumbnail.font_path"),
		)
		f, _ = loadFont("")
	}
	r.font = f
	return r
}

// Style reports the configured style.
func (r *Renderer) Style() string {
	return r.opts.Style
}

// Render writes a thumbnail for frame to out. Rendering errors never surface:
// the deterministic title card is written instead and the artifact is marked
// Fallback. An error is returned only when not even the title card can be
// written.
func (r *Renderer) Render(ctx context.Context, frame, title, out string) (*Artifact, error) {
	logger := logging.WithContext(ctx, r.logger)
	artifact := &Artifact{Path: out, SourceFrame: frame, Style: r.opts.Style}

	img, err := r.renderStyled(ctx, frame, title)
	if err == nil {
		err = r.write(img, out)
	}
	if err == nil {
		logger.Info("thumbnail rendered",
			logging.String("style", r.opts.Style),
			logging.String("source_frame", filepath.Base(frame)),
			logging.String("path", out),
		)
		return artifact, nil
	}

	logging.WarnWithContext(logger, "thumbnail style failed; writing title card", "thumbnail_fallback",
		logging.String("style", r.opts.Style),
		logging.String("source_frame", frame),
		logging.Error(err),
		logging.String(logging.FieldImpact, "thumbnail uses plain title card"),
		logging.String(logging.FieldErrorHint, "check the source frame is a readable JPEG or PNG"),
	)
	artifact.Fallback = true
	if err := r.write(r.renderFallback(title), out); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "thumbnail", "write", "Write fallback thumbnail", err)
	}
	return artifact, nil
}

func (r *Renderer) renderStyled(ctx context.Context, frame, title string) (image.Image, error) {
	src, err := decodeImage(frame)
	if err != nil {
		return nil, err
	}
	canvas := fitFrame(src)
	switch r.opts.Style {
	case StyleMinimal:
		return saturate(canvas, minimalSaturation), nil
	case StyleBold:
		return r.renderBold(canvas, title), nil
	case StyleAI:
		return r.renderAI(ctx, canvas, title), nil
	default:
		return nil, fmt.Errorf("unknown thumbnail style %q", r.opts.Style)
	}
}

func (r *Renderer) renderBold(canvas *image.NRGBA, title string) image.Image {
	return r.grade(canvas, boldCaption(title), boldSaturation, boldContrast)
}

func (r *Renderer) grade(canvas *image.NRGBA, c caption, sat, con float64) image.Image {
	canvas = saturate(canvas, sat)
	contrast(canvas, con)
	vignette(canvas, vignetteIntensity)
	return r.drawCaption(canvas, c)
}

// caption is overlay text with its fill and vertical placement.
type caption struct {
	Text     string
	Fill     color.Color
	Position string
}

func boldCaption(title string) caption {
	return caption{Text: textutil.OverlayText(title, captionWords), Fill: captionColor, Position: positionBottom}
}

const (
	positionTop    = "top"
	positionCenter = "center"
	positionBottom = "bottom"
	captionTopPad  = 50
)

// drawCaption centres text horizontally with a thick outline. The font
// shrinks until the caption fits the canvas width.
func (r *Renderer) drawCaption(img image.Image, c caption) image.Image {
	text := c.Text
	dc := gg.NewContextForImage(img)
	if text == "" {
		return dc.Image()
	}
	size := float64(captionFontSize)
	dc.SetFontFace(newFace(r.font, size))
	for size > captionMinSize {
		w, _ := dc.MeasureString(text)
		if w <= Width-2*captionSidePad {
			break
		}
		size -= 4
		dc.SetFontFace(newFace(r.font, size))
	}
	x := float64(Width) / 2
	y, ay := float64(Height-captionBottomPad), 0.0
	switch c.Position {
	case positionTop:
		y, ay = captionTopPad, 1
	case positionCenter:
		y, ay = float64(Height)/2, 0.5
	}

	dc.SetColor(strokeColor)
	for dx := -captionStroke; dx <= captionStroke; dx++ {
		for dy := -captionStroke; dy <= captionStroke; dy++ {
			if dx == 0 && dy == 0 {
				continue
			}
			dc.DrawStringAnchored(text, x+float64(dx), y+float64(dy), 0.5, ay)
		}
	}
	dc.SetColor(c.Fill)
	dc.DrawStringAnchored(text, x, y, 0.5, ay)
	return dc.Image()
}

// renderFallback draws the title in white on a solid background. Output
// depends only on the title.
func (r *Renderer) renderFallback(title string) image.Image {
	dc := gg.NewContext(Width, Height)
	dc.SetColor(fallbackColor)
	dc.Clear()
	if title == "" {
		return dc.Image()
	}
	dc.SetFontFace(newFace(r.font, 64))
	dc.SetColor(color.White)
	dc.DrawStringWrapped(textutil.Truncate(title, 100), Width/2, Height/2, 0.5, 0.5, Width-2*captionSidePad*2, 1.3, gg.AlignCenter)
	return dc.Image()
}

func (r *Renderer) write(img image.Image, out string) error {
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("create thumbnail dir: %w", err)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: r.opts.Quality}); err != nil {
		return fmt.Errorf("encode jpeg: %w", err)
	}
	return renameio.WriteFile(out, buf.Bytes(), 0o644)
}

func decodeImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open frame: %w", err)
	}
	defer file.Close()
	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return img, nil
}
