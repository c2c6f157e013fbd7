package thumbnail

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"
)

func writeFrame(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 120, A: 255})
		}
	}
	path := filepath.Join(t.TempDir(), "frame_000.jpg")
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode frame: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write frame: %v", err)
	}
	return path
}

func decodeOutput(t *testing.T, path string) image.Image {
	t.Helper()
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer file.Close()
	img, err := jpeg.Decode(file)
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	return img
}

func TestRenderStyles(t *testing.T) {
	for _, style := range []string{StyleBold, StyleMinimal} {
		t.Run(style, func(t *testing.T) {
			frame := writeFrame(t, 640, 360)
			out := filepath.Join(t.TempDir(), "nested", "thumbnail.jpg")
			r := NewRenderer(Options{Style: style}, nil)

			artifact, err := r.Render(context.Background(), frame, "I tried the craziest kickflip ever", out)
			if err != nil {
				t.Fatalf("Render returned error: %v", err)
			}
			if artifact.Fallback {
				t.Fatal("did not expect fallback")
			}
			if artifact.Style != style || artifact.SourceFrame != frame || artifact.Path != out {
				t.Fatalf("unexpected artifact %+v", artifact)
			}
			bounds := decodeOutput(t, out).Bounds()
			if bounds.Dx() != Width || bounds.Dy() != Height {
				t.Fatalf("unexpected size %dx%d", bounds.Dx(), bounds.Dy())
			}
		})
	}
}

func TestSaturateBoostsColour(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 160, G: 100, B: 100, A: 255})
		}
	}
	out := saturate(img, 1.5)
	before, after := img.NRGBAAt(0, 0), out.NRGBAAt(0, 0)
	if int(after.R)-int(after.G) <= int(before.R)-int(before.G) {
		t.Fatalf("expected wider channel spread, before %+v after %+v", before, after)
	}
	if saturate(img, 1) != img {
		t.Fatal("expected factor 1 to return the input unchanged")
	}
}

func TestFitFrameStretchesToCanvas(t *testing.T) {
	canvas := fitFrame(image.NewNRGBA(image.Rect(0, 0, 100, 100)))
	if b := canvas.Bounds(); b.Dx() != Width || b.Dy() != Height {
		t.Fatalf("unexpected canvas %v", b)
	}
}

func TestRenderFallsBackOnUnreadableFrame(t *testing.T) {
	dir := t.TempDir()
	broken := filepath.Join(dir, "broken.jpg")
	if err := os.WriteFile(broken, []byte("not an image"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	r := NewRenderer(Options{Style: StyleBold}, nil)

	for _, frame := range []string{broken, filepath.Join(dir, "missing.jpg")} {
		out := filepath.Join(t.TempDir(), "thumb.jpg")
		artifact, err := r.Render(context.Background(), frame, "Title", out)
		if err != nil {
			t.Fatalf("Render returned error: %v", err)
		}
		if !artifact.Fallback {
			t.Fatalf("expected fallback for %s", frame)
		}
		bounds := decodeOutput(t, out).Bounds()
		if bounds.Dx() != Width || bounds.Dy() != Height {
			t.Fatalf("unexpected fallback size %v", bounds)
		}
	}
}

func TestFallbackIsDeterministic(t *testing.T) {
	r := NewRenderer(Options{Style: StyleBold}, nil)
	a := filepath.Join(t.TempDir(), "a.jpg")
	b := filepath.Join(t.TempDir(), "b.jpg")
	if _, err := r.Render(context.Background(), "/nonexistent.jpg", "Same Title", a); err != nil {
		t.Fatalf("render a: %v", err)
	}
	if _, err := r.Render(context.Background(), "/nonexistent.jpg", "Same Title", b); err != nil {
		t.Fatalf("render b: %v", err)
	}
	da, _ := os.ReadFile(a)
	db, _ := os.ReadFile(b)
	if !bytes.Equal(da, db) {
		t.Fatal("expected identical fallback output")
	}
}

func TestUnknownFontFallsBackToEmbedded(t *testing.T) {
	r := NewRenderer(Options{FontPath: filepath.Join(t.TempDir(), "missing.ttf")}, nil)
	if r.font == nil {
		t.Fatal("expected embedded font")
	}
	if r.Style() != StyleBold {
		t.Fatalf("expected default style bold, got %q", r.Style())
	}
}

func TestSelectFrame(t *testing.T) {
	frames := []string{"f0", "f1", "f2"}
	cases := []struct {
		name      string
		suggested int
		explicit  string
		want      string
	}{
		{name: "in range", suggested: 1, want: "f1"},
		{name: "clamped high", suggested: 9, want: "f2"},
		{name: "clamped low", suggested: -2, want: "f0"},
		{name: "explicit wins", suggested: 1, explicit: "custom.jpg", want: "custom.jpg"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := SelectFrame(frames, tc.suggested, tc.explicit)
			if !ok || got != tc.want {
				t.Fatalf("SelectFrame = %q, %v; want %q", got, ok, tc.want)
			}
		})
	}
	if _, ok := SelectFrame(nil, 0, ""); ok {
		t.Fatal("expected no frame for empty list")
	}
}

func TestEffectsPreserveNeutralGrey(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 128, G: 128, B: 128, A: 255})
		}
	}
	img = saturate(img, 1.3)
	contrast(img, 1.2)
	if c := img.NRGBAAt(1, 1); c.R != 128 || c.G != 128 || c.B != 128 {
		t.Fatalf("expected grey unchanged, got %+v", c)
	}
}
