package thumbnail

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// fitFrame scales src to the thumbnail canvas with Lanczos resampling.
// Aspect ratio is not preserved, matching how stills are stretched to 16:9.
func fitFrame(src image.Image) *image.NRGBA {
	return imaging.Resize(src, Width, Height, imaging.Lanczos)
}

func clamp8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}

func luma(c color.NRGBA) float64 {
	return 0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)
}

// saturate returns img with colourfulness scaled by factor; 1 is a no-op.
func saturate(img *image.NRGBA, factor float64) *image.NRGBA {
	pct := math.Max(-100, math.Min(100, (factor-1)*100))
	if pct == 0 {
		return img
	}
	return imaging.AdjustSaturation(img, pct)
}

// contrast scales each channel away from the image's mean luminance.
func contrast(img *image.NRGBA, factor float64) {
	b := img.Bounds()
	var total float64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			total += luma(img.NRGBAAt(x, y))
		}
	}
	pixels := float64(b.Dx() * b.Dy())
	if pixels == 0 {
		return
	}
	mean := total / pixels
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := img.NRGBAAt(x, y)
			img.SetNRGBA(x, y, color.NRGBA{
				R: clamp8(mean + (float64(c.R)-mean)*factor),
				G: clamp8(mean + (float64(c.G)-mean)*factor),
				B: clamp8(mean + (float64(c.B)-mean)*factor),
				A: c.A,
			})
		}
	}
}

// vignette darkens toward the corners. At the corner a pixel is blended
// intensity of the way toward half brightness; the centre is untouched.
func vignette(img *image.NRGBA, intensity float64) {
	b := img.Bounds()
	cx := float64(b.Min.X+b.Max.X) / 2
	cy := float64(b.Min.Y+b.Max.Y) / 2
	maxDist := math.Hypot(cx-float64(b.Min.X), cy-float64(b.Min.Y))
	if maxDist == 0 {
		return
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			d := math.Hypot(float64(x)-cx, float64(y)-cy) / maxDist
			keep := 1 - intensity*d*d
			scale := keep + (1-keep)*0.5
			c := img.NRGBAAt(x, y)
			img.SetNRGBA(x, y, color.NRGBA{
				R: clamp8(float64(c.R) * scale),
				G: clamp8(float64(c.G) * scale),
				B: clamp8(float64(c.B) * scale),
				A: c.A,
			})
		}
	}
}
