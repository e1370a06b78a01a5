package artwork

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// Enhancement factors applied to every cover.
const (
	sharpenSigma     = 1.0
	sharpenPercent   = 120
	sharpenThreshold = 3
	contrastFactor   = 1.10
	colorFactor      = 1.05
	brightnessFactor = 1.02
)

// Enhance applies a light unsharp mask followed by contrast, saturation and
// brightness boosts.
func Enhance(img *image.NRGBA) *image.NRGBA {
	img = UnsharpMask(img, sharpenSigma, sharpenPercent, sharpenThreshold)
	img = AdjustContrast(img, contrastFactor)
	img = AdjustColor(img, colorFactor)
	return AdjustBrightness(img, brightnessFactor)
}

// UnsharpMask adds percent% of the difference between img and its Gaussian
// blur, skipping channels whose difference is below threshold.
func UnsharpMask(img *image.NRGBA, sigma float64, percent, threshold int) *image.NRGBA {
	blurred := imaging.Blur(img, sigma)
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))

	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			si := img.PixOffset(b.Min.X+x, b.Min.Y+y)
			bi := blurred.PixOffset(x, y)
			di := out.PixOffset(x, y)
			for c := 0; c < 3; c++ {
				orig := int(img.Pix[si+c])
				diff := orig - int(blurred.Pix[bi+c])
				if diff < threshold && -diff < threshold {
					out.Pix[di+c] = uint8(orig)
					continue
				}
				out.Pix[di+c] = clamp(float64(orig) + float64(diff*percent)/100)
			}
			out.Pix[di+3] = img.Pix[si+3]
		}
	}
	return out
}

// AdjustContrast blends img against its mean luma.
func AdjustContrast(img *image.NRGBA, factor float64) *image.NRGBA {
	b := img.Bounds()
	total := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			i := img.PixOffset(x, y)
			total += luma(img.Pix[i], img.Pix[i+1], img.Pix[i+2])
		}
	}
	n := b.Dx() * b.Dy()
	if n == 0 {
		return img
	}
	mean := math.Floor(float64(total)/float64(n) + 0.5)

	return blend(img, factor, func(_, _, _ uint8) float64 { return mean })
}

// AdjustColor blends img against its own grayscale, scaling saturation.
func AdjustColor(img *image.NRGBA, factor float64) *image.NRGBA {
	return blend(img, factor, func(r, g, b uint8) float64 { return float64(luma(r, g, b)) })
}

// AdjustBrightness blends img against black.
func AdjustBrightness(img *image.NRGBA, factor float64) *image.NRGBA {
	return blend(img, factor, func(_, _, _ uint8) float64 { return 0 })
}

// blend computes base + (p - base) * factor per channel, where base is the
// degenerate grey value for the pixel.
func blend(img *image.NRGBA, factor float64, base func(r, g, b uint8) float64) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))

	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			si := img.PixOffset(b.Min.X+x, b.Min.Y+y)
			di := out.PixOffset(x, y)
			r, g, bl := img.Pix[si], img.Pix[si+1], img.Pix[si+2]
			d := base(r, g, bl)
			out.Pix[di] = clamp(d + (float64(r)-d)*factor)
			out.Pix[di+1] = clamp(d + (float64(g)-d)*factor)
			out.Pix[di+2] = clamp(d + (float64(bl)-d)*factor)
			out.Pix[di+3] = img.Pix[si+3]
		}
	}
	return out
}

func clamp(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v + 0.5)
	}
}

// ResizeSquare scales img to size×size with a Lanczos-3 filter. Images already
// at that size are returned as is.
func ResizeSquare(img *image.NRGBA, size int) *image.NRGBA {
	b := img.Bounds()
	if b.Dx() == size && b.Dy() == size {
		return img
	}
	return imaging.Resize(img, size, size, imaging.Lanczos)
}
