package artwork

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif" // GIF decoder
	"image/jpeg"
	_ "image/png" // PNG decoder

	"github.com/disintegration/imaging"
	libjpeg "github.com/pixiv/go-libjpeg/jpeg"
	"github.com/pixiv/go-libjpeg/rgb"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	_ "golang.org/x/image/webp" // WebP decoder
)

const (
	// DefaultCoverSize is the side length of normalized cover art.
	DefaultCoverSize = 1000
	// CoverQuality is the JPEG quality of normalized cover art.
	CoverQuality = 95
	// squareTolerance is the relative side difference still treated as square.
	squareTolerance = 0.1
)

// Normalizer turns an arbitrary thumbnail into square JPEG cover art.
type Normalizer struct {
	logger zerolog.Logger
	size   int
}

// NormalizerOption configures a Normalizer.
type NormalizerOption func(*Normalizer)

// WithLogger sets the logger used for stage diagnostics.
func WithLogger(logger zerolog.Logger) NormalizerOption {
	return func(n *Normalizer) {
		n.logger = logger
	}
}

// WithTargetSize overrides the output side length.
func WithTargetSize(size int) NormalizerOption {
	return func(n *Normalizer) {
		if size > 0 {
			n.size = size
		}
	}
}

// NewNormalizer creates a normalizer producing DefaultCoverSize covers.
func NewNormalizer(opts ...NormalizerOption) *Normalizer {
	n := &Normalizer{
		logger: log.Logger,
		size:   DefaultCoverSize,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// stage is a single image transformation in the normalization pipeline.
type stage struct {
	name string
	fn   func(*image.NRGBA) *image.NRGBA
}

// Normalize decodes data, crops black bars, enhances, squares, resizes and
// re-encodes it as JPEG. It never fails: if the image can't be decoded or
// encoded, the original bytes are returned unchanged.
func (n *Normalizer) Normalize(data []byte) (out []byte) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Warn().Interface("panic", r).Msg("Cover normalization aborted, keeping original image")
			out = data
		}
	}()

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		n.logger.Warn().Err(err).Int("bytes", len(data)).Msg("Failed to decode cover image, keeping original")
		return data
	}

	n.logger.Debug().
		Str("format", format).
		Int("width", src.Bounds().Dx()).
		Int("height", src.Bounds().Dy()).
		Msg("Normalizing cover image")

	img := toOpaqueNRGBA(src)

	stages := []stage{
		{"autocrop", AutoCropBlackBars},
		{"enhance", Enhance},
		{"square", Squareize},
		{"resize", func(img *image.NRGBA) *image.NRGBA { return ResizeSquare(img, n.size) }},
	}
	for _, s := range stages {
		img = n.run(s, img)
	}

	buf, err := n.encode(img)
	if err != nil {
		n.logger.Warn().Err(err).Msg("Failed to encode cover image, keeping original")
		return data
	}

	n.logger.Debug().
		Int("width", img.Bounds().Dx()).
		Int("height", img.Bounds().Dy()).
		Int("bytes", buf.Len()).
		Msg("Cover image normalized")

	return buf.Bytes()
}

// encode writes img as a progressive JPEG with optimized Huffman tables,
// falling back to a baseline encode when libjpeg fails.
func (n *Normalizer) encode(img *image.NRGBA) (*bytes.Buffer, error) {
	var buf bytes.Buffer
	err := libjpeg.Encode(&buf, toRGB(img), &libjpeg.EncoderOptions{
		Quality:         CoverQuality,
		OptimizeCoding:  true,
		ProgressiveMode: true,
	})
	if err == nil {
		return &buf, nil
	}

	n.logger.Warn().Err(err).Msg("Progressive JPEG encode failed, using baseline")
	buf.Reset()
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: CoverQuality}); err != nil {
		return nil, err
	}
	return &buf, nil
}

// toRGB packs an opaque NRGBA image into the three channel layout libjpeg reads.
func toRGB(img *image.NRGBA) *rgb.Image {
	b := img.Bounds()
	out := rgb.NewImage(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		src := img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):]
		dst := out.Pix[y*out.Stride:]
		for x := 0; x < b.Dx(); x++ {
			copy(dst[x*3:x*3+3], src[x*4:x*4+3])
		}
	}
	return out
}

// run applies one stage; a panicking stage passes its input through.
func (n *Normalizer) run(s stage, img *image.NRGBA) (out *image.NRGBA) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Warn().Str("stage", s.name).Str("panic", fmt.Sprint(r)).Msg("Cover stage failed, skipping")
			out = img
		}
	}()
	return s.fn(img)
}

// toOpaqueNRGBA converts any image to zero-based NRGBA with alpha dropped.
func toOpaqueNRGBA(src image.Image) *image.NRGBA {
	img := imaging.Clone(src)
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}
	return img
}

// Squareize center-crops img to a square when its sides differ by more than
// 10% of the shorter side.
func Squareize(img *image.NRGBA) *image.NRGBA {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	side := min(w, h)
	if float64(abs(w-h)) <= float64(side)*squareTolerance {
		return img
	}
	left := (w - side) / 2
	top := (h - side) / 2
	o := img.Bounds().Min
	return imaging.Crop(img, image.Rect(o.X+left, o.Y+top, o.X+left+side, o.Y+top+side))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
