package artwork

import (
	"image"

	"github.com/disintegration/imaging"
)

const (
	// blackThreshold is the mean luma a row or column must exceed to count as content.
	blackThreshold = 25
	// barMargin is the fraction of a side a bar must cover before cropping.
	barMargin = 0.05
)

// luma is the BT.601 integer luminance of an RGB triple.
func luma(r, g, b uint8) int {
	return (299*int(r) + 587*int(g) + 114*int(b)) / 1000
}

// AutoCropBlackBars removes dark letterbox or pillarbox bars. Rows and columns
// whose mean luma exceeds blackThreshold are content; the image is cropped to
// the content bounding box only when a bar exceeds barMargin of a side.
func AutoCropBlackBars(img *image.NRGBA) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return img
	}

	rowSum := make([]int, h)
	colSum := make([]int, w)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := img.PixOffset(b.Min.X+x, b.Min.Y+y)
			l := luma(img.Pix[i], img.Pix[i+1], img.Pix[i+2])
			rowSum[y] += l
			colSum[x] += l
		}
	}

	top, bottom, ok := contentSpan(rowSum, w)
	if !ok {
		return img
	}
	left, right, ok := contentSpan(colSum, h)
	if !ok {
		return img
	}

	if float64(top) > float64(h)*barMargin ||
		float64(bottom) < float64(h)*(1-barMargin) ||
		float64(left) > float64(w)*barMargin ||
		float64(right) < float64(w)*(1-barMargin) {
		return imaging.Crop(img, image.Rect(b.Min.X+left, b.Min.Y+top, b.Min.X+right+1, b.Min.Y+bottom+1))
	}
	return img
}

// contentSpan returns the first and last index whose mean exceeds blackThreshold.
func contentSpan(sums []int, n int) (first, last int, ok bool) {
	first, last = -1, -1
	for i, s := range sums {
		if float64(s)/float64(n) > blackThreshold {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	return first, last, first >= 0
}
