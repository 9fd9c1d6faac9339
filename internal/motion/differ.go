package motion

import (
	"fmt"

	"github.com/backmassage/clipsweep/internal/video"
)

// Fixed tuning constants, not exposed through configuration.
const (
	BlurKernel       = 21
	BinarizeLevel    = 25
	DilateIterations = 2
)

// Plane is a masked, blurred single-channel luminance image ready for
// comparison. The mask is the clamped rectangle applied when it was built.
type Plane struct {
	Width  int
	Height int
	Pix    []uint8
	Mask   video.Rect
}

// Diff is the outcome of comparing two planes.
type Diff struct {
	Pixels int     // Changed pixels after binarize + dilate, mask excluded.
	Ratio  float64 // Pixels as a percentage of the comparable (unmasked) area.
}

// Prepare masks, converts and blurs a frame. The input frame is not modified.
func Prepare(f *video.Frame, mask video.Rect) *Plane {
	if len(f.Pix) != video.FrameSize(f.Width, f.Height) {
		panic(fmt.Sprintf("motion: frame buffer %d bytes, want %d for %dx%d",
			len(f.Pix), video.FrameSize(f.Width, f.Height), f.Width, f.Height))
	}
	m := mask.Clamp(f.Width, f.Height)
	gray := luminance(f, m)
	return &Plane{
		Width:  f.Width,
		Height: f.Height,
		Pix:    gaussianBlur(gray, f.Width, f.Height, BlurKernel),
		Mask:   m,
	}
}

// Compare differences two prepared planes. Planes of different sizes are a
// programming error and panic.
func Compare(a, b *Plane) Diff {
	if a.Width != b.Width || a.Height != b.Height {
		panic(fmt.Sprintf("motion: comparing %dx%d with %dx%d", a.Width, a.Height, b.Width, b.Height))
	}
	w, h := a.Width, a.Height

	changed := make([]uint8, w*h)
	for i := range changed {
		d := int(a.Pix[i]) - int(b.Pix[i])
		if d < 0 {
			d = -d
		}
		if d > BinarizeLevel {
			changed[i] = 1
		}
	}

	for range DilateIterations {
		changed = dilate3x3(changed, w, h)
	}

	mask := a.Mask
	count := 0
	for y := 0; y < h; y++ {
		row := y * w
		for x := 0; x < w; x++ {
			if changed[row+x] != 0 && !mask.Contains(x, y) {
				count++
			}
		}
	}

	area := w*h - mask.Area()
	var ratio float64
	if area > 0 {
		ratio = float64(count) / float64(area) * 100
	}
	return Diff{Pixels: count, Ratio: ratio}
}

// Difference compares two raw frames under mask. Both frames must share
// dimensions.
func Difference(a, b *video.Frame, mask video.Rect) (int, float64) {
	if a.Width != b.Width || a.Height != b.Height {
		panic(fmt.Sprintf("motion: frame sizes differ: %dx%d vs %dx%d", a.Width, a.Height, b.Width, b.Height))
	}
	d := Compare(Prepare(a, mask), Prepare(b, mask))
	return d.Pixels, d.Ratio
}

// luminance converts BGR24 to 8-bit luma with the BT.601 fixed-point weights,
// treating pixels inside mask as black.
func luminance(f *video.Frame, mask video.Rect) []uint8 {
	out := make([]uint8, f.Width*f.Height)
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			if mask.Contains(x, y) {
				continue
			}
			i := (y*f.Width + x) * 3
			b, g, r := int(f.Pix[i]), int(f.Pix[i+1]), int(f.Pix[i+2])
			out[y*f.Width+x] = uint8((r*4899 + g*9617 + b*1868 + 8192) >> 14)
		}
	}
	return out
}
