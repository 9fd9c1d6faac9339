package video

import (
	"context"
	"fmt"
	"time"
)

// Frame is a single decoded picture in packed BGR24 order.
type Frame struct {
	Width  int
	Height int
	Pix    []byte
}

// NewFrame allocates a black frame of the given size.
func NewFrame(w, h int) *Frame {
	return &Frame{Width: w, Height: h, Pix: make([]byte, w*h*3)}
}

// FrameSize returns the byte length of a BGR24 frame of w×h.
func FrameSize(w, h int) int { return w * h * 3 }

// Clone returns a deep copy of f.
func (f *Frame) Clone() *Frame {
	c := &Frame{Width: f.Width, Height: f.Height, Pix: make([]byte, len(f.Pix))}
	copy(c.Pix, f.Pix)
	return c
}

// Fill sets every pixel in r (clamped to the frame) to the given colour.
func (f *Frame) Fill(r Rect, b, g, red byte) {
	r = r.Clamp(f.Width, f.Height)
	for y := r.Y1; y < r.Y2; y++ {
		row := y * f.Width * 3
		for x := r.X1; x < r.X2; x++ {
			i := row + x*3
			f.Pix[i], f.Pix[i+1], f.Pix[i+2] = b, g, red
		}
	}
}

// Rect is an axis-aligned pixel rectangle [X1,X2) × [Y1,Y2). It is used as
// the mask region that hides a burned-in timestamp overlay.
type Rect struct {
	X1, Y1, X2, Y2 int
}

// Valid reports whether the corners are ordered and non-negative.
func (r Rect) Valid() bool {
	return r.X1 >= 0 && r.Y1 >= 0 && r.X1 <= r.X2 && r.Y1 <= r.Y2
}

// Clamp clips r to a w×h frame.
func (r Rect) Clamp(w, h int) Rect {
	return Rect{
		X1: clamp(r.X1, 0, w),
		Y1: clamp(r.Y1, 0, h),
		X2: clamp(r.X2, 0, w),
		Y2: clamp(r.Y2, 0, h),
	}
}

// Area returns the pixel count covered by r; zero for an invalid rect.
func (r Rect) Area() int {
	if !r.Valid() {
		return 0
	}
	return (r.X2 - r.X1) * (r.Y2 - r.Y1)
}

// Contains reports whether pixel (x, y) lies inside r.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X1 && x < r.X2 && y >= r.Y1 && y < r.Y2
}

func (r Rect) String() string {
	return fmt.Sprintf("(%d,%d)-(%d,%d)", r.X1, r.Y1, r.X2, r.Y2)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClipInfo describes an opened clip.
type ClipInfo struct {
	Path       string
	Width      int
	Height     int
	FPS        float64
	FrameCount int
	Duration   time.Duration
}

// Resolution returns "WxH".
func (c ClipInfo) Resolution() string {
	return fmt.Sprintf("%dx%d", c.Width, c.Height)
}

// Codec selects the encoder used for the concatenated output.
type Codec string

const (
	CodecH264  Codec = "h264"  // Primary.
	CodecMPEG4 Codec = "mpeg4" // Fallback when H.264 cannot be opened.
)

// DecodeOptions adjusts how a clip is decoded. When FitWidth and FitHeight
// are set, frames are scaled preserving aspect ratio and padded to exactly
// that size.
type DecodeOptions struct {
	FitWidth  int
	FitHeight int
}

// Fit reports whether letterboxing was requested.
func (o DecodeOptions) Fit() bool { return o.FitWidth > 0 && o.FitHeight > 0 }

// Reader yields the frames of one clip in order. ReadFrame returns io.EOF
// after the last frame. Each Reader owns a private decode handle.
type Reader interface {
	Info() ClipInfo
	ReadFrame() (*Frame, error)
	Close() error
}

// Opener opens clips for sequential decoding.
type Opener interface {
	Open(ctx context.Context, path string, opts DecodeOptions) (Reader, error)
}

// WriterSpec is the geometry and codec of an output stream.
type WriterSpec struct {
	Codec  Codec
	Width  int
	Height int
	FPS    float64
}

// Writer appends frames to an output file. Close finalizes the container.
type Writer interface {
	WriteFrame(f *Frame) error
	Close() error
}

// Encoder creates writers. Create fails when the codec cannot be opened.
type Encoder interface {
	Create(ctx context.Context, path string, spec WriterSpec) (Writer, error)
}
