// Package videotest provides in-memory implementations of the video
// interfaces for tests that should not depend on ffmpeg.
package videotest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/backmassage/clipsweep/internal/video"
)

// Solid returns a w×h frame filled with one BGR colour.
func Solid(w, h int, b, g, r byte) *video.Frame {
	f := video.NewFrame(w, h)
	f.Fill(video.Rect{X2: w, Y2: h}, b, g, r)
	return f
}

// WithBlock returns a copy of base with a white square of side size at (x, y).
func WithBlock(base *video.Frame, x, y, size int) *video.Frame {
	f := base.Clone()
	f.Fill(video.Rect{X1: x, Y1: y, X2: x + size, Y2: y + size}, 255, 255, 255)
	return f
}

// Clip is an in-memory clip. Info is filled in from the frames when zero.
type Clip struct {
	Info    video.ClipInfo
	Frames  []*video.Frame
	OpenErr error // Returned by Open.
	ReadErr error // Returned instead of io.EOF after the last frame.
}

// Static returns a clip of n identical frames.
func Static(w, h, n int, fps float64) *Clip {
	frames := make([]*video.Frame, n)
	base := Solid(w, h, 40, 80, 120)
	for i := range frames {
		frames[i] = base
	}
	return &Clip{Info: video.ClipInfo{FPS: fps}, Frames: frames}
}

// Moving returns a clip of n frames with a 60 px white square sliding right
// across a dark background.
func Moving(w, h, n int, fps float64) *Clip {
	frames := make([]*video.Frame, n)
	base := Solid(w, h, 20, 20, 20)
	for i := range frames {
		x := (i * 70) % max(1, w-60)
		frames[i] = WithBlock(base, x, h/2-30, 60)
	}
	return &Clip{Info: video.ClipInfo{FPS: fps}, Frames: frames}
}

// Opener serves clips registered with Add. It is safe for concurrent use.
type Opener struct {
	mu    sync.Mutex
	clips map[string]*Clip
	opens map[string][]video.DecodeOptions
}

// NewOpener returns an empty Opener.
func NewOpener() *Opener {
	return &Opener{clips: map[string]*Clip{}, opens: map[string][]video.DecodeOptions{}}
}

// Add registers c under path.
func (o *Opener) Add(path string, c *Clip) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.clips[path] = c
}

// Opens returns the options of every Open call for path.
func (o *Opener) Opens(path string) []video.DecodeOptions {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]video.DecodeOptions(nil), o.opens[path]...)
}

func (o *Opener) Open(ctx context.Context, path string, opts video.DecodeOptions) (video.Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	o.mu.Lock()
	c, ok := o.clips[path]
	o.opens[path] = append(o.opens[path], opts)
	o.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("open %s: %w", path, fs.ErrNotExist)
	}
	if c.OpenErr != nil {
		return nil, c.OpenErr
	}

	frames := c.Frames
	if opts.Fit() {
		frames = make([]*video.Frame, len(c.Frames))
		for i, f := range c.Frames {
			frames[i] = letterbox(f, opts.FitWidth, opts.FitHeight)
		}
	}

	info := c.Info
	info.Path = path
	if info.FrameCount == 0 {
		info.FrameCount = len(frames)
	}
	if len(frames) > 0 {
		info.Width, info.Height = frames[0].Width, frames[0].Height
	}
	if info.Duration == 0 && info.FPS > 0 {
		info.Duration = durationOf(info.FrameCount, info.FPS)
	}
	return &reader{info: info, frames: frames, readErr: c.ReadErr}, nil
}

// letterbox copies f centred into a black w×h frame, cropping what does not fit.
func letterbox(f *video.Frame, w, h int) *video.Frame {
	out := video.NewFrame(w, h)
	offX, offY := (w-f.Width)/2, (h-f.Height)/2
	for y := range f.Height {
		ty := y + offY
		if ty < 0 || ty >= h {
			continue
		}
		for x := range f.Width {
			tx := x + offX
			if tx < 0 || tx >= w {
				continue
			}
			copy(out.Pix[(ty*w+tx)*3:(ty*w+tx)*3+3], f.Pix[(y*f.Width+x)*3:])
		}
	}
	return out
}

type reader struct {
	info    video.ClipInfo
	frames  []*video.Frame
	next    int
	readErr error
	closed  bool
}

func (r *reader) Info() video.ClipInfo { return r.info }

func (r *reader) ReadFrame() (*video.Frame, error) {
	if r.closed {
		return nil, errors.New("videotest: read after close")
	}
	if r.next >= len(r.frames) {
		if r.readErr != nil {
			return nil, r.readErr
		}
		return nil, io.EOF
	}
	f := r.frames[r.next]
	r.next++
	return f, nil
}

func (r *reader) Close() error {
	r.closed = true
	return nil
}

// Encoder records written frames per output path. Codecs listed in Fail
// cannot be opened. The output file is created on disk so callers that stat
// or rename it behave as with a real encoder.
type Encoder struct {
	Fail map[video.Codec]error

	mu      sync.Mutex
	written map[string]*Writer
}

func (e *Encoder) Create(ctx context.Context, path string, spec video.WriterSpec) (video.Writer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := e.Fail[spec.Codec]; err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w := &Writer{Spec: spec, file: f}
	e.mu.Lock()
	if e.written == nil {
		e.written = map[string]*Writer{}
	}
	e.written[path] = w
	e.mu.Unlock()
	return w, nil
}

// Output returns the writer last created for path, or nil.
func (e *Encoder) Output(path string) *Writer {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.written[path]
}

// Writer keeps every frame it is given.
type Writer struct {
	Spec   video.WriterSpec
	Frames []*video.Frame
	Closed bool
	file   *os.File
}

func (w *Writer) WriteFrame(f *video.Frame) error {
	if w.Closed {
		return errors.New("videotest: write after close")
	}
	if f.Width != w.Spec.Width || f.Height != w.Spec.Height {
		return fmt.Errorf("videotest: frame %dx%d, writer %dx%d", f.Width, f.Height, w.Spec.Width, w.Spec.Height)
	}
	w.Frames = append(w.Frames, f)
	_, err := w.file.Write(f.Pix[:min(len(f.Pix), 16)])
	return err
}

func (w *Writer) Close() error {
	w.Closed = true
	return w.file.Close()
}

func durationOf(frames int, fps float64) time.Duration {
	return time.Duration(float64(frames) / fps * float64(time.Second))
}

// Info reports what Open would return for path without reading frames. It
// has the shape of ffmpeg.InfoFunc.
func (o *Opener) Info(ctx context.Context, path string) (video.ClipInfo, error) {
	r, err := o.Open(ctx, path, video.DecodeOptions{})
	if err != nil {
		return video.ClipInfo{}, err
	}
	defer r.Close()
	return r.Info(), nil
}
