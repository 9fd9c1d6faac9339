package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/backmassage/clipsweep/internal/probe"
	"github.com/backmassage/clipsweep/internal/video"
)

// InfoFunc reports the geometry and timing of a clip before decoding.
type InfoFunc func(ctx context.Context, path string) (video.ClipInfo, error)

// Decoder opens clips by streaming them through an ffmpeg process. It is
// safe for concurrent use; every Open starts a private process.
type Decoder struct {
	bin  string
	info InfoFunc
}

// NewDecoder returns a Decoder running bin (DefaultBinary when empty) and
// using info (ffprobe when nil) to learn frame geometry.
func NewDecoder(bin string, info InfoFunc) *Decoder {
	if bin == "" {
		bin = DefaultBinary
	}
	if info == nil {
		info = probe.Info
	}
	return &Decoder{bin: bin, info: info}
}

// Open probes path and starts decoding it.
func (d *Decoder) Open(ctx context.Context, path string, opts video.DecodeOptions) (video.Reader, error) {
	info, err := d.info(ctx, path)
	if err != nil {
		return nil, err
	}
	if opts.Fit() {
		info.Width, info.Height = opts.FitWidth, opts.FitHeight
	}
	if info.Width <= 0 || info.Height <= 0 {
		return nil, fmt.Errorf("%s: invalid frame size %s", filepath.Base(path), info.Resolution())
	}

	ctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx, d.bin, DecodeArgs(path, opts)...)
	r := &frameReader{ctx: ctx, cancel: cancel, cmd: cmd, info: info}
	cmd.Stderr = &r.stderr

	r.stdout, err = cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}
	return r, nil
}

// frameReader reads fixed-size BGR24 frames from a running ffmpeg.
type frameReader struct {
	ctx    context.Context
	cancel context.CancelFunc
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr bytes.Buffer
	info   video.ClipInfo

	frames   int
	finished bool // Stream ended on its own.
	closed   bool

	waitOnce sync.Once
	waitErr  error
}

func (r *frameReader) Info() video.ClipInfo { return r.info }

// ReadFrame returns the next frame or io.EOF. A truncated final frame is
// dropped. A process that fails before producing any frame is reported as
// an error, and so is cancellation, so a cut-short stream is never mistaken
// for a complete one.
func (r *frameReader) ReadFrame() (*video.Frame, error) {
	if r.closed {
		return nil, errors.New("read from closed decoder")
	}
	if r.finished {
		return nil, io.EOF
	}

	f := video.NewFrame(r.info.Width, r.info.Height)
	_, err := io.ReadFull(r.stdout, f.Pix)
	if err == nil {
		r.frames++
		return f, nil
	}
	if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("read frame %d: %w", r.frames, err)
	}

	r.finished = true
	r.wait()
	if cerr := r.ctx.Err(); cerr != nil {
		return nil, cerr
	}
	if r.frames == 0 && r.waitErr != nil {
		return nil, fmt.Errorf("ffmpeg decode: %w: %s", r.waitErr, Tail(r.stderr.String()))
	}
	return nil, io.EOF
}

func (r *frameReader) wait() {
	r.waitOnce.Do(func() { r.waitErr = r.cmd.Wait() })
}

// Close stops the process if it is still running. It reports the exit error
// only when the stream ended on its own.
func (r *frameReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	finished := r.finished
	r.cancel()
	r.wait()
	if finished && r.waitErr != nil && r.frames > 0 {
		return fmt.Errorf("ffmpeg decode exited: %w", r.waitErr)
	}
	return nil
}
