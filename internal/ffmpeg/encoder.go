package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/backmassage/clipsweep/internal/video"
)

// DefaultFPS is used when the reference clip reports no frame rate.
const DefaultFPS = 25.0

// Encoder creates output files by piping raw frames into ffmpeg. Encoder
// availability is tested once per codec and cached.
type Encoder struct {
	bin string

	mu      sync.Mutex
	checked map[video.Codec]error
}

// NewEncoder returns an Encoder running bin (DefaultBinary when empty).
func NewEncoder(bin string) *Encoder {
	if bin == "" {
		bin = DefaultBinary
	}
	return &Encoder{bin: bin, checked: make(map[video.Codec]error)}
}

// Available test-encodes one synthetic frame with c. A failure wraps
// ErrEncoderUnavailable.
func (e *Encoder) Available(ctx context.Context, c video.Codec) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err, ok := e.checked[c]; ok {
		return err
	}

	var err error
	res := Execute(ctx, e.bin, NullEncodeArgs(c), nil)
	if res.Err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err = fmt.Errorf("%s: %w: %s", EncoderName(c), ErrEncoderUnavailable, Tail(res.Stderr))
	}
	e.checked[c] = err
	return err
}

// Create starts an ffmpeg process writing to path.
func (e *Encoder) Create(ctx context.Context, path string, spec video.WriterSpec) (video.Writer, error) {
	if spec.Width <= 0 || spec.Height <= 0 {
		return nil, fmt.Errorf("invalid output size %dx%d", spec.Width, spec.Height)
	}
	if err := e.Available(ctx, spec.Codec); err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, e.bin, EncodeArgs(path, spec)...)
	w := &frameWriter{cmd: cmd, spec: spec, path: path}
	cmd.Stderr = &w.stderr

	var err error
	w.stdin, err = cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}
	return w, nil
}

type frameWriter struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr bytes.Buffer
	spec   video.WriterSpec
	path   string

	closeOnce sync.Once
	closeErr  error
}

func (w *frameWriter) WriteFrame(f *video.Frame) error {
	if f.Width != w.spec.Width || f.Height != w.spec.Height {
		return fmt.Errorf("frame %dx%d does not match output %dx%d",
			f.Width, f.Height, w.spec.Width, w.spec.Height)
	}
	if _, err := w.stdin.Write(f.Pix); err != nil {
		return fmt.Errorf("write frame to ffmpeg: %w", err)
	}
	return nil
}

// Close flushes the pipe and waits for ffmpeg to finalize the container.
func (w *frameWriter) Close() error {
	w.closeOnce.Do(func() {
		closeErr := w.stdin.Close()
		waitErr := w.cmd.Wait()
		if waitErr != nil {
			w.closeErr = fmt.Errorf("ffmpeg encode %s: %w: %s", w.path, waitErr, Tail(w.stderr.String()))
			return
		}
		if closeErr != nil && !errors.Is(closeErr, io.ErrClosedPipe) {
			w.closeErr = fmt.Errorf("close ffmpeg stdin: %w", closeErr)
		}
	})
	return w.closeErr
}
