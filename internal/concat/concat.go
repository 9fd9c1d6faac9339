package concat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"

	"github.com/backmassage/clipsweep/internal/naming"
	"github.com/backmassage/clipsweep/internal/video"
)

// ErrNoWriter is returned when neither the primary nor the fallback codec
// can be opened for the output.
var ErrNoWriter = errors.New("no usable video writer")

// codecs are tried in order when creating the output writer.
var codecs = []video.Codec{video.CodecH264, video.CodecMPEG4}

// Logger is the diagnostic sink used by the concatenator.
type Logger interface {
	Info(string, ...any)
	Success(string, ...any)
	Warn(string, ...any)
	Error(string, ...any)
	Debug(string, ...any)
}

// Compressor re-encodes src into dst. dst may be left partially written on
// error.
type Compressor interface {
	Compress(ctx context.Context, src, dst string) error
}

// Result describes a finished concatenation.
type Result struct {
	Output     string
	Codec      video.Codec
	Clips      int // Clips whose frames were written.
	Skipped    int // Clips that could not be opened.
	Fitted     int // Clips letterboxed to the reference size.
	Frames     int
	Compressed bool
}

// Concatenator writes clips back to back into one file. A nil Compressor
// disables the secondary pass.
type Concatenator struct {
	opener     video.Opener
	encoder    video.Encoder
	compressor Compressor
	log        Logger
}

// New returns a Concatenator.
func New(opener video.Opener, encoder video.Encoder, compressor Compressor, log Logger) *Concatenator {
	return &Concatenator{opener: opener, encoder: encoder, compressor: compressor, log: log}
}

// Concatenate sorts clips by time key and appends every frame of each to
// output, which is replaced if it exists. The first sorted clip sets the
// output size and frame rate. An empty clip list is a no-op.
func (c *Concatenator) Concatenate(ctx context.Context, clips []string, output string) (Result, error) {
	if len(clips) == 0 {
		c.log.Info("No clips to concatenate")
		return Result{}, nil
	}

	sorted := naming.SortByTimeKey(clips)
	ref, err := c.reference(ctx, sorted[0])
	if err != nil {
		return Result{}, err
	}
	c.log.Info("Output %s at %s, %.2f fps", filepath.Base(output), ref.Resolution(), ref.FPS)

	if err := os.Remove(output); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Result{}, fmt.Errorf("remove existing output: %w", err)
	}

	w, codec, err := c.createWriter(ctx, output, ref)
	if err != nil {
		return Result{}, err
	}

	res := Result{Output: output, Codec: codec}
	for _, clip := range sorted {
		if err := ctx.Err(); err != nil {
			c.abort(w, output)
			return res, err
		}
		n, err := c.appendClip(ctx, w, clip, ref, &res)
		res.Frames += n
		if err != nil {
			c.abort(w, output)
			return res, err
		}
	}

	if err := w.Close(); err != nil {
		_ = os.Remove(output)
		return res, fmt.Errorf("finalize %s: %w", filepath.Base(output), err)
	}
	c.log.Success("Concatenated %d clip(s), %d frames -> %s", res.Clips, res.Frames, output)

	if c.compressor != nil {
		res.Compressed = c.compress(ctx, output)
	}
	return res, nil
}

// reference opens the first clip to read the output geometry.
func (c *Concatenator) reference(ctx context.Context, path string) (video.ClipInfo, error) {
	r, err := c.opener.Open(ctx, path, video.DecodeOptions{})
	if err != nil {
		return video.ClipInfo{}, fmt.Errorf("open reference clip %s: %w", filepath.Base(path), err)
	}
	defer r.Close()
	return r.Info(), nil
}

// createWriter tries the primary codec, then the fallback.
func (c *Concatenator) createWriter(ctx context.Context, output string, ref video.ClipInfo) (video.Writer, video.Codec, error) {
	var errs []error
	for i, codec := range codecs {
		spec := video.WriterSpec{Codec: codec, Width: ref.Width, Height: ref.Height, FPS: ref.FPS}
		w, err := c.encoder.Create(ctx, output, spec)
		if err == nil {
			c.log.Debug("Writing with codec %s", codec)
			return w, codec, nil
		}
		errs = append(errs, err)
		if i+1 < len(codecs) {
			c.log.Warn("Cannot create %s writer (%v), trying %s", codec, err, codecs[i+1])
		}
	}
	return nil, "", fmt.Errorf("%w: %w", ErrNoWriter, errors.Join(errs...))
}

// appendClip copies every frame of path into w. A clip that cannot be opened
// is skipped and logged; write failures abort the whole output.
func (c *Concatenator) appendClip(ctx context.Context, w video.Writer, path string, ref video.ClipInfo, res *Result) (int, error) {
	name := filepath.Base(path)
	c.log.Info("Appending %s", name)

	r, err := c.opener.Open(ctx, path, video.DecodeOptions{})
	if err != nil {
		c.log.Error("Cannot open %s, skipping: %v", name, err)
		res.Skipped++
		return 0, nil
	}

	info := r.Info()
	if info.Width != ref.Width || info.Height != ref.Height {
		r.Close()
		c.log.Warn("%s is %s, letterboxing to %s", name, info.Resolution(), ref.Resolution())
		r, err = c.opener.Open(ctx, path, video.DecodeOptions{FitWidth: ref.Width, FitHeight: ref.Height})
		if err != nil {
			c.log.Error("Cannot reopen %s, skipping: %v", name, err)
			res.Skipped++
			return 0, nil
		}
		res.Fitted++
	}
	defer r.Close()

	if info.FPS > 0 && ref.FPS > 0 && math.Abs(info.FPS-ref.FPS) > 0.01 {
		c.log.Warn("%s runs at %.2f fps, output is %.2f fps; frames are written as-is", name, info.FPS, ref.FPS)
	}

	n := 0
	for {
		f, err := r.ReadFrame()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return n, ctxErr
			}
			c.log.Warn("Decode stopped in %s after %d frames: %v", name, n, err)
			break
		}
		if err := w.WriteFrame(f); err != nil {
			return n, fmt.Errorf("write %s frame %d: %w", name, n, err)
		}
		n++
	}
	res.Clips++
	c.log.Debug("  %d frames from %s", n, name)
	return n, nil
}

// abort closes w and removes the incomplete output.
func (c *Concatenator) abort(w video.Writer, output string) {
	_ = w.Close()
	if err := os.Remove(output); err != nil && !errors.Is(err, fs.ErrNotExist) {
		c.log.Warn("Cannot remove incomplete output %s: %v", output, err)
	}
}

// compress moves output aside, re-encodes it back into place and removes
// the temporary copy. Any failure restores the first-pass output.
func (c *Concatenator) compress(ctx context.Context, output string) bool {
	temp := naming.TempPath(output)
	if err := os.Rename(output, temp); err != nil {
		c.log.Warn("Secondary compression skipped: %v", err)
		return false
	}

	c.log.Info("Compressing %s", filepath.Base(output))
	if err := c.compressor.Compress(ctx, temp, output); err != nil {
		c.log.Warn("Secondary compression failed, keeping first-pass output: %v", err)
		if rmErr := os.Remove(output); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			c.log.Error("Cannot remove partial output %s: %v", output, rmErr)
		}
		if mvErr := os.Rename(temp, output); mvErr != nil {
			c.log.Error("Cannot restore %s from %s: %v", output, temp, mvErr)
		}
		return false
	}

	if err := os.Remove(temp); err != nil {
		c.log.Warn("Cannot remove %s: %v", temp, err)
	}
	c.log.Success("Secondary compression complete")
	return true
}
