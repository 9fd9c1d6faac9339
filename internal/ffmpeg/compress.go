package ffmpeg

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Logger is the subset of the application logger used here.
type Logger interface {
	Info(string, ...any)
	Warn(string, ...any)
	Debug(string, ...any)
}

// CompressOptions configures the secondary pass.
type CompressOptions struct {
	Binary  string // ffmpeg executable; DefaultBinary when empty.
	CRF     int    // libx264 constant rate factor.
	Strict  bool   // Single attempt, no fallbacks.
	Verbose bool   // Copy ffmpeg stderr to the terminal.
}

// Compressor re-encodes a finished output with libx264.
type Compressor struct {
	opts CompressOptions
	log  Logger
}

// NewCompressor returns a Compressor.
func NewCompressor(opts CompressOptions, log Logger) *Compressor {
	if opts.Binary == "" {
		opts.Binary = DefaultBinary
	}
	return &Compressor{opts: opts, log: log}
}

// Compress re-encodes src into dst, retrying with one stderr-driven fix per
// attempt. dst may be partially written when an error is returned.
func (c *Compressor) Compress(ctx context.Context, src, dst string) error {
	var tee io.Writer
	if c.opts.Verbose {
		tee = os.Stderr
	}

	rs := NewRetryState(c.opts.Strict)
	for {
		args := CompressArgs(src, dst, c.opts.CRF, c.opts.Verbose, rs)
		c.log.Debug("Running: %s %s", c.opts.Binary, strings.Join(args, " "))

		res := Execute(ctx, c.opts.Binary, args, tee)
		if res.Err == nil {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		action := rs.Advance(res.Stderr)
		if action == RetryNone {
			return fmt.Errorf("compress %s: %w: %s", filepath.Base(src), res.Err, Tail(res.Stderr))
		}
		c.log.Warn("Compression attempt %d failed, retrying with %s", rs.Attempt, action)
	}
}
