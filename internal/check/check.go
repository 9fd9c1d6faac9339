// Package check provides system diagnostics (--check mode) and pre-run
// dependency validation (CheckDeps) for ffmpeg, ffprobe and the two output
// encoders.
package check

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/backmassage/clipsweep/internal/video"
)

// Sentinel errors returned by CheckDeps when a required tool or encoder is missing.
var (
	ErrFfmpegNotFound  = errors.New("ffmpeg not found on PATH")
	ErrFfprobeNotFound = errors.New("ffprobe not found on PATH")
	ErrNoEncoder       = errors.New("neither libx264 nor mpeg4 can encode")
)

// Logger is the minimal logging interface needed by RunCheck.
type Logger interface {
	Info(string, ...any)
	Success(string, ...any)
	Warn(string, ...any)
	Error(string, ...any)
}

// EncoderProber test-encodes a codec. *ffmpeg.Encoder satisfies it.
type EncoderProber interface {
	Available(ctx context.Context, c video.Codec) error
}

// Tools names the binaries to look for.
type Tools struct {
	FFmpeg  string
	FFprobe string
}

// DefaultTools are the binaries looked up on PATH.
var DefaultTools = Tools{FFmpeg: "ffmpeg", FFprobe: "ffprobe"}

var codecs = []video.Codec{video.CodecH264, video.CodecMPEG4}

// RunCheck runs the interactive --check flow: prints availability of ffmpeg
// and ffprobe and the result of a test encode with each output codec. It is
// informational only and returns the number of failed checks.
func RunCheck(ctx context.Context, tools Tools, enc EncoderProber, log Logger) int {
	log.Info("=== System Check ===")
	failed := 0

	for _, bin := range []string{tools.FFmpeg, tools.FFprobe} {
		if !checkBinary(ctx, bin, log) {
			failed++
		}
	}
	if _, err := exec.LookPath(tools.FFmpeg); err != nil {
		log.Warn("Skipping encoder tests")
		return failed + len(codecs)
	}

	for _, c := range codecs {
		log.Info("Testing %s encoder...", c)
		if err := enc.Available(ctx, c); err != nil {
			log.Error("%v", err)
			failed++
			continue
		}
		log.Success("%s encoder works", c)
	}
	return failed
}

// checkBinary verifies bin is on PATH and logs its version string.
func checkBinary(ctx context.Context, bin string, log Logger) bool {
	if _, err := exec.LookPath(bin); err != nil {
		log.Error("%s not found", bin)
		return false
	}
	out, err := exec.CommandContext(ctx, bin, "-version").Output()
	if err != nil {
		log.Warn("%s found but -version failed: %v", bin, err)
		return true
	}
	log.Success("%s: %s", bin, firstLine(string(out)))
	return true
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.Index(s, "\n"); idx > 0 {
		s = s[:idx]
	}
	return s
}

// CheckDeps is the pre-run validation: ffmpeg and ffprobe must be on PATH
// and at least one of the output codecs must encode. Returns a sentinel
// error on failure. When concatenation is disabled the encoders are not
// tested.
func CheckDeps(ctx context.Context, tools Tools, enc EncoderProber, needEncoder bool) error {
	if _, err := exec.LookPath(tools.FFmpeg); err != nil {
		return ErrFfmpegNotFound
	}
	if _, err := exec.LookPath(tools.FFprobe); err != nil {
		return ErrFfprobeNotFound
	}
	if !needEncoder {
		return nil
	}

	var errs []error
	for _, c := range codecs {
		err := enc.Available(ctx, c)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		errs = append(errs, err)
	}
	return fmt.Errorf("%w: %w", ErrNoEncoder, errors.Join(errs...))
}

// Preflight runs CheckDeps before a folder pass. Missing ffmpeg or ffprobe
// is returned; a missing encoder is only logged, since it halts the
// concatenation step and not the classification and deletion of clips.
func Preflight(ctx context.Context, tools Tools, enc EncoderProber, needEncoder bool, log Logger) error {
	err := CheckDeps(ctx, tools, enc, needEncoder)
	if errors.Is(err, ErrNoEncoder) {
		log.Warn("%v", err)
		log.Warn("Concatenation will fail; static clips are still deleted")
		return nil
	}
	return err
}
