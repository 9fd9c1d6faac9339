package ffmpeg

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"strings"
)

// stderrTailLines bounds how much ffmpeg stderr is quoted in errors.
const stderrTailLines = 8

// ExecResult holds the outcome of a single ffmpeg invocation.
type ExecResult struct {
	Stderr string
	Err    error
}

// Execute runs bin with args to completion. Stderr is always captured for
// retry classification; when tee is non-nil it is also copied there live.
func Execute(ctx context.Context, bin string, args []string, tee io.Writer) ExecResult {
	cmd := exec.CommandContext(ctx, bin, args...)

	var stderrBuf bytes.Buffer
	if tee != nil {
		cmd.Stderr = io.MultiWriter(&stderrBuf, tee)
	} else {
		cmd.Stderr = &stderrBuf
	}

	err := cmd.Run()
	return ExecResult{
		Stderr: stderrBuf.String(),
		Err:    err,
	}
}

// Tail returns the last few non-empty lines of ffmpeg stderr, joined by " | ".
func Tail(stderr string) string {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	var kept []string
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			kept = append(kept, l)
		}
	}
	if len(kept) > stderrTailLines {
		kept = kept[len(kept)-stderrTailLines:]
	}
	return strings.Join(kept, " | ")
}
