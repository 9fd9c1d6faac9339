package motion

import (
	"context"
	"errors"
	"io"
	"path/filepath"

	"github.com/backmassage/clipsweep/internal/config"
	"github.com/backmassage/clipsweep/internal/video"
)

// targetSamples is the approximate number of comparisons made per clip,
// independent of its length.
const targetSamples = 20

// Logger is the diagnostic sink the classifier reports to.
type Logger interface {
	Info(string, ...any)
	Warn(string, ...any)
	Debug(string, ...any)
}

// Result is the verdict for one clip.
type Result struct {
	HasMotion     bool
	Readable      bool // False when the clip could not be opened or decoded.
	MaxDiffPixels int
	MaxDiffRatio  float64
	FramesSampled int

	// Statistics of the comparison that triggered motion (zero otherwise).
	TriggerFrame  int
	TriggerPixels int
	TriggerRatio  float64
}

// Classifier runs the sampled differencing pass over a clip. It holds no
// per-clip state, so one Classifier may classify many clips concurrently as
// long as the Opener is safe for concurrent use.
type Classifier struct {
	opener video.Opener
	cfg    config.Detection
	log    Logger
}

// NewClassifier returns a classifier using opener to decode clips.
func NewClassifier(opener video.Opener, cfg config.Detection, log Logger) *Classifier {
	return &Classifier{opener: opener, cfg: cfg, log: log}
}

// Stride returns the sampling interval for a clip of frameCount frames:
// max(1, frameCount/20).
func Stride(frameCount int) int {
	return max(1, frameCount/targetSamples)
}

// Exceeds applies the dual-threshold rule: both the changed-pixel count and
// the changed ratio must be strictly above their thresholds.
func Exceeds(d Diff, cfg config.Detection) bool {
	return d.Pixels > cfg.PixelThreshold && d.Ratio > cfg.RatioThreshold
}

// Classify decodes path and reports whether it contains motion. Clips that
// cannot be opened, yield no frames, or fail mid-decode are reported as
// having motion so they are never deleted by mistake.
func (c *Classifier) Classify(ctx context.Context, path string) Result {
	name := filepath.Base(path)
	conservative := Result{HasMotion: true}

	r, err := c.opener.Open(ctx, path, video.DecodeOptions{})
	if err != nil {
		c.log.Warn("Cannot open clip %s: %v", name, err)
		return conservative
	}
	defer r.Close()

	first, err := r.ReadFrame()
	if err != nil {
		if errors.Is(err, io.EOF) {
			c.log.Warn("No decodable frames in %s", name)
		} else {
			c.log.Warn("Cannot decode first frame of %s: %v", name, err)
		}
		return conservative
	}

	info := r.Info()
	c.log.Info("  Duration: %.2fs, frames: %d, size: %s", info.Duration.Seconds(), info.FrameCount, info.Resolution())

	prev := Prepare(first, c.cfg.Mask)
	stride := Stride(info.FrameCount)
	res := Result{Readable: true}

	for idx := 1; ; idx++ {
		f, err := r.ReadFrame()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			c.log.Warn("Decode failed at frame %d of %s, keeping clip: %v", idx, name, err)
			conservative.Readable = true
			conservative.FramesSampled = res.FramesSampled
			conservative.MaxDiffPixels = res.MaxDiffPixels
			conservative.MaxDiffRatio = res.MaxDiffRatio
			return conservative
		}
		if idx%stride != 0 {
			continue
		}

		cur := Prepare(f, c.cfg.Mask)
		d := Compare(prev, cur)
		res.FramesSampled++
		res.MaxDiffPixels = max(res.MaxDiffPixels, d.Pixels)
		res.MaxDiffRatio = max(res.MaxDiffRatio, d.Ratio)

		if Exceeds(d, c.cfg) {
			res.HasMotion = true
			res.TriggerFrame = idx
			res.TriggerPixels = d.Pixels
			res.TriggerRatio = d.Ratio
			c.log.Info("  Motion at frame %d: %d px changed (%.2f%%)", idx, d.Pixels, d.Ratio)
			c.log.Debug("  Checked %d frames", res.FramesSampled)
			return res
		}
		prev = cur
	}

	c.log.Info("  No significant motion (max %d px, %.2f%%)", res.MaxDiffPixels, res.MaxDiffRatio)
	c.log.Debug("  Checked %d frames", res.FramesSampled)
	return res
}
