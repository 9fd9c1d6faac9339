package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/backmassage/clipsweep/internal/concat"
	"github.com/backmassage/clipsweep/internal/config"
	"github.com/backmassage/clipsweep/internal/display"
	"github.com/backmassage/clipsweep/internal/ffmpeg"
	"github.com/backmassage/clipsweep/internal/logging"
	"github.com/backmassage/clipsweep/internal/metrics"
	"github.com/backmassage/clipsweep/internal/motion"
	"github.com/backmassage/clipsweep/internal/naming"
	"github.com/backmassage/clipsweep/internal/video"
)

// Deps are the collaborators a run uses. A nil Compressor disables the
// secondary pass; a nil Metrics gets a fresh registry.
type Deps struct {
	Opener     video.Opener
	Encoder    video.Encoder
	Compressor concat.Compressor
	Metrics    *metrics.RunMetrics
}

// DefaultDeps wires the ffmpeg-backed decoder, encoder and compressor.
func DefaultDeps(cfg *config.Config, log *logging.Logger) Deps {
	d := Deps{
		Opener:  ffmpeg.NewDecoder(ffmpeg.DefaultBinary, nil),
		Encoder: ffmpeg.NewEncoder(ffmpeg.DefaultBinary),
	}
	if cfg.Compress.Enabled {
		d.Compressor = ffmpeg.NewCompressor(ffmpeg.CompressOptions{
			CRF:     cfg.Compress.CRF,
			Strict:  cfg.Strict,
			Verbose: cfg.Verbose,
		}, log.With("component", "compress"))
	}
	return d
}

// Run is the top-level folder entry point. It classifies every discovered
// clip, deletes the static ones in discovery order, concatenates the
// survivors and returns aggregate stats. Nothing is deleted if the run is
// interrupted before classification completes.
func Run(ctx context.Context, cfg *config.Config, log *logging.Logger, deps Deps) RunStats {
	var stats RunStats
	start := time.Now()
	runID := uuid.NewString()
	log = log.With("run_id", runID)

	m := deps.Metrics
	if m == nil {
		var err error
		if m, err = metrics.New(); err != nil {
			log.Error("%v", err)
			stats.DiscoveryFailed = true
			return stats
		}
	}

	output := naming.OutputPath(cfg.InputDir, cfg.Output)
	files, err := Discover(cfg.InputDir, output, naming.TempPath(output))
	if err != nil {
		log.Error("File discovery failed: %v", err)
		stats.DiscoveryFailed = true
		return stats
	}
	stats.Total = len(files)
	report := newReport(runID, cfg, start)
	logRunHeader(cfg, log, &stats, output)

	results, err := classifyAll(ctx, cfg, log, deps.Opener, files, m)
	if err != nil {
		log.Warn("Interrupted during classification, no clips were deleted")
		stats.Interrupted = true
	}

	report.Clips = make([]ClipRecord, len(files))
	for i, path := range files {
		report.Clips[i] = newClipRecord(path, results[i])
	}

	var survivors []string
	if !stats.Interrupted {
		survivors = applyVerdicts(ctx, cfg, log, report.Clips, &stats, m)
	}

	if !stats.Interrupted {
		report.Output = concatenate(ctx, cfg, log, deps, survivors, output, &stats, m)
	}

	elapsed := time.Since(start)
	m.SetRunDuration(elapsed)
	report.finish(&stats, elapsed)
	logSummary(cfg, log, &stats, elapsed)

	if cfg.Report != "" {
		if err := WriteReport(cfg.Report, report); err != nil {
			log.Error("%v", err)
		} else {
			log.Info("Report written to %s", cfg.Report)
		}
	}
	if cfg.MetricsFile != "" {
		if err := m.WriteTextfile(cfg.MetricsFile); err != nil {
			log.Error("%v", err)
		} else {
			log.Debug("Metrics written to %s", cfg.MetricsFile)
		}
	}
	return stats
}

// classifyAll runs the classifier over files on a pool of cfg.Workers
// goroutines. Results are stored by index so callers see discovery order
// regardless of completion order. A cancelled ctx returns its error.
func classifyAll(
	ctx context.Context,
	cfg *config.Config,
	log *logging.Logger,
	opener video.Opener,
	files []string,
	m *metrics.RunMetrics,
) ([]motion.Result, error) {
	classifier := motion.NewClassifier(opener, cfg.Detection, log.With("component", "motion"))
	results := make([]motion.Result, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, cfg.Workers))
	for i, path := range files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			log.Info("[%d/%d] %s", i+1, len(files), filepath.Base(path))
			t0 := time.Now()
			results[i] = classifier.Classify(gctx, path)
			m.RecordClassification(results[i].FramesSampled, time.Since(t0))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}

// applyVerdicts walks the records in discovery order, deleting clips
// without motion and collecting the survivors. It stops early when ctx is
// cancelled.
func applyVerdicts(
	ctx context.Context,
	cfg *config.Config,
	log *logging.Logger,
	records []ClipRecord,
	stats *RunStats,
	m *metrics.RunMetrics,
) []string {
	var survivors []string
	for i := range records {
		rec := &records[i]
		if ctx.Err() != nil {
			log.Warn("Interrupted, stopping before %s", filepath.Base(rec.Path))
			stats.Interrupted = true
			return survivors
		}

		name := filepath.Base(rec.Path)
		switch {
		case !rec.Readable:
			rec.Action = ActionUnreadable
			stats.Kept++
			stats.Unreadable++
			m.RecordOutcome(metrics.OutcomeUnreadable)
			survivors = append(survivors, rec.Path)
		case rec.HasMotion:
			rec.Action = ActionKept
			stats.Kept++
			m.RecordOutcome(metrics.OutcomeKept)
			survivors = append(survivors, rec.Path)
		case cfg.DryRun:
			rec.Action = ActionWouldDelete
			stats.Deleted++
			m.RecordOutcome(metrics.OutcomeDryRun)
			log.Success("[DRY] Would delete %s (no motion)", name)
		default:
			deleteClip(log, rec, stats, m)
		}
	}
	return survivors
}

// deleteClip removes a static clip. Existence is re-checked immediately
// before removal; a clip that vanished in between is reported and skipped.
func deleteClip(log *logging.Logger, rec *ClipRecord, stats *RunStats, m *metrics.RunMetrics) {
	name := filepath.Base(rec.Path)
	fi, err := os.Stat(rec.Path)
	if err == nil {
		err = os.Remove(rec.Path)
	}
	if err != nil {
		rec.Action = ActionDeleteFailed
		stats.DeleteFailed++
		m.RecordOutcome(metrics.OutcomeDeleteFailed)
		if errors.Is(err, fs.ErrNotExist) {
			log.Warn("%s vanished before deletion, skipping", name)
		} else {
			log.Error("Cannot delete %s: %v", name, err)
		}
		return
	}

	rec.Action = ActionDeleted
	rec.Size = fi.Size()
	stats.Deleted++
	stats.BytesFreed += fi.Size()
	m.RecordOutcome(metrics.OutcomeDeleted)
	m.RecordBytesFreed(fi.Size())
	log.Success("Deleted %s (no motion, max %d px / %s)", name, rec.MaxDiffPixels, display.FormatRatio(rec.MaxDiffRatio))
}

// concatenate stitches survivors into output when enabled. It returns the
// report entry, or nil when nothing was attempted.
func concatenate(
	ctx context.Context,
	cfg *config.Config,
	log *logging.Logger,
	deps Deps,
	survivors []string,
	output string,
	stats *RunStats,
	m *metrics.RunMetrics,
) *OutputInfo {
	switch {
	case !cfg.Concat:
		log.Info("Concatenation disabled")
		return nil
	case len(survivors) == 0:
		log.Info("No clips with motion, nothing to concatenate")
		return nil
	case cfg.DryRun:
		log.Success("[DRY] Would concatenate %d clip(s) into %s", len(survivors), output)
		return nil
	}

	c := concat.New(deps.Opener, deps.Encoder, deps.Compressor, log.With("component", "concat"))
	res, err := c.Concatenate(ctx, survivors, output)
	info := &OutputInfo{
		Path:       output,
		Codec:      string(res.Codec),
		Clips:      res.Clips,
		Skipped:    res.Skipped,
		Fitted:     res.Fitted,
		Frames:     res.Frames,
		Compressed: res.Compressed,
	}
	if err != nil {
		info.Error = err.Error()
		if ctx.Err() != nil {
			log.Warn("Interrupted during concatenation, partial output removed")
			stats.Interrupted = true
		} else {
			log.Error("Concatenation failed: %v", err)
			stats.ConcatFailed = true
		}
		return info
	}

	stats.Concatenated = true
	stats.Compressed = res.Compressed
	stats.Frames = res.Frames
	m.RecordConcat(res.Frames, res.Skipped)
	if deps.Compressor != nil {
		m.RecordCompress(res.Compressed)
	}
	return info
}

// --- Logging helpers ---

func logRunHeader(cfg *config.Config, log *logging.Logger, stats *RunStats, output string) {
	log.Info("Found %d clip(s) in %s", stats.Total, cfg.InputDir)
	d := cfg.Detection
	log.Info("Detection: > %d px and > %s changed, time box %s", d.PixelThreshold, display.FormatRatio(d.RatioThreshold), d.Mask)
	if cfg.Workers > 1 {
		log.Info("Workers: %d", cfg.Workers)
	}
	if cfg.Concat {
		compress := "off"
		if cfg.Compress.Enabled {
			compress = fmt.Sprintf("libx264 CRF %d", cfg.Compress.CRF)
		}
		log.Info("Output: %s (compression: %s)", output, compress)
	}
	if cfg.Strict {
		log.Info("Retry policy: Strict mode (no auto-retry)")
	}
	if cfg.DryRun {
		log.Warn("DRY RUN, nothing will be deleted or written")
	}
}

func logSummary(cfg *config.Config, log *logging.Logger, stats *RunStats, elapsed time.Duration) {
	rows := []display.Row{
		{Label: "Clips", Value: fmt.Sprint(stats.Total)},
		{Label: "Kept", Value: fmt.Sprint(stats.Kept)},
	}
	deleted := "Deleted"
	if cfg.DryRun {
		deleted = "Would delete"
	}
	rows = append(rows, display.Row{Label: deleted, Value: fmt.Sprint(stats.Deleted)})
	if stats.Unreadable > 0 {
		rows = append(rows, display.Row{Label: "Unreadable (kept)", Value: fmt.Sprint(stats.Unreadable)})
	}
	if stats.DeleteFailed > 0 {
		rows = append(rows, display.Row{Label: "Delete failed", Value: fmt.Sprint(stats.DeleteFailed)})
	}
	if stats.BytesFreed > 0 {
		rows = append(rows, display.Row{Label: "Space freed", Value: display.FormatBytes(stats.BytesFreed)})
	}
	if stats.Concatenated {
		rows = append(rows, display.Row{Label: "Frames written", Value: fmt.Sprint(stats.Frames)})
	}
	rows = append(rows, display.Row{Label: "Elapsed", Value: display.FormatDuration(elapsed)})

	fmt.Println(display.RenderSummary("Run summary", rows))

	switch {
	case stats.Interrupted:
		log.Warn("Run interrupted")
	case stats.ConcatFailed:
		log.Error("Done with errors: %d deleted, %d kept, concatenation failed", stats.Deleted, stats.Kept)
	default:
		log.Success("Done: %d deleted, %d kept", stats.Deleted, stats.Kept)
	}
}
