package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/backmassage/clipsweep/internal/config"
	"github.com/backmassage/clipsweep/internal/motion"
)

// Clip actions recorded in the report.
const (
	ActionKept         = "kept"
	ActionDeleted      = "deleted"
	ActionWouldDelete  = "would_delete"
	ActionDeleteFailed = "delete_failed"
	ActionUnreadable   = "kept_unreadable"
	ActionNotProcessed = "not_processed"
)

// Report is the YAML document written after a run.
type Report struct {
	RunID     string        `yaml:"run_id"`
	Folder    string        `yaml:"folder"`
	StartedAt time.Time     `yaml:"started_at"`
	Duration  string        `yaml:"duration"`
	DryRun    bool          `yaml:"dry_run"`
	Detection DetectionInfo `yaml:"detection"`
	Clips     []ClipRecord  `yaml:"clips"`
	Output    *OutputInfo   `yaml:"output,omitempty"`
	Summary   SummaryInfo   `yaml:"summary"`
}

// DetectionInfo echoes the thresholds used.
type DetectionInfo struct {
	PixelThreshold int     `yaml:"pixel_threshold"`
	RatioThreshold float64 `yaml:"ratio_threshold"`
	TimeBox        string  `yaml:"time_box"`
}

// ClipRecord is one clip's verdict and what was done with it.
type ClipRecord struct {
	Path          string  `yaml:"path"`
	Action        string  `yaml:"action"`
	HasMotion     bool    `yaml:"has_motion"`
	Readable      bool    `yaml:"readable"`
	MaxDiffPixels int     `yaml:"max_diff_pixels"`
	MaxDiffRatio  float64 `yaml:"max_diff_ratio"`
	FramesSampled int     `yaml:"frames_sampled"`
	TriggerFrame  int     `yaml:"trigger_frame,omitempty"`
	Size          int64   `yaml:"size_bytes,omitempty"`
}

// OutputInfo describes the concatenated file.
type OutputInfo struct {
	Path       string `yaml:"path"`
	Codec      string `yaml:"codec,omitempty"`
	Clips      int    `yaml:"clips"`
	Skipped    int    `yaml:"skipped,omitempty"`
	Fitted     int    `yaml:"letterboxed,omitempty"`
	Frames     int    `yaml:"frames"`
	Compressed bool   `yaml:"compressed"`
	Error      string `yaml:"error,omitempty"`
}

// SummaryInfo mirrors RunStats.
type SummaryInfo struct {
	Total        int   `yaml:"total"`
	Kept         int   `yaml:"kept"`
	Deleted      int   `yaml:"deleted"`
	Unreadable   int   `yaml:"unreadable"`
	DeleteFailed int   `yaml:"delete_failed"`
	BytesFreed   int64 `yaml:"bytes_freed"`
	Interrupted  bool  `yaml:"interrupted,omitempty"`
}

func newReport(runID string, cfg *config.Config, start time.Time) *Report {
	return &Report{
		RunID:     runID,
		Folder:    cfg.InputDir,
		StartedAt: start.UTC().Truncate(time.Second),
		DryRun:    cfg.DryRun,
		Detection: DetectionInfo{
			PixelThreshold: cfg.Detection.PixelThreshold,
			RatioThreshold: cfg.Detection.RatioThreshold,
			TimeBox:        config.FormatRect(cfg.Detection.Mask),
		},
	}
}

func newClipRecord(path string, res motion.Result) ClipRecord {
	return ClipRecord{
		Path:          path,
		Action:        ActionNotProcessed,
		HasMotion:     res.HasMotion,
		Readable:      res.Readable,
		MaxDiffPixels: res.MaxDiffPixels,
		MaxDiffRatio:  res.MaxDiffRatio,
		FramesSampled: res.FramesSampled,
		TriggerFrame:  res.TriggerFrame,
	}
}

func (r *Report) finish(stats *RunStats, elapsed time.Duration) {
	r.Duration = elapsed.Round(time.Millisecond).String()
	r.Summary = SummaryInfo{
		Total:        stats.Total,
		Kept:         stats.Kept,
		Deleted:      stats.Deleted,
		Unreadable:   stats.Unreadable,
		DeleteFailed: stats.DeleteFailed,
		BytesFreed:   stats.BytesFreed,
		Interrupted:  stats.Interrupted,
	}
}

// WriteReport marshals r to path, creating parent directories.
func WriteReport(path string, r *Report) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// ReadReport loads a report written by WriteReport.
func ReadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r Report
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse report: %w", err)
	}
	return &r, nil
}
