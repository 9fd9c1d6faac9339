package pipeline

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/backmassage/clipsweep/internal/config"
	"github.com/backmassage/clipsweep/internal/display"
	"github.com/backmassage/clipsweep/internal/ffmpeg"
	"github.com/backmassage/clipsweep/internal/logging"
	"github.com/backmassage/clipsweep/internal/naming"
	"github.com/backmassage/clipsweep/internal/probe"
	"github.com/backmassage/clipsweep/internal/term"
	"github.com/backmassage/clipsweep/internal/video"
)

// clipRow holds the probed per-clip data for the analysis table.
type clipRow struct {
	Name     string
	Key      naming.TimeKey
	Keyed    bool // Name carries a parsable time key.
	Info     video.ClipInfo
	Mismatch bool // Differs in size from the first clip by time key.
}

// Analyze discovers clips, probes each one and prints a table in
// concatenation order with duration outliers and size mismatches flagged.
// Nothing is deleted or written. A nil info uses ffprobe.
func Analyze(ctx context.Context, cfg *config.Config, log *logging.Logger, info ffmpeg.InfoFunc) int {
	if info == nil {
		info = probe.Info
	}
	output := naming.OutputPath(cfg.InputDir, cfg.Output)
	files, err := Discover(cfg.InputDir, output, naming.TempPath(output))
	if err != nil {
		log.Error("File discovery failed: %v", err)
		return 0
	}
	if len(files) == 0 {
		log.Warn("No clips found in %s", cfg.InputDir)
		return 0
	}

	total := len(files)
	log.Info("Analyzing %d clips in %s …", total, cfg.InputDir)

	isTTY := term.IsTerminal(os.Stdout)
	var rows []clipRow
	var skipped int

	for i, path := range naming.SortByTimeKey(files) {
		if ctx.Err() != nil {
			if isTTY {
				clearProgress()
			}
			log.Warn("Interrupted")
			return len(rows)
		}

		printProgress(isTTY, i+1, total, skipped, filepath.Base(path))

		ci, err := info(ctx, path)
		if err != nil {
			skipped++
			if isTTY {
				clearProgress()
			}
			log.Warn("Skip (probe failed): %s", filepath.Base(path))
			continue
		}
		rows = append(rows, clipRow{
			Name:  filepath.Base(path),
			Key:   naming.KeyOf(path),
			Keyed: naming.HasTimeKey(path),
			Info:  ci,
		})
	}

	if isTTY {
		clearProgress()
	}

	if len(rows) == 0 {
		log.Warn("No clips could be probed")
		return 0
	}

	ref := rows[0].Info
	var durations []float64
	for i := range rows {
		rows[i].Mismatch = rows[i].Info.Width != ref.Width || rows[i].Info.Height != ref.Height
		if s := rows[i].Info.Duration.Seconds(); s > 0 {
			durations = append(durations, s)
		}
	}
	dStats := computeStats(durations)

	printAnalysisTable(os.Stdout, rows, dStats)
	printAnalysisSummary(log, rows, dStats)
	return len(rows)
}

// iqrBounds holds the IQR-based thresholds for outlier classification.
type iqrBounds struct {
	q1, q3    float64
	outlierLo float64 // Q1 - 1.5*IQR
	outlierHi float64 // Q3 + 1.5*IQR
	extremeLo float64 // Q1 - 3.0*IQR
	extremeHi float64 // Q3 + 3.0*IQR
	valid     bool
}

func computeStats(vals []float64) iqrBounds {
	if len(vals) < 4 {
		return iqrBounds{}
	}

	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)

	q1 := percentile(sorted, 25)
	q3 := percentile(sorted, 75)
	iqr := q3 - q1

	return iqrBounds{
		q1:        q1,
		q3:        q3,
		outlierLo: q1 - 1.5*iqr,
		outlierHi: q3 + 1.5*iqr,
		extremeLo: q1 - 3.0*iqr,
		extremeHi: q3 + 3.0*iqr,
		valid:     iqr > 0,
	}
}

// classify returns "" (normal), "outlier", or "extreme" for a value.
func (b *iqrBounds) classify(v float64) string {
	if !b.valid || v <= 0 {
		return ""
	}
	if v < b.extremeLo || v > b.extremeHi {
		return "extreme"
	}
	if v < b.outlierLo || v > b.outlierHi {
		return "outlier"
	}
	return ""
}

func printAnalysisTable(w io.Writer, rows []clipRow, dStats iqrBounds) {
	nameW := len("Clip")
	resW := len("Resolution")
	durW := len("Duration")
	for _, r := range rows {
		nameW = max(nameW, len(r.Name))
		resW = max(resW, len(r.Info.Resolution()))
		durW = max(durW, len(fmtDuration(r.Info.Duration)))
	}
	nameW = min(nameW, 50)

	header := fmt.Sprintf("  %-*s  %-7s  %-*s  %6s  %-*s  %7s",
		nameW, "Clip",
		"Key",
		resW, "Resolution",
		"FPS",
		durW, "Duration",
		"Frames",
	)
	separator := "  " + strings.Repeat("─", len(header)-2)

	fmt.Fprintln(w, header)
	fmt.Fprintln(w, separator)

	for _, r := range rows {
		name := r.Name
		if len(name) > nameW {
			name = name[:nameW-1] + "…"
		}
		key := "-"
		if r.Keyed {
			key = r.Key.String()
		}

		dClass := dStats.classify(r.Info.Duration.Seconds())
		resClass := ""
		if r.Mismatch {
			resClass = "outlier"
		}

		// Pad the plain text first, then wrap in ANSI color so escape bytes
		// don't count toward the column width.
		resCell := colorPad(r.Info.Resolution(), resW, resClass)
		durCell := colorPad(fmtDuration(r.Info.Duration), durW, dClass)

		fmt.Fprintf(w, "  %-*s  %-7s  %s  %6.2f  %s  %7d  %s\n",
			nameW, name,
			key,
			resCell,
			r.Info.FPS,
			durCell,
			r.Info.FrameCount,
			formatFlag(worstFlag(dClass, resClass)),
		)
	}
	fmt.Fprintln(w)
}

func printAnalysisSummary(log *logging.Logger, rows []clipRow, dStats iqrBounds) {
	var outliers, extremes, mismatched, unkeyed int
	for _, r := range rows {
		switch dStats.classify(r.Info.Duration.Seconds()) {
		case "extreme":
			extremes++
		case "outlier":
			outliers++
		}
		if r.Mismatch {
			mismatched++
		}
		if !r.Keyed {
			unkeyed++
		}
	}

	log.Info("Analyzed %d clips", len(rows))
	if dStats.valid {
		log.Info("  Duration IQR: %.1f – %.1f s (outlier < %.1f or > %.1f)",
			dStats.q1, dStats.q3, dStats.outlierLo, dStats.outlierHi)
	}
	if mismatched > 0 {
		log.Outlier("  %d clip(s) differ from %s and would be letterboxed", mismatched, rows[0].Info.Resolution())
	}
	if unkeyed > 0 {
		log.Warn("  %d clip(s) have no <min>M<sec>S_ time key and sort first", unkeyed)
	}
	if outliers > 0 {
		log.Outlier("  %d duration outlier(s) flagged [*]", outliers)
	}
	if extremes > 0 {
		log.Error("  %d extreme duration outlier(s) flagged [!]", extremes)
	}
	if outliers == 0 && extremes == 0 && mismatched == 0 {
		log.Success("  No outliers detected")
	}
}

func fmtDuration(d time.Duration) string {
	if d <= 0 {
		return "n/a"
	}
	return display.FormatDuration(d)
}

func worstFlag(classes ...string) string {
	worst := ""
	for _, c := range classes {
		if c == "extreme" {
			return "extreme"
		}
		if c == "outlier" {
			worst = "outlier"
		}
	}
	return worst
}

func formatFlag(flag string) string {
	switch flag {
	case "extreme":
		return term.Red + "[!]" + term.NC
	case "outlier":
		return term.Orange + "[*]" + term.NC
	default:
		return ""
	}
}

// colorPad pads a plain string to width, then wraps in ANSI color.
func colorPad(s string, width int, class string) string {
	padded := fmt.Sprintf("%-*s", width, s)
	switch class {
	case "extreme":
		return term.Red + padded + term.NC
	case "outlier":
		return term.Orange + padded + term.NC
	default:
		return padded
	}
}

// printProgress shows a live probe counter. On a TTY it writes an
// inline \r-overwritten line; otherwise it is a no-op.
func printProgress(isTTY bool, current, total, skipped int, name string) {
	if !isTTY {
		return
	}
	pct := current * 100 / total
	status := fmt.Sprintf("  Probing [%d/%d] %d%% ", current, total, pct)
	if skipped > 0 {
		status += fmt.Sprintf("(%d skipped) ", skipped)
	}

	maxName := 40
	if len(name) > maxName {
		name = name[:maxName-1] + "…"
	}
	status += name

	// Pad to 80 chars to overwrite previous longer lines, then \r.
	if len(status) < 80 {
		status += strings.Repeat(" ", 80-len(status))
	}
	fmt.Fprintf(os.Stdout, "\r%s", status)
}

// clearProgress erases the inline progress line on a TTY.
func clearProgress() {
	fmt.Fprintf(os.Stdout, "\r%s\r", strings.Repeat(" ", 80))
}

// percentile computes the p-th percentile using linear interpolation.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := (p / 100) * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi || hi >= len(sorted) {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
