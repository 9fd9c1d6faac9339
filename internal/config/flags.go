package config

// This file registers the command-line flags. Parsing is left to cobra; the
// parsed set is layered over the config file and environment by [Load].

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/spf13/pflag"

	"github.com/backmassage/clipsweep/internal/video"
)

// flagKeys maps configuration keys to the flag that overrides them.
var flagKeys = map[string]string{
	"threshold":       "threshold",
	"ratio_threshold": "ratio-threshold",
	"time_box":        "time-box",
	"no_concat":       "no-concat",
	"output":          "output",
	"no_compress":     "no-compress",
	"compress.crf":    "crf",
	"dry_run":         "dry-run",
	"workers":         "workers",
	"strict":          "strict",
	"verbose":         "verbose",
	"color":           "color",
	"no_color":        "no-color",
	"log_file":        "log",
	"report":          "report",
	"metrics_file":    "metrics-file",
	"check":           "check",
	"analyze":         "analyze",
}

// RegisterFlags adds every clipsweep flag to fs with defaults from [DefaultConfig].
func RegisterFlags(fs *pflag.FlagSet) {
	d := DefaultConfig()

	// Detection
	fs.IntP("threshold", "t", d.Detection.PixelThreshold, "Changed-pixel count a frame pair must exceed")
	fs.Float64P("ratio-threshold", "r", d.Detection.RatioThreshold, "Changed percentage (0-100) a frame pair must exceed")
	mask := d.Detection.Mask
	fs.Var(&rectValue{&mask}, "time-box", "Timestamp region to ignore as x1,y1,x2,y2")

	// Output
	fs.Bool("no-concat", false, "Delete static clips but do not concatenate survivors")
	fs.StringP("output", "o", d.Output, "Output file (relative names resolve inside the folder)")
	fs.Bool("no-compress", false, "Skip the secondary compression pass")
	fs.Int("crf", d.Compress.CRF, "libx264 CRF used by the compression pass")

	// Behavior
	fs.BoolP("dry-run", "d", false, "Classify only; delete and write nothing")
	fs.IntP("workers", "j", d.Workers, "Clips classified concurrently")
	fs.Bool("strict", false, "Disable automatic ffmpeg retry fallbacks")

	// Display
	fs.BoolP("verbose", "v", false, "Verbose output")
	color := d.ColorMode
	fs.Var(&colorModeValue{&color}, "color", "Colored logs: auto | always | never")
	fs.Lookup("color").NoOptDefVal = string(ColorAlways)
	fs.Bool("no-color", false, "Same as --color=never")
	fs.StringP("log", "l", "", "Append JSON logs to file")

	// Utility
	fs.String("report", "", "Write a YAML run report to this path")
	fs.String("metrics-file", "", "Write run metrics in Prometheus textfile format")
	fs.BoolP("check", "c", false, "Run system diagnostics and exit")
	fs.BoolP("analyze", "a", false, "Print a probe table of the folder's clips and exit")
	fs.String("config", "", "Config file (default: ./clipsweep.yaml, then ~/.config/clipsweep/clipsweep.yaml)")
}

// ParseRect parses "x1,y1,x2,y2" (commas and/or spaces) into a valid Rect.
func ParseRect(s string) (video.Rect, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || unicode.IsSpace(r) })
	if len(fields) != 4 {
		return video.Rect{}, fmt.Errorf("time box %q: want 4 integers x1,y1,x2,y2", s)
	}
	var n [4]int
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return video.Rect{}, fmt.Errorf("time box %q: %q is not a whole number", s, f)
		}
		n[i] = v
	}
	r := video.Rect{X1: n[0], Y1: n[1], X2: n[2], Y2: n[3]}
	if !r.Valid() {
		return video.Rect{}, fmt.Errorf("time box %q: need 0 <= x1 <= x2 and 0 <= y1 <= y2", s)
	}
	return r, nil
}

// FormatRect is the inverse of [ParseRect].
func FormatRect(r video.Rect) string {
	return fmt.Sprintf("%d,%d,%d,%d", r.X1, r.Y1, r.X2, r.Y2)
}

// pflag.Value adapters for Rect and ColorMode.

type rectValue struct{ p *video.Rect }

func (r *rectValue) String() string { return FormatRect(*r.p) }
func (r *rectValue) Type() string   { return "rect" }
func (r *rectValue) Set(s string) error {
	v, err := ParseRect(s)
	if err != nil {
		return err
	}
	*r.p = v
	return nil
}

type colorModeValue struct{ p *ColorMode }

func (c *colorModeValue) String() string { return string(*c.p) }
func (c *colorModeValue) Type() string   { return "mode" }
func (c *colorModeValue) Set(s string) error {
	m, err := ParseColorMode(s)
	if err != nil {
		return err
	}
	*c.p = m
	return nil
}
