// Package config holds runtime configuration: defaults, layered loading
// (file, environment, flags) and validation.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/backmassage/clipsweep/internal/video"
)

// DefaultOutputName is the concatenated output written inside the scanned folder.
const DefaultOutputName = "concatenated_output.mp4"

// ColorMode controls ANSI color output.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"   // Enable colors when stdout is a TTY (default).
	ColorAlways ColorMode = "always" // Force colors on.
	ColorNever  ColorMode = "never"  // Disable colors entirely.
)

// ParseColorMode accepts auto, always or never (case-insensitive).
func ParseColorMode(s string) (ColorMode, error) {
	switch m := ColorMode(strings.ToLower(strings.TrimSpace(s))); m {
	case ColorAuto, ColorAlways, ColorNever:
		return m, nil
	default:
		return "", fmt.Errorf("invalid color mode %q (use 'auto', 'always' or 'never')", s)
	}
}

// Detection holds the motion classifier thresholds and the ignored region.
// A clip has motion only when a sampled comparison exceeds both thresholds.
type Detection struct {
	PixelThreshold int        // Changed-pixel count that must be exceeded. Default: 500.
	RatioThreshold float64    // Changed percentage (0-100) that must be exceeded. Default: 0.1.
	Mask           video.Rect // Timestamp overlay excluded from comparison. Default: (0,0)-(150,40).
}

// DefaultDetection returns the stock thresholds and mask.
func DefaultDetection() Detection {
	return Detection{
		PixelThreshold: 500,
		RatioThreshold: 0.1,
		Mask:           video.Rect{X1: 0, Y1: 0, X2: 150, Y2: 40},
	}
}

// Validate rejects negative thresholds, ratios above 100 and inverted masks.
func (d Detection) Validate() error {
	if d.PixelThreshold < 0 {
		return fmt.Errorf("pixel threshold must be >= 0 (got %d)", d.PixelThreshold)
	}
	if d.RatioThreshold < 0 || d.RatioThreshold > 100 {
		return fmt.Errorf("ratio threshold must be between 0 and 100 (got %g)", d.RatioThreshold)
	}
	if !d.Mask.Valid() {
		return fmt.Errorf("invalid time box %s (need 0 <= x1 <= x2 and 0 <= y1 <= y2)", d.Mask)
	}
	return nil
}

// Compress configures the secondary re-encode after concatenation.
type Compress struct {
	Enabled bool // Default: true.
	CRF     int  // libx264 constant rate factor. Default: 23.
}

// Config holds all runtime settings. It is produced by [Load] (or
// [DefaultConfig] in tests) and passed by pointer to the packages that need it.
type Config struct {
	// Folder to scan (positional argument).
	InputDir string

	Detection Detection

	// Output.
	Concat   bool   // Default: true. Cleared by --no-concat.
	Output   string // Output file name; relative names resolve inside InputDir.
	Compress Compress

	// Behavior.
	DryRun  bool
	Workers int  // Concurrent classifications. Default: 1.
	Strict  bool // Disable ffmpeg retry fallbacks during compression.

	// Display and logging.
	Verbose   bool
	ColorMode ColorMode // Default: "auto".
	LogFile   string    // Optional JSON log file (append).
	CheckOnly bool      // Run --check diagnostics and exit.
	Analyze   bool      // Print the probe table and exit without deleting.

	// Artifacts.
	Report      string // Optional YAML run report path.
	MetricsFile string // Optional Prometheus textfile path.

	// ConfigFile is the YAML file that was read, if any.
	ConfigFile string
}

// DefaultConfig returns a Config with every default applied.
func DefaultConfig() Config {
	return Config{
		Detection: DefaultDetection(),
		Concat:    true,
		Output:    DefaultOutputName,
		Compress:  Compress{Enabled: true, CRF: 23},
		Workers:   1,
		ColorMode: ColorAuto,
	}
}

// NormalizeDirArg strips trailing slashes from a directory path.
// The filesystem root "/" is returned unchanged so we don't produce an empty string.
func NormalizeDirArg(path string) string {
	if path == "/" {
		return "/"
	}
	return strings.TrimRight(path, "/")
}

// Validate checks thresholds, enum fields and numeric ranges. Outside
// CheckOnly mode it also requires an input folder.
func (c *Config) Validate() error {
	if err := c.Detection.Validate(); err != nil {
		return err
	}
	if _, err := ParseColorMode(string(c.ColorMode)); err != nil {
		return err
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be >= 1 (got %d)", c.Workers)
	}
	if c.Compress.CRF < 0 || c.Compress.CRF > 51 {
		return fmt.Errorf("compression CRF must be between 0 and 51 (got %d)", c.Compress.CRF)
	}
	if strings.TrimSpace(c.Output) == "" {
		return errors.New("output name must not be empty")
	}

	if c.CheckOnly {
		return nil
	}
	if c.InputDir == "" {
		return errors.New("need exactly one folder to scan")
	}
	return nil
}
