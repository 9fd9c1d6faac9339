package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/clipsweep/internal/video"
)

func TestNormalizeDirArg(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no trailing slash", "/cams/front", "/cams/front"},
		{"single trailing slash", "/cams/front/", "/cams/front"},
		{"multiple trailing slashes", "/cams/front///", "/cams/front"},
		{"root path", "/", "/"},
		{"relative path", "clips", "clips"},
		{"empty string", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeDirArg(tt.in))
		})
	}
}

func TestDetectionValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Detection)
		wantErr bool
	}{
		{"defaults", func(*Detection) {}, false},
		{"zero thresholds", func(d *Detection) { d.PixelThreshold, d.RatioThreshold = 0, 0 }, false},
		{"ratio at 100", func(d *Detection) { d.RatioThreshold = 100 }, false},
		{"empty mask", func(d *Detection) { d.Mask = video.Rect{} }, false},
		{"negative pixels", func(d *Detection) { d.PixelThreshold = -1 }, true},
		{"negative ratio", func(d *Detection) { d.RatioThreshold = -0.5 }, true},
		{"ratio above 100", func(d *Detection) { d.RatioThreshold = 100.5 }, true},
		{"inverted mask", func(d *Detection) { d.Mask = video.Rect{X1: 10, Y1: 0, X2: 5, Y2: 10} }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := DefaultDetection()
			tt.mutate(&d)
			err := d.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults with folder", func(*Config) {}, false},
		{"missing folder", func(c *Config) { c.InputDir = "" }, true},
		{"check only skips folder", func(c *Config) { c.InputDir = ""; c.CheckOnly = true }, false},
		{"zero workers", func(c *Config) { c.Workers = 0 }, true},
		{"crf too high", func(c *Config) { c.Compress.CRF = 52 }, true},
		{"bad color", func(c *Config) { c.ColorMode = "sometimes" }, true},
		{"empty output", func(c *Config) { c.Output = " " }, true},
		{"bad detection", func(c *Config) { c.Detection.PixelThreshold = -3 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.InputDir = "/cams"
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseRect(t *testing.T) {
	tests := []struct {
		in      string
		want    video.Rect
		wantErr bool
	}{
		{"0,0,150,40", video.Rect{X1: 0, Y1: 0, X2: 150, Y2: 40}, false},
		{"10 20 30 40", video.Rect{X1: 10, Y1: 20, X2: 30, Y2: 40}, false},
		{" 1, 2, 3, 4 ", video.Rect{X1: 1, Y1: 2, X2: 3, Y2: 4}, false},
		{"0,0,0,0", video.Rect{}, false},
		{"1,2,3", video.Rect{}, true},
		{"a,b,c,d", video.Rect{}, true},
		{"50,0,10,10", video.Rect{}, true},
		{"-1,0,10,10", video.Rect{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRect(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, mustParse(t, FormatRect(got)))
		})
	}
}

func mustParse(t *testing.T, s string) video.Rect {
	t.Helper()
	r, err := ParseRect(s)
	require.NoError(t, err)
	return r
}

func TestParseColorMode(t *testing.T) {
	for _, in := range []string{"auto", "ALWAYS", " never "} {
		_, err := ParseColorMode(in)
		assert.NoError(t, err, in)
	}
	_, err := ParseColorMode("rainbow")
	assert.Error(t, err)
}

// newFlags returns a parsed flag set with HOME pointed at an empty directory
// so no user config file leaks into the test.
func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	fs := pflag.NewFlagSet("clipsweep", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(newFlags(t))
	require.NoError(t, err)

	want := DefaultConfig()
	assert.Equal(t, want.Detection, cfg.Detection)
	assert.True(t, cfg.Concat)
	assert.True(t, cfg.Compress.Enabled)
	assert.Equal(t, 23, cfg.Compress.CRF)
	assert.Equal(t, DefaultOutputName, cfg.Output)
	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, ColorAuto, cfg.ColorMode)
	assert.Empty(t, cfg.ConfigFile)
}

func TestLoad_Flags(t *testing.T) {
	fs := newFlags(t,
		"-t", "800",
		"--ratio-threshold", "0.5",
		"--time-box", "0,0,200,60",
		"--no-concat",
		"--no-compress",
		"-j", "4",
		"--no-color",
		"--dry-run",
	)
	cfg, err := Load(fs)
	require.NoError(t, err)

	assert.Equal(t, 800, cfg.Detection.PixelThreshold)
	assert.InDelta(t, 0.5, cfg.Detection.RatioThreshold, 1e-9)
	assert.Equal(t, video.Rect{X1: 0, Y1: 0, X2: 200, Y2: 60}, cfg.Detection.Mask)
	assert.False(t, cfg.Concat)
	assert.False(t, cfg.Compress.Enabled)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, ColorNever, cfg.ColorMode)
	assert.True(t, cfg.DryRun)
}

func TestLoad_ColorWithoutValue(t *testing.T) {
	cfg, err := Load(newFlags(t, "--color"))
	require.NoError(t, err)
	assert.Equal(t, ColorAlways, cfg.ColorMode)
}

func TestLoad_Env(t *testing.T) {
	fs := newFlags(t)
	t.Setenv("CLIPSWEEP_THRESHOLD", "1200")
	t.Setenv("CLIPSWEEP_TIME_BOX", "5,5,50,20")
	t.Setenv("CLIPSWEEP_COMPRESS_CRF", "28")

	cfg, err := Load(fs)
	require.NoError(t, err)
	assert.Equal(t, 1200, cfg.Detection.PixelThreshold)
	assert.Equal(t, video.Rect{X1: 5, Y1: 5, X2: 50, Y2: 20}, cfg.Detection.Mask)
	assert.Equal(t, 28, cfg.Compress.CRF)
}

func TestLoad_FlagBeatsEnv(t *testing.T) {
	fs := newFlags(t, "--threshold", "700")
	t.Setenv("CLIPSWEEP_THRESHOLD", "1200")

	cfg, err := Load(fs)
	require.NoError(t, err)
	assert.Equal(t, 700, cfg.Detection.PixelThreshold)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clipsweep.yaml")
	body := "threshold: 900\n" +
		"time_box: [10, 10, 160, 50]\n" +
		"concat: false\n" +
		"compress:\n  enabled: false\n  crf: 30\n" +
		"workers: 2\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(newFlags(t, "--config", path, "--workers", "3"))
	require.NoError(t, err)

	assert.Equal(t, path, cfg.ConfigFile)
	assert.Equal(t, 900, cfg.Detection.PixelThreshold)
	assert.Equal(t, video.Rect{X1: 10, Y1: 10, X2: 160, Y2: 50}, cfg.Detection.Mask)
	assert.False(t, cfg.Concat)
	assert.False(t, cfg.Compress.Enabled)
	assert.Equal(t, 30, cfg.Compress.CRF)
	assert.Equal(t, 3, cfg.Workers, "flag overrides file")
}

func TestLoad_MissingExplicitConfig(t *testing.T) {
	_, err := Load(newFlags(t, "--config", filepath.Join(t.TempDir(), "nope.yaml")))
	assert.Error(t, err)
}

func TestLoad_BadTimeBox(t *testing.T) {
	fs := newFlags(t)
	t.Setenv("CLIPSWEEP_TIME_BOX", "1,2,3")
	_, err := Load(fs)
	assert.Error(t, err)
}
