package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/backmassage/clipsweep/internal/video"
)

// EnvPrefix namespaces environment overrides, e.g. CLIPSWEEP_THRESHOLD=800.
const EnvPrefix = "CLIPSWEEP"

// configName is looked up as clipsweep.yaml in the working directory and
// then in $HOME/.config/clipsweep.
const configName = "clipsweep"

// Load builds a Config from defaults, an optional YAML file, CLIPSWEEP_*
// environment variables and the parsed flags in fs, in increasing order of
// precedence. InputDir is left empty for the caller to fill from positional
// arguments.
func Load(fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	setDefaults(v)

	for key, name := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return Config{}, fmt.Errorf("binding --%s: %w", name, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var explicit string
	if f := fs.Lookup("config"); f != nil {
		explicit = f.Value.String()
	}
	if err := readConfigFile(v, explicit); err != nil {
		return Config{}, err
	}
	return decode(v)
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("threshold", d.Detection.PixelThreshold)
	v.SetDefault("ratio_threshold", d.Detection.RatioThreshold)
	v.SetDefault("time_box", FormatRect(d.Detection.Mask))
	v.SetDefault("concat", d.Concat)
	v.SetDefault("no_concat", false)
	v.SetDefault("output", d.Output)
	v.SetDefault("compress.enabled", d.Compress.Enabled)
	v.SetDefault("compress.crf", d.Compress.CRF)
	v.SetDefault("no_compress", false)
	v.SetDefault("dry_run", d.DryRun)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("strict", d.Strict)
	v.SetDefault("verbose", d.Verbose)
	v.SetDefault("color", string(d.ColorMode))
	v.SetDefault("no_color", false)
	v.SetDefault("log_file", "")
	v.SetDefault("report", "")
	v.SetDefault("metrics_file", "")
	v.SetDefault("check", false)
	v.SetDefault("analyze", false)
}

// readConfigFile reads the explicit path when given (a missing file is an
// error) or searches the default locations (a missing file is not).
func readConfigFile(v *viper.Viper, explicit string) error {
	if explicit != "" {
		v.SetConfigFile(explicit)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config %s: %w", explicit, err)
		}
		return nil
	}

	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", configName))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

func decode(v *viper.Viper) (Config, error) {
	cfg := DefaultConfig()
	cfg.ConfigFile = v.ConfigFileUsed()

	cfg.Detection.PixelThreshold = v.GetInt("threshold")
	cfg.Detection.RatioThreshold = v.GetFloat64("ratio_threshold")
	mask, err := rectFromValue(v.Get("time_box"))
	if err != nil {
		return Config{}, err
	}
	cfg.Detection.Mask = mask

	cfg.Concat = v.GetBool("concat") && !v.GetBool("no_concat")
	cfg.Output = v.GetString("output")
	cfg.Compress.Enabled = v.GetBool("compress.enabled") && !v.GetBool("no_compress")
	cfg.Compress.CRF = v.GetInt("compress.crf")

	cfg.DryRun = v.GetBool("dry_run")
	cfg.Workers = v.GetInt("workers")
	cfg.Strict = v.GetBool("strict")

	cfg.Verbose = v.GetBool("verbose")
	mode := v.GetString("color")
	if v.GetBool("no_color") {
		mode = string(ColorNever)
	}
	if cfg.ColorMode, err = ParseColorMode(mode); err != nil {
		return Config{}, err
	}
	cfg.LogFile = v.GetString("log_file")
	cfg.CheckOnly = v.GetBool("check")
	cfg.Analyze = v.GetBool("analyze")

	cfg.Report = v.GetString("report")
	cfg.MetricsFile = v.GetString("metrics_file")
	return cfg, nil
}

// rectFromValue accepts the string form or a YAML sequence of four integers.
func rectFromValue(raw any) (video.Rect, error) {
	switch t := raw.(type) {
	case string:
		return ParseRect(t)
	case []any:
		parts := make([]string, len(t))
		for i, p := range t {
			parts[i] = fmt.Sprint(p)
		}
		return ParseRect(strings.Join(parts, ","))
	case []int:
		parts := make([]string, len(t))
		for i, p := range t {
			parts[i] = fmt.Sprint(p)
		}
		return ParseRect(strings.Join(parts, ","))
	default:
		return video.Rect{}, fmt.Errorf("time box: unsupported value %v", raw)
	}
}
