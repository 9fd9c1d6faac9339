// Command clipsweep deletes motionless camera clips from a folder and
// concatenates the rest into one chronologically ordered video.
//
// It loads configuration (file, environment, flags), validates it, and then
// runs system diagnostics (--check), the probe table (--analyze), or the
// sweep itself.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/backmassage/clipsweep/internal/check"
	"github.com/backmassage/clipsweep/internal/config"
	"github.com/backmassage/clipsweep/internal/display"
	"github.com/backmassage/clipsweep/internal/ffmpeg"
	"github.com/backmassage/clipsweep/internal/logging"
	"github.com/backmassage/clipsweep/internal/pipeline"
)

// version and commit are injected at build time via -ldflags.
var (
	version = "1.0.0"
	commit  = "unknown"
)

// errFailed signals a non-zero exit after the failure was already logged.
var errFailed = errors.New("run failed")

func main() {
	os.Exit(run())
}

func run() int {
	cmd := rootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, errFailed) {
			fmt.Fprintf(os.Stderr, "clipsweep: %v\n", err)
		}
		return 1
	}
	return 0
}

func rootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clipsweep [flags] <folder>",
		Short: "Delete static camera clips and concatenate the rest",
		Long: `clipsweep scans a folder of short camera clips, deletes every clip without
visual motion (ignoring the timestamp overlay in the time box), and joins the
remaining clips in <min>M<sec>S_ order into concatenated_output.mp4.`,
		Version:       fmt.Sprintf("%s (%s)", version, commit),
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			if len(args) == 1 {
				cfg.InputDir = config.NormalizeDirArg(args[0])
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return execute(cmd.Context(), &cfg)
		},
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

func execute(parent context.Context, cfg *config.Config) error {
	log, err := logging.NewLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Close()

	// Logger available: all output goes through log from here on.
	display.PrintBanner(os.Stdout)
	if cfg.ConfigFile != "" {
		log.Debug("Config file: %s", cfg.ConfigFile)
	}

	// Cancel on SIGINT/SIGTERM so the run stops between clips and in-flight
	// ffmpeg processes are killed.
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	encoder := ffmpeg.NewEncoder(ffmpeg.DefaultBinary)

	if cfg.CheckOnly {
		if failed := check.RunCheck(ctx, check.DefaultTools, encoder, log); failed > 0 {
			return errFailed
		}
		return nil
	}

	if fi, err := os.Stat(cfg.InputDir); err != nil || !fi.IsDir() {
		log.Error("Input folder not found: %s", cfg.InputDir)
		return errFailed
	}
	if abs, err := filepath.Abs(cfg.InputDir); err == nil {
		cfg.InputDir = abs
	}

	if cfg.Analyze {
		pipeline.Analyze(ctx, cfg, log, nil)
		return nil
	}

	log.Info("=== clipsweep v%s (%s) ===", version, commit)
	log.Info("Folder: %s", cfg.InputDir)

	// Fail fast if ffmpeg/ffprobe are unavailable.
	needEncoder := cfg.Concat && !cfg.DryRun
	if err := check.Preflight(ctx, check.DefaultTools, encoder, needEncoder, log); err != nil {
		log.Error("%v", err)
		return errFailed
	}

	deps := pipeline.DefaultDeps(cfg, log)
	deps.Encoder = encoder
	stats := pipeline.Run(ctx, cfg, log, deps)
	if stats.Failed() {
		return errFailed
	}
	return nil
}
