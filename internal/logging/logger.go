// Package logging provides the leveled console logger used across
// clipsweep, backed by zerolog. Console lines go to stdout (errors to
// stderr) in a human-readable layout; an optional log file receives the same
// events as JSON lines.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/backmassage/clipsweep/internal/config"
	"github.com/backmassage/clipsweep/internal/term"
)

// Custom level names carried in the level field of NoLevel events.
const (
	levelSuccess = "success"
	levelOutlier = "outlier"
)

// consoleTimeFormat matches the timestamp shown on every console line.
const consoleTimeFormat = "2006-01-02 15:04:05"

// Logger provides leveled, optionally colored logging with optional file sink.
// It is safe for concurrent use.
type Logger struct {
	zl   zerolog.Logger
	file *os.File
	once *sync.Once
}

// Options wires a Logger to explicit writers. Nil Stdout/Stderr discard.
type Options struct {
	Stdout  io.Writer
	Stderr  io.Writer
	File    io.Writer // Receives JSON lines when non-nil.
	Verbose bool
	NoColor bool
}

// NewLogger configures terminal colors from cfg and optionally opens
// cfg.LogFile for appending. Call Close() when done.
func NewLogger(cfg *config.Config) (*Logger, error) {
	term.Configure(cfg.ColorMode)

	opts := Options{
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Verbose: cfg.Verbose,
		NoColor: !term.Enabled(),
	}

	var f *os.File
	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		var err error
		f, err = os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		opts.File = f
	}

	l := New(opts)
	l.file = f
	return l, nil
}

// New builds a Logger from explicit writers.
func New(opts Options) *Logger {
	stdout, stderr := opts.Stdout, opts.Stderr
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	console := splitWriter{
		out: consoleWriter(stdout, opts.NoColor),
		err: consoleWriter(stderr, opts.NoColor),
	}
	var w io.Writer = console
	if opts.File != nil {
		w = zerolog.MultiLevelWriter(console, opts.File)
	}
	w = zerolog.SyncWriter(w)

	level := zerolog.InfoLevel
	if opts.Verbose {
		level = zerolog.DebugLevel
	}
	return &Logger{
		zl:   zerolog.New(w).Level(level).With().Timestamp().Logger(),
		once: &sync.Once{},
	}
}

// Discard returns a Logger that drops everything.
func Discard() *Logger {
	return &Logger{zl: zerolog.Nop(), once: &sync.Once{}}
}

// With returns a child logger carrying key=value on every event. Console
// lines hide these fields; the JSON file keeps them.
func (l *Logger) With(key, value string) *Logger {
	return &Logger{zl: l.zl.With().Str(key, value).Logger(), file: l.file, once: l.once}
}

// Close closes the log file if one was opened. Children share the file with
// their parent; closing any of them closes it for all.
func (l *Logger) Close() error {
	var err error
	l.once.Do(func() {
		if l.file != nil {
			err = l.file.Close()
		}
	})
	return err
}

// Info logs at INFO level (blue).
func (l *Logger) Info(format string, args ...any) {
	l.zl.Info().Msgf(format, args...)
}

// Success logs at SUCCESS level (green).
func (l *Logger) Success(format string, args ...any) {
	l.zl.Log().Str(zerolog.LevelFieldName, levelSuccess).Msgf(format, args...)
}

// Warn logs at WARN level (yellow).
func (l *Logger) Warn(format string, args ...any) {
	l.zl.Warn().Msgf(format, args...)
}

// Error logs at ERROR level (red), to stderr.
func (l *Logger) Error(format string, args ...any) {
	l.zl.Error().Msgf(format, args...)
}

// Outlier logs at OUTLIER level (orange).
func (l *Logger) Outlier(format string, args ...any) {
	l.zl.Log().Str(zerolog.LevelFieldName, levelOutlier).Msgf(format, args...)
}

// Debug logs at DEBUG level (cyan); dropped unless verbose.
func (l *Logger) Debug(format string, args ...any) {
	l.zl.Debug().Msgf(format, args...)
}

// splitWriter routes error-and-above events to err and the rest to out.
type splitWriter struct {
	out, err io.Writer
}

func (s splitWriter) Write(p []byte) (int, error) { return s.out.Write(p) }

func (s splitWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	switch level {
	case zerolog.ErrorLevel, zerolog.FatalLevel, zerolog.PanicLevel:
		return s.err.Write(p)
	default:
		return s.out.Write(p)
	}
}

func consoleWriter(out io.Writer, noColor bool) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:           out,
		NoColor:       noColor,
		TimeFormat:    consoleTimeFormat,
		PartsOrder:    []string{zerolog.TimestampFieldName, zerolog.LevelFieldName, zerolog.MessageFieldName},
		FieldsExclude: []string{"component", "run_id", "clip"},
		FormatLevel:   formatLevel,
	}
}

// formatLevel renders "[LEVEL]" in the level's color.
func formatLevel(i any) string {
	s, _ := i.(string)
	var color string
	switch s {
	case zerolog.LevelInfoValue:
		color = term.Blue
	case levelSuccess:
		color = term.Green
	case zerolog.LevelWarnValue:
		color = term.Yellow
	case zerolog.LevelErrorValue, zerolog.LevelFatalValue, zerolog.LevelPanicValue:
		color = term.Red
	case levelOutlier:
		color = term.Orange
	case zerolog.LevelDebugValue:
		color = term.Cyan
	}
	if s == "" {
		s = "log"
	}
	return color + "[" + strings.ToUpper(s) + "]" + term.NC
}
