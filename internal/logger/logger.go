// Package logger holds the process-wide logger. Entries go to a rotating
// file under the config directory, and to stderr as well in debug mode.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/julianstephens/habitrack/internal/constants"
)

// Logger is nil until Init; the package functions are no-ops before then.
var Logger *log.Logger

var discard = log.New(io.Discard)

// Rotation bounds the size of the log directory.
type Rotation struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// DefaultRotation keeps a few small compressed files for two weeks.
var DefaultRotation = Rotation{MaxSizeMB: 5, MaxBackups: 3, MaxAgeDays: 14}

type Config struct {
	Debug     bool
	ConfigDir string
	// Quiet keeps debug output off stderr, used while the TUI owns the screen.
	Quiet bool
	// Rotation replaces DefaultRotation when set.
	Rotation Rotation
}

func Init(cfg Config) error {
	dir := filepath.Join(cfg.ConfigDir, "logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}

	rot := cfg.Rotation
	if rot == (Rotation{}) {
		rot = DefaultRotation
	}
	file := &lumberjack.Logger{
		Filename:   filepath.Join(dir, constants.LogFileName),
		MaxSize:    rot.MaxSizeMB,
		MaxBackups: rot.MaxBackups,
		MaxAge:     rot.MaxAgeDays,
		Compress:   true,
	}

	opts := log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
		Prefix:          constants.AppName,
		Level:           log.WarnLevel,
	}
	var out io.Writer = file
	if cfg.Debug {
		opts.Level = log.DebugLevel
		opts.ReportCaller = true
		if !cfg.Quiet {
			out = io.MultiWriter(os.Stderr, file)
		}
	}

	Logger = log.NewWithOptions(out, opts)
	return nil
}

func current() *log.Logger {
	if Logger == nil {
		return discard
	}
	return Logger
}

// With returns a child logger carrying keyvals.
func With(keyvals ...interface{}) *log.Logger {
	return current().With(keyvals...)
}

func Debug(msg string, keyvals ...interface{}) {
	l := current()
	l.Helper()
	l.Debug(msg, keyvals...)
}

func Info(msg string, keyvals ...interface{}) {
	l := current()
	l.Helper()
	l.Info(msg, keyvals...)
}

func Warn(msg string, keyvals ...interface{}) {
	l := current()
	l.Helper()
	l.Warn(msg, keyvals...)
}

func Error(msg string, keyvals ...interface{}) {
	l := current()
	l.Helper()
	l.Error(msg, keyvals...)
}
