// Package logging builds the application logger: JSON lines to a file in the
// per-OS log directory, and a console copy on stdout.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	appName     = "psi-desktop"
	DefaultFile = "psi-desktop.log"
)

// Options configure New.
type Options struct {
	// Level is one of debug, info, warn, error. Empty means info.
	Level string
	// Dir is the log directory. Empty means DefaultDir().
	Dir  string
	File string
	// Console receives the human readable copy. Nil means stdout.
	Console io.Writer
}

// DefaultDir returns the standard log directory for the current OS.
// Falls back to a temporary directory when a platform path cannot be resolved.
func DefaultDir() string {
	return dirFor(runtime.GOOS, os.Getenv)
}

func dirFor(goos string, getenv func(string) string) string {
	fallback := filepath.Join(os.TempDir(), appName, "logs")

	switch goos {
	case "darwin":
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, "Library", "Logs", appName)
		}
	case "windows":
		if localAppData := getenv("LOCALAPPDATA"); localAppData != "" {
			return filepath.Join(localAppData, appName, "logs")
		}
		if userProfile := getenv("USERPROFILE"); userProfile != "" {
			return filepath.Join(userProfile, "AppData", "Local", appName, "logs")
		}
	default:
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, "."+appName, "logs")
		}
	}
	return fallback
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// New builds the application logger. The returned path is the log file.
func New(opts Options) (*zap.Logger, string, error) {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		l, err := zapcore.ParseLevel(opts.Level)
		if err != nil {
			return nil, "", fmt.Errorf("parse log level: %w", err)
		}
		level = l
	}

	dir := opts.Dir
	if dir == "" {
		dir = DefaultDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, "", fmt.Errorf("failed to create log directory: %w", err)
	}
	name := opts.File
	if name == "" {
		name = DefaultFile
	}
	path := filepath.Join(dir, name)

	// opened directly; zap output URLs do not take windows paths
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, "", fmt.Errorf("open log file: %w", err)
	}

	var console io.Writer = os.Stdout
	if opts.Console != nil {
		console = opts.Console
	}

	consoleCfg := encoderConfig()
	consoleCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	consoleCfg.EncodeDuration = zapcore.StringDurationEncoder

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), zapcore.AddSync(file), level),
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.AddSync(console), level),
	)
	logger := zap.New(core, zap.AddCaller(), zap.ErrorOutput(zapcore.Lock(os.Stderr)))
	return logger, path, nil
}

// Console builds a logger for short-lived CLI commands: warnings and errors
// to stderr, nothing on disk.
func Console() *zap.Logger {
	cfg := encoderConfig()
	cfg.TimeKey = zapcore.OmitKey
	cfg.CallerKey = zapcore.OmitKey
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), zapcore.Lock(os.Stderr), zapcore.WarnLevel)
	return zap.New(core)
}
