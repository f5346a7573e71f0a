// Package config loads the shell configuration from a TOML file.
//
// A missing file is not an error; every field has a default. A few
// environment variables override the file:
//
//	PSI_ENV=development   forces development mode
//	PSI_CONTROL_SOCKET    control socket path
//	PSI_LOG_LEVEL         debug, info, warn or error
//
// Example config.toml:
//
//	mode = "auto"
//	backend_port = 8000
//	readiness = "health"
//	stop_grace = "3s"
//
//	[window]
//	width = 1600
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/SanjoDeundiak/psi-desktop/pkg/lib"
	"github.com/SanjoDeundiak/psi-desktop/pkg/lib/paths"
)

const (
	ModeAuto        = "auto"
	ModeDevelopment = "development"
	ModePackaged    = "packaged"

	ReadinessMarkers = "markers"
	ReadinessHealth  = "health"

	ControlSocketEnv = "PSI_CONTROL_SOCKET"
	LogLevelEnv      = "PSI_LOG_LEVEL"
)

const (
	defaultConfigPath    = "~/.config/psi-desktop/config.toml"
	defaultControlSocket = "~/.config/psi-desktop/control.sock"
	defaultHost          = "127.0.0.1"
	defaultPort          = 8000
	defaultDevServerURL  = "http://localhost:5173"
	defaultStopGrace     = 5 * time.Second
	defaultLogLevel      = "info"
)

// Window holds the window geometry.
type Window struct {
	Width     int `toml:"width"`
	Height    int `toml:"height"`
	MinWidth  int `toml:"min_width"`
	MinHeight int `toml:"min_height"`
}

// Config is the resolved shell configuration.
type Config struct {
	// Path is the file the values came from, empty when defaults were used.
	Path string

	Mode          string
	AppRoot       string
	BackendHost   string
	BackendPort   int
	Python        string
	BackendPath   string
	DevServerURL  string
	Readiness     string
	StopGrace     time.Duration
	Window        Window
	LogLevel      string
	LogDir        string
	ControlSocket string
}

type rawConfig struct {
	Mode          string `toml:"mode"`
	AppRoot       string `toml:"app_root"`
	BackendHost   string `toml:"backend_host"`
	BackendPort   int    `toml:"backend_port"`
	Python        string `toml:"python"`
	BackendPath   string `toml:"backend_path"`
	DevServerURL  string `toml:"dev_server_url"`
	Readiness     string `toml:"readiness"`
	StopGrace     string `toml:"stop_grace"`
	Window        Window `toml:"window"`
	LogLevel      string `toml:"log_level"`
	LogDir        string `toml:"log_dir"`
	ControlSocket string `toml:"control_socket"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Mode:          ModeAuto,
		BackendHost:   defaultHost,
		BackendPort:   defaultPort,
		DevServerURL:  defaultDevServerURL,
		Readiness:     ReadinessMarkers,
		StopGrace:     defaultStopGrace,
		Window:        Window{Width: 1400, Height: 900, MinWidth: 1200, MinHeight: 700},
		LogLevel:      defaultLogLevel,
		ControlSocket: mustExpand(defaultControlSocket),
	}
}

// Load reads the config at path, or the default location when path is
// empty, and applies environment overrides.
func Load(path string) (Config, error) {
	cfg, err := load(path)
	if err != nil {
		return Config{}, err
	}
	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw rawConfig
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.Path = resolved

	if v := strings.TrimSpace(raw.Mode); v != "" {
		cfg.Mode = strings.ToLower(v)
	}
	if v := strings.TrimSpace(raw.AppRoot); v != "" {
		cfg.AppRoot = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.BackendHost); v != "" {
		cfg.BackendHost = v
	}
	if raw.BackendPort != 0 {
		cfg.BackendPort = raw.BackendPort
	}
	cfg.Python = strings.TrimSpace(raw.Python)
	if v := strings.TrimSpace(raw.BackendPath); v != "" {
		cfg.BackendPath = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.DevServerURL); v != "" {
		cfg.DevServerURL = v
	}
	if v := strings.TrimSpace(raw.Readiness); v != "" {
		cfg.Readiness = strings.ToLower(v)
	}
	if v := strings.TrimSpace(raw.StopGrace); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse config: stop_grace: %w", err)
		}
		cfg.StopGrace = d
	}
	if raw.Window.Width > 0 {
		cfg.Window.Width = raw.Window.Width
	}
	if raw.Window.Height > 0 {
		cfg.Window.Height = raw.Window.Height
	}
	if raw.Window.MinWidth > 0 {
		cfg.Window.MinWidth = raw.Window.MinWidth
	}
	if raw.Window.MinHeight > 0 {
		cfg.Window.MinHeight = raw.Window.MinHeight
	}
	if v := strings.TrimSpace(raw.LogLevel); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := strings.TrimSpace(raw.LogDir); v != "" {
		cfg.LogDir = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.ControlSocket); v != "" {
		cfg.ControlSocket = mustExpand(v)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from the environment.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(paths.ModeEnv); ok && strings.EqualFold(strings.TrimSpace(v), ModeDevelopment) {
		c.Mode = ModeDevelopment
	}
	if v, ok := lookup(ControlSocketEnv); ok && strings.TrimSpace(v) != "" {
		c.ControlSocket = mustExpand(v)
	}
	if v, ok := lookup(LogLevelEnv); ok && strings.TrimSpace(v) != "" {
		c.LogLevel = strings.ToLower(strings.TrimSpace(v))
	}
}

// Validate rejects values the shell cannot run with.
func (c Config) Validate() error {
	switch c.Mode {
	case ModeAuto, ModeDevelopment, ModePackaged:
	default:
		return fmt.Errorf("invalid mode %q", c.Mode)
	}
	switch c.Readiness {
	case ReadinessMarkers, ReadinessHealth:
	default:
		return fmt.Errorf("invalid readiness %q", c.Readiness)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	if c.BackendPort < 1 || c.BackendPort > 65535 {
		return fmt.Errorf("invalid backend_port %d", c.BackendPort)
	}
	if c.StopGrace <= 0 {
		return fmt.Errorf("invalid stop_grace %v", c.StopGrace)
	}
	return nil
}

// RuntimeMode returns the configured mode, calling detect in auto mode.
func (c Config) RuntimeMode(detect func() lib.RuntimeMode) lib.RuntimeMode {
	switch c.Mode {
	case ModeDevelopment:
		return lib.ModeDevelopment
	case ModePackaged:
		return lib.ModePackaged
	default:
		return detect()
	}
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
