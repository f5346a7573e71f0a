package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/SanjoDeundiak/psi-desktop/pkg/lib"
	"github.com/SanjoDeundiak/psi-desktop/pkg/lib/config"
	"github.com/SanjoDeundiak/psi-desktop/pkg/lib/control"
	"github.com/SanjoDeundiak/psi-desktop/pkg/lib/lifecycle"
	"github.com/SanjoDeundiak/psi-desktop/pkg/lib/logging"
	"github.com/SanjoDeundiak/psi-desktop/pkg/lib/paths"
	"github.com/SanjoDeundiak/psi-desktop/pkg/lib/supervisor"
	"github.com/SanjoDeundiak/psi-desktop/pkg/lib/window"
)

func newRunCmd(flags *rootFlags) *cobra.Command {
	var dev bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the desktop shell (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if dev {
				cfg.Mode = config.ModeDevelopment
			}
			return runShell(cmd.Context(), cfg)
		},
	}
	cmd.Flags().BoolVar(&dev, "dev", false, "force development mode")
	return cmd
}

// environment describes where the shell runs from.
type environment struct {
	mode    lib.RuntimeMode
	appRoot string
	execDir string
}

func detectEnvironment(cfg config.Config) (environment, error) {
	exe, err := os.Executable()
	if err != nil {
		return environment{}, fmt.Errorf("locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	env := environment{execDir: filepath.Dir(exe), appRoot: cfg.AppRoot}
	if env.appRoot == "" {
		if env.appRoot, err = os.Getwd(); err != nil {
			return environment{}, fmt.Errorf("locate app root: %w", err)
		}
	}
	env.mode = cfg.RuntimeMode(func() lib.RuntimeMode {
		return paths.DetectMode(os.LookupEnv, runtime.GOOS, env.execDir, nil)
	})
	return env, nil
}

func newResolver(cfg config.Config, env environment) *paths.Resolver {
	r := paths.NewResolver(env.mode, runtime.GOOS, env.appRoot, env.execDir)
	r.BackendOverride = cfg.BackendPath
	return r
}

func runShell(ctx context.Context, cfg config.Config) error {
	logger, logPath, err := logging.New(logging.Options{Level: cfg.LogLevel, Dir: cfg.LogDir})
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	// a second launch hands over to the running instance
	if control.Running(ctx, cfg.ControlSocket) {
		return activateRunning(ctx, cfg, logger)
	}

	env, err := detectEnvironment(cfg)
	if err != nil {
		return err
	}
	logger.Info("starting psi-desktop",
		zap.String("version", version),
		zap.Stringer("mode", env.mode),
		zap.String("app_root", env.appRoot),
		zap.String("config", cfg.Path),
		zap.String("log_file", logPath))

	resolver := newResolver(cfg, env)

	sup := supervisor.New(supervisor.Options{
		Mode:      env.mode,
		Platform:  runtime.GOOS,
		Resolver:  resolver,
		Host:      cfg.BackendHost,
		Port:      cfg.BackendPort,
		Python:    cfg.Python,
		Readiness: cfg.Readiness,
		StopGrace: cfg.StopGrace,
		Logger:    logger.Named("supervisor"),
	})
	defer sup.Close()

	host := &window.ChromeHost{
		ProfileDir: profileDir(),
		Logger:     logger.Named("chrome"),
	}
	win := window.NewController(host, resolver, window.Config{
		Mode:         env.mode,
		Platform:     runtime.GOOS,
		DevServerURL: cfg.DevServerURL,
		ShellVersion: version,
		Width:        cfg.Window.Width,
		Height:       cfg.Window.Height,
		MinWidth:     cfg.Window.MinWidth,
		MinHeight:    cfg.Window.MinHeight,
	}, logger.Named("window"))
	sup.SetNotifier(win)

	coord := lifecycle.New(lifecycle.Options{
		Platform:        runtime.GOOS,
		Backend:         sup,
		Windows:         win,
		ShutdownTimeout: 2 * cfg.StopGrace,
		Logger:          logger.Named("lifecycle"),
	})
	// single window: its close is the last close
	win.OnClosed(coord.AllWindowsClosed)

	svc := control.NewService(sup, coord, map[string]any{
		"mode":         env.mode.String(),
		"address":      sup.Address(),
		"version":      version,
		"log_file":     logPath,
		"ui_document":  resolver.UIDocument().Path,
		"backend_path": resolver.Backend().Path,
	}, logger.Named("control"))
	srv, err := control.NewServer(cfg.ControlSocket, svc)
	if err != nil {
		logger.Warn("control socket unavailable", zap.String("socket", cfg.ControlSocket), zap.Error(err))
	} else {
		go func() {
			if err := srv.Serve(); err != nil {
				logger.Error("control server failed", zap.Error(err))
			}
		}()
		defer srv.Stop()
	}

	coord.Ready()
	err = coord.Run(ctx)
	logger.Info("psi-desktop shutdown complete")
	return err
}

func activateRunning(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	c, err := control.Dial(cfg.ControlSocket)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := c.Activate(ctx); err != nil {
		return fmt.Errorf("activate running instance: %w", callError(err))
	}
	logger.Info("psi-desktop is already running, activated it", zap.String("socket", cfg.ControlSocket))
	return nil
}

func profileDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "psi-desktop", "chrome")
}
