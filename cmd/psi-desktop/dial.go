package main

import (
	"errors"
	"strings"

	"google.golang.org/grpc/codes"

	"github.com/SanjoDeundiak/psi-desktop/pkg/lib/config"
	"github.com/SanjoDeundiak/psi-desktop/pkg/lib/control"
)

var errNotRunning = errors.New("psi-desktop is not running")

func loadConfig(flags *rootFlags) (config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if s := strings.TrimSpace(flags.socket); s != "" {
		cfg.ControlSocket = s
	}
	return cfg, nil
}

func dial(flags *rootFlags) (*control.Client, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}
	return control.Dial(cfg.ControlSocket)
}

// callError maps an unreachable shell to errNotRunning.
func callError(err error) error {
	if control.Code(err) == codes.Unavailable {
		return errNotRunning
	}
	return err
}
