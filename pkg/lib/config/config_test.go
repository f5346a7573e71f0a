package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SanjoDeundiak/psi-desktop/pkg/lib"
)

func noEnv(string) (string, bool) { return "", false }

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_MissingConfigFallsBackToDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := load(filepath.Join(home, "does-not-exist.toml"))
	require.NoError(t, err)

	assert.Empty(t, cfg.Path)
	assert.Equal(t, ModeAuto, cfg.Mode)
	assert.Equal(t, "127.0.0.1", cfg.BackendHost)
	assert.Equal(t, 8000, cfg.BackendPort)
	assert.Equal(t, "http://localhost:5173", cfg.DevServerURL)
	assert.Equal(t, ReadinessMarkers, cfg.Readiness)
	assert.Equal(t, 5*time.Second, cfg.StopGrace)
	assert.Equal(t, Window{Width: 1400, Height: 900, MinWidth: 1200, MinHeight: 700}, cfg.Window)
	assert.Equal(t, filepath.Join(home, ".config/psi-desktop/control.sock"), cfg.ControlSocket)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_ParsesAndTrimsConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := writeConfig(t, `
mode = " Packaged "
app_root = "~/src/psi"
backend_port = 8123
python = "python3.12"
backend_path = "/opt/psi/psi-backend"
readiness = "health"
stop_grace = "1500ms"
log_level = "DEBUG"
control_socket = "~/run/psi.sock"

[window]
width = 1600
min_height = 800
`)

	cfg, err := load(path)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.Path)
	assert.Equal(t, ModePackaged, cfg.Mode)
	assert.Equal(t, filepath.Join(home, "src/psi"), cfg.AppRoot)
	assert.Equal(t, 8123, cfg.BackendPort)
	assert.Equal(t, "python3.12", cfg.Python)
	assert.Equal(t, "/opt/psi/psi-backend", cfg.BackendPath)
	assert.Equal(t, ReadinessHealth, cfg.Readiness)
	assert.Equal(t, 1500*time.Millisecond, cfg.StopGrace)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, filepath.Join(home, "run/psi.sock"), cfg.ControlSocket)
	assert.Equal(t, Window{Width: 1600, Height: 900, MinWidth: 1200, MinHeight: 800}, cfg.Window)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_InvalidTOMLFails(t *testing.T) {
	_, err := load(writeConfig(t, `mode = [`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestLoad_InvalidDurationFails(t *testing.T) {
	_, err := load(writeConfig(t, `stop_grace = "soon"`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stop_grace")
}

func TestLoad_ValidatesValues(t *testing.T) {
	t.Setenv("PSI_ENV", "")
	t.Setenv(LogLevelEnv, "")
	t.Setenv(ControlSocketEnv, "")

	tests := []struct {
		body string
		want string
	}{
		{`mode = "staging"`, "mode"},
		{`readiness = "ping"`, "readiness"},
		{`log_level = "trace"`, "log_level"},
		{`backend_port = 70000`, "backend_port"},
	}
	for _, tt := range tests {
		_, err := Load(writeConfig(t, tt.body))
		require.Error(t, err, tt.body)
		assert.Contains(t, err.Error(), tt.want)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg := Default()
	cfg.ApplyEnv(envMap(map[string]string{
		"PSI_ENV":        "Development",
		ControlSocketEnv: "/tmp/psi.sock",
		LogLevelEnv:      " WARN ",
	}))
	assert.Equal(t, ModeDevelopment, cfg.Mode)
	assert.Equal(t, "/tmp/psi.sock", cfg.ControlSocket)
	assert.Equal(t, "warn", cfg.LogLevel)

	cfg = Default()
	cfg.Mode = ModePackaged
	cfg.ApplyEnv(envMap(map[string]string{"PSI_ENV": "production"}))
	assert.Equal(t, ModePackaged, cfg.Mode)

	before := Default()
	after := before
	after.ApplyEnv(noEnv)
	assert.Equal(t, before, after)
}

func TestRuntimeMode(t *testing.T) {
	detected := func() lib.RuntimeMode { return lib.ModePackaged }

	assert.Equal(t, lib.ModePackaged, Config{Mode: ModeAuto}.RuntimeMode(detected))
	assert.Equal(t, lib.ModeDevelopment, Config{Mode: ModeDevelopment}.RuntimeMode(detected))
	assert.Equal(t, lib.ModePackaged, Config{Mode: ModePackaged}.RuntimeMode(func() lib.RuntimeMode {
		t.Fatal("detection must not run with an explicit mode")
		return lib.ModeDevelopment
	}))
}

func TestExpandPath_ExpandsTildeAndReturnsAbs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := expandPath("~/a/b")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "a/b"), got)
}

func TestExpandPath_EmptyErrors(t *testing.T) {
	_, err := expandPath("   ")
	assert.Error(t, err)
}

func TestDefault_SocketUnderHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	assert.True(t, strings.HasPrefix(Default().ControlSocket, home))
}
