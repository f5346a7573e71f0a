// Package paths locates the UI entry document and the backend for the
// current runtime mode and platform.
//
// Resolution is a read-only walk over an ordered list of candidate paths.
// Candidates are generated lazily and the first existing one wins.
package paths

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/SanjoDeundiak/psi-desktop/pkg/lib"
)

const (
	// BackendExecutable is the name of the bundled backend binary.
	BackendExecutable = "psi-backend"
	// BackendEntry is the module file the development backend is served from.
	BackendEntry = "main.py"
	// ModeEnv forces the runtime mode: "development" or "production".
	ModeEnv = "PSI_ENV"
)

// Resolved is the outcome of one resolution. A NotFound result has an empty
// Path; a result that fell through to its default may carry a Path with
// Exists false.
type Resolved struct {
	Path   string
	Exists bool
}

// Found reports whether resolution produced a usable path.
func (r Resolved) Found() bool { return r.Path != "" }

// NotFound is the empty resolution.
func NotFound() Resolved { return Resolved{} }

// Candidate yields one path to check. An empty string is skipped.
type Candidate func() string

// StatFunc matches os.Stat and is replaceable in tests.
type StatFunc func(string) (os.FileInfo, error)

// Resolver computes paths for one runtime mode and platform. It never caches.
type Resolver struct {
	Mode     lib.RuntimeMode
	Platform string
	// AppRoot is the source checkout root used in development.
	AppRoot string
	// ExecDir is the directory of the running executable.
	ExecDir string
	// BackendOverride is tried first in packaged mode when set.
	BackendOverride string

	stat StatFunc
}

// NewResolver creates a Resolver backed by os.Stat.
func NewResolver(mode lib.RuntimeMode, platform, appRoot, execDir string) *Resolver {
	return &Resolver{
		Mode:     mode,
		Platform: platform,
		AppRoot:  appRoot,
		ExecDir:  execDir,
		stat:     os.Stat,
	}
}

// WithStat replaces the existence check.
func (r *Resolver) WithStat(stat StatFunc) *Resolver {
	r.stat = stat
	return r
}

func (r *Resolver) exists(path string) bool {
	stat := r.stat
	if stat == nil {
		stat = os.Stat
	}
	_, err := stat(path)
	return err == nil
}

// first walks candidates in order and returns the first existing path.
func (r *Resolver) first(candidates ...Candidate) Resolved {
	for _, next := range candidates {
		path := next()
		if path == "" {
			continue
		}
		if r.exists(path) {
			return Resolved{Path: path, Exists: true}
		}
	}
	return NotFound()
}

func join(elem ...string) Candidate {
	return func() string { return filepath.Join(elem...) }
}

// ResourcesDir is the packaged-resources directory for the platform.
func (r *Resolver) ResourcesDir() string {
	return ResourcesDir(r.Platform, r.ExecDir)
}

// ResourcesDir returns <exe>/../Resources inside a macOS bundle and
// <exe>/resources elsewhere.
func ResourcesDir(platform, execDir string) string {
	if platform == "darwin" {
		return filepath.Join(execDir, "..", "Resources")
	}
	return filepath.Join(execDir, "resources")
}

// UIDocument resolves the UI entry document. It always returns a path; the
// caller decides what to do when Exists is false.
func (r *Resolver) UIDocument() Resolved {
	if r.Mode == lib.ModeDevelopment {
		path := filepath.Join(r.AppRoot, "frontend", "dist", "index.html")
		return Resolved{Path: path, Exists: r.exists(path)}
	}

	primary := filepath.Join(r.ResourcesDir(), "app", "index.html")
	found := r.first(
		join(primary),
		join(r.ExecDir, "..", "app", "index.html"),
	)
	if found.Found() {
		return found
	}
	return Resolved{Path: primary}
}

// Backend resolves the backend location: the backend project directory in
// development, the bundled executable when packaged. Packaged resolution is
// only defined for darwin; other platforms get NotFound unless an override
// is configured.
func (r *Resolver) Backend() Resolved {
	if r.Mode == lib.ModeDevelopment {
		dir := filepath.Join(r.AppRoot, "backend")
		return Resolved{Path: dir, Exists: r.exists(dir)}
	}

	candidates := []Candidate{func() string { return strings.TrimSpace(r.BackendOverride) }}
	if r.Platform == "darwin" {
		candidates = append(candidates,
			join(r.ResourcesDir(), "backend", BackendExecutable),
			join(r.ExecDir, "..", "backend", BackendExecutable),
		)
	}
	return r.first(candidates...)
}

// Entry resolves the development entry file inside the backend directory.
func (r *Resolver) Entry(backendDir string) Resolved {
	return r.first(join(backendDir, BackendEntry))
}

// DetectMode decides the runtime mode from the environment and the layout
// around the executable.
func DetectMode(lookupEnv func(string) (string, bool), platform, execDir string, stat StatFunc) lib.RuntimeMode {
	if v, ok := lookupEnv(ModeEnv); ok {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "development", "dev":
			return lib.ModeDevelopment
		case "production", "packaged":
			return lib.ModePackaged
		}
	}
	if stat == nil {
		stat = os.Stat
	}
	if info, err := stat(ResourcesDir(platform, execDir)); err == nil && info.IsDir() {
		return lib.ModePackaged
	}
	return lib.ModeDevelopment
}
