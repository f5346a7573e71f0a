package window

import (
	"fmt"
	"runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/SanjoDeundiak/psi-desktop/pkg/lib"
	"github.com/SanjoDeundiak/psi-desktop/pkg/lib/paths"
)

const (
	DefaultWidth        = 1400
	DefaultHeight       = 900
	DefaultMinWidth     = 1200
	DefaultMinHeight    = 700
	DefaultDevServerURL = "http://localhost:5173"

	maxPending = 16
)

// Resolver is the part of the path resolver the controller consults.
type Resolver interface {
	UIDocument() paths.Resolved
}

// Config configures a Controller. Zero values take the defaults above.
type Config struct {
	Mode         lib.RuntimeMode
	Platform     string
	DevServerURL string
	ShellVersion string
	Title        string
	Width        int
	Height       int
	MinWidth     int
	MinHeight    int
}

// Controller owns the primary window.
type Controller struct {
	host     Host
	resolver Resolver
	cfg      Config
	logger   *zap.Logger

	mu       sync.Mutex
	win      Window
	shown    bool
	pending  []string
	onClosed func()
}

// NewController creates a Controller with no window.
func NewController(host Host, resolver Resolver, cfg Config, logger *zap.Logger) *Controller {
	if cfg.Platform == "" {
		cfg.Platform = runtime.GOOS
	}
	if cfg.DevServerURL == "" {
		cfg.DevServerURL = DefaultDevServerURL
	}
	if cfg.Title == "" {
		cfg.Title = "PSI"
	}
	if cfg.Width <= 0 {
		cfg.Width = DefaultWidth
	}
	if cfg.Height <= 0 {
		cfg.Height = DefaultHeight
	}
	if cfg.MinWidth <= 0 {
		cfg.MinWidth = DefaultMinWidth
	}
	if cfg.MinHeight <= 0 {
		cfg.MinHeight = DefaultMinHeight
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{host: host, resolver: resolver, cfg: cfg, logger: logger}
}

// OnClosed registers fn to run after the primary window has closed.
func (c *Controller) OnClosed(fn func()) {
	c.mu.Lock()
	c.onClosed = fn
	c.mu.Unlock()
}

func (c *Controller) options() Options {
	w, h := max(c.cfg.Width, c.cfg.MinWidth), max(c.cfg.Height, c.cfg.MinHeight)
	return Options{
		Title:     c.cfg.Title,
		Width:     w,
		Height:    h,
		MinWidth:  c.cfg.MinWidth,
		MinHeight: c.cfg.MinHeight,
		Hidden:    true,
		DevTools:  c.cfg.Mode == lib.ModeDevelopment,
		Bridge: Bridge{
			Platform: c.cfg.Platform,
			Versions: Versions{Go: runtime.Version(), Shell: c.cfg.ShellVersion},
		},
	}
}

// CreateWindow opens the primary window and starts loading the UI. It does
// not wait for the content. With a window already open it only brings that
// window forward; a window still loading is left hidden and shows itself
// once its content is ready.
func (c *Controller) CreateWindow() error {
	c.mu.Lock()
	if existing := c.win; existing != nil {
		shown := c.shown
		c.mu.Unlock()
		if !shown {
			return nil
		}
		return existing.Show()
	}
	win, err := c.host.Open(c.options())
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("open window: %w", err)
	}
	c.win = win
	c.shown = false
	c.mu.Unlock()

	c.logger.Info("window created")
	go c.watch(win)
	go c.load(win)
	return nil
}

// load tries the UI document first and falls back to the dev server.
// Failures are logged only; the window stays open either way.
func (c *Controller) load(win Window) {
	doc := c.resolver.UIDocument()
	if doc.Exists {
		err := win.LoadFile(doc.Path)
		if err == nil {
			return
		}
		c.logger.Warn("failed to load file, falling back to dev server",
			zap.String("path", doc.Path),
			zap.Error(lib.NewFailure(lib.WindowLoadFailure, err)))
	} else {
		c.logger.Info("frontend file not found, loading from dev server",
			zap.String("path", doc.Path),
			zap.String("url", c.cfg.DevServerURL))
	}

	if err := win.LoadURL(c.cfg.DevServerURL); err != nil {
		c.logger.Error("failed to load dev server",
			zap.String("url", c.cfg.DevServerURL),
			zap.Error(lib.NewFailure(lib.WindowLoadFailure, err)))
	}
}

func (c *Controller) watch(win Window) {
	select {
	case <-win.Ready():
		c.show(win)
		<-win.Closed()
	case <-win.Closed():
	}
	c.closed(win)
}

func (c *Controller) show(win Window) {
	c.mu.Lock()
	if c.win != win {
		c.mu.Unlock()
		return
	}
	c.shown = true
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()

	if err := win.Show(); err != nil {
		c.logger.Warn("failed to show window", zap.Error(err))
	}
	for _, msg := range pending {
		c.deliver(win, msg)
	}
}

func (c *Controller) closed(win Window) {
	c.mu.Lock()
	if c.win != win {
		c.mu.Unlock()
		return
	}
	c.win = nil
	c.shown = false
	c.pending = nil
	fn := c.onClosed
	c.mu.Unlock()

	c.logger.Info("window closed")
	if fn != nil {
		fn()
	}
}

// Count returns the number of open windows, zero or one.
func (c *Controller) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.win == nil {
		return 0
	}
	return 1
}

// BackendError relays msg to the content. Messages that arrive before the
// window is shown are queued and delivered when it is.
func (c *Controller) BackendError(msg string) {
	c.mu.Lock()
	win := c.win
	if win == nil || !c.shown {
		if len(c.pending) < maxPending {
			c.pending = append(c.pending, msg)
		}
		c.mu.Unlock()
		c.logger.Info("queued backend error for the window", zap.String("message", msg))
		return
	}
	c.mu.Unlock()
	c.deliver(win, msg)
}

func (c *Controller) deliver(win Window, msg string) {
	if err := win.Notify(ErrorChannel, msg); err != nil {
		c.logger.Warn("failed to deliver backend error", zap.String("message", msg), zap.Error(err))
	}
}

// Close closes the primary window if one is open.
func (c *Controller) Close() error {
	c.mu.Lock()
	win := c.win
	c.mu.Unlock()
	if win == nil {
		return lib.ErrNoWindow
	}
	return win.Close()
}
