package window

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/zserge/lorca"
	"go.uber.org/zap"
)

// ErrNoBrowser is returned when no Chrome or Chromium installation is found.
var ErrNoBrowser = errors.New("no chrome installation found")

const defaultLoadTimeout = 15 * time.Second

// ChromeHost opens windows as Chrome app windows driven over the DevTools
// protocol.
type ChromeHost struct {
	// ProfileDir holds the browser profile. Empty means a temporary one.
	ProfileDir  string
	LoadTimeout time.Duration
	Logger      *zap.Logger
}

func (h *ChromeHost) Open(opts Options) (Window, error) {
	if lorca.LocateChrome() == "" {
		return nil, ErrNoBrowser
	}

	args := []string{"--disable-translate", "--disable-sync"}
	if opts.DevTools {
		args = append(args, "--auto-open-devtools-for-tabs")
	}
	ui, err := lorca.New("", h.ProfileDir, opts.Width, opts.Height, args...)
	if err != nil {
		return nil, fmt.Errorf("launch chrome: %w", err)
	}

	timeout := h.LoadTimeout
	if timeout <= 0 {
		timeout = defaultLoadTimeout
	}
	logger := h.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &chromeWindow{
		ui:      ui,
		opts:    opts,
		timeout: timeout,
		logger:  logger,
		ready:   make(chan struct{}),
	}

	if opts.Hidden {
		if err := ui.SetBounds(lorca.Bounds{WindowState: lorca.WindowStateMinimized}); err != nil {
			logger.Debug("failed to minimize window", zap.Error(err))
		}
	}
	if err := ui.Bind(BridgeName, w.bridge); err != nil {
		_ = ui.Close()
		return nil, fmt.Errorf("bind %s: %w", BridgeName, err)
	}
	return w, nil
}

type chromeWindow struct {
	ui      lorca.UI
	opts    Options
	timeout time.Duration
	logger  *zap.Logger

	mu     sync.Mutex
	chrome string

	readyOnce sync.Once
	ready     chan struct{}
}

func (w *chromeWindow) bridge() Bridge {
	w.mu.Lock()
	defer w.mu.Unlock()
	b := w.opts.Bridge
	b.Versions.Chrome = w.chrome
	return b
}

func fileURL(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	p := filepath.ToSlash(abs)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return (&url.URL{Scheme: "file", Path: p}).String(), nil
}

func (w *chromeWindow) LoadFile(path string) error {
	u, err := fileURL(path)
	if err != nil {
		return err
	}
	return w.LoadURL(u)
}

func (w *chromeWindow) LoadURL(u string) error {
	if err := w.ui.Load(u); err != nil {
		return err
	}

	deadline := time.Now().Add(w.timeout)
	for {
		state := w.ui.Eval("document.readyState")
		if err := state.Err(); err != nil {
			return err
		}
		if s := state.String(); s == "interactive" || s == "complete" {
			break
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("load %s: timed out", u)
		}
		time.Sleep(50 * time.Millisecond)
	}

	// a failed navigation still completes, on chrome's own error page
	if proto := w.ui.Eval("location.protocol").String(); proto == "chrome-error:" {
		return fmt.Errorf("load %s: navigation failed", u)
	}

	w.mu.Lock()
	if w.chrome == "" {
		w.chrome = chromeVersion(w.ui.Eval("navigator.userAgent").String())
	}
	w.mu.Unlock()

	w.readyOnce.Do(func() { close(w.ready) })
	return nil
}

func chromeVersion(userAgent string) string {
	for _, field := range strings.Fields(userAgent) {
		if v, ok := strings.CutPrefix(field, "Chrome/"); ok {
			return v
		}
	}
	return ""
}

func (w *chromeWindow) Show() error {
	if err := w.ui.SetBounds(lorca.Bounds{WindowState: lorca.WindowStateNormal}); err != nil {
		return err
	}
	b, err := w.ui.Bounds()
	if err == nil && (b.Width < w.opts.MinWidth || b.Height < w.opts.MinHeight) {
		err = w.ui.SetBounds(lorca.Bounds{
			Left:        b.Left,
			Top:         b.Top,
			Width:       max(b.Width, w.opts.MinWidth),
			Height:      max(b.Height, w.opts.MinHeight),
			WindowState: lorca.WindowStateNormal,
		})
	}
	if err != nil {
		w.logger.Debug("failed to adjust window bounds", zap.Error(err))
	}
	return w.ui.Eval("window.focus()").Err()
}

func (w *chromeWindow) Notify(channel string, payload any) error {
	name, err := json.Marshal(channel)
	if err != nil {
		return err
	}
	detail, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	js := fmt.Sprintf("window.dispatchEvent(new CustomEvent(%s, {detail: %s}))", name, detail)
	return w.ui.Eval(js).Err()
}

func (w *chromeWindow) Ready() <-chan struct{} { return w.ready }

func (w *chromeWindow) Closed() <-chan struct{} { return w.ui.Done() }

func (w *chromeWindow) Close() error { return w.ui.Close() }
