// Package readiness tells when a freshly spawned backend has finished
// initialising. Both signals are advisory: nothing blocks on them.
package readiness

import (
	"bytes"
	"context"
	"net/http"
	"sync"
	"time"
)

// DefaultMarkers are the phrases uvicorn prints once the app is serving.
var DefaultMarkers = []string{"Uvicorn running", "Application startup complete"}

// Detector inspects process output. Observe returns true for the chunk that
// first completes a readiness marker and false for every other chunk.
type Detector interface {
	Observe(chunk []byte) bool
}

// MarkerDetector matches fixed substrings, including markers split across
// chunk boundaries. Observe keeps a single carry and suits one stream; use
// Stream to get a view per stream when several streams feed the same
// detector. It is safe for concurrent use.
type MarkerDetector struct {
	mu      sync.Mutex
	markers [][]byte
	carry   []byte
	keep    int
	fired   bool
}

// NewMarkerDetector builds a detector; no markers means DefaultMarkers.
func NewMarkerDetector(markers ...string) *MarkerDetector {
	if len(markers) == 0 {
		markers = DefaultMarkers
	}
	d := &MarkerDetector{}
	for _, m := range markers {
		if m == "" {
			continue
		}
		d.markers = append(d.markers, []byte(m))
		if len(m)-1 > d.keep {
			d.keep = len(m) - 1
		}
	}
	return d
}

func (d *MarkerDetector) Observe(chunk []byte) bool {
	return d.observe(&d.carry, chunk)
}

// Stream returns a Detector with its own carry. Every view of d shares the
// fired flag, so the marker is reported once across all of them.
func (d *MarkerDetector) Stream() *StreamDetector {
	return &StreamDetector{d: d}
}

func (d *MarkerDetector) observe(carry *[]byte, chunk []byte) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fired || len(d.markers) == 0 {
		return false
	}

	window := append(*carry, chunk...)
	for _, m := range d.markers {
		if bytes.Contains(window, m) {
			d.fired = true
			*carry = nil
			return true
		}
	}
	if len(window) > d.keep {
		window = window[len(window)-d.keep:]
	}
	*carry = append([]byte(nil), window...)
	return false
}

// StreamDetector is the view of a MarkerDetector for one output stream.
type StreamDetector struct {
	d     *MarkerDetector
	carry []byte // guarded by d.mu
}

func (s *StreamDetector) Observe(chunk []byte) bool {
	return s.d.observe(&s.carry, chunk)
}

// Fired reports whether a marker has been seen.
func (d *MarkerDetector) Fired() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fired
}

// Probe polls an HTTP endpoint until it answers with a non-error status.
type Probe struct {
	URL      string
	Interval time.Duration
	Client   *http.Client
}

const defaultProbeInterval = 500 * time.Millisecond

// NewProbe creates a Probe for url with a short per-request timeout.
func NewProbe(url string) *Probe {
	return &Probe{
		URL:      url,
		Interval: defaultProbeInterval,
		Client:   &http.Client{Timeout: 2 * time.Second},
	}
}

// Check performs one request.
func (p *Probe) Check(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return false
	}
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 400
}

// Wait blocks until Check succeeds or ctx is done.
func (p *Probe) Wait(ctx context.Context) error {
	interval := p.Interval
	if interval <= 0 {
		interval = defaultProbeInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if p.Check(ctx) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
