package readiness

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkerDetector_FiresOnce(t *testing.T) {
	d := NewMarkerDetector()

	assert.False(t, d.Observe([]byte("INFO:     Started server process [4242]\n")))
	assert.True(t, d.Observe([]byte("INFO:     Application startup complete.\n")))
	assert.False(t, d.Observe([]byte("INFO:     Application startup complete.\n")))
	assert.False(t, d.Observe([]byte("INFO:     Uvicorn running on http://127.0.0.1:8000\n")))
	assert.True(t, d.Fired())
}

func TestMarkerDetector_SplitAcrossChunks(t *testing.T) {
	d := NewMarkerDetector()

	assert.False(t, d.Observe([]byte("INFO:     Uvicorn run")))
	assert.True(t, d.Observe([]byte("ning on http://127.0.0.1:8000\n")))
}

func TestMarkerDetector_CustomMarkers(t *testing.T) {
	d := NewMarkerDetector("ready", "")

	assert.False(t, d.Observe([]byte("Application startup complete")))
	assert.True(t, d.Observe([]byte("server ready")))
}

func TestMarkerDetector_StreamsKeepSeparateCarry(t *testing.T) {
	d := NewMarkerDetector()
	stdout, stderr := d.Stream(), d.Stream()

	assert.False(t, stdout.Observe([]byte("INFO:     Uvicorn run")))
	assert.False(t, stderr.Observe([]byte("WARNING: slow import\n")))
	assert.True(t, stdout.Observe([]byte("ning on http://127.0.0.1:8000\n")))
	assert.True(t, d.Fired())

	// a marker already reported on one stream is not reported again
	assert.False(t, stderr.Observe([]byte("INFO:     Application startup complete.\n")))
}

func TestMarkerDetector_NoMatchAcrossStreams(t *testing.T) {
	d := NewMarkerDetector("server ready")
	stdout, stderr := d.Stream(), d.Stream()

	assert.False(t, stdout.Observe([]byte("server")))
	assert.False(t, stderr.Observe([]byte(" ready")))
	assert.False(t, d.Fired())
}

func TestMarkerDetector_CarryIsBounded(t *testing.T) {
	d := NewMarkerDetector("abc")
	for i := 0; i < 100; i++ {
		d.Observe([]byte("xxxxxxxxxxxxxxxx"))
	}
	assert.LessOrEqual(t, len(d.carry), 2)
}

func TestProbe_WaitsForHealthyEndpoint(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"message":"PSI Forecast System API"}`))
	}))
	defer srv.Close()

	p := NewProbe(srv.URL)
	p.Interval = 5 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, p.Wait(ctx))
	assert.GreaterOrEqual(t, calls.Load(), int32(3))
}

func TestProbe_GivesUpOnContext(t *testing.T) {
	p := NewProbe("http://127.0.0.1:1/")
	p.Interval = 5 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Wait(ctx), context.DeadlineExceeded)
}
