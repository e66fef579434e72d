package noaa

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/space-weather-forecaster/internal/domain"
	"github.com/couchcryptid/space-weather-forecaster/internal/observability"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func testConfig(srv *httptest.Server) Config {
	return Config{
		ProductsURL: srv.URL + "/products",
		JSONURL:     srv.URL + "/json",
		DonkiURL:    srv.URL + "/DONKI",
		APIKey:      "test-key",
		Timeout:     time.Second,
	}
}

func newTestClient(srv *httptest.Server, metrics *observability.Metrics) *Client {
	c := NewClientWithFetcher(testConfig(srv), NewHTTPFetcher(time.Second), discardLogger, metrics)
	c.backoff = 0
	return c
}

func TestHTTPFetcher_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		_, _ = w.Write([]byte(`[1]`))
	}))
	defer srv.Close()

	body, err := NewHTTPFetcher(time.Second).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, `[1]`, string(body))
}

func TestHTTPFetcher_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`maintenance`))
	}))
	defer srv.Close()

	_, err := NewHTTPFetcher(time.Second).Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
	assert.Contains(t, err.Error(), "maintenance")
}

func TestHTTPFetcher_ErrorOmitsQuery(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, err := NewHTTPFetcher(time.Second).Fetch(context.Background(), addr+"/DONKI/FLR?api_key=s3cr3t")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "s3cr3t")
	assert.Contains(t, err.Error(), "/DONKI/FLR?REDACTED")
}

func TestCollectAll_DoesNotLogAPIKey(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	cfg := testConfig(srv)
	srv.Close()

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	c := NewClientWithFetcher(cfg, NewHTTPFetcher(time.Second), logger, observability.NewMetricsForTesting())
	c.backoff = 0

	assert.Empty(t, c.CollectAll(context.Background()))
	assert.Contains(t, logs.String(), "source unavailable")
	assert.NotContains(t, logs.String(), cfg.APIKey)
}

func TestCollect_FallsBackToNextEndpoint(t *testing.T) {
	var (
		mu   sync.Mutex
		hits []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits = append(hits, r.URL.Path)
		mu.Unlock()
		switch r.URL.Path {
		case "/products/solar-wind/plasma-7-day.json":
			w.WriteHeader(http.StatusNotFound)
		case "/products/solar-wind/plasma-3-day.json":
			_, _ = w.Write([]byte(`[["time_tag"]]`)) // header only
		default:
			_, _ = w.Write([]byte(`[["time_tag","density","speed","temperature"],["2024-05-10 16:00:00.000","5","400","1e5"]]`))
		}
	}))
	defer srv.Close()

	c := newTestClient(srv, observability.NewMetricsForTesting())
	src := Sources(c.cfg, time.Now())[0]
	require.Equal(t, SourceSolarWind, src.Name)

	f, err := c.Collect(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, []float64{400}, f.Column("speed"))
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{
		"/products/solar-wind/plasma-7-day.json",
		"/products/solar-wind/plasma-3-day.json",
		"/products/solar-wind/plasma-1-day.json",
	}, hits)
}

func TestCollectAll_IsolatesFailingSources(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/json/planetary_k_index_1m.json":
			_, _ = w.Write([]byte(`[{"time_tag":"2024-05-10T16:00:00","kp_index":8}]`))
		case "/DONKI/FLR":
			_, _ = w.Write([]byte(`[{"beginTime":"2024-05-10T06:27Z","classType":"X3.9"}]`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	metrics := observability.NewMetricsForTesting()
	got := newTestClient(srv, metrics).CollectAll(context.Background())

	require.Len(t, got, 2)
	assert.Equal(t, []float64{8}, got[SourceGeomagnetic].Column("kp_index"))
	assert.Equal(t, []string{"X3.9"}, got[SourceFlares].Label("classType"))
	assert.NotContains(t, got, SourceSolarWind)

	assert.InDelta(t, 1, testutil.ToFloat64(metrics.SourceFetches.WithLabelValues(SourceGeomagnetic, "success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.SourceFetches.WithLabelValues(SourceCME, "error")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.SourceFetches.WithLabelValues(SourceMagnetometer, "error")), 0)
}

func TestCollectAll_StopsOnCancelledContext(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got := newTestClient(srv, observability.NewMetricsForTesting()).CollectAll(ctx)
	assert.Empty(t, got)
	assert.Zero(t, calls.Load())
}

func TestSources_DonkiWindow(t *testing.T) {
	clk := clockwork.NewFakeClockAt(time.Date(2024, 5, 31, 12, 0, 0, 0, time.UTC))
	domain.SetClock(clk)
	defer domain.SetClock(nil)

	cfg := Config{DonkiURL: "https://api.nasa.gov/DONKI", APIKey: "KEY"}
	var flr Source
	for _, s := range Sources(cfg, domain.Now()) {
		if s.Name == SourceFlares {
			flr = s
		}
	}
	require.Len(t, flr.URLs, 1)
	assert.Equal(t, "https://api.nasa.gov/DONKI/FLR?api_key=KEY&endDate=2024-05-31&startDate=2024-05-01", flr.URLs[0])
	assert.Equal(t, "beginTime", flr.TimeField)
}

func TestNextBackoff(t *testing.T) {
	assert.Equal(t, 200*time.Millisecond, nextBackoff(100*time.Millisecond, time.Second))
	assert.Equal(t, time.Second, nextBackoff(800*time.Millisecond, time.Second))
}

func TestSleepWithContext_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, sleepWithContext(ctx, time.Hour))
	assert.True(t, sleepWithContext(ctx, 0))
}
