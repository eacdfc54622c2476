package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mvdmakesthings/Ephemeris-sub002/internal/cache"
	"github.com/mvdmakesthings/Ephemeris-sub002/internal/orbit"
	"github.com/mvdmakesthings/Ephemeris-sub002/internal/tle"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}

func testStore() *tle.Store {
	store := tle.NewStore()
	store.Set(tle.NewDataset("test", time.Date(2026, 2, 6, 3, 45, 0, 0, time.UTC), []tle.ElementSet{
		{CatalogNumber: 25544, Name: "ISS"},
	}))
	return store
}

func testCache(store *tle.Store) *cache.KeyframeCache {
	return cache.NewKeyframeCache(cache.Config{
		Step:        5 * time.Second,
		Horizon:     30 * time.Second,
		GracePeriod: 5 * time.Second,
		Buffer:      10 * time.Second,
	}, nil, store, testLogger())
}

func testConfig() Config {
	return Config{
		MaxConcurrentPerIP: 10,
		KeepaliveInterval:  30 * time.Second,
	}
}

// TestBuildBatchMessage verifies the keyframe batch payload structure.
func TestBuildBatchMessage(t *testing.T) {
	kf := &orbit.Keyframe{
		Timestamp: time.Date(2026, 2, 6, 4, 0, 0, 0, time.UTC),
		Satellites: []orbit.SatellitePosition{
			{
				CatalogNumber: 25544,
				PositionECEF:  [3]float64{6378.137, 0.0, 0.0},
			},
			{
				CatalogNumber: 67890,
				PositionECEF:  [3]float64{6378.137, 100.0, 0.0},
			},
		},
	}

	msg := buildBatchMessage(kf, nil)

	if msg.Type != "keyframe_batch" {
		t.Errorf("type = %q, want %q", msg.Type, "keyframe_batch")
	}
	if msg.Frame != "ECEF" {
		t.Errorf("frame = %q, want %q", msg.Frame, "ECEF")
	}
	if msg.T != "2026-02-06T04:00:00Z" {
		t.Errorf("t = %q, want %q", msg.T, "2026-02-06T04:00:00Z")
	}
	if len(msg.Sat) != 2 {
		t.Fatalf("sat count = %d, want 2", len(msg.Sat))
	}
	if msg.Sat[0].ID != 25544 {
		t.Errorf("sat[0].id = %d, want 25544", msg.Sat[0].ID)
	}
	if msg.Sat[0].P != [3]float64{6378.137, 0.0, 0.0} {
		t.Errorf("sat[0].p = %v, want [6378.137 0 0]", msg.Sat[0].P)
	}
}

// TestBuildBatchMessageTrail verifies trail positions are attached oldest-first.
func TestBuildBatchMessageTrail(t *testing.T) {
	at := func(x float64) *orbit.Keyframe {
		return &orbit.Keyframe{
			Timestamp: time.Date(2026, 2, 6, 4, 0, 0, 0, time.UTC),
			Satellites: []orbit.SatellitePosition{
				{CatalogNumber: 25544, PositionECEF: [3]float64{x, 0, 0}},
			},
		}
	}

	msg := buildBatchMessage(at(3), []*orbit.Keyframe{at(1), at(2)})
	if len(msg.Sat) != 1 {
		t.Fatalf("sat count = %d, want 1", len(msg.Sat))
	}
	tr := msg.Sat[0].Tr
	if len(tr) != 2 || tr[0][0] != 1 || tr[1][0] != 2 {
		t.Errorf("trail = %v, want [[1 0 0] [2 0 0]]", tr)
	}
}

// TestMetadataMessageJSON verifies the metadata message format.
func TestMetadataMessageJSON(t *testing.T) {
	msg := metadataMessage{
		Type:         "metadata",
		DatasetEpoch: "2026-02-06T03:45:00Z",
		TLEAge:       1800,
	}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatal(err)
	}

	var parsed map[string]any
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatal(err)
	}

	if parsed["type"] != "metadata" {
		t.Errorf("type = %v, want metadata", parsed["type"])
	}
	if parsed["dataset_epoch"] != "2026-02-06T03:45:00Z" {
		t.Errorf("dataset_epoch = %v, want 2026-02-06T03:45:00Z", parsed["dataset_epoch"])
	}
	if parsed["tle_age_seconds"].(float64) != 1800 {
		t.Errorf("tle_age_seconds = %v, want 1800", parsed["tle_age_seconds"])
	}
}

// TestSSEMessageFormat verifies the SSE wire format: "data: {json}\n\n".
func TestSSEMessageFormat(t *testing.T) {
	store := testStore()
	handler := NewHandler(testCache(store), store, Config{
		MaxConcurrentPerIP: 10,
		KeepaliveInterval:  5 * time.Second,
	}, testLogger())

	req := httptest.NewRequest("GET", "/api/v1/stream/keyframes?step=1", nil)
	req.RemoteAddr = "127.0.0.1:12345"

	ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
	defer cancel()
	req = req.WithContext(ctx)

	w := httptest.NewRecorder()
	handler.HandleKeyframes(w, req)

	resp := w.Result()

	if resp.Header.Get("Content-Type") != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", resp.Header.Get("Content-Type"))
	}
	if resp.Header.Get("Cache-Control") != "no-cache" {
		t.Errorf("Cache-Control = %q, want no-cache", resp.Header.Get("Cache-Control"))
	}

	body := w.Body.String()
	scanner := bufio.NewScanner(strings.NewReader(body))
	var foundMetadata bool

	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "data: ") {
			jsonStr := strings.TrimPrefix(line, "data: ")
			var msg map[string]any
			if err := json.Unmarshal([]byte(jsonStr), &msg); err != nil {
				t.Errorf("invalid JSON in SSE data line: %v", err)
				continue
			}
			if msg["type"] == "metadata" {
				foundMetadata = true
				if _, ok := msg["dataset_epoch"]; !ok {
					t.Error("metadata missing dataset_epoch")
				}
				if _, ok := msg["tle_age_seconds"]; !ok {
					t.Error("metadata missing tle_age_seconds")
				}
			}
		}
	}

	if !foundMetadata {
		t.Error("did not receive metadata message")
	}

	// Only "data:", "retry:", keepalive comments, and blank lines may appear.
	for _, line := range strings.Split(body, "\n") {
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "data: ") && !strings.HasPrefix(line, "retry: ") && line != ":" {
			if strings.TrimSpace(line) != "" {
				t.Errorf("unexpected SSE line: %q", line)
			}
		}
	}
}

// TestRateLimiting verifies per-IP concurrent stream limits.
func TestRateLimiting(t *testing.T) {
	limiter := newStreamLimiter(3)

	for i := 0; i < 3; i++ {
		if !limiter.acquire("10.0.0.1") {
			t.Fatalf("acquire %d should succeed", i+1)
		}
	}

	if limiter.acquire("10.0.0.1") {
		t.Error("acquire beyond limit should fail")
	}

	if !limiter.acquire("10.0.0.2") {
		t.Error("different IP should not be rate limited")
	}

	limiter.release("10.0.0.1")
	if !limiter.acquire("10.0.0.1") {
		t.Error("acquire after release should succeed")
	}

	if c := limiter.count("10.0.0.1"); c != 3 {
		t.Errorf("count = %d, want 3", c)
	}
	if c := limiter.count("10.0.0.2"); c != 1 {
		t.Errorf("count = %d, want 1", c)
	}
}

// TestRateLimitingConcurrent verifies rate limiter thread safety.
func TestRateLimitingConcurrent(t *testing.T) {
	limiter := newStreamLimiter(100)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.acquire("10.0.0.1") {
				defer limiter.release("10.0.0.1")
				time.Sleep(10 * time.Millisecond)
			}
		}()
	}
	wg.Wait()

	if c := limiter.count("10.0.0.1"); c != 0 {
		t.Errorf("count after all released = %d, want 0", c)
	}
}

// TestRateLimitHTTPResponse verifies the 429 response when the limit is exceeded.
func TestRateLimitHTTPResponse(t *testing.T) {
	store := testStore()
	handler := NewHandler(testCache(store), store, Config{
		MaxConcurrentPerIP: 1,
		KeepaliveInterval:  30 * time.Second,
	}, testLogger())

	// Hold the first connection open.
	ready := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		req := httptest.NewRequest("GET", "/api/v1/stream/keyframes", nil)
		req.RemoteAddr = "10.0.0.1:12345"
		ctx, cancel := context.WithCancel(req.Context())
		req = req.WithContext(ctx)
		w := httptest.NewRecorder()

		go func() {
			time.Sleep(50 * time.Millisecond)
			close(ready)
			time.Sleep(200 * time.Millisecond)
			cancel()
		}()

		handler.HandleKeyframes(w, req)
	}()

	<-ready

	// Second connection from the same IP should get 429.
	req := httptest.NewRequest("GET", "/api/v1/stream/keyframes", nil)
	req.RemoteAddr = "10.0.0.1:54321"
	w := httptest.NewRecorder()
	handler.HandleKeyframes(w, req)

	if w.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}

	<-done
}

// TestInvalidQueryParams verifies error responses for bad step/trail values.
func TestInvalidQueryParams(t *testing.T) {
	store := testStore()
	handler := NewHandler(testCache(store), store, testConfig(), testLogger())

	tests := []struct {
		name  string
		query string
	}{
		{"bad step", "?step=0"},
		{"step too large", "?step=100"},
		{"step non-numeric", "?step=abc"},
		{"negative trail", "?trail=-1"},
		{"trail too large", "?trail=999"},
		{"trail non-numeric", "?trail=xyz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/v1/stream/keyframes"+tt.query, nil)
			req.RemoteAddr = "127.0.0.1:12345"
			w := httptest.NewRecorder()
			handler.HandleKeyframes(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
		})
	}
}
