package cache

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/mvdmakesthings/Ephemeris-sub002/internal/orbit"
	"github.com/mvdmakesthings/Ephemeris-sub002/internal/tle"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func issElements() tle.ElementSet {
	return tle.ElementSet{
		Name:           "ISS (ZARYA)",
		CatalogNumber:  25544,
		Epoch:          time.Date(2020, 3, 2, 14, 11, 0, 0, time.UTC),
		InclinationDeg: 51.6465,
		RAANDeg:        80.9440,
		Eccentricity:   0.0003880,
		ArgPerigeeDeg:  163.9730,
		MeanAnomalyDeg: 274.8239,
		MeanMotion:     15.48685836,
	}
}

func testStore() *tle.Store {
	store := tle.NewStore()
	store.Set(tle.NewDataset("test", time.Now(), []tle.ElementSet{issElements()}))
	return store
}

func testPropagator(store *tle.Store) *orbit.Propagator {
	cfg := orbit.PropConfig{Workers: 2, Step: 5 * time.Second, Horizon: 30 * time.Second}
	return orbit.NewPropagator(store, cfg, testLogger())
}

func testConfig() Config {
	return Config{
		Step:        5 * time.Second,
		Horizon:     30 * time.Second,
		GracePeriod: 5 * time.Second,
		Buffer:      10 * time.Second,
	}
}

// TestKeyframeCache tests basic cache operations: put, get, stats.
func TestKeyframeCache(t *testing.T) {
	store := testStore()
	prop := testPropagator(store)
	c := NewKeyframeCache(testConfig(), prop, store, testLogger())

	ctx := context.Background()
	target := time.Now().UTC().Truncate(5 * time.Second)
	kf, err := prop.PropagateToTime(ctx, target)
	if err != nil {
		t.Fatalf("PropagateToTime failed: %v", err)
	}

	c.put(kf)

	got := c.Get(target)
	if got == nil {
		t.Fatal("expected cache hit, got nil")
	}
	if !got.Timestamp.Equal(target) {
		t.Errorf("timestamp mismatch: got %v, want %v", got.Timestamp, target)
	}

	stats := c.Stats()
	if stats.Entries != 1 {
		t.Errorf("entries: got %d, want 1", stats.Entries)
	}
	if stats.Hits < 1 {
		t.Errorf("hits: got %d, want >= 1", stats.Hits)
	}
}

// TestRoundToStep verifies timestamp rounding.
func TestRoundToStep(t *testing.T) {
	store := testStore()
	c := NewKeyframeCache(testConfig(), testPropagator(store), store, testLogger())

	tests := []struct {
		input    time.Time
		expected time.Time
	}{
		{
			input:    time.Date(2026, 2, 6, 12, 0, 3, 0, time.UTC),
			expected: time.Date(2026, 2, 6, 12, 0, 0, 0, time.UTC),
		},
		{
			input:    time.Date(2026, 2, 6, 12, 0, 7, 0, time.UTC),
			expected: time.Date(2026, 2, 6, 12, 0, 5, 0, time.UTC),
		},
		{
			input:    time.Date(2026, 2, 6, 12, 0, 10, 0, time.UTC),
			expected: time.Date(2026, 2, 6, 12, 0, 10, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		got := c.RoundToStep(tt.input)
		if !got.Equal(tt.expected) {
			t.Errorf("RoundToStep(%v) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

// TestCacheMiss verifies that a miss returns nil and increments the miss counter.
func TestCacheMiss(t *testing.T) {
	store := testStore()
	c := NewKeyframeCache(testConfig(), testPropagator(store), store, testLogger())

	if got := c.Get(time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC)); got != nil {
		t.Fatal("expected nil for cache miss")
	}
	if stats := c.Stats(); stats.Misses < 1 {
		t.Errorf("misses: got %d, want >= 1", stats.Misses)
	}
}

// TestEvictExpired verifies that expired entries are removed.
func TestEvictExpired(t *testing.T) {
	store := testStore()
	prop := testPropagator(store)
	cfg := testConfig()
	cfg.Buffer = 0 // Evict immediately once in the past.
	c := NewKeyframeCache(cfg, prop, store, testLogger())

	ctx := context.Background()

	pastTime := time.Now().UTC().Add(-2 * time.Minute).Truncate(5 * time.Second)
	kf, err := prop.PropagateToTime(ctx, pastTime)
	if err != nil {
		t.Fatalf("PropagateToTime failed: %v", err)
	}
	c.put(kf)

	futureTime := time.Now().UTC().Add(1 * time.Minute).Truncate(5 * time.Second)
	kf2, err := prop.PropagateToTime(ctx, futureTime)
	if err != nil {
		t.Fatalf("PropagateToTime failed: %v", err)
	}
	c.put(kf2)

	if c.Stats().Entries != 2 {
		t.Fatalf("expected 2 entries, got %d", c.Stats().Entries)
	}

	if removed := c.evictExpired(); removed != 1 {
		t.Errorf("expected 1 eviction, got %d", removed)
	}

	if c.Get(pastTime) != nil {
		t.Error("expected past entry to be evicted")
	}
	if c.Get(futureTime) == nil {
		t.Error("expected future entry to remain")
	}
}

// TestWarmup verifies the initial warmup fills the window.
func TestWarmup(t *testing.T) {
	store := testStore()
	prop := testPropagator(store)
	cfg := testConfig()
	cfg.Horizon = 15 * time.Second // 4 keyframes: 0, 5, 10, 15.
	c := NewKeyframeCache(cfg, prop, store, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c.warmup(ctx)

	stats := c.Stats()
	expectedFrames := int(cfg.Horizon/cfg.Step) + 1
	if stats.Entries < expectedFrames {
		t.Errorf("warmup generated %d entries, expected >= %d", stats.Entries, expectedFrames)
	}

	if c.GetLatest() == nil {
		t.Fatal("GetLatest returned nil after warmup")
	}
}

// TestDatasetCutover verifies graceful dataset cutover.
func TestDatasetCutover(t *testing.T) {
	store := testStore()
	prop := testPropagator(store)
	cfg := testConfig()
	cfg.Horizon = 10 * time.Second // 3 keyframes: 0, 5, 10.
	c := NewKeyframeCache(cfg, prop, store, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c.warmup(ctx)

	if c.Stats().Entries == 0 {
		t.Fatal("no entries after warmup")
	}

	// Simulate a refresh by setting a dataset with a newer FetchedAt.
	store.Set(tle.NewDataset("updated", time.Now().Add(1*time.Second), []tle.ElementSet{issElements()}))

	if !c.datasetChanged() {
		t.Fatal("expected datasetChanged() after dataset update")
	}

	c.performCutover(ctx)

	if c.inGracePeriod.Load() {
		t.Error("grace period should be false after cutover")
	}
	if c.Stats().Entries == 0 {
		t.Fatal("no entries after cutover")
	}
	if c.datasetChanged() {
		t.Error("expected datasetChanged() to be false after cutover")
	}
}

// TestGetLatestEmpty verifies GetLatest with an empty cache returns nil.
func TestGetLatestEmpty(t *testing.T) {
	store := testStore()
	c := NewKeyframeCache(testConfig(), testPropagator(store), store, testLogger())

	if got := c.GetLatest(); got != nil {
		t.Fatal("expected nil from empty cache")
	}
}

// TestGetRecent verifies trail retrieval ordering.
func TestGetRecent(t *testing.T) {
	store := testStore()
	prop := testPropagator(store)
	c := NewKeyframeCache(testConfig(), prop, store, testLogger())

	ctx := context.Background()
	base := time.Now().UTC().Truncate(5 * time.Second)
	for i := 0; i < 4; i++ {
		kf, err := prop.PropagateToTime(ctx, base.Add(time.Duration(i)*5*time.Second))
		if err != nil {
			t.Fatalf("PropagateToTime failed: %v", err)
		}
		c.put(kf)
	}

	recent := c.GetRecent(base.Add(15*time.Second), 3)
	if len(recent) != 3 {
		t.Fatalf("got %d keyframes, want 3", len(recent))
	}
	for i := 1; i < len(recent); i++ {
		if !recent[i-1].Timestamp.Before(recent[i].Timestamp) {
			t.Errorf("keyframes not ordered oldest-first: %v then %v", recent[i-1].Timestamp, recent[i].Timestamp)
		}
	}
}

// TestConcurrentAccess verifies the cache is safe for concurrent reads and writes.
func TestConcurrentAccess(t *testing.T) {
	store := testStore()
	prop := testPropagator(store)
	c := NewKeyframeCache(testConfig(), prop, store, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	go c.Start(ctx)

	// Give warmup time to complete.
	time.Sleep(2 * time.Second)

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				c.GetLatest()
				c.Get(time.Now())
				c.Stats()
			}
			done <- struct{}{}
		}()
	}

	for i := 0; i < 10; i++ {
		select {
		case <-done:
		case <-ctx.Done():
			t.Fatal("timeout waiting for concurrent reads")
		}
	}
}

// TestSizeEstimation verifies the size estimation is reasonable.
func TestSizeEstimation(t *testing.T) {
	store := testStore()
	prop := testPropagator(store)
	cfg := testConfig()
	cfg.Horizon = 10 * time.Second
	c := NewKeyframeCache(cfg, prop, store, testLogger())

	c.warmup(context.Background())

	stats := c.Stats()
	if stats.SizeBytes <= 0 {
		t.Errorf("expected positive size estimate, got %d", stats.SizeBytes)
	}
	if stats.SizeBytes > 10000 {
		t.Errorf("size estimate seems too large for 1 satellite: %d bytes", stats.SizeBytes)
	}
}
