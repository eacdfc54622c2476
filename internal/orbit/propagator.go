package orbit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mvdmakesthings/Ephemeris-sub002/internal/metrics"
	"github.com/mvdmakesthings/Ephemeris-sub002/internal/tle"
)

// orbitCache holds derived Orbits for a specific element dataset.
// Immutable after construction; safe for concurrent reads.
type orbitCache struct {
	orbits    map[int]*Orbit
	fetchedAt time.Time
}

// Propagator orchestrates keyframe generation for element datasets.
type Propagator struct {
	store   *tle.Store
	pool    *WorkerPool
	config  PropConfig
	logger  *slog.Logger
	cache   atomic.Pointer[orbitCache]
	cacheMu sync.Mutex // serializes cache rebuilds
}

// NewPropagator creates a new propagation orchestrator.
func NewPropagator(store *tle.Store, config PropConfig, logger *slog.Logger) *Propagator {
	pool := NewWorkerPool(config.Workers, logger)
	return &Propagator{
		store:  store,
		pool:   pool,
		config: config,
		logger: logger,
	}
}

// cachedOrbits returns derived Orbits for the given dataset. Rebuilds the
// cache if the dataset has changed (double-checked locking).
func (p *Propagator) cachedOrbits(ds *tle.Dataset) map[int]*Orbit {
	if c := p.cache.Load(); c != nil && c.fetchedAt.Equal(ds.FetchedAt) {
		return c.orbits
	}

	p.cacheMu.Lock()
	defer p.cacheMu.Unlock()

	if c := p.cache.Load(); c != nil && c.fetchedAt.Equal(ds.FetchedAt) {
		return c.orbits
	}

	orbits := make(map[int]*Orbit, len(ds.Satellites))
	var skipped int
	for i := range ds.Satellites {
		entry := &ds.Satellites[i]
		if _, ok := orbits[entry.CatalogNumber]; ok {
			continue
		}
		o, err := New(entry)
		if err != nil {
			p.logger.Warn("orbit cache init failed", "catalog_number", entry.CatalogNumber, "error", err)
			skipped++
			continue
		}
		orbits[entry.CatalogNumber] = o
	}

	p.logger.Info("orbit cache rebuilt",
		"cached", len(orbits),
		"skipped", skipped,
		"dataset_fetched_at", ds.FetchedAt.UTC().Format(time.RFC3339),
	)
	p.cache.Store(&orbitCache{orbits: orbits, fetchedAt: ds.FetchedAt})
	return orbits
}

// Orbit returns the cached Orbit for a catalog number, or nil if the
// satellite is absent from the current dataset.
func (p *Propagator) Orbit(catalogNumber int) *Orbit {
	ds := p.store.Get()
	if ds == nil {
		return nil
	}
	return p.cachedOrbits(ds)[catalogNumber]
}

// PropagateToTime generates a single keyframe at the given target time.
// Uses the current element dataset from the store.
func (p *Propagator) PropagateToTime(ctx context.Context, targetTime time.Time) (*Keyframe, error) {
	ds := p.store.Get()
	if ds == nil {
		return nil, fmt.Errorf("no element dataset loaded")
	}

	orbits := p.cachedOrbits(ds)

	p.logger.Debug("propagating",
		"satellite_count", len(ds.Satellites),
		"target_time", targetTime.UTC().Format(time.RFC3339),
		"workers", p.config.Workers,
	)

	start := time.Now()
	positions, successCount, errorCount := p.pool.PropagateBatch(ctx, ds.Satellites, targetTime, orbits)
	duration := time.Since(start)

	metrics.RecordPropagation(duration, successCount, errorCount)

	p.logger.Debug("propagation complete",
		"success", successCount,
		"errors", errorCount,
		"duration_ms", duration.Milliseconds(),
	)

	return &Keyframe{
		Timestamp:  targetTime,
		Satellites: positions,
	}, nil
}

// GenerateKeyframes generates keyframes from startTime over the configured
// horizon at the configured step interval.
func (p *Propagator) GenerateKeyframes(ctx context.Context, startTime time.Time) ([]*Keyframe, error) {
	ds := p.store.Get()
	if ds == nil {
		return nil, fmt.Errorf("no element dataset loaded")
	}

	numFrames := int(p.config.Horizon/p.config.Step) + 1
	keyframes := make([]*Keyframe, 0, numFrames)

	for i := 0; i < numFrames; i++ {
		select {
		case <-ctx.Done():
			return keyframes, ctx.Err()
		default:
		}

		targetTime := startTime.Add(time.Duration(i) * p.config.Step)
		kf, err := p.PropagateToTime(ctx, targetTime)
		if err != nil {
			return keyframes, fmt.Errorf("keyframe %d at %s: %w", i, targetTime.Format(time.RFC3339), err)
		}
		keyframes = append(keyframes, kf)
	}

	return keyframes, nil
}
