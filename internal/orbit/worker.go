package orbit

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/mvdmakesthings/Ephemeris-sub002/internal/astrotime"
	"github.com/mvdmakesthings/Ephemeris-sub002/internal/frame"
	"github.com/mvdmakesthings/Ephemeris-sub002/internal/tle"
)

// propagateJob is a unit of work for the worker pool.
type propagateJob struct {
	orbit      *Orbit
	targetTime time.Time
	gmst       float64 // precomputed GMST for targetTime
}

// propagateResult is the output of a single satellite propagation.
type propagateResult struct {
	position      SatellitePosition
	err           error
	catalogNumber int
}

// WorkerPool manages a fixed number of goroutines for parallel propagation.
type WorkerPool struct {
	workers int
	logger  *slog.Logger
}

// NewWorkerPool creates a worker pool with the given number of workers.
func NewWorkerPool(workers int, logger *slog.Logger) *WorkerPool {
	return &WorkerPool{
		workers: workers,
		logger:  logger,
	}
}

// PropagateBatch propagates all satellites to the target time using the worker pool.
// Satellites missing from orbits (rejected at cache-build time) and satellites
// whose propagation fails are logged and skipped.
func (wp *WorkerPool) PropagateBatch(ctx context.Context, entries []tle.ElementSet, targetTime time.Time, orbits map[int]*Orbit) ([]SatellitePosition, int, int) {
	if len(entries) == 0 {
		return nil, 0, 0
	}

	// Precompute GMST once for the target time (same for all satellites).
	gmst := astrotime.GMST(targetTime)

	jobs := make(chan propagateJob, wp.workers*2)
	results := make(chan propagateResult, wp.workers*2)

	// Start workers.
	var wg sync.WaitGroup
	for i := 0; i < wp.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				result := propagateSingle(job)
				select {
				case results <- result:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	// Feed jobs in a goroutine.
	go func() {
		defer close(jobs)
		for _, entry := range entries {
			o, ok := orbits[entry.CatalogNumber]
			if !ok {
				continue
			}
			job := propagateJob{
				orbit:      o,
				targetTime: targetTime,
				gmst:       gmst,
			}
			select {
			case jobs <- job:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Close results when all workers are done.
	go func() {
		wg.Wait()
		close(results)
	}()

	// Collect results.
	positions := make([]SatellitePosition, 0, len(entries))
	var successCount, errorCount int

	for result := range results {
		if result.err != nil {
			errorCount++
			wp.logger.Warn("propagation failed",
				"catalog_number", result.catalogNumber,
				"error", result.err,
			)
			continue
		}
		successCount++
		positions = append(positions, result.position)
	}

	return positions, successCount, errorCount
}

// propagateSingle performs the Kepler propagation and ECI→ECEF transform for
// one satellite, reusing the batch-wide GMST.
func propagateSingle(job propagateJob) propagateResult {
	catnum := job.orbit.Elements().CatalogNumber

	posECI, velECI, err := job.orbit.StateECI(job.targetTime)
	if err != nil {
		return propagateResult{catalogNumber: catnum, err: err}
	}

	pos := frame.ECIToECEF(posECI, job.gmst)
	vel := frame.ECIVelocityToECEF(posECI, velECI, job.gmst)

	if err := validateState(pos); err != nil {
		return propagateResult{catalogNumber: catnum, err: err}
	}

	return propagateResult{
		catalogNumber: catnum,
		position: SatellitePosition{
			CatalogNumber: catnum,
			PositionECEF:  [3]float64{pos.X, pos.Y, pos.Z},
			VelocityECEF:  [3]float64{vel.X, vel.Y, vel.Z},
		},
	}
}

// validateState rejects non-finite or sub-surface positions, which indicate
// a degenerate element set rather than a usable state.
func validateState(pos frame.ECEF) error {
	r := pos.Norm()
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return fmt.Errorf("non-finite position")
	}
	if r < EarthMeanRadiusKm {
		return fmt.Errorf("position magnitude %.1f km is below the surface", r)
	}
	return nil
}
