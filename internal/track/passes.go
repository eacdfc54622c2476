package track

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/mvdmakesthings/Ephemeris-sub002/internal/frame"
	"github.com/mvdmakesthings/Ephemeris-sub002/internal/metrics"
	"github.com/mvdmakesthings/Ephemeris-sub002/internal/orbit"
	"github.com/mvdmakesthings/Ephemeris-sub002/internal/tle"
)

// Pass describes a single satellite pass over an observer location.
type Pass struct {
	// AOS (acquisition of signal) is when the elevation first reaches the
	// threshold. If the satellite is already above the threshold at the
	// window start, AOS is the window start.
	AOS time.Time `json:"aos"`
	// LOS (loss of signal) is when the elevation drops back below the
	// threshold. If the pass is still open at the window end, LOS is the
	// window end.
	LOS              time.Time `json:"los"`
	MaxElevationTime time.Time `json:"max_elevation_time"`
	DurationSeconds  float64   `json:"duration_seconds"`

	MaxElevationDeg float64 `json:"max_elevation"`
	AOSAzimuthDeg   float64 `json:"aos_azimuth"`
	LOSAzimuthDeg   float64 `json:"los_azimuth"`
	AzimuthAtMaxDeg float64 `json:"azimuth_at_max"`

	// GroundTrack samples the sub-satellite point over the pass.
	GroundTrack []GroundPoint `json:"ground_track,omitempty"`
}

// SatellitePasses holds the predicted passes for one satellite.
type SatellitePasses struct {
	CatalogNumber int    `json:"catalog_number"`
	Passes        []Pass `json:"passes"`
	Error         string `json:"error,omitempty"`
}

// PredictOptions adjusts the pass search.
type PredictOptions struct {
	// MinElevationDeg is the visibility threshold. Zero means the
	// geometric horizon.
	MinElevationDeg float64
	// Step is the coarse scan interval (default 30s). A pass shorter
	// than Step can be missed entirely; LEO passes last minutes, so the
	// default is safe for them.
	Step time.Duration
	// Refine is the bisection tolerance for AOS/LOS times (default 1s).
	Refine time.Duration
	// Refraction applies Bennett's correction before comparing against
	// the threshold, so a pass is bounded by apparent visibility.
	Refraction bool
	// MaxPasses caps passes per satellite. Zero means no cap.
	MaxPasses int
}

// Request holds the parameters for a multi-satellite prediction request.
type Request struct {
	Observer frame.Observer
	Entries  []tle.ElementSet
	Start    time.Time
	End      time.Time
	Options  PredictOptions
}

const (
	defaultStep     = 30 * time.Second
	defaultRefine   = time.Second
	fineStep        = time.Second
	groundTrackStep = 10 * time.Second
	minPassDur      = 10 * time.Second
)

func (opts *PredictOptions) setDefaults() {
	if opts.Step <= 0 {
		opts.Step = defaultStep
	}
	if opts.Refine <= 0 {
		opts.Refine = defaultRefine
	}
}

// Predict computes passes for all requested satellites. Each satellite is
// processed in its own goroutine, bounded by a semaphore.
func Predict(ctx context.Context, req Request) []SatellitePasses {
	start := time.Now()

	results := make([]SatellitePasses, len(req.Entries))
	sem := make(chan struct{}, runtime.NumCPU())
	var wg sync.WaitGroup

	for i := range req.Entries {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			entry := &req.Entries[idx]

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[idx] = SatellitePasses{
					CatalogNumber: entry.CatalogNumber,
					Error:         "cancelled",
				}
				return
			}

			passes, err := predictSatellite(ctx, req, entry)
			if err != nil {
				results[idx] = SatellitePasses{
					CatalogNumber: entry.CatalogNumber,
					Error:         err.Error(),
				}
				return
			}
			results[idx] = SatellitePasses{
				CatalogNumber: entry.CatalogNumber,
				Passes:        passes,
			}
		}(i)
	}

	wg.Wait()

	var total int
	for _, r := range results {
		total += len(r.Passes)
	}
	metrics.RecordPassPrediction(time.Since(start), total)

	return results
}

// predictSatellite finds all passes for a single satellite.
func predictSatellite(ctx context.Context, req Request, entry *tle.ElementSet) ([]Pass, error) {
	o, err := orbit.New(entry)
	if err != nil {
		return nil, fmt.Errorf("orbit init: %w", err)
	}
	return PredictPasses(ctx, o, req.Observer, req.Start, req.End, req.Options)
}

// PredictPasses scans [start, end] for intervals where the satellite's
// elevation meets the threshold.
//
// The scan is coarse-stepped; each threshold crossing is then refined by
// bisection to within opts.Refine. Two boundary policies apply: a
// satellite already visible at start opens a pass at start, and a pass
// still open at end closes at end.
func PredictPasses(ctx context.Context, o *orbit.Orbit, obs frame.Observer, start, end time.Time, opts PredictOptions) ([]Pass, error) {
	opts.setDefaults()
	obsOpts := ObserveOptions{Refraction: opts.Refraction}

	first, err := Observe(o, obs, start, obsOpts)
	if err != nil {
		return nil, err
	}

	var passes []Pass
	prevTime := start
	prevAbove := first.ElevationDeg >= opts.MinElevationDeg

	var aos time.Time
	if prevAbove {
		aos = start
	}

	for t := start.Add(opts.Step); !t.After(end.Add(opts.Step)); t = t.Add(opts.Step) {
		if ctx.Err() != nil {
			return passes, ctx.Err()
		}
		if t.After(end) {
			t = end
		}

		tp, err := Observe(o, obs, t, obsOpts)
		if err != nil {
			return passes, err
		}
		above := tp.ElevationDeg >= opts.MinElevationDeg

		switch {
		case above && !prevAbove:
			aos = bisectCrossing(o, obs, obsOpts, opts, prevTime, t, true)
		case !above && prevAbove:
			los := bisectCrossing(o, obs, obsOpts, opts, prevTime, t, false)
			if los.Sub(aos) >= minPassDur {
				pass, err := buildPass(ctx, o, obs, obsOpts, aos, los)
				if err != nil {
					return passes, err
				}
				passes = append(passes, pass)
				if opts.MaxPasses > 0 && len(passes) >= opts.MaxPasses {
					return passes, nil
				}
			}
		}

		prevTime = t
		prevAbove = above
		if t.Equal(end) {
			break
		}
	}

	// Still above threshold at the window end: pin LOS to end.
	if prevAbove {
		if end.Sub(aos) >= minPassDur {
			pass, err := buildPass(ctx, o, obs, obsOpts, aos, end)
			if err != nil {
				return passes, err
			}
			passes = append(passes, pass)
		}
	}

	return passes, nil
}

// bisectCrossing narrows a threshold crossing between lo (below when
// rising, above when setting) and hi down to opts.Refine, and returns the
// above-threshold endpoint so the reported instant lies inside the pass.
func bisectCrossing(o *orbit.Orbit, obs frame.Observer, obsOpts ObserveOptions, opts PredictOptions, lo, hi time.Time, rising bool) time.Time {
	for hi.Sub(lo) > opts.Refine {
		mid := lo.Add(hi.Sub(lo) / 2)
		tp, err := Observe(o, obs, mid, obsOpts)
		if err != nil {
			break
		}
		above := tp.ElevationDeg >= opts.MinElevationDeg
		if above == rising {
			hi = mid
		} else {
			lo = mid
		}
	}
	if rising {
		return hi
	}
	return lo
}

// buildPass fills in azimuths, the elevation maximum, and the ground
// track by fine-scanning the refined [aos, los] interval.
func buildPass(ctx context.Context, o *orbit.Orbit, obs frame.Observer, obsOpts ObserveOptions, aos, los time.Time) (Pass, error) {
	pass := Pass{
		AOS:             aos,
		LOS:             los,
		DurationSeconds: los.Sub(aos).Seconds(),
		MaxElevationDeg: -90,
	}

	aosObs, err := Observe(o, obs, aos, obsOpts)
	if err != nil {
		return Pass{}, err
	}
	pass.AOSAzimuthDeg = aosObs.AzimuthDeg

	losObs, err := Observe(o, obs, los, obsOpts)
	if err != nil {
		return Pass{}, err
	}
	pass.LOSAzimuthDeg = losObs.AzimuthDeg

	lastTrack := aos.Add(-groundTrackStep)
	for t := aos; !t.After(los); t = t.Add(fineStep) {
		if ctx.Err() != nil {
			return pass, ctx.Err()
		}

		tp, err := Observe(o, obs, t, obsOpts)
		if err != nil {
			return Pass{}, err
		}

		if tp.ElevationDeg > pass.MaxElevationDeg {
			pass.MaxElevationDeg = tp.ElevationDeg
			pass.MaxElevationTime = t
			pass.AzimuthAtMaxDeg = tp.AzimuthDeg
		}

		if t.Sub(lastTrack) >= groundTrackStep {
			sp, err := o.SubPoint(t)
			if err != nil {
				return Pass{}, err
			}
			pass.GroundTrack = append(pass.GroundTrack, GroundPoint{Time: t, Point: sp})
			lastTrack = t
		}
	}

	return pass, nil
}
