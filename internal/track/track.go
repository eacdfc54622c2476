package track

import (
	"time"

	"github.com/mvdmakesthings/Ephemeris-sub002/internal/frame"
	"github.com/mvdmakesthings/Ephemeris-sub002/internal/orbit"
)

// GroundPoint is one sample of a ground track.
type GroundPoint struct {
	Time  time.Time      `json:"time"`
	Point frame.Geodetic `json:"point"`
}

// GroundTrack iterates the sub-satellite point at a fixed step. Points are
// computed lazily on each Next call, scanner style:
//
//	gt := track.NewGroundTrack(o, start, time.Minute, 90)
//	for gt.Next() {
//		p := gt.Point()
//		...
//	}
//	if err := gt.Err(); err != nil { ... }
//
// Reset rewinds to the first sample so the same track can be walked again.
type GroundTrack struct {
	orbit *orbit.Orbit
	start time.Time
	step  time.Duration
	count int

	i   int
	cur GroundPoint
	err error
}

// NewGroundTrack creates a ground track of count samples starting at start,
// spaced step apart.
func NewGroundTrack(o *orbit.Orbit, start time.Time, step time.Duration, count int) *GroundTrack {
	return &GroundTrack{orbit: o, start: start, step: step, count: count}
}

// Next advances to the next sample. It returns false when the track is
// exhausted or a sample failed; Err distinguishes the two.
func (g *GroundTrack) Next() bool {
	if g.err != nil || g.i >= g.count {
		return false
	}

	t := g.start.Add(time.Duration(g.i) * g.step)
	sp, err := g.orbit.SubPoint(t)
	if err != nil {
		g.err = err
		return false
	}

	g.cur = GroundPoint{Time: t, Point: sp}
	g.i++
	return true
}

// Point returns the sample produced by the last successful Next.
func (g *GroundTrack) Point() GroundPoint {
	return g.cur
}

// Err returns the first error encountered, if any.
func (g *GroundTrack) Err() error {
	return g.err
}

// Reset rewinds the track to its first sample and clears any error.
func (g *GroundTrack) Reset() {
	g.i = 0
	g.cur = GroundPoint{}
	g.err = nil
}

// SkyTrack iterates observer-relative observations at a fixed step, with
// the same scanner shape as GroundTrack.
type SkyTrack struct {
	orbit    *orbit.Orbit
	observer frame.Observer
	opts     ObserveOptions
	start    time.Time
	step     time.Duration
	count    int

	i   int
	cur Topocentric
	err error
}

// NewSkyTrack creates a sky track of count samples starting at start,
// spaced step apart.
func NewSkyTrack(o *orbit.Orbit, obs frame.Observer, opts ObserveOptions, start time.Time, step time.Duration, count int) *SkyTrack {
	return &SkyTrack{orbit: o, observer: obs, opts: opts, start: start, step: step, count: count}
}

// Next advances to the next observation. It returns false when the track
// is exhausted or an observation failed; Err distinguishes the two.
func (s *SkyTrack) Next() bool {
	if s.err != nil || s.i >= s.count {
		return false
	}

	t := s.start.Add(time.Duration(s.i) * s.step)
	obs, err := Observe(s.orbit, s.observer, t, s.opts)
	if err != nil {
		s.err = err
		return false
	}

	s.cur = obs
	s.i++
	return true
}

// Point returns the observation produced by the last successful Next.
func (s *SkyTrack) Point() Topocentric {
	return s.cur
}

// Err returns the first error encountered, if any.
func (s *SkyTrack) Err() error {
	return s.err
}

// Reset rewinds the track to its first sample and clears any error.
func (s *SkyTrack) Reset() {
	s.i = 0
	s.cur = Topocentric{}
	s.err = nil
}
