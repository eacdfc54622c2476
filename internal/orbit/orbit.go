// Package orbit implements two-body Keplerian propagation of TLE element
// sets. The model is deliberately simple: no drag and no SGP4 secular or
// periodic terms. The mean-motion derivatives and drag term parsed from
// the TLE are carried but never applied. For LEO satellites this tracks an
// SGP4 reference to within a few kilometers near epoch and drifts as the
// drag terms accumulate.
package orbit

import (
	"fmt"
	"math"
	"time"

	"github.com/mvdmakesthings/Ephemeris-sub002/internal/tle"
)

const (
	// EarthMu is the standard gravitational parameter for Earth in km³/s².
	EarthMu = 398600.4418

	// EarthMeanRadiusKm is the spherical-Earth radius used by the
	// sub-point reduction.
	EarthMeanRadiusKm = 6371.0

	minutesPerDay = 1440.0
	twoPi         = 2 * math.Pi
)

// Orbit holds the classical elements derived from a TLE element set,
// converted to the units the propagation math wants. Immutable after New;
// every position query is a pure function of the orbit and a time.
type Orbit struct {
	// SemiMajorAxisKm is derived from the mean motion via Kepler's third law.
	SemiMajorAxisKm float64
	Eccentricity    float64

	inclRad      float64
	raanRad      float64
	argPerigee   float64
	meanAnomaly0 float64 // at epoch, radians
	meanMotion   float64 // rad/s

	epoch    time.Time
	elements *tle.ElementSet

	solver SolverOptions
}

// New derives an Orbit from a parsed element set using default Kepler
// solver options. The element set's mean motion must be positive; an
// eccentricity ≥ 1 is accepted here and rejected at propagation time with
// a SingularityError.
func New(els *tle.ElementSet) (*Orbit, error) {
	return NewWithSolver(els, DefaultSolverOptions())
}

// NewWithSolver derives an Orbit with explicit Kepler solver options.
func NewWithSolver(els *tle.ElementSet, solver SolverOptions) (*Orbit, error) {
	if els.MeanMotion <= 0 {
		return nil, fmt.Errorf("orbit: mean motion %v rev/day is not positive", els.MeanMotion)
	}

	n := els.MeanMotion * twoPi / 86400.0 // rad/s
	a := math.Cbrt(EarthMu / (n * n))

	deg2rad := math.Pi / 180.0
	return &Orbit{
		SemiMajorAxisKm: a,
		Eccentricity:    els.Eccentricity,
		inclRad:         els.InclinationDeg * deg2rad,
		raanRad:         els.RAANDeg * deg2rad,
		argPerigee:      els.ArgPerigeeDeg * deg2rad,
		meanAnomaly0:    normalizeAngle(els.MeanAnomalyDeg * deg2rad),
		meanMotion:      n,
		epoch:           els.Epoch,
		elements:        els,
		solver:          solver,
	}, nil
}

// Elements returns the source element set.
func (o *Orbit) Elements() *tle.ElementSet {
	return o.elements
}

// Epoch returns the element set epoch.
func (o *Orbit) Epoch() time.Time {
	return o.epoch
}

// Period returns the orbital period (1440/meanMotion minutes).
func (o *Orbit) Period() time.Duration {
	minutes := minutesPerDay / o.elements.MeanMotion
	return time.Duration(minutes * float64(time.Minute))
}

// MeanAnomalyAt returns the mean anomaly at t in radians, normalized to
// [0, 2π): the epoch anomaly advanced by meanMotion over the (possibly
// negative) elapsed time.
func (o *Orbit) MeanAnomalyAt(t time.Time) float64 {
	dtSec := t.Sub(o.epoch).Seconds()
	return normalizeAngle(o.meanAnomaly0 + o.meanMotion*dtSec)
}

// normalizeAngle wraps an angle into [0, 2π).
func normalizeAngle(a float64) float64 {
	a = math.Mod(a, twoPi)
	if a < 0 {
		a += twoPi
	}
	return a
}
