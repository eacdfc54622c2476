package orbit

import (
	"fmt"
	"math"
)

// SolverOptions controls the Newton-Raphson iteration that inverts
// Kepler's equation M = E − e·sin(E).
type SolverOptions struct {
	// Tolerance is the convergence threshold on the per-step correction,
	// in radians.
	Tolerance float64
	// MaxIterations caps the iteration count. The loop exits with the
	// best estimate so far when the cap is hit; for elliptical orbits the
	// solver converges in a handful of steps and the cap never binds.
	MaxIterations int
}

// DefaultSolverOptions returns the options used by New.
func DefaultSolverOptions() SolverOptions {
	return SolverOptions{
		Tolerance:     1e-5,
		MaxIterations: 500,
	}
}

// SingularityError reports an eccentricity at or above 1, for which the
// elliptical two-body machinery has no solution.
type SingularityError struct {
	Eccentricity float64
}

func (e *SingularityError) Error() string {
	return fmt.Sprintf("orbit: eccentricity %v is not elliptical (want e < 1)", e.Eccentricity)
}

// SolveKepler solves M = E − e·sin(E) for the eccentric anomaly E using
// Newton-Raphson. meanAnomaly is in radians; the result is in radians and
// not normalized. The initial guess is M + e/2 for M < π and M − e/2
// otherwise, which keeps the iteration on the convergent branch.
func SolveKepler(meanAnomaly, ecc float64, opts SolverOptions) float64 {
	e := meanAnomaly + ecc/2
	if meanAnomaly >= math.Pi {
		e = meanAnomaly - ecc/2
	}

	for i := 0; i < opts.MaxIterations; i++ {
		delta := (e - ecc*math.Sin(e) - meanAnomaly) / (1 - ecc*math.Cos(e))
		e -= delta
		if math.Abs(delta) <= opts.Tolerance {
			break
		}
	}
	return e
}

// TrueAnomalyFromEccentric converts an eccentric anomaly to the true
// anomaly via the half-angle form
//
//	ν = 2·atan2(√(1+e)·sin(E/2), √(1−e)·cos(E/2))
//
// which is well conditioned for all quadrants. Returns a SingularityError
// for e ≥ 1, where √(1−e) leaves the real line.
func TrueAnomalyFromEccentric(eccAnomaly, ecc float64) (float64, error) {
	if ecc >= 1 {
		return 0, &SingularityError{Eccentricity: ecc}
	}

	sinHalf := math.Sqrt(1+ecc) * math.Sin(eccAnomaly/2)
	cosHalf := math.Sqrt(1-ecc) * math.Cos(eccAnomaly/2)
	return normalizeAngle(2 * math.Atan2(sinHalf, cosHalf)), nil
}

// AnomalyResult carries an anomaly angle together with a degradation flag
// for callers that want a value even when the conversion failed.
type AnomalyResult struct {
	// AngleRad is the true anomaly in radians, or the input mean anomaly
	// when Degraded is set.
	AngleRad float64
	// Degraded reports that the eccentricity was non-elliptical and the
	// mean anomaly was passed through unchanged.
	Degraded bool
}

// TrueAnomalyFromMean solves Kepler's equation for the given mean anomaly
// and converts to the true anomaly. For a non-elliptical eccentricity the
// result falls back to the (normalized) mean anomaly with Degraded set
// rather than returning an error, so display paths always have an angle
// to show.
func (o *Orbit) TrueAnomalyFromMean(meanAnomaly float64) AnomalyResult {
	eccAnomaly := SolveKepler(meanAnomaly, o.Eccentricity, o.solver)
	nu, err := TrueAnomalyFromEccentric(eccAnomaly, o.Eccentricity)
	if err != nil {
		return AnomalyResult{AngleRad: normalizeAngle(meanAnomaly), Degraded: true}
	}
	return AnomalyResult{AngleRad: nu}
}
