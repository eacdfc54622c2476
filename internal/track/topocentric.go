// Package track turns orbits into observer-relative products: topocentric
// observations, ground and sky tracks, and visibility pass predictions.
package track

import (
	"time"

	"github.com/mvdmakesthings/Ephemeris-sub002/internal/frame"
	"github.com/mvdmakesthings/Ephemeris-sub002/internal/orbit"
)

// Topocentric is a single observation of a satellite from a ground station.
type Topocentric struct {
	Time         time.Time `json:"time"`
	AzimuthDeg   float64   `json:"azimuth"`
	ElevationDeg float64   `json:"elevation"`
	RangeKm      float64   `json:"range_km"`
	// RangeRateKmS is the slant-range rate: negative while approaching,
	// positive while receding.
	RangeRateKmS float64 `json:"range_rate_km_s"`
}

// ObserveOptions adjusts how observations are computed.
type ObserveOptions struct {
	// Refraction applies Bennett's atmospheric correction to the
	// elevation angle. Off by default: the geometric angle is what most
	// downstream consumers (antenna rotators, link budgets) want.
	Refraction bool
}

// Observe computes the look angles and range rate from obs to the
// satellite at t.
func Observe(o *orbit.Orbit, obs frame.Observer, t time.Time, opts ObserveOptions) (Topocentric, error) {
	pos, vel, err := o.StateECEF(t)
	if err != nil {
		return Topocentric{}, err
	}

	rel := frame.ECEFToENU(pos, obs)
	la := frame.LookAngles(rel)
	if opts.Refraction {
		la.ElevationDeg = frame.ApparentElevationDeg(la.ElevationDeg)
	}

	// Project the Earth-fixed velocity onto the line of sight. The
	// observer is static in ECEF, so the satellite's ECEF velocity is
	// already the relative velocity.
	velENU := frame.ECEFVectorToENU(vel, obs)
	var rangeRate float64
	if la.RangeKm > 0 {
		rangeRate = (velENU.East*rel.East + velENU.North*rel.North + velENU.Up*rel.Up) / la.RangeKm
	}

	return Topocentric{
		Time:         t,
		AzimuthDeg:   la.AzimuthDeg,
		ElevationDeg: la.ElevationDeg,
		RangeKm:      la.RangeKm,
		RangeRateKmS: rangeRate,
	}, nil
}
