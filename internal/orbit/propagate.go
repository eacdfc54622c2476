package orbit

import (
	"math"
	"time"

	"github.com/mvdmakesthings/Ephemeris-sub002/internal/astrotime"
	"github.com/mvdmakesthings/Ephemeris-sub002/internal/frame"
)

// StateECI returns the inertial position (km) and velocity (km/s) at t.
//
// The chain is the classical one: advance the mean anomaly, invert
// Kepler's equation, take the true anomaly, form the perifocal state and
// rotate it into ECI with the 3-1-3 sequence Rz(Ω)·Rx(i)·Rz(ω).
func (o *Orbit) StateECI(t time.Time) (frame.ECI, frame.ECI, error) {
	if o.Eccentricity >= 1 {
		return frame.ECI{}, frame.ECI{}, &SingularityError{Eccentricity: o.Eccentricity}
	}

	meanAnomaly := o.MeanAnomalyAt(t)
	eccAnomaly := SolveKepler(meanAnomaly, o.Eccentricity, o.solver)
	nu, err := TrueAnomalyFromEccentric(eccAnomaly, o.Eccentricity)
	if err != nil {
		return frame.ECI{}, frame.ECI{}, err
	}

	a := o.SemiMajorAxisKm
	e := o.Eccentricity
	r := a * (1 - e*math.Cos(eccAnomaly))
	p := a * (1 - e*e) // semi-latus rectum

	sinNu, cosNu := math.Sincos(nu)

	// Perifocal frame: x toward perigee, z along angular momentum.
	px, py := r*cosNu, r*sinNu
	vFactor := math.Sqrt(EarthMu / p)
	pvx, pvy := -vFactor*sinNu, vFactor*(e+cosNu)

	posX, posY, posZ := o.perifocalToECI(px, py, 0)
	velX, velY, velZ := o.perifocalToECI(pvx, pvy, 0)

	pos := frame.ECI{X: posX, Y: posY, Z: posZ}
	vel := frame.ECI{X: velX, Y: velY, Z: velZ}
	return pos, vel, nil
}

// PositionECI returns the inertial position (km) at t.
func (o *Orbit) PositionECI(t time.Time) (frame.ECI, error) {
	pos, _, err := o.StateECI(t)
	return pos, err
}

// StateECEF returns the Earth-fixed position (km) and velocity (km/s) at
// t, using the GMST at t for the frame rotation. The velocity includes
// the ω×r term so an Earth-fixed object comes out at rest.
func (o *Orbit) StateECEF(t time.Time) (frame.ECEF, frame.ECEF, error) {
	pos, vel, err := o.StateECI(t)
	if err != nil {
		return frame.ECEF{}, frame.ECEF{}, err
	}
	gmst := astrotime.GMST(t)
	return frame.ECIToECEF(pos, gmst), frame.ECIVelocityToECEF(pos, vel, gmst), nil
}

// PositionECEF returns the Earth-fixed position (km) at t.
func (o *Orbit) PositionECEF(t time.Time) (frame.ECEF, error) {
	pos, err := o.PositionECI(t)
	if err != nil {
		return frame.ECEF{}, err
	}
	return frame.ECIToECEF(pos, astrotime.GMST(t)), nil
}

// SubPoint returns the ground point directly beneath the satellite at t.
//
// This reduction uses a spherical Earth of radius EarthMeanRadiusKm, not
// the WGS-84 ellipsoid: latitude is the geocentric angle and altitude is
// the distance above the mean sphere. It is a display-grade quantity;
// observation geometry goes through the ellipsoidal path in the frame
// package instead.
func (o *Orbit) SubPoint(t time.Time) (frame.Geodetic, error) {
	pos, err := o.PositionECEF(t)
	if err != nil {
		return frame.Geodetic{}, err
	}

	r := pos.Norm()
	lat := 90.0 - math.Acos(pos.Z/r)*180.0/math.Pi
	lon := math.Atan2(pos.Y, pos.X) * 180.0 / math.Pi

	return frame.Geodetic{
		LatDeg: lat,
		LonDeg: lon,
		AltKm:  r - EarthMeanRadiusKm,
	}, nil
}

// perifocalToECI rotates a perifocal vector into ECI: Rz(ω) about the
// angular-momentum axis, Rx(i) to tilt the orbital plane, Rz(Ω) to line
// up the ascending node.
func (o *Orbit) perifocalToECI(x, y, z float64) (float64, float64, float64) {
	x, y, z = rotZ(x, y, z, o.argPerigee)
	x, y, z = rotX(x, y, z, o.inclRad)
	x, y, z = rotZ(x, y, z, o.raanRad)
	return x, y, z
}

// rotZ rotates a vector counterclockwise by theta about the Z axis.
func rotZ(x, y, z, theta float64) (float64, float64, float64) {
	sin, cos := math.Sincos(theta)
	return x*cos - y*sin, x*sin + y*cos, z
}

// rotX rotates a vector counterclockwise by theta about the X axis.
func rotX(x, y, z, theta float64) (float64, float64, float64) {
	sin, cos := math.Sincos(theta)
	return x, y*cos - z*sin, y*sin + z*cos
}
