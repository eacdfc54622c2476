package frame

import (
	"math"

	"github.com/mvdmakesthings/Ephemeris-sub002/internal/astrotime"
)

// ECIToECEF rotates an inertial position into the Earth-fixed frame by the
// given GMST angle (radians): r_ECEF = R3(θ)·r_ECI.
func ECIToECEF(p ECI, gmst float64) ECEF {
	cosG := math.Cos(gmst)
	sinG := math.Sin(gmst)

	return ECEF{
		X: p.X*cosG + p.Y*sinG,
		Y: -p.X*sinG + p.Y*cosG,
		Z: p.Z,
	}
}

// ECIVelocityToECEF transforms an inertial velocity into the Earth-fixed
// frame. Beyond the R3(GMST) rotation, the Earth-rotation cross term is
// removed:
//
//	v_ECEF = R3(θ)·v_ECI − ω × r_ECEF
//
// where ω = [0, 0, ω_earth]. The position must be the inertial position
// matching the velocity sample.
func ECIVelocityToECEF(pos, vel ECI, gmst float64) ECEF {
	cosG := math.Cos(gmst)
	sinG := math.Sin(gmst)

	rECEF := ECIToECEF(pos, gmst)

	vxRot := vel.X*cosG + vel.Y*sinG
	vyRot := -vel.X*sinG + vel.Y*cosG

	// ω × r_ECEF = [−ω·y, ω·x, 0].
	return ECEF{
		X: vxRot + astrotime.OmegaEarth*rECEF.Y,
		Y: vyRot - astrotime.OmegaEarth*rECEF.X,
		Z: vel.Z,
	}
}

// ECEFToENU translates an Earth-fixed position into the observer's local
// East-North-Up tangent frame.
func ECEFToENU(p ECEF, obs Observer) ENU {
	dx := p.X - obs.ecef.X
	dy := p.Y - obs.ecef.Y
	dz := p.Z - obs.ecef.Z

	sinLat := math.Sin(obs.latRad)
	cosLat := math.Cos(obs.latRad)
	sinLon := math.Sin(obs.lonRad)
	cosLon := math.Cos(obs.lonRad)

	return ENU{
		East:  -sinLon*dx + cosLon*dy,
		North: -sinLat*cosLon*dx - sinLat*sinLon*dy + cosLat*dz,
		Up:    cosLat*cosLon*dx + cosLat*sinLon*dy + sinLat*dz,
	}
}

// ECEFVectorToENU rotates a free Earth-fixed vector (a velocity or offset,
// not a position) into the observer's tangent frame. No translation is
// applied.
func ECEFVectorToENU(v ECEF, obs Observer) ENU {
	sinLat := math.Sin(obs.latRad)
	cosLat := math.Cos(obs.latRad)
	sinLon := math.Sin(obs.lonRad)
	cosLon := math.Cos(obs.lonRad)

	return ENU{
		East:  -sinLon*v.X + cosLon*v.Y,
		North: -sinLat*cosLon*v.X - sinLat*sinLon*v.Y + cosLat*v.Z,
		Up:    cosLat*cosLon*v.X + cosLat*sinLon*v.Y + sinLat*v.Z,
	}
}

// LookAngles reduces an ENU vector to azimuth/elevation/range. Azimuth is
// measured clockwise from North and normalized to [0°, 360°); elevation is
// positive above the local horizon.
func LookAngles(v ENU) AzEl {
	rangeKm := v.Norm()

	el := math.Atan2(v.Up, math.Sqrt(v.East*v.East+v.North*v.North))

	az := math.Atan2(v.East, v.North)
	if az < 0 {
		az += 2 * math.Pi
	}

	return AzEl{
		AzimuthDeg:   az * 180.0 / math.Pi,
		ElevationDeg: el * 180.0 / math.Pi,
		RangeKm:      rangeKm,
	}
}
