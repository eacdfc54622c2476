package frame

import "math"

// WGS-84 ellipsoid parameters.
const (
	wgs84A  = 6378.137              // semi-major axis (km)
	wgs84F  = 1.0 / 298.257223563   // flattening
	wgs84E2 = wgs84F * (2 - wgs84F) // first eccentricity squared
)

// GeodeticToECEF converts geodetic coordinates (degrees, meters above the
// WGS-84 ellipsoid) to an Earth-fixed position in kilometers, using the
// exact ellipsoidal formula with the prime-vertical radius of curvature
// N = a/√(1−e²sin²lat).
func GeodeticToECEF(latDeg, lonDeg, altM float64) ECEF {
	lat := latDeg * math.Pi / 180.0
	lon := lonDeg * math.Pi / 180.0
	altKm := altM / 1000.0

	sinLat := math.Sin(lat)
	cosLat := math.Cos(lat)

	N := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)

	return ECEF{
		X: (N + altKm) * cosLat * math.Cos(lon),
		Y: (N + altKm) * cosLat * math.Sin(lon),
		Z: (N*(1-wgs84E2) + altKm) * sinLat,
	}
}

// ECEFToGeodetic converts an Earth-fixed position (km) to geodetic
// coordinates using the iterative Bowring method. Converges in 2-3
// iterations for Earth orbits; five are run for margin.
//
// This is the exact WGS-84 inverse, distinct from the spherical sub-point
// reduction the propagator uses for its own output.
func ECEFToGeodetic(p ECEF) Geodetic {
	lon := math.Atan2(p.Y, p.X)

	rho := math.Sqrt(p.X*p.X + p.Y*p.Y)

	lat := math.Atan2(p.Z, rho*(1-wgs84E2))
	for i := 0; i < 5; i++ {
		sinLat := math.Sin(lat)
		N := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)
		lat = math.Atan2(p.Z+wgs84E2*N*sinLat, rho)
	}

	sinLat := math.Sin(lat)
	cosLat := math.Cos(lat)
	N := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)

	var alt float64
	if math.Abs(cosLat) > 1e-10 {
		alt = rho/cosLat - N
	} else {
		alt = math.Abs(p.Z)/math.Abs(sinLat) - N*(1-wgs84E2)
	}

	return Geodetic{
		LatDeg: lat * 180.0 / math.Pi,
		LonDeg: lon * 180.0 / math.Pi,
		AltKm:  alt,
	}
}
