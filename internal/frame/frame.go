// Package frame provides coordinate frames and the stateless transforms
// between them: ECI (Earth-Centered Inertial), ECEF (Earth-Centered
// Earth-Fixed), ENU (local East-North-Up), and geodetic coordinates.
//
// Each frame gets its own vector type so a transform's input and output
// frames are enforced by the signature instead of by caller discipline.
// All positions are kilometers and velocities km/s unless a name says
// otherwise; observer altitude is meters above the WGS-84 ellipsoid.
package frame

import "math"

// ECI is a position or velocity in the Earth-centered inertial frame (km, km/s).
type ECI struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Norm returns the vector magnitude.
func (v ECI) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// ECEF is a position or velocity in the Earth-centered Earth-fixed frame (km, km/s).
type ECEF struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Norm returns the vector magnitude.
func (v ECEF) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// ENU is an observer-relative vector in the local East-North-Up tangent frame (km).
type ENU struct {
	East  float64 `json:"east"`
	North float64 `json:"north"`
	Up    float64 `json:"up"`
}

// Norm returns the vector magnitude.
func (v ENU) Norm() float64 {
	return math.Sqrt(v.East*v.East + v.North*v.North + v.Up*v.Up)
}

// Geodetic is a position on or above the Earth: latitude/longitude in
// degrees, altitude in kilometers.
type Geodetic struct {
	LatDeg float64 `json:"latitude"`
	LonDeg float64 `json:"longitude"`
	AltKm  float64 `json:"altitude_km"`
}

// AzEl is a topocentric direction: azimuth measured clockwise from North,
// elevation above the local horizon, and slant range.
type AzEl struct {
	AzimuthDeg   float64 `json:"azimuth"`
	ElevationDeg float64 `json:"elevation"`
	RangeKm      float64 `json:"range_km"`
}

// Observer is a ground observer location. The ECEF coordinates and
// latitude/longitude trig terms are precomputed once at construction so
// they can be reused across many transform calls.
type Observer struct {
	LatDeg float64 `json:"latitude"`
	LonDeg float64 `json:"longitude"`
	AltM   float64 `json:"altitude_m"`

	latRad, lonRad float64
	ecef           ECEF
}

// NewObserver creates an Observer from geodetic coordinates. Latitude and
// longitude in degrees, altitude in meters above the WGS-84 ellipsoid.
func NewObserver(latDeg, lonDeg, altM float64) Observer {
	return Observer{
		LatDeg: latDeg,
		LonDeg: lonDeg,
		AltM:   altM,
		latRad: latDeg * math.Pi / 180.0,
		lonRad: lonDeg * math.Pi / 180.0,
		ecef:   GeodeticToECEF(latDeg, lonDeg, altM),
	}
}

// ECEF returns the observer's precomputed Earth-fixed position (km).
func (o Observer) ECEF() ECEF {
	return o.ecef
}
