// Package astrotime provides the time scales the propagation and transform
// packages share: calendar to Julian Date conversion and Greenwich Mean
// Sidereal Time. All functions take explicit instants; nothing here reads
// the system clock.
package astrotime

import (
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
)

// J2000 is the Julian Date of the J2000.0 epoch (January 1, 2000, 12:00:00 TT).
const J2000 = 2451545.0

// OmegaEarth is Earth's rotation rate in rad/s (IAU value).
const OmegaEarth = 7.292115146706979e-5

const secondsPerDay = 86400.0

// JulianDate converts a time.Time to Julian Date on the UTC scale.
func JulianDate(t time.Time) float64 {
	return julian.TimeToJD(t.UTC())
}

// FromJulianDate converts a Julian Date back to a UTC time.Time.
func FromJulianDate(jd float64) time.Time {
	return julian.JDToTime(jd).UTC()
}

// DaysSince returns the number of days (including fraction) from `from` to `to`.
func DaysSince(from, to time.Time) float64 {
	return JulianDate(to) - JulianDate(from)
}

// JulianCenturies returns Julian centuries elapsed from J2000.0 to t.
func JulianCenturies(t time.Time) float64 {
	return (JulianDate(t) - J2000) / 36525.0
}

// GMST calculates Greenwich Mean Sidereal Time in radians for a given UTC
// time, normalized to [0, 2π). Uses the IAU-82 model as described in
// Vallado "Fundamentals of Astrodynamics".
//
// Formula (Vallado Eq 3-47):
//
//	θ_GMST = 67310.54841 + (876600h + 8640184.812866)*T + 0.093104*T² - 6.2e-6*T³
//
// where T is Julian centuries of UT1 from J2000.0, result in seconds of time.
// UTC stands in for UT1, which is good to ~1s of time (~15 µrad of angle).
func GMST(t time.Time) float64 {
	tUT1 := JulianCenturies(t)

	// 876600h = 876600 * 3600 = 3155760000 seconds.
	gmstSec := 67310.54841 +
		(3155760000.0+8640184.812866)*tUT1 +
		0.093104*tUT1*tUT1 -
		6.2e-6*tUT1*tUT1*tUT1

	gmstSec = math.Mod(gmstSec, secondsPerDay)
	if gmstSec < 0 {
		gmstSec += secondsPerDay
	}

	return gmstSec / secondsPerDay * 2.0 * math.Pi
}
