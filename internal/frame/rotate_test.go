package frame

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"

	"github.com/mvdmakesthings/Ephemeris-sub002/internal/astrotime"
)

func TestECIToECEFZeroGMST(t *testing.T) {
	p := ECI{X: 7000, Y: 100, Z: -300}
	got := ECIToECEF(p, 0)
	if got.X != p.X || got.Y != p.Y || got.Z != p.Z {
		t.Errorf("R3(0) should be identity, got %+v", got)
	}
}

func TestECIToECEFQuarterTurn(t *testing.T) {
	// GMST of π/2: the inertial +Y axis maps onto Earth-fixed +X.
	got := ECIToECEF(ECI{X: 0, Y: 7000, Z: 0}, math.Pi/2)
	if !scalar.EqualWithinAbs(got.X, 7000, 1e-9) || !scalar.EqualWithinAbs(got.Y, 0, 1e-9) {
		t.Errorf("quarter turn = %+v, want {7000 0 0}", got)
	}
}

func TestECIToECEFPreservesMagnitude(t *testing.T) {
	p := ECI{X: 4123.4, Y: -5231.1, Z: 2222.2}
	got := ECIToECEF(p, 1.2345)
	if !scalar.EqualWithinAbs(got.Norm(), p.Norm(), 1e-9) {
		t.Errorf("rotation changed magnitude: %v -> %v", p.Norm(), got.Norm())
	}
}

func TestECIVelocityToECEFGeostationary(t *testing.T) {
	// A satellite fixed over the equator in ECEF moves through inertial
	// space at ω×r. Transforming that inertial velocity back must leave
	// (near) zero Earth-fixed velocity.
	const rGEO = 42164.0
	gmst := 0.7

	posECEF := ECEF{X: rGEO, Y: 0, Z: 0}

	// Invert R3: r_ECI = R3(−θ)·r_ECEF.
	posECI := ECI{
		X: posECEF.X*math.Cos(gmst) - posECEF.Y*math.Sin(gmst),
		Y: posECEF.X*math.Sin(gmst) + posECEF.Y*math.Cos(gmst),
		Z: 0,
	}

	// Inertial velocity of an Earth-fixed point: ω × r_ECI.
	velECI := ECI{
		X: -astrotime.OmegaEarth * posECI.Y,
		Y: astrotime.OmegaEarth * posECI.X,
		Z: 0,
	}

	vECEF := ECIVelocityToECEF(posECI, velECI, gmst)
	if vECEF.Norm() > 1e-9 {
		t.Errorf("Earth-fixed velocity of geostationary point = %v km/s, want ~0", vECEF.Norm())
	}
}

func TestECEFToENUDirections(t *testing.T) {
	// Observer on the equator at the prime meridian: ECEF +Z is local
	// North, ECEF +Y is local East, ECEF +X is local Up.
	obs := NewObserver(0, 0, 0)
	base := obs.ECEF()

	north := ECEFToENU(ECEF{X: base.X, Y: base.Y, Z: base.Z + 100}, obs)
	if !scalar.EqualWithinAbs(north.North, 100, 1e-9) || math.Abs(north.East) > 1e-9 {
		t.Errorf("northward offset = %+v, want North=100", north)
	}

	east := ECEFToENU(ECEF{X: base.X, Y: base.Y + 100, Z: base.Z}, obs)
	if !scalar.EqualWithinAbs(east.East, 100, 1e-9) || math.Abs(east.North) > 1e-9 {
		t.Errorf("eastward offset = %+v, want East=100", east)
	}

	up := ECEFToENU(ECEF{X: base.X + 100, Y: base.Y, Z: base.Z}, obs)
	if !scalar.EqualWithinAbs(up.Up, 100, 1e-9) {
		t.Errorf("radial offset = %+v, want Up=100", up)
	}
}

func TestLookAnglesOverhead(t *testing.T) {
	la := LookAngles(ENU{East: 0, North: 0, Up: 400})
	if !scalar.EqualWithinAbs(la.ElevationDeg, 90, 1e-9) {
		t.Errorf("overhead elevation = %v, want 90", la.ElevationDeg)
	}
	if !scalar.EqualWithinAbs(la.RangeKm, 400, 1e-9) {
		t.Errorf("overhead range = %v, want 400", la.RangeKm)
	}
}

func TestLookAnglesAzimuthQuadrants(t *testing.T) {
	cases := []struct {
		enu    ENU
		wantAz float64
	}{
		{ENU{East: 0, North: 100, Up: 0}, 0},
		{ENU{East: 100, North: 0, Up: 0}, 90},
		{ENU{East: 0, North: -100, Up: 0}, 180},
		{ENU{East: -100, North: 0, Up: 0}, 270},
		{ENU{East: 100, North: 100, Up: 0}, 45},
	}

	for _, tc := range cases {
		la := LookAngles(tc.enu)
		if !scalar.EqualWithinAbs(la.AzimuthDeg, tc.wantAz, 1e-9) {
			t.Errorf("LookAngles(%+v).AzimuthDeg = %v, want %v", tc.enu, la.AzimuthDeg, tc.wantAz)
		}
		if la.AzimuthDeg < 0 || la.AzimuthDeg >= 360 {
			t.Errorf("azimuth %v outside [0, 360)", la.AzimuthDeg)
		}
	}
}

func TestLookAnglesBelowHorizon(t *testing.T) {
	la := LookAngles(ENU{East: 100, North: 0, Up: -100})
	if la.ElevationDeg >= 0 {
		t.Errorf("elevation = %v, want negative", la.ElevationDeg)
	}
	if !scalar.EqualWithinAbs(la.ElevationDeg, -45, 1e-9) {
		t.Errorf("elevation = %v, want -45", la.ElevationDeg)
	}
}
