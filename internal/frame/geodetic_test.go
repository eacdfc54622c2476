package frame

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
)

func TestGeodeticToECEFMagnitude(t *testing.T) {
	// Sea-level observer on the equator: magnitude equals the WGS-84
	// equatorial radius.
	p := GeodeticToECEF(0, 0, 0)
	if !scalar.EqualWithinAbs(p.Norm(), 6378.137, 1e-6) {
		t.Errorf("equatorial magnitude = %v km, want 6378.137", p.Norm())
	}

	// North pole: magnitude equals the polar radius (~6356.752 km).
	p2 := GeodeticToECEF(90, 0, 0)
	if !scalar.EqualWithinAbs(p2.Norm(), 6356.7523, 1e-3) {
		t.Errorf("polar magnitude = %v km, want ~6356.752", p2.Norm())
	}
}

func TestGeodeticToECEFAltitude(t *testing.T) {
	p0 := GeodeticToECEF(0, 0, 0)
	p100 := GeodeticToECEF(0, 0, 100)

	diff := p100.Norm() - p0.Norm()
	if !scalar.EqualWithinAbs(diff, 0.1, 1e-6) {
		t.Errorf("100m altitude adds %v km to magnitude, want 0.1", diff)
	}
}

func TestGeodeticRoundTrip(t *testing.T) {
	cases := []struct {
		lat, lon, altM float64
	}{
		{0, 0, 0},
		{40.7128, -74.006, 10},
		{-33.8688, 151.2093, 58},
		{78.2232, 15.6267, 0},
		{27.5867, -82.4251, 400000}, // satellite-height point
		{-89.9, 45, 2000},
	}

	for _, tc := range cases {
		geo := ECEFToGeodetic(GeodeticToECEF(tc.lat, tc.lon, tc.altM))

		// Sub-meter recovery: 1e-8 degrees of latitude is about 1 mm.
		if !scalar.EqualWithinAbs(geo.LatDeg, tc.lat, 1e-7) {
			t.Errorf("lat %v: recovered %v", tc.lat, geo.LatDeg)
		}
		if !scalar.EqualWithinAbs(geo.LonDeg, tc.lon, 1e-7) {
			t.Errorf("lon %v: recovered %v", tc.lon, geo.LonDeg)
		}
		if !scalar.EqualWithinAbs(geo.AltKm*1000, tc.altM, 1.0) {
			t.Errorf("alt %vm: recovered %vm", tc.altM, geo.AltKm*1000)
		}
	}
}

func TestECEFToGeodeticPole(t *testing.T) {
	geo := ECEFToGeodetic(ECEF{X: 0, Y: 0, Z: 6356.7523 + 5})
	if !scalar.EqualWithinAbs(geo.LatDeg, 90, 1e-6) {
		t.Errorf("polar latitude = %v, want 90", geo.LatDeg)
	}
	if !scalar.EqualWithinAbs(geo.AltKm, 5, 1e-3) {
		t.Errorf("polar altitude = %v km, want 5", geo.AltKm)
	}
}

func TestObserverECEFPrecomputed(t *testing.T) {
	obs := NewObserver(40.7128, -74.006, 10)
	direct := GeodeticToECEF(40.7128, -74.006, 10)
	if math.Abs(obs.ECEF().X-direct.X) > 1e-12 ||
		math.Abs(obs.ECEF().Y-direct.Y) > 1e-12 ||
		math.Abs(obs.ECEF().Z-direct.Z) > 1e-12 {
		t.Errorf("observer ECEF %+v != direct conversion %+v", obs.ECEF(), direct)
	}
}
