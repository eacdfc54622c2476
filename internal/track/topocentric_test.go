package track

import (
	"testing"
	"time"
)

func TestObserveRangeBand(t *testing.T) {
	o := issOrbit(t)
	obs := canaveral()

	// Whenever the satellite is above the horizon, the slant range is
	// bounded by the altitude (overhead) and the horizon distance.
	for i := 0; i < 240; i++ {
		ts := o.Epoch().Add(time.Duration(i) * time.Minute)
		tp, err := Observe(o, obs, ts, ObserveOptions{})
		if err != nil {
			t.Fatalf("Observe failed: %v", err)
		}
		if tp.ElevationDeg > 0 {
			if tp.RangeKm < 300 || tp.RangeKm > 2800 {
				t.Errorf("t=%v: range %.0f km implausible at elevation %.1f", ts, tp.RangeKm, tp.ElevationDeg)
			}
		}
		if tp.AzimuthDeg < 0 || tp.AzimuthDeg >= 360 {
			t.Errorf("t=%v: azimuth %v outside [0, 360)", ts, tp.AzimuthDeg)
		}
	}
}

func TestObserveRangeRateSign(t *testing.T) {
	o := issOrbit(t)
	obs := canaveral()

	// Locate the closest approach of one pass by sampling, then check
	// the range rate changes sign across it.
	visible := findVisibleTime(t, o, obs, 10)

	minRange := 1e18
	var tMin time.Time
	for ts := visible.Add(-5 * time.Minute); ts.Before(visible.Add(5 * time.Minute)); ts = ts.Add(time.Second) {
		tp, err := Observe(o, obs, ts, ObserveOptions{})
		if err != nil {
			t.Fatalf("Observe failed: %v", err)
		}
		if tp.RangeKm < minRange {
			minRange = tp.RangeKm
			tMin = ts
		}
	}

	before, err := Observe(o, obs, tMin.Add(-time.Minute), ObserveOptions{})
	if err != nil {
		t.Fatalf("Observe failed: %v", err)
	}
	after, err := Observe(o, obs, tMin.Add(time.Minute), ObserveOptions{})
	if err != nil {
		t.Fatalf("Observe failed: %v", err)
	}

	if before.RangeRateKmS >= 0 {
		t.Errorf("range rate before closest approach = %v, want negative", before.RangeRateKmS)
	}
	if after.RangeRateKmS <= 0 {
		t.Errorf("range rate after closest approach = %v, want positive", after.RangeRateKmS)
	}
}

func TestObserveRangeRateConsistentWithRange(t *testing.T) {
	o := issOrbit(t)
	obs := canaveral()

	// The analytic range rate should match the finite difference of the
	// range over a short interval.
	ts := findVisibleTime(t, o, obs, 10)
	const dt = time.Second

	a, err := Observe(o, obs, ts, ObserveOptions{})
	if err != nil {
		t.Fatalf("Observe failed: %v", err)
	}
	b, err := Observe(o, obs, ts.Add(dt), ObserveOptions{})
	if err != nil {
		t.Fatalf("Observe failed: %v", err)
	}

	numeric := (b.RangeKm - a.RangeKm) / dt.Seconds()
	if diff := numeric - a.RangeRateKmS; diff > 0.05 || diff < -0.05 {
		t.Errorf("range rate %v vs finite difference %v", a.RangeRateKmS, numeric)
	}
}

func TestObserveRefraction(t *testing.T) {
	o := issOrbit(t)
	obs := canaveral()
	ts := findVisibleTime(t, o, obs, 5)

	plain, err := Observe(o, obs, ts, ObserveOptions{})
	if err != nil {
		t.Fatalf("Observe failed: %v", err)
	}
	refracted, err := Observe(o, obs, ts, ObserveOptions{Refraction: true})
	if err != nil {
		t.Fatalf("Observe failed: %v", err)
	}

	if refracted.ElevationDeg <= plain.ElevationDeg {
		t.Errorf("refracted elevation %v not above geometric %v", refracted.ElevationDeg, plain.ElevationDeg)
	}
	// Refraction touches only the elevation angle.
	if refracted.AzimuthDeg != plain.AzimuthDeg || refracted.RangeKm != plain.RangeKm {
		t.Error("refraction altered azimuth or range")
	}
}
