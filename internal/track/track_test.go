package track

import (
	"math"
	"testing"
	"time"
)

func TestGroundTrackIteration(t *testing.T) {
	o := issOrbit(t)
	gt := NewGroundTrack(o, o.Epoch(), time.Minute, 90)

	var n int
	var prev time.Time
	for gt.Next() {
		p := gt.Point()
		if n > 0 && !p.Time.After(prev) {
			t.Errorf("sample %d: time %v not after %v", n, p.Time, prev)
		}
		if math.Abs(p.Point.LatDeg) > 51.65+1e-9 {
			t.Errorf("sample %d: |latitude| %v exceeds inclination", n, p.Point.LatDeg)
		}
		prev = p.Time
		n++
	}
	if err := gt.Err(); err != nil {
		t.Fatalf("iteration failed: %v", err)
	}
	if n != 90 {
		t.Errorf("got %d samples, want 90", n)
	}
}

func TestGroundTrackReset(t *testing.T) {
	o := issOrbit(t)
	gt := NewGroundTrack(o, o.Epoch(), time.Minute, 10)

	if !gt.Next() {
		t.Fatal("expected a first sample")
	}
	first := gt.Point()

	for gt.Next() {
	}
	gt.Reset()

	if !gt.Next() {
		t.Fatal("expected a first sample after Reset")
	}
	if got := gt.Point(); got != first {
		t.Errorf("first sample after Reset = %+v, want %+v", got, first)
	}
}

func TestGroundTrackError(t *testing.T) {
	els := issElements()
	els.Eccentricity = 1.5
	o := mustOrbit(t, els)

	gt := NewGroundTrack(o, els.Epoch, time.Minute, 10)
	if gt.Next() {
		t.Fatal("expected no samples for hyperbolic elements")
	}
	if gt.Err() == nil {
		t.Fatal("expected an error")
	}

	// Reset clears the error and retries (and fails identically).
	gt.Reset()
	if gt.Err() != nil {
		t.Error("Reset did not clear the error")
	}
}

func TestSkyTrackIteration(t *testing.T) {
	o := issOrbit(t)
	obs := canaveral()
	start := findVisibleTime(t, o, obs, 10)

	st := NewSkyTrack(o, obs, ObserveOptions{}, start, 10*time.Second, 30)

	var n int
	for st.Next() {
		p := st.Point()
		if p.AzimuthDeg < 0 || p.AzimuthDeg >= 360 {
			t.Errorf("sample %d: azimuth %v outside [0, 360)", n, p.AzimuthDeg)
		}
		if p.RangeKm <= 0 {
			t.Errorf("sample %d: non-positive range %v", n, p.RangeKm)
		}
		n++
	}
	if err := st.Err(); err != nil {
		t.Fatalf("iteration failed: %v", err)
	}
	if n != 30 {
		t.Errorf("got %d samples, want 30", n)
	}
}

func TestSkyTrackReset(t *testing.T) {
	o := issOrbit(t)
	obs := canaveral()

	st := NewSkyTrack(o, obs, ObserveOptions{}, o.Epoch(), time.Minute, 5)
	if !st.Next() {
		t.Fatal("expected a first sample")
	}
	first := st.Point()

	st.Reset()
	if !st.Next() {
		t.Fatal("expected a first sample after Reset")
	}
	if got := st.Point(); got != first {
		t.Errorf("first sample after Reset = %+v, want %+v", got, first)
	}
}
