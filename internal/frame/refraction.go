package frame

import "math"

// ApparentElevationDeg applies Bennett's atmospheric refraction correction
// to a true (geometric) elevation in degrees:
//
//	R(arcmin) = 1 / tan(el + 7.31/(el + 4.4))
//
// valid for standard temperature and pressure. Elevations at or below −1°
// are returned unchanged; the formula degenerates near its pole and a
// satellite that far below the horizon is not observable anyway.
func ApparentElevationDeg(trueElDeg float64) float64 {
	if trueElDeg <= -1.0 {
		return trueElDeg
	}

	arg := (trueElDeg + 7.31/(trueElDeg+4.4)) * math.Pi / 180.0
	correctionArcmin := 1.0 / math.Tan(arg)

	return trueElDeg + correctionArcmin/60.0
}
