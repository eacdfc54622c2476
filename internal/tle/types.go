package tle

import "time"

// ElementSet is a validated orbital element record from one three-line TLE.
// Instances are created only by ParseSet and never mutated afterwards, so
// they are safe to share across goroutines.
type ElementSet struct {
	Name           string
	CatalogNumber  int
	IntlDesignator string

	// Epoch as encoded in the TLE: four-digit year plus 1-based fractional
	// day of year. Epoch is the same instant resolved to UTC.
	EpochYear int
	EpochDay  float64
	Epoch     time.Time

	// Line 2 elements. Angles in degrees, mean motion in rev/day.
	InclinationDeg  float64
	RAANDeg         float64
	Eccentricity    float64
	ArgPerigeeDeg   float64
	MeanAnomalyDeg  float64
	MeanMotion      float64
	RevolutionsAtEpoch int

	// Drag-related terms from line 1. Parsed for completeness; the two-body
	// propagator does not apply them.
	MeanMotionDot  float64 // rev/day², first derivative of mean motion (÷2 as printed)
	MeanMotionDDot float64 // rev/day³, second derivative (÷6 as printed)
	Bstar          float64 // 1/earth radii
}

// EpochRange is the minimum and maximum element epoch in a dataset.
type EpochRange struct {
	Min time.Time
	Max time.Time
}

// Dataset is a complete catalog of element sets from a single source fetch.
type Dataset struct {
	Source     string
	FetchedAt  time.Time
	EpochRange EpochRange
	Satellites []ElementSet
}
