package orbit

import "time"

// Keyframe holds the positions of all satellites at a single point in time.
type Keyframe struct {
	Timestamp  time.Time           `json:"timestamp"`
	Satellites []SatellitePosition `json:"satellites"`
}

// SatellitePosition holds a single satellite's ECEF state at a keyframe time.
type SatellitePosition struct {
	CatalogNumber int        `json:"catalog_number"`
	PositionECEF  [3]float64 `json:"position_ecef"` // km (X, Y, Z in ECEF)
	VelocityECEF  [3]float64 `json:"velocity_ecef"` // km/s (X, Y, Z in ECEF)
}

// PropConfig holds propagation configuration loaded from environment variables.
type PropConfig struct {
	Workers int           // Worker pool size (default: runtime.NumCPU())
	Step    time.Duration // Keyframe interval (default: 5s)
	Horizon time.Duration // Propagation horizon (default: 600s)
}
