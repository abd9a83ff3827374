package model

// Obstacle represents a single obstacle encroaching on a runway's strip.
// All distances are in meters.
type Obstacle struct {
	Name              string  `json:"name"`
	Height            float64 `json:"height"`
	Length            float64 `json:"length"`
	DistanceCentre    float64 `json:"distance_centre"`    // Lateral distance from the centreline
	DistanceThreshold float64 `json:"distance_threshold"` // Distance from the runway threshold
	Seed              bool    `json:"seed,omitempty"`     // Engine-owned placeholder, never persisted
}

// NewObstacle creates a new obstacle
func NewObstacle(name string, height, length, distanceCentre, distanceThreshold float64) *Obstacle {
	return &Obstacle{
		Name:              name,
		Height:            height,
		Length:            length,
		DistanceCentre:    distanceCentre,
		DistanceThreshold: distanceThreshold,
	}
}

// seedObstacles returns the placeholder obstacles every runway starts with.
func seedObstacles() []*Obstacle {
	seeds := []*Obstacle{
		NewObstacle("ob1", 12, 10, 0, 60),
		NewObstacle("ob2", 25, 5, 20, 500),
		NewObstacle("ob3", 15, 2, 60, 150),
		NewObstacle("ob4", 20, 15, 20, 65),
	}
	for _, o := range seeds {
		o.Seed = true
	}
	return seeds
}
