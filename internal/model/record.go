package model

// AirportRecord is the plain layout exchanged with persistence backends
type AirportRecord struct {
	Name    string         `json:"name"`
	Runways []RunwayRecord `json:"runways"`
}

// RunwayRecord carries a runway's published distances and its non-seed
// obstacles.
type RunwayRecord struct {
	Number             string           `json:"number"`
	TORA               float64          `json:"tora"`
	TODA               float64          `json:"toda"`
	ASDA               float64          `json:"asda"`
	LDA                float64          `json:"lda"`
	DisplacedThreshold float64          `json:"displaced_threshold"`
	Obstacles          []ObstacleRecord `json:"obstacles,omitempty"`
}

// ObstacleRecord carries one obstacle's geometry
type ObstacleRecord struct {
	Name              string  `json:"name"`
	Height            float64 `json:"height"`
	Length            float64 `json:"length"`
	DistanceCentre    float64 `json:"distance_centre"`
	DistanceThreshold float64 `json:"distance_threshold"`
}

// Record converts the airport into its persistence layout. Published
// distances are written, and seeded obstacles are left out.
func (a *Airport) Record() AirportRecord {
	rec := AirportRecord{Name: a.name}
	for _, r := range a.runways {
		rec.Runways = append(rec.Runways, r.Record())
	}
	return rec
}

// Record converts the runway into its persistence layout
func (r *Runway) Record() RunwayRecord {
	rec := RunwayRecord{
		Number:             r.number,
		TORA:               r.defaults.TORA,
		TODA:               r.defaults.TODA,
		ASDA:               r.defaults.ASDA,
		LDA:                r.defaults.LDA,
		DisplacedThreshold: r.displacedThreshold,
	}
	for _, o := range r.UserObstacles() {
		rec.Obstacles = append(rec.Obstacles, ObstacleRecord{
			Name:              o.Name,
			Height:            o.Height,
			Length:            o.Length,
			DistanceCentre:    o.DistanceCentre,
			DistanceThreshold: o.DistanceThreshold,
		})
	}
	return rec
}

// AirportFromRecord rebuilds an airport tree from its persistence layout.
// Every runway gets the given constants and the usual seed obstacles.
func AirportFromRecord(rec AirportRecord, c Constants) *Airport {
	a := NewAirport(rec.Name)
	for _, rr := range rec.Runways {
		a.AddRunway(RunwayFromRecord(rr, c))
	}
	return a
}

// RunwayFromRecord rebuilds a single runway from its persistence layout
func RunwayFromRecord(rec RunwayRecord, c Constants) *Runway {
	r := NewRunwayWithConstants(rec.Number,
		Distances{TORA: rec.TORA, TODA: rec.TODA, ASDA: rec.ASDA, LDA: rec.LDA},
		rec.DisplacedThreshold, c)
	for _, o := range rec.Obstacles {
		r.AddObstacle(o.Obstacle())
	}
	return r
}

// Obstacle converts the record into a model obstacle
func (o ObstacleRecord) Obstacle() *Obstacle {
	return NewObstacle(o.Name, o.Height, o.Length, o.DistanceCentre, o.DistanceThreshold)
}
