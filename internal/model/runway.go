package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Constants holds the fixed terms used by the redeclaration formulas.
// They are set once per runway at construction.
type Constants struct {
	RESA                 float64 `json:"resa" toml:"resa"`
	SlopeValue           float64 `json:"slope_value" toml:"slope_value"`
	NewStripEnd          float64 `json:"new_strip_end" toml:"new_strip_end"`
	EngineBlastAllowance float64 `json:"engine_blast_allowance" toml:"engine_blast_allowance"`
}

// DefaultConstants returns the standard redeclaration terms:
// 240m RESA, a 1:50 slope, a 60m strip end and a 300m blast allowance.
func DefaultConstants() Constants {
	return Constants{
		RESA:                 240,
		SlopeValue:           50,
		NewStripEnd:          60,
		EngineBlastAllowance: 300,
	}
}

// Distances is a set of declared distances in meters
type Distances struct {
	TORA float64 `json:"tora"` // Take-off run available
	TODA float64 `json:"toda"` // Take-off distance available (TORA plus clearway)
	ASDA float64 `json:"asda"` // Accelerate-stop distance available (TORA plus stopway)
	LDA  float64 `json:"lda"`  // Landing distance available
}

// Runway holds the published and working declared distances of one runway
// end together with the obstacles placed on it.
type Runway struct {
	number             string
	current            Distances
	defaults           Distances
	displacedThreshold float64
	constants          Constants

	obstacles       []*Obstacle
	currentObstacle string

	// Fields clamped to zero by the most recent redeclaration
	clamped []string
}

// NewRunway creates a runway using the default redeclaration constants
func NewRunway(number string, tora, toda, asda, lda, displacedThreshold float64) *Runway {
	return NewRunwayWithConstants(number, Distances{TORA: tora, TODA: toda, ASDA: asda, LDA: lda},
		displacedThreshold, DefaultConstants())
}

// NewRunwayWithConstants creates a runway whose current and default
// distances are both set to declared.
func NewRunwayWithConstants(number string, declared Distances, displacedThreshold float64, c Constants) *Runway {
	return &Runway{
		number:             number,
		current:            declared,
		defaults:           declared,
		displacedThreshold: displacedThreshold,
		constants:          c,
		obstacles:          seedObstacles(),
	}
}

// SetDefault restores the current distances to the published ones
func (r *Runway) SetDefault() {
	r.current = r.defaults
	r.clamped = nil
}

// Number returns the runway designator, e.g. "09L"
func (r *Runway) Number() string { return r.number }

// SetNumber changes the runway designator
func (r *Runway) SetNumber(number string) { r.number = number }

// Current returns the working distances
func (r *Runway) Current() Distances { return r.current }

// Defaults returns the published distances
func (r *Runway) Defaults() Distances { return r.defaults }

func (r *Runway) TORA() float64 { return r.current.TORA }
func (r *Runway) TODA() float64 { return r.current.TODA }
func (r *Runway) ASDA() float64 { return r.current.ASDA }
func (r *Runway) LDA() float64  { return r.current.LDA }

// SetCurrent overwrites the working distances
func (r *Runway) SetCurrent(d Distances) { r.current = d }

// SetDeclared replaces the published distances. The working distances are
// left untouched until the next SetDefault.
func (r *Runway) SetDeclared(d Distances) { r.defaults = d }

// DisplacedThreshold returns the displaced threshold in meters
func (r *Runway) DisplacedThreshold() float64 { return r.displacedThreshold }

// SetDisplacedThreshold changes the displaced threshold
func (r *Runway) SetDisplacedThreshold(d float64) { r.displacedThreshold = d }

// Constants returns the redeclaration terms of this runway
func (r *Runway) Constants() Constants { return r.constants }

// Heading returns the numeric part of the designator, or -1 if it has none
func (r *Runway) Heading() int {
	heading, _, err := ParseDesignator(r.number)
	if err != nil {
		return -1
	}
	return heading
}

// Direction returns 0 for headings up to 18 and 1 for the reciprocal half
func (r *Runway) Direction() int {
	if r.Heading() <= 18 {
		return 0
	}
	return 1
}

// ParseDesignator splits a runway designator into its heading number and
// optional L/C/R suffix (upper-cased, 0 if absent).
func ParseDesignator(number string) (int, byte, error) {
	s := strings.TrimSpace(number)
	if s == "" {
		return 0, 0, fmt.Errorf("empty runway designator")
	}
	var letter byte
	switch last := strings.ToUpper(s[len(s)-1:]); last {
	case "L", "C", "R":
		letter = last[0]
		s = s[:len(s)-1]
	}
	heading, err := strconv.Atoi(s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid runway heading %q: %w", number, err)
	}
	return heading, letter, nil
}

// Obstacles returns every obstacle on the runway, seeds included, in
// insertion order.
func (r *Runway) Obstacles() []*Obstacle { return r.obstacles }

// UserObstacles returns the obstacles that were not seeded by the engine
func (r *Runway) UserObstacles() []*Obstacle {
	var obs []*Obstacle
	for _, o := range r.obstacles {
		if !o.Seed {
			obs = append(obs, o)
		}
	}
	return obs
}

// ObstacleNames returns the names of every obstacle on the runway
func (r *Runway) ObstacleNames() []string {
	names := make([]string, 0, len(r.obstacles))
	for _, o := range r.obstacles {
		names = append(names, o.Name)
	}
	return names
}

// Obstacle looks up an obstacle by its exact name
func (r *Runway) Obstacle(name string) (*Obstacle, bool) {
	for _, o := range r.obstacles {
		if o.Name == name {
			return o, true
		}
	}
	return nil, false
}

// AddObstacle appends an obstacle. Uniqueness is the caller's concern.
func (r *Runway) AddObstacle(o *Obstacle) {
	r.obstacles = append(r.obstacles, o)
}

// RemoveObstacle deletes the named obstacle and clears the selection if it
// pointed at it.
func (r *Runway) RemoveObstacle(name string) bool {
	for i, o := range r.obstacles {
		if o.Name == name {
			r.obstacles = append(r.obstacles[:i], r.obstacles[i+1:]...)
			if r.currentObstacle == name {
				r.currentObstacle = ""
			}
			return true
		}
	}
	return false
}

// RenameObstacle changes an obstacle's name, keeping the selection on it
func (r *Runway) RenameObstacle(oldName, newName string) bool {
	o, ok := r.Obstacle(oldName)
	if !ok {
		return false
	}
	o.Name = newName
	if r.currentObstacle == oldName {
		r.currentObstacle = newName
	}
	return true
}

// SetCurrentObstacle selects the obstacle used by Redeclare
func (r *Runway) SetCurrentObstacle(name string) error {
	if _, ok := r.Obstacle(name); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownObstacle, name)
	}
	r.currentObstacle = name
	return nil
}

// CurrentObstacle returns the selected obstacle, if any
func (r *Runway) CurrentObstacle() (*Obstacle, bool) {
	if r.currentObstacle == "" {
		return nil, false
	}
	return r.Obstacle(r.currentObstacle)
}

// Result describes the outcome of a single redeclaration
type Result struct {
	Procedure Procedure `json:"procedure"`
	Clamped   []string  `json:"clamped,omitempty"` // Fields that went negative and were set to 0
}

// Feasible reports whether no output had to be clamped
func (res Result) Feasible() bool {
	return len(res.Clamped) == 0
}

// Redeclare runs the given procedure against the currently selected obstacle
func (r *Runway) Redeclare(p Procedure) (Result, error) {
	o, ok := r.CurrentObstacle()
	if !ok {
		return Result{}, ErrNoObstacleSelected
	}
	switch p {
	case LandingOver:
		return r.RedeclareLandingOver(o), nil
	case LandingTowards:
		return r.RedeclareLandingTowards(o), nil
	case TakeOffTowards:
		return r.RedeclareTakeOffTowards(o), nil
	case TakeOffAway:
		return r.RedeclareTakeOffAway(o), nil
	default:
		return Result{}, fmt.Errorf("%w: %d", ErrUnknownProcedure, p)
	}
}

// RedeclareLandingOver re-calculates LDA for landing over the obstacle.
// The current LDA is the starting point, so this chains with prior state.
func (r *Runway) RedeclareLandingOver(o *Obstacle) Result {
	c := r.constants
	r.current.LDA = r.current.LDA - o.DistanceThreshold - (o.Height * c.SlopeValue) - c.NewStripEnd - r.displacedThreshold
	return r.finish(LandingOver)
}

// RedeclareLandingTowards re-calculates LDA for landing towards the obstacle
func (r *Runway) RedeclareLandingTowards(o *Obstacle) Result {
	c := r.constants
	r.current.LDA = o.DistanceThreshold - c.RESA - c.NewStripEnd
	return r.finish(LandingTowards)
}

// RedeclareTakeOffTowards re-calculates TORA for taking off towards the
// obstacle; TODA and ASDA are set equal to it.
func (r *Runway) RedeclareTakeOffTowards(o *Obstacle) Result {
	c := r.constants
	tora := o.DistanceThreshold + r.displacedThreshold - (o.Height * c.SlopeValue) - c.NewStripEnd
	r.current.TORA = tora
	r.current.TODA = tora
	r.current.ASDA = tora
	return r.finish(TakeOffTowards)
}

// RedeclareTakeOffAway re-calculates TORA, TODA and ASDA for taking off
// away from the obstacle. The larger of the current clearway and stopway is
// credited back to TORA; TODA and ASDA add the published clearway and
// stopway on top of the new TORA.
func (r *Runway) RedeclareTakeOffAway(o *Obstacle) Result {
	c := r.constants
	way := math.Max(r.ClearWay(), r.StopWay())
	tora := r.current.TORA - o.DistanceThreshold - c.EngineBlastAllowance - r.displacedThreshold + way
	r.current.TORA = tora
	r.current.TODA = tora + r.DefaultClearWay()
	r.current.ASDA = tora + r.DefaultStopWay()
	return r.finish(TakeOffAway)
}

// finish clamps negative outputs to zero and records which ones were hit
func (r *Runway) finish(p Procedure) Result {
	r.clamped = r.clampNegative()
	return Result{Procedure: p, Clamped: r.clamped}
}

func (r *Runway) clampNegative() []string {
	var clamped []string
	for _, f := range []struct {
		name string
		v    *float64
	}{
		{"TORA", &r.current.TORA},
		{"TODA", &r.current.TODA},
		{"ASDA", &r.current.ASDA},
		{"LDA", &r.current.LDA},
	} {
		if *f.v < 0 {
			*f.v = 0
			clamped = append(clamped, f.name)
		}
	}
	return clamped
}

// NegativeValues returns the names of the working distances that are zero,
// i.e. those a redeclaration found infeasible. A genuine zero input is
// reported the same way; use Clamped to tell the two apart.
func (r *Runway) NegativeValues() []string {
	var negative []string
	if r.current.TORA == 0 {
		negative = append(negative, "TORA")
	}
	if r.current.TODA == 0 {
		negative = append(negative, "TODA")
	}
	if r.current.ASDA == 0 {
		negative = append(negative, "ASDA")
	}
	if r.current.LDA == 0 {
		negative = append(negative, "LDA")
	}
	return negative
}

// HasNegative reports whether any working distance is zero
func (r *Runway) HasNegative() bool {
	return r.current.TORA == 0 || r.current.TODA == 0 || r.current.ASDA == 0 || r.current.LDA == 0
}

// Clamped returns the fields clamped by the most recent redeclaration
func (r *Runway) Clamped() []string { return r.clamped }

// Feasible reports whether the most recent redeclaration clamped nothing
func (r *Runway) Feasible() bool { return len(r.clamped) == 0 }

// ClearWay returns the current TODA - TORA
func (r *Runway) ClearWay() float64 { return r.current.TODA - r.current.TORA }

// StopWay returns the current ASDA - TORA
func (r *Runway) StopWay() float64 { return r.current.ASDA - r.current.TORA }

// DefaultClearWay returns the published TODA - TORA
func (r *Runway) DefaultClearWay() float64 { return r.defaults.TODA - r.defaults.TORA }

// DefaultStopWay returns the published ASDA - TORA
func (r *Runway) DefaultStopWay() float64 { return r.defaults.ASDA - r.defaults.TORA }

// AlsTocs returns the ALS/TOCS surface length for the selected obstacle.
// The slope value is fed to cos as radians.
func (r *Runway) AlsTocs() (float64, bool) {
	o, ok := r.CurrentObstacle()
	if !ok {
		return 0, false
	}
	slope := r.constants.SlopeValue
	return (o.Height * slope) / math.Cos(slope), true
}

// RunwayState is a read-only snapshot of a runway
type RunwayState struct {
	Number             string     `json:"number"`
	Current            Distances  `json:"current"`
	Default            Distances  `json:"default"`
	DisplacedThreshold float64    `json:"displaced_threshold"`
	ClearWay           float64    `json:"clear_way"`
	StopWay            float64    `json:"stop_way"`
	DefaultClearWay    float64    `json:"default_clear_way"`
	DefaultStopWay     float64    `json:"default_stop_way"`
	Constants          Constants  `json:"constants"`
	Obstacles          []Obstacle `json:"obstacles"`
	CurrentObstacle    string     `json:"current_obstacle,omitempty"`
	NegativeValues     []string   `json:"negative_values,omitempty"`
	Clamped            []string   `json:"clamped,omitempty"`
}

// State returns a copy of the runway's data suitable for serialization
func (r *Runway) State() RunwayState {
	obs := make([]Obstacle, 0, len(r.obstacles))
	for _, o := range r.obstacles {
		obs = append(obs, *o)
	}
	return RunwayState{
		Number:             r.number,
		Current:            r.current,
		Default:            r.defaults,
		DisplacedThreshold: r.displacedThreshold,
		ClearWay:           r.ClearWay(),
		StopWay:            r.StopWay(),
		DefaultClearWay:    r.DefaultClearWay(),
		DefaultStopWay:     r.DefaultStopWay(),
		Constants:          r.constants,
		Obstacles:          obs,
		CurrentObstacle:    r.currentObstacle,
		NegativeValues:     r.NegativeValues(),
		Clamped:            append([]string(nil), r.clamped...),
	}
}
