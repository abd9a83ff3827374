package model

// Airport owns an ordered collection of runways
type Airport struct {
	name    string
	runways []*Runway
}

// NewAirport creates an airport with no runways
func NewAirport(name string) *Airport {
	return &Airport{name: name}
}

// Name returns the airport name
func (a *Airport) Name() string { return a.name }

// SetName renames the airport
func (a *Airport) SetName(name string) { a.name = name }

// Runways returns the runways in insertion order
func (a *Airport) Runways() []*Runway { return a.runways }

// RunwayNumbers returns the designator of every runway
func (a *Airport) RunwayNumbers() []string {
	numbers := make([]string, 0, len(a.runways))
	for _, r := range a.runways {
		numbers = append(numbers, r.Number())
	}
	return numbers
}

// Runway looks up a runway by its exact designator
func (a *Airport) Runway(number string) (*Runway, bool) {
	for _, r := range a.runways {
		if r.Number() == number {
			return r, true
		}
	}
	return nil, false
}

// AddRunway appends a runway. No constraints are enforced here.
func (a *Airport) AddRunway(r *Runway) {
	a.runways = append(a.runways, r)
}

// DeleteRunway removes the runway with the given designator
func (a *Airport) DeleteRunway(number string) bool {
	for i, r := range a.runways {
		if r.Number() == number {
			a.runways = append(a.runways[:i], a.runways[i+1:]...)
			return true
		}
	}
	return false
}

// SetDefaultRunways resets every runway's working distances to the
// published ones.
func (a *Airport) SetDefaultRunways() {
	for _, r := range a.runways {
		r.SetDefault()
	}
}

// AirportState is a read-only snapshot of an airport
type AirportState struct {
	Name    string        `json:"name"`
	Runways []RunwayState `json:"runways"`
}

// State returns a copy of the airport's data suitable for serialization
func (a *Airport) State() AirportState {
	state := AirportState{Name: a.name, Runways: make([]RunwayState, 0, len(a.runways))}
	for _, r := range a.runways {
		state.Runways = append(state.Runways, r.State())
	}
	return state
}
