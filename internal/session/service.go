// Package session owns the airports being worked on. Every change coming
// from a user passes through validation here before it reaches the model,
// and every change is persisted straight away.
package session

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/yegors/runway-redeclaration/internal/model"
	"github.com/yegors/runway-redeclaration/internal/report"
	"github.com/yegors/runway-redeclaration/internal/storage/sqlite"
	"github.com/yegors/runway-redeclaration/internal/validation"
	"github.com/yegors/runway-redeclaration/pkg/logger"
)

// Store persists airports between runs
type Store interface {
	LoadAll() ([]model.AirportRecord, error)
	Save(rec model.AirportRecord) error
	Delete(name string) error
}

// Journal records every redeclaration that was computed
type Journal interface {
	StoreRedeclaration(record *sqlite.RedeclarationRecord) (int64, error)
}

// Service is the registry of airports. A single mutex serialises all access,
// so each airport tree is only ever touched by one caller at a time.
type Service struct {
	mu        sync.Mutex
	airports  []*model.Airport
	store     Store
	journal   Journal
	constants model.Constants
	logger    *logger.Logger
}

// NewService creates a service. journal may be nil.
func NewService(store Store, journal Journal, constants model.Constants, logger *logger.Logger) *Service {
	return &Service{
		store:     store,
		journal:   journal,
		constants: constants,
		logger:    logger.Named("session"),
	}
}

// Load replaces the registry with the airports held by the store. Airports
// that fail validation are logged and skipped.
func (s *Service) Load() error {
	records, err := s.store.LoadAll()
	if err != nil {
		return fmt.Errorf("failed to load airports: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.airports = nil
	for _, rec := range records {
		a := model.AirportFromRecord(rec, s.constants)
		if vr := validation.Airport(a, s.namesLocked()); !vr.OK() {
			s.logger.Warn("Skipping invalid stored airport",
				logger.String("airport", rec.Name),
				logger.String("violations", vr.String()))
			continue
		}
		s.airports = append(s.airports, a)
	}

	s.logger.Info("Airports loaded", logger.Int("count", len(s.airports)))
	return nil
}

// AirportNames returns the names of all airports in registration order
func (s *Service) AirportNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.namesLocked()
}

// Airports returns a snapshot of every airport
func (s *Service) Airports() []model.AirportState {
	s.mu.Lock()
	defer s.mu.Unlock()

	states := make([]model.AirportState, 0, len(s.airports))
	for _, a := range s.airports {
		states = append(states, a.State())
	}
	return states
}

// Airport returns a snapshot of one airport
func (s *Service) Airport(name string) (model.AirportState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.airportLocked(name)
	if err != nil {
		return model.AirportState{}, err
	}
	return a.State(), nil
}

// Runway returns a snapshot of one runway
func (s *Service) Runway(airport, number string) (model.RunwayState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, r, err := s.runwayLocked(airport, number)
	if err != nil {
		return model.RunwayState{}, err
	}
	return r.State(), nil
}

// CreateAirport registers a new empty airport
func (s *Service) CreateAirport(name string) (model.AirportState, error) {
	return s.ImportAirport(model.AirportRecord{Name: name})
}

// ImportAirport registers an airport from its persistence layout, typically
// an imported XML document
func (s *Service) ImportAirport(rec model.AirportRecord) (model.AirportState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := model.AirportFromRecord(rec, s.constants)
	if err := validation.Airport(a, s.namesLocked()).Err(); err != nil {
		s.logger.Warn("Rejected airport", logger.String("airport", rec.Name), logger.Error(err))
		return model.AirportState{}, err
	}
	if err := s.saveLocked(a); err != nil {
		return model.AirportState{}, err
	}
	s.airports = append(s.airports, a)

	s.logger.Info("Airport added",
		logger.String("airport", a.Name()),
		logger.Int("runways", len(a.Runways())))
	return a.State(), nil
}

// ExportAirport returns an airport's persistence layout
func (s *Service) ExportAirport(name string) (model.AirportRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.airportLocked(name)
	if err != nil {
		return model.AirportRecord{}, err
	}
	return a.Record(), nil
}

// RenameAirport gives an airport a new, unused name
func (s *Service) RenameAirport(name, newName string) (model.AirportState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.airportLocked(name)
	if err != nil {
		return model.AirportState{}, err
	}
	if newName == name {
		return a.State(), nil
	}

	others := slices.DeleteFunc(s.namesLocked(), func(n string) bool { return n == name })
	if err := validation.Airport(model.NewAirport(newName), others).Err(); err != nil {
		s.logger.Warn("Rejected airport rename", logger.String("airport", name), logger.Error(err))
		return model.AirportState{}, err
	}

	a.SetName(newName)
	if err := s.saveLocked(a); err != nil {
		a.SetName(name)
		return model.AirportState{}, err
	}
	if err := s.store.Delete(name); err != nil {
		// Drop the copy saved under the new name so only the old one remains
		if derr := s.store.Delete(newName); derr != nil {
			s.logger.Error("Failed to undo airport rename",
				logger.String("airport", name),
				logger.String("new_name", newName),
				logger.Error(derr))
		}
		a.SetName(name)
		return model.AirportState{}, fmt.Errorf("failed to remove old airport %s: %w", name, err)
	}

	s.logger.Info("Airport renamed", logger.String("from", name), logger.String("to", newName))
	return a.State(), nil
}

// DeleteAirport removes an airport and its stored copy
func (s *Service) DeleteAirport(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.IndexFunc(s.airports, func(a *model.Airport) bool { return a.Name() == name })
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrAirportNotFound, name)
	}
	if err := s.store.Delete(name); err != nil {
		return fmt.Errorf("failed to delete airport %s: %w", name, err)
	}
	s.airports = slices.Delete(s.airports, i, i+1)

	s.logger.Info("Airport deleted", logger.String("airport", name))
	return nil
}

// AddRunway validates raw runway fields and adds the runway to an airport
func (s *Service) AddRunway(airport string, in validation.RunwayFields) (model.RunwayState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.airportLocked(airport)
	if err != nil {
		return model.RunwayState{}, err
	}

	d, displaced, vr := validation.ParseRunwayFields(in)
	if err := vr.Err(); err != nil {
		return model.RunwayState{}, s.reject(airport, "runway", err)
	}
	if err := validation.CheckRunwayUnique(a, in.Number, ""); err != nil {
		return model.RunwayState{}, s.reject(airport, "runway", validation.NewReport("airport "+airport, err))
	}

	r := model.NewRunwayWithConstants(in.Number, d, displaced, s.constants)
	a.AddRunway(r)
	if err := s.saveLocked(a); err != nil {
		a.DeleteRunway(in.Number)
		return model.RunwayState{}, err
	}

	s.logger.Info("Runway added",
		logger.String("airport", airport),
		logger.String("runway", in.Number))
	return r.State(), nil
}

// ModifyRunway replaces a runway's designator and published distances. All
// runways of the airport are reset to their published distances afterwards.
func (s *Service) ModifyRunway(airport, number string, in validation.RunwayFields) (model.RunwayState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, r, err := s.runwayLocked(airport, number)
	if err != nil {
		return model.RunwayState{}, err
	}

	d, displaced, vr := validation.ParseRunwayFields(in)
	if err := vr.Err(); err != nil {
		return model.RunwayState{}, s.reject(airport, "runway", err)
	}
	if err := validation.CheckRunwayUnique(a, in.Number, number); err != nil {
		return model.RunwayState{}, s.reject(airport, "runway", validation.NewReport("airport "+airport, err))
	}
	for _, o := range r.UserObstacles() {
		if err := validation.Obstacle(o, d.TORA).Err(); err != nil {
			return model.RunwayState{}, s.reject(airport, "runway", err)
		}
	}

	prevNumber, prevDeclared, prevDisplaced := r.Number(), r.Defaults(), r.DisplacedThreshold()
	r.SetNumber(in.Number)
	r.SetDeclared(d)
	r.SetDisplacedThreshold(displaced)
	r.SetDefault()
	a.SetDefaultRunways()
	if err := s.saveLocked(a); err != nil {
		r.SetNumber(prevNumber)
		r.SetDeclared(prevDeclared)
		r.SetDisplacedThreshold(prevDisplaced)
		r.SetDefault()
		return model.RunwayState{}, err
	}

	s.logger.Info("Runway modified",
		logger.String("airport", airport),
		logger.String("runway", number),
		logger.String("new_runway", in.Number))
	return r.State(), nil
}

// DeleteRunway removes a runway from an airport
func (s *Service) DeleteRunway(airport, number string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.airportLocked(airport)
	if err != nil {
		return err
	}
	if !a.DeleteRunway(number) {
		return fmt.Errorf("%w: %s/%s", ErrRunwayNotFound, airport, number)
	}
	if err := s.saveLocked(a); err != nil {
		return err
	}

	s.logger.Info("Runway deleted",
		logger.String("airport", airport),
		logger.String("runway", number))
	return nil
}

// AddObstacle validates raw obstacle fields and places the obstacle on a runway
func (s *Service) AddObstacle(airport, runway string, in validation.ObstacleFields) (model.Obstacle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, r, err := s.runwayLocked(airport, runway)
	if err != nil {
		return model.Obstacle{}, err
	}

	o, vr := validation.ParseObstacleFields(in, r.Defaults().TORA)
	if err := vr.Err(); err != nil {
		return model.Obstacle{}, s.reject(airport, "obstacle", err)
	}
	if err := validation.CheckObstacleUnique(r, o.Name, ""); err != nil {
		return model.Obstacle{}, s.reject(airport, "obstacle", validation.NewReport("runway "+runway, err))
	}

	r.AddObstacle(o)
	if err := s.saveLocked(a); err != nil {
		r.RemoveObstacle(o.Name)
		return model.Obstacle{}, err
	}

	s.logger.Info("Obstacle added",
		logger.String("airport", airport),
		logger.String("runway", runway),
		logger.String("obstacle", o.Name))
	return *o, nil
}

// ModifyObstacle replaces the name and geometry of a user-placed obstacle
func (s *Service) ModifyObstacle(airport, runway, name string, in validation.ObstacleFields) (model.Obstacle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, r, o, err := s.obstacleLocked(airport, runway, name)
	if err != nil {
		return model.Obstacle{}, err
	}

	updated, vr := validation.ParseObstacleFields(in, r.Defaults().TORA)
	if err := vr.Err(); err != nil {
		return model.Obstacle{}, s.reject(airport, "obstacle", err)
	}
	if err := validation.CheckObstacleUnique(r, updated.Name, name); err != nil {
		return model.Obstacle{}, s.reject(airport, "obstacle", validation.NewReport("runway "+runway, err))
	}

	prev := *o
	if updated.Name != name {
		r.RenameObstacle(name, updated.Name)
	}
	setGeometry(o, *updated)
	if err := s.saveLocked(a); err != nil {
		if updated.Name != name {
			r.RenameObstacle(updated.Name, name)
		}
		setGeometry(o, prev)
		return model.Obstacle{}, err
	}

	s.logger.Info("Obstacle modified",
		logger.String("airport", airport),
		logger.String("runway", runway),
		logger.String("obstacle", name),
		logger.String("new_name", updated.Name))
	return *o, nil
}

func setGeometry(o *model.Obstacle, from model.Obstacle) {
	o.Height = from.Height
	o.Length = from.Length
	o.DistanceCentre = from.DistanceCentre
	o.DistanceThreshold = from.DistanceThreshold
}

// DeleteObstacle removes a user-placed obstacle from a runway
func (s *Service) DeleteObstacle(airport, runway, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, r, _, err := s.obstacleLocked(airport, runway, name)
	if err != nil {
		return err
	}
	r.RemoveObstacle(name)
	if err := s.saveLocked(a); err != nil {
		return err
	}

	s.logger.Info("Obstacle deleted",
		logger.String("airport", airport),
		logger.String("runway", runway),
		logger.String("obstacle", name))
	return nil
}

// Outcome is the result of one redeclaration
type Outcome struct {
	Airport        string            `json:"airport"`
	Runway         model.RunwayState `json:"runway"`
	Result         model.Result      `json:"result"`
	Breakdown      model.Breakdown   `json:"breakdown"`
	NegativeValues []string          `json:"negative_values,omitempty"`
}

// Redeclare resets a runway to its published distances, selects the named
// obstacle and applies procedure p. The outcome is journalled when a journal
// is configured.
func (s *Service) Redeclare(airport, runway, obstacle string, p model.Procedure) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, res, err := s.redeclareLocked(airport, runway, obstacle, p)
	if err != nil {
		return Outcome{}, err
	}

	out := Outcome{
		Airport:        airport,
		Runway:         r.State(),
		Result:         res,
		Breakdown:      r.Breakdown(p),
		NegativeValues: r.NegativeValues(),
	}

	fields := []logger.Field{
		logger.String("airport", airport),
		logger.String("runway", runway),
		logger.String("obstacle", obstacle),
		logger.String("procedure", p.Slug()),
		logger.Float64("tora", r.TORA()),
		logger.Float64("toda", r.TODA()),
		logger.Float64("asda", r.ASDA()),
		logger.Float64("lda", r.LDA()),
	}
	if !res.Feasible() {
		s.logger.Warn("Redeclaration clamped negative distances",
			append(fields, logger.Strings("clamped", res.Clamped))...)
	} else {
		s.logger.Info("Runway redeclared", fields...)
	}

	if s.journal != nil {
		rec := &sqlite.RedeclarationRecord{
			Airport:   airport,
			Runway:    runway,
			Obstacle:  obstacle,
			Procedure: p.Slug(),
			Original:  r.Defaults(),
			Result:    r.Current(),
			Clamped:   res.Clamped,
			Timestamp: time.Now().UTC(),
		}
		if _, err := s.journal.StoreRedeclaration(rec); err != nil {
			s.logger.Error("Failed to journal redeclaration", logger.Error(err))
		}
	}

	return out, nil
}

// ResetRunway restores a runway's working distances to the published ones
func (s *Service) ResetRunway(airport, runway string) (model.RunwayState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, r, err := s.runwayLocked(airport, runway)
	if err != nil {
		return model.RunwayState{}, err
	}
	r.SetDefault()

	s.logger.Debug("Runway reset",
		logger.String("airport", airport),
		logger.String("runway", runway))
	return r.State(), nil
}

// Report computes the redeclaration like Redeclare, without journalling it,
// and returns the data needed to render a report
func (s *Service) Report(airport, runway, obstacle string, p model.Procedure) (report.Input, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, _, err := s.redeclareLocked(airport, runway, obstacle, p)
	if err != nil {
		return report.Input{}, err
	}
	return report.NewInput(airport, r, p)
}

// Shutdown resets every runway to its published distances and saves every
// airport. It is meant to run once on exit.
func (s *Service) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for _, a := range s.airports {
		a.SetDefaultRunways()
		if err := s.saveLocked(a); err != nil {
			errs = append(errs, err)
		}
	}

	s.logger.Info("Airports saved on shutdown", logger.Int("count", len(s.airports)))
	return errors.Join(errs...)
}

func (s *Service) redeclareLocked(airport, runway, obstacle string, p model.Procedure) (*model.Runway, model.Result, error) {
	if !p.Valid() {
		return nil, model.Result{}, fmt.Errorf("%w: %d", model.ErrUnknownProcedure, p)
	}
	_, r, err := s.runwayLocked(airport, runway)
	if err != nil {
		return nil, model.Result{}, err
	}

	r.SetDefault()
	if err := r.SetCurrentObstacle(obstacle); err != nil {
		return nil, model.Result{}, fmt.Errorf("%w: %s", ErrObstacleNotFound, obstacle)
	}
	res, err := r.Redeclare(p)
	if err != nil {
		return nil, model.Result{}, err
	}
	return r, res, nil
}

func (s *Service) namesLocked() []string {
	names := make([]string, 0, len(s.airports))
	for _, a := range s.airports {
		names = append(names, a.Name())
	}
	return names
}

func (s *Service) airportLocked(name string) (*model.Airport, error) {
	for _, a := range s.airports {
		if a.Name() == name {
			return a, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrAirportNotFound, name)
}

func (s *Service) runwayLocked(airport, number string) (*model.Airport, *model.Runway, error) {
	a, err := s.airportLocked(airport)
	if err != nil {
		return nil, nil, err
	}
	r, ok := a.Runway(number)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s/%s", ErrRunwayNotFound, airport, number)
	}
	return a, r, nil
}

// obstacleLocked finds a user-placed obstacle; seeds are reported as
// ErrSeedObstacle
func (s *Service) obstacleLocked(airport, runway, name string) (*model.Airport, *model.Runway, *model.Obstacle, error) {
	a, r, err := s.runwayLocked(airport, runway)
	if err != nil {
		return nil, nil, nil, err
	}
	o, ok := r.Obstacle(name)
	if !ok {
		return nil, nil, nil, fmt.Errorf("%w: %s", ErrObstacleNotFound, name)
	}
	if o.Seed {
		return nil, nil, nil, fmt.Errorf("%w: %s", ErrSeedObstacle, name)
	}
	return a, r, o, nil
}

func (s *Service) saveLocked(a *model.Airport) error {
	if err := s.store.Save(a.Record()); err != nil {
		s.logger.Error("Failed to save airport", logger.String("airport", a.Name()), logger.Error(err))
		return fmt.Errorf("failed to save airport %s: %w", a.Name(), err)
	}
	return nil
}

func (s *Service) reject(airport, what string, err error) error {
	s.logger.Warn("Rejected "+what,
		logger.String("airport", airport),
		logger.Error(err))
	return err
}
