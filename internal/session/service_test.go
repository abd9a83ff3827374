package session

import (
	"errors"
	"reflect"
	"sort"
	"sync"
	"testing"

	"github.com/yegors/runway-redeclaration/internal/model"
	"github.com/yegors/runway-redeclaration/internal/storage/sqlite"
	"github.com/yegors/runway-redeclaration/internal/validation"
	"github.com/yegors/runway-redeclaration/pkg/logger"
)

type memStore struct {
	mu          sync.Mutex
	records     map[string]model.AirportRecord
	saves       int
	saveErr     error
	deleteErr   error
	deleteFails string
}

func newMemStore(recs ...model.AirportRecord) *memStore {
	s := &memStore{records: make(map[string]model.AirportRecord)}
	for _, rec := range recs {
		s.records[rec.Name] = rec
	}
	return s
}

func (s *memStore) LoadAll() ([]model.AirportRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.AirportRecord
	for _, rec := range s.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *memStore) Save(rec model.AirportRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.records[rec.Name] = rec
	s.saves++
	return nil
}

func (s *memStore) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil && name == s.deleteFails {
		return s.deleteErr
	}
	delete(s.records, name)
	return nil
}

type memJournal struct {
	records []*sqlite.RedeclarationRecord
}

func (j *memJournal) StoreRedeclaration(rec *sqlite.RedeclarationRecord) (int64, error) {
	j.records = append(j.records, rec)
	rec.ID = int64(len(j.records))
	return rec.ID, nil
}

var runway09L = validation.RunwayFields{
	Number: "09L", TORA: "3902", TODA: "3902", ASDA: "3902", LDA: "3595", Displaced: "306",
}

func newHeathrow(t *testing.T) (*Service, *memStore, *memJournal) {
	t.Helper()
	store := newMemStore()
	journal := &memJournal{}
	s := NewService(store, journal, model.DefaultConstants(), logger.NewNop())
	if _, err := s.CreateAirport("Heathrow"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddRunway("Heathrow", runway09L); err != nil {
		t.Fatal(err)
	}
	return s, store, journal
}

func TestLoadSkipsInvalidAirports(t *testing.T) {
	store := newMemStore(
		model.AirportRecord{Name: "Heathrow", Runways: []model.RunwayRecord{
			{Number: "09L", TORA: 3902, TODA: 3902, ASDA: 3902, LDA: 3595, DisplacedThreshold: 306},
		}},
		model.AirportRecord{Name: "Broken", Runways: []model.RunwayRecord{
			{Number: "99", TORA: 3902, TODA: 3902, ASDA: 3902, LDA: 3595},
		}},
	)
	s := NewService(store, nil, model.DefaultConstants(), logger.NewNop())
	if err := s.Load(); err != nil {
		t.Fatal(err)
	}
	if names := s.AirportNames(); !reflect.DeepEqual(names, []string{"Heathrow"}) {
		t.Errorf("names = %v", names)
	}
	state, err := s.Airport("Heathrow")
	if err != nil {
		t.Fatal(err)
	}
	if len(state.Runways) != 1 || len(state.Runways[0].Obstacles) != 4 {
		t.Errorf("state = %+v", state)
	}
}

func TestCreateAirport(t *testing.T) {
	s, store, _ := newHeathrow(t)

	var report *validation.Report
	if _, err := s.CreateAirport("Heathrow"); !errors.As(err, &report) || !report.Has(validation.FieldAirportName, validation.RuleDuplicate) {
		t.Errorf("duplicate airport: %v", err)
	}
	if _, err := s.CreateAirport("9Heathrow"); !errors.As(err, &report) {
		t.Errorf("invalid name: %v", err)
	}
	if _, err := s.CreateAirport("Gatwick"); err != nil {
		t.Fatal(err)
	}
	if len(s.Airports()) != 2 || len(store.records) != 2 {
		t.Errorf("airports = %d, stored = %d", len(s.Airports()), len(store.records))
	}
}

func TestAddRunway(t *testing.T) {
	s, store, _ := newHeathrow(t)

	var report *validation.Report
	_, err := s.AddRunway("Heathrow", validation.RunwayFields{
		Number: "27R", TORA: "3884", TODA: "3962", ASDA: "3884", LDA: "3884", Displaced: "0",
	})
	if !errors.As(err, &report) || !report.Has(validation.FieldRunwayNumber, validation.RuleDuplicate) {
		t.Errorf("reciprocal runway accepted: %v", err)
	}

	_, err = s.AddRunway("Heathrow", validation.RunwayFields{
		Number: "27L", TORA: "3884", TODA: "100", ASDA: "3884", LDA: "4000", Displaced: "-1",
	})
	if !errors.As(err, &report) || len(report.Violations) != 3 {
		t.Errorf("expected 3 violations, got %v", err)
	}

	if _, err := s.AddRunway("Gatwick", runway09L); !errors.Is(err, ErrAirportNotFound) {
		t.Errorf("unknown airport: %v", err)
	}

	state, err := s.AddRunway("Heathrow", validation.RunwayFields{
		Number: "27L", TORA: "3884", TODA: "3962", ASDA: "3884", LDA: "3884", Displaced: "0",
	})
	if err != nil {
		t.Fatal(err)
	}
	if state.Default.TODA != 3962 || state.Constants != model.DefaultConstants() {
		t.Errorf("runway state = %+v", state)
	}
	if n := len(store.records["Heathrow"].Runways); n != 2 {
		t.Errorf("stored runways = %d", n)
	}
}

func TestRedeclare(t *testing.T) {
	s, _, journal := newHeathrow(t)

	out, err := s.Redeclare("Heathrow", "09L", "ob1", model.LandingOver)
	if err != nil {
		t.Fatal(err)
	}
	if out.Runway.Current.LDA != 2569 || !out.Result.Feasible() {
		t.Errorf("landing over: %+v", out)
	}
	if out.Breakdown.Label != "Re-declared value: LDA" {
		t.Errorf("breakdown = %+v", out.Breakdown)
	}

	// Every redeclaration starts from the published distances
	out, err = s.Redeclare("Heathrow", "09L", "ob1", model.LandingOver)
	if err != nil {
		t.Fatal(err)
	}
	if out.Runway.Current.LDA != 2569 {
		t.Errorf("second landing over: LDA = %v", out.Runway.Current.LDA)
	}

	out, err = s.Redeclare("Heathrow", "09L", "ob1", model.TakeOffAway)
	if err != nil {
		t.Fatal(err)
	}
	if c := out.Runway.Current; c.TORA != 3236 || c.TODA != 3236 || c.ASDA != 3236 || c.LDA != 3595 {
		t.Errorf("take-off away: %+v", c)
	}

	out, err = s.Redeclare("Heathrow", "09L", "ob1", model.LandingTowards)
	if err != nil {
		t.Fatal(err)
	}
	if out.Runway.Current.LDA != 0 || !reflect.DeepEqual(out.Result.Clamped, []string{"LDA"}) ||
		!reflect.DeepEqual(out.NegativeValues, []string{"LDA"}) {
		t.Errorf("landing towards: %+v", out)
	}

	if len(journal.records) != 4 {
		t.Fatalf("journal has %d records", len(journal.records))
	}
	last := journal.records[3]
	if last.Procedure != "landing-towards" || last.Original.LDA != 3595 || last.Result.LDA != 0 {
		t.Errorf("journal record = %+v", last)
	}

	if _, err := s.Redeclare("Heathrow", "09L", "nothing", model.LandingOver); !errors.Is(err, ErrObstacleNotFound) {
		t.Errorf("unknown obstacle: %v", err)
	}
	if _, err := s.Redeclare("Heathrow", "27R", "ob1", model.LandingOver); !errors.Is(err, ErrRunwayNotFound) {
		t.Errorf("unknown runway: %v", err)
	}
	if _, err := s.Redeclare("Heathrow", "09L", "ob1", model.Procedure(9)); !errors.Is(err, model.ErrUnknownProcedure) {
		t.Errorf("unknown procedure: %v", err)
	}

	state, err := s.ResetRunway("Heathrow", "09L")
	if err != nil {
		t.Fatal(err)
	}
	if state.Current != state.Default {
		t.Errorf("reset left %+v", state.Current)
	}
}

func TestObstacleLifecycle(t *testing.T) {
	s, store, _ := newHeathrow(t)

	crane := validation.ObstacleFields{Name: "crane", Height: "25", Length: "10", DistanceCentre: "20", DistanceThreshold: "500"}
	if _, err := s.AddObstacle("Heathrow", "09L", crane); err != nil {
		t.Fatal(err)
	}
	var report *validation.Report
	if _, err := s.AddObstacle("Heathrow", "09L", crane); !errors.As(err, &report) {
		t.Errorf("duplicate obstacle accepted: %v", err)
	}
	far := crane
	far.Name, far.DistanceThreshold = "tower", "4000"
	if _, err := s.AddObstacle("Heathrow", "09L", far); !errors.As(err, &report) || !report.Has(validation.FieldDistanceThreshold, validation.RuleOrdering) {
		t.Errorf("obstacle past the runway end accepted: %v", err)
	}

	stored := store.records["Heathrow"].Runways[0].Obstacles
	if len(stored) != 1 || stored[0].Name != "crane" {
		t.Fatalf("stored obstacles = %+v", stored)
	}

	moved := crane
	moved.Name, moved.DistanceThreshold = "crane2", "800"
	o, err := s.ModifyObstacle("Heathrow", "09L", "crane", moved)
	if err != nil {
		t.Fatal(err)
	}
	if o.Name != "crane2" || o.DistanceThreshold != 800 {
		t.Errorf("modified obstacle = %+v", o)
	}
	if _, err := s.ModifyObstacle("Heathrow", "09L", "ob1", moved); !errors.Is(err, ErrSeedObstacle) {
		t.Errorf("seed modified: %v", err)
	}
	if err := s.DeleteObstacle("Heathrow", "09L", "ob2"); !errors.Is(err, ErrSeedObstacle) {
		t.Errorf("seed deleted: %v", err)
	}

	out, err := s.Redeclare("Heathrow", "09L", "crane2", model.TakeOffTowards)
	if err != nil {
		t.Fatal(err)
	}
	// 800 + 306 - 25*50 - 60
	if out.Runway.Current.TORA != 0 || !reflect.DeepEqual(out.Result.Clamped, []string{"TORA", "TODA", "ASDA"}) {
		t.Errorf("take-off towards: %+v", out)
	}

	if err := s.DeleteObstacle("Heathrow", "09L", "crane2"); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteObstacle("Heathrow", "09L", "crane2"); !errors.Is(err, ErrObstacleNotFound) {
		t.Errorf("second delete: %v", err)
	}
	if n := len(store.records["Heathrow"].Runways[0].Obstacles); n != 0 {
		t.Errorf("stored obstacles after delete = %d", n)
	}
}

func TestModifyRunway(t *testing.T) {
	s, store, _ := newHeathrow(t)
	if _, err := s.AddRunway("Heathrow", validation.RunwayFields{
		Number: "09R", TORA: "3660", TODA: "3660", ASDA: "3660", LDA: "3660", Displaced: "0",
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Redeclare("Heathrow", "09R", "ob1", model.LandingOver); err != nil {
		t.Fatal(err)
	}

	var report *validation.Report
	clash := runway09L
	clash.Number = "27R"
	if _, err := s.ModifyRunway("Heathrow", "09R", clash); !errors.As(err, &report) {
		t.Errorf("rename onto 09L's reciprocal accepted: %v", err)
	}

	// Keeping its own designator is not a clash
	same := runway09L
	same.LDA = "3500"
	state, err := s.ModifyRunway("Heathrow", "09L", same)
	if err != nil {
		t.Fatal(err)
	}
	if state.Default.LDA != 3500 || state.Current.LDA != 3500 {
		t.Errorf("modified runway = %+v", state)
	}

	other, err := s.Runway("Heathrow", "09R")
	if err != nil {
		t.Fatal(err)
	}
	if other.Current != other.Default {
		t.Errorf("other runways were not reset: %+v", other.Current)
	}
	if store.records["Heathrow"].Runways[0].LDA != 3500 {
		t.Errorf("modification not stored")
	}

	if err := s.DeleteRunway("Heathrow", "09R"); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteRunway("Heathrow", "09R"); !errors.Is(err, ErrRunwayNotFound) {
		t.Errorf("second delete: %v", err)
	}
}

func TestRenameAndDeleteAirport(t *testing.T) {
	s, store, _ := newHeathrow(t)
	if _, err := s.CreateAirport("Gatwick"); err != nil {
		t.Fatal(err)
	}

	var report *validation.Report
	if _, err := s.RenameAirport("Heathrow", "Gatwick"); !errors.As(err, &report) {
		t.Errorf("rename onto an existing name: %v", err)
	}
	if _, err := s.RenameAirport("Heathrow", "London"); err != nil {
		t.Fatal(err)
	}
	if _, ok := store.records["Heathrow"]; ok {
		t.Errorf("old record kept")
	}
	if len(store.records["London"].Runways) != 1 {
		t.Errorf("renamed record = %+v", store.records["London"])
	}

	rec, err := s.ExportAirport("London")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Name != "London" || rec.Runways[0].Number != "09L" {
		t.Errorf("export = %+v", rec)
	}

	if err := s.DeleteAirport("London"); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteAirport("London"); !errors.Is(err, ErrAirportNotFound) {
		t.Errorf("second delete: %v", err)
	}
	if !reflect.DeepEqual(s.AirportNames(), []string{"Gatwick"}) {
		t.Errorf("names = %v", s.AirportNames())
	}
}

func TestImportAirport(t *testing.T) {
	s, _, _ := newHeathrow(t)

	rec := model.AirportRecord{Name: "Gatwick", Runways: []model.RunwayRecord{
		{Number: "08R", TORA: 3159, TODA: 3363, ASDA: 3255, LDA: 2895, DisplacedThreshold: 264,
			Obstacles: []model.ObstacleRecord{{Name: "crane", Height: 20, Length: 5, DistanceCentre: 10, DistanceThreshold: 700}}},
	}}
	state, err := s.ImportAirport(rec)
	if err != nil {
		t.Fatal(err)
	}
	if len(state.Runways[0].Obstacles) != 5 {
		t.Errorf("imported runway has %d obstacles", len(state.Runways[0].Obstacles))
	}

	rec.Name = "Stansted"
	rec.Runways[0].Obstacles[0].DistanceCentre = 100
	if _, err := s.ImportAirport(rec); err == nil {
		t.Errorf("airport with an invalid obstacle imported")
	}
}

func TestReportAndShutdown(t *testing.T) {
	s, store, journal := newHeathrow(t)

	in, err := s.Report("Heathrow", "09L", "ob1", model.LandingOver)
	if err != nil {
		t.Fatal(err)
	}
	if in.Airport != "Heathrow" || in.Obstacle.Name != "ob1" || in.Runway.Current.LDA != 2569 {
		t.Errorf("report input = %+v", in)
	}
	if len(journal.records) != 0 {
		t.Errorf("report was journalled")
	}

	saves := store.saves
	if err := s.Shutdown(); err != nil {
		t.Fatal(err)
	}
	if store.saves != saves+1 {
		t.Errorf("shutdown saved %d airports", store.saves-saves)
	}
	state, err := s.Runway("Heathrow", "09L")
	if err != nil {
		t.Fatal(err)
	}
	if state.Current != state.Default {
		t.Errorf("shutdown left the runway redeclared: %+v", state.Current)
	}
}

func TestFailedSaveKeepsPreviousState(t *testing.T) {
	s, store, _ := newHeathrow(t)
	crane := validation.ObstacleFields{Name: "crane", Height: "25", Length: "10", DistanceCentre: "20", DistanceThreshold: "500"}
	if _, err := s.AddObstacle("Heathrow", "09L", crane); err != nil {
		t.Fatal(err)
	}
	before, err := s.Airport("Heathrow")
	if err != nil {
		t.Fatal(err)
	}

	diskFull := errors.New("disk full")
	store.saveErr = diskFull

	if _, err := s.ModifyRunway("Heathrow", "09L", validation.RunwayFields{
		Number: "10R", TORA: "3000", TODA: "3000", ASDA: "3000", LDA: "2900", Displaced: "0",
	}); !errors.Is(err, diskFull) {
		t.Errorf("ModifyRunway error = %v", err)
	}
	truck := validation.ObstacleFields{Name: "truck", Height: "1", Length: "1", DistanceCentre: "0", DistanceThreshold: "100"}
	if _, err := s.ModifyObstacle("Heathrow", "09L", "crane", truck); !errors.Is(err, diskFull) {
		t.Errorf("ModifyObstacle error = %v", err)
	}
	if _, err := s.AddRunway("Heathrow", validation.RunwayFields{
		Number: "09R", TORA: "3660", TODA: "3660", ASDA: "3660", LDA: "3660", Displaced: "0",
	}); !errors.Is(err, diskFull) {
		t.Errorf("AddRunway error = %v", err)
	}

	after, err := s.Airport("Heathrow")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(after, before) {
		t.Errorf("failed edits leaked into memory:\n got %+v\nwant %+v", after, before)
	}

	// The next successful save must not carry the rejected edits
	store.saveErr = nil
	if _, err := s.Redeclare("Heathrow", "09L", "crane", model.LandingOver); err != nil {
		t.Fatal(err)
	}
	if err := s.Shutdown(); err != nil {
		t.Fatal(err)
	}
	rec := store.records["Heathrow"]
	if len(rec.Runways) != 1 || rec.Runways[0].Number != "09L" || rec.Runways[0].TORA != 3902 {
		t.Errorf("stored runways = %+v", rec.Runways)
	}
	if obs := rec.Runways[0].Obstacles; len(obs) != 1 || obs[0].Name != "crane" || obs[0].DistanceThreshold != 500 {
		t.Errorf("stored obstacles = %+v", obs)
	}
}

func TestFailedRenameKeepsOldName(t *testing.T) {
	s, store, _ := newHeathrow(t)
	store.deleteErr = errors.New("permission denied")
	store.deleteFails = "Heathrow"

	if _, err := s.RenameAirport("Heathrow", "London"); !errors.Is(err, store.deleteErr) {
		t.Fatalf("RenameAirport error = %v", err)
	}
	if names := s.AirportNames(); !reflect.DeepEqual(names, []string{"Heathrow"}) {
		t.Errorf("names = %v", names)
	}
	if _, ok := store.records["London"]; ok {
		t.Errorf("copy under the new name left behind")
	}
	if _, ok := store.records["Heathrow"]; !ok {
		t.Errorf("original record lost")
	}
}

func TestObstacleCheckedAgainstPublishedTORA(t *testing.T) {
	s, _, _ := newHeathrow(t)
	crane := validation.ObstacleFields{Name: "crane", Height: "25", Length: "10", DistanceCentre: "20", DistanceThreshold: "500"}
	if _, err := s.AddObstacle("Heathrow", "09L", crane); err != nil {
		t.Fatal(err)
	}
	out, err := s.Redeclare("Heathrow", "09L", "crane", model.TakeOffTowards)
	if err != nil {
		t.Fatal(err)
	}
	if out.Runway.Current.TORA != 0 {
		t.Fatalf("current TORA = %v", out.Runway.Current.TORA)
	}

	// The redeclared TORA is 0, the published one 3902
	tower := crane
	tower.Name, tower.DistanceThreshold = "tower", "3000"
	if _, err := s.AddObstacle("Heathrow", "09L", tower); err != nil {
		t.Errorf("obstacle within the published TORA rejected: %v", err)
	}
	moved := tower
	moved.DistanceThreshold = "3500"
	if _, err := s.ModifyObstacle("Heathrow", "09L", "tower", moved); err != nil {
		t.Errorf("obstacle move within the published TORA rejected: %v", err)
	}
}
