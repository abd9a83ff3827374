package validation

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/yegors/runway-redeclaration/internal/model"
)

// Report aggregates every violation found by a composite check
type Report struct {
	Violations []*Violation `json:"violations"`
}

// NewReport collects single-check errors into a report, tagging each with
// subject. Nil errors are ignored.
func NewReport(subject string, errs ...error) *Report {
	r := &Report{}
	for _, err := range errs {
		r.add(subject, err)
	}
	return r
}

// OK reports whether no violation was recorded
func (r *Report) OK() bool {
	return r == nil || len(r.Violations) == 0
}

// Error implements the error interface
func (r *Report) Error() string {
	msgs := make([]string, 0, len(r.Violations))
	for _, v := range r.Violations {
		msgs = append(msgs, v.Error())
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Err returns the report as an error, or nil if it is empty
func (r *Report) Err() error {
	if r.OK() {
		return nil
	}
	return r
}

// Has reports whether a violation of the given rule on the given field was
// recorded.
func (r *Report) Has(field Field, rule Rule) bool {
	if r == nil {
		return false
	}
	return slices.ContainsFunc(r.Violations, func(v *Violation) bool {
		return v.Field == field && v.Rule == rule
	})
}

// add records err, which is expected to be nil or a *Violation, tagging it
// with subject. It returns true if something was recorded.
func (r *Report) add(subject string, err error) bool {
	if err == nil {
		return false
	}
	var v *Violation
	if !errors.As(err, &v) {
		v = &Violation{Rule: RuleFormat, Message: err.Error()}
	}
	cp := *v
	if cp.Subject == "" {
		cp.Subject = subject
	}
	r.Violations = append(r.Violations, &cp)
	return true
}

func (r *Report) merge(other *Report) {
	if other != nil {
		r.Violations = append(r.Violations, other.Violations...)
	}
}

// RunwayFields are the raw inputs describing a runway
type RunwayFields struct {
	Number    string `json:"number"`
	TORA      string `json:"tora"`
	TODA      string `json:"toda"`
	ASDA      string `json:"asda"`
	LDA       string `json:"lda"`
	Displaced string `json:"displaced_threshold"`
}

// ParseRunwayFields checks raw runway inputs and converts them. Checks that
// depend on another field are skipped when that field itself did not parse.
func ParseRunwayFields(in RunwayFields) (model.Distances, float64, *Report) {
	report := &Report{}
	subject := "runway " + in.Number
	var d model.Distances

	report.add(subject, CheckRunwayNumber(in.Number))

	tora, toraErr := parseNumber(FieldTORA, in.TORA)
	if !report.add(subject, toraErr) {
		report.add(subject, checkTORA(tora, in.TORA))
		d.TORA = tora
	}

	asda, asdaErr := parseNumber(FieldASDA, in.ASDA)
	if !report.add(subject, asdaErr) {
		if toraErr == nil {
			report.add(subject, checkASDA(asda, tora, in.ASDA))
		}
		d.ASDA = asda
	}

	toda, todaErr := parseNumber(FieldTODA, in.TODA)
	if !report.add(subject, todaErr) {
		if asdaErr == nil {
			report.add(subject, checkTODA(toda, asda, in.TODA))
		}
		d.TODA = toda
	}

	lda, ldaErr := parseNumber(FieldLDA, in.LDA)
	if !report.add(subject, ldaErr) {
		if toraErr == nil {
			report.add(subject, checkLDA(lda, tora, in.LDA))
		} else {
			report.add(subject, checkPositive(FieldLDA, lda, in.LDA))
		}
		d.LDA = lda
	}

	displaced, err := parseNumber(FieldDisplaced, in.Displaced)
	if !report.add(subject, err) {
		report.add(subject, checkDisplaced(displaced, in.Displaced))
	}

	return d, displaced, report
}

// ObstacleFields are the raw inputs describing an obstacle
type ObstacleFields struct {
	Name              string `json:"name"`
	Height            string `json:"height"`
	Length            string `json:"length"`
	DistanceCentre    string `json:"distance_centre"`
	DistanceThreshold string `json:"distance_threshold"`
}

// ParseObstacleFields checks raw obstacle inputs against a runway's TORA and
// converts them.
func ParseObstacleFields(in ObstacleFields, tora float64) (*model.Obstacle, *Report) {
	report := &Report{}
	subject := "obstacle " + in.Name

	report.add(subject, CheckName(FieldObstacleName, in.Name))
	o := model.NewObstacle(in.Name, 0, 0, 0, 0)

	if v, err := parseNumber(FieldHeight, in.Height); !report.add(subject, err) {
		report.add(subject, checkPositive(FieldHeight, v, in.Height))
		o.Height = v
	}
	if v, err := parseNumber(FieldLength, in.Length); !report.add(subject, err) {
		report.add(subject, checkPositive(FieldLength, v, in.Length))
		o.Length = v
	}
	if v, err := parseNumber(FieldDistanceCentre, in.DistanceCentre); !report.add(subject, err) {
		report.add(subject, checkDistanceCentre(v, in.DistanceCentre))
		o.DistanceCentre = v
	}
	if v, err := parseNumber(FieldDistanceThreshold, in.DistanceThreshold); !report.add(subject, err) {
		if !report.add(subject, checkDistanceThreshold(v, in.DistanceThreshold)) {
			report.add(subject, checkBeforeRunwayEnd(v, tora, in.DistanceThreshold))
		}
		o.DistanceThreshold = v
	}

	return o, report
}

// Obstacle checks an obstacle already in model form against a runway's TORA
func Obstacle(o *model.Obstacle, tora float64) *Report {
	report := &Report{}
	subject := "obstacle " + o.Name

	report.add(subject, CheckName(FieldObstacleName, o.Name))
	report.add(subject, checkDistanceCentre(o.DistanceCentre, formatNumber(o.DistanceCentre)))
	if !report.add(subject, checkDistanceThreshold(o.DistanceThreshold, formatNumber(o.DistanceThreshold))) {
		report.add(subject, checkBeforeRunwayEnd(o.DistanceThreshold, tora, formatNumber(o.DistanceThreshold)))
	}
	report.add(subject, checkPositive(FieldHeight, o.Height, formatNumber(o.Height)))
	report.add(subject, checkPositive(FieldLength, o.Length, formatNumber(o.Length)))
	return report
}

// Runway checks a runway in model form: its designator, the ordering of its
// distances, its displaced threshold and every obstacle placed on it by a
// user. Obstacle names must be unique, seeds included.
func Runway(r *model.Runway) *Report {
	report := &Report{}
	subject := "runway " + r.Number()
	d := r.Current()

	report.add(subject, CheckRunwayNumber(r.Number()))
	report.add(subject, checkTORA(d.TORA, formatNumber(d.TORA)))
	report.add(subject, checkASDA(d.ASDA, d.TORA, formatNumber(d.ASDA)))
	report.add(subject, checkTODA(d.TODA, d.ASDA, formatNumber(d.TODA)))
	report.add(subject, checkLDA(d.LDA, d.TORA, formatNumber(d.LDA)))
	report.add(subject, checkDisplaced(r.DisplacedThreshold(), formatNumber(r.DisplacedThreshold())))

	seen := make(map[string]bool)
	for _, o := range r.Obstacles() {
		if seen[o.Name] {
			report.add(subject, duplicateObstacle(o.Name))
		}
		seen[o.Name] = true
		if !o.Seed {
			report.merge(Obstacle(o, d.TORA))
		}
	}
	return report
}

// Airport checks an airport about to be registered: its name must be valid
// and unknown among knownNames, and its runways valid and distinct.
func Airport(a *model.Airport, knownNames []string) *Report {
	report := &Report{}
	subject := "airport " + a.Name()

	if !report.add(subject, CheckName(FieldAirportName, a.Name())) && slices.Contains(knownNames, a.Name()) {
		report.add(subject, violation(FieldAirportName, RuleDuplicate, a.Name(), "an airport named %q already exists", a.Name()))
	}

	runways := a.Runways()
	for i, r := range runways {
		report.merge(Runway(r))
		for _, prev := range runways[:i] {
			if DuplicateRunway(prev.Number(), r.Number()) {
				report.add(subject, duplicateRunway(r.Number(), prev.Number()))
				break
			}
		}
	}
	return report
}

// RunwayAddition checks a runway about to be added to an airport
func RunwayAddition(a *model.Airport, r *model.Runway) *Report {
	report := Runway(r)
	if err := CheckRunwayUnique(a, r.Number(), ""); err != nil {
		report.add("airport "+a.Name(), err)
	}
	return report
}

// CheckRunwayUnique reports a violation if number clashes with any runway of
// the airport other than the one currently named except.
func CheckRunwayUnique(a *model.Airport, number, except string) error {
	for _, existing := range a.RunwayNumbers() {
		if existing == except && except != "" {
			continue
		}
		if DuplicateRunway(existing, number) {
			return duplicateRunway(number, existing)
		}
	}
	return nil
}

// ObstacleAddition checks an obstacle about to be added to a runway
func ObstacleAddition(r *model.Runway, o *model.Obstacle) *Report {
	report := Obstacle(o, r.TORA())
	if err := CheckObstacleUnique(r, o.Name, ""); err != nil {
		report.add("runway "+r.Number(), err)
	}
	return report
}

// CheckObstacleUnique reports a violation if name is already used by an
// obstacle of the runway other than the one currently named except.
func CheckObstacleUnique(r *model.Runway, name, except string) error {
	if name == except && except != "" {
		return nil
	}
	if _, ok := r.Obstacle(name); ok {
		return duplicateObstacle(name)
	}
	return nil
}

func duplicateRunway(number, existing string) *Violation {
	if number == existing {
		return violation(FieldRunwayNumber, RuleDuplicate, number, "runway %s already exists", existing)
	}
	return violation(FieldRunwayNumber, RuleDuplicate, number, "runway %s is the same strip as existing runway %s", number, existing)
}

func duplicateObstacle(name string) *Violation {
	return violation(FieldObstacleName, RuleDuplicate, name, "an obstacle named %q already exists", name)
}

// DuplicateRunway reports whether two designators denote the same physical
// strip: the same heading and suffix, or opposite ends of one strip (headings
// 18 apart with L and R swapped, C and no suffix unchanged).
func DuplicateRunway(a, b string) bool {
	ha, la, errA := model.ParseDesignator(a)
	hb, lb, errB := model.ParseDesignator(b)
	if errA != nil || errB != nil {
		return a == b
	}
	ha, hb = ha%36, hb%36
	if ha == hb && la == lb {
		return true
	}
	return (ha+18)%36 == hb && la == oppositeSide(lb)
}

func oppositeSide(letter byte) byte {
	switch letter {
	case 'L':
		return 'R'
	case 'R':
		return 'L'
	default:
		return letter
	}
}

// IsValidAirport is the boolean form of Airport
func IsValidAirport(a *model.Airport, knownNames []string) bool {
	return Airport(a, knownNames).OK()
}

// IsValidRunway is the boolean form of Runway
func IsValidRunway(r *model.Runway) bool { return Runway(r).OK() }

// IsValidObstacle is the boolean form of Obstacle
func IsValidObstacle(o *model.Obstacle, tora float64) bool { return Obstacle(o, tora).OK() }

// String renders a violation list for logs
func (r *Report) String() string {
	if r.OK() {
		return "ok"
	}
	return fmt.Sprintf("%d violation(s): %s", len(r.Violations), r.Error())
}
