package validation

import (
	"errors"
	"fmt"
	"testing"

	"github.com/yegors/runway-redeclaration/internal/model"
)

func TestRunwayNumber(t *testing.T) {
	for n := 0; n <= 36; n++ {
		for _, suffix := range []string{"", "L", "C", "R", "l", "c", "r"} {
			for _, s := range []string{fmt.Sprint(n), fmt.Sprintf("%02d", n)} {
				if s += suffix; len(s) <= 3 && !IsValidRunwayNumber(s) {
					t.Errorf("runway number %q should be valid", s)
				}
			}
		}
	}

	for _, s := range []string{"", "37", "100", "nine left", "09X", "L", "-1", "09LR", "1.5"} {
		if IsValidRunwayNumber(s) {
			t.Errorf("runway number %q should be invalid", s)
		}
	}

	var v *Violation
	if err := CheckRunwayNumber("37"); !errors.As(err, &v) || v.Rule != RuleRange || v.Field != FieldRunwayNumber {
		t.Errorf("CheckRunwayNumber(37) = %v", err)
	}
}

func TestRunwayDistances(t *testing.T) {
	type testcase struct {
		name  string
		valid bool
		check func() bool
	}
	for _, tc := range []testcase{
		{"TORA 3902", true, func() bool { return IsValidRunwayTora("3902") }},
		{"TORA 0", false, func() bool { return IsValidRunwayTora("0") }},
		{"TORA words", false, func() bool { return IsValidRunwayTora("five hundred") }},
		{"TORA NaN", false, func() bool { return IsValidRunwayTora("NaN") }},
		{"TORA padded", true, func() bool { return IsValidRunwayTora(" 3902 ") }},
		{"TODA = ASDA", true, func() bool { return IsValidRunwayToda("3902", 3902) }},
		{"TODA < ASDA", false, func() bool { return IsValidRunwayToda("0", 3902) }},
		{"TODA words", false, func() bool { return IsValidRunwayToda("five hundred", 3902) }},
		{"ASDA = TORA", true, func() bool { return IsValidRunwayAsda("3902", 3902) }},
		{"ASDA < TORA", false, func() bool { return IsValidRunwayAsda("0", 3902) }},
		{"ASDA words", false, func() bool { return IsValidRunwayAsda("five hundred", 3902) }},
		{"LDA = TORA", true, func() bool { return IsValidRunwayLda("3902", 3902) }},
		{"LDA 0", false, func() bool { return IsValidRunwayLda("0", 3902) }},
		{"LDA > TORA", false, func() bool { return IsValidRunwayLda("3903", 3902) }},
		{"LDA words", false, func() bool { return IsValidRunwayLda("five hundred", 3902) }},
		{"displaced 0", true, func() bool { return IsValidRunwayDisplaced("0") }},
		{"displaced 306", true, func() bool { return IsValidRunwayDisplaced("306") }},
		{"displaced -1", false, func() bool { return IsValidRunwayDisplaced("-1") }},
	} {
		if got := tc.check(); got != tc.valid {
			t.Errorf("%s: got valid=%v; expected %v", tc.name, got, tc.valid)
		}
	}
}

func TestObstacleFields(t *testing.T) {
	for _, s := range []string{"BOEING", "ob1", "a", "Crane2"} {
		if !IsValidName(s) {
			t.Errorf("name %q should be valid", s)
		}
	}
	for _, s := range []string{"", "1", "-", "1abc", "crane 2", "crane_2"} {
		if IsValidName(s) {
			t.Errorf("name %q should be invalid", s)
		}
	}

	for _, s := range []string{"50", "1", "0.5"} {
		if !IsValidObstacleHeight(s) {
			t.Errorf("height %q should be valid", s)
		}
	}
	for _, s := range []string{"0", "-3", "fourty"} {
		if IsValidObstacleHeight(s) {
			t.Errorf("height %q should be invalid", s)
		}
	}

	for _, s := range []string{"0", "1", "50", "75"} {
		if !IsValidObstacleDistance(s, true) {
			t.Errorf("distance from centre line %q should be valid", s)
		}
	}
	for _, s := range []string{"-1", "75.1", "fourty"} {
		if IsValidObstacleDistance(s, true) {
			t.Errorf("distance from centre line %q should be invalid", s)
		}
	}

	for _, s := range []string{"60", "3000"} {
		if !IsValidObstacleDistance(s, false) {
			t.Errorf("distance from threshold %q should be valid", s)
		}
	}
	for _, s := range []string{"1", "-1", "59.9", "fourty"} {
		if IsValidObstacleDistance(s, false) {
			t.Errorf("distance from threshold %q should be invalid", s)
		}
	}

	if err := CheckDistanceThresholdOnRunway("3884", 3884); err == nil {
		t.Errorf("distance equal to TORA should be rejected")
	}
	if err := CheckDistanceThresholdOnRunway("3883", 3884); err != nil {
		t.Errorf("distance below TORA rejected: %v", err)
	}
}

func TestXMLFilename(t *testing.T) {
	for _, s := range []string{"file.xml", "f1.xml"} {
		if !IsValidXMLFilename(s) {
			t.Errorf("filename %q should be valid", s)
		}
	}
	for _, s := range []string{"0.xml", "file.txt", "file", "file-xml", "file.", ".xml", "a.b.xml", "file.XML"} {
		if IsValidXMLFilename(s) {
			t.Errorf("filename %q should be invalid", s)
		}
	}
}

func TestDuplicateRunway(t *testing.T) {
	type testcase struct {
		a, b string
		dup  bool
	}
	for _, tc := range []testcase{
		{"09L", "09L", true},
		{"09L", "9l", true},
		{"09L", "27R", true},
		{"27R", "09L", true},
		{"09C", "27C", true},
		{"09", "27", true},
		{"18", "36", true},
		{"36", "0", true},
		{"09L", "09R", false},
		{"09L", "27L", false},
		{"09L", "27C", false},
		{"09", "09L", false},
		{"10", "27", false},
	} {
		if got := DuplicateRunway(tc.a, tc.b); got != tc.dup {
			t.Errorf("DuplicateRunway(%q, %q) = %v; expected %v", tc.a, tc.b, got, tc.dup)
		}
	}
}

func TestAirportRejectsReciprocalRunway(t *testing.T) {
	a := model.NewAirport("Heathrow")
	a.AddRunway(model.NewRunway("27R", 3884, 3962, 3884, 3884, 0))
	if !IsValidAirport(a, nil) {
		t.Fatalf("single-runway airport rejected: %v", Airport(a, nil))
	}

	r := model.NewRunway("09L", 3884, 3962, 3884, 3884, 0)
	report := RunwayAddition(a, r)
	if report.OK() || !report.Has(FieldRunwayNumber, RuleDuplicate) {
		t.Errorf("adding 09L next to 27R was accepted: %v", report)
	}

	a.AddRunway(r)
	if IsValidAirport(a, nil) {
		t.Errorf("airport with 27R and 09L should be invalid")
	}

	if IsValidAirport(model.NewAirport("Heathrow"), []string{"Heathrow"}) {
		t.Errorf("airport name clash accepted")
	}
	if IsValidAirport(model.NewAirport("1Heathrow"), nil) {
		t.Errorf("invalid airport name accepted")
	}
}

func TestRunwayComposite(t *testing.T) {
	r := model.NewRunway("10R", 3884, 3962, 3884, 3884, 0)
	if report := Runway(r); !report.OK() {
		t.Fatalf("valid runway rejected: %v", report)
	}

	r.AddObstacle(model.NewObstacle("crane", 25, 10, 0, 500))
	if !IsValidRunway(r) {
		t.Errorf("valid obstacle rejected: %v", Runway(r))
	}

	r.AddObstacle(model.NewObstacle("crane", 25, 10, 0, 600))
	if report := Runway(r); !report.Has(FieldObstacleName, RuleDuplicate) {
		t.Errorf("duplicate obstacle accepted: %v", report)
	}

	bad := model.NewRunway("40", 100, 50, 80, 120, -1)
	report := Runway(bad)
	for _, want := range []struct {
		f Field
		r Rule
	}{
		{FieldRunwayNumber, RuleRange},
		{FieldASDA, RuleOrdering},
		{FieldTODA, RuleOrdering},
		{FieldLDA, RuleOrdering},
		{FieldDisplaced, RuleNegative},
	} {
		if !report.Has(want.f, want.r) {
			t.Errorf("expected %s/%s in %v", want.f, want.r, report)
		}
	}
	if report.Err() == nil {
		t.Errorf("Err() returned nil for a failing report")
	}
}

func TestObstacleComposite(t *testing.T) {
	r := model.NewRunway("10R", 3884, 3962, 3884, 3884, 0)

	if report := ObstacleAddition(r, model.NewObstacle("crane", 25, 10, 0, 500)); !report.OK() {
		t.Errorf("valid obstacle rejected: %v", report)
	}
	if report := ObstacleAddition(r, model.NewObstacle("ob2", 25, 10, 0, 500)); !report.Has(FieldObstacleName, RuleDuplicate) {
		t.Errorf("obstacle clashing with a seed accepted: %v", report)
	}
	if IsValidObstacle(model.NewObstacle("crane", 25, 10, 0, 3884), 3884) {
		t.Errorf("obstacle at the runway end accepted")
	}
	if IsValidObstacle(model.NewObstacle("crane", 0, 10, 80, 30), 3884) {
		t.Errorf("invalid obstacle accepted")
	}
	report := Obstacle(model.NewObstacle("crane", 0, 0, 80, 30), 3884)
	if len(report.Violations) != 4 {
		t.Errorf("expected 4 aggregated violations, got %v", report)
	}
}

func TestParseRunwayFields(t *testing.T) {
	d, displaced, report := ParseRunwayFields(RunwayFields{
		Number: "09L", TORA: "3902", TODA: "3902", ASDA: "3902", LDA: "3595", Displaced: "306",
	})
	if !report.OK() {
		t.Fatalf("valid runway fields rejected: %v", report)
	}
	if d != (model.Distances{TORA: 3902, TODA: 3902, ASDA: 3902, LDA: 3595}) || displaced != 306 {
		t.Errorf("parsed %+v, %v", d, displaced)
	}

	_, _, report = ParseRunwayFields(RunwayFields{
		Number: "09L", TORA: "abc", TODA: "3000", ASDA: "2000", LDA: "-5", Displaced: "0",
	})
	if !report.Has(FieldTORA, RuleNotNumber) {
		t.Errorf("expected TORA not-a-number: %v", report)
	}
	if report.Has(FieldASDA, RuleOrdering) {
		t.Errorf("ASDA ordering checked against an unparsable TORA: %v", report)
	}
	if !report.Has(FieldLDA, RulePositive) {
		t.Errorf("expected LDA positive violation: %v", report)
	}
	for _, v := range report.Violations {
		if v.Subject != "runway 09L" {
			t.Errorf("violation subject %q", v.Subject)
		}
	}
}

func TestParseObstacleFields(t *testing.T) {
	o, report := ParseObstacleFields(ObstacleFields{
		Name: "crane", Height: "25", Length: "10", DistanceCentre: "0", DistanceThreshold: "500",
	}, 3884)
	if !report.OK() {
		t.Fatalf("valid obstacle rejected: %v", report)
	}
	if *o != *model.NewObstacle("crane", 25, 10, 0, 500) {
		t.Errorf("parsed %+v", o)
	}

	_, report = ParseObstacleFields(ObstacleFields{
		Name: "crane", Height: "25", Length: "10", DistanceCentre: "0", DistanceThreshold: "4000",
	}, 3884)
	if !report.Has(FieldDistanceThreshold, RuleOrdering) {
		t.Errorf("distance beyond TORA accepted: %v", report)
	}
}
