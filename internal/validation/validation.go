// Package validation gates user-supplied values before they are allowed to
// mutate the runway model. The model itself performs no validation.
package validation

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Field names the input a violation refers to
type Field string

const (
	FieldAirportName       Field = "airport_name"
	FieldRunwayNumber      Field = "runway_number"
	FieldTORA              Field = "tora"
	FieldTODA              Field = "toda"
	FieldASDA              Field = "asda"
	FieldLDA               Field = "lda"
	FieldDisplaced         Field = "displaced_threshold"
	FieldObstacleName      Field = "obstacle_name"
	FieldHeight            Field = "height"
	FieldLength            Field = "length"
	FieldDistanceCentre    Field = "distance_centre"
	FieldDistanceThreshold Field = "distance_threshold"
	FieldFilename          Field = "filename"
)

// Rule names the constraint a value broke
type Rule string

const (
	RuleNotNumber Rule = "not_a_number"
	RuleFormat    Rule = "format"
	RulePositive  Rule = "must_be_positive"
	RuleNegative  Rule = "must_not_be_negative"
	RuleRange     Rule = "out_of_range"
	RuleOrdering  Rule = "ordering"
	RuleDuplicate Rule = "duplicate"
	RuleExtension Rule = "extension"
)

// Violation describes one failed check
type Violation struct {
	Subject string `json:"subject,omitempty"` // e.g. runway "09L" or obstacle "crane" in a composite check
	Field   Field  `json:"field"`
	Rule    Rule   `json:"rule"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

// Error implements the error interface
func (v *Violation) Error() string {
	if v.Subject != "" {
		return fmt.Sprintf("%s: %s: %s", v.Subject, v.Field, v.Message)
	}
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

func violation(field Field, rule Rule, value, format string, args ...interface{}) *Violation {
	return &Violation{
		Field:   field,
		Rule:    rule,
		Value:   value,
		Message: fmt.Sprintf(format, args...),
	}
}

// parseNumber parses a real number the way a form field is read: surrounding
// whitespace is ignored and NaN is never a valid number.
func parseNumber(field Field, s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) {
		return 0, violation(field, RuleNotNumber, s, "%q is not a number", s)
	}
	return v, nil
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// CheckRunwayNumber validates a runway designator: 1-3 characters, an
// optional trailing L/C/R (any case) and a heading between 0 and 36.
func CheckRunwayNumber(number string) error {
	if len(number) == 0 || len(number) > 3 {
		return violation(FieldRunwayNumber, RuleFormat, number, "must be 1 to 3 characters long")
	}

	heading := number
	switch number[len(number)-1] {
	case 'L', 'C', 'R', 'l', 'c', 'r':
		heading = number[:len(number)-1]
	}
	n, err := strconv.Atoi(heading)
	if err != nil {
		return violation(FieldRunwayNumber, RuleFormat, number, "must be a heading number with an optional L, C or R suffix")
	}
	if n < 0 || n > 36 {
		return violation(FieldRunwayNumber, RuleRange, number, "heading must be between 0 and 36")
	}
	return nil
}

// CheckTORA validates a take-off run available: a number greater than 0
func CheckTORA(tora string) error {
	v, err := parseNumber(FieldTORA, tora)
	if err != nil {
		return err
	}
	return checkTORA(v, tora)
}

func checkTORA(v float64, raw string) error {
	if !(v > 0) {
		return violation(FieldTORA, RulePositive, raw, "must be greater than 0")
	}
	return nil
}

// CheckTODA validates a take-off distance available against the ASDA
func CheckTODA(toda string, asda float64) error {
	v, err := parseNumber(FieldTODA, toda)
	if err != nil {
		return err
	}
	return checkTODA(v, asda, toda)
}

func checkTODA(v, asda float64, raw string) error {
	if !(v >= asda) {
		return violation(FieldTODA, RuleOrdering, raw, "must be greater than or equal to ASDA (%s)", formatNumber(asda))
	}
	return nil
}

// CheckASDA validates an accelerate-stop distance available against the TORA
func CheckASDA(asda string, tora float64) error {
	v, err := parseNumber(FieldASDA, asda)
	if err != nil {
		return err
	}
	return checkASDA(v, tora, asda)
}

func checkASDA(v, tora float64, raw string) error {
	if !(v >= tora) {
		return violation(FieldASDA, RuleOrdering, raw, "must be greater than or equal to TORA (%s)", formatNumber(tora))
	}
	return nil
}

// CheckLDA validates a landing distance available: greater than 0 and no
// longer than the TORA.
func CheckLDA(lda string, tora float64) error {
	v, err := parseNumber(FieldLDA, lda)
	if err != nil {
		return err
	}
	return checkLDA(v, tora, lda)
}

func checkLDA(v, tora float64, raw string) error {
	if !(v > 0) {
		return violation(FieldLDA, RulePositive, raw, "must be greater than 0")
	}
	if !(v <= tora) {
		return violation(FieldLDA, RuleOrdering, raw, "must be less than or equal to TORA (%s)", formatNumber(tora))
	}
	return nil
}

// CheckDisplacedThreshold validates a displaced threshold: 0 or more
func CheckDisplacedThreshold(displaced string) error {
	v, err := parseNumber(FieldDisplaced, displaced)
	if err != nil {
		return err
	}
	return checkDisplaced(v, displaced)
}

func checkDisplaced(v float64, raw string) error {
	if !(v >= 0) {
		return violation(FieldDisplaced, RuleNegative, raw, "must be greater than or equal to 0")
	}
	return nil
}

// CheckName validates an airport or obstacle name: non-empty, starting with
// a letter and made only of letters and digits.
func CheckName(field Field, name string) error {
	if name == "" {
		return violation(field, RuleFormat, name, "must not be empty")
	}
	for i, c := range name {
		if i == 0 && !unicode.IsLetter(c) {
			return violation(field, RuleFormat, name, "must start with a letter")
		}
		if !unicode.IsLetter(c) && !unicode.IsDigit(c) {
			return violation(field, RuleFormat, name, "must contain only letters and digits")
		}
	}
	return nil
}

// CheckObstacleHeight validates an obstacle height: a number greater than 0
func CheckObstacleHeight(height string) error {
	return checkPositiveField(FieldHeight, height)
}

// CheckObstacleLength validates an obstacle length: a number greater than 0
func CheckObstacleLength(length string) error {
	return checkPositiveField(FieldLength, length)
}

func checkPositiveField(field Field, s string) error {
	v, err := parseNumber(field, s)
	if err != nil {
		return err
	}
	return checkPositive(field, v, s)
}

func checkPositive(field Field, v float64, raw string) error {
	if !(v > 0) {
		return violation(field, RulePositive, raw, "must be greater than 0")
	}
	return nil
}

// CheckDistanceCentre validates an obstacle's distance from the centreline:
// between 0 and 75 inclusive.
func CheckDistanceCentre(distance string) error {
	v, err := parseNumber(FieldDistanceCentre, distance)
	if err != nil {
		return err
	}
	return checkDistanceCentre(v, distance)
}

func checkDistanceCentre(v float64, raw string) error {
	if !(v >= 0 && v <= 75) {
		return violation(FieldDistanceCentre, RuleRange, raw, "must be between 0 and 75")
	}
	return nil
}

// CheckDistanceThreshold validates an obstacle's distance from the
// threshold on its own: 60 or more.
func CheckDistanceThreshold(distance string) error {
	v, err := parseNumber(FieldDistanceThreshold, distance)
	if err != nil {
		return err
	}
	return checkDistanceThreshold(v, distance)
}

// CheckDistanceThresholdOnRunway additionally requires the distance to be
// shorter than the runway's TORA.
func CheckDistanceThresholdOnRunway(distance string, tora float64) error {
	v, err := parseNumber(FieldDistanceThreshold, distance)
	if err != nil {
		return err
	}
	if err := checkDistanceThreshold(v, distance); err != nil {
		return err
	}
	return checkBeforeRunwayEnd(v, tora, distance)
}

func checkDistanceThreshold(v float64, raw string) error {
	if !(v >= 60) {
		return violation(FieldDistanceThreshold, RuleRange, raw, "must be greater than or equal to 60")
	}
	return nil
}

func checkBeforeRunwayEnd(v, tora float64, raw string) error {
	if !(v < tora) {
		return violation(FieldDistanceThreshold, RuleOrdering, raw, "must be less than the runway TORA (%s)", formatNumber(tora))
	}
	return nil
}

// CheckXMLFilename validates an export filename of the form <name>.xml
// where <name> passes the name rule. Exactly one dot is allowed, so names
// such as a.xml.bak are rejected.
func CheckXMLFilename(filename string) error {
	parts := strings.Split(filename, ".")
	if len(parts) != 2 {
		return violation(FieldFilename, RuleFormat, filename, "must be a name followed by the .xml extension")
	}
	if err := CheckName(FieldFilename, parts[0]); err != nil {
		return err
	}
	if parts[1] != "xml" {
		return violation(FieldFilename, RuleExtension, filename, "extension must be xml")
	}
	return nil
}

func IsValidRunwayNumber(number string) bool { return CheckRunwayNumber(number) == nil }
func IsValidRunwayTora(tora string) bool     { return CheckTORA(tora) == nil }

func IsValidRunwayToda(toda string, asda float64) bool { return CheckTODA(toda, asda) == nil }
func IsValidRunwayAsda(asda string, tora float64) bool { return CheckASDA(asda, tora) == nil }
func IsValidRunwayLda(lda string, tora float64) bool   { return CheckLDA(lda, tora) == nil }
func IsValidRunwayDisplaced(displaced string) bool     { return CheckDisplacedThreshold(displaced) == nil }
func IsValidName(name string) bool                     { return CheckName(FieldAirportName, name) == nil }
func IsValidObstacleHeight(height string) bool         { return CheckObstacleHeight(height) == nil }
func IsValidXMLFilename(filename string) bool          { return CheckXMLFilename(filename) == nil }

// IsValidObstacleDistance checks a distance from the centreline when centre
// is set, and a distance from the threshold otherwise.
func IsValidObstacleDistance(distance string, centre bool) bool {
	if centre {
		return CheckDistanceCentre(distance) == nil
	}
	return CheckDistanceThreshold(distance) == nil
}
