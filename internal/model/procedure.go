package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Procedure identifies one of the four redeclaration procedures
type Procedure int

const (
	LandingOver    Procedure = 1 // Landing over the obstacle
	LandingTowards Procedure = 2 // Landing towards the obstacle
	TakeOffTowards Procedure = 3 // Take-off towards the obstacle
	TakeOffAway    Procedure = 4 // Take-off away from the obstacle
)

// Procedures lists every procedure in index order
var Procedures = []Procedure{LandingOver, LandingTowards, TakeOffTowards, TakeOffAway}

var procedureSlugs = map[Procedure]string{
	LandingOver:    "landing-over",
	LandingTowards: "landing-towards",
	TakeOffTowards: "take-off-towards",
	TakeOffAway:    "take-off-away",
}

// String returns the human-readable label of the procedure
func (p Procedure) String() string {
	switch p {
	case LandingOver:
		return "Landing over the obstacle"
	case LandingTowards:
		return "Landing towards the obstacle"
	case TakeOffTowards:
		return "Take-off towards the obstacle"
	case TakeOffAway:
		return "Take-off away from the obstacle"
	default:
		return "none"
	}
}

// Slug returns the URL-friendly name of the procedure
func (p Procedure) Slug() string {
	return procedureSlugs[p]
}

// Valid reports whether p is one of the four known procedures
func (p Procedure) Valid() bool {
	_, ok := procedureSlugs[p]
	return ok
}

// ParseProcedure accepts either a slug ("take-off-away") or an index ("4")
func ParseProcedure(s string) (Procedure, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		if p := Procedure(n); p.Valid() {
			return p, nil
		}
		return 0, fmt.Errorf("%w: %d", ErrUnknownProcedure, n)
	}
	for p, slug := range procedureSlugs {
		if slug == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownProcedure, s)
}
