package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Breakdown is a human-readable explanation of a redeclaration's arithmetic
type Breakdown struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// fmt1 formats a distance to one decimal place
func fmt1(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

// Breakdown explains how the current distances were derived for procedure p
// against the selected obstacle. It reads the same fields the formulas do and
// is only meaningful right after the matching redeclaration.
func (r *Runway) Breakdown(p Procedure) Breakdown {
	o, ok := r.CurrentObstacle()
	if !ok {
		return Breakdown{Label: "No obstacle selected"}
	}

	c := r.constants
	var b strings.Builder

	switch p {
	case LandingOver:
		fmt.Fprintf(&b, "LDA = LDA - obstacle distance from threshold - h * slope - new strip end - displaced threshold\n")
		fmt.Fprintf(&b, "LDA = %s - %s - %s * %d - %d - %s\n", fmt1(r.defaults.LDA), fmt1(o.DistanceThreshold),
			fmt1(o.Height), int(c.SlopeValue), int(c.NewStripEnd), fmt1(r.displacedThreshold))
		fmt.Fprintf(&b, "LDA = %s", fmt1(r.current.LDA))
		return Breakdown{Label: "Re-declared value: LDA", Text: b.String()}

	case LandingTowards:
		fmt.Fprintf(&b, "LDA = obstacle distance from threshold - RESA - new strip end\n")
		fmt.Fprintf(&b, "LDA = %s - %d - %d\n", fmt1(o.DistanceThreshold), int(c.RESA), int(c.NewStripEnd))
		fmt.Fprintf(&b, "LDA = %s", fmt1(r.current.LDA))
		return Breakdown{Label: "Re-declared value: LDA", Text: b.String()}

	case TakeOffTowards:
		fmt.Fprintf(&b, "TORA = obstacle distance from threshold + displaced threshold - h * slope - new strip end\n")
		fmt.Fprintf(&b, "TORA = %s + %s - %s * %d - %d\n", fmt1(o.DistanceThreshold), fmt1(r.displacedThreshold),
			fmt1(o.Height), int(c.SlopeValue), int(c.NewStripEnd))
		fmt.Fprintf(&b, "TORA = %s\n\n", fmt1(r.current.TORA))
		fmt.Fprintf(&b, "ASDA = TORA = TODA = %s", fmt1(r.current.TORA))
		return Breakdown{Label: "Re-declared values: TORA, TODA, ASDA", Text: b.String()}

	case TakeOffAway:
		way := math.Max(r.DefaultClearWay(), r.DefaultStopWay())
		fmt.Fprintf(&b, "TORA = TORA - obstacle distance from threshold - displaced threshold - engine blast allowance + largest of (clear way, stop way)\n")
		fmt.Fprintf(&b, "TORA = %s - %s - %s - %d + %s\n", fmt1(r.defaults.TORA), fmt1(o.DistanceThreshold),
			fmt1(r.displacedThreshold), int(c.EngineBlastAllowance), fmt1(way))
		fmt.Fprintf(&b, "TORA = %s\n\n", fmt1(r.current.TORA))
		fmt.Fprintf(&b, "TODA = TORA + clear way\n")
		fmt.Fprintf(&b, "TODA = %s + %s\n", fmt1(r.current.TORA), fmt1(r.DefaultClearWay()))
		fmt.Fprintf(&b, "TODA = %s\n\n", fmt1(r.current.TODA))
		fmt.Fprintf(&b, "ASDA = TORA + stop way\n")
		fmt.Fprintf(&b, "ASDA = %s + %s\n", fmt1(r.current.TORA), fmt1(r.DefaultStopWay()))
		fmt.Fprintf(&b, "ASDA = %s", fmt1(r.current.ASDA))
		return Breakdown{Label: "Re-declared values: TORA, TODA, ASDA", Text: b.String()}
	}

	return Breakdown{Label: "Unknown procedure"}
}
