// Package report renders a redeclaration as a plain-text sheet or an XLSX
// workbook.
package report

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/yegors/runway-redeclaration/internal/model"
)

// ErrNoObstacle is returned when a report is requested for a runway without
// a selected obstacle
var ErrNoObstacle = errors.New("report needs a selected obstacle")

// Input is everything a report prints. It is a snapshot, so it can be
// rendered after the runway has moved on.
type Input struct {
	Airport   string
	Runway    model.RunwayState
	Obstacle  model.Obstacle
	Procedure model.Procedure
	AlsTocs   float64
	Breakdown model.Breakdown
}

// NewInput captures a runway right after a redeclaration with procedure p
func NewInput(airport string, r *model.Runway, p model.Procedure) (Input, error) {
	o, ok := r.CurrentObstacle()
	if !ok {
		return Input{}, ErrNoObstacle
	}
	alsTocs, _ := r.AlsTocs()
	return Input{
		Airport:   airport,
		Runway:    r.State(),
		Obstacle:  *o,
		Procedure: p,
		AlsTocs:   alsTocs,
		Breakdown: r.Breakdown(p),
	}, nil
}

func oneDecimal(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func meters(v float64) string {
	return strconv.Itoa(int(v)) + "m"
}

// WriteText writes the fixed-layout text report
func WriteText(w io.Writer, in Input) error {
	r := in.Runway
	c := r.Constants
	o := in.Obstacle

	var b strings.Builder
	fmt.Fprintf(&b, "Airport Name: %s \n\n", in.Airport)
	fmt.Fprintf(&b, "Runway: %s \n\n", r.Number)
	fmt.Fprintf(&b, "RESA = %-15s Blast Allowance = %-15s\n", meters(c.RESA), meters(c.EngineBlastAllowance))
	fmt.Fprintf(&b, "Slope = 1:%-12d Displaced Threshold = %-15s\n", int(c.SlopeValue), meters(r.DisplacedThreshold))
	fmt.Fprintf(&b, "New Strip End = %-6s ALS/TOCS = %-15s\n", meters(c.NewStripEnd), oneDecimal(in.AlsTocs)+"m")
	b.WriteString("\n")
	fmt.Fprintf(&b, "%-11s %-10s %-10s %-10s %-10s %-10s %-10s\n", "", "TORA", "TODA", "ASDA", "LDA", "STOP WAY", "CLEAR WAY")
	fmt.Fprintf(&b, "%-10s  %-10s %-10s %-10s %-10s %-10s %-10s\n", "ORIGINAL",
		oneDecimal(r.Default.TORA), oneDecimal(r.Default.TODA), oneDecimal(r.Default.ASDA), oneDecimal(r.Default.LDA),
		oneDecimal(r.DefaultStopWay), oneDecimal(r.DefaultClearWay))
	fmt.Fprintf(&b, "%-10s %-10s %-10s %-10s %-10s %-10s %-10s\n", "RE-DECLARED",
		oneDecimal(r.Current.TORA), oneDecimal(r.Current.TODA), oneDecimal(r.Current.ASDA), oneDecimal(r.Current.LDA),
		oneDecimal(r.StopWay), oneDecimal(r.ClearWay))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Obstacle: %-10s\n", o.Name)
	fmt.Fprintf(&b, "Height = %-15s Length = %-15s\n", oneDecimal(o.Height)+"m", oneDecimal(o.Length)+"m")
	fmt.Fprintf(&b, "Distance From Centre Line = %-15s\n", oneDecimal(o.DistanceCentre)+"m")
	fmt.Fprintf(&b, "Distance From Threshold = %-15s\n", oneDecimal(o.DistanceThreshold)+"m")
	b.WriteString("\n")
	fmt.Fprintf(&b, "Landing/Take-off Method: %s\n", strings.ToUpper(in.Procedure.String()))

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("failed to write text report: %w", err)
	}
	return nil
}
