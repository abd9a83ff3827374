package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Workbook sheet names
const (
	SummarySheet   = "Summary"
	DistancesSheet = "Distances"
	BreakdownSheet = "Breakdown"
)

// WriteWorkbook writes the report as an XLSX workbook with one sheet for the
// context, one for the distance table and one for the calculation breakdown
func WriteWorkbook(w io.Writer, in Input) error {
	f := excelize.NewFile()
	defer f.Close()

	for _, name := range []string{SummarySheet, DistancesSheet, BreakdownSheet} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to drop default sheet: %w", err)
	}

	r := in.Runway
	c := r.Constants
	o := in.Obstacle

	summary := [][]interface{}{
		{"Airport", in.Airport},
		{"Runway", r.Number},
		{"Procedure", in.Procedure.String()},
		{"RESA (m)", c.RESA},
		{"Blast Allowance (m)", c.EngineBlastAllowance},
		{"Slope", fmt.Sprintf("1:%d", int(c.SlopeValue))},
		{"New Strip End (m)", c.NewStripEnd},
		{"Displaced Threshold (m)", r.DisplacedThreshold},
		{"ALS/TOCS (m)", in.AlsTocs},
		{"Obstacle", o.Name},
		{"Height (m)", o.Height},
		{"Length (m)", o.Length},
		{"Distance From Centre Line (m)", o.DistanceCentre},
		{"Distance From Threshold (m)", o.DistanceThreshold},
	}
	if err := setRows(f, SummarySheet, summary); err != nil {
		return err
	}

	distances := [][]interface{}{
		{"", "TORA", "TODA", "ASDA", "LDA", "STOP WAY", "CLEAR WAY"},
		{"Original", r.Default.TORA, r.Default.TODA, r.Default.ASDA, r.Default.LDA, r.DefaultStopWay, r.DefaultClearWay},
		{"Re-Declared", r.Current.TORA, r.Current.TODA, r.Current.ASDA, r.Current.LDA, r.StopWay, r.ClearWay},
	}
	if len(r.Clamped) > 0 {
		distances = append(distances, []interface{}{"Clamped to 0", strings.Join(r.Clamped, ", ")})
	}
	if err := setRows(f, DistancesSheet, distances); err != nil {
		return err
	}

	breakdown := [][]interface{}{{in.Breakdown.Label}}
	for _, line := range strings.Split(in.Breakdown.Text, "\n") {
		breakdown = append(breakdown, []interface{}{line})
	}
	if err := setRows(f, BreakdownSheet, breakdown); err != nil {
		return err
	}

	if err := f.SetColWidth(SummarySheet, "A", "A", 30); err != nil {
		return fmt.Errorf("failed to size summary sheet: %w", err)
	}
	if err := f.SetColWidth(DistancesSheet, "A", "A", 14); err != nil {
		return fmt.Errorf("failed to size distances sheet: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func setRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
