package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/pkpd-sim/pkpd-sim/sim"
	"github.com/pkpd-sim/pkpd-sim/sim/catalog"
	"github.com/pkpd-sim/pkpd-sim/sim/clock"
	"github.com/pkpd-sim/pkpd-sim/sim/dosing"
)

// SeriesHeader is the column layout shared by the CSV and XLSX exports.
var SeriesHeader = []string{"time_min", "clock", "cp_ng_ml", "ce_ng_ml"}

func clockCell(minutes float64, start string) string {
	if start == "" {
		return ""
	}
	return clock.MinutesToTimeFloat(minutes, start)
}

// WriteCSV writes every series point. The clock column is empty when start
// is empty.
func WriteCSV(w io.Writer, series []sim.ConcentrationPoint, start string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(SeriesHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, p := range series {
		rec := []string{
			strconv.FormatFloat(p.Time, 'g', -1, 64),
			clockCell(p.Time, start),
			strconv.FormatFloat(p.Cp, 'f', 6, 64),
			strconv.FormatFloat(p.Ce, 'f', 6, 64),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("failed to write csv row at %g min: %w", p.Time, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

const (
	seriesSheet = "Series"
	dosesSheet  = "Doses"
	paramsSheet = "Parameters"
)

// WriteXLSX writes a workbook with the series, the dose list and the
// weight-scaled parameters on separate sheets.
func WriteXLSX(w io.Writer, r sim.Result, entries []dosing.Entry, start string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", seriesSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	for _, name := range []string{dosesSheet, paramsSheet} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	header := func(sheet string, cols []string) error {
		if err := f.SetSheetRow(sheet, "A1", &cols); err != nil {
			return fmt.Errorf("failed to write %s header: %w", sheet, err)
		}
		last, err := excelize.CoordinatesToCellName(len(cols), 1)
		if err != nil {
			return err
		}
		return f.SetCellStyle(sheet, "A1", last, headerStyle)
	}

	if err := header(seriesSheet, SeriesHeader); err != nil {
		return err
	}
	for i, p := range r.Series {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{p.Time, clockCell(p.Time, start), p.Cp, p.Ce}
		if err := f.SetSheetRow(seriesSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write series row %d: %w", i, err)
		}
	}
	if err := f.SetPanes(seriesSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze panes: %w", err)
	}

	if err := header(dosesSheet, []string{"id", "kind", "amount", "rate_per_h", "start_min", "clock", "duration_min", "unit"}); err != nil {
		return err
	}
	unit := string(catalog.Unit(r.Drug))
	for i, e := range entries {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{e.ID, string(e.Kind), e.Amount, e.Rate, e.Time, clockCell(e.Time, start), e.Duration, unit}
		if err := f.SetSheetRow(dosesSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write dose row %d: %w", i, err)
		}
	}

	if err := header(paramsSheet, []string{"name", "value"}); err != nil {
		return err
	}
	params := [][]any{
		{"drug", r.Drug.String()},
		{"model", r.Model.String()},
		{"V1 (L)", r.Params.V1},
		{"V2 (L)", r.Params.V2},
		{"V3 (L)", r.Params.V3},
		{"Cl (L/min)", r.Params.Cl},
		{"Q2 (L/min)", r.Params.Q2},
		{"Q3 (L/min)", r.Params.Q3},
		{"ke0 (1/min)", r.Params.Ke0},
		{"range", r.Range.Label},
	}
	for i, row := range params {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(paramsSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write parameter row %d: %w", i, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
