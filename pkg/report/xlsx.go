package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Attendance"

var xlsxHeaders = []string{"Date", "Clock In", "Clock Out", "Total Time", "Hours", "Selfie"}

// WriteXLSX writes the report as a spreadsheet. The Hours column carries the
// numeric worked time so totals can be computed in the sheet.
func (r *Report) WriteXLSX(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to remove default sheet: %w", err)
	}

	for i, h := range xlsxHeaders {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return err
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	if err := f.SetRowStyle(sheetName, 1, 1, bold); err != nil {
		return err
	}

	for idx, row := range r.Rows {
		n := idx + 2
		values := []interface{}{row.Date, row.ClockIn, row.ClockOut, row.Duration, nil, row.Selfie}
		if !row.Open {
			values[4] = row.Worked.Hours()
		}
		for col, v := range values {
			if v == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(col+1, n)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return err
			}
		}
	}

	if r.Total != nil {
		n := len(r.Rows) + 3
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", n), "Total Time")
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", n),
			fmt.Sprintf("%d hr %d min %.0f s", r.Total.Hours, r.Total.Minutes, r.Total.Seconds))
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", n), r.Total.Duration().Hours())
	}

	f.SetColWidth(sheetName, "A", "A", 14)
	f.SetColWidth(sheetName, "B", "C", 12)
	f.SetColWidth(sheetName, "D", "D", 24)
	f.SetColWidth(sheetName, "E", "E", 8)
	f.SetColWidth(sheetName, "F", "F", 48)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write spreadsheet: %w", err)
	}
	return nil
}
