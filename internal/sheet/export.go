package sheet

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"tutorregister/internal/attendance"
)

// XLSXSheetName is the worksheet name used by WriteXLSX.
const XLSXSheetName = "Attendance"

// TrackingColumns is the header of a tracking table.
var TrackingColumns = []string{"Name", "Surname", "Barcode", "Present", "Absent", "%", "Last Present"}

// TrackingTable renders tracking rows as a header plus string rows.
func TrackingTable(rows []attendance.TrackRow) [][]string {
	out := make([][]string, 0, len(rows)+1)
	out = append(out, append([]string(nil), TrackingColumns...))
	for _, r := range rows {
		out = append(out, []string{
			r.Name,
			r.Surname,
			r.Barcode,
			strconv.Itoa(r.Present),
			strconv.Itoa(r.Absent),
			strconv.FormatFloat(r.Percent, 'f', 1, 64),
			r.LastPresent,
		})
	}
	return out
}

// WriteCSV writes a table as CSV.
func WriteCSV(w io.Writer, table [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(table); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// WriteXLSX writes a table as a single-sheet workbook with a bold, frozen header row.
func WriteXLSX(w io.Writer, table [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", XLSXSheetName); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	for i, row := range table {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("write xlsx: %w", err)
		}
		vals := make([]interface{}, len(row))
		for j, v := range row {
			vals[j] = v
		}
		if err := f.SetSheetRow(XLSXSheetName, cell, &vals); err != nil {
			return fmt.Errorf("write xlsx: %w", err)
		}
	}

	if len(table) > 0 {
		bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err != nil {
			return fmt.Errorf("write xlsx: %w", err)
		}
		if err := f.SetRowStyle(XLSXSheetName, 1, 1, bold); err != nil {
			return fmt.Errorf("write xlsx: %w", err)
		}
		if err := f.SetPanes(XLSXSheetName, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		}); err != nil {
			return fmt.Errorf("write xlsx: %w", err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}
