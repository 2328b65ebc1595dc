// Package xlsx bundles the three export tables into one Excel workbook.
package xlsx

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/okian/quickshop/internal/domain/export"
	"github.com/okian/quickshop/internal/domain/pipeline"
)

// ContentType is the MIME type of the workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Sheet names in workbook order.
var sheetNames = map[export.Kind]string{
	export.KindData:     "Data",
	export.KindSummary:  "Summary",
	export.KindSegments: "Segments",
}

// SheetName returns the sheet holding table k.
func SheetName(k export.Kind) string {
	return sheetNames[k]
}

// text columns are written as strings even when they look numeric.
var textColumns = map[string]bool{
	"Date": true, "Segment": true, "Start": true, "End": true, "PrevStart": true, "PrevEnd": true,
}

// FileName returns the workbook download name.
func FileName(on time.Time) string {
	return "dashboard_export_" + on.Format("20060102") + ".xlsx"
}

// Write renders res as a workbook with one sheet per table.
func Write(w io.Writer, res *pipeline.Result) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, k := range export.Kinds {
		name := sheetNames[k]
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("new sheet %s: %w", name, err)
		}
		if err := writeTable(f, name, k.Header(), k.Records(res)); err != nil {
			return err
		}
	}
	f.SetActiveSheet(0)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeTable(f *excelize.File, sheet string, header []string, records [][]string) error {
	if err := setRow(f, sheet, 1, header, nil); err != nil {
		return err
	}
	for i, rec := range records {
		if err := setRow(f, sheet, i+2, rec, header); err != nil {
			return err
		}
	}
	return f.SetColWidth(sheet, "A", columnName(len(header)), 14)
}

func setRow(f *excelize.File, sheet string, row int, cells, header []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	values := make([]any, len(cells))
	for i, c := range cells {
		values[i] = cellValue(c, header, i)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("%s row %d: %w", sheet, row, err)
	}
	return nil
}

func cellValue(c string, header []string, col int) any {
	if header == nil || c == "" || textColumns[header[col]] {
		return c
	}
	if n, err := strconv.ParseInt(c, 10, 64); err == nil {
		return n
	}
	if v, err := strconv.ParseFloat(c, 64); err == nil {
		return v
	}
	return c
}

func columnName(n int) string {
	name, err := excelize.ColumnNumberToName(n)
	if err != nil {
		return "A"
	}
	return name
}
