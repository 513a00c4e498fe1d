package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

const defaultSheet = "Sheet1"

// XLSXExporter renders datasets into a single-sheet workbook.
type XLSXExporter struct {
	sheetName string
}

// NewXLSXExporter constructs an XLSX exporter writing to the named sheet.
func NewXLSXExporter(sheetName string) *XLSXExporter {
	if sheetName == "" {
		sheetName = "Attendance"
	}
	return &XLSXExporter{sheetName: sheetName}
}

// Render writes the optional title in the first row, then headers and rows.
func (e *XLSXExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("xlsx requires at least one header")
	}

	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(e.sheetName)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if e.sheetName != defaultSheet {
		if err := f.DeleteSheet(defaultSheet); err != nil {
			return nil, fmt.Errorf("drop default sheet: %w", err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	row := 1
	if data.Title != "" {
		titleCell, _ := excelize.CoordinatesToCellName(1, row)
		lastCell, _ := excelize.CoordinatesToCellName(len(data.Headers), row)
		if err := f.SetCellValue(e.sheetName, titleCell, data.Title); err != nil {
			return nil, fmt.Errorf("write title: %w", err)
		}
		if len(data.Headers) > 1 {
			if err := f.MergeCell(e.sheetName, titleCell, lastCell); err != nil {
				return nil, fmt.Errorf("merge title: %w", err)
			}
		}
		row++
	}

	for i, header := range data.Headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		if err := f.SetCellValue(e.sheetName, cell, header); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
		col, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(e.sheetName, col, col, float64(maxInt(len(header)+4, 12)))
	}
	first, _ := excelize.CoordinatesToCellName(1, row)
	last, _ := excelize.CoordinatesToCellName(len(data.Headers), row)
	if err := f.SetCellStyle(e.sheetName, first, last, headerStyle); err != nil {
		return nil, fmt.Errorf("style header: %w", err)
	}

	for _, values := range data.Rows {
		row++
		for i, value := range data.record(values) {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			if err := f.SetCellValue(e.sheetName, cell, value); err != nil {
				return nil, fmt.Errorf("write row: %w", err)
			}
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("render xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
