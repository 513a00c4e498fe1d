package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ReadTable loads an uploaded CSV or XLSX file into raw rows. Fully blank
// rows are skipped and every cell is trimmed.
func ReadTable(r io.Reader, format Format) ([][]string, error) {
	var (
		rows [][]string
		err  error
	)
	switch format {
	case FormatXLSX:
		rows, err = readXLSX(r)
	case FormatCSV:
		rows, err = readCSV(r)
	default:
		return nil, fmt.Errorf("unsupported import format %q", format)
	}
	if err != nil {
		return nil, err
	}

	cleaned := make([][]string, 0, len(rows))
	for _, row := range rows {
		blank := true
		for i := range row {
			row[i] = strings.TrimSpace(row[i])
			if row[i] != "" {
				blank = false
			}
		}
		if !blank {
			cleaned = append(cleaned, row)
		}
	}
	return cleaned, nil
}

// FormatFromFilename guesses the import format from an upload's name.
func FormatFromFilename(name string) Format {
	if strings.HasSuffix(strings.ToLower(name), ".xlsx") {
		return FormatXLSX
	}
	return FormatCSV
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return rows, nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("read sheet: %w", err)
	}
	return rows, nil
}
