package writer

import (
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// numericColumns are written as numbers instead of text.
var numericColumns = map[string]bool{
	"sales_wan":      true,
	"occurred_at_ms": true,
}

// encodeWorkbook renders every table as a sheet of one xlsx workbook.
func encodeWorkbook(tables []table) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	for i, t := range tables {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), t.sheet); err != nil {
				return nil, fmt.Errorf("failed to name sheet %s: %w", t.sheet, err)
			}
		} else if _, err := f.NewSheet(t.sheet); err != nil {
			return nil, fmt.Errorf("failed to add sheet %s: %w", t.sheet, err)
		}

		header := make([]any, len(t.columns))
		for j, c := range t.columns {
			header[j] = c
		}

		if err := f.SetSheetRow(t.sheet, "A1", &header); err != nil {
			return nil, fmt.Errorf("failed to write %s header: %w", t.sheet, err)
		}

		for r, row := range t.rows {
			cells := make([]any, len(row))
			for j, v := range row {
				cells[j] = cellValue(t.columns[j], v)
			}

			cell, err := excelize.CoordinatesToCellName(1, r+2)
			if err != nil {
				return nil, err
			}

			if err := f.SetSheetRow(t.sheet, cell, &cells); err != nil {
				return nil, fmt.Errorf("failed to write %s row %d: %w", t.sheet, r+1, err)
			}
		}
	}

	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to encode workbook: %w", err)
	}

	return buf.Bytes(), nil
}

func cellValue(column, value string) any {
	if !numericColumns[column] || value == "" {
		return value
	}

	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		return n
	}

	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}

	return value
}
