package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const (
	xlsxSheetName = "Médias Finais"
	// characters per unit of relative Column.Width
	xlsxWidthUnit = 9.5
)

// XLSXExporter renders datasets into a single-sheet workbook with a bold
// header row and centered cells.
type XLSXExporter struct{}

// NewXLSXExporter constructs an xlsx exporter.
func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

func (e *XLSXExporter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (e *XLSXExporter) Extension() string { return "xlsx" }

// Render writes headers on row 1 and one row per record below. Values are
// stored as text. The title is not part of the output.
func (e *XLSXExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Columns) == 0 {
		return nil, errNoColumns
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), xlsxSheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	header, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}
	body, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("create body style: %w", err)
	}

	for i, col := range data.Columns {
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		width := col.Width
		if width <= 0 {
			width = 1
		}
		if err := f.SetColWidth(xlsxSheetName, name, name, width*xlsxWidthUnit); err != nil {
			return nil, fmt.Errorf("set column width: %w", err)
		}
		if err := writeXLSXCell(f, i, 0, col.Header, header); err != nil {
			return nil, err
		}
	}
	for r, row := range data.Rows {
		for i := range data.Columns {
			if err := writeXLSXCell(f, i, r+1, cell(row, i), body); err != nil {
				return nil, err
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func writeXLSXCell(f *excelize.File, col, row int, value string, style int) error {
	ref, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return err
	}
	if err := f.SetCellStr(xlsxSheetName, ref, value); err != nil {
		return fmt.Errorf("write cell %s: %w", ref, err)
	}
	if err := f.SetCellStyle(xlsxSheetName, ref, ref, style); err != nil {
		return fmt.Errorf("style cell %s: %w", ref, err)
	}
	return nil
}
