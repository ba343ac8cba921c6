package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Column widths in character units.
const (
	numberColumnWidth      = 9
	nameColumnWidth        = 49.5
	lessonColumnWidth      = 15
	workTypeColumnWidth    = 16.5
	averageColumnWidth     = 7.5
	dateColumnWidth        = 15
	observationColumnWidth = 150
	workColumnWidth        = 33
)

// styleSet holds the two presets every sheet uses. IDs are registered once per
// workbook and never changed afterwards.
type styleSet struct {
	header int
	body   int
}

func newStyleSet(f *excelize.File) (styleSet, error) {
	header, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return styleSet{}, fmt.Errorf("create header style: %w", err)
	}
	body, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return styleSet{}, fmt.Errorf("create body style: %w", err)
	}
	return styleSet{header: header, body: body}, nil
}

// sheet writes into one worksheet using 0-based column/row coordinates.
// The first failure is kept in err and turns later calls into no-ops, so
// builders can lay out a grid without checking every cell.
type sheet struct {
	file   *excelize.File
	name   string
	styles styleSet
	maxCol int
	maxRow int
	err    error
}

func newSheet(f *excelize.File, name string, styles styleSet) *sheet {
	return &sheet{file: f, name: name, styles: styles, maxCol: -1, maxRow: -1}
}

func (s *sheet) axis(col, row int) string {
	if s.err != nil {
		return ""
	}
	cell, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		s.err = fmt.Errorf("%s: cell (%d,%d): %w", s.name, col, row, err)
		return ""
	}
	return cell
}

func (s *sheet) touch(col, row int) {
	if col > s.maxCol {
		s.maxCol = col
	}
	if row > s.maxRow {
		s.maxRow = row
	}
}

func (s *sheet) text(col, row int, value string) {
	cell := s.axis(col, row)
	if s.err != nil {
		return
	}
	if err := s.file.SetCellStr(s.name, cell, value); err != nil {
		s.err = fmt.Errorf("%s: set %s: %w", s.name, cell, err)
		return
	}
	s.touch(col, row)
}

func (s *sheet) decimal(col, row int, value float64) {
	cell := s.axis(col, row)
	if s.err != nil {
		return
	}
	if err := s.file.SetCellFloat(s.name, cell, value, -1, 64); err != nil {
		s.err = fmt.Errorf("%s: set %s: %w", s.name, cell, err)
		return
	}
	s.touch(col, row)
}

// merge joins columns fromCol..toCol of a single row.
func (s *sheet) merge(row, fromCol, toCol int) {
	from := s.axis(fromCol, row)
	to := s.axis(toCol, row)
	if s.err != nil {
		return
	}
	if err := s.file.MergeCell(s.name, from, to); err != nil {
		s.err = fmt.Errorf("%s: merge %s:%s: %w", s.name, from, to, err)
		return
	}
	s.touch(toCol, row)
}

func (s *sheet) width(col int, width float64) {
	if s.err != nil {
		return
	}
	name, err := excelize.ColumnNumberToName(col + 1)
	if err != nil {
		s.err = fmt.Errorf("%s: column %d: %w", s.name, col, err)
		return
	}
	if err := s.file.SetColWidth(s.name, name, name, width); err != nil {
		s.err = fmt.Errorf("%s: width %s: %w", s.name, name, err)
	}
}

// styleRows applies a preset to rows fromRow..toRow across every used column.
func (s *sheet) styleRows(fromRow, toRow, style int) {
	if s.maxCol < 0 || toRow < fromRow {
		return
	}
	from := s.axis(0, fromRow)
	to := s.axis(s.maxCol, toRow)
	if s.err != nil {
		return
	}
	if err := s.file.SetCellStyle(s.name, from, to, style); err != nil {
		s.err = fmt.Errorf("%s: style %s:%s: %w", s.name, from, to, err)
	}
}

func (s *sheet) styleHeader(row int) {
	s.styleRows(row, row, s.styles.header)
}

// styleBody centers every used cell from fromRow down to the last written row.
func (s *sheet) styleBody(fromRow int) {
	s.styleRows(fromRow, s.maxRow, s.styles.body)
}
