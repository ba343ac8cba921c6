package report

import (
	"strconv"

	"github.com/noah-isme/caderneta-api/internal/models"
)

func buildAverageSheet(s *sheet, students []models.Student, works []models.Work, active []models.WorkTypeWeight) {
	s.text(0, 0, "Number")
	s.text(1, 0, "Student")
	s.width(0, numberColumnWidth)
	s.width(1, nameColumnWidth)

	col := 2
	for _, w := range active {
		s.width(col, workTypeColumnWidth)
		s.text(col, 0, w.Type.Label())
		col++
	}
	finalCol := col
	s.text(finalCol, 0, "AVERAGE")
	s.width(finalCol, averageColumnWidth)

	for i, averages := range ComputeAverages(students, works, active) {
		row := i + 1
		s.text(0, row, strconv.Itoa(averages.Student.Number))
		s.text(1, row, averages.Student.Name)
		for j, t := range averages.Types {
			s.average(2+j, row, t.Average)
		}
		s.average(finalCol, row, averages.Final)
	}

	s.styleHeader(0)
	s.styleBody(1)
}

// average writes a computed average, or NoDataMarker when it is undefined.
func (s *sheet) average(col, row int, compute func() (float64, bool)) {
	if value, ok := compute(); ok {
		s.decimal(col, row, value)
		return
	}
	s.text(col, row, NoDataMarker)
}
