package report

import (
	"strconv"

	"github.com/noah-isme/caderneta-api/internal/models"
)

// groupWorks splits works by configured type, keeping their sorted order.
func groupWorks(works []models.Work, active []models.WorkTypeWeight) [][]models.Work {
	groups := make([][]models.Work, len(active))
	for i, w := range active {
		for _, work := range works {
			if work.Type == w.Type {
				groups[i] = append(groups[i], work)
			}
		}
	}
	return groups
}

// groupSpan is the number of columns a type group occupies. A type without
// works keeps a single empty column under its label.
func groupSpan(group []models.Work) int {
	if len(group) == 0 {
		return 1
	}
	return len(group)
}

func buildAssessmentSheet(s *sheet, students []models.Student, works []models.Work, active []models.WorkTypeWeight) {
	s.text(0, 1, "Number")
	s.text(1, 1, "Student")
	s.width(0, numberColumnWidth)
	s.width(1, nameColumnWidth)

	groups := groupWorks(works, active)

	col := 2
	for i, w := range active {
		span := groupSpan(groups[i])
		s.text(col, 0, w.Type.Label())
		if span > 1 {
			s.merge(0, col, col+span-1)
		}
		for j := 0; j < span; j++ {
			s.width(col+j, workColumnWidth)
		}
		for j, work := range groups[i] {
			s.text(col+j, 1, work.Title)
		}
		col += span
	}

	for i, student := range students {
		row := i + 2
		s.text(0, row, strconv.Itoa(student.Number))
		s.text(1, row, student.Name)

		// one column per work whether or not it was graded, so every row
		// lines up with the title row
		col := 2
		for _, group := range groups {
			for _, work := range group {
				if value, ok := work.GradeFor(student.ID); ok {
					s.decimal(col, row, value)
				}
				col++
			}
			if len(group) == 0 {
				col++
			}
		}
	}

	s.styleHeader(0)
	s.styleHeader(1)
	s.styleBody(2)
}
