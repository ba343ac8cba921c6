package report

import (
	"strings"

	"github.com/noah-isme/caderneta-api/internal/models"
)

func buildObservationsSheet(s *sheet, lessons []models.Lesson) {
	s.text(0, 0, "Date")
	s.text(1, 0, "Observation")
	s.width(0, dateColumnWidth)
	s.width(1, observationColumnWidth)

	row := 1
	for _, lesson := range lessons {
		if strings.TrimSpace(lesson.Observations) == "" {
			continue
		}
		s.text(0, row, lesson.Date.Format(dateLayout))
		s.text(1, row, lesson.Observations)
		row++
	}

	s.styleHeader(0)
	s.styleBody(1)
}
