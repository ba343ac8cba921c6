package report

import (
	"strconv"

	"github.com/noah-isme/caderneta-api/internal/models"
)

const (
	markPresent = "C"
	markAbsent  = "F"
)

// lessonPeriods is the number of grid columns a lesson spans: two for a
// double lesson, one otherwise.
func lessonPeriods(lesson models.Lesson) int {
	if lesson.Quantity > 1 {
		return 2
	}
	return 1
}

// attendanceMark returns the mark for one period of a lesson. Periods without
// recorded attendance yield ok == false and must be left blank.
func attendanceMark(lesson models.Lesson, slot int, studentID string) (string, bool) {
	attendance, ok := lesson.AttendanceAt(slot)
	if !ok {
		return "", false
	}
	if attendance.IsPresent(studentID) {
		return markPresent, true
	}
	return markAbsent, true
}

func buildAttendanceSheet(s *sheet, students []models.Student, lessons []models.Lesson) {
	s.text(0, 0, "Number")
	s.text(1, 0, "Student")
	s.width(0, numberColumnWidth)
	s.width(1, nameColumnWidth)

	col := 2
	for _, lesson := range lessons {
		label := lesson.Date.Format(dateLayout)
		if lessonPeriods(lesson) == 2 {
			s.width(col, lessonColumnWidth/2)
			s.width(col+1, lessonColumnWidth/2)
			s.text(col, 0, label)
			s.merge(0, col, col+1)
			col += 2
			continue
		}
		s.width(col, lessonColumnWidth)
		s.text(col, 0, label)
		col++
	}

	for i, student := range students {
		row := i + 1
		s.text(0, row, strconv.Itoa(student.Number))
		s.text(1, row, student.Name)

		// the cursor moves by the lesson's period count even when nothing was
		// recorded, otherwise later lessons drift out of their header column
		col := 2
		for _, lesson := range lessons {
			for slot := 0; slot < lessonPeriods(lesson); slot++ {
				if mark, ok := attendanceMark(lesson, slot, student.ID); ok {
					s.text(col, row, mark)
				}
				col++
			}
		}
	}

	s.styleHeader(0)
	s.styleBody(1)
}
