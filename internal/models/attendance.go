package models

import "time"

// Lesson is a single class session covering one or two periods.
type Lesson struct {
	ID           string       `db:"id" json:"id"`
	NotebookID   string       `db:"notebook_id" json:"notebook_id"`
	Date         time.Time    `db:"date" json:"date"`
	Quantity     int          `db:"quantity" json:"quantity"`
	Observations string       `db:"observations" json:"observations,omitempty"`
	Attendances  []Attendance `db:"-" json:"attendances,omitempty"`
}

// AttendanceAt returns the attendance recorded for a 0-based period slot.
// Records are matched by Slot, not by their position in Attendances.
func (l Lesson) AttendanceAt(slot int) (Attendance, bool) {
	for _, a := range l.Attendances {
		if a.Slot == slot {
			return a, true
		}
	}
	return Attendance{}, false
}

// Attendance holds the present students for one period slot of a lesson.
// Slot is 0-based; students missing from PresentStudentIDs were absent.
type Attendance struct {
	ID                string   `db:"id" json:"id"`
	LessonID          string   `db:"lesson_id" json:"lesson_id"`
	Slot              int      `db:"slot" json:"slot"`
	PresentStudentIDs []string `db:"-" json:"present_student_ids"`
}

// IsPresent reports whether the student was marked present in the slot.
func (a Attendance) IsPresent(studentID string) bool {
	for _, id := range a.PresentStudentIDs {
		if id == studentID {
			return true
		}
	}
	return false
}
