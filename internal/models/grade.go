package models

import "time"

// Work is a gradable assessment instrument of a given type.
type Work struct {
	ID           string    `db:"id" json:"id"`
	NotebookID   string    `db:"notebook_id" json:"notebook_id"`
	Title        string    `db:"title" json:"title"`
	Details      string    `db:"details" json:"details,omitempty"`
	Type         WorkType  `db:"type" json:"type"`
	DeliveryDate time.Time `db:"delivery_date" json:"delivery_date"`
	Grades       []Grade   `db:"-" json:"grades,omitempty"`
}

// Grade is one student's score on one work.
type Grade struct {
	ID        string  `db:"id" json:"id"`
	WorkID    string  `db:"work_id" json:"work_id"`
	StudentID string  `db:"student_id" json:"student_id"`
	Value     float64 `db:"grade" json:"grade"`
}

// GradeFor returns the first grade recorded for the student on the work.
// Duplicate grades are not merged; the earliest one in the slice wins.
func (w Work) GradeFor(studentID string) (float64, bool) {
	for _, g := range w.Grades {
		if g.StudentID == studentID {
			return g.Value, true
		}
	}
	return 0, false
}
