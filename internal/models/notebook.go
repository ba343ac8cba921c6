package models

import "time"

// NotebookStatus marks whether a notebook is still open for edits.
type NotebookStatus string

const (
	NotebookStatusOn  NotebookStatus = "ON"
	NotebookStatusOff NotebookStatus = "OFF"
)

// Notebook groups the roster, lessons and works of one class, subject and
// bimester owned by a teacher.
type Notebook struct {
	ID         string         `db:"id" json:"id"`
	TeacherID  string         `db:"teacher_id" json:"teacher_id"`
	Class      string         `db:"classe" json:"classe"`
	Subject    string         `db:"subject" json:"subject"`
	Bimester   string         `db:"bimester" json:"bimester"`
	Status     NotebookStatus `db:"status" json:"status"`
	CreateDate time.Time      `db:"create_date" json:"create_date"`
	EndDate    *time.Time     `db:"end_date" json:"end_date,omitempty"`
	Students   []Student      `db:"-" json:"students"`
	Lessons    []Lesson       `db:"-" json:"lessons"`
	Works      []Work         `db:"-" json:"works"`
}

// Finalized reports whether the notebook has been closed.
func (n *Notebook) Finalized() bool {
	return n != nil && n.Status == NotebookStatusOff
}
