package report

import "github.com/noah-isme/caderneta-api/internal/models"

// SummaryRow is one line of the final-average table handed to the school
// office: roll number, name, final average and absences.
type SummaryRow struct {
	Number     int
	Name       string
	Average    float64
	HasAverage bool
	Absences   int
}

// Summarize computes the final averages and absence counts for every student
// in roll-number order. Absences only count periods with recorded attendance.
func Summarize(notebook *models.Notebook, weights models.WeightConfig) []SummaryRow {
	if notebook == nil {
		return nil
	}
	view := newNotebookView(notebook)
	averages := ComputeAverages(view.students, view.works, weights)

	rows := make([]SummaryRow, 0, len(averages))
	for _, a := range averages {
		value, ok := a.Final()
		rows = append(rows, SummaryRow{
			Number:     a.Student.Number,
			Name:       a.Student.Name,
			Average:    value,
			HasAverage: ok,
			Absences:   countAbsences(view.lessons, a.Student.ID),
		})
	}
	return rows
}

func countAbsences(lessons []models.Lesson, studentID string) int {
	absences := 0
	for _, lesson := range lessons {
		for slot := 0; slot < lessonPeriods(lesson); slot++ {
			if mark, ok := attendanceMark(lesson, slot, studentID); ok && mark == markAbsent {
				absences++
			}
		}
	}
	return absences
}
