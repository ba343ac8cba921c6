// Package report turns a notebook aggregate into the finalized xlsx workbook:
// attendance grid, weighted averages, lesson observations and the assessment
// matrix, in that sheet order.
package report

import (
	"errors"
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/noah-isme/caderneta-api/internal/models"
)

// Sheet names in output order.
const (
	SheetAttendance   = "Frequências"
	SheetAverages     = "Médias"
	SheetObservations = "Observações"
	SheetAssessment   = "Ferramentas De Avaliação"
)

// NoDataMarker is written wherever an average is undefined because the
// student has no grade to average.
const NoDataMarker = "-"

const dateLayout = "02/01/2006"

// ErrGeneration wraps every failure raised while composing or serializing
// the workbook.
var ErrGeneration = errors.New("report generation failed")

// SheetNames returns the sheet names in the order they are written.
func SheetNames() []string {
	return []string{SheetAttendance, SheetAverages, SheetObservations, SheetAssessment}
}

// notebookView is a sorted snapshot of a notebook's collections. The caller's
// slices are never reordered.
type notebookView struct {
	students []models.Student
	lessons  []models.Lesson
	works    []models.Work
}

func newNotebookView(notebook *models.Notebook) notebookView {
	students := append([]models.Student(nil), notebook.Students...)
	sort.SliceStable(students, func(i, j int) bool { return students[i].Number < students[j].Number })

	lessons := append([]models.Lesson(nil), notebook.Lessons...)
	sort.SliceStable(lessons, func(i, j int) bool { return lessons[i].Date.Before(lessons[j].Date) })

	works := append([]models.Work(nil), notebook.Works...)
	sort.SliceStable(works, func(i, j int) bool { return works[i].DeliveryDate.Before(works[j].DeliveryDate) })

	return notebookView{students: students, lessons: lessons, works: works}
}

// Generate builds the four-sheet workbook for the notebook and returns its
// serialized bytes.
func Generate(notebook *models.Notebook, weights models.WeightConfig) ([]byte, error) {
	if notebook == nil {
		return nil, fmt.Errorf("%w: nil notebook", ErrGeneration)
	}
	view := newNotebookView(notebook)
	active := weights.Active()

	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	styles, err := newStyleSet(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	builders := []struct {
		name  string
		build func(s *sheet)
	}{
		{SheetAttendance, func(s *sheet) { buildAttendanceSheet(s, view.students, view.lessons) }},
		{SheetAverages, func(s *sheet) { buildAverageSheet(s, view.students, view.works, active) }},
		{SheetObservations, func(s *sheet) { buildObservationsSheet(s, view.lessons) }},
		{SheetAssessment, func(s *sheet) { buildAssessmentSheet(s, view.students, view.works, active) }},
	}

	for i, b := range builders {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), b.name); err != nil {
				return nil, fmt.Errorf("%w: rename sheet %s: %v", ErrGeneration, b.name, err)
			}
		} else if _, err := f.NewSheet(b.name); err != nil {
			return nil, fmt.Errorf("%w: create sheet %s: %v", ErrGeneration, b.name, err)
		}
		s := newSheet(f, b.name, styles)
		b.build(s)
		if s.err != nil {
			return nil, fmt.Errorf("%w: %v", ErrGeneration, s.err)
		}
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: write workbook: %v", ErrGeneration, err)
	}
	return buf.Bytes(), nil
}
