package report

import (
	"math"

	"github.com/noah-isme/caderneta-api/internal/models"
)

// weightScale is the sum the configured weights are expected to reach. It is
// a caller contract and is not checked here.
const weightScale = 10

// roundHalf rounds to the nearest 0.5, halves going up.
func roundHalf(v float64) float64 {
	return math.Floor(v*2+0.5) / 2
}

// TypeAverage accumulates one student's grades for one configured work type.
type TypeAverage struct {
	Type   models.WorkType
	Weight int
	Sum    float64
	Count  int
}

// Average returns the rounded mean of the grades found. ok is false when the
// student has no grade of this type.
func (a TypeAverage) Average() (value float64, ok bool) {
	if a.Count == 0 {
		return 0, false
	}
	return roundHalf(a.Sum / float64(a.Count)), true
}

// StudentAverages groups the per-type accumulators of one student in
// configuration order.
type StudentAverages struct {
	Student models.Student
	Types   []TypeAverage
}

// Final returns the rounded weighted average. It is undefined, and ok is
// false, when no type is configured or any configured type has no grade.
func (s StudentAverages) Final() (value float64, ok bool) {
	if len(s.Types) == 0 {
		return 0, false
	}
	var numerator float64
	for _, t := range s.Types {
		if t.Count == 0 {
			return 0, false
		}
		numerator += t.Sum * float64(t.Weight) / float64(t.Count)
	}
	return roundHalf(numerator / weightScale), true
}

// ComputeAverages accumulates grades per student and configured type. Only
// the first grade a work holds for a student is counted, and the denominator
// is the number of grades found rather than the number of works.
func ComputeAverages(students []models.Student, works []models.Work, weights models.WeightConfig) []StudentAverages {
	active := weights.Active()
	result := make([]StudentAverages, 0, len(students))
	for _, student := range students {
		types := make([]TypeAverage, 0, len(active))
		for _, w := range active {
			acc := TypeAverage{Type: w.Type, Weight: w.Weight}
			for _, work := range works {
				if work.Type != w.Type {
					continue
				}
				if value, ok := work.GradeFor(student.ID); ok {
					acc.Sum += value
					acc.Count++
				}
			}
			types = append(types, acc)
		}
		result = append(result, StudentAverages{Student: student, Types: types})
	}
	return result
}
