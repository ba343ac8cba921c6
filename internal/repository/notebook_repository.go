package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/caderneta-api/internal/models"
)

// NotebookRepository loads notebooks together with their roster, lessons and works.
type NotebookRepository struct {
	db *sqlx.DB
}

// NewNotebookRepository constructs a NotebookRepository.
func NewNotebookRepository(db *sqlx.DB) *NotebookRepository {
	return &NotebookRepository{db: db}
}

type presenceRow struct {
	AttendanceID string `db:"attendance_id"`
	StudentID    string `db:"student_id"`
}

// FindByID returns the notebook header without children.
func (r *NotebookRepository) FindByID(ctx context.Context, id string) (*models.Notebook, error) {
	const query = `SELECT id, teacher_id, classe, subject, bimester, status, create_date, end_date FROM notebooks WHERE id = $1`
	var notebook models.Notebook
	if err := r.db.GetContext(ctx, &notebook, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get notebook %s: %w", id, err)
	}
	return &notebook, nil
}

// Load returns the full notebook aggregate. sql.ErrNoRows is returned
// unwrapped when the notebook does not exist.
func (r *NotebookRepository) Load(ctx context.Context, id string) (*models.Notebook, error) {
	notebook, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if notebook.Students, err = r.listStudents(ctx, id); err != nil {
		return nil, err
	}
	if notebook.Lessons, err = r.listLessons(ctx, id); err != nil {
		return nil, err
	}
	if notebook.Works, err = r.listWorks(ctx, id); err != nil {
		return nil, err
	}
	return notebook, nil
}

func (r *NotebookRepository) listStudents(ctx context.Context, notebookID string) ([]models.Student, error) {
	const query = `SELECT s.id, s.name, ns.number FROM notebooks_students ns JOIN students s ON s.id = ns.student_id WHERE ns.notebook_id = $1 ORDER BY ns.number`
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, notebookID); err != nil {
		return nil, fmt.Errorf("list notebook students: %w", err)
	}
	return students, nil
}

func (r *NotebookRepository) listLessons(ctx context.Context, notebookID string) ([]models.Lesson, error) {
	const query = `SELECT id, notebook_id, date, quantity, COALESCE(observations, '') AS observations FROM lessons WHERE notebook_id = $1 ORDER BY date`
	var lessons []models.Lesson
	if err := r.db.SelectContext(ctx, &lessons, query, notebookID); err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	if len(lessons) == 0 {
		return lessons, nil
	}

	lessonIDs := make([]string, len(lessons))
	for i, l := range lessons {
		lessonIDs[i] = l.ID
	}

	const attendanceQuery = `SELECT id, lesson_id, slot FROM attendances WHERE lesson_id = ANY($1) ORDER BY lesson_id, slot`
	var attendances []models.Attendance
	if err := r.db.SelectContext(ctx, &attendances, attendanceQuery, pq.Array(lessonIDs)); err != nil {
		return nil, fmt.Errorf("list attendances: %w", err)
	}
	if len(attendances) == 0 {
		return lessons, nil
	}

	attendanceIDs := make([]string, len(attendances))
	for i, a := range attendances {
		attendanceIDs[i] = a.ID
	}
	const presenceQuery = `SELECT attendance_id, student_id FROM attendance_students WHERE attendance_id = ANY($1)`
	var presence []presenceRow
	if err := r.db.SelectContext(ctx, &presence, presenceQuery, pq.Array(attendanceIDs)); err != nil {
		return nil, fmt.Errorf("list attendance students: %w", err)
	}

	present := make(map[string][]string, len(attendances))
	for _, p := range presence {
		present[p.AttendanceID] = append(present[p.AttendanceID], p.StudentID)
	}
	byLesson := make(map[string][]models.Attendance, len(lessons))
	for _, a := range attendances {
		a.PresentStudentIDs = present[a.ID]
		byLesson[a.LessonID] = append(byLesson[a.LessonID], a)
	}
	for i := range lessons {
		lessons[i].Attendances = byLesson[lessons[i].ID]
	}
	return lessons, nil
}

func (r *NotebookRepository) listWorks(ctx context.Context, notebookID string) ([]models.Work, error) {
	const query = `SELECT id, notebook_id, title, COALESCE(details, '') AS details, type, delivery_date FROM works WHERE notebook_id = $1 ORDER BY delivery_date`
	var works []models.Work
	if err := r.db.SelectContext(ctx, &works, query, notebookID); err != nil {
		return nil, fmt.Errorf("list works: %w", err)
	}
	if len(works) == 0 {
		return works, nil
	}

	workIDs := make([]string, len(works))
	for i, w := range works {
		workIDs[i] = w.ID
	}
	// insertion order decides which duplicate grade counts
	const gradeQuery = `SELECT id, work_id, student_id, grade FROM grades WHERE work_id = ANY($1) ORDER BY created_at, id`
	var grades []models.Grade
	if err := r.db.SelectContext(ctx, &grades, gradeQuery, pq.Array(workIDs)); err != nil {
		return nil, fmt.Errorf("list grades: %w", err)
	}

	byWork := make(map[string][]models.Grade, len(works))
	for _, g := range grades {
		byWork[g.WorkID] = append(byWork[g.WorkID], g)
	}
	for i := range works {
		works[i].Grades = byWork[works[i].ID]
	}
	return works, nil
}

// MarkFinalized closes the notebook. sql.ErrNoRows is returned when no row matched.
func (r *NotebookRepository) MarkFinalized(ctx context.Context, id string, endDate time.Time) error {
	const query = `UPDATE notebooks SET status = $1, end_date = $2 WHERE id = $3`
	res, err := r.db.ExecContext(ctx, query, models.NotebookStatusOff, endDate, id)
	if err != nil {
		return fmt.Errorf("finalize notebook %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finalize notebook %s: %w", id, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
