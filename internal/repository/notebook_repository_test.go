package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/caderneta-api/internal/models"
)

func newNotebookMock(t *testing.T) (*NotebookRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewNotebookRepository(sqlx.NewDb(db, "sqlmock")), mock, func() { db.Close() }
}

var notebookColumns = []string{"id", "teacher_id", "classe", "subject", "bimester", "status", "create_date", "end_date"}

func expectNotebookHeader(mock sqlmock.Sqlmock, id string) {
	created := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, teacher_id, classe, subject, bimester, status, create_date, end_date FROM notebooks WHERE id = $1")).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(notebookColumns).AddRow(id, "t1", "7A", "Matemática", "1", "ON", created, nil))
}

func TestNotebookRepositoryLoad(t *testing.T) {
	repo, mock, cleanup := newNotebookMock(t)
	defer cleanup()

	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	expectNotebookHeader(mock, "nb1")
	mock.ExpectQuery(regexp.QuoteMeta("FROM notebooks_students ns JOIN students s ON s.id = ns.student_id WHERE ns.notebook_id = $1")).
		WithArgs("nb1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "number"}).
			AddRow("s1", "Ana", 1).
			AddRow("s2", "Bruno", 2))
	mock.ExpectQuery(regexp.QuoteMeta("FROM lessons WHERE notebook_id = $1")).
		WithArgs("nb1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "notebook_id", "date", "quantity", "observations"}).
			AddRow("l1", "nb1", day, 2, "prova surpresa").
			AddRow("l2", "nb1", day.AddDate(0, 0, 1), 1, ""))
	mock.ExpectQuery(regexp.QuoteMeta("FROM attendances WHERE lesson_id = ANY($1)")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "lesson_id", "slot"}).
			AddRow("a1", "l1", 0).
			AddRow("a2", "l1", 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM attendance_students WHERE attendance_id = ANY($1)")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"attendance_id", "student_id"}).
			AddRow("a1", "s1").
			AddRow("a1", "s2").
			AddRow("a2", "s2"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM works WHERE notebook_id = $1")).
		WithArgs("nb1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "notebook_id", "title", "details", "type", "delivery_date"}).
			AddRow("w1", "nb1", "Prova 1", "", "PROVA", day))
	mock.ExpectQuery(regexp.QuoteMeta("FROM grades WHERE work_id = ANY($1) ORDER BY created_at, id")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "work_id", "student_id", "grade"}).
			AddRow("f9c2", "w1", "s1", 8.5).
			AddRow("0a11", "w1", "s1", 3))

	notebook, err := repo.Load(context.Background(), "nb1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, "7A", notebook.Class)
	assert.Nil(t, notebook.EndDate)
	require.Len(t, notebook.Students, 2)
	assert.Equal(t, 2, notebook.Students[1].Number)

	require.Len(t, notebook.Lessons, 2)
	require.Len(t, notebook.Lessons[0].Attendances, 2)
	assert.ElementsMatch(t, []string{"s1", "s2"}, notebook.Lessons[0].Attendances[0].PresentStudentIDs)
	assert.False(t, notebook.Lessons[0].Attendances[1].IsPresent("s1"))
	assert.Empty(t, notebook.Lessons[1].Attendances)

	require.Len(t, notebook.Works, 1)
	assert.Equal(t, models.WorkTypeProva, notebook.Works[0].Type)
	grade, ok := notebook.Works[0].GradeFor("s1")
	assert.True(t, ok)
	assert.Equal(t, 8.5, grade, "earliest recorded grade wins")
}

func TestNotebookRepositoryLoadEmptyChildren(t *testing.T) {
	repo, mock, cleanup := newNotebookMock(t)
	defer cleanup()

	expectNotebookHeader(mock, "nb2")
	mock.ExpectQuery("FROM notebooks_students").WillReturnRows(sqlmock.NewRows([]string{"id", "name", "number"}))
	mock.ExpectQuery("FROM lessons").WillReturnRows(sqlmock.NewRows([]string{"id", "notebook_id", "date", "quantity", "observations"}))
	mock.ExpectQuery("FROM works").WillReturnRows(sqlmock.NewRows([]string{"id", "notebook_id", "title", "details", "type", "delivery_date"}))

	notebook, err := repo.Load(context.Background(), "nb2")
	require.NoError(t, err)
	assert.Empty(t, notebook.Lessons)
	assert.Empty(t, notebook.Works)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotebookRepositoryLoadNotFound(t *testing.T) {
	repo, mock, cleanup := newNotebookMock(t)
	defer cleanup()

	mock.ExpectQuery("FROM notebooks WHERE id").WithArgs("missing").WillReturnError(sql.ErrNoRows)

	_, err := repo.Load(context.Background(), "missing")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestNotebookRepositoryMarkFinalized(t *testing.T) {
	repo, mock, cleanup := newNotebookMock(t)
	defer cleanup()

	end := time.Date(2024, 4, 30, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE notebooks SET status = $1, end_date = $2 WHERE id = $3")).
		WithArgs("OFF", end, "nb1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE notebooks").
		WithArgs("OFF", end, "gone").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.MarkFinalized(context.Background(), "nb1", end))
	assert.ErrorIs(t, repo.MarkFinalized(context.Background(), "gone", end), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
