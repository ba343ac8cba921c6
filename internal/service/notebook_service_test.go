package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/noah-isme/caderneta-api/internal/models"
	"github.com/noah-isme/caderneta-api/internal/report"
	"github.com/noah-isme/caderneta-api/pkg/config"
	appErrors "github.com/noah-isme/caderneta-api/pkg/errors"
)

const notebookID = "5b0c1f36-8a51-4c43-9a4f-6f0f3c0f7c11"

type notebookRepoStub struct {
	notebook  *models.Notebook
	loadErr   error
	finalized []string
	markErr   error
}

func (r *notebookRepoStub) Load(ctx context.Context, id string) (*models.Notebook, error) {
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	if r.notebook == nil || r.notebook.ID != id {
		return nil, sql.ErrNoRows
	}
	copied := *r.notebook
	return &copied, nil
}

func (r *notebookRepoStub) MarkFinalized(ctx context.Context, id string, endDate time.Time) error {
	if r.markErr != nil {
		return r.markErr
	}
	r.finalized = append(r.finalized, id)
	r.notebook.Status = models.NotebookStatusOff
	r.notebook.EndDate = &endDate
	return nil
}

type reportCacheStub struct {
	entries     map[string][]byte
	getErr      error
	invalidated []string
}

func newReportCacheStub() *reportCacheStub {
	return &reportCacheStub{entries: map[string][]byte{}}
}

func (c *reportCacheStub) Key(notebookID, fingerprint string) string {
	return notebookID + ":" + fingerprint
}

func (c *reportCacheStub) Get(ctx context.Context, key string) ([]byte, error) {
	if c.getErr != nil {
		return nil, c.getErr
	}
	payload, ok := c.entries[key]
	if !ok {
		return nil, appErrors.ErrCacheMiss
	}
	return payload, nil
}

func (c *reportCacheStub) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	c.entries[key] = payload
	return nil
}

func (c *reportCacheStub) Invalidate(ctx context.Context, notebookID string) error {
	c.invalidated = append(c.invalidated, notebookID)
	return nil
}

func sampleNotebook() *models.Notebook {
	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	return &models.Notebook{
		ID:        notebookID,
		TeacherID: "t1",
		Class:     "7A",
		Subject:   "Matemática",
		Bimester:  "1",
		Status:    models.NotebookStatusOn,
		Students: []models.Student{
			{ID: "s2", Name: "Bruno", Number: 2},
			{ID: "s1", Name: "Ana", Number: 1},
		},
		Lessons: []models.Lesson{
			{ID: "l1", Date: day, Quantity: 1, Attendances: []models.Attendance{{PresentStudentIDs: []string{"s1"}}}},
		},
		Works: []models.Work{
			{ID: "w1", Title: "Prova 1", Type: models.WorkTypeProva, DeliveryDate: day, Grades: []models.Grade{
				{StudentID: "s1", Value: 7},
				{StudentID: "s2", Value: 5},
			}},
			{ID: "w2", Title: "Cartaz", Type: models.WorkTypeTrabalho, DeliveryDate: day, Grades: []models.Grade{
				{StudentID: "s1", Value: 8},
			}},
		},
	}
}

func teacherClaims(id string) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, Role: models.RoleTeacher}
}

func newNotebookServiceForTest(repo *notebookRepoStub, cache *reportCacheStub) *NotebookService {
	cfg := NotebookServiceConfig{CacheEnabled: cache != nil, CacheTTL: time.Hour, Filename: "caderneta.xlsx", Timeout: time.Second}
	var rc reportCache
	if cache != nil {
		rc = cache
	}
	return NewNotebookService(repo, rc, config.DefaultWeightPresets(), NewMetricsService(), nil, zap.NewNop(), cfg)
}

func TestNotebookServiceFinalizeGeneratesAndCloses(t *testing.T) {
	repo := &notebookRepoStub{notebook: sampleNotebook()}
	cache := newReportCacheStub()
	svc := newNotebookServiceForTest(repo, cache)

	doc, err := svc.Finalize(context.Background(), teacherClaims("t1"), notebookID, FinalizeRequest{Preset: config.DefaultPreset})
	require.NoError(t, err)
	assert.Equal(t, "caderneta.xlsx", doc.Filename)
	assert.Equal(t, "application/octet-stream", doc.ContentType)
	assert.False(t, doc.Cached)

	f, err := excelize.OpenReader(bytes.NewReader(doc.Content))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, report.SheetNames(), f.GetSheetList())

	assert.Equal(t, []string{notebookID}, repo.finalized)
	assert.NotNil(t, repo.notebook.EndDate)
	assert.Equal(t, []string{notebookID}, cache.invalidated)
	assert.Len(t, cache.entries, 1)
	assert.Equal(t, uint64(1), svc.metrics.Snapshot().ReportsGenerated)
}

func TestNotebookServiceFinalizeServesClosedNotebookFromCache(t *testing.T) {
	repo := &notebookRepoStub{notebook: sampleNotebook()}
	cache := newReportCacheStub()
	svc := newNotebookServiceForTest(repo, cache)
	ctx := context.Background()

	first, err := svc.Finalize(ctx, teacherClaims("t1"), notebookID, FinalizeRequest{})
	require.NoError(t, err)

	second, err := svc.Finalize(ctx, teacherClaims("t1"), notebookID, FinalizeRequest{})
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Content, second.Content)
	assert.Len(t, repo.finalized, 1)
	assert.Equal(t, uint64(1), svc.metrics.Snapshot().CacheHits)
}

func TestNotebookServiceFinalizeDegradesOnCacheFailure(t *testing.T) {
	nb := sampleNotebook()
	nb.Status = models.NotebookStatusOff
	repo := &notebookRepoStub{notebook: nb}
	cache := newReportCacheStub()
	cache.getErr = errors.New("redis down")
	svc := newNotebookServiceForTest(repo, cache)

	doc, err := svc.Finalize(context.Background(), teacherClaims("t1"), notebookID, FinalizeRequest{})
	require.NoError(t, err)
	assert.False(t, doc.Cached)
	assert.NotEmpty(t, doc.Content)
	assert.Empty(t, repo.finalized)
}

func TestNotebookServiceFinalizeWithoutCache(t *testing.T) {
	repo := &notebookRepoStub{notebook: sampleNotebook()}
	svc := newNotebookServiceForTest(repo, nil)

	doc, err := svc.Finalize(context.Background(), teacherClaims("t1"), notebookID, FinalizeRequest{})
	require.NoError(t, err)
	assert.NotEmpty(t, doc.Content)
}

func TestNotebookServiceFinalizeErrors(t *testing.T) {
	cases := []struct {
		name   string
		repo   *notebookRepoStub
		claims *models.JWTClaims
		id     string
		req    FinalizeRequest
		code   string
	}{
		{name: "missing notebook", repo: &notebookRepoStub{}, claims: teacherClaims("t1"), id: notebookID, code: appErrors.ErrNotFound.Code},
		{name: "malformed id", repo: &notebookRepoStub{notebook: sampleNotebook()}, claims: teacherClaims("t1"), id: "42", code: appErrors.ErrNotFound.Code},
		{name: "other teacher", repo: &notebookRepoStub{notebook: sampleNotebook()}, claims: teacherClaims("t2"), id: notebookID, code: appErrors.ErrForbidden.Code},
		{name: "no claims", repo: &notebookRepoStub{notebook: sampleNotebook()}, id: notebookID, code: appErrors.ErrUnauthorized.Code},
		{name: "repository failure", repo: &notebookRepoStub{loadErr: errors.New("conn reset")}, claims: teacherClaims("t1"), id: notebookID, code: appErrors.ErrInternal.Code},
		{name: "repository timeout", repo: &notebookRepoStub{loadErr: fmt.Errorf("list lessons: %w", context.DeadlineExceeded)}, claims: teacherClaims("t1"), id: notebookID, code: appErrors.ErrTimeout.Code},
		{name: "unknown preset", repo: &notebookRepoStub{notebook: sampleNotebook()}, claims: teacherClaims("t1"), id: notebookID, req: FinalizeRequest{Preset: "nope"}, code: appErrors.ErrInvalidWeights.Code},
		{name: "weights not adding to ten", repo: &notebookRepoStub{notebook: sampleNotebook()}, claims: teacherClaims("t1"), id: notebookID,
			req: FinalizeRequest{Weights: models.WeightConfig{{Type: models.WorkTypeProva, Weight: 5}}}, code: appErrors.ErrInvalidWeights.Code},
		{name: "weight out of range", repo: &notebookRepoStub{notebook: sampleNotebook()}, claims: teacherClaims("t1"), id: notebookID,
			req: FinalizeRequest{Weights: models.WeightConfig{{Type: models.WorkTypeProva, Weight: 11}}}, code: appErrors.ErrInvalidWeights.Code},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newNotebookServiceForTest(tc.repo, nil)
			_, err := svc.Finalize(context.Background(), tc.claims, tc.id, tc.req)
			var appErr *appErrors.Error
			require.True(t, errors.As(err, &appErr), "got %v", err)
			assert.Equal(t, tc.code, appErr.Code)
		})
	}
}

func TestNotebookServiceNotFoundMessage(t *testing.T) {
	svc := newNotebookServiceForTest(&notebookRepoStub{}, nil)
	_, err := svc.Finalize(context.Background(), teacherClaims("t1"), notebookID, FinalizeRequest{})
	assert.EqualError(t, err, "Caderneta não encontrada!")
}

func TestNotebookServiceAdminMayFinalizeAnyNotebook(t *testing.T) {
	repo := &notebookRepoStub{notebook: sampleNotebook()}
	svc := newNotebookServiceForTest(repo, nil)

	_, err := svc.Finalize(context.Background(), &models.JWTClaims{UserID: "root", Role: models.RoleAdmin}, notebookID, FinalizeRequest{})
	require.NoError(t, err)
}

func TestValidateWeights(t *testing.T) {
	assert.NoError(t, ValidateWeights(models.WeightConfig{
		{Type: models.WorkTypeProva, Weight: 6},
		{Type: models.WorkTypeTrabalho, Weight: 4},
		{Type: models.WorkTypeSeminario, Weight: 0},
	}))
	assert.Error(t, ValidateWeights(models.WeightConfig{
		{Type: models.WorkTypeProva, Weight: 5},
		{Type: models.WorkTypeProva, Weight: 5},
	}))
	assert.Error(t, ValidateWeights(models.WeightConfig{{Type: "QUIZ", Weight: 10}}))
	assert.Error(t, ValidateWeights(nil))
}

func TestFingerprintIgnoresInactiveWeights(t *testing.T) {
	a := models.WeightConfig{{Type: models.WorkTypeProva, Weight: 6}, {Type: models.WorkTypeTrabalho, Weight: 4}}
	b := append(models.WeightConfig{{Type: models.WorkTypeSeminario, Weight: 0}}, a...)
	c := models.WeightConfig{{Type: models.WorkTypeProva, Weight: 4}, {Type: models.WorkTypeTrabalho, Weight: 6}}

	assert.Equal(t, Fingerprint(a), Fingerprint(b))
	assert.NotEqual(t, Fingerprint(a), Fingerprint(c))
	assert.Len(t, Fingerprint(a), 16)
}

func TestNotebookServiceSummaryCSV(t *testing.T) {
	repo := &notebookRepoStub{notebook: sampleNotebook()}
	svc := newNotebookServiceForTest(repo, nil)

	doc, err := svc.Summary(context.Background(), teacherClaims("t1"), notebookID, FinalizeRequest{}, "CSV")
	require.NoError(t, err)
	assert.Equal(t, "caderneta-medias.csv", doc.Filename)
	assert.Equal(t, "text/csv", doc.ContentType)
	assert.Empty(t, repo.finalized)

	records, err := csv.NewReader(bytes.NewReader(doc.Content)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Number", "Student", "Average", "Absences"},
		{"1", "Ana", "7.5", "0"},
		{"2", "Bruno", report.NoDataMarker, "1"},
	}, records)
}

func TestNotebookServiceSummaryPDF(t *testing.T) {
	svc := newNotebookServiceForTest(&notebookRepoStub{notebook: sampleNotebook()}, nil)

	doc, err := svc.Summary(context.Background(), teacherClaims("t1"), notebookID, FinalizeRequest{}, SummaryFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", doc.ContentType)
	assert.True(t, bytes.HasPrefix(doc.Content, []byte("%PDF-")))
}

func TestNotebookServiceSummaryXLSX(t *testing.T) {
	repo := &notebookRepoStub{notebook: sampleNotebook()}
	svc := newNotebookServiceForTest(repo, nil)

	doc, err := svc.Summary(context.Background(), teacherClaims("t1"), notebookID, FinalizeRequest{}, SummaryFormatXLSX)
	require.NoError(t, err)
	assert.Equal(t, "caderneta-medias.xlsx", doc.Filename)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", doc.ContentType)
	assert.Empty(t, repo.finalized)

	f, err := excelize.OpenReader(bytes.NewReader(doc.Content))
	require.NoError(t, err)
	defer f.Close()

	sheets := f.GetSheetList()
	require.Len(t, sheets, 1)
	rows, err := f.GetRows(sheets[0])
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Number", "Student", "Average", "Absences"},
		{"1", "Ana", "7.5", "0"},
		{"2", "Bruno", report.NoDataMarker, "1"},
	}, rows)
}

func TestNotebookServiceSummaryRejectsFormat(t *testing.T) {
	svc := newNotebookServiceForTest(&notebookRepoStub{notebook: sampleNotebook()}, nil)

	_, err := svc.Summary(context.Background(), teacherClaims("t1"), notebookID, FinalizeRequest{}, "docx")
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}
