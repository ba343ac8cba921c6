package service

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/caderneta-api/internal/models"
	"github.com/noah-isme/caderneta-api/internal/report"
	appErrors "github.com/noah-isme/caderneta-api/pkg/errors"
	"github.com/noah-isme/caderneta-api/pkg/export"
)

const (
	notebookNotFoundMessage = "Caderneta não encontrada!"
	weightTotal             = 10
)

// Supported summary formats.
const (
	SummaryFormatCSV  = "csv"
	SummaryFormatPDF  = "pdf"
	SummaryFormatXLSX = "xlsx"
)

type notebookRepository interface {
	Load(ctx context.Context, id string) (*models.Notebook, error)
	MarkFinalized(ctx context.Context, id string, endDate time.Time) error
}

type reportCache interface {
	Key(notebookID, fingerprint string) string
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error
	Invalidate(ctx context.Context, notebookID string) error
}

type weightPresets interface {
	Lookup(name string) (models.WeightConfig, bool)
}

// FinalizeRequest selects the weights used for the overall average, either
// inline or by preset name. Inline weights win when both are given.
type FinalizeRequest struct {
	Weights models.WeightConfig `json:"weights" validate:"omitempty,dive"`
	Preset  string              `json:"preset" validate:"omitempty,max=64"`
}

// NotebookServiceConfig tunes finalization.
type NotebookServiceConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
	Filename     string
	Timeout      time.Duration
}

// Document is a rendered file ready to be sent as an attachment.
type Document struct {
	Filename    string
	ContentType string
	Content     []byte
	Cached      bool
}

// NotebookService finalizes notebooks into workbooks and final-average summaries.
type NotebookService struct {
	repo      notebookRepository
	cache     reportCache
	presets   weightPresets
	exporters map[string]export.Exporter
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       NotebookServiceConfig
	now       func() time.Time
}

// NewNotebookService constructs a NotebookService. cache and metrics may be nil.
func NewNotebookService(repo notebookRepository, cache reportCache, presets weightPresets, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg NotebookServiceConfig) *NotebookService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.Filename == "" {
		cfg.Filename = "caderneta.xlsx"
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 24 * time.Hour
	}
	return &NotebookService{
		repo:    repo,
		cache:   cache,
		presets: presets,
		exporters: map[string]export.Exporter{
			SummaryFormatCSV:  export.NewCSVExporter(),
			SummaryFormatPDF:  export.NewPDFExporter(),
			SummaryFormatXLSX: export.NewXLSXExporter(),
		},
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Finalize renders the notebook workbook and closes the notebook. Closed
// notebooks can be downloaded again; their renderings are served from cache
// when enabled.
func (s *NotebookService) Finalize(ctx context.Context, claims *models.JWTClaims, notebookID string, req FinalizeRequest) (*Document, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	weights, err := s.resolveWeights(req)
	if err != nil {
		return nil, err
	}
	notebook, err := s.loadOwned(ctx, claims, notebookID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	logger := s.logger.With(zap.String("notebook_id", notebook.ID))
	key := ""
	if s.cacheEnabled() {
		key = s.cache.Key(notebook.ID, Fingerprint(weights))
	}

	if key != "" && notebook.Finalized() {
		payload, err := s.cache.Get(ctx, key)
		switch {
		case err == nil:
			s.metrics.RecordCacheOperation(true)
			s.metrics.ObserveReport(ReportOutcomeCached, len(payload), time.Since(start))
			return s.workbook(payload, true), nil
		case errors.Is(err, appErrors.ErrCacheMiss):
			s.metrics.RecordCacheOperation(false)
		default:
			s.metrics.RecordCacheOperation(false)
			logger.Warn("report cache lookup failed", zap.Error(err))
		}
	}

	payload, err := report.Generate(notebook, weights)
	if err != nil {
		s.metrics.ObserveReport(ReportOutcomeFailed, 0, time.Since(start))
		logger.Error("notebook report generation failed", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrReportGeneration.Code, appErrors.ErrReportGeneration.Status, appErrors.ErrReportGeneration.Message)
	}
	s.metrics.ObserveReport(ReportOutcomeGenerated, len(payload), time.Since(start))

	if !notebook.Finalized() {
		if err := s.repo.MarkFinalized(ctx, notebook.ID, s.now()); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, notebookNotFoundMessage)
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to finalize notebook")
		}
		s.metrics.IncFinalized()
		logger.Info("notebook finalized", zap.String("teacher_id", notebook.TeacherID))
		if key != "" {
			if err := s.cache.Invalidate(ctx, notebook.ID); err != nil {
				logger.Warn("report cache invalidation failed", zap.Error(err))
			}
		}
	}

	if key != "" {
		writeStart := time.Now()
		if err := s.cache.Set(ctx, key, payload, s.cfg.CacheTTL); err != nil {
			logger.Warn("report cache write failed", zap.Error(err))
		} else {
			s.metrics.ObserveCacheWrite(time.Since(writeStart))
		}
	}

	return s.workbook(payload, false), nil
}

// Summary renders the final-average table of a notebook as CSV or PDF. The
// notebook status is left untouched.
func (s *NotebookService) Summary(ctx context.Context, claims *models.JWTClaims, notebookID string, req FinalizeRequest, format string) (*Document, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = SummaryFormatCSV
	}
	exporter, ok := s.exporters[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported summary format %q", format))
	}

	weights, err := s.resolveWeights(req)
	if err != nil {
		return nil, err
	}
	notebook, err := s.loadOwned(ctx, claims, notebookID)
	if err != nil {
		return nil, err
	}

	content, err := exporter.Render(SummaryDataset(notebook, report.Summarize(notebook, weights)))
	if err != nil {
		s.logger.Error("notebook summary rendering failed", zap.String("notebook_id", notebook.ID), zap.String("format", format), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrReportGeneration.Code, appErrors.ErrReportGeneration.Status, "failed to render notebook summary")
	}

	return &Document{
		Filename:    strings.TrimSuffix(s.cfg.Filename, ".xlsx") + "-medias." + exporter.Extension(),
		ContentType: exporter.ContentType(),
		Content:     content,
	}, nil
}

// SummaryDataset lays out summary rows as an exportable table.
func SummaryDataset(notebook *models.Notebook, rows []report.SummaryRow) export.Dataset {
	data := export.Dataset{
		Columns: []export.Column{
			{Header: "Number", Width: 1, Align: "C"},
			{Header: "Student", Width: 5, Align: "L"},
			{Header: "Average", Width: 1.5, Align: "C"},
			{Header: "Absences", Width: 1.5, Align: "C"},
		},
		Rows: make([][]string, 0, len(rows)),
	}
	if notebook != nil {
		data.Title = strings.TrimSpace(fmt.Sprintf("%s %s - %sº Bimestre", notebook.Subject, notebook.Class, notebook.Bimester))
	}
	for _, row := range rows {
		average := report.NoDataMarker
		if row.HasAverage {
			average = strconv.FormatFloat(row.Average, 'f', -1, 64)
		}
		data.Rows = append(data.Rows, []string{
			strconv.Itoa(row.Number),
			row.Name,
			average,
			strconv.Itoa(row.Absences),
		})
	}
	return data
}

// Fingerprint identifies a weight configuration for cache keys. Only
// positive weights take part since the others do not affect the workbook.
func Fingerprint(weights models.WeightConfig) string {
	h := sha256.New()
	for _, w := range weights.Active() {
		fmt.Fprintf(h, "%s=%d;", w.Type, w.Weight)
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

func (s *NotebookService) resolveWeights(req FinalizeRequest) (models.WeightConfig, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidWeights.Code, appErrors.ErrInvalidWeights.Status, "invalid finalize payload")
	}

	weights := req.Weights
	if len(weights) == 0 {
		if s.presets == nil {
			return nil, appErrors.Clone(appErrors.ErrInvalidWeights, "no weights given and no presets configured")
		}
		preset, ok := s.presets.Lookup(req.Preset)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrInvalidWeights, fmt.Sprintf("unknown weight preset %q", req.Preset))
		}
		weights = preset
	}

	if err := ValidateWeights(weights); err != nil {
		return nil, err
	}
	return weights, nil
}

// ValidateWeights checks that every type is known, appears once, and that
// the positive weights add up to 10.
func ValidateWeights(weights models.WeightConfig) error {
	seen := make(map[models.WorkType]struct{}, len(weights))
	for _, w := range weights {
		if !w.Type.Valid() {
			return appErrors.Clone(appErrors.ErrInvalidWeights, fmt.Sprintf("unknown work type %q", w.Type))
		}
		if _, dup := seen[w.Type]; dup {
			return appErrors.Clone(appErrors.ErrInvalidWeights, fmt.Sprintf("work type %s configured twice", w.Type))
		}
		seen[w.Type] = struct{}{}
	}
	if total := weights.Total(); total != weightTotal {
		return appErrors.Clone(appErrors.ErrInvalidWeights, fmt.Sprintf("weights must add up to %d, got %d", weightTotal, total))
	}
	return nil
}

func (s *NotebookService) loadOwned(ctx context.Context, claims *models.JWTClaims, notebookID string) (*models.Notebook, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if _, err := uuid.Parse(notebookID); err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, notebookNotFoundMessage)
	}

	notebook, err := s.repo.Load(ctx, notebookID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, notebookNotFoundMessage)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, appErrors.Wrap(err, appErrors.ErrTimeout.Code, appErrors.ErrTimeout.Status, appErrors.ErrTimeout.Message)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load notebook")
	}

	if claims.Role != models.RoleAdmin && notebook.TeacherID != claims.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "notebook belongs to another teacher")
	}
	return notebook, nil
}

func (s *NotebookService) workbook(payload []byte, cached bool) *Document {
	return &Document{
		Filename:    s.cfg.Filename,
		ContentType: "application/octet-stream",
		Content:     payload,
		Cached:      cached,
	}
}

func (s *NotebookService) cacheEnabled() bool {
	return s.cfg.CacheEnabled && s.cache != nil
}

func (s *NotebookService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.Timeout)
}
