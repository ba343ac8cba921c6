package handler

import (
	"context"
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/caderneta-api/internal/models"
	"github.com/noah-isme/caderneta-api/internal/service"
	appErrors "github.com/noah-isme/caderneta-api/pkg/errors"
	"github.com/noah-isme/caderneta-api/pkg/response"
)

type notebookService interface {
	Finalize(ctx context.Context, claims *models.JWTClaims, notebookID string, req service.FinalizeRequest) (*service.Document, error)
	Summary(ctx context.Context, claims *models.JWTClaims, notebookID string, req service.FinalizeRequest, format string) (*service.Document, error)
}

// NotebookHandler exposes notebook finalization endpoints.
type NotebookHandler struct {
	notebooks notebookService
}

// NewNotebookHandler constructs handler.
func NewNotebookHandler(notebooks notebookService) *NotebookHandler {
	return &NotebookHandler{notebooks: notebooks}
}

// Finalize godoc
// @Summary Finalize notebook and download its workbook
// @Tags Notebooks
// @Accept json
// @Produce application/octet-stream
// @Param id path string true "Notebook ID"
// @Param payload body service.FinalizeRequest false "Weights or preset name"
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /notebooks/{id}/finalize [put]
func (h *NotebookHandler) Finalize(c *gin.Context) {
	req, ok := bindFinalizeRequest(c)
	if !ok {
		return
	}
	doc, err := h.notebooks.Finalize(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, doc.Filename, doc.ContentType, doc.Content)
}

// Summary godoc
// @Summary Download the final-average summary of a notebook
// @Tags Notebooks
// @Accept json
// @Produce text/csv,application/pdf,application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path string true "Notebook ID"
// @Param format query string false "csv, pdf or xlsx"
// @Param payload body service.FinalizeRequest false "Weights or preset name"
// @Success 200 {file} binary
// @Router /notebooks/{id}/summary [post]
func (h *NotebookHandler) Summary(c *gin.Context) {
	req, ok := bindFinalizeRequest(c)
	if !ok {
		return
	}
	doc, err := h.notebooks.Summary(c.Request.Context(), claimsFromContext(c), c.Param("id"), req, c.DefaultQuery("format", service.SummaryFormatCSV))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, doc.Filename, doc.ContentType, doc.Content)
}

// bindFinalizeRequest accepts an empty body, which selects the default preset.
func bindFinalizeRequest(c *gin.Context) (service.FinalizeRequest, bool) {
	var req service.FinalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInvalidWeights.Code, appErrors.ErrInvalidWeights.Status, "invalid finalize payload"))
		return req, false
	}
	return req, true
}
