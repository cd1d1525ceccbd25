package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/Lllllllleong/aethercare/internal/logger"
	"github.com/Lllllllleong/aethercare/internal/middleware"
	"github.com/Lllllllleong/aethercare/internal/models"
	"github.com/Lllllllleong/aethercare/internal/report"
	"github.com/Lllllllleong/aethercare/internal/store"
	"github.com/gin-gonic/gin"
)

const (
	defaultReportLimit = 20
	maxReportLimit     = 100
)

type ReportGenerator interface {
	Generate(ctx context.Context, subject string, req models.GenerateReportRequest) (*models.GenerateReportResponse, error)
}

type ReportHistory interface {
	ListReports(ctx context.Context, uid string, limit int) ([]models.ReportMetadata, error)
	GetReport(ctx context.Context, uid, reportID string) (*models.ReportMetadata, error)
}

type ReportHandler struct {
	generator ReportGenerator
	history   ReportHistory
}

func NewReportHandler(generator ReportGenerator, history ReportHistory) *ReportHandler {
	return &ReportHandler{generator: generator, history: history}
}

// Generate handles POST / and POST /reports.
func (h *ReportHandler) Generate(c *gin.Context) {
	var req models.GenerateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body", Details: err.Error()})
		return
	}

	resp, err := h.generator.Generate(c.Request.Context(), middleware.GetSubject(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// List handles GET /reports?limit=.
func (h *ReportHandler) List(c *gin.Context) {
	limit := defaultReportLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = min(n, maxReportLimit)
	}

	reports, err := h.history.ListReports(c.Request.Context(), middleware.GetSubject(c), limit)
	if err != nil {
		logger.Error(c.Request.Context(), "Failed to list reports.", "error", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to list reports"})
		return
	}
	c.JSON(http.StatusOK, models.ReportListResponse{Reports: reports})
}

// Get handles GET /reports/:id.
func (h *ReportHandler) Get(c *gin.Context) {
	r, err := h.history.GetReport(c.Request.Context(), middleware.GetSubject(c), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "Report not found"})
		return
	}
	if err != nil {
		logger.Error(c.Request.Context(), "Failed to get report.", "reportId", c.Param("id"), "error", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to get report"})
		return
	}
	c.JSON(http.StatusOK, r)
}

// writeError maps pipeline failures onto their HTTP status.
func writeError(c *gin.Context, err error) {
	var se *report.StatusError
	if errors.As(err, &se) {
		c.JSON(se.Code, models.ErrorResponse{Error: se.Message, Details: se.Details})
		return
	}
	logger.Error(c.Request.Context(), "Unhandled report error.", "error", err)
	c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: err.Error()})
}
