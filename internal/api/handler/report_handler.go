package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/spendwise/internal/api/producer"
	"github.com/cuongbtq/spendwise/internal/report"
)

// ReportHandler handles statement HTTP requests
type ReportHandler struct {
	logger  *slog.Logger
	reports ReportTrigger
	catalog ReportCatalog
}

// NewReportHandler creates a new ReportHandler instance
func NewReportHandler(deps *Dependencies) *ReportHandler {
	return &ReportHandler{
		logger:  deps.Logger,
		reports: deps.Reports,
		catalog: deps.Catalog,
	}
}

// TriggerReport handles POST /transactions/report
// Enqueues statement generation and returns before it runs
func (h *ReportHandler) TriggerReport(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	err := h.reports.TriggerReport(c.Request.Context(), uid)
	switch {
	case err == nil:
		c.JSON(http.StatusAccepted, gin.H{
			"message": "Report generation started in background",
		})
	case errors.Is(err, producer.ErrReportInProgress):
		c.JSON(http.StatusConflict, gin.H{
			"error": "A report is already being generated",
		})
	case errors.Is(err, producer.ErrQueueUnavailable):
		h.logger.Error("Report queue unavailable",
			slog.Int64("user_id", uid),
			slog.Any("error", err),
		)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Report queue unavailable, please retry later",
		})
	default:
		h.logger.Error("Failed to trigger report",
			slog.Int64("user_id", uid),
			slog.Any("error", err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to trigger report",
		})
	}
}

// ListReports handles GET /transactions/report/list
// Returns the caller's statement file names, newest first
func (h *ReportHandler) ListReports(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	c.JSON(http.StatusOK, h.catalog.List(uid))
}

// DownloadReport handles GET /transactions/report/:filename
func (h *ReportHandler) DownloadReport(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	name := c.Param("filename")

	path, err := h.catalog.Resolve(uid, name)
	if err != nil {
		if errors.Is(err, report.ErrReportNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
			return
		}
		h.logger.Error("Failed to resolve report",
			slog.Int64("user_id", uid),
			slog.String("file", name),
			slog.Any("error", err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load report"})
		return
	}

	c.FileAttachment(path, name)
}
