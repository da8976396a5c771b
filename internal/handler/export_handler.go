package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"docslice/internal/service"
)

// ExportHandler handles manifest, report, and delivery endpoints.
type ExportHandler struct {
	sessions service.SessionService
}

// NewExportHandler creates a new ExportHandler.
func NewExportHandler(sessions service.SessionService) *ExportHandler {
	return &ExportHandler{sessions: sessions}
}

// ManifestCSV handles GET /api/v1/sessions/:id/export/manifest.csv
func (h *ExportHandler) ManifestCSV(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	data, err := h.sessions.ManifestCSV(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}

	filename := fmt.Sprintf("manifest_%s_%s.csv", id, time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

// ReportXLSX handles GET /api/v1/sessions/:id/export/report.xlsx
func (h *ExportHandler) ReportXLSX(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	data, err := h.sessions.ReportXLSX(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}

	filename := fmt.Sprintf("report_%s_%s.xlsx", id, time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// Upload handles POST /api/v1/sessions/:id/export/upload
func (h *ExportHandler) Upload(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	keys, err := h.sessions.ExportUpload(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{"keys": keys})
}
