package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"docslice/internal/domain"
	"docslice/internal/service"
)

// SegmentHandler handles per-segment edit and bulk operation endpoints.
type SegmentHandler struct {
	sessions service.SessionService
}

// NewSegmentHandler creates a new SegmentHandler.
func NewSegmentHandler(sessions service.SessionService) *SegmentHandler {
	return &SegmentHandler{sessions: sessions}
}

// SetField handles PATCH /api/v1/sessions/:id/segments/:segmentID
func (h *SegmentHandler) SetField(c *gin.Context) {
	id, segID, ok := segmentIDs(c)
	if !ok {
		return
	}

	var req struct {
		Field string          `json:"field" binding:"required"`
		Value json.RawMessage `json:"value" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "field and value are required")
		return
	}

	view, err := h.sessions.SetField(c.Request.Context(), &service.SetFieldInput{
		SessionID: id,
		SegmentID: segID,
		Field:     domain.SegmentField(req.Field),
		Value:     req.Value,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, view)
}

// Delete handles DELETE /api/v1/sessions/:id/segments/:segmentID
func (h *SegmentHandler) Delete(c *gin.Context) {
	id, segID, ok := segmentIDs(c)
	if !ok {
		return
	}

	view, err := h.sessions.DeleteSegment(c.Request.Context(), id, segID)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, view)
}

// ToggleSelect handles POST /api/v1/sessions/:id/segments/:segmentID/select
func (h *SegmentHandler) ToggleSelect(c *gin.Context) {
	id, segID, ok := segmentIDs(c)
	if !ok {
		return
	}

	view, err := h.sessions.ToggleSelect(c.Request.Context(), id, segID)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, view)
}

// SelectAll handles POST /api/v1/sessions/:id/segments/select-all
func (h *SegmentHandler) SelectAll(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	var req struct {
		Selected *bool `json:"selected" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "selected is required")
		return
	}

	view, err := h.sessions.SelectAll(c.Request.Context(), id, *req.Selected)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, view)
}

// BulkTag handles POST /api/v1/sessions/:id/segments/bulk-tag
func (h *SegmentHandler) BulkTag(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	var req struct {
		Tag string `json:"tag"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "tag is required")
		return
	}

	view, err := h.sessions.BulkSetTag(c.Request.Context(), id, req.Tag)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, view)
}

// BulkCategory handles POST /api/v1/sessions/:id/segments/bulk-category
func (h *SegmentHandler) BulkCategory(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	var req struct {
		Category string `json:"category"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "category is required")
		return
	}

	view, err := h.sessions.BulkSetCategory(c.Request.Context(), id, req.Category)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, view)
}

// Artifact handles GET /api/v1/sessions/:id/segments/:segmentID/artifact
func (h *SegmentHandler) Artifact(c *gin.Context) {
	id, segID, ok := segmentIDs(c)
	if !ok {
		return
	}

	artifact, fingerprint, err := h.sessions.GetArtifact(c.Request.Context(), id, segID)
	if err != nil {
		HandleError(c, err)
		return
	}

	c.Header("X-Artifact-Fingerprint", fingerprint)
	c.Header("Content-Disposition", `attachment; filename="`+segID.String()+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", artifact)
}

func segmentIDs(c *gin.Context) (sid, segID uuid.UUID, ok bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid session ID")
		return uuid.Nil, uuid.Nil, false
	}
	segID, err = uuid.Parse(c.Param("segmentID"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid segment ID")
		return uuid.Nil, uuid.Nil, false
	}
	return id, segID, true
}
