package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"docslice/internal/service"
)

// SessionHandler handles session lifecycle and workflow endpoints.
type SessionHandler struct {
	sessions    service.SessionService
	maxUploadMB int64
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessions service.SessionService, maxUploadMB int64) *SessionHandler {
	if maxUploadMB <= 0 {
		maxUploadMB = 100
	}
	return &SessionHandler{sessions: sessions, maxUploadMB: maxUploadMB}
}

// Create handles POST /api/v1/sessions
func (h *SessionHandler) Create(c *gin.Context) {
	var req struct {
		ContextHint string `json:"context_hint"`
	}
	// Body is optional; a bare POST creates a session with no hint.
	_ = c.ShouldBindJSON(&req)

	view, err := h.sessions.Create(c.Request.Context(), &service.CreateSessionInput{
		ContextHint: req.ContextHint,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondCreated(c, view)
}

// Get handles GET /api/v1/sessions/:id
func (h *SessionHandler) Get(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	view, err := h.sessions.Get(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, view)
}

// List handles GET /api/v1/sessions
func (h *SessionHandler) List(c *gin.Context) {
	offset, limit := pagination(c)
	sessions, total, err := h.sessions.List(c.Request.Context(), offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondPaginated(c, sessions, PagMeta{Total: total, Offset: offset, Limit: limit})
}

// Delete handles DELETE /api/v1/sessions/:id
func (h *SessionHandler) Delete(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	if err := h.sessions.Delete(c.Request.Context(), id); err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": id})
}

// UploadBundle handles POST /api/v1/sessions/:id/bundle
func (h *SessionHandler) UploadBundle(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	data, contentType, ok := h.readUpload(c)
	if !ok {
		return
	}

	view, err := h.sessions.UploadBundle(c.Request.Context(), id, data, contentType)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, view)
}

// UploadMaster handles POST /api/v1/sessions/:id/master
func (h *SessionHandler) UploadMaster(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	data, contentType, ok := h.readUpload(c)
	if !ok {
		return
	}

	view, err := h.sessions.UploadMaster(c.Request.Context(), id, data, contentType)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, view)
}

// Analyze handles POST /api/v1/sessions/:id/analyze
func (h *SessionHandler) Analyze(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	view, err := h.sessions.Analyze(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, view)
}

// SetContext handles PUT /api/v1/sessions/:id/context
func (h *SessionHandler) SetContext(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	var req struct {
		ContextHint string `json:"context_hint"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "context_hint is required")
		return
	}

	view, err := h.sessions.SetContextHint(c.Request.Context(), id, req.ContextHint)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, view)
}

// Undo handles POST /api/v1/sessions/:id/undo
func (h *SessionHandler) Undo(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	view, err := h.sessions.Undo(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, view)
}

// Redo handles POST /api/v1/sessions/:id/redo
func (h *SessionHandler) Redo(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	view, err := h.sessions.Redo(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, view)
}

// Reset handles POST /api/v1/sessions/:id/reset
func (h *SessionHandler) Reset(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	view, err := h.sessions.Reset(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, view)
}

// Finalize handles POST /api/v1/sessions/:id/finalize
func (h *SessionHandler) Finalize(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	outcomes, err := h.sessions.Finalize(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{"outcomes": outcomes})
}

// Audit handles GET /api/v1/sessions/:id/audit
func (h *SessionHandler) Audit(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	offset, limit := pagination(c)
	entries, total, err := h.sessions.AuditTrail(c.Request.Context(), id, offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondPaginated(c, entries, PagMeta{Total: total, Offset: offset, Limit: limit})
}

// readUpload pulls the PDF out of a multipart form (field "file") or,
// failing that, the raw request body.
func (h *SessionHandler) readUpload(c *gin.Context) ([]byte, string, bool) {
	maxBytes := h.maxUploadMB * 1024 * 1024

	if file, err := c.FormFile("file"); err == nil {
		if file.Size > maxBytes {
			RespondError(c, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "file exceeds maximum allowed size")
			return nil, "", false
		}
		f, err := file.Open()
		if err != nil {
			RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "could not read uploaded file")
			return nil, "", false
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "could not read uploaded file")
			return nil, "", false
		}
		contentType := file.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/pdf"
		}
		return data, contentType, true
	}

	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBytes+1))
	if err != nil || len(data) == 0 {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "expected multipart field 'file' or a raw pdf body")
		return nil, "", false
	}
	if int64(len(data)) > maxBytes {
		RespondError(c, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "file exceeds maximum allowed size")
		return nil, "", false
	}
	contentType := c.ContentType()
	if contentType == "" {
		contentType = "application/pdf"
	}
	return data, contentType, true
}

func sessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid session ID")
		return uuid.Nil, false
	}
	return id, true
}

func pagination(c *gin.Context) (offset, limit int) {
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return offset, limit
}
