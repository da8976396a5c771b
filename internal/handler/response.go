package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"docslice/internal/domain"
)

// APIResponse is the standard envelope for all API responses.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *PagMeta    `json:"meta,omitempty"`
}

// APIError holds error details in the response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PagMeta holds pagination metadata.
type PagMeta struct {
	Total  int `json:"total"`
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// RespondOK sends a 200 success response.
func RespondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

// RespondCreated sends a 201 success response.
func RespondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{Success: true, Data: data})
}

// RespondPaginated sends a 200 success response with pagination metadata.
func RespondPaginated(c *gin.Context, data interface{}, meta PagMeta) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data, Meta: &meta})
}

// RespondError sends an error response with the given status code.
func RespondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: msg},
	})
}

// MapDomainError translates domain errors to HTTP status codes and error codes.
func MapDomainError(err error) (status int, code, msg string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "resource not found"
	case errors.Is(err, domain.ErrSegmentNotFound):
		return http.StatusNotFound, "SEGMENT_NOT_FOUND", "segment not found"
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid credentials"
	case errors.Is(err, domain.ErrSessionBusy):
		return http.StatusConflict, "SESSION_BUSY", "an analysis or finalization is already in flight for this session"
	case errors.Is(err, domain.ErrAnalysisFailed):
		return http.StatusBadGateway, "ANALYSIS_FAILED", "bundle analysis failed; session state is unchanged"
	case errors.Is(err, domain.ErrMasterUnreadable):
		return http.StatusUnprocessableEntity, "MASTER_UNREADABLE", "master document is missing or could not be parsed"
	case errors.Is(err, domain.ErrEmptyTag):
		return http.StatusBadRequest, "EMPTY_TAG", "tag must not be empty"
	case errors.Is(err, domain.ErrEmptyCategory):
		return http.StatusBadRequest, "EMPTY_CATEGORY", "category must not be empty"
	case errors.Is(err, domain.ErrInvalidField):
		return http.StatusBadRequest, "INVALID_FIELD", "unknown or mistyped segment field"
	case errors.Is(err, domain.ErrNoBundle):
		return http.StatusConflict, "NO_BUNDLE", "upload the OCR bundle before running analysis"
	case errors.Is(err, domain.ErrNoMaster):
		return http.StatusConflict, "NO_MASTER", "upload the master document before finalizing"
	case errors.Is(err, domain.ErrNotFinalized):
		return http.StatusConflict, "NOT_FINALIZED", "segment has no finalized artifact"
	case errors.Is(err, domain.ErrWrongPhase):
		return http.StatusConflict, "WRONG_PHASE", "operation not valid in the session's current phase"
	case errors.Is(err, domain.ErrUnsupportedUpload):
		return http.StatusBadRequest, "UNSUPPORTED_FILE_TYPE", "unsupported file type; expected pdf"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred"
	}
}

// HandleError maps a domain error and sends the appropriate error response.
func HandleError(c *gin.Context, err error) {
	status, code, msg := MapDomainError(err)
	if status >= 500 {
		requestID, _ := c.Get("request_id")
		log.Printf("[%s] internal error: %v", requestID, err)
	}
	RespondError(c, status, code, msg)
}
