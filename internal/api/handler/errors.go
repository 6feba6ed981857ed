package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/insights/internal/domain"
	"github.com/timmy/insights/internal/logger"
)

// APIError is the JSON body of every error response.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewBadRequestError creates a 400 Bad Request error
func NewBadRequestError(message string, cause error) *APIError {
	err := &APIError{Status: http.StatusBadRequest, Code: "BAD_REQUEST", Message: message}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewTooLargeError creates a 413 error for oversized uploads
func NewTooLargeError(size, limit int64) *APIError {
	return &APIError{
		Status:  http.StatusRequestEntityTooLarge,
		Code:    "FILE_TOO_LARGE",
		Message: "Failed to upload dataset. Please try again.",
		Details: fmt.Sprintf("file is %d bytes, limit is %d", size, limit),
	}
}

var kindStatus = map[domain.Kind]struct {
	status int
	code   string
}{
	domain.KindValidation:      {http.StatusBadRequest, "VALIDATION_ERROR"},
	domain.KindNotFound:        {http.StatusNotFound, "NOT_FOUND"},
	domain.KindStaleTransition: {http.StatusConflict, "STALE_TRANSITION"},
	domain.KindFetch:           {http.StatusBadGateway, "FETCH_FAILED"},
	domain.KindUpload:          {http.StatusBadGateway, "UPLOAD_FAILED"},
	domain.KindService:         {http.StatusBadGateway, "SERVICE_ERROR"},
}

// FromError maps a domain error onto an APIError. The message is the
// user facing text for the error kind; details carry the cause.
func FromError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	m, ok := kindStatus[domain.KindOf(err)]
	if !ok {
		m.status, m.code = http.StatusInternalServerError, "INTERNAL_ERROR"
	}
	return &APIError{Status: m.status, Code: m.code, Message: domain.UserMessage(err), Details: err.Error()}
}

// respondError writes err as an APIError and logs server side failures.
func respondError(c *gin.Context, err error) {
	apiErr := FromError(err)
	if apiErr.Status >= http.StatusInternalServerError {
		logger.CtxError(c.Request.Context(), "Request failed: %v", err)
	} else {
		logger.CtxDebug(c.Request.Context(), "Request rejected: %v", err)
	}
	c.AbortWithStatusJSON(apiErr.Status, apiErr)
}
