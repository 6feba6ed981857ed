package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/timmy/insights/internal/domain"
)

func TestFromError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", domain.NewError(domain.KindNotFound, "delete", "7", nil), http.StatusNotFound, "NOT_FOUND"},
		{"validation", domain.NewError(domain.KindValidation, "upload", "", errors.New("empty")), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"stale", domain.NewError(domain.KindStaleTransition, "complete_processing", "7", nil), http.StatusConflict, "STALE_TRANSITION"},
		{"fetch", domain.NewError(domain.KindFetch, "load", "", errors.New("timeout")), http.StatusBadGateway, "FETCH_FAILED"},
		{"upload", domain.NewError(domain.KindUpload, "upload", "", errors.New("disk full")), http.StatusBadGateway, "UPLOAD_FAILED"},
		{"service wrapped", fmt.Errorf("chat: %w", domain.NewError(domain.KindService, "chat", "", nil)), http.StatusBadGateway, "SERVICE_ERROR"},
		{"plain", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
		{"api error passes through", NewBadRequestError("bad", nil), http.StatusBadRequest, "BAD_REQUEST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromError(tt.err)
			assert.Equal(t, tt.status, got.Status)
			assert.Equal(t, tt.code, got.Code)
			assert.NotEmpty(t, got.Message)
		})
	}
}

func TestFromError_UserMessage(t *testing.T) {
	got := FromError(domain.NewError(domain.KindUpload, "upload", "", errors.New("s3: access denied")))
	assert.Equal(t, "Failed to upload dataset. Please try again.", got.Message)
	assert.Contains(t, got.Details, "access denied")
}
