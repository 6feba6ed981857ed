package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/insights/internal/domain"
)

func TestLLMAssistant_Ask(t *testing.T) {
	var got openAIRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  Sales grew 12%.  "}}]}`))
	}))
	defer srv.Close()

	catalog := func() []domain.Dataset {
		return []domain.Dataset{{ID: "1", Name: "Sales Transactions 2023", Status: domain.StatusCompleted}}
	}
	a := NewLLMAssistant(&LLMConfig{Model: "gpt-test", APIKey: "sk-test", BaseURL: srv.URL + "/v1/"}, catalog)

	reply, err := a.Ask(context.Background(), "How are sales?")
	require.NoError(t, err)
	assert.Equal(t, "Sales grew 12%.", reply)

	assert.Equal(t, "gpt-test", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Contains(t, got.Messages[0].Content, "Sales Transactions 2023")
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Equal(t, "How are sales?", got.Messages[1].Content)
}

func TestLLMAssistant_AskErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{name: "http error with message", status: http.StatusUnauthorized, body: `{"error":{"message":"bad key","type":"auth"}}`, want: "bad key"},
		{name: "http error raw body", status: http.StatusBadGateway, body: `upstream down`, want: "HTTP 502"},
		{name: "no choices", status: http.StatusOK, body: `{"choices":[]}`, want: "no choices"},
		{name: "empty content", status: http.StatusOK, body: `{"choices":[{"message":{"content":" "}}]}`, want: "empty reply"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if strings.HasPrefix(tt.body, "{") {
					w.Header().Set("Content-Type", "application/json")
				} else {
					w.Header().Set("Content-Type", "text/plain")
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			a := NewLLMAssistant(&LLMConfig{Model: "m", APIKey: "k", BaseURL: srv.URL}, nil)
			_, err := a.Ask(context.Background(), "hi")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
