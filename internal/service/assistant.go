package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/insights/internal/domain"
	"github.com/timmy/insights/internal/prompts"
)

// Assistant turns a user message into a reply. Implementations may call
// remote services and must honour ctx.
type Assistant interface {
	Ask(ctx context.Context, text string) (string, error)
}

// LLMAssistant answers through an OpenAI-compatible chat completions API.
type LLMAssistant struct {
	client   *resty.Client
	model    string
	endpoint string
	catalog  func() []domain.Dataset
}

// LLMConfig holds configuration for the LLM assistant.
type LLMConfig struct {
	Model   string
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// NewLLMAssistant creates an assistant. catalog, when non-nil, supplies
// the datasets described in the system prompt of every request.
func NewLLMAssistant(cfg *LLMConfig, catalog func() []domain.Dataset) *LLMAssistant {
	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	client.SetTimeout(timeout)

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	return &LLMAssistant{
		client:   client,
		model:    cfg.Model,
		endpoint: baseURL + "/chat/completions",
		catalog:  catalog,
	}
}

// GetModel returns the model name being used.
func (a *LLMAssistant) GetModel() string {
	return a.model
}

// OpenAI-compatible Chat Completion API request/response structures
type openAIRequest struct {
	Model     string          `json:"model"`
	Messages  []openAIMessage `json:"messages"`
	MaxTokens int             `json:"max_tokens"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Ask sends text with the dataset catalogue as system context.
func (a *LLMAssistant) Ask(ctx context.Context, text string) (string, error) {
	var datasets []domain.Dataset
	if a.catalog != nil {
		datasets = a.catalog()
	}

	req := openAIRequest{
		Model: a.model,
		Messages: []openAIMessage{
			{Role: "system", Content: prompts.SystemPrompt(datasets)},
			{Role: "user", Content: text},
		},
		MaxTokens: 500,
	}

	var resp openAIResponse
	httpResp, err := a.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		SetError(&resp).
		Post(a.endpoint)
	if err != nil {
		return "", fmt.Errorf("failed to call chat API: %w", err)
	}

	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		errorMsg := fmt.Sprintf("HTTP %d: %s", httpResp.StatusCode(), string(httpResp.Body()))
		if resp.Error != nil {
			errorMsg = fmt.Sprintf("HTTP %d: %s", httpResp.StatusCode(), resp.Error.Message)
		}
		return "", fmt.Errorf("chat API returned error: %s", errorMsg)
	}

	if resp.Error != nil {
		return "", fmt.Errorf("chat API error: %s", resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices in chat API response")
	}

	reply := strings.TrimSpace(resp.Choices[0].Message.Content)
	if reply == "" {
		return "", errors.New("empty reply from chat API")
	}
	return reply, nil
}
