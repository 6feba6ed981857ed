package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/timmy/insights/internal/service"
)

// ChatHandler serves the assistant conversation and voice commands.
type ChatHandler struct {
	chat  *service.ChatService
	rules *service.RuleAssistant
}

// NewChatHandler creates a chat handler.
func NewChatHandler(chat *service.ChatService, rules *service.RuleAssistant) *ChatHandler {
	return &ChatHandler{chat: chat, rules: rules}
}

// ChatRequest is the body of POST /api/v1/chat.
type ChatRequest struct {
	Message string `json:"message"`
}

// VoiceRequest is the body of POST /api/v1/voice/process.
type VoiceRequest struct {
	Command string `json:"command"`
}

// Messages handles GET /api/v1/chat/messages.
func (h *ChatHandler) Messages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"messages": h.chat.Messages()})
}

// Send handles POST /api/v1/chat.
func (h *ChatHandler) Send(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, NewBadRequestError("Invalid request", err))
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		respondError(c, NewBadRequestError("Message is required", nil))
		return
	}

	reply, err := h.chat.Send(c.Request.Context(), req.Message)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"response": reply.Content, "message": reply})
}

// Voice handles POST /api/v1/voice/process.
func (h *ChatHandler) Voice(c *gin.Context) {
	var req VoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, NewBadRequestError("Invalid request", err))
		return
	}
	if strings.TrimSpace(req.Command) == "" {
		respondError(c, NewBadRequestError("Command is required", nil))
		return
	}

	u := h.rules.Understand(req.Command)
	c.JSON(http.StatusOK, gin.H{
		"response":   h.rules.VoiceReply(u),
		"intent":     u.Intent,
		"confidence": u.Confidence,
		"entities":   u.Entities,
	})
}
