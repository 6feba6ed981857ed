package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/insights/internal/domain"
	"github.com/timmy/insights/internal/logger"
)

const (
	// Greeting opens every conversation.
	Greeting = "Hello! I'm your Data Insights Assistant. How can I help you analyze your data today?"
	// Apology is appended when the assistant fails.
	Apology = "Sorry, I encountered an error processing your request. Please try again."

	// MaxMessages bounds the history. The greeting is always kept; the
	// oldest messages after it are dropped first.
	MaxMessages = 200
)

// ChatService keeps the conversation history and relays messages to an
// Assistant.
type ChatService struct {
	assistant Assistant
	now       func() time.Time

	mu       sync.Mutex
	messages []domain.Message
}

// NewChatService creates a conversation seeded with the greeting.
func NewChatService(assistant Assistant) *ChatService {
	s := &ChatService{assistant: assistant, now: time.Now}
	s.messages = []domain.Message{s.message(domain.RoleAssistant, Greeting)}
	return s
}

// Messages returns a copy of the history, oldest first.
func (s *ChatService) Messages() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Message(nil), s.messages...)
}

// Send appends the user message, asks the assistant and appends its
// reply. On assistant failure the apology is appended instead and a
// service error is returned.
func (s *ChatService) Send(ctx context.Context, content string) (domain.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return domain.Message{}, domain.NewError(domain.KindValidation, "chat", "", errors.New("message is empty"))
	}

	s.append(s.message(domain.RoleUser, content))

	start := time.Now()
	reply, err := s.assistant.Ask(ctx, content)
	if err != nil {
		logger.With(logger.Fields{logger.FieldComponent: "chat"}).
			WithDuration(start).
			Warn(ctx, "Assistant failed: %v", err)
		s.append(s.message(domain.RoleAssistant, Apology))
		return domain.Message{}, domain.NewError(domain.KindService, "chat", "", err)
	}

	msg := s.message(domain.RoleAssistant, reply)
	s.append(msg)
	logger.With(logger.Fields{logger.FieldComponent: "chat"}).WithDuration(start).Debug(ctx, "Assistant replied")
	return msg, nil
}

func (s *ChatService) append(m domain.Message) {
	s.mu.Lock()
	s.messages = append(s.messages, m)
	if over := len(s.messages) - MaxMessages; over > 0 {
		s.messages = append(s.messages[:1], s.messages[1+over:]...)
	}
	s.mu.Unlock()
}

func (s *ChatService) message(role domain.Role, content string) domain.Message {
	return domain.Message{ID: uuid.NewString(), Role: role, Content: content, Timestamp: s.now()}
}
