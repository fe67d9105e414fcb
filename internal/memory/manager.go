package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/memory"
	"go.uber.org/zap"
)

const DefaultMaxMessages = 20

// Manager persists sessions through a Store. History is rebuilt from the
// stored messages into a LangChainGo conversation buffer on demand, so the
// manager itself holds no per-session state.
type Manager struct {
	store       Store
	maxMessages int
	logger      *zap.Logger
}

func NewManager(store Store, maxMessages int, logger *zap.Logger) *Manager {
	if maxMessages <= 0 {
		maxMessages = DefaultMaxMessages
	}
	return &Manager{
		store:       store,
		maxMessages: maxMessages,
		logger:      logger,
	}
}

// Load returns the stored session, or a new one.
func (m *Manager) Load(ctx context.Context, sessionID string) (*Session, error) {
	session, err := m.store.LoadSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return session, nil
}

// History returns the session's messages as chat messages, oldest first.
func (m *Manager) History(ctx context.Context, session *Session) ([]llms.ChatMessage, error) {
	buf, err := m.buffer(ctx, session)
	if err != nil {
		return nil, err
	}
	messages, err := buf.ChatHistory.Messages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	return messages, nil
}

// RecordTurn appends a user/assistant exchange, trims history to the last
// maxMessages entries and saves the session.
func (m *Manager) RecordTurn(ctx context.Context, session *Session, userMessage, reply string) error {
	now := time.Now()
	session.Messages = append(session.Messages,
		Message{Role: "user", Content: userMessage, Timestamp: now},
		Message{Role: "assistant", Content: reply, Timestamp: now},
	)
	if over := len(session.Messages) - m.maxMessages; over > 0 {
		session.Messages = append([]Message{}, session.Messages[over:]...)
	}
	session.Metadata.LastActivity = now
	session.Metadata.MessageCount += 2

	if err := m.store.SaveSession(ctx, session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	m.logger.Debug("recorded turn",
		zap.String("session_id", session.SessionID),
		zap.Int("buffered", len(session.Messages)),
	)
	return nil
}

// GetFormattedHistory returns the conversation as a plain transcript.
func (m *Manager) GetFormattedHistory(ctx context.Context, sessionID string) (string, error) {
	session, err := m.Load(ctx, sessionID)
	if err != nil {
		return "", err
	}
	messages, err := m.History(ctx, session)
	if err != nil {
		return "", err
	}
	if len(messages) == 0 {
		return "", nil
	}

	var b strings.Builder
	for _, msg := range messages {
		switch msg.GetType() {
		case llms.ChatMessageTypeHuman:
			b.WriteString("User: ")
		case llms.ChatMessageTypeAI:
			b.WriteString("Assistant: ")
		case llms.ChatMessageTypeSystem:
			b.WriteString("System: ")
		default:
			continue
		}
		b.WriteString(msg.GetContent())
		b.WriteString("\n")
	}
	return b.String(), nil
}

func (m *Manager) ClearSession(ctx context.Context, sessionID string) error {
	if err := m.store.ClearSession(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}

	m.logger.Info("cleared session", zap.String("session_id", sessionID))
	return nil
}

func (m *Manager) SessionExists(ctx context.Context, sessionID string) (bool, error) {
	return m.store.SessionExists(ctx, sessionID)
}

// GetActiveSessionCount returns the number of live sessions, or -1 when the
// store cannot count them cheaply.
func (m *Manager) GetActiveSessionCount() int {
	if counter, ok := m.store.(interface{ Len() int }); ok {
		return counter.Len()
	}
	return -1
}

// Ping reports whether the store is reachable. Stores without a connection
// are always reachable.
func (m *Manager) Ping(ctx context.Context) error {
	if pinger, ok := m.store.(interface{ Ping(context.Context) error }); ok {
		return pinger.Ping(ctx)
	}
	return nil
}

// Close closes the underlying store if it holds a connection.
func (m *Manager) Close() error {
	if closer, ok := m.store.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

func (m *Manager) buffer(ctx context.Context, session *Session) (*memory.ConversationBuffer, error) {
	buf := memory.NewConversationBuffer()
	for _, msg := range session.Messages {
		var chatMsg llms.ChatMessage
		switch msg.Role {
		case "user":
			chatMsg = llms.HumanChatMessage{Content: msg.Content}
		case "assistant":
			chatMsg = llms.AIChatMessage{Content: msg.Content}
		case "system":
			chatMsg = llms.SystemChatMessage{Content: msg.Content}
		default:
			m.logger.Warn("unknown message role, skipping", zap.String("role", msg.Role))
			continue
		}
		if err := buf.ChatHistory.AddMessage(ctx, chatMsg); err != nil {
			return nil, fmt.Errorf("failed to add message to memory: %w", err)
		}
	}
	return buf, nil
}
