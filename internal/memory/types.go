package memory

import (
	"context"
	"time"

	"github.com/avvvet/hotel-concierge/internal/booking"
)

// DialogMode tells the dispatcher whether a booking dialog is in progress.
type DialogMode string

const (
	ModeIdle    DialogMode = "idle"
	ModeBooking DialogMode = "booking"
)

// Message represents a single message in a conversation
type Message struct {
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is everything kept for one conversation.
type Session struct {
	SessionID string        `json:"session_id"`
	UserID    string        `json:"user_id"`
	Mode      DialogMode    `json:"dialog_mode"`
	Booking   booking.State `json:"booking_state"`
	Messages  []Message     `json:"messages"`
	Metadata  Metadata      `json:"metadata"`
}

// Metadata contains session information
type Metadata struct {
	StartedAt    time.Time `json:"started_at"`
	LastActivity time.Time `json:"last_activity"`
	MessageCount int       `json:"message_count"`
	LastIntent   string    `json:"last_intent,omitempty"`
}

func NewSession(sessionID string) *Session {
	now := time.Now()
	return &Session{
		SessionID: sessionID,
		Mode:      ModeIdle,
		Messages:  []Message{},
		Metadata: Metadata{
			StartedAt:    now,
			LastActivity: now,
		},
	}
}

// InBooking reports whether the session is mid-booking.
func (s *Session) InBooking() bool {
	return s.Mode == ModeBooking
}

// StartBooking enters booking mode with an empty state.
func (s *Session) StartBooking() {
	s.Mode = ModeBooking
	s.Booking = booking.State{}
}

// EndBooking leaves booking mode and discards collected slots.
func (s *Session) EndBooking() {
	s.Mode = ModeIdle
	s.Booking = booking.State{}
}

// Store defines the interface for session storage
type Store interface {
	// LoadSession returns a fresh session when none is stored.
	LoadSession(ctx context.Context, sessionID string) (*Session, error)

	SaveSession(ctx context.Context, session *Session) error

	ClearSession(ctx context.Context, sessionID string) error

	SessionExists(ctx context.Context, sessionID string) (bool, error)
}
