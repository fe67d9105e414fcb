package models

import (
	"time"

	"github.com/avvvet/hotel-concierge/internal/booking"
)

// ChatRequest is one user message, from NATS, HTTP or a websocket.
type ChatRequest struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id,omitempty"`
	Message   string `json:"message"`
}

// ChatResponse is the reply to a ChatRequest.
type ChatResponse struct {
	SessionID       string   `json:"session_id"`
	RequestID       string   `json:"request_id,omitempty"`
	Reply           string   `json:"reply"`
	Route           string   `json:"route,omitempty"`
	Intent          string   `json:"intent,omitempty"`
	Score           float64  `json:"score"`
	DialogMode      string   `json:"dialog_mode,omitempty"`
	BookingComplete bool     `json:"booking_complete"`
	BookingURL      string   `json:"booking_url,omitempty"`
	MissingSlots    []string `json:"missing_slots,omitempty"`
	Status          Status   `json:"status"`
	ErrorCode       *string  `json:"error_code,omitempty"`
	ErrorMessage    *string  `json:"error_message,omitempty"`
}

// SessionSnapshot is the inspection view of a stored session.
type SessionSnapshot struct {
	SessionID    string        `json:"session_id"`
	DialogMode   string        `json:"dialog_mode"`
	Booking      booking.State `json:"booking_state"`
	MissingSlots []string      `json:"missing_slots,omitempty"`
	MessageCount int           `json:"message_count"`
	LastIntent   string        `json:"last_intent,omitempty"`
	StartedAt    time.Time     `json:"started_at"`
	LastActivity time.Time     `json:"last_activity"`
	Transcript   string        `json:"transcript,omitempty"`
}

type Status string

const (
	StatusOK    Status = "OK"
	StatusError Status = "ERROR"
)

// Error codes
const (
	ErrorInvalidRequest = "INVALID_REQUEST"
	ErrorSessionStore   = "SESSION_STORE_FAILED"
	ErrorInternal       = "INTERNAL_ERROR"
	ErrorParseError     = "PARSE_ERROR"
)
