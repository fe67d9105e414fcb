package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/avvvet/hotel-concierge/internal/dispatch"
	"github.com/avvvet/hotel-concierge/internal/memory"
	"github.com/avvvet/hotel-concierge/internal/metrics"
	"github.com/avvvet/hotel-concierge/internal/models"
	"github.com/avvvet/hotel-concierge/internal/prompts"
	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"
)

const maxMessageRunes = 2000

var ErrSessionNotFound = errors.New("session not found")

// TurnDispatcher answers one message for a loaded session.
type TurnDispatcher interface {
	Handle(ctx context.Context, session *memory.Session, history []llms.ChatMessage, text string) dispatch.Reply
}

// ChatHandler runs chat turns. Turns of the same session never overlap.
type ChatHandler struct {
	dispatcher TurnDispatcher
	sessions   *memory.Manager
	logger     *zap.Logger
	locks      sessionLocks
}

func NewChatHandler(dispatcher TurnDispatcher, sessions *memory.Manager, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		dispatcher: dispatcher,
		sessions:   sessions,
		logger:     logger,
		locks:      sessionLocks{locks: make(map[string]*sessionLock)},
	}
}

// ProcessMessage never fails the transport: problems are reported inside
// the response with StatusError and a user-facing apology.
func (h *ChatHandler) ProcessMessage(ctx context.Context, request *models.ChatRequest) (*models.ChatResponse, error) {
	if err := h.validateRequest(request); err != nil {
		return h.createErrorResponse(request, "", models.ErrorInvalidRequest, err.Error()), nil
	}
	if request.SessionID == "" {
		request.SessionID = uuid.NewString()
	}
	requestID := uuid.NewString()
	message := strings.TrimSpace(request.Message)
	start := time.Now()

	unlock := h.locks.lock(request.SessionID)
	defer unlock()

	session, err := h.sessions.Load(ctx, request.SessionID)
	if err != nil {
		h.logger.Error("failed to load session",
			zap.String("session_id", request.SessionID),
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		return h.createErrorResponse(request, requestID, models.ErrorSessionStore, "session unavailable"), nil
	}
	if session.UserID == "" {
		session.UserID = request.UserID
	}

	history, err := h.sessions.History(ctx, session)
	if err != nil {
		h.logger.Warn("history unavailable, continuing without it", zap.String("session_id", request.SessionID), zap.Error(err))
		history = nil
	}

	reply := h.dispatcher.Handle(ctx, session, history, message)

	if err := h.sessions.RecordTurn(ctx, session, message, reply.Text); err != nil {
		h.logger.Error("failed to persist turn",
			zap.String("session_id", request.SessionID),
			zap.String("request_id", requestID),
			zap.Error(err),
		)
	}

	elapsed := time.Since(start)
	metrics.TurnLatency.Observe(elapsed.Seconds())
	h.logger.Info("turn processed",
		zap.String("session_id", request.SessionID),
		zap.String("request_id", requestID),
		zap.String("route", string(reply.Route)),
		zap.String("intent", reply.Intent),
		zap.Float64("score", reply.Score),
		zap.String("dialog_mode", string(session.Mode)),
		zap.Bool("booking_complete", reply.BookingComplete),
		zap.Duration("latency", elapsed),
	)

	return &models.ChatResponse{
		SessionID:       request.SessionID,
		RequestID:       requestID,
		Reply:           reply.Text,
		Route:           string(reply.Route),
		Intent:          reply.Intent,
		Score:           reply.Score,
		DialogMode:      string(session.Mode),
		BookingComplete: reply.BookingComplete,
		BookingURL:      reply.BookingURL,
		MissingSlots:    reply.MissingSlots,
		Status:          models.StatusOK,
	}, nil
}

// Snapshot returns the stored state of a session.
func (h *ChatHandler) Snapshot(ctx context.Context, sessionID string) (*models.SessionSnapshot, error) {
	exists, err := h.sessions.SessionExists(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrSessionNotFound
	}

	unlock := h.locks.lock(sessionID)
	defer unlock()

	session, err := h.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	transcript, err := h.sessions.GetFormattedHistory(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var missing []string
	if session.InBooking() {
		for _, s := range session.Booking.Missing() {
			missing = append(missing, string(s))
		}
	}

	return &models.SessionSnapshot{
		SessionID:    session.SessionID,
		DialogMode:   string(session.Mode),
		Booking:      session.Booking,
		MissingSlots: missing,
		MessageCount: session.Metadata.MessageCount,
		LastIntent:   session.Metadata.LastIntent,
		StartedAt:    session.Metadata.StartedAt,
		LastActivity: session.Metadata.LastActivity,
		Transcript:   transcript,
	}, nil
}

// ResetSession discards a session's history and booking state.
func (h *ChatHandler) ResetSession(ctx context.Context, sessionID string) error {
	unlock := h.locks.lock(sessionID)
	defer unlock()
	return h.sessions.ClearSession(ctx, sessionID)
}

func (h *ChatHandler) validateRequest(request *models.ChatRequest) error {
	if request == nil {
		return fmt.Errorf("request is required")
	}
	if strings.TrimSpace(request.Message) == "" {
		return fmt.Errorf("message is required")
	}
	if utf8.RuneCountInString(request.Message) > maxMessageRunes {
		return fmt.Errorf("message exceeds %d characters", maxMessageRunes)
	}
	return nil
}

func (h *ChatHandler) createErrorResponse(request *models.ChatRequest, requestID, errorCode, errorMessage string) *models.ChatResponse {
	resp := &models.ChatResponse{
		RequestID:    requestID,
		Reply:        prompts.FallbackMessage,
		Status:       models.StatusError,
		ErrorCode:    &errorCode,
		ErrorMessage: &errorMessage,
	}
	if request != nil {
		resp.SessionID = request.SessionID
	}
	return resp
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// sessionLocks hands out one mutex per session and forgets it once no turn
// holds or waits for it.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

func (l *sessionLocks) lock(sessionID string) func() {
	l.mu.Lock()
	sl, ok := l.locks[sessionID]
	if !ok {
		sl = &sessionLock{}
		l.locks[sessionID] = sl
	}
	sl.refs++
	l.mu.Unlock()

	sl.mu.Lock()
	return func() {
		sl.mu.Unlock()
		l.mu.Lock()
		sl.refs--
		if sl.refs == 0 {
			delete(l.locks, sessionID)
		}
		l.mu.Unlock()
	}
}

func (l *sessionLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
