package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/avvvet/hotel-concierge/internal/config"
	"github.com/avvvet/hotel-concierge/internal/models"
	"github.com/avvvet/hotel-concierge/internal/prompts"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// ChatService is what the transports need from the chat handler.
type ChatService interface {
	ProcessMessage(ctx context.Context, request *models.ChatRequest) (*models.ChatResponse, error)
	Snapshot(ctx context.Context, sessionID string) (*models.SessionSnapshot, error)
	ResetSession(ctx context.Context, sessionID string) error
}

type NATSTransport struct {
	conn        *nats.Conn
	sub         *nats.Subscription
	subject     string
	queue       string
	turnTimeout time.Duration
	chat        ChatService
	logger      *zap.Logger

	// slots bounds the turns in flight; wg tracks them for Close.
	slots  chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

func NewNATSTransport(cfg *config.Config, chat ChatService, logger *zap.Logger) (*NATSTransport, error) {
	conn, err := nats.Connect(cfg.NatsURL,
		nats.Name(cfg.ServiceName),
		nats.Timeout(cfg.NatsTimeout),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.Info("connected to NATS", zap.String("url", cfg.NatsURL))

	nt := newNATSWorkers(chat, cfg.TurnTimeout, cfg.NatsWorkers, logger)
	nt.conn = conn
	nt.subject = cfg.NatsRequestSubject
	nt.queue = cfg.ServiceName
	return nt, nil
}

func newNATSWorkers(chat ChatService, turnTimeout time.Duration, workers int, logger *zap.Logger) *NATSTransport {
	if workers < 1 {
		workers = 1
	}
	return &NATSTransport{
		turnTimeout: turnTimeout,
		chat:        chat,
		logger:      logger,
		slots:       make(chan struct{}, workers),
	}
}

// Start joins the service queue group so replicas share the subject.
func (nt *NATSTransport) Start() error {
	sub, err := nt.conn.QueueSubscribe(nt.subject, nt.queue, nt.handleChatRequest)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", nt.subject, err)
	}
	nt.sub = sub

	nt.logger.Info("subscribed to subject",
		zap.String("subject", nt.subject),
		zap.String("queue", nt.queue),
		zap.Int("workers", cap(nt.slots)))
	return nil
}

func (nt *NATSTransport) handleChatRequest(msg *nats.Msg) {
	nt.dispatch(msg.Data, msg.Respond)
}

// dispatch runs the turn on a worker. The subscription callback only blocks
// while every worker is busy.
func (nt *NATSTransport) dispatch(data []byte, respond func([]byte) error) {
	nt.slots <- struct{}{}

	nt.mu.Lock()
	if nt.closed {
		nt.mu.Unlock()
		<-nt.slots
		return
	}
	nt.wg.Add(1)
	nt.mu.Unlock()

	go func() {
		defer func() {
			<-nt.slots
			nt.wg.Done()
		}()

		ctx, cancel := context.WithTimeout(context.Background(), nt.turnTimeout)
		defer cancel()

		if err := respond(handleRequestData(ctx, nt.chat, data, nt.logger)); err != nil {
			nt.logger.Error("failed to send response", zap.Error(err))
		}
	}()
}

// handleRequestData decodes a ChatRequest, runs the turn and encodes the
// response. It always produces a payload so requesters never hang.
func handleRequestData(ctx context.Context, chat ChatService, data []byte, logger *zap.Logger) []byte {
	var request models.ChatRequest
	if err := json.Unmarshal(data, &request); err != nil {
		logger.Warn("invalid request payload", zap.Error(err))
		return encodeResponse(errorResponse(request.SessionID, models.ErrorParseError, "invalid request format"), logger)
	}

	response, err := chat.ProcessMessage(ctx, &request)
	if err != nil {
		logger.Error("failed to process message", zap.String("session_id", request.SessionID), zap.Error(err))
		response = errorResponse(request.SessionID, models.ErrorInternal, err.Error())
	}
	return encodeResponse(response, logger)
}

func encodeResponse(response *models.ChatResponse, logger *zap.Logger) []byte {
	data, err := json.Marshal(response)
	if err != nil {
		logger.Error("failed to marshal response", zap.Error(err))
		return []byte(`{"status":"ERROR","error_code":"INTERNAL_ERROR"}`)
	}
	return data
}

func errorResponse(sessionID, errorCode, errorMessage string) *models.ChatResponse {
	return &models.ChatResponse{
		SessionID:    sessionID,
		Reply:        prompts.FallbackMessage,
		Status:       models.StatusError,
		ErrorCode:    &errorCode,
		ErrorMessage: &errorMessage,
	}
}

// Close stops intake, waits for turns in flight to answer, then closes the
// connection.
func (nt *NATSTransport) Close() error {
	if nt.sub != nil {
		if err := nt.sub.Unsubscribe(); err != nil {
			nt.logger.Warn("failed to unsubscribe", zap.Error(err))
		}
	}

	nt.mu.Lock()
	nt.closed = true
	nt.mu.Unlock()
	nt.wg.Wait()

	if nt.conn != nil {
		nt.conn.Close()
		nt.logger.Info("NATS connection closed")
	}
	return nil
}
