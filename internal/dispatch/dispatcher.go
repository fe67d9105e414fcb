package dispatch

import (
	"context"
	"fmt"

	"github.com/avvvet/hotel-concierge/internal/booking"
	"github.com/avvvet/hotel-concierge/internal/memory"
	"github.com/avvvet/hotel-concierge/internal/metrics"
	"github.com/avvvet/hotel-concierge/internal/prompts"
	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"
)

// Route names the strategy that produced a reply.
type Route string

const (
	RouteSmallTalk Route = "small_talk"
	RouteBooking   Route = "booking_dialog"
	RouteLink      Route = "link_redirect"
	RouteKnowledge Route = "rag_hotel"
	RouteError     Route = "error"
)

type Classifier interface {
	Classify(ctx context.Context, text string) (string, float64)
}

type KnowledgeResponder interface {
	Answer(ctx context.Context, question string) string
}

type SmallTalkResponder interface {
	Respond(ctx context.Context, message string) string
}

type LinkResponder interface {
	Redirect(intent string) string
}

type BookingDialog interface {
	Step(ctx context.Context, state booking.State, message string, history []llms.ChatMessage) booking.Result
}

// Routes groups intent labels by strategy. Labels in none of the sets,
// including "unknown", go to the knowledge responder.
type Routes struct {
	SmallTalk map[string]bool
	Booking   map[string]bool
	Link      map[string]bool
}

func DefaultRoutes() Routes {
	return Routes{
		SmallTalk: set("selamla", "veda", "teşekkür", "yardım"),
		Booking:   set("fiyat_sorgulama", "rezervasyon_oluşturma"),
		Link:      set("rezervasyon_değiştirme", "rezervasyon_iptali", "rezervasyon_durumu"),
	}
}

func (r Routes) RouteFor(intent string) Route {
	switch {
	case r.SmallTalk[intent]:
		return RouteSmallTalk
	case r.Booking[intent]:
		return RouteBooking
	case r.Link[intent]:
		return RouteLink
	default:
		return RouteKnowledge
	}
}

// Deps are the strategies a Dispatcher routes between.
type Deps struct {
	Classifier Classifier
	Knowledge  KnowledgeResponder
	SmallTalk  SmallTalkResponder
	Links      LinkResponder
	Booking    BookingDialog
	Routes     Routes
}

// Reply is the outcome of one turn.
type Reply struct {
	Text            string
	Route           Route
	Intent          string
	Score           float64
	BookingComplete bool
	BookingURL      string
	MissingSlots    []string
}

type Dispatcher struct {
	deps   Deps
	logger *zap.Logger
}

func New(deps Deps, logger *zap.Logger) *Dispatcher {
	if deps.Routes.SmallTalk == nil && deps.Routes.Booking == nil && deps.Routes.Link == nil {
		deps.Routes = DefaultRoutes()
	}
	return &Dispatcher{deps: deps, logger: logger}
}

// Handle answers one user message and updates session's dialog mode and
// booking state in place. It always returns a reply.
func (d *Dispatcher) Handle(ctx context.Context, session *memory.Session, history []llms.ChatMessage, text string) (reply Reply) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("turn panicked",
				zap.String("session_id", session.SessionID),
				zap.String("panic", fmt.Sprint(r)),
			)
			reply = Reply{Text: prompts.FallbackMessage, Route: RouteError}
		}
	}()

	if session.InBooking() {
		return d.continueBooking(ctx, session, history, text)
	}

	label, score := d.deps.Classifier.Classify(ctx, text)
	session.Metadata.LastIntent = label
	route := d.deps.Routes.RouteFor(label)
	metrics.RoutesTotal.WithLabelValues(string(route)).Inc()

	d.logger.Info("intent classified",
		zap.String("session_id", session.SessionID),
		zap.String("intent", label),
		zap.Float64("score", score),
		zap.String("route", string(route)),
	)

	switch route {
	case RouteSmallTalk:
		reply = Reply{Text: d.deps.SmallTalk.Respond(ctx, text)}
	case RouteBooking:
		session.StartBooking()
		reply = d.bookingStep(ctx, session, history, text)
	case RouteLink:
		reply = Reply{Text: d.deps.Links.Redirect(label)}
	default:
		reply = Reply{Text: d.deps.Knowledge.Answer(ctx, text)}
	}

	reply.Route = route
	reply.Intent = label
	reply.Score = score
	return reply
}

func (d *Dispatcher) continueBooking(ctx context.Context, session *memory.Session, history []llms.ChatMessage, text string) Reply {
	metrics.RoutesTotal.WithLabelValues(string(RouteBooking)).Inc()

	if booking.IsCancel(text) {
		session.EndBooking()
		metrics.BookingTurns.WithLabelValues("cancelled").Inc()
		d.logger.Info("booking cancelled", zap.String("session_id", session.SessionID))
		return Reply{Text: prompts.BookingCancelled, Route: RouteBooking}
	}

	reply := d.bookingStep(ctx, session, history, text)
	reply.Route = RouteBooking
	return reply
}

func (d *Dispatcher) bookingStep(ctx context.Context, session *memory.Session, history []llms.ChatMessage, text string) Reply {
	res := d.deps.Booking.Step(ctx, session.Booking, text, history)

	outcome := "collecting"
	switch {
	case res.Complete:
		outcome = "complete"
		session.EndBooking()
	case res.Failed:
		outcome = "error"
		session.Booking = res.State
	default:
		session.Booking = res.State
	}
	metrics.BookingTurns.WithLabelValues(outcome).Inc()

	missing := make([]string, len(res.Missing))
	for i, s := range res.Missing {
		missing[i] = string(s)
	}

	d.logger.Info("booking step",
		zap.String("session_id", session.SessionID),
		zap.String("outcome", outcome),
		zap.Strings("missing", missing),
	)

	return Reply{
		Text:            res.Reply,
		BookingComplete: res.Complete,
		BookingURL:      res.URL,
		MissingSlots:    missing,
	}
}

func set(values ...string) map[string]bool {
	m := make(map[string]bool, len(values))
	for _, v := range values {
		m[v] = true
	}
	return m
}
