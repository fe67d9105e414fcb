package dispatch

import (
	"context"
	"testing"

	"github.com/avvvet/hotel-concierge/internal/booking"
	"github.com/avvvet/hotel-concierge/internal/llm"
	"github.com/avvvet/hotel-concierge/internal/memory"
	"github.com/avvvet/hotel-concierge/internal/prompts"
	"github.com/avvvet/hotel-concierge/internal/redirect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"
)

type stubClassifier struct {
	label string
	score float64
	calls int
}

func (s *stubClassifier) Classify(context.Context, string) (string, float64) {
	s.calls++
	return s.label, s.score
}

type stubResponder struct {
	reply string
	calls int
}

func (s *stubResponder) Answer(context.Context, string) string {
	s.calls++
	return s.reply
}

func (s *stubResponder) Respond(context.Context, string) string {
	s.calls++
	return s.reply
}

type panickingResponder struct{}

func (panickingResponder) Answer(context.Context, string) string { panic("nil index") }

type fixture struct {
	classifier *stubClassifier
	knowledge  *stubResponder
	smalltalk  *stubResponder
	generator  *llm.MockGenerator
	dispatcher *Dispatcher
}

func newFixture(label string) *fixture {
	f := &fixture{
		classifier: &stubClassifier{label: label, score: 0.12},
		knowledge:  &stubResponder{reply: "Havuz 09:00'da açılır."},
		smalltalk:  &stubResponder{reply: "Merhaba!"},
		generator:  &llm.MockGenerator{Responses: []string{"Çıkış tarihiniz nedir?"}},
	}
	f.dispatcher = New(Deps{
		Classifier: f.classifier,
		Knowledge:  f.knowledge,
		SmallTalk:  f.smalltalk,
		Links:      redirect.New(redirect.DefaultLinks()),
		Booking:    booking.NewDialog(f.generator, booking.NewURLBuilder(booking.DefaultURLConfig()), zap.NewNop()),
	}, zap.NewNop())
	return f
}

func TestRouteFor(t *testing.T) {
	r := DefaultRoutes()
	tests := map[string]Route{
		"selamla":                RouteSmallTalk,
		"veda":                   RouteSmallTalk,
		"teşekkür":               RouteSmallTalk,
		"yardım":                 RouteSmallTalk,
		"fiyat_sorgulama":        RouteBooking,
		"rezervasyon_oluşturma":  RouteBooking,
		"rezervasyon_değiştirme": RouteLink,
		"rezervasyon_iptali":     RouteLink,
		"rezervasyon_durumu":     RouteLink,
		"havuz_saatleri":         RouteKnowledge,
		"unknown":                RouteKnowledge,
	}
	for intent, want := range tests {
		assert.Equal(t, want, r.RouteFor(intent), intent)
	}
}

func TestHandleSmallTalk(t *testing.T) {
	f := newFixture("selamla")
	s := memory.NewSession("s")

	reply := f.dispatcher.Handle(context.Background(), s, nil, "selam")

	assert.Equal(t, "Merhaba!", reply.Text)
	assert.Equal(t, RouteSmallTalk, reply.Route)
	assert.Equal(t, "selamla", reply.Intent)
	assert.Equal(t, 0.12, reply.Score)
	assert.Equal(t, "selamla", s.Metadata.LastIntent)
	assert.False(t, s.InBooking())
}

func TestHandleLink(t *testing.T) {
	f := newFixture("rezervasyon_iptali")
	reply := f.dispatcher.Handle(context.Background(), memory.NewSession("s"), nil, "rezervasyonumu iptal etmek istiyorum")

	assert.Equal(t, RouteLink, reply.Route)
	assert.Contains(t, reply.Text, "https://cullinan.com.tr/rezervasyon/iptal")
}

func TestHandleUnknownGoesToKnowledge(t *testing.T) {
	f := newFixture("unknown")
	reply := f.dispatcher.Handle(context.Background(), memory.NewSession("s"), nil, "havuz kaçta açılıyor")

	assert.Equal(t, RouteKnowledge, reply.Route)
	assert.Equal(t, "Havuz 09:00'da açılır.", reply.Text)
	assert.Equal(t, 1, f.knowledge.calls)
}

func TestHandleBookingFlow(t *testing.T) {
	f := newFixture("rezervasyon_oluşturma")
	s := memory.NewSession("s")
	ctx := context.Background()

	first := f.dispatcher.Handle(ctx, s, nil, "2 oda, 3 yetişkin, 15 Ocak 2025 giriş")
	assert.Equal(t, RouteBooking, first.Route)
	assert.Equal(t, "Çıkış tarihiniz nedir?", first.Text)
	assert.Equal(t, []string{"check_out_date", "child_count"}, first.MissingSlots)
	assert.True(t, s.InBooking())
	assert.Equal(t, "2025-01-15", s.Booking.CheckIn)

	history := []llms.ChatMessage{llms.HumanChatMessage{Content: "2 oda"}, llms.AIChatMessage{Content: first.Text}}
	second := f.dispatcher.Handle(ctx, s, history, "18 Ocak 2025 çıkış, çocuk yok")
	require.True(t, second.BookingComplete)
	assert.Equal(t, RouteBooking, second.Route)
	assert.Contains(t, second.BookingURL, "datein=01/15/2025&dateout=01/18/2025&rooms=2")
	assert.Equal(t, prompts.BookingComplete(second.BookingURL), second.Text)

	assert.False(t, s.InBooking())
	assert.True(t, s.Booking.IsEmpty())
	assert.Equal(t, 1, f.classifier.calls, "mid-booking turns skip classification")
	assert.Equal(t, 1, f.generator.Calls())
}

func TestHandleBookingCancel(t *testing.T) {
	f := newFixture("fiyat_sorgulama")
	s := memory.NewSession("s")
	ctx := context.Background()

	f.dispatcher.Handle(ctx, s, nil, "fiyat öğrenmek istiyorum")
	require.True(t, s.InBooking())

	reply := f.dispatcher.Handle(ctx, s, nil, "vazgeçtim")
	assert.Equal(t, prompts.BookingCancelled, reply.Text)
	assert.False(t, s.InBooking())
}

func TestHandleBookingModelFailureKeepsMode(t *testing.T) {
	f := newFixture("rezervasyon_oluşturma")
	f.generator.Error = assert.AnError
	s := memory.NewSession("s")

	reply := f.dispatcher.Handle(context.Background(), s, nil, "2 oda")

	assert.Equal(t, prompts.BookingEnrichFailure, reply.Text)
	assert.False(t, reply.BookingComplete)
	assert.True(t, s.InBooking())
	require.NotNil(t, s.Booking.Rooms)
}

func TestHandleRecoversFromPanic(t *testing.T) {
	d := New(Deps{
		Classifier: &stubClassifier{label: "unknown"},
		Knowledge:  panickingResponder{},
	}, zap.NewNop())

	reply := d.Handle(context.Background(), memory.NewSession("s"), nil, "soru")
	assert.Equal(t, prompts.FallbackMessage, reply.Text)
	assert.Equal(t, RouteError, reply.Route)
}
