package booking

import (
	"context"
	"regexp"

	"github.com/avvvet/hotel-concierge/internal/llm"
	"github.com/avvvet/hotel-concierge/internal/prompts"
	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"
)

const (
	enrichTemperature = 0.1
	enrichMaxTokens   = 300
)

var cancelRe = regexp.MustCompile(`(?i)(?:^|[^\p{L}])(?:vazgeç|vazgec|iptal et|cancel)`)

// IsCancel reports whether message asks to abandon the booking dialog.
func IsCancel(message string) bool {
	return cancelRe.MatchString(message)
}

// Result is the outcome of one dialog turn.
type Result struct {
	State    State
	Reply    string
	Complete bool
	URL      string
	Missing  []Slot
	// Failed is set when a fallback apology was returned.
	Failed bool
}

// Dialog collects reservation details across turns and emits a booking
// link once every required slot is known.
type Dialog struct {
	generator llm.Generator
	urls      *URLBuilder
	logger    *zap.Logger
}

func NewDialog(generator llm.Generator, urls *URLBuilder, logger *zap.Logger) *Dialog {
	return &Dialog{generator: generator, urls: urls, logger: logger}
}

// Step runs the deterministic pass, asks the hosted model only when slots
// remain, and completes the booking when nothing is missing. It never
// returns an error; failures become an apology with Complete=false.
func (d *Dialog) Step(ctx context.Context, state State, message string, history []llms.ChatMessage) Result {
	next := Extract(state, message)
	if next.Complete() {
		return d.complete(next)
	}

	missing := next.Missing()
	resp, err := d.generator.Complete(ctx, &llm.LLMRequest{
		SystemPrompts: []string{
			prompts.BookingSystemPrompt,
			prompts.BuildBookingStatePrompt(next.String(), slotNames(missing)),
		},
		History:     history,
		UserMessage: message,
		Temperature: enrichTemperature,
		MaxTokens:   enrichMaxTokens,
	})
	if err != nil {
		d.logger.Warn("booking enrichment failed", zap.Error(err), zap.Strings("missing", slotNames(missing)))
		return Result{State: next, Reply: prompts.BookingEnrichFailure, Missing: missing, Failed: true}
	}

	out := ParseModelOutput(resp.Content)
	merged, accepted := Merge(next, out.Fields)
	d.logger.Debug("booking fields merged",
		zap.Strings("accepted", slotNames(accepted)),
		zap.Int("proposed", len(out.Fields)),
	)

	if merged.Complete() {
		return d.complete(merged)
	}

	remaining := merged.Missing()
	reply := out.Reply
	if reply == "" {
		reply = prompts.SlotQuestion(string(remaining[0]))
	}
	return Result{State: merged, Reply: reply, Missing: remaining}
}

func (d *Dialog) complete(s State) Result {
	link, err := d.urls.FromState(s)
	if err != nil {
		d.logger.Error("failed to build booking url", zap.Error(err), zap.String("state", s.String()))
		return Result{State: s, Reply: prompts.BookingFailureMessage, Missing: s.Missing(), Failed: true}
	}
	return Result{State: s, Reply: prompts.BookingComplete(link), Complete: true, URL: link}
}

func slotNames(slots []Slot) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = string(s)
	}
	return out
}
