package smalltalk

import (
	"context"
	"errors"
	"testing"

	"github.com/avvvet/hotel-concierge/internal/llm"
	"github.com/avvvet/hotel-concierge/internal/prompts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRespond(t *testing.T) {
	gen := &llm.MockGenerator{Responses: []string{"Merhaba, hoş geldiniz!"}}
	r := NewResponder(gen, "gpt-4o-mini", zap.NewNop())

	assert.Equal(t, "Merhaba, hoş geldiniz!", r.Respond(context.Background(), "selam"))

	require.Equal(t, 1, gen.Calls())
	req := gen.Requests[0]
	assert.Equal(t, 0.7, req.Temperature)
	assert.Equal(t, 150, req.MaxTokens)
	assert.Equal(t, "gpt-4o-mini", req.Model)
	assert.Equal(t, "selam", req.UserMessage)
}

func TestRespondFallback(t *testing.T) {
	r := NewResponder(&llm.MockGenerator{Error: errors.New("down")}, "", zap.NewNop())
	assert.Equal(t, prompts.SmallTalkFallbacks[0], r.Respond(context.Background(), "teşekkürler"))

	r = NewResponder(&llm.MockGenerator{Responses: []string{""}}, "", zap.NewNop())
	assert.Equal(t, prompts.SmallTalkFallbacks[0], r.Respond(context.Background(), "teşekkürler"))
}
