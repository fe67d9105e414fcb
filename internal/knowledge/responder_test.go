package knowledge

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/avvvet/hotel-concierge/internal/llm"
	"github.com/avvvet/hotel-concierge/internal/prompts"
	"github.com/avvvet/hotel-concierge/internal/vectorstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func seededIndex(t *testing.T, embedder llm.Embedder, texts ...string) *vectorstore.MemoryIndex {
	t.Helper()
	idx := vectorstore.NewMemoryIndex(64)
	vectors, err := embedder.EmbedDocuments(context.Background(), texts)
	require.NoError(t, err)
	records := make([]vectorstore.Record, len(texts))
	for i, text := range texts {
		records[i] = vectorstore.Record{ID: fmt.Sprintf("chunk-%d", i), Text: text, Vector: vectors[i]}
	}
	require.NoError(t, idx.Upsert(context.Background(), records))
	return idx
}

func TestAnswerUsesRetrievedContext(t *testing.T) {
	embedder := &llm.MockEmbedder{Dim: 64}
	idx := seededIndex(t, embedder,
		"Kahvaltı her gün 07:00 ile 10:30 arasında servis edilir.",
		"Açık havuz yaz aylarında 09:00-19:00 arası hizmet verir.",
	)
	gen := &llm.MockGenerator{Responses: []string{"Kahvaltı 07:00'de başlar."}}
	r := NewResponder(embedder, idx, gen, DefaultTopN, zap.NewNop())

	answer := r.Answer(context.Background(), "Kahvaltı saat kaçta?")

	assert.Equal(t, "Kahvaltı 07:00'de başlar.", answer)
	require.Equal(t, 1, gen.Calls())
	req := gen.Requests[0]
	assert.Equal(t, 0.1, req.Temperature)
	assert.Equal(t, 500, req.MaxTokens)
	require.Len(t, req.SystemPrompts, 2)
	assert.Contains(t, req.SystemPrompts[1], "07:00 ile 10:30")
	assert.Contains(t, req.SystemPrompts[1], "Açık havuz")
}

func TestAnswerWithoutChunks(t *testing.T) {
	embedder := &llm.MockEmbedder{Dim: 64}
	gen := &llm.MockGenerator{Responses: []string{"uydurma cevap"}}
	r := NewResponder(embedder, vectorstore.NewMemoryIndex(64), gen, DefaultTopN, zap.NewNop())

	answer := r.Answer(context.Background(), "Spa var mı?")

	assert.Equal(t, prompts.InsufficientKnowledge, answer)
	assert.Zero(t, gen.Calls())
}

func TestAnswerFailures(t *testing.T) {
	ctx := context.Background()

	r := NewResponder(&llm.MockEmbedder{Error: errors.New("quota")}, vectorstore.NewMemoryIndex(64), &llm.MockGenerator{}, 0, zap.NewNop())
	assert.Equal(t, prompts.KnowledgeApology, r.Answer(ctx, "otopark var mı?"))

	embedder := &llm.MockEmbedder{Dim: 64}
	idx := seededIndex(t, embedder, "Ücretsiz otopark mevcuttur.")
	r = NewResponder(embedder, idx, &llm.MockGenerator{Error: errors.New("timeout")}, 0, zap.NewNop())
	assert.Equal(t, prompts.KnowledgeApology, r.Answer(ctx, "otopark var mı?"))
}
