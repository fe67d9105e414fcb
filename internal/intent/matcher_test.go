package intent

import (
	"context"
	"errors"
	"testing"

	"github.com/avvvet/hotel-concierge/internal/llm"
	"github.com/avvvet/hotel-concierge/internal/vectorstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func labelled(label string, distance float64) vectorstore.Match {
	return vectorstore.Match{Metadata: map[string]string{LabelKey: label}, Distance: distance}
}

func TestVote(t *testing.T) {
	tests := []struct {
		name    string
		matches []vectorstore.Match
		label   string
		score   float64
	}{
		{"empty", nil, Unknown, UnknownScore},
		{"single", []vectorstore.Match{labelled("selamla", 0.1)}, "selamla", 0.1},
		{"plurality", []vectorstore.Match{labelled("veda", 0.1), labelled("selamla", 0.2), labelled("selamla", 0.3)}, "selamla", 0.2},
		{"tie goes to first seen", []vectorstore.Match{labelled("veda", 0.15), labelled("selamla", 0.2)}, "veda", 0.15},
		{"unlabelled ignored", []vectorstore.Match{{Distance: 0.01}, labelled("yardım", 0.4)}, "yardım", 0.4},
		{"only unlabelled", []vectorstore.Match{{Distance: 0.01}}, Unknown, UnknownScore},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, score := Vote(tt.matches)
			assert.Equal(t, tt.label, label)
			assert.Equal(t, tt.score, score)
		})
	}
}

type failingIndex struct{}

func (failingIndex) Query(context.Context, []float32, int) ([]vectorstore.Match, error) {
	return nil, errors.New("index offline")
}

func (failingIndex) Upsert(context.Context, []vectorstore.Record) error { return nil }

func seededMatcher(t *testing.T) *Matcher {
	t.Helper()
	ctx := context.Background()
	embedder := &llm.MockEmbedder{Dim: 128}
	index := vectorstore.NewMemoryIndex(128)

	examples := []struct {
		label string
		texts []string
	}{
		{"veda", []string{"görüşmek üzere", "hoşça kalın"}},
		{"selamla", []string{"merhaba", "selam", "nasılsınız", "selam nasılsınız"}},
		{"fiyat_sorgulama", []string{"oda fiyatları ne kadar", "bir gecelik ücret nedir"}},
	}
	var records []vectorstore.Record
	for _, ex := range examples {
		vectors, err := embedder.EmbedDocuments(ctx, ex.texts)
		require.NoError(t, err)
		for i, text := range ex.texts {
			records = append(records, vectorstore.Record{
				ID:       ex.label + "-" + text,
				Text:     text,
				Metadata: map[string]string{LabelKey: ex.label},
				Vector:   vectors[i],
			})
		}
	}
	require.NoError(t, index.Upsert(ctx, records))

	return NewMatcher(embedder, index, DefaultK, zap.NewNop())
}

func TestClassifyVerbatimExample(t *testing.T) {
	m := seededMatcher(t)

	label, score := m.Classify(context.Background(), "selam nasılsınız")

	assert.Equal(t, "selamla", label)
	assert.InDelta(t, 0, score, 1e-6)
}

func TestClassifyDeterministic(t *testing.T) {
	m := seededMatcher(t)
	ctx := context.Background()

	l1, s1 := m.Classify(ctx, "oda fiyatları")
	l2, s2 := m.Classify(ctx, "oda fiyatları")

	assert.Equal(t, l1, l2)
	assert.Equal(t, s1, s2)
}

func TestClassifyEmptyIndex(t *testing.T) {
	m := NewMatcher(&llm.MockEmbedder{Dim: 8}, vectorstore.NewMemoryIndex(8), 3, zap.NewNop())

	label, score := m.Classify(context.Background(), "merhaba")
	assert.Equal(t, Unknown, label)
	assert.Equal(t, UnknownScore, score)
}

func TestClassifyFailures(t *testing.T) {
	ctx := context.Background()

	m := NewMatcher(&llm.MockEmbedder{Error: errors.New("quota")}, vectorstore.NewMemoryIndex(8), 3, zap.NewNop())
	label, score := m.Classify(ctx, "merhaba")
	assert.Equal(t, Unknown, label)
	assert.Equal(t, UnknownScore, score)

	m = NewMatcher(&llm.MockEmbedder{Dim: 8}, failingIndex{}, 3, zap.NewNop())
	label, score = m.Classify(ctx, "merhaba")
	assert.Equal(t, Unknown, label)
	assert.Equal(t, UnknownScore, score)
}
