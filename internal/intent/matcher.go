package intent

import (
	"context"

	"github.com/avvvet/hotel-concierge/internal/llm"
	"github.com/avvvet/hotel-concierge/internal/metrics"
	"github.com/avvvet/hotel-concierge/internal/vectorstore"
	"go.uber.org/zap"
)

const (
	Unknown      = "unknown"
	UnknownScore = 1.0
	DefaultK     = 3

	// LabelKey is the metadata key holding an example's intent label.
	LabelKey = "intent"
)

// Matcher labels user text by a plurality vote over its nearest example
// phrases.
type Matcher struct {
	embedder llm.Embedder
	index    vectorstore.Index
	k        int
	logger   *zap.Logger
}

func NewMatcher(embedder llm.Embedder, index vectorstore.Index, k int, logger *zap.Logger) *Matcher {
	if k <= 0 {
		k = DefaultK
	}
	return &Matcher{embedder: embedder, index: index, k: k, logger: logger}
}

// Classify returns the winning label and the distance of its nearest
// example. Any failure yields (Unknown, UnknownScore).
func (m *Matcher) Classify(ctx context.Context, text string) (string, float64) {
	vector, err := llm.EmbedQuery(ctx, m.embedder, text)
	if err != nil {
		m.logger.Warn("intent embedding failed", zap.Error(err))
		return m.record(Unknown, UnknownScore)
	}

	matches, err := m.index.Query(ctx, vector, m.k)
	if err != nil {
		m.logger.Warn("intent index query failed", zap.Error(err))
		return m.record(Unknown, UnknownScore)
	}

	label, score := Vote(matches)
	return m.record(label, score)
}

func (m *Matcher) record(label string, score float64) (string, float64) {
	metrics.IntentsTotal.WithLabelValues(label).Inc()
	return label, score
}

// Vote picks the most frequent label. Ties go to the label seen first in
// matches; the score is the distance of that label's first neighbour.
func Vote(matches []vectorstore.Match) (string, float64) {
	counts := make(map[string]int)
	firstDistance := make(map[string]float64)
	var order []string

	for _, match := range matches {
		label := match.Metadata[LabelKey]
		if label == "" {
			continue
		}
		if _, seen := counts[label]; !seen {
			order = append(order, label)
			firstDistance[label] = match.Distance
		}
		counts[label]++
	}

	if len(order) == 0 {
		return Unknown, UnknownScore
	}

	best := order[0]
	for _, label := range order[1:] {
		if counts[label] > counts[best] {
			best = label
		}
	}
	return best, firstDistance[best]
}
