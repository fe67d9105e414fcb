package corpus

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/avvvet/hotel-concierge/internal/intent"
	"github.com/avvvet/hotel-concierge/internal/llm"
	"github.com/avvvet/hotel-concierge/internal/vectorstore"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	DefaultBatchSize = 100

	TopicKey = "topic"
)

// IntentCorpus is the labelled example set the intent matcher votes over.
type IntentCorpus struct {
	Intents []IntentExamples `yaml:"intents"`
}

type IntentExamples struct {
	Intent   string   `yaml:"intent"`
	Examples []string `yaml:"examples"`
}

// KnowledgeCorpus holds the hotel facts answered from by the RAG responder.
type KnowledgeCorpus struct {
	Chunks []Chunk `yaml:"chunks"`
}

type Chunk struct {
	ID    string `yaml:"id"`
	Topic string `yaml:"topic"`
	Text  string `yaml:"text"`
}

func LoadIntents(path string) (*IntentCorpus, error) {
	var c IntentCorpus
	if err := readYAML(path, &c); err != nil {
		return nil, err
	}
	for i, group := range c.Intents {
		if strings.TrimSpace(group.Intent) == "" {
			return nil, fmt.Errorf("%s: intent #%d has no label", path, i+1)
		}
		if len(group.Examples) == 0 {
			return nil, fmt.Errorf("%s: intent %q has no examples", path, group.Intent)
		}
	}
	return &c, nil
}

func LoadKnowledge(path string) (*KnowledgeCorpus, error) {
	var c KnowledgeCorpus
	if err := readYAML(path, &c); err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(c.Chunks))
	for i, chunk := range c.Chunks {
		if strings.TrimSpace(chunk.Text) == "" {
			return nil, fmt.Errorf("%s: chunk #%d is empty", path, i+1)
		}
		if chunk.ID != "" {
			if seen[chunk.ID] {
				return nil, fmt.Errorf("%s: duplicate chunk id %q", path, chunk.ID)
			}
			seen[chunk.ID] = true
		}
	}
	return &c, nil
}

func readYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read corpus: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// Records flattens the corpus into one record per example, labelled under
// intent.LabelKey. Order follows the file.
func (c *IntentCorpus) Records() []vectorstore.Record {
	var records []vectorstore.Record
	for _, group := range c.Intents {
		for i, example := range group.Examples {
			records = append(records, vectorstore.Record{
				ID:       fmt.Sprintf("intent:%s:%d", group.Intent, i),
				Text:     example,
				Metadata: map[string]string{intent.LabelKey: group.Intent},
			})
		}
	}
	return records
}

func (c *KnowledgeCorpus) Records() []vectorstore.Record {
	records := make([]vectorstore.Record, 0, len(c.Chunks))
	for i, chunk := range c.Chunks {
		id := chunk.ID
		if id == "" {
			id = fmt.Sprintf("chunk:%d", i)
		}
		meta := map[string]string{}
		if chunk.Topic != "" {
			meta[TopicKey] = chunk.Topic
		}
		records = append(records, vectorstore.Record{
			ID:       id,
			Text:     strings.TrimSpace(chunk.Text),
			Metadata: meta,
		})
	}
	return records
}

// Seed embeds records in batches and upserts them into index. It returns the
// number of records written before any error.
func Seed(ctx context.Context, embedder llm.Embedder, index vectorstore.Index, records []vectorstore.Record, batchSize int, logger *zap.Logger) (int, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	written := 0
	for start := 0; start < len(records); start += batchSize {
		end := min(start+batchSize, len(records))
		batch := make([]vectorstore.Record, end-start)
		copy(batch, records[start:end])

		texts := make([]string, len(batch))
		for i, r := range batch {
			texts[i] = r.Text
		}

		vectors, err := embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			return written, fmt.Errorf("failed to embed batch at %d: %w", start, err)
		}
		if len(vectors) != len(batch) {
			return written, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(batch))
		}
		for i := range batch {
			batch[i].Vector = vectors[i]
		}

		if err := index.Upsert(ctx, batch); err != nil {
			return written, fmt.Errorf("failed to upsert batch at %d: %w", start, err)
		}
		written += len(batch)

		logger.Info("corpus batch seeded",
			zap.Int("batch", start/batchSize+1),
			zap.Int("records", len(batch)),
			zap.Int("total", written),
		)
	}
	return written, nil
}
