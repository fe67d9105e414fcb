package vectorstore

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	fieldText      = "text"
	fieldMetadata  = "metadata"
	fieldEmbedding = "embedding"
	fieldDistance  = "vector_distance"
)

// RedisIndex stores records as hashes and queries them through a
// RediSearch HNSW vector index.
type RedisIndex struct {
	client *redis.Client
	name   string
	prefix string
	dim    int
	logger *zap.Logger
}

// ConnectRedis parses url and verifies the server answers. RediSearch
// replies are only decoded with RESP2.
func ConnectRedis(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	opt.Protocol = 2
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

func NewRedisIndex(client *redis.Client, name string, dim int, logger *zap.Logger) *RedisIndex {
	return &RedisIndex{
		client: client,
		name:   name,
		prefix: name + ":doc:",
		dim:    dim,
		logger: logger,
	}
}

// EnsureIndex creates the search index if it does not exist yet.
func (r *RedisIndex) EnsureIndex(ctx context.Context) error {
	_, err := r.client.FTCreate(ctx, r.name,
		&redis.FTCreateOptions{
			OnHash: true,
			Prefix: []interface{}{r.prefix},
		},
		&redis.FieldSchema{
			FieldName: fieldText,
			FieldType: redis.SearchFieldTypeText,
		},
		&redis.FieldSchema{
			FieldName: fieldEmbedding,
			FieldType: redis.SearchFieldTypeVector,
			VectorArgs: &redis.FTVectorArgs{
				HNSWOptions: &redis.FTHNSWOptions{
					Type:           "FLOAT32",
					Dim:            r.dim,
					DistanceMetric: "COSINE",
				},
			},
		},
	).Result()
	if err != nil && !strings.Contains(err.Error(), "Index already exists") {
		return fmt.Errorf("failed to create index %s: %w", r.name, err)
	}
	if err == nil {
		r.logger.Info("created vector index", zap.String("index", r.name), zap.Int("dim", r.dim))
	}
	return nil
}

func (r *RedisIndex) Upsert(ctx context.Context, records []Record) error {
	pipe := r.client.Pipeline()
	for _, rec := range records {
		if len(rec.Vector) != r.dim {
			return fmt.Errorf("record %s has dimension %d, index expects %d", rec.ID, len(rec.Vector), r.dim)
		}
		meta, err := json.Marshal(rec.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata for %s: %w", rec.ID, err)
		}
		pipe.HSet(ctx, r.prefix+rec.ID,
			fieldText, rec.Text,
			fieldMetadata, string(meta),
			fieldEmbedding, EncodeVector(rec.Vector),
		)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to upsert %d records: %w", len(records), err)
	}
	return nil
}

func (r *RedisIndex) Query(ctx context.Context, vector []float32, k int) ([]Match, error) {
	if k <= 0 {
		return nil, nil
	}
	query, options := r.knnSearch(vector, k)

	res, err := r.client.FTSearchWithArgs(ctx, r.name, query, options).Result()
	if err != nil {
		return nil, fmt.Errorf("vector search on %s failed: %w", r.name, err)
	}
	return r.decodeMatches(res.Docs), nil
}

// knnSearch builds the KNN query and its arguments: nearest k by cosine
// distance, closest first.
func (r *RedisIndex) knnSearch(vector []float32, k int) (string, *redis.FTSearchOptions) {
	query := fmt.Sprintf("*=>[KNN %d @%s $vec AS %s]", k, fieldEmbedding, fieldDistance)
	return query, &redis.FTSearchOptions{
		Return: []redis.FTSearchReturn{
			{FieldName: fieldDistance},
			{FieldName: fieldText},
			{FieldName: fieldMetadata},
		},
		SortBy:         []redis.FTSearchSortBy{{FieldName: fieldDistance, Asc: true}},
		DialectVersion: 2,
		Params:         map[string]interface{}{"vec": EncodeVector(vector)},
		LimitOffset:    0,
		Limit:          k,
	}
}

func (r *RedisIndex) decodeMatches(docs []redis.Document) []Match {
	matches := make([]Match, 0, len(docs))
	for _, doc := range docs {
		dist, err := strconv.ParseFloat(doc.Fields[fieldDistance], 64)
		if err != nil {
			r.logger.Warn("skipping document with bad distance", zap.String("id", doc.ID), zap.Error(err))
			continue
		}
		var meta map[string]string
		if raw := doc.Fields[fieldMetadata]; raw != "" {
			if err := json.Unmarshal([]byte(raw), &meta); err != nil {
				r.logger.Warn("skipping document with bad metadata", zap.String("id", doc.ID), zap.Error(err))
				continue
			}
		}
		matches = append(matches, Match{
			ID:       strings.TrimPrefix(doc.ID, r.prefix),
			Text:     doc.Fields[fieldText],
			Metadata: meta,
			Distance: dist,
		})
	}
	return matches
}

// EncodeVector packs v as little-endian float32, the layout RediSearch
// expects for FLOAT32 vectors.
func EncodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(x))
	}
	return buf
}

func DecodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
