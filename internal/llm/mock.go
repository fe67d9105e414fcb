package llm

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"sync"
	"unicode"
)

// MockGenerator is a scripted Generator for tests.
type MockGenerator struct {
	mu        sync.Mutex
	Responses []string // returned in order; the last one repeats
	Error     error
	Requests  []*LLMRequest
}

func (m *MockGenerator) Complete(ctx context.Context, request *LLMRequest) (*LLMResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Requests = append(m.Requests, request)
	if m.Error != nil {
		return nil, m.Error
	}
	if len(m.Responses) == 0 {
		return &LLMResponse{Usage: &Usage{}}, nil
	}
	idx := len(m.Requests) - 1
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	}
	return &LLMResponse{Content: m.Responses[idx], Usage: &Usage{}}, nil
}

func (m *MockGenerator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

// MockEmbedder returns deterministic bag-of-words vectors. FailTimes makes
// the first calls fail with Error.
type MockEmbedder struct {
	mu        sync.Mutex
	Dim       int
	Error     error
	FailTimes int
	calls     int
}

func (m *MockEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.calls++
	calls := m.calls
	m.mu.Unlock()

	if m.Error != nil && (m.FailTimes == 0 || calls <= m.FailTimes) {
		return nil, m.Error
	}

	dim := m.Dim
	if dim <= 0 {
		dim = 64
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = HashVector(t, dim)
	}
	return out, nil
}

func (m *MockEmbedder) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// HashVector buckets lower-cased words into dim dimensions and normalizes
// the result. Identical texts map to identical vectors.
func HashVector(text string, dim int) []float32 {
	v := make([]float32, dim)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		v[h.Sum32()%uint32(dim)]++
	}

	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		return v
	}
	norm = math.Sqrt(norm)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v
}
