package vectorstore

import (
	"context"
	"math"
)

// Record is a document to be stored with its embedding.
type Record struct {
	ID       string
	Text     string
	Metadata map[string]string
	Vector   []float32
}

// Match is a query hit. Distance is cosine distance, lower is closer.
type Match struct {
	ID       string
	Text     string
	Metadata map[string]string
	Distance float64
}

// Index is a nearest-neighbour store. Query returns at most k matches,
// nearest first.
type Index interface {
	Query(ctx context.Context, vector []float32, k int) ([]Match, error)
	Upsert(ctx context.Context, records []Record) error
}

// CosineDistance returns 1 - cos(a, b). Zero vectors are at distance 1.
func CosineDistance(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	for _, x := range a {
		na += float64(x) * float64(x)
	}
	for _, x := range b {
		nb += float64(x) * float64(x)
	}
	if na == 0 || nb == 0 {
		return 1
	}
	d := 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
	if d < 0 {
		return 0
	}
	return d
}
