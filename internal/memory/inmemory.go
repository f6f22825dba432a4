package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// InMemoryStore is an in-memory implementation of Store for
// session-scoped memory. All data is lost when the process exits.
type InMemoryStore struct {
	mu    sync.RWMutex
	items map[string]Item
}

// NewInMemoryStore creates a new in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		items: make(map[string]Item),
	}
}

// Add stores items, assigning IDs where absent.
func (s *InMemoryStore) Add(ctx context.Context, items []Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range items {
		if len(item.Vector) == 0 {
			continue
		}
		if item.ID == "" {
			item.ID = uuid.New().String()
		}
		s.items[item.ID] = item
	}
	return nil
}

// Search returns the nearest stored items by cosine similarity.
func (s *InMemoryStore) Search(ctx context.Context, queryVector []float32, limit int, filter map[string]string) ([]Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.items) == 0 || len(queryVector) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 5
	}

	type scored struct {
		item  Item
		score float32
	}

	var results []scored
	for _, item := range s.items {
		if !matchesFilter(item.Metadata, filter) {
			continue
		}
		results = append(results, scored{
			item:  item,
			score: cosineSimilarity(queryVector, item.Vector),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})

	if len(results) > limit {
		results = results[:limit]
	}

	out := make([]Item, 0, len(results))
	for _, r := range results {
		out = append(out, r.item)
	}
	return out, nil
}

// Delete removes items by ID.
func (s *InMemoryStore) Delete(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.items, id)
	}
	return nil
}

// Close implements Store.
func (s *InMemoryStore) Close() error {
	return nil
}

// matchesFilter reports whether metadata satisfies every filter entry.
func matchesFilter(metadata, filter map[string]string) bool {
	for k, v := range filter {
		if metadata[k] != v {
			return false
		}
	}
	return true
}

// cosineSimilarity calculates the cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return float32(dotProduct / (math.Sqrt(normA) * math.Sqrt(normB)))
}
