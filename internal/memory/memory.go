// Package memory provides the memory gateway: vector storage and
// similarity search over past dialogue output.
package memory

import "context"

// Item is a stored memory with its embedding vector.
type Item struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Vector   []float32         `json:"vector,omitempty"`
}

// Store is the memory gateway capability. A nil Store means no memory is
// bound; that decision is made once at construction, never inferred at
// call time.
type Store interface {
	// Add stores items. Items without a vector are skipped.
	Add(ctx context.Context, items []Item) error

	// Search returns up to limit items nearest to the query vector,
	// optionally restricted to items whose metadata matches filter.
	Search(ctx context.Context, queryVector []float32, limit int, filter map[string]string) ([]Item, error)

	// Delete removes items by ID.
	Delete(ctx context.Context, ids []string) error

	// Close releases underlying resources.
	Close() error
}
