package memory

import (
	"context"
	"testing"
)

func TestInMemoryAddAssignsIDs(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	err := store.Add(ctx, []Item{
		{Content: "first", Vector: []float32{1, 0}},
		{Content: "second", Vector: []float32{0, 1}},
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	items, err := store.Search(ctx, []float32{1, 0}, 10, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("stored items = %d, want 2", len(items))
	}
	for _, item := range items {
		if item.ID == "" {
			t.Error("item stored without an ID")
		}
	}
}

func TestInMemorySearchRanksBySimilarity(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	store.Add(ctx, []Item{
		{ID: "exact", Content: "exact match", Vector: []float32{1, 0, 0}},
		{ID: "close", Content: "close match", Vector: []float32{0.9, 0.1, 0}},
		{ID: "far", Content: "unrelated", Vector: []float32{0, 0, 1}},
	})

	items, err := store.Search(ctx, []float32{1, 0, 0}, 2, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("results = %d, want 2", len(items))
	}
	if items[0].ID != "exact" {
		t.Errorf("top result = %q, want exact", items[0].ID)
	}
	if items[1].ID != "close" {
		t.Errorf("second result = %q, want close", items[1].ID)
	}
}

func TestInMemorySearchFilter(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	store.Add(ctx, []Item{
		{ID: "a", Vector: []float32{1, 0}, Metadata: map[string]string{"project": "alpha"}},
		{ID: "b", Vector: []float32{1, 0}, Metadata: map[string]string{"project": "beta"}},
	})

	items, err := store.Search(ctx, []float32{1, 0}, 10, map[string]string{"project": "alpha"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(items) != 1 || items[0].ID != "a" {
		t.Errorf("filtered results = %v, want only item a", items)
	}
}

func TestInMemorySearchEmptyStore(t *testing.T) {
	store := NewInMemoryStore()
	items, err := store.Search(context.Background(), []float32{1, 0}, 5, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("results = %d, want 0", len(items))
	}
}

func TestInMemoryDelete(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	store.Add(ctx, []Item{{ID: "a", Vector: []float32{1, 0}}})
	if err := store.Delete(ctx, []string{"a"}); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	items, _ := store.Search(ctx, []float32{1, 0}, 5, nil)
	if len(items) != 0 {
		t.Errorf("items after delete = %d, want 0", len(items))
	}
}

func TestInMemorySkipsVectorlessItems(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	store.Add(ctx, []Item{{ID: "novec", Content: "no vector"}})

	items, _ := store.Search(ctx, []float32{1, 0}, 5, nil)
	if len(items) != 0 {
		t.Errorf("vectorless item was stored: %v", items)
	}
}

func TestCosineSimilarity(t *testing.T) {
	if got := cosineSimilarity([]float32{1, 0}, []float32{1, 0}); got < 0.999 {
		t.Errorf("identical vectors similarity = %f, want ~1", got)
	}
	if got := cosineSimilarity([]float32{1, 0}, []float32{0, 1}); got != 0 {
		t.Errorf("orthogonal vectors similarity = %f, want 0", got)
	}
	if got := cosineSimilarity([]float32{1, 0}, []float32{1}); got != 0 {
		t.Errorf("mismatched lengths similarity = %f, want 0", got)
	}
}
