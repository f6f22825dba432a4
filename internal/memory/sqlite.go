package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
)

func init() {
	sqlite_vec.Auto()
}

// SQLiteStore implements Store using SQLite with sqlite-vec for vector
// search. Suitable for memory that must survive across sessions.
type SQLiteStore struct {
	db        *sql.DB
	dimension int
}

// SQLiteConfig configures the SQLite memory store.
type SQLiteConfig struct {
	Path      string
	Dimension int // embedding dimension, e.g. 1536
}

// NewSQLiteStore creates a new SQLite-based memory store.
func NewSQLiteStore(cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("embedding dimension is required")
	}

	db, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{
		db:        db,
		dimension: cfg.Dimension,
	}

	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// init creates the database schema.
func (s *SQLiteStore) init() error {
	// Check sqlite-vec is loaded
	var vecVersion string
	err := s.db.QueryRow("SELECT vec_version()").Scan(&vecVersion)
	if err != nil {
		return fmt.Errorf("sqlite-vec not loaded: %w", err)
	}

	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS items (
		id TEXT PRIMARY KEY,
		content TEXT NOT NULL,
		metadata TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE VIRTUAL TABLE IF NOT EXISTS item_vectors USING vec0(
		id TEXT PRIMARY KEY,
		embedding FLOAT[%d]
	);

	CREATE INDEX IF NOT EXISTS idx_items_created ON items(created_at);
	`, s.dimension)

	_, err = s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// Add stores items with their embeddings.
func (s *SQLiteStore) Add(ctx context.Context, items []Item) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	for _, item := range items {
		if len(item.Vector) == 0 {
			continue
		}
		id := item.ID
		if id == "" {
			id = uuid.New().String()
		}

		var metadataJSON []byte
		if len(item.Metadata) > 0 {
			metadataJSON, _ = json.Marshal(item.Metadata)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO items (id, content, metadata, created_at)
			VALUES (?, ?, ?, ?)
		`, id, item.Content, string(metadataJSON), now)
		if err != nil {
			return fmt.Errorf("failed to insert item: %w", err)
		}

		embeddingBlob := serializeEmbedding(item.Vector)
		_, err = tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO item_vectors (id, embedding)
			VALUES (?, ?)
		`, id, embeddingBlob)
		if err != nil {
			return fmt.Errorf("failed to insert embedding: %w", err)
		}
	}

	return tx.Commit()
}

// Search performs a KNN search over stored embeddings.
func (s *SQLiteStore) Search(ctx context.Context, queryVector []float32, limit int, filter map[string]string) ([]Item, error) {
	if len(queryVector) == 0 {
		return nil, fmt.Errorf("empty query vector")
	}
	if limit <= 0 {
		limit = 5
	}

	queryBlob := serializeEmbedding(queryVector)

	rows, err := s.db.QueryContext(ctx, `
		SELECT i.id, i.content, i.metadata, v.distance
		FROM item_vectors v
		JOIN items i ON v.id = i.id
		WHERE v.embedding MATCH ?
		  AND k = ?
		ORDER BY v.distance
	`, queryBlob, limit)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	defer rows.Close()

	var results []Item
	for rows.Next() {
		var item Item
		var metadataJSON sql.NullString
		var distance float32

		if err := rows.Scan(&item.ID, &item.Content, &metadataJSON, &distance); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		if metadataJSON.Valid && metadataJSON.String != "" {
			json.Unmarshal([]byte(metadataJSON.String), &item.Metadata)
		}

		if !matchesFilter(item.Metadata, filter) {
			continue
		}

		results = append(results, item)
	}

	return results, rows.Err()
}

// Delete removes items by ID.
func (s *SQLiteStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	_, err = tx.ExecContext(ctx, "DELETE FROM item_vectors WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, "DELETE FROM items WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// serializeEmbedding converts a float32 slice to sqlite-vec's binary format.
func serializeEmbedding(embedding []float32) []byte {
	data, _ := sqlite_vec.SerializeFloat32(embedding)
	return data
}
