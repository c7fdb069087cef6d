package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists metadata records in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// SaveProduct stores the full metadata record as JSONB.
func (s *PostgresStore) SaveProduct(ctx context.Context, meta ProductMetadata) error {
	payload, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal product meta: %w", err)
	}
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO products (id, realized_key, meta, created_at, updated_at)
         VALUES ($1, $2, $3, $4, $5)
         ON CONFLICT (id) DO UPDATE SET realized_key = $2, meta = $3, updated_at = $5`,
		meta.ID, meta.RealizedKey, payload, meta.CreatedAt, meta.UpdatedAt); err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// GetProduct loads one metadata record.
func (s *PostgresStore) GetProduct(ctx context.Context, id string) (ProductMetadata, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx, `SELECT meta FROM products WHERE id = $1`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ProductMetadata{}, ErrNotFound
		}
		return ProductMetadata{}, fmt.Errorf("query product: %w", err)
	}
	var meta ProductMetadata
	if err := json.Unmarshal(payload, &meta); err != nil {
		return ProductMetadata{}, fmt.Errorf("decode product meta: %w", err)
	}
	return meta, nil
}

// SetRealizedKey records the cached de-mockup image for an item.
func (s *PostgresStore) SetRealizedKey(ctx context.Context, id, key string) error {
	return s.update(ctx, id, func(meta *ProductMetadata) {
		meta.RealizedKey = key
	})
}

// SetBackgroundRef attaches a stored background reference to an item.
func (s *PostgresStore) SetBackgroundRef(ctx context.Context, id, key, mime string) error {
	return s.update(ctx, id, func(meta *ProductMetadata) {
		meta.BackgroundKey = key
		meta.BackgroundMIME = mime
	})
}

// SaveGenerated records one generation output.
func (s *PostgresStore) SaveGenerated(ctx context.Context, img GeneratedImage) error {
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO generated_images (id, storage_key, mime, product_id, created_at) VALUES ($1, $2, $3, $4, $5)`,
		img.ID, img.Key, img.MIME, img.ProductID, img.CreatedAt); err != nil {
		return fmt.Errorf("insert generated image: %w", err)
	}
	return nil
}

// GetGenerated loads a generation record by image id.
func (s *PostgresStore) GetGenerated(ctx context.Context, id string) (GeneratedImage, error) {
	var img GeneratedImage
	err := s.pool.QueryRow(ctx,
		`SELECT id, storage_key, mime, COALESCE(product_id, ''), created_at FROM generated_images WHERE id = $1`, id).
		Scan(&img.ID, &img.Key, &img.MIME, &img.ProductID, &img.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return GeneratedImage{}, ErrNotFound
		}
		return GeneratedImage{}, fmt.Errorf("query generated image: %w", err)
	}
	return img, nil
}

// Close releases database resources.
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *PostgresStore) update(ctx context.Context, id string, apply func(*ProductMetadata)) error {
	meta, err := s.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	apply(&meta)
	meta.UpdatedAt = time.Now().UTC()
	return s.SaveProduct(ctx, meta)
}
