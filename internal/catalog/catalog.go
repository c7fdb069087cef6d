package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates that a record could not be located in the backing store.
var ErrNotFound = errors.New("catalog: record not found")

// AutoDescription is the structured, non-hallucinated product description
// produced by the describer at intake. Field names match the JSON the judge
// model is asked to emit.
type AutoDescription struct {
	Title       string   `json:"title"`
	Category    string   `json:"category"`
	Description string   `json:"product_description_long"`
	Features    []string `json:"visual_features"`
	Materials   []string `json:"materials"`
	Colors      []string `json:"colors"`
	Textures    []string `json:"textures"`
	Boosters    []string `json:"boosters"`
}

// Empty reports whether the describer produced nothing usable.
func (d AutoDescription) Empty() bool {
	return d.Title == "" && d.Description == "" && len(d.Features) == 0 &&
		len(d.Materials) == 0 && len(d.Colors) == 0 && len(d.Boosters) == 0
}

// DescribeFailure is the uniform soft-failure marker recorded when the
// describer response could not be parsed. It is advisory data, not an error.
type DescribeFailure struct {
	Reason string `json:"reason"`
	Raw    string `json:"raw,omitempty"`
}

// ExtraRef points at one stored detail-crop reference image.
type ExtraRef struct {
	Index int    `json:"index"`
	Key   string `json:"key"`
	MIME  string `json:"mime"`
	Label string `json:"label,omitempty"`
}

// ProductMetadata is created once at intake and read on every generation
// request. Only the realized key is written afterwards, by the one-time
// de-mockup pass.
type ProductMetadata struct {
	ID             string           `json:"id"`
	PrimaryKey     string           `json:"primary_key"`
	PrimaryMIME    string           `json:"primary_mime"`
	SecondaryKey   string           `json:"secondary_key,omitempty"`
	SecondaryMIME  string           `json:"secondary_mime,omitempty"`
	BackgroundKey  string           `json:"background_key,omitempty"`
	BackgroundMIME string           `json:"background_mime,omitempty"`
	RealizedKey    string           `json:"realized_key,omitempty"`
	CategoryHint   string           `json:"category_hint,omitempty"`
	AestheticHint  string           `json:"aesthetic_hint,omitempty"`
	Auto           AutoDescription  `json:"auto_description"`
	DescribeError  *DescribeFailure `json:"describe_error,omitempty"`
	Extras         []ExtraRef       `json:"extras,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// GeneratedImage records one successful generation output. Never mutated.
type GeneratedImage struct {
	ID        string    `json:"id"`
	Key       string    `json:"key"`
	MIME      string    `json:"mime"`
	ProductID string    `json:"product_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Store defines the persistence behaviors the application relies on.
type Store interface {
	SaveProduct(ctx context.Context, meta ProductMetadata) error
	GetProduct(ctx context.Context, id string) (ProductMetadata, error)
	SetRealizedKey(ctx context.Context, id, key string) error
	SetBackgroundRef(ctx context.Context, id, key, mime string) error
	SaveGenerated(ctx context.Context, img GeneratedImage) error
	GetGenerated(ctx context.Context, id string) (GeneratedImage, error)
	Close()
}

// New selects a backing store based on whether a database URL is provided.
func New(ctx context.Context, databaseURL, baseDir string) (Store, error) {
	if databaseURL == "" {
		return NewFSStore(baseDir)
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := ensureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func ensureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS products (
        id TEXT PRIMARY KEY,
        realized_key TEXT NOT NULL DEFAULT '',
        meta JSONB NOT NULL,
        created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
        updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
    )`,
		`CREATE TABLE IF NOT EXISTS generated_images (
        id TEXT PRIMARY KEY,
        storage_key TEXT NOT NULL,
        mime TEXT NOT NULL,
        product_id TEXT,
        created_at TIMESTAMPTZ NOT NULL DEFAULT now()
    )`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
