package catalog

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// CachedStore puts a read-through cache in front of product lookups. Records
// are immutable after intake except for the realized key and background ref,
// both of which invalidate the cached entry.
type CachedStore struct {
	Store
	cache *gocache.Cache
}

// WithCache wraps a store with a product-metadata read cache.
func WithCache(inner Store) *CachedStore {
	return &CachedStore{
		Store: inner,
		cache: gocache.New(5*time.Minute, 10*time.Minute),
	}
}

// GetProduct serves repeat lookups from memory.
func (s *CachedStore) GetProduct(ctx context.Context, id string) (ProductMetadata, error) {
	if hit, ok := s.cache.Get(id); ok {
		if meta, ok := hit.(ProductMetadata); ok {
			return meta, nil
		}
	}
	meta, err := s.Store.GetProduct(ctx, id)
	if err != nil {
		return ProductMetadata{}, err
	}
	s.cache.SetDefault(id, meta)
	return meta, nil
}

// SaveProduct writes through and refreshes the cached entry.
func (s *CachedStore) SaveProduct(ctx context.Context, meta ProductMetadata) error {
	if err := s.Store.SaveProduct(ctx, meta); err != nil {
		return err
	}
	s.cache.SetDefault(meta.ID, meta)
	return nil
}

// SetRealizedKey invalidates the cached entry after the write.
func (s *CachedStore) SetRealizedKey(ctx context.Context, id, key string) error {
	if err := s.Store.SetRealizedKey(ctx, id, key); err != nil {
		return err
	}
	s.cache.Delete(id)
	return nil
}

// SetBackgroundRef invalidates the cached entry after the write.
func (s *CachedStore) SetBackgroundRef(ctx context.Context, id, key, mime string) error {
	if err := s.Store.SetBackgroundRef(ctx, id, key, mime); err != nil {
		return err
	}
	s.cache.Delete(id)
	return nil
}
