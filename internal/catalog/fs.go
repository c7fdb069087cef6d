package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FSStore keeps metadata records as JSON files, one per record. It is the
// default backend when no database is configured. Records are written once at
// intake and read many times; the mutex only guards the realized-key update.
type FSStore struct {
	mu      sync.Mutex
	metaDir string
	genDir  string
}

// NewFSStore constructs a store rooted at baseDir.
func NewFSStore(baseDir string) (*FSStore, error) {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	metaDir := filepath.Join(baseDir, "meta")
	genDir := filepath.Join(baseDir, "generated")
	for _, dir := range []string{metaDir, genDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create catalog dir: %w", err)
		}
	}
	return &FSStore{metaDir: metaDir, genDir: genDir}, nil
}

// SaveProduct writes the full metadata record.
func (s *FSStore) SaveProduct(_ context.Context, meta ProductMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSON(filepath.Join(s.metaDir, meta.ID+".json"), meta)
}

// GetProduct loads a metadata record by item id.
func (s *FSStore) GetProduct(_ context.Context, id string) (ProductMetadata, error) {
	var meta ProductMetadata
	if err := readJSON(filepath.Join(s.metaDir, id+".json"), &meta); err != nil {
		return ProductMetadata{}, err
	}
	return meta, nil
}

// SetRealizedKey records the cached de-mockup image for an item.
func (s *FSStore) SetRealizedKey(ctx context.Context, id, key string) error {
	return s.update(ctx, id, func(meta *ProductMetadata) {
		meta.RealizedKey = key
	})
}

// SetBackgroundRef attaches a stored background reference to an item.
func (s *FSStore) SetBackgroundRef(ctx context.Context, id, key, mime string) error {
	return s.update(ctx, id, func(meta *ProductMetadata) {
		meta.BackgroundKey = key
		meta.BackgroundMIME = mime
	})
}

// SaveGenerated records one generation output.
func (s *FSStore) SaveGenerated(_ context.Context, img GeneratedImage) error {
	return writeJSON(filepath.Join(s.genDir, img.ID+".json"), img)
}

// GetGenerated loads a generation record by image id.
func (s *FSStore) GetGenerated(_ context.Context, id string) (GeneratedImage, error) {
	var img GeneratedImage
	if err := readJSON(filepath.Join(s.genDir, id+".json"), &img); err != nil {
		return GeneratedImage{}, err
	}
	return img, nil
}

// Close satisfies the Store interface.
func (s *FSStore) Close() {}

func (s *FSStore) update(ctx context.Context, id string, apply func(*ProductMetadata)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, err := s.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	apply(&meta)
	meta.UpdatedAt = time.Now().UTC()
	return writeJSON(filepath.Join(s.metaDir, id+".json"), meta)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("read record: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	return nil
}
