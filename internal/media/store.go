package media

import (
	"context"
	"errors"
	"path"
	"strings"
)

// ErrNotFound indicates that no blob exists under the requested key.
var ErrNotFound = errors.New("media: blob not found")

// Store hides the backing implementation for reference and output images.
// Keys are slash-separated relative paths such as "products/<id>.png".
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, string, error)
	Exists(ctx context.Context, key string) bool
}

// ImageExts lists the upload formats the service accepts, in probe order.
var ImageExts = []string{"png", "jpg", "jpeg", "webp"}

// FindByExt probes base.<ext> for each accepted extension and returns the
// first key that exists. Mirrors how uploads are stored: the extension is
// chosen by the client file name, so readers have to probe.
func FindByExt(ctx context.Context, s Store, base string) (string, bool) {
	for _, ext := range ImageExts {
		key := base + "." + ext
		if s.Exists(ctx, key) {
			return key, true
		}
	}
	return "", false
}

// MIMEForKey derives a content type from the key extension.
func MIMEForKey(key string) string {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(key)), ".")
	switch ext {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "":
		return "application/octet-stream"
	default:
		return "image/" + ext
	}
}

// ExtForMIME picks a storage extension for generated output bytes.
func ExtForMIME(mime string) string {
	if strings.Contains(strings.ToLower(mime), "png") {
		return "png"
	}
	return "jpg"
}
