package products

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/JoaquinRestahinoch/pruebadefinitiva/internal/catalog"
	"github.com/JoaquinRestahinoch/pruebadefinitiva/internal/describe"
	"github.com/JoaquinRestahinoch/pruebadefinitiva/internal/gemini"
	"github.com/JoaquinRestahinoch/pruebadefinitiva/internal/media"
	"github.com/JoaquinRestahinoch/pruebadefinitiva/internal/shoot"
)

const (
	maxImageBytes = 10 * 1024 * 1024 // 10 MB per file
	maxExtraFiles = 6
)

// Handler bundles dependencies for product intake and retrieval endpoints.
type Handler struct {
	Blobs     media.Store
	Catalog   catalog.Store
	Describer *describe.Describer
	Logger    zerolog.Logger
	BaseURL   string
}

type upload struct {
	data []byte
	ext  string
	mime string
}

// readImageFile validates an uploaded part before anything is written:
// extension allow-list, image/* content type, size cap.
func readImageFile(file multipart.File, header *multipart.FileHeader) (upload, error) {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(header.Filename)), ".")
	allowed := false
	for _, e := range media.ImageExts {
		if ext == e {
			allowed = true
			break
		}
	}
	if !allowed {
		return upload{}, fmt.Errorf("unsupported file type %q, use one of: %s", ext, strings.Join(media.ImageExts, ", "))
	}

	data, err := io.ReadAll(io.LimitReader(file, maxImageBytes+1))
	if err != nil {
		return upload{}, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return upload{}, errors.New("empty file")
	}
	if len(data) > maxImageBytes {
		return upload{}, fmt.Errorf("file too large (max %d MB)", maxImageBytes/(1024*1024))
	}

	mime := header.Header.Get("Content-Type")
	if mime == "" || mime == "application/octet-stream" {
		mime = http.DetectContentType(data)
	}
	if !strings.HasPrefix(mime, "image/") {
		return upload{}, fmt.Errorf("not an image: %s", mime)
	}

	return upload{data: data, ext: ext, mime: mime}, nil
}

func (h Handler) viewURL(p string) string {
	return strings.TrimRight(h.BaseURL, "/") + p
}

// UploadProduct handles POST /upload-product.
func (h Handler) UploadProduct(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImageBytes + (1 << 20)); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart payload")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	primary, err := readImageFile(file, header)
	file.Close()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var secondary *upload
	if file, header, err := r.FormFile("secondary"); err == nil {
		u, rerr := readImageFile(file, header)
		file.Close()
		if rerr != nil {
			writeError(w, http.StatusBadRequest, "secondary: "+rerr.Error())
			return
		}
		secondary = &u
	}

	var labels []string
	if raw := strings.TrimSpace(r.FormValue("extra_labels")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &labels); err != nil {
			writeError(w, http.StatusBadRequest, "extra_labels must be a JSON array of strings")
			return
		}
	}

	var extras []upload
	if r.MultipartForm != nil {
		headers := r.MultipartForm.File["extras"]
		if len(headers) > maxExtraFiles {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("too many extra images (max %d)", maxExtraFiles))
			return
		}
		for i, hdr := range headers {
			file, err := hdr.Open()
			if err != nil {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("extras[%d]: unreadable", i))
				return
			}
			u, rerr := readImageFile(file, hdr)
			file.Close()
			if rerr != nil {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("extras[%d]: %s", i, rerr.Error()))
				return
			}
			extras = append(extras, u)
		}
	}

	ctx := r.Context()
	id := uuid.NewString()

	meta := catalog.ProductMetadata{
		ID:            id,
		PrimaryKey:    media.ProductBase(id) + "." + primary.ext,
		PrimaryMIME:   primary.mime,
		CategoryHint:  strings.TrimSpace(r.FormValue("category_hint")),
		AestheticHint: strings.TrimSpace(r.FormValue("aesthetic_hint")),
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	}

	if err := h.Blobs.Put(ctx, meta.PrimaryKey, primary.data, primary.mime); err != nil {
		h.Logger.Error().Err(err).Msg("store primary image")
		writeError(w, http.StatusInternalServerError, "could not store image")
		return
	}
	if secondary != nil {
		meta.SecondaryKey = media.SecondaryBase(id) + "." + secondary.ext
		meta.SecondaryMIME = secondary.mime
		if err := h.Blobs.Put(ctx, meta.SecondaryKey, secondary.data, secondary.mime); err != nil {
			h.Logger.Error().Err(err).Msg("store secondary image")
			writeError(w, http.StatusInternalServerError, "could not store image")
			return
		}
	}
	for i, u := range extras {
		ref := catalog.ExtraRef{
			Index: i,
			Key:   media.ExtraBase(id, i) + "." + u.ext,
			MIME:  u.mime,
		}
		if i < len(labels) {
			ref.Label = strings.TrimSpace(labels[i])
		}
		if err := h.Blobs.Put(ctx, ref.Key, u.data, u.mime); err != nil {
			h.Logger.Error().Err(err).Msg("store extra image")
			writeError(w, http.StatusInternalServerError, "could not store image")
			return
		}
		meta.Extras = append(meta.Extras, ref)
	}

	meta.Auto, meta.DescribeError = h.Describer.Describe(ctx, gemini.ImagePart{Data: primary.data, MIME: primary.mime}, meta.CategoryHint)

	if err := h.Catalog.SaveProduct(ctx, meta); err != nil {
		h.Logger.Error().Err(err).Msg("save product metadata")
		writeError(w, http.StatusInternalServerError, "could not save product")
		return
	}

	h.Logger.Info().
		Str("product_id", id).
		Bool("has_secondary", secondary != nil).
		Int("extras", len(extras)).
		Msg("product uploaded")

	writeJSON(w, http.StatusOK, map[string]any{
		"id":                 id,
		"view_url":           h.viewURL("/product/" + id),
		"has_secondary":      secondary != nil,
		"extra_count":        len(extras),
		"auto_description":   meta.Auto,
		"describe_error":     meta.DescribeError,
		"recommended_config": describe.Recommend(meta),
	})
}

// UploadBackgroundRef handles POST /upload-background-ref. With a
// product_id the background attaches to that product; without one it is
// stored standalone and addressed by its own id.
func (h Handler) UploadBackgroundRef(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImageBytes + (1 << 20)); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart payload")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	u, rerr := readImageFile(file, header)
	file.Close()
	if rerr != nil {
		writeError(w, http.StatusBadRequest, rerr.Error())
		return
	}

	ctx := r.Context()
	productID := strings.TrimSpace(r.FormValue("product_id"))

	if productID != "" {
		if _, err := h.Catalog.GetProduct(ctx, productID); err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				writeError(w, http.StatusNotFound, "product not found")
				return
			}
			h.Logger.Error().Err(err).Msg("load product")
			writeError(w, http.StatusInternalServerError, "could not load product")
			return
		}
		key := media.AttachedBackgroundBase(productID) + "." + u.ext
		if err := h.Blobs.Put(ctx, key, u.data, u.mime); err != nil {
			h.Logger.Error().Err(err).Msg("store background image")
			writeError(w, http.StatusInternalServerError, "could not store image")
			return
		}
		if err := h.Catalog.SetBackgroundRef(ctx, productID, key, u.mime); err != nil {
			h.Logger.Error().Err(err).Msg("attach background ref")
			writeError(w, http.StatusInternalServerError, "could not save background reference")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"product_id": productID,
			"attached":   true,
		})
		return
	}

	id := uuid.NewString()
	key := media.BackgroundBase(id) + "." + u.ext
	if err := h.Blobs.Put(ctx, key, u.data, u.mime); err != nil {
		h.Logger.Error().Err(err).Msg("store background image")
		writeError(w, http.StatusInternalServerError, "could not store image")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"background_id": id,
		"view_url":      h.viewURL("/background/" + id),
	})
}

func (h Handler) serveBlob(w http.ResponseWriter, r *http.Request, key string) {
	data, mime, err := h.Blobs.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, media.ErrNotFound) {
			writeError(w, http.StatusNotFound, "image not found")
			return
		}
		h.Logger.Error().Err(err).Str("key", key).Msg("read blob")
		writeError(w, http.StatusInternalServerError, "could not read image")
		return
	}
	if mime == "" {
		mime = media.MIMEForKey(key)
	}
	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write(data)
}

// ServeProduct handles GET /product/{id}: the original uploaded image.
func (h Handler) ServeProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	meta, err := h.Catalog.GetProduct(r.Context(), id)
	if err == nil {
		h.serveBlob(w, r, meta.PrimaryKey)
		return
	}
	if !errors.Is(err, catalog.ErrNotFound) {
		h.Logger.Error().Err(err).Msg("load product")
		writeError(w, http.StatusInternalServerError, "could not load product")
		return
	}
	// Blob may exist without metadata when the catalog backend changed.
	if key, ok := media.FindByExt(r.Context(), h.Blobs, media.ProductBase(id)); ok {
		h.serveBlob(w, r, key)
		return
	}
	writeError(w, http.StatusNotFound, "product not found")
}

// ProductMeta handles GET /product-meta/{id}.
func (h Handler) ProductMeta(w http.ResponseWriter, r *http.Request) {
	meta, err := h.Catalog.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		h.Logger.Error().Err(err).Msg("load product")
		writeError(w, http.StatusInternalServerError, "could not load product")
		return
	}
	writeJSON(w, http.StatusOK, struct {
		catalog.ProductMetadata
		RecommendedConfig shoot.Config `json:"recommended_config"`
	}{meta, describe.Recommend(meta)})
}

// ServeImage handles GET /image/{id}: a generated output image.
func (h Handler) ServeImage(w http.ResponseWriter, r *http.Request) {
	img, err := h.Catalog.GetGenerated(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, http.StatusNotFound, "image not found")
			return
		}
		h.Logger.Error().Err(err).Msg("load generated image")
		writeError(w, http.StatusInternalServerError, "could not load image")
		return
	}
	h.serveBlob(w, r, img.Key)
}

// ServeBackground handles GET /background/{id}: a standalone background
// reference.
func (h Handler) ServeBackground(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	key, ok := media.FindByExt(r.Context(), h.Blobs, media.BackgroundBase(id))
	if !ok {
		writeError(w, http.StatusNotFound, "background not found")
		return
	}
	h.serveBlob(w, r, key)
}

// Options handles GET /options: every enum the configuration accepts.
func (h Handler) Options(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, shoot.AllOptions())
}

// Presets handles GET /presets.
func (h Handler) Presets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"presets": shoot.Presets()})
}

// LoadBackground fetches a standalone background reference by id for the
// generation handlers.
func LoadBackground(ctx context.Context, blobs media.Store, id string) (*gemini.ImagePart, error) {
	key, ok := media.FindByExt(ctx, blobs, media.BackgroundBase(id))
	if !ok {
		return nil, catalog.ErrNotFound
	}
	data, mime, err := blobs.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return &gemini.ImagePart{Data: data, MIME: mime}, nil
}
