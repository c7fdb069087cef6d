package products

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/JoaquinRestahinoch/pruebadefinitiva/internal/catalog"
	"github.com/JoaquinRestahinoch/pruebadefinitiva/internal/describe"
	"github.com/JoaquinRestahinoch/pruebadefinitiva/internal/gemini"
	"github.com/JoaquinRestahinoch/pruebadefinitiva/internal/media"
)

type memBlobs struct {
	mu    sync.Mutex
	blobs map[string][]byte
	mimes map[string]string
	puts  int
}

func newMemBlobs() *memBlobs {
	return &memBlobs{blobs: map[string][]byte{}, mimes: map[string]string{}}
}

func (m *memBlobs) Put(_ context.Context, key string, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	m.blobs[key] = data
	m.mimes[key] = contentType
	return nil
}

func (m *memBlobs) Get(_ context.Context, key string) ([]byte, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[key]
	if !ok {
		return nil, "", media.ErrNotFound
	}
	return data, m.mimes[key], nil
}

func (m *memBlobs) Exists(_ context.Context, key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.blobs[key]
	return ok
}

type memCatalog struct {
	mu       sync.Mutex
	products map[string]catalog.ProductMetadata
	images   map[string]catalog.GeneratedImage
}

func newMemCatalog() *memCatalog {
	return &memCatalog{products: map[string]catalog.ProductMetadata{}, images: map[string]catalog.GeneratedImage{}}
}

func (m *memCatalog) SaveProduct(_ context.Context, meta catalog.ProductMetadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[meta.ID] = meta
	return nil
}

func (m *memCatalog) GetProduct(_ context.Context, id string) (catalog.ProductMetadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	meta, ok := m.products[id]
	if !ok {
		return catalog.ProductMetadata{}, catalog.ErrNotFound
	}
	return meta, nil
}

func (m *memCatalog) SetRealizedKey(_ context.Context, id, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	meta, ok := m.products[id]
	if !ok {
		return catalog.ErrNotFound
	}
	meta.RealizedKey = key
	m.products[id] = meta
	return nil
}

func (m *memCatalog) SetBackgroundRef(_ context.Context, id, key, mime string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	meta, ok := m.products[id]
	if !ok {
		return catalog.ErrNotFound
	}
	meta.BackgroundKey = key
	meta.BackgroundMIME = mime
	m.products[id] = meta
	return nil
}

func (m *memCatalog) SaveGenerated(_ context.Context, img catalog.GeneratedImage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.images[img.ID] = img
	return nil
}

func (m *memCatalog) GetGenerated(_ context.Context, id string) (catalog.GeneratedImage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	img, ok := m.images[id]
	if !ok {
		return catalog.GeneratedImage{}, catalog.ErrNotFound
	}
	return img, nil
}

func (m *memCatalog) Close() {}

type stubText struct{ raw string }

func (s stubText) GenerateText(context.Context, []gemini.ImagePart, string) (string, error) {
	return s.raw, nil
}

// Minimal valid PNG header so content detection reads image/png.
var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

func testHandler(blobs *memBlobs, cat *memCatalog) Handler {
	return Handler{
		Blobs:     blobs,
		Catalog:   cat,
		Describer: &describe.Describer{Model: stubText{raw: `{"title": "Mug"}`}, Logger: zerolog.Nop()},
		Logger:    zerolog.Nop(),
		BaseURL:   "http://test",
	}
}

func testRouter(h Handler) http.Handler {
	r := chi.NewRouter()
	r.Post("/upload-product", h.UploadProduct)
	r.Post("/upload-background-ref", h.UploadBackgroundRef)
	r.Get("/product/{id}", h.ServeProduct)
	r.Get("/product-meta/{id}", h.ProductMeta)
	r.Get("/image/{id}", h.ServeImage)
	r.Get("/background/{id}", h.ServeBackground)
	r.Get("/options", h.Options)
	r.Get("/presets", h.Presets)
	return r
}

func multipartBody(t *testing.T, files map[string][]byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for field, data := range files {
		name := field + ".png"
		if strings.Contains(field, ".") {
			parts := strings.SplitN(field, ".", 2)
			field, name = parts[0], parts[0]+"."+parts[1]
		}
		fw, err := w.CreateFormFile(field, name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write(data); err != nil {
			t.Fatal(err)
		}
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, w.FormDataContentType()
}

func TestUploadProduct(t *testing.T) {
	blobs, cat := newMemBlobs(), newMemCatalog()
	router := testRouter(testHandler(blobs, cat))

	body, contentType := multipartBody(t, map[string][]byte{"file.png": pngBytes}, map[string]string{
		"category_hint": "taza",
	})
	req := httptest.NewRequest(http.MethodPost, "/upload-product", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		ID           string `json:"id"`
		ViewURL      string `json:"view_url"`
		HasSecondary bool   `json:"has_secondary"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.ID == "" {
		t.Fatal("response has no id")
	}
	if resp.HasSecondary {
		t.Fatal("has_secondary should be false")
	}
	if !strings.HasPrefix(resp.ViewURL, "http://test/product/") {
		t.Fatalf("view_url = %q", resp.ViewURL)
	}

	meta, err := cat.GetProduct(context.Background(), resp.ID)
	if err != nil {
		t.Fatal(err)
	}
	if meta.CategoryHint != "taza" {
		t.Fatalf("category hint = %q", meta.CategoryHint)
	}
	if meta.Auto.Title != "Mug" {
		t.Fatalf("auto description not attached: %+v", meta.Auto)
	}
	if !blobs.Exists(context.Background(), meta.PrimaryKey) {
		t.Fatal("primary blob missing")
	}
}

func TestUploadProductRejectsBadExtensionBeforeStoring(t *testing.T) {
	blobs, cat := newMemBlobs(), newMemCatalog()
	router := testRouter(testHandler(blobs, cat))

	body, contentType := multipartBody(t, map[string][]byte{"file.gif": pngBytes}, nil)
	req := httptest.NewRequest(http.MethodPost, "/upload-product", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "unsupported file type") {
		t.Fatalf("body = %s", rec.Body.String())
	}
	if blobs.puts != 0 {
		t.Fatalf("rejected upload still wrote %d blobs", blobs.puts)
	}
}

func TestUploadProductRequiresFile(t *testing.T) {
	router := testRouter(testHandler(newMemBlobs(), newMemCatalog()))

	body, contentType := multipartBody(t, nil, map[string]string{"category_hint": "taza"})
	req := httptest.NewRequest(http.MethodPost, "/upload-product", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestUploadProductBadExtraLabels(t *testing.T) {
	router := testRouter(testHandler(newMemBlobs(), newMemCatalog()))

	body, contentType := multipartBody(t, map[string][]byte{"file.png": pngBytes}, map[string]string{
		"extra_labels": "not-json",
	})
	req := httptest.NewRequest(http.MethodPost, "/upload-product", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestProductMetaAndNotFound(t *testing.T) {
	blobs, cat := newMemBlobs(), newMemCatalog()
	router := testRouter(testHandler(blobs, cat))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/product-meta/ghost", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}

	meta := catalog.ProductMetadata{ID: "p1", PrimaryKey: "products/p1.png", PrimaryMIME: "image/png"}
	if err := cat.SaveProduct(context.Background(), meta); err != nil {
		t.Fatal(err)
	}
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/product-meta/p1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got struct {
		ID                string          `json:"id"`
		RecommendedConfig json.RawMessage `json:"recommended_config"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.ID != "p1" {
		t.Fatalf("meta id = %q", got.ID)
	}
	if len(got.RecommendedConfig) == 0 {
		t.Fatal("recommended_config missing from metadata response")
	}
}

func TestServeProductAndImage(t *testing.T) {
	blobs, cat := newMemBlobs(), newMemCatalog()
	router := testRouter(testHandler(blobs, cat))
	ctx := context.Background()

	meta := catalog.ProductMetadata{ID: "p1", PrimaryKey: "products/p1.png", PrimaryMIME: "image/png"}
	if err := cat.SaveProduct(ctx, meta); err != nil {
		t.Fatal(err)
	}
	if err := blobs.Put(ctx, meta.PrimaryKey, pngBytes, "image/png"); err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/product/p1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "image/png" {
		t.Fatalf("content type = %q", got)
	}

	img := catalog.GeneratedImage{ID: "img1", Key: "outputs/img1.png", MIME: "image/png"}
	if err := cat.SaveGenerated(ctx, img); err != nil {
		t.Fatal(err)
	}
	if err := blobs.Put(ctx, img.Key, pngBytes, "image/png"); err != nil {
		t.Fatal(err)
	}
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/image/img1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/image/ghost", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestUploadBackgroundRef(t *testing.T) {
	blobs, cat := newMemBlobs(), newMemCatalog()
	router := testRouter(testHandler(blobs, cat))
	ctx := context.Background()

	t.Run("standalone", func(t *testing.T) {
		body, contentType := multipartBody(t, map[string][]byte{"file.png": pngBytes}, nil)
		req := httptest.NewRequest(http.MethodPost, "/upload-background-ref", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
		var resp struct {
			BackgroundID string `json:"background_id"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if resp.BackgroundID == "" {
			t.Fatal("no background id returned")
		}

		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/background/"+resp.BackgroundID, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("serve background status = %d", rec.Code)
		}
	})

	t.Run("attached to product", func(t *testing.T) {
		if err := cat.SaveProduct(ctx, catalog.ProductMetadata{ID: "p1", PrimaryKey: "products/p1.png"}); err != nil {
			t.Fatal(err)
		}
		body, contentType := multipartBody(t, map[string][]byte{"file.png": pngBytes}, map[string]string{"product_id": "p1"})
		req := httptest.NewRequest(http.MethodPost, "/upload-background-ref", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
		meta, err := cat.GetProduct(ctx, "p1")
		if err != nil {
			t.Fatal(err)
		}
		if meta.BackgroundKey == "" {
			t.Fatal("background not attached to product")
		}
	})

	t.Run("unknown product", func(t *testing.T) {
		body, contentType := multipartBody(t, map[string][]byte{"file.png": pngBytes}, map[string]string{"product_id": "ghost"})
		req := httptest.NewRequest(http.MethodPost, "/upload-background-ref", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
	})
}

func TestOptionsAndPresets(t *testing.T) {
	router := testRouter(testHandler(newMemBlobs(), newMemCatalog()))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/options", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("options status = %d", rec.Code)
	}
	var opts map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &opts); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"environment_types", "scenes_by_type", "chips", "styles", "lightings", "model"} {
		if _, ok := opts[key]; !ok {
			t.Fatalf("options response missing %q: %s", key, rec.Body.String())
		}
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/presets", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("presets status = %d", rec.Code)
	}
	var presets struct {
		Presets []struct {
			Key string `json:"key"`
		} `json:"presets"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &presets); err != nil {
		t.Fatal(err)
	}
	if len(presets.Presets) != 4 {
		t.Fatalf("preset count = %d, want 4", len(presets.Presets))
	}
	if presets.Presets[0].Key != "catalogo_blanco" {
		t.Fatalf("first preset = %q", presets.Presets[0].Key)
	}
}
