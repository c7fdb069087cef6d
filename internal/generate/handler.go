package generate

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/JoaquinRestahinoch/pruebadefinitiva/internal/catalog"
	"github.com/JoaquinRestahinoch/pruebadefinitiva/internal/gemini"
	"github.com/JoaquinRestahinoch/pruebadefinitiva/internal/media"
	"github.com/JoaquinRestahinoch/pruebadefinitiva/internal/pipeline"
	"github.com/JoaquinRestahinoch/pruebadefinitiva/internal/products"
	"github.com/JoaquinRestahinoch/pruebadefinitiva/internal/qc"
	"github.com/JoaquinRestahinoch/pruebadefinitiva/internal/shoot"
)

// Handler bundles dependencies for the generation endpoints.
type Handler struct {
	Pipe    *pipeline.Pipeline
	Blobs   media.Store
	Catalog catalog.Store
	Logger  zerolog.Logger
	BaseURL string
}

func (h Handler) viewURL(p string) string {
	return strings.TrimRight(h.BaseURL, "/") + p
}

// writeModelError maps pipeline failures onto HTTP statuses: configuration
// problems are ours, empty model responses are upstream's.
func (h Handler) writeModelError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, gemini.ErrMissingAPIKey):
		writeError(w, http.StatusInternalServerError, "image generation is not configured")
	case errors.Is(err, gemini.ErrNoImage):
		writeError(w, http.StatusBadGateway, "the model returned no image")
	case errors.Is(err, media.ErrNotFound), errors.Is(err, catalog.ErrNotFound):
		writeError(w, http.StatusNotFound, "referenced image not found")
	default:
		h.Logger.Error().Err(err).Msg("generation failed")
		writeError(w, http.StatusInternalServerError, "generation failed")
	}
}

// loadProduct resolves the product or writes the error response itself.
func (h Handler) loadProduct(w http.ResponseWriter, r *http.Request, id string) (catalog.ProductMetadata, bool) {
	if strings.TrimSpace(id) == "" {
		writeError(w, http.StatusBadRequest, "product_id is required")
		return catalog.ProductMetadata{}, false
	}
	meta, err := h.Catalog.GetProduct(r.Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
		} else {
			h.Logger.Error().Err(err).Msg("load product")
			writeError(w, http.StatusInternalServerError, "could not load product")
		}
		return catalog.ProductMetadata{}, false
	}
	return meta, true
}

// resolveBackground loads the explicitly referenced standalone background,
// if the config names one. The product's own attached background is picked
// up later by the pipeline. On failure it writes the error response itself.
func (h Handler) resolveBackground(w http.ResponseWriter, r *http.Request, cfg shoot.Config) (*gemini.ImagePart, bool) {
	if cfg.BackgroundRefID == "" {
		return nil, true
	}
	background, err := products.LoadBackground(r.Context(), h.Blobs, cfg.BackgroundRefID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) || errors.Is(err, media.ErrNotFound) {
			writeError(w, http.StatusNotFound, "background reference not found")
		} else {
			h.Logger.Error().Err(err).Str("background_ref_id", cfg.BackgroundRefID).Msg("load background reference")
			writeError(w, http.StatusInternalServerError, "could not load background reference")
		}
		return nil, false
	}
	return background, true
}

type configRequest struct {
	ProductID string       `json:"product_id"`
	Config    shoot.Config `json:"config"`
}

type outcomeResponse struct {
	OK         bool       `json:"ok"`
	ImageID    string     `json:"image_id"`
	ViewURL    string     `json:"view_url"`
	PromptUsed string     `json:"prompt_used"`
	QC         qc.Result  `json:"qc"`
	IdentityQC *qc.Result `json:"identity_qc,omitempty"`
	Attempts   int        `json:"attempts"`
}

func (h Handler) outcomeResponse(o *pipeline.Outcome) outcomeResponse {
	return outcomeResponse{
		OK:         o.QC.Passed() && (o.IdentityQC == nil || o.IdentityQC.Passed()),
		ImageID:    o.Record.ID,
		ViewURL:    h.viewURL("/image/" + o.Record.ID),
		PromptUsed: o.Instruction,
		QC:         o.QC,
		IdentityQC: o.IdentityQC,
		Attempts:   o.Attempts,
	}
}

// FromConfig handles POST /generate-from-product-config.
func (h Handler) FromConfig(w http.ResponseWriter, r *http.Request) {
	var req configRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	meta, ok := h.loadProduct(w, r, req.ProductID)
	if !ok {
		return
	}

	cfg := req.Config
	cfg.Normalize()

	background, ok := h.resolveBackground(w, r, cfg)
	if !ok {
		return
	}

	hasBackgroundRef := background != nil || meta.BackgroundKey != ""
	if err := shoot.Validate(cfg, hasBackgroundRef); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	outcome, err := h.Pipe.GenerateOne(r.Context(), meta, cfg, background)
	if err != nil {
		h.writeModelError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, h.outcomeResponse(outcome))
}

type presetRequest struct {
	ProductID string `json:"product_id"`
	Preset    string `json:"preset"`
}

// FromPreset handles POST /generate-from-product-preset. Presets predate
// background references; a product carrying one gets a conflict instead of
// a silently ignored background.
func (h Handler) FromPreset(w http.ResponseWriter, r *http.Request) {
	var req presetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	preset, ok := shoot.PresetByKey(req.Preset)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown preset: "+req.Preset)
		return
	}

	meta, ok := h.loadProduct(w, r, req.ProductID)
	if !ok {
		return
	}

	if meta.BackgroundKey != "" {
		writeError(w, http.StatusConflict, "this product has a background reference attached; use /generate-from-product-config")
		return
	}

	outcome, err := h.Pipe.GeneratePreset(r.Context(), meta, preset)
	if err != nil {
		h.writeModelError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, h.outcomeResponse(outcome))
}

type packRequest struct {
	ProductID string       `json:"product_id"`
	Config    shoot.Config `json:"config"`
	Count     int          `json:"count"`
}

type packShotResponse struct {
	ImageID    string     `json:"image_id"`
	ViewURL    string     `json:"view_url"`
	Role       string     `json:"role"`
	Descriptor string     `json:"descriptor"`
	QC         qc.Result  `json:"qc"`
	IdentityQC *qc.Result `json:"identity_qc,omitempty"`
	Attempts   int        `json:"attempts"`
}

// Pack handles POST /generate-pack.
func (h Handler) Pack(w http.ResponseWriter, r *http.Request) {
	var req packRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	meta, ok := h.loadProduct(w, r, req.ProductID)
	if !ok {
		return
	}

	cfg := req.Config
	cfg.Normalize()

	background, ok := h.resolveBackground(w, r, cfg)
	if !ok {
		return
	}

	hasBackgroundRef := background != nil || meta.BackgroundKey != ""
	if err := shoot.Validate(cfg, hasBackgroundRef); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	shotsOut, err := h.Pipe.GeneratePack(r.Context(), meta, cfg, background, req.Count)
	if err != nil {
		h.writeModelError(w, err)
		return
	}

	images := make([]packShotResponse, 0, len(shotsOut))
	allPassed := true
	for _, s := range shotsOut {
		o := s.Outcome
		if !o.QC.Passed() || (o.IdentityQC != nil && !o.IdentityQC.Passed()) {
			allPassed = false
		}
		images = append(images, packShotResponse{
			ImageID:    o.Record.ID,
			ViewURL:    h.viewURL("/image/" + o.Record.ID),
			Role:       s.Shot.Role,
			Descriptor: s.Shot.Descriptor,
			QC:         o.QC,
			IdentityQC: o.IdentityQC,
			Attempts:   o.Attempts,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":     allPassed,
		"count":  len(images),
		"images": images,
	})
}
