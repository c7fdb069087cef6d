package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/JoaquinRestahinoch/pruebadefinitiva/internal/catalog"
	"github.com/JoaquinRestahinoch/pruebadefinitiva/internal/gemini"
	"github.com/JoaquinRestahinoch/pruebadefinitiva/internal/media"
	"github.com/JoaquinRestahinoch/pruebadefinitiva/internal/prompt"
	"github.com/JoaquinRestahinoch/pruebadefinitiva/internal/qc"
	"github.com/JoaquinRestahinoch/pruebadefinitiva/internal/shoot"
)

// ImageModel is the generation capability the pipeline drives.
type ImageModel interface {
	GenerateImage(ctx context.Context, parts []gemini.ImagePart, instruction string) (gemini.ImagePart, error)
}

// Reviewer is the QC capability: product QC on every attempt, identity QC
// for persona shots anchored to a hero image.
type Reviewer interface {
	Product(ctx context.Context, original, generated gemini.ImagePart, checkDemockup bool) qc.Result
	Identity(ctx context.Context, hero, generated gemini.ImagePart) qc.Result
}

// Pipeline composes instruction building, generation, QC and retries for
// one request at a time. It holds no per-request state.
type Pipeline struct {
	Model   ImageModel
	Judge   Reviewer
	Blobs   media.Store
	Catalog catalog.Store
	Logger  zerolog.Logger

	realizing singleflight.Group
}

// Outcome is the result of one generation request (or one pack shot).
type Outcome struct {
	Record      catalog.GeneratedImage
	Image       gemini.ImagePart
	Instruction string
	QC          qc.Result
	IdentityQC  *qc.Result
	Attempts    int
}

// references is the loaded image set for one item.
type references struct {
	primary    gemini.ImagePart
	secondary  *gemini.ImagePart
	background *gemini.ImagePart
	extras     []gemini.ImagePart
}

// maxExtraRefs caps detail references per call so they do not dilute the
// model's attention.
const maxExtraRefs = 6

func (p *Pipeline) loadReferences(ctx context.Context, meta catalog.ProductMetadata, background *gemini.ImagePart) (references, error) {
	var refs references

	data, mime, err := p.Blobs.Get(ctx, meta.PrimaryKey)
	if err != nil {
		return references{}, fmt.Errorf("load primary image: %w", err)
	}
	refs.primary = gemini.ImagePart{Data: data, MIME: mime}

	if meta.SecondaryKey != "" {
		if data, mime, err := p.Blobs.Get(ctx, meta.SecondaryKey); err == nil {
			refs.secondary = &gemini.ImagePart{Data: data, MIME: mime}
		}
	}

	refs.background = background
	if refs.background == nil && meta.BackgroundKey != "" {
		if data, mime, err := p.Blobs.Get(ctx, meta.BackgroundKey); err == nil {
			refs.background = &gemini.ImagePart{Data: data, MIME: mime}
		}
	}

	for _, extra := range meta.Extras {
		if len(refs.extras) >= maxExtraRefs {
			break
		}
		if data, mime, err := p.Blobs.Get(ctx, extra.Key); err == nil {
			refs.extras = append(refs.extras, gemini.ImagePart{Data: data, MIME: mime})
		}
	}

	return refs, nil
}

// parts assembles the model input order: generation base first, then the
// anchors and references, strongest first.
func (r references) parts(base gemini.ImagePart, heroAnchor *gemini.ImagePart) []gemini.ImagePart {
	out := []gemini.ImagePart{base}
	if r.secondary != nil {
		out = append(out, *r.secondary)
	}
	if r.background != nil {
		out = append(out, *r.background)
	}
	if heroAnchor != nil {
		out = append(out, *heroAnchor)
	}
	out = append(out, r.extras...)
	return out
}

func (p *Pipeline) saveOutput(ctx context.Context, productID string, img gemini.ImagePart) (catalog.GeneratedImage, error) {
	record := catalog.GeneratedImage{
		ID:        uuid.NewString(),
		MIME:      img.MIME,
		ProductID: productID,
		CreatedAt: time.Now().UTC(),
	}
	record.Key = media.OutputKey(record.ID, media.ExtForMIME(img.MIME))

	if err := p.Blobs.Put(ctx, record.Key, img.Data, img.MIME); err != nil {
		return catalog.GeneratedImage{}, fmt.Errorf("store output: %w", err)
	}
	if err := p.Catalog.SaveGenerated(ctx, record); err != nil {
		return catalog.GeneratedImage{}, fmt.Errorf("record output: %w", err)
	}
	return record, nil
}

// GenerateOne runs a single configured generation request end to end.
func (p *Pipeline) GenerateOne(ctx context.Context, meta catalog.ProductMetadata, cfg shoot.Config, background *gemini.ImagePart) (*Outcome, error) {
	refs, err := p.loadReferences(ctx, meta, background)
	if err != nil {
		return nil, err
	}

	category := prompt.Classify(meta.CategoryHint, meta.Auto)
	instruction := prompt.Compose(cfg, meta, prompt.Flags{
		HasSecondary:     refs.secondary != nil,
		HasBackgroundRef: refs.background != nil,
		IsApparel:        category == prompt.CategoryApparel,
	})

	outcome, err := p.run(ctx, runInput{
		base:        refs.primary,
		original:    refs.primary,
		refs:        refs,
		instruction: instruction,
		persona:     cfg.Model.Enabled,
	})
	if err != nil {
		return nil, err
	}

	record, err := p.saveOutput(ctx, meta.ID, outcome.Image)
	if err != nil {
		return nil, err
	}
	outcome.Record = record
	return outcome, nil
}

// GeneratePreset runs a one-shot named style: the classic v1 flow plus QC.
func (p *Pipeline) GeneratePreset(ctx context.Context, meta catalog.ProductMetadata, preset shoot.Preset) (*Outcome, error) {
	refs, err := p.loadReferences(ctx, meta, nil)
	if err != nil {
		return nil, err
	}

	instruction := "Use the product image as the main reference. " +
		"Do NOT deform the product. Do NOT add text or logos. No watermarks. " +
		preset.Prompt

	outcome, err := p.run(ctx, runInput{
		base:        refs.primary,
		original:    refs.primary,
		refs:        references{primary: refs.primary, secondary: refs.secondary, extras: refs.extras},
		instruction: instruction,
	})
	if err != nil {
		return nil, err
	}

	record, err := p.saveOutput(ctx, meta.ID, outcome.Image)
	if err != nil {
		return nil, err
	}
	outcome.Record = record
	return outcome, nil
}
