package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/JoaquinRestahinoch/pruebadefinitiva/internal/catalog"
	"github.com/JoaquinRestahinoch/pruebadefinitiva/internal/gemini"
	"github.com/JoaquinRestahinoch/pruebadefinitiva/internal/media"
	"github.com/JoaquinRestahinoch/pruebadefinitiva/internal/prompt"
	"github.com/JoaquinRestahinoch/pruebadefinitiva/internal/shoot"
)

// PackShot is one produced image of a pack, in plan order.
type PackShot struct {
	Shot    shoot.Shot
	Outcome *Outcome
}

// demockupInstruction turns a flat mockup or template render into a
// photograph of the physical garment before any scene work happens.
const demockupInstruction = "Convert this product mockup into a photograph of the real physical product. " +
	"Keep the design, print, colors and proportions exactly as shown. " +
	"Render real fabric texture, natural drape, stitching and soft realistic shadows. " +
	"Neutral light gray studio background. No text, no watermarks, no mannequin, no person."

// realize produces (or reuses) the realized photographic version of a
// mockup item. Concurrent callers for the same product share one
// generation.
func (p *Pipeline) realize(ctx context.Context, meta catalog.ProductMetadata, primary gemini.ImagePart) (gemini.ImagePart, error) {
	key := media.RealizedKey(meta.ID)

	if meta.RealizedKey != "" {
		if data, mime, err := p.Blobs.Get(ctx, meta.RealizedKey); err == nil {
			return gemini.ImagePart{Data: data, MIME: mime}, nil
		}
	}

	v, err, _ := p.realizing.Do(meta.ID, func() (any, error) {
		// Another caller may have finished while we queued.
		if data, mime, err := p.Blobs.Get(ctx, key); err == nil {
			return gemini.ImagePart{Data: data, MIME: mime}, nil
		}

		img, err := p.Model.GenerateImage(ctx, []gemini.ImagePart{primary}, demockupInstruction)
		if err != nil {
			return nil, fmt.Errorf("realize mockup: %w", err)
		}
		if err := p.Blobs.Put(ctx, key, img.Data, img.MIME); err != nil {
			return nil, fmt.Errorf("store realized image: %w", err)
		}
		if err := p.Catalog.SetRealizedKey(ctx, meta.ID, key); err != nil {
			return nil, fmt.Errorf("record realized image: %w", err)
		}
		p.Logger.Info().Str("product_id", meta.ID).Msg("realized mockup into photographic base")
		return img, nil
	})
	if err != nil {
		return gemini.ImagePart{}, err
	}
	return v.(gemini.ImagePart), nil
}

// GeneratePack produces n coherent shots of the same set. The first shot
// is the hero; it anchors both the visual set and, when a model is
// enabled, the identity of the person across the remaining shots.
func (p *Pipeline) GeneratePack(ctx context.Context, meta catalog.ProductMetadata, cfg shoot.Config, background *gemini.ImagePart, n int) ([]PackShot, error) {
	refs, err := p.loadReferences(ctx, meta, background)
	if err != nil {
		return nil, err
	}

	category := prompt.Classify(meta.CategoryHint, meta.Auto)
	base := prompt.Compose(cfg, meta, prompt.Flags{
		HasSecondary:     refs.secondary != nil,
		HasBackgroundRef: refs.background != nil,
		IsApparel:        category == prompt.CategoryApparel,
	})

	genBase := refs.primary
	checkDemockup := false
	if category == prompt.CategoryApparel && prompt.LooksLikeMockup(meta.Auto) {
		realized, err := p.realize(ctx, meta, refs.primary)
		if err != nil {
			return nil, err
		}
		genBase = realized
		checkDemockup = true
	}

	shots := shoot.Plan(string(category), n)
	out := make([]PackShot, 0, len(shots))

	var hero *gemini.ImagePart
	var prior []string

	for i, shot := range shots {
		instruction := shotInstruction(base, shot, i, len(shots), prior)

		outcome, err := p.run(ctx, runInput{
			base:          genBase,
			original:      refs.primary,
			refs:          refs,
			instruction:   instruction,
			persona:       cfg.Model.Enabled,
			hero:          hero,
			checkDemockup: checkDemockup,
		})
		if err != nil {
			return nil, fmt.Errorf("pack shot %d: %w", i+1, err)
		}

		record, err := p.saveOutput(ctx, meta.ID, outcome.Image)
		if err != nil {
			return nil, fmt.Errorf("pack shot %d: %w", i+1, err)
		}
		outcome.Record = record

		if hero == nil {
			img := outcome.Image
			hero = &img
		}
		prior = append(prior, shot.Descriptor)
		out = append(out, PackShot{Shot: shot, Outcome: outcome})
	}

	return out, nil
}

func shotInstruction(base string, shot shoot.Shot, index, total int, prior []string) string {
	var b strings.Builder
	b.WriteString(base)

	fmt.Fprintf(&b, "\n\nPACK SHOT %d of %d (%s).\n", index+1, total, shot.Role)
	b.WriteString("Framing for this shot: " + shot.Descriptor + ".")

	if shot.Role == shoot.RoleHero {
		b.WriteString("\nThis is the hero shot. It establishes the set: the exact location, " +
			"surfaces, props, light direction and color palette. Make it the strongest frame of the series.")
	} else {
		b.WriteString("\nAn earlier hero image of this same session is attached as a reference. " +
			"Keep exactly the same set: same location, same surfaces, same props, same light and palette. " +
			"Only the camera changes.")
		b.WriteString("\nThis shot must differ from every previous shot by at least roughly a " +
			"25-degree change of camera angle or a clear change of framing tightness.")
	}

	b.WriteString("\nFrame occupancy: in close-up and detail shots the product fills at least " +
		"about 60% of the frame; in wide environmental shots it occupies at most about 40%.")

	if len(prior) > 0 {
		b.WriteString("\nFramings already used in this session, do not recreate any of them: ")
		b.WriteString(strings.Join(prior, "; "))
		b.WriteString(".")
	}

	return b.String()
}
