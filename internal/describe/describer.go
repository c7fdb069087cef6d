package describe

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/JoaquinRestahinoch/pruebadefinitiva/internal/catalog"
	"github.com/JoaquinRestahinoch/pruebadefinitiva/internal/gemini"
	"github.com/JoaquinRestahinoch/pruebadefinitiva/internal/prompt"
	"github.com/JoaquinRestahinoch/pruebadefinitiva/internal/shoot"
)

// TextModel is the judge-model call the describer depends on.
type TextModel interface {
	GenerateText(ctx context.Context, parts []gemini.ImagePart, instruction string) (string, error)
}

// Describer extracts a structured, non-hallucinated product description at
// intake. Its output only enriches prompts, so it fails soft: callers get a
// failure value, never an error.
type Describer struct {
	Model  TextModel
	Logger zerolog.Logger
}

const maxRawSnippet = 300

const describeInstruction = `You are a product photography assistant. Describe ONLY what is visible in this product image.
Strict rules:
- Never invent brand names or guess unreadable text. If text or a logo is present but not clearly
  legible, describe it as "logo/inscription present" and nothing more.
- Do not infer qualities you cannot see.
Respond with ONLY a JSON object, no surrounding prose:
{
  "title": "short product title",
  "category": "coarse category guess (apparel, shoes, bottle, furniture, electronics, cosmetics, food, other)",
  "product_description_long": "2-4 sentences describing the visible product",
  "visual_features": ["notable visible features"],
  "materials": ["visible materials"],
  "colors": ["dominant colors"],
  "textures": ["visible textures"],
  "boosters": ["short actionable phrases a photographer could use to flatter this product"]
}`

// Describe runs one judge call over the uploaded product image. The category
// hint, when present, is passed as advisory context only.
func (d *Describer) Describe(ctx context.Context, img gemini.ImagePart, categoryHint string) (catalog.AutoDescription, *catalog.DescribeFailure) {
	instruction := describeInstruction
	if hint := strings.TrimSpace(categoryHint); hint != "" {
		instruction += fmt.Sprintf("\nSeller's category hint (may be wrong, verify visually): %q", hint)
	}

	raw, err := d.Model.GenerateText(ctx, []gemini.ImagePart{img}, instruction)
	if err != nil {
		d.Logger.Warn().Err(err).Msg("describe: judge call failed")
		return catalog.AutoDescription{}, &catalog.DescribeFailure{Reason: fmt.Sprintf("judge call failed: %v", err)}
	}

	auto, failure := parseAutoDescription(raw)
	if failure != nil {
		d.Logger.Warn().Str("reason", failure.Reason).Msg("describe: unparsable judge response")
	}
	return auto, failure
}

// parseAutoDescription tolerates prose around the JSON object by extracting
// the outermost {...} span before giving up.
func parseAutoDescription(raw string) (catalog.AutoDescription, *catalog.DescribeFailure) {
	text := strings.TrimSpace(raw)

	var auto catalog.AutoDescription
	if err := json.Unmarshal([]byte(text), &auto); err == nil {
		return auto, nil
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(text[start:end+1]), &auto); err == nil {
			return auto, nil
		}
	}

	return catalog.AutoDescription{}, &catalog.DescribeFailure{
		Reason: "response carried no parsable JSON object",
		Raw:    truncate(text, maxRawSnippet),
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// Recommend derives a sensible default shoot configuration from the intake
// metadata, so the frontend can prefill its pickers.
func Recommend(meta catalog.ProductMetadata) shoot.Config {
	cfg := shoot.Config{
		Environment: shoot.EnvironmentConfig{Type: "studio", Scene: "white"},
		Style:       "ecommerce",
		Lighting:    "studio_soft",
	}
	if prompt.Classify(meta.CategoryHint, meta.Auto) == prompt.CategoryApparel {
		cfg.Style = "instagram_ads"
	}
	return cfg
}
