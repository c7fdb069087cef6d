package prompt

import (
	"fmt"
	"strings"

	"github.com/JoaquinRestahinoch/pruebadefinitiva/internal/catalog"
	"github.com/JoaquinRestahinoch/pruebadefinitiva/internal/shoot"
)

// Clause is one named block of the instruction. The clause order is the
// priority system: the model treats earlier clauses as overriding later ones.
type Clause struct {
	Name string
	Text string
}

// Flags carries the reference-presence facts the composer cannot read from
// the config alone.
type Flags struct {
	HasSecondary     bool
	HasBackgroundRef bool
	IsApparel        bool
}

// Compose renders the full instruction for one generation call. It is pure:
// identical inputs always produce the identical string.
func Compose(cfg shoot.Config, meta catalog.ProductMetadata, flags Flags) string {
	return Render(Clauses(cfg, meta, flags))
}

// Render joins clause texts in order with blank lines.
func Render(clauses []Clause) string {
	texts := make([]string, 0, len(clauses))
	for _, c := range clauses {
		texts = append(texts, c.Text)
	}
	return strings.Join(texts, "\n\n")
}

// Clauses builds the ordered clause list. Optional clauses drop out; the
// relative order of whatever remains never changes.
func Clauses(cfg shoot.Config, meta catalog.ProductMetadata, flags Flags) []Clause {
	var out []Clause

	if flags.HasBackgroundRef {
		out = append(out, Clause{
			Name: "background_lock",
			Text: "HIGHEST PRIORITY: one of the reference images is a background/scene reference. " +
				"Recreate that exact set: same location, surfaces, colors and depth. " +
				"Place the product naturally inside it. This overrides every scene instruction below.",
		})
	}

	if flags.HasSecondary {
		out = append(out, Clause{
			Name: "multi_view",
			Text: "A secondary reference image shows the same product from another angle. " +
				"Use both views to keep the product's shape and proportions correct from any viewpoint.",
		})
	}

	if flags.IsApparel {
		out = append(out, Clause{
			Name: "mockup_to_real",
			Text: "If the product image is a flat apparel mockup, render it as a real physical garment: " +
				"natural fabric texture, drape and soft shadows, keeping the design, print placement and colors exactly as provided.",
		})
	}

	if len(meta.Extras) > 0 {
		out = append(out, Clause{Name: "extra_refs", Text: extraRefsText(meta.Extras)})
	}

	out = append(out,
		Clause{
			Name: "product_lock",
			Text: "Use the product image as the primary reference. Keep the product EXACTLY as shown: " +
				"same shape, colors, proportions, labels and details. Never deform it or redesign it.",
		},
		Clause{
			Name: "no_text",
			Text: "Do not add any text, logos, brand marks or watermarks that are not on the product itself.",
		},
		Clause{
			Name: "photorealism",
			Text: "The result must be a photorealistic photograph: believable optics, physically consistent " +
				"lighting and shadows, realistic materials. No illustration, CGI or collage look.",
		},
		Clause{
			Name: "consistency",
			Text: "Keep the whole frame coherent as a single professional photoshoot: one light setup, " +
				"one color grade, one scene.",
		},
	)

	if cfg.Model.Enabled {
		out = append(out, Clause{
			Name: "persona_lock",
			Text: "If a person appears in any reference image, that exact person must appear here: " +
				"same face, hair, build and skin tone. Do not invent a different person.",
		})
	}

	if facts := productFactsText(meta); facts != "" {
		out = append(out, Clause{Name: "product_facts", Text: facts})
	}

	out = append(out, Clause{Name: "shoot_context", Text: shootContextText(cfg, flags.HasBackgroundRef, meta.AestheticHint)})
	out = append(out, Clause{Name: "persona", Text: personaText(cfg.Model)})
	out = append(out, Clause{
		Name: "objective",
		Text: "Objective: a professional advertising photograph, tack sharp, ready for a product campaign.",
	})

	return out
}

func extraRefsText(extras []catalog.ExtraRef) string {
	var b strings.Builder
	b.WriteString("Additional reference images show exact product details. Reproduce these details faithfully:")
	for _, e := range extras {
		label := strings.TrimSpace(e.Label)
		if label == "" {
			label = fmt.Sprintf("detail %d", e.Index+1)
		}
		fmt.Fprintf(&b, "\n- %s", label)
	}
	return b.String()
}

func productFactsText(meta catalog.ProductMetadata) string {
	auto := meta.Auto
	if auto.Empty() {
		return ""
	}

	var b strings.Builder
	b.WriteString("Known product facts (do not invent anything beyond this):")
	if auto.Title != "" {
		fmt.Fprintf(&b, "\n- Product: %s", auto.Title)
	}
	if auto.Description != "" {
		fmt.Fprintf(&b, "\n- Appearance: %s", auto.Description)
	}
	if len(auto.Materials) > 0 {
		fmt.Fprintf(&b, "\n- Materials: %s", strings.Join(auto.Materials, ", "))
	}
	if len(auto.Colors) > 0 {
		fmt.Fprintf(&b, "\n- Colors: %s", strings.Join(auto.Colors, ", "))
	}
	if len(auto.Textures) > 0 {
		fmt.Fprintf(&b, "\n- Textures: %s", strings.Join(auto.Textures, ", "))
	}
	for _, booster := range auto.Boosters {
		if trimmed := strings.TrimSpace(booster); trimmed != "" {
			fmt.Fprintf(&b, "\n- %s", trimmed)
		}
	}
	return b.String()
}

func shootContextText(cfg shoot.Config, hasBackgroundRef bool, aesthetic string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Style: %s. Lighting: %s.", cfg.Style, cfg.Lighting)

	switch {
	case hasBackgroundRef:
		b.WriteString("\nScene: use the provided background reference image as the scene, as instructed above.")
	case cfg.HasCustomScene():
		fmt.Fprintf(&b, "\nScene: %s.", strings.TrimSpace(cfg.Environment.CustomScene))
		b.WriteString("\nBuild exactly this scene. Do not substitute it with a different or generic setting.")
	default:
		fmt.Fprintf(&b, "\nEnvironment: %s. Scene/background: %s.", cfg.Environment.Type, cfg.Environment.Scene)
	}

	chips := make([]string, 0, len(cfg.Environment.Chips))
	for _, chip := range cfg.Environment.Chips {
		if trimmed := strings.TrimSpace(chip); trimmed != "" {
			chips = append(chips, trimmed)
		}
	}
	if len(chips) > 0 {
		fmt.Fprintf(&b, "\nMood: %s.", strings.Join(chips, ", "))
	}
	if custom := strings.TrimSpace(cfg.Environment.CustomText); custom != "" {
		fmt.Fprintf(&b, "\nExtra details: %s.", custom)
	}
	if trimmed := strings.TrimSpace(aesthetic); trimmed != "" {
		fmt.Fprintf(&b, "\nSeller's aesthetic direction: %s.", trimmed)
	}
	return b.String()
}

func personaText(m shoot.ModelConfig) string {
	if !m.Enabled {
		return "No model or person in the shot."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Include a human model: yes. Gender: %s. Age: %s.", m.Gender, m.AgeRange)
	if appearance := strings.TrimSpace(m.Appearance); appearance != "" {
		fmt.Fprintf(&b, " Appearance/style: %s.", appearance)
	}
	b.WriteString("\nThe person must NOT occlude the product. Subtle presence where it fits.")
	b.WriteString("\nThe person must stay the exact same individual across every image of this shoot.")
	return b.String()
}

const maxQuotedIssues = 6

// Reinforce appends the fixed retry clause to a base instruction, quoting the
// judge's reported issues. Identity failures additionally instruct the model
// to prefer hiding the face over inventing a different person.
func Reinforce(base string, issues []string, identityFailed bool) string {
	var b strings.Builder
	b.WriteString(base)
	b.WriteString("\n\nRETRY: the previous attempt failed quality control. Fix every issue below while ")
	b.WriteString("keeping the product identical to its reference:")

	quoted := 0
	for _, issue := range issues {
		trimmed := strings.TrimSpace(issue)
		if trimmed == "" {
			continue
		}
		fmt.Fprintf(&b, "\n- %s", trimmed)
		quoted++
		if quoted >= maxQuotedIssues {
			break
		}
	}
	if quoted == 0 {
		b.WriteString("\n- the result did not meet the photorealism and product-fidelity bar")
	}

	if identityFailed {
		b.WriteString("\nIf you cannot reproduce the same person exactly, frame the shot so the face is " +
			"not visible rather than showing a different person.")
	}
	return b.String()
}
